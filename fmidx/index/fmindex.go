// Copyright © 2023-2024 Wei Shen <shenwei356@gmail.com>
//
// Permission is hereby granted, free of charge, to any person obtaining a copy
// of this software and associated documentation files (the "Software"), to deal
// in the Software without restriction, including without limitation the rights
// to use, copy, modify, merge, publish, distribute, sublicense, and/or sell
// copies of the Software, and to permit persons to whom the Software is
// furnished to do so, subject to the following conditions:
//
// The above copyright notice and this permission notice shall be included in
// all copies or substantial portions of the Software.
//
// THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND, EXPRESS OR
// IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES OF MERCHANTABILITY,
// FITNESS FOR A PARTICULAR PURPOSE AND NONINFRINGEMENT. IN NO EVENT SHALL THE
// AUTHORS OR COPYRIGHT HOLDERS BE LIABLE FOR ANY CLAIM, DAMAGES OR OTHER
// LIABILITY, WHETHER IN AN ACTION OF CONTRACT, TORT OR OTHERWISE, ARISING FROM,
// OUT OF OR IN CONNECTION WITH THE SOFTWARE OR THE USE OR OTHER DEALINGS IN
// THE SOFTWARE.

package index

import (
	"context"
	"encoding/binary"
	"fmt"
	"runtime"
	"time"

	"github.com/pkg/errors"
	"github.com/zeebo/wyhash"
)

// BuildOptions contains options for building an FM-index.
type BuildOptions struct {
	SamplingRate    int  // interval of Occ checkpoints
	KeepSuffixArray bool // keep the suffix array for locating matches

	// chunked suffix array construction
	Chunks            int // the number of chunks, 1 for a single pass
	MinOverlap        int // trailing context of each chunk
	ParallelThreshold int // texts shorter than this are sorted in a single pass
	Threads           int

	Verify bool // check the order of the suffix array, slow

	OnChunkDone func(time.Duration) // optional
}

// DefaultBuildOptions is the default BuildOptions.
var DefaultBuildOptions = BuildOptions{
	SamplingRate:    32,
	KeepSuffixArray: true,

	Chunks:            1,
	MinOverlap:        256,
	ParallelThreshold: 1 << 20,
	Threads:           runtime.NumCPU(),
}

// CheckBuildOptions checks the options.
func CheckBuildOptions(opt *BuildOptions) error {
	if opt.SamplingRate < 1 {
		return &ConfigurationError{Field: "sampling rate", Reason: fmt.Sprintf("should be >= 1, given: %d", opt.SamplingRate)}
	}
	if opt.ParallelThreshold < 0 {
		return &ConfigurationError{Field: "parallel threshold", Reason: fmt.Sprintf("should be >= 0, given: %d", opt.ParallelThreshold)}
	}
	return CheckChunkOptions(opt.chunkOptions())
}

func (opt *BuildOptions) chunkOptions() *ChunkOptions {
	return &ChunkOptions{
		Chunks:      opt.Chunks,
		MinOverlap:  opt.MinOverlap,
		Threads:     opt.Threads,
		Verify:      opt.Verify,
		OnChunkDone: opt.OnChunkDone,
	}
}

// FMIndex is an immutable FM-index. After being built or loaded,
// it's safe for concurrent searching without locks.
type FMIndex struct {
	alphabet *Alphabet
	n        int // length of the text, including the sentinel

	bwt  []byte
	less []int
	occ  *Occ
	sa   []int // optional

	records *Records // optional
}

// Interval is a half-open range [Lower, Upper) of suffix array rows.
type Interval struct {
	Lower int
	Upper int
}

// Len returns the number of rows in the interval.
func (iv Interval) Len() int { return iv.Upper - iv.Lower }

// Build builds an FM-index from a preprocessed sequence.
// The suffix array is built in a single pass, or in chunks in parallel
// for long texts if opt.Chunks > 1. Nothing is returned unless all the
// steps succeed.
func Build(ctx context.Context, s *Sequence, opt *BuildOptions) (*FMIndex, error) {
	if opt == nil {
		opt = &DefaultBuildOptions
	}
	if err := CheckBuildOptions(opt); err != nil {
		return nil, err
	}
	text := s.Bytes()

	// suffix array
	var sa []int
	var err error
	if opt.Chunks > 1 && len(text) >= opt.ParallelThreshold {
		sa, err = BuildSuffixArrayParallel(ctx, text, opt.chunkOptions())
		if err != nil {
			return nil, errors.Wrap(err, "building suffix array in chunks")
		}
	} else {
		sa = BuildSuffixArray(text)
		if err = CheckSuffixArray(text, sa, opt.Verify); err != nil {
			return nil, err
		}
	}
	if err = ctx.Err(); err != nil {
		return nil, err
	}

	idx, err := NewFromSuffixArray(text, sa, s.Alphabet(), opt.SamplingRate)
	if err != nil {
		return nil, err
	}
	if !opt.KeepSuffixArray {
		idx.sa = nil
	}
	idx.records = s.Records()
	return idx, nil
}

// NewFromSuffixArray creates an FM-index from a text ending with the
// sentinel and its suffix array.
func NewFromSuffixArray(text []byte, sa []int, a *Alphabet, samplingRate int) (*FMIndex, error) {
	if len(sa) != len(text) {
		return nil, &ConstructionError{Stage: "bwt",
			Reason: fmt.Sprintf("length mismatch of text (%d) and suffix array (%d)", len(text), len(sa))}
	}

	bwt, _ := BWT(text, sa)
	occ, err := NewOcc(bwt, a, samplingRate)
	if err != nil {
		return nil, err
	}

	return &FMIndex{
		alphabet: a,
		n:        len(text),
		bwt:      bwt,
		less:     NewLess(text, a),
		occ:      occ,
		sa:       sa,
	}, nil
}

// Len returns the length of the indexed text, including the sentinel.
func (idx *FMIndex) Len() int { return idx.n }

// Alphabet returns the alphabet.
func (idx *FMIndex) Alphabet() *Alphabet { return idx.alphabet }

// SamplingRate returns the sampling rate of the Occ table.
func (idx *FMIndex) SamplingRate() int { return idx.occ.rate }

// HasSuffixArray tells if the suffix array is available.
func (idx *FMIndex) HasSuffixArray() bool { return idx.sa != nil }

// Records returns the records, it might be nil.
func (idx *FMIndex) Records() *Records { return idx.records }

// BWT returns the BWT. Do not modify it.
func (idx *FMIndex) BWT() []byte { return idx.bwt }

// Less returns the Less table. Do not modify it.
func (idx *FMIndex) Less() []int { return idx.less }

// BackwardSearch searches a pattern from its last symbol to the first one,
// and returns the interval of suffix array rows of all the occurrences.
// ok is false if the pattern does not occur, and remaining symbols are
// not examined once the interval becomes empty.
// An empty pattern matches all the rows.
func (idx *FMIndex) BackwardSearch(pattern []byte) (iv Interval, ok bool) {
	lo, hi := 0, idx.n
	var c int
	for i := len(pattern) - 1; i >= 0; i-- {
		c = idx.alphabet.Code(pattern[i])
		if c < 0 {
			return Interval{}, false
		}

		lo = idx.less[c] + idx.occ.Rank(c, lo)
		hi = idx.less[c] + idx.occ.Rank(c, hi)
		if lo >= hi {
			return Interval{}, false
		}
	}
	return Interval{Lower: lo, Upper: hi}, lo < hi
}

// Count returns the number of occurrences of a pattern.
func (idx *FMIndex) Count(pattern []byte) int {
	iv, ok := idx.BackwardSearch(pattern)
	if !ok {
		return 0
	}
	return iv.Len()
}

// Positions returns the text positions of the rows in an interval.
func (idx *FMIndex) Positions(iv Interval) ([]int, error) {
	if idx.sa == nil {
		return nil, ErrNoSuffixArray
	}
	if iv.Lower < 0 || iv.Upper > idx.n || iv.Lower > iv.Upper {
		return nil, fmt.Errorf("fm-index: invalid interval: [%d, %d)", iv.Lower, iv.Upper)
	}
	locs := make([]int, iv.Len())
	copy(locs, idx.sa[iv.Lower:iv.Upper])
	return locs, nil
}

// Locate returns the 0-based positions of all the occurrences of a pattern,
// in the order of suffix array rows.
func (idx *FMIndex) Locate(pattern []byte) ([]int, error) {
	if idx.sa == nil {
		return nil, ErrNoSuffixArray
	}
	iv, ok := idx.BackwardSearch(pattern)
	if !ok {
		return []int{}, nil
	}
	return idx.Positions(iv)
}

// lf maps row r to the row of the suffix one position before.
func (idx *FMIndex) lf(r int) int {
	c := idx.alphabet.Code(idx.bwt[r])
	return idx.less[c] + idx.occ.Rank(c, r)
}

// Extract recovers text[start:end] from the BWT by walking LF-mapping
// from the end of the text. It does not need the suffix array,
// but the time is proportional to n-start.
func (idx *FMIndex) Extract(start, end int) ([]byte, error) {
	if start < 0 || end > idx.n || start > end {
		return nil, ErrInvalidRegion
	}
	s := make([]byte, end-start)
	if start == end {
		return s, nil
	}

	r := 0 // row of the suffix of position n-1
	pos := idx.n - 1
	if pos < end {
		s[pos-start] = Sentinel
	}
	for pos > start {
		pos--
		if pos < end {
			s[pos-start] = idx.bwt[r]
		}
		r = idx.lf(r)
	}
	return s, nil
}

// Checksum returns a hash value of the BWT, Less and Occ tables.
// Indexes built from the same text with the same options have the same value.
func (idx *FMIndex) Checksum() uint64 {
	h := wyhash.Hash(idx.bwt, uint64(idx.n))
	h = hashUint64s(h, intsToUint64s(idx.less))
	h = hashUint64s(h, idx.occ.checkpoints)
	return h
}

func intsToUint64s(vals []int) []uint64 {
	s := make([]uint64, len(vals))
	for i, v := range vals {
		s[i] = uint64(v)
	}
	return s
}

func hashUint64s(seed uint64, vals []uint64) uint64 {
	buf := make([]byte, 0, 8<<10)
	h := seed
	for i, v := range vals {
		buf = binary.BigEndian.AppendUint64(buf, v)
		if len(buf) == cap(buf) || i == len(vals)-1 {
			h = wyhash.Hash(buf, h)
			buf = buf[:0]
		}
	}
	return h
}
