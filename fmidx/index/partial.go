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
	"bytes"
	"container/heap"
	"context"
	"fmt"
	"runtime"
	"sync"
	"time"

	"github.com/twotwotwo/sorts"
)

// ChunkOptions contains options for building a suffix array in chunks.
type ChunkOptions struct {
	Chunks     int  // the number of chunks
	MinOverlap int  // bytes of trailing context of each chunk
	Threads    int  // the number of concurrent chunk tasks
	Verify     bool // check the order of the merged suffix array

	// OnChunkDone is called after each chunk is sorted, optional.
	OnChunkDone func(time.Duration)
}

// DefaultChunkOptions is the default ChunkOptions.
var DefaultChunkOptions = ChunkOptions{
	Chunks:     8,
	MinOverlap: 256,
	Threads:    runtime.NumCPU(),
}

// CheckChunkOptions checks the options.
func CheckChunkOptions(opt *ChunkOptions) error {
	if opt.Chunks < 1 {
		return &ConfigurationError{Field: "chunks", Reason: fmt.Sprintf("should be >= 1, given: %d", opt.Chunks)}
	}
	if opt.MinOverlap < 0 {
		return &ConfigurationError{Field: "overlap", Reason: fmt.Sprintf("should be >= 0, given: %d", opt.MinOverlap)}
	}
	if opt.Threads < 1 {
		return &ConfigurationError{Field: "threads", Reason: fmt.Sprintf("should be >= 1, given: %d", opt.Threads)}
	}
	return nil
}

// Chunk is a range of suffix positions [Start, End).
// Bytes in [Start, ContextEnd) are the chunk-local view.
type Chunk struct {
	Index      int
	Start      int
	End        int
	ContextEnd int
}

// Partition splits [0, n) into at most `chunks` contiguous chunks,
// each with at least `overlap` bytes of trailing context if available.
func Partition(n int, chunks int, overlap int) []Chunk {
	if n == 0 || chunks < 1 {
		return nil
	}
	if chunks > n {
		chunks = n
	}
	size := (n + chunks - 1) / chunks

	cs := make([]Chunk, 0, chunks)
	var start, end int
	for i := 0; start < n; i++ {
		end = min(start+size, n)
		cs = append(cs, Chunk{
			Index:      i,
			Start:      start,
			End:        end,
			ContextEnd: min(end+overlap, n),
		})
		start = end
	}
	return cs
}

// PartialSuffixArray is the suffix positions of a chunk, sorted by their
// first Depth bytes. Positions are global ones.
type PartialSuffixArray struct {
	Chunk Chunk
	SA    []int
	Depth int
}

// sortDepth is the prefix length used for sorting chunks, all bytes of
// which lie in the context window of the chunk.
func sortDepth(overlap int) int {
	return max(overlap, 1)
}

// BuildPartialSuffixArrays sorts the suffixes of every chunk concurrently,
// by their first max(MinOverlap, 1) bytes, i.e., only the chunk-local window
// is read. Tasks share nothing but the read-only text. It returns after all
// tasks are finished, or ctx is cancelled.
func BuildPartialSuffixArrays(ctx context.Context, text []byte, opt *ChunkOptions) ([]*PartialSuffixArray, error) {
	if err := CheckChunkOptions(opt); err != nil {
		return nil, err
	}

	chunks := Partition(len(text), opt.Chunks, opt.MinOverlap)
	parts := make([]*PartialSuffixArray, len(chunks))
	depth := sortDepth(opt.MinOverlap)

	var wg sync.WaitGroup
	tokens := make(chan int, opt.Threads)
	for _, c := range chunks {
		if ctx.Err() != nil {
			break
		}

		wg.Add(1)
		tokens <- 1
		go func(c Chunk) {
			defer func() {
				wg.Done()
				<-tokens
			}()
			if ctx.Err() != nil {
				return
			}

			t := time.Now()
			parts[c.Index] = buildPartialSuffixArray(text, c, depth)
			if opt.OnChunkDone != nil {
				opt.OnChunkDone(time.Since(t))
			}
		}(c)
	}
	wg.Wait()

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return parts, nil
}

func buildPartialSuffixArray(text []byte, c Chunk, depth int) *PartialSuffixArray {
	sa := make([]int, c.End-c.Start)
	for i := range sa {
		sa[i] = c.Start + i
	}
	sorts.Quicksort(&chunkSorter{
		window: text[c.Start:c.ContextEnd],
		start:  c.Start,
		depth:  depth,
		sa:     sa,
	})
	return &PartialSuffixArray{Chunk: c, SA: sa, Depth: depth}
}

// chunkSorter compares the first depth bytes of two suffixes,
// which never go beyond the window.
type chunkSorter struct {
	window []byte
	start  int
	depth  int
	sa     []int
}

func (s *chunkSorter) prefix(p int) []byte {
	w := s.window[p-s.start:]
	if len(w) > s.depth {
		return w[:s.depth]
	}
	return w
}

func (s *chunkSorter) Len() int      { return len(s.sa) }
func (s *chunkSorter) Swap(i, j int) { s.sa[i], s.sa[j] = s.sa[j], s.sa[i] }
func (s *chunkSorter) Less(i, j int) bool {
	return bytes.Compare(s.prefix(s.sa[i]), s.prefix(s.sa[j])) < 0
}

// prefix returns text[p:p+depth], or the whole suffix if it's shorter.
func prefix(text []byte, p int, depth int) []byte {
	return text[p:min(p+depth, len(text))]
}

// MergePartialSuffixArrays merges partial suffix arrays of the same depth
// into one array of all positions, with a k-way merge. The result is sorted
// by the first Depth bytes of suffixes, suffixes sharing such a prefix are
// left for BuildSuffixArrayParallel to order.
func MergePartialSuffixArrays(text []byte, parts []*PartialSuffixArray) ([]int, error) {
	var total, depth int
	for i, p := range parts {
		if p == nil {
			return nil, &ConstructionError{Stage: "merge", Reason: fmt.Sprintf("partial suffix array #%d missing", i)}
		}
		if i == 0 {
			depth = p.Depth
		} else if p.Depth != depth {
			return nil, &ConstructionError{Stage: "merge",
				Reason: fmt.Sprintf("partial suffix array #%d sorted to depth %d, expected: %d", i, p.Depth, depth)}
		}
		total += len(p.SA)
	}
	if total != len(text) {
		return nil, &ConstructionError{Stage: "merge",
			Reason: fmt.Sprintf("partial suffix arrays cover %d positions, expected: %d", total, len(text))}
	}

	sa := make([]int, total)
	mergeParts(sa, parts, func(a, b int) bool {
		return bytes.Compare(prefix(text, a, depth), prefix(text, b, depth)) < 0
	})
	return sa, nil
}

// mergeParts merges sorted parts into sa, which has the total size.
func mergeParts(sa []int, parts []*PartialSuffixArray, less func(a, b int) bool) {
	h := &mergeHeap{parts: parts, items: make([]mergeItem, 0, len(parts)), less: less}
	for i, p := range parts {
		if len(p.SA) > 0 {
			h.items = append(h.items, mergeItem{part: i})
		}
	}
	heap.Init(h)

	var it *mergeItem
	var k int
	for h.Len() > 0 {
		it = &h.items[0]
		sa[k] = parts[it.part].SA[it.i]
		k++
		it.i++
		if it.i == len(parts[it.part].SA) {
			heap.Pop(h)
		} else {
			heap.Fix(h, 0)
		}
	}
}

type mergeItem struct {
	part int // index of the partial suffix array
	i    int // cursor
}

type mergeHeap struct {
	parts []*PartialSuffixArray
	items []mergeItem
	less  func(a, b int) bool
}

func (h *mergeHeap) Len() int { return len(h.items) }
func (h *mergeHeap) Less(i, j int) bool {
	return h.less(h.parts[h.items[i].part].SA[h.items[i].i], h.parts[h.items[j].part].SA[h.items[j].i])
}
func (h *mergeHeap) Swap(i, j int) { h.items[i], h.items[j] = h.items[j], h.items[i] }
func (h *mergeHeap) Push(x interface{}) {
	h.items = append(h.items, x.(mergeItem))
}
func (h *mergeHeap) Pop() interface{} {
	old := h.items
	n := len(old)
	x := old[n-1]
	h.items = old[0 : n-1]
	return x
}

// refinePartialSuffixArrays sorts suffixes of each chunk sharing the same
// rank by the rank h positions later, concurrently.
// Parts must be sorted by rank, which is only read here.
func refinePartialSuffixArrays(ctx context.Context, parts []*PartialSuffixArray, rank []int, h int, threads int) error {
	var wg sync.WaitGroup
	tokens := make(chan int, threads)
	for _, p := range parts {
		if ctx.Err() != nil {
			break
		}

		wg.Add(1)
		tokens <- 1
		go func(p *PartialSuffixArray) {
			defer func() {
				wg.Done()
				<-tokens
			}()

			sa := p.SA
			var i, j int
			for i < len(sa) {
				j = i + 1
				for j < len(sa) && rank[sa[j]] == rank[sa[i]] {
					j++
				}
				if j-i > 1 {
					sorts.Quicksort(&rankSorter{sa: sa[i:j], rank: rank, h: h})
				}
				i = j
			}
		}(p)
	}
	wg.Wait()

	return ctx.Err()
}

// BuildSuffixArrayParallel builds the suffix array in chunks and merges them.
// The result is identical to that of BuildSuffixArray.
//
// Chunks are sorted by prefixes inside their windows and merged, then
// suffixes sharing a prefix are ordered by prefix doubling, i.e., each
// chunk is re-sorted concurrently by the ranks of the next h bytes and
// merged again, with h doubled in each round until all ranks are distinct.
// So long runs or repeats never lead to long byte-by-byte comparisons.
//
// The result is checked before returning, any inconsistency is a ConstructionError.
func BuildSuffixArrayParallel(ctx context.Context, text []byte, opt *ChunkOptions) ([]int, error) {
	parts, err := BuildPartialSuffixArrays(ctx, text, opt)
	if err != nil {
		return nil, err
	}

	sa, err := MergePartialSuffixArrays(text, parts)
	if err != nil {
		return nil, err
	}

	n := len(text)
	if n > 1 {
		depth := parts[0].Depth

		rank := make([]int, n)
		for i := 1; i < n; i++ {
			rank[sa[i]] = rank[sa[i-1]]
			if !bytes.Equal(prefix(text, sa[i-1], depth), prefix(text, sa[i], depth)) {
				rank[sa[i]]++
			}
		}

		var tmp []int
		for h := depth; rank[sa[n-1]] < n-1; h <<= 1 {
			if err = refinePartialSuffixArrays(ctx, parts, rank, h, opt.Threads); err != nil {
				return nil, err
			}

			s := &rankSorter{rank: rank, h: h}
			mergeParts(sa, parts, s.less)

			if tmp == nil {
				tmp = make([]int, n)
			}
			tmp[sa[0]] = 0
			for i := 1; i < n; i++ {
				tmp[sa[i]] = tmp[sa[i-1]]
				if s.less(sa[i-1], sa[i]) {
					tmp[sa[i]]++
				}
			}
			copy(rank, tmp)
		}
	}

	if err = CheckSuffixArray(text, sa, opt.Verify); err != nil {
		return nil, err
	}
	return sa, nil
}
