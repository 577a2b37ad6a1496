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
	"fmt"
	"sort"

	"github.com/rdleal/intervalst/interval"
)

// Sentinel is appended to the end of the text. It's smaller than
// all symbols of an alphabet.
const Sentinel byte = '$'

// DefaultAlphabet is the alphabet for DNA sequences.
var DefaultAlphabet = []byte("ACGTN")

// Alphabet is a sorted set of symbols. Symbols are coded as 1..σ in
// ascending order, and code 0 is reserved for the sentinel.
type Alphabet struct {
	symbols []byte
	codes   [256]int16 // -1 for invalid symbols
}

// NewAlphabet creates an alphabet from a list of symbols.
// Symbols are upper-cased and deduplicated.
func NewAlphabet(symbols []byte) (*Alphabet, error) {
	if len(symbols) == 0 {
		return nil, &ConfigurationError{Field: "alphabet", Reason: ErrEmptyAlphabet.Error()}
	}

	var seen [256]bool
	s := make([]byte, 0, len(symbols))
	for _, b := range symbols {
		b = upper(b)
		if b <= Sentinel {
			return nil, &ConfigurationError{Field: "alphabet",
				Reason: fmt.Sprintf("symbol %q should be larger than the sentinel %q", b, Sentinel)}
		}
		if seen[b] {
			continue
		}
		seen[b] = true
		s = append(s, b)
	}
	sort.Slice(s, func(i, j int) bool { return s[i] < s[j] })

	a := &Alphabet{symbols: s}
	for i := range a.codes {
		a.codes[i] = -1
	}
	a.codes[Sentinel] = 0
	for i, b := range s {
		a.codes[b] = int16(i + 1)
	}
	return a, nil
}

// Size returns the number of symbols, the sentinel excluded.
func (a *Alphabet) Size() int { return len(a.symbols) }

// Symbols returns a copy of the sorted symbols.
func (a *Alphabet) Symbols() []byte {
	s := make([]byte, len(a.symbols))
	copy(s, a.symbols)
	return s
}

// Code returns the code of a byte: 0 for the sentinel,
// 1..σ for symbols and -1 for others. No case conversion here.
func (a *Alphabet) Code(b byte) int { return int(a.codes[b]) }

// Symbol returns the symbol of a code.
func (a *Alphabet) Symbol(code int) byte {
	if code == 0 {
		return Sentinel
	}
	return a.symbols[code-1]
}

// Contains tells if a byte is a symbol of the alphabet, the sentinel excluded.
func (a *Alphabet) Contains(b byte) bool { return a.codes[b] > 0 }

func upper(b byte) byte {
	if b >= 'a' && b <= 'z' {
		return b - 32
	}
	return b
}

func isSpace(b byte) bool {
	return b == '\n' || b == '\r' || b == ' ' || b == '\t'
}

// Policy defines how to handle symbols out of the alphabet.
type Policy uint8

const (
	// Strict fails on the first symbol out of the alphabet.
	Strict Policy = iota
	// Drop removes symbols out of the alphabet.
	Drop
	// Mask replaces symbols out of the alphabet with a mask symbol.
	Mask
)

func (p Policy) String() string {
	switch p {
	case Strict:
		return "strict"
	case Drop:
		return "drop"
	case Mask:
		return "mask"
	}
	return "unknown"
}

// ParsePolicy parses a policy name.
func ParsePolicy(s string) (Policy, error) {
	switch s {
	case "strict":
		return Strict, nil
	case "drop":
		return Drop, nil
	case "mask":
		return Mask, nil
	}
	return 0, &ConfigurationError{Field: "policy", Reason: fmt.Sprintf("unknown policy: %s, available: strict, drop, mask", s)}
}

// PreprocessOptions contains options for preprocessing raw sequences.
type PreprocessOptions struct {
	Alphabet   *Alphabet
	Policy     Policy
	MaskSymbol byte // only for the Mask policy
}

// CheckPreprocessOptions checks the options.
func CheckPreprocessOptions(opt *PreprocessOptions) error {
	if opt == nil || opt.Alphabet == nil || opt.Alphabet.Size() == 0 {
		return &ConfigurationError{Field: "alphabet", Reason: ErrEmptyAlphabet.Error()}
	}
	switch opt.Policy {
	case Strict, Drop:
	case Mask:
		if !opt.Alphabet.Contains(upper(opt.MaskSymbol)) {
			return &ConfigurationError{Field: "mask symbol",
				Reason: fmt.Sprintf("%q is not in the alphabet %s", opt.MaskSymbol, opt.Alphabet.symbols)}
		}
	default:
		return &ConfigurationError{Field: "policy", Reason: fmt.Sprintf("unknown policy: %d", opt.Policy)}
	}
	return nil
}

// Sequence is the preprocessed text ending with the sentinel.
// It's never modified after creation.
type Sequence struct {
	text     []byte
	alphabet *Alphabet
	records  *Records
}

// Bytes returns the text, including the sentinel. Do not modify it.
func (s *Sequence) Bytes() []byte { return s.text }

// Len returns the length of the text, including the sentinel.
func (s *Sequence) Len() int { return len(s.text) }

// Alphabet returns the alphabet.
func (s *Sequence) Alphabet() *Alphabet { return s.alphabet }

// Records returns the records in the text.
func (s *Sequence) Records() *Records { return s.records }

// RefRecord is a reference sequence record to index.
type RefRecord struct {
	ID  string
	Seq []byte
}

// Preprocess canonicalizes a raw sequence into an indexable text.
func Preprocess(raw []byte, opt *PreprocessOptions) (*Sequence, error) {
	return PreprocessRecords([]RefRecord{{ID: "seq", Seq: raw}}, opt)
}

// PreprocessRecords canonicalizes and concatenates multiple records
// into one text, the spans of records are kept for locating matches.
func PreprocessRecords(recs []RefRecord, opt *PreprocessOptions) (*Sequence, error) {
	if err := CheckPreprocessOptions(opt); err != nil {
		return nil, err
	}

	var size int
	for _, r := range recs {
		size += len(r.Seq)
	}

	a := opt.Alphabet
	mask := upper(opt.MaskSymbol)
	text := make([]byte, 0, size+1)
	ids := make([]string, 0, len(recs))
	spans := make([][2]int, 0, len(recs))

	var start int
	var b byte
	for i, r := range recs {
		start = len(text)
		for j, c := range r.Seq {
			if isSpace(c) {
				continue
			}
			b = upper(c)
			if a.Contains(b) {
				text = append(text, b)
				continue
			}

			switch opt.Policy {
			case Strict:
				return nil, &InputError{Kind: InvalidSymbol, Symbol: c, Offset: j, Record: i}
			case Mask:
				text = append(text, mask)
			}
		}
		ids = append(ids, r.ID)
		spans = append(spans, [2]int{start, len(text)})
	}

	if len(text) == 0 {
		return nil, &InputError{Kind: EmptySequence}
	}

	text = append(text, Sentinel)

	records, err := NewRecords(ids, spans)
	if err != nil {
		return nil, err
	}

	return &Sequence{text: text, alphabet: a, records: records}, nil
}

// Records stores the IDs and spans of records in the concatenated text.
type Records struct {
	IDs   []string
	Spans [][2]int // [start, end)

	tree *interval.SearchTree[int, int]
}

// NewRecords creates a Records from IDs and spans.
func NewRecords(ids []string, spans [][2]int) (*Records, error) {
	if len(ids) != len(spans) {
		return nil, fmt.Errorf("fm-index: unequal numbers of record IDs (%d) and spans (%d)", len(ids), len(spans))
	}
	r := &Records{
		IDs:   ids,
		Spans: spans,
		tree:  interval.NewSearchTree[int, int](func(x, y int) int { return x - y }),
	}
	var err error
	for i, s := range spans {
		if s[0] >= s[1] { // empty record
			continue
		}
		err = r.tree.Insert(s[0], s[1], i)
		if err != nil {
			return nil, err
		}
	}
	return r, nil
}

// Len returns the number of records.
func (r *Records) Len() int { return len(r.IDs) }

// Locate maps a match of the given length at a global position
// to the record containing it and the 0-based offset in the record.
// ok is false if no record contains the position or the match crosses
// the end of the record.
func (r *Records) Locate(pos, length int) (idx int, offset int, ok bool) {
	vals, found := r.tree.AllIntersections(pos, pos+1)
	if !found {
		return -1, -1, false
	}
	for _, i := range vals {
		s := r.Spans[i]
		if s[0] <= pos && pos < s[1] {
			return i, pos - s[0], pos+length <= s[1]
		}
	}
	return -1, -1, false
}
