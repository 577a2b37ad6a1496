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
	"fmt"

	"github.com/twotwotwo/sorts"
)

// NaiveThreshold is the text length below which BuildSuffixArray
// sorts suffixes by direct comparison.
var NaiveThreshold = 1 << 10

// BuildSuffixArray sorts all suffixes of a text.
// For long texts, prefix doubling is used, i.e., suffixes are sorted by
// the ranks of their first h bytes and then the next h bytes, with h
// doubled in each round until all ranks are distinct.
//
// The text is only read, never modified.
func BuildSuffixArray(text []byte) []int {
	n := len(text)
	if n < NaiveThreshold || n < 2 {
		return NaiveSuffixArray(text)
	}

	sa := make([]int, n)
	rank := make([]int, n)
	tmp := make([]int, n)
	for i := range sa {
		sa[i] = i
		rank[i] = int(text[i])
	}

	s := &rankSorter{sa: sa, rank: rank}
	for h := 1; ; h <<= 1 {
		s.h = h
		sorts.Quicksort(s)

		tmp[sa[0]] = 0
		for i := 1; i < n; i++ {
			tmp[sa[i]] = tmp[sa[i-1]]
			if s.less(sa[i-1], sa[i]) {
				tmp[sa[i]]++
			}
		}
		copy(rank, tmp)

		if rank[sa[n-1]] == n-1 { // all distinct
			break
		}
	}

	return sa
}

type rankSorter struct {
	sa   []int
	rank []int
	h    int
}

func (s *rankSorter) second(i int) int {
	if i+s.h < len(s.rank) {
		return s.rank[i+s.h]
	}
	return -1
}

func (s *rankSorter) less(a, b int) bool {
	if s.rank[a] != s.rank[b] {
		return s.rank[a] < s.rank[b]
	}
	return s.second(a) < s.second(b)
}

func (s *rankSorter) Len() int           { return len(s.sa) }
func (s *rankSorter) Less(i, j int) bool { return s.less(s.sa[i], s.sa[j]) }
func (s *rankSorter) Swap(i, j int)      { s.sa[i], s.sa[j] = s.sa[j], s.sa[i] }

// NaiveSuffixArray sorts suffixes by comparing them directly.
// The comparator works on pairs of positions in the text.
func NaiveSuffixArray(text []byte) []int {
	sa := make([]int, len(text))
	for i := range sa {
		sa[i] = i
	}
	sorts.Quicksort(&suffixSorter{text: text, sa: sa})
	return sa
}

type suffixSorter struct {
	text []byte
	sa   []int
}

func (s *suffixSorter) Len() int { return len(s.sa) }
func (s *suffixSorter) Less(i, j int) bool {
	return bytes.Compare(s.text[s.sa[i]:], s.text[s.sa[j]:]) < 0
}
func (s *suffixSorter) Swap(i, j int) { s.sa[i], s.sa[j] = s.sa[j], s.sa[i] }

// orderCheckDepth is the number of leading bytes of adjacent suffixes
// compared by CheckSuffixArray when the full order check is off.
const orderCheckDepth = 16

// CheckSuffixArray checks if sa is a permutation of [0, n), and if adjacent
// suffixes are in order. Only the first 16 bytes of them are compared,
// unless checkOrder is true, then whole suffixes must be strictly increasing.
func CheckSuffixArray(text []byte, sa []int, checkOrder bool) error {
	n := len(text)
	if len(sa) != n {
		return &ConstructionError{Stage: "suffix array",
			Reason: fmt.Sprintf("length mismatch: %d != %d", len(sa), n)}
	}

	seen := make([]bool, n)
	for i, p := range sa {
		if p < 0 || p >= n {
			return &ConstructionError{Stage: "suffix array",
				Reason: fmt.Sprintf("position out of range: SA[%d] = %d", i, p)}
		}
		if seen[p] {
			return &ConstructionError{Stage: "suffix array",
				Reason: fmt.Sprintf("duplicated position: SA[%d] = %d", i, p)}
		}
		seen[p] = true
	}

	if !checkOrder {
		for i := 1; i < n; i++ {
			if bytes.Compare(prefix(text, sa[i-1], orderCheckDepth), prefix(text, sa[i], orderCheckDepth)) > 0 {
				return &ConstructionError{Stage: "suffix array",
					Reason: fmt.Sprintf("suffixes out of order: SA[%d] = %d, SA[%d] = %d", i-1, sa[i-1], i, sa[i])}
			}
		}
		return nil
	}
	for i := 1; i < n; i++ {
		if bytes.Compare(text[sa[i-1]:], text[sa[i]:]) >= 0 {
			return &ConstructionError{Stage: "suffix array",
				Reason: fmt.Sprintf("suffixes out of order: SA[%d] = %d, SA[%d] = %d", i-1, sa[i-1], i, sa[i])}
		}
	}
	return nil
}
