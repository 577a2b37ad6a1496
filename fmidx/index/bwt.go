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

import "fmt"

// BWT computes the Burrows-Wheeler Transform from a text and its suffix
// array: bwt[i] = text[(sa[i]+n-1) mod n].
// It also returns the row of the sentinel (i.e., sa[row] == 0),
// or -1 for an empty text.
func BWT(text []byte, sa []int) ([]byte, int) {
	n := len(text)
	bwt := make([]byte, n)
	primary := -1
	for i, p := range sa {
		if p == 0 {
			bwt[i] = text[n-1]
			primary = i
		} else {
			bwt[i] = text[p-1]
		}
	}
	return bwt, primary
}

// NewLess computes the Less table: less[c] is the number of symbols
// smaller than the symbol with code c in the text.
// Indexes are codes: 0 for the sentinel, 1..σ for symbols.
// Symbols out of the alphabet are ignored.
func NewLess(text []byte, a *Alphabet) []int {
	counts := make([]int, a.Size()+1)
	var c int
	for _, b := range text {
		if c = a.Code(b); c >= 0 {
			counts[c]++
		}
	}

	less := make([]int, a.Size()+1)
	var sum int
	for c, k := range counts {
		less[c] = sum
		sum += k
	}
	return less
}

// InverseBWT reconstructs the text from the BWT by LF-mapping,
// starting from row 0, i.e., the suffix of the sentinel alone.
// The text must end with the only sentinel.
func InverseBWT(bwt []byte, a *Alphabet) ([]byte, error) {
	n := len(bwt)
	if n == 0 {
		return []byte{}, nil
	}

	less := NewLess(bwt, a)

	// occ[i] is rank of bwt[i] among the same symbols in bwt[0, i).
	occ := make([]int, n)
	counts := make([]int, a.Size()+1)
	var c int
	var sentinels int
	for i, b := range bwt {
		c = a.Code(b)
		if c < 0 {
			return nil, fmt.Errorf("fm-index: invalid symbol %q in BWT at %d", b, i)
		}
		if c == 0 {
			sentinels++
		}
		occ[i] = counts[c]
		counts[c]++
	}
	if sentinels != 1 {
		return nil, fmt.Errorf("fm-index: %d sentinels found in BWT, expected 1", sentinels)
	}

	text := make([]byte, n)
	text[n-1] = Sentinel
	var r int // row 0 is the sentinel suffix
	var b byte
	for i := n - 2; i >= 0; i-- {
		b = bwt[r]
		text[i] = b
		r = less[a.Code(b)] + occ[r]
	}
	return text, nil
}
