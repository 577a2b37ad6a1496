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
	"math/rand"
	"testing"
)

var testAlphabet, _ = NewAlphabet([]byte("ACGT"))

// randomText returns a text of n-1 random symbols and the sentinel.
func randomText(r *rand.Rand, n int, symbols []byte) []byte {
	text := make([]byte, n)
	for i := 0; i < n-1; i++ {
		text[i] = symbols[r.Intn(len(symbols))]
	}
	text[n-1] = Sentinel
	return text
}

// repetitive texts are the worst cases of suffix sorting.
func repetitiveTexts() [][]byte {
	return [][]byte{
		append(bytes.Repeat([]byte("A"), 2000), Sentinel),
		append(bytes.Repeat([]byte("AC"), 1000), Sentinel),
		append(bytes.Repeat([]byte("ACGTTGCA"), 300), Sentinel),
		append(append(bytes.Repeat([]byte("T"), 700), bytes.Repeat([]byte("GA"), 600)...), Sentinel),
	}
}

func TestSuffixArrayExample(t *testing.T) {
	text := []byte("ATGCGT$")
	answer := []int{6, 0, 3, 2, 4, 5, 1}

	for _, threshold := range []int{1 << 10, 0} {
		NaiveThreshold, threshold = threshold, NaiveThreshold
		sa := BuildSuffixArray(text)
		NaiveThreshold = threshold

		if len(sa) != len(answer) {
			t.Errorf("unexpected length: %d, answer: %d", len(sa), len(answer))
			return
		}
		for i := range sa {
			if sa[i] != answer[i] {
				t.Errorf("unexpected SA: %v, answer: %v", sa, answer)
				return
			}
		}
	}
}

func TestSuffixArraySmall(t *testing.T) {
	for _, text := range [][]byte{{}, []byte("$"), []byte("A$"), []byte("AA$")} {
		sa := BuildSuffixArray(text)
		if err := CheckSuffixArray(text, sa, true); err != nil {
			t.Errorf("%q: %s", text, err)
		}
	}
}

func TestSuffixArrayDoubling(t *testing.T) {
	r := rand.New(rand.NewSource(11))

	texts := repetitiveTexts()
	for _, n := range []int{2, 3, 10, 100, 1000, 5000} {
		texts = append(texts, randomText(r, n, []byte("ACGT")))
		texts = append(texts, randomText(r, n, []byte("AC")))
	}

	for _, text := range texts {
		sa := BuildSuffixArray(text)
		naive := NaiveSuffixArray(text)

		if err := CheckSuffixArray(text, sa, true); err != nil {
			t.Errorf("text of %d bytes: %s", len(text), err)
			return
		}
		for i := range sa {
			if sa[i] != naive[i] {
				t.Errorf("text of %d bytes: prefix doubling and naive sorting differ at %d", len(text), i)
				return
			}
		}
	}
}

func TestCheckSuffixArray(t *testing.T) {
	text := []byte("ATGCGT$")

	tests := []struct {
		sa         []int
		checkOrder bool
		ok         bool
	}{
		{[]int{6, 0, 3, 2, 4, 5, 1}, true, true},
		{[]int{6, 0, 3, 2, 4, 5}, false, false},     // short
		{[]int{6, 0, 3, 2, 4, 5, 5}, false, false},  // duplicated
		{[]int{6, 0, 3, 2, 4, 5, 7}, false, false},  // out of range
		{[]int{0, 6, 3, 2, 4, 5, 1}, false, false},  // first bytes out of order
		{[]int{6, 0, 2, 3, 4, 5, 1}, false, false},  // C before G
		{[]int{0, 6, 3, 2, 4, 5, 1}, true, false},   // not sorted
		{[]int{-1, 0, 3, 2, 4, 5, 1}, false, false}, // negative
	}

	// two suffixes sharing a long prefix are swapped,
	// only found by comparing whole suffixes
	run := append(bytes.Repeat([]byte("A"), 40), Sentinel)
	sa := BuildSuffixArray(run)
	sa[20], sa[21] = sa[21], sa[20]
	if err := CheckSuffixArray(run, sa, false); err != nil {
		t.Errorf("unexpected error: %s", err)
	}
	if err := CheckSuffixArray(run, sa, true); err == nil {
		t.Errorf("an error expected for unsorted suffixes")
	}

	for i, test := range tests {
		err := CheckSuffixArray(text, test.sa, test.checkOrder)
		if (err == nil) != test.ok {
			t.Errorf("#%d: unexpected result: %v", i, err)
			continue
		}
		if err != nil {
			if _, ok := err.(*ConstructionError); !ok {
				t.Errorf("#%d: a ConstructionError expected, got: %T", i, err)
			}
		}
	}
}

func BenchmarkBuildSuffixArray(b *testing.B) {
	text := randomText(rand.New(rand.NewSource(1)), 1<<18, []byte("ACGT"))
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		BuildSuffixArray(text)
	}
}
