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

func TestBWTExample(t *testing.T) {
	text := []byte("ATGCGT$")
	sa := BuildSuffixArray(text)

	bwt, primary := BWT(text, sa)
	if string(bwt) != "T$GTCGA" {
		t.Errorf("unexpected BWT: %s, answer: %s", bwt, "T$GTCGA")
	}
	if primary != 1 {
		t.Errorf("unexpected primary row: %d, answer: %d", primary, 1)
	}

	// $:1, A:1, C:1, G:2, T:2
	less := NewLess(text, testAlphabet)
	answer := []int{0, 1, 2, 3, 5}
	for i := range answer {
		if less[i] != answer[i] {
			t.Errorf("unexpected Less table: %v, answer: %v", less, answer)
			break
		}
	}
}

func TestInverseBWT(t *testing.T) {
	r := rand.New(rand.NewSource(1))

	texts := [][]byte{{}, []byte("$"), []byte("A$"), []byte("ATGCGT$")}
	texts = append(texts, repetitiveTexts()...)
	for _, n := range []int{10, 100, 2000} {
		texts = append(texts, randomText(r, n, []byte("ACGT")))
	}

	for _, text := range texts {
		bwt, _ := BWT(text, BuildSuffixArray(text))
		text2, err := InverseBWT(bwt, testAlphabet)
		if err != nil {
			t.Errorf("text of %d bytes: %s", len(text), err)
			return
		}
		if !bytes.Equal(text, text2) {
			t.Errorf("text of %d bytes: round trip failed", len(text))
			return
		}
	}

	for _, bwt := range [][]byte{[]byte("ACGT"), []byte("A$$"), []byte("AX$")} {
		if _, err := InverseBWT(bwt, testAlphabet); err == nil {
			t.Errorf("%s: an error expected", bwt)
		}
	}
}

func TestOccRank(t *testing.T) {
	r := rand.New(rand.NewSource(2))
	text := randomText(r, 500, []byte("ACGT"))
	bwt, primary := BWT(text, BuildSuffixArray(text))
	sigma := testAlphabet.Size()

	for _, rate := range []int{1, 3, 32, 64, 1000} {
		occ, err := NewOcc(bwt, testAlphabet, rate)
		if err != nil {
			t.Error(err)
			return
		}
		if occ.SamplingRate() != rate {
			t.Errorf("unexpected sampling rate: %d", occ.SamplingRate())
		}
		if occ.primary != primary {
			t.Errorf("unexpected primary row: %d, answer: %d", occ.primary, primary)
		}

		counts := make([]int, sigma+1)
		for i := 0; i <= len(bwt); i++ {
			for c := 0; c <= sigma; c++ {
				if rank := occ.Rank(c, i); rank != counts[c] {
					t.Errorf("rate %d: Rank(%c, %d) = %d, answer: %d",
						rate, testAlphabet.Symbol(c), i, rank, counts[c])
					return
				}
			}
			if i < len(bwt) {
				counts[testAlphabet.Code(bwt[i])]++
			}
		}

		// Rank(c, n) equals the total count of c
		less := NewLess(text, testAlphabet)
		for c := 0; c < sigma; c++ {
			if less[c]+occ.Rank(c, len(bwt)) != less[c+1] {
				t.Errorf("rate %d: total count of %c mismatches the Less table", rate, testAlphabet.Symbol(c))
			}
		}
	}
}

func TestOccErrors(t *testing.T) {
	if _, err := NewOcc([]byte("A$"), testAlphabet, 0); err == nil {
		t.Errorf("an error expected for sampling rate 0")
	} else if _, ok := err.(*ConfigurationError); !ok {
		t.Errorf("a ConfigurationError expected, got: %T", err)
	}

	for _, bwt := range [][]byte{[]byte("A$$"), []byte("AN$")} {
		_, err := NewOcc(bwt, testAlphabet, 2)
		if _, ok := err.(*ConstructionError); !ok {
			t.Errorf("%s: a ConstructionError expected, got: %v", bwt, err)
		}
	}
}
