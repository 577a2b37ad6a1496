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

// Occ is a sampled rank table over a BWT.
// Counts of all symbols in bwt[0, k*rate) are stored for every k,
// and a rank query scans at most rate-1 bytes after the checkpoint.
// The sentinel appears once, its rank is answered with the primary row.
type Occ struct {
	bwt      []byte
	alphabet *Alphabet
	rate     int
	primary  int // row of the sentinel in the BWT

	// (len(bwt)/rate + 1) checkpoints, each with σ counts.
	checkpoints []uint64
}

// NewOcc builds the rank table of a BWT, with a checkpoint
// every samplingRate rows.
func NewOcc(bwt []byte, a *Alphabet, samplingRate int) (*Occ, error) {
	if samplingRate < 1 {
		return nil, &ConfigurationError{Field: "sampling rate",
			Reason: fmt.Sprintf("should be >= 1, given: %d", samplingRate)}
	}

	sigma := a.Size()
	n := len(bwt)
	o := &Occ{
		bwt:         bwt,
		alphabet:    a,
		rate:        samplingRate,
		primary:     -1,
		checkpoints: make([]uint64, (n/samplingRate+1)*sigma),
	}

	counts := make([]uint64, sigma)
	var c int
	for i, b := range bwt {
		if i%samplingRate == 0 {
			copy(o.checkpoints[(i/samplingRate)*sigma:], counts)
		}

		c = a.Code(b)
		switch {
		case c > 0:
			counts[c-1]++
		case c == 0:
			if o.primary >= 0 {
				return nil, &ConstructionError{Stage: "occ", Reason: fmt.Sprintf("more than one sentinel in BWT: %d, %d", o.primary, i)}
			}
			o.primary = i
		default:
			return nil, &ConstructionError{Stage: "occ", Reason: fmt.Sprintf("invalid symbol %q in BWT at %d", b, i)}
		}
	}
	if n%samplingRate == 0 {
		copy(o.checkpoints[(n/samplingRate)*sigma:], counts)
	}

	return o, nil
}

// newOccFromCheckpoints creates an Occ from saved data.
func newOccFromCheckpoints(bwt []byte, a *Alphabet, samplingRate int, primary int, checkpoints []uint64) (*Occ, error) {
	if samplingRate < 1 {
		return nil, &ConfigurationError{Field: "sampling rate",
			Reason: fmt.Sprintf("should be >= 1, given: %d", samplingRate)}
	}
	if len(checkpoints) != (len(bwt)/samplingRate+1)*a.Size() {
		return nil, ErrBrokenFile
	}
	return &Occ{
		bwt:         bwt,
		alphabet:    a,
		rate:        samplingRate,
		primary:     primary,
		checkpoints: checkpoints,
	}, nil
}

// SamplingRate returns the interval of checkpoints.
func (o *Occ) SamplingRate() int { return o.rate }

// Rank returns the number of the symbol with code c in bwt[0, i).
func (o *Occ) Rank(c int, i int) int {
	if c == 0 {
		if o.primary >= 0 && o.primary < i {
			return 1
		}
		return 0
	}

	k := i / o.rate
	count := int(o.checkpoints[k*o.alphabet.Size()+c-1])
	b := o.alphabet.Symbol(c)
	for _, x := range o.bwt[k*o.rate : i] {
		if x == b {
			count++
		}
	}
	return count
}
