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
	"errors"
	"testing"
)

func TestAlphabet(t *testing.T) {
	a, err := NewAlphabet([]byte("tgcaAN"))
	if err != nil {
		t.Error(err)
		return
	}
	if string(a.Symbols()) != "ACGNT" {
		t.Errorf("unexpected symbols: %s", a.Symbols())
	}
	if a.Size() != 5 {
		t.Errorf("unexpected size: %d", a.Size())
	}
	if a.Code(Sentinel) != 0 || a.Code('A') != 1 || a.Code('T') != 5 || a.Code('a') != -1 || a.Code('X') != -1 {
		t.Errorf("unexpected codes")
	}
	for c := 0; c <= a.Size(); c++ {
		if a.Code(a.Symbol(c)) != c {
			t.Errorf("unexpected symbol of code %d: %c", c, a.Symbol(c))
		}
	}
	if a.Contains(Sentinel) || !a.Contains('G') {
		t.Errorf("unexpected result of Contains")
	}

	for _, symbols := range []string{"", "$", "AC#"} {
		_, err = NewAlphabet([]byte(symbols))
		var e *ConfigurationError
		if !errors.As(err, &e) {
			t.Errorf("%q: a ConfigurationError expected, got: %v", symbols, err)
		}
	}
}

func TestPreprocess(t *testing.T) {
	a, _ := NewAlphabet(DefaultAlphabet)

	tests := []struct {
		raw    string
		policy Policy
		text   string
	}{
		{"ACGT", Strict, "ACGT$"},
		{"acg t\nN\r\n", Strict, "ACGTN$"},
		{"ACRYGT", Drop, "ACGT$"},
		{"ACRYGT", Mask, "ACNNGT$"},
		{"a-c", Mask, "ANC$"},
	}

	for _, test := range tests {
		s, err := Preprocess([]byte(test.raw), &PreprocessOptions{Alphabet: a, Policy: test.policy, MaskSymbol: 'n'})
		if err != nil {
			t.Errorf("%q, %s: %s", test.raw, test.policy, err)
			continue
		}
		if string(s.Bytes()) != test.text {
			t.Errorf("%q, %s: %q, answer: %q", test.raw, test.policy, s.Bytes(), test.text)
		}
		if s.Len() != len(test.text) {
			t.Errorf("%q, %s: unexpected length: %d", test.raw, test.policy, s.Len())
		}
	}
}

func TestPreprocessErrors(t *testing.T) {
	a, _ := NewAlphabet(DefaultAlphabet)

	_, err := Preprocess([]byte("ACXGT"), &PreprocessOptions{Alphabet: a})
	var e *InputError
	if !errors.As(err, &e) {
		t.Errorf("an InputError expected, got: %v", err)
		return
	}
	if e.Kind != InvalidSymbol || e.Symbol != 'X' || e.Offset != 2 {
		t.Errorf("unexpected error: %+v", e)
	}

	// '$' is not allowed in the input
	_, err = Preprocess([]byte("AC$GT"), &PreprocessOptions{Alphabet: a})
	if !IsInputError(err, InvalidSymbol) {
		t.Errorf("an InputError of invalid symbol expected, got: %v", err)
	}

	for _, test := range []struct {
		raw    string
		policy Policy
	}{
		{"", Strict},
		{" \n\t", Strict},
		{"XYZ", Drop},
	} {
		_, err = Preprocess([]byte(test.raw), &PreprocessOptions{Alphabet: a, Policy: test.policy})
		if !IsInputError(err, EmptySequence) {
			t.Errorf("%q: an InputError of empty sequence expected, got: %v", test.raw, err)
		}
	}

	for _, opt := range []*PreprocessOptions{
		nil,
		{},
		{Alphabet: a, Policy: Mask, MaskSymbol: 'X'},
		{Alphabet: a, Policy: Policy(9)},
	} {
		_, err = Preprocess([]byte("ACGT"), opt)
		var e *ConfigurationError
		if !errors.As(err, &e) {
			t.Errorf("%+v: a ConfigurationError expected, got: %v", opt, err)
		}
	}
}

func TestParsePolicy(t *testing.T) {
	for _, p := range []Policy{Strict, Drop, Mask} {
		p2, err := ParsePolicy(p.String())
		if err != nil || p2 != p {
			t.Errorf("failed to parse policy: %s", p)
		}
	}
	if _, err := ParsePolicy("lenient"); err == nil {
		t.Errorf("an error expected")
	}
}

func TestRecords(t *testing.T) {
	a, _ := NewAlphabet(DefaultAlphabet)

	s, err := PreprocessRecords([]RefRecord{
		{ID: "r1", Seq: []byte("ACGT")},
		{ID: "r2", Seq: []byte("")},
		{ID: "r3", Seq: []byte("GG")},
	}, &PreprocessOptions{Alphabet: a})
	if err != nil {
		t.Error(err)
		return
	}
	if string(s.Bytes()) != "ACGTGG$" {
		t.Errorf("unexpected text: %s", s.Bytes())
	}

	recs := s.Records()
	if recs.Len() != 3 {
		t.Errorf("unexpected number of records: %d", recs.Len())
		return
	}

	tests := []struct {
		pos, length int
		idx, offset int
		ok          bool
	}{
		{0, 4, 0, 0, true},
		{3, 1, 0, 3, true},
		{3, 2, 0, 3, false}, // crossing records
		{4, 2, 2, 0, true},
		{5, 1, 2, 1, true},
		{6, 1, -1, -1, false}, // the sentinel
	}
	for _, test := range tests {
		idx, offset, ok := recs.Locate(test.pos, test.length)
		if idx != test.idx || offset != test.offset || ok != test.ok {
			t.Errorf("Locate(%d, %d): %d, %d, %v; answer: %d, %d, %v",
				test.pos, test.length, idx, offset, ok, test.idx, test.offset, test.ok)
		}
	}

	if _, err = NewRecords([]string{"a"}, nil); err == nil {
		t.Errorf("an error expected for unequal IDs and spans")
	}
}
