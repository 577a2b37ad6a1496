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
	"fmt"
)

// ErrEmptyAlphabet means no symbol is given for an alphabet.
var ErrEmptyAlphabet = errors.New("fm-index: empty alphabet")

// ErrNoSuffixArray means the suffix array is not loaded or was not saved,
// positions can not be resolved.
var ErrNoSuffixArray = errors.New("fm-index: suffix array not available")

// ErrInvalidRegion means the region to extract is out of range.
var ErrInvalidRegion = errors.New("fm-index: invalid region")

// ConfigurationError is returned for invalid options, e.g.,
// a sampling rate < 1 or an empty alphabet.
type ConfigurationError struct {
	Field  string
	Reason string
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("fm-index: invalid configuration of %s: %s", e.Field, e.Reason)
}

// InputErrorKind is the category of an InputError.
type InputErrorKind uint8

const (
	// InvalidSymbol means a symbol out of the alphabet is found in strict mode.
	InvalidSymbol InputErrorKind = iota + 1
	// EmptySequence means no valid symbol is left after preprocessing.
	EmptySequence
)

func (k InputErrorKind) String() string {
	switch k {
	case InvalidSymbol:
		return "invalid symbol"
	case EmptySequence:
		return "empty sequence"
	}
	return "unknown"
}

// InputError is returned when the input sequence can not be indexed.
type InputError struct {
	Kind   InputErrorKind
	Symbol byte // for InvalidSymbol
	Offset int  // 0-based offset in the raw input, for InvalidSymbol
	Record int  // index of the record, for multiple records
}

func (e *InputError) Error() string {
	if e.Kind == InvalidSymbol {
		return fmt.Sprintf("fm-index: invalid symbol %q at offset %d of record #%d", e.Symbol, e.Offset, e.Record+1)
	}
	return fmt.Sprintf("fm-index: %s", e.Kind)
}

// ConstructionError signals an internal invariant violation during index
// building. It is a bug in the builder, and the index is never published.
type ConstructionError struct {
	Stage  string
	Reason string
}

func (e *ConstructionError) Error() string {
	return fmt.Sprintf("fm-index: construction failed at %s: %s", e.Stage, e.Reason)
}

// IsInputError tells whether err is an InputError of the given kind.
// Kind 0 matches any kind.
func IsInputError(err error, kind InputErrorKind) bool {
	var e *InputError
	if !errors.As(err, &e) {
		return false
	}
	return kind == 0 || e.Kind == kind
}
