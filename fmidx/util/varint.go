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

package util

import (
	"bufio"
	"errors"
	"io"
)

// ErrBrokenVarints means the encoded data is truncated.
var ErrBrokenVarints = errors.New("varints: broken data")

// PutUint64s encodes two uint64s into 2-16 bytes of buf, and returns
// the control byte and the encoded byte length.
// The lower 3 bits of the control byte is the byte length of v2 minus 1,
// and the next 3 bits for v1.
func PutUint64s(buf []byte, v1, v2 uint64) (ctrl byte, n int) {
	l1, l2 := ByteLengthUint64(v1), ByteLengthUint64(v2)
	ctrl = (l1-1)<<3 | (l2 - 1)

	var s uint8
	for s = l1; s > 0; s-- {
		buf[n] = byte(v1 >> ((s - 1) << 3))
		n++
	}
	for s = l2; s > 0; s-- {
		buf[n] = byte(v2 >> ((s - 1) << 3))
		n++
	}
	return
}

// Uint64s decodes two uint64s with the control byte.
// n is 0 if buf is too short.
func Uint64s(ctrl byte, buf []byte) (v1, v2 uint64, n int) {
	l1 := int(ctrl>>3&7) + 1
	l2 := int(ctrl&7) + 1
	if len(buf) < l1+l2 {
		return 0, 0, 0
	}
	for _, b := range buf[:l1] {
		v1 = v1<<8 | uint64(b)
	}
	for _, b := range buf[l1 : l1+l2] {
		v2 = v2<<8 | uint64(b)
	}
	return v1, v2, l1 + l2
}

// ByteLengthUint64 returns the minimum number of bytes to store an integer.
func ByteLengthUint64(v uint64) uint8 {
	var n uint8 = 1
	for v >>= 8; v > 0; v >>= 8 {
		n++
	}
	return n
}

// CtrlByte2ByteLengthsUint64 returns the byte length for a given control byte.
func CtrlByte2ByteLengthsUint64(ctrl byte) int {
	return int(ctrl>>3&7+ctrl&7) + 2
}

// WriteInts writes non-negative integers in pairs, each pair with a
// control byte. An odd tail is paired with 0. It returns the number of
// bytes written.
func WriteInts(w io.Writer, vals []int) (int, error) {
	buf := make([]byte, 17)
	var ctrl byte
	var n, N int
	var v2 uint64
	var err error
	for i := 0; i < len(vals); i += 2 {
		v2 = 0
		if i+1 < len(vals) {
			v2 = uint64(vals[i+1])
		}
		ctrl, n = PutUint64s(buf[1:], uint64(vals[i]), v2)
		buf[0] = ctrl
		_, err = w.Write(buf[:n+1])
		if err != nil {
			return N, err
		}
		N += n + 1
	}
	return N, nil
}

// ReadInts reads n integers written by WriteInts.
func ReadInts(r *bufio.Reader, n int) ([]int, error) {
	vals := make([]int, n)
	buf := make([]byte, 16)
	var ctrl byte
	var l int
	var v1, v2 uint64
	var err error
	for i := 0; i < n; i += 2 {
		ctrl, err = r.ReadByte()
		if err != nil {
			return nil, ErrBrokenVarints
		}
		l = CtrlByte2ByteLengthsUint64(ctrl)
		_, err = io.ReadFull(r, buf[:l])
		if err != nil {
			return nil, ErrBrokenVarints
		}

		v1, v2, _ = Uint64s(ctrl, buf[:l])
		vals[i] = int(v1)
		if i+1 < n {
			vals[i+1] = int(v2)
		}
	}
	return vals, nil
}
