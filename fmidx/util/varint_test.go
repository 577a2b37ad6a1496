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
	"bytes"
	"math/rand"
	"testing"
)

var testsUint64 [][2]uint64

func init() {
	ntests := 10000
	testsUint64 = make([][2]uint64, ntests)
	var i int
	for ; i < ntests/4; i++ {
		testsUint64[i] = [2]uint64{rand.Uint64(), rand.Uint64()}
	}
	for ; i < ntests/2; i++ {
		testsUint64[i] = [2]uint64{uint64(rand.Uint32()), uint64(rand.Uint32())}
	}
	for ; i < ntests*3/4; i++ {
		testsUint64[i] = [2]uint64{uint64(rand.Intn(65536)), uint64(rand.Intn(256))}
	}
	for ; i < ntests; i++ {
		testsUint64[i] = [2]uint64{uint64(rand.Intn(256)), uint64(rand.Intn(256))}
	}
}

func TestStreamVByte64(t *testing.T) {
	buf := make([]byte, 16)
	var ctrl byte
	var n, n2 int
	var v1, v2 uint64
	for i, test := range testsUint64 {
		ctrl, n = PutUint64s(buf, test[0], test[1])
		if CtrlByte2ByteLengthsUint64(ctrl) != n {
			t.Errorf("#%d, wrong byte length", i)
		}

		v1, v2, n2 = Uint64s(ctrl, buf[0:n])
		if n2 != n {
			t.Errorf("#%d, wrong decoded length: %d, answer: %d", i, n2, n)
		}

		if v1 != test[0] || v2 != test[1] {
			t.Errorf("#%d, wrong decoded result: %d, %d, answer: %d, %d", i, v1, v2, test[0], test[1])
		}
	}
}

func TestByteLength(t *testing.T) {
	tests := []struct {
		v uint64
		n uint8
	}{
		{0, 1}, {255, 1}, {256, 2}, {65535, 2}, {65536, 3},
		{1<<32 - 1, 4}, {1 << 32, 5}, {1<<64 - 1, 8},
	}
	for _, test := range tests {
		if n := ByteLengthUint64(test.v); n != test.n {
			t.Errorf("byte length of %d: %d, answer: %d", test.v, n, test.n)
		}
	}
}

func TestWriteReadInts(t *testing.T) {
	for _, size := range []int{0, 1, 2, 7, 1000} {
		vals := make([]int, size)
		for i := range vals {
			vals[i] = rand.Intn(1 << 40)
		}

		var b bytes.Buffer
		_, err := WriteInts(&b, vals)
		if err != nil {
			t.Error(err)
			return
		}

		vals2, err := ReadInts(bufio.NewReader(&b), size)
		if err != nil {
			t.Error(err)
			return
		}
		for i := range vals {
			if vals[i] != vals2[i] {
				t.Errorf("size %d, #%d: %d, answer: %d", size, i, vals2[i], vals[i])
				break
			}
		}
	}

	// truncated data
	var b bytes.Buffer
	WriteInts(&b, []int{1 << 20, 1 << 30, 5})
	data := b.Bytes()
	_, err := ReadInts(bufio.NewReader(bytes.NewReader(data[:len(data)-1])), 3)
	if err != ErrBrokenVarints {
		t.Errorf("truncated data should be detected, got: %v", err)
	}
}

var _v1, _v2 uint64

func BenchmarkUint64s(b *testing.B) {
	buf := make([]byte, 16)
	var ctrl byte
	var n int
	var v1, v2 uint64
	for i := 0; i < b.N; i++ {
		for _, test := range testsUint64 {
			ctrl, n = PutUint64s(buf, test[0], test[1])
			v1, v2, _ = Uint64s(ctrl, buf[0:n])
		}
	}
	_v1, _v2 = v1, v2
}
