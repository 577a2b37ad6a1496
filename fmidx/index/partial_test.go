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
	"context"
	"errors"
	"math/rand"
	"sync/atomic"
	"testing"
	"time"
)

func TestPartition(t *testing.T) {
	tests := []struct {
		n, chunks, overlap int
		expected           int
	}{
		{0, 4, 10, 0},
		{1, 4, 10, 1},
		{10, 1, 0, 1},
		{10, 3, 2, 3},
		{10, 4, 100, 4},
		{7, 7, 1, 7},
		{7, 20, 1, 7},
		{1000, 8, 256, 8},
	}

	for _, test := range tests {
		cs := Partition(test.n, test.chunks, test.overlap)
		if len(cs) != test.expected {
			t.Errorf("n=%d, chunks=%d: %d chunks returned, expected: %d",
				test.n, test.chunks, len(cs), test.expected)
			continue
		}

		var start int
		for i, c := range cs {
			if c.Index != i || c.Start != start || c.End <= c.Start {
				t.Errorf("n=%d, chunks=%d: unexpected chunk #%d: %+v", test.n, test.chunks, i, c)
				break
			}
			if c.ContextEnd != min(c.End+test.overlap, test.n) {
				t.Errorf("n=%d, chunks=%d: unexpected context end of chunk #%d: %+v", test.n, test.chunks, i, c)
				break
			}
			start = c.End
		}
		if len(cs) > 0 && start != test.n {
			t.Errorf("n=%d, chunks=%d: chunks cover [0, %d)", test.n, test.chunks, start)
		}
	}
}

func TestChunkedSuffixArray(t *testing.T) {
	r := rand.New(rand.NewSource(7))

	texts := repetitiveTexts()
	texts = append(texts, []byte("ATGCGT$"), []byte("A$"), []byte("$"))
	for _, n := range []int{5, 64, 1000, 3000} {
		texts = append(texts, randomText(r, n, []byte("ACGT")))
		texts = append(texts, randomText(r, n, []byte("AT")))
	}

	ctx := context.Background()
	for _, text := range texts {
		answer := NaiveSuffixArray(text)

		for _, chunks := range []int{1, 2, 3, 7, 16} {
			for _, overlap := range []int{0, 1, 5, 256} {
				opt := &ChunkOptions{Chunks: chunks, MinOverlap: overlap, Threads: 4, Verify: true}
				sa, err := BuildSuffixArrayParallel(ctx, text, opt)
				if err != nil {
					t.Errorf("text of %d bytes, chunks=%d, overlap=%d: %s", len(text), chunks, overlap, err)
					return
				}
				for i := range sa {
					if sa[i] != answer[i] {
						t.Errorf("text of %d bytes, chunks=%d, overlap=%d: differ at %d",
							len(text), chunks, overlap, i)
						return
					}
				}
			}
		}
	}
}

func TestChunkedSuffixArrayLongRuns(t *testing.T) {
	n := 200000
	texts := [][]byte{
		append(bytes.Repeat([]byte("N"), n), Sentinel),
		append(bytes.Repeat([]byte("AC"), n/2), Sentinel),
		append(append(bytes.Repeat([]byte("A"), n/2), bytes.Repeat([]byte("N"), n/2)...), Sentinel),
	}

	ctx := context.Background()
	for _, text := range texts {
		answer := BuildSuffixArray(text)

		opt := &ChunkOptions{Chunks: 8, MinOverlap: 256, Threads: 4}
		timeStart := time.Now()
		sa, err := BuildSuffixArrayParallel(ctx, text, opt)
		if err != nil {
			t.Error(err)
			return
		}
		if d := time.Since(timeStart); d > 30*time.Second {
			t.Errorf("text of %d bytes: too slow: %s", len(text), d)
		}
		for i := range sa {
			if sa[i] != answer[i] {
				t.Errorf("text of %d bytes: differ at %d", len(text), i)
				return
			}
		}
	}

	// "N...N$", suffixes are sorted from the shortest
	for i, p := range BuildSuffixArray(texts[0]) {
		if p != n-i {
			t.Errorf("unexpected SA[%d]: %d", i, p)
			return
		}
	}
}

func TestPartialSuffixArrays(t *testing.T) {
	text := randomText(rand.New(rand.NewSource(3)), 500, []byte("ACGT"))

	var done int32
	opt := &ChunkOptions{Chunks: 5, MinOverlap: 3, Threads: 2,
		OnChunkDone: func(time.Duration) { atomic.AddInt32(&done, 1) }}

	parts, err := BuildPartialSuffixArrays(context.Background(), text, opt)
	if err != nil {
		t.Error(err)
		return
	}
	if len(parts) != 5 || atomic.LoadInt32(&done) != 5 {
		t.Errorf("unexpected number of parts: %d, callbacks: %d", len(parts), done)
		return
	}

	// each one is sorted by prefixes and covers its own chunk
	for _, p := range parts {
		if p.Depth != 3 {
			t.Errorf("chunk #%d: unexpected depth: %d", p.Chunk.Index, p.Depth)
			return
		}
		if len(p.SA) != p.Chunk.End-p.Chunk.Start {
			t.Errorf("chunk #%d: unexpected size: %d", p.Chunk.Index, len(p.SA))
			return
		}
		for i, pos := range p.SA {
			if pos < p.Chunk.Start || pos >= p.Chunk.End {
				t.Errorf("chunk #%d: position out of chunk: %d", p.Chunk.Index, pos)
				return
			}
			if i > 0 && string(prefix(text, p.SA[i-1], 3)) > string(prefix(text, pos, 3)) {
				t.Errorf("chunk #%d: not sorted at %d", p.Chunk.Index, i)
				return
			}
		}
	}

	// merged ones are sorted by prefixes too
	sa, err := MergePartialSuffixArrays(text, parts)
	if err != nil {
		t.Error(err)
		return
	}
	if err = CheckSuffixArray(text, sa, false); err != nil {
		t.Error(err)
		return
	}
	for i := 1; i < len(sa); i++ {
		if string(prefix(text, sa[i-1], 3)) > string(prefix(text, sa[i], 3)) {
			t.Errorf("merged positions not sorted at %d", i)
			return
		}
	}

	// a missing part
	parts[2] = nil
	_, err = MergePartialSuffixArrays(text, parts)
	var e *ConstructionError
	if !errors.As(err, &e) {
		t.Errorf("a ConstructionError expected, got: %v", err)
	}

	// partial coverage
	_, err = MergePartialSuffixArrays(text, []*PartialSuffixArray{parts[0], parts[1]})
	if !errors.As(err, &e) {
		t.Errorf("a ConstructionError expected, got: %v", err)
	}
}

func TestChunkOptions(t *testing.T) {
	for _, opt := range []*ChunkOptions{
		{Chunks: 0, MinOverlap: 1, Threads: 1},
		{Chunks: 2, MinOverlap: -1, Threads: 1},
		{Chunks: 2, MinOverlap: 1, Threads: 0},
	} {
		_, err := BuildPartialSuffixArrays(context.Background(), []byte("ACGT$"), opt)
		var e *ConfigurationError
		if !errors.As(err, &e) {
			t.Errorf("%+v: a ConfigurationError expected, got: %v", opt, err)
		}
	}

	if err := CheckChunkOptions(&DefaultChunkOptions); err != nil {
		t.Error(err)
	}
}

func TestChunkedSuffixArrayCancelled(t *testing.T) {
	text := randomText(rand.New(rand.NewSource(5)), 1000, []byte("ACGT"))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	sa, err := BuildSuffixArrayParallel(ctx, text, &ChunkOptions{Chunks: 4, MinOverlap: 8, Threads: 2})
	if !errors.Is(err, context.Canceled) {
		t.Errorf("context.Canceled expected, got: %v", err)
	}
	if sa != nil {
		t.Errorf("no suffix array should be returned")
	}
}

func BenchmarkChunkedSuffixArrayRun(b *testing.B) {
	text := append(bytes.Repeat([]byte("N"), 1<<18), Sentinel)
	opt := &ChunkOptions{Chunks: 8, MinOverlap: 256, Threads: 4}
	ctx := context.Background()

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if _, err := BuildSuffixArrayParallel(ctx, text, opt); err != nil {
			b.Fatal(err)
		}
	}
}
