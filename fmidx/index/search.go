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
	"context"
	"runtime"
	"sync"

	"github.com/twotwotwo/sorts/sortutil"
)

// ScoringModel scores the exact matches of a read. It's implemented by
// callers, e.g., an alignment scoring layer, and is optional.
type ScoringModel interface {
	Score(read []byte, positions []int) (float64, error)
}

// SearchOptions contains options for searching reads.
type SearchOptions struct {
	Threads     int  // the maximum number of concurrent reads
	SortMatches bool // sort positions in ascending order
	MaxMatches  int  // only resolve positions when hits <= MaxMatches, 0 for no limit

	Scorer ScoringModel // optional
}

// DefaultSearchOptions is the default SearchOptions.
var DefaultSearchOptions = SearchOptions{
	Threads:     runtime.NumCPU(),
	SortMatches: true,
}

// Read is a query sequence.
type Read struct {
	ID  string
	Seq []byte
}

// ReadAlignment is the search result of a read.
type ReadAlignment struct {
	Read *Read

	Hits     int      // number of occurrences
	Interval Interval // rows in the suffix array
	Matches  []int    // 0-based positions, nil if not resolved

	Score float64 // from the ScoringModel
	Err   error   // error of this read only
}

// Matched tells if the read occurs in the text.
func (r *ReadAlignment) Matched() bool { return r.Hits > 0 }

// Engine searches reads against a shared FM-index.
// The index is never modified, so reads are searched concurrently.
type Engine struct {
	idx *FMIndex
	opt *SearchOptions
}

// NewEngine creates an Engine.
func NewEngine(idx *FMIndex, opt *SearchOptions) *Engine {
	if opt == nil {
		opt = &DefaultSearchOptions
	}
	o := *opt
	if o.Threads < 1 {
		o.Threads = runtime.NumCPU()
	}
	return &Engine{idx: idx, opt: &o}
}

// SetSearchingOptions sets the searching options.
// Do not call it during searching.
func (e *Engine) SetSearchingOptions(opt *SearchOptions) {
	o := *opt
	if o.Threads < 1 {
		o.Threads = runtime.NumCPU()
	}
	e.opt = &o
}

// Index returns the FM-index.
func (e *Engine) Index() *FMIndex { return e.idx }

// Align searches one read.
func (e *Engine) Align(read *Read) *ReadAlignment {
	r := &ReadAlignment{Read: read}

	iv, ok := e.idx.BackwardSearch(read.Seq)
	if !ok {
		return r
	}
	r.Interval = iv
	r.Hits = iv.Len()

	if !e.idx.HasSuffixArray() || (e.opt.MaxMatches > 0 && r.Hits > e.opt.MaxMatches) {
		return r
	}

	r.Matches, r.Err = e.idx.Positions(iv)
	if r.Err != nil {
		return r
	}
	if e.opt.SortMatches {
		sortutil.Ints(r.Matches)
	}

	if e.opt.Scorer != nil {
		r.Score, r.Err = e.opt.Scorer.Score(read.Seq, r.Matches)
	}
	return r
}

// SearchBatch searches a batch of reads concurrently. Results are in the
// same order as the reads. The batch stops between reads when ctx is
// cancelled, then the error of ctx is returned, along with results of
// reads already searched (others are nil).
func (e *Engine) SearchBatch(ctx context.Context, reads []*Read) ([]*ReadAlignment, error) {
	results := make([]*ReadAlignment, len(reads))

	var wg sync.WaitGroup
	tokens := make(chan int, e.opt.Threads)
	for i, read := range reads {
		if ctx.Err() != nil {
			break
		}

		wg.Add(1)
		tokens <- 1
		go func(i int, read *Read) {
			defer func() {
				wg.Done()
				<-tokens
			}()
			if ctx.Err() != nil {
				return
			}
			results[i] = e.Align(read)
		}(i, read)
	}
	wg.Wait()

	return results, ctx.Err()
}

// SearchStream searches reads from a channel, and sends results to the
// returned channel, which is closed after the input channel is closed
// and all reads are searched, or ctx is cancelled.
// The order of results might be different from the input.
//
// Example:
//
//	in := make(chan *index.Read, 64)
//	out := engine.SearchStream(ctx, in)
//	go func() {
//		for _, r := range reads {
//			in <- r
//		}
//		close(in)
//	}()
//	for r := range out {
//		...
//	}
func (e *Engine) SearchStream(ctx context.Context, in <-chan *Read) <-chan *ReadAlignment {
	out := make(chan *ReadAlignment, e.opt.Threads)

	go func() {
		var wg sync.WaitGroup
		tokens := make(chan int, e.opt.Threads)

		for read := range in {
			if ctx.Err() != nil {
				continue // drain the input
			}

			wg.Add(1)
			tokens <- 1
			go func(read *Read) {
				defer func() {
					wg.Done()
					<-tokens
				}()
				if ctx.Err() != nil {
					return
				}
				r := e.Align(read)
				select {
				case out <- r:
				case <-ctx.Done():
				}
			}(read)
		}

		wg.Wait()
		close(out)
	}()

	return out
}
