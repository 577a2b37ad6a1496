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

package cmd

import (
	"fmt"
	"io"

	"github.com/shenwei356/fmidx/fmidx/index"
)

const tsvHeader = "read\tqlen\thits\trecord\tpos"

type jsonMatch struct {
	Record string `json:"record"`
	Pos    int    `json:"pos"` // 1-based
}

type jsonAlignment struct {
	ReadID  string       `json:"read_id"`
	ReadSeq string       `json:"read_seq"`
	Hits    int          `json:"hits"`
	Matches []*jsonMatch `json:"matches"`

	located bool
}

// resolveAlignment maps the matches of a read to reference sequences.
// If the matches are located, hits is the number of the ones inside a
// single reference sequence, otherwise it's the count from the index.
func resolveAlignment(r *index.ReadAlignment, recs *index.Records) *jsonAlignment {
	a := &jsonAlignment{
		ReadID:  r.Read.ID,
		ReadSeq: string(r.Read.Seq),
		Hits:    r.Hits,
	}
	if r.Matches == nil || recs == nil {
		a.Matches = []*jsonMatch{}
		return a
	}

	a.Matches = locateMatches(r, recs)
	a.Hits = len(a.Matches)
	a.located = true
	return a
}

// writeAlignmentTSV writes one line for every match, or a line with
// "*" for reads without located matches.
func writeAlignmentTSV(w io.Writer, a *jsonAlignment) {
	if !a.located || len(a.Matches) == 0 {
		fmt.Fprintf(w, "%s\t%d\t%d\t*\t*\n", a.ReadID, len(a.ReadSeq), a.Hits)
		return
	}
	for _, m := range a.Matches {
		fmt.Fprintf(w, "%s\t%d\t%d\t%s\t%d\n", a.ReadID, len(a.ReadSeq), a.Hits, m.Record, m.Pos)
	}
}

// locateMatches maps positions in the concatenated text to reference
// sequences. Matches crossing two sequences are skipped.
func locateMatches(r *index.ReadAlignment, recs *index.Records) []*jsonMatch {
	locs := make([]*jsonMatch, 0, len(r.Matches))
	if recs == nil {
		return locs
	}
	var i, offset int
	var ok bool
	for _, pos := range r.Matches {
		i, offset, ok = recs.Locate(pos, len(r.Read.Seq))
		if !ok {
			continue
		}
		locs = append(locs, &jsonMatch{Record: recs.IDs[i], Pos: offset + 1})
	}
	return locs
}
