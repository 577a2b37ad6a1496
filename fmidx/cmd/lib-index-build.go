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
	"context"
	"fmt"
	"io"
	"os"
	"regexp"
	"time"

	"github.com/pkg/errors"
	"github.com/shenwei356/bio/seqio/fastx"
	"github.com/shenwei356/fmidx/fmidx/index"
	"github.com/vbauerster/mpb/v8"
	"github.com/vbauerster/mpb/v8/decor"
)

// IndexBuildingOptions contains all options for building an FM-index.
type IndexBuildingOptions struct {
	// general
	NumCPUs  int
	Verbose  bool // show log
	Log2File bool // log file
	Force    bool // force overwrite existed index

	// preprocessing
	Alphabet   string
	Policy     string
	MaskSymbol byte

	// FM-index
	SamplingRate    int
	KeepSuffixArray bool

	// chunked suffix array construction
	Chunks            int
	MinOverlap        int
	ParallelThreshold int
	Verify            bool

	// filtering sequences
	ReSeqExclude []*regexp.Regexp
}

// CheckIndexBuildingOptions checks the important options
func CheckIndexBuildingOptions(opt *IndexBuildingOptions) error {
	if opt.NumCPUs < 1 {
		return fmt.Errorf("invalid number of CPUs: %d, should be >= 1", opt.NumCPUs)
	}
	if opt.Alphabet == "" {
		return fmt.Errorf("empty alphabet")
	}
	if _, err := index.ParsePolicy(opt.Policy); err != nil {
		return err
	}
	return index.CheckBuildOptions(opt.buildOptions())
}

func (opt *IndexBuildingOptions) buildOptions() *index.BuildOptions {
	return &index.BuildOptions{
		SamplingRate:      opt.SamplingRate,
		KeepSuffixArray:   opt.KeepSuffixArray,
		Chunks:            opt.Chunks,
		MinOverlap:        opt.MinOverlap,
		ParallelThreshold: opt.ParallelThreshold,
		Threads:           opt.NumCPUs,
		Verify:            opt.Verify,
	}
}

// BuildIndex reads reference sequences from files, builds an FM-index,
// and saves it to outDir.
func BuildIndex(outDir string, files []string, opt *IndexBuildingOptions) (*index.Info, error) {
	a, err := index.NewAlphabet([]byte(opt.Alphabet))
	if err != nil {
		return nil, err
	}
	policy, _ := index.ParsePolicy(opt.Policy)

	// ---------------------------------------------------------------
	// reference sequences

	timeStart := time.Now()
	recs, err := readRefRecords(files, opt.ReSeqExclude)
	if err != nil {
		return nil, err
	}
	if len(recs) == 0 {
		return nil, fmt.Errorf("no valid sequences found")
	}

	s, err := index.PreprocessRecords(recs, &index.PreprocessOptions{
		Alphabet:   a,
		Policy:     policy,
		MaskSymbol: opt.MaskSymbol,
	})
	if err != nil {
		return nil, err
	}
	recs = nil

	if opt.Verbose || opt.Log2File {
		log.Infof("  %d sequences with %d bases (sentinel included) read in %s",
			s.Records().Len(), s.Len(), time.Since(timeStart))
	}

	// ---------------------------------------------------------------
	// building

	bopt := opt.buildOptions()
	chunked := bopt.Chunks > 1 && s.Len() >= bopt.ParallelThreshold

	// process bar
	var pbs *mpb.Progress
	var bar *mpb.Bar
	var chDuration chan time.Duration
	var doneDuration chan int
	if opt.Verbose && chunked {
		nChunks := len(index.Partition(s.Len(), bopt.Chunks, bopt.MinOverlap))

		pbs = mpb.New(mpb.WithWidth(40), mpb.WithOutput(os.Stderr))
		bar = pbs.AddBar(int64(nChunks),
			mpb.PrependDecorators(
				decor.Name("sorted chunks: ", decor.WC{W: len("sorted chunks: "), C: decor.DindentRight}),
				decor.Name("", decor.WCSyncSpaceR),
				decor.CountersNoUnit("%d / %d", decor.WCSyncWidth),
			),
			mpb.AppendDecorators(
				decor.Name("ETA: ", decor.WC{W: len("ETA: ")}),
				decor.EwmaETA(decor.ET_STYLE_GO, 10),
				decor.OnComplete(decor.Name(""), ". done"),
			),
		)

		chDuration = make(chan time.Duration, opt.NumCPUs)
		doneDuration = make(chan int)
		go func() {
			for t := range chDuration {
				bar.EwmaIncrBy(1, t)
			}
			doneDuration <- 1
		}()

		bopt.OnChunkDone = func(t time.Duration) {
			chDuration <- t
		}
	}

	if (opt.Verbose || opt.Log2File) && chunked {
		log.Infof("  sorting suffixes in %d chunks with %d threads ...", bopt.Chunks, bopt.Threads)
	}

	timeStart = time.Now()
	idx, err := index.Build(context.Background(), s, bopt)

	if opt.Verbose && chunked {
		close(chDuration)
		<-doneDuration
		if err != nil {
			bar.Abort(false)
		}
		pbs.Wait()
	}
	if err != nil {
		return nil, err
	}

	if opt.Verbose || opt.Log2File {
		log.Infof("  FM-index built in %s", time.Since(timeStart))
	}

	// ---------------------------------------------------------------
	// saving

	err = idx.WriteToPath(outDir, opt.Force)
	if err != nil {
		return nil, errors.Wrapf(err, "saving index to %s", outDir)
	}

	return idx.Info(), nil
}

// readRefRecords reads all sequences from FASTA/Q files.
func readRefRecords(files []string, reSeqExclude []*regexp.Regexp) ([]index.RefRecord, error) {
	recs := make([]index.RefRecord, 0, 8)

	var record *fastx.Record
	var ignore bool
	for _, file := range files {
		fastxReader, err := fastx.NewReader(nil, file, "")
		if err != nil {
			return nil, errors.Wrap(err, file)
		}

		for {
			record, err = fastxReader.Read()
			if err != nil {
				if err == io.EOF {
					break
				}
				fastxReader.Close()
				return nil, errors.Wrap(err, file)
			}

			if len(reSeqExclude) > 0 {
				ignore = false
				for _, re := range reSeqExclude {
					if re.Match(record.Name) {
						ignore = true
						break
					}
				}
				if ignore {
					continue
				}
			}

			recs = append(recs, index.RefRecord{
				ID:  string(record.ID),
				Seq: append([]byte(nil), record.Seq.Seq...),
			})
		}
		fastxReader.Close()
	}

	return recs, nil
}
