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
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"regexp"
	"sort"
	"strings"
	"time"

	"github.com/pkg/errors"
	"github.com/shenwei356/bio/seq"
	"github.com/shenwei356/bio/seqio/fastx"
	"github.com/shenwei356/fmidx/fmidx/index"
	"github.com/shenwei356/util/pathutil"
	"github.com/spf13/cobra"
	"gonum.org/v1/gonum/stat"
)

var searchCmd = &cobra.Command{
	Use:   "search",
	Short: "Search reads against an index",
	Long: `Search reads against an index

Attention:
  1. Input should be (gzipped) FASTA or FASTQ records from files or stdin.
  2. Reads are upper-cased, only exact matches are reported.
  3. The order of reads in output might be different from the input.
  4. Matches spanning two reference sequences are not reported, nor counted
     in the column hits. For reads not located (see below), hits come from
     the index and might include such matches.

Output format:
  Tab-delimited format with 5 columns, with 1-based positions.

    1.  read,    read identifier
    2.  qlen,    read length
    3.  hits,    number of occurrences
    4.  record,  reference sequence identifier
    5.  pos,     start position in the reference sequence

  Locations are omitted ("*") for reads with more than --max-matches hits,
  or if the suffix array was not saved in the index.

  With --json, one JSON object per line is written for every read:

    {"read_id":"r1","read_seq":"ACGT","hits":2,"matches":[{"record":"chr1","pos":10}]}

`,
	Run: func(cmd *cobra.Command, args []string) {
		opt := getOptions(cmd)
		seq.ValidateSeq = false

		var fhLog *os.File
		if opt.Log2File {
			fhLog = addLog(opt.LogFile, opt.Verbose)
		}

		verbose := opt.Verbose
		outputLog := opt.Verbose || opt.Log2File

		timeStart := time.Now()
		defer func() {
			if outputLog {
				log.Info()
				log.Infof("elapsed time: %s", time.Since(timeStart))
				log.Info()
			}
			if opt.Log2File {
				fhLog.Close()
			}
		}()

		var err error

		// ---------------------------------------------------------------

		dbDir := getFlagString(cmd, "index")
		if dbDir == "" {
			checkError(fmt.Errorf("flag -d/--index needed"))
		}
		dbDir = expandPath(dbDir)

		outFile := getFlagString(cmd, "out-file")
		if outFile != "-" {
			outFile = expandPath(outFile)
		}
		outJSON := getFlagBool(cmd, "json")
		sortMatches := getFlagBool(cmd, "sort")
		maxMatches := getFlagNonNegativeInt(cmd, "max-matches")
		onlyMatched := getFlagBool(cmd, "only-matched")

		maxQueryConcurrency := getFlagNonNegativeInt(cmd, "max-query-conc")
		if maxQueryConcurrency == 0 {
			maxQueryConcurrency = opt.NumCPUs
		}

		// ---------------------------------------------------------------
		// input files

		inDir := getFlagString(cmd, "in-dir")
		var files []string
		if inDir != "" {
			inDir = expandPath(inDir)
			isDir, err := pathutil.IsDir(inDir)
			if err != nil {
				checkError(errors.Wrapf(err, "checking -I/--in-dir"))
			}
			if !isDir {
				checkError(fmt.Errorf("value of -I/--in-dir should be a directory: %s", inDir))
			}

			reFileStr := getFlagString(cmd, "file-regexp")
			if !reIgnoreCase.MatchString(reFileStr) {
				reFileStr = reIgnoreCaseStr + reFileStr
			}
			reFile, err := regexp.Compile(reFileStr)
			checkError(errors.Wrapf(err, "failed to parse regular expression for matching file: %s", reFileStr))

			files, err = getFileListFromDir(inDir, reFile, opt.NumCPUs)
			if err != nil {
				checkError(errors.Wrapf(err, "walking dir: %s", inDir))
			}
			sort.Strings(files)
		} else {
			files = getFileListFromArgsAndFile(cmd, args, true, "infile-list", true)
		}
		if len(files) < 1 {
			checkError(fmt.Errorf("FASTA/Q files needed"))
		}
		if outputLog {
			if len(files) == 1 && isStdin(files[0]) {
				log.Info("no files given, reading from stdin")
			} else {
				log.Infof("%d input file(s) given", len(files))
			}
		}

		// ---------------------------------------------------------------
		// index

		if outputLog {
			log.Infof("loading index: %s", dbDir)
		}
		idx, err := index.NewFromPath(dbDir, true)
		checkError(err)

		recs := idx.Records()
		var nRecs int
		if recs != nil {
			nRecs = recs.Len()
		}

		if outputLog {
			log.Infof("index loaded in %s: %d sequences, %d bases",
				time.Since(timeStart), nRecs, idx.Len()-1)
			if !idx.HasSuffixArray() {
				log.Warningf("suffix array not found in the index, matches will not be located")
			}
			log.Info()
			log.Infof("searching with %d threads...", opt.NumCPUs)
		}

		engine := index.NewEngine(idx, &index.SearchOptions{
			Threads:     maxQueryConcurrency,
			SortMatches: sortMatches,
			MaxMatches:  maxMatches,
		})

		// ---------------------------------------------------------------
		// output

		timeStart1 := time.Now()

		outfh, gw, w, err := outStream(outFile, strings.HasSuffix(outFile, ".gz"), opt.CompressionLevel)
		checkError(err)
		defer func() {
			outfh.Flush()
			if gw != nil {
				gw.Close()
			}
			w.Close()
		}()

		var total, matched uint64
		var speed float64 // reads per minute
		hits := make([]float64, 0, 1024)

		if !outJSON {
			fmt.Fprintln(outfh, tsvHeader)
		}
		enc := json.NewEncoder(outfh)

		printResult := func(r *index.ReadAlignment) {
			total++
			if verbose {
				if (total < 128 && total&7 == 0) || total&127 == 0 {
					speed = float64(total) / time.Since(timeStart1).Minutes()
					fmt.Fprintf(os.Stderr, "processed queries: %d, speed: %.3f queries per minute\r", total, speed)
				}
			}

			if r.Err != nil {
				checkError(errors.Wrapf(r.Err, "read: %s", r.Read.ID))
			}

			a := resolveAlignment(r, recs)
			if a.Hits > 0 {
				matched++
				hits = append(hits, float64(a.Hits))
			} else if onlyMatched {
				return
			}

			if outJSON {
				checkError(enc.Encode(a))
				return
			}
			writeAlignmentTSV(outfh, a)
		}

		// outputter
		ctx := context.Background()
		in := make(chan *index.Read, maxQueryConcurrency)
		out := engine.SearchStream(ctx, in)
		done := make(chan int)
		go func() {
			for r := range out {
				printResult(r)
			}
			done <- 1
		}()

		var record *fastx.Record
		for _, file := range files {
			fastxReader, err := fastx.NewReader(nil, file, "")
			checkError(err)

			for {
				record, err = fastxReader.Read()
				if err != nil {
					if err == io.EOF {
						break
					}
					checkError(err)
					break
				}

				in <- &index.Read{
					ID:  string(record.ID),
					Seq: bytes.ToUpper(record.Seq.Seq),
				}
			}
			fastxReader.Close()
		}
		close(in)
		<-done

		if outputLog {
			fmt.Fprintf(os.Stderr, "\n")

			speed = float64(total) / time.Since(timeStart1).Minutes()
			log.Infof("")
			log.Infof("processed queries: %d, speed: %.3f queries per minute\n", total, speed)
			if total > 0 {
				log.Infof("%.4f%% (%d/%d) queries matched", float64(matched)/float64(total)*100, matched, total)
			}
			if len(hits) > 0 {
				mean, std := stat.MeanStdDev(hits, nil)
				sort.Float64s(hits)
				log.Infof("hits of matched queries: mean %.2f, stdev %.2f, median %.0f, max %.0f",
					mean, std, stat.Quantile(0.5, stat.Empirical, hits, nil), hits[len(hits)-1])
			}
			log.Infof("done searching")
			if outFile != "-" {
				log.Infof("search results saved to: %s", outFile)
			}
		}
	},
}

func init() {
	RootCmd.AddCommand(searchCmd)

	// -----------------------------  input  -----------------------------

	searchCmd.Flags().StringP("index", "d", "",
		formatFlagUsage(`Index directory created by "fmidx index".`))

	searchCmd.Flags().StringP("in-dir", "I", "",
		formatFlagUsage(`Directory containing FASTA/Q files of reads. Directory symlinks are followed.`))

	searchCmd.Flags().StringP("file-regexp", "r", `\.(f[aq](st[aq])?|fna)(.gz)?$`,
		formatFlagUsage(`Regular expression for matching read files in -I/--in-dir, case ignored.`))

	searchCmd.Flags().StringP("infile-list", "X", "",
		formatFlagUsage(`File of input file list (one file per line). If given, they are appended to files from CLI arguments.`))

	// -----------------------------  output  -----------------------------

	searchCmd.Flags().StringP("out-file", "o", "-",
		formatFlagUsage(`Out file, supports a ".gz" suffix ("-" for stdout).`))

	searchCmd.Flags().BoolP("json", "", false,
		formatFlagUsage(`Output in JSON lines format.`))

	searchCmd.Flags().BoolP("only-matched", "m", false,
		formatFlagUsage(`Only output reads with matches.`))

	// -----------------------------  searching  -----------------------------

	searchCmd.Flags().BoolP("sort", "", false,
		formatFlagUsage(`Sort matches by positions.`))

	searchCmd.Flags().IntP("max-matches", "n", 0,
		formatFlagUsage(`Do not locate matches for reads with more hits than this value, 0 for no limit.`))

	searchCmd.Flags().IntP("max-query-conc", "J", 0,
		formatFlagUsage(`Maximum number of concurrent queries, 0 for the value of -j/--threads.`))

	searchCmd.SetUsageTemplate(usageTemplate("-d <index path> [read.fq.gz ...] [-o read.tsv.gz]"))
}
