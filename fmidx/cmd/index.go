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
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/pkg/errors"
	"github.com/shenwei356/bio/seq"
	"github.com/shenwei356/fmidx/fmidx/index"
	"github.com/shenwei356/util/pathutil"
	"github.com/spf13/cobra"
)

var indexCmd = &cobra.Command{
	Use:   "index",
	Short: "Generate an FM-index from FASTA/Q sequences",
	Long: `Generate an FM-index from FASTA/Q sequences

Input:
  1. Input plain or gzipped FASTA/Q files can be given via positional
     arguments or the flag -X/--infile-list with the list of input files,
  2. Or a directory containing sequence files via the flag -I/--in-dir,
     with multiple-level sub-directories allowed. A regular expression
     for matching sequencing files is available via the flag -r/--file-regexp.

Attentions:
  1. All sequences are concatenated into one text ending with a sentinel '$',
     sequence IDs and their positions are saved for locating matches.
  2. Bases are upper-cased, and the ones out of the alphabet are handled
     according to -p/--policy:
       strict: stop with an error.
       drop:   remove them.
       mask:   replace them with the symbol given by -M/--mask-symbol.
  3. Unwanted sequences like plasmid can be filtered out by
     the name via regular expressions (-B/--seq-name-filter).
  4. For long references, suffixes can be sorted in chunks in parallel
     with -c/--chunks, the result is identical to the single-pass one.

`,
	Run: func(cmd *cobra.Command, args []string) {
		opt := getOptions(cmd)
		seq.ValidateSeq = false

		var fhLog *os.File
		if opt.Log2File {
			fhLog = addLog(opt.LogFile, opt.Verbose)
		}
		timeStart := time.Now()
		defer func() {
			if opt.Verbose || opt.Log2File {
				log.Info()
				log.Infof("elapsed time: %s", time.Since(timeStart))
				log.Info()
			}
			if opt.Log2File {
				fhLog.Close()
			}
		}()

		// ---------------------------------------------------------------
		// basic flags

		alphabet := getFlagString(cmd, "alphabet")
		policy := getFlagString(cmd, "policy")
		maskSymbol := getFlagString(cmd, "mask-symbol")
		if len(maskSymbol) != 1 {
			checkError(fmt.Errorf("the value of flag -M/--mask-symbol should be a single character"))
		}

		samplingRate := getFlagPositiveInt(cmd, "sampling-rate")
		noSA := getFlagBool(cmd, "no-sa")
		chunks := getFlagPositiveInt(cmd, "chunks")
		overlap := getFlagNonNegativeInt(cmd, "overlap")
		minLen := getFlagNonNegativeInt(cmd, "parallel-min-len")
		verify := getFlagBool(cmd, "verify")

		outDir := getFlagString(cmd, "out-dir")
		force := getFlagBool(cmd, "force")
		skipFileCheck := getFlagBool(cmd, "skip-file-check")

		if outDir == "" {
			checkError(fmt.Errorf("flag -O/--out-dir is needed"))
		}

		var err error

		inDir := getFlagString(cmd, "in-dir")
		if inDir != "" {
			inDir = expandPath(inDir)
		}

		outDir = filepath.Clean(expandPath(outDir))

		checkError(checkInOutDirs(inDir, outDir))

		readFromDir := inDir != ""
		if readFromDir {
			var isDir bool
			isDir, err = pathutil.IsDir(inDir)
			if err != nil {
				checkError(errors.Wrapf(err, "checking -I/--in-dir"))
			}
			if !isDir {
				checkError(fmt.Errorf("value of -I/--in-dir should be a directory: %s", inDir))
			}
		}

		reFileStr := getFlagString(cmd, "file-regexp")
		var reFile *regexp.Regexp
		if reFileStr != "" {
			if !reIgnoreCase.MatchString(reFileStr) {
				reFileStr = reIgnoreCaseStr + reFileStr
			}
			reFile, err = regexp.Compile(reFileStr)
			checkError(errors.Wrapf(err, "failed to parse regular expression for matching file: %s", reFileStr))
		}

		reSeqNameStrs := getFlagStringSlice(cmd, "seq-name-filter")
		reSeqNames, err := compileRegexps(reSeqNameStrs)
		checkError(errors.Wrap(err, "failed to parse regular expression for matching sequence header"))

		// ---------------------------------------------------------------
		// options for building index

		bopt := &IndexBuildingOptions{
			// general
			NumCPUs:  opt.NumCPUs,
			Verbose:  opt.Verbose,
			Log2File: opt.Log2File,
			Force:    force,

			// preprocessing
			Alphabet:   strings.ToUpper(alphabet),
			Policy:     policy,
			MaskSymbol: maskSymbol[0],

			// FM-index
			SamplingRate:    samplingRate,
			KeepSuffixArray: !noSA,

			// chunked suffix array construction
			Chunks:            chunks,
			MinOverlap:        overlap,
			ParallelThreshold: minLen,
			Verify:            verify,

			ReSeqExclude: reSeqNames,
		}
		err = CheckIndexBuildingOptions(bopt)
		checkError(err)

		// ---------------------------------------------------------------
		// input files

		if opt.Verbose || opt.Log2File {
			log.Infof("fmidx v%s", VERSION)
			log.Info()

			log.Info("checking input files ...")
		}

		var files []string
		if readFromDir {
			files, err = getFileListFromDir(inDir, reFile, opt.NumCPUs)
			if err != nil {
				checkError(errors.Wrapf(err, "walking dir: %s", inDir))
			}
			if len(files) == 0 {
				log.Warningf("  no files matching regular expression: %s", reFileStr)
			}
		} else {
			files = getFileListFromArgsAndFile(cmd, args, !skipFileCheck, "infile-list", !skipFileCheck)
			if opt.Verbose || opt.Log2File {
				if len(files) == 1 && isStdin(files[0]) {
					log.Info("  no files given, reading from stdin")
				}
			}
		}
		if len(files) < 1 {
			checkError(fmt.Errorf("FASTA/Q files needed"))
		} else if opt.Verbose || opt.Log2File {
			log.Infof("  %d input file(s) given", len(files))
		}

		// ---------------------------------------------------------------
		// log

		if opt.Verbose || opt.Log2File {
			log.Info()
			log.Infof("-------------------- [main parameters] --------------------")
			log.Info()
			log.Info("input and output:")
			log.Infof("  input directory: %s", inDir)
			log.Infof("    regular expression of input files: %s", reFileStr)
			log.Infof("    *regular expressions for filtering out sequences: %s", reSeqNameStrs)
			log.Infof("  output directory: %s", outDir)
			log.Info()
			log.Infof("alphabet: %s, policy: %s", bopt.Alphabet, policy)
			log.Infof("sampling rate of Occ: %d", samplingRate)
			log.Infof("save suffix array: %v", !noSA)
			log.Info()
			log.Infof("suffix array chunks: %d, overlap: %d", chunks, overlap)
			log.Info()
			log.Infof("-------------------- [main parameters] --------------------")
			log.Info()
			log.Infof("building index ...")
		}

		// ---------------------------------------------------------------

		info, err := BuildIndex(outDir, files, bopt)
		if err != nil {
			checkError(fmt.Errorf("failed to create a new index: %s", err))
		}

		if opt.Verbose || opt.Log2File {
			log.Infof("finished building FM-index in %s for %d sequences (%d bases)",
				time.Since(timeStart), info.Records, info.Length-1)
			log.Info()
			log.Infof("FM-index saved: %s", outDir)
		}
	},
}

func init() {
	RootCmd.AddCommand(indexCmd)

	// -----------------------------  input  -----------------------------

	indexCmd.Flags().StringP("in-dir", "I", "",
		formatFlagUsage(`Directory containing FASTA/Q files. Directory symlinks are followed.`))

	indexCmd.Flags().StringP("file-regexp", "r", `\.(f[aq](st[aq])?|fna)(.gz)?$`,
		formatFlagUsage(`Regular expression for matching sequence files in -I/--in-dir, case ignored.`))

	indexCmd.Flags().StringP("infile-list", "X", "",
		formatFlagUsage(`File of input file list (one file per line). If given, they are appended to files from CLI arguments.`))

	indexCmd.Flags().StringSliceP("seq-name-filter", "B", []string{},
		formatFlagUsage(`List of regular expressions for filtering out sequences by header/name, case ignored.`))

	indexCmd.Flags().BoolP("skip-file-check", "S", false,
		formatFlagUsage(`Skip input file checking when given files or a file list.`))

	// -----------------------------  output  -----------------------------

	indexCmd.Flags().StringP("out-dir", "O", "",
		formatFlagUsage(`Output directory.`))

	indexCmd.Flags().BoolP("force", "", false,
		formatFlagUsage(`Overwrite existed output directory.`))

	// -----------------------------  sequences   -----------------------------

	indexCmd.Flags().StringP("alphabet", "a", string(index.DefaultAlphabet),
		formatFlagUsage(`Alphabet of reference sequences, case ignored.`))

	indexCmd.Flags().StringP("policy", "p", index.Strict.String(),
		formatFlagUsage(`Policy for symbols out of the alphabet. Available: strict, drop, mask.`))

	indexCmd.Flags().StringP("mask-symbol", "M", "N",
		formatFlagUsage(`Symbol replacing those out of the alphabet, for "-p mask".`))

	// -----------------------------  FM-index   -----------------------------

	indexCmd.Flags().IntP("sampling-rate", "s", index.DefaultBuildOptions.SamplingRate,
		formatFlagUsage(`Sampling rate of the Occ table. Bigger values reduce the index size but slow down searching.`))

	indexCmd.Flags().BoolP("no-sa", "", false,
		formatFlagUsage(`Do not save the suffix array. Matches can be counted but not located.`))

	// -----------------------------  suffix array   -----------------------------

	indexCmd.Flags().IntP("chunks", "c", index.DefaultBuildOptions.Chunks,
		formatFlagUsage(`Number of chunks for sorting suffixes in parallel.`))

	indexCmd.Flags().IntP("overlap", "", index.DefaultBuildOptions.MinOverlap,
		formatFlagUsage(`Context length after each chunk, suffixes in a chunk are first sorted by this many bytes.`))

	indexCmd.Flags().IntP("parallel-min-len", "", index.DefaultBuildOptions.ParallelThreshold,
		formatFlagUsage(`Minimum sequence length for sorting suffixes in chunks.`))

	indexCmd.Flags().BoolP("verify", "", false,
		formatFlagUsage(`Check the order of the suffix array, slow.`))

	// ----------------------------------------------------------

	indexCmd.SetUsageTemplate(usageTemplate("[-a <alphabet>] [-s <rate>] [-c <chunks>] {[-I <seqs dir>] | <seq files> | -X <file list>} -O <out dir>"))
}

var reIgnoreCaseStr = "(?i)"
var reIgnoreCase = regexp.MustCompile(`\(\?i\)`)

// checkInOutDirs makes sure the index is not written into the input directory.
func checkInOutDirs(inDir, outDir string) error {
	if inDir != "" && filepath.Clean(inDir) == filepath.Clean(outDir) {
		return fmt.Errorf("input and output paths should not be the same: %s", outDir)
	}
	return nil
}
