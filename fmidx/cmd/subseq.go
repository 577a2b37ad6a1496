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
	"regexp"
	"strconv"
	"strings"

	"github.com/shenwei356/bio/seq"
	"github.com/shenwei356/fmidx/fmidx/index"
	"github.com/spf13/cobra"
)

var subseqCmd = &cobra.Command{
	Use:   "subseq",
	Short: "Extract subsequence via sequence ID, position and strand",
	Long: `Extract subsequence via sequence ID, position and strand

Attention:
  1. The option -n/--seq-id is optional.
     1) If given, the positions are these in the sequence.
     2) If not given, the positions are these in the concatenated sequence.
  2. The subsequence is recovered from the BWT, which does not need the
     suffix array, but the time is proportional to the length of the
     concatenated sequence.
  3. Symbols out of the alphabet were handled during indexing, e.g., they
     might be removed or masked.

`,
	Run: func(cmd *cobra.Command, args []string) {
		opt := getOptions(cmd)
		seq.ValidateSeq = false

		// ------------------------------

		dbDir := getFlagString(cmd, "index")
		if dbDir == "" {
			checkError(fmt.Errorf("flag -d/--index needed"))
		}
		dbDir = expandPath(dbDir)

		seqid := getFlagString(cmd, "seq-id")

		var reRegion = regexp.MustCompile(`^\d+:\d+$`)

		region := getFlagString(cmd, "region")
		if region == "" {
			checkError(fmt.Errorf("flag -r/--region needed"))
		}
		revcom := getFlagBool(cmd, "revcom")

		lineWidth := getFlagNonNegativeInt(cmd, "line-width")

		if !reRegion.MatchString(region) {
			checkError(fmt.Errorf(`invalid region: %s. type "fmidx subseq -h" for more examples`, region))
		}
		var start, end int
		var err error

		r := strings.Split(region, ":")
		start, err = strconv.Atoi(r[0])
		checkError(err)
		end, err = strconv.Atoi(r[1])
		checkError(err)
		if start <= 0 || end <= 0 {
			checkError(fmt.Errorf("both begin and end position should not be <= 0"))
		}
		if start > end {
			checkError(fmt.Errorf("begin position should be < end position"))
		}

		outFile := getFlagString(cmd, "out-file")

		// ---------------------------------------------------------------

		idx, err := index.NewFromPath(dbDir, false)
		checkError(err)

		// 0-based, [offset, offset+end)
		var offset int
		var name string
		if seqid != "" {
			recs := idx.Records()
			i := -1
			if recs != nil {
				for j, id := range recs.IDs {
					if id == seqid {
						i = j
						break
					}
				}
			}
			if i < 0 {
				checkError(fmt.Errorf("sequence ID not found: %s", seqid))
			}
			offset = recs.Spans[i][0]
			if l := recs.Spans[i][1] - offset; end > l {
				end = l
			}
			name = seqid
		} else {
			if end > idx.Len()-1 {
				end = idx.Len() - 1
			}
			name = "concatenated"
		}
		if start > end {
			checkError(fmt.Errorf("begin position out of range: %d", start))
		}

		s, err := idx.Extract(offset+start-1, offset+end)
		if err != nil {
			checkError(fmt.Errorf("failed to read subsequence: %s", err))
		}

		// output file handler
		outfh, gw, w, err := outStream(outFile, strings.HasSuffix(outFile, ".gz"), opt.CompressionLevel)
		checkError(err)
		defer func() {
			outfh.Flush()
			if gw != nil {
				gw.Close()
			}
			w.Close()
		}()

		var alphabet *seq.Alphabet
		if revcom {
			alphabet = seq.DNAredundant
		} else {
			alphabet = seq.Unlimit
		}
		_s, err := seq.NewSeq(alphabet, s)
		checkError(err)
		if revcom {
			_s.RevComInplace()
		}

		fmt.Fprintf(outfh, ">%s:%d-%d\n", name, start, end)
		outfh.Write(_s.FormatSeq(lineWidth))
		outfh.WriteByte('\n')
	},
}

func init() {
	RootCmd.AddCommand(subseqCmd)

	subseqCmd.Flags().StringP("index", "d", "",
		formatFlagUsage(`Index directory created by "fmidx index".`))

	subseqCmd.Flags().StringP("seq-id", "n", "",
		formatFlagUsage(`Sequence ID.`))

	subseqCmd.Flags().StringP("region", "r", "",
		formatFlagUsage(`Region of the subsequence (1-based).`))

	subseqCmd.Flags().BoolP("revcom", "R", false,
		formatFlagUsage("Extract subsequence on the negative strand."))

	subseqCmd.Flags().IntP("line-width", "w", 60,
		formatFlagUsage("Line width of sequence (0 for no wrap)."))

	subseqCmd.Flags().StringP("out-file", "o", "-",
		formatFlagUsage(`Out file, supports the ".gz" suffix ("-" for stdout).`))

	subseqCmd.SetUsageTemplate(usageTemplate("-d <index path> [-n <seqid>] -r <start>:<end>"))
}
