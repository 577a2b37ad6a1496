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
	"strings"

	"github.com/shenwei356/fmidx/fmidx/index"
	"github.com/spf13/cobra"
)

var infoCmd = &cobra.Command{
	Use:   "info",
	Short: "Show information of an index",
	Long: `Show information of an index

Attention:
  1. Sequence length includes the sentinel '$'.
  2. With -r/--records, the ID and length of every sequence are listed.

`,
	Run: func(cmd *cobra.Command, args []string) {
		opt := getOptions(cmd)

		dbDir := getFlagString(cmd, "index")
		if dbDir == "" {
			checkError(fmt.Errorf("flag -d/--index needed"))
		}
		dbDir = expandPath(dbDir)

		showRecords := getFlagBool(cmd, "records")
		outFile := getFlagString(cmd, "out-file")

		info, err := index.ReadInfo(dbDir)
		checkError(err)

		outfh, gw, w, err := outStream(outFile, strings.HasSuffix(outFile, ".gz"), opt.CompressionLevel)
		checkError(err)
		defer func() {
			outfh.Flush()
			if gw != nil {
				gw.Close()
			}
			w.Close()
		}()

		fmt.Fprintf(outfh, "version:\t%d.%d\n", info.MainVersion, info.MinorVersion)
		fmt.Fprintf(outfh, "alphabet:\t%s\n", info.Alphabet)
		fmt.Fprintf(outfh, "sentinel:\t%s\n", info.Sentinel)
		fmt.Fprintf(outfh, "sequences:\t%d\n", info.Records)
		fmt.Fprintf(outfh, "length:\t%d\n", info.Length)
		fmt.Fprintf(outfh, "sampling rate:\t%d\n", info.SamplingRate)
		fmt.Fprintf(outfh, "suffix array:\t%v\n", info.SuffixArray)
		fmt.Fprintf(outfh, "checksum:\t%s\n", info.Checksum)

		if !showRecords {
			return
		}

		idx, err := index.NewFromPath(dbDir, false)
		checkError(err)
		recs := idx.Records()
		if recs == nil {
			return
		}

		fmt.Fprintln(outfh)
		fmt.Fprintln(outfh, "id\tstart\tlength")
		for i, id := range recs.IDs {
			fmt.Fprintf(outfh, "%s\t%d\t%d\n", id, recs.Spans[i][0]+1, recs.Spans[i][1]-recs.Spans[i][0])
		}
	},
}

func init() {
	RootCmd.AddCommand(infoCmd)

	infoCmd.Flags().StringP("index", "d", "",
		formatFlagUsage(`Index directory created by "fmidx index".`))

	infoCmd.Flags().BoolP("records", "r", false,
		formatFlagUsage(`List all sequences.`))

	infoCmd.Flags().StringP("out-file", "o", "-",
		formatFlagUsage(`Out file, supports a ".gz" suffix ("-" for stdout).`))

	infoCmd.SetUsageTemplate(usageTemplate("-d <index path> [-r]"))
}
