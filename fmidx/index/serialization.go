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
	"bufio"
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"

	"github.com/pelletier/go-toml/v2"
	"github.com/shenwei356/fmidx/fmidx/util"
	"github.com/shenwei356/util/pathutil"
	"github.com/shenwei356/xopen"
)

// MainVersion is use for checking compatibility
var MainVersion uint8 = 0

// MinorVersion is less important
var MinorVersion uint8 = 1

// Magic number of the FM-index file.
var Magic = [8]byte{'.', 'f', 'm', 'i', 'n', 'd', 'e', 'x'}

// MagicSA is the magic number of the suffix array file.
var MagicSA = [8]byte{'.', 'f', 'm', '-', 's', 'a', '.', '.'}

// ErrInvalidFileFormat means invalid file format.
var ErrInvalidFileFormat = errors.New("fm-index: invalid binary format")

// ErrBrokenFile means the file is not complete.
var ErrBrokenFile = errors.New("fm-index: broken file")

// ErrVersionMismatch means version mismatch between files and program.
var ErrVersionMismatch = errors.New("fm-index: version mismatch")

// ErrChecksumMismatch means the data does not match the checksum in the info file.
var ErrChecksumMismatch = errors.New("fm-index: checksum mismatch")

// ErrDirNotEmpty means the output directory is not empty.
var ErrDirNotEmpty = errors.New("fm-index: output directory not empty")

// ErrPWDAsOutDir means the current directory is used as the output directory.
var ErrPWDAsOutDir = errors.New("fm-index: current directory cant't be the output dir")

// InfoFile contains some summary information.
const InfoFile = "info.toml"

// IndexFile stores the BWT, Less and Occ tables.
const IndexFile = "fmindex.bin"

// SAFile stores the suffix array, optional.
const SAFile = "sa.bin"

// IDListFile stores the IDs of reference records, one per line.
const IDListFile = "IDs.txt"

// RecordsFile stores the spans of reference records.
const RecordsFile = "records.bin"

// Info is the summary information of an index.
type Info struct {
	MainVersion  uint8  `toml:"main-version" comment:"index format"`
	MinorVersion uint8  `toml:"minor-version"`
	Alphabet     string `toml:"alphabet"`
	Sentinel     string `toml:"sentinel"`
	SamplingRate int    `toml:"sampling-rate"`
	Length       int    `toml:"sequence-length" comment:"sentinel included"`
	Records      int    `toml:"records"`
	SuffixArray  bool   `toml:"suffix-array"`
	Checksum     string `toml:"checksum"`
}

// Info returns the summary information of the index.
func (idx *FMIndex) Info() *Info {
	var nRecords int
	if idx.records != nil {
		nRecords = idx.records.Len()
	}
	return &Info{
		MainVersion:  MainVersion,
		MinorVersion: MinorVersion,
		Alphabet:     string(idx.alphabet.symbols),
		Sentinel:     string(Sentinel),
		SamplingRate: idx.occ.rate,
		Length:       idx.n,
		Records:      nRecords,
		SuffixArray:  idx.sa != nil,
		Checksum:     strconv.FormatUint(idx.Checksum(), 16),
	}
}

// ReadInfo reads the info file of an index directory.
func ReadInfo(dir string) (*Info, error) {
	fh, err := xopen.Ropen(filepath.Join(dir, InfoFile))
	if err != nil {
		return nil, err
	}
	defer fh.Close()

	info := &Info{}
	err = toml.NewDecoder(fh).Decode(info)
	if err != nil {
		return nil, err
	}
	if info.MainVersion != MainVersion {
		return nil, ErrVersionMismatch
	}
	return info, nil
}

// WriteToPath writes an index to a directory.
//
// Files:
//
//	info.toml,   summary information
//	fmindex.bin, BWT, Less and Occ tables
//	sa.bin,      suffix array, optional
//	IDs.txt,     IDs of reference records
//	records.bin, spans of reference records
func (idx *FMIndex) WriteToPath(outDir string, overwrite bool) error {
	pwd, _ := os.Getwd()
	if outDir != "./" && outDir != "." && pwd != filepath.Clean(outDir) {
		existed, err := pathutil.DirExists(outDir)
		if err != nil {
			return err
		}
		if existed {
			empty, err := pathutil.IsEmpty(outDir)
			if err != nil {
				return err
			}
			if !empty && !overwrite {
				return ErrDirNotEmpty
			}
			err = os.RemoveAll(outDir)
			if err != nil {
				return err
			}
		}
		err = os.MkdirAll(outDir, 0777)
		if err != nil {
			return err
		}
	} else {
		return ErrPWDAsOutDir
	}

	err := idx.writeIndex(filepath.Join(outDir, IndexFile))
	if err != nil {
		return err
	}

	if idx.sa != nil {
		err = idx.writeSA(filepath.Join(outDir, SAFile))
		if err != nil {
			return err
		}
	}

	if idx.records != nil {
		err = idx.writeIDlist(filepath.Join(outDir, IDListFile))
		if err != nil {
			return err
		}
		err = idx.writeRecords(filepath.Join(outDir, RecordsFile))
		if err != nil {
			return err
		}
	}

	// Info file, written in the end.
	return idx.writeInfo(filepath.Join(outDir, InfoFile))
}

// NewFromPath reads an index from a directory.
// The suffix array is only loaded when loadSA is true and it was saved.
func NewFromPath(dir string, loadSA bool) (*FMIndex, error) {
	ok, err := pathutil.DirExists(dir)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, fmt.Errorf("index path not found: %s", dir)
	}

	info, err := ReadInfo(dir)
	if err != nil {
		return nil, err
	}

	a, err := NewAlphabet([]byte(info.Alphabet))
	if err != nil {
		return nil, err
	}

	idx, err := readIndex(filepath.Join(dir, IndexFile), a)
	if err != nil {
		return nil, err
	}
	if idx.n != info.Length || idx.occ.rate != info.SamplingRate {
		return nil, ErrBrokenFile
	}
	if strconv.FormatUint(idx.Checksum(), 16) != info.Checksum {
		return nil, ErrChecksumMismatch
	}

	if loadSA && info.SuffixArray {
		idx.sa, err = readSA(filepath.Join(dir, SAFile), idx.n)
		if err != nil {
			return nil, err
		}
	}

	fileIDs := filepath.Join(dir, IDListFile)
	ok, err = pathutil.Exists(fileIDs)
	if err != nil {
		return nil, err
	}
	if ok {
		ids, err := ReadIDlistFromFile(fileIDs)
		if err != nil {
			return nil, err
		}
		spans, err := readRecords(filepath.Join(dir, RecordsFile))
		if err != nil {
			return nil, err
		}
		idx.records, err = NewRecords(ids, spans)
		if err != nil {
			return nil, err
		}
	}

	return idx, nil
}

func (idx *FMIndex) writeInfo(file string) error {
	outfh, err := xopen.Wopen(file)
	if err != nil {
		return err
	}
	defer outfh.Close()

	return toml.NewEncoder(outfh).Encode(idx.Info())
}

// --------------------------------------------------------------

var be = binary.BigEndian

// writeIndex writes the BWT, Less and Occ tables.
//
// Header (16 bytes):
//
//	Magic number, 8 bytes, ".fmindex".
//	Main and minor versions, 2 bytes.
//	Blank, 6 bytes.
//
// Data:
//
//	Sequence length n, 8 bytes.
//	Alphabet size σ, 8 bytes.
//	Sampling rate, 8 bytes.
//	Row of the sentinel in BWT, 8 bytes.
//	Less table, 8*(σ+1) bytes.
//	Occ checkpoints, 8*(n/rate+1)*σ bytes.
//	BWT, n bytes.
func (idx *FMIndex) writeIndex(file string) error {
	outfh, err := xopen.Wopen(file)
	if err != nil {
		return err
	}
	defer outfh.Close()

	err = binary.Write(outfh, be, Magic)
	if err != nil {
		return err
	}
	err = binary.Write(outfh, be, [8]uint8{MainVersion, MinorVersion})
	if err != nil {
		return err
	}

	err = binary.Write(outfh, be, [4]uint64{
		uint64(idx.n),
		uint64(idx.alphabet.Size()),
		uint64(idx.occ.rate),
		uint64(idx.occ.primary),
	})
	if err != nil {
		return err
	}

	err = binary.Write(outfh, be, intsToUint64s(idx.less))
	if err != nil {
		return err
	}
	err = binary.Write(outfh, be, idx.occ.checkpoints)
	if err != nil {
		return err
	}

	_, err = outfh.Write(idx.bwt)
	return err
}

func readIndex(file string, a *Alphabet) (*FMIndex, error) {
	fh, err := xopen.Ropen(file)
	if err != nil {
		return nil, err
	}
	defer fh.Close()

	buf := make([]byte, 32)

	// magic number
	_, err = io.ReadFull(fh, buf[:8])
	if err != nil {
		return nil, ErrBrokenFile
	}
	for i := 0; i < 8; i++ {
		if Magic[i] != buf[i] {
			return nil, ErrInvalidFileFormat
		}
	}

	// versions
	_, err = io.ReadFull(fh, buf[:8])
	if err != nil {
		return nil, ErrBrokenFile
	}
	if buf[0] != MainVersion {
		return nil, ErrVersionMismatch
	}

	_, err = io.ReadFull(fh, buf[:32])
	if err != nil {
		return nil, ErrBrokenFile
	}
	n := int(be.Uint64(buf[:8]))
	sigma := int(be.Uint64(buf[8:16]))
	rate := int(be.Uint64(buf[16:24]))
	primary := int(int64(be.Uint64(buf[24:32])))
	if sigma != a.Size() || rate < 1 {
		return nil, ErrInvalidFileFormat
	}

	less, err := readUint64s(fh, sigma+1)
	if err != nil {
		return nil, err
	}
	checkpoints, err := readUint64s(fh, (n/rate+1)*sigma)
	if err != nil {
		return nil, err
	}

	bwt := make([]byte, n)
	_, err = io.ReadFull(fh, bwt)
	if err != nil {
		return nil, ErrBrokenFile
	}

	// the only sentinel
	if primary < 0 || primary >= n || bwt[primary] != Sentinel || bytes.Count(bwt, []byte{Sentinel}) != 1 {
		return nil, ErrInvalidFileFormat
	}

	occ, err := newOccFromCheckpoints(bwt, a, rate, primary, checkpoints)
	if err != nil {
		return nil, err
	}

	_less := make([]int, len(less))
	for i, v := range less {
		_less[i] = int(v)
	}

	return &FMIndex{
		alphabet: a,
		n:        n,
		bwt:      bwt,
		less:     _less,
		occ:      occ,
	}, nil
}

func readUint64s(r io.Reader, n int) ([]uint64, error) {
	vals := make([]uint64, n)
	buf := make([]byte, 8<<10)
	var i, m, j int
	for i < n {
		m = min(n-i, len(buf)>>3)
		_, err := io.ReadFull(r, buf[:m<<3])
		if err != nil {
			return nil, ErrBrokenFile
		}
		for j = 0; j < m; j++ {
			vals[i+j] = be.Uint64(buf[j<<3:])
		}
		i += m
	}
	return vals, nil
}

// writeSA writes the suffix array.
//
// Header (24 bytes):
//
//	Magic number, 8 bytes, ".fm-sa..".
//	Main and minor versions, 2 bytes.
//	Blank, 6 bytes.
//	Number of values, 8 bytes.
//
// Data: pairs of values, each with a control byte and 2-16 bytes.
func (idx *FMIndex) writeSA(file string) error {
	outfh, err := xopen.Wopen(file)
	if err != nil {
		return err
	}
	defer outfh.Close()

	err = binary.Write(outfh, be, MagicSA)
	if err != nil {
		return err
	}
	err = binary.Write(outfh, be, [8]uint8{MainVersion, MinorVersion})
	if err != nil {
		return err
	}
	err = binary.Write(outfh, be, uint64(len(idx.sa)))
	if err != nil {
		return err
	}

	_, err = util.WriteInts(outfh, idx.sa)
	return err
}

func readSA(file string, n int) ([]int, error) {
	fh, err := xopen.Ropen(file)
	if err != nil {
		return nil, err
	}
	defer fh.Close()

	buf := make([]byte, 8)
	_, err = io.ReadFull(fh, buf)
	if err != nil {
		return nil, ErrBrokenFile
	}
	for i := 0; i < 8; i++ {
		if MagicSA[i] != buf[i] {
			return nil, ErrInvalidFileFormat
		}
	}

	_, err = io.ReadFull(fh, buf)
	if err != nil {
		return nil, ErrBrokenFile
	}
	if buf[0] != MainVersion {
		return nil, ErrVersionMismatch
	}

	_, err = io.ReadFull(fh, buf)
	if err != nil {
		return nil, ErrBrokenFile
	}
	if int(be.Uint64(buf)) != n {
		return nil, ErrBrokenFile
	}

	sa, err := util.ReadInts(fh.Reader, n)
	if err != nil {
		return nil, ErrBrokenFile
	}
	return sa, nil
}

// --------------------------------------------------------------

func (idx *FMIndex) writeIDlist(file string) error {
	outfh, err := xopen.Wopen(file)
	if err != nil {
		return err
	}
	defer outfh.Close()

	for _, id := range idx.records.IDs {
		outfh.WriteString(id)
		outfh.WriteByte('\n')
	}

	return nil
}

// ReadIDlistFromFile read ID list from a file
func ReadIDlistFromFile(file string) ([]string, error) {
	fh, err := xopen.Ropen(file)
	if err != nil {
		return nil, err
	}
	defer fh.Close()

	ids := make([]string, 0, 1024)

	scanner := bufio.NewScanner(fh)
	for scanner.Scan() {
		ids = append(ids, scanner.Text())
	}
	return ids, scanner.Err()
}

func (idx *FMIndex) writeRecords(file string) error {
	outfh, err := xopen.Wopen(file)
	if err != nil {
		return err
	}
	defer outfh.Close()

	err = binary.Write(outfh, be, uint64(len(idx.records.Spans)))
	if err != nil {
		return err
	}
	for _, s := range idx.records.Spans {
		err = binary.Write(outfh, be, [2]uint64{uint64(s[0]), uint64(s[1])})
		if err != nil {
			return err
		}
	}
	return nil
}

func readRecords(file string) ([][2]int, error) {
	fh, err := xopen.Ropen(file)
	if err != nil {
		return nil, err
	}
	defer fh.Close()

	vals, err := readUint64s(fh, 1)
	if err != nil {
		return nil, err
	}
	N := int(vals[0])

	vals, err = readUint64s(fh, N<<1)
	if err != nil {
		return nil, err
	}
	spans := make([][2]int, N)
	for i := range spans {
		spans[i] = [2]int{int(vals[i<<1]), int(vals[i<<1+1])}
	}
	return spans, nil
}
