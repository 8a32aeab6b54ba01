// Copyright 2019 Cosmos Nicolaou. All rights reserved.
// Use of this source code is governed by the Apache-2.0
// license that can be found in the LICENSE file.

package bzip2fsm

import (
	"github.com/blocksort/bzip2fsm/internal/bitstream"
	"github.com/blocksort/bzip2fsm/internal/bwt"
	"github.com/blocksort/bzip2fsm/internal/crc32x"
	"github.com/blocksort/bzip2fsm/internal/groupselect"
	"github.com/blocksort/bzip2fsm/internal/mtf"
)

// Writer is the streaming bzip2 encoder. It never holds more than one block
// of pending input plus that block's compressed image: input bytes are
// folded into the current block via RLE1 as they arrive, and the block is
// driven through BWT, MTF/RUNA-RUNB and multi-table Huffman coding the
// moment it reaches its configured size (or the caller forces a flush).
type Writer struct {
	cfg CompressConfig
	bw  bitstream.Writer
	sent int // bytes of bw.Out already copied out via Compress

	rle      rle1Encoder
	block    []byte
	blockCRC crc32x.CRC

	combinedCRC   uint32
	blockCount    int
	headerWritten bool
	finished      bool
	maxBlock      int
}

// NewWriter validates cfg and returns a ready-to-use encoder.
func NewWriter(cfg CompressConfig) (*Writer, error) {
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	w := &Writer{cfg: cfg, maxBlock: maxBlockSize(cfg.BlockSize100k)}
	w.rle.reset()
	return w, nil
}

// Compress feeds src into the encoder and copies as much compressed output
// as fits into dst, returning how many bytes of each were used. action
// controls whether the call also forces a block boundary (Flush) or the
// end-of-stream trailer (Finish); Run just accepts input.
func (w *Writer) Compress(dst, src []byte, action Action) (consumed, produced int, err error) {
	if w.finished {
		if len(src) > 0 {
			return 0, 0, &SequenceError{Detail: "Compress called with input after Finish"}
		}
		produced = copy(dst, w.bw.Out[w.sent:])
		w.sent += produced
		return 0, produced, nil
	}

	for consumed < len(src) {
		b := src[consumed]
		w.blockCRC.UpdateByte(b)
		w.block = w.rle.encode(src[consumed:consumed+1], w.block)
		consumed++
		if len(w.block) >= w.maxBlock {
			w.compressOneBlock()
		}
	}

	switch action {
	case Run:
	case Flush:
		if len(w.block) > 0 || w.rle.len > 0 {
			w.compressOneBlock()
		}
	case Finish:
		if len(w.block) > 0 || w.rle.len > 0 {
			w.compressOneBlock()
		}
		w.writeStreamHeaderIfNeeded()
		w.writeEOS()
		w.bw.Finish()
		w.finished = true
	default:
		return consumed, 0, &ParamError{Detail: "invalid action"}
	}

	produced = copy(dst, w.bw.Out[w.sent:])
	w.sent += produced
	return consumed, produced, nil
}

// Pending reports how many compressed bytes are buffered and not yet
// delivered via Compress; callers driving a fixed-size output buffer can use
// this to keep calling Compress with empty src until it reaches zero.
func (w *Writer) Pending() int {
	return len(w.bw.Out) - w.sent
}

func (w *Writer) writeStreamHeaderIfNeeded() {
	if w.headerWritten {
		return
	}
	w.bw.WriteBits(8, streamMagic0)
	w.bw.WriteBits(8, streamMagic1)
	w.bw.WriteBits(8, streamVersion)
	w.bw.WriteBits(8, uint32('0'+w.cfg.BlockSize100k))
	w.headerWritten = true
}

func (w *Writer) writeEOS() {
	w.bw.WriteBits64(48, uint64(eosMagicHi)<<24|uint64(eosMagicLo))
	w.bw.WriteBits64(32, uint64(w.combinedCRC))
}

// compressOneBlock runs the full pipeline - RLE1 flush, BWT, MTF/RUNA-RUNB,
// group selection and Huffman coding - over the block accumulated so far and
// appends its bit-packed image to the stream.
func (w *Writer) compressOneBlock() {
	w.block = w.rle.flush(w.block)
	if len(w.block) == 0 {
		return
	}
	w.writeStreamHeaderIfNeeded()

	blk := w.block
	w.block = nil

	present := presentBytes(blk)
	result := bwt.TransformWithBudget(blk, w.cfg.workFactor())

	var enc mtf.Encoder
	enc.Init(present)
	syms := enc.Encode(result.BWT, nil)
	alphaSize := len(present) + 2

	grp := groupselect.Select(syms, alphaSize)

	blockCRC := w.blockCRC.Sum()
	w.blockCRC.Reset()
	w.combinedCRC = crc32x.CombineBlock(w.combinedCRC, blockCRC)
	w.blockCount++
	if w.cfg.Verbosity > 0 {
		w.cfg.logger().Info("compressed block", "block", w.blockCount, "bytes", len(blk), "groups", grp.NGroups)
	}

	w.bw.WriteBits64(48, uint64(blockMagicHi)<<24|uint64(blockMagicLo))
	w.bw.WriteBits64(32, uint64(blockCRC))
	w.bw.WriteBits(1, 0) // randomised: this encoder never sets it
	w.bw.WriteBits(24, uint32(result.OrigPtr))

	writeInUseMap(&w.bw, present)

	w.bw.WriteBits(3, uint32(grp.NGroups))
	w.bw.WriteBits(15, uint32(len(grp.Selectors)))
	writeSelectors(&w.bw, grp.Selectors, grp.NGroups)

	for _, t := range grp.Tables {
		writeCodeLengths(&w.bw, t.Lengths)
	}

	writeSymbolStream(&w.bw, syms, grp)
}

// presentBytes returns the distinct byte values in blk, ascending.
func presentBytes(blk []byte) []byte {
	var seen [256]bool
	for _, b := range blk {
		seen[b] = true
	}
	present := make([]byte, 0, 256)
	for i := 0; i < 256; i++ {
		if seen[i] {
			present = append(present, byte(i))
		}
	}
	return present
}

// writeInUseMap emits the 16-bit group bitmap followed by a 16-bit
// membership bitmap for every group that has at least one member present.
func writeInUseMap(bw *bitstream.Writer, present []byte) {
	var inGroup [16]bool
	var groupBits [16]uint32
	for _, b := range present {
		g := int(b) / 16
		inGroup[g] = true
		groupBits[g] |= 1 << uint(15-int(b)%16)
	}
	var top uint32
	for g := 0; g < 16; g++ {
		if inGroup[g] {
			top |= 1 << uint(15-g)
		}
	}
	bw.WriteBits(16, top)
	for g := 0; g < 16; g++ {
		if inGroup[g] {
			bw.WriteBits(16, groupBits[g])
		}
	}
}

// writeSelectors MTF-encodes the group selector sequence and writes each
// rank as a unary code (j ones then a zero).
func writeSelectors(bw *bitstream.Writer, selectors []byte, nGroups int) {
	ranks := groupselect.MTFSelectors(selectors, nGroups)
	for _, j := range ranks {
		for k := byte(0); k < j; k++ {
			bw.WriteBits(1, 1)
		}
		bw.WriteBits(1, 0)
	}
}

// writeCodeLengths emits one table's code lengths as a 5-bit starting value
// followed by, per symbol, a run of "10"/"11" deltas (bringing the running
// length up or down to that symbol's length) terminated by a "0" bit.
func writeCodeLengths(bw *bitstream.Writer, lengths []byte) {
	curr := int(lengths[0])
	bw.WriteBits(5, uint32(curr))
	for _, l := range lengths {
		target := int(l)
		for curr < target {
			bw.WriteBits(2, 2) // "10"
			curr++
		}
		for curr > target {
			bw.WriteBits(2, 3) // "11"
			curr--
		}
		bw.WriteBits(1, 0)
	}
}

// writeSymbolStream encodes syms, GroupSize symbols at a time, using the
// Huffman table the group's selector names.
func writeSymbolStream(bw *bitstream.Writer, syms []uint16, grp *groupselect.Result) {
	for gi, sel := range grp.Selectors {
		gs := gi * groupSize
		ge := gs + groupSize
		if ge > len(syms) {
			ge = len(syms)
		}
		table := grp.Tables[sel]
		for _, s := range syms[gs:ge] {
			table.Encode(bw, int(s))
		}
	}
}
