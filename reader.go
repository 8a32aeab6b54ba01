// Copyright 2019 Cosmos Nicolaou. All rights reserved.
// Use of this source code is governed by the Apache-2.0
// license that can be found in the LICENSE file.

package bzip2fsm

import (
	"errors"

	"github.com/blocksort/bzip2fsm/internal/bitstream"
	"github.com/blocksort/bzip2fsm/internal/bwt"
	"github.com/blocksort/bzip2fsm/internal/crc32x"
	"github.com/blocksort/bzip2fsm/internal/groupselect"
	"github.com/blocksort/bzip2fsm/internal/huffman"
	"github.com/blocksort/bzip2fsm/internal/mtf"
	"github.com/blocksort/bzip2fsm/internal/randtable"
)

// errUnderflow signals that a parse attempt ran out of buffered input before
// finishing a complete unit (the stream header, one block, or the EOS
// trailer); Decompress retains whatever it had not yet committed and waits
// for more bytes rather than surfacing this as a caller-visible error.
var errUnderflow = errors.New("bzip2fsm: need more input")

// Reader is the streaming bzip2 decoder. Rather than resuming mid-block at
// the granularity of every single bit, it buffers at most one compressed
// block's worth of pending bytes and re-parses that block from its start
// whenever more input is required; the underlying bitstream.Reader register
// and huffman.Table.Decode savepoints still make a single parse attempt
// itself resumable one bit at a time, but across Decompress calls this
// implementation trades true O(1) resumption for a simpler, easier-to-get-
// right retry loop. See DESIGN.md for the rationale.
type Reader struct {
	cfg DecompressConfig

	pending  []byte
	bitOff   uint // bits of pending[0] already consumed by the previous unit
	outQueue []byte
	outSent  int

	headerParsed  bool
	blockSize100k int
	combinedCRC   uint32
	done          bool
}

// NewReader validates cfg and returns a ready-to-use decoder.
func NewReader(cfg DecompressConfig) (*Reader, error) {
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &Reader{cfg: cfg}, nil
}

// Done reports whether the end-of-stream trailer has been seen and
// verified.
func (r *Reader) Done() bool {
	return r.done
}

// Decompress appends src to the decoder's pending input, decodes as many
// complete blocks as the buffered bytes allow, and copies up to len(dst)
// bytes of decoded output into dst. Call it again with a nil src to drain
// any output that didn't fit, and again with more src once Decompress has
// reported it needs it (src is always reported as fully consumed, since it
// is appended to an internal buffer; use the returned produced count and
// Done to drive the loop).
func (r *Reader) Decompress(dst, src []byte) (consumed, produced int, done bool, err error) {
	if len(src) > 0 {
		if r.done {
			return 0, 0, r.done, &SequenceError{Detail: "Decompress called with input after STREAM_END"}
		}
		r.pending = append(r.pending, src...)
		consumed = len(src)
	}

	for !r.done {
		cur := &bitstream.Cursor{Data: r.pending}
		var br bitstream.Reader
		if _, ok := br.ReadBits(cur, r.bitOff); !ok {
			break
		}
		n, perr := r.parseUnit(&br, cur)
		if perr == errUnderflow {
			break
		}
		if perr != nil {
			return consumed, 0, r.done, perr
		}
		bitPos := n*8 - int(br.Live())
		r.pending = r.pending[bitPos/8:]
		r.bitOff = uint(bitPos % 8)
	}

	produced = copy(dst, r.outQueue[r.outSent:])
	r.outSent += produced
	if r.outSent == len(r.outQueue) {
		r.outQueue = r.outQueue[:0]
		r.outSent = 0
	}
	return consumed, produced, r.done, nil
}

func (r *Reader) parseUnit(br *bitstream.Reader, cur *bitstream.Cursor) (int, error) {
	if !r.headerParsed {
		return r.parseStreamHeader(br, cur)
	}
	return r.parseBlockOrEOS(br, cur)
}

func (r *Reader) parseStreamHeader(br *bitstream.Reader, cur *bitstream.Cursor) (int, error) {
	b0, ok := br.ReadBits(cur, 8)
	if !ok {
		return 0, errUnderflow
	}
	b1, ok := br.ReadBits(cur, 8)
	if !ok {
		return 0, errUnderflow
	}
	ver, ok := br.ReadBits(cur, 8)
	if !ok {
		return 0, errUnderflow
	}
	k, ok := br.ReadBits(cur, 8)
	if !ok {
		return 0, errUnderflow
	}
	if b0 != streamMagic0 || b1 != streamMagic1 {
		return 0, &StructuralError{Result: MagicError, Detail: "bad stream magic"}
	}
	if ver != streamVersion {
		return 0, &StructuralError{Result: MagicError, Detail: "unsupported stream version byte"}
	}
	if k < '1' || k > '9' {
		return 0, &StructuralError{Result: MagicError, Detail: "bad block size digit"}
	}
	r.blockSize100k = int(k - '0')
	r.headerParsed = true
	return cur.Pos, nil
}

func (r *Reader) parseBlockOrEOS(br *bitstream.Reader, cur *bitstream.Cursor) (int, error) {
	hi, ok := br.ReadBits(cur, 24)
	if !ok {
		return 0, errUnderflow
	}
	lo, ok := br.ReadBits(cur, 24)
	if !ok {
		return 0, errUnderflow
	}
	magic := uint64(hi)<<24 | uint64(lo)
	switch magic {
	case uint64(blockMagicHi)<<24 | uint64(blockMagicLo):
		return r.parseBlock(br, cur)
	case uint64(eosMagicHi)<<24 | uint64(eosMagicLo):
		return r.parseEOS(br, cur)
	default:
		return 0, &StructuralError{Result: MagicError, Detail: "bad block/EOS magic"}
	}
}

func (r *Reader) parseEOS(br *bitstream.Reader, cur *bitstream.Cursor) (int, error) {
	crc, ok := br.ReadBits(cur, 32)
	if !ok {
		return 0, errUnderflow
	}
	if crc != r.combinedCRC {
		return 0, &StructuralError{Result: DataError, Detail: "combined stream CRC mismatch"}
	}
	r.done = true
	return cur.Pos, nil
}

// parseBlock decodes exactly one compressed block, from its header through
// its trailing symbol, appending the recovered bytes to r.outQueue. It never
// leaves partial output queued for a block whose parse it has to abandon:
// either the whole block decodes or the attempt reports errUnderflow and is
// retried in full once more input arrives.
func (r *Reader) parseBlock(br *bitstream.Reader, cur *bitstream.Cursor) (int, error) {
	blockCRCWant, ok := br.ReadBits(cur, 32)
	if !ok {
		return 0, errUnderflow
	}
	randomised, ok := br.ReadBits(cur, 1)
	if !ok {
		return 0, errUnderflow
	}
	origPtrV, ok := br.ReadBits(cur, 24)
	if !ok {
		return 0, errUnderflow
	}

	top, ok := br.ReadBits(cur, 16)
	if !ok {
		return 0, errUnderflow
	}
	var present []byte
	for g := 0; g < 16; g++ {
		if top&(1<<uint(15-g)) == 0 {
			continue
		}
		bits, ok := br.ReadBits(cur, 16)
		if !ok {
			return 0, errUnderflow
		}
		for b := 0; b < 16; b++ {
			if bits&(1<<uint(15-b)) != 0 {
				present = append(present, byte(g*16+b))
			}
		}
	}
	if len(present) == 0 {
		return 0, &StructuralError{Result: DataError, Detail: "empty in-use map"}
	}
	alphaSize := len(present) + 2

	nGroupsV, ok := br.ReadBits(cur, 3)
	if !ok {
		return 0, errUnderflow
	}
	nGroups := int(nGroupsV)
	if nGroups < 2 || nGroups > 6 {
		return 0, &StructuralError{Result: DataError, Detail: "nGroups out of range"}
	}

	nSelectorsV, ok := br.ReadBits(cur, 15)
	if !ok {
		return 0, errUnderflow
	}
	nSelectors := int(nSelectorsV)
	if nSelectors < 1 {
		return 0, &StructuralError{Result: DataError, Detail: "nSelectors out of range"}
	}

	ranks := make([]byte, nSelectors)
	for i := range ranks {
		j := byte(0)
		for {
			bit, ok := br.ReadBit(cur)
			if !ok {
				return 0, errUnderflow
			}
			if bit == 0 {
				break
			}
			j++
			if int(j) >= nGroups {
				return 0, &StructuralError{Result: DataError, Detail: "selector MTF rank out of range"}
			}
		}
		ranks[i] = j
	}
	selectors := groupselect.UnMTFSelectors(ranks, nGroups)

	tables := make([]*huffman.Table, nGroups)
	for t := 0; t < nGroups; t++ {
		lengths, lerr := readCodeLengths(br, cur, alphaSize)
		if lerr != nil {
			return 0, lerr
		}
		tables[t] = huffman.NewTable(lengths)
	}

	var mdec mtf.Decoder
	mdec.Init(present)
	eob := mdec.EOB()

	var bwtBytes []byte
	groupIdx := -1
	posInGroup := 0
	var zn int
	var zvec uint32
	for {
		if posInGroup == 0 {
			groupIdx++
			if groupIdx >= nSelectors {
				return 0, &StructuralError{Result: DataError, Detail: "symbol stream exceeded declared selector count"}
			}
		}
		table := tables[selectors[groupIdx]]

		sym, ok, derr := table.Decode(br, cur, &zn, &zvec)
		if derr != nil {
			return 0, &StructuralError{Result: DataError, Detail: derr.Error()}
		}
		if !ok {
			return 0, errUnderflow
		}

		posInGroup++
		if posInGroup == groupSize {
			posInGroup = 0
		}

		if sym == mtf.RUNA || sym == mtf.RUNB {
			if !mdec.InRun() {
				mdec.BeginRun(sym)
			} else {
				mdec.ContinueRun(sym)
			}
			continue
		}
		if mdec.InRun() {
			b, count := mdec.EndRun()
			for i := 0; i < count; i++ {
				bwtBytes = append(bwtBytes, b)
			}
		}
		if sym == eob {
			break
		}
		b, _ := mdec.Step(sym)
		bwtBytes = append(bwtBytes, b)
	}

	if int(origPtrV) < 0 || int(origPtrV) >= len(bwtBytes) {
		return 0, &StructuralError{Result: DataError, Detail: "origPtr out of range"}
	}

	var blk []byte
	if r.cfg.Small {
		blk = bwt.InverseTransformSmall(bwtBytes, int(origPtrV))
	} else {
		blk = bwt.InverseTransform(bwtBytes, int(origPtrV))
	}
	if randomised != 0 {
		c := randtable.NewCursor()
		randtable.Apply(c, blk)
	}

	var rdec rle1Decoder
	rdec.reset()
	var expanded []byte
	for _, b := range blk {
		expanded = rdec.step(b, expanded)
	}

	var crc crc32x.CRC
	crc.Update(expanded)
	if crc.Sum() != blockCRCWant {
		return 0, &StructuralError{Result: DataError, Detail: "block CRC mismatch"}
	}

	r.combinedCRC = crc32x.CombineBlock(r.combinedCRC, blockCRCWant)
	r.outQueue = append(r.outQueue, expanded...)
	if r.cfg.Verbosity > 0 {
		r.cfg.logger().Info("decoded block", "bytes", len(expanded), "groups", nGroups, "randomised", randomised != 0)
	}
	return cur.Pos, nil
}

// readCodeLengths decodes one table's code-length array: a 5-bit starting
// length followed by, for every symbol, a run of "10"/"11" deltas
// terminated by a "0" bit, per §4.3/§6.
func readCodeLengths(br *bitstream.Reader, cur *bitstream.Cursor, alphaSize int) ([]byte, error) {
	currV, ok := br.ReadBits(cur, 5)
	if !ok {
		return nil, errUnderflow
	}
	curr := int(currV)
	lengths := make([]byte, alphaSize)
	for i := 0; i < alphaSize; i++ {
		for {
			bit1, ok := br.ReadBit(cur)
			if !ok {
				return nil, errUnderflow
			}
			if bit1 == 0 {
				break
			}
			bit2, ok := br.ReadBit(cur)
			if !ok {
				return nil, errUnderflow
			}
			if bit2 == 0 {
				curr++
			} else {
				curr--
			}
			if curr < 1 || curr > huffman.MaxCodeLen {
				return nil, &StructuralError{Result: DataError, Detail: "code length delta out of range"}
			}
		}
		lengths[i] = byte(curr)
	}
	return lengths, nil
}
