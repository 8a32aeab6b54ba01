// Copyright 2019 Cosmos Nicolaou. All rights reserved.
// Use of this source code is governed by the Apache-2.0
// license that can be found in the LICENSE file.

package bzip2fsm

const (
	// streamMagic0, streamMagic1 are the first two bytes of every stream:
	// 'B', 'Z'.
	streamMagic0 = 'B'
	streamMagic1 = 'Z'

	// streamVersion is the only version byte this codec emits or accepts;
	// 'h' selects the Huffman-coded (post-1.0) variant. The deprecated '0'
	// (pre-Huffman, RLE-only) variant is recognized only far enough to
	// report it as a data error, per the magic-byte Non-goal.
	streamVersion = 'h'

	// blockMagicHi, blockMagicLo are the two 24-bit halves of the 48-bit
	// per-block magic 0x314159265359.
	blockMagicHi = 0x314159
	blockMagicLo = 0x265359

	// eosMagicHi, eosMagicLo split the 48-bit end-of-stream magic
	// 0x177245385090.
	eosMagicHi = 0x177245
	eosMagicLo = 0x385090

	// bzOvershoot pads the end of a block buffer so quadrant/BWT work that
	// reads a few bytes past nblock (wraparound lookahead) never indexes
	// out of range; kept as a named constant even though this
	// implementation's BWT sorter indexes modulo n instead of relying on a
	// physical overshoot region, to document the invariant the original
	// buffer layout depended on.
	bzOvershoot = 20

	// groupSize is the number of MTF symbols per Huffman-table selector
	// group; mirrors groupselect.GroupSize as an untyped constant.
	groupSize = 50
)

// maxBlockSize returns nblockMAX for a given blockSize100k (1..9): the
// largest number of bytes RLE1 may deposit into a block before it must be
// flushed through the BWT/MTF/Huffman pipeline.
func maxBlockSize(blockSize100k int) int {
	return 100000*blockSize100k - 19
}
