// Copyright 2019 Cosmos Nicolaou. All rights reserved.
// Use of this source code is governed by the Apache-2.0
// license that can be found in the LICENSE file.

// Package crc32x implements the big-endian bzip2 CRC-32 convention on top of
// the standard library's reflected IEEE table: every byte (and the running
// register) is bit-reversed before handing it to crc32.Update, and the
// result is bit-reversed back, the same trick
// cosnicolaou-pbzip2/internal/bzip2/crc.go uses to avoid hand-rolling a
// second, non-reflected table.
package crc32x

import (
	"hash/crc32"
	"math/bits"
)

// CRC accumulates the bzip2 block checksum over a sequence of Update calls.
// Its zero value is the correctly finalized CRC of zero bytes.
type CRC struct {
	val uint32
	buf [256]byte
}

// Update folds buf into the running checksum. val is kept between calls in
// already-finalized (bit-reversed, complemented) form; crc32.Update's own
// complement-on-entry/complement-on-exit behavior is what lets repeated
// calls chain correctly despite that.
func (c *CRC) Update(buf []byte) {
	cval := bits.Reverse32(c.val)
	for len(buf) > 0 {
		n := copy(c.buf[:], buf)
		buf = buf[n:]
		for i, b := range c.buf[:n] {
			c.buf[i] = bits.Reverse8(b)
		}
		cval = crc32.Update(cval, crc32.IEEETable, c.buf[:n])
	}
	c.val = bits.Reverse32(cval)
}

// UpdateByte folds a single byte into the running checksum; used by the RLE1
// front end, which updates the CRC over logical (pre-run-length) bytes one at
// a time as they are produced.
func (c *CRC) UpdateByte(b byte) {
	var one [1]byte
	one[0] = b
	c.Update(one[:])
}

// Sum returns the finalized checksum.
func (c *CRC) Sum() uint32 {
	return c.val
}

// Reset restores the CRC to its initial state, ready for the next block.
func (c *CRC) Reset() {
	c.val = 0
}

// CombineBlock folds a finalized per-block CRC into a running combined
// stream CRC: combined = rotl1(combined) XOR blockCRC.
func CombineBlock(combined, blockCRC uint32) uint32 {
	return (combined<<1 | combined>>31) ^ blockCRC
}
