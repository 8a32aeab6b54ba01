// Copyright 2020 Cosmos Nicolaou. All rights reserved.
// Use of this source code is governed by the Apache-2.0
// license that can be found in the LICENSE file.

package bitstream

// Writer packs values MSB-first into a byte slice via a 32-bit shift
// register, mirroring the BZ2_bsW bit packer the wire format was designed
// around: the register holds `live` bits left-justified at the top of buf,
// and WriteBits spills whole bytes to Out as soon as eight bits accumulate.
type Writer struct {
	buf  uint32
	live uint
	Out  []byte
}

// Reset clears the writer, retaining the underlying Out slice's capacity.
func (w *Writer) Reset() {
	w.buf = 0
	w.live = 0
	w.Out = w.Out[:0]
}

// WriteBits appends the low n bits of v (n in 1..24) to the stream.
func (w *Writer) WriteBits(n uint, v uint32) {
	v &= (1 << n) - 1
	w.buf |= v << (32 - w.live - n)
	w.live += n
	for w.live >= 8 {
		w.Out = append(w.Out, byte(w.buf>>24))
		w.buf <<= 8
		w.live -= 8
	}
}

// WriteBits64 writes the low n bits of v for fields wider than 24 bits (the
// 32-bit CRCs and the 48-bit block and end-of-stream magic numbers),
// recursing so the bits go out, most significant first, as WriteBits calls
// of at most 24 bits each.
func (w *Writer) WriteBits64(n uint, v uint64) {
	if n > 24 {
		w.WriteBits64(n-24, v>>24)
		w.WriteBits(24, uint32(v))
		return
	}
	w.WriteBits(n, uint32(v))
}

// Finish flushes any partial trailing byte, zero-padded on the low bits.
func (w *Writer) Finish() {
	if w.live > 0 {
		w.Out = append(w.Out, byte(w.buf>>24))
		w.buf = 0
		w.live = 0
	}
}

// BitLen returns the total number of bits written so far, including any
// still held in the register.
func (w *Writer) BitLen() int {
	return len(w.Out)*8 + int(w.live)
}
