// Copyright 2019 Cosmos Nicolaou. All rights reserved.
// Use of this source code is governed by the Apache-2.0
// license that can be found in the LICENSE file.

package bzip2fsm

// rle1Encoder implements the first of bzip2's two run-length passes: runs of
// up to 255 identical input bytes are compacted to at most 4 literal bytes
// plus a trailing count byte, done before the BWT sees the data so the sort
// never has to deal with pathologically long literal runs.
type rle1Encoder struct {
	ch  int // current run's byte value, -1 when idle
	len int // current run's length so far, 1..255
}

func (e *rle1Encoder) reset() {
	e.ch = -1
	e.len = 0
}

// encode appends the RLE1 encoding of in to dst. It never flushes the
// trailing partial run on its own; call flush for that once the input for
// the current block is exhausted.
func (e *rle1Encoder) encode(in []byte, dst []byte) []byte {
	for _, b := range in {
		if e.ch == -1 {
			e.ch = int(b)
			e.len = 1
			continue
		}
		if int(b) == e.ch && e.len < 255 {
			e.len++
			continue
		}
		dst = e.flush(dst)
		e.ch = int(b)
		e.len = 1
	}
	return dst
}

// flush emits the run in progress, if any, and resets to idle.
func (e *rle1Encoder) flush(dst []byte) []byte {
	if e.ch == -1 {
		return dst
	}
	lit := e.len
	if lit > 4 {
		lit = 4
	}
	for i := 0; i < lit; i++ {
		dst = append(dst, byte(e.ch))
	}
	if e.len >= 4 {
		dst = append(dst, byte(e.len-4))
	}
	e.ch = -1
	e.len = 0
	return dst
}

// rle1Decoder inverts rle1Encoder: it watches for four consecutive
// identical bytes and, on the byte immediately following them, treats it as
// a repeat count rather than a literal.
type rle1Decoder struct {
	last   int // byte value of the run currently being tracked, -1 if none
	runLen int // consecutive occurrences of last seen so far, capped at 4
}

func (d *rle1Decoder) reset() {
	d.last = -1
	d.runLen = 0
}

// step processes one decoded byte and appends the expanded bytes to dst.
func (d *rle1Decoder) step(b byte, dst []byte) []byte {
	if d.runLen == 4 {
		count := int(b)
		for i := 0; i < count; i++ {
			dst = append(dst, byte(d.last))
		}
		d.runLen = 0
		d.last = -1
		return dst
	}
	if int(b) == d.last {
		d.runLen++
	} else {
		d.last = int(b)
		d.runLen = 1
	}
	return append(dst, b)
}
