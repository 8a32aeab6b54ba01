// Copyright 2019 Cosmos Nicolaou. All rights reserved.
// Use of this source code is governed by the Apache-2.0
// license that can be found in the LICENSE file.

// Package mtf implements the post-BWT move-to-front transform and its
// RUNA/RUNB zero-run encoding, in both directions: Encoder walks a sorted
// block and produces the MTF/RUNA-RUNB symbol stream the Huffman stage
// compresses, and Decoder inverts that stream back into the BWT-domain byte
// array using the segmented-ring representation the original implementation
// uses to keep move-to-front updates cheap.
package mtf

const (
	// RUNA and RUNB are the two symbols used to run-length encode
	// consecutive zero MTF ranks in bijective base-2.
	RUNA = 0
	RUNB = 1

	// mtflSize is the width of one ring segment; mtfaSize gives each of the
	// 256/mtflSize segments sixteen-fold headroom to grow into when symbols
	// shift across a segment boundary during Decode.
	mtflSize = 16
	mtfaSize = 4096
)

// Encoder produces the MTF-ranked, RUNA/RUNB run-length-encoded symbol
// stream for one block, given the set of byte values actually present.
type Encoder struct {
	yy     [256]byte
	nInUse int
}

// Init resets the encoder for a new block; present lists the distinct byte
// values in the block in ascending order (the "in-use" alphabet).
func (e *Encoder) Init(present []byte) {
	e.nInUse = len(present)
	copy(e.yy[:], present)
}

// Encode walks seq (the BWT output as literal byte values, each ranked
// against the in-use alphabet passed to Init) and appends the resulting
// MTF/RUNA-RUNB symbol stream, terminated by EOB = nInUse+1, to dst.
func (e *Encoder) Encode(seq []byte, dst []uint16) []uint16 {
	zPend := 0
	flush := func() {
		if zPend == 0 {
			return
		}
		run := zPend - 1
		zPend = 0
		for {
			if run&1 != 0 {
				dst = append(dst, RUNB)
			} else {
				dst = append(dst, RUNA)
			}
			if run < 2 {
				break
			}
			run = (run - 2) / 2
		}
	}

	for _, b := range seq {
		j := 0
		for e.yy[j] != b {
			j++
		}
		tmp := e.yy[j]
		copy(e.yy[1:j+1], e.yy[0:j])
		e.yy[0] = tmp

		if j == 0 {
			zPend++
			continue
		}
		flush()
		dst = append(dst, uint16(j+1))
	}
	flush()
	dst = append(dst, uint16(e.nInUse+1))
	return dst
}

// Decoder inverts the MTF/RUNA-RUNB stream back into BWT-domain bytes,
// using a segmented ring (mtfa/mtfbase) so that the common case - a literal
// rank near the front of the list - only touches a handful of array slots
// instead of re-walking the whole alphabet.
type Decoder struct {
	mtfa    [mtfaSize]byte
	mtfbase [256 / mtflSize]int
	nInUse  int

	runLen uint64
	runPow uint64
	inRun  bool
}

// Init resets the decoder for a new block; present lists the distinct byte
// values in ascending order, exactly as passed to Encoder.Init.
func (d *Decoder) Init(present []byte) {
	d.nInUse = len(present)
	d.runLen = 0
	d.runPow = 0
	d.inRun = false

	kk := mtfaSize - 1
	for ii := 256/mtflSize - 1; ii >= 0; ii-- {
		for jj := mtflSize - 1; jj >= 0; jj-- {
			sym := ii*mtflSize + jj
			if sym < len(present) {
				d.mtfa[kk] = present[sym]
			}
			kk--
		}
		d.mtfbase[ii] = kk + 1
	}
}

// EOB is the symbol value that terminates the stream for this block.
func (d *Decoder) EOB() int {
	return d.nInUse + 1
}

// front returns the byte value currently at MTF rank 0 without moving it;
// used while accumulating a RUNA/RUNB run, since every repeated symbol in
// the run resolves to whatever sits at the front of the list.
func (d *Decoder) front() byte {
	return d.mtfa[d.mtfbase[0]]
}

// moveToFront promotes the value at MTF rank nn (0-based, after subtracting
// the RUNA/RUNB reservation) to the front of the ring, returning it.
func (d *Decoder) moveToFront(nn int) byte {
	if nn < mtflSize {
		pp := d.mtfbase[0]
		uc := d.mtfa[pp+nn]
		for nn > 0 {
			d.mtfa[pp+nn] = d.mtfa[pp+nn-1]
			nn--
		}
		d.mtfa[pp] = uc
		return uc
	}

	lno := nn / mtflSize
	off := nn % mtflSize
	pp := d.mtfbase[lno] + off
	uc := d.mtfa[pp]
	for pp > d.mtfbase[lno] {
		d.mtfa[pp] = d.mtfa[pp-1]
		pp--
	}
	d.mtfbase[lno]++
	for lno > 0 {
		d.mtfbase[lno]--
		d.mtfa[d.mtfbase[lno]] = d.mtfa[d.mtfbase[lno-1]+mtflSize-1]
		lno--
	}
	d.mtfbase[0]--
	d.mtfa[d.mtfbase[0]] = uc
	if d.mtfbase[0] == 0 {
		kk := mtfaSize - 1
		for ii := 256/mtflSize - 1; ii >= 0; ii-- {
			for jj := mtflSize - 1; jj >= 0; jj-- {
				d.mtfa[kk] = d.mtfa[d.mtfbase[ii]+jj]
				kk--
			}
			d.mtfbase[ii] = kk + 1
		}
	}
	return uc
}

// Step feeds one decoded Huffman symbol into the MTF state. For a literal
// symbol (2..nInUse) it moves MTF rank sym-1 to the front and returns that
// byte with eob=false; for EOB it returns eob=true. Step handles only
// literal symbols and EOB; RUNA/RUNB must go through BeginRun/ContinueRun.
func (d *Decoder) Step(sym int) (b byte, eob bool) {
	if sym == d.EOB() {
		return 0, true
	}
	return d.moveToFront(sym - 1), false
}

// BeginRun and ContinueRun implement the bijective base-2 accumulation of a
// RUNA/RUNB run: the caller calls BeginRun on the first RUNA/RUNB symbol of
// a run and ContinueRun on every subsequent one, then calls RunLength once a
// non-RUNA/RUNB symbol (or EOB) is decoded to get the total repeat count and
// the byte value to repeat.
func (d *Decoder) BeginRun(sym int) {
	d.inRun = true
	d.runLen = 0
	d.runPow = 1
	d.addRunSymbol(sym)
}

// ContinueRun folds another RUNA/RUNB symbol into the run in progress.
func (d *Decoder) ContinueRun(sym int) {
	d.addRunSymbol(sym)
}

// addRunSymbol folds one more bit of the bijective base-2 run length into
// the accumulator: RUNB contributes the current power of two, RUNA
// contributes nothing, and the power doubles after every symbol regardless
// of which one it was. Once the run ends, the total repeat count is
// runLen + runPow - 1 (the "- 1" undoes the implicit leading one bit that
// the encoder never transmits).
func (d *Decoder) addRunSymbol(sym int) {
	if sym == RUNB {
		d.runLen += d.runPow
	}
	d.runPow <<= 1
}

// InRun reports whether a RUNA/RUNB run is currently being accumulated.
func (d *Decoder) InRun() bool {
	return d.inRun
}

// EndRun finalizes the run in progress, returning the repeated byte value
// and the number of times it repeats.
func (d *Decoder) EndRun() (b byte, count int) {
	d.inRun = false
	return d.front(), int(d.runLen + d.runPow - 1)
}
