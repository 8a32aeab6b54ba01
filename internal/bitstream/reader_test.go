// Copyright 2020 Cosmos Nicolaou. All rights reserved.
// Use of this source code is governed by the Apache-2.0
// license that can be found in the LICENSE file.

package bitstream

import (
	"math/rand"
	"testing"
)

func TestWriterReaderRoundTrip(t *testing.T) {
	for _, tc := range []struct {
		widths []uint
		vals   []uint32
	}{
		{[]uint{1}, []uint32{1}},
		{[]uint{8, 8, 8}, []uint32{0x42, 0x5a, 0x68}},
		{[]uint{3, 15, 1, 24}, []uint32{6, 12345, 1, 0xabcdef}},
		{[]uint{1, 1, 1, 1, 1, 1, 1, 1, 1}, []uint32{1, 0, 1, 0, 1, 1, 1, 0, 0}},
	} {
		var w Writer
		for i, width := range tc.widths {
			w.WriteBits(width, tc.vals[i])
		}
		w.Finish()

		var r Reader
		c := &Cursor{Data: w.Out}
		for i, width := range tc.widths {
			got, ok := r.ReadBits(c, width)
			if !ok {
				t.Fatalf("case %d: unexpected suspension reading field %d", 0, i)
			}
			if want := tc.vals[i] & ((1 << width) - 1); got != want {
				t.Errorf("field %d: got %x, want %x", i, got, want)
			}
		}
	}
}

func TestReaderSuspendsOnUnderflow(t *testing.T) {
	var w Writer
	w.WriteBits(24, 0xabcdef)
	w.Finish()

	var r Reader
	c := &Cursor{Data: w.Out[:1]}
	if _, ok := r.ReadBits(c, 24); ok {
		t.Fatalf("expected suspension with only one byte available")
	}
	if c.Pos != 1 {
		t.Fatalf("expected the single available byte to be consumed into the register, got Pos=%d", c.Pos)
	}

	// Feed the rest and confirm the register retained the first byte.
	c2 := &Cursor{Data: w.Out[1:]}
	got, ok := r.ReadBits(c2, 24)
	if !ok {
		t.Fatalf("expected read to complete once the rest of the input arrives")
	}
	if got != 0xabcdef {
		t.Errorf("got %x, want %x", got, 0xabcdef)
	}
}

func TestWriterReaderRandom(t *testing.T) {
	rnd := rand.New(rand.NewSource(1))
	var widths []uint
	var vals []uint32
	var w Writer
	for i := 0; i < 2000; i++ {
		width := uint(1 + rnd.Intn(24))
		val := rnd.Uint32() & ((1 << width) - 1)
		widths = append(widths, width)
		vals = append(vals, val)
		w.WriteBits(width, val)
	}
	w.Finish()

	var r Reader
	// Feed the reader in small, ragged chunks to exercise resumption.
	c := &Cursor{}
	data := w.Out
	pos := 0
	for i := range widths {
		for {
			got, ok := r.ReadBits(c, widths[i])
			if ok {
				if got != vals[i] {
					t.Fatalf("value %d: got %x, want %x", i, got, vals[i])
				}
				break
			}
			if pos >= len(data) {
				t.Fatalf("value %d: ran out of input before completing read", i)
			}
			n := 1 + rnd.Intn(3)
			if pos+n > len(data) {
				n = len(data) - pos
			}
			c.Data = data[pos : pos+n]
			c.Pos = 0
			pos += n
		}
	}
}
