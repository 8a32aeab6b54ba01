// Copyright 2011 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package huffman

import (
	"math/rand"
	"testing"

	"github.com/blocksort/bzip2fsm/internal/bitstream"
)

func TestAssignLengthsRespectsMaxLen(t *testing.T) {
	for _, tc := range []struct {
		name string
		freq []int64
	}{
		{"uniform", []int64{1, 1, 1, 1, 1, 1, 1, 1}},
		{"skewed", []int64{1000, 1, 1, 1, 1, 1, 1, 1}},
		{"two-symbol", []int64{5, 3}},
		{"single-symbol", []int64{7}},
		{"very-skewed-large-alphabet", func() []int64 {
			f := make([]int64, 258)
			f[0] = 1 << 30
			for i := 1; i < len(f); i++ {
				f[i] = 1
			}
			return f
		}()},
	} {
		t.Run(tc.name, func(t *testing.T) {
			lengths, err := AssignLengths(tc.freq, 17)
			if err != nil {
				t.Fatalf("AssignLengths: %v", err)
			}
			if len(lengths) != len(tc.freq) {
				t.Fatalf("got %d lengths, want %d", len(lengths), len(tc.freq))
			}
			for i, l := range lengths {
				if l == 0 {
					t.Errorf("symbol %d has zero length", i)
				}
				if int(l) > 17 {
					t.Errorf("symbol %d has length %d > 17", i, l)
				}
			}
			// Kraft inequality: a valid prefix code satisfies sum(2^-len) <= 1.
			if len(lengths) > 1 {
				var sum float64
				for _, l := range lengths {
					sum += 1.0 / float64(int(1)<<l)
				}
				if sum > 1.0000001 {
					t.Errorf("Kraft sum %v > 1", sum)
				}
			}
		})
	}
}

func TestTableEncodeDecodeRoundTrip(t *testing.T) {
	rnd := rand.New(rand.NewSource(42))
	freq := make([]int64, 128)
	for i := range freq {
		freq[i] = int64(1 + rnd.Intn(500))
	}
	lengths, err := AssignLengths(freq, 17)
	if err != nil {
		t.Fatalf("AssignLengths: %v", err)
	}
	table := NewTable(lengths)

	var syms []int
	var w bitstream.Writer
	for i := 0; i < 5000; i++ {
		sym := rnd.Intn(len(freq))
		syms = append(syms, sym)
		table.Encode(&w, sym)
	}
	w.Finish()

	var r bitstream.Reader
	c := &bitstream.Cursor{Data: w.Out}
	for i, want := range syms {
		var zn int
		var zvec uint32
		var got int
		for {
			s, ok, derr := table.Decode(&r, c, &zn, &zvec)
			if derr != nil {
				t.Fatalf("symbol %d: decode error: %v", i, derr)
			}
			if ok {
				got = s
				break
			}
			t.Fatalf("symbol %d: unexpected suspension with full input buffered", i)
		}
		if got != want {
			t.Fatalf("symbol %d: got %d, want %d", i, got, want)
		}
	}
}

func TestTableDecodeResumable(t *testing.T) {
	lengths, err := AssignLengths([]int64{50, 20, 10, 5, 5, 5, 3, 2}, 17)
	if err != nil {
		t.Fatalf("AssignLengths: %v", err)
	}
	table := NewTable(lengths)

	var w bitstream.Writer
	syms := []int{0, 1, 2, 3, 4, 5, 6, 7, 0, 0, 1, 7, 6, 5, 4}
	for _, s := range syms {
		table.Encode(&w, s)
	}
	w.Finish()

	var r bitstream.Reader
	c := &bitstream.Cursor{}
	data := w.Out
	pos := 0
	for i, want := range syms {
		var zn int
		var zvec uint32
		for {
			s, ok, derr := table.Decode(&r, c, &zn, &zvec)
			if derr != nil {
				t.Fatalf("symbol %d: decode error: %v", i, derr)
			}
			if ok {
				if s != want {
					t.Fatalf("symbol %d: got %d, want %d", i, s, want)
				}
				break
			}
			if pos >= len(data) {
				t.Fatalf("symbol %d: ran out of input mid-decode", i)
			}
			c.Data = data[pos : pos+1]
			c.Pos = 0
			pos++
		}
	}
}
