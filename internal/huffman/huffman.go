// Copyright 2011 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package huffman builds and navigates the canonical, length-limited
// Huffman codes bzip2 uses for its post-MTF symbol stream: package-merge
// style code-length assignment from symbol frequencies, canonical code
// assignment, and the base/limit/perm decode tables that let the decoder
// extend a code one bit at a time.
package huffman

import (
	"container/heap"
	"errors"

	"github.com/blocksort/bzip2fsm/internal/bitstream"
)

// MaxCodeLen bounds the length tables regardless of maxLen passed to
// AssignLengths; bzip2 tolerates up to 20 bits on decode.
const MaxCodeLen = 20

// ErrTooLong is returned by AssignLengths if even after repeated frequency
// halving the alphabet cannot be encoded within maxLen bits (alphaSize
// larger than 2^maxLen, which never happens for bzip2's alphabet sizes but
// is checked defensively).
var ErrTooLong = errors.New("huffman: alphabet cannot be length-limited")

// nodeHeap is a container/heap.Interface over node indices, ordered by the
// weight stored out-of-band so that newly synthesized internal nodes (which
// live past the end of the original leaf range) can be pushed without
// reallocating the heap's own storage.
type nodeHeap struct {
	idx    []int
	weight []uint32
}

func (h *nodeHeap) Len() int            { return len(h.idx) }
func (h *nodeHeap) Less(i, j int) bool  { return h.weight[h.idx[i]] < h.weight[h.idx[j]] }
func (h *nodeHeap) Swap(i, j int)       { h.idx[i], h.idx[j] = h.idx[j], h.idx[i] }
func (h *nodeHeap) Push(x interface{})  { h.idx = append(h.idx, x.(int)) }
func (h *nodeHeap) Pop() interface{} {
	old := h.idx
	n := len(old)
	x := old[n-1]
	h.idx = old[:n-1]
	return x
}

// AssignLengths computes a canonical code length for every symbol from its
// frequency, bounded by maxLen. It merges the two lightest nodes
// repeatedly (a weighted heap standing in for a priority queue of partial
// trees), tracking tree depth in the low 8 bits of each node's weight
// alongside the frequency sum in the high bits. If the resulting depth
// exceeds maxLen, every working frequency is halved (rounding up, floored at
// 1) and the whole construction restarts.
func AssignLengths(freq []int64, maxLen int) ([]byte, error) {
	n := len(freq)
	lengths := make([]byte, n)
	if n == 0 {
		return lengths, nil
	}
	if n == 1 {
		lengths[0] = 1
		return lengths, nil
	}

	cur := make([]int64, n)
	copy(cur, freq)
	for i := range cur {
		if cur[i] < 1 {
			cur[i] = 1
		}
	}

	for {
		weight := make([]uint32, n, 2*n)
		parent := make([]int, n, 2*n)
		for i := range weight {
			weight[i] = uint32(cur[i]) << 8
			parent[i] = -1
		}

		h := &nodeHeap{weight: weight}
		h.idx = make([]int, n)
		for i := range h.idx {
			h.idx[i] = i
		}
		heap.Init(h)

		for h.Len() > 1 {
			n1 := heap.Pop(h).(int)
			n2 := heap.Pop(h).(int)
			w1, w2 := weight[n1], weight[n2]
			depth := w1 & 0xff
			if d2 := w2 & 0xff; d2 > depth {
				depth = d2
			}
			newWeight := (w1 &^ 0xff) + (w2 &^ 0xff) + depth + 1
			newIdx := len(weight)
			weight = append(weight, newWeight)
			parent = append(parent, -1)
			parent[n1] = newIdx
			parent[n2] = newIdx
			h.weight = weight
			heap.Push(h, newIdx)
		}

		tooLong := false
		for i := 0; i < n; i++ {
			depth := 0
			for k := parent[i]; k != -1; k = parent[k] {
				depth++
			}
			if depth == 0 {
				depth = 1
			}
			if depth > maxLen {
				tooLong = true
			}
			lengths[i] = byte(depth)
		}
		if !tooLong {
			return lengths, nil
		}
		if maxLen >= MaxCodeLen+8 {
			// Halving can never converge if the caller asked for an
			// unreasonably small maxLen relative to the alphabet; bail
			// rather than loop forever.
			return nil, ErrTooLong
		}
		allOne := true
		for i := range cur {
			cur[i] = (cur[i] + 1) / 2
			if cur[i] != 1 {
				allOne = false
			}
		}
		if allOne && tooLong {
			return nil, ErrTooLong
		}
	}
}

// Table is a canonical Huffman code table usable for both encoding (Codes,
// Lengths indexed by symbol) and decoding (Base, Limit, Perm indexed by code
// length, per BZ2_hbCreateDecodeTables).
type Table struct {
	MinLen, MaxLen int
	Lengths        []byte
	Codes          []uint32 // encode: code value per symbol

	Base  []int32 // decode: base[l] = first code of length l, cumulative-adjusted
	Limit []int32 // decode: limit[l] = last valid accumulator value at length l, or -1
	Perm  []int   // decode: symbols in ascending-length (then value) order
}

// NewTable builds the canonical encode and decode tables from a set of code
// lengths, following BZ2_hbAssignCodes and BZ2_hbCreateDecodeTables.
func NewTable(lengths []byte) *Table {
	alphaSize := len(lengths)
	minLen, maxLen := 32, 0
	for _, l := range lengths {
		if int(l) < minLen {
			minLen = int(l)
		}
		if int(l) > maxLen {
			maxLen = int(l)
		}
	}

	t := &Table{MinLen: minLen, MaxLen: maxLen, Lengths: append([]byte(nil), lengths...)}

	// Canonical code assignment: symbols are visited in ascending length,
	// breaking ties by symbol index (stable iteration order below), so each
	// length class gets the next sequential code, left-shifted at the start
	// of each new length.
	t.Codes = make([]uint32, alphaSize)
	vec := uint32(0)
	for n := minLen; n <= maxLen; n++ {
		for sym, l := range lengths {
			if int(l) == n {
				t.Codes[sym] = vec
				vec++
			}
		}
		vec <<= 1
	}

	// Decode tables.
	t.Perm = make([]int, alphaSize)
	pp := 0
	for n := minLen; n <= maxLen; n++ {
		for sym, l := range lengths {
			if int(l) == n {
				t.Perm[pp] = sym
				pp++
			}
		}
	}

	t.Base = make([]int32, MaxCodeLen+2)
	for _, l := range lengths {
		t.Base[int(l)+1]++
	}
	for i := 1; i < len(t.Base); i++ {
		t.Base[i] += t.Base[i-1]
	}

	t.Limit = make([]int32, MaxCodeLen+2)
	vec = 0
	for n := minLen; n <= maxLen; n++ {
		vec += uint32(t.Base[n+1] - t.Base[n])
		t.Limit[n] = int32(vec) - 1
		vec <<= 1
	}
	for n := minLen + 1; n <= maxLen; n++ {
		t.Base[n] = ((t.Limit[n-1] + 1) << 1) - t.Base[n]
	}

	return t
}

// Encode writes the canonical code for sym to w.
func (t *Table) Encode(w *bitstream.Writer, sym int) {
	w.WriteBits(uint(t.Lengths[sym]), t.Codes[sym])
}

// ErrCodeTooLong is returned by Decode when a code extends past MaxCodeLen
// bits without matching any valid length, i.e. the compressed data is
// corrupt.
var ErrCodeTooLong = errors.New("huffman: code exceeds maximum length")

// Decode extends a code one bit at a time from r/c, resuming across calls
// via the caller-owned (zn, zvec) pair: zn is the number of bits read so far
// for the in-progress symbol and zvec the accumulator. A fresh decode starts
// with *zn == 0. If input underflows mid-code, Decode returns ok=false
// having left zn/zvec exactly where a subsequent call should continue; no
// bits are read twice and none are lost, since the underlying bitstream
// register itself absorbs whatever whole bytes were available before
// reporting underflow.
func (t *Table) Decode(r *bitstream.Reader, c *bitstream.Cursor, zn *int, zvec *uint32) (sym int, ok bool, err error) {
	for *zn < t.MinLen {
		bit, k := r.ReadBit(c)
		if !k {
			return 0, false, nil
		}
		*zvec = *zvec<<1 | bit
		*zn++
	}
	for int64(*zvec) > int64(t.Limit[*zn]) {
		if *zn >= t.MaxLen || *zn >= MaxCodeLen {
			return 0, true, ErrCodeTooLong
		}
		bit, k := r.ReadBit(c)
		if !k {
			return 0, false, nil
		}
		*zvec = *zvec<<1 | bit
		*zn++
	}
	idx := int(*zvec) - int(t.Base[*zn])
	if idx < 0 || idx >= len(t.Perm) {
		return 0, true, ErrCodeTooLong
	}
	sym = t.Perm[idx]
	*zn = 0
	*zvec = 0
	return sym, true, nil
}
