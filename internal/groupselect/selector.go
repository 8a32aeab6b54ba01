// Copyright 2019 Cosmos Nicolaou. All rights reserved.
// Use of this source code is governed by the Apache-2.0
// license that can be found in the LICENSE file.

// Package groupselect implements the encoder-side group/table selection
// bzip2 uses to let different 50-symbol spans of the MTF stream use
// different Huffman tables: an initial equal-frequency-mass partition of
// the alphabet across 2-6 candidate tables, four refinement passes that
// reassign each group to its cheapest table and rebuild the tables from the
// resulting frequencies, and the selector MTF encoding used on the wire.
package groupselect

import "github.com/blocksort/bzip2fsm/internal/huffman"

// GroupSize is the number of MTF symbols batched under one selector
// (BZ_G_SIZE in the original implementation).
const GroupSize = 50

const refineIterations = 4

// NumGroups picks nGroups in {2..6} from the length of the MTF symbol
// stream, per the thresholds in the component design.
func NumGroups(nMTF int) int {
	switch {
	case nMTF < 200:
		return 2
	case nMTF < 600:
		return 3
	case nMTF < 1200:
		return 4
	case nMTF < 2400:
		return 5
	default:
		return 6
	}
}

// Result holds everything the encoder needs to serialize the multi-table
// Huffman section of a block.
type Result struct {
	NGroups   int
	Selectors []byte // one table index per GroupSize-symbol group
	Tables    []*huffman.Table
}

// Select partitions syms (the MTF/RUNA-RUNB symbol stream for one block,
// EOB included) into GroupSize-symbol groups, assigns each group one of
// NumGroups(len(syms)) Huffman tables, and refines the assignment and the
// tables themselves for refineIterations passes.
func Select(syms []uint16, alphaSize int) *Result {
	nGroups := NumGroups(len(syms))
	numGroups := (len(syms) + GroupSize - 1) / GroupSize
	if numGroups == 0 {
		numGroups = 1
	}

	lens := make([][]byte, nGroups)
	initialEqualFrequencySpans(syms, alphaSize, lens)

	selectors := make([]byte, numGroups)
	for iter := 0; iter < refineIterations; iter++ {
		rfreq := make([][]int64, nGroups)
		for t := range rfreq {
			rfreq[t] = make([]int64, alphaSize)
		}

		gi := 0
		for gs := 0; gs < len(syms); gs += GroupSize {
			ge := gs + GroupSize
			if ge > len(syms) {
				ge = len(syms)
			}
			bestCost := -1
			bestTable := 0
			for t := 0; t < nGroups; t++ {
				cost := 0
				for _, s := range syms[gs:ge] {
					cost += int(lens[t][s])
				}
				if bestCost == -1 || cost < bestCost {
					bestCost = cost
					bestTable = t
				}
			}
			selectors[gi] = byte(bestTable)
			gi++
			for _, s := range syms[gs:ge] {
				rfreq[bestTable][s]++
			}
		}

		for t := 0; t < nGroups; t++ {
			l, err := huffman.AssignLengths(rfreq[t], 17)
			if err != nil {
				// A degenerate (near-empty) table; fall back to the
				// equal-cost assignment already in lens[t] rather than
				// propagate an error through a pure scoring pass.
				continue
			}
			lens[t] = l
		}
	}

	tables := make([]*huffman.Table, nGroups)
	for t := range tables {
		tables[t] = huffman.NewTable(lens[t])
	}

	return &Result{NGroups: nGroups, Selectors: selectors, Tables: tables}
}

// initialEqualFrequencySpans seeds lens with a cheap (0) / expensive (15)
// split across nGroups contiguous spans of the alphabet, each span sized so
// its total symbol frequency is roughly len(syms)/nGroups; this only needs
// to be a reasonable starting point for the first refinement iteration.
func initialEqualFrequencySpans(syms []uint16, alphaSize int, lens [][]byte) {
	freq := make([]int64, alphaSize)
	for _, s := range syms {
		freq[s]++
	}

	nGroups := len(lens)
	remaining := int64(len(syms))
	gs := 0
	for part := nGroups; part >= 1; part-- {
		target := remaining / int64(part)
		ge := gs - 1
		acc := int64(0)
		for acc < target && ge < alphaSize-1 {
			ge++
			acc += freq[ge]
		}
		l := make([]byte, alphaSize)
		for v := range l {
			if v >= gs && v <= ge {
				l[v] = 0
			} else {
				l[v] = 15
			}
		}
		lens[part-1] = l
		remaining -= acc
		gs = ge + 1
	}
}

// MTFSelectors replaces each selector with its move-to-front rank against
// the set of already-seen table indices, matching the wire encoding's
// unary-coded selector stream (j ones followed by a zero, per selector).
func MTFSelectors(selectors []byte, nGroups int) []byte {
	pos := make([]byte, nGroups)
	for i := range pos {
		pos[i] = byte(i)
	}
	out := make([]byte, len(selectors))
	for i, sel := range selectors {
		j := 0
		for pos[j] != sel {
			j++
		}
		out[i] = byte(j)
		copy(pos[1:j+1], pos[0:j])
		pos[0] = sel
	}
	return out
}

// UnMTFSelectors inverts MTFSelectors, reconstructing the actual table
// index for each group from its MTF rank in the decoded selector stream.
func UnMTFSelectors(ranks []byte, nGroups int) []byte {
	pos := make([]byte, nGroups)
	for i := range pos {
		pos[i] = byte(i)
	}
	out := make([]byte, len(ranks))
	for i, j := range ranks {
		sel := pos[j]
		copy(pos[1:j+1], pos[0:j])
		pos[0] = sel
		out[i] = sel
	}
	return out
}
