// Copyright 2019 Cosmos Nicolaou. All rights reserved.
// Use of this source code is governed by the Apache-2.0
// license that can be found in the LICENSE file.

// Package bwt computes and inverts the Burrows-Wheeler Transform over a
// single block: Sort (and Transform) order the block's n cyclic rotations
// starting with a two-byte radix bucketing and a three-way quicksort bounded
// by a per-block work budget, falling back to fallbackSort's guaranteed
// O(n log^2 n) comparison count if the budget runs out before the block is
// fully ordered. InverseTransform reconstructs the original block from a
// BWT output and its origin pointer via the standard LF-mapping walk.
package bwt

import "sort"

// budgetPerByte bounds how much quicksort comparison work mainSort is
// allowed to spend per input byte before giving up on it and restarting the
// whole block through fallbackSort. Pathological inputs (long runs, highly
// periodic data) can push an ordinary quicksort towards quadratic behavior;
// the budget catches that before it runs away.
const budgetPerByte = 12

// smallThreshold is the bucket size at or below which qsort3 switches to a full
// rotation-comparison insertion sort instead of continuing to partition.
const smallThreshold = 12

// Result holds the output of Transform: the BWT last-column bytes and the
// row of the sorted rotation matrix holding the unrotated original block.
type Result struct {
	BWT     []byte
	OrigPtr int
}

// defaultWorkFactor matches bzip2's own default of 30, used whenever a
// caller doesn't have a more specific work factor to supply.
const defaultWorkFactor = 30

// Transform computes the Burrows-Wheeler Transform of block, using the
// default work factor to bound the main sorter's effort.
func Transform(block []byte) *Result {
	return TransformWithBudget(block, defaultWorkFactor)
}

// TransformWithBudget is Transform, but workFactor (1..250, matching
// CompressConfig.WorkFactor) scales how much comparison work the main
// sorter spends per byte before abandoning to fallbackSort; smaller values
// give up sooner on pathological inputs at the cost of compression ratio.
func TransformWithBudget(block []byte, workFactor int) *Result {
	n := len(block)
	if n == 0 {
		return &Result{BWT: nil, OrigPtr: 0}
	}
	sa := SortWithBudget(block, workFactor)
	out := make([]byte, n)
	origPtr := 0
	for i, s := range sa {
		if s == 0 {
			origPtr = i
		}
		p := int(s) - 1
		if p < 0 {
			p += n
		}
		out[i] = block[p]
	}
	return &Result{BWT: out, OrigPtr: origPtr}
}

// Sort returns the permutation of 0..n-1 that orders block's cyclic
// rotations ascending: Sort(block)[i] is the starting offset of the i'th
// rotation in sorted order. It uses the default work factor.
func Sort(block []byte) []int32 {
	return SortWithBudget(block, defaultWorkFactor)
}

// SortWithBudget is Sort, scaling the main sorter's work budget by
// workFactor (see TransformWithBudget).
func SortWithBudget(block []byte, workFactor int) []int32 {
	n := len(block)
	idx := make([]int32, n)
	for i := range idx {
		idx[i] = int32(i)
	}
	if n <= 1 {
		return idx
	}
	if workFactor <= 0 {
		workFactor = defaultWorkFactor
	}

	s := &sorter{block: block, n: n, budget: int64(n) * budgetPerByte * int64(workFactor) / defaultWorkFactor}
	if s.mainSort(idx) {
		return idx
	}
	return fallbackSort(block)
}

type sorter struct {
	block  []byte
	n      int
	budget int64
}

// mainSort buckets rotations by their first two bytes, then resolves each
// bucket with a depth-bounded three-way quicksort. It returns false,
// abandoning any partial ordering, the moment the work budget is exhausted;
// the caller restarts from scratch with fallbackSort in that case.
func (s *sorter) mainSort(idx []int32) bool {
	n := s.n
	ftab := make([]int32, 65537)
	for i := 0; i < n; i++ {
		b1 := s.block[i]
		b2 := s.block[(i+1)%n]
		ftab[int(b1)<<8|int(b2)+1]++
	}
	for i := 1; i < len(ftab); i++ {
		ftab[i] += ftab[i-1]
	}

	cursor := append([]int32(nil), ftab...)
	for i := 0; i < n; i++ {
		b1 := s.block[i]
		b2 := s.block[(i+1)%n]
		key := int(b1)<<8 | int(b2)
		idx[cursor[key]] = int32(i)
		cursor[key]++
	}

	for key := 0; key < 65536; key++ {
		lo, hi := ftab[key], ftab[key+1]
		if hi-lo > 1 {
			if !s.qsort3(idx[lo:hi], 2) {
				return false
			}
		}
	}
	return true
}

func (s *sorter) byteAt(i int32, depth int) byte {
	p := int(i) + depth
	if p >= s.n {
		p -= s.n
	}
	return s.block[p]
}

// qsort3 orders a (all rotations already known equal in their first depth
// bytes) by a three-way partition on the byte at offset depth, recursing
// into the equal partition at depth+1. It reports false if the work budget
// runs out before a correct order is reached.
func (s *sorter) qsort3(a []int32, depth int) bool {
	if len(a) < 2 {
		return true
	}
	if s.budget <= 0 {
		return false
	}
	if len(a) <= smallThreshold {
		return s.insertionSort(a)
	}
	if depth >= s.n {
		// Every byte around the full cycle ties; the rotations are
		// identical, so order by starting offset for a deterministic result.
		sort.Slice(a, func(i, j int) bool { return a[i] < a[j] })
		return true
	}

	mid := s.byteAt(a[len(a)/2], depth)
	first := s.byteAt(a[0], depth)
	last := s.byteAt(a[len(a)-1], depth)
	pivot := medianOfThree(first, mid, last)

	lt, gt, i := 0, len(a)-1, 0
	for i <= gt {
		s.budget--
		if s.budget <= 0 {
			return false
		}
		c := s.byteAt(a[i], depth)
		switch {
		case c < pivot:
			a[lt], a[i] = a[i], a[lt]
			lt++
			i++
		case c > pivot:
			a[i], a[gt] = a[gt], a[i]
			gt--
		default:
			i++
		}
	}

	if !s.qsort3(a[:lt], depth) {
		return false
	}
	if !s.qsort3(a[gt+1:], depth) {
		return false
	}
	return s.qsort3(a[lt:gt+1], depth+1)
}

func medianOfThree(a, b, c byte) byte {
	if a > b {
		a, b = b, a
	}
	if b > c {
		b = c
		if a > b {
			b = a
		}
	}
	return b
}

// compare does a full, wraparound rotation comparison between rotations i
// and j, charged against the work budget one byte at a time. It reports
// aborted=true the moment the budget runs dry mid-comparison.
func (s *sorter) compare(i, j int32) (less bool, aborted bool) {
	n := s.n
	for k := 0; k < n; k++ {
		if s.budget <= 0 {
			return false, true
		}
		s.budget--
		pi := int(i) + k
		if pi >= n {
			pi -= n
		}
		pj := int(j) + k
		if pj >= n {
			pj -= n
		}
		bi, bj := s.block[pi], s.block[pj]
		if bi != bj {
			return bi < bj, false
		}
	}
	return i < j, false
}

func (s *sorter) insertionSort(a []int32) bool {
	for i := 1; i < len(a); i++ {
		v := a[i]
		j := i - 1
		for j >= 0 {
			less, aborted := s.compare(v, a[j])
			if aborted {
				return false
			}
			if !less {
				break
			}
			a[j+1] = a[j]
			j--
		}
		a[j+1] = v
	}
	return true
}

// InverseTransform reconstructs the original block from a BWT last-column
// output and its origin pointer, via the LF-mapping walk: for each row i of
// the (implicit) sorted rotation matrix, next[i] gives the row whose first
// column holds this same occurrence of bwt[i], i.e. the rotation starting
// one position earlier in the original cyclic string. Walking next from
// origPtr and emitting bwt[row] each step therefore yields the block last
// byte first, so the output is filled from its end.
func InverseTransform(bwtOut []byte, origPtr int) []byte {
	n := len(bwtOut)
	if n == 0 {
		return nil
	}
	var count [256]int
	for _, b := range bwtOut {
		count[b]++
	}
	var base [256]int
	sum := 0
	for c := 0; c < 256; c++ {
		base[c] = sum
		sum += count[c]
	}

	next := make([]int32, n)
	var occ [256]int
	for i, b := range bwtOut {
		next[i] = int32(base[b] + occ[b])
		occ[b]++
	}

	out := make([]byte, n)
	row := int32(origPtr)
	for i := n - 1; i >= 0; i-- {
		out[i] = bwtOut[row]
		row = next[row]
	}
	return out
}
