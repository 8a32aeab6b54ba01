// Copyright 2019 Cosmos Nicolaou. All rights reserved.
// Use of this source code is governed by the Apache-2.0
// license that can be found in the LICENSE file.

package bwt

import "sort"

// fallbackSort orders block's n cyclic rotations with guaranteed O(n log^2 n)
// comparisons via prefix doubling (Manber-Myers): it maintains, for each
// starting offset, a rank that already distinguishes it from every other
// offset by their shared 2^k-byte prefix, then doubles k until all ranks are
// unique or k reaches n. Unlike mainSort's quicksort this never depends on
// the input's byte distribution to stay fast, so it is the strategy of last
// resort when mainSort's work budget is exhausted.
func fallbackSort(block []byte) []int32 {
	n := len(block)
	sa := make([]int32, n)
	rank := make([]int32, n)
	next := make([]int32, n)
	for i := 0; i < n; i++ {
		sa[i] = int32(i)
		rank[i] = int32(block[i])
	}

	keyOf := func(i int32, k int) (int32, int32) {
		j := int(i) + k
		if j >= n {
			j -= n
		}
		return rank[i], rank[j]
	}

	for k := 1; k < n; k *= 2 {
		sort.Slice(sa, func(a, b int) bool {
			a1, a2 := keyOf(sa[a], k)
			b1, b2 := keyOf(sa[b], k)
			if a1 != b1 {
				return a1 < b1
			}
			if a2 != b2 {
				return a2 < b2
			}
			return sa[a] < sa[b]
		})

		next[sa[0]] = 0
		allDistinct := true
		for i := 1; i < n; i++ {
			prev, cur := sa[i-1], sa[i]
			p1, p2 := keyOf(prev, k)
			c1, c2 := keyOf(cur, k)
			if p1 == c1 && p2 == c2 {
				next[cur] = next[prev]
				allDistinct = false
			} else {
				next[cur] = next[prev] + 1
			}
		}
		copy(rank, next)
		if allDistinct {
			break
		}
	}
	return sa
}
