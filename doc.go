// Copyright 2019 Cosmos Nicolaou. All rights reserved.
// Use of this source code is governed by the Apache-2.0
// license that can be found in the LICENSE file.

// Package bzip2fsm implements a streaming bzip2 encoder and decoder: RLE1,
// Burrows-Wheeler Transform, move-to-front with RUNA/RUNB run-length coding,
// and multi-table canonical Huffman coding, driven by explicit state
// machines (Writer, Reader) that can be fed input in arbitrarily small
// chunks. CompressBuffer and DecompressBuffer wrap the incremental API for
// callers that already hold the whole payload in memory.
package bzip2fsm
