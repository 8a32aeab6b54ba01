// Copyright 2019 Cosmos Nicolaou. All rights reserved.
// Use of this source code is governed by the Apache-2.0
// license that can be found in the LICENSE file.

package bzip2fsm

import "log/slog"

// Action selects the behavior of a Compress call.
type Action int

const (
	// Run accepts more input into the current block without forcing a
	// flush.
	Run Action = 0
	// Flush forces the current block (if any bytes are pending) out as a
	// complete block, without ending the stream.
	Flush Action = 1
	// Finish forces the current block out and emits the end-of-stream
	// trailer; no further input may be accepted afterwards.
	Finish Action = 2
)

// Allocator mirrors the source library's injectable alloc/free pair. Writer
// and Reader accept one in their configs but do not call it: their working
// buffers always come from the Go heap.
type Allocator interface {
	Alloc(n int) []byte
}

// defaultAllocator backs Allocator with the garbage-collected heap.
type defaultAllocator struct{}

func (defaultAllocator) Alloc(n int) []byte { return make([]byte, n) }

// CompressConfig configures a Writer at construction.
type CompressConfig struct {
	// BlockSize100k selects the block size in units of 100,000 bytes,
	// 1..9. Larger blocks compress better at the cost of more memory and
	// latency before the first block can flush.
	BlockSize100k int

	// WorkFactor tunes how much comparison work the BWT sorter's main path
	// is allowed before abandoning to the fallback sorter; 0 means the
	// default of 30. Valid range 0..250.
	WorkFactor int

	// Verbosity gates advisory logging (0..4); 0 is silent.
	Verbosity int

	// Logger receives advisory messages when Verbosity > 0. Defaults to
	// slog.Default() if nil.
	Logger *slog.Logger

	// Allocator is stored with the config; the Writer does not allocate
	// through it, and every allocation it makes uses the Go heap.
	Allocator Allocator
}

func (c *CompressConfig) validate() error {
	if c.BlockSize100k < 1 || c.BlockSize100k > 9 {
		return &ConfigError{Detail: "BlockSize100k must be in 1..9"}
	}
	if c.WorkFactor < 0 || c.WorkFactor > 250 {
		return &ConfigError{Detail: "WorkFactor must be in 0..250"}
	}
	if c.Verbosity < 0 || c.Verbosity > 4 {
		return &ConfigError{Detail: "Verbosity must be in 0..4"}
	}
	return nil
}

func (c *CompressConfig) logger() *slog.Logger {
	if c.Logger != nil {
		return c.Logger
	}
	return slog.Default()
}

func (c *CompressConfig) allocator() Allocator {
	if c.Allocator != nil {
		return c.Allocator
	}
	return defaultAllocator{}
}

func (c *CompressConfig) workFactor() int {
	if c.WorkFactor == 0 {
		return 30
	}
	return c.WorkFactor
}

// DecompressConfig configures a Reader at construction.
type DecompressConfig struct {
	// Small selects bwt.InverseTransformSmall, bzlib's low-memory inverse-
	// BWT representation (a packed 20-bit permutation plus indexIntoF's
	// cftab binary search) over the default bwt.InverseTransform (a full
	// int32 next[] array); both produce identical output.
	Small bool

	// Verbosity gates advisory logging (0..4); 0 is silent.
	Verbosity int

	// Logger receives advisory messages when Verbosity > 0. Defaults to
	// slog.Default() if nil.
	Logger *slog.Logger

	// Allocator is stored with the config; the Reader does not allocate
	// through it, and every allocation it makes uses the Go heap.
	Allocator Allocator
}

func (c *DecompressConfig) validate() error {
	if c.Verbosity < 0 || c.Verbosity > 4 {
		return &ConfigError{Detail: "Verbosity must be in 0..4"}
	}
	return nil
}

func (c *DecompressConfig) logger() *slog.Logger {
	if c.Logger != nil {
		return c.Logger
	}
	return slog.Default()
}

func (c *DecompressConfig) allocator() Allocator {
	if c.Allocator != nil {
		return c.Allocator
	}
	return defaultAllocator{}
}
