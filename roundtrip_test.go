// Copyright 2019 Cosmos Nicolaou. All rights reserved.
// Use of this source code is governed by the Apache-2.0
// license that can be found in the LICENSE file.

package bzip2fsm

import (
	"bytes"
	"math/rand"
	"testing"
)

func cfg(k int) CompressConfig { return CompressConfig{BlockSize100k: k} }

func TestRoundTripScenarios(t *testing.T) {
	for _, tc := range []struct {
		name string
		data []byte
	}{
		{"empty", nil},
		{"single-byte", []byte("a")},
		{"hello-world", []byte("Hello, world!\n")},
		{"all-same", bytes.Repeat([]byte{0}, 1<<20)},
		{"pangram", []byte("the quick brown fox jumps over the lazy dog")},
		{"periodic", bytes.Repeat([]byte("ab"), 50000)},
	} {
		t.Run(tc.name, func(t *testing.T) {
			compressed, err := CompressBuffer(tc.data, cfg(1))
			if err != nil {
				t.Fatalf("CompressBuffer: %v", err)
			}
			got, err := DecompressBuffer(compressed, DecompressConfig{})
			if err != nil {
				t.Fatalf("DecompressBuffer: %v", err)
			}
			if !bytes.Equal(got, tc.data) {
				t.Fatalf("round trip mismatch: got %d bytes, want %d bytes", len(got), len(tc.data))
			}
		})
	}
}

func TestEmptyStreamExactBytes(t *testing.T) {
	compressed, err := CompressBuffer(nil, cfg(1))
	if err != nil {
		t.Fatalf("CompressBuffer: %v", err)
	}
	want := []byte{0x42, 0x5A, 0x68, 0x31, 0x17, 0x72, 0x45, 0x38, 0x50, 0x90, 0x00, 0x00, 0x00, 0x00}
	if !bytes.Equal(compressed, want) {
		t.Fatalf("empty stream bytes = % X, want % X", compressed, want)
	}
}

func TestSingleByteCombinedCRC(t *testing.T) {
	compressed, err := CompressBuffer([]byte("a"), cfg(1))
	if err != nil {
		t.Fatalf("CompressBuffer: %v", err)
	}
	// For this input the end-of-stream trailer ends on a byte boundary, so
	// Finish adds no padding and the combined CRC is the last four bytes.
	if len(compressed) < 5 {
		t.Fatalf("stream too short: %d bytes", len(compressed))
	}
	var crc uint32
	for i := 0; i < 4; i++ {
		crc = crc<<8 | uint32(compressed[len(compressed)-4+i])
	}
	if crc != 0xC1D04330 {
		t.Fatalf("combined CRC = %#08x, want 0xC1D04330", crc)
	}
}

func TestChunkIndependence(t *testing.T) {
	rnd := rand.New(rand.NewSource(1))
	data := make([]byte, 5000)
	for i := range data {
		data[i] = byte('a' + rnd.Intn(4))
	}

	whole, err := CompressBuffer(data, cfg(1))
	if err != nil {
		t.Fatalf("CompressBuffer: %v", err)
	}

	w, err := NewWriter(cfg(1))
	if err != nil {
		t.Fatalf("NewWriter: %v", err)
	}
	var chunked []byte
	buf := make([]byte, 7) // deliberately awkward size
	offset := 0
	chunkSizes := []int{1, 3, 17, 500, 1}
	ci := 0
	for offset < len(data) {
		n := chunkSizes[ci%len(chunkSizes)]
		ci++
		if offset+n > len(data) {
			n = len(data) - offset
		}
		src := data[offset : offset+n]
		consumed := 0
		for consumed < len(src) {
			c, p, err := w.Compress(buf, src[consumed:], Run)
			if err != nil {
				t.Fatalf("Compress: %v", err)
			}
			chunked = append(chunked, buf[:p]...)
			consumed += c
		}
		offset += n
	}
	for {
		_, p, err := w.Compress(buf, nil, Finish)
		if err != nil {
			t.Fatalf("Compress finish: %v", err)
		}
		chunked = append(chunked, buf[:p]...)
		if p == 0 && w.Pending() == 0 {
			break
		}
	}

	if !bytes.Equal(whole, chunked) {
		t.Fatalf("chunked compression diverged from whole-buffer compression (%d vs %d bytes)", len(chunked), len(whole))
	}
}

func TestSuspensionInvarianceOnDecode(t *testing.T) {
	rnd := rand.New(rand.NewSource(2))
	data := make([]byte, 20000)
	for i := range data {
		data[i] = byte(rnd.Intn(256))
	}
	compressed, err := CompressBuffer(data, cfg(1))
	if err != nil {
		t.Fatalf("CompressBuffer: %v", err)
	}

	for _, outSize := range []int{1, 3, 13, 4096} {
		r, err := NewReader(DecompressConfig{})
		if err != nil {
			t.Fatalf("NewReader: %v", err)
		}
		var got []byte
		buf := make([]byte, outSize)
		offset := 0
		for {
			var src []byte
			if offset < len(compressed) {
				end := offset + 11
				if end > len(compressed) {
					end = len(compressed)
				}
				src = compressed[offset:end]
			}
			n, p, done, derr := r.Decompress(buf, src)
			offset += n
			got = append(got, buf[:p]...)
			if derr != nil {
				t.Fatalf("outSize=%d: Decompress: %v", outSize, derr)
			}
			if done && p == 0 {
				break
			}
			if n == 0 && p == 0 && offset >= len(compressed) && !done {
				t.Fatalf("outSize=%d: decode stalled before STREAM_END", outSize)
			}
		}
		if !bytes.Equal(got, data) {
			t.Fatalf("outSize=%d: suspended decode mismatch (%d vs %d bytes)", outSize, len(got), len(data))
		}
	}
}

func TestBlockCRCCorruptionDetected(t *testing.T) {
	compressed, err := CompressBuffer([]byte("Hello, world!\n"), cfg(1))
	if err != nil {
		t.Fatalf("CompressBuffer: %v", err)
	}
	corrupted := append([]byte(nil), compressed...)
	// The block CRC sits in the four bytes right after the 6-byte block
	// magic, which itself follows the 4-byte stream header.
	corrupted[10] ^= 0xFF

	_, err = DecompressBuffer(corrupted, DecompressConfig{})
	if err == nil {
		t.Fatalf("expected a CRC error, got nil")
	}
	se, ok := err.(*StructuralError)
	if !ok {
		t.Fatalf("expected *StructuralError, got %T: %v", err, err)
	}
	if se.Result != DataError {
		t.Fatalf("got Result %v, want DataError", se.Result)
	}
}

func TestMagicRejection(t *testing.T) {
	for _, bad := range [][]byte{
		nil,
		[]byte("not a bzip2 stream at all"),
		[]byte{0x42, 0x5A, 0x68, '0'}, // block-size digit '0' is out of range
		[]byte{0x42, 0x5A, 0x68, '9' + 1},
	} {
		_, err := DecompressBuffer(bad, DecompressConfig{})
		if err == nil {
			t.Fatalf("expected an error decoding %q", bad)
		}
	}
}

func TestDeterministicOutput(t *testing.T) {
	data := []byte("the quick brown fox jumps over the lazy dog, repeatedly, repeatedly")
	a, err := CompressBuffer(data, cfg(3))
	if err != nil {
		t.Fatalf("CompressBuffer: %v", err)
	}
	b, err := CompressBuffer(data, cfg(3))
	if err != nil {
		t.Fatalf("CompressBuffer: %v", err)
	}
	if !bytes.Equal(a, b) {
		t.Fatalf("compress is not deterministic across identical calls")
	}
}

func TestBudgetFallbackStillTerminates(t *testing.T) {
	data := bytes.Repeat([]byte{0}, 1<<20)
	c := cfg(1)
	c.WorkFactor = 1
	compressed, err := CompressBuffer(data, c)
	if err != nil {
		t.Fatalf("CompressBuffer with WorkFactor=1: %v", err)
	}
	got, err := DecompressBuffer(compressed, DecompressConfig{})
	if err != nil {
		t.Fatalf("DecompressBuffer: %v", err)
	}
	if !bytes.Equal(got, data) {
		t.Fatalf("round trip mismatch under forced fallback sort")
	}
}

func TestSmallEqualsFastDecode(t *testing.T) {
	rnd := rand.New(rand.NewSource(9))
	data := make([]byte, 9000)
	for i := range data {
		data[i] = byte(rnd.Intn(50))
	}
	compressed, err := CompressBuffer(data, cfg(2))
	if err != nil {
		t.Fatalf("CompressBuffer: %v", err)
	}
	fast, err := DecompressBuffer(compressed, DecompressConfig{Small: false})
	if err != nil {
		t.Fatalf("DecompressBuffer (fast): %v", err)
	}
	small, err := DecompressBuffer(compressed, DecompressConfig{Small: true})
	if err != nil {
		t.Fatalf("DecompressBuffer (small): %v", err)
	}
	if !bytes.Equal(fast, small) {
		t.Fatalf("small and fast decode modes diverged")
	}
}

func TestConcatenatedStreamsRequireFreshReader(t *testing.T) {
	a, err := CompressBuffer([]byte("first"), cfg(1))
	if err != nil {
		t.Fatalf("CompressBuffer: %v", err)
	}
	b, err := CompressBuffer([]byte("second"), cfg(1))
	if err != nil {
		t.Fatalf("CompressBuffer: %v", err)
	}

	r, err := NewReader(DecompressConfig{})
	if err != nil {
		t.Fatalf("NewReader: %v", err)
	}
	both := append(append([]byte(nil), a...), b...)
	buf := make([]byte, 64)
	var got []byte
	n, p, done, derr := r.Decompress(buf, both)
	got = append(got, buf[:p]...)
	if derr != nil {
		t.Fatalf("Decompress: %v", derr)
	}
	if !done {
		t.Fatalf("expected STREAM_END after the first concatenated stream")
	}
	if string(got) != "first" {
		t.Fatalf("got %q, want %q", got, "first")
	}
	if n != len(both) {
		t.Fatalf("consumed %d, want %d (all bytes are always buffered)", n, len(both))
	}

	// A second Decompress call on the same Reader must not silently start
	// decoding the trailing "second" stream; it requires a fresh Reader.
	if _, _, _, derr := r.Decompress(buf, nil); derr != nil {
		t.Fatalf("draining a finished Reader with no new input should not error: %v", derr)
	}

	r2, err := NewReader(DecompressConfig{})
	if err != nil {
		t.Fatalf("NewReader: %v", err)
	}
	_, p2, done2, derr2 := r2.Decompress(buf, b)
	if derr2 != nil {
		t.Fatalf("fresh reader Decompress: %v", derr2)
	}
	if !done2 || string(buf[:p2]) != "second" {
		t.Fatalf("fresh reader got %q, done=%v, want %q", buf[:p2], done2, "second")
	}
}
