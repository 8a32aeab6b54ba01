// Copyright 2019 Cosmos Nicolaou. All rights reserved.
// Use of this source code is governed by the Apache-2.0
// license that can be found in the LICENSE file.

package bzip2fsm

import cerrors "cloudeng.io/errors"

// ioChunk is the buffer size the one-shot helpers drain Compress/Decompress
// through; it has no bearing on correctness, only on how many syscalls an
// equivalent file-backed caller would need.
const ioChunk = 64 * 1024

// CompressBuffer runs the full RUN/.../FINISH sequence over data in one
// call, returning the complete compressed stream. It is the buffer-to-buffer
// convenience entry point §4.9 names alongside the incremental Writer API.
func CompressBuffer(data []byte, cfg CompressConfig) ([]byte, error) {
	w, err := NewWriter(cfg)
	if err != nil {
		return nil, err
	}
	var errs cerrors.M

	out := make([]byte, 0, len(data)/2+64)
	buf := make([]byte, ioChunk)

	offset := 0
	for offset < len(data) {
		n, p, cerr := w.Compress(buf, data[offset:], Run)
		offset += n
		out = append(out, buf[:p]...)
		if cerr != nil {
			errs.Append(cerr)
			return out, errs.Err()
		}
	}

	for {
		_, p, cerr := w.Compress(buf, nil, Finish)
		out = append(out, buf[:p]...)
		if cerr != nil {
			errs.Append(cerr)
			break
		}
		if p == 0 && w.Pending() == 0 {
			break
		}
	}
	return out, errs.Err()
}

// DecompressBuffer runs a Reader to completion over data in one call,
// returning the fully decoded bytes. It aggregates every error the decode
// encounters with cloudeng.io/errors.M rather than stopping at the first one,
// matching the teacher's own batched-error idiom, even though in practice a
// single stream yields at most one terminal error.
func DecompressBuffer(data []byte, cfg DecompressConfig) ([]byte, error) {
	r, err := NewReader(cfg)
	if err != nil {
		return nil, err
	}
	var errs cerrors.M

	var out []byte
	buf := make([]byte, ioChunk)

	offset := 0
	for {
		var src []byte
		if offset < len(data) {
			src = data[offset:]
		}
		n, p, done, derr := r.Decompress(buf, src)
		offset += n
		out = append(out, buf[:p]...)
		if derr != nil {
			errs.Append(derr)
			break
		}
		if done {
			for {
				_, p2, _, _ := r.Decompress(buf, nil)
				out = append(out, buf[:p2]...)
				if p2 == 0 {
					break
				}
			}
			break
		}
		if offset >= len(data) && p == 0 {
			errs.Append(&StructuralError{Result: UnexpectedEOF, Detail: "input ended before STREAM_END"})
			break
		}
	}
	return out, errs.Err()
}
