// Copyright 2019 Cosmos Nicolaou. All rights reserved.
// Use of this source code is governed by the Apache-2.0
// license that can be found in the LICENSE file.

package bzip2fsm

import "fmt"

// Result mirrors the stable integer result-code namespace of the original
// library: successes are non-negative, every error is negative.
type Result int

const (
	OK        Result = 0
	RunOK     Result = 1
	FlushOK   Result = 2
	FinishOK  Result = 3
	StreamEnd Result = 4

	SeqError      Result = -1
	ParamErr      Result = -2
	MemErr        Result = -3
	DataError     Result = -4
	MagicError    Result = -5
	IOError       Result = -6
	UnexpectedEOF Result = -7
	OutbuffFull   Result = -8
	ConfigErr     Result = -9
)

func (r Result) String() string {
	switch r {
	case OK:
		return "OK"
	case RunOK:
		return "RUN_OK"
	case FlushOK:
		return "FLUSH_OK"
	case FinishOK:
		return "FINISH_OK"
	case StreamEnd:
		return "STREAM_END"
	case SeqError:
		return "SEQUENCE_ERROR"
	case ParamErr:
		return "PARAM_ERROR"
	case MemErr:
		return "MEM_ERROR"
	case DataError:
		return "DATA_ERROR"
	case MagicError:
		return "DATA_ERROR_MAGIC"
	case IOError:
		return "IO_ERROR"
	case UnexpectedEOF:
		return "UNEXPECTED_EOF"
	case OutbuffFull:
		return "OUTBUFF_FULL"
	case ConfigErr:
		return "CONFIG_ERROR"
	default:
		return fmt.Sprintf("Result(%d)", int(r))
	}
}

// StructuralError reports malformed compressed data: bad magic, bad
// lengths, out-of-range selectors, a bad origPtr, or a CRC mismatch. Result
// is one of DataError or MagicError, or UnexpectedEOF when DecompressBuffer
// runs out of input before STREAM_END.
type StructuralError struct {
	Result Result
	Detail string
}

func (e *StructuralError) Error() string {
	return fmt.Sprintf("bzip2fsm: %s: %s", e.Result, e.Detail)
}

// SequenceError reports an action that is inconsistent with the stream's
// current mode, e.g. RUN after FINISH.
type SequenceError struct {
	Detail string
}

func (e *SequenceError) Error() string {
	return fmt.Sprintf("bzip2fsm: %s: %s", SeqError, e.Detail)
}

// ParamError reports an invalid argument to a call, such as an unknown
// Action passed to Writer.Compress. Out-of-range configuration values are
// reported as ConfigError instead.
type ParamError struct {
	Detail string
}

func (e *ParamError) Error() string {
	return fmt.Sprintf("bzip2fsm: %s: %s", ParamErr, e.Detail)
}

// ConfigError reports a value rejected at *Init, before any stream state
// has been allocated.
type ConfigError struct {
	Detail string
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("bzip2fsm: %s: %s", ConfigErr, e.Detail)
}

// MemError reports that the configured Allocator returned nil.
type MemError struct {
	Detail string
}

func (e *MemError) Error() string {
	return fmt.Sprintf("bzip2fsm: %s: %s", MemErr, e.Detail)
}
