// Copyright 2025 The Hamelin Authors. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package lineio

import (
	"errors"

	"code.hybscloud.com/iox"
)

var (
	// ErrWouldBlock means "no further progress without waiting". It is an
	// expected, non-failure control-flow signal: any returned byte count
	// still represents real progress, and the caller should retry later.
	//
	// Re-exported from the underlying non-blocking transport contract so
	// callers never need to import iox directly.
	ErrWouldBlock = iox.ErrWouldBlock

	// ErrEncoding reports that a line's bytes were not valid UTF-8. On
	// read, only the offending line is dropped from the codec's buffer; the
	// bytes after it are kept intact.
	ErrEncoding = errors.New("lineio: invalid utf-8 in line")

	// ErrLineTooLong reports that an in-progress line exceeded the
	// limit set with WithMaxLineLength before a terminator arrived.
	ErrLineTooLong = errors.New("lineio: line exceeds configured maximum length")

	// ErrNUL reports that a line passed to WriteLine contained an embedded
	// NUL byte, which cannot be represented as a line-oriented record.
	ErrNUL = errors.New("lineio: embedded NUL byte in line")

	// ErrClosed reports an operation attempted on a codec whose transport
	// is already gone.
	ErrClosed = errors.New("lineio: transport unavailable")
)
