//go:build unix

// Copyright 2025 The Hamelin Authors. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Package nbio provides the non-blocking byte transports that
// internal/lineio's codec is built on: a raw file-descriptor transport for
// pipes and sockets that support true non-blocking reads, and a
// reader-thread/queue transport for protocols (TLS) that do not.
package nbio

import (
	"io"

	"code.hybscloud.com/iox"
	"golang.org/x/sys/unix"
)

// FD is a raw, non-blocking byte transport over a file descriptor. Read
// never parks the calling goroutine: it issues unix.Read, repeating the call
// only when it is interrupted (EINTR), and translates EAGAIN/EWOULDBLOCK
// into iox.ErrWouldBlock.
//
// FD takes ownership of fd's blocking mode but not its lifetime; the caller
// remains responsible for closing it.
type FD struct {
	fd int
}

// NewFD puts fd into non-blocking mode and returns an FD wrapping it. It
// does not alter the close-on-exec flag; use NewFDCloseOnExec for
// descriptors, such as a child's stdout pipe, that must not leak into
// grandchild processes.
func NewFD(fd int) (*FD, error) {
	if err := unix.SetNonblock(fd, true); err != nil {
		return nil, &unixError{op: "setnonblock", err: err}
	}
	return &FD{fd: fd}, nil
}

// NewFDCloseOnExec is NewFD plus marking fd close-on-exec. Both attributes
// must be applied before any I/O occurs on the descriptor, per the
// ChildSession spawn contract.
func NewFDCloseOnExec(fd int) (*FD, error) {
	f, err := NewFD(fd)
	if err != nil {
		return nil, err
	}
	if _, err := unix.FcntlInt(uintptr(fd), unix.F_SETFD, unix.FD_CLOEXEC); err != nil {
		return nil, &unixError{op: "fcntl(F_SETFD)", err: err}
	}
	return f, nil
}

// Read implements the non-blocking transport contract: it returns
// iox.ErrWouldBlock instead of blocking, and io.EOF when the peer has
// closed the write side.
func (f *FD) Read(p []byte) (int, error) {
	for {
		n, err := unix.Read(f.fd, p)
		if err == unix.EINTR {
			continue
		}
		if err == unix.EAGAIN || err == unix.EWOULDBLOCK {
			return 0, iox.ErrWouldBlock
		}
		if err != nil {
			return 0, &unixError{op: "read", err: err}
		}
		if n == 0 {
			return 0, io.EOF
		}
		return n, nil
	}
}

// Write writes to the descriptor, translating EAGAIN/EWOULDBLOCK into
// iox.ErrWouldBlock so lineio.Codec's retry loop can drive it the same way
// it drives any other transport.
func (f *FD) Write(p []byte) (int, error) {
	for {
		n, err := unix.Write(f.fd, p)
		if n < 0 {
			n = 0
		}
		if err == unix.EINTR {
			continue
		}
		if err == unix.EAGAIN || err == unix.EWOULDBLOCK {
			return n, iox.ErrWouldBlock
		}
		if err != nil {
			return n, &unixError{op: "write", err: err}
		}
		return n, nil
	}
}

type unixError struct {
	op  string
	err error
}

func (e *unixError) Error() string { return "nbio: " + e.op + ": " + e.err.Error() }
func (e *unixError) Unwrap() error { return e.err }
