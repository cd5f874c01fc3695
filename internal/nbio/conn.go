//go:build unix

// Copyright 2025 The Hamelin Authors. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package nbio

import (
	"fmt"
	"os"
	"syscall"
)

// FromFile returns a non-blocking FD wrapping f's descriptor. f must be kept
// alive and closed by the caller; FromFile does not take ownership of its
// lifetime, only of its blocking mode.
func FromFile(f *os.File) (*FD, error) {
	return NewFD(int(f.Fd()))
}

// FromFileCloseOnExec is FromFile plus marking the descriptor close-on-exec,
// for descriptors such as a child's stdout pipe that a later spawn must not
// inherit.
func FromFileCloseOnExec(f *os.File) (*FD, error) {
	return NewFDCloseOnExec(int(f.Fd()))
}

// FromSyscallConn returns a non-blocking FD over the raw descriptor backing
// a net.Conn (or any other syscall.Conn), such as an accepted *net.TCPConn.
// The caller retains ownership of conn and must Close it directly; once
// wrapped, reads must go exclusively through the returned FD, since
// conn.Read would take bytes out of the same stream. Writes may still go
// through conn.Write, as the TCP frontend does.
func FromSyscallConn(conn syscall.Conn) (*FD, error) {
	raw, err := conn.SyscallConn()
	if err != nil {
		return nil, fmt.Errorf("nbio: SyscallConn: %w", err)
	}

	var fd int
	err = raw.Control(func(rawfd uintptr) {
		fd = int(rawfd)
	})
	if err != nil {
		return nil, fmt.Errorf("nbio: Control: %w", err)
	}
	return NewFD(fd)
}
