// Copyright 2025 The Hamelin Authors. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Package pump implements the bidirectional line forwarding loop shared by
// every stream frontend: lines read from the network peer go to the child's
// stdin, lines read from the child's stdout go back to the peer.
package pump

import (
	"io"
	"time"

	"github.com/hamelin-adapter/hamelin/internal/lineio"
)

// idleBackoff is how long Run sleeps after a pass that forwarded nothing in
// either direction, so the loop does not spin a CPU core on two quiet
// non-blocking transports.
const idleBackoff = 2 * time.Millisecond

// LineSource is the read half of a non-blocking line transport:
// lineio.Codec and child.ChildSession both satisfy it.
type LineSource interface {
	ReadLine() (string, error)
}

// LineSink is the write half of a line transport.
type LineSink interface {
	WriteLine(line string) error
}

// direction is one half of Run's loop: read one line from src at a time and
// forward it to dst. WouldBlock means retry the same call later; at most
// one line moves per call.
type direction struct {
	src    LineSource
	dst    LineSink
	closed bool
}

// forwardOnce forwards at most one line. It returns (true, nil) if a line
// was forwarded, (false, lineio.ErrWouldBlock) if the source had nothing
// ready, and (false, io.EOF) once the source is exhausted.
func (d *direction) forwardOnce() (bool, error) {
	if d.closed {
		return false, io.EOF
	}
	line, err := d.src.ReadLine()
	if err != nil {
		if err == lineio.ErrWouldBlock {
			return false, err
		}
		if err == io.EOF {
			d.closed = true
		}
		return false, err
	}
	if werr := d.dst.WriteLine(line); werr != nil {
		return false, werr
	}
	return true, nil
}

// Run pumps lines bidirectionally between peer and child until one side is
// exhausted or errors. On peer EOF, Run drains the child's remaining output
// to the peer (if the peer is still writable) before returning, so a child
// that keeps producing lines after its input closes is not cut off
// mid-response. On peer EOF Run calls childSess.CloseInput, if childSess
// has that method; apart from that it closes neither side, and the caller
// owns shutdown.
//
// stop, if non-nil, ends the loop early, so a caller can cancel a pump on
// its own signal. The TCP and TLS frontends pass nil.
func Run(peer, childSess interface {
	LineSource
	LineSink
}, stop <-chan struct{}) error {
	toChild := &direction{src: peer, dst: childSess}
	toPeer := &direction{src: childSess, dst: peer}

	for {
		select {
		case <-stop:
			return nil
		default:
		}

		progressed := false

		if !toChild.closed {
			ok, err := toChild.forwardOnce()
			switch {
			case ok:
				progressed = true
			case err == lineio.ErrWouldBlock:
			case err == io.EOF:
				// Peer is done sending; tell the child so it can finish up.
				if c, ok := childSess.(interface{ CloseInput() error }); ok {
					_ = c.CloseInput()
				}
			default:
				return err
			}
		}

		ok, err := toPeer.forwardOnce()
		switch {
		case ok:
			progressed = true
		case err == lineio.ErrWouldBlock:
		case err == io.EOF:
			return nil
		default:
			return err
		}

		if !progressed {
			time.Sleep(idleBackoff)
		}
	}
}
