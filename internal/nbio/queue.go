// Copyright 2025 The Hamelin Authors. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package nbio

import (
	"io"

	"code.hybscloud.com/iox"
)

const queueScratchSize = 4096

// chunk is one delivery from the background reader goroutine: either a
// slice of bytes that were read, or a terminal error (io.EOF or a real
// failure). Exactly one of len(b) > 0 or err != nil holds per chunk.
type chunk struct {
	b   []byte
	err error
}

// QueueReader is the "dedicated reader thread" equivalent the design calls
// for on transports that cannot be put into raw non-blocking mode safely —
// TLS connections, whose record layer owns buffering and decryption state
// that a raw fd read would corrupt. A background goroutine performs ordinary
// blocking reads on the wrapped io.Reader and feeds a channel; Read drains
// the channel without blocking, reporting iox.ErrWouldBlock when it is
// empty, preserving the same contract a true non-blocking transport offers.
type QueueReader struct {
	src    io.Reader
	chunks chan chunk
	done   bool
	pend   []byte
}

// NewQueueReader starts the background reader goroutine and returns a
// QueueReader. bufSize controls how many chunks may be buffered ahead of
// the consumer before the background goroutine blocks on a full channel.
func NewQueueReader(src io.Reader, bufSize int) *QueueReader {
	if bufSize <= 0 {
		bufSize = 32
	}
	q := &QueueReader{src: src, chunks: make(chan chunk, bufSize)}
	go q.pump()
	return q
}

func (q *QueueReader) pump() {
	buf := make([]byte, queueScratchSize)
	for {
		n, err := q.src.Read(buf)
		if n > 0 {
			b := make([]byte, n)
			copy(b, buf[:n])
			q.chunks <- chunk{b: b}
		}
		if err != nil {
			q.chunks <- chunk{err: err}
			return
		}
	}
}

// Read implements the non-blocking transport contract on top of the
// background goroutine's channel.
func (q *QueueReader) Read(p []byte) (int, error) {
	if len(q.pend) > 0 {
		n := copy(p, q.pend)
		q.pend = q.pend[n:]
		return n, nil
	}
	if q.done {
		return 0, io.EOF
	}
	select {
	case c := <-q.chunks:
		if c.err != nil {
			q.done = true
			return 0, c.err
		}
		n := copy(p, c.b)
		if n < len(c.b) {
			q.pend = c.b[n:]
		}
		return n, nil
	default:
		return 0, iox.ErrWouldBlock
	}
}
