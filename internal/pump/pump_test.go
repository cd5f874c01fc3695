// Copyright 2025 The Hamelin Authors. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package pump_test

import (
	"io"
	"sync"
	"testing"
	"time"

	"github.com/hamelin-adapter/hamelin/internal/lineio"
	"github.com/hamelin-adapter/hamelin/internal/pump"
)

// fakeEnd is a thread-safe in-memory line source/sink used to drive the
// pump without real sockets or processes.
type fakeEnd struct {
	mu       sync.Mutex
	inbox    []string
	eof      bool
	closedIn bool
	written  []string
}

func (f *fakeEnd) push(lines ...string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.inbox = append(f.inbox, lines...)
}

func (f *fakeEnd) pushEOF() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.eof = true
}

func (f *fakeEnd) ReadLine() (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.inbox) > 0 {
		line := f.inbox[0]
		f.inbox = f.inbox[1:]
		return line, nil
	}
	if f.eof {
		return "", io.EOF
	}
	return "", lineio.ErrWouldBlock
}

func (f *fakeEnd) WriteLine(line string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.written = append(f.written, line)
	return nil
}

func (f *fakeEnd) CloseInput() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closedIn = true
	return nil
}

func (f *fakeEnd) snapshot() (written []string, closedIn bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.written...), f.closedIn
}

func TestRun_ForwardsBothDirections(t *testing.T) {
	peer := &fakeEnd{}
	child := &fakeEnd{}

	peer.push("ping")
	child.push("pong")

	done := make(chan error, 1)
	go func() { done <- pump.Run(peer, child, nil) }()

	time.Sleep(30 * time.Millisecond)
	peer.pushEOF()
	child.pushEOF()

	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("Run: %v", err)
		}
	case <-time.After(time.Second):
		t.Fatal("Run did not return")
	}

	childWritten, _ := child.snapshot()
	peerWritten, _ := peer.snapshot()
	if len(childWritten) != 1 || childWritten[0] != "ping" {
		t.Fatalf("want child to receive [ping], got %v", childWritten)
	}
	if len(peerWritten) != 1 || peerWritten[0] != "pong" {
		t.Fatalf("want peer to receive [pong], got %v", peerWritten)
	}
}

func TestRun_PeerEOFClosesChildInput(t *testing.T) {
	peer := &fakeEnd{}
	child := &fakeEnd{}
	peer.pushEOF()

	done := make(chan error, 1)
	go func() { done <- pump.Run(peer, child, nil) }()

	deadline := time.Now().Add(time.Second)
	for time.Now().Before(deadline) {
		if _, closed := child.snapshot(); closed {
			child.pushEOF()
			<-done
			return
		}
		time.Sleep(time.Millisecond)
	}
	t.Fatal("child input was never closed after peer EOF")
}

func TestRun_ChildEOFEndsPump(t *testing.T) {
	peer := &fakeEnd{}
	child := &fakeEnd{}
	child.pushEOF()

	done := make(chan error, 1)
	go func() { done <- pump.Run(peer, child, nil) }()

	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("Run: %v", err)
		}
	case <-time.After(time.Second):
		t.Fatal("Run did not return after child EOF")
	}
}

func TestRun_StopChannelEndsLoop(t *testing.T) {
	peer := &fakeEnd{}
	child := &fakeEnd{}
	stop := make(chan struct{})

	done := make(chan error, 1)
	go func() { done <- pump.Run(peer, child, stop) }()

	close(stop)
	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("Run: %v", err)
		}
	case <-time.After(time.Second):
		t.Fatal("Run did not honor stop channel")
	}
}
