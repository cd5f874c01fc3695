//go:build linux

// Copyright 2025 The Hamelin Authors. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Package child owns the lifecycle of a single spawned child process: pipe
// setup, the non-blocking line codec wrapping its stdout, and deterministic
// shutdown.
package child

import (
	"fmt"
	"io"
	"os"
	"os/exec"
	"sync"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/hamelin-adapter/hamelin/internal/lineio"
	"github.com/hamelin-adapter/hamelin/internal/nbio"
)

// killGrace is how long Kill waits for a graceful exit after SIGTERM before
// escalating to SIGKILL.
const killGrace = 1000 * time.Millisecond

// ChildSession owns one spawned child process: its pipes, its line codec,
// and its teardown. The zero value is not usable; construct one through
// SessionFactory.
type ChildSession struct {
	log *zap.Logger

	cmd   *exec.Cmd
	stdin io.WriteCloser
	codec *lineio.Codec

	mu       sync.Mutex
	waited   bool
	exited   chan struct{}
	killOnce sync.Once
}

// start launches cmd, wires stdin as a blocking pipe and stdout as a raw
// non-blocking one, and returns the running ChildSession. Stderr is
// inherited from the adapter process.
func start(log *zap.Logger, cmd *exec.Cmd) (*ChildSession, error) {
	stdin, err := cmd.StdinPipe()
	if err != nil {
		return nil, fmt.Errorf("%w: stdin pipe: %w", ErrSpawnFailed, err)
	}
	stdoutR, stdoutW, err := os.Pipe()
	if err != nil {
		_ = stdin.Close()
		return nil, fmt.Errorf("%w: stdout pipe: %w", ErrSpawnFailed, err)
	}
	cmd.Stdout = stdoutW
	cmd.Stderr = os.Stderr
	cmd.SysProcAttr = &syscall.SysProcAttr{
		Setpgid:   true,
		Pdeathsig: syscall.SIGKILL,
	}

	if err := cmd.Start(); err != nil {
		_ = stdin.Close()
		_ = stdoutR.Close()
		_ = stdoutW.Close()
		return nil, fmt.Errorf("%w: %v", ErrSpawnFailed, err)
	}
	// The write end belongs to the child now; the parent's copy must be
	// closed so EOF on stdoutR is observable once the child exits.
	_ = stdoutW.Close()

	fd, err := nbio.FromFileCloseOnExec(stdoutR)
	if err != nil {
		_ = stdin.Close()
		_ = stdoutR.Close()
		_ = cmd.Process.Kill()
		return nil, fmt.Errorf("%w: stdout non-blocking setup: %w", ErrSpawnFailed, err)
	}

	return &ChildSession{
		log:    log,
		cmd:    cmd,
		stdin:  stdin,
		codec:  lineio.NewCodec(fd, stdin),
		exited: make(chan struct{}),
	}, nil
}

// ReadLine reads one line from the child's stdout, per lineio.Codec's
// non-blocking contract.
func (s *ChildSession) ReadLine() (string, error) {
	return s.codec.ReadLine()
}

// WriteLine writes one line to the child's stdin, retrying internally until
// complete or a real error occurs.
func (s *ChildSession) WriteLine(line string) error {
	return s.codec.WriteLine(line)
}

// CloseInput closes the child's stdin, signaling EOF to the child.
func (s *ChildSession) CloseInput() error {
	if s.stdin == nil {
		return nil
	}
	return s.stdin.Close()
}

// Pid returns the child's process id.
func (s *ChildSession) Pid() int {
	return s.cmd.Process.Pid
}

// Wait blocks until the child exits and reaps it. It must be called at most
// once; a second call returns ErrAlreadyWaited without touching the
// underlying process, since exec.Cmd.Wait is not safe to call twice.
func (s *ChildSession) Wait() error {
	s.mu.Lock()
	if s.waited {
		s.mu.Unlock()
		return ErrAlreadyWaited
	}
	s.waited = true
	s.mu.Unlock()
	defer close(s.exited)

	err := s.cmd.Wait()
	if s.log != nil {
		if err != nil {
			s.log.Info("child exited", zap.Int("pid", s.Pid()), zap.Error(err))
		} else {
			s.log.Info("child exited cleanly", zap.Int("pid", s.Pid()))
		}
	}
	return err
}

// Kill sends SIGTERM to the child's process group, waits up to killGrace
// for Wait to observe exit, and unconditionally escalates to SIGKILL
// afterward — both stages run even if SIGTERM already succeeded, since the
// process group may contain grandchildren SIGTERM alone did not reach. Kill
// is idempotent; concurrent and repeated calls are safe. The caller is
// responsible for running Wait (typically in its own goroutine) so exited
// is eventually closed.
func (s *ChildSession) Kill() {
	s.killOnce.Do(func() {
		pgid := s.Pid()
		if s.log != nil {
			s.log.Info("sending SIGTERM", zap.Int("pgid", pgid))
		}
		_ = syscall.Kill(-pgid, syscall.SIGTERM)

		timer := time.NewTimer(killGrace)
		defer timer.Stop()
		select {
		case <-s.exited:
		case <-timer.C:
		}

		if s.log != nil {
			s.log.Info("sending SIGKILL", zap.Int("pgid", pgid))
		}
		_ = syscall.Kill(-pgid, syscall.SIGKILL)
	})
}
