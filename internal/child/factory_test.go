//go:build linux

// Copyright 2025 The Hamelin Authors. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package child_test

import (
	"io"
	"strings"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/hamelin-adapter/hamelin/internal/child"
	"github.com/hamelin-adapter/hamelin/internal/lineio"
)

func newFactory(t *testing.T, script string) *child.SessionFactory {
	t.Helper()
	return child.NewSessionFactory(zap.NewNop(), "/bin/sh", []string{"-c", script})
}

func readLineBlocking(t *testing.T, sess *child.ChildSession, timeout time.Duration) string {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		line, err := sess.ReadLine()
		if err == nil {
			return line
		}
		if err == lineio.ErrWouldBlock {
			time.Sleep(time.Millisecond)
			continue
		}
		if err == io.EOF {
			t.Fatalf("unexpected EOF waiting for line")
		}
		t.Fatalf("ReadLine: %v", err)
	}
	t.Fatal("timed out waiting for line")
	return ""
}

func TestSpawn_EchoesLine(t *testing.T) {
	f := newFactory(t, `read line; echo "echo:$line"`)
	sess, err := f.Spawn()
	if err != nil {
		t.Fatalf("Spawn: %v", err)
	}
	defer func() {
		sess.Kill()
		_ = sess.Wait()
	}()

	if err := sess.WriteLine("hi"); err != nil {
		t.Fatalf("WriteLine: %v", err)
	}
	got := readLineBlocking(t, sess, time.Second)
	if got != "echo:hi" {
		t.Fatalf("want %q, got %q", "echo:hi", got)
	}
}

func TestSpawn_EnvironmentInjection(t *testing.T) {
	// printenv runs directly rather than under /bin/sh: the shell cannot
	// expand names containing '-' and may drop them from the environment.
	f := child.NewSessionFactory(zap.NewNop(), "printenv", []string{"H-VERSION", "H-TYPE", "H-CLIENT"})
	sess, err := f.SpawnWithEnv(map[string]string{
		"H-TYPE":   "HAMELIN-TCP-0.1",
		"H-CLIENT": "127.0.0.1:9999",
	})
	if err != nil {
		t.Fatalf("SpawnWithEnv: %v", err)
	}
	defer func() {
		sess.Kill()
		_ = sess.Wait()
	}()

	got := strings.Join([]string{
		readLineBlocking(t, sess, time.Second),
		readLineBlocking(t, sess, time.Second),
		readLineBlocking(t, sess, time.Second),
	}, ",")
	want := child.Version + ",HAMELIN-TCP-0.1,127.0.0.1:9999"
	if got != want {
		t.Fatalf("want %q, got %q", want, got)
	}
}

func TestSpawnWithEnv_LaterKeysOverrideEarlier(t *testing.T) {
	t.Setenv("H-TYPE", "inherited")
	f := child.NewSessionFactory(zap.NewNop(), "printenv", []string{"H-TYPE"})
	sess, err := f.SpawnWithEnv(map[string]string{"H-TYPE": "overridden"})
	if err != nil {
		t.Fatalf("SpawnWithEnv: %v", err)
	}
	defer func() {
		sess.Kill()
		_ = sess.Wait()
	}()

	got := readLineBlocking(t, sess, time.Second)
	if got != "overridden" {
		t.Fatalf("want %q, got %q", "overridden", got)
	}
}

func TestWait_SecondCallReturnsErrAlreadyWaited(t *testing.T) {
	f := newFactory(t, `exit 0`)
	sess, err := f.Spawn()
	if err != nil {
		t.Fatalf("Spawn: %v", err)
	}

	if err := sess.Wait(); err != nil {
		t.Fatalf("first Wait: %v", err)
	}
	if err := sess.Wait(); err != child.ErrAlreadyWaited {
		t.Fatalf("want ErrAlreadyWaited on second Wait, got %v", err)
	}
}

func TestKill_GracefulExitWithinGrace(t *testing.T) {
	f := newFactory(t, `trap 'exit 0' TERM; while true; do sleep 0.05; done`)
	sess, err := f.Spawn()
	if err != nil {
		t.Fatalf("Spawn: %v", err)
	}

	done := make(chan struct{})
	go func() {
		_ = sess.Wait()
		close(done)
	}()

	start := time.Now()
	sess.Kill()
	<-done
	if elapsed := time.Since(start); elapsed > 900*time.Millisecond {
		t.Fatalf("graceful exit should be fast, took %v", elapsed)
	}
}

func TestKill_EscalatesToSIGKILLAfterGrace(t *testing.T) {
	f := newFactory(t, `trap '' TERM; while true; do sleep 0.05; done`)
	sess, err := f.Spawn()
	if err != nil {
		t.Fatalf("Spawn: %v", err)
	}

	done := make(chan struct{})
	go func() {
		_ = sess.Wait()
		close(done)
	}()

	sess.Kill()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("SIGKILL escalation did not terminate the child")
	}
}

func TestSpawn_FailureIncrementsCounter(t *testing.T) {
	f := child.NewSessionFactory(zap.NewNop(), "/nonexistent-binary-for-hamelin-tests", nil)
	if _, err := f.Spawn(); err == nil {
		t.Fatal("want spawn error for nonexistent binary")
	}
	if f.SpawnFailed() != 1 {
		t.Fatalf("want SpawnFailed()==1, got %d", f.SpawnFailed())
	}
	if f.Spawned() != 0 {
		t.Fatalf("want Spawned()==0, got %d", f.Spawned())
	}
}
