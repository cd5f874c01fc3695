//go:build linux

// Copyright 2025 The Hamelin Authors. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package child

import (
	"os"
	"os/exec"
	"strings"
	"sync/atomic"

	"go.uber.org/zap"
)

// Version is the implementation tag sent to every child as H-VERSION.
const Version = "0.1"

// SessionFactory holds the immutable child-launch template (command path
// and base argument list) and produces ChildSession values, optionally with
// extra environment entries describing the triggering frontend. A
// SessionFactory is safe to share across goroutines.
type SessionFactory struct {
	log     *zap.Logger
	command string
	args    []string

	spawned int64
	failed  int64
}

// NewSessionFactory returns a factory that launches command with args for
// every spawned session.
func NewSessionFactory(log *zap.Logger, command string, args []string) *SessionFactory {
	return &SessionFactory{log: log, command: command, args: append([]string(nil), args...)}
}

// Spawn launches a new child with no environment additions beyond H-VERSION.
func (f *SessionFactory) Spawn() (*ChildSession, error) {
	return f.SpawnWithEnv(nil)
}

// SpawnWithEnv launches a new child whose environment is the inherited
// process environment, overlaid with pairs, overlaid with H-VERSION —
// later keys override earlier keys on collision.
func (f *SessionFactory) SpawnWithEnv(pairs map[string]string) (*ChildSession, error) {
	env := buildEnv(pairs)
	cmd := exec.Command(f.command, f.args...)
	cmd.Env = env

	sess, err := start(f.log, cmd)
	if err != nil {
		atomic.AddInt64(&f.failed, 1)
		return nil, err
	}
	atomic.AddInt64(&f.spawned, 1)
	return sess, nil
}

// Spawned reports how many children this factory has successfully started.
func (f *SessionFactory) Spawned() int64 { return atomic.LoadInt64(&f.spawned) }

// SpawnFailed reports how many spawn attempts failed.
func (f *SessionFactory) SpawnFailed() int64 { return atomic.LoadInt64(&f.failed) }

// buildEnv assembles (inherited process environment) ∪ (pairs) ∪
// (H-VERSION), with later keys overriding earlier keys on collision.
func buildEnv(pairs map[string]string) []string {
	merged := make(map[string]string, len(pairs)+1)
	for _, kv := range os.Environ() {
		if k, v, ok := strings.Cut(kv, "="); ok {
			merged[k] = v
		}
	}
	for k, v := range pairs {
		merged[k] = v
	}
	merged["H-VERSION"] = Version

	env := make([]string, 0, len(merged))
	for k, v := range merged {
		env = append(env, k+"="+v)
	}
	return env
}
