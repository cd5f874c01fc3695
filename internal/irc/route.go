// Copyright 2025 The Hamelin Authors. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Package irc holds the IRC frontend's wire-level line parsing and its
// reply-target route table.
package irc

import (
	"hash/fnv"
	"sync"

	"github.com/hamelin-adapter/hamelin/internal/child"
)

// bucketCount is the number of independently-locked shards backing
// RouteTable. Picking the bucket by a hash of the reply-target keeps the
// "guard held only for the duration of a lookup/insert" invariant while
// letting sessions in different buckets be inserted and read concurrently.
const bucketCount = 16

type bucket struct {
	mu       sync.Mutex
	sessions map[string]*child.ChildSession
}

// RouteTable maps a reply-target (channel or nickname) to the ChildSession
// handling it. It is safe for concurrent use by the server-read loop and
// the child-to-IRC pump.
type RouteTable struct {
	buckets [bucketCount]*bucket
}

// NewRouteTable returns an empty RouteTable.
func NewRouteTable() *RouteTable {
	rt := &RouteTable{}
	for i := range rt.buckets {
		rt.buckets[i] = &bucket{sessions: make(map[string]*child.ChildSession)}
	}
	return rt
}

func (rt *RouteTable) bucketFor(key string) *bucket {
	h := fnv.New32a()
	_, _ = h.Write([]byte(key))
	return rt.buckets[h.Sum32()%bucketCount]
}

// Get returns the session routed to key, if any.
func (rt *RouteTable) Get(key string) (*child.ChildSession, bool) {
	b := rt.bucketFor(key)
	b.mu.Lock()
	defer b.mu.Unlock()
	sess, ok := b.sessions[key]
	return sess, ok
}

// GetOrCreate returns the existing session for key, or calls create and
// stores its result if none exists yet. The bucket lock is never held while
// create runs: GetOrCreate checks for an existing session, unlocks, calls
// create, then re-locks to insert. If another caller won the race and
// inserted first, the session this call just spawned is discarded — killed
// and reaped in the background — and the winner's session is returned, so
// the table never holds more than one session per key.
func (rt *RouteTable) GetOrCreate(key string, create func() (*child.ChildSession, error)) (*child.ChildSession, error) {
	b := rt.bucketFor(key)

	b.mu.Lock()
	if sess, ok := b.sessions[key]; ok {
		b.mu.Unlock()
		return sess, nil
	}
	b.mu.Unlock()

	sess, err := create()
	if err != nil {
		return nil, err
	}

	b.mu.Lock()
	if existing, ok := b.sessions[key]; ok {
		b.mu.Unlock()
		sess.Kill()
		go sess.Wait()
		return existing, nil
	}
	b.sessions[key] = sess
	b.mu.Unlock()
	return sess, nil
}

// Delete removes key's route, if present.
func (rt *RouteTable) Delete(key string) {
	b := rt.bucketFor(key)
	b.mu.Lock()
	defer b.mu.Unlock()
	delete(b.sessions, key)
}

// Each calls fn once per routed session. fn is invoked without any bucket
// lock held — Each takes a per-bucket snapshot before calling out, so
// fn may safely perform I/O (e.g. ReadLine) on the session.
func (rt *RouteTable) Each(fn func(key string, sess *child.ChildSession)) {
	for _, b := range rt.buckets {
		b.mu.Lock()
		snapshot := make(map[string]*child.ChildSession, len(b.sessions))
		for k, v := range b.sessions {
			snapshot[k] = v
		}
		b.mu.Unlock()

		for k, v := range snapshot {
			fn(k, v)
		}
	}
}
