//go:build linux

// Copyright 2025 The Hamelin Authors. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package child

import "errors"

var (
	// ErrAlreadyWaited is returned by a second call to ChildSession.Wait.
	ErrAlreadyWaited = errors.New("child: Wait already called")
	// ErrSpawnFailed wraps any error encountered while launching a child
	// process, for callers that need to classify it against the adapter's
	// error taxonomy.
	ErrSpawnFailed = errors.New("child: spawn failed")
)
