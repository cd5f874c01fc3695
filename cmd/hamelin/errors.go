//go:build linux

// Copyright 2025 The Hamelin Authors. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package main

import "errors"

var errMissingTLSFlags = errors.New("tls: --cert and --key are required")
