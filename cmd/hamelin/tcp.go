//go:build linux

// Copyright 2025 The Hamelin Authors. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package main

import (
	"net"

	"github.com/spf13/cobra"

	"github.com/hamelin-adapter/hamelin/internal/child"
	"github.com/hamelin-adapter/hamelin/internal/obs"

	tcpfrontend "github.com/hamelin-adapter/hamelin/frontend/tcp"
)

func newTCPCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "tcp host port command [args...]",
		Short: "Serve the raw TCP frontend",
		Args:  minArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			host, port, command, childArgs := args[0], args[1], args[2], args[3:]

			log, err := obs.NewLogger(logLevel)
			if err != nil {
				return usageError{err}
			}
			defer log.Sync()

			factory := child.NewSessionFactory(log, command, childArgs)
			srv := tcpfrontend.NewServer(log, factory)
			return srv.ListenAndServe(net.JoinHostPort(host, port))
		},
	}
}
