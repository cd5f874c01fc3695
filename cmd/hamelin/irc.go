//go:build linux

// Copyright 2025 The Hamelin Authors. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package main

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/hamelin-adapter/hamelin/internal/child"
	"github.com/hamelin-adapter/hamelin/internal/obs"

	ircfrontend "github.com/hamelin-adapter/hamelin/frontend/irc"
)

func newIRCCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "irc config-path command [args...]",
		Short: "Serve the IRC frontend",
		Args:  minArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			configPath, command, childArgs := args[0], args[1], args[2:]

			cfg, err := ircfrontend.LoadConfig(configPath)
			if err != nil {
				return usageError{err}
			}

			log, err := obs.NewLogger(logLevel)
			if err != nil {
				return usageError{err}
			}
			defer log.Sync()

			factory := child.NewSessionFactory(log, command, childArgs)
			srv := ircfrontend.NewServer(log, cfg, factory)

			stop := make(chan struct{})
			sig := make(chan os.Signal, 1)
			signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
			go func() {
				<-sig
				close(stop)
			}()
			return srv.Run(stop)
		},
	}
}
