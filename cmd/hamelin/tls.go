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

	tlsfrontend "github.com/hamelin-adapter/hamelin/frontend/tls"
)

var (
	tlsCertFile string
	tlsKeyFile  string
)

func newTLSCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "tls host port command [args...]",
		Short: "Serve the TLS frontend",
		Args:  minArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			host, port, command, childArgs := args[0], args[1], args[2], args[3:]
			if tlsCertFile == "" || tlsKeyFile == "" {
				return usageError{err: errMissingTLSFlags}
			}

			log, err := obs.NewLogger(logLevel)
			if err != nil {
				return usageError{err}
			}
			defer log.Sync()

			factory := child.NewSessionFactory(log, command, childArgs)
			srv, err := tlsfrontend.NewServer(log, factory, tlsCertFile, tlsKeyFile)
			if err != nil {
				return err
			}
			return srv.ListenAndServe(net.JoinHostPort(host, port))
		},
	}
	cmd.Flags().StringVar(&tlsCertFile, "cert", "", "TLS certificate file (PEM)")
	cmd.Flags().StringVar(&tlsKeyFile, "key", "", "TLS private key file (PEM)")
	return cmd
}
