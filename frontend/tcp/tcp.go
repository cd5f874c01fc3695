//go:build linux

// Copyright 2025 The Hamelin Authors. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Package tcp implements the raw TCP frontend: one child process per
// accepted connection, bridged by a non-blocking line pump.
package tcp

import (
	"fmt"
	"net"

	"go.uber.org/zap"

	"github.com/hamelin-adapter/hamelin/internal/child"
	"github.com/hamelin-adapter/hamelin/internal/lineio"
	"github.com/hamelin-adapter/hamelin/internal/nbio"
	"github.com/hamelin-adapter/hamelin/internal/pump"
)

// Server accepts TCP connections and spawns one child per connection.
type Server struct {
	log     *zap.Logger
	factory *child.SessionFactory
}

// NewServer returns a Server that launches children through factory.
func NewServer(log *zap.Logger, factory *child.SessionFactory) *Server {
	return &Server{log: log, factory: factory}
}

// ListenAndServe listens on addr and serves connections until ln.Close (via
// a Listener error) or the process exits. It returns only on a listen or
// accept-loop fatal error.
func (s *Server) ListenAndServe(addr string) error {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("tcp: listen: %w", err)
	}
	defer ln.Close()
	s.log.Info("tcp frontend listening", zap.String("addr", addr))

	for {
		conn, err := ln.Accept()
		if err != nil {
			return fmt.Errorf("tcp: accept: %w", err)
		}
		go s.handle(conn)
	}
}

func (s *Server) handle(conn net.Conn) {
	defer conn.Close()
	peerAddr := conn.RemoteAddr().String()
	log := s.log.With(zap.String("peer", peerAddr))

	tcpConn, ok := conn.(*net.TCPConn)
	if !ok {
		log.Error("tcp: accepted connection is not *net.TCPConn")
		return
	}
	fd, err := nbio.FromSyscallConn(tcpConn)
	if err != nil {
		log.Error("tcp: non-blocking setup failed", zap.Error(err))
		return
	}
	peerCodec := lineio.NewCodec(fd, conn)

	sess, err := s.factory.SpawnWithEnv(map[string]string{
		"H-TYPE":   "HAMELIN-TCP-0.1",
		"H-CLIENT": peerAddr,
	})
	if err != nil {
		log.Error("tcp: spawn failed", zap.Error(err))
		return
	}
	log.Info("session started", zap.Int("pid", sess.Pid()))

	waitDone := make(chan struct{})
	go func() {
		_ = sess.Wait()
		close(waitDone)
	}()

	if err := pump.Run(peerCodec, sess, nil); err != nil {
		log.Warn("pump ended with error", zap.Error(err))
	}
	sess.Kill()
	<-waitDone
	log.Info("session ended")
}
