//go:build linux

// Copyright 2025 The Hamelin Authors. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Package tls implements the TLS frontend: identical to the TCP frontend
// except the accepted socket is wrapped in a server-side TLS stream before
// any child interaction.
package tls

import (
	"crypto/tls"
	"fmt"
	"net"

	"go.uber.org/zap"

	"github.com/hamelin-adapter/hamelin/internal/child"
	"github.com/hamelin-adapter/hamelin/internal/lineio"
	"github.com/hamelin-adapter/hamelin/internal/nbio"
	"github.com/hamelin-adapter/hamelin/internal/pump"
)

// queueBacklog is the chunk backlog for nbio.QueueReader wrapping each TLS
// connection's read side.
const queueBacklog = 32

// Server accepts TLS connections and spawns one child per connection.
type Server struct {
	log     *zap.Logger
	factory *child.SessionFactory
	config  *tls.Config
}

// NewServer returns a Server that terminates TLS with cert/key and launches
// children through factory.
func NewServer(log *zap.Logger, factory *child.SessionFactory, certFile, keyFile string) (*Server, error) {
	cert, err := tls.LoadX509KeyPair(certFile, keyFile)
	if err != nil {
		return nil, fmt.Errorf("tls: load keypair: %w", err)
	}
	return &Server{
		log:     log,
		factory: factory,
		config: &tls.Config{
			Certificates: []tls.Certificate{cert},
			MinVersion:   tls.VersionTLS12,
		},
	}, nil
}

// ListenAndServe listens on addr and serves TLS connections until an
// accept-loop fatal error occurs.
func (s *Server) ListenAndServe(addr string) error {
	ln, err := tls.Listen("tcp", addr, s.config)
	if err != nil {
		return fmt.Errorf("tls: listen: %w", err)
	}
	defer ln.Close()
	s.log.Info("tls frontend listening", zap.String("addr", addr))

	for {
		conn, err := ln.Accept()
		if err != nil {
			return fmt.Errorf("tls: accept: %w", err)
		}
		go s.handle(conn)
	}
}

func (s *Server) handle(conn net.Conn) {
	defer conn.Close()
	peerAddr := conn.RemoteAddr().String()
	log := s.log.With(zap.String("peer", peerAddr))

	tlsConn, ok := conn.(*tls.Conn)
	if !ok {
		log.Error("tls: accepted connection is not *tls.Conn")
		return
	}
	if err := tlsConn.Handshake(); err != nil {
		log.Warn("tls: handshake failed", zap.Error(err))
		return
	}

	// *tls.Conn's record layer owns buffering/decryption state; a raw-fd
	// non-blocking read would corrupt it, so the read side goes through a
	// dedicated reader goroutine and channel instead.
	qr := nbio.NewQueueReader(tlsConn, queueBacklog)
	peerCodec := lineio.NewCodec(qr, conn)

	sess, err := s.factory.SpawnWithEnv(map[string]string{
		"H-TYPE":   "HAMELIN-TCP-0.1",
		"H-CLIENT": peerAddr,
	})
	if err != nil {
		log.Error("tls: spawn failed", zap.Error(err))
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
