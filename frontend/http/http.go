//go:build linux

// Copyright 2025 The Hamelin Authors. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Package http implements the HTTP frontend: each request is a one-shot
// session against a freshly spawned child.
package http

import (
	"io"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/hamelin-adapter/hamelin/internal/child"
	"github.com/hamelin-adapter/hamelin/internal/lineio"
)

// quietPeriod is the pragmatic delay given to the child to begin producing
// output before streaming its stdout into the response, per spec.
const quietPeriod = 100 * time.Millisecond

// Server is an http.Handler that spawns one child per request.
type Server struct {
	log     *zap.Logger
	factory *child.SessionFactory
}

// NewServer returns an http.Handler backed by factory.
func NewServer(log *zap.Logger, factory *child.SessionFactory) *Server {
	return &Server{log: log, factory: factory}
}

// ListenAndServe starts an HTTP server on addr using s as the handler.
func (s *Server) ListenAndServe(addr string) error {
	s.log.Info("http frontend listening", zap.String("addr", addr))
	return http.ListenAndServe(addr, s)
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet && r.Method != http.MethodPost {
		http.NotFound(w, r)
		return
	}

	log := s.log.With(zap.String("path", r.URL.Path), zap.String("method", r.Method))

	sess, err := s.factory.SpawnWithEnv(map[string]string{
		"H-TYPE":   "HAMELIN-HTTP-0.1",
		"H-URI":    r.URL.Path,
		"H-CLIENT": r.URL.Path,
	})
	if err != nil {
		log.Error("http: spawn failed", zap.Error(err))
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	log.Info("session started", zap.Int("pid", sess.Pid()))

	waitDone := make(chan struct{})
	go func() {
		_ = sess.Wait()
		close(waitDone)
	}()
	defer func() {
		sess.Kill()
		<-waitDone
		log.Info("session ended")
	}()

	body, err := io.ReadAll(r.Body)
	if err != nil {
		log.Warn("http: request body read failed", zap.Error(err))
		http.Error(w, "bad request", http.StatusBadRequest)
		return
	}
	if err := sess.WriteLine(string(body)); err != nil {
		log.Warn("http: write to child failed", zap.Error(err))
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	if err := sess.CloseInput(); err != nil {
		log.Warn("http: close child stdin failed", zap.Error(err))
	}

	time.Sleep(quietPeriod)

	flusher, _ := w.(http.Flusher)
	w.WriteHeader(http.StatusOK)
	for {
		line, err := sess.ReadLine()
		if err != nil {
			if err == lineio.ErrWouldBlock {
				time.Sleep(2 * time.Millisecond)
				continue
			}
			break
		}
		if _, werr := io.WriteString(w, line+"\n"); werr != nil {
			break
		}
		if flusher != nil {
			flusher.Flush()
		}
	}
}
