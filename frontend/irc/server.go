//go:build linux

// Copyright 2025 The Hamelin Authors. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package irc

import (
	"bufio"
	"crypto/tls"
	"fmt"
	"net"
	"time"

	"go.uber.org/zap"

	"github.com/hamelin-adapter/hamelin/internal/child"
	ircproto "github.com/hamelin-adapter/hamelin/internal/irc"
	"github.com/hamelin-adapter/hamelin/internal/lineio"
)

// pumpInterval is how often the background child-to-IRC pump sweeps the
// route table for available output lines.
const pumpInterval = 50 * time.Millisecond

// reconnectBackoff is the delay between a disconnect and the next connect
// attempt.
const reconnectBackoff = 2 * time.Second

// Server maintains one persistent connection to an IRC server, dispatching
// inbound PRIVMSGs to per-target child sessions and relaying their output
// back as PRIVMSGs.
type Server struct {
	log     *zap.Logger
	cfg     *Config
	factory *child.SessionFactory
	routes  *ircproto.RouteTable
}

// NewServer returns an IRC frontend Server for cfg, spawning children
// through factory.
func NewServer(log *zap.Logger, cfg *Config, factory *child.SessionFactory) *Server {
	return &Server{log: log, cfg: cfg, factory: factory, routes: ircproto.NewRouteTable()}
}

// Run connects and serves until stop is closed, reconnecting on any
// disconnect error and reusing the existing route table across
// reconnects, per the adapter's preserved-sessions contract.
func (s *Server) Run(stop <-chan struct{}) error {
	for {
		select {
		case <-stop:
			return nil
		default:
		}

		if err := s.runOnce(stop); err != nil {
			s.log.Warn("irc: disconnected, reconnecting", zap.Error(err))
		}

		select {
		case <-stop:
			return nil
		case <-time.After(reconnectBackoff):
		}
	}
}

func (s *Server) runOnce(stop <-chan struct{}) error {
	conn, err := s.dial()
	if err != nil {
		return fmt.Errorf("irc: dial: %w", err)
	}
	defer conn.Close()

	if _, err := fmt.Fprintf(conn, "NICK %s\r\n", s.cfg.Nick); err != nil {
		return fmt.Errorf("irc: NICK: %w", err)
	}
	if _, err := fmt.Fprintf(conn, "USER %s 0 * :%s\r\n", s.cfg.Nick, s.cfg.Nick); err != nil {
		return fmt.Errorf("irc: USER: %w", err)
	}
	for _, ch := range s.cfg.Channels {
		if _, err := fmt.Fprintf(conn, "JOIN %s\r\n", ch); err != nil {
			return fmt.Errorf("irc: JOIN %s: %w", ch, err)
		}
	}
	s.log.Info("irc: connected", zap.String("server", s.cfg.Addr()), zap.String("nick", s.cfg.Nick))

	pumpStop := make(chan struct{})
	pumpDone := make(chan struct{})
	go func() {
		defer close(pumpDone)
		s.runOutboundPump(conn, pumpStop)
	}()
	defer func() {
		close(pumpStop)
		<-pumpDone
	}()

	sc := bufio.NewScanner(conn)
	sc.Buffer(make([]byte, 4096), 64*1024)
	for sc.Scan() {
		select {
		case <-stop:
			return nil
		default:
		}
		s.handleLine(conn, sc.Text())
	}
	if err := sc.Err(); err != nil {
		return err
	}
	return fmt.Errorf("irc: server closed connection")
}

func (s *Server) dial() (net.Conn, error) {
	if s.cfg.TLS {
		return tls.Dial("tcp", s.cfg.Addr(), &tls.Config{MinVersion: tls.VersionTLS12})
	}
	return net.Dial("tcp", s.cfg.Addr())
}

func (s *Server) handleLine(conn net.Conn, raw string) {
	msg := ircproto.Parse(raw)
	if msg.Command == "PING" {
		_, _ = fmt.Fprintf(conn, "PONG :%s\r\n", joinTrailing(msg.Params))
		return
	}
	if msg.Command != "PRIVMSG" || len(msg.Params) < 2 {
		return
	}
	target, text := msg.Params[0], msg.Params[len(msg.Params)-1]
	replyTo := ircproto.ReplyTo(target, msg.Prefix)

	sess, err := s.routes.GetOrCreate(replyTo, func() (*child.ChildSession, error) {
		return s.factory.SpawnWithEnv(map[string]string{
			"H-TYPE":   "HAMELIN-IRC-0.1",
			"H-CLIENT": fmt.Sprintf("%s://%s/%s", s.cfg.Scheme(), s.cfg.Addr(), replyTo),
		})
	})
	if err != nil {
		s.log.Error("irc: spawn failed", zap.String("reply_to", replyTo), zap.Error(err))
		return
	}
	if err := sess.WriteLine(text); err != nil {
		s.log.Warn("irc: write to child failed", zap.String("reply_to", replyTo), zap.Error(err))
	}
}

// runOutboundPump periodically sweeps the route table, relaying any
// available child output as PRIVMSG lines. WouldBlock on any session is
// skipped silently so a quiet child never starves a chatty one.
func (s *Server) runOutboundPump(conn net.Conn, stop <-chan struct{}) {
	ticker := time.NewTicker(pumpInterval)
	defer ticker.Stop()
	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			s.routes.Each(func(key string, sess *child.ChildSession) {
				for {
					line, err := sess.ReadLine()
					if err != nil {
						if err != lineio.ErrWouldBlock {
							s.log.Debug("irc: session ended", zap.String("reply_to", key), zap.Error(err))
						}
						return
					}
					if _, werr := fmt.Fprintf(conn, "PRIVMSG %s :%s\r\n", key, line); werr != nil {
						s.log.Warn("irc: write to server failed", zap.Error(werr))
						return
					}
				}
			})
		}
	}
}

func joinTrailing(params []string) string {
	if len(params) == 0 {
		return ""
	}
	return params[len(params)-1]
}
