// Copyright 2025 The Hamelin Authors. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package irc_test

import (
	"reflect"
	"testing"

	"github.com/hamelin-adapter/hamelin/internal/irc"
)

func TestParse_PrivmsgToChannel(t *testing.T) {
	m := irc.Parse(":nick!user@host PRIVMSG #general :hello there")
	if m.Prefix != "nick!user@host" || m.Command != "PRIVMSG" {
		t.Fatalf("got %+v", m)
	}
	want := []string{"#general", "hello there"}
	if !reflect.DeepEqual(m.Params, want) {
		t.Fatalf("want params %v, got %v", want, m.Params)
	}
}

func TestParse_NoPrefix(t *testing.T) {
	m := irc.Parse("PING :server.example")
	if m.Prefix != "" || m.Command != "PING" {
		t.Fatalf("got %+v", m)
	}
	if len(m.Params) != 1 || m.Params[0] != "server.example" {
		t.Fatalf("got params %v", m.Params)
	}
}

func TestParse_NoTrailing(t *testing.T) {
	m := irc.Parse(":nick!user@host JOIN #general")
	if m.Command != "JOIN" || len(m.Params) != 1 || m.Params[0] != "#general" {
		t.Fatalf("got %+v", m)
	}
}

func TestReplyTo_Channel(t *testing.T) {
	if got := irc.ReplyTo("#general", "nick!user@host"); got != "#general" {
		t.Fatalf("want #general, got %q", got)
	}
}

func TestReplyTo_DirectMessage(t *testing.T) {
	if got := irc.ReplyTo("adapter-nick", "nick!user@host"); got != "nick" {
		t.Fatalf("want nick, got %q", got)
	}
}

func TestNick_PlainPrefixFallback(t *testing.T) {
	if got := irc.Nick("server.example"); got != "server.example" {
		t.Fatalf("want server.example, got %q", got)
	}
}
