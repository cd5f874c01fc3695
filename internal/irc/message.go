// Copyright 2025 The Hamelin Authors. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package irc

import "strings"

// Message is one parsed IRC line: [:prefix] COMMAND param... [:trailing].
type Message struct {
	Prefix  string
	Command string
	Params  []string
}

// Parse parses a raw IRC line per RFC 1459's wire grammar. No client
// library in the retrieved corpus covers this, so it is hand-rolled.
func Parse(line string) Message {
	var m Message
	if line == "" {
		return m
	}

	if line[0] == ':' {
		sp := strings.IndexByte(line, ' ')
		if sp < 0 {
			m.Prefix = line[1:]
			return m
		}
		m.Prefix = line[1:sp]
		line = line[sp+1:]
	}

	if trail := strings.Index(line, " :"); trail >= 0 {
		head := strings.Fields(line[:trail])
		if len(head) > 0 {
			m.Command = head[0]
			m.Params = append(head[1:], line[trail+2:])
		} else {
			m.Params = []string{line[trail+2:]}
		}
		return m
	}
	if strings.HasPrefix(line, ":") {
		m.Params = []string{line[1:]}
		return m
	}

	fields := strings.Fields(line)
	if len(fields) > 0 {
		m.Command = fields[0]
		m.Params = fields[1:]
	}
	return m
}

// Nick returns the nickname part of an IRC prefix (nick!user@host), or the
// whole prefix if it is not in that form (e.g. a server name).
func Nick(prefix string) string {
	if i := strings.IndexByte(prefix, '!'); i >= 0 {
		return prefix[:i]
	}
	return prefix
}

// ReplyTo computes the PRIVMSG reply target: a channel target replies to
// itself, a direct message replies to the sender's nickname.
func ReplyTo(target, sourcePrefix string) string {
	if strings.HasPrefix(target, "#") {
		return target
	}
	if nick := Nick(sourcePrefix); nick != "" {
		return nick
	}
	return target
}
