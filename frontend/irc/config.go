//go:build linux

// Copyright 2025 The Hamelin Authors. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Package irc implements the IRC frontend: a persistent connection to one
// IRC server, routing PRIVMSGs to per-target child sessions.
package irc

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Config is the IRC frontend's configuration file shape.
type Config struct {
	Server   string   `yaml:"server"`
	Port     int      `yaml:"port"`
	Nick     string   `yaml:"nick"`
	Channels []string `yaml:"channels"`
	TLS      bool     `yaml:"tls"`
}

// LoadConfig reads and parses an IRC frontend configuration file.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("irc: read config: %w", err)
	}
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("irc: parse config: %w", err)
	}
	if cfg.Server == "" {
		return nil, fmt.Errorf("irc: config missing server")
	}
	if cfg.Port == 0 {
		cfg.Port = 6667
	}
	if cfg.Nick == "" {
		return nil, fmt.Errorf("irc: config missing nick")
	}
	return &cfg, nil
}

// Scheme returns "ircs" under TLS, "irc" otherwise, for building the
// H-CLIENT URI handed to spawned children.
func (c *Config) Scheme() string {
	if c.TLS {
		return "ircs"
	}
	return "irc"
}

// Addr returns the "host:port" dial target.
func (c *Config) Addr() string {
	return fmt.Sprintf("%s:%d", c.Server, c.Port)
}
