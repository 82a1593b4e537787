// Copyright (c) Liam Stanley <me@liamstanley.io>. All rights reserved. Use
// of this source code is governed by the MIT license that can be found in
// the LICENSE file.

package irc

import (
	"io"
	"time"
)

// ProxyType selects how the underlying TCP connection is tunneled.
type ProxyType int

const (
	ProxyNone ProxyType = iota
	ProxySocks5
)

// Config holds everything the core reads to connect and register. Loading
// it from a file, environment, or flags is an external concern (spec.md
// 1); this struct is the semantic contract the core depends on.
type Config struct {
	// Connection.
	Server  string
	Port    int
	UseTLS  bool
	Encoding string // WHATWG label; defaults to "utf-8".

	// Registration.
	Nickname     string
	AltNicks     []string
	Username     string
	Realname     string
	ServerPassword string
	NickPassword string // NickServ identify password.

	Channels    []string          // auto-joined in order after registration.
	ChannelKeys map[string]string // per-channel keys.
	UModes      string            // user modes set after registration.

	// TLS.
	CertPath                     string
	ClientCertPath               string
	ClientCertPass               string
	DangerouslyAcceptInvalidCerts bool

	// Proxy.
	ProxyType     ProxyType
	ProxyServer   string
	ProxyPort     int
	ProxyUsername string
	ProxyPassword string

	// Flood control / keep-alive.
	BurstWindowLength  time.Duration // default 8s; accepted as seconds by caller.
	MaxMessagesInBurst int           // default 15.
	PingTime           time.Duration // default 180s.
	PingTimeout        time.Duration // default 10s.

	// Testing.
	UseMockConnection bool
	MockInitialValue  string

	// Debugger, if set, receives ambient log lines: registration steps and
	// inbound lines skipped because they could not be parsed.
	Debugger io.Writer
}

// withDefaults returns a copy of c with zero-valued tunables replaced by
// spec.md 3's documented defaults.
func (c Config) withDefaults() Config {
	if c.Encoding == "" {
		c.Encoding = "utf-8"
	}
	if c.BurstWindowLength <= 0 {
		c.BurstWindowLength = 8 * time.Second
	}
	if c.MaxMessagesInBurst <= 0 {
		c.MaxMessagesInBurst = 15
	}
	if c.PingTime <= 0 {
		c.PingTime = 180 * time.Second
	}
	if c.PingTimeout <= 0 {
		c.PingTimeout = 10 * time.Second
	}
	return c
}

// isValid performs the minimal structural checks the core needs before
// connecting; it does not read or parse any file. Grounded on girc's
// Config.isValid in client.go. Checking the encoding label here, rather
// than leaving it to surface from the codec once a real socket (and,
// for UseTLS, a full handshake) is already open, means a bad label is
// never more expensive to fail on than it needs to be.
func (c Config) isValid() error {
	if _, err := resolveCharset(c.Encoding); err != nil {
		return &ConfigInvalidError{Cause: err}
	}
	if c.UseMockConnection {
		return nil
	}
	if c.Server == "" {
		return &ConfigInvalidError{Cause: errString("server must not be empty")}
	}
	if c.Nickname == "" {
		return &ConfigInvalidError{Cause: errString("nickname must not be empty")}
	}
	return nil
}

type errString string

func (e errString) Error() string { return string(e) }
