// Copyright (c) Liam Stanley <me@liamstanley.io>. All rights reserved. Use
// of this source code is governed by the MIT license that can be found in
// the LICENSE file.

package irc

import (
	"testing"
	"time"
)

func TestConfigWithDefaults(t *testing.T) {
	c := Config{}.withDefaults()
	if c.Encoding != "utf-8" {
		t.Errorf("Encoding = %q, want utf-8", c.Encoding)
	}
	if c.BurstWindowLength != 8*time.Second {
		t.Errorf("BurstWindowLength = %v, want 8s", c.BurstWindowLength)
	}
	if c.MaxMessagesInBurst != 15 {
		t.Errorf("MaxMessagesInBurst = %d, want 15", c.MaxMessagesInBurst)
	}
	if c.PingTime != 180*time.Second {
		t.Errorf("PingTime = %v, want 180s", c.PingTime)
	}
	if c.PingTimeout != 10*time.Second {
		t.Errorf("PingTimeout = %v, want 10s", c.PingTimeout)
	}
}

func TestConfigWithDefaultsPreservesSetValues(t *testing.T) {
	c := Config{Encoding: "iso-8859-1", MaxMessagesInBurst: 5}.withDefaults()
	if c.Encoding != "iso-8859-1" {
		t.Errorf("Encoding = %q, want iso-8859-1", c.Encoding)
	}
	if c.MaxMessagesInBurst != 5 {
		t.Errorf("MaxMessagesInBurst = %d, want 5", c.MaxMessagesInBurst)
	}
}

func TestConfigIsValid(t *testing.T) {
	if err := (Config{}).isValid(); err == nil {
		t.Errorf("empty config isValid() = nil, want error")
	}
	if err := (Config{Server: "irc.test.net"}).isValid(); err == nil {
		t.Errorf("missing nickname isValid() = nil, want error")
	}
	if err := (Config{Server: "irc.test.net", Nickname: "bot"}).isValid(); err != nil {
		t.Errorf("valid config isValid() = %v, want nil", err)
	}
	if err := (Config{UseMockConnection: true}).isValid(); err != nil {
		t.Errorf("mock config isValid() = %v, want nil", err)
	}
}
