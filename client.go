// Copyright (c) Liam Stanley <me@liamstanley.io>. All rights reserved. Use
// of this source code is governed by the MIT license that can be found in
// the LICENSE file.

package irc

import (
	"io"
	"log"
	"strings"
	"sync"
)

// StreamItem is either an inbound Message or a terminal error delivered
// over Client.Stream. Once Err is non-nil, no further items follow.
type StreamItem struct {
	Msg *Message
	Err error
}

// Client wraps a Connection+Transport, drives the registration handshake,
// and interprets a small reply set to maintain per-channel rosters
// (spec.md 4.6). It exclusively owns its Connection; the Transport is
// created inside it and the outbound send handle is this Client itself.
type Client struct {
	cfg       Config
	transport *Transport
	roster    *roster
	logger    *log.Logger

	stream chan StreamItem

	mu           sync.Mutex
	nick         string
	altIdx       int
	registered   bool
	identifySent bool

	closeOnce sync.Once
}

// Connect dials per cfg (mock, TLS, or plain per spec.md 4.4), spawns the
// Transport, and begins the registration handshake. The returned Client
// is usable immediately; Stream() yields the registration traffic and
// everything after it.
func Connect(cfg Config) (*Client, error) {
	cfg = cfg.withDefaults()
	if err := cfg.isValid(); err != nil {
		return nil, err
	}

	conn, err := dialConnection(cfg)
	if err != nil {
		return nil, err
	}

	var logWriter io.Writer = io.Discard
	if cfg.Debugger != nil {
		logWriter = cfg.Debugger
	}
	logger := log.New(logWriter, "irc: ", log.LstdFlags)

	c := &Client{
		cfg:       cfg,
		transport: newTransport(conn, cfg, logger),
		roster:    newRoster(),
		logger:    logger,
		stream:    make(chan StreamItem, 64),
		nick:      cfg.Nickname,
	}

	go c.run()
	c.registerHandshake()

	return c, nil
}

// registerHandshake sends the fixed PASS/NICK/USER sequence (spec.md 4.6
// steps 1-3); everything after that (umodes, auto-join, NickServ
// identify) happens reactively in track() once the server confirms
// registration completed.
func (c *Client) registerHandshake() {
	if c.cfg.ServerPassword != "" {
		c.logger.Print("sending PASS")
		_ = c.transport.Send(&Message{Command: "PASS", Params: []string{c.cfg.ServerPassword}})
	}

	nick := c.currentNick()
	c.logger.Printf("registering as %s", nick)
	_ = c.transport.Send(&Message{Command: "NICK", Params: []string{nick}})
	_ = c.transport.Send(&Message{
		Command:     "USER",
		Params:      []string{c.cfg.Username, "0", "*"},
		Trailing:    c.cfg.Realname,
		HasTrailing: true,
	})
}

// run is the single task driving the inbound stream: it reads Transport
// items, updates roster state, and forwards everything (unfiltered) to
// the user-facing Stream.
func (c *Client) run() {
	defer close(c.stream)

	for item := range c.transport.Inbox() {
		if item.err != nil {
			c.stream <- StreamItem{Err: item.err}
			return
		}
		c.track(item.msg)
		c.stream <- StreamItem{Msg: item.msg}
	}
}

// track interprets the reply/command subset named in spec.md 4.6's
// table, mutating channel rosters. Unknown numerics and commands pass
// through untouched -- the tracker never filters the inbound stream.
func (c *Client) track(m *Message) {
	switch m.Command {
	case "001":
		c.handleWelcome(m)
	case "376", "422":
		c.handleEndOfMOTD()
	case "433":
		c.handleNickInUse()
	case "353":
		c.handleNames(m)
	case "JOIN":
		c.handleJoin(m)
	case "PART":
		c.handlePart(m)
	case "QUIT":
		c.handleQuit(m)
	case "KICK":
		c.handleKick(m)
	case "NICK":
		c.handleNick(m)
	case "MODE":
		c.handleMode(m)
	case "PING":
		// Auto-PONG already enqueued by the Transport; nothing to track.
	}
}

func (c *Client) handleWelcome(m *Message) {
	c.mu.Lock()
	c.registered = true
	if len(m.Params) > 0 {
		c.nick = m.Params[0]
	}
	c.mu.Unlock()
	c.maybeIdentify()
}

func (c *Client) handleEndOfMOTD() {
	c.maybeIdentify()

	if c.cfg.UModes != "" {
		_ = c.send(&Message{Command: "MODE", Params: []string{c.currentNick(), c.cfg.UModes}})
	}

	for _, ch := range c.cfg.Channels {
		if key, ok := c.cfg.ChannelKeys[ch]; ok && key != "" {
			_ = c.send(&Message{Command: "JOIN", Params: []string{ch, key}})
		} else {
			_ = c.send(&Message{Command: "JOIN", Params: []string{ch}})
		}
	}
}

// maybeIdentify sends the NickServ IDENTIFY message once, upon whichever
// of 001/376/422 arrives first (spec.md 4.6 step 4).
func (c *Client) maybeIdentify() {
	if c.cfg.NickPassword == "" {
		return
	}
	c.mu.Lock()
	if c.identifySent {
		c.mu.Unlock()
		return
	}
	c.identifySent = true
	c.mu.Unlock()

	_ = c.send(&Message{
		Command:     "PRIVMSG",
		Params:      []string{"NickServ"},
		Trailing:    "IDENTIFY " + c.cfg.NickPassword,
		HasTrailing: true,
	})
}

// handleNickInUse tries the next alt_nicks entry (spec.md 4.6 step 6);
// it only takes effect before registration completes.
func (c *Client) handleNickInUse() {
	c.mu.Lock()
	if c.registered {
		c.mu.Unlock()
		return
	}
	if c.altIdx >= len(c.cfg.AltNicks) {
		c.mu.Unlock()
		c.transport.terminal(&NoUsableNickError{})
		return
	}
	next := c.cfg.AltNicks[c.altIdx]
	c.altIdx++
	c.nick = next
	c.mu.Unlock()

	_ = c.transport.Send(&Message{Command: "NICK", Params: []string{next}})
}

func (c *Client) handleNames(m *Message) {
	if len(m.Params) < 3 {
		return
	}
	channel := m.Params[2]
	tokens := strings.Fields(m.Trailing)
	c.roster.addNames(channel, tokens)
}

func (c *Client) handleJoin(m *Message) {
	if m.Prefix == nil {
		return
	}
	channel := joinTarget(m)
	if channel == "" {
		return
	}
	c.roster.addUser(channel, m.Prefix.Name)
}

func joinTarget(m *Message) string {
	if len(m.Params) > 0 {
		return m.Params[0]
	}
	return m.Trailing
}

func (c *Client) handlePart(m *Message) {
	if m.Prefix == nil || len(m.Params) < 1 {
		return
	}
	c.roster.removeUser(m.Params[0], m.Prefix.Name)
}

func (c *Client) handleQuit(m *Message) {
	if m.Prefix == nil {
		return
	}
	c.roster.removeUserEverywhere(m.Prefix.Name)
}

func (c *Client) handleKick(m *Message) {
	if len(m.Params) < 2 {
		return
	}
	c.roster.removeUser(m.Params[0], m.Params[1])
}

func (c *Client) handleNick(m *Message) {
	if m.Prefix == nil {
		return
	}
	newNick := ""
	if len(m.Params) > 0 {
		newNick = m.Params[0]
	} else {
		newNick = m.Trailing
	}
	if newNick == "" {
		return
	}
	c.roster.renameUser(m.Prefix.Name, newNick)

	c.mu.Lock()
	if ToRFC1459(m.Prefix.Name) == ToRFC1459(c.nick) {
		c.nick = newNick
	}
	c.mu.Unlock()
}

// handleMode applies "+o"/"-v"-style channel mode changes to the
// affected users' access levels (spec.md 4.6's MODE row).
func (c *Client) handleMode(m *Message) {
	if len(m.Params) < 2 {
		return
	}
	channel := m.Params[0]
	changes := parseModeString(m.Params[1], m.Params[2:])
	for _, ch := range changes {
		c.roster.applyMode(channel, ch.target, ch.String())
	}
}

type modeChange struct {
	sign   byte
	letter byte
	target string
}

func (mc modeChange) String() string { return string(mc.sign) + string(mc.letter) }

// parseModeString expands a MODE string like "+o-v" against its target
// arguments, in order, yielding one modeChange per letter that takes a
// target (the access-level letters o/v/h/a/q always do).
func parseModeString(modes string, targets []string) []modeChange {
	var out []modeChange
	sign := byte('+')
	ti := 0
	for i := 0; i < len(modes); i++ {
		switch modes[i] {
		case '+', '-':
			sign = modes[i]
			continue
		}
		letter := modes[i]
		if _, ok := modeToLevel[letter]; !ok {
			continue
		}
		if ti >= len(targets) {
			continue
		}
		out = append(out, modeChange{sign: sign, letter: letter, target: targets[ti]})
		ti++
	}
	return out
}

func (c *Client) currentNick() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.nick
}

// send is the internal enqueue path shared by the tracker's own
// registration/auto-join traffic and the public Send wrappers.
func (c *Client) send(m *Message) error {
	if err := c.transport.Send(m); err != nil {
		return &SendError{Cause: err}
	}
	return nil
}

// Send enqueues an arbitrary Message for the wire.
func (c *Client) Send(m *Message) error { return c.send(m) }

// SendPrivmsg sends a PRIVMSG to target (a channel or nick).
func (c *Client) SendPrivmsg(target, text string) error {
	return c.send(&Message{Command: "PRIVMSG", Params: []string{target}, Trailing: text, HasTrailing: true})
}

// SendNotice sends a NOTICE to target.
func (c *Client) SendNotice(target, text string) error {
	return c.send(&Message{Command: "NOTICE", Params: []string{target}, Trailing: text, HasTrailing: true})
}

// Join sends a JOIN for channel, with an optional key.
func (c *Client) Join(channel, key string) error {
	if key != "" {
		return c.send(&Message{Command: "JOIN", Params: []string{channel, key}})
	}
	return c.send(&Message{Command: "JOIN", Params: []string{channel}})
}

// Part sends a PART for channel, with an optional message.
func (c *Client) Part(channel, message string) error {
	if message != "" {
		return c.send(&Message{Command: "PART", Params: []string{channel}, Trailing: message, HasTrailing: true})
	}
	return c.send(&Message{Command: "PART", Params: []string{channel}})
}

// Identify sends the NickServ IDENTIFY message immediately, regardless of
// registration state. Used for manual re-identification; automatic
// identification after connect is handled by maybeIdentify.
func (c *Client) Identify() error {
	if c.cfg.NickPassword == "" {
		return nil
	}
	return c.send(&Message{
		Command:     "PRIVMSG",
		Params:      []string{"NickServ"},
		Trailing:    "IDENTIFY " + c.cfg.NickPassword,
		HasTrailing: true,
	})
}

// Stream returns the channel of inbound items. It is closed once a
// terminal error has been delivered.
func (c *Client) Stream() <-chan StreamItem { return c.stream }

// ListUsers returns a snapshot copy of channel's roster in insertion
// order, or ok=false if the channel is unknown.
func (c *Client) ListUsers(channel string) (users []*User, ok bool) {
	return c.roster.snapshot(channel)
}

// LogView returns the logged mock traffic, or ok=false if this Client
// isn't running over a mock connection.
func (c *Client) LogView() ([]LogEntry, bool) {
	if c.transport.conn.mock == nil {
		return nil, false
	}
	return c.transport.View(), true
}

// Close tears down the Transport and underlying connection.
func (c *Client) Close() {
	c.closeOnce.Do(func() {
		c.transport.Close()
	})
}
