// Copyright (c) Liam Stanley <me@liamstanley.io>. All rights reserved. Use
// of this source code is governed by the MIT license that can be found in
// the LICENSE file.

package irc

import (
	"context"
	"errors"
	"log"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/time/rate"
)

// transportState is one of the four states a Transport moves through
// during its lifetime (spec.md 4.5).
type transportState int32

const (
	stateConnecting transportState = iota
	stateRunning
	stateClosing
	stateClosed
)

// inboundItem is either a received Message or a terminal error, matching
// spec.md 7's propagation policy: everything but ProtocolParse surfaces
// as a terminal item on the inbound stream.
type inboundItem struct {
	msg *Message
	err error
}

// outboundItem is one queued send. priority items (auto-PONGs, PINGs)
// travel on their own channel (see Transport.priority) and additionally
// skip the flood-control wait in writeOne.
type outboundItem struct {
	msg      *Message
	priority bool
	result   chan error
}

// Transport is the concurrency heart of the client: it owns the framed
// Connection plus an outbound multi-producer queue, a token-bucket flood
// limiter, an idle-timeout PING generator, and optional mock traffic
// logging. Grounded on girc's ircConn/sendLoop/pingLoop (conn.go),
// reshaped around an explicit state machine and golang.org/x/time/rate
// in place of the hand-rolled write-delay calculation.
type Transport struct {
	conn   *Connection
	cfg    Config
	logger *log.Logger

	limiter *rate.Limiter

	outbox   chan outboundItem
	priority chan outboundItem
	inbox    chan inboundItem

	// activity carries a signal (never a payload) each time inbound
	// traffic arrives, so keepAliveLoop -- the sole owner of the
	// idle/deadline timers -- can reset them without a mutex.
	activity chan struct{}

	state atomic.Int32

	mu   sync.Mutex
	tlog []LogEntry

	ctx    context.Context
	cancel context.CancelFunc
	done   chan struct{}
}

// LogDirection tags a logged traffic entry as inbound or outbound.
type LogDirection int

const (
	DirInbound LogDirection = iota
	DirOutbound
)

// LogEntry is one line of traffic captured while running over the mock
// connection.
type LogEntry struct {
	Direction LogDirection
	Line      string
	At        time.Time
}

// newTransport wraps conn and spawns its background pump and keep-alive
// tasks. The caller retains the returned Transport for its lifetime; Close
// stops both tasks and the underlying byte stream.
func newTransport(conn *Connection, cfg Config, logger *log.Logger) *Transport {
	ctx, cancel := context.WithCancel(context.Background())

	burst := cfg.MaxMessagesInBurst
	refillPerSecond := float64(cfg.MaxMessagesInBurst) / cfg.BurstWindowLength.Seconds()

	t := &Transport{
		conn:     conn,
		cfg:      cfg,
		logger:   logger,
		limiter:  rate.NewLimiter(rate.Limit(refillPerSecond), burst),
		outbox:   make(chan outboundItem, 64),
		priority: make(chan outboundItem, 16),
		inbox:    make(chan inboundItem, 64),
		activity: make(chan struct{}, 1),
		ctx:      ctx,
		cancel:   cancel,
		done:     make(chan struct{}),
	}
	t.state.Store(int32(stateRunning))

	go t.readLoop()
	go t.pumpLoop()
	if cfg.PingTime > 0 {
		go t.keepAliveLoop()
	}

	return t
}

// Inbox returns the channel of inbound items (a Message or a terminal
// error). It is closed once the Transport reaches Closed.
func (t *Transport) Inbox() <-chan inboundItem { return t.inbox }

// Send enqueues msg on the normal outbound lane.
func (t *Transport) Send(msg *Message) error {
	return t.enqueue(msg, false)
}

// sendPriority enqueues msg on the priority lane. pumpLoop always
// services the priority lane ahead of the normal outbox (see pumpLoop),
// and writeOne skips the flood-control wait for it entirely -- together
// these give an auto-PONG (or keep-alive PING) a real queue-jump over
// whatever user traffic is already sitting in outbox, not just a faster
// write once its turn comes up.
func (t *Transport) sendPriority(msg *Message) error {
	return t.enqueue(msg, true)
}

func (t *Transport) enqueue(msg *Message, priority bool) error {
	if transportState(t.state.Load()) == stateClosed {
		return &ConnectionClosedError{}
	}

	result := make(chan error, 1)
	item := outboundItem{msg: msg, priority: priority, result: result}

	target := t.outbox
	if priority {
		target = t.priority
	}

	select {
	case target <- item:
	case <-t.ctx.Done():
		return &ConnectionClosedError{}
	}

	select {
	case err := <-result:
		return err
	case <-t.ctx.Done():
		return &ConnectionClosedError{}
	}
}

// readLoop is the single task reading from the Connection, translating
// I/O into inboundItems and signaling the keep-alive loop on every
// arrival, including unsolicited server PINGs.
//
// A read error only tears down the read half: it is pushed as the final
// inbound item and the loop returns, but the pump and the connection
// itself are left running so that sends already in flight -- or issued
// moments later by the caller -- still complete. This matters for the
// mock connection in particular, whose preload buffer reaching end of
// script looks exactly like an EOF but is not a reason to refuse
// outbound traffic. Close, a write failure, a ping timeout, or running out
// of nicknames during registration are the only paths that tear down the
// whole Transport (see terminal).
func (t *Transport) readLoop() {
	for {
		msg, err := t.conn.ReadMessage()
		if err != nil {
			var parseErr *ProtocolParseError
			if errors.As(err, &parseErr) {
				t.logf("protocol parse error, skipping: %v", err)
				continue
			}
			t.terminalRead(err)
			return
		}

		t.logTraffic(DirInbound, msg)
		t.noteActivity()

		if msg.Command == "PING" {
			_ = t.sendPriority(&Message{Command: "PONG", Trailing: msg.Trailing, HasTrailing: msg.HasTrailing})
		}

		select {
		case t.inbox <- inboundItem{msg: msg}:
		case <-t.ctx.Done():
			return
		}
	}
}

// pumpLoop is the single task draining the outbound queues, spending a
// flood-control token per non-priority message, and writing to the wire.
// It always drains every currently-queued priority item before touching
// the normal outbox: the inner loop below is a non-blocking check run
// before each blocking select, so a priority send queued while a normal
// one is already waiting still gets written first.
func (t *Transport) pumpLoop() {
	defer close(t.done)
	defer t.transitionClosed()

	for {
		for {
			select {
			case item := <-t.priority:
				if err := t.service(item); err != nil {
					return
				}
				continue
			default:
			}
			break
		}

		select {
		case item := <-t.priority:
			if err := t.service(item); err != nil {
				return
			}
		case item := <-t.outbox:
			if err := t.service(item); err != nil {
				return
			}
		case <-t.ctx.Done():
			t.drain()
			return
		}
	}
}

// service writes one queued item, reports the result to its sender, and
// -- on a write failure -- tears down the whole Transport, since a write
// error (unlike a read EOF) means the connection itself is no longer
// usable in either direction.
func (t *Transport) service(item outboundItem) error {
	err := t.writeOne(item)
	item.result <- err
	if err != nil {
		t.terminal(err)
	}
	return err
}

func (t *Transport) writeOne(item outboundItem) error {
	if !item.priority {
		if err := t.limiter.Wait(t.ctx); err != nil {
			return &ConnectionClosedError{}
		}
	}

	if err := t.conn.WriteMessage(item.msg); err != nil {
		return err
	}

	t.logTraffic(DirOutbound, item.msg)
	return nil
}

// drain best-effort flushes whatever is already queued when Closing,
// without applying further flood delay. Priority items drain first, for
// the same reason pumpLoop's main loop prefers them.
func (t *Transport) drain() {
	t.drainChan(t.priority)
	t.drainChan(t.outbox)
}

func (t *Transport) drainChan(ch chan outboundItem) {
	for {
		select {
		case item := <-ch:
			err := t.conn.WriteMessage(item.msg)
			item.result <- err
		default:
			return
		}
	}
}

// keepAliveLoop fires a PING after ping_time of no inbound activity and
// terminates the Transport with PingTimeoutError if no PONG (or any
// other inbound traffic) arrives within the following ping_timeout.
//
// Termination is driven by a one-shot deadline timer armed fresh on each
// PING send, not by checking elapsed time against a periodic tick: a
// ticker firing every ping_time can never itself observe more than
// ping_time of elapsed time, so a check of the form "has it been more
// than ping_time+ping_timeout" against that same tick can never trip.
// The deadline timer here is independent of the idle timer that decides
// when to send the next PING, and is reset (stopped) by any activity
// signal, including the matching PONG.
func (t *Transport) keepAliveLoop() {
	idle := time.NewTimer(t.cfg.PingTime)
	defer idle.Stop()

	var deadline *time.Timer
	var deadlineC <-chan time.Time
	stopDeadline := func() {
		if deadline != nil {
			deadline.Stop()
			deadline = nil
			deadlineC = nil
		}
	}
	defer stopDeadline()

	var seq uint64
	var lastTok string

	for {
		select {
		case <-idle.C:
			seq++
			lastTok = strconv.FormatUint(seq, 10)
			_ = t.sendPriority(&Message{Command: "PING", Trailing: lastTok, HasTrailing: true})

			stopDeadline()
			deadline = time.NewTimer(t.cfg.PingTimeout)
			deadlineC = deadline.C

		case <-deadlineC:
			t.terminal(&PingTimeoutError{Token: lastTok})
			return

		case <-t.activity:
			stopDeadline()
			if !idle.Stop() {
				select {
				case <-idle.C:
				default:
				}
			}
			idle.Reset(t.cfg.PingTime)

		case <-t.ctx.Done():
			return
		}
	}
}

// noteActivity signals keepAliveLoop that inbound traffic arrived,
// postponing the next PING and canceling any outstanding timeout
// deadline. The send is non-blocking: a pending unread signal already
// says everything a second one would.
func (t *Transport) noteActivity() {
	select {
	case t.activity <- struct{}{}:
	default:
	}
}

// terminalRead tears down only the read half on an I/O error from
// ReadMessage: it surfaces err as the final inbound item but leaves the
// pump, keep-alive loop, and connection running. See readLoop's comment
// for why a read ending is not treated as a reason to refuse sends.
func (t *Transport) terminalRead(err error) {
	if !t.state.CompareAndSwap(int32(stateRunning), int32(stateClosing)) {
		return
	}
	select {
	case t.inbox <- inboundItem{err: err}:
	default:
	}
}

// terminal tears down the whole Transport: a write failure or a ping
// timeout means the connection is dead in both directions, so every
// pending and future send should fail too. Unlike terminalRead, this
// runs even if terminalRead already moved the state to Closing.
func (t *Transport) terminal(err error) {
	if transportState(t.state.Load()) == stateClosed {
		return
	}
	t.state.Store(int32(stateClosing))

	select {
	case t.inbox <- inboundItem{err: err}:
	default:
	}
	t.cancel()
}

func (t *Transport) transitionClosed() {
	t.state.Store(int32(stateClosed))
	_ = t.conn.Close()
	close(t.inbox)
}

// Close signals the pump and keep-alive tasks to stop, drops the queue,
// and closes the underlying byte stream. Pending sends resolve with
// ConnectionClosedError.
func (t *Transport) Close() {
	if transportState(t.state.Load()) == stateClosed {
		return
	}
	t.cancel()
	<-t.done
}

func (t *Transport) logTraffic(dir LogDirection, msg *Message) {
	if t.conn.mock == nil {
		return
	}
	t.mu.Lock()
	t.tlog = append(t.tlog, LogEntry{Direction: dir, Line: msg.String(), At: time.Now()})
	t.mu.Unlock()
}

// View returns a copy of the logged mock traffic, in chronological order.
func (t *Transport) View() []LogEntry {
	t.mu.Lock()
	defer t.mu.Unlock()
	return append([]LogEntry(nil), t.tlog...)
}

func (t *Transport) logf(format string, args ...any) {
	if t.logger != nil {
		t.logger.Printf(format, args...)
	}
}
