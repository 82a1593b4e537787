// Copyright (c) Liam Stanley <me@liamstanley.io>. All rights reserved. Use
// of this source code is governed by the MIT license that can be found in
// the LICENSE file.

package irc

import (
	"io"
	"sync"
)

// MockStream is an in-memory duplex byte stream standing in for a socket
// in tests. It preloads an inbound buffer (mock_initial_value, encoded
// under the active charset) and captures everything written to it for
// later inspection, bypassing DNS/TLS entirely. Grounded on girc's
// net.Pipe()-based MockConnect helper, reshaped into the self-contained
// preload/capture buffer pair spec.md 4.3 calls for.
type MockStream struct {
	mu      sync.Mutex
	readBuf []byte
	written []byte
	closed  bool
}

// NewMockStream creates a MockStream whose inbound buffer is preloaded
// with initial.
func NewMockStream(initial []byte) *MockStream {
	return &MockStream{readBuf: append([]byte(nil), initial...)}
}

// Read drains readBuf. Once it is empty, Read returns io.EOF, same as a
// closed socket.
func (m *MockStream) Read(p []byte) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if len(m.readBuf) == 0 {
		return 0, io.EOF
	}

	n := copy(p, m.readBuf)
	m.readBuf = m.readBuf[n:]
	return n, nil
}

// Write appends to the captured outbound buffer without bound.
func (m *MockStream) Write(p []byte) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return 0, io.ErrClosedPipe
	}

	m.written = append(m.written, p...)
	return len(p), nil
}

// Close marks the stream closed; further writes fail.
func (m *MockStream) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	return nil
}

// Feed appends additional bytes to the inbound buffer, letting tests drip
// more server traffic into an already-running mock connection.
func (m *MockStream) Feed(p []byte) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.readBuf = append(m.readBuf, p...)
}

// MockStreamView is a point-in-time snapshot of a MockStream's buffers.
type MockStreamView struct {
	Written []byte
	Pending []byte
}

// View snapshots the written and not-yet-consumed-inbound buffers.
func (m *MockStream) View() MockStreamView {
	m.mu.Lock()
	defer m.mu.Unlock()
	return MockStreamView{
		Written: append([]byte(nil), m.written...),
		Pending: append([]byte(nil), m.readBuf...),
	}
}
