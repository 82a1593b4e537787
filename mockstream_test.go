// Copyright (c) Liam Stanley <me@liamstanley.io>. All rights reserved. Use
// of this source code is governed by the MIT license that can be found in
// the LICENSE file.

package irc

import (
	"io"
	"testing"
)

func TestMockStreamReadDrainsThenEOF(t *testing.T) {
	m := NewMockStream([]byte("hello"))

	buf := make([]byte, 3)
	n, err := m.Read(buf)
	if err != nil || n != 3 || string(buf[:n]) != "hel" {
		t.Fatalf("first Read = %d,%v,%q", n, err, buf[:n])
	}

	n, err = m.Read(buf)
	if err != nil || n != 2 || string(buf[:n]) != "lo" {
		t.Fatalf("second Read = %d,%v,%q", n, err, buf[:n])
	}

	_, err = m.Read(buf)
	if err != io.EOF {
		t.Fatalf("third Read err = %v, want io.EOF", err)
	}
}

func TestMockStreamFeedExtendsReadBuffer(t *testing.T) {
	m := NewMockStream(nil)
	buf := make([]byte, 8)
	if _, err := m.Read(buf); err != io.EOF {
		t.Fatalf("Read on empty stream = %v, want io.EOF", err)
	}

	m.Feed([]byte("more"))
	n, err := m.Read(buf)
	if err != nil || string(buf[:n]) != "more" {
		t.Fatalf("Read after Feed = %d,%v,%q", n, err, buf[:n])
	}
}

func TestMockStreamWriteCapturedInView(t *testing.T) {
	m := NewMockStream([]byte("seed"))
	if _, err := m.Write([]byte("out1")); err != nil {
		t.Fatalf("Write: %v", err)
	}
	if _, err := m.Write([]byte("out2")); err != nil {
		t.Fatalf("Write: %v", err)
	}

	view := m.View()
	if string(view.Written) != "out1out2" {
		t.Errorf("Written = %q, want %q", view.Written, "out1out2")
	}
	if string(view.Pending) != "seed" {
		t.Errorf("Pending = %q, want %q", view.Pending, "seed")
	}
}

func TestMockStreamWriteAfterCloseFails(t *testing.T) {
	m := NewMockStream(nil)
	if err := m.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if _, err := m.Write([]byte("x")); err != io.ErrClosedPipe {
		t.Fatalf("Write after Close = %v, want io.ErrClosedPipe", err)
	}
}
