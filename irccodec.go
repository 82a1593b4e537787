// Copyright (c) Liam Stanley <me@liamstanley.io>. All rights reserved. Use
// of this source code is governed by the MIT license that can be found in
// the LICENSE file.

package irc

import (
	"bytes"
	"io"
)

const readChunkSize = 4096

// ircCodec layers message framing/parsing over a lineCodec and a duplex
// byte stream. It is the thing every Connection variant (plain TCP, TLS,
// mock) wraps itself in to expose a uniform Message duplex.
type ircCodec struct {
	rw   io.ReadWriter
	line *lineCodec
	buf  bytes.Buffer
}

func newIRCCodec(rw io.ReadWriter, encodingLabel string) (*ircCodec, error) {
	lc, err := newLineCodec(encodingLabel)
	if err != nil {
		return nil, err
	}
	return &ircCodec{rw: rw, line: lc}, nil
}

// ReadMessage blocks until either a full line has been framed off the
// wire or an I/O error occurs. A line that fails to parse into a Message
// with a non-empty command yields a *ProtocolParseError for that single
// line; the caller is expected to log it and call ReadMessage again --
// it does not indicate a broken stream.
func (c *ircCodec) ReadMessage() (*Message, error) {
	for {
		if line, advance, ok := c.line.decode(c.buf.Bytes()); ok {
			remaining := append([]byte(nil), c.buf.Bytes()[advance:]...)
			c.buf.Reset()
			c.buf.Write(remaining)

			m := ParseMessage(line)
			if m == nil {
				return nil, &ProtocolParseError{Line: line}
			}
			return m, nil
		}

		chunk := make([]byte, readChunkSize)
		n, err := c.rw.Read(chunk)
		if n > 0 {
			c.buf.Write(chunk[:n])
		}
		if err != nil {
			return nil, err
		}
	}
}

// WriteMessage serializes m to exactly one "\r\n"-terminated line under
// the active charset and writes it to the underlying stream.
func (c *ircCodec) WriteMessage(m *Message) error {
	var out bytes.Buffer
	if err := c.line.encode(&out, m.String()+"\r\n"); err != nil {
		return err
	}
	_, err := c.rw.Write(out.Bytes())
	return err
}
