// Copyright (c) Liam Stanley <me@liamstanley.io>. All rights reserved. Use
// of this source code is governed by the MIT license that can be found in
// the LICENSE file.

package irc

import (
	"bytes"

	"golang.org/x/text/encoding"
)

// lineDelim is the byte that terminates a framed line on the wire. The
// decoder tolerates an optional preceding '\r'.
const lineDelim byte = '\n'

// lineCodec frames an accumulating byte buffer into complete lines and
// transcodes each line between the active character set and text. It
// mirrors irc-proto's LineCodec: next_index remembers how far the buffer
// has already been scanned so repeated polls don't rescan known-clean
// bytes.
type lineCodec struct {
	enc       encoding.Encoding
	nextIndex int
}

// newLineCodec resolves label to a character set. An unknown label is the
// only hard construction-time error.
func newLineCodec(label string) (*lineCodec, error) {
	enc, err := resolveCharset(label)
	if err != nil {
		return nil, err
	}
	return &lineCodec{enc: enc}, nil
}

// decode scans buf for a complete '\n'-terminated line starting from the
// last unscanned index. If found, it returns the decoded text (including
// the trailing '\n'), the number of bytes to advance buf by, and true. If
// no complete line is available yet, it returns ok=false and remembers how
// far it has already scanned so the next call doesn't redo the work.
func (c *lineCodec) decode(buf []byte) (line string, advance int, ok bool) {
	if c.nextIndex > len(buf) {
		c.nextIndex = 0
	}

	offset := bytes.IndexByte(buf[c.nextIndex:], lineDelim)
	if offset < 0 {
		c.nextIndex = len(buf)
		return "", 0, false
	}

	end := c.nextIndex + offset + 1
	raw := buf[:end]
	c.nextIndex = 0

	return c.decodeBytes(raw), end, true
}

// decodeBytes transcodes raw bytes to text under the active encoding,
// substituting the Unicode replacement character for any byte sequence
// that cannot be represented rather than failing the stream.
func (c *lineCodec) decodeBytes(raw []byte) string {
	out, err := c.enc.NewDecoder().Bytes(raw)
	if err != nil || out == nil {
		// Fall back to a best-effort decode: most x/text decoders already
		// substitute U+FFFD for invalid sequences and never reach here, but
		// guard against a transformer that gave up outright.
		return string(bytes.Runes(raw))
	}
	return string(out)
}

// encode appends text to dst, transcoded via the active encoding, with
// replacement on any code point the target charset cannot represent.
func (c *lineCodec) encode(dst *bytes.Buffer, text string) error {
	out, err := c.enc.NewEncoder().Bytes([]byte(text))
	if err == nil {
		dst.Write(out)
		return nil
	}

	// Replace code points the target encoding can't represent one at a
	// time rather than failing the whole line, mirroring EncoderTrap::Replace.
	sanitized := make([]rune, 0, len(text))
	for _, r := range text {
		if _, err := c.enc.NewEncoder().String(string(r)); err != nil {
			sanitized = append(sanitized, '?')
			continue
		}
		sanitized = append(sanitized, r)
	}

	out, err = c.enc.NewEncoder().Bytes([]byte(string(sanitized)))
	if err != nil {
		return &CodecFailedError{Codec: "charset", Data: text}
	}
	dst.Write(out)
	return nil
}
