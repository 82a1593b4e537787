// Copyright (c) Liam Stanley <me@liamstanley.io>. All rights reserved. Use
// of this source code is governed by the MIT license that can be found in
// the LICENSE file.

package irc

import "fmt"

// ConfigInvalidError is returned when the configuration handed to Connect is
// unreadable, malformed, or semantically invalid -- including a
// cert_path/client_cert_path naming a file that cannot be opened.
type ConfigInvalidError struct {
	Path  string
	Cause error
}

func (e *ConfigInvalidError) Error() string {
	if e.Path == "" {
		return fmt.Sprintf("invalid configuration: %v", e.Cause)
	}
	return fmt.Sprintf("invalid configuration (%s): %v", e.Path, e.Cause)
}

func (e *ConfigInvalidError) Unwrap() error { return e.Cause }

// UnknownCodecError is returned when an encoding label does not map to any
// known character set.
type UnknownCodecError struct {
	Label string
}

func (e *UnknownCodecError) Error() string {
	return fmt.Sprintf("unknown character encoding: %q", e.Label)
}

// CodecFailedError is returned when a specific string could not be encoded
// or decoded under a resolved codec. This should be rare: the line codec
// decodes with the Unicode replacement character and encodes with '?' in
// place of unrepresentable code points instead of failing outright; it
// returns this error only when the text still cannot be encoded after
// that substitution.
type CodecFailedError struct {
	Codec string
	Data  string
}

func (e *CodecFailedError) Error() string {
	return fmt.Sprintf("failed to encode/decode %q as %s", e.Data, e.Codec)
}

// ProtocolParseError is returned when the IRC codec could not parse an
// inbound line. It is logged and skipped by the transport; it is never
// fatal for the Client on its own.
type ProtocolParseError struct {
	Line string
}

func (e *ProtocolParseError) Error() string {
	return fmt.Sprintf("unable to parse line: %q", e.Line)
}

// PingTimeoutError is returned when no inbound traffic arrived within
// ping_timeout seconds after a keep-alive PING was sent. It terminates the
// inbound stream.
type PingTimeoutError struct {
	Token string
}

func (e *PingTimeoutError) Error() string {
	return fmt.Sprintf("timed out waiting for PONG to PING :%s", e.Token)
}

// NoUsableNickError is returned when every configured nickname (the
// primary plus all alt_nicks) was rejected with ERR_NICKNAMEINUSE (433)
// during registration.
type NoUsableNickError struct{}

func (e *NoUsableNickError) Error() string {
	return "no usable nickname: all candidates were rejected by the server"
}

// ConnectionClosedError is returned when a send is attempted after the
// transport has reached the Closed state.
type ConnectionClosedError struct{}

func (e *ConnectionClosedError) Error() string { return "connection closed" }

// SendError wraps any error encountered while enqueuing or writing an
// outbound message, as surfaced from Client.send.
type SendError struct {
	Cause error
}

func (e *SendError) Error() string { return fmt.Sprintf("send failed: %v", e.Cause) }
func (e *SendError) Unwrap() error { return e.Cause }
