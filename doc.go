// Copyright (c) Liam Stanley <me@liamstanley.io>. All rights reserved. Use
// of this source code is governed by the MIT license that can be found in
// the LICENSE file.

// Package irc implements the core of an IRC client: transport (plain TCP,
// TLS, or an in-memory mock), line/message framing under a configurable
// character encoding, flood control, keep-alive, and per-channel roster
// tracking, exposed as an asynchronous pull stream of inbound messages
// and a push sink of outbound ones.
//
// Configuration loading, the IRC command-builder surface, logging
// backends, and CLI/bot tooling are external collaborators; this package
// only defines the Config fields it reads (see Config) and the Message
// type it produces and consumes.
package irc
