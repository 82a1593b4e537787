// Copyright (c) Liam Stanley <me@liamstanley.io>. All rights reserved. Use
// of this source code is governed by the MIT license that can be found in
// the LICENSE file.

package irc

import (
	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/htmlindex"
)

// resolveCharset maps a WHATWG encoding label (e.g. "utf-8", "iso-8859-1")
// to an encoding.Encoding. An unrecognized label is the only hard error in
// the codec stack; everything downstream of a resolved encoding falls back
// to replacement characters instead of failing.
func resolveCharset(label string) (encoding.Encoding, error) {
	if label == "" {
		label = "utf-8"
	}
	enc, err := htmlindex.Get(label)
	if err != nil {
		return nil, &UnknownCodecError{Label: label}
	}
	return enc, nil
}
