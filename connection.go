// Copyright (c) Liam Stanley <me@liamstanley.io>. All rights reserved. Use
// of this source code is governed by the MIT license that can be found in
// the LICENSE file.

package irc

import (
	"bytes"
	"crypto/tls"
	"crypto/x509"
	"fmt"
	"io"
	"net"
	"os"
	"strconv"
	"time"

	"golang.org/x/crypto/pkcs12"
	"golang.org/x/net/proxy"
)

// connectTimeout is the implementation-chosen default connect timeout
// recommended by spec.md 5.
const connectTimeout = 30 * time.Second

// connKind tags which of the three fixed transport variants a Connection
// wraps. The set is closed by design (spec.md 9): plain TCP, TLS, or an
// in-memory mock.
type connKind int

const (
	connUnsecured connKind = iota
	connSecured
	connMock
)

// Connection is a tagged variant over {plain TCP, TLS, mock}, each wrapped
// in the IRC codec, exposing a single uniform Message duplex regardless
// of which variant backs it.
type Connection struct {
	kind  connKind
	codec *ircCodec
	raw   io.Closer
	mock  *MockStream
}

// dialConnection selects and constructs the Connection variant per
// spec.md 4.4: mock first, then TLS, then plain -- the order mirrors
// original_source/src/client/conn.rs's Connection::new chain exactly.
func dialConnection(cfg Config) (*Connection, error) {
	if cfg.UseMockConnection {
		return newMockConnection(cfg)
	}
	if cfg.UseTLS {
		return newSecuredConnection(cfg)
	}
	return newUnsecuredConnection(cfg)
}

func dialAddr(cfg Config) (net.Conn, error) {
	addr := net.JoinHostPort(cfg.Server, strconv.Itoa(cfg.Port))

	switch cfg.ProxyType {
	case ProxySocks5:
		proxyAddr := net.JoinHostPort(cfg.ProxyServer, strconv.Itoa(cfg.ProxyPort))
		var auth *proxy.Auth
		if cfg.ProxyUsername != "" || cfg.ProxyPassword != "" {
			auth = &proxy.Auth{User: cfg.ProxyUsername, Password: cfg.ProxyPassword}
		}
		dialer, err := proxy.SOCKS5("tcp", proxyAddr, auth, &net.Dialer{Timeout: connectTimeout})
		if err != nil {
			return nil, err
		}
		return dialer.Dial("tcp", addr)
	default:
		d := &net.Dialer{Timeout: connectTimeout}
		return d.Dial("tcp", addr)
	}
}

func newUnsecuredConnection(cfg Config) (*Connection, error) {
	conn, err := dialAddr(cfg)
	if err != nil {
		return nil, err
	}
	codec, err := newIRCCodec(conn, cfg.Encoding)
	if err != nil {
		_ = conn.Close()
		return nil, err
	}
	return &Connection{kind: connUnsecured, codec: codec, raw: conn}, nil
}

func newSecuredConnection(cfg Config) (*Connection, error) {
	tlsConf, err := buildTLSConfig(cfg)
	if err != nil {
		return nil, err
	}

	conn, err := dialAddr(cfg)
	if err != nil {
		return nil, err
	}

	if err := conn.SetDeadline(time.Now().Add(connectTimeout)); err != nil {
		_ = conn.Close()
		return nil, err
	}

	tlsConn := tls.Client(conn, tlsConf)
	if err := tlsConn.Handshake(); err != nil {
		_ = conn.Close()
		return nil, err
	}

	if err := conn.SetDeadline(time.Time{}); err != nil {
		_ = tlsConn.Close()
		return nil, err
	}

	codec, err := newIRCCodec(tlsConn, cfg.Encoding)
	if err != nil {
		_ = tlsConn.Close()
		return nil, err
	}
	return &Connection{kind: connSecured, codec: codec, raw: tlsConn}, nil
}

// buildTLSConfig assembles the trust store and optional client identity
// per spec.md 4.4.1. Trust store = platform roots plus an optional extra
// cert_path anchor; dangerously_accept_invalid_certs installs a verifier
// that accepts any chain while Go's stdlib TLS still performs the
// handshake signature verification regardless of InsecureSkipVerify, so
// the spec's "never skip signature verification" guarantee holds for
// free (see SPEC_FULL.md 12).
func buildTLSConfig(cfg Config) (*tls.Config, error) {
	conf := &tls.Config{ServerName: cfg.Server, MinVersion: tls.VersionTLS12}

	if cfg.DangerouslyAcceptInvalidCerts {
		conf.InsecureSkipVerify = true //nolint:gosec // explicitly opted into, documented as unsafe.
	}

	if cfg.CertPath != "" {
		pem, err := os.ReadFile(cfg.CertPath)
		if err != nil {
			return nil, &ConfigInvalidError{Path: cfg.CertPath, Cause: err}
		}
		pool, err := x509.SystemCertPool()
		if err != nil || pool == nil {
			pool = x509.NewCertPool()
		}
		if !pool.AppendCertsFromPEM(pem) {
			return nil, &ConfigInvalidError{Path: cfg.CertPath, Cause: fmt.Errorf("no certificates found")}
		}
		conf.RootCAs = pool
	}

	if cfg.ClientCertPath != "" {
		data, err := os.ReadFile(cfg.ClientCertPath)
		if err != nil {
			return nil, &ConfigInvalidError{Path: cfg.ClientCertPath, Cause: err}
		}
		key, cert, _, err := pkcs12.DecodeChain(data, cfg.ClientCertPass)
		if err != nil {
			return nil, &ConfigInvalidError{Path: cfg.ClientCertPath, Cause: err}
		}
		conf.Certificates = []tls.Certificate{{
			Certificate: [][]byte{cert.Raw},
			PrivateKey:  key,
			Leaf:        cert,
		}}
	}

	return conf, nil
}

func newMockConnection(cfg Config) (*Connection, error) {
	lc, err := newLineCodec(cfg.Encoding)
	if err != nil {
		return nil, err
	}

	var preload bytes.Buffer
	if err := lc.encode(&preload, cfg.MockInitialValue); err != nil {
		return nil, err
	}

	mock := NewMockStream(preload.Bytes())
	codec, err := newIRCCodec(mock, cfg.Encoding)
	if err != nil {
		return nil, err
	}
	return &Connection{kind: connMock, codec: codec, raw: mock, mock: mock}, nil
}

// ReadMessage and WriteMessage delegate to the wrapped IRC codec
// regardless of which variant this Connection holds.
func (c *Connection) ReadMessage() (*Message, error) { return c.codec.ReadMessage() }
func (c *Connection) WriteMessage(m *Message) error  { return c.codec.WriteMessage(m) }

// Close closes the underlying byte stream.
func (c *Connection) Close() error {
	if c.raw == nil {
		return nil
	}
	return c.raw.Close()
}

// MockView returns a snapshot of the mock's buffers, or the zero value
// and false if this Connection is not backed by a mock.
func (c *Connection) MockView() (MockStreamView, bool) {
	if c.mock == nil {
		return MockStreamView{}, false
	}
	return c.mock.View(), true
}
