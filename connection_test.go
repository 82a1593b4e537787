// Copyright (c) Liam Stanley <me@liamstanley.io>. All rights reserved. Use
// of this source code is governed by the MIT license that can be found in
// the LICENSE file.

package irc

import (
	"os"
	"path/filepath"
	"testing"
)

func TestBuildTLSConfigMissingCertPathFails(t *testing.T) {
	cfg := Config{CertPath: filepath.Join(t.TempDir(), "does-not-exist.pem")}

	_, err := buildTLSConfig(cfg)
	var confErr *ConfigInvalidError
	if !asConfigInvalid(err, &confErr) {
		t.Fatalf("buildTLSConfig err = %v (%T), want *ConfigInvalidError", err, err)
	}
	if confErr.Path != cfg.CertPath {
		t.Errorf("ConfigInvalidError.Path = %q, want %q", confErr.Path, cfg.CertPath)
	}
}

func TestBuildTLSConfigUnparsableCertPathFails(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cert.pem")
	writeFile(t, path, "not a certificate")

	cfg := Config{CertPath: path}

	_, err := buildTLSConfig(cfg)
	var confErr *ConfigInvalidError
	if !asConfigInvalid(err, &confErr) {
		t.Fatalf("buildTLSConfig err = %v (%T), want *ConfigInvalidError", err, err)
	}
}

func TestBuildTLSConfigMissingClientCertPathFails(t *testing.T) {
	cfg := Config{ClientCertPath: filepath.Join(t.TempDir(), "does-not-exist.p12")}

	_, err := buildTLSConfig(cfg)
	var confErr *ConfigInvalidError
	if !asConfigInvalid(err, &confErr) {
		t.Fatalf("buildTLSConfig err = %v (%T), want *ConfigInvalidError", err, err)
	}
	if confErr.Path != cfg.ClientCertPath {
		t.Errorf("ConfigInvalidError.Path = %q, want %q", confErr.Path, cfg.ClientCertPath)
	}
}

// TestBuildTLSConfigMalformedPKCS12Fails checks that a client_cert_path
// file that exists but is not a valid PKCS#12 archive is surfaced as
// ConfigInvalid (from pkcs12.DecodeChain), not a bare decode panic or an
// unwrapped library error.
func TestBuildTLSConfigMalformedPKCS12Fails(t *testing.T) {
	path := filepath.Join(t.TempDir(), "client.p12")
	writeFile(t, path, "definitely not a pkcs12 archive")

	cfg := Config{ClientCertPath: path, ClientCertPass: "whatever"}

	_, err := buildTLSConfig(cfg)
	var confErr *ConfigInvalidError
	if !asConfigInvalid(err, &confErr) {
		t.Fatalf("buildTLSConfig err = %v (%T), want *ConfigInvalidError", err, err)
	}
	if confErr.Path != path {
		t.Errorf("ConfigInvalidError.Path = %q, want %q", confErr.Path, path)
	}
	if confErr.Cause == nil {
		t.Errorf("ConfigInvalidError.Cause = nil, want the underlying pkcs12 decode error")
	}
}

func TestBuildTLSConfigDangerouslyAcceptInvalidCertsSetsInsecureSkipVerify(t *testing.T) {
	cfg := Config{Server: "irc.example.net", DangerouslyAcceptInvalidCerts: true}

	conf, err := buildTLSConfig(cfg)
	if err != nil {
		t.Fatalf("buildTLSConfig: %v", err)
	}
	if !conf.InsecureSkipVerify {
		t.Errorf("InsecureSkipVerify = false, want true")
	}
	if conf.ServerName != cfg.Server {
		t.Errorf("ServerName = %q, want %q", conf.ServerName, cfg.Server)
	}
}

func TestBuildTLSConfigNoOptionsIsUsable(t *testing.T) {
	conf, err := buildTLSConfig(Config{Server: "irc.example.net"})
	if err != nil {
		t.Fatalf("buildTLSConfig: %v", err)
	}
	if conf.InsecureSkipVerify {
		t.Errorf("InsecureSkipVerify = true, want false without dangerously_accept_invalid_certs")
	}
	if conf.RootCAs != nil {
		t.Errorf("RootCAs = %v, want nil without cert_path", conf.RootCAs)
	}
	if len(conf.Certificates) != 0 {
		t.Errorf("Certificates = %v, want none without client_cert_path", conf.Certificates)
	}
}

func TestNewMockConnectionPreloadsEncodedBuffer(t *testing.T) {
	cfg := Config{UseMockConnection: true, MockInitialValue: "PING :irc.test.net\r\n"}

	conn, err := newMockConnection(cfg)
	if err != nil {
		t.Fatalf("newMockConnection: %v", err)
	}

	msg, err := conn.ReadMessage()
	if err != nil {
		t.Fatalf("ReadMessage: %v", err)
	}
	if msg.Command != "PING" || msg.Trailing != "irc.test.net" {
		t.Fatalf("ReadMessage = %+v, want PING :irc.test.net", msg)
	}
}

func TestNewMockConnectionUnknownEncodingFails(t *testing.T) {
	cfg := Config{UseMockConnection: true, Encoding: "not-a-real-encoding"}

	_, err := newMockConnection(cfg)
	var codecErr *UnknownCodecError
	if !asUnknownCodec(err, &codecErr) {
		t.Fatalf("newMockConnection err = %v (%T), want *UnknownCodecError", err, err)
	}
}

func asConfigInvalid(err error, target **ConfigInvalidError) bool {
	e, ok := err.(*ConfigInvalidError)
	if ok {
		*target = e
	}
	return ok
}

func asUnknownCodec(err error, target **UnknownCodecError) bool {
	e, ok := err.(*UnknownCodecError)
	if ok {
		*target = e
	}
	return ok
}

func writeFile(t *testing.T, path, contents string) {
	t.Helper()
	if err := os.WriteFile(path, []byte(contents), 0o600); err != nil {
		t.Fatalf("writing %s: %v", path, err)
	}
}
