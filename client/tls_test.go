package client

import (
	"crypto/tls"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
)

func TestBuildTLSConfig(t *testing.T) {
	dir := t.TempDir()
	badPEM := filepath.Join(dir, "bad.pem")
	if err := os.WriteFile(badPEM, []byte("not a certificate"), 0o600); err != nil {
		t.Fatal(err)
	}

	explicit := &tls.Config{ServerName: "db.example.com"}

	tests := []struct {
		name     string
		opts     SessionOptions
		wantNil  bool
		wantCode string
	}{
		{name: "defaults", opts: SessionOptions{URL: "https://db.example.com"}, wantNil: true},
		{name: "explicit config", opts: SessionOptions{TLSConfig: explicit}},
		{name: "insecure", opts: SessionOptions{URL: "https://db.example.com:8443/jsonwebdb", TLSInsecureSkipVerify: true}},
		{name: "missing CA", opts: SessionOptions{TLSCAFile: filepath.Join(dir, "missing.pem")}, wantCode: "TLS_CA_LOAD_FAILED"},
		{name: "invalid CA", opts: SessionOptions{TLSCAFile: badPEM}, wantCode: "TLS_CA_INVALID"},
		{name: "missing client cert", opts: SessionOptions{TLSCertFile: badPEM, TLSKeyFile: badPEM}, wantCode: "TLS_CLIENT_CERT_FAILED"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg, err := buildTLSConfig(tt.opts)

			if tt.wantCode != "" {
				var connErr *ConnectionError
				if !errors.As(err, &connErr) {
					t.Fatalf("expected *ConnectionError, got %v", err)
				}
				if connErr.Code != tt.wantCode {
					t.Errorf("code = %s, want %s", connErr.Code, tt.wantCode)
				}
				return
			}

			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if tt.wantNil != (cfg == nil) {
				t.Fatalf("config = %v, wantNil %v", cfg, tt.wantNil)
			}
		})
	}
}

func TestBuildTLSConfigServerName(t *testing.T) {
	cfg, err := buildTLSConfig(SessionOptions{
		URL:                   "https://db.example.com:8443/jsonwebdb",
		TLSInsecureSkipVerify: true,
	})
	if err != nil {
		t.Fatal(err)
	}
	if cfg.ServerName != "db.example.com" {
		t.Errorf("ServerName = %q, want db.example.com", cfg.ServerName)
	}
	if !cfg.InsecureSkipVerify {
		t.Error("expected InsecureSkipVerify")
	}
}

func TestParseTLSError(t *testing.T) {
	tests := []struct {
		msg  string
		code string
	}{
		{"x509: certificate has expired or is not yet valid", "TLS_CERT_EXPIRED"},
		{"x509: certificate signed by unknown authority", "TLS_UNKNOWN_CA"},
		{"x509: certificate is valid for a.example.com, not b.example.com; doesn't match", "TLS_HOSTNAME_MISMATCH"},
		{"tls: handshake failure", "TLS_HANDSHAKE_FAILED"},
	}

	for _, tt := range tests {
		t.Run(tt.code, func(t *testing.T) {
			cause := errors.New(tt.msg)
			if !isTLSError(cause) {
				t.Fatalf("isTLSError(%q) = false", tt.msg)
			}
			err := parseTLSError("connect()", cause)
			if err.Code != tt.code {
				t.Errorf("code = %s, want %s", err.Code, tt.code)
			}
			if !errors.Is(err, cause) {
				t.Error("expected the cause to be wrapped")
			}
		})
	}

	if isTLSError(errors.New("connection refused")) {
		t.Error("plain network errors are not TLS errors")
	}
}

func TestConnectUntrustedServer(t *testing.T) {
	ts := httptest.NewTLSServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"success":true,"session":"s-1","timeout":60}`))
	}))
	defer ts.Close()

	s, err := NewSession(&SessionOptions{URL: ts.URL, Logger: NewNoopLogger()})
	if err != nil {
		t.Fatal(err)
	}
	defer s.Close()

	ok, err := s.Connect(t.Context(), "scott", "tiger", false)
	if ok {
		t.Fatal("expected connect to fail against an untrusted certificate")
	}
	var connErr *ConnectionError
	if !errors.As(err, &connErr) || connErr.Code != "TLS_UNKNOWN_CA" {
		t.Fatalf("expected TLS_UNKNOWN_CA, got %v", err)
	}

	trusted, err := NewSession(&SessionOptions{URL: ts.URL, HTTPClient: ts.Client(), Logger: NewNoopLogger()})
	if err != nil {
		t.Fatal(err)
	}
	defer trusted.Close()

	if ok, err := trusted.Connect(t.Context(), "scott", "tiger", false); !ok || err != nil {
		t.Fatalf("Connect with the server's client = %v, %v", ok, err)
	}
}
