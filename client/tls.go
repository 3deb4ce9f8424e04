package client

import (
	"crypto/tls"
	"crypto/x509"
	"net/http"
	"net/url"
	"os"
	"strings"
)

func tlsError(code, message string, details map[string]interface{}, cause error) *ConnectionError {
	return &ConnectionError{Code: code, Type: "CONNECTION_ERROR", Message: message, Details: details, Cause: cause}
}

// buildTLSConfig derives the client TLS settings from opts. A nil config
// means the system defaults apply.
func buildTLSConfig(opts SessionOptions) (*tls.Config, error) {
	if opts.TLSConfig != nil {
		return opts.TLSConfig, nil
	}
	if opts.TLSCAFile == "" && opts.TLSCertFile == "" && !opts.TLSInsecureSkipVerify {
		return nil, nil
	}

	cfg := &tls.Config{InsecureSkipVerify: opts.TLSInsecureSkipVerify}
	if u, err := url.Parse(opts.URL); err == nil {
		cfg.ServerName = u.Hostname()
	}

	if path := opts.TLSCAFile; path != "" {
		details := map[string]interface{}{"caFile": path}
		pem, err := os.ReadFile(path)
		if err != nil {
			return nil, tlsError("TLS_CA_LOAD_FAILED", "failed to load CA certificate from "+path, details, err)
		}
		cfg.RootCAs = x509.NewCertPool()
		if !cfg.RootCAs.AppendCertsFromPEM(pem) {
			return nil, tlsError("TLS_CA_INVALID", "failed to parse CA certificate", details, nil)
		}
	}

	if opts.TLSCertFile != "" {
		pair, err := tls.LoadX509KeyPair(opts.TLSCertFile, opts.TLSKeyFile)
		if err != nil {
			return nil, tlsError("TLS_CLIENT_CERT_FAILED", "failed to load client certificate and key",
				map[string]interface{}{"certFile": opts.TLSCertFile, "keyFile": opts.TLSKeyFile}, err)
		}
		cfg.Certificates = []tls.Certificate{pair}
	}
	return cfg, nil
}

// httpClient returns the client for the default transport: opts.HTTPClient
// when set, nil (the transport's own default) when no TLS option applies.
func httpClient(opts SessionOptions) (*http.Client, error) {
	if opts.HTTPClient != nil {
		return opts.HTTPClient, nil
	}
	cfg, err := buildTLSConfig(opts)
	if err != nil || cfg == nil {
		return nil, err
	}
	tr := http.DefaultTransport.(*http.Transport).Clone()
	tr.TLSClientConfig = cfg
	return &http.Client{Transport: tr}, nil
}

func isTLSError(err error) bool {
	msg := err.Error()
	return strings.Contains(msg, "x509:") || strings.Contains(msg, "tls:")
}

// handshakeFailures are matched in order against the error text.
var handshakeFailures = []struct {
	match, code, message string
}{
	{"certificate has expired", "TLS_CERT_EXPIRED", "server certificate has expired"},
	{"certificate is not trusted", "TLS_CERT_UNTRUSTED", "server certificate is not trusted (set TLSCAFile, or TLSInsecureSkipVerify for testing)"},
	{"doesn't match", "TLS_HOSTNAME_MISMATCH", "server certificate hostname doesn't match the service URL"},
	{"unknown authority", "TLS_UNKNOWN_CA", "server certificate signed by unknown authority (set TLSCAFile)"},
}

// parseTLSError gives a handshake failure of operation a specific code
// where the cause is recognised, TLS_HANDSHAKE_FAILED otherwise.
func parseTLSError(operation string, err error) *ConnectionError {
	details := map[string]interface{}{"operation": operation}
	msg := err.Error()
	for _, f := range handshakeFailures {
		if strings.Contains(msg, f.match) {
			return tlsError(f.code, f.message, details, err)
		}
	}
	return tlsError("TLS_HANDSHAKE_FAILED", "TLS handshake failed", details, err)
}
