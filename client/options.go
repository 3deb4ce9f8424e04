package client

import (
	"crypto/tls"
	"net/http"

	"github.com/dan-strohschein/jsonwebdb-driver/transport"
)

// SessionOptions configures a Session.
type SessionOptions struct {
	// URL is the JsonWebDB endpoint, e.g. "http://localhost:6502/jsonwebdb".
	// Required unless Transport is set.
	URL string

	// Transport overrides the HTTP transport built from URL.
	Transport transport.Transport

	// TransportFactory builds the transport from URL when Transport is nil.
	// The default posts over HTTP.
	TransportFactory transport.Factory

	// HTTPClient is used by the default transport.
	// If nil, a client without timeout is used; deadlines come from contexts.
	HTTPClient *http.Client

	// TLSConfig is used by the default transport for https URLs. When nil,
	// it is built from the TLS file options below.
	TLSConfig *tls.Config

	// TLSCAFile is a PEM file of CA certificates trusted for the server.
	TLSCAFile string

	// TLSCertFile and TLSKeyFile hold the client certificate for mutual TLS.
	TLSCertFile string
	TLSKeyFile  string

	// TLSInsecureSkipVerify disables server certificate verification.
	// Testing only.
	TLSInsecureSkipVerify bool

	// Compress gzips request bodies sent by the default transport.
	// Default: false
	Compress bool

	// DebugMode enables stack traces on transport errors and verbose
	// error formatting.
	// Default: false
	DebugMode bool

	// Language selects the message catalog for usage errors (BCP 47).
	// Default: "en"
	Language string

	// KeepAliveMin is the smallest negotiated session timeout, in seconds,
	// that the keep-alive timer accepts. Connect fails below it.
	// Default: 32
	KeepAliveMin int

	// KeepAliveSlack is subtracted from the negotiated timeout to get the
	// keep-alive interval, in seconds.
	// Default: 8
	KeepAliveSlack int

	// DefaultArrayFetch is the page size used by new statements.
	// Default: 16
	DefaultArrayFetch int

	// DefinitionCache holds table definitions. Pass the same cache to
	// several sessions to share it. If nil, each session gets its own.
	DefinitionCache *DefinitionCache

	// Logger is the logger implementation to use.
	// If nil, a default logger is used.
	Logger Logger

	// LogLevel sets the minimum log level (DEBUG, INFO, WARN, ERROR).
	// Default: "INFO"
	LogLevel string

	// OnConnected is called when the session has been established.
	OnConnected func(StateTransition)

	// OnDisconnected is called when the session has been closed.
	OnDisconnected func(StateTransition)
}

// DefaultOptions returns SessionOptions with default values.
func DefaultOptions() SessionOptions {
	return SessionOptions{
		URL:               "http://localhost:6502/jsonwebdb",
		Compress:          false,
		DebugMode:         false,
		Language:          "en",
		KeepAliveMin:      32,
		KeepAliveSlack:    8,
		DefaultArrayFetch: 16,
		LogLevel:          "INFO",
	}
}

// withDefaults fills zero values from DefaultOptions.
func (o SessionOptions) withDefaults() SessionOptions {
	def := DefaultOptions()
	if o.URL == "" && o.Transport == nil {
		o.URL = def.URL
	}
	if o.Language == "" {
		o.Language = def.Language
	}
	if o.KeepAliveMin <= 0 {
		o.KeepAliveMin = def.KeepAliveMin
	}
	if o.KeepAliveSlack <= 0 {
		o.KeepAliveSlack = def.KeepAliveSlack
	}
	if o.DefaultArrayFetch <= 0 {
		o.DefaultArrayFetch = def.DefaultArrayFetch
	}
	if o.LogLevel == "" {
		o.LogLevel = def.LogLevel
	}
	return o
}
