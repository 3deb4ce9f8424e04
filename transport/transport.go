// Package transport carries encoded request documents to a JsonWebDB
// service and brings the raw reply back.
package transport

import (
	"context"
	"time"
)

// Transport posts one request document and returns the response body.
// Sessions share a Transport with their keep-alive timer, so
// implementations are used from more than one goroutine.
type Transport interface {
	// Post sends body to path, relative to the service URL.
	Post(ctx context.Context, path string, body []byte) ([]byte, error)
	Close() error
	// IsHealthy is false after a failed exchange until the next success.
	IsHealthy() bool
	GetMetrics() TransportMetrics
}

// TransportMetrics is a snapshot of the counters a Transport keeps.
type TransportMetrics struct {
	TotalRequests  int64
	TotalErrors    int64
	AverageLatency time.Duration
	LastError      error
	LastErrorTime  time.Time
	// BytesSent counts bytes on the wire, after compression.
	BytesSent     int64
	BytesReceived int64
}

// Factory builds a Transport for a service URL.
type Factory func(baseURL string) (Transport, error)
