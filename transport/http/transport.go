// Package httptransport implements transport.Transport over HTTP POST.
package httptransport

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/klauspost/compress/gzip"

	"github.com/dan-strohschein/jsonwebdb-driver/protocol"
	"github.com/dan-strohschein/jsonwebdb-driver/transport"
)

// maxErrorBody bounds how much of a failed response is kept for diagnostics
const maxErrorBody = 512

// Options configures the HTTP transport
type Options struct {
	// Client is the HTTP client to use. Defaults to a client without timeout;
	// deadlines come from the request context.
	Client *http.Client

	// Compress gzips request bodies and sets Content-Encoding
	Compress bool

	// Header is added to every request
	Header http.Header
}

// HTTPTransport posts JSON documents to a JsonWebDB endpoint
type HTTPTransport struct {
	base    *url.URL
	opts    Options
	healthy atomic.Bool
	metrics transportMetrics
}

// transportMetrics tracks transport performance
type transportMetrics struct {
	totalRequests atomic.Int64
	totalErrors   atomic.Int64
	bytesSent     atomic.Int64
	bytesReceived atomic.Int64
	latencySum    atomic.Int64 // nanoseconds
	lastError     error
	lastErrorTime time.Time
	mu            sync.RWMutex
}

// New creates an HTTP transport for baseURL. If opts is nil, default
// options are used.
func New(baseURL string, opts *Options) (*HTTPTransport, error) {
	if baseURL == "" {
		return nil, fmt.Errorf("base URL is required")
	}

	base, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("invalid base URL %q: %w", baseURL, err)
	}
	if base.Scheme != "http" && base.Scheme != "https" {
		return nil, fmt.Errorf("unsupported URL scheme %q", base.Scheme)
	}
	if !strings.HasSuffix(base.Path, "/") {
		base.Path += "/"
	}

	if opts == nil {
		opts = &Options{}
	}
	if opts.Client == nil {
		opts.Client = &http.Client{}
	}

	t := &HTTPTransport{base: base, opts: *opts}
	t.healthy.Store(true)
	return t, nil
}

// Factory adapts New to transport.Factory with fixed options
func Factory(opts *Options) transport.Factory {
	return func(baseURL string) (transport.Transport, error) {
		return New(baseURL, opts)
	}
}

// URL returns the endpoint for path
func (t *HTTPTransport) URL(path string) string {
	path = strings.TrimPrefix(path, "/")
	if path == "" {
		return t.base.String()
	}
	return t.base.ResolveReference(&url.URL{Path: path}).String()
}

// Post implements transport.Transport
func (t *HTTPTransport) Post(ctx context.Context, path string, body []byte) ([]byte, error) {
	t.metrics.totalRequests.Add(1)
	start := time.Now()

	payload, err := t.encodeBody(body)
	if err != nil {
		t.recordError(err)
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, t.URL(path), bytes.NewReader(payload))
	if err != nil {
		t.recordError(err)
		return nil, protocol.NewTransportError(protocol.ErrorCodeEncodeFailed, "failed to build request", map[string]interface{}{
			"error": err.Error(),
		})
	}

	req.Header.Set("Content-Type", protocol.ContentType)
	req.Header.Set("Accept", protocol.ContentType)
	if t.opts.Compress {
		req.Header.Set("Content-Encoding", "gzip")
	}
	for key, values := range t.opts.Header {
		for _, v := range values {
			req.Header.Add(key, v)
		}
	}

	resp, err := t.opts.Client.Do(req)
	if err != nil {
		t.recordError(err)
		if ctx.Err() != nil {
			return nil, protocol.TimeoutError("request cancelled", map[string]interface{}{
				"error": ctx.Err().Error(),
			}).WithCause(ctx.Err())
		}
		return nil, protocol.ConnectionError("request failed", map[string]interface{}{
			"url":   req.URL.String(),
			"error": err.Error(),
		}).WithCause(err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		t.recordError(err)
		return nil, protocol.ConnectionError("failed to read response", map[string]interface{}{
			"error": err.Error(),
		}).WithCause(err)
	}

	t.metrics.bytesSent.Add(int64(len(payload)))
	t.metrics.bytesReceived.Add(int64(len(data)))
	t.metrics.latencySum.Add(int64(time.Since(start)))

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		snippet := string(data)
		if len(snippet) > maxErrorBody {
			snippet = snippet[:maxErrorBody]
		}
		statusErr := protocol.StatusError(resp.StatusCode, snippet)
		t.recordError(statusErr)
		return nil, statusErr
	}

	t.healthy.Store(true)
	return data, nil
}

// encodeBody applies request compression when enabled
func (t *HTTPTransport) encodeBody(body []byte) ([]byte, error) {
	if !t.opts.Compress {
		return body, nil
	}

	var buf bytes.Buffer
	zw := gzip.NewWriter(&buf)
	if _, err := zw.Write(body); err != nil {
		return nil, protocol.NewTransportError(protocol.ErrorCodeEncodeFailed, "failed to compress request", map[string]interface{}{
			"error": err.Error(),
		})
	}
	if err := zw.Close(); err != nil {
		return nil, protocol.NewTransportError(protocol.ErrorCodeEncodeFailed, "failed to compress request", map[string]interface{}{
			"error": err.Error(),
		})
	}
	return buf.Bytes(), nil
}

// Close implements transport.Transport
func (t *HTTPTransport) Close() error {
	t.opts.Client.CloseIdleConnections()
	return nil
}

// IsHealthy implements transport.Transport
func (t *HTTPTransport) IsHealthy() bool {
	return t.healthy.Load()
}

// GetMetrics implements transport.Transport
func (t *HTTPTransport) GetMetrics() transport.TransportMetrics {
	t.metrics.mu.RLock()
	lastErr := t.metrics.lastError
	lastErrTime := t.metrics.lastErrorTime
	t.metrics.mu.RUnlock()

	totalReqs := t.metrics.totalRequests.Load()
	avgLatency := time.Duration(0)
	if totalReqs > 0 {
		avgLatency = time.Duration(t.metrics.latencySum.Load() / totalReqs)
	}

	return transport.TransportMetrics{
		TotalRequests:  totalReqs,
		TotalErrors:    t.metrics.totalErrors.Load(),
		AverageLatency: avgLatency,
		LastError:      lastErr,
		LastErrorTime:  lastErrTime,
		BytesSent:      t.metrics.bytesSent.Load(),
		BytesReceived:  t.metrics.bytesReceived.Load(),
	}
}

// recordError records an error in metrics
func (t *HTTPTransport) recordError(err error) {
	t.healthy.Store(false)
	t.metrics.totalErrors.Add(1)
	t.metrics.mu.Lock()
	t.metrics.lastError = err
	t.metrics.lastErrorTime = time.Now()
	t.metrics.mu.Unlock()
}
