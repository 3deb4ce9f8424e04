package mock

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"github.com/dan-strohschein/jsonwebdb-driver/protocol"
	"github.com/dan-strohschein/jsonwebdb-driver/transport"
)

// Handler computes the response for one posted request
type Handler func(path string, body []byte) ([]byte, error)

// Post is one recorded call to MockTransport.Post
type Post struct {
	Path string
	Body []byte
}

// MockTransport is an in-memory transport.Transport. Replies come from the
// handler when one is set and from a FIFO queue otherwise; an empty queue
// answers with a timeout error.
type MockTransport struct {
	mu        sync.RWMutex
	postErr   error
	handler   Handler
	responses [][]byte
	healthy   bool
	postDelay time.Duration
	closed    bool
	history   []Post

	postCalls     atomic.Int32
	closeCalls    atomic.Int32
	totalRequests atomic.Int64
	totalErrors   atomic.Int64
	bytesSent     atomic.Int64
	bytesReceived atomic.Int64
}

func NewMockTransport() *MockTransport {
	return &MockTransport{healthy: true}
}

// configure applies f under the write lock and returns m for chaining.
func (m *MockTransport) configure(f func()) *MockTransport {
	m.mu.Lock()
	defer m.mu.Unlock()
	f()
	return m
}

// WithPostError makes every Post fail with err.
func (m *MockTransport) WithPostError(err error) *MockTransport {
	return m.configure(func() { m.postErr = err })
}

// WithResponse queues one reply.
func (m *MockTransport) WithResponse(data []byte) *MockTransport {
	return m.configure(func() { m.responses = append(m.responses, data) })
}

// WithResponses queues replies in order.
func (m *MockTransport) WithResponses(data ...string) *MockTransport {
	return m.configure(func() {
		for _, d := range data {
			m.responses = append(m.responses, []byte(d))
		}
	})
}

// WithHandler answers every Post with h. The queue is ignored while a
// handler is set.
func (m *MockTransport) WithHandler(h Handler) *MockTransport {
	return m.configure(func() { m.handler = h })
}

func (m *MockTransport) WithHealthy(healthy bool) *MockTransport {
	return m.configure(func() { m.healthy = healthy })
}

// WithPostDelay holds every Post for delay, or until its context ends.
func (m *MockTransport) WithPostDelay(delay time.Duration) *MockTransport {
	return m.configure(func() { m.postDelay = delay })
}

// reply is what a recorded post will be answered with.
type reply struct {
	queued  []byte
	handler Handler
	delay   time.Duration
	err     error
}

// take records the post. It fails only when the transport is closed.
func (m *MockTransport) take(path string, body []byte) (reply, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return reply{}, errors.New("transport is closed")
	}
	m.history = append(m.history, Post{Path: path, Body: append([]byte(nil), body...)})
	r := reply{handler: m.handler, delay: m.postDelay, err: m.postErr}
	if r.handler == nil && len(m.responses) > 0 {
		r.queued, m.responses = m.responses[0], m.responses[1:]
	}
	return r, nil
}

func (m *MockTransport) Post(ctx context.Context, path string, body []byte) ([]byte, error) {
	m.postCalls.Add(1)
	m.totalRequests.Add(1)

	data, err := m.answer(ctx, path, body)
	if err != nil {
		m.totalErrors.Add(1)
		return nil, err
	}
	m.bytesReceived.Add(int64(len(data)))
	return data, nil
}

func (m *MockTransport) answer(ctx context.Context, path string, body []byte) ([]byte, error) {
	r, err := m.take(path, body)
	if err != nil {
		return nil, err
	}
	m.bytesSent.Add(int64(len(body)))

	if r.delay > 0 {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(r.delay):
		}
	}
	switch {
	case r.err != nil:
		return nil, r.err
	case r.handler != nil:
		return r.handler(path, body)
	case r.queued != nil:
		return r.queued, nil
	}
	return nil, protocol.TimeoutError("no response queued", nil)
}

func (m *MockTransport) Close() error {
	m.closeCalls.Add(1)
	m.configure(func() { m.closed = true })
	return nil
}

func (m *MockTransport) IsHealthy() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.healthy
}

func (m *MockTransport) GetMetrics() transport.TransportMetrics {
	return transport.TransportMetrics{
		TotalRequests: m.totalRequests.Load(),
		TotalErrors:   m.totalErrors.Load(),
		BytesSent:     m.bytesSent.Load(),
		BytesReceived: m.bytesReceived.Load(),
	}
}

func (m *MockTransport) GetPostCallCount() int  { return int(m.postCalls.Load()) }
func (m *MockTransport) GetCloseCallCount() int { return int(m.closeCalls.Load()) }

// GetPostHistory returns a copy of every recorded post, oldest first.
func (m *MockTransport) GetPostHistory() []Post {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return append([]Post(nil), m.history...)
}

// LastBody is the most recently posted body, or nil.
func (m *MockTransport) LastBody() []byte {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if n := len(m.history); n > 0 {
		return m.history[n-1].Body
	}
	return nil
}

// Pending counts queued replies not yet served.
func (m *MockTransport) Pending() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.responses)
}

// Reset returns the transport to its freshly constructed state.
func (m *MockTransport) Reset() {
	m.configure(func() {
		m.postErr, m.handler, m.responses = nil, nil, nil
		m.healthy, m.closed, m.postDelay = true, false, 0
		m.history = nil
	})
	m.postCalls.Store(0)
	m.closeCalls.Store(0)
	for _, c := range []*atomic.Int64{&m.totalRequests, &m.totalErrors, &m.bytesSent, &m.bytesReceived} {
		c.Store(0)
	}
}

func (m *MockTransport) IsClosed() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.closed
}
