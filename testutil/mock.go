package testutil

import (
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"testing"

	json "github.com/goccy/go-json"
)

// MockServer answers JsonWebDB requests from scripted expectations. It
// can serve as a mock.Handler (Handle) or behind httptest (ServeHTTP).
//
// Example usage:
//
//	srv := testutil.NewMockServer()
//	srv.ExpectConnect("s-1", 60)
//	srv.Expect("Table", "describe").ForSource("emp").
//	    WillReturn(testutil.Described("id", []string{"id"}, testutil.Col("id", "NUMBER")))
//
//	tr := mock.NewMockTransport().WithHandler(srv.Handle)
//	...
//	srv.VerifyExpectations(t)
type MockServer struct {
	expectations []*Expectation
	calls        []Call
	mu           sync.RWMutex
	strict       bool // unexpected requests fail instead of answering success:false
}

// Expectation is an expected request and its reply.
type Expectation struct {
	target      string
	invoke      string
	source      string
	reply       Reply
	err         error
	times       int // -1 = any
	actualCalls int
}

// Call is a request the server received.
type Call struct {
	Target  string
	Invoke  string
	Source  string
	Session string
	Body    map[string]interface{}
}

// Payload returns the operation payload of the call, for example the
// "select()" object of a select.
func (c Call) Payload() map[string]interface{} {
	if p, ok := c.Body[c.Invoke+"()"].(map[string]interface{}); ok {
		return p
	}
	if p, ok := c.Body[c.Invoke].(map[string]interface{}); ok {
		return p
	}
	return nil
}

// NewMockServer creates a server without expectations.
func NewMockServer() *MockServer {
	return &MockServer{
		expectations: make([]*Expectation, 0),
		calls:        make([]Call, 0),
	}
}

// Strict makes unexpected requests fail at the transport level.
func (m *MockServer) Strict() *MockServer {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.strict = true
	return m
}

// Expect registers an expectation for one target and invoke, for example
// ("Cursor", "fetch").
func (m *MockServer) Expect(target, invoke string) *Expectation {
	m.mu.Lock()
	defer m.mu.Unlock()

	exp := &Expectation{target: target, invoke: invoke, times: 1, reply: Success()}
	m.expectations = append(m.expectations, exp)
	return exp
}

// ExpectConnect expects a connect() and issues sessionID with timeout.
func (m *MockServer) ExpectConnect(sessionID string, timeout int) *Expectation {
	return m.Expect("Session", "connect()").WillReturn(Connected(sessionID, timeout))
}

// ExpectDisconnect expects a disconnect().
func (m *MockServer) ExpectDisconnect() *Expectation {
	return m.Expect("Session", "disconnect()")
}

// ExpectDescribe expects a describe of source.
func (m *MockServer) ExpectDescribe(source string, reply Reply) *Expectation {
	return m.Expect("Table", "describe").ForSource(source).WillReturn(reply)
}

// ForSource restricts the expectation to one source.
func (e *Expectation) ForSource(source string) *Expectation {
	e.source = source
	return e
}

// WillReturn sets the reply.
func (e *Expectation) WillReturn(reply Reply) *Expectation {
	e.reply = reply
	return e
}

// WillReturnError makes the request fail at the transport level.
func (e *Expectation) WillReturnError(err error) *Expectation {
	e.err = err
	return e
}

// Times sets the expected number of calls.
func (e *Expectation) Times(n int) *Expectation {
	e.times = n
	return e
}

// Once is Times(1).
func (e *Expectation) Once() *Expectation { return e.Times(1) }

// Twice is Times(2).
func (e *Expectation) Twice() *Expectation { return e.Times(2) }

// AnyTimes allows any number of calls.
func (e *Expectation) AnyTimes() *Expectation { return e.Times(-1) }

// Handle answers one request document. Its signature matches mock.Handler.
func (m *MockServer) Handle(path string, body []byte) ([]byte, error) {
	call, err := decodeCall(body)
	if err != nil {
		return nil, err
	}

	m.mu.Lock()
	m.calls = append(m.calls, call)
	exp := m.match(call)
	strict := m.strict
	if exp != nil {
		exp.actualCalls++
	}
	m.mu.Unlock()

	if exp == nil {
		if strict {
			return nil, fmt.Errorf("unexpected request %s %s %s", call.Target, call.Invoke, call.Source)
		}
		return Rejected(fmt.Sprintf("no expectation for %s %s", call.Target, call.Invoke)).Bytes(), nil
	}
	if exp.err != nil {
		return nil, exp.err
	}
	return exp.reply.Bytes(), nil
}

// match returns the first expectation for call with calls left. Caller
// holds m.mu.
func (m *MockServer) match(call Call) *Expectation {
	for _, exp := range m.expectations {
		if exp.target != call.Target || exp.invoke != call.Invoke {
			continue
		}
		if exp.source != "" && !strings.EqualFold(exp.source, call.Source) {
			continue
		}
		if exp.times != -1 && exp.actualCalls >= exp.times {
			continue
		}
		return exp
	}
	return nil
}

// ServeHTTP implements http.Handler.
func (m *MockServer) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	body, err := io.ReadAll(r.Body)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	data, err := m.Handle(r.URL.Path, body)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.Write(data)
}

// VerifyExpectations checks that all expectations were met.
// Should be called at the end of each test.
func (m *MockServer) VerifyExpectations(t *testing.T) {
	t.Helper()
	m.mu.RLock()
	defer m.mu.RUnlock()

	for i, exp := range m.expectations {
		if exp.times != -1 && exp.actualCalls != exp.times {
			t.Errorf("expectation %d (%s %s %s): expected %d calls, got %d",
				i, exp.target, exp.invoke, exp.source, exp.times, exp.actualCalls)
		}
	}
}

// GetCalls returns all received requests.
func (m *MockServer) GetCalls() []Call {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return append([]Call{}, m.calls...)
}

// LastCall returns the most recent request matching target and invoke.
func (m *MockServer) LastCall(target, invoke string) (Call, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	for i := len(m.calls) - 1; i >= 0; i-- {
		if m.calls[i].Target == target && m.calls[i].Invoke == invoke {
			return m.calls[i], true
		}
	}
	return Call{}, false
}

// GetCallCount returns the number of requests for target and invoke.
func (m *MockServer) GetCallCount(target, invoke string) int {
	m.mu.RLock()
	defer m.mu.RUnlock()

	count := 0
	for _, call := range m.calls {
		if call.Target == target && call.Invoke == invoke {
			count++
		}
	}
	return count
}

// Reset clears all expectations and recorded calls.
func (m *MockServer) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.expectations = make([]*Expectation, 0)
	m.calls = make([]Call, 0)
}

func decodeCall(body []byte) (Call, error) {
	var doc map[string]map[string]interface{}
	if err := json.Unmarshal(body, &doc); err != nil {
		return Call{}, fmt.Errorf("malformed request: %w", err)
	}
	if len(doc) != 1 {
		return Call{}, fmt.Errorf("request must have exactly one target, got %d", len(doc))
	}

	var call Call
	for target, inner := range doc {
		call.Target = target
		call.Body = inner
	}
	call.Invoke, _ = call.Body["invoke"].(string)
	call.Source, _ = call.Body["source"].(string)
	call.Session, _ = call.Body["session"].(string)
	return call, nil
}
