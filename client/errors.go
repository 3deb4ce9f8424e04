package client

import (
	"fmt"
	"runtime"
	"time"

	json "github.com/goccy/go-json"

	"github.com/dan-strohschein/jsonwebdb-driver/messages"
)

// ConnectionError reports a request that never produced a response: the
// service was unreachable, the TLS handshake failed or the context ended.
type ConnectionError struct {
	Code        string                 `json:"code"`
	Type        string                 `json:"type"`
	Message     string                 `json:"message"`
	Details     map[string]interface{} `json:"details"`
	Cause       error                  `json:"cause,omitempty"`
	StackTrace  []string               `json:"stack_trace,omitempty"`
	Timestamp   time.Time              `json:"timestamp,omitempty"`
	GoroutineID int                    `json:"goroutine_id,omitempty"`
}

// Error renders the error as compact JSON. Use FormatError for the short
// or the debug form.
func (e *ConnectionError) Error() string {
	return compact(e.doc(false))
}

func (e *ConnectionError) FormatError(debugMode bool) string {
	if !debugMode {
		return brief(e.Code, e.Message, e.Cause)
	}
	d := e.doc(true)
	withDebug(d, e.StackTrace, e.Timestamp)
	if e.GoroutineID > 0 {
		d["goroutine_id"] = e.GoroutineID
	}
	return indented(d)
}

func (e *ConnectionError) doc(verbose bool) errorDoc {
	return newDoc(e.Code, e.Type, e.Message, e.Details).withCause(e.Cause, verbose)
}

func (e *ConnectionError) Unwrap() error { return e.Cause }

// ProtocolError reports a response body that is not a valid reply.
type ProtocolError struct {
	Code       string                 `json:"code"`
	Type       string                 `json:"type"`
	Message    string                 `json:"message"`
	Details    map[string]interface{} `json:"details"`
	Cause      error                  `json:"cause,omitempty"`
	StackTrace []string               `json:"stack_trace,omitempty"`
	Timestamp  time.Time              `json:"timestamp,omitempty"`
}

func (e *ProtocolError) Error() string {
	return compact(newDoc(e.Code, e.Type, e.Message, e.Details).withCause(e.Cause, false))
}

func (e *ProtocolError) FormatError(debugMode bool) string {
	if !debugMode {
		return brief(e.Code, e.Message, e.Cause)
	}
	d := newDoc(e.Code, e.Type, e.Message, e.Details).withCause(e.Cause, true)
	withDebug(d, e.StackTrace, e.Timestamp)
	return indented(d)
}

func (e *ProtocolError) Unwrap() error { return e.Cause }

// StateError reports an operation attempted in the wrong session state.
type StateError struct {
	Code       string                 `json:"code"`
	Type       string                 `json:"type"`
	Message    string                 `json:"message"`
	Details    map[string]interface{} `json:"details"`
	StackTrace []string               `json:"stack_trace,omitempty"`
}

func (e *StateError) Error() string {
	return compact(newDoc(e.Code, e.Type, e.Message, e.Details))
}

func (e *StateError) FormatError(debugMode bool) string {
	if !debugMode {
		return brief(e.Code, e.Message, nil)
	}
	d := newDoc(e.Code, e.Type, e.Message, e.Details)
	withDebug(d, e.StackTrace, time.Time{})
	return indented(d)
}

// ErrInvalidState reports that operation needs the session in required
// but found it in actual.
func ErrInvalidState(operation string, required, actual ConnectionState) error {
	return &StateError{
		Code:    "INVALID_STATE",
		Type:    "STATE_ERROR",
		Message: fmt.Sprintf("%s requires %s state, currently %s", operation, required, actual),
		Details: map[string]interface{}{
			"operation":     operation,
			"requiredState": required.String(),
			"currentState":  actual.String(),
		},
		StackTrace: captureStackTrace(),
	}
}

// UsageError reports client misuse: a nil session or table, an empty
// source, or a negotiated session timeout the keep-alive cannot honour.
// Message is already localized.
type UsageError struct {
	Code       string                 `json:"code"`
	Type       string                 `json:"type"`
	Message    string                 `json:"message"`
	Details    map[string]interface{} `json:"details"`
	StackTrace []string               `json:"stack_trace,omitempty"`
	Timestamp  time.Time              `json:"timestamp,omitempty"`
}

// Error returns "CODE: message".
func (e *UsageError) Error() string {
	return e.FormatError(false)
}

func (e *UsageError) FormatError(debugMode bool) string {
	if !debugMode {
		return brief(e.Code, e.Message, nil)
	}
	d := newDoc(e.Code, e.Type, e.Message, e.Details)
	withDebug(d, e.StackTrace, e.Timestamp)
	return indented(d)
}

// newUsageError resolves id in catalog, English when catalog is nil.
func newUsageError(catalog *messages.Catalog, id string, args ...interface{}) *UsageError {
	if catalog == nil {
		catalog = messages.New("")
	}
	return &UsageError{
		Code:       id,
		Type:       "USAGE_ERROR",
		Message:    catalog.Resolve(id, args...),
		Details:    map[string]interface{}{"language": catalog.Language().String()},
		StackTrace: captureStackTrace(),
		Timestamp:  time.Now(),
	}
}

// newConnectionError wraps a transport failure of operation. The stack and
// goroutine id are only collected in debug mode.
func newConnectionError(operation string, cause error, debugMode bool) *ConnectionError {
	err := &ConnectionError{
		Code:      "E_TRANSPORT",
		Type:      "CONNECTION_ERROR",
		Message:   operation + " failed",
		Details:   map[string]interface{}{"operation": operation},
		Cause:     cause,
		Timestamp: time.Now(),
	}
	if debugMode {
		err.StackTrace = captureStackTrace()
		err.GoroutineID = getGoroutineID()
	}
	return err
}

func newProtocolError(operation string, cause error) *ProtocolError {
	return &ProtocolError{
		Code:       "E_BAD_RESPONSE",
		Type:       "PROTOCOL_ERROR",
		Message:    "invalid response to " + operation,
		Details:    map[string]interface{}{"operation": operation},
		Cause:      cause,
		StackTrace: captureStackTrace(),
		Timestamp:  time.Now(),
	}
}

// errorDoc is the JSON shape shared by every error type here.
type errorDoc map[string]interface{}

func newDoc(code, typ, message string, details map[string]interface{}) errorDoc {
	d := errorDoc{"code": code, "type": typ, "message": message}
	if len(details) > 0 {
		d["details"] = details
	}
	return d
}

// withCause nests cause. A nested ConnectionError keeps its code and type,
// and its details too when verbose.
func (d errorDoc) withCause(cause error, verbose bool) errorDoc {
	if cause == nil {
		return d
	}
	c := map[string]interface{}{"message": cause.Error()}
	if ce, ok := cause.(*ConnectionError); ok {
		c = map[string]interface{}{"code": ce.Code, "type": ce.Type, "message": ce.Message}
		if verbose {
			c["details"] = ce.Details
		}
	}
	d["cause"] = c
	return d
}

func withDebug(d errorDoc, stack []string, at time.Time) {
	if len(stack) > 0 {
		d["stack_trace"] = stack
	}
	if !at.IsZero() {
		d["timestamp"] = at.Format(time.RFC3339Nano)
	}
}

func brief(code, message string, cause error) string {
	if cause == nil {
		return code + ": " + message
	}
	return fmt.Sprintf("%s: %s (caused by: %s)", code, message, cause.Error())
}

func compact(d errorDoc) string {
	b, _ := json.Marshal(d)
	return string(b)
}

func indented(d errorDoc) string {
	b, _ := json.MarshalIndent(d, "", "  ")
	return string(b)
}

// captureStackTrace returns the caller's stack as "function (file:line)"
// frames, starting above the error constructor.
func captureStackTrace() []string {
	pcs := make([]uintptr, 32)
	n := runtime.Callers(3, pcs)

	frames := runtime.CallersFrames(pcs[:n])
	out := make([]string, 0, n)
	for {
		f, more := frames.Next()
		out = append(out, fmt.Sprintf("%s (%s:%d)", f.Function, f.File, f.Line))
		if !more {
			return out
		}
	}
}

// getGoroutineID parses the id out of the "goroutine N [status]:" header
// of the current stack. Debug use only.
func getGoroutineID() int {
	var buf [64]byte
	n := runtime.Stack(buf[:], false)
	var id int
	fmt.Sscanf(string(buf[:n]), "goroutine %d ", &id)
	return id
}

// FormatError formats err in its short or debug form when it supports
// both, and as err.Error() otherwise.
func FormatError(err error, debugMode bool) string {
	if err == nil {
		return ""
	}
	if f, ok := err.(interface{ FormatError(bool) string }); ok {
		return f.FormatError(debugMode)
	}
	return err.Error()
}
