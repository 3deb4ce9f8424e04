package client

import (
	"context"
	"errors"
	"strings"
	"testing"

	json "github.com/goccy/go-json"

	"github.com/dan-strohschein/jsonwebdb-driver/messages"
	"github.com/dan-strohschein/jsonwebdb-driver/protocol"
)

func TestConnectionErrorJSON(t *testing.T) {
	err := &ConnectionError{
		Code:    "E_TRANSPORT",
		Type:    "CONNECTION_ERROR",
		Message: "connect failed",
		Details: map[string]interface{}{
			"operation": "connect",
		},
	}

	var parsed map[string]interface{}
	if jsonErr := json.Unmarshal([]byte(err.Error()), &parsed); jsonErr != nil {
		t.Fatalf("error should be valid JSON: %v", jsonErr)
	}

	if parsed["code"] != "E_TRANSPORT" {
		t.Errorf("expected code=E_TRANSPORT, got %v", parsed["code"])
	}
	details := parsed["details"].(map[string]interface{})
	if details["operation"] != "connect" {
		t.Errorf("expected operation=connect, got %v", details["operation"])
	}
}

func TestNewConnectionErrorUnwrap(t *testing.T) {
	cause := protocol.TimeoutError("request cancelled", nil)

	err := newConnectionError(protocol.InvokeExecute, cause, false)
	if err.Code != "E_TRANSPORT" {
		t.Errorf("expected code=E_TRANSPORT, got %s", err.Code)
	}
	if len(err.StackTrace) != 0 || err.GoroutineID != 0 {
		t.Error("stack trace should only be captured in debug mode")
	}

	var te *protocol.TransportError
	if !errors.As(err, &te) {
		t.Fatal("expected cause to unwrap to *protocol.TransportError")
	}
	if !te.IsRetryable {
		t.Error("timeouts should be flagged retryable")
	}

	debug := newConnectionError(protocol.InvokeExecute, cause, true)
	if len(debug.StackTrace) == 0 {
		t.Error("expected stack trace in debug mode")
	}
	if debug.GoroutineID <= 0 {
		t.Errorf("expected goroutine id in debug mode, got %d", debug.GoroutineID)
	}
}

func TestNewProtocolError(t *testing.T) {
	cause := errors.New("unexpected end of JSON input")
	err := newProtocolError(protocol.InvokeFetch, cause)

	if err.Code != "E_BAD_RESPONSE" {
		t.Errorf("expected code=E_BAD_RESPONSE, got %s", err.Code)
	}
	if !errors.Is(err, cause) {
		t.Error("expected errors.Is to find the cause")
	}
	if !strings.Contains(err.Message, protocol.InvokeFetch) {
		t.Errorf("expected operation in message, got %q", err.Message)
	}

	var parsed map[string]interface{}
	if jsonErr := json.Unmarshal([]byte(err.Error()), &parsed); jsonErr != nil {
		t.Fatalf("error should be valid JSON: %v", jsonErr)
	}
	c := parsed["cause"].(map[string]interface{})
	if c["message"] != cause.Error() {
		t.Errorf("expected cause message, got %v", c["message"])
	}
}

func TestErrInvalidState(t *testing.T) {
	err := ErrInvalidState("Disconnect", CONNECTED, DISCONNECTED)

	stateErr, ok := err.(*StateError)
	if !ok {
		t.Fatalf("expected *StateError, got %T", err)
	}
	if stateErr.Code != "INVALID_STATE" {
		t.Errorf("expected code=INVALID_STATE, got %s", stateErr.Code)
	}

	tests := map[string]string{
		"operation":     "Disconnect",
		"requiredState": "CONNECTED",
		"currentState":  "DISCONNECTED",
	}
	for key, want := range tests {
		if got := stateErr.Details[key]; got != want {
			t.Errorf("details[%s] = %v, want %s", key, got, want)
		}
	}
}

func TestUsageError(t *testing.T) {
	tests := []struct {
		name     string
		lang     string
		id       string
		args     []interface{}
		contains string
	}{
		{"source english", "en", messages.SourceIsNull, []interface{}{"Table"}, "source cannot be empty"},
		{"session norwegian", "no", messages.SessionIsNull, []interface{}{"Query"}, "sesjon"},
		{"keep-alive minimum", "en", messages.KeepAliveBelowMin, []interface{}{20, 32}, "20"},
		{"record", "en", messages.RecordIsNull, []interface{}{"Insert"}, "Insert: record cannot be nil"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := newUsageError(messages.New(tt.lang), tt.id, tt.args...)

			if err.Code != tt.id {
				t.Errorf("expected code=%s, got %s", tt.id, err.Code)
			}
			if err.Type != "USAGE_ERROR" {
				t.Errorf("expected type=USAGE_ERROR, got %s", err.Type)
			}
			if !strings.Contains(err.Message, tt.contains) {
				t.Errorf("expected %q in %q", tt.contains, err.Message)
			}
			if want := tt.id + ": " + err.Message; err.Error() != want {
				t.Errorf("Error() = %q, want %q", err.Error(), want)
			}
		})
	}
}

func TestUsageErrorNilCatalog(t *testing.T) {
	err := newUsageError(nil, messages.TableIsNull, "Query")
	if err.Message != "Query: table cannot be nil" {
		t.Errorf("unexpected message %q", err.Message)
	}
	if err.Details["language"] != "en" {
		t.Errorf("expected english fallback, got %v", err.Details["language"])
	}
}

func TestFormatErrorModes(t *testing.T) {
	err := &ConnectionError{
		Code:       "E_TRANSPORT",
		Type:       "CONNECTION_ERROR",
		Message:    "fetch failed",
		Cause:      errors.New("connection reset"),
		StackTrace: captureStackTrace(),
	}

	normal := FormatError(err, false)
	if normal != "E_TRANSPORT: fetch failed (caused by: connection reset)" {
		t.Errorf("unexpected normal output %q", normal)
	}

	debug := FormatError(err, true)
	for _, want := range []string{"stack_trace", `"cause"`, "connection reset"} {
		if !strings.Contains(debug, want) {
			t.Errorf("debug output should contain %s", want)
		}
	}

	if got := FormatError(context.DeadlineExceeded, true); got != context.DeadlineExceeded.Error() {
		t.Errorf("plain errors should fall back to Error(), got %q", got)
	}
	if got := FormatError(nil, true); got != "" {
		t.Errorf("nil should format empty, got %q", got)
	}
}

func TestStackTraceCapture(t *testing.T) {
	stack := captureStackTrace()
	if len(stack) == 0 {
		t.Fatal("stack trace should not be empty")
	}
	for _, frame := range stack {
		if !strings.Contains(frame, "(") || !strings.Contains(frame, ":") {
			t.Errorf("invalid stack frame format: %s", frame)
		}
	}
}
