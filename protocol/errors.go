package protocol

import (
	"fmt"
	"net/http"

	json "github.com/goccy/go-json"
)

// ErrorCode classifies a transport failure. Connection failures sit in
// the 1000 range and failures to exchange a well-formed HTTP message in
// the 2000 range.
type ErrorCode int

const (
	ErrorCodeConnectionRefused ErrorCode = 1001
	ErrorCodeTimeout           ErrorCode = 1002
	ErrorCodeAuthFailed        ErrorCode = 1003
	ErrorCodeServerUnavailable ErrorCode = 1005

	ErrorCodeProtocolError ErrorCode = 2001
	ErrorCodeHTTPStatus    ErrorCode = 2002
	ErrorCodeEncodeFailed  ErrorCode = 2003
)

// transient codes may succeed when the same request is sent again. The
// client never resends on its own.
var transient = map[ErrorCode]bool{
	ErrorCodeTimeout:           true,
	ErrorCodeServerUnavailable: true,
}

// TransportError is the error returned by transports when a request got
// no usable reply.
type TransportError struct {
	Code        ErrorCode              `json:"code"`
	Message     string                 `json:"message"`
	Details     map[string]interface{} `json:"details,omitempty"`
	IsRetryable bool                   `json:"isRetryable"`
	// Cause is the underlying failure, e.g. the context error of an
	// abandoned request.
	Cause error `json:"-"`
}

func (e *TransportError) Error() string {
	msg := fmt.Sprintf("[%d] %s", e.Code, e.Message)
	if len(e.Details) == 0 {
		return msg
	}
	details, _ := json.Marshal(e.Details)
	return msg + " (details: " + string(details) + ")"
}

func (e *TransportError) Unwrap() error { return e.Cause }

// WithCause sets the underlying failure and returns e.
func (e *TransportError) WithCause(cause error) *TransportError {
	e.Cause = cause
	return e
}

func NewTransportError(code ErrorCode, message string, details map[string]interface{}) *TransportError {
	return &TransportError{Code: code, Message: message, Details: details, IsRetryable: transient[code]}
}

// ConnectionError reports a service that could not be reached.
func ConnectionError(message string, details map[string]interface{}) *TransportError {
	return NewTransportError(ErrorCodeConnectionRefused, message, details)
}

// TimeoutError reports a request abandoned by its context.
func TimeoutError(message string, details map[string]interface{}) *TransportError {
	return NewTransportError(ErrorCodeTimeout, message, details)
}

// StatusError maps a non-2xx reply to a TransportError. The body, when
// present, is kept in the details.
func StatusError(status int, body string) *TransportError {
	var code ErrorCode
	switch status {
	case http.StatusUnauthorized, http.StatusForbidden:
		code = ErrorCodeAuthFailed
	case http.StatusRequestTimeout, http.StatusGatewayTimeout:
		code = ErrorCodeTimeout
	case http.StatusBadGateway, http.StatusServiceUnavailable:
		code = ErrorCodeServerUnavailable
	default:
		code = ErrorCodeHTTPStatus
	}

	details := map[string]interface{}{"status": status}
	if body != "" {
		details["body"] = body
	}
	return NewTransportError(code, fmt.Sprintf("unexpected HTTP status %d", status), details)
}
