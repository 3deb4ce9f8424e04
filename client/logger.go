package client

import (
	"bytes"
	"context"
	"io"
	"os"
	"strings"
	"sync"
	"time"

	json "github.com/goccy/go-json"
)

// LogLevel is the severity of a log entry.
type LogLevel int

const (
	DEBUG LogLevel = iota
	INFO
	WARN
	ERROR
)

var levelNames = [...]string{DEBUG: "DEBUG", INFO: "INFO", WARN: "WARN", ERROR: "ERROR"}

func (l LogLevel) String() string {
	if l < DEBUG || l > ERROR {
		return "UNKNOWN"
	}
	return levelNames[l]
}

// ParseLogLevel maps a level name, in any case, to a LogLevel. Unknown
// names are INFO.
func ParseLogLevel(s string) LogLevel {
	for level, name := range levelNames {
		if strings.EqualFold(s, name) {
			return LogLevel(level)
		}
	}
	return INFO
}

// Field is one key of a structured log entry.
type Field struct {
	Key   string
	Value interface{}
}

func String(key, val string) Field          { return Field{Key: key, Value: val} }
func Int(key string, val int) Field         { return Field{Key: key, Value: val} }
func Int64(key string, val int64) Field     { return Field{Key: key, Value: val} }
func Uint64(key string, val uint64) Field   { return Field{Key: key, Value: val} }
func Float64(key string, val float64) Field { return Field{Key: key, Value: val} }
func Bool(key string, val bool) Field       { return Field{Key: key, Value: val} }

// Duration logs d in its String form, e.g. "1.5s".
func Duration(key string, d time.Duration) Field {
	return Field{Key: key, Value: d.String()}
}

// Error logs err's message; a nil error logs null.
func Error(key string, err error) Field {
	if err == nil {
		return Field{Key: key}
	}
	return Field{Key: key, Value: err.Error()}
}

// Logger is the structured logger used by sessions and hooks.
type Logger interface {
	Debug(msg string, fields ...Field)
	Info(msg string, fields ...Field)
	Warn(msg string, fields ...Field)
	Error(msg string, fields ...Field)
	WithFields(fields ...Field) Logger
}

// jsonSink serializes writes from every logger derived from one NewLogger.
type jsonSink struct {
	mu sync.Mutex
	w  io.Writer
}

// jsonLogger writes one JSON object per line.
type jsonLogger struct {
	sink  *jsonSink
	min   LogLevel
	bound []Field
}

// NewLogger returns a JSON line logger writing entries at level and above
// to output, or to stderr when output is nil.
func NewLogger(level string, output io.Writer) Logger {
	if output == nil {
		output = os.Stderr
	}
	return &jsonLogger{sink: &jsonSink{w: output}, min: ParseLogLevel(level)}
}

// NewDefaultLogger logs INFO and above to stderr.
func NewDefaultLogger() Logger {
	return NewLogger("INFO", os.Stderr)
}

func (l *jsonLogger) Debug(msg string, fields ...Field) { l.log(DEBUG, msg, fields) }
func (l *jsonLogger) Info(msg string, fields ...Field)  { l.log(INFO, msg, fields) }
func (l *jsonLogger) Warn(msg string, fields ...Field)  { l.log(WARN, msg, fields) }
func (l *jsonLogger) Error(msg string, fields ...Field) { l.log(ERROR, msg, fields) }

func (l *jsonLogger) WithFields(fields ...Field) Logger {
	bound := make([]Field, 0, len(l.bound)+len(fields))
	bound = append(append(bound, l.bound...), fields...)
	return &jsonLogger{sink: l.sink, min: l.min, bound: bound}
}

func (l *jsonLogger) log(level LogLevel, msg string, fields []Field) {
	if level < l.min {
		return
	}

	entry := make(map[string]interface{}, len(l.bound)+len(fields)+3)
	for _, set := range [][]Field{l.bound, fields} {
		for _, f := range set {
			entry[f.Key] = redact(f)
		}
	}
	entry["timestamp"] = time.Now().Format(time.RFC3339Nano)
	entry["level"] = level.String()
	entry["message"] = msg

	line, err := json.Marshal(entry)
	if err != nil {
		line, _ = json.Marshal(map[string]string{
			"level":   ERROR.String(),
			"message": "unencodable log entry",
			"error":   err.Error(),
		})
	}

	l.sink.mu.Lock()
	defer l.sink.mu.Unlock()
	l.sink.w.Write(append(bytes.TrimSpace(line), '\n'))
}

var sensitiveKeys = map[string]bool{
	"password":      true,
	"token":         true,
	"secret":        true,
	"authorization": true,
	"api_key":       true,
	"apikey":        true,
	"auth":          true,
}

// redact returns the value to log for f. Session ids keep their last four
// characters so entries can still be correlated.
func redact(f Field) interface{} {
	switch key := strings.ToLower(f.Key); {
	case sensitiveKeys[key]:
		return "[REDACTED]"
	case key == "session" || key == "session_id":
		return maskSessionID(f.Value)
	default:
		return f.Value
	}
}

func maskSessionID(v interface{}) interface{} {
	s, ok := v.(string)
	if !ok || s == "" {
		return v
	}
	if len(s) <= 4 {
		return "****"
	}
	return "****" + s[len(s)-4:]
}

type noopLogger struct{}

func (noopLogger) Debug(string, ...Field)       {}
func (noopLogger) Info(string, ...Field)        {}
func (noopLogger) Warn(string, ...Field)        {}
func (noopLogger) Error(string, ...Field)       {}
func (n noopLogger) WithFields(...Field) Logger { return n }

// NewNoopLogger returns a logger that discards everything.
func NewNoopLogger() Logger {
	return noopLogger{}
}

type traceIDKey struct{}

// WithTraceID returns a context carrying traceID. Dispatches made with the
// context reuse the id instead of minting a new one.
func WithTraceID(ctx context.Context, traceID string) context.Context {
	return context.WithValue(ctx, traceIDKey{}, traceID)
}

// TraceIDFromContext returns the trace id stored by WithTraceID.
func TraceIDFromContext(ctx context.Context) (string, bool) {
	if ctx == nil {
		return "", false
	}
	id, ok := ctx.Value(traceIDKey{}).(string)
	return id, ok && id != ""
}

// TraceIDField is the trace id of ctx as a field, "unknown" when absent.
func TraceIDField(ctx context.Context) Field {
	id, ok := TraceIDFromContext(ctx)
	if !ok {
		id = "unknown"
	}
	return Field{Key: "trace_id", Value: id}
}
