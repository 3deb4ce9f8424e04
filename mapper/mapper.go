// Package mapper coerces loosely typed wire values into Go values.
package mapper

import (
	"errors"
	"fmt"
	"reflect"
	"strconv"
	"strings"
	"time"

	"github.com/dan-strohschein/jsonwebdb-driver/protocol"
)

// temporalFormats are tried in order when parsing a timestamp string.
var temporalFormats = []string{
	protocol.TimestampLayout,
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05",
	"2006-01-02",
}

// IsTemporalType reports whether a database type name denotes a date or
// timestamp column.
func IsTemporalType(typeName string) bool {
	t := strings.ToLower(typeName)
	return strings.Contains(t, "date") || strings.Contains(t, "timestamp")
}

// FormatTimestamp renders t in the canonical wire representation (UTC,
// millisecond precision).
func FormatTimestamp(t time.Time) string {
	return t.UTC().Format(protocol.TimestampLayout)
}

// ToString renders a row value as text. nil is "", times use the wire
// timestamp layout and floats print without exponent or trailing zeros.
func ToString(value interface{}) string {
	switch v := value.(type) {
	case nil:
		return ""
	case string:
		return v
	case time.Time:
		return FormatTimestamp(v)
	case float32:
		return strconv.FormatFloat(float64(v), 'f', -1, 32)
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	}
	return fmt.Sprint(value)
}

// numeric returns any Go integer or float kind as a float64.
func numeric(value interface{}) (float64, bool) {
	rv := reflect.ValueOf(value)
	switch {
	case rv.CanInt():
		return float64(rv.Int()), true
	case rv.CanUint():
		return float64(rv.Uint()), true
	case rv.CanFloat():
		return rv.Float(), true
	}
	return 0, false
}

// ToNumber reads a row value as a float64, the type JSON numbers decode
// to. Numeric strings are parsed and booleans count as 0 or 1.
func ToNumber(value interface{}) (float64, error) {
	if value == nil {
		return 0, errors.New("cannot convert nil to number")
	}
	if f, ok := numeric(value); ok {
		return f, nil
	}
	switch v := value.(type) {
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
		if err != nil {
			return 0, fmt.Errorf("cannot convert '%s' to number: %w", v, err)
		}
		return f, nil
	case bool:
		if v {
			return 1, nil
		}
		return 0, nil
	}
	return 0, fmt.Errorf("cannot convert %T to number", value)
}

// ToBool reads a row value as a boolean. nil is false, strings are true
// only when they spell "true" in any case, and numbers are true when
// non-zero.
func ToBool(value interface{}) (bool, error) {
	switch v := value.(type) {
	case nil:
		return false, nil
	case bool:
		return v, nil
	case string:
		return strings.EqualFold(v, "true"), nil
	}
	if f, ok := numeric(value); ok {
		return f != 0, nil
	}
	return false, fmt.Errorf("cannot convert %T to boolean", value)
}

// ToTime reads a row value as a time. Strings are tried against the
// accepted layouts in order and numbers are epoch milliseconds.
func ToTime(value interface{}) (time.Time, error) {
	switch v := value.(type) {
	case nil:
		return time.Time{}, errors.New("cannot convert nil to datetime")
	case time.Time:
		return v, nil
	case string:
		for _, layout := range temporalFormats {
			if t, err := time.Parse(layout, v); err == nil {
				return t, nil
			}
		}
		return time.Time{}, fmt.Errorf("cannot parse '%s' as datetime", v)
	}
	if f, ok := numeric(value); ok {
		return time.UnixMilli(int64(f)).UTC(), nil
	}
	return time.Time{}, fmt.Errorf("cannot convert %T to datetime", value)
}

// CoerceTemporal returns value as a time.Time when it can be parsed, and
// the original value otherwise. nil stays nil.
func CoerceTemporal(value interface{}) interface{} {
	if value == nil {
		return nil
	}
	if t, err := ToTime(value); err == nil {
		return t
	}
	return value
}

// Normalize prepares an outgoing argument for the wire: time values become
// canonical timestamp strings, everything else passes through.
func Normalize(value interface{}) interface{} {
	switch v := value.(type) {
	case time.Time:
		return FormatTimestamp(v)
	case *time.Time:
		if v == nil {
			return nil
		}
		return FormatTimestamp(*v)
	default:
		return value
	}
}
