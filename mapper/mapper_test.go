package mapper

import (
	"testing"
	"time"
)

func TestIsTemporalType(t *testing.T) {
	tests := []struct {
		typeName string
		expected bool
	}{
		{"DATE", true},
		{"timestamp with time zone", true},
		{"DateTime", true},
		{"VARCHAR2", false},
		{"NUMBER", false},
		{"", false},
	}

	for _, tt := range tests {
		t.Run(tt.typeName, func(t *testing.T) {
			if got := IsTemporalType(tt.typeName); got != tt.expected {
				t.Errorf("IsTemporalType(%q) = %v, want %v", tt.typeName, got, tt.expected)
			}
		})
	}
}

func TestFormatTimestamp(t *testing.T) {
	loc := time.FixedZone("CET", 3600)
	ts := time.Date(2023, 5, 1, 13, 4, 5, 123456789, loc)

	got := FormatTimestamp(ts)
	want := "2023-05-01T12:04:05.123Z"
	if got != want {
		t.Errorf("FormatTimestamp() = %s, want %s", got, want)
	}
}

func TestToTime(t *testing.T) {
	want := time.Date(2023, 5, 1, 0, 0, 0, 0, time.UTC)

	tests := []struct {
		name  string
		value interface{}
	}{
		{"canonical", "2023-05-01T00:00:00.000Z"},
		{"rfc3339", "2023-05-01T00:00:00Z"},
		{"date only", "2023-05-01"},
		{"sql timestamp", "2023-05-01 00:00:00"},
		{"epoch millis", float64(want.UnixMilli())},
		{"time value", want},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ToTime(tt.value)
			if err != nil {
				t.Fatalf("ToTime() error = %v", err)
			}
			if !got.Equal(want) {
				t.Errorf("ToTime() = %v, want %v", got, want)
			}
		})
	}

	if _, err := ToTime("yesterday"); err == nil {
		t.Error("expected error for unparseable string")
	}
	if _, err := ToTime(nil); err == nil {
		t.Error("expected error for nil")
	}
}

func TestCoerceTemporal(t *testing.T) {
	if v := CoerceTemporal(nil); v != nil {
		t.Errorf("expected nil, got %v", v)
	}

	if v, ok := CoerceTemporal("2023-05-01").(time.Time); !ok || v.Year() != 2023 {
		t.Errorf("expected parsed time, got %v", v)
	}

	if v := CoerceTemporal("n/a"); v != "n/a" {
		t.Errorf("expected original value, got %v", v)
	}
}

func TestToString(t *testing.T) {
	tests := []struct {
		value    interface{}
		expected string
	}{
		{nil, ""},
		{"abc", "abc"},
		{float64(7369), "7369"},
		{1.5, "1.5"},
		{true, "true"},
		{42, "42"},
	}

	for _, tt := range tests {
		if got := ToString(tt.value); got != tt.expected {
			t.Errorf("ToString(%v) = %q, want %q", tt.value, got, tt.expected)
		}
	}
}

func TestToNumber(t *testing.T) {
	if n, err := ToNumber("12.5"); err != nil || n != 12.5 {
		t.Errorf("ToNumber(\"12.5\") = %v, %v", n, err)
	}
	if n, err := ToNumber(3); err != nil || n != 3 {
		t.Errorf("ToNumber(3) = %v, %v", n, err)
	}
	if _, err := ToNumber("abc"); err == nil {
		t.Error("expected error for non-numeric string")
	}
	if _, err := ToNumber(nil); err == nil {
		t.Error("expected error for nil")
	}
}

func TestToBool(t *testing.T) {
	tests := []struct {
		value    interface{}
		expected bool
	}{
		{true, true},
		{"TRUE", true},
		{"false", false},
		{"yes", false},
		{float64(1), true},
		{nil, false},
	}

	for _, tt := range tests {
		got, err := ToBool(tt.value)
		if err != nil {
			t.Fatalf("ToBool(%v) error = %v", tt.value, err)
		}
		if got != tt.expected {
			t.Errorf("ToBool(%v) = %v, want %v", tt.value, got, tt.expected)
		}
	}
}

func TestNormalize(t *testing.T) {
	ts := time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC)

	if got := Normalize(ts); got != "2024-01-02T03:04:05.000Z" {
		t.Errorf("Normalize(time) = %v", got)
	}
	if got := Normalize(&ts); got != "2024-01-02T03:04:05.000Z" {
		t.Errorf("Normalize(*time) = %v", got)
	}
	if got := Normalize(5); got != 5 {
		t.Errorf("Normalize(5) = %v", got)
	}
}
