// Package testutil provides a scripted JsonWebDB server, reply builders
// and row factories for tests.
package testutil

import (
	"context"
	"fmt"
	"os"
	"strings"
	"testing"
	"time"
)

// ServiceURL returns JSONWEBDB_TEST_URL, skipping the test when it is not
// set:
//
//	export JSONWEBDB_TEST_URL="http://localhost:6502/jsonwebdb"
func ServiceURL(t *testing.T) string {
	t.Helper()
	url := os.Getenv("JSONWEBDB_TEST_URL")
	if url == "" {
		t.Skip("JSONWEBDB_TEST_URL not set, skipping integration test")
	}
	return url
}

// WithTimeout returns a context cancelled at the end of the test, or after
// timeout (10s when omitted).
func WithTimeout(t *testing.T, timeout ...time.Duration) (context.Context, context.CancelFunc) {
	t.Helper()
	d := 10 * time.Second
	if len(timeout) > 0 {
		d = timeout[0]
	}
	ctx, cancel := context.WithTimeout(context.Background(), d)
	t.Cleanup(cancel)
	return ctx, cancel
}

func RequireNoError(t *testing.T, err error, msgAndArgs ...interface{}) {
	t.Helper()
	if err != nil {
		t.Fatalf("unexpected error: %v%s", err, suffix(msgAndArgs))
	}
}

func RequireError(t *testing.T, err error, msgAndArgs ...interface{}) {
	t.Helper()
	if err == nil {
		t.Fatalf("expected an error, got nil%s", suffix(msgAndArgs))
	}
}

func suffix(msgAndArgs []interface{}) string {
	if len(msgAndArgs) == 0 {
		return ""
	}
	if format, ok := msgAndArgs[0].(string); ok {
		return " - " + fmt.Sprintf(format, msgAndArgs[1:]...)
	}
	return fmt.Sprint(" - ", msgAndArgs)
}

func AssertContains(t *testing.T, str, substr string) {
	t.Helper()
	if !strings.Contains(str, substr) {
		t.Errorf("expected %q to contain %q", str, substr)
	}
}

// WaitFor polls condition every interval and fails the test if it does
// not hold within timeout.
func WaitFor(t *testing.T, timeout, interval time.Duration, condition func() bool) bool {
	t.Helper()
	tick := time.NewTicker(interval)
	defer tick.Stop()
	deadline := time.After(timeout)
	for !condition() {
		select {
		case <-deadline:
			t.Errorf("condition not met within %v", timeout)
			return false
		case <-tick.C:
		}
	}
	return true
}
