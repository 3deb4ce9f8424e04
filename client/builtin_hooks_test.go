package client

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/dan-strohschein/jsonwebdb-driver/protocol"
	"github.com/dan-strohschein/jsonwebdb-driver/testutil"
)

// TestLoggingHook verifies the logging hook logs dispatches and outcomes.
func TestLoggingHook(t *testing.T) {
	var buf bytes.Buffer
	hook := NewLoggingHook(NewLogger("DEBUG", &buf), true, true, true)

	if hook.Name() != "logging" {
		t.Errorf("expected name 'logging', got %s", hook.Name())
	}

	ctx := context.Background()
	hookCtx := &HookContext{
		Target:    "Table",
		Operation: "select",
		Kind:      KindQuery,
		Source:    "emp",
		Request:   []byte(`{"Table":{"invoke":"select"}}`),
		TraceID:   "test-123",
		Metadata:  make(map[string]interface{}),
		Duration:  10 * time.Millisecond,
		Response:  &protocol.Response{Success: true},
	}

	if err := hook.Before(ctx, hookCtx); err != nil {
		t.Errorf("Before() failed: %v", err)
	}
	if err := hook.After(ctx, hookCtx); err != nil {
		t.Errorf("After() failed: %v", err)
	}

	hookCtx.Response = &protocol.Response{Success: false, Message: "ORA-00942"}
	hook.After(ctx, hookCtx)

	hookCtx.Response = nil
	hookCtx.Error = errors.New("connection reset")
	hook.After(ctx, hookCtx)

	out := buf.String()
	for _, want := range []string{"dispatching", "dispatch completed", "request rejected", "ORA-00942", "dispatch failed", "test-123", `"request"`} {
		if !strings.Contains(out, want) {
			t.Errorf("expected %q in log output:\n%s", want, out)
		}
	}
}

// TestLoggingHookOptions verifies disabled options keep fields out.
func TestLoggingHookOptions(t *testing.T) {
	var buf bytes.Buffer
	hook := NewLoggingHook(NewLogger("DEBUG", &buf), false, false, false)

	ctx := context.Background()
	hookCtx := &HookContext{
		Operation: "select",
		Request:   []byte(`{"secret":"body"}`),
		Metadata:  make(map[string]interface{}),
		Response:  &protocol.Response{Success: false, Message: "denied"},
	}
	hook.Before(ctx, hookCtx)
	hook.After(ctx, hookCtx)

	out := buf.String()
	if strings.Contains(out, `"request"`) || strings.Contains(out, `"duration"`) {
		t.Errorf("disabled options leaked fields:\n%s", out)
	}
	if strings.Contains(out, "request rejected") {
		t.Errorf("rejections should not be logged as warnings:\n%s", out)
	}
}

// TestMetricsHook verifies metrics collection.
func TestMetricsHook(t *testing.T) {
	hook := NewMetricsHook()

	if hook.Name() != "metrics" {
		t.Errorf("expected name 'metrics', got %s", hook.Name())
	}

	ctx := context.Background()
	run := func(kind string, resp *protocol.Response, err error) {
		hookCtx := &HookContext{Kind: kind, Duration: 10 * time.Millisecond, Response: resp, Error: err}
		hook.Before(ctx, hookCtx)
		hook.After(ctx, hookCtx)
	}

	ok := &protocol.Response{Success: true}
	for i := 0; i < 4; i++ {
		run(KindQuery, ok, nil)
	}
	for i := 0; i < 3; i++ {
		run(KindMutation, ok, nil)
	}
	run(KindCursor, ok, nil)
	run(KindCall, &protocol.Response{Success: false, Message: "no such procedure"}, nil)
	run(KindSession, nil, errors.New("refused"))

	stats := hook.GetStats()
	checks := map[string]uint64{
		"total_requests":   10,
		"total_queries":    4,
		"total_mutations":  3,
		"total_fetches":    1,
		"total_calls":      1,
		"total_errors":     1,
		"total_rejections": 1,
	}
	for key, want := range checks {
		if got := stats[key].(uint64); got != want {
			t.Errorf("%s = %d, want %d", key, got, want)
		}
	}
	if stats["avg_duration_ns"].(int64) != int64(10*time.Millisecond) {
		t.Errorf("unexpected average %v", stats["avg_duration_ns"])
	}

	hook.Reset()
	if hook.GetStats()["total_requests"].(uint64) != 0 {
		t.Error("expected 0 requests after reset")
	}
}

// TestBuiltinHooksIntegration runs both hooks on a live session.
func TestBuiltinHooksIntegration(t *testing.T) {
	srv := testutil.NewMockServer()
	srv.ExpectDescribe("emp", testutil.EmployeeDescribe())
	srv.Expect("Table", "select").WillReturn(testutil.Page(testutil.EmployeeColumns, nil, false, ""))
	s, _ := connectedSession(t, srv)

	var buf bytes.Buffer
	metrics := NewMetricsHook()
	s.RegisterHook(NewLoggingHook(NewLogger("DEBUG", &buf), false, true, true))
	s.RegisterHook(metrics)

	table, _ := s.Table("emp")
	if _, err := table.Query(nil).Execute(context.Background()); err != nil {
		t.Fatal(err)
	}

	if got := metrics.TotalQueries.Load(); got != 2 {
		t.Errorf("expected describe and select counted as queries, got %d", got)
	}
	if !strings.Contains(buf.String(), `"operation":"select"`) {
		t.Errorf("expected select in log:\n%s", buf.String())
	}
}
