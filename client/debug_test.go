package client

import (
	"strings"
	"testing"

	json "github.com/goccy/go-json"

	"github.com/dan-strohschein/jsonwebdb-driver/testutil"
)

func TestDebugModeToggle(t *testing.T) {
	s, _ := newTestSession(t, testutil.NewMockServer())

	if s.IsDebugMode() {
		t.Error("debug mode should be off initially")
	}

	s.EnableDebugMode()
	if !s.IsDebugMode() {
		t.Error("debug mode should be on after enabling")
	}

	s.DisableDebugMode()
	if s.IsDebugMode() {
		t.Error("debug mode should be off after disabling")
	}

	if s.State() != DISCONNECTED {
		t.Errorf("toggling debug mode changed state to %s", s.State())
	}
}

func TestDebugInfo(t *testing.T) {
	srv := testutil.NewMockServer()
	s, _ := connectedSession(t, srv)
	s.AddVPDContext("tenant", 7)

	info := s.DebugInfo()

	if info["state"] != "CONNECTED" {
		t.Errorf("state = %v, want CONNECTED", info["state"])
	}
	if info["timeout"] != 60 {
		t.Errorf("timeout = %v, want 60", info["timeout"])
	}
	if sid, _ := info["session"].(string); sid == "s-1" {
		t.Error("session id should be masked")
	}

	pending := info["pending"].(map[string]interface{})
	if pending["vpd"] != 1 {
		t.Errorf("pending vpd = %v, want 1", pending["vpd"])
	}

	ka := info["keepAlive"].(map[string]interface{})
	if ka["interval"] != "52s" {
		t.Errorf("keep-alive interval = %v, want 52s", ka["interval"])
	}

	tr := info["transport"].(map[string]interface{})
	if tr["totalRequests"].(int64) < 1 {
		t.Errorf("expected the connect request to be counted, got %v", tr["totalRequests"])
	}
}

func TestDumpDebugInfoJSON(t *testing.T) {
	s, _ := newTestSession(t, testutil.NewMockServer())

	out := s.DumpDebugInfoJSON()
	if !strings.Contains(out, "\n  ") {
		t.Error("expected indented output")
	}

	var parsed map[string]interface{}
	if err := json.Unmarshal([]byte(out), &parsed); err != nil {
		t.Fatalf("debug info should be valid JSON: %v", err)
	}
	if parsed["version"] != Version {
		t.Errorf("version = %v, want %s", parsed["version"], Version)
	}
	if parsed["state"] != "DISCONNECTED" {
		t.Errorf("state = %v, want DISCONNECTED", parsed["state"])
	}
}
