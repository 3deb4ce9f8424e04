package client

import (
	"testing"
)

func TestDefaultOptions(t *testing.T) {
	opts := DefaultOptions()

	if opts.KeepAliveMin != 32 {
		t.Errorf("expected KeepAliveMin=32, got %d", opts.KeepAliveMin)
	}

	if opts.KeepAliveSlack != 8 {
		t.Errorf("expected KeepAliveSlack=8, got %d", opts.KeepAliveSlack)
	}

	if opts.DefaultArrayFetch != 16 {
		t.Errorf("expected DefaultArrayFetch=16, got %d", opts.DefaultArrayFetch)
	}

	if opts.DebugMode != false {
		t.Errorf("expected DebugMode=false, got %v", opts.DebugMode)
	}
}

func TestOptionsWithDefaults(t *testing.T) {
	opts := SessionOptions{
		URL:          "http://db.example.com/jsonwebdb",
		KeepAliveMin: 60,
	}.withDefaults()

	if opts.URL != "http://db.example.com/jsonwebdb" {
		t.Errorf("URL overwritten: %s", opts.URL)
	}

	if opts.KeepAliveMin != 60 {
		t.Errorf("expected KeepAliveMin=60, got %d", opts.KeepAliveMin)
	}

	if opts.KeepAliveSlack != 8 {
		t.Errorf("expected KeepAliveSlack=8, got %d", opts.KeepAliveSlack)
	}

	if opts.Language != "en" {
		t.Errorf("expected Language=en, got %s", opts.Language)
	}
}
