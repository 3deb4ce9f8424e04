package httptransport

import (
	"bytes"
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/klauspost/compress/gzip"

	"github.com/dan-strohschein/jsonwebdb-driver/protocol"
)

func TestNew_InvalidURL(t *testing.T) {
	tests := []struct {
		name string
		url  string
	}{
		{"empty", ""},
		{"bad scheme", "ftp://example.com"},
		{"unparseable", "http://[::1"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := New(tt.url, nil); err == nil {
				t.Errorf("expected error for %q", tt.url)
			}
		})
	}
}

func TestURL(t *testing.T) {
	tr, err := New("http://localhost:6502/jsonwebdb", nil)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	if got := tr.URL(""); got != "http://localhost:6502/jsonwebdb/" {
		t.Errorf("URL(\"\") = %s", got)
	}
	if got := tr.URL("/sql"); got != "http://localhost:6502/jsonwebdb/sql" {
		t.Errorf("URL(\"/sql\") = %s", got)
	}
}

func TestPost(t *testing.T) {
	var gotBody []byte
	var gotType string

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Errorf("expected POST, got %s", r.Method)
		}
		gotType = r.Header.Get("Content-Type")
		gotBody, _ = io.ReadAll(r.Body)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"success":true}`))
	}))
	defer srv.Close()

	tr, err := New(srv.URL, nil)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	defer tr.Close()

	resp, err := tr.Post(context.Background(), "", []byte(`{"Session":{}}`))
	if err != nil {
		t.Fatalf("Post() error = %v", err)
	}

	if string(resp) != `{"success":true}` {
		t.Errorf("unexpected response %s", resp)
	}
	if string(gotBody) != `{"Session":{}}` {
		t.Errorf("unexpected request body %s", gotBody)
	}
	if gotType != protocol.ContentType {
		t.Errorf("Content-Type = %s, want %s", gotType, protocol.ContentType)
	}

	metrics := tr.GetMetrics()
	if metrics.TotalRequests != 1 || metrics.TotalErrors != 0 {
		t.Errorf("unexpected metrics %+v", metrics)
	}
	if metrics.BytesReceived != int64(len(resp)) {
		t.Errorf("BytesReceived = %d, want %d", metrics.BytesReceived, len(resp))
	}
	if !tr.IsHealthy() {
		t.Error("expected healthy transport")
	}
}

func TestPost_Compressed(t *testing.T) {
	body := []byte(`{"Table":{"invoke":"select","source":"emp"}}`)

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Content-Encoding") != "gzip" {
			t.Errorf("expected gzip Content-Encoding")
		}
		zr, err := gzip.NewReader(r.Body)
		if err != nil {
			t.Errorf("gzip.NewReader() error = %v", err)
			return
		}
		plain, _ := io.ReadAll(zr)
		if !bytes.Equal(plain, body) {
			t.Errorf("decompressed body = %s", plain)
		}
		_, _ = w.Write([]byte(`{"success":true}`))
	}))
	defer srv.Close()

	tr, err := New(srv.URL, &Options{Compress: true})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	if _, err := tr.Post(context.Background(), "", body); err != nil {
		t.Fatalf("Post() error = %v", err)
	}
}

func TestPost_StatusError(t *testing.T) {
	tests := []struct {
		name   string
		status int
		code   protocol.ErrorCode
	}{
		{"unauthorized", http.StatusUnauthorized, protocol.ErrorCodeAuthFailed},
		{"unavailable", http.StatusServiceUnavailable, protocol.ErrorCodeServerUnavailable},
		{"internal", http.StatusInternalServerError, protocol.ErrorCodeHTTPStatus},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				http.Error(w, "nope", tt.status)
			}))
			defer srv.Close()

			tr, _ := New(srv.URL, nil)
			_, err := tr.Post(context.Background(), "", []byte(`{}`))

			var te *protocol.TransportError
			if !errors.As(err, &te) {
				t.Fatalf("expected TransportError, got %v", err)
			}
			if te.Code != tt.code {
				t.Errorf("Code = %v, want %v", te.Code, tt.code)
			}
			if tr.IsHealthy() {
				t.Error("expected unhealthy transport after failure")
			}
			if tr.GetMetrics().LastError == nil {
				t.Error("expected LastError to be recorded")
			}
		})
	}
}

func TestPost_ConnectionRefused(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	url := srv.URL
	srv.Close()

	tr, _ := New(url, nil)
	_, err := tr.Post(context.Background(), "", []byte(`{}`))

	var te *protocol.TransportError
	if !errors.As(err, &te) {
		t.Fatalf("expected TransportError, got %v", err)
	}
	if te.Code != protocol.ErrorCodeConnectionRefused {
		t.Errorf("Code = %v, want %v", te.Code, protocol.ErrorCodeConnectionRefused)
	}
}

func TestPost_ContextTimeout(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(2 * time.Second):
		}
	}))
	defer srv.Close()

	tr, _ := New(srv.URL, nil)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	_, err := tr.Post(ctx, "", []byte(`{}`))

	var te *protocol.TransportError
	if !errors.As(err, &te) {
		t.Fatalf("expected TransportError, got %v", err)
	}
	if te.Code != protocol.ErrorCodeTimeout {
		t.Errorf("Code = %v, want %v", te.Code, protocol.ErrorCodeTimeout)
	}
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("errors.Is(%v, context.DeadlineExceeded) = false", err)
	}
}

func TestPost_ContextCancelled(t *testing.T) {
	started := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		close(started)
		<-r.Context().Done()
	}))
	defer srv.Close()

	tr, _ := New(srv.URL, nil)

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		<-started
		cancel()
	}()

	_, err := tr.Post(ctx, "", []byte(`{}`))
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("errors.Is(%v, context.Canceled) = false", err)
	}
	if errors.Is(err, context.DeadlineExceeded) {
		t.Error("a cancelled request must not report a deadline")
	}
}
