package storage

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"
)

var pngData = []byte{
	0x89, 0x50, 0x4E, 0x47, 0x0D, 0x0A, 0x1A, 0x0A, // PNG signature
	0x00, 0x00, 0x00, 0x0D, 0x49, 0x48, 0x44, 0x52, // IHDR chunk
	0x00, 0x00, 0x00, 0x01, 0x00, 0x00, 0x00, 0x01,
	0x08, 0x06, 0x00, 0x00, 0x00, 0x1F, 0x15, 0xC4,
	0x89, 0x00, 0x00, 0x00, 0x0A, 0x49, 0x44, 0x41,
	0x54, 0x78, 0x9C, 0x63, 0x00, 0x01, 0x00, 0x00,
	0x05, 0x00, 0x01, 0x0D, 0x0A, 0x2D, 0xB4, 0x00,
	0x00, 0x00, 0x00, 0x49, 0x45, 0x4E, 0x44, 0xAE,
	0x42, 0x60, 0x82,
}

func newTestFetcher() *HTTPFetcher {
	return NewHTTPFetcher(HTTPOptions{Backoff: time.Millisecond})
}

func TestHTTPFetcher_RetryLogic(t *testing.T) {
	tests := []struct {
		name      string
		statuses  []int // replayed in order, one per request
		wantCalls int
		wantErr   string
	}{
		{name: "screenshot served first time", statuses: []int{200}, wantCalls: 1},
		{name: "gateway hiccup then screenshot", statuses: []int{503, 200}, wantCalls: 2},
		{name: "missing screenshot is not retried", statuses: []int{404}, wantCalls: 1, wantErr: "client error: status code 404"},
		{name: "retries stop at the first client error", statuses: []int{500, 403}, wantCalls: 2, wantErr: "client error: status code 403"},
		{name: "host keeps failing", statuses: []int{500, 502, 503}, wantCalls: 3, wantErr: "server error: status code 503"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var requestCount int32

			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				n := int(atomic.AddInt32(&requestCount, 1)) - 1
				if n >= len(tt.statuses) {
					w.WriteHeader(http.StatusInternalServerError)
					return
				}
				if tt.statuses[n] == http.StatusOK {
					w.Header().Set("Content-Type", "image/png")
					w.Write(pngData)
					return
				}
				w.WriteHeader(tt.statuses[n])
				fmt.Fprintf(w, "upstream said %d", tt.statuses[n])
			}))
			defer server.Close()

			obj, err := newTestFetcher().Fetch(context.Background(), server.URL)

			if got := int(atomic.LoadInt32(&requestCount)); got != tt.wantCalls {
				t.Errorf("Expected %d requests, got %d", tt.wantCalls, got)
			}

			if tt.wantErr != "" {
				if err == nil {
					t.Fatal("Expected error, but got none")
				}
				if !strings.Contains(err.Error(), tt.wantErr) {
					t.Errorf("Expected error to contain %q, got: %s", tt.wantErr, err.Error())
				}
				return
			}

			if err != nil {
				t.Fatalf("Expected no error, got: %s", err.Error())
			}
			if obj.ContentType != "image/png" {
				t.Errorf("Expected image/png content type, got %q", obj.ContentType)
			}
			if len(obj.Data) != len(pngData) {
				t.Errorf("Expected %d bytes, got %d", len(pngData), len(obj.Data))
			}
		})
	}
}

func TestHTTPFetcher_NetworkError_Retry(t *testing.T) {
	var requestCount int32

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&requestCount, 1) < 3 {
			// Drop the connection without a response
			if hj, ok := w.(http.Hijacker); ok {
				conn, _, _ := hj.Hijack()
				conn.Close()
			}
			return
		}
		w.Header().Set("Content-Type", "image/png")
		w.Write(pngData)
	}))
	defer server.Close()

	_, err := newTestFetcher().Fetch(context.Background(), server.URL)
	if err != nil {
		t.Errorf("Expected success after retries, got error: %s", err.Error())
	}
	if got := atomic.LoadInt32(&requestCount); got != 3 {
		t.Errorf("Expected 3 requests, got %d", got)
	}
}

func TestHTTPFetcher_TooLarge(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write(make([]byte, 2048))
	}))
	defer server.Close()

	f := NewHTTPFetcher(HTTPOptions{MaxBytes: 1024, Backoff: time.Millisecond})
	_, err := f.Fetch(context.Background(), server.URL)
	if err == nil || !strings.Contains(err.Error(), "exceeds 1024 bytes") {
		t.Errorf("Expected size error, got: %v", err)
	}
}

func TestHTTPFetcher_ContextCancelled(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(503)
	}))
	defer server.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	f := NewHTTPFetcher(HTTPOptions{Backoff: time.Hour})
	start := time.Now()
	_, err := f.Fetch(ctx, server.URL)
	if err == nil {
		t.Fatal("Expected error for cancelled context")
	}
	if time.Since(start) > 5*time.Second {
		t.Error("Expected cancelled fetch to return without waiting for backoff")
	}
}

func TestHTTPFetcher_InvalidURL(t *testing.T) {
	_, err := newTestFetcher().Fetch(context.Background(), "http://[::1")
	if err == nil || !strings.Contains(err.Error(), "invalid URL") {
		t.Errorf("Expected invalid URL error, got: %v", err)
	}
}
