package http

import (
	"context"
	"errors"
	"io"
	nethttp "net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestPostJSON(t *testing.T) {
	srv := httptest.NewServer(nethttp.HandlerFunc(func(w nethttp.ResponseWriter, r *nethttp.Request) {
		if r.Method != nethttp.MethodPost {
			t.Errorf("method = %s, want POST", r.Method)
		}
		if got := r.Header.Get("Content-Type"); got != "application/json" {
			t.Errorf("Content-Type = %q", got)
		}
		if got := r.Header.Get("User-Agent"); got != "test-agent" {
			t.Errorf("User-Agent = %q", got)
		}
		body, _ := io.ReadAll(r.Body)
		if string(body) != `{"a":1}` {
			t.Errorf("body = %s", body)
		}
		w.Write([]byte(`{"ok":true}`))
	}))
	defer srv.Close()

	c := NewClient(Options{UserAgent: "test-agent"})
	body, err := c.PostJSON(context.Background(), srv.URL, map[string]int{"a": 1})
	if err != nil {
		t.Fatalf("PostJSON failed: %v", err)
	}
	if string(body) != `{"ok":true}` {
		t.Errorf("body = %s", body)
	}
}

func TestPostJSON_StatusError(t *testing.T) {
	srv := httptest.NewServer(nethttp.HandlerFunc(func(w nethttp.ResponseWriter, r *nethttp.Request) {
		nethttp.Error(w, "nope", nethttp.StatusBadGateway)
	}))
	defer srv.Close()

	c := NewClient(Options{})
	_, err := c.PostJSON(context.Background(), srv.URL, struct{}{})

	var se *StatusError
	if !errors.As(err, &se) {
		t.Fatalf("expected *StatusError, got %v", err)
	}
	if se.Code != nethttp.StatusBadGateway {
		t.Errorf("Code = %d, want 502", se.Code)
	}
}

func TestPostJSON_RequestTimeout(t *testing.T) {
	release := make(chan struct{})
	srv := httptest.NewServer(nethttp.HandlerFunc(func(w nethttp.ResponseWriter, r *nethttp.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	defer srv.Close()
	defer close(release)

	c := NewClient(Options{RequestTimeout: 50 * time.Millisecond})

	start := time.Now()
	_, err := c.PostJSON(context.Background(), srv.URL, struct{}{})
	if err == nil {
		t.Fatal("expected timeout error")
	}
	if elapsed := time.Since(start); elapsed > 2*time.Second {
		t.Errorf("request took %v, timeout not applied", elapsed)
	}
}

func TestDownloadFile(t *testing.T) {
	payload := strings.Repeat("x", 4096)
	srv := httptest.NewServer(nethttp.HandlerFunc(func(w nethttp.ResponseWriter, r *nethttp.Request) {
		w.Write([]byte(payload))
	}))
	defer srv.Close()

	dest := filepath.Join(t.TempDir(), "item.zip")
	if err := os.WriteFile(dest, []byte(strings.Repeat("old", 5000)), 0644); err != nil {
		t.Fatal(err)
	}

	var last int64
	c := NewClient(Options{})
	err := c.DownloadFile(context.Background(), srv.URL, dest, func(written, total int64) {
		last = written
	})
	if err != nil {
		t.Fatalf("DownloadFile failed: %v", err)
	}

	data, err := os.ReadFile(dest)
	if err != nil {
		t.Fatal(err)
	}
	if string(data) != payload {
		t.Errorf("file has %d bytes, want %d (existing file must be overwritten)", len(data), len(payload))
	}
	if last != int64(len(payload)) {
		t.Errorf("progress reported %d bytes, want %d", last, len(payload))
	}
}

func TestDownloadFile_NotFound(t *testing.T) {
	srv := httptest.NewServer(nethttp.NotFoundHandler())
	defer srv.Close()

	dest := filepath.Join(t.TempDir(), "item.zip")
	c := NewClient(Options{})
	err := c.DownloadFile(context.Background(), srv.URL, dest, nil)

	var se *StatusError
	if !errors.As(err, &se) || se.Code != nethttp.StatusNotFound {
		t.Fatalf("expected 404 StatusError, got %v", err)
	}
	if _, statErr := os.Stat(dest); !os.IsNotExist(statErr) {
		t.Error("no file should be created for a failed response")
	}
}
