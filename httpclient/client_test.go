package httpclient

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/kbukum/scribe/resilience"
)

func TestClient_Do_JSONWithAuth(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/transcripts" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if got := r.Header.Get("Authorization"); got != "Bearer key-1" {
			t.Errorf("unexpected auth header %q", got)
		}
		if got := r.Header.Get("Content-Type"); got != "application/json" {
			t.Errorf("unexpected content type %q", got)
		}
		if got := r.URL.Query().Get("lang"); got != "en" {
			t.Errorf("unexpected query %q", got)
		}
		var body map[string]string
		_ = json.NewDecoder(r.Body).Decode(&body)
		w.WriteHeader(http.StatusCreated)
		_ = json.NewEncoder(w).Encode(map[string]string{"id": body["audio_url"]})
	}))
	defer srv.Close()

	c, err := New(Config{BaseURL: srv.URL + "/", Auth: BearerAuth("key-1")})
	if err != nil {
		t.Fatal(err)
	}
	resp, err := c.Do(context.Background(), Request{
		Method: http.MethodPost,
		Path:   "/v1/transcripts",
		Query:  map[string]string{"lang": "en"},
		Body:   map[string]string{"audio_url": "https://cdn/a.mp3"},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !resp.IsSuccess() || resp.StatusCode != http.StatusCreated {
		t.Errorf("unexpected status %d", resp.StatusCode)
	}
	var out struct {
		ID string `json:"id"`
	}
	if err := resp.JSON(&out); err != nil || out.ID != "https://cdn/a.mp3" {
		t.Errorf("decoded %+v, err %v", out, err)
	}
}

func TestResponse_JSONError(t *testing.T) {
	r := &Response{StatusCode: 200, Body: []byte("<html>")}
	var v map[string]any
	if err := r.JSON(&v); err == nil {
		t.Fatal("expected decode error")
	}
}

func TestConfig_Validate(t *testing.T) {
	for _, base := range []string{"", "https://api.example.com"} {
		c := Config{BaseURL: base}
		c.ApplyDefaults()
		if err := c.Validate(); err != nil {
			t.Errorf("%q: %v", base, err)
		}
	}
	c := Config{BaseURL: "api.example.com/v1"}
	c.ApplyDefaults()
	if err := c.Validate(); err == nil {
		t.Error("expected error for relative base_url")
	}
}

func TestClient_Do_RequestAuthOverrides(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.Header.Get("x-api-key"); got != "override" {
			t.Errorf("expected override key, got %q", got)
		}
		if r.Header.Get("Authorization") != "" {
			t.Error("client auth should not be sent")
		}
	}))
	defer srv.Close()

	c, _ := New(Config{BaseURL: srv.URL, Auth: TokenAuth("default")})
	if _, err := c.Do(context.Background(), Request{Method: http.MethodGet, Path: "/", Auth: HeaderAuth("x-api-key", "override")}); err != nil {
		t.Fatal(err)
	}
}

func TestClient_Do_Classification(t *testing.T) {
	tests := []struct {
		status    int
		kind      Kind
		retryable bool
	}{
		{http.StatusBadRequest, KindClient, false},
		{http.StatusUnauthorized, KindAuth, false},
		{http.StatusNotFound, KindNotFound, false},
		{http.StatusTooManyRequests, KindRateLimit, true},
		{http.StatusBadGateway, KindServer, true},
	}
	for _, tt := range tests {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(tt.status)
		}))
		c, _ := New(Config{BaseURL: srv.URL})
		resp, err := c.Do(context.Background(), Request{Method: http.MethodGet, Path: "/"})
		srv.Close()

		if KindOf(err) != tt.kind {
			t.Errorf("status %d: kind = %q, want %q", tt.status, KindOf(err), tt.kind)
		}
		if IsRetryable(err) != tt.retryable {
			t.Errorf("status %d: retryable = %v", tt.status, IsRetryable(err))
		}
		if resp == nil || resp.StatusCode != tt.status {
			t.Errorf("status %d: response should be returned with the error", tt.status)
		}
	}
}

func TestClient_Do_RetriesTransientOnly(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) < 3 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		_, _ = io.WriteString(w, "ok")
	}))
	defer srv.Close()

	policy := resilience.NewPolicy("test", resilience.PolicyConfig{
		Retry: resilience.RetryConfig{MaxAttempts: 3, InitialBackoff: time.Millisecond, MaxBackoff: time.Millisecond},
	}, nil)
	c, _ := New(Config{BaseURL: srv.URL, Policy: policy})

	resp, err := c.Do(context.Background(), Request{Method: http.MethodGet, Path: "/"})
	if err != nil {
		t.Fatalf("expected success after retries: %v", err)
	}
	if string(resp.Body) != "ok" || calls.Load() != 3 {
		t.Errorf("body=%q calls=%d", resp.Body, calls.Load())
	}
}

func TestClient_Do_NoRetryOnClientError(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusUnprocessableEntity)
	}))
	defer srv.Close()

	policy := resilience.NewPolicy("test", resilience.PolicyConfig{
		Retry: resilience.RetryConfig{MaxAttempts: 3, InitialBackoff: time.Millisecond, MaxBackoff: time.Millisecond},
	}, nil)
	c, _ := New(Config{BaseURL: srv.URL, Policy: policy})
	_, _ = c.Do(context.Background(), Request{Method: http.MethodPost, Path: "/", Body: "x"})
	if calls.Load() != 1 {
		t.Errorf("expected a single attempt, got %d", calls.Load())
	}
}

func TestClient_DoStream(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/missing.mp3" {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", "audio/mpeg")
		_, _ = w.Write([]byte("ID3-audio"))
	}))
	defer srv.Close()

	c, _ := New(Config{})
	stream, err := c.DoStream(context.Background(), Request{Method: http.MethodGet, Path: srv.URL + "/a.mp3"})
	if err != nil {
		t.Fatal(err)
	}
	data, _ := io.ReadAll(stream.Body)
	_ = stream.Close()
	if string(data) != "ID3-audio" || stream.Header.Get("Content-Type") != "audio/mpeg" {
		t.Errorf("unexpected stream %q", data)
	}

	if _, err := c.DoStream(context.Background(), Request{Method: http.MethodGet, Path: srv.URL + "/missing.mp3"}); !IsNotFound(err) {
		t.Errorf("expected not found, got %v", err)
	}
}

func TestClient_Do_CancelledContext(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(200 * time.Millisecond)
	}))
	defer srv.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	c, _ := New(Config{BaseURL: srv.URL})
	_, err := c.Do(ctx, Request{Method: http.MethodGet, Path: "/"})
	if KindOf(err) != KindTimeout || IsRetryable(err) {
		t.Errorf("expected non-retryable timeout, got %v", err)
	}
}
