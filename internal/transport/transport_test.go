package transport

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"
)

func noSleep(_ context.Context, _ time.Duration) error { return nil }

func newTestClient(endpoint string) *Client {
	c := NewClient(endpoint, nil, 2*time.Second, 3, slog.New(slog.DiscardHandler))
	c.sleep = noSleep
	return c
}

func TestSendSuccess(t *testing.T) {
	query := []byte{0x12, 0x34, 0x01, 0x00}
	answer := []byte{0x12, 0x34, 0x81, 0x80}

	var gotBody []byte
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Errorf("method %s, want POST", r.Method)
		}
		if ct := r.Header.Get("Content-Type"); ct != ContentType {
			t.Errorf("content-type %q, want %q", ct, ContentType)
		}
		if accept := r.Header.Get("Accept"); accept != ContentType {
			t.Errorf("accept %q, want %q", accept, ContentType)
		}
		gotBody, _ = io.ReadAll(r.Body)
		w.Header().Set("Content-Type", ContentType)
		_, _ = w.Write(answer)
	}))
	defer srv.Close()

	resp, err := newTestClient(srv.URL).Send(context.Background(), query)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if string(resp) != string(answer) {
		t.Errorf("response % x, want % x", resp, answer)
	}
	if string(gotBody) != string(query) {
		t.Errorf("posted body % x, want % x", gotBody, query)
	}
}

func TestSendRetriesNon2xxThenSucceeds(t *testing.T) {
	answer := []byte{0x12, 0x34, 0x81, 0x80}

	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) < 3 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		w.Header().Set("Content-Type", ContentType)
		_, _ = w.Write(answer)
	}))
	defer srv.Close()

	resp, err := newTestClient(srv.URL).Send(context.Background(), []byte{0})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if string(resp) != string(answer) {
		t.Errorf("response % x, want % x", resp, answer)
	}
	if got := calls.Load(); got != 3 {
		t.Errorf("server saw %d calls, want 3", got)
	}
}

func TestSendExhaustsRetries(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	_, err := newTestClient(srv.URL).Send(context.Background(), []byte{0})
	if !errors.Is(err, ErrExhausted) {
		t.Fatalf("expected ErrExhausted, got %v", err)
	}
	if got := calls.Load(); got != 3 {
		t.Errorf("server saw %d calls, want 3", got)
	}
}

func TestSendConnectionFailure(t *testing.T) {
	// A closed server: every attempt fails at the dial.
	srv := httptest.NewServer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {}))
	url := srv.URL
	srv.Close()

	_, err := newTestClient(url).Send(context.Background(), []byte{0})
	if !errors.Is(err, ErrExhausted) {
		t.Fatalf("expected ErrExhausted, got %v", err)
	}
}

func TestSendRejectsWrongContentType(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		_, _ = w.Write([]byte("<html>blocked</html>"))
	}))
	defer srv.Close()

	_, err := newTestClient(srv.URL).Send(context.Background(), []byte{0})
	if !errors.Is(err, ErrExhausted) {
		t.Fatalf("expected ErrExhausted, got %v", err)
	}
}

func TestSendRejectsOversizedBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", ContentType)
		_, _ = w.Write(make([]byte, maxResponseSize+1))
	}))
	defer srv.Close()

	_, err := newTestClient(srv.URL).Send(context.Background(), []byte{0})
	if !errors.Is(err, ErrExhausted) {
		t.Fatalf("expected ErrExhausted, got %v", err)
	}
}

func TestSendHonorsContextCancellation(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := newTestClient(srv.URL).Send(ctx, []byte{0})
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}

func TestBackoffDelayBounds(t *testing.T) {
	for attempt := 1; attempt <= 5; attempt++ {
		d := backoffDelay(attempt)
		if d < backoffBase/2 {
			t.Errorf("attempt %d: delay %v below jitter floor", attempt, d)
		}
		if d > backoffCap+backoffCap/2 {
			t.Errorf("attempt %d: delay %v above jitter ceiling", attempt, d)
		}
	}
}

func TestNewClientDefaults(t *testing.T) {
	c := NewClient("https://dns.quad9.net/dns-query", nil, 0, 0, nil)
	if c.timeout != DefaultTimeout {
		t.Errorf("timeout %v, want %v", c.timeout, DefaultTimeout)
	}
	if c.attempts != DefaultAttempts {
		t.Errorf("attempts %d, want %d", c.attempts, DefaultAttempts)
	}
	if c.httpc == nil {
		t.Error("expected default http client")
	}
}
