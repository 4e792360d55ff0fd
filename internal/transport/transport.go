// Package transport sends wire-format DNS queries to a DNS-over-HTTPS
// endpoint via HTTPS POST, with per-attempt timeouts and bounded retries.
package transport

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math/rand/v2"
	"net/http"
	"strings"
	"time"
)

// ContentType is the media type for binary DNS messages carried over
// HTTPS (RFC 8484).
const ContentType = "application/dns-message"

// Default transport parameters.
const (
	DefaultTimeout  = 30 * time.Second
	DefaultAttempts = 3

	// maxResponseSize bounds the response body read; DNS answers to a
	// single PTR question fit comfortably within it.
	maxResponseSize = 4096

	backoffBase = 250 * time.Millisecond
	backoffCap  = 2 * time.Second
)

// ErrExhausted is the terminal failure signal once the retry budget is
// spent. It wraps the last attempt's error.
var ErrExhausted = errors.New("doh exchange attempts exhausted")

// Doer abstracts over *http.Client so tests can inject a fake.
type Doer interface {
	Do(req *http.Request) (*http.Response, error)
}

// Client exchanges binary DNS messages with a single DoH endpoint.
//
// Each attempt is bounded by the configured timeout. Timeouts, connection
// failures and non-2xx statuses are retried with jittered exponential
// backoff until the attempt budget is spent; the caller then receives
// ErrExhausted. Context cancellation is honored between and during
// attempts and is never retried.
type Client struct {
	endpoint string
	httpc    Doer
	timeout  time.Duration
	attempts int
	logger   *slog.Logger

	// sleep waits between attempts, honoring ctx. Replaceable in tests.
	sleep func(ctx context.Context, d time.Duration) error
}

// NewClient creates a DoH transport for the given endpoint URL.
// Non-positive timeout/attempts fall back to the package defaults; a nil
// httpc falls back to http.DefaultClient.
func NewClient(endpoint string, httpc Doer, timeout time.Duration, attempts int, logger *slog.Logger) *Client {
	if httpc == nil {
		httpc = http.DefaultClient
	}
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	if attempts <= 0 {
		attempts = DefaultAttempts
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Client{
		endpoint: endpoint,
		httpc:    httpc,
		timeout:  timeout,
		attempts: attempts,
		logger:   logger,
		sleep:    sleepCtx,
	}
}

// Send POSTs the raw query bytes to the endpoint and returns the raw
// response body. See Client for the retry contract.
func (c *Client) Send(ctx context.Context, query []byte) ([]byte, error) {
	var lastErr error
	for attempt := 1; attempt <= c.attempts; attempt++ {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}

		resp, err := c.attemptOnce(ctx, query)
		if err == nil {
			return resp, nil
		}
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		lastErr = err
		c.logger.Warn("doh attempt failed",
			"endpoint", c.endpoint,
			"attempt", attempt,
			"error", err,
		)

		if attempt < c.attempts {
			if err := c.sleep(ctx, backoffDelay(attempt)); err != nil {
				return nil, err
			}
		}
	}
	return nil, fmt.Errorf("%w after %d attempts: %w", ErrExhausted, c.attempts, lastErr)
}

// attemptOnce performs a single POST exchange under the per-attempt timeout.
func (c *Client) attemptOnce(ctx context.Context, query []byte) ([]byte, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(query))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", ContentType)
	req.Header.Set("Accept", ContentType)

	res, err := c.httpc.Do(req)
	if err != nil {
		return nil, err
	}
	defer res.Body.Close()

	if res.StatusCode < 200 || res.StatusCode > 299 {
		// Drain so the connection can be reused across retries.
		_, _ = io.Copy(io.Discard, io.LimitReader(res.Body, maxResponseSize))
		return nil, fmt.Errorf("unexpected http status %d", res.StatusCode)
	}
	if ct := res.Header.Get("Content-Type"); !strings.HasPrefix(ct, ContentType) {
		return nil, fmt.Errorf("unexpected content-type %q", ct)
	}

	body, err := io.ReadAll(io.LimitReader(res.Body, maxResponseSize+1))
	if err != nil {
		return nil, err
	}
	if len(body) > maxResponseSize {
		return nil, fmt.Errorf("response exceeds %d bytes", maxResponseSize)
	}
	if len(body) == 0 {
		return nil, errors.New("empty response body")
	}
	return body, nil
}

// backoffDelay returns the wait before the next attempt: exponential in
// the attempt number, capped, with ±50% jitter to avoid retry alignment.
func backoffDelay(attempt int) time.Duration {
	d := backoffBase << (attempt - 1)
	if d > backoffCap {
		d = backoffCap
	}
	jitter := 0.5 + rand.Float64() // 0.5x .. 1.5x
	return time.Duration(float64(d) * jitter)
}

// sleepCtx waits for d or until ctx is done, whichever comes first.
func sleepCtx(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
