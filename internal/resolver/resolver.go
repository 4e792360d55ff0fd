// Package resolver performs reverse DNS lookups over DNS-over-HTTPS.
//
// A lookup checks the cache, encodes a PTR query, sends it through the
// transport, decodes and validates the response, and stores the result
// back in the cache. Failures are discriminated results at each boundary:
// ErrInvalidInput for malformed addresses (no I/O happens),
// transport.ErrExhausted once the retry budget is spent, and
// dnswire.ErrMalformed or dnswire.ErrNoAnswer from decoding. Concurrent
// lookups for the same address share a single upstream exchange.
package resolver

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/netip"
	"sync"
	"time"

	"github.com/jroosing/revdoh/internal/cache"
	"github.com/jroosing/revdoh/internal/dnswire"
)

// ErrInvalidInput reports an input that is not a dotted-quad IPv4 address.
// It is raised before any cache or network activity.
var ErrInvalidInput = errors.New("invalid IPv4 address")

// Lookup sources.
const (
	SourceCache    = "cache"
	SourceUpstream = "upstream"
	SourceInflight = "inflight"
)

// Transport sends a wire-format DNS query and returns the raw response.
// Implemented by *transport.Client.
type Transport interface {
	Send(ctx context.Context, query []byte) ([]byte, error)
}

// Journal records completed lookups for later inspection. Implemented by
// *history.Store. Recording is best-effort and never fails a lookup.
type Journal interface {
	Record(ctx context.Context, ip, domain, source string, rtt time.Duration) error
}

// Result is the outcome of a successful lookup.
type Result struct {
	Domain string
	Source string // where the answer came from: cache, upstream or inflight
}

// inflightCall tracks an in-progress upstream exchange so concurrent
// lookups for the same address can share it.
type inflightCall struct {
	done   chan struct{}
	domain string
	err    error
}

// Service resolves IPv4 addresses to domain names via a DoH transport,
// backed by a bounded TTL cache.
type Service struct {
	transport Transport
	cache     *cache.LookupCache
	journal   Journal // may be nil
	logger    *slog.Logger

	inflightMu sync.Mutex
	inflight   map[string]*inflightCall

	stats Stats
}

// New creates a Service. The journal may be nil to disable history
// recording.
func New(t Transport, c *cache.LookupCache, journal Journal, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		transport: t,
		cache:     c,
		journal:   journal,
		logger:    logger,
		inflight:  map[string]*inflightCall{},
	}
}

// Lookup resolves ip to its PTR domain name.
//
// Invalid syntax fails fast with ErrInvalidInput. A fresh cached entry is
// returned without touching the network. On a miss the query is sent
// upstream, the response decoded and validated, and the result cached
// before returning.
func (s *Service) Lookup(ctx context.Context, ip string) (Result, error) {
	addr, err := parseIPv4(ip)
	if err != nil {
		s.stats.invalid.Add(1)
		return Result{}, err
	}
	key := addr.String()
	s.stats.lookups.Add(1)

	if domain, ok := s.cache.Retrieve(key); ok {
		s.stats.cacheHits.Add(1)
		return Result{Domain: domain, Source: SourceCache}, nil
	}

	if ctx.Err() != nil {
		return Result{}, ctx.Err()
	}

	// Share an in-progress exchange for the same address.
	s.inflightMu.Lock()
	if call := s.inflight[key]; call != nil {
		s.inflightMu.Unlock()
		select {
		case <-call.done:
			if call.err != nil {
				return Result{}, call.err
			}
			return Result{Domain: call.domain, Source: SourceInflight}, nil
		case <-ctx.Done():
			return Result{}, ctx.Err()
		}
	}
	call := &inflightCall{done: make(chan struct{})}
	s.inflight[key] = call
	s.inflightMu.Unlock()

	domain, err := s.resolveUpstream(ctx, addr, key)
	call.domain = domain
	call.err = err
	close(call.done)

	s.inflightMu.Lock()
	delete(s.inflight, key)
	s.inflightMu.Unlock()

	if err != nil {
		return Result{}, err
	}
	return Result{Domain: domain, Source: SourceUpstream}, nil
}

// resolveUpstream encodes the query, sends it upstream, then decodes,
// validates and caches the answer.
func (s *Service) resolveUpstream(ctx context.Context, addr netip.Addr, key string) (string, error) {
	query, err := dnswire.BuildPTRQuery(addr)
	if err != nil {
		return "", err
	}

	s.stats.upstream.Add(1)
	start := time.Now()
	respBytes, err := s.transport.Send(ctx, query)
	rtt := time.Since(start)
	if err != nil {
		s.stats.failures.Add(1)
		s.logger.Warn("reverse lookup failed", "ip", key, "error", err)
		return "", err
	}
	s.stats.latencyNs.Add(rtt.Nanoseconds())

	domain, err := s.decodeAndValidate(respBytes, addr)
	if err != nil {
		s.stats.failures.Add(1)
		s.logger.Warn("reverse lookup response rejected", "ip", key, "error", err)
		return "", err
	}

	s.cache.Add(key, domain)
	s.record(ctx, key, domain, rtt)
	s.logger.Debug("reverse lookup resolved", "ip", key, "domain", domain, "rtt_ms", rtt.Milliseconds())
	return domain, nil
}

// decodeAndValidate extracts the PTR target after checking that the
// response echoes the question we asked. The echo check guards against a
// mixed-up or forged exchange body.
func (s *Service) decodeAndValidate(respBytes []byte, addr netip.Addr) (string, error) {
	resp, err := dnswire.ParseResponse(respBytes)
	if err != nil {
		return "", err
	}
	if len(resp.Questions) > 0 {
		q := resp.Questions[0]
		if !dnswire.EqualNames(q.Name, dnswire.ReverseName(addr)) ||
			q.Type != uint16(dnswire.TypePTR) ||
			q.Class != uint16(dnswire.ClassIN) {
			return "", fmt.Errorf("%w: response question does not match query", dnswire.ErrMalformed)
		}
	}

	if rc := dnswire.RCodeFromFlags(resp.Header.Flags); rc != dnswire.RCodeNoError {
		return "", fmt.Errorf("%w: rcode %d", dnswire.ErrNoAnswer, rc)
	}
	domain, ok := resp.FirstPTR()
	if !ok {
		return "", dnswire.ErrNoAnswer
	}
	return domain, nil
}

// record writes the lookup to the journal, if one is configured.
func (s *Service) record(ctx context.Context, ip, domain string, rtt time.Duration) {
	if s.journal == nil {
		return
	}
	if err := s.journal.Record(ctx, ip, domain, SourceUpstream, rtt); err != nil {
		s.logger.Warn("failed to journal lookup", "ip", ip, "error", err)
	}
}

// CacheStats exposes the underlying cache counters.
func (s *Service) CacheStats() cache.Stats {
	return s.cache.Snapshot()
}

// parseIPv4 validates and canonicalizes a dotted-quad IPv4 string.
func parseIPv4(ip string) (netip.Addr, error) {
	addr, err := netip.ParseAddr(ip)
	if err != nil {
		return netip.Addr{}, fmt.Errorf("%w: %q", ErrInvalidInput, ip)
	}
	if !addr.Is4() {
		return netip.Addr{}, fmt.Errorf("%w: %q is not dotted-quad IPv4", ErrInvalidInput, ip)
	}
	return addr, nil
}
