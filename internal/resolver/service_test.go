package resolver

import (
	"context"
	"encoding/binary"
	"errors"
	"log/slog"
	"net/netip"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jroosing/revdoh/internal/cache"
	"github.com/jroosing/revdoh/internal/dnswire"
	"github.com/jroosing/revdoh/internal/transport"
)

// fakeTransport returns canned responses and counts calls.
type fakeTransport struct {
	mu    sync.Mutex
	calls int
	reply func(query []byte) ([]byte, error)
}

func (f *fakeTransport) Send(_ context.Context, query []byte) ([]byte, error) {
	f.mu.Lock()
	f.calls++
	f.mu.Unlock()
	return f.reply(query)
}

func (f *fakeTransport) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

// ptrReply builds a well-formed PTR response that echoes the question of
// the given query and answers with target.
func ptrReply(t *testing.T, query []byte, target string) []byte {
	t.Helper()
	off := 0
	h, err := dnswire.ParseHeader(query, &off)
	require.NoError(t, err)
	q, err := dnswire.ParseQuestion(query, &off)
	require.NoError(t, err)

	resp := dnswire.Header{
		ID:      h.ID,
		Flags:   dnswire.QRFlag | dnswire.RDFlag | dnswire.RAFlag,
		QDCount: 1,
		ANCount: 1,
	}
	msg := resp.Marshal()
	qb, err := q.Marshal()
	require.NoError(t, err)
	msg = append(msg, qb...)

	// Answer: pointer back to the question name at offset 12.
	msg = append(msg, 0xC0, 0x0C)
	rr := make([]byte, 8)
	binary.BigEndian.PutUint16(rr[0:2], uint16(dnswire.TypePTR))
	binary.BigEndian.PutUint16(rr[2:4], uint16(dnswire.ClassIN))
	binary.BigEndian.PutUint32(rr[4:8], 300)
	msg = append(msg, rr...)
	rdata, err := dnswire.EncodeName(target)
	require.NoError(t, err)
	rdlen := make([]byte, 2)
	binary.BigEndian.PutUint16(rdlen, uint16(len(rdata)))
	msg = append(msg, rdlen...)
	return append(msg, rdata...)
}

func newTestService(t *testing.T, ft *fakeTransport) *Service {
	t.Helper()
	c := cache.New(cache.DefaultTTL, cache.DefaultMaxEntries, cache.DefaultSweepEvery)
	return New(ft, c, nil, slog.New(slog.DiscardHandler))
}

func TestLookupResolvesViaUpstream(t *testing.T) {
	ft := &fakeTransport{reply: func(q []byte) ([]byte, error) {
		return ptrReply(t, q, "dns.google"), nil
	}}
	svc := newTestService(t, ft)

	res, err := svc.Lookup(context.Background(), "8.8.8.8")
	require.NoError(t, err)
	assert.Equal(t, "dns.google", res.Domain)
	assert.Equal(t, SourceUpstream, res.Source)
	assert.Equal(t, 1, ft.callCount())
}

func TestLookupSecondCallHitsCache(t *testing.T) {
	ft := &fakeTransport{reply: func(q []byte) ([]byte, error) {
		return ptrReply(t, q, "dns.google"), nil
	}}
	svc := newTestService(t, ft)

	_, err := svc.Lookup(context.Background(), "8.8.8.8")
	require.NoError(t, err)
	res, err := svc.Lookup(context.Background(), "8.8.8.8")
	require.NoError(t, err)

	assert.Equal(t, "dns.google", res.Domain)
	assert.Equal(t, SourceCache, res.Source)
	assert.Equal(t, 1, ft.callCount(), "second lookup must not reach the transport")
}

func TestLookupInvalidInput(t *testing.T) {
	ft := &fakeTransport{reply: func(q []byte) ([]byte, error) {
		t.Fatal("transport must not be called for invalid input")
		return nil, nil
	}}
	svc := newTestService(t, ft)

	for _, ip := range []string{"", "not-an-ip", "300.1.2.3", "1.2.3", "2001:db8::1", "8.8.8.8.8"} {
		_, err := svc.Lookup(context.Background(), ip)
		assert.ErrorIs(t, err, ErrInvalidInput, "input %q", ip)
	}
	assert.Equal(t, 0, ft.callCount())
}

func TestLookupTransportErrorPropagates(t *testing.T) {
	sendErr := errors.New("upstream unreachable")
	ft := &fakeTransport{reply: func(q []byte) ([]byte, error) {
		return nil, sendErr
	}}
	svc := newTestService(t, ft)

	_, err := svc.Lookup(context.Background(), "1.1.1.1")
	assert.ErrorIs(t, err, sendErr)

	// Failures are not cached, so the next lookup tries again.
	_, err = svc.Lookup(context.Background(), "1.1.1.1")
	assert.ErrorIs(t, err, sendErr)
	assert.Equal(t, 2, ft.callCount())
}

func TestLookupNoAnswer(t *testing.T) {
	ft := &fakeTransport{reply: func(q []byte) ([]byte, error) {
		off := 0
		h, err := dnswire.ParseHeader(q, &off)
		if err != nil {
			return nil, err
		}
		qq, err := dnswire.ParseQuestion(q, &off)
		if err != nil {
			return nil, err
		}
		resp := dnswire.Header{
			ID:      h.ID,
			Flags:   dnswire.QRFlag | dnswire.RDFlag | 3, // NXDOMAIN
			QDCount: 1,
		}
		msg := resp.Marshal()
		qb, _ := qq.Marshal()
		return append(msg, qb...), nil
	}}
	svc := newTestService(t, ft)

	_, err := svc.Lookup(context.Background(), "203.0.113.9")
	assert.ErrorIs(t, err, dnswire.ErrNoAnswer)
}

func TestLookupRejectsMismatchedQuestionEcho(t *testing.T) {
	ft := &fakeTransport{reply: func(q []byte) ([]byte, error) {
		// Answer for a different address than was asked.
		other, err := dnswire.BuildPTRQuery(netip.MustParseAddr("9.9.9.9"))
		if err != nil {
			return nil, err
		}
		return ptrReply(t, other, "dns9.quad9.net"), nil
	}}
	svc := newTestService(t, ft)

	_, err := svc.Lookup(context.Background(), "8.8.4.4")
	assert.ErrorIs(t, err, dnswire.ErrMalformed)
}

func TestLookupConcurrentSharesExchange(t *testing.T) {
	release := make(chan struct{})
	ft := &fakeTransport{reply: func(q []byte) ([]byte, error) {
		<-release
		return ptrReply(t, q, "dns.google"), nil
	}}
	svc := newTestService(t, ft)

	const workers = 8
	results := make(chan Result, workers)
	errs := make(chan error, workers)
	var wg sync.WaitGroup
	for range workers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			res, err := svc.Lookup(context.Background(), "8.8.8.8")
			results <- res
			errs <- err
		}()
	}
	// Give the goroutines a moment to pile up behind the inflight call.
	time.Sleep(50 * time.Millisecond)
	close(release)
	wg.Wait()
	close(results)
	close(errs)

	for err := range errs {
		require.NoError(t, err)
	}
	upstreamCount := 0
	for res := range results {
		assert.Equal(t, "dns.google", res.Domain)
		if res.Source == SourceUpstream {
			upstreamCount++
		}
	}
	assert.Equal(t, 1, upstreamCount, "exactly one caller performs the exchange")
	assert.Equal(t, 1, ft.callCount())
}

func TestLookupCanceledContext(t *testing.T) {
	ft := &fakeTransport{reply: func(q []byte) ([]byte, error) {
		return ptrReply(t, q, "dns.google"), nil
	}}
	svc := newTestService(t, ft)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := svc.Lookup(ctx, "8.8.8.8")
	assert.ErrorIs(t, err, context.Canceled)
}

func TestSnapshotCounters(t *testing.T) {
	ft := &fakeTransport{reply: func(q []byte) ([]byte, error) {
		return ptrReply(t, q, "dns.google"), nil
	}}
	svc := newTestService(t, ft)

	_, err := svc.Lookup(context.Background(), "8.8.8.8")
	require.NoError(t, err)
	_, err = svc.Lookup(context.Background(), "8.8.8.8")
	require.NoError(t, err)
	_, err = svc.Lookup(context.Background(), "bogus")
	require.Error(t, err)

	snap := svc.Snapshot()
	assert.Equal(t, int64(2), snap.Lookups)
	assert.Equal(t, int64(1), snap.CacheHits)
	assert.Equal(t, int64(1), snap.Upstream)
	assert.Equal(t, int64(0), snap.Failures)
	assert.Equal(t, int64(1), snap.Invalid)
}

func TestServiceAgainstRealTransportError(t *testing.T) {
	// Wire the exhaustion sentinel through the service untouched.
	ft := &fakeTransport{reply: func(q []byte) ([]byte, error) {
		return nil, transport.ErrExhausted
	}}
	svc := newTestService(t, ft)

	_, err := svc.Lookup(context.Background(), "192.0.2.1")
	assert.ErrorIs(t, err, transport.ErrExhausted)
}
