package resolver

import "sync/atomic"

// Stats holds lookup counters. All fields are updated atomically so the
// service can be queried while lookups are in flight.
type Stats struct {
	lookups   atomic.Int64
	cacheHits atomic.Int64
	upstream  atomic.Int64
	failures  atomic.Int64
	invalid   atomic.Int64
	latencyNs atomic.Int64
}

// Snapshot is a point-in-time copy of the service counters.
type Snapshot struct {
	Lookups      int64 `json:"lookups"`
	CacheHits    int64 `json:"cache_hits"`
	Upstream     int64 `json:"upstream"`
	Failures     int64 `json:"failures"`
	Invalid      int64 `json:"invalid"`
	AvgLatencyMs int64 `json:"avg_latency_ms"`
}

// Snapshot returns the current counters. Average latency covers
// successful upstream exchanges only.
func (s *Service) Snapshot() Snapshot {
	snap := Snapshot{
		Lookups:   s.stats.lookups.Load(),
		CacheHits: s.stats.cacheHits.Load(),
		Upstream:  s.stats.upstream.Load(),
		Failures:  s.stats.failures.Load(),
		Invalid:   s.stats.invalid.Load(),
	}
	if ok := snap.Upstream - snap.Failures; ok > 0 {
		snap.AvgLatencyMs = s.stats.latencyNs.Load() / ok / 1e6
	}
	return snap
}
