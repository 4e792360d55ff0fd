package models

import "time"

// ServerStatsResponse contains server runtime statistics.
type ServerStatsResponse struct {
	Uptime        string                `json:"uptime"`
	UptimeSeconds int64                 `json:"uptime_seconds"`
	StartTime     time.Time             `json:"start_time"`
	GoRoutines    int                   `json:"goroutines"`
	NumCPU        int                   `json:"num_cpu"`
	Host          *HostStatsResponse    `json:"host,omitempty"`
	Memory        *MemoryStatsResponse  `json:"memory,omitempty"`
	Resolver      ResolverStatsResponse `json:"resolver"`
	Cache         CacheStatsResponse    `json:"cache"`
}

// HostStatsResponse describes the machine the server runs on.
type HostStatsResponse struct {
	Hostname      string `json:"hostname"`
	OS            string `json:"os"`
	Platform      string `json:"platform"`
	UptimeSeconds uint64 `json:"uptime_seconds"`
}

// MemoryStatsResponse contains process and system memory usage.
type MemoryStatsResponse struct {
	ProcessAllocMB    float64 `json:"process_alloc_mb"`
	SystemTotalMB     float64 `json:"system_total_mb"`
	SystemUsedPercent float64 `json:"system_used_percent"`
}

// ResolverStatsResponse contains lookup counters.
type ResolverStatsResponse struct {
	Lookups      int64 `json:"lookups"`
	CacheHits    int64 `json:"cache_hits"`
	Upstream     int64 `json:"upstream"`
	Failures     int64 `json:"failures"`
	Invalid      int64 `json:"invalid"`
	AvgLatencyMs int64 `json:"avg_latency_ms"`
}

// CacheStatsResponse contains lookup cache counters.
type CacheStatsResponse struct {
	Entries   int    `json:"entries"`
	Hits      uint64 `json:"hits"`
	Misses    uint64 `json:"misses"`
	Evictions uint64 `json:"evictions"`
}
