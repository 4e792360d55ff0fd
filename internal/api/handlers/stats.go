package handlers

import (
	"net/http"
	"runtime"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/shirou/gopsutil/v3/host"
	"github.com/shirou/gopsutil/v3/mem"

	"github.com/jroosing/revdoh/internal/api/models"
)

// Stats godoc
// @Summary Server statistics
// @Description Returns runtime statistics including memory, goroutines, resolver and cache counters
// @Tags system
// @Produce json
// @Success 200 {object} models.ServerStatsResponse
// @Security ApiKeyAuth
// @Router /stats [get]
func (h *Handler) Stats(c *gin.Context) {
	var m runtime.MemStats
	runtime.ReadMemStats(&m)

	uptime := time.Since(h.startTime)
	rs := h.resolver.Snapshot()
	cs := h.resolver.CacheStats()

	resp := models.ServerStatsResponse{
		Uptime:        uptime.Round(time.Second).String(),
		UptimeSeconds: int64(uptime.Seconds()),
		StartTime:     h.startTime,
		GoRoutines:    runtime.NumGoroutine(),
		NumCPU:        runtime.NumCPU(),
		Memory: &models.MemoryStatsResponse{
			ProcessAllocMB: float64(m.Alloc) / 1024 / 1024,
		},
		Resolver: models.ResolverStatsResponse{
			Lookups:      rs.Lookups,
			CacheHits:    rs.CacheHits,
			Upstream:     rs.Upstream,
			Failures:     rs.Failures,
			Invalid:      rs.Invalid,
			AvgLatencyMs: rs.AvgLatencyMs,
		},
		Cache: models.CacheStatsResponse{
			Entries:   cs.Entries,
			Hits:      cs.Hits,
			Misses:    cs.Misses,
			Evictions: cs.Evictions,
		},
	}

	// System-level figures are best effort.
	if vm, err := mem.VirtualMemory(); err == nil {
		resp.Memory.SystemTotalMB = float64(vm.Total) / 1024 / 1024
		resp.Memory.SystemUsedPercent = vm.UsedPercent
	}
	if info, err := host.Info(); err == nil {
		resp.Host = &models.HostStatsResponse{
			Hostname:      info.Hostname,
			OS:            info.OS,
			Platform:      info.Platform,
			UptimeSeconds: info.Uptime,
		}
	}

	c.JSON(http.StatusOK, resp)
}
