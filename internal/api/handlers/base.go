// Package handlers implements the REST API endpoint handlers for revdoh.
//
// REST API Endpoints:
//
// System:
//   - GET /api/v1/health - Health check status
//   - GET /api/v1/stats - Runtime statistics (uptime, memory, resolver and cache counters)
//
// Lookups:
//   - GET /api/v1/reverse/:ip - Reverse-resolve an IPv4 address via DoH
//   - GET /api/v1/history - Recent journaled lookups (requires history to be enabled)
//
// Authentication:
//
// If an API key is configured, all endpoints require the X-API-Key header.
//
// @title revdoh Management API
// @version 1.0
// @description REST API for reverse DNS lookups over DNS-over-HTTPS.
//
// @contact.name revdoh Support
// @contact.url https://github.com/jroosing/revdoh
//
// @license.name MIT
// @license.url https://opensource.org/licenses/MIT
//
// @host localhost:8080
// @BasePath /api/v1
//
// @securityDefinitions.apikey ApiKeyAuth
// @in header
// @name X-API-Key
package handlers

import (
	"log/slog"
	"time"

	"github.com/jroosing/revdoh/internal/history"
	"github.com/jroosing/revdoh/internal/resolver"
)

// Handler contains dependencies for API handlers.
type Handler struct {
	resolver  *resolver.Service
	store     *history.Store // nil when history is disabled
	logger    *slog.Logger
	startTime time.Time
}

// New creates a Handler. The store may be nil when history is disabled.
func New(svc *resolver.Service, store *history.Store, logger *slog.Logger) *Handler {
	return &Handler{
		resolver:  svc,
		store:     store,
		logger:    logger,
		startTime: time.Now(),
	}
}
