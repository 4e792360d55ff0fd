package api

import (
	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	_ "github.com/jroosing/revdoh/internal/api/docs" // swagger docs
	"github.com/jroosing/revdoh/internal/api/handlers"
	"github.com/jroosing/revdoh/internal/api/middleware"
	"github.com/jroosing/revdoh/internal/config"
)

// RegisterRoutes wires all endpoints onto the engine.
func RegisterRoutes(r *gin.Engine, h *handlers.Handler, cfg *config.Config) {
	// Swagger UI at /swagger/*
	r.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	api := r.Group("/api/v1")

	// Optional API key protection.
	if cfg != nil && cfg.API.APIKey != "" {
		api.Use(middleware.RequireAPIKey(cfg.API.APIKey))
	}

	api.GET("/health", h.Health)
	api.GET("/stats", h.Stats)
	api.GET("/reverse/:ip", h.Reverse)
	api.GET("/history", h.History)
}
