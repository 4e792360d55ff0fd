package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/jroosing/revdoh/internal/api/models"
)

// Health godoc
// @Summary Health check
// @Description Returns server health status
// @Tags system
// @Produce json
// @Success 200 {object} models.StatusResponse
// @Router /health [get]
func (h *Handler) Health(c *gin.Context) {
	if h.store != nil {
		if err := h.store.Health(c.Request.Context()); err != nil {
			c.JSON(http.StatusServiceUnavailable, models.ErrorResponse{Error: "history database unavailable"})
			return
		}
	}
	c.JSON(http.StatusOK, models.StatusResponse{Status: "ok"})
}
