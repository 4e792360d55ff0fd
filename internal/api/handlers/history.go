package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/jroosing/revdoh/internal/api/models"
	"github.com/jroosing/revdoh/internal/helpers"
)

const (
	defaultHistoryLimit = 50
	maxHistoryLimit     = 500
)

// History godoc
// @Summary Recent lookups
// @Description Returns the most recent journaled lookups, newest first
// @Tags lookups
// @Produce json
// @Param limit query int false "Maximum entries to return (1-500, default 50)"
// @Success 200 {object} models.HistoryResponse
// @Failure 404 {object} models.ErrorResponse
// @Security ApiKeyAuth
// @Router /history [get]
func (h *Handler) History(c *gin.Context) {
	if h.store == nil {
		c.JSON(http.StatusNotFound, models.ErrorResponse{Error: "lookup history is disabled"})
		return
	}

	limit := defaultHistoryLimit
	if raw := c.Query("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil {
			c.JSON(http.StatusBadRequest, models.ErrorResponse{Error: "limit must be an integer"})
			return
		}
		limit = helpers.ClampInt(n, 1, maxHistoryLimit)
	}

	entries, err := h.store.Recent(c.Request.Context(), limit)
	if err != nil {
		h.logger.Error("failed to read lookup history", "error", err)
		c.JSON(http.StatusInternalServerError, models.ErrorResponse{Error: "failed to read lookup history"})
		return
	}

	c.JSON(http.StatusOK, models.HistoryResponse{Count: len(entries), Entries: entries})
}
