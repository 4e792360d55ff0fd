package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/jroosing/revdoh/internal/api/models"
	"github.com/jroosing/revdoh/internal/dnswire"
	"github.com/jroosing/revdoh/internal/resolver"
)

// Reverse godoc
// @Summary Reverse lookup
// @Description Resolves an IPv4 address to its PTR domain name via DoH
// @Tags lookups
// @Produce json
// @Param ip path string true "IPv4 address (dotted quad)"
// @Success 200 {object} models.ReverseResponse
// @Failure 400 {object} models.ErrorResponse
// @Failure 404 {object} models.ErrorResponse
// @Failure 502 {object} models.ErrorResponse
// @Security ApiKeyAuth
// @Router /reverse/{ip} [get]
func (h *Handler) Reverse(c *gin.Context) {
	ip := c.Param("ip")

	res, err := h.resolver.Lookup(c.Request.Context(), ip)
	switch {
	case err == nil:
		c.JSON(http.StatusOK, models.ReverseResponse{IP: ip, Domain: res.Domain, Source: res.Source})
	case errors.Is(err, resolver.ErrInvalidInput):
		c.JSON(http.StatusBadRequest, models.ErrorResponse{Error: err.Error()})
	case errors.Is(err, dnswire.ErrNoAnswer):
		c.JSON(http.StatusNotFound, models.ErrorResponse{Error: "no PTR record for " + ip})
	default:
		// Upstream failures: transport.ErrExhausted, dnswire.ErrMalformed,
		// context errors.
		c.JSON(http.StatusBadGateway, models.ErrorResponse{Error: err.Error()})
	}
}
