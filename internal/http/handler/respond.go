// Package handler wires the HTTP surface to the service layer.
package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/crewbook/portal/internal/domain"
)

type errorResponse struct {
	Success bool     `json:"success"`
	Error   string   `json:"error"`
	Details []string `json:"details,omitempty"`
}

// respondError maps domain errors to stable HTTP responses. Provider and
// infrastructure failures are logged with detail but surface a generic
// message.
func respondError(c *gin.Context, logger *zap.Logger, err error) {
	var verr *domain.ValidationError
	switch {
	case errors.As(err, &verr):
		c.JSON(http.StatusBadRequest, errorResponse{Error: "Invalid request data", Details: verr.Details})
	case errors.Is(err, domain.ErrUnauthorized):
		c.JSON(http.StatusUnauthorized, errorResponse{Error: "Unauthorized"})
	case errors.Is(err, domain.ErrForbidden):
		c.JSON(http.StatusForbidden, errorResponse{Error: "Forbidden"})
	case errors.Is(err, domain.ErrNotFound):
		c.JSON(http.StatusNotFound, errorResponse{Error: "Not found"})
	case errors.Is(err, domain.ErrConflict):
		c.JSON(http.StatusConflict, errorResponse{Error: "Conflict"})
	case errors.Is(err, domain.ErrConfiguration):
		logger.Error("request failed: service misconfigured", zap.Error(err))
		c.JSON(http.StatusInternalServerError, errorResponse{Error: "Service misconfigured"})
	case errors.Is(err, domain.ErrProvider):
		logger.Error("request failed: provider error", zap.Error(err))
		c.JSON(http.StatusInternalServerError, errorResponse{Error: "Enrichment provider unavailable"})
	default:
		logger.Error("request failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, errorResponse{Error: "Internal server error"})
	}
}

func bindError(c *gin.Context, err error) {
	c.JSON(http.StatusBadRequest, errorResponse{Error: "Invalid request data", Details: []string{err.Error()}})
}
