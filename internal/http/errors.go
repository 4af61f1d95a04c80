package http

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"keepsake/internal/flow"
	"keepsake/internal/service"
)

// writeError traduce los errores de servicio a status HTTP.
func writeError(c *gin.Context, logger *zap.Logger, err error, op string) {
	var delErr *service.DeleteError
	switch {
	case errors.As(err, &delErr):
		logger.Warn(op+" failed", zap.Error(err))
		c.JSON(http.StatusBadGateway, gin.H{"error": "could not delete message", "id": delErr.ID, "retryable": true})
	case errors.Is(err, service.ErrValidation), errors.Is(err, flow.ErrEmptyName):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case errors.Is(err, service.ErrInvalidCredentials):
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid credentials"})
	case errors.Is(err, service.ErrUnauthenticated):
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthenticated"})
	case errors.Is(err, service.ErrForbidden):
		c.JSON(http.StatusForbidden, gin.H{"error": "forbidden"})
	case errors.Is(err, service.ErrRateLimited):
		c.JSON(http.StatusTooManyRequests, gin.H{"error": "too many requests"})
	case errors.Is(err, service.ErrVisitNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "visit not found"})
	case errors.Is(err, service.ErrMessageNotAvailable), errors.Is(err, service.ErrLetterNotAvailable):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
	case errors.Is(err, service.ErrStoreUnavailable), errors.Is(err, service.ErrAuthUnavailable):
		logger.Warn(op+" failed", zap.Error(err))
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": err.Error(), "retryable": true})
	default:
		logger.Error(op+" failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
	}
}
