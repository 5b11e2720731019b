package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	log "github.com/sirupsen/logrus"

	"github.com/yourusername/livequiz-api/internal/middleware"
	apperrors "github.com/yourusername/livequiz-api/internal/pkg/errors"
)

// handleServiceError преобразует ошибку сервиса в HTTP ответ {"error": ...}
func handleServiceError(c *gin.Context, component string, err error) {
	switch {
	case errors.Is(err, apperrors.ErrValidation):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case errors.Is(err, apperrors.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	case errors.Is(err, apperrors.ErrConflict):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
	default:
		log.WithError(err).WithFields(log.Fields{
			"method":     c.Request.Method,
			"path":       c.Request.URL.Path,
			"request_id": c.GetString(middleware.RequestIDKey),
		}).Errorf("[%s] Internal error", component)
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
	}
}
