package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/yourusername/livequiz-api/internal/websocket"
)

// HealthHandler отвечает на проверки живости
type HealthHandler struct {
	storeDriver string
	metrics     websocket.MetricsProvider
}

// NewHealthHandler создает обработчик. metrics может быть nil.
func NewHealthHandler(storeDriver string, metrics websocket.MetricsProvider) *HealthHandler {
	return &HealthHandler{storeDriver: storeDriver, metrics: metrics}
}

// Health возвращает {status:"ok"} и метрики WebSocket
// GET /health
func (h *HealthHandler) Health(c *gin.Context) {
	resp := gin.H{
		"status": "ok",
		"store":  h.storeDriver,
	}
	if h.metrics != nil {
		resp["websocket"] = h.metrics.GetMetrics()
		resp["clients"] = h.metrics.ClientCount()
	}
	c.JSON(http.StatusOK, resp)
}
