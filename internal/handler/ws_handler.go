package handler

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	gorillaws "github.com/gorilla/websocket"
	log "github.com/sirupsen/logrus"

	"github.com/yourusername/livequiz-api/internal/middleware"
	"github.com/yourusername/livequiz-api/internal/websocket"
)

// WSHandler обрабатывает WebSocket соединения
type WSHandler struct {
	wsHub          *websocket.Hub
	wsManager      *websocket.Manager
	clientConfig   websocket.ClientConfig
	defaultSession string
	upgrader       gorillaws.Upgrader
}

// NewWSHandler создает новый обработчик WebSocket.
// allowedOrigins синхронизирован с настройкой CORS; "*" разрешает любой origin.
func NewWSHandler(
	wsHub *websocket.Hub,
	wsManager *websocket.Manager,
	clientConfig websocket.ClientConfig,
	defaultSession string,
	allowedOrigins []string,
) *WSHandler {
	return &WSHandler{
		wsHub:          wsHub,
		wsManager:      wsManager,
		clientConfig:   clientConfig,
		defaultSession: defaultSession,
		upgrader: gorillaws.Upgrader{
			ReadBufferSize:    4096,
			WriteBufferSize:   4096,
			CheckOrigin:       originChecker(allowedOrigins),
			EnableCompression: true,
		},
	}
}

func originChecker(allowedOrigins []string) func(r *http.Request) bool {
	return func(r *http.Request) bool {
		origin := r.Header.Get("Origin")

		// Пустой Origin - не браузерный клиент (табло, curl и т.д.)
		if origin == "" {
			return true
		}
		// Пустой список означает то же, что и для CORS: разрешены все
		if len(allowedOrigins) == 0 {
			return true
		}

		for _, allowed := range allowedOrigins {
			if allowed == "*" || strings.EqualFold(origin, allowed) {
				return true
			}
		}

		log.WithField("origin", origin).Warn("[WSHandler] Отклонен неразрешенный origin")
		return false
	}
}

// HandleConnection подключает клиента к комнате сессии
// GET /ws?session=name
func (h *WSHandler) HandleConnection(c *gin.Context) {
	sessionName := strings.TrimSpace(c.Query("session"))
	if sessionName == "" {
		sessionName = h.defaultSession
	}

	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		// Upgrade уже записал ответ с ошибкой
		log.WithError(err).Warn("[WSHandler] Ошибка апгрейда соединения")
		return
	}

	client := websocket.NewClient(h.wsHub, conn, sessionName, h.clientConfig)
	log.WithFields(log.Fields{
		"session":       sessionName,
		"connection_id": client.ConnectionID,
		"request_id":    c.GetString(middleware.RequestIDKey),
	}).Info("[WSHandler] WebSocket подключен")

	client.StartPumps(h.wsManager.HandleMessage)
}
