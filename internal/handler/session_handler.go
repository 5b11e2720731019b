package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/yourusername/livequiz-api/internal/handler/dto"
	"github.com/yourusername/livequiz-api/internal/service"
)

// SessionHandler обрабатывает запросы к сессиям викторины
type SessionHandler struct {
	sessions *service.SessionService
}

// NewSessionHandler создает новый обработчик сессий
func NewSessionHandler(sessions *service.SessionService) *SessionHandler {
	return &SessionHandler{sessions: sessions}
}

// CreateSession создает сессию
// POST /session
func (h *SessionHandler) CreateSession(c *gin.Context) {
	var req dto.CreateSessionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
		return
	}

	session, err := h.sessions.CreateSession(c.Request.Context(), req.SessionName)
	if err != nil {
		handleServiceError(c, "SessionHandler", err)
		return
	}
	c.JSON(http.StatusCreated, dto.NewSessionRecord(session))
}

// GetSession возвращает сессию по имени
// GET /session/:sessionName
func (h *SessionHandler) GetSession(c *gin.Context) {
	session, err := h.sessions.GetSession(c.Request.Context(), c.Param("sessionName"))
	if err != nil {
		handleServiceError(c, "SessionHandler", err)
		return
	}
	c.JSON(http.StatusOK, dto.NewSessionRecord(session))
}

// NextQuestion переводит сессию на следующий вопрос
// POST /session/:sessionName/next
func (h *SessionHandler) NextQuestion(c *gin.Context) {
	active, err := h.sessions.Advance(c.Request.Context(), c.Param("sessionName"))
	if err != nil {
		handleServiceError(c, "SessionHandler", err)
		return
	}
	c.JSON(http.StatusOK, dto.AdvanceSessionResponse{
		Success:            true,
		NewCurrentQuestion: active.Session.CurrentQuestion,
		UpdatedRecord:      *dto.NewSessionRecord(active.Session),
	})
}
