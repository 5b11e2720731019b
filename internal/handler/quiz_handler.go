package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/yourusername/livequiz-api/internal/handler/dto"
	apperrors "github.com/yourusername/livequiz-api/internal/pkg/errors"
	"github.com/yourusername/livequiz-api/internal/service"
)

// noNextQuestionMessage возвращается POST /next, когда вопросы закончились
const noNextQuestionMessage = "No next question found"

// QuizHandler обрабатывает запросы к каталогу вопросов и активному вопросу
type QuizHandler struct {
	catalog          *service.CatalogService
	sessions         *service.SessionService
	defaultSession   string
	legacyActiveFlag bool
}

// NewQuizHandler создает новый обработчик викторины.
// В режиме legacyActiveFlag /active и /next работают с флагом "Active Question" каталога,
// иначе со счетчиком сессии defaultSession.
func NewQuizHandler(
	catalog *service.CatalogService,
	sessions *service.SessionService,
	defaultSession string,
	legacyActiveFlag bool,
) *QuizHandler {
	return &QuizHandler{
		catalog:          catalog,
		sessions:         sessions,
		defaultSession:   defaultSession,
		legacyActiveFlag: legacyActiveFlag,
	}
}

// GetQuestions возвращает все вопросы по возрастанию номера
// GET /questions
func (h *QuizHandler) GetQuestions(c *gin.Context) {
	questions, err := h.catalog.ListQuestions(c.Request.Context())
	if err != nil {
		handleServiceError(c, "QuizHandler", err)
		return
	}
	c.JSON(http.StatusOK, dto.NewListQuestionRecords(questions))
}

// GetQuestion возвращает вопрос по номеру
// GET /question/:num
func (h *QuizHandler) GetQuestion(c *gin.Context) {
	number := c.MustGet("questionNumber").(int)

	question, err := h.catalog.GetQuestionByNumber(c.Request.Context(), number)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Question not found"})
			return
		}
		handleServiceError(c, "QuizHandler", err)
		return
	}
	c.JSON(http.StatusOK, dto.NewQuestionRecord(question))
}

// GetActive возвращает текущий вопрос
// GET /active[?session=name]
func (h *QuizHandler) GetActive(c *gin.Context) {
	ctx := c.Request.Context()

	if sessionName := c.Query("session"); sessionName != "" {
		active, err := h.sessions.GetActiveForSession(ctx, sessionName)
		if err != nil {
			handleServiceError(c, "QuizHandler", err)
			return
		}
		c.JSON(http.StatusOK, dto.NewActiveResponse(active))
		return
	}

	if h.legacyActiveFlag {
		question, err := h.catalog.GetActiveQuestion(ctx)
		if err != nil && !errors.Is(err, apperrors.ErrNotFound) {
			handleServiceError(c, "QuizHandler", err)
			return
		}
		c.JSON(http.StatusOK, dto.NewActiveFromQuestion(question))
		return
	}

	// Сессия по умолчанию ещё не создана: викторина не началась
	active, err := h.sessions.GetActiveForSession(ctx, h.defaultSession)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			c.JSON(http.StatusOK, dto.NewActiveResponse(nil))
			return
		}
		handleServiceError(c, "QuizHandler", err)
		return
	}
	c.JSON(http.StatusOK, dto.NewActiveResponse(active))
}

// Next переводит викторину на следующий вопрос
// POST /next
func (h *QuizHandler) Next(c *gin.Context) {
	ctx := c.Request.Context()

	if h.legacyActiveFlag {
		question, err := h.catalog.RotateActiveFlag(ctx)
		if err != nil {
			if errors.Is(err, apperrors.ErrNotFound) {
				c.JSON(http.StatusOK, dto.NextResponse{Message: noNextQuestionMessage})
				return
			}
			handleServiceError(c, "QuizHandler", err)
			return
		}
		c.JSON(http.StatusOK, dto.NextResponse{NewActive: dto.NewQuestionRecord(question)})
		return
	}

	active, err := h.sessions.AdvanceOrCreate(ctx, h.defaultSession)
	if err != nil {
		handleServiceError(c, "QuizHandler", err)
		return
	}
	if !active.IsLive() {
		c.JSON(http.StatusOK, dto.NextResponse{Message: noNextQuestionMessage})
		return
	}
	c.JSON(http.StatusOK, dto.NextResponse{NewActive: dto.NewQuestionRecord(active.Question)})
}
