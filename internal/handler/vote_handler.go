package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/yourusername/livequiz-api/internal/handler/dto"
	"github.com/yourusername/livequiz-api/internal/service"
)

// VoteHandler обрабатывает голоса игроков
type VoteHandler struct {
	votes *service.VoteService
}

// NewVoteHandler создает новый обработчик голосов
func NewVoteHandler(votes *service.VoteService) *VoteHandler {
	return &VoteHandler{votes: votes}
}

// SubmitVote записывает голос
// POST /vote
func (h *VoteHandler) SubmitVote(c *gin.Context) {
	var req dto.VoteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Missing fields"})
		return
	}

	questionNumber, err := req.QuestionNumber.Int()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid questionNumber"})
		return
	}

	vote, err := h.votes.RecordVote(c.Request.Context(), service.VoteInput{
		VoterName:      req.VoterName,
		QuestionID:     req.QuestionID,
		QuestionNumber: questionNumber,
		SessionName:    req.SessionName,
		Answer:         req.AnswerNumber.String(),
	})
	if err != nil {
		handleServiceError(c, "VoteHandler", err)
		return
	}

	c.JSON(http.StatusOK, dto.VoteResponse{Success: true, VoteRecord: *dto.NewVoteRecord(vote)})
}
