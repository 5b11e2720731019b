package service

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	log "github.com/sirupsen/logrus"

	"github.com/yourusername/livequiz-api/internal/domain/entity"
	"github.com/yourusername/livequiz-api/internal/domain/repository"
	"github.com/yourusername/livequiz-api/internal/handler/dto"
	apperrors "github.com/yourusername/livequiz-api/internal/pkg/errors"
	"github.com/yourusername/livequiz-api/internal/websocket"
)

// VoteInput — входные данные голоса.
// Вопрос задается либо QuestionID, либо QuestionNumber (режим сессий).
type VoteInput struct {
	VoterName      string
	QuestionID     string
	QuestionNumber int
	SessionName    string
	Answer         string
}

// VoteService записывает голоса игроков
type VoteService struct {
	voteRepo repository.VoteRepository
	catalog  *CatalogService
	notifier SessionEventNotifier
}

// NewVoteService создает новый сервис голосования
func NewVoteService(voteRepo repository.VoteRepository, catalog *CatalogService, notifier SessionEventNotifier) *VoteService {
	return &VoteService{
		voteRepo: voteRepo,
		catalog:  catalog,
		notifier: notifier,
	}
}

// RecordVote проверяет голос и сохраняет его. Повторные голоса одного игрока не отсекаются.
func (s *VoteService) RecordVote(ctx context.Context, input VoteInput) (*entity.Vote, error) {
	voterName := strings.TrimSpace(input.VoterName)
	answer := strings.TrimSpace(input.Answer)
	questionID := strings.TrimSpace(input.QuestionID)

	if voterName == "" || answer == "" || (questionID == "" && input.QuestionNumber <= 0) {
		return nil, fmt.Errorf("missing fields: %w", apperrors.ErrValidation)
	}
	choice, ok := entity.ParseAnswerChoice(answer)
	if !ok {
		return nil, fmt.Errorf("answerNumber must be between 1 and %d: %w", entity.AnswerCount, apperrors.ErrValidation)
	}
	// "02" и "+2" сохраняются как "2", иначе хранилище заведет лишние варианты
	answer = strconv.Itoa(choice)

	// В режиме сессий вопрос передается номером и разрешается через каталог
	questionNumber := input.QuestionNumber
	if questionID == "" {
		question, err := s.catalog.GetQuestionByNumber(ctx, questionNumber)
		if err != nil {
			if errors.Is(err, apperrors.ErrNotFound) {
				return nil, fmt.Errorf("question %d: %w", questionNumber, err)
			}
			return nil, err
		}
		questionID = question.ID
	}

	vote := &entity.Vote{
		VoterName:  voterName,
		QuestionID: questionID,
		Answer:     answer,
	}
	if err := s.voteRepo.Create(ctx, vote); err != nil {
		return nil, fmt.Errorf("failed to record vote: %w", err)
	}

	log.WithFields(log.Fields{
		"question_id": questionID,
		"answer":      answer,
	}).Debug("[VoteService] Голос записан")

	if s.notifier != nil && input.SessionName != "" {
		event := dto.VoteRecordedEvent{
			SessionName:    input.SessionName,
			QuestionID:     questionID,
			QuestionNumber: questionNumber,
			Answer:         answer,
		}
		if err := s.notifier.BroadcastEventToSession(input.SessionName, websocket.VOTE_RECORDED, event); err != nil {
			log.WithError(err).WithField("session", input.SessionName).
				Warn("[VoteService] Не удалось разослать событие о голосе")
		}
	}

	return vote, nil
}
