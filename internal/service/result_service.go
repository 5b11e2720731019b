package service

import (
	"context"
	"errors"
	"fmt"

	log "github.com/sirupsen/logrus"

	"github.com/yourusername/livequiz-api/internal/domain/entity"
	"github.com/yourusername/livequiz-api/internal/domain/repository"
	apperrors "github.com/yourusername/livequiz-api/internal/pkg/errors"
)

// ResultService подсчитывает итоги голосования
type ResultService struct {
	voteRepo repository.VoteRepository
	catalog  *CatalogService
}

// NewResultService создает новый сервис результатов
func NewResultService(voteRepo repository.VoteRepository, catalog *CatalogService) *ResultService {
	return &ResultService{
		voteRepo: voteRepo,
		catalog:  catalog,
	}
}

// GetResults возвращает вопрос с указанным номером и распределение голосов по вариантам 1..4.
// Подсчет ведется по исходным записям голосов, нераспознанные ответы пропускаются.
func (s *ResultService) GetResults(ctx context.Context, number int) (*entity.QuestionResults, error) {
	question, err := s.catalog.GetQuestionByNumber(ctx, number)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			return nil, fmt.Errorf("question %d: %w", number, err)
		}
		return nil, err
	}

	votes, err := s.voteRepo.ListByQuestion(ctx, question.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to list votes for question %d: %w", number, err)
	}

	results := &entity.QuestionResults{Question: question}
	skipped := 0
	for _, vote := range votes {
		if !results.Votes.Add(vote.Answer) {
			skipped++
		}
	}
	if skipped > 0 {
		log.WithFields(log.Fields{
			"question_number": number,
			"skipped":         skipped,
		}).Warn("[ResultService] Пропущены голоса с нераспознанным ответом")
	}

	return results, nil
}
