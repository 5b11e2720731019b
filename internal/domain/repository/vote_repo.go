package repository

import (
	"context"

	"github.com/yourusername/livequiz-api/internal/domain/entity"
)

// VoteRepository определяет методы для работы с голосами (таблица "Votes")
type VoteRepository interface {
	// Create сохраняет голос и заполняет его ID
	Create(ctx context.Context, vote *entity.Vote) error
	// ListByQuestion возвращает все голоса, ссылающиеся на вопрос
	ListByQuestion(ctx context.Context, questionID string) ([]entity.Vote, error)
}
