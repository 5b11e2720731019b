package postgres

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/yourusername/livequiz-api/internal/domain/entity"
)

// VoteRepo реализует repository.VoteRepository
type VoteRepo struct {
	db *gorm.DB
}

// NewVoteRepo создает новый репозиторий голосов
func NewVoteRepo(db *gorm.DB) *VoteRepo {
	return &VoteRepo{db: db}
}

// Create сохраняет голос
func (r *VoteRepo) Create(ctx context.Context, vote *entity.Vote) error {
	if vote.ID == "" {
		vote.ID = uuid.NewString()
	}
	return r.db.WithContext(ctx).Create(vote).Error
}

// ListByQuestion возвращает голоса за вопрос в порядке поступления
func (r *VoteRepo) ListByQuestion(ctx context.Context, questionID string) ([]entity.Vote, error) {
	var votes []entity.Vote
	err := r.db.WithContext(ctx).Where("question_id = ?", questionID).Order("created_at ASC").Find(&votes).Error
	if err != nil {
		return nil, err
	}
	return votes, nil
}
