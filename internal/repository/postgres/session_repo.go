package postgres

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/yourusername/livequiz-api/internal/domain/entity"
	apperrors "github.com/yourusername/livequiz-api/internal/pkg/errors"
)

// SessionRepo реализует repository.SessionRepository
type SessionRepo struct {
	db *gorm.DB
}

// NewSessionRepo создает новый репозиторий сессий
func NewSessionRepo(db *gorm.DB) *SessionRepo {
	return &SessionRepo{db: db}
}

// Create создает сессию со счетчиком 0
func (r *SessionRepo) Create(ctx context.Context, name string) (*entity.Session, error) {
	session := &entity.Session{
		ID:              uuid.NewString(),
		Name:            name,
		CurrentQuestion: 0,
	}
	if err := r.db.WithContext(ctx).Create(session).Error; err != nil {
		return nil, err
	}
	return session, nil
}

// GetByName возвращает самую раннюю сессию с заданным именем
func (r *SessionRepo) GetByName(ctx context.Context, name string) (*entity.Session, error) {
	var session entity.Session
	err := r.db.WithContext(ctx).Where("name = ?", name).Order("created_at ASC").First(&session).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrNotFound
		}
		return nil, err
	}
	return &session, nil
}

// IncrementCurrentQuestion атомарно увеличивает счетчик одним UPDATE ... RETURNING
func (r *SessionRepo) IncrementCurrentQuestion(ctx context.Context, name string) (*entity.Session, error) {
	session, err := r.GetByName(ctx, name)
	if err != nil {
		return nil, err
	}

	var updated entity.Session
	result := r.db.WithContext(ctx).Model(&updated).
		Clauses(clause.Returning{}).
		Where("id = ?", session.ID).
		UpdateColumn("current_question", gorm.Expr("current_question + 1"))
	if result.Error != nil {
		return nil, result.Error
	}
	if result.RowsAffected == 0 {
		return nil, apperrors.ErrNotFound
	}
	return &updated, nil
}
