package postgres

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/yourusername/livequiz-api/internal/domain/entity"
	apperrors "github.com/yourusername/livequiz-api/internal/pkg/errors"
)

// QuestionRepo реализует repository.QuestionRepository
type QuestionRepo struct {
	db *gorm.DB
}

// NewQuestionRepo создает новый репозиторий вопросов
func NewQuestionRepo(db *gorm.DB) *QuestionRepo {
	return &QuestionRepo{db: db}
}

// List возвращает все вопросы по возрастанию номера
func (r *QuestionRepo) List(ctx context.Context) ([]entity.Question, error) {
	var questions []entity.Question
	if err := r.db.WithContext(ctx).Order("number ASC").Find(&questions).Error; err != nil {
		return nil, err
	}
	return questions, nil
}

// GetByNumber возвращает вопрос по номеру
func (r *QuestionRepo) GetByNumber(ctx context.Context, number int) (*entity.Question, error) {
	var question entity.Question
	err := r.db.WithContext(ctx).Where("number = ?", number).First(&question).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrNotFound
		}
		return nil, err
	}
	return &question, nil
}

// GetActive возвращает активный вопрос с наименьшим номером
func (r *QuestionRepo) GetActive(ctx context.Context) (*entity.Question, error) {
	var question entity.Question
	err := r.db.WithContext(ctx).Where("active = ?", true).Order("number ASC").First(&question).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrNotFound
		}
		return nil, err
	}
	return &question, nil
}

// SetActive точечно обновляет флаг активности
func (r *QuestionRepo) SetActive(ctx context.Context, id string, active bool) error {
	result := r.db.WithContext(ctx).Model(&entity.Question{}).Where("id = ?", id).Update("active", active)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return apperrors.ErrNotFound
	}
	return nil
}

// Create создает новый вопрос
func (r *QuestionRepo) Create(ctx context.Context, question *entity.Question) error {
	if question.ID == "" {
		question.ID = uuid.NewString()
	}
	return r.db.WithContext(ctx).Create(question).Error
}
