package repository

import (
	"context"

	"github.com/yourusername/livequiz-api/internal/domain/entity"
)

// QuestionRepository определяет методы для работы с каталогом вопросов (таблица "Quiz")
type QuestionRepository interface {
	// List возвращает все вопросы по возрастанию номера
	List(ctx context.Context) ([]entity.Question, error)
	// GetByNumber возвращает вопрос с заданным номером или apperrors.ErrNotFound
	GetByNumber(ctx context.Context, number int) (*entity.Question, error)
	// GetActive возвращает первый вопрос с установленным флагом активности или apperrors.ErrNotFound
	GetActive(ctx context.Context) (*entity.Question, error)
	// SetActive устанавливает или снимает флаг активности вопроса
	SetActive(ctx context.Context, id string, active bool) error
	// Create добавляет вопрос (используется только при импорте)
	Create(ctx context.Context, question *entity.Question) error
}
