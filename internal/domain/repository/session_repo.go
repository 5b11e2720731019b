package repository

import (
	"context"

	"github.com/yourusername/livequiz-api/internal/domain/entity"
)

// SessionRepository определяет методы для работы с сессиями викторины (таблица "Session")
type SessionRepository interface {
	// Create создает сессию со счетчиком 0. Уникальность имени не проверяется.
	Create(ctx context.Context, name string) (*entity.Session, error)
	// GetByName возвращает сессию по имени или apperrors.ErrNotFound
	GetByName(ctx context.Context, name string) (*entity.Session, error)
	// IncrementCurrentQuestion увеличивает счетчик сессии на 1 и возвращает обновленную запись.
	// Атомарность зависит от хранилища, вызывающий код сериализует вызовы по имени сессии.
	IncrementCurrentQuestion(ctx context.Context, name string) (*entity.Session, error)
}
