package airtable

import (
	"context"
	"fmt"

	"github.com/yourusername/livequiz-api/internal/domain/entity"
	apperrors "github.com/yourusername/livequiz-api/internal/pkg/errors"
	"github.com/yourusername/livequiz-api/pkg/airtable"
)

// SessionRepo реализует repository.SessionRepository поверх таблицы "Session"
type SessionRepo struct {
	client *airtable.Client
	table  string
}

// NewSessionRepo создает новый репозиторий сессий
func NewSessionRepo(client *airtable.Client, table string) *SessionRepo {
	return &SessionRepo{client: client, table: table}
}

// Create создает запись сессии со счетчиком 0
func (r *SessionRepo) Create(ctx context.Context, name string) (*entity.Session, error) {
	rec, err := r.client.Create(ctx, r.table, sessionFields{Name: name, CurrentQuestion: 0})
	if err != nil {
		return nil, err
	}
	return sessionFromRecord(rec)
}

// GetByName возвращает самую старую сессию с заданным именем.
// API не сортирует по createdTime, поэтому выбор делается на стороне клиента.
func (r *SessionRepo) GetByName(ctx context.Context, name string) (*entity.Session, error) {
	records, err := r.client.List(ctx, r.table, airtable.ListParams{
		FilterByFormula: airtable.FieldEquals(FieldSessionName, name),
	})
	if err != nil {
		return nil, err
	}

	var oldest *entity.Session
	for i := range records {
		session, err := sessionFromRecord(&records[i])
		if err != nil {
			return nil, err
		}
		if oldest == nil || session.CreatedAt.Before(oldest.CreatedAt) {
			oldest = session
		}
	}
	if oldest == nil {
		return nil, apperrors.ErrNotFound
	}
	return oldest, nil
}

// IncrementCurrentQuestion читает счетчик и записывает значение +1.
// Это два отдельных запроса: хранилище не поддерживает атомарный инкремент,
// поэтому вызовы для одной сессии сериализуются на уровне сервиса.
func (r *SessionRepo) IncrementCurrentQuestion(ctx context.Context, name string) (*entity.Session, error) {
	session, err := r.GetByName(ctx, name)
	if err != nil {
		return nil, err
	}
	rec, err := r.client.Update(ctx, r.table, session.ID, map[string]int{
		FieldCurrentQuestion: session.CurrentQuestion + 1,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to advance session %q: %w", name, err)
	}
	return sessionFromRecord(rec)
}
