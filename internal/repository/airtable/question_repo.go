package airtable

import (
	"context"
	"fmt"

	"github.com/yourusername/livequiz-api/internal/domain/entity"
	apperrors "github.com/yourusername/livequiz-api/internal/pkg/errors"
	"github.com/yourusername/livequiz-api/pkg/airtable"
)

// QuestionRepo реализует repository.QuestionRepository поверх таблицы "Quiz"
type QuestionRepo struct {
	client *airtable.Client
	table  string
}

// NewQuestionRepo создает новый репозиторий вопросов
func NewQuestionRepo(client *airtable.Client, table string) *QuestionRepo {
	return &QuestionRepo{client: client, table: table}
}

// List возвращает все вопросы, отсортированные по номеру
func (r *QuestionRepo) List(ctx context.Context) ([]entity.Question, error) {
	records, err := r.client.List(ctx, r.table, airtable.ListParams{
		Sort: []airtable.Sort{{Field: FieldQuestionNumber, Direction: "asc"}},
	})
	if err != nil {
		return nil, err
	}
	questions := make([]entity.Question, 0, len(records))
	for i := range records {
		q, err := questionFromRecord(&records[i])
		if err != nil {
			return nil, err
		}
		questions = append(questions, *q)
	}
	return questions, nil
}

// GetByNumber возвращает вопрос по номеру
func (r *QuestionRepo) GetByNumber(ctx context.Context, number int) (*entity.Question, error) {
	return r.first(ctx, airtable.FieldEqualsNumber(FieldQuestionNumber, number))
}

// GetActive возвращает первый вопрос с отмеченным флажком "Active Question"
func (r *QuestionRepo) GetActive(ctx context.Context) (*entity.Question, error) {
	return r.first(ctx, airtable.FieldIsTrue(FieldActiveQuestion))
}

// SetActive отмечает или снимает флажок "Active Question"
func (r *QuestionRepo) SetActive(ctx context.Context, id string, active bool) error {
	_, err := r.client.Update(ctx, r.table, id, map[string]interface{}{FieldActiveQuestion: active})
	return err
}

// Create добавляет вопрос в таблицу
func (r *QuestionRepo) Create(ctx context.Context, question *entity.Question) error {
	rec, err := r.client.Create(ctx, r.table, questionFields{
		Number:        question.Number,
		Text:          question.Text,
		Answer1:       question.Answer1,
		Answer2:       question.Answer2,
		Answer3:       question.Answer3,
		Answer4:       question.Answer4,
		CorrectAnswer: airtable.FlexString(question.CorrectAnswer),
		Active:        question.Active,
	})
	if err != nil {
		return fmt.Errorf("failed to create question #%d: %w", question.Number, err)
	}
	question.ID = rec.ID
	return nil
}

func (r *QuestionRepo) first(ctx context.Context, formula string) (*entity.Question, error) {
	records, err := r.client.List(ctx, r.table, airtable.ListParams{
		FilterByFormula: formula,
		MaxRecords:      1,
	})
	if err != nil {
		return nil, err
	}
	if len(records) == 0 {
		return nil, apperrors.ErrNotFound
	}
	return questionFromRecord(&records[0])
}
