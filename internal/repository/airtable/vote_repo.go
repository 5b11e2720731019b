package airtable

import (
	"context"
	"fmt"

	"github.com/yourusername/livequiz-api/internal/domain/entity"
	"github.com/yourusername/livequiz-api/pkg/airtable"
)

// VoteRepo реализует repository.VoteRepository поверх таблицы "Votes"
type VoteRepo struct {
	client *airtable.Client
	table  string
}

// NewVoteRepo создает новый репозиторий голосов
func NewVoteRepo(client *airtable.Client, table string) *VoteRepo {
	return &VoteRepo{client: client, table: table}
}

// Create сохраняет голос. Поле "Question" — ссылка на запись таблицы "Quiz".
func (r *VoteRepo) Create(ctx context.Context, vote *entity.Vote) error {
	rec, err := r.client.Create(ctx, r.table, voteFields{
		VoterName: vote.VoterName,
		Question:  []string{vote.QuestionID},
		Vote:      airtable.FlexString(vote.Answer),
	})
	if err != nil {
		return fmt.Errorf("failed to create vote: %w", err)
	}
	vote.ID = rec.ID
	vote.CreatedAt = parseCreatedTime(rec)
	return nil
}

// ListByQuestion возвращает голоса за вопрос.
// Формула не умеет фильтровать связанные поля по ID записи,
// поэтому выбираются только нужные поля всех голосов, а отбор делается здесь.
func (r *VoteRepo) ListByQuestion(ctx context.Context, questionID string) ([]entity.Vote, error) {
	records, err := r.client.List(ctx, r.table, airtable.ListParams{
		Fields: []string{FieldVoterName, FieldVoteQuestion, FieldVote},
	})
	if err != nil {
		return nil, err
	}

	votes := make([]entity.Vote, 0)
	for i := range records {
		var f voteFields
		if err := records[i].DecodeFields(&f); err != nil {
			return nil, err
		}
		if !containsString(f.Question, questionID) {
			continue
		}
		vote, err := voteFromRecord(&records[i])
		if err != nil {
			return nil, err
		}
		vote.QuestionID = questionID
		votes = append(votes, *vote)
	}
	return votes, nil
}
