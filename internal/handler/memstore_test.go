package handler

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/yourusername/livequiz-api/internal/domain/entity"
	apperrors "github.com/yourusername/livequiz-api/internal/pkg/errors"
)

// memStore — хранилище записей в памяти для тестов обработчиков
type memStore struct {
	mu        sync.Mutex
	questions []entity.Question
	sessions  []entity.Session
	votes     []entity.Vote
	seq       int
	failWith  error
}

func newMemStore(questions ...entity.Question) *memStore {
	return &memStore{questions: questions}
}

func (s *memStore) nextID(prefix string) string {
	s.seq++
	return fmt.Sprintf("%s%d", prefix, s.seq)
}

type memQuestionRepo struct{ s *memStore }

func (r memQuestionRepo) List(ctx context.Context) ([]entity.Question, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if r.s.failWith != nil {
		return nil, r.s.failWith
	}
	out := append([]entity.Question(nil), r.s.questions...)
	sort.Slice(out, func(i, j int) bool { return out[i].Number < out[j].Number })
	return out, nil
}

func (r memQuestionRepo) GetByNumber(ctx context.Context, number int) (*entity.Question, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if r.s.failWith != nil {
		return nil, r.s.failWith
	}
	for _, q := range r.s.questions {
		if q.Number == number {
			q := q
			return &q, nil
		}
	}
	return nil, apperrors.ErrNotFound
}

func (r memQuestionRepo) GetActive(ctx context.Context) (*entity.Question, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, q := range r.s.questions {
		if q.Active {
			q := q
			return &q, nil
		}
	}
	return nil, apperrors.ErrNotFound
}

func (r memQuestionRepo) SetActive(ctx context.Context, id string, active bool) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for i := range r.s.questions {
		if r.s.questions[i].ID == id {
			r.s.questions[i].Active = active
			return nil
		}
	}
	return apperrors.ErrNotFound
}

func (r memQuestionRepo) Create(ctx context.Context, question *entity.Question) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	question.ID = r.s.nextID("recQ")
	r.s.questions = append(r.s.questions, *question)
	return nil
}

type memSessionRepo struct{ s *memStore }

func (r memSessionRepo) Create(ctx context.Context, name string) (*entity.Session, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	session := entity.Session{ID: r.s.nextID("recS"), Name: name, CreatedAt: time.Now()}
	r.s.sessions = append(r.s.sessions, session)
	return &session, nil
}

func (r memSessionRepo) GetByName(ctx context.Context, name string) (*entity.Session, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, session := range r.s.sessions {
		if session.Name == name {
			session := session
			return &session, nil
		}
	}
	return nil, apperrors.ErrNotFound
}

func (r memSessionRepo) IncrementCurrentQuestion(ctx context.Context, name string) (*entity.Session, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for i := range r.s.sessions {
		if r.s.sessions[i].Name == name {
			r.s.sessions[i].CurrentQuestion++
			session := r.s.sessions[i]
			return &session, nil
		}
	}
	return nil, apperrors.ErrNotFound
}

type memVoteRepo struct{ s *memStore }

func (r memVoteRepo) Create(ctx context.Context, vote *entity.Vote) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	vote.ID = r.s.nextID("recV")
	vote.CreatedAt = time.Now()
	r.s.votes = append(r.s.votes, *vote)
	return nil
}

func (r memVoteRepo) ListByQuestion(ctx context.Context, questionID string) ([]entity.Vote, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var out []entity.Vote
	for _, v := range r.s.votes {
		if v.QuestionID == questionID {
			out = append(out, v)
		}
	}
	return out, nil
}

func storeQuestion(number int, id string) entity.Question {
	return entity.Question{
		ID:            id,
		Number:        number,
		Text:          fmt.Sprintf("Вопрос %d", number),
		Answer1:       "A",
		Answer2:       "B",
		Answer3:       "C",
		Answer4:       "=D",
		CorrectAnswer: "2",
	}
}
