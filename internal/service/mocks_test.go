package service

import (
	"context"
	"time"

	"github.com/stretchr/testify/mock"

	"github.com/yourusername/livequiz-api/internal/domain/entity"
)

// ============================================================================
// Моки репозиториев и уведомлений, общие для тестов сервисов
// ============================================================================

// MockQuestionRepo реализует repository.QuestionRepository
type MockQuestionRepo struct {
	mock.Mock
}

func (m *MockQuestionRepo) List(ctx context.Context) ([]entity.Question, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]entity.Question), args.Error(1)
}

func (m *MockQuestionRepo) GetByNumber(ctx context.Context, number int) (*entity.Question, error) {
	args := m.Called(ctx, number)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entity.Question), args.Error(1)
}

func (m *MockQuestionRepo) GetActive(ctx context.Context) (*entity.Question, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entity.Question), args.Error(1)
}

func (m *MockQuestionRepo) SetActive(ctx context.Context, id string, active bool) error {
	args := m.Called(ctx, id, active)
	return args.Error(0)
}

func (m *MockQuestionRepo) Create(ctx context.Context, question *entity.Question) error {
	args := m.Called(ctx, question)
	return args.Error(0)
}

// MockSessionRepo реализует repository.SessionRepository
type MockSessionRepo struct {
	mock.Mock
}

func (m *MockSessionRepo) Create(ctx context.Context, name string) (*entity.Session, error) {
	args := m.Called(ctx, name)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entity.Session), args.Error(1)
}

func (m *MockSessionRepo) GetByName(ctx context.Context, name string) (*entity.Session, error) {
	args := m.Called(ctx, name)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entity.Session), args.Error(1)
}

func (m *MockSessionRepo) IncrementCurrentQuestion(ctx context.Context, name string) (*entity.Session, error) {
	args := m.Called(ctx, name)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entity.Session), args.Error(1)
}

// MockVoteRepo реализует repository.VoteRepository
type MockVoteRepo struct {
	mock.Mock
}

func (m *MockVoteRepo) Create(ctx context.Context, vote *entity.Vote) error {
	args := m.Called(ctx, vote)
	return args.Error(0)
}

func (m *MockVoteRepo) ListByQuestion(ctx context.Context, questionID string) ([]entity.Vote, error) {
	args := m.Called(ctx, questionID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]entity.Vote), args.Error(1)
}

// MockCacheRepo реализует repository.CacheRepository
type MockCacheRepo struct {
	mock.Mock
}

func (m *MockCacheRepo) SetJSON(key string, value interface{}, expiration time.Duration) error {
	args := m.Called(key, value, expiration)
	return args.Error(0)
}

func (m *MockCacheRepo) GetJSON(key string, dest interface{}) error {
	args := m.Called(key, dest)
	return args.Error(0)
}

func (m *MockCacheRepo) Delete(key string) error {
	args := m.Called(key)
	return args.Error(0)
}

func (m *MockCacheRepo) SetNX(key string, value interface{}, expiration time.Duration) (bool, error) {
	args := m.Called(key, value, expiration)
	return args.Bool(0), args.Error(1)
}

func (m *MockCacheRepo) DeleteIfEquals(key string, value string) (bool, error) {
	args := m.Called(key, value)
	return args.Bool(0), args.Error(1)
}

func (m *MockCacheRepo) ExpireIfEquals(key string, value string, expiration time.Duration) (bool, error) {
	args := m.Called(key, value, expiration)
	return args.Bool(0), args.Error(1)
}

// MockNotifier реализует SessionEventNotifier
type MockNotifier struct {
	mock.Mock
}

func (m *MockNotifier) BroadcastEventToSession(sessionName string, eventType string, data interface{}) error {
	args := m.Called(sessionName, eventType, data)
	return args.Error(0)
}

func testQuestion(number int, id string) *entity.Question {
	return &entity.Question{
		ID:            id,
		Number:        number,
		Text:          "Question text",
		Answer1:       "A",
		Answer2:       "B",
		Answer3:       "C",
		Answer4:       "D",
		CorrectAnswer: "2",
	}
}
