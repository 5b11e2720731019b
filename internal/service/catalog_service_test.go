package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/yourusername/livequiz-api/internal/domain/entity"
	apperrors "github.com/yourusername/livequiz-api/internal/pkg/errors"
)

func TestCatalogService_ListQuestions_CacheHit(t *testing.T) {
	// Arrange
	questionRepo := new(MockQuestionRepo)
	cacheRepo := new(MockCacheRepo)
	cacheRepo.On("GetJSON", catalogCacheKey, mock.Anything).Run(func(args mock.Arguments) {
		dest := args.Get(1).(*[]entity.Question)
		*dest = []entity.Question{*testQuestion(1, "rec1")}
	}).Return(nil)
	svc := NewCatalogService(questionRepo, cacheRepo, time.Minute)

	// Act
	questions, err := svc.ListQuestions(context.Background())

	// Assert
	require.NoError(t, err)
	require.Len(t, questions, 1)
	assert.Equal(t, "rec1", questions[0].ID)
	questionRepo.AssertNotCalled(t, "List", mock.Anything)
}

func TestCatalogService_ListQuestions_CacheMissFillsCache(t *testing.T) {
	// Arrange
	stored := []entity.Question{*testQuestion(1, "rec1"), *testQuestion(2, "rec2")}
	questionRepo := new(MockQuestionRepo)
	questionRepo.On("List", mock.Anything).Return(stored, nil).Once()
	cacheRepo := new(MockCacheRepo)
	cacheRepo.On("GetJSON", catalogCacheKey, mock.Anything).Return(apperrors.ErrNotFound)
	cacheRepo.On("SetJSON", catalogCacheKey, stored, time.Minute).Return(nil)
	svc := NewCatalogService(questionRepo, cacheRepo, time.Minute)

	// Act
	questions, err := svc.ListQuestions(context.Background())

	// Assert
	require.NoError(t, err)
	assert.Equal(t, stored, questions)
	cacheRepo.AssertExpectations(t)
	questionRepo.AssertExpectations(t)
}

func TestCatalogService_ListQuestions_CancelledCallerDoesNotFailWaiters(t *testing.T) {
	// Arrange
	started := make(chan struct{}, 2)
	release := make(chan struct{})
	var fillErr error
	questionRepo := new(MockQuestionRepo)
	questionRepo.On("List", mock.Anything).Run(func(args mock.Arguments) {
		started <- struct{}{}
		<-release
		fillErr = args.Get(0).(context.Context).Err()
	}).Return([]entity.Question{*testQuestion(1, "rec1")}, nil)
	svc := NewCatalogService(questionRepo, nil, 0)

	firstCtx, cancelFirst := context.WithCancel(context.Background())
	firstErr := make(chan error, 1)
	go func() {
		_, err := svc.ListQuestions(firstCtx)
		firstErr <- err
	}()
	<-started

	type result struct {
		questions []entity.Question
		err       error
	}
	second := make(chan result, 1)
	go func() {
		questions, err := svc.ListQuestions(context.Background())
		second <- result{questions, err}
	}()
	time.Sleep(20 * time.Millisecond)

	// Act: первый клиент отключается, пока каталог загружается
	cancelFirst()
	assert.ErrorIs(t, <-firstErr, context.Canceled)
	close(release)

	// Assert
	res := <-second
	require.NoError(t, res.err)
	require.Len(t, res.questions, 1)
	assert.NoError(t, fillErr)
}

func TestCatalogService_ListQuestions_WithoutCache(t *testing.T) {
	questionRepo := new(MockQuestionRepo)
	questionRepo.On("List", mock.Anything).Return([]entity.Question{}, nil)
	svc := NewCatalogService(questionRepo, nil, time.Minute)

	questions, err := svc.ListQuestions(context.Background())

	require.NoError(t, err)
	assert.Empty(t, questions)
}

func TestCatalogService_ListQuestions_UpstreamError(t *testing.T) {
	questionRepo := new(MockQuestionRepo)
	questionRepo.On("List", mock.Anything).Return(nil, apperrors.ErrUpstream)
	svc := NewCatalogService(questionRepo, nil, 0)

	_, err := svc.ListQuestions(context.Background())

	assert.True(t, errors.Is(err, apperrors.ErrUpstream))
}

func TestCatalogService_GetQuestionByNumber_NotFound(t *testing.T) {
	questionRepo := new(MockQuestionRepo)
	questionRepo.On("GetByNumber", mock.Anything, 42).Return(nil, apperrors.ErrNotFound)
	svc := NewCatalogService(questionRepo, nil, 0)

	q, err := svc.GetQuestionByNumber(context.Background(), 42)

	assert.Nil(t, q)
	assert.True(t, errors.Is(err, apperrors.ErrNotFound))
}

func TestCatalogService_RotateActiveFlag_MovesToNextNumber(t *testing.T) {
	// Arrange
	q1, q2, q3 := testQuestion(1, "rec1"), testQuestion(2, "rec2"), testQuestion(3, "rec3")
	q2.Active = true
	questionRepo := new(MockQuestionRepo)
	questionRepo.On("List", mock.Anything).Return([]entity.Question{*q1, *q2, *q3}, nil)
	questionRepo.On("SetActive", mock.Anything, "rec2", false).Return(nil).Once()
	questionRepo.On("SetActive", mock.Anything, "rec3", true).Return(nil).Once()
	cacheRepo := new(MockCacheRepo)
	cacheRepo.On("Delete", catalogCacheKey).Return(nil)
	svc := NewCatalogService(questionRepo, cacheRepo, time.Minute)

	// Act
	next, err := svc.RotateActiveFlag(context.Background())

	// Assert
	require.NoError(t, err)
	assert.Equal(t, "rec3", next.ID)
	assert.True(t, next.Active)
	questionRepo.AssertExpectations(t)
	cacheRepo.AssertCalled(t, "Delete", catalogCacheKey)
}

func TestCatalogService_RotateActiveFlag_NoneActiveStartsFromFirst(t *testing.T) {
	questionRepo := new(MockQuestionRepo)
	questionRepo.On("List", mock.Anything).Return([]entity.Question{*testQuestion(1, "rec1"), *testQuestion(2, "rec2")}, nil)
	questionRepo.On("SetActive", mock.Anything, "rec1", true).Return(nil).Once()
	svc := NewCatalogService(questionRepo, nil, 0)

	next, err := svc.RotateActiveFlag(context.Background())

	require.NoError(t, err)
	assert.Equal(t, 1, next.Number)
	questionRepo.AssertNumberOfCalls(t, "SetActive", 1)
}

func TestCatalogService_RotateActiveFlag_LastQuestionClearsFlag(t *testing.T) {
	// Arrange
	last := testQuestion(2, "rec2")
	last.Active = true
	questionRepo := new(MockQuestionRepo)
	questionRepo.On("List", mock.Anything).Return([]entity.Question{*testQuestion(1, "rec1"), *last}, nil)
	questionRepo.On("SetActive", mock.Anything, "rec2", false).Return(nil).Once()
	svc := NewCatalogService(questionRepo, nil, 0)

	// Act
	next, err := svc.RotateActiveFlag(context.Background())

	// Assert
	assert.Nil(t, next)
	assert.True(t, errors.Is(err, apperrors.ErrNotFound))
	questionRepo.AssertExpectations(t)
}
