package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	log "github.com/sirupsen/logrus"
	"golang.org/x/sync/singleflight"

	"github.com/yourusername/livequiz-api/internal/domain/entity"
	"github.com/yourusername/livequiz-api/internal/domain/repository"
	apperrors "github.com/yourusername/livequiz-api/internal/pkg/errors"
)

// catalogCacheKey — ключ Redis, под которым хранится отсортированный каталог вопросов
const catalogCacheKey = "livequiz:catalog:questions"

// CatalogService предоставляет доступ к каталогу вопросов
type CatalogService struct {
	questionRepo repository.QuestionRepository
	cacheRepo    repository.CacheRepository
	cacheTTL     time.Duration
	group        singleflight.Group
}

// NewCatalogService создает новый сервис каталога.
// cacheRepo может быть nil, тогда каталог всегда читается из хранилища.
func NewCatalogService(
	questionRepo repository.QuestionRepository,
	cacheRepo repository.CacheRepository,
	cacheTTL time.Duration,
) *CatalogService {
	return &CatalogService{
		questionRepo: questionRepo,
		cacheRepo:    cacheRepo,
		cacheTTL:     cacheTTL,
	}
}

func (s *CatalogService) cacheEnabled() bool {
	return s.cacheRepo != nil && s.cacheTTL > 0
}

// ListQuestions возвращает все вопросы по возрастанию номера
func (s *CatalogService) ListQuestions(ctx context.Context) ([]entity.Question, error) {
	if s.cacheEnabled() {
		var cached []entity.Question
		err := s.cacheRepo.GetJSON(catalogCacheKey, &cached)
		if err == nil {
			return cached, nil
		}
		if !errors.Is(err, apperrors.ErrNotFound) {
			log.WithError(err).Warn("[CatalogService] Не удалось прочитать каталог из кеша")
		}
	}

	// Параллельные промахи кеша схлопываются в один запрос к хранилищу.
	// Запрос не привязан к отмене первого клиента, иначе его отключение
	// вернуло бы ошибку всем ожидающим.
	fillCtx := context.WithoutCancel(ctx)
	ch := s.group.DoChan(catalogCacheKey, func() (interface{}, error) {
		questions, err := s.questionRepo.List(fillCtx)
		if err != nil {
			return nil, fmt.Errorf("failed to list questions: %w", err)
		}
		if s.cacheEnabled() {
			if err := s.cacheRepo.SetJSON(catalogCacheKey, questions, s.cacheTTL); err != nil {
				log.WithError(err).Warn("[CatalogService] Не удалось сохранить каталог в кеш")
			}
		}
		return questions, nil
	})

	select {
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		return res.Val.([]entity.Question), nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// GetQuestionByNumber возвращает вопрос с указанным номером
func (s *CatalogService) GetQuestionByNumber(ctx context.Context, number int) (*entity.Question, error) {
	question, err := s.questionRepo.GetByNumber(ctx, number)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to get question %d: %w", number, err)
	}
	return question, nil
}

// GetActiveQuestion возвращает вопрос с установленным флагом активности.
// Если таких несколько, возвращается вопрос с наименьшим номером.
func (s *CatalogService) GetActiveQuestion(ctx context.Context) (*entity.Question, error) {
	question, err := s.questionRepo.GetActive(ctx)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to get active question: %w", err)
	}
	return question, nil
}

// RotateActiveFlag снимает флаг с текущего активного вопроса и ставит его
// следующему по номеру. Без активного вопроса выбирается первый.
// Если следующего вопроса нет, возвращается apperrors.ErrNotFound.
func (s *CatalogService) RotateActiveFlag(ctx context.Context) (*entity.Question, error) {
	questions, err := s.questionRepo.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list questions: %w", err)
	}

	var current *entity.Question
	for i := range questions {
		if questions[i].Active {
			current = &questions[i]
			break
		}
	}

	if current != nil {
		if err := s.questionRepo.SetActive(ctx, current.ID, false); err != nil {
			return nil, fmt.Errorf("failed to deactivate question %d: %w", current.Number, err)
		}
		log.Printf("[CatalogService] Вопрос #%d деактивирован", current.Number)
	}

	var next *entity.Question
	for i := range questions {
		if current == nil || questions[i].Number > current.Number {
			next = &questions[i]
			break
		}
	}
	if next == nil {
		s.InvalidateCache()
		return nil, apperrors.ErrNotFound
	}

	if err := s.questionRepo.SetActive(ctx, next.ID, true); err != nil {
		return nil, fmt.Errorf("failed to activate question %d: %w", next.Number, err)
	}
	next.Active = true
	s.InvalidateCache()

	log.Printf("[CatalogService] Активирован вопрос #%d", next.Number)
	return next, nil
}

// InvalidateCache удаляет каталог из кеша
func (s *CatalogService) InvalidateCache() {
	if s.cacheRepo == nil {
		return
	}
	if err := s.cacheRepo.Delete(catalogCacheKey); err != nil {
		log.WithError(err).Warn("[CatalogService] Не удалось сбросить кеш каталога")
	}
}
