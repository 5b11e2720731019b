package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	log "github.com/sirupsen/logrus"

	"github.com/yourusername/livequiz-api/internal/domain/entity"
	"github.com/yourusername/livequiz-api/internal/domain/repository"
	"github.com/yourusername/livequiz-api/internal/handler/dto"
	apperrors "github.com/yourusername/livequiz-api/internal/pkg/errors"
	"github.com/yourusername/livequiz-api/internal/websocket"
)

// SessionEventNotifier доставляет события подписчикам комнаты сессии
type SessionEventNotifier interface {
	BroadcastEventToSession(sessionName string, eventType string, data interface{}) error
}

// SessionService управляет сессиями викторины и их счетчиком текущего вопроса
type SessionService struct {
	sessionRepo repository.SessionRepository
	catalog     *CatalogService
	locker      SessionLocker
	notifier    SessionEventNotifier
}

// NewSessionService создает новый сервис сессий.
// notifier может быть nil, тогда события не рассылаются.
func NewSessionService(
	sessionRepo repository.SessionRepository,
	catalog *CatalogService,
	locker SessionLocker,
	notifier SessionEventNotifier,
) *SessionService {
	if locker == nil {
		locker = NewLocalSessionLocker()
	}
	return &SessionService{
		sessionRepo: sessionRepo,
		catalog:     catalog,
		locker:      locker,
		notifier:    notifier,
	}
}

func normalizeSessionName(name string) (string, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return "", fmt.Errorf("sessionName is required: %w", apperrors.ErrValidation)
	}
	return name, nil
}

// CreateSession создает сессию со счетчиком 0. Уникальность имени не проверяется.
func (s *SessionService) CreateSession(ctx context.Context, name string) (*entity.Session, error) {
	name, err := normalizeSessionName(name)
	if err != nil {
		return nil, err
	}

	session, err := s.sessionRepo.Create(ctx, name)
	if err != nil {
		return nil, fmt.Errorf("failed to create session %q: %w", name, err)
	}

	log.WithField("session", name).Info("[SessionService] Сессия создана")
	return session, nil
}

// GetSession возвращает сессию по имени
func (s *SessionService) GetSession(ctx context.Context, name string) (*entity.Session, error) {
	name, err := normalizeSessionName(name)
	if err != nil {
		return nil, err
	}

	session, err := s.sessionRepo.GetByName(ctx, name)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			return nil, fmt.Errorf("session %q: %w", name, err)
		}
		return nil, fmt.Errorf("failed to get session %q: %w", name, err)
	}
	return session, nil
}

// Advance увеличивает счетчик сессии на 1 и возвращает её новое состояние
func (s *SessionService) Advance(ctx context.Context, name string) (*entity.ActiveQuestion, error) {
	return s.advance(ctx, name, false)
}

// AdvanceOrCreate работает как Advance, но создает сессию при первом вызове
func (s *SessionService) AdvanceOrCreate(ctx context.Context, name string) (*entity.ActiveQuestion, error) {
	return s.advance(ctx, name, true)
}

func (s *SessionService) advance(ctx context.Context, name string, createMissing bool) (*entity.ActiveQuestion, error) {
	name, err := normalizeSessionName(name)
	if err != nil {
		return nil, err
	}

	lockedCtx, unlock, err := s.locker.Lock(ctx, name)
	if err != nil {
		return nil, fmt.Errorf("failed to lock session %q: %w", name, err)
	}

	session, err := s.incrementLocked(lockedCtx, name, createMissing)
	lost := context.Cause(lockedCtx)
	unlock()
	if err != nil {
		if lost != nil && ctx.Err() == nil {
			return nil, fmt.Errorf("session %q: %w", name, lost)
		}
		return nil, err
	}

	active, err := s.resolveActive(ctx, session)
	if err != nil {
		return nil, err
	}

	log.WithFields(log.Fields{
		"session":          name,
		"current_question": session.CurrentQuestion,
		"status":           active.Status,
	}).Info("[SessionService] Сессия переведена на следующий вопрос")

	s.notifyAdvance(active)
	return active, nil
}

func (s *SessionService) incrementLocked(ctx context.Context, name string, createMissing bool) (*entity.Session, error) {
	if createMissing {
		_, err := s.sessionRepo.GetByName(ctx, name)
		if errors.Is(err, apperrors.ErrNotFound) {
			if _, err := s.sessionRepo.Create(ctx, name); err != nil {
				return nil, fmt.Errorf("failed to create session %q: %w", name, err)
			}
			log.WithField("session", name).Info("[SessionService] Сессия по умолчанию создана")
		} else if err != nil {
			return nil, fmt.Errorf("failed to get session %q: %w", name, err)
		}
	}

	session, err := s.sessionRepo.IncrementCurrentQuestion(ctx, name)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			return nil, fmt.Errorf("session %q: %w", name, err)
		}
		return nil, fmt.Errorf("failed to advance session %q: %w", name, err)
	}
	return session, nil
}

// GetActiveForSession возвращает текущий вопрос сессии.
// Счетчик 0 означает ожидание, счетчик без вопроса означает конец викторины.
func (s *SessionService) GetActiveForSession(ctx context.Context, name string) (*entity.ActiveQuestion, error) {
	session, err := s.GetSession(ctx, name)
	if err != nil {
		return nil, err
	}
	return s.resolveActive(ctx, session)
}

func (s *SessionService) resolveActive(ctx context.Context, session *entity.Session) (*entity.ActiveQuestion, error) {
	if !session.IsStarted() {
		return &entity.ActiveQuestion{Status: entity.ActiveStatusWaiting, Session: session}, nil
	}

	question, err := s.catalog.GetQuestionByNumber(ctx, session.CurrentQuestion)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			return &entity.ActiveQuestion{Status: entity.ActiveStatusEnded, Session: session}, nil
		}
		return nil, err
	}
	return &entity.ActiveQuestion{Status: entity.ActiveStatusLive, Session: session, Question: question}, nil
}

func (s *SessionService) notifyAdvance(active *entity.ActiveQuestion) {
	if s.notifier == nil {
		return
	}

	var err error
	if active.IsLive() {
		err = s.notifier.BroadcastEventToSession(active.Session.Name, websocket.QUESTION_START, dto.NewQuestionStartEvent(active))
	} else if active.Status == entity.ActiveStatusEnded {
		err = s.notifier.BroadcastEventToSession(active.Session.Name, websocket.QUIZ_END, dto.QuizEndEvent{
			SessionName:     active.Session.Name,
			CurrentQuestion: active.Session.CurrentQuestion,
		})
	}
	if err != nil {
		log.WithError(err).WithField("session", active.Session.Name).
			Warn("[SessionService] Не удалось разослать событие сессии")
	}
}
