package service

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"

	"github.com/yourusername/livequiz-api/internal/domain/repository"
	apperrors "github.com/yourusername/livequiz-api/internal/pkg/errors"
)

// SessionLocker сериализует изменения счетчика одной сессии.
// Lock блокируется до получения блокировки и возвращает контекст удержания
// вместе с функцией освобождения. Контекст отменяется, если блокировка потеряна,
// поэтому запись в хранилище нужно выполнять под ним.
type SessionLocker interface {
	Lock(ctx context.Context, sessionName string) (lockedCtx context.Context, unlock func(), err error)
}

// LocalSessionLocker — мьютекс по имени сессии в пределах одного процесса
type LocalSessionLocker struct {
	mu    sync.Mutex
	locks map[string]*sessionMutex
}

type sessionMutex struct {
	ch   chan struct{}
	refs int
}

// NewLocalSessionLocker создает локальный блокировщик
func NewLocalSessionLocker() *LocalSessionLocker {
	return &LocalSessionLocker{locks: make(map[string]*sessionMutex)}
}

// Lock захватывает мьютекс сессии или возвращает ошибку контекста.
// Локальная блокировка не может быть потеряна, контекст удержания совпадает с ctx.
func (l *LocalSessionLocker) Lock(ctx context.Context, sessionName string) (context.Context, func(), error) {
	l.mu.Lock()
	m, ok := l.locks[sessionName]
	if !ok {
		m = &sessionMutex{ch: make(chan struct{}, 1)}
		l.locks[sessionName] = m
	}
	m.refs++
	l.mu.Unlock()

	select {
	case m.ch <- struct{}{}:
	case <-ctx.Done():
		l.release(sessionName, m, false)
		return nil, nil, ctx.Err()
	}

	var once sync.Once
	return ctx, func() {
		once.Do(func() { l.release(sessionName, m, true) })
	}, nil
}

func (l *LocalSessionLocker) release(sessionName string, m *sessionMutex, held bool) {
	if held {
		<-m.ch
	}
	l.mu.Lock()
	m.refs--
	if m.refs == 0 {
		delete(l.locks, sessionName)
	}
	l.mu.Unlock()
}

// advanceLockKey возвращает ключ распределенной блокировки сессии
func advanceLockKey(sessionName string) string {
	return "livequiz:lock:advance:" + sessionName
}

// errLockLost - причина отмены контекста удержания, если ключ истек или был перехвачен
var errLockLost = fmt.Errorf("advance lock lost before the update completed: %w", apperrors.ErrConflict)

// RedisSessionLocker дополняет локальный мьютекс блокировкой SET NX в Redis,
// чтобы несколько экземпляров сервиса не теряли инкременты.
// Пока блокировка удерживается, ее TTL продлевается каждые ttl/3.
type RedisSessionLocker struct {
	local        *LocalSessionLocker
	cacheRepo    repository.CacheRepository
	ttl          time.Duration
	renewEvery   time.Duration
	retryDelay   time.Duration
	acquireLimit time.Duration
}

// NewRedisSessionLocker создает распределенный блокировщик.
// ttl ограничивает время жизни ключа, если экземпляр упадет, не освободив блокировку.
// acquireTimeout задает, сколько ждать блокировку, занятую другим экземпляром;
// значение не меньше ttl.
func NewRedisSessionLocker(cacheRepo repository.CacheRepository, ttl, acquireTimeout time.Duration) *RedisSessionLocker {
	if ttl <= 0 {
		ttl = 5 * time.Second
	}
	renewEvery := ttl / 3
	if renewEvery <= 0 {
		renewEvery = ttl
	}
	if acquireTimeout < ttl {
		acquireTimeout = ttl
	}
	return &RedisSessionLocker{
		local:        NewLocalSessionLocker(),
		cacheRepo:    cacheRepo,
		ttl:          ttl,
		renewEvery:   renewEvery,
		retryDelay:   25 * time.Millisecond,
		acquireLimit: acquireTimeout,
	}
}

// Lock захватывает локальный мьютекс, затем ключ в Redis.
// Если Redis недоступен, работа продолжается только с локальной блокировкой.
func (l *RedisSessionLocker) Lock(ctx context.Context, sessionName string) (context.Context, func(), error) {
	_, unlockLocal, err := l.local.Lock(ctx, sessionName)
	if err != nil {
		return nil, nil, err
	}

	key := advanceLockKey(sessionName)
	token := uuid.NewString()
	deadline := time.Now().Add(l.acquireLimit)

	for {
		acquired, err := l.cacheRepo.SetNX(key, token, l.ttl)
		if err != nil {
			log.WithError(err).WithField("session", sessionName).
				Warn("[SessionLocker] Redis недоступен, используется только локальная блокировка")
			return ctx, unlockLocal, nil
		}
		if acquired {
			break
		}
		if time.Now().After(deadline) {
			unlockLocal()
			return nil, nil, fmt.Errorf("session %q is being advanced by another instance: %w", sessionName, apperrors.ErrConflict)
		}
		select {
		case <-ctx.Done():
			unlockLocal()
			return nil, nil, ctx.Err()
		case <-time.After(l.retryDelay):
		}
	}

	lockedCtx, cancel := context.WithCancelCause(ctx)
	stopRenew := make(chan struct{})
	renewDone := make(chan struct{})
	go l.renew(lockedCtx, cancel, sessionName, key, token, stopRenew, renewDone)

	var once sync.Once
	return lockedCtx, func() {
		once.Do(func() {
			close(stopRenew)
			<-renewDone
			cancel(nil)
			if _, err := l.cacheRepo.DeleteIfEquals(key, token); err != nil {
				log.WithError(err).WithField("session", sessionName).
					Warn("[SessionLocker] Не удалось освободить блокировку в Redis, ключ истечет по TTL")
			}
			unlockLocal()
		})
	}, nil
}

// renew продлевает TTL ключа, пока он хранит наш токен.
// Если ключ истек или занят другим владельцем, контекст удержания отменяется с errLockLost.
func (l *RedisSessionLocker) renew(ctx context.Context, cancel context.CancelCauseFunc, sessionName, key, token string, stop <-chan struct{}, done chan<- struct{}) {
	defer close(done)
	ticker := time.NewTicker(l.renewEvery)
	defer ticker.Stop()

	for {
		select {
		case <-stop:
			return
		case <-ctx.Done():
			return
		case <-ticker.C:
			held, err := l.cacheRepo.ExpireIfEquals(key, token, l.ttl)
			if err != nil {
				log.WithError(err).WithField("session", sessionName).
					Warn("[SessionLocker] Не удалось продлить блокировку в Redis")
				continue
			}
			if !held {
				log.WithField("session", sessionName).
					Error("[SessionLocker] Блокировка в Redis потеряна до завершения обновления")
				cancel(errLockLost)
				return
			}
		}
	}
}
