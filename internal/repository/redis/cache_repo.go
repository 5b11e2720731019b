package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"

	apperrors "github.com/yourusername/livequiz-api/internal/pkg/errors"
)

// deleteIfEqualsScript удаляет ключ, только если он всё ещё хранит наш токен
var deleteIfEqualsScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// expireIfEqualsScript продлевает TTL ключа, только если он всё ещё хранит наш токен
var expireIfEqualsScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("PEXPIRE", KEYS[1], ARGV[2])
end
return 0
`)

// CacheRepo реализует repository.CacheRepository
type CacheRepo struct {
	client redis.UniversalClient
	ctx    context.Context
}

// NewCacheRepo создает новый репозиторий кеша и возвращает ошибку при проблемах
func NewCacheRepo(client redis.UniversalClient) (*CacheRepo, error) {
	if client == nil {
		return nil, fmt.Errorf("Redis client cannot be nil for CacheRepo")
	}
	return &CacheRepo{
		client: client,
		ctx:    context.Background(),
	}, nil
}

// Delete удаляет значение из кеша
func (r *CacheRepo) Delete(key string) error {
	return r.client.Del(r.ctx, key).Err()
}

// SetJSON сохраняет структуру JSON в кеше
func (r *CacheRepo) SetJSON(key string, value interface{}, expiration time.Duration) error {
	data, err := json.Marshal(value)
	if err != nil {
		return err
	}
	return r.client.Set(r.ctx, key, data, expiration).Err()
}

// GetJSON получает структуру JSON из кеша
func (r *CacheRepo) GetJSON(key string, dest interface{}) error {
	data, err := r.client.Get(r.ctx, key).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return apperrors.ErrNotFound
		}
		return err
	}
	return json.Unmarshal(data, dest)
}

// SetNX устанавливает значение ключа, только если ключ не существует.
// Возвращает true, если ключ был установлен, false - если ключ уже существовал.
func (r *CacheRepo) SetNX(key string, value interface{}, expiration time.Duration) (bool, error) {
	return r.client.SetNX(r.ctx, key, value, expiration).Result()
}

// DeleteIfEquals атомарно удаляет ключ, если его значение равно value
func (r *CacheRepo) DeleteIfEquals(key string, value string) (bool, error) {
	n, err := deleteIfEqualsScript.Run(r.ctx, r.client, []string{key}, value).Int64()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// ExpireIfEquals атомарно продлевает TTL ключа, если его значение равно value
func (r *CacheRepo) ExpireIfEquals(key string, value string, expiration time.Duration) (bool, error) {
	n, err := expireIfEqualsScript.Run(r.ctx, r.client, []string{key}, value, expiration.Milliseconds()).Int64()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}
