package middleware

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-redis/redis/v8"
	log "github.com/sirupsen/logrus"
)

// RateLimitConfig содержит настройки rate limiting
type RateLimitConfig struct {
	// MaxRequests — максимальное количество запросов за Window
	MaxRequests int
	// Window — временное окно для подсчёта запросов
	Window time.Duration
	// KeyPrefix — префикс для ключей в Redis
	KeyPrefix string
}

// VoteRateLimitConfig возвращает конфигурацию лимита для POST /vote
func VoteRateLimitConfig(maxRequests int, window time.Duration) RateLimitConfig {
	if maxRequests <= 0 {
		maxRequests = 30
	}
	if window <= 0 {
		window = time.Minute
	}
	return RateLimitConfig{
		MaxRequests: maxRequests,
		Window:      window,
		KeyPrefix:   "rl:vote",
	}
}

// WindowCounter увеличивает счетчик ключа в фиксированном окне.
// Возвращает новое значение и оставшееся время жизни окна.
type WindowCounter interface {
	Incr(ctx context.Context, key string, window time.Duration) (int64, time.Duration, error)
}

// RedisWindowCounter реализует WindowCounter на INCR + EXPIRE
type RedisWindowCounter struct {
	client redis.UniversalClient
}

// NewRedisWindowCounter создает счетчик поверх клиента Redis
func NewRedisWindowCounter(client redis.UniversalClient) *RedisWindowCounter {
	return &RedisWindowCounter{client: client}
}

// Incr реализует WindowCounter
func (r *RedisWindowCounter) Incr(ctx context.Context, key string, window time.Duration) (int64, time.Duration, error) {
	count, err := r.client.Incr(ctx, key).Result()
	if err != nil {
		return 0, 0, err
	}
	// Первый запрос в окне устанавливает TTL
	if count == 1 {
		if err := r.client.Expire(ctx, key, window).Err(); err != nil {
			log.WithError(err).WithField("key", key).Warn("[RateLimiter] Failed to set TTL")
		}
	}
	ttl, err := r.client.TTL(ctx, key).Result()
	if err != nil {
		ttl = window
	}
	return count, ttl, nil
}

// RateLimiter создаёт middleware для rate limiting
type RateLimiter struct {
	counter WindowCounter
}

// NewRateLimiter создает новый RateLimiter
func NewRateLimiter(counter WindowCounter) *RateLimiter {
	return &RateLimiter{counter: counter}
}

// Limit возвращает Gin middleware с заданной конфигурацией.
// Ключ формируется из IP + endpoint path. При ошибке хранилища запрос пропускается.
func (rl *RateLimiter) Limit(cfg RateLimitConfig) gin.HandlerFunc {
	return func(c *gin.Context) {
		clientIP := c.ClientIP()
		path := c.FullPath()
		if path == "" {
			path = c.Request.URL.Path
		}

		key := fmt.Sprintf("%s:%s:%s", cfg.KeyPrefix, clientIP, path)

		ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
		defer cancel()

		count, ttl, err := rl.counter.Incr(ctx, key, cfg.Window)
		if err != nil {
			log.WithError(err).WithField("key", key).Warn("[RateLimiter] Counter error, allowing request (fail-open)")
			c.Next()
			return
		}

		remaining := cfg.MaxRequests - int(count)
		if remaining < 0 {
			remaining = 0
		}
		retryAfter := int(ttl.Seconds())
		if retryAfter < 0 {
			retryAfter = int(cfg.Window.Seconds())
		}

		c.Header("X-RateLimit-Limit", fmt.Sprintf("%d", cfg.MaxRequests))
		c.Header("X-RateLimit-Remaining", fmt.Sprintf("%d", remaining))
		c.Header("X-RateLimit-Reset", fmt.Sprintf("%d", retryAfter))

		if int(count) > cfg.MaxRequests {
			log.WithFields(log.Fields{
				"ip":    clientIP,
				"path":  path,
				"count": count,
				"limit": cfg.MaxRequests,
			}).Warn("[RateLimiter] Rate limit exceeded")

			c.Header("Retry-After", fmt.Sprintf("%d", retryAfter))
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{
				"error": "Too many requests. Please try again later.",
			})
			return
		}

		c.Next()
	}
}
