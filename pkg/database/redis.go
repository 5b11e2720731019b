package database

import (
	"context"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/yourusername/livequiz-api/internal/config"
)

// NewUniversalRedisClient создает клиент Redis для режимов single, sentinel и cluster
// и проверяет подключение командой PING.
func NewUniversalRedisClient(ctx context.Context, cfg config.RedisConfig) (redis.UniversalClient, error) {
	if len(cfg.Addrs) == 0 {
		return nil, fmt.Errorf("redis configuration error: Addrs must be provided")
	}

	options := &redis.UniversalOptions{
		Addrs:      cfg.Addrs,
		Password:   cfg.Password,
		DB:         cfg.DB,
		MaxRetries: cfg.MaxRetries,
	}

	mode := cfg.Mode
	if mode == "" {
		mode = "single"
	}
	switch mode {
	case "sentinel":
		if cfg.MasterName == "" {
			return nil, fmt.Errorf("redis sentinel mode requires MasterName")
		}
		options.MasterName = cfg.MasterName
	case "cluster", "single":
		// NewUniversalClient выбирает тип клиента по количеству адресов
	default:
		return nil, fmt.Errorf("unsupported redis mode: %s", mode)
	}

	client := redis.NewUniversalClient(options)

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to connect to Redis (mode: %s, addrs: %v): %w", mode, cfg.Addrs, err)
	}

	return client, nil
}
