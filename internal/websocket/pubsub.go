package websocket

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/go-redis/redis/v8"
	log "github.com/sirupsen/logrus"
)

// PubSubProvider определяет интерфейс для провайдеров публикации/подписки
type PubSubProvider interface {
	// Publish публикует сообщение в указанный канал
	Publish(channel string, message []byte) error

	// Subscribe подписывается на указанный канал и возвращает канал для сообщений
	Subscribe(ctx context.Context, channel string) (<-chan []byte, error)

	// Close закрывает все подписки и освобождает ресурсы
	Close() error
}

// NoOpPubSub используется, когда горизонтальное масштабирование отключено
type NoOpPubSub struct{}

// Publish ничего не делает в одиночном режиме
func (p *NoOpPubSub) Publish(channel string, message []byte) error {
	return nil
}

// Subscribe возвращает канал, который закрывается вместе с контекстом
func (p *NoOpPubSub) Subscribe(ctx context.Context, channel string) (<-chan []byte, error) {
	msgCh := make(chan []byte)
	go func() {
		<-ctx.Done()
		close(msgCh)
	}()
	return msgCh, nil
}

// Close реализует PubSubProvider
func (p *NoOpPubSub) Close() error {
	return nil
}

// RedisPubSub реализует PubSubProvider с использованием Redis.
// Клиент Redis принадлежит вызывающему коду и не закрывается в Close.
type RedisPubSub struct {
	client redis.UniversalClient
	ctx    context.Context
	cancel context.CancelFunc

	mu            sync.Mutex
	subscriptions map[string]*redis.PubSub
}

// NewRedisPubSub создает Redis Pub/Sub провайдер поверх существующего клиента
func NewRedisPubSub(client redis.UniversalClient) (*RedisPubSub, error) {
	if client == nil {
		return nil, errors.New("redis client cannot be nil for RedisPubSub")
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &RedisPubSub{
		client:        client,
		ctx:           ctx,
		cancel:        cancel,
		subscriptions: make(map[string]*redis.PubSub),
	}, nil
}

// Publish публикует сообщение в указанный канал
func (p *RedisPubSub) Publish(channel string, message []byte) error {
	if err := p.client.Publish(p.ctx, channel, message).Err(); err != nil {
		return fmt.Errorf("failed to publish to Redis channel %s: %w", channel, err)
	}
	return nil
}

// Subscribe подписывается на канал Redis
func (p *RedisPubSub) Subscribe(ctx context.Context, channel string) (<-chan []byte, error) {
	pubsub := p.client.Subscribe(p.ctx, channel)

	// Ждем подтверждения подписки
	if _, err := pubsub.Receive(ctx); err != nil {
		pubsub.Close()
		return nil, fmt.Errorf("failed to subscribe to Redis channel %s: %w", channel, err)
	}

	p.mu.Lock()
	if old, ok := p.subscriptions[channel]; ok {
		old.Close()
	}
	p.subscriptions[channel] = pubsub
	p.mu.Unlock()

	log.WithField("channel", channel).Info("[RedisPubSub] Подписка оформлена")

	msgCh := make(chan []byte, 100)
	go func() {
		defer func() {
			p.mu.Lock()
			if p.subscriptions[channel] == pubsub {
				delete(p.subscriptions, channel)
			}
			p.mu.Unlock()
			pubsub.Close()
			close(msgCh)
		}()

		redisCh := pubsub.Channel()
		for {
			select {
			case msg, ok := <-redisCh:
				if !ok {
					return
				}
				select {
				case msgCh <- []byte(msg.Payload):
				case <-p.ctx.Done():
					return
				case <-ctx.Done():
					return
				}
			case <-p.ctx.Done():
				return
			case <-ctx.Done():
				return
			}
		}
	}()

	return msgCh, nil
}

// Close закрывает все активные подписки
func (p *RedisPubSub) Close() error {
	p.cancel()

	p.mu.Lock()
	defer p.mu.Unlock()

	var lastErr error
	for channel, pubsub := range p.subscriptions {
		if err := pubsub.Close(); err != nil {
			log.WithError(err).WithField("channel", channel).Warn("[RedisPubSub] Ошибка закрытия подписки")
			lastErr = err
		}
		delete(p.subscriptions, channel)
	}
	return lastErr
}
