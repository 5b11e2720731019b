package repository

import (
	"time"
)

// CacheRepository определяет методы для работы с кешем
type CacheRepository interface {
	SetJSON(key string, value interface{}, expiration time.Duration) error
	GetJSON(key string, dest interface{}) error
	Delete(key string) error
	SetNX(key string, value interface{}, expiration time.Duration) (bool, error)
	// DeleteIfEquals удаляет ключ, только если его значение совпадает с value.
	// Возвращает true, если ключ был удален.
	DeleteIfEquals(key string, value string) (bool, error)
	// ExpireIfEquals продлевает TTL ключа, только если его значение совпадает с value.
	// Возвращает false, если ключ истек или принадлежит другому владельцу.
	ExpireIfEquals(key string, value string, expiration time.Duration) (bool, error)
}
