// cache содержит хранилище сессий: по одному значению (дайджесту актуального
// refresh-токена) на субъекта, с TTL. Хранилище пассивно и не содержит
// бизнес-логики; все операции атомарны в пределах одного ключа.
package cache

//go:generate mockgen -source=cache.go -destination=../../mocks/cache.go -package=mocks

import (
	"context"
	"errors"
	"time"
)

// ErrUnavailable: хранилище недоступно (сеть, таймаут, закрытый клиент).
// Никогда не означает «ключ не найден».
var ErrUnavailable = errors.New("session store unavailable")

// SessionStore: контракт хранилища сессий.
type SessionStore interface {
	// Put атомарно записывает значение с TTL, перезаписывая прежнее.
	Put(ctx context.Context, subject, value string, ttl time.Duration) error
	// Exists сообщает, есть ли у субъекта живая сессия.
	Exists(ctx context.Context, subject string) (bool, error)
	// Swap заменяет значение на next только если текущее равно prev.
	// Возвращает false, если ключа нет или значение другое.
	Swap(ctx context.Context, subject, prev, next string, ttl time.Duration) (bool, error)
	// Remove удаляет сессию; отсутствие ключа ошибкой не является.
	Remove(ctx context.Context, subject string) error
	// Close освобождает ресурсы клиента.
	Close() error
}
