// service содержит Auth Lifecycle Manager: регистрацию, вход, ротацию
// refresh-токенов, выход и проверку access-токенов.
//
// Основные аспекты:
//   - Service не хранит состояние запроса и безопасен для конкурентного
//     использования; единственный разделяемый ресурс: хранилище сессий,
//     к которому обращаемся только атомарными операциями над одним ключом.
//   - У субъекта не более одной живой сессии: новый вход вытесняет
//     сессию другого устройства (single-session-per-subject).
//   - Ошибки возвращаются как *Error с Kind; транспорт маппит Kind в коды.
package service

import (
	"time"

	"github.com/pribylovaa/tasker/internal/cache"
	"github.com/pribylovaa/tasker/internal/config"
	"github.com/pribylovaa/tasker/internal/hasher"
	"github.com/pribylovaa/tasker/internal/storage"
	"github.com/pribylovaa/tasker/internal/tokens"
)

// Metrics: счётчики операций (реализация в internal/metrics).
type Metrics interface {
	Observe(op, result string, d time.Duration)
}

type noopMetrics struct{}

func (noopMetrics) Observe(string, string, time.Duration) {}

// Service описывает бизнес-логику auth.
type Service struct {
	users    storage.UserStorage
	sessions cache.SessionStore
	hasher   hasher.Hasher
	codec    *tokens.Codec
	cfg      config.AuthConfig
	metrics  Metrics
	now      func() time.Time
}

// Option настраивает Service.
type Option func(*Service)

// WithClock подменяет часы сервиса и кодека (для тестов границ TTL).
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// WithHasher подменяет хэшер паролей.
func WithHasher(h hasher.Hasher) Option {
	return func(s *Service) { s.hasher = h }
}

// New создаёт новый экземпляр Service. cfg передаётся один раз при старте
// и дальше не перечитывается.
func New(users storage.UserStorage, sessions cache.SessionStore, cfg config.AuthConfig, opts ...Option) *Service {
	s := &Service{
		users:    users,
		sessions: sessions,
		cfg:      cfg,
		metrics:  noopMetrics{},
		now:      time.Now,
	}

	for _, opt := range opts {
		opt(s)
	}

	if s.hasher == nil {
		s.hasher = hasher.New(cfg.BcryptCost)
	}
	s.codec = tokens.New(cfg, tokens.WithClock(s.now))

	return s
}

// SetMetrics устанавливает счётчики операций (опционально).
func (s *Service) SetMetrics(m Metrics) {
	if m == nil {
		m = noopMetrics{}
	}
	s.metrics = m
}

func (s *Service) observe(op string, start time.Time, err error) {
	result := "ok"
	if err != nil {
		result = KindOf(err).String()
	}
	s.metrics.Observe(op, result, s.now().Sub(start))
}
