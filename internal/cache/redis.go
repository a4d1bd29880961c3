package cache

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/pribylovaa/tasker/internal/config"
)

// swapScript делает compare-and-set одного ключа, SET с новым TTL только при совпадении значения.
var swapScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	redis.call("SET", KEYS[1], ARGV[2], "PX", ARGV[3])
	return 1
end
return 0
`)

// RedisStore: SessionStore поверх Redis.
type RedisStore struct {
	rdb    *redis.Client
	prefix string
}

// NewRedisStore создаёт клиент Redis из URL (например, redis://:pass@host:6379/0)
// и проверяет соединение. Пустой prefix заменяется на "tasker:session:".
func NewRedisStore(ctx context.Context, cfg config.RedisConfig, prefix string) (*RedisStore, error) {
	const op = "cache.NewRedisStore"

	opt, err := redis.ParseURL(cfg.RedisURL)
	if err != nil {
		return nil, fmt.Errorf("%s: invalid redis url: %w", op, err)
	}

	if cfg.PoolSize > 0 {
		opt.PoolSize = cfg.PoolSize
	}
	if cfg.MaxRetries > 0 {
		opt.MaxRetries = cfg.MaxRetries
	}

	opt.DialTimeout = 5 * time.Second
	opt.ReadTimeout = 3 * time.Second
	opt.WriteTimeout = 3 * time.Second

	rdb := redis.NewClient(opt)

	// Fail-fast на старте.
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("%s: %w: %w", op, ErrUnavailable, err)
	}

	return NewRedisStoreFromClient(rdb, prefix), nil
}

// NewRedisStoreFromClient оборачивает готовый клиент.
func NewRedisStoreFromClient(rdb *redis.Client, prefix string) *RedisStore {
	if prefix == "" {
		prefix = "tasker:session:"
	}

	return &RedisStore{rdb: rdb, prefix: prefix}
}

func (s *RedisStore) key(subject string) string { return s.prefix + subject }

// Put выполняет SET key value PX ttl.
func (s *RedisStore) Put(ctx context.Context, subject, value string, ttl time.Duration) error {
	const op = "cache.redis.Put"

	if err := s.rdb.Set(ctx, s.key(subject), value, ttl).Err(); err != nil {
		return fmt.Errorf("%s: %w: %w", op, ErrUnavailable, err)
	}

	return nil
}

// Exists выполняет EXISTS key.
func (s *RedisStore) Exists(ctx context.Context, subject string) (bool, error) {
	const op = "cache.redis.Exists"

	n, err := s.rdb.Exists(ctx, s.key(subject)).Result()
	if err != nil {
		return false, fmt.Errorf("%s: %w: %w", op, ErrUnavailable, err)
	}

	return n > 0, nil
}

// Swap выполняет Lua-скрипт compare-and-set.
func (s *RedisStore) Swap(ctx context.Context, subject, prev, next string, ttl time.Duration) (bool, error) {
	const op = "cache.redis.Swap"

	n, err := swapScript.Run(ctx, s.rdb, []string{s.key(subject)}, prev, next, ttl.Milliseconds()).Int()
	if err != nil {
		return false, fmt.Errorf("%s: %w: %w", op, ErrUnavailable, err)
	}

	return n == 1, nil
}

// Remove выполняет DEL key.
func (s *RedisStore) Remove(ctx context.Context, subject string) error {
	const op = "cache.redis.Remove"

	if err := s.rdb.Del(ctx, s.key(subject)).Err(); err != nil {
		return fmt.Errorf("%s: %w: %w", op, ErrUnavailable, err)
	}

	return nil
}

// Ping проверяет доступность Redis (используется readiness-пробой).
func (s *RedisStore) Ping(ctx context.Context) error {
	const op = "cache.redis.Ping"

	if err := s.rdb.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("%s: %w: %w", op, ErrUnavailable, err)
	}

	return nil
}

// Close закрывает клиент Redis.
func (s *RedisStore) Close() error { return s.rdb.Close() }

var _ SessionStore = (*RedisStore)(nil)
