package cache

import (
	"context"
	"sync"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
)

type memEntry struct {
	value     string
	expiresAt time.Time
}

// MemoryStore: SessionStore в памяти процесса для env=local и тестов.
// Сессии не переживают рестарт и не разделяются между инстансами.
type MemoryStore struct {
	mu  sync.Mutex
	lru *expirable.LRU[string, memEntry]
	now func() time.Time
}

// NewMemoryStore создаёт хранилище без ограничения числа субъектов: сессия
// пропадает только по TTL, Remove или Swap, LRU-вытеснение выключено (size=0).
// maxTTL: верхняя граница жизни записи (обычно refresh TTL), по ней LRU
// чистит просроченное; точный TTL хранится в самой записи.
func NewMemoryStore(maxTTL time.Duration) *MemoryStore {
	return &MemoryStore{
		lru: expirable.NewLRU[string, memEntry](0, nil, maxTTL),
		now: time.Now,
	}
}

// get возвращает живую запись; вызывается под mu.
func (s *MemoryStore) get(subject string) (memEntry, bool) {
	e, ok := s.lru.Get(subject)
	if !ok {
		return memEntry{}, false
	}

	if !s.now().Before(e.expiresAt) {
		s.lru.Remove(subject)
		return memEntry{}, false
	}

	return e, true
}

func (s *MemoryStore) Put(ctx context.Context, subject, value string, ttl time.Duration) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.lru.Add(subject, memEntry{value: value, expiresAt: s.now().Add(ttl)})

	return nil
}

func (s *MemoryStore) Exists(ctx context.Context, subject string) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	_, ok := s.get(subject)

	return ok, nil
}

func (s *MemoryStore) Swap(ctx context.Context, subject, prev, next string, ttl time.Duration) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.get(subject)
	if !ok || e.value != prev {
		return false, nil
	}

	s.lru.Add(subject, memEntry{value: next, expiresAt: s.now().Add(ttl)})

	return true, nil
}

func (s *MemoryStore) Remove(ctx context.Context, subject string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.lru.Remove(subject)

	return nil
}

// Close очищает хранилище.
func (s *MemoryStore) Close() error {
	s.lru.Purge()
	return nil
}

var _ SessionStore = (*MemoryStore)(nil)
