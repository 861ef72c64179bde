package inmemcache

import (
	"context"
	"sync"
	"time"

	"github.com/trezcool/mazoezi/core/cache"
)

type entry struct {
	value     []byte
	expiresAt time.Time // zero = no expiry
}

type Store struct {
	table map[string]entry
	mutex sync.RWMutex
	now   func() time.Time
}

var _ cache.Store = (*Store)(nil) // interface compliance check

func NewStore() *Store {
	return &Store{
		table: make(map[string]entry),
		now:   time.Now,
	}
}

func (s *Store) Get(ctx context.Context, key string) ([]byte, error) {
	s.mutex.RLock()
	e, ok := s.table[key]
	s.mutex.RUnlock()

	if !ok {
		return nil, cache.ErrMiss
	}
	if !e.expiresAt.IsZero() && s.now().After(e.expiresAt) {
		s.mutex.Lock()
		delete(s.table, key)
		s.mutex.Unlock()
		return nil, cache.ErrMiss
	}
	return e.value, nil
}

func (s *Store) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	e := entry{value: value}
	if ttl > 0 {
		e.expiresAt = s.now().Add(ttl)
	}

	s.mutex.Lock()
	s.table[key] = e
	s.mutex.Unlock()
	return nil
}

func (s *Store) Delete(ctx context.Context, key string) error {
	s.mutex.Lock()
	delete(s.table, key)
	s.mutex.Unlock()
	return nil
}

// Reset drops every entry.
func (s *Store) Reset() {
	s.mutex.Lock()
	s.table = make(map[string]entry)
	s.mutex.Unlock()
}
