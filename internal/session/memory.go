package session

import (
	"context"

	"github.com/hashicorp/golang-lru/v2/expirable"
)

// MemoryStore keeps conversations in a bounded LRU. Contents are lost on restart.
type MemoryStore struct {
	cache *expirable.LRU[string, []byte]
}

// NewMemoryStore creates an in-memory store holding at most cfg.MaxEntries keys.
func NewMemoryStore(cfg Config) *MemoryStore {
	size := cfg.MaxEntries
	if size <= 0 {
		size = DefaultConfig().MaxEntries
	}
	return &MemoryStore{cache: expirable.NewLRU[string, []byte](size, nil, cfg.TTL)}
}

func (s *MemoryStore) Get(ctx context.Context, key string) ([]byte, error) {
	v, ok := s.cache.Get(key)
	if !ok {
		return nil, nil
	}
	return append([]byte(nil), v...), nil
}

func (s *MemoryStore) Set(ctx context.Context, key string, value []byte) error {
	s.cache.Add(key, append([]byte(nil), value...))
	return nil
}

func (s *MemoryStore) Delete(ctx context.Context, key string) error {
	s.cache.Remove(key)
	return nil
}

// Len reports the number of live entries.
func (s *MemoryStore) Len() int {
	return s.cache.Len()
}

func (s *MemoryStore) Close() error {
	s.cache.Purge()
	return nil
}
