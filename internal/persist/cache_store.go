package persist

import (
	"context"
	"time"

	"github.com/patrickmn/go-cache"
)

// CacheStore is an in-process primary channel with per-key expiry, used when
// no Redis is configured. Its contents do not survive a restart; the
// secondary channel restores them on the next load.
type CacheStore struct {
	c   *cache.Cache
	ttl time.Duration
}

// NewCacheStore creates a CacheStore whose keys expire after ttl.
func NewCacheStore(ttl time.Duration) *CacheStore {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &CacheStore{c: cache.New(ttl, time.Hour), ttl: ttl}
}

func (s *CacheStore) Get(_ context.Context, key string) ([]byte, error) {
	v, ok := s.c.Get(key)
	if !ok {
		return nil, ErrNotFound
	}
	data, ok := v.([]byte)
	if !ok {
		return nil, ErrNotFound
	}
	return append([]byte(nil), data...), nil
}

func (s *CacheStore) Set(_ context.Context, key string, value []byte) error {
	s.c.Set(key, append([]byte(nil), value...), s.ttl)
	return nil
}

func (s *CacheStore) Delete(_ context.Context, key string) error {
	s.c.Delete(key)
	return nil
}
