package memcached

import (
	"context"
	"time"

	"github.com/bradfitz/gomemcache/memcache"
	"github.com/pkg/errors"

	"github.com/trezcool/mazoezi/core"
	"github.com/trezcool/mazoezi/core/cache"
)

type store struct {
	client *memcache.Client
}

var _ cache.Store = (*store)(nil) // interface compliance check

func NewStore(conf *core.Config) cache.Store {
	return &store{client: memcache.New(conf.Cache.MemcachedAddrs...)}
}

func (s *store) Get(ctx context.Context, key string) ([]byte, error) {
	item, err := s.client.Get(key)
	if err == memcache.ErrCacheMiss {
		return nil, cache.ErrMiss
	}
	if err != nil {
		return nil, errors.Wrap(err, "memcached get")
	}
	return item.Value, nil
}

func (s *store) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	item := &memcache.Item{Key: key, Value: value}
	if ttl > 0 {
		secs := int32(ttl / time.Second)
		if secs < 1 {
			secs = 1
		}
		item.Expiration = secs
	}
	return errors.Wrap(s.client.Set(item), "memcached set")
}

func (s *store) Delete(ctx context.Context, key string) error {
	if err := s.client.Delete(key); err != nil && err != memcache.ErrCacheMiss {
		return errors.Wrap(err, "memcached delete")
	}
	return nil
}
