package cache

import (
	"context"
	"strings"
	"time"

	"github.com/pkg/errors"

	"github.com/trezcool/mazoezi/core"
)

var ErrMiss = errors.New("cache miss")

// NoTTL stores an entry without an expiry time. Entries live until
// explicitly invalidated; freshness beyond that is the caller's business
// (see Fresh).
const NoTTL time.Duration = 0

type (
	// Store is a shared key-value backend. Implementations must be safe for
	// concurrent use.
	Store interface {
		Get(ctx context.Context, key string) ([]byte, error) // ErrMiss when absent
		Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
		Delete(ctx context.Context, key string) error
	}

	// Fresh reports whether a cached value is still usable as-is. A nil
	// Fresh treats every hit as usable.
	Fresh func(data []byte) bool

	// Generator produces a fresh value for a key. prev carries the stale
	// cached value when one exists (nil on a clean miss) so generators can
	// refresh conditionally. A value reported dirty went stale during
	// generation; it is returned to the caller but never stored.
	Generator func(ctx context.Context, prev []byte) (data []byte, dirty bool, err error)
)

// Key builds a cache key from a prefix, the identifying parameters and any
// variant modifiers. Identity and variants use distinct segments so that
// "a,b" + "c" never collides with "a" + "b,c".
func Key(prefix string, ids []string, modifiers ...string) string {
	return prefix + ":" + strings.Join(ids, ",") + ":" + strings.Join(modifiers, ",")
}

// GetOrGenerate returns the cached value for key, generating and storing it
// when the entry is absent or no longer fresh. Backend read failures degrade
// to regeneration and write failures only cost the caching. Concurrent
// generations are not serialized, the last store wins.
func GetOrGenerate(ctx context.Context, store Store, key string, ttl time.Duration, fresh Fresh, gen Generator, log core.Logger) ([]byte, error) {
	prev, err := store.Get(ctx, key)
	if err == nil {
		if fresh == nil || fresh(prev) {
			return prev, nil
		}
	} else {
		if errors.Cause(err) != ErrMiss {
			log.Warn("cache get failed", "key", key, "err", err)
		}
		prev = nil
	}

	data, dirty, err := gen(ctx, prev)
	if err != nil {
		return nil, err
	}
	if !dirty {
		if err := store.Set(ctx, key, data, ttl); err != nil {
			log.Warn("cache set failed", "key", key, "err", err)
		}
	}
	return data, nil
}

// Invalidate drops the entry for key. Readers regenerate on the next access.
func Invalidate(ctx context.Context, store Store, key string, log core.Logger) {
	if err := store.Delete(ctx, key); err != nil {
		log.Warn("cache delete failed", "key", key, "err", err)
	}
}
