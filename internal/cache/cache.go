package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"schedulebot/core/logger"
)

// Store is a keyed byte store with per-entry time to live. Implementations
// must be safe for concurrent use. A backend may expire entries itself
// (Redis) or rely on the envelope timestamps checked here (Postgres).
type Store interface {
	// Get returns the stored value and whether the key was present.
	Get(ctx context.Context, key string) ([]byte, bool, error)
	// Set stores value under key for at most ttl.
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	// Delete removes the key if present.
	Delete(ctx context.Context, key string) error
}

// envelope wraps a cached value with the metadata needed for lazy expiry
// and negative-result caching.
type envelope struct {
	StoredAt time.Time       `json:"stored_at"`
	TTLSec   int64           `json:"ttl_sec"`
	Found    bool            `json:"found"`
	Value    json.RawMessage `json:"value,omitempty"`
}

func (e envelope) expired(now time.Time) bool {
	return now.After(e.StoredAt.Add(time.Duration(e.TTLSec) * time.Second))
}

// Lookup is a get-or-compute cache for values of type T. Expiry is checked
// lazily on every read, so a stale entry is never served regardless of
// whether the backend purges it. Concurrent misses on one key each call the
// resolver; the provider throttle bounds the resulting upstream load.
type Lookup[T any] struct {
	store Store
	name  string
	ttl   time.Duration
	// negTTL applies to cached not-found results; zero disables them.
	negTTL time.Duration

	clock func() time.Time
}

// NewLookup builds a lookup over store. name scopes both the cache keys and
// the log events.
func NewLookup[T any](store Store, name string, ttl, negTTL time.Duration) *Lookup[T] {
	return &Lookup[T]{
		store:  store,
		name:   name,
		ttl:    ttl,
		negTTL: negTTL,
		clock:  time.Now,
	}
}

// Resolver computes a value on cache miss. Returning found=false caches a
// negative entry when the lookup allows it; a non-nil error is never cached.
type Resolver[T any] func(ctx context.Context) (value T, found bool, err error)

// Get returns the cached value for key, or computes and stores it. Store
// failures degrade to a live resolve with a warning; the caller still gets
// a result.
func (l *Lookup[T]) Get(ctx context.Context, key string, resolve Resolver[T]) (T, bool, error) {
	var zero T
	fullKey := l.name + ":" + key

	if value, found, ok := l.load(ctx, fullKey); ok {
		return value, found, nil
	}

	value, found, err := resolve(ctx)
	if err != nil {
		return zero, false, err
	}
	l.save(ctx, fullKey, value, found)
	return value, found, nil
}

// Invalidate drops the cached entry for key.
func (l *Lookup[T]) Invalidate(ctx context.Context, key string) {
	fullKey := l.name + ":" + key
	if err := l.store.Delete(ctx, fullKey); err != nil {
		logger.Warn(ctx, "cache", "invalidate.fail",
			slog.String("cache", l.name),
			slog.String("key", key),
			slog.Any("err", err),
		)
	}
}

// load returns (value, found, hit). hit=false means miss, expired entry or
// store failure; the caller resolves in all three cases.
func (l *Lookup[T]) load(ctx context.Context, fullKey string) (T, bool, bool) {
	var zero T

	raw, present, err := l.store.Get(ctx, fullKey)
	if err != nil {
		logger.Warn(ctx, "cache", "load.fail",
			slog.String("cache", l.name),
			slog.Any("err", err),
		)
		return zero, false, false
	}
	if !present {
		return zero, false, false
	}

	var env envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		logger.Warn(ctx, "cache", "load.corrupt",
			slog.String("cache", l.name),
			slog.Any("err", err),
		)
		return zero, false, false
	}
	if env.expired(l.clock()) {
		return zero, false, false
	}

	if !env.Found {
		logger.Debug(ctx, "cache", "hit.negative", slog.String("cache", l.name))
		return zero, false, true
	}

	var value T
	if err := json.Unmarshal(env.Value, &value); err != nil {
		logger.Warn(ctx, "cache", "load.corrupt",
			slog.String("cache", l.name),
			slog.Any("err", err),
		)
		return zero, false, false
	}
	logger.Debug(ctx, "cache", "hit", slog.String("cache", l.name))
	return value, true, true
}

func (l *Lookup[T]) save(ctx context.Context, fullKey string, value T, found bool) {
	ttl := l.ttl
	env := envelope{StoredAt: l.clock(), TTLSec: int64(ttl / time.Second), Found: found}

	if !found {
		if l.negTTL <= 0 {
			return
		}
		ttl = l.negTTL
		env.TTLSec = int64(ttl / time.Second)
	} else {
		raw, err := json.Marshal(value)
		if err != nil {
			logger.Warn(ctx, "cache", "save.fail",
				slog.String("cache", l.name),
				slog.Any("err", fmt.Errorf("marshal value: %w", err)),
			)
			return
		}
		env.Value = raw
	}

	raw, err := json.Marshal(env)
	if err != nil {
		logger.Warn(ctx, "cache", "save.fail",
			slog.String("cache", l.name),
			slog.Any("err", err),
		)
		return
	}
	if err := l.store.Set(ctx, fullKey, raw, ttl); err != nil {
		logger.Warn(ctx, "cache", "save.fail",
			slog.String("cache", l.name),
			slog.Any("err", err),
		)
	}
}
