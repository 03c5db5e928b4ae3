package cache

import (
	"context"
	"encoding/json"
	"errors"
	"time"
)

// ErrMiss is returned by Store.Get when the key is absent or expired.
var ErrMiss = errors.New("cache miss")

// Store is a byte-oriented cache shared by the quiz sources and the resolver.
type Store interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, val []byte, ttl time.Duration) error
	Close() error
}

func GetJSON[T any](ctx context.Context, s Store, key string) (T, bool) {
	var out T
	raw, err := s.Get(ctx, key)
	if err != nil {
		return out, false
	}
	if err := json.Unmarshal(raw, &out); err != nil {
		return out, false
	}
	return out, true
}

func SetJSON(ctx context.Context, s Store, key string, val any, ttl time.Duration) error {
	raw, err := json.Marshal(val)
	if err != nil {
		return err
	}
	return s.Set(ctx, key, raw, ttl)
}

// Remember returns the cached value for key or calls fetch and stores its result.
func Remember[T any](ctx context.Context, s Store, key string, ttl time.Duration, fetch func(context.Context) (T, error)) (T, error) {
	if v, ok := GetJSON[T](ctx, s, key); ok {
		return v, nil
	}
	v, err := fetch(ctx)
	if err != nil {
		return v, err
	}
	_ = SetJSON(ctx, s, key, v, ttl)
	return v, nil
}
