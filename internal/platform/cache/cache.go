package cache

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/kingymon1/Turbo-Merch-Clone-V2-sub001/internal/observability"
)

var ErrKeyRequired = errors.New("cache: key required")

// Cache is a byte-valued TTL cache. Get reports ok=false on a miss.
type Cache interface {
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Set(ctx context.Context, key string, val []byte, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
}

// GetJSON decodes a cached JSON value into T. Decode failures count as a miss.
func GetJSON[T any](ctx context.Context, c Cache, namespace, key string) (T, bool, error) {
	var zero T
	if c == nil {
		return zero, false, nil
	}
	raw, ok, err := c.Get(ctx, namespace+":"+key)
	if err != nil {
		return zero, false, err
	}
	if !ok {
		observability.Current().IncCacheLookup(namespace, false)
		return zero, false, nil
	}
	var out T
	if err := json.Unmarshal(raw, &out); err != nil {
		observability.Current().IncCacheLookup(namespace, false)
		return zero, false, nil
	}
	observability.Current().IncCacheLookup(namespace, true)
	return out, true, nil
}

func SetJSON[T any](ctx context.Context, c Cache, namespace, key string, val T, ttl time.Duration) error {
	if c == nil {
		return nil
	}
	raw, err := json.Marshal(val)
	if err != nil {
		return err
	}
	return c.Set(ctx, namespace+":"+key, raw, ttl)
}
