package report

import (
	"context"
	"encoding/json"
	"errors"
	"strconv"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

const cacheVersionKey = "report:version"

// Cache stores rendered report payloads in Redis behind a global version
// counter. Uploads bump the version instead of enumerating keys, so stale
// entries age out through their TTL while fresh reads miss immediately.
type Cache struct {
	client *redis.Client
	ttl    time.Duration
}

// NewCache instantiates the report cache. A nil client degrades to a
// pass-through cache.
func NewCache(client *redis.Client, ttl time.Duration) *Cache {
	return &Cache{client: client, ttl: ttl}
}

// Version returns the current cache version, initialising when missing.
func (c *Cache) Version(ctx context.Context) (int64, error) {
	if c == nil || c.client == nil {
		return 0, nil
	}
	ver, err := c.client.Get(ctx, cacheVersionKey).Int64()
	if errors.Is(err, redis.Nil) {
		if err := c.client.Set(ctx, cacheVersionKey, 1, 0).Err(); err != nil {
			return 0, err
		}
		return 1, nil
	}
	if err != nil {
		return 0, err
	}
	if ver <= 0 {
		ver = 1
		if err := c.client.Set(ctx, cacheVersionKey, ver, 0).Err(); err != nil {
			return 0, err
		}
	}
	return ver, nil
}

// Key composes the versioned cache key for a statement and request.
func (c *Cache) Key(ctx context.Context, statement string, req Request) (string, error) {
	parts := []string{
		"report", statement,
		orDash(req.FromMonth), orDash(req.FromYear),
		orDash(req.ToMonth), orDash(req.ToYear),
		string(req.DataType), strconv.FormatBool(req.DualStream),
	}
	joined := strings.Join(parts, ":")
	if c == nil || c.client == nil {
		return joined, nil
	}
	ver, err := c.Version(ctx)
	if err != nil {
		return "", err
	}
	return joined + ":" + strconv.FormatInt(ver, 10), nil
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}

// Fetch loads a cached report or populates the key using the loader.
func (c *Cache) Fetch(ctx context.Context, key string, loader func(context.Context) (*Report, error)) (*Report, error) {
	if loader == nil {
		return nil, errors.New("report: cache loader required")
	}
	if c == nil || c.client == nil {
		return loader(ctx)
	}
	payload, err := c.client.Get(ctx, key).Bytes()
	if err == nil {
		var cached Report
		if err := json.Unmarshal(payload, &cached); err == nil {
			return &cached, nil
		}
		// Fall through and rebuild when the stored payload is corrupt.
	} else if !errors.Is(err, redis.Nil) {
		return nil, err
	}
	report, err := loader(ctx)
	if err != nil {
		return nil, err
	}
	raw, err := json.Marshal(report)
	if err != nil {
		return nil, err
	}
	if err := c.client.Set(ctx, key, raw, c.ttl).Err(); err != nil {
		return nil, err
	}
	return report, nil
}

// Bump invalidates every cached report by incrementing the global version.
func (c *Cache) Bump(ctx context.Context) error {
	if c == nil || c.client == nil {
		return nil
	}
	return c.client.Incr(ctx, cacheVersionKey).Err()
}
