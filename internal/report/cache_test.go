package report

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

func testCache(t *testing.T) *Cache {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return NewCache(client, time.Minute)
}

func TestCacheFetchPopulatesOnMiss(t *testing.T) {
	ctx := context.Background()
	cache := testCache(t)

	calls := 0
	loader := func(context.Context) (*Report, error) {
		calls++
		return &Report{Error: "built"}, nil
	}

	key, err := cache.Key(ctx, "pl", Request{DataType: DataTypeActual})
	if err != nil {
		t.Fatalf("Key: %v", err)
	}
	first, err := cache.Fetch(ctx, key, loader)
	if err != nil {
		t.Fatalf("first fetch: %v", err)
	}
	second, err := cache.Fetch(ctx, key, loader)
	if err != nil {
		t.Fatalf("second fetch: %v", err)
	}
	if calls != 1 {
		t.Fatalf("loader ran %d times, want 1", calls)
	}
	if first.Error != "built" || second.Error != "built" {
		t.Fatalf("payload mismatch: %q / %q", first.Error, second.Error)
	}
}

func TestCacheBumpChangesKey(t *testing.T) {
	ctx := context.Background()
	cache := testCache(t)

	before, err := cache.Key(ctx, "pl", Request{DataType: DataTypeActual})
	if err != nil {
		t.Fatalf("Key: %v", err)
	}
	if err := cache.Bump(ctx); err != nil {
		t.Fatalf("Bump: %v", err)
	}
	after, err := cache.Key(ctx, "pl", Request{DataType: DataTypeActual})
	if err != nil {
		t.Fatalf("Key: %v", err)
	}
	if before == after {
		t.Fatalf("key unchanged after bump: %s", before)
	}
}

func TestCacheKeyVariesByRequest(t *testing.T) {
	ctx := context.Background()
	cache := testCache(t)

	a, err := cache.Key(ctx, "pl", Request{DataType: DataTypeActual})
	if err != nil {
		t.Fatalf("Key: %v", err)
	}
	b, err := cache.Key(ctx, "pl", Request{DataType: DataTypeBudget, DualStream: true})
	if err != nil {
		t.Fatalf("Key: %v", err)
	}
	c, err := cache.Key(ctx, "bs", Request{DataType: DataTypeActual})
	if err != nil {
		t.Fatalf("Key: %v", err)
	}
	if a == b || a == c || b == c {
		t.Fatalf("keys must differ: %s / %s / %s", a, b, c)
	}
}

func TestCacheNilClientPassesThrough(t *testing.T) {
	ctx := context.Background()
	cache := NewCache(nil, time.Minute)

	calls := 0
	loader := func(context.Context) (*Report, error) {
		calls++
		return &Report{}, nil
	}
	key, err := cache.Key(ctx, "pl", Request{DataType: DataTypeActual})
	if err != nil {
		t.Fatalf("Key: %v", err)
	}
	for i := 0; i < 2; i++ {
		if _, err := cache.Fetch(ctx, key, loader); err != nil {
			t.Fatalf("fetch %d: %v", i, err)
		}
	}
	if calls != 2 {
		t.Fatalf("pass-through cache must call the loader every time, got %d", calls)
	}
	if err := cache.Bump(ctx); err != nil {
		t.Fatalf("Bump on nil client: %v", err)
	}
}

func TestCacheFetchPropagatesLoaderError(t *testing.T) {
	ctx := context.Background()
	cache := testCache(t)

	boom := errors.New("store unavailable")
	_, err := cache.Fetch(ctx, "report:test", func(context.Context) (*Report, error) {
		return nil, boom
	})
	if !errors.Is(err, boom) {
		t.Fatalf("err = %v, want loader error", err)
	}
}

func TestCacheCorruptPayloadRebuilds(t *testing.T) {
	ctx := context.Background()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	cache := NewCache(client, time.Minute)

	const key = "report:corrupt"
	if err := client.Set(ctx, key, "{not json", 0).Err(); err != nil {
		t.Fatalf("seed corrupt payload: %v", err)
	}
	got, err := cache.Fetch(ctx, key, func(context.Context) (*Report, error) {
		return &Report{Error: "rebuilt"}, nil
	})
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}
	if got.Error != "rebuilt" {
		t.Fatalf("payload = %q, want rebuilt report", got.Error)
	}
}
