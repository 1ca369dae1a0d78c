package cache

import (
	"context"
	"errors"
	"testing"
	"time"
)

type pool struct {
	Address string `json:"address"`
	Name    string `json:"name"`
}

func TestMemoryCacheRoundTrip(t *testing.T) {
	mc := NewMemoryCache()
	defer mc.Close()
	ctx := context.Background()

	in := []pool{{Address: "a", Name: "A"}, {Address: "b"}}
	if err := mc.Set(ctx, "pools", in, 0); err != nil {
		t.Fatalf("set: %v", err)
	}
	var out []pool
	if err := mc.Get(ctx, "pools", &out); err != nil {
		t.Fatalf("get: %v", err)
	}
	if len(out) != 2 || out[0] != in[0] {
		t.Fatalf("got %+v", out)
	}

	_ = mc.Set(ctx, "s", "plain", 0)
	var s string
	if err := mc.Get(ctx, "s", &s); err != nil || s != "plain" {
		t.Fatalf("string get = %q, %v", s, err)
	}

	if err := mc.Get(ctx, "missing", &s); !errors.Is(err, ErrCacheMiss) {
		t.Fatalf("expected miss, got %v", err)
	}
}

func TestMemoryCacheExpiry(t *testing.T) {
	mc := NewMemoryCache()
	defer mc.Close()
	now := time.Unix(1000, 0)
	mc.now = func() time.Time { return now }
	ctx := context.Background()

	_ = mc.Set(ctx, "k", "v", time.Second)
	if ok, _ := mc.Exists(ctx, "k"); !ok {
		t.Fatalf("expected key to exist")
	}
	now = now.Add(2 * time.Second)
	var v string
	if err := mc.Get(ctx, "k", &v); !errors.Is(err, ErrCacheMiss) {
		t.Fatalf("expected expired miss, got %v", err)
	}
	if mc.Len() != 0 {
		t.Fatalf("expired key not removed")
	}
}

func TestMemoryCacheEvictsLeastRecentlyUsed(t *testing.T) {
	mc := NewMemoryCache(WithMaxEntries(2))
	defer mc.Close()
	now := time.Unix(1000, 0)
	mc.now = func() time.Time { return now }
	ctx := context.Background()

	_ = mc.Set(ctx, "a", "1", 0)
	now = now.Add(time.Second)
	_ = mc.Set(ctx, "b", "2", 0)
	now = now.Add(time.Second)
	var v string
	_ = mc.Get(ctx, "a", &v)
	now = now.Add(time.Second)
	_ = mc.Set(ctx, "c", "3", 0)

	if ok, _ := mc.Exists(ctx, "b"); ok {
		t.Fatalf("b should have been evicted")
	}
	if ok, _ := mc.Exists(ctx, "a", "c"); !ok {
		t.Fatalf("a and c should remain")
	}
	_ = mc.Delete(ctx, "a", "c")
	if mc.Len() != 0 {
		t.Fatalf("delete left %d keys", mc.Len())
	}
}

func TestLayeredCacheReadsThrough(t *testing.T) {
	l2 := NewMemoryCache()
	lc := NewLayeredCache(l2)
	defer lc.Close()
	ctx := context.Background()

	_ = l2.Set(ctx, "pools", []pool{{Address: "x"}}, 0)

	var out []pool
	if err := lc.Get(ctx, "pools", &out); err != nil || len(out) != 1 || out[0].Address != "x" {
		t.Fatalf("read through = %+v, %v", out, err)
	}
	_ = l2.Delete(ctx, "pools")

	out = nil
	if err := lc.Get(ctx, "pools", &out); err != nil || len(out) != 1 {
		t.Fatalf("L1 should still serve the value: %+v, %v", out, err)
	}

	if err := lc.Set(ctx, "n", 5, 0); err != nil {
		t.Fatalf("set: %v", err)
	}
	var n int
	if err := l2.Get(ctx, "n", &n); err != nil || n != 5 {
		t.Fatalf("write-through = %d, %v", n, err)
	}
}

func TestRedisOptions(t *testing.T) {
	cfg := defaultRedisConfig()
	for _, opt := range []RedisOption{
		WithRedisAddr("10.0.0.7", 6380),
		WithRedisAuth("hunter2", 3),
		WithRedisPrefix(""),
	} {
		opt(cfg)
	}
	if cfg.Addr != "10.0.0.7:6380" || cfg.Password != "hunter2" || cfg.DB != 3 || cfg.Prefix != "" {
		t.Fatalf("config = %+v", cfg)
	}
}
