package cache

import (
	"context"
	"errors"
	"testing"
	"time"
)

type sample struct {
	Coin  string `json:"coin"`
	Price string `json:"price"`
}

func TestMemoryCacheRoundTrip(t *testing.T) {
	ctx := context.Background()
	mc := NewMemoryCache()

	if err := mc.Set(ctx, "k", sample{Coin: "bitcoin", Price: "65000.12"}, time.Minute); err != nil {
		t.Fatalf("Set: %v", err)
	}
	var got sample
	if err := mc.Get(ctx, "k", &got); err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got.Coin != "bitcoin" || got.Price != "65000.12" {
		t.Fatalf("got %+v", got)
	}

	if err := mc.Get(ctx, "missing", &got); !errors.Is(err, ErrCacheMiss) {
		t.Fatalf("err = %v, want miss", err)
	}
}

func TestMemoryCacheExpiry(t *testing.T) {
	ctx := context.Background()
	now := time.Unix(1_700_000_000, 0)
	mc := NewMemoryCache(WithMemoryClock(func() time.Time { return now }))

	_ = mc.Set(ctx, "ttl", "v", 15*time.Minute)
	_ = mc.Set(ctx, "forever", "v", 0)

	now = now.Add(15 * time.Minute)

	if ok, _ := mc.Exists(ctx, "ttl"); ok {
		t.Error("ttl key should have expired")
	}
	var s string
	if err := mc.Get(ctx, "forever", &s); err != nil || s != "v" {
		t.Errorf("forever = %q, %v", s, err)
	}
}

func TestMemoryCacheEvictsOldest(t *testing.T) {
	ctx := context.Background()
	mc := NewMemoryCache(WithMemoryMaxSize(2))

	_ = mc.Set(ctx, "a", "1", 0)
	_ = mc.Set(ctx, "b", "2", 0)
	_ = mc.Set(ctx, "b", "2b", 0) // overwrite while full does not evict
	if ok, _ := mc.Exists(ctx, "a"); !ok {
		t.Fatal("a evicted by an overwrite")
	}

	_ = mc.Set(ctx, "c", "3", 0)

	if ok, _ := mc.Exists(ctx, "a"); ok {
		t.Error("a should be evicted")
	}
	var b string
	if err := mc.Get(ctx, "b", &b); err != nil || b != "2b" {
		t.Errorf("b = %q, %v", b, err)
	}
	if ok, _ := mc.Exists(ctx, "c"); !ok {
		t.Error("c should be present")
	}
}

func TestGenerateKeyWithParams(t *testing.T) {
	if got := GenerateKeyWithParams("snapshot", "bitcoin", 7); got != "snapshot:bitcoin:7" {
		t.Fatalf("got %q", got)
	}
}
