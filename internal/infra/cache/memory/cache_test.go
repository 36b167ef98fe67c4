package memory

import (
	"context"
	"testing"
	"time"

	"equiprent/internal/domain/availability"
)

type clock struct{ now time.Time }

func (c *clock) Now() time.Time          { return c.now }
func (c *clock) Advance(d time.Duration) { c.now = c.now.Add(d) }

func newTestCache(capacity int) (*Cache, *clock) {
	clk := &clock{now: time.Date(2025, 5, 1, 9, 0, 0, 0, time.UTC)}
	c := NewCache(5*time.Minute, capacity)
	c.Now = clk.Now
	return c, clk
}

func entry(available bool) availability.Entry {
	return availability.Entry{Result: availability.Result{Available: available}, Detail: availability.DetailFull}
}

func TestCache_ExpiresOnRead(t *testing.T) {
	ctx := context.Background()
	c, clk := newTestCache(10)
	if err := c.Set(ctx, "2025-06-01|2025-06-05|default", entry(true)); err != nil {
		t.Fatalf("set: %v", err)
	}
	clk.Advance(4*time.Minute + 59*time.Second)
	if _, ok, _ := c.Get(ctx, "2025-06-01|2025-06-05|default"); !ok {
		t.Fatalf("expected hit inside ttl")
	}
	clk.Advance(2 * time.Second)
	if _, ok, _ := c.Get(ctx, "2025-06-01|2025-06-05|default"); ok {
		t.Fatalf("expected miss after ttl")
	}
	stats, _ := c.Stats(ctx)
	if stats.Size != 0 {
		t.Fatalf("stale entry should be dropped on read, size=%d", stats.Size)
	}
}

func TestCache_EvictsLeastRecentlyUsed(t *testing.T) {
	ctx := context.Background()
	c, _ := newTestCache(2)
	_ = c.Set(ctx, "a|a|1", entry(true))
	_ = c.Set(ctx, "b|b|1", entry(true))
	if _, ok, _ := c.Get(ctx, "a|a|1"); !ok {
		t.Fatalf("expected a present")
	}
	_ = c.Set(ctx, "c|c|1", entry(true))
	if _, ok, _ := c.Get(ctx, "b|b|1"); ok {
		t.Fatalf("expected b evicted")
	}
	stats, _ := c.Stats(ctx)
	if stats.Size != 2 || stats.Keys[0] != "a|a|1" || stats.Keys[1] != "c|c|1" {
		t.Fatalf("unexpected stats %+v", stats)
	}
}

func TestCache_InvalidateEquipment(t *testing.T) {
	ctx := context.Background()
	c, _ := newTestCache(10)
	_ = c.Set(ctx, "2025-06-01|2025-06-02|ex-1", entry(true))
	_ = c.Set(ctx, "2025-06-01|2025-06-02|ex-2", entry(true))
	_ = c.Set(ctx, "2025-06-01|2025-06-02|default", entry(true))
	removed, err := c.InvalidateEquipment(ctx, "ex-1")
	if err != nil {
		t.Fatalf("invalidate: %v", err)
	}
	if removed != 2 {
		t.Fatalf("expected unit and default keys removed, got %d", removed)
	}
	stats, _ := c.Stats(ctx)
	if stats.Size != 1 || stats.Keys[0] != "2025-06-01|2025-06-02|ex-2" {
		t.Fatalf("unexpected stats %+v", stats)
	}
}

func TestCache_ClearAndSweep(t *testing.T) {
	ctx := context.Background()
	c, clk := newTestCache(10)
	_ = c.Set(ctx, "old|old|1", entry(false))
	clk.Advance(3 * time.Minute)
	_ = c.Set(ctx, "new|new|1", entry(true))
	clk.Advance(3 * time.Minute)
	if removed := c.Sweep(); removed != 1 {
		t.Fatalf("expected one stale entry swept, got %d", removed)
	}
	if err := c.Clear(ctx); err != nil {
		t.Fatalf("clear: %v", err)
	}
	stats, _ := c.Stats(ctx)
	if stats.Size != 0 || len(stats.Keys) != 0 {
		t.Fatalf("expected empty cache, got %+v", stats)
	}
}

func TestCache_ReturnsCopies(t *testing.T) {
	ctx := context.Background()
	c, _ := newTestCache(10)
	e := entry(false)
	e.Result.Alternatives = []availability.Alternative{{Reason: "1 day later"}}
	_ = c.Set(ctx, "k|k|1", e)
	got, _, _ := c.Get(ctx, "k|k|1")
	got.Result.Alternatives[0].Reason = "mutated"
	again, _, _ := c.Get(ctx, "k|k|1")
	if again.Result.Alternatives[0].Reason != "1 day later" {
		t.Fatalf("cache entry leaked a shared slice")
	}
}
