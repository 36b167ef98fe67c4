package redis

import (
	"context"
	"os"
	"reflect"
	"testing"
	"time"

	"equiprent/internal/domain/availability"
	"equiprent/internal/domain/shared/daterange"
	"equiprent/internal/domain/shared/money"
)

func TestEntryDocument_KeepsSearchState(t *testing.T) {
	rng, _ := daterange.Parse("2025-06-10", "2025-06-11")
	next, _ := daterange.ParseDate("2025-06-13")
	res := availability.Verdict(rng, "ex-200", false)
	res.Alternatives = []availability.Alternative{{Range: rng.Shift(3), Reason: "3 days later", Savings: money.Dollars(15, "CAD")}}
	res.NextAvailableDate = &next
	entry := availability.Entry{
		Result:            res,
		StoredAt:          time.Date(2025, 5, 1, 9, 0, 0, 0, time.UTC),
		Detail:            availability.DetailFull,
		AlternativesLimit: 3,
	}

	raw, err := encodeEntry(entry)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	got, err := decodeEntry(raw)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if !reflect.DeepEqual(got, entry) {
		t.Fatalf("entry changed:\nwant %+v\ngot  %+v", entry, got)
	}
	if !got.Covers(true, 3, false) || got.Covers(true, 5, false) {
		t.Fatalf("decoded entry must keep its alternatives limit")
	}
}

// TestCache_AgainstServer runs only when REDIS_TEST_ADDR points at a disposable server.
func TestCache_AgainstServer(t *testing.T) {
	addr := os.Getenv("REDIS_TEST_ADDR")
	if addr == "" {
		t.Skip("REDIS_TEST_ADDR not set")
	}
	ctx := context.Background()
	client := NewClient(addr, "", 0)
	t.Cleanup(func() { _ = client.Close() })
	cache := NewCache(client, time.Minute)
	cache.Prefix = "equiprent:test:" + t.Name() + ":"
	t.Cleanup(func() { _ = cache.Clear(ctx) })

	rng, _ := daterange.Parse("2025-06-01", "2025-06-02")
	for _, id := range []string{"", "ex-200", "ex-300"} {
		key := availability.CacheKey(rng, id)
		if err := cache.Set(ctx, key, availability.Entry{Result: availability.Verdict(rng, "ex-200", true)}); err != nil {
			t.Fatalf("set %s: %v", key, err)
		}
	}
	if _, ok, err := cache.Get(ctx, availability.CacheKey(rng, "ex-300")); err != nil || !ok {
		t.Fatalf("expected hit, got ok=%v err=%v", ok, err)
	}
	removed, err := cache.InvalidateEquipment(ctx, "ex-200")
	if err != nil {
		t.Fatalf("invalidate: %v", err)
	}
	if removed != 2 {
		t.Fatalf("expected unit and default keys removed, got %d", removed)
	}
	stats, err := cache.Stats(ctx)
	if err != nil {
		t.Fatalf("stats: %v", err)
	}
	if stats.Size != 1 || stats.Keys[0] != "2025-06-01|2025-06-02|ex-300" {
		t.Fatalf("unexpected stats %+v", stats)
	}
}
