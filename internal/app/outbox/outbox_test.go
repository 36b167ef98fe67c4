package outbox

import (
	"context"
	"testing"
	"time"

	domainavailability "equiprent/internal/domain/availability"
)

type recordingPublisher struct {
	records []EventRecord
}

func (p *recordingPublisher) Publish(ctx context.Context, rec EventRecord) error {
	p.records = append(p.records, rec)
	return nil
}

func TestBuffer_HoldsEventsUntilFlush(t *testing.T) {
	pub := &recordingPublisher{}
	box := &Buffer{Publisher: pub, Encoder: JSONEventEncoder{IDGenerator: func() string { return "evt-1" }}}
	ctx := box.Begin(context.Background())

	ev := domainavailability.CacheInvalidated{EquipmentID: "ex-200", Source: "admin", At: time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)}
	if err := box.Record(ctx, ev); err != nil {
		t.Fatalf("record: %v", err)
	}
	if len(pub.records) != 0 {
		t.Fatalf("expected events to wait for flush")
	}
	if err := box.Flush(ctx); err != nil {
		t.Fatalf("flush: %v", err)
	}
	if len(pub.records) != 1 {
		t.Fatalf("expected one published event, got %d", len(pub.records))
	}
	rec := pub.records[0]
	if rec.ID != "evt-1" || rec.Name != "availability.cache_invalidated" || rec.Aggregate != "ex-200" {
		t.Fatalf("unexpected record %+v", rec)
	}
	if err := box.Flush(ctx); err != nil || len(pub.records) != 1 {
		t.Fatalf("flush must not republish")
	}
}

func TestBuffer_PublishesImmediatelyOutsideScope(t *testing.T) {
	pub := &recordingPublisher{}
	box := &Buffer{Publisher: pub}
	if err := box.Record(context.Background(), domainavailability.CacheCleared{Source: "admin"}); err != nil {
		t.Fatalf("record: %v", err)
	}
	if len(pub.records) != 1 {
		t.Fatalf("expected immediate publish")
	}
}
