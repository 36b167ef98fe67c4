package outbox

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"

	"equiprent/internal/domain/shared/events"
)

type EventRecord struct {
	ID         string
	Name       string
	Payload    []byte
	OccurredAt time.Time
	Aggregate  string
	Headers    map[string]string
}

// Publisher delivers encoded events to the broker.
type Publisher interface {
	Publish(ctx context.Context, rec EventRecord) error
}

type EventEncoder interface {
	Encode(ev events.DomainEvent) (EventRecord, error)
}

type JSONEventEncoder struct {
	IDGenerator func() string
}

func (e JSONEventEncoder) Encode(ev events.DomainEvent) (EventRecord, error) {
	payload, err := json.Marshal(ev)
	if err != nil {
		return EventRecord{}, err
	}
	idGen := e.IDGenerator
	if idGen == nil {
		idGen = uuid.NewString
	}
	return EventRecord{
		ID:         idGen(),
		Name:       ev.EventName(),
		Payload:    payload,
		OccurredAt: ev.OccurredAt(),
		Aggregate:  ev.AggregateID(),
		Headers:    map[string]string{},
	}, nil
}

// Buffer collects the events a command records and hands them to the publisher
// once the command has succeeded. With no publisher configured, events are dropped.
type Buffer struct {
	Publisher Publisher
	Encoder   EventEncoder
}

type pending struct {
	mu      sync.Mutex
	records []EventRecord
}

type pendingKey struct{}

// Begin scopes a fresh pending set to ctx.
func (b *Buffer) Begin(ctx context.Context) context.Context {
	return context.WithValue(ctx, pendingKey{}, &pending{})
}

// Record encodes evs. Outside a Begin scope they are published immediately.
func (b *Buffer) Record(ctx context.Context, evs ...events.DomainEvent) error {
	if b == nil || len(evs) == 0 {
		return nil
	}
	encoder := b.Encoder
	if encoder == nil {
		encoder = JSONEventEncoder{}
	}
	recs := make([]EventRecord, 0, len(evs))
	for _, ev := range evs {
		rec, err := encoder.Encode(ev)
		if err != nil {
			return err
		}
		recs = append(recs, rec)
	}
	if p, ok := ctx.Value(pendingKey{}).(*pending); ok {
		p.mu.Lock()
		p.records = append(p.records, recs...)
		p.mu.Unlock()
		return nil
	}
	return b.publish(ctx, recs)
}

// Flush publishes and forgets the events pending in ctx.
func (b *Buffer) Flush(ctx context.Context) error {
	p, ok := ctx.Value(pendingKey{}).(*pending)
	if !ok {
		return nil
	}
	p.mu.Lock()
	recs := p.records
	p.records = nil
	p.mu.Unlock()
	return b.publish(ctx, recs)
}

func (b *Buffer) publish(ctx context.Context, recs []EventRecord) error {
	if b.Publisher == nil {
		return nil
	}
	var errs []error
	for _, rec := range recs {
		if err := b.Publisher.Publish(ctx, rec); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
