package kafka

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"testing"
	"time"

	"github.com/IBM/sarama"

	"equiprent/internal/app/commands"
	availabilityapp "equiprent/internal/app/handlers/availability"
	"equiprent/internal/app/middleware"
	"equiprent/internal/app/outbox"
	domainavailability "equiprent/internal/domain/availability"
)

type sentRecord struct {
	topic, key string
	payload    []byte
	headers    map[string]string
}

type fakeProducer struct {
	sent []sentRecord
}

func (p *fakeProducer) Publish(ctx context.Context, topic, key string, payload []byte, headers map[string]string) error {
	p.sent = append(p.sent, sentRecord{topic: topic, key: key, payload: payload, headers: headers})
	return nil
}

func TestEventPublisher_CloudEventEnvelope(t *testing.T) {
	prod := &fakeProducer{}
	pub := &EventPublisher{Producer: prod, TopicPrefix: "staging.", Source: "app://equiprent/node-1"}
	rec, err := outbox.JSONEventEncoder{IDGenerator: func() string { return "evt-1" }}.Encode(domainavailability.CacheInvalidated{
		EquipmentID: "ex-200",
		Removed:     3,
		Source:      "app://equiprent/node-1",
		At:          time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC),
	})
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	if err := pub.Publish(context.Background(), rec); err != nil {
		t.Fatalf("publish: %v", err)
	}

	if len(prod.sent) != 1 {
		t.Fatalf("expected one record, got %d", len(prod.sent))
	}
	sent := prod.sent[0]
	if sent.topic != "staging.availability.events.v1" || sent.key != "ex-200" {
		t.Fatalf("unexpected routing %s/%s", sent.topic, sent.key)
	}
	if sent.headers["content-type"] != "application/cloudevents+json" {
		t.Fatalf("unexpected headers %v", sent.headers)
	}
	var evt struct {
		SpecVersion string `json:"specversion"`
		ID          string `json:"id"`
		Type        string `json:"type"`
		Data        struct {
			EquipmentID string `json:"equipment_id"`
			Removed     int    `json:"removed"`
		} `json:"data"`
	}
	if err := json.Unmarshal(sent.payload, &evt); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if evt.SpecVersion != "1.0" || evt.ID != "evt-1" || evt.Type != "availability.cache_invalidated.v1" {
		t.Fatalf("unexpected envelope %+v", evt)
	}
	if evt.Data.EquipmentID != "ex-200" || evt.Data.Removed != 3 {
		t.Fatalf("unexpected data %+v", evt.Data)
	}
}

func TestTopics(t *testing.T) {
	got := Topics("")
	if len(got) != 2 || got[0] != "booking.events.v1" || got[1] != "availability.events.v1" {
		t.Fatalf("unexpected topics %v", got)
	}
}

type recordingBus struct {
	cmds   []commands.Command
	actors []middleware.Actor
	err    error
}

func (b *recordingBus) Dispatch(ctx context.Context, cmd commands.Command) (any, error) {
	b.cmds = append(b.cmds, cmd)
	actor, _ := middleware.ActorFrom(ctx)
	b.actors = append(b.actors, actor)
	return nil, b.err
}

type memoryInbox struct {
	seen map[string]bool
}

func (i *memoryInbox) Seen(_ context.Context, id string) (bool, error) {
	if i.seen[id] {
		return true, nil
	}
	i.seen[id] = true
	return false, nil
}

func (i *memoryInbox) Forget(_ context.Context, id string) error {
	delete(i.seen, id)
	return nil
}

func message(t *testing.T, topic string, evt map[string]any) *sarama.ConsumerMessage {
	t.Helper()
	raw, err := json.Marshal(evt)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	return &sarama.ConsumerMessage{Topic: topic, Value: raw}
}

func TestInvalidationHandler_Routing(t *testing.T) {
	bus := &recordingBus{}
	h := &InvalidationHandler{Commands: bus, Source: "app://equiprent/self"}
	ctx := context.Background()

	msgs := []*sarama.ConsumerMessage{
		message(t, "booking.events.v1", map[string]any{"type": "booking.created.v1", "source": "app://bookings", "data": map[string]any{"equipment_id": "ex-200"}}),
		message(t, "availability.events.v1", map[string]any{"type": "availability.cache_invalidated.v1", "source": "app://equiprent/peer", "data": map[string]any{"equipment_id": "ex-300"}}),
		message(t, "availability.events.v1", map[string]any{"type": "availability.cache_cleared.v1", "source": "app://equiprent/peer", "data": map[string]any{}}),
		message(t, "availability.events.v1", map[string]any{"type": "availability.cache_cleared.v1", "source": "app://equiprent/self", "data": map[string]any{}}),
		message(t, "booking.events.v1", map[string]any{"type": "booking.created.v1", "source": "app://bookings", "data": map[string]any{}}),
		{Topic: "booking.events.v1", Value: []byte("not json")},
	}
	for _, msg := range msgs {
		if err := h.Handle(ctx, msg); err != nil {
			t.Fatalf("handle: %v", err)
		}
	}

	if len(bus.cmds) != 3 {
		t.Fatalf("expected three commands, got %d: %+v", len(bus.cmds), bus.cmds)
	}
	first, ok := bus.cmds[0].(availabilityapp.InvalidateEquipmentCommand)
	if !ok || first.EquipmentID != "ex-200" || first.Broadcast {
		t.Fatalf("unexpected first command %+v", bus.cmds[0])
	}
	if bus.cmds[2].Key() != "availability.clear_cache" {
		t.Fatalf("unexpected last command %+v", bus.cmds[2])
	}
	for _, actor := range bus.actors {
		if !actor.Admin {
			t.Fatalf("consumer commands must carry an admin actor")
		}
	}
}

func TestInvalidationHandler_InboxSkipsRedelivery(t *testing.T) {
	bus := &recordingBus{err: errors.New("bus down")}
	inbox := &memoryInbox{seen: map[string]bool{}}
	h := &InvalidationHandler{Commands: bus, Source: "app://equiprent/self", Inbox: inbox}
	ctx := context.Background()
	msg := message(t, "booking.events.v1", map[string]any{"id": "evt-1", "type": "booking.cancelled.v1", "source": "app://bookings", "data": map[string]any{"equipment_id": "ex-200"}})

	if err := h.Handle(ctx, msg); err == nil {
		t.Fatalf("expected dispatch error to surface")
	}
	if inbox.seen["evt-1"] {
		t.Fatalf("failed event must be forgotten so it can be retried")
	}

	bus.err = nil
	for i := 0; i < 2; i++ {
		if err := h.Handle(ctx, msg); err != nil {
			t.Fatalf("handle: %v", err)
		}
	}
	if len(bus.cmds) != 2 {
		t.Fatalf("expected the failed attempt plus one applied delivery, got %d", len(bus.cmds))
	}
}

type markingSession struct {
	sarama.ConsumerGroupSession
	ctx    context.Context
	marked []int64
}

func (s *markingSession) Context() context.Context { return s.ctx }

func (s *markingSession) MarkMessage(msg *sarama.ConsumerMessage, _ string) {
	s.marked = append(s.marked, msg.Offset)
}

type channelClaim struct {
	sarama.ConsumerGroupClaim
	messages chan *sarama.ConsumerMessage
}

func (c *channelClaim) Messages() <-chan *sarama.ConsumerMessage { return c.messages }

type failingHandler struct {
	failOffset int64
	calls      map[int64]int
}

func (h *failingHandler) Handle(_ context.Context, msg *sarama.ConsumerMessage) error {
	h.calls[msg.Offset]++
	if msg.Offset == h.failOffset {
		return errors.New("cache unreachable")
	}
	return nil
}

func TestConsumeClaim_StopsBeforeFailedOffset(t *testing.T) {
	claim := &channelClaim{messages: make(chan *sarama.ConsumerMessage, 5)}
	for offset := int64(0); offset < 5; offset++ {
		claim.messages <- &sarama.ConsumerMessage{Topic: "booking.events.v1", Offset: offset}
	}
	close(claim.messages)
	sess := &markingSession{ctx: context.Background()}
	handler := &failingHandler{failOffset: 2, calls: map[int64]int{}}
	h := consumerGroupHandler{handler: handler, logger: slog.Default(), attempts: 2, backoff: time.Millisecond}

	if err := h.ConsumeClaim(sess, claim); err == nil {
		t.Fatalf("expected the claim to give up on the failing message")
	}
	if len(sess.marked) != 2 || sess.marked[0] != 0 || sess.marked[1] != 1 {
		t.Fatalf("only offsets before the failure may be marked, got %v", sess.marked)
	}
	if handler.calls[2] != 2 {
		t.Fatalf("expected the failing message to be retried once, got %d calls", handler.calls[2])
	}
	if handler.calls[3] != 0 || handler.calls[4] != 0 {
		t.Fatalf("messages after the failure must wait for redelivery, got %v", handler.calls)
	}
}

func TestConsumeClaim_RetrySucceeds(t *testing.T) {
	claim := &channelClaim{messages: make(chan *sarama.ConsumerMessage, 1)}
	claim.messages <- &sarama.ConsumerMessage{Topic: "booking.events.v1", Offset: 7}
	close(claim.messages)
	sess := &markingSession{ctx: context.Background()}
	flaky := &flakyHandler{failures: 1}
	h := consumerGroupHandler{handler: flaky, logger: slog.Default(), attempts: 3, backoff: time.Millisecond}

	if err := h.ConsumeClaim(sess, claim); err != nil {
		t.Fatalf("consume: %v", err)
	}
	if len(sess.marked) != 1 || sess.marked[0] != 7 {
		t.Fatalf("expected offset 7 marked after the retry, got %v", sess.marked)
	}
}

type flakyHandler struct {
	failures int
}

func (h *flakyHandler) Handle(context.Context, *sarama.ConsumerMessage) error {
	if h.failures > 0 {
		h.failures--
		return errors.New("transient")
	}
	return nil
}
