package kafka

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"github.com/google/uuid"

	"equiprent/internal/app/outbox"
)

const DefaultSource = "app://equiprent"

// RecordProducer is the transport the publisher writes to.
type RecordProducer interface {
	Publish(ctx context.Context, topic string, key string, payload []byte, headers map[string]string) error
}

// EventPublisher wraps event records in CloudEvents JSON and routes them to
// "<prefix><aggregate>.events.v1", where aggregate is the event name up to the first dot.
type EventPublisher struct {
	Producer    RecordProducer
	TopicPrefix string
	Source      string
}

func (p *EventPublisher) Publish(ctx context.Context, rec outbox.EventRecord) error {
	payload, headers, err := p.formatPayload(rec)
	if err != nil {
		return err
	}
	return p.Producer.Publish(ctx, p.topicFor(rec.Name), rec.Aggregate, payload, headers)
}

type cloudEvent struct {
	SpecVersion     string          `json:"specversion"`
	ID              string          `json:"id"`
	Type            string          `json:"type"`
	Source          string          `json:"source"`
	Time            time.Time       `json:"time"`
	DataContentType string          `json:"datacontenttype"`
	Data            json.RawMessage `json:"data"`
}

func (p *EventPublisher) formatPayload(rec outbox.EventRecord) ([]byte, map[string]string, error) {
	id := rec.ID
	if id == "" {
		id = uuid.NewString()
	}
	evt := cloudEvent{
		SpecVersion:     "1.0",
		ID:              id,
		Type:            rec.Name + ".v1",
		Source:          p.source(),
		Time:            rec.OccurredAt,
		DataContentType: "application/json",
		Data:            rec.Payload,
	}
	payload, err := json.Marshal(evt)
	if err != nil {
		return nil, nil, err
	}
	headers := map[string]string{"content-type": "application/cloudevents+json"}
	for k, v := range rec.Headers {
		headers[k] = v
	}
	return payload, headers, nil
}

func (p *EventPublisher) topicFor(name string) string {
	return TopicFor(p.TopicPrefix, name)
}

// TopicFor maps an event name such as "booking.created" to "booking.events.v1".
func TopicFor(prefix, name string) string {
	base := name
	if idx := strings.IndexRune(name, '.'); idx > 0 {
		base = name[:idx]
	}
	return prefix + base + ".events.v1"
}

func (p *EventPublisher) source() string {
	if p.Source != "" {
		return p.Source
	}
	return DefaultSource
}

var _ outbox.Publisher = (*EventPublisher)(nil)
