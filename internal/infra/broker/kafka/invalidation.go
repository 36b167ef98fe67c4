package kafka

import (
	"context"
	"encoding/json"
	"log/slog"
	"strings"

	"github.com/IBM/sarama"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/propagation"

	"equiprent/internal/app/commands"
	"equiprent/internal/app/dto"
	availabilityapp "equiprent/internal/app/handlers/availability"
	"equiprent/internal/app/middleware"
)

const (
	typeCacheInvalidated = "availability.cache_invalidated.v1"
	typeCacheCleared     = "availability.cache_cleared.v1"
	bookingTypePrefix    = "booking."
)

type envelope struct {
	ID     string          `json:"id"`
	Type   string          `json:"type"`
	Source string          `json:"source"`
	Data   json.RawMessage `json:"data"`
}

type equipmentData struct {
	EquipmentID string `json:"equipment_id"`
}

// Inbox deduplicates redelivered events by id.
type Inbox interface {
	Seen(ctx context.Context, eventID string) (bool, error)
	Forget(ctx context.Context, eventID string) error
}

// InvalidationHandler turns booking events and peer cache events into local
// cache invalidations. Events this instance published itself are ignored.
type InvalidationHandler struct {
	Commands commands.Bus
	Source   string
	Logger   *slog.Logger
	// Inbox is optional; without it every delivery is applied.
	Inbox    Inbox
}

// Topics lists what the handler consumes for the given prefix.
func Topics(prefix string) []string {
	return []string{TopicFor(prefix, "booking"), TopicFor(prefix, "availability")}
}

func (h *InvalidationHandler) Handle(ctx context.Context, msg *sarama.ConsumerMessage) error {
	ctx = otel.GetTextMapPropagator().Extract(ctx, headerCarrier(msg.Headers))
	ctx = middleware.WithActor(ctx, middleware.Actor{Name: "kafka:" + msg.Topic, Admin: true})

	var evt envelope
	if err := json.Unmarshal(msg.Value, &evt); err != nil {
		h.logger().Warn("skipping malformed event", "topic", msg.Topic, "offset", msg.Offset, "error", err)
		return nil
	}
	if evt.Source != "" && evt.Source == h.Source {
		return nil
	}
	if h.Inbox != nil && evt.ID != "" {
		seen, err := h.Inbox.Seen(ctx, evt.ID)
		if err != nil {
			return err
		}
		if seen {
			h.logger().Debug("skipping duplicate event", "id", evt.ID, "type", evt.Type)
			return nil
		}
	}
	if err := h.apply(ctx, msg, evt); err != nil {
		if h.Inbox != nil && evt.ID != "" {
			if ferr := h.Inbox.Forget(ctx, evt.ID); ferr != nil {
				h.logger().Warn("inbox forget failed", "id", evt.ID, "error", ferr)
			}
		}
		return err
	}
	return nil
}

func (h *InvalidationHandler) apply(ctx context.Context, msg *sarama.ConsumerMessage, evt envelope) error {
	switch {
	case evt.Type == typeCacheCleared:
		_, err := commands.Dispatch[availabilityapp.ClearCacheCommand, dto.CacheInvalidation](ctx, h.Commands,
			availabilityapp.ClearCacheCommand{Source: evt.Source})
		return err
	case evt.Type == typeCacheInvalidated, strings.HasPrefix(evt.Type, bookingTypePrefix):
		var data equipmentData
		if err := json.Unmarshal(evt.Data, &data); err != nil || data.EquipmentID == "" {
			h.logger().Warn("event without equipment id", "type", evt.Type, "topic", msg.Topic, "offset", msg.Offset)
			return nil
		}
		_, err := commands.Dispatch[availabilityapp.InvalidateEquipmentCommand, dto.CacheInvalidation](ctx, h.Commands,
			availabilityapp.InvalidateEquipmentCommand{EquipmentID: data.EquipmentID, Source: evt.Source})
		return err
	default:
		h.logger().Debug("ignoring event", "type", evt.Type, "topic", msg.Topic)
		return nil
	}
}

func (h *InvalidationHandler) logger() *slog.Logger {
	if h.Logger != nil {
		return h.Logger
	}
	return slog.Default()
}

func headerCarrier(headers []*sarama.RecordHeader) propagation.MapCarrier {
	carrier := propagation.MapCarrier{}
	for _, hdr := range headers {
		if hdr != nil {
			carrier[string(hdr.Key)] = string(hdr.Value)
		}
	}
	return carrier
}

var _ MessageHandler = (*InvalidationHandler)(nil)
