package availability

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"equiprent/internal/app/commands"
	"equiprent/internal/app/dto"
	"equiprent/internal/app/outbox"
	availabilitysvc "equiprent/internal/app/services/availability"
	domainavailability "equiprent/internal/domain/availability"
)

var ErrInvalidInput = errors.New("availability: invalid input")

const (
	clearCacheKey          = "availability.clear_cache"
	invalidateEquipmentKey = "availability.invalidate_equipment"
)

// ClearCacheCommand drops every cached verdict. Broadcast asks peers to do the same.
type ClearCacheCommand struct {
	Source    string
	Broadcast bool
}

func (c ClearCacheCommand) Key() string { return clearCacheKey }

// InvalidateEquipmentCommand drops verdicts that may involve one unit.
type InvalidateEquipmentCommand struct {
	EquipmentID string
	Source      string
	Broadcast   bool
}

func (c InvalidateEquipmentCommand) Key() string { return invalidateEquipmentKey }

func (c InvalidateEquipmentCommand) Validate() error {
	if strings.TrimSpace(c.EquipmentID) == "" {
		return fmt.Errorf("%w: equipment id is required", ErrInvalidInput)
	}
	return nil
}

type ClearCacheHandler struct {
	Service *availabilitysvc.Service
	Events  *outbox.Buffer
	Now     func() time.Time
}

func (h *ClearCacheHandler) Handle(ctx context.Context, cmd ClearCacheCommand) (dto.CacheInvalidation, error) {
	if err := h.Service.ClearCache(ctx); err != nil {
		return dto.CacheInvalidation{}, fmt.Errorf("clear cache: %w", err)
	}
	if cmd.Broadcast {
		ev := domainavailability.CacheCleared{Source: cmd.Source, At: now(h.Now)}
		if err := h.Events.Record(ctx, ev); err != nil {
			return dto.CacheInvalidation{}, err
		}
	}
	return dto.CacheInvalidation{Cleared: true}, nil
}

type InvalidateEquipmentHandler struct {
	Service *availabilitysvc.Service
	Events  *outbox.Buffer
	Now     func() time.Time
}

func (h *InvalidateEquipmentHandler) Handle(ctx context.Context, cmd InvalidateEquipmentCommand) (dto.CacheInvalidation, error) {
	removed, err := h.Service.InvalidateEquipment(ctx, cmd.EquipmentID)
	if err != nil {
		return dto.CacheInvalidation{}, fmt.Errorf("invalidate %s: %w", cmd.EquipmentID, err)
	}
	if cmd.Broadcast {
		ev := domainavailability.CacheInvalidated{EquipmentID: cmd.EquipmentID, Removed: removed, Source: cmd.Source, At: now(h.Now)}
		if err := h.Events.Record(ctx, ev); err != nil {
			return dto.CacheInvalidation{}, err
		}
	}
	return dto.CacheInvalidation{EquipmentID: cmd.EquipmentID, Removed: removed}, nil
}

func now(fn func() time.Time) time.Time {
	if fn != nil {
		return fn().UTC()
	}
	return time.Now().UTC()
}

var (
	_ commands.Handler[ClearCacheCommand, dto.CacheInvalidation]          = (*ClearCacheHandler)(nil)
	_ commands.Handler[InvalidateEquipmentCommand, dto.CacheInvalidation] = (*InvalidateEquipmentHandler)(nil)
)
