package availability

import (
	"context"
	"fmt"

	"equiprent/internal/app/dto"
	"equiprent/internal/app/queries"
	availabilitysvc "equiprent/internal/app/services/availability"
	"equiprent/internal/domain/shared/daterange"
)

const (
	checkAvailabilityKey = "availability.check"
	smartSuggestionsKey  = "availability.suggestions"
	cacheStatsKey        = "availability.cache_stats"
)

type CheckAvailabilityQuery struct {
	StartDate           string
	EndDate             string
	EquipmentID         string
	IncludeAlternatives bool
	MaxAlternatives     int
	IncludePricing      bool
}

func (q CheckAvailabilityQuery) Key() string { return checkAvailabilityKey }

func (q CheckAvailabilityQuery) Validate() error {
	if _, err := daterange.Parse(q.StartDate, q.EndDate); err != nil {
		return err
	}
	if q.MaxAlternatives < 0 {
		return fmt.Errorf("%w: max_alternatives must not be negative", ErrInvalidInput)
	}
	return nil
}

type CheckAvailabilityHandler struct {
	Service *availabilitysvc.Service
}

func (h *CheckAvailabilityHandler) Handle(ctx context.Context, q CheckAvailabilityQuery) (dto.Availability, error) {
	res, err := h.Service.CheckAvailability(ctx, q.StartDate, q.EndDate, availabilitysvc.Options{
		EquipmentID:         q.EquipmentID,
		IncludeAlternatives: q.IncludeAlternatives,
		MaxAlternatives:     q.MaxAlternatives,
		IncludePricing:      q.IncludePricing,
	})
	if err != nil {
		return dto.Availability{}, err
	}
	return dto.MapAvailability(res), nil
}

type SmartSuggestionsQuery struct {
	Preferences availabilitysvc.Preferences
}

func (q SmartSuggestionsQuery) Key() string { return smartSuggestionsKey }

func (q SmartSuggestionsQuery) Validate() error {
	if q.Preferences.MaxSuggestions < 0 {
		return fmt.Errorf("%w: max must not be negative", ErrInvalidInput)
	}
	return nil
}

type SmartSuggestionsHandler struct {
	Service *availabilitysvc.Service
}

func (h *SmartSuggestionsHandler) Handle(ctx context.Context, q SmartSuggestionsQuery) (dto.Suggestions, error) {
	return dto.MapSuggestions(h.Service.SmartSuggestions(ctx, q.Preferences)), nil
}

type CacheStatsQuery struct{}

func (CacheStatsQuery) Key() string { return cacheStatsKey }

type CacheStatsHandler struct {
	Service *availabilitysvc.Service
}

func (h *CacheStatsHandler) Handle(ctx context.Context, _ CacheStatsQuery) (dto.CacheStats, error) {
	stats, err := h.Service.CacheStats(ctx)
	if err != nil {
		return dto.CacheStats{}, fmt.Errorf("cache stats: %w", err)
	}
	return dto.MapCacheStats(stats), nil
}

var (
	_ queries.Handler[CheckAvailabilityQuery, dto.Availability] = (*CheckAvailabilityHandler)(nil)
	_ queries.Handler[SmartSuggestionsQuery, dto.Suggestions]   = (*SmartSuggestionsHandler)(nil)
	_ queries.Handler[CacheStatsQuery, dto.CacheStats]          = (*CacheStatsHandler)(nil)
)
