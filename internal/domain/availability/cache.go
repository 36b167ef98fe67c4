package availability

import (
	"context"
	"strings"
	"time"

	"equiprent/internal/domain/shared/daterange"
)

// DefaultEquipmentKey stands in for the unit when the caller did not name one.
const DefaultEquipmentKey = "default"

const keySeparator = "|"

// CacheKey identifies a cached verdict by requested range and unit.
func CacheKey(r daterange.DateRange, equipmentID string) string {
	if equipmentID == "" {
		equipmentID = DefaultEquipmentKey
	}
	return r.StartString() + keySeparator + r.EndString() + keySeparator + equipmentID
}

// KeyEquipment extracts the unit part of a cache key.
func KeyEquipment(key string) string {
	idx := strings.LastIndex(key, keySeparator)
	if idx < 0 {
		return ""
	}
	return key[idx+1:]
}

// MatchesEquipment reports whether a key must be dropped when equipmentID changes.
// Keys cached under the default unit are always dropped since the default may be that unit.
func MatchesEquipment(key, equipmentID string) bool {
	unit := KeyEquipment(key)
	return unit == equipmentID || unit == DefaultEquipmentKey
}

type Detail int

const (
	// DetailVerdict entries only carry the conflict verdict.
	DetailVerdict Detail = iota
	// DetailFull entries also carry the next-date search and, when
	// AlternativesLimit > 0, the alternative search.
	DetailFull
)

type Entry struct {
	Result            Result
	StoredAt          time.Time
	Detail            Detail
	AlternativesLimit int
}

// Covers reports whether the entry can answer a request without further searches.
func (e Entry) Covers(includeAlternatives bool, maxAlternatives int, includePricing bool) bool {
	if includePricing && e.Result.Pricing == nil {
		return false
	}
	if e.Result.Available {
		return true
	}
	if e.Detail < DetailFull {
		return false
	}
	if includeAlternatives && e.AlternativesLimit < maxAlternatives {
		return false
	}
	return true
}

type Stats struct {
	Size int
	Keys []string
}

// Cache stores verdicts. Implementations decide staleness on read using their TTL.
type Cache interface {
	Get(ctx context.Context, key string) (Entry, bool, error)
	Set(ctx context.Context, key string, entry Entry) error
	InvalidateEquipment(ctx context.Context, equipmentID string) (int, error)
	Clear(ctx context.Context) error
	Stats(ctx context.Context) (Stats, error)
}
