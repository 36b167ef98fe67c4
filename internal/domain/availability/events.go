package availability

import "time"

// CacheInvalidated is raised when verdicts for a unit were dropped. Source names
// the instance or actor that dropped them so peers can skip their own events.
type CacheInvalidated struct {
	EquipmentID string    `json:"equipment_id"`
	Removed     int       `json:"removed"`
	Source      string    `json:"source"`
	At          time.Time `json:"at"`
}

func (e CacheInvalidated) EventName() string     { return "availability.cache_invalidated" }
func (e CacheInvalidated) AggregateID() string   { return e.EquipmentID }
func (e CacheInvalidated) OccurredAt() time.Time { return e.At }

type CacheCleared struct {
	Source string    `json:"source"`
	At     time.Time `json:"at"`
}

func (e CacheCleared) EventName() string     { return "availability.cache_cleared" }
func (e CacheCleared) AggregateID() string   { return "availability" }
func (e CacheCleared) OccurredAt() time.Time { return e.At }
