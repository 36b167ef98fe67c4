package booking

import (
	"context"
	"strings"

	"equiprent/internal/domain/shared/daterange"
)

type Status string

const (
	StatusPending   Status = "pending"
	StatusConfirmed Status = "confirmed"
	StatusActive    Status = "active"
	StatusCompleted Status = "completed"
	StatusCancelled Status = "cancelled"
)

// ParseStatus normalizes a stored status value; unknown values are kept as-is.
func ParseStatus(raw string) Status {
	return Status(strings.ToLower(strings.TrimSpace(raw)))
}

// Booking is the read-only projection of a reservation used for conflict checks.
type Booking struct {
	ID          string
	EquipmentID string
	Range       daterange.DateRange
	Status      Status
}

// Blocks reports whether the booking occupies any day of r.
// Cancelled bookings never block.
func (b Booking) Blocks(r daterange.DateRange) bool {
	if b.Status == StatusCancelled {
		return false
	}
	return b.Range.Overlaps(r)
}

// ConflictReader returns the non-cancelled bookings of a unit that intersect r.
type ConflictReader interface {
	Conflicts(ctx context.Context, equipmentID string, r daterange.DateRange) ([]Booking, error)
}

// Blocking filters rows down to those that actually block r.
func Blocking(rows []Booking, r daterange.DateRange) []Booking {
	var out []Booking
	for _, b := range rows {
		if b.Blocks(r) {
			out = append(out, b)
		}
	}
	return out
}
