package availability

import (
	"time"

	"equiprent/internal/domain/shared/daterange"
	"equiprent/internal/domain/shared/money"
)

type Confidence string

const (
	ConfidenceHigh Confidence = "high"
	ConfidenceLow  Confidence = "low"
)

const (
	MessageAvailable     = "Equipment is available for the selected dates"
	MessageUnavailable   = "Equipment is not available for the selected dates"
	MessageNotConfigured = "No equipment is configured for rental. Please contact support."
	MessageCheckFailed   = "Unable to check availability. Please try again."
)

// Result is the verdict for one requested range and unit.
type Result struct {
	EquipmentID       string
	Range             daterange.DateRange
	Available         bool
	Message           string
	Alternatives      []Alternative
	Pricing           *Pricing
	NextAvailableDate *time.Time
	Confidence        Confidence
}

// Alternative is a same-duration range that was verified free.
type Alternative struct {
	Range   daterange.DateRange
	Reason  string
	Savings money.Money
}

type Pricing struct {
	DailyRate money.Money
	Days      int
	Total     money.Money
}

// Unverified builds the low-confidence answer returned when no verdict could be reached.
func Unverified(r daterange.DateRange, message string) Result {
	return Result{Range: r, Available: false, Message: message, Confidence: ConfidenceLow}
}

// Verdict builds the high-confidence answer of a successful conflict read.
func Verdict(r daterange.DateRange, equipmentID string, available bool) Result {
	msg := MessageUnavailable
	if available {
		msg = MessageAvailable
	}
	return Result{EquipmentID: equipmentID, Range: r, Available: available, Message: msg, Confidence: ConfidenceHigh}
}

// Copy returns a result that shares no slices or pointers with r.
func (r Result) Copy() Result {
	clone := r
	clone.Alternatives = append([]Alternative(nil), r.Alternatives...)
	if r.Pricing != nil {
		p := *r.Pricing
		clone.Pricing = &p
	}
	if r.NextAvailableDate != nil {
		d := *r.NextAvailableDate
		clone.NextAvailableDate = &d
	}
	return clone
}
