package availability

import (
	"sort"

	"equiprent/internal/domain/shared/daterange"
	"equiprent/internal/domain/shared/money"
)

type Priority string

const (
	PriorityHigh   Priority = "high"
	PriorityMedium Priority = "medium"
	PriorityLow    Priority = "low"
)

func (p Priority) rank() int {
	switch p {
	case PriorityHigh:
		return 3
	case PriorityMedium:
		return 2
	case PriorityLow:
		return 1
	default:
		return 0
	}
}

// Suggestion is a generically attractive rental window.
type Suggestion struct {
	Title      string
	Range      daterange.DateRange
	Reason     string
	Savings    money.Money
	Priority   Priority
	Confidence float64
}

// SortSuggestions orders by priority tier, then confidence, both descending.
// Equal suggestions keep their relative order.
func SortSuggestions(items []Suggestion) {
	sort.SliceStable(items, func(i, j int) bool {
		ri, rj := items[i].Priority.rank(), items[j].Priority.rank()
		if ri != rj {
			return ri > rj
		}
		return items[i].Confidence > items[j].Confidence
	})
}
