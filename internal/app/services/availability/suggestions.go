package availability

import (
	"context"
	"time"

	domainavailability "equiprent/internal/domain/availability"
	"equiprent/internal/domain/shared/daterange"
	"equiprent/internal/domain/shared/money"
)

const DefaultMaxSuggestions = 5

type Preferences struct {
	IncludeWeekend  bool
	IncludeMidweek  bool
	IncludeExtended bool
	MaxSuggestions  int
	EquipmentID     string
}

func DefaultPreferences() Preferences {
	return Preferences{
		IncludeWeekend:  true,
		IncludeMidweek:  true,
		IncludeExtended: true,
		MaxSuggestions:  DefaultMaxSuggestions,
	}
}

// SmartSuggestions proposes generic rental windows and keeps the free ones,
// ordered by priority then confidence. A candidate whose check could not be
// completed is dropped.
func (s *Service) SmartSuggestions(ctx context.Context, prefs Preferences) []domainavailability.Suggestion {
	limit := prefs.MaxSuggestions
	if limit <= 0 {
		limit = DefaultMaxSuggestions
	}
	out := make([]domainavailability.Suggestion, 0, limit)
	for _, c := range s.suggestionCandidates(prefs) {
		if len(out) >= limit {
			break
		}
		res := s.Check(ctx, c.Range, Options{EquipmentID: prefs.EquipmentID})
		if res.Confidence != domainavailability.ConfidenceHigh {
			s.logger().Debug("suggestion dropped, check incomplete", "title", c.Title, "range", c.Range.String())
			continue
		}
		if res.Available {
			out = append(out, c)
		}
	}
	domainavailability.SortSuggestions(out)
	return out
}

func (s *Service) suggestionCandidates(prefs Preferences) []domainavailability.Suggestion {
	today := s.today()
	var out []domainavailability.Suggestion
	if prefs.IncludeWeekend {
		sat := nextWeekday(today, time.Saturday)
		out = append(out, domainavailability.Suggestion{
			Title:      "Next Weekend",
			Range:      daterange.DateRange{Start: sat, End: sat.AddDate(0, 0, 1)},
			Reason:     "Perfect for weekend projects",
			Priority:   domainavailability.PriorityHigh,
			Confidence: 0.9,
		})
	}
	if prefs.IncludeMidweek {
		start := today.AddDate(0, 0, 2)
		if wd := start.Weekday(); wd != time.Saturday && wd != time.Sunday {
			out = append(out, domainavailability.Suggestion{
				Title:      "Mid-Week Special",
				Range:      daterange.DateRange{Start: start, End: start.AddDate(0, 0, 2)},
				Reason:     "Lower demand mid-week",
				Savings:    money.Dollars(50, money.DefaultCurrency),
				Priority:   domainavailability.PriorityMedium,
				Confidence: 0.8,
			})
		}
	}
	if prefs.IncludeExtended {
		fri := nextWeekday(today, time.Friday)
		out = append(out, domainavailability.Suggestion{
			Title:      "Extended Weekend",
			Range:      daterange.DateRange{Start: fri, End: fri.AddDate(0, 0, 3)},
			Reason:     "Extra time for bigger jobs",
			Priority:   domainavailability.PriorityMedium,
			Confidence: 0.7,
		})
	}
	return out
}

// nextWeekday returns the first date strictly after from that falls on wd.
func nextWeekday(from time.Time, wd time.Weekday) time.Time {
	days := (int(wd) - int(from.Weekday()) + 7) % 7
	if days == 0 {
		days = 7
	}
	return from.AddDate(0, 0, days)
}
