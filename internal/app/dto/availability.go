package dto

import (
	domainavailability "equiprent/internal/domain/availability"
	"equiprent/internal/domain/shared/daterange"
	"equiprent/internal/domain/shared/money"
)

type Money struct {
	AmountCents int64  `json:"amount_cents"`
	Currency    string `json:"currency"`
	Display     string `json:"display"`
}

type Alternative struct {
	StartDate string `json:"start_date"`
	EndDate   string `json:"end_date"`
	Reason    string `json:"reason"`
	Savings   Money  `json:"savings"`
}

type Pricing struct {
	DailyRate Money `json:"daily_rate"`
	Days      int   `json:"days"`
	Total     Money `json:"total"`
}

type Availability struct {
	EquipmentID       string        `json:"equipment_id,omitempty"`
	StartDate         string        `json:"start_date"`
	EndDate           string        `json:"end_date"`
	Available         bool          `json:"available"`
	Message           string        `json:"message"`
	Confidence        string        `json:"confidence"`
	Alternatives      []Alternative `json:"alternatives,omitempty"`
	Pricing           *Pricing      `json:"pricing,omitempty"`
	NextAvailableDate string        `json:"next_available_date,omitempty"`
}

type Suggestion struct {
	Title      string  `json:"title"`
	StartDate  string  `json:"start_date"`
	EndDate    string  `json:"end_date"`
	Reason     string  `json:"reason"`
	Savings    *Money  `json:"savings,omitempty"`
	Priority   string  `json:"priority"`
	Confidence float64 `json:"confidence"`
}

type Suggestions struct {
	Items []Suggestion `json:"items"`
}

type CacheStats struct {
	Size int      `json:"size"`
	Keys []string `json:"keys"`
}

type CacheInvalidation struct {
	EquipmentID string `json:"equipment_id,omitempty"`
	Removed     int    `json:"removed"`
	Cleared     bool   `json:"cleared"`
}

func MapMoney(m money.Money) Money {
	return Money{AmountCents: m.Amount, Currency: m.Currency, Display: m.String()}
}

func MapAvailability(res domainavailability.Result) Availability {
	out := Availability{
		EquipmentID: res.EquipmentID,
		StartDate:   res.Range.StartString(),
		EndDate:     res.Range.EndString(),
		Available:   res.Available,
		Message:     res.Message,
		Confidence:  string(res.Confidence),
	}
	if len(res.Alternatives) > 0 {
		out.Alternatives = make([]Alternative, 0, len(res.Alternatives))
		for _, alt := range res.Alternatives {
			out.Alternatives = append(out.Alternatives, Alternative{
				StartDate: alt.Range.StartString(),
				EndDate:   alt.Range.EndString(),
				Reason:    alt.Reason,
				Savings:   MapMoney(alt.Savings),
			})
		}
	}
	if res.Pricing != nil {
		out.Pricing = &Pricing{
			DailyRate: MapMoney(res.Pricing.DailyRate),
			Days:      res.Pricing.Days,
			Total:     MapMoney(res.Pricing.Total),
		}
	}
	if res.NextAvailableDate != nil {
		out.NextAvailableDate = res.NextAvailableDate.Format(daterange.Layout)
	}
	return out
}

func MapSuggestions(items []domainavailability.Suggestion) Suggestions {
	out := Suggestions{Items: make([]Suggestion, 0, len(items))}
	for _, s := range items {
		item := Suggestion{
			Title:      s.Title,
			StartDate:  s.Range.StartString(),
			EndDate:    s.Range.EndString(),
			Reason:     s.Reason,
			Priority:   string(s.Priority),
			Confidence: s.Confidence,
		}
		if !s.Savings.IsZero() {
			savings := MapMoney(s.Savings)
			item.Savings = &savings
		}
		out.Items = append(out.Items, item)
	}
	return out
}

func MapCacheStats(stats domainavailability.Stats) CacheStats {
	keys := stats.Keys
	if keys == nil {
		keys = []string{}
	}
	return CacheStats{Size: stats.Size, Keys: keys}
}
