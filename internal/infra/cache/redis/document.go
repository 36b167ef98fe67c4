package redis

import (
	"encoding/json"
	"time"

	"equiprent/internal/domain/availability"
	"equiprent/internal/domain/shared/daterange"
	"equiprent/internal/domain/shared/money"
)

type moneyDoc struct {
	Amount   int64  `json:"amount"`
	Currency string `json:"currency"`
}

type alternativeDoc struct {
	Start   string   `json:"start"`
	End     string   `json:"end"`
	Reason  string   `json:"reason"`
	Savings moneyDoc `json:"savings"`
}

type pricingDoc struct {
	DailyRate moneyDoc `json:"daily_rate"`
	Days      int      `json:"days"`
	Total     moneyDoc `json:"total"`
}

type entryDoc struct {
	EquipmentID       string           `json:"equipment_id"`
	Start             string           `json:"start"`
	End               string           `json:"end"`
	Available         bool             `json:"available"`
	Message           string           `json:"message"`
	Confidence        string           `json:"confidence"`
	Alternatives      []alternativeDoc `json:"alternatives,omitempty"`
	Pricing           *pricingDoc      `json:"pricing,omitempty"`
	NextAvailableDate string           `json:"next_available_date,omitempty"`
	StoredAt          time.Time        `json:"stored_at"`
	Detail            int              `json:"detail"`
	AlternativesLimit int              `json:"alternatives_limit"`
}

func toMoneyDoc(m money.Money) moneyDoc { return moneyDoc{Amount: m.Amount, Currency: m.Currency} }
func (d moneyDoc) money() money.Money   { return money.Money{Amount: d.Amount, Currency: d.Currency} }

func encodeEntry(e availability.Entry) ([]byte, error) {
	res := e.Result
	doc := entryDoc{
		EquipmentID:       res.EquipmentID,
		Start:             res.Range.StartString(),
		End:               res.Range.EndString(),
		Available:         res.Available,
		Message:           res.Message,
		Confidence:        string(res.Confidence),
		StoredAt:          e.StoredAt,
		Detail:            int(e.Detail),
		AlternativesLimit: e.AlternativesLimit,
	}
	for _, alt := range res.Alternatives {
		doc.Alternatives = append(doc.Alternatives, alternativeDoc{
			Start:   alt.Range.StartString(),
			End:     alt.Range.EndString(),
			Reason:  alt.Reason,
			Savings: toMoneyDoc(alt.Savings),
		})
	}
	if res.Pricing != nil {
		doc.Pricing = &pricingDoc{
			DailyRate: toMoneyDoc(res.Pricing.DailyRate),
			Days:      res.Pricing.Days,
			Total:     toMoneyDoc(res.Pricing.Total),
		}
	}
	if res.NextAvailableDate != nil {
		doc.NextAvailableDate = res.NextAvailableDate.Format(daterange.Layout)
	}
	return json.Marshal(doc)
}

func decodeEntry(raw []byte) (availability.Entry, error) {
	var doc entryDoc
	if err := json.Unmarshal(raw, &doc); err != nil {
		return availability.Entry{}, err
	}
	rng, err := daterange.Parse(doc.Start, doc.End)
	if err != nil {
		return availability.Entry{}, err
	}
	res := availability.Result{
		EquipmentID: doc.EquipmentID,
		Range:       rng,
		Available:   doc.Available,
		Message:     doc.Message,
		Confidence:  availability.Confidence(doc.Confidence),
	}
	for _, alt := range doc.Alternatives {
		altRange, err := daterange.Parse(alt.Start, alt.End)
		if err != nil {
			return availability.Entry{}, err
		}
		res.Alternatives = append(res.Alternatives, availability.Alternative{Range: altRange, Reason: alt.Reason, Savings: alt.Savings.money()})
	}
	if doc.Pricing != nil {
		res.Pricing = &availability.Pricing{
			DailyRate: doc.Pricing.DailyRate.money(),
			Days:      doc.Pricing.Days,
			Total:     doc.Pricing.Total.money(),
		}
	}
	if doc.NextAvailableDate != "" {
		next, err := daterange.ParseDate(doc.NextAvailableDate)
		if err != nil {
			return availability.Entry{}, err
		}
		res.NextAvailableDate = &next
	}
	return availability.Entry{
		Result:            res,
		StoredAt:          doc.StoredAt,
		Detail:            availability.Detail(doc.Detail),
		AlternativesLimit: doc.AlternativesLimit,
	}, nil
}
