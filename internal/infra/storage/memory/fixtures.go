package memory

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	domainbooking "equiprent/internal/domain/booking"
	domainequipment "equiprent/internal/domain/equipment"
	"equiprent/internal/domain/shared/daterange"
	"equiprent/internal/domain/shared/money"
)

type fixtureFile struct {
	Equipment []equipmentFixture `json:"equipment"`
	Bookings  []bookingFixture   `json:"bookings"`
}

type equipmentFixture struct {
	ID             string `json:"id"`
	Name           string `json:"name"`
	DailyRateCents int64  `json:"daily_rate_cents"`
	Currency       string `json:"currency"`
	CreatedAt      string `json:"created_at"`
}

type bookingFixture struct {
	ID          string `json:"id"`
	EquipmentID string `json:"equipment_id"`
	StartDate   string `json:"start_date"`
	EndDate     string `json:"end_date"`
	Status      string `json:"status"`
}

// LoadFixtures seeds the repositories from a JSON file. A missing file is not an error.
func LoadFixtures(ctx context.Context, path string, catalog *EquipmentRepository, bookings *BookingRepository, logger *slog.Logger) error {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			logger.Info("fixtures file not found, skipping", "path", path)
			return nil
		}
		return fmt.Errorf("read fixtures: %w", err)
	}
	if len(data) == 0 {
		logger.Warn("fixtures file empty", "path", path)
		return nil
	}
	var file fixtureFile
	if err := json.Unmarshal(data, &file); err != nil {
		return fmt.Errorf("decode fixtures: %w", err)
	}

	now := time.Now().UTC()
	for i, fx := range file.Equipment {
		currency := fx.Currency
		if currency == "" {
			currency = money.DefaultCurrency
		}
		rate, err := money.New(fx.DailyRateCents, currency)
		if err != nil {
			logger.Error("fixture equipment invalid", "equipment_id", fx.ID, "error", err)
			continue
		}
		// keep file order as catalog order when no timestamp is given
		created := parseFixtureTime(fx.CreatedAt, now.Add(time.Duration(i)*time.Second))
		if err := catalog.Save(ctx, &domainequipment.Equipment{ID: fx.ID, Name: fx.Name, DailyRate: rate, CreatedAt: created}); err != nil {
			logger.Error("cannot store fixture equipment", "equipment_id", fx.ID, "error", err)
			continue
		}
	}
	for _, fx := range file.Bookings {
		dr, err := daterange.Parse(fx.StartDate, fx.EndDate)
		if err != nil {
			logger.Error("fixture booking invalid", "booking_id", fx.ID, "error", err)
			continue
		}
		b := domainbooking.Booking{ID: fx.ID, EquipmentID: fx.EquipmentID, Range: dr, Status: domainbooking.ParseStatus(fx.Status)}
		if err := bookings.Save(ctx, b); err != nil {
			logger.Error("cannot store fixture booking", "booking_id", fx.ID, "error", err)
			continue
		}
	}
	logger.Info("fixtures imported", "equipment", len(file.Equipment), "bookings", len(file.Bookings))
	return nil
}

func parseFixtureTime(value string, fallback time.Time) time.Time {
	if strings.TrimSpace(value) == "" {
		return fallback
	}
	if t, err := time.Parse(time.RFC3339, value); err == nil {
		return t
	}
	return fallback
}
