package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	domainbooking "equiprent/internal/domain/booking"
	domainequipment "equiprent/internal/domain/equipment"
	"equiprent/internal/domain/shared/daterange"
	"equiprent/internal/domain/shared/money"
)

var tracer = otel.Tracer("equiprent/db/postgres")

const equipmentColumns = `id, name, (daily_rate * 100)::bigint, currency, created_at`

type EquipmentRepository struct {
	pool *Pool
}

func NewEquipmentRepository(pool *Pool) *EquipmentRepository {
	return &EquipmentRepository{pool: pool}
}

// Default returns the earliest-created unit.
func (r *EquipmentRepository) Default(ctx context.Context) (*domainequipment.Equipment, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+equipmentColumns+` FROM equipment ORDER BY created_at ASC, id ASC LIMIT 1`)
	eq, err := scanEquipment(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, domainequipment.ErrNoneConfigured
	}
	if err != nil {
		return nil, fmt.Errorf("default equipment: %w", err)
	}
	return eq, nil
}

func (r *EquipmentRepository) ByID(ctx context.Context, id string) (*domainequipment.Equipment, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+equipmentColumns+` FROM equipment WHERE id = $1`, id)
	eq, err := scanEquipment(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, domainequipment.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("equipment %s: %w", id, err)
	}
	return eq, nil
}

func scanEquipment(row pgx.Row) (*domainequipment.Equipment, error) {
	var (
		eq       domainequipment.Equipment
		cents    int64
		currency string
	)
	if err := row.Scan(&eq.ID, &eq.Name, &cents, &currency, &eq.CreatedAt); err != nil {
		return nil, err
	}
	eq.DailyRate = money.Money{Amount: cents, Currency: currency}
	return &eq, nil
}

type BookingRepository struct {
	pool *Pool
}

func NewBookingRepository(pool *Pool) *BookingRepository {
	return &BookingRepository{pool: pool}
}

// Conflicts selects blocking bookings by true range intersection.
func (r *BookingRepository) Conflicts(ctx context.Context, equipmentID string, dr daterange.DateRange) ([]domainbooking.Booking, error) {
	ctx, span := tracer.Start(ctx, "postgres.conflicts", trace.WithAttributes(
		attribute.String("db.system", "postgresql"),
		attribute.String("availability.equipment_id", equipmentID),
	))
	defer span.End()

	rows, err := r.pool.Query(ctx,
		`SELECT id, equipment_id, start_date, end_date, status
		 FROM bookings
		 WHERE equipment_id = $1
		   AND status <> 'cancelled'
		   AND start_date <= $3
		   AND end_date >= $2
		 ORDER BY start_date`,
		equipmentID, dr.Start, dr.End,
	)
	if err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("query conflicts: %w", err)
	}
	defer rows.Close()

	var out []domainbooking.Booking
	for rows.Next() {
		var (
			b          domainbooking.Booking
			start, end time.Time
			status     string
		)
		if err := rows.Scan(&b.ID, &b.EquipmentID, &start, &end, &status); err != nil {
			return nil, fmt.Errorf("scan booking: %w", err)
		}
		b.Range = daterange.DateRange{Start: daterange.Day(start), End: daterange.Day(end)}
		b.Status = domainbooking.ParseStatus(status)
		out = append(out, b)
	}
	if err := rows.Err(); err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("iterate conflicts: %w", err)
	}
	return out, nil
}

var (
	_ domainequipment.Catalog      = (*EquipmentRepository)(nil)
	_ domainbooking.ConflictReader = (*BookingRepository)(nil)
)
