package mongo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	domainbooking "equiprent/internal/domain/booking"
	domainequipment "equiprent/internal/domain/equipment"
	"equiprent/internal/domain/shared/daterange"
	"equiprent/internal/domain/shared/money"
)

type equipmentDocument struct {
	ID             string    `bson:"_id"`
	Name           string    `bson:"name"`
	DailyRateCents int64     `bson:"daily_rate_cents"`
	Currency       string    `bson:"currency"`
	CreatedAt      time.Time `bson:"created_at"`
}

func (d equipmentDocument) toDomain() *domainequipment.Equipment {
	currency := d.Currency
	if currency == "" {
		currency = money.DefaultCurrency
	}
	return &domainequipment.Equipment{
		ID:        d.ID,
		Name:      d.Name,
		DailyRate: money.Money{Amount: d.DailyRateCents, Currency: currency},
		CreatedAt: d.CreatedAt.UTC(),
	}
}

type EquipmentRepository struct {
	col *mongo.Collection
}

func NewEquipmentRepository(db *mongo.Database) *EquipmentRepository {
	return &EquipmentRepository{col: db.Collection(equipmentCollection)}
}

func (r *EquipmentRepository) Default(ctx context.Context) (*domainequipment.Equipment, error) {
	opts := options.FindOne().SetSort(bson.D{{Key: "created_at", Value: 1}, {Key: "_id", Value: 1}})
	var doc equipmentDocument
	if err := r.col.FindOne(ctx, bson.M{}, opts).Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, domainequipment.ErrNoneConfigured
		}
		return nil, fmt.Errorf("default equipment: %w", err)
	}
	return doc.toDomain(), nil
}

func (r *EquipmentRepository) ByID(ctx context.Context, id string) (*domainequipment.Equipment, error) {
	var doc equipmentDocument
	if err := r.col.FindOne(ctx, bson.M{"_id": id}).Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, domainequipment.ErrNotFound
		}
		return nil, fmt.Errorf("equipment %s: %w", id, err)
	}
	return doc.toDomain(), nil
}

func (r *EquipmentRepository) Save(ctx context.Context, eq *domainequipment.Equipment) error {
	doc := equipmentDocument{
		ID:             eq.ID,
		Name:           eq.Name,
		DailyRateCents: eq.DailyRate.Amount,
		Currency:       eq.DailyRate.Currency,
		CreatedAt:      eq.CreatedAt.UTC(),
	}
	_, err := r.col.UpdateByID(ctx, doc.ID, bson.M{"$set": doc}, options.Update().SetUpsert(true))
	return err
}

// bookingDocument stores dates as YYYY-MM-DD strings, which order like the dates.
type bookingDocument struct {
	ID          string `bson:"_id"`
	EquipmentID string `bson:"equipment_id"`
	StartDate   string `bson:"start_date"`
	EndDate     string `bson:"end_date"`
	Status      string `bson:"status"`
}

func (d bookingDocument) toDomain() (domainbooking.Booking, error) {
	dr, err := daterange.Parse(d.StartDate, d.EndDate)
	if err != nil {
		return domainbooking.Booking{}, fmt.Errorf("booking %s: %w", d.ID, err)
	}
	return domainbooking.Booking{
		ID:          d.ID,
		EquipmentID: d.EquipmentID,
		Range:       dr,
		Status:      domainbooking.ParseStatus(d.Status),
	}, nil
}

type BookingRepository struct {
	col *mongo.Collection
}

func NewBookingRepository(db *mongo.Database) *BookingRepository {
	return &BookingRepository{col: db.Collection(bookingsCollection)}
}

func (r *BookingRepository) Save(ctx context.Context, b domainbooking.Booking) error {
	doc := bookingDocument{
		ID:          b.ID,
		EquipmentID: b.EquipmentID,
		StartDate:   b.Range.StartString(),
		EndDate:     b.Range.EndString(),
		Status:      string(b.Status),
	}
	_, err := r.col.UpdateByID(ctx, doc.ID, bson.M{"$set": doc}, options.Update().SetUpsert(true))
	return err
}

func (r *BookingRepository) Conflicts(ctx context.Context, equipmentID string, dr daterange.DateRange) ([]domainbooking.Booking, error) {
	filter := bson.M{
		"equipment_id": equipmentID,
		"status":       bson.M{"$ne": string(domainbooking.StatusCancelled)},
		"start_date":   bson.M{"$lte": dr.EndString()},
		"end_date":     bson.M{"$gte": dr.StartString()},
	}
	cur, err := r.col.Find(ctx, filter, options.Find().SetSort(bson.D{{Key: "start_date", Value: 1}}))
	if err != nil {
		return nil, fmt.Errorf("find conflicts: %w", err)
	}
	defer cur.Close(ctx)

	var out []domainbooking.Booking
	for cur.Next(ctx) {
		var doc bookingDocument
		if err := cur.Decode(&doc); err != nil {
			return nil, fmt.Errorf("decode booking: %w", err)
		}
		b, err := doc.toDomain()
		if err != nil {
			return nil, err
		}
		out = append(out, b)
	}
	if err := cur.Err(); err != nil {
		return nil, fmt.Errorf("iterate conflicts: %w", err)
	}
	return out, nil
}

var (
	_ domainequipment.Catalog      = (*EquipmentRepository)(nil)
	_ domainbooking.ConflictReader = (*BookingRepository)(nil)
)
