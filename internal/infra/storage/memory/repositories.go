package memory

import (
	"context"
	"sort"
	"sync"

	domainbooking "equiprent/internal/domain/booking"
	domainequipment "equiprent/internal/domain/equipment"
	"equiprent/internal/domain/shared/daterange"
)

// EquipmentRepository is an in-memory catalog for local runs and tests.
type EquipmentRepository struct {
	mu    sync.RWMutex
	items map[string]*domainequipment.Equipment
}

func NewEquipmentRepository() *EquipmentRepository {
	return &EquipmentRepository{items: make(map[string]*domainequipment.Equipment)}
}

// Default returns the oldest unit, ties broken by id.
func (r *EquipmentRepository) Default(ctx context.Context) (*domainequipment.Equipment, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if len(r.items) == 0 {
		return nil, domainequipment.ErrNoneConfigured
	}
	all := make([]*domainequipment.Equipment, 0, len(r.items))
	for _, item := range r.items {
		all = append(all, item)
	}
	sort.Slice(all, func(i, j int) bool {
		if !all[i].CreatedAt.Equal(all[j].CreatedAt) {
			return all[i].CreatedAt.Before(all[j].CreatedAt)
		}
		return all[i].ID < all[j].ID
	})
	eq := *all[0]
	return &eq, nil
}

func (r *EquipmentRepository) ByID(ctx context.Context, id string) (*domainequipment.Equipment, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	item, ok := r.items[id]
	if !ok {
		return nil, domainequipment.ErrNotFound
	}
	eq := *item
	return &eq, nil
}

func (r *EquipmentRepository) Save(ctx context.Context, eq *domainequipment.Equipment) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	clone := *eq
	r.items[eq.ID] = &clone
	return nil
}

// BookingRepository keeps bookings in memory and answers conflict reads.
type BookingRepository struct {
	mu    sync.RWMutex
	items map[string]domainbooking.Booking
}

func NewBookingRepository() *BookingRepository {
	return &BookingRepository{items: make(map[string]domainbooking.Booking)}
}

func (r *BookingRepository) Save(ctx context.Context, b domainbooking.Booking) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.items[b.ID] = b
	return nil
}

// Conflicts returns non-cancelled bookings of the unit whose range intersects dr.
func (r *BookingRepository) Conflicts(ctx context.Context, equipmentID string, dr daterange.DateRange) ([]domainbooking.Booking, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []domainbooking.Booking
	for _, b := range r.items {
		if b.EquipmentID != equipmentID {
			continue
		}
		if b.Blocks(dr) {
			out = append(out, b)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Range.Start.Before(out[j].Range.Start) })
	return out, nil
}

var (
	_ domainequipment.Catalog      = (*EquipmentRepository)(nil)
	_ domainbooking.ConflictReader = (*BookingRepository)(nil)
)
