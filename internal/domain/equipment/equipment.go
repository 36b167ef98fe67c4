package equipment

import (
	"context"
	"errors"
	"time"

	"equiprent/internal/domain/shared/money"
)

var (
	ErrNotFound       = errors.New("equipment: not found")
	ErrNoneConfigured = errors.New("equipment: catalog is empty")
)

// Equipment is a rentable unit as seen by the availability engine.
type Equipment struct {
	ID        string
	Name      string
	DailyRate money.Money
	CreatedAt time.Time
}

// Catalog reads units. Default returns the first unit of the catalog, or
// ErrNoneConfigured when there is none.
type Catalog interface {
	Default(ctx context.Context) (*Equipment, error)
	ByID(ctx context.Context, id string) (*Equipment, error)
}
