package product

import (
	"context"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
)

// ErrNotFound is returned when a requested product does not exist.
var ErrNotFound = errors.New("product not found")

// Snapshot is an immutable copy of a catalog product. The cart keeps the
// snapshot taken at add time and never re-reads the live catalog.
type Snapshot struct {
	ID       string
	Name     string
	Price    decimal.Decimal
	Category string
	// Images holds image references in display order; the first one is the
	// primary image.
	Images []string
	// SellerID references the marketplace seller, nil for house products.
	SellerID *string
}

// FirstImage returns the primary image reference, or nil when the product
// has no images.
func (s Snapshot) FirstImage() *string {
	if len(s.Images) == 0 {
		return nil
	}
	img := s.Images[0]
	return &img
}

// Repository defines read operations for the product catalog.
type Repository interface {
	List(ctx context.Context) ([]Snapshot, error)
	GetByID(ctx context.Context, id string) (*Snapshot, error)
	GetByIDs(ctx context.Context, ids []string) ([]Snapshot, error)
}
