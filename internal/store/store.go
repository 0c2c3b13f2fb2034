package store

import (
	"context"
	"time"

	"github.com/beanlab/bean-curator/internal/domain"
)

// ItemPatch is a typed field map for UpdateFields. Nil fields are left untouched.
type ItemPatch struct {
	Price          *domain.Price
	StockStatus    *domain.StockStatus
	LastSyncedAt   *time.Time
	Status         *domain.Status
	Enrichment     *domain.Enrichment
	WeightGrams    *float64 // applied only while the stored weight is still null
	LastError      *string  // pointer to "" clears the error
	LastSelectedAt *time.Time
}

// IsEmpty reports whether the patch changes nothing
func (p ItemPatch) IsEmpty() bool {
	return p.Price == nil && p.StockStatus == nil && p.LastSyncedAt == nil && p.Status == nil &&
		p.Enrichment == nil && p.WeightGrams == nil && p.LastError == nil && p.LastSelectedAt == nil
}

// ItemFilter narrows ListItems results
type ItemFilter struct {
	Status *domain.Status
	Shop   string
	Limit  int
	Offset int
}

// Stats summarizes catalog contents
type Stats struct {
	Total    int64                   `json:"total"`
	ByStatus map[domain.Status]int64 `json:"by_status"`
	InStock  int64                   `json:"in_stock"`
	SoldOut  int64                   `json:"sold_out"`
}

// Store defines the catalog persistence operations.
// Scan order is item ID ascending for every listing method.
//
//go:generate mockgen -source=store.go -destination=../mocks/store.go -package=mocks -mock_names=Store=MockStore
type Store interface {
	// ListAll returns every item in scan order
	ListAll(ctx context.Context) ([]domain.Item, error)
	// FindByKey returns the item with the given dedup key, or nil when absent
	FindByKey(ctx context.Context, shop, name string) (*domain.Item, error)
	// GetByID returns the item with the given ID, or nil when absent
	GetByID(ctx context.Context, id uint64) (*domain.Item, error)
	// ListItems returns a filtered page of items and the total match count
	ListItems(ctx context.Context, filter ItemFilter) ([]domain.Item, int64, error)
	// Append persists a new item and assigns its ID
	Append(ctx context.Context, item *domain.Item) error
	// UpdateFields durably applies a patch to one item
	UpdateFields(ctx context.Context, id uint64, patch ItemPatch) error
	// ResetStatus moves items in any of the given statuses back to Pending
	ResetStatus(ctx context.Context, from []domain.Status) (int64, error)
	// Stats returns catalog counters
	Stats(ctx context.Context) (*Stats, error)
}

func newStats() *Stats {
	return &Stats{
		ByStatus: map[domain.Status]int64{
			domain.StatusPending:   0,
			domain.StatusSkipped:   0,
			domain.StatusCompleted: 0,
			domain.StatusError:     0,
		},
	}
}

// resettable keeps only the statuses an operator may reset
func resettable(from []domain.Status) []domain.Status {
	var out []domain.Status
	for _, s := range from {
		if s.Resettable() {
			out = append(out, s)
		}
	}
	return out
}
