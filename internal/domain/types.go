package domain

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// Status is the enrichment status of a catalog item
type Status string

const (
	StatusPending   Status = "pending"
	StatusSkipped   Status = "skipped"
	StatusCompleted Status = "completed"
	StatusError     Status = "error"
)

// IsValid checks if a status is known
func (s Status) IsValid() bool {
	switch s {
	case StatusPending, StatusSkipped, StatusCompleted, StatusError:
		return true
	}
	return false
}

// CanTransition reports whether the enrichment engine may move an item from s to next.
// Only Pending moves forward; terminal states require an explicit Reset.
func (s Status) CanTransition(next Status) bool {
	if s != StatusPending {
		return false
	}
	switch next {
	case StatusSkipped, StatusCompleted, StatusError:
		return true
	}
	return false
}

// Transition returns next when the move from s is allowed
func (s Status) Transition(next Status) (Status, error) {
	if !s.CanTransition(next) {
		return s, fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, s, next)
	}
	return next, nil
}

// Resettable reports whether an operator may put an item with this status back to Pending
func (s Status) Resettable() bool {
	return s == StatusError || s == StatusSkipped
}

// ParseStatus parses a status case-insensitively
func ParseStatus(v string) (Status, error) {
	s := Status(strings.ToLower(strings.TrimSpace(v)))
	if !s.IsValid() {
		return "", fmt.Errorf("unknown status %q", v)
	}
	return s, nil
}

// StockStatus is the stock state reported by a storefront
type StockStatus string

const (
	StockInStock StockStatus = "in_stock"
	StockSoldOut StockStatus = "sold_out"
)

// StockFromBool converts an availability flag to a stock status
func StockFromBool(available bool) StockStatus {
	if available {
		return StockInStock
	}
	return StockSoldOut
}

// Bucket is a brewing use-case group used for ranking and selection
type Bucket string

const (
	BucketFilter   Bucket = "filter"
	BucketEspresso Bucket = "espresso"
)

// Buckets lists every bucket in selection order
var Buckets = []Bucket{BucketFilter, BucketEspresso}

// ParseBucket parses a bucket name case-insensitively
func ParseBucket(v string) (Bucket, error) {
	b := Bucket(strings.ToLower(strings.TrimSpace(v)))
	if b != BucketFilter && b != BucketEspresso {
		return "", fmt.Errorf("unknown bucket %q", v)
	}
	return b, nil
}

// Price is a decimal amount with an ISO 4217 currency
type Price struct {
	Amount   decimal.Decimal `json:"amount"`
	Currency string          `json:"currency"`
}

// String formats a price like "24.50 CAD"
func (p Price) String() string {
	if p.Currency == "" {
		return p.Amount.StringFixed(2)
	}
	return p.Amount.StringFixed(2) + " " + p.Currency
}

// Item is one product row in the catalog
type Item struct {
	ID             uint64
	Shop           string
	Name           string
	Price          Price
	WeightGrams    *float64
	WeightLabel    string
	StockStatus    StockStatus
	Description    string
	URL            string
	RoastedAt      *time.Time
	LastSyncedAt   time.Time
	Enrichment     *Enrichment
	Status         Status
	LastError      *string
	LastSelectedAt *time.Time
}

// Key returns the dedup key of the item
func (i Item) Key() string {
	return ItemKey(i.Shop, i.Name)
}

// InStock reports whether the item is currently available
func (i Item) InStock() bool {
	return i.StockStatus == StockInStock
}

// Normalize lowercases, trims and collapses inner whitespace
func Normalize(s string) string {
	return strings.Join(strings.Fields(strings.ToLower(s)), " ")
}

// ItemKey returns the composite dedup key for a shop and product name
func ItemKey(shop, name string) string {
	return Normalize(shop) + "|" + Normalize(name)
}
