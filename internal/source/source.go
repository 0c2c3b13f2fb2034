package source

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// Shop is one configured storefront
type Shop struct {
	Name     string
	Platform string
	BaseURL  string
	Currency string
}

// RawCandidate is a product as reported by a storefront, before filtering
type RawCandidate struct {
	Shop        string
	Name        string
	Price       decimal.Decimal
	Currency    string
	InStock     bool
	Description string
	URL         string
	WeightLabel string
	RoastedAt   *time.Time
	ProductType string
	Tags        []string
}

// Adapter fetches the current product list of one storefront platform
//
//go:generate mockgen -source=source.go -destination=../mocks/source.go -package=mocks -mock_names=Adapter=MockSourceAdapter
type Adapter interface {
	Fetch(ctx context.Context, shop Shop) ([]RawCandidate, error)
}

// Registry resolves adapters by platform name
type Registry struct {
	adapters map[string]Adapter
}

// NewRegistry creates an empty adapter registry
func NewRegistry() *Registry {
	return &Registry{adapters: make(map[string]Adapter)}
}

// Register binds an adapter to a platform name
func (r *Registry) Register(platform string, a Adapter) {
	r.adapters[strings.ToLower(platform)] = a
}

// Resolve returns the adapter for a platform
func (r *Registry) Resolve(platform string) (Adapter, error) {
	a, ok := r.adapters[strings.ToLower(platform)]
	if !ok {
		return nil, fmt.Errorf("no source adapter for platform %q (known: %s)", platform, strings.Join(r.Platforms(), ", "))
	}
	return a, nil
}

// Platforms lists registered platform names
func (r *Registry) Platforms() []string {
	names := make([]string, 0, len(r.adapters))
	for name := range r.adapters {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
