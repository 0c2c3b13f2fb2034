package syncer

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/beanlab/bean-curator/internal/adapter"
	"github.com/beanlab/bean-curator/internal/domain"
	"github.com/beanlab/bean-curator/internal/logger"
	"github.com/beanlab/bean-curator/internal/source"
	"github.com/beanlab/bean-curator/internal/store"
)

// Result counts the outcome of one sync pass
type Result struct {
	Inserted int
	Updated  int
	Rejected int
}

// Syncer merges freshly fetched candidates into the catalog
type Syncer struct {
	store store.Store
	clock adapter.Clock
}

// NewSyncer creates a sync engine
func NewSyncer(st store.Store, clock adapter.Clock) *Syncer {
	return &Syncer{store: st, clock: clock}
}

// Sync inserts unseen (shop, name) keys as Pending items and refreshes price,
// stock and sync time of known ones. The key set is built from a full scan at the
// start of every pass and extended as rows are appended, so duplicates inside one
// batch update the row created earlier in the same pass.
func (s *Syncer) Sync(ctx context.Context, candidates []source.RawCandidate) (*Result, error) {
	existing, err := s.store.ListAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to scan catalog: %w", err)
	}

	keys := make(map[string]uint64, len(existing))
	for _, item := range existing {
		keys[item.Key()] = item.ID
	}

	now := s.clock.Now().UTC()
	result := &Result{}

	for _, c := range candidates {
		if err := ctx.Err(); err != nil {
			return result, err
		}

		if strings.TrimSpace(c.Shop) == "" || strings.TrimSpace(c.Name) == "" {
			logger.WarnCtx(ctx, "Rejecting candidate without shop or name",
				zap.String("shop", c.Shop),
				zap.String("name", c.Name),
				zap.String("url", c.URL))
			result.Rejected++
			continue
		}

		key := domain.ItemKey(c.Shop, c.Name)
		if id, ok := keys[key]; ok {
			if err := s.refresh(ctx, id, c, now); err != nil {
				return result, err
			}
			result.Updated++
			continue
		}

		item := newItem(c, now)
		if err := s.store.Append(ctx, item); err != nil {
			return result, fmt.Errorf("failed to insert %q from %s: %w", c.Name, c.Shop, err)
		}
		keys[key] = item.ID
		result.Inserted++
	}

	logger.InfoCtx(ctx, "Sync finished",
		zap.Int("candidates", len(candidates)),
		zap.Int("inserted", result.Inserted),
		zap.Int("updated", result.Updated),
		zap.Int("rejected", result.Rejected))

	return result, nil
}

// refresh updates only the fields a storefront is authoritative for
func (s *Syncer) refresh(ctx context.Context, id uint64, c source.RawCandidate, now time.Time) error {
	price := domain.Price{Amount: c.Price, Currency: c.Currency}
	stock := domain.StockFromBool(c.InStock)
	patch := store.ItemPatch{
		Price:        &price,
		StockStatus:  &stock,
		LastSyncedAt: &now,
	}
	if err := s.store.UpdateFields(ctx, id, patch); err != nil {
		return fmt.Errorf("failed to refresh item %d: %w", id, err)
	}
	return nil
}

// newItem builds a Pending item; weight stays null until enrichment resolves it
func newItem(c source.RawCandidate, now time.Time) *domain.Item {
	return &domain.Item{
		Shop:         strings.TrimSpace(c.Shop),
		Name:         strings.TrimSpace(c.Name),
		Price:        domain.Price{Amount: c.Price, Currency: c.Currency},
		WeightLabel:  c.WeightLabel,
		StockStatus:  domain.StockFromBool(c.InStock),
		Description:  c.Description,
		URL:          c.URL,
		RoastedAt:    c.RoastedAt,
		LastSyncedAt: now,
		Status:       domain.StatusPending,
	}
}
