package executor

import (
	"context"
	"fmt"
	"sort"

	"github.com/beanlab/bean-curator/internal/adapter"
	"github.com/beanlab/bean-curator/internal/api/shared/dto"
	apierrors "github.com/beanlab/bean-curator/internal/api/shared/errors"
	"github.com/beanlab/bean-curator/internal/domain"
	"github.com/beanlab/bean-curator/internal/scoring"
	"github.com/beanlab/bean-curator/internal/selection"
	"github.com/beanlab/bean-curator/internal/store"
)

const (
	DefaultItemsLimit    = 20
	MaxItemsLimit        = 100
	DefaultRankingsLimit = 10
)

// Executor is the interface for the API executor
//
//go:generate mockgen -source=executor.go -destination=../../../mocks/api_executor.go -package=mocks -mock_names=Executor=MockAPIExecutor
type Executor interface {
	// GetItem retrieves a single item by ID, or nil when absent
	GetItem(ctx context.Context, id uint64) (*dto.ItemResponse, error)

	// ListItems retrieves a filtered page of items in scan order
	ListItems(ctx context.Context, filter store.ItemFilter) (*dto.ItemListResponse, error)

	// GetStats returns catalog counters
	GetStats(ctx context.Context) (*dto.StatsResponse, error)

	// GetRankings scores every eligible item of a bucket against the current time
	GetRankings(ctx context.Context, bucket domain.Bucket, limit int) (*dto.RankingsResponse, error)

	// ResetItems moves items in the given terminal statuses back to pending
	ResetItems(ctx context.Context, statuses []domain.Status) (*dto.ResetItemsResponse, error)
}

type executor struct {
	store    store.Store
	scorer   *scoring.Scorer
	selector *selection.Selector
	clock    adapter.Clock
}

func NewExecutor(st store.Store, scorer *scoring.Scorer, selector *selection.Selector, clock adapter.Clock) Executor {
	return &executor{store: st, scorer: scorer, selector: selector, clock: clock}
}

func (e *executor) GetItem(ctx context.Context, id uint64) (*dto.ItemResponse, error) {
	item, err := e.store.GetByID(ctx, id)
	if err != nil {
		return nil, apierrors.NewDatabaseError(fmt.Sprintf("Failed to get item: %v", err))
	}
	return dto.MapItemToDTO(item), nil
}

func (e *executor) ListItems(ctx context.Context, filter store.ItemFilter) (*dto.ItemListResponse, error) {
	if filter.Limit <= 0 {
		filter.Limit = DefaultItemsLimit
	}
	if filter.Limit > MaxItemsLimit {
		filter.Limit = MaxItemsLimit
	}
	if filter.Offset < 0 {
		filter.Offset = 0
	}

	items, total, err := e.store.ListItems(ctx, filter)
	if err != nil {
		return nil, apierrors.NewDatabaseError(fmt.Sprintf("Failed to list items: %v", err))
	}

	resp := &dto.ItemListResponse{
		Items:  make([]dto.ItemResponse, 0, len(items)),
		Total:  total,
		Limit:  filter.Limit,
		Offset: filter.Offset,
	}
	for i := range items {
		resp.Items = append(resp.Items, *dto.MapItemToDTO(&items[i]))
	}
	return resp, nil
}

func (e *executor) GetStats(ctx context.Context) (*dto.StatsResponse, error) {
	stats, err := e.store.Stats(ctx)
	if err != nil {
		return nil, apierrors.NewDatabaseError(fmt.Sprintf("Failed to get stats: %v", err))
	}

	items, err := e.store.ListAll(ctx)
	if err != nil {
		return nil, apierrors.NewDatabaseError(fmt.Sprintf("Failed to list items: %v", err))
	}

	resp := &dto.StatsResponse{
		Total:    stats.Total,
		ByStatus: make(map[string]int64, len(stats.ByStatus)),
		InStock:  stats.InStock,
		SoldOut:  stats.SoldOut,
		Eligible: len(e.selector.Eligible(items, e.clock.Now().UTC())),
	}
	for status, n := range stats.ByStatus {
		resp.ByStatus[string(status)] = n
	}
	return resp, nil
}

func (e *executor) GetRankings(ctx context.Context, bucket domain.Bucket, limit int) (*dto.RankingsResponse, error) {
	if limit <= 0 {
		limit = DefaultRankingsLimit
	}
	if limit > MaxItemsLimit {
		limit = MaxItemsLimit
	}

	items, err := e.store.ListAll(ctx)
	if err != nil {
		return nil, apierrors.NewDatabaseError(fmt.Sprintf("Failed to list items: %v", err))
	}

	var ranked []selection.Candidate
	for _, item := range e.selector.Eligible(items, e.clock.Now().UTC()) {
		if selection.Classify(item.Enrichment) != bucket {
			continue
		}
		ranked = append(ranked, selection.Candidate{
			Item:    item,
			Score:   e.scorer.Score(&item, bucket),
			Notable: item.Enrichment.Notable(),
		})
	}
	sort.SliceStable(ranked, func(i, j int) bool {
		if ranked[i].Score.Final != ranked[j].Score.Final {
			return ranked[i].Score.Final > ranked[j].Score.Final
		}
		return ranked[i].Item.ID < ranked[j].Item.ID
	})
	if len(ranked) > limit {
		ranked = ranked[:limit]
	}

	resp := &dto.RankingsResponse{Bucket: string(bucket), Items: make([]dto.RankedItem, 0, len(ranked))}
	for i, c := range ranked {
		resp.Items = append(resp.Items, dto.RankedItem{
			Rank:        i + 1,
			Item:        *dto.MapItemToDTO(&c.Item),
			Quality:     c.Score.Quality,
			Seasonality: c.Score.Seasonality,
			Value:       c.Score.Value,
			Versatility: c.Score.Versatility,
			Final:       c.Score.Final,
			Notable:     c.Notable,
		})
	}
	return resp, nil
}

func (e *executor) ResetItems(ctx context.Context, statuses []domain.Status) (*dto.ResetItemsResponse, error) {
	for _, s := range statuses {
		if !s.Resettable() {
			return nil, apierrors.NewValidationError(fmt.Sprintf("status %q cannot be reset", s))
		}
	}

	n, err := e.store.ResetStatus(ctx, statuses)
	if err != nil {
		return nil, apierrors.NewDatabaseError(fmt.Sprintf("Failed to reset items: %v", err))
	}
	return &dto.ResetItemsResponse{Reset: n}, nil
}
