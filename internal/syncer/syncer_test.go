package syncer_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/golang/mock/gomock"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"

	"github.com/beanlab/bean-curator/internal/adapter"
	"github.com/beanlab/bean-curator/internal/domain"
	"github.com/beanlab/bean-curator/internal/logger"
	"github.com/beanlab/bean-curator/internal/mocks"
	"github.com/beanlab/bean-curator/internal/source"
	"github.com/beanlab/bean-curator/internal/store"
	"github.com/beanlab/bean-curator/internal/syncer"
)

var syncTime = time.Date(2026, 10, 18, 9, 0, 0, 0, time.UTC)

func TestMain(m *testing.M) {
	if err := logger.Initialize(logger.Config{Debug: false}); err != nil {
		panic(err)
	}
	os.Exit(m.Run())
}

func candidate(shop, name, price string, inStock bool) source.RawCandidate {
	return source.RawCandidate{
		Shop:        shop,
		Name:        name,
		Price:       decimal.RequireFromString(price),
		Currency:    "USD",
		InStock:     inStock,
		Description: "A washed coffee.",
		URL:         "https://example.com/products/x",
		WeightLabel: "250g",
	}
}

func TestSync_InsertsAndUpdates(t *testing.T) {
	ctrl := gomock.NewController(t)
	st := mocks.NewMockStore(ctrl)
	clock := mocks.NewMockClock(ctrl)
	clock.EXPECT().Now().Return(syncTime)

	existing := domain.Item{ID: 7, Shop: "Northbound", Name: "Kenya AA", Status: domain.StatusCompleted}
	st.EXPECT().ListAll(gomock.Any()).Return([]domain.Item{existing}, nil)

	st.EXPECT().
		UpdateFields(gomock.Any(), uint64(7), gomock.Any()).
		DoAndReturn(func(_ context.Context, _ uint64, patch store.ItemPatch) error {
			require.NotNil(t, patch.Price)
			assert.Equal(t, "21.00 USD", patch.Price.String())
			assert.Equal(t, domain.StockSoldOut, *patch.StockStatus)
			assert.True(t, syncTime.Equal(*patch.LastSyncedAt))
			assert.Nil(t, patch.Status)
			assert.Nil(t, patch.Enrichment)
			return nil
		})
	st.EXPECT().
		Append(gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ context.Context, item *domain.Item) error {
			assert.Equal(t, domain.StatusPending, item.Status)
			assert.Nil(t, item.Enrichment)
			assert.Nil(t, item.WeightGrams)
			assert.Equal(t, "250g", item.WeightLabel)
			item.ID = 8
			return nil
		})

	result, err := syncer.NewSyncer(st, clock).Sync(context.Background(), []source.RawCandidate{
		candidate(" northbound ", "KENYA  aa", "21.00", false),
		candidate("Northbound", "Ethiopia Guji", "19.00", true),
	})
	require.NoError(t, err)
	assert.Equal(t, syncer.Result{Inserted: 1, Updated: 1}, *result)
}

func TestSync_DuplicateInBatchUpdatesFirstRow(t *testing.T) {
	ctrl := gomock.NewController(t)
	st := mocks.NewMockStore(ctrl)
	clock := mocks.NewMockClock(ctrl)
	clock.EXPECT().Now().Return(syncTime)

	st.EXPECT().ListAll(gomock.Any()).Return(nil, nil)
	gomock.InOrder(
		st.EXPECT().Append(gomock.Any(), gomock.Any()).DoAndReturn(func(_ context.Context, item *domain.Item) error {
			assert.Equal(t, "18.00", item.Price.Amount.StringFixed(2))
			item.ID = 1
			return nil
		}),
		st.EXPECT().UpdateFields(gomock.Any(), uint64(1), gomock.Any()).DoAndReturn(func(_ context.Context, _ uint64, patch store.ItemPatch) error {
			assert.Equal(t, "20.00", patch.Price.Amount.StringFixed(2))
			return nil
		}),
	)

	result, err := syncer.NewSyncer(st, clock).Sync(context.Background(), []source.RawCandidate{
		candidate("Y", "Colombia Lot 1", "18.00", true),
		candidate("Y", "Colombia Lot 1", "20.00", true),
	})
	require.NoError(t, err)
	assert.Equal(t, 1, result.Inserted)
	assert.Equal(t, 1, result.Updated)
}

func TestSync_RejectsBlankKeys(t *testing.T) {
	ctrl := gomock.NewController(t)
	st := mocks.NewMockStore(ctrl)
	clock := mocks.NewMockClock(ctrl)
	clock.EXPECT().Now().Return(syncTime)
	st.EXPECT().ListAll(gomock.Any()).Return(nil, nil)

	result, err := syncer.NewSyncer(st, clock).Sync(context.Background(), []source.RawCandidate{
		candidate("", "Kenya AA", "10.00", true),
		candidate("Shop", "   ", "10.00", true),
	})
	require.NoError(t, err)
	assert.Equal(t, syncer.Result{Rejected: 2}, *result)
}

func TestSync_ScanFailure(t *testing.T) {
	ctrl := gomock.NewController(t)
	st := mocks.NewMockStore(ctrl)
	st.EXPECT().ListAll(gomock.Any()).Return(nil, errors.New("connection refused"))

	_, err := syncer.NewSyncer(st, mocks.NewMockClock(ctrl)).Sync(context.Background(), nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to scan catalog")
}

// candidateGen draws candidates from a small name space so collisions are common
func candidateGen() *rapid.Generator[source.RawCandidate] {
	return rapid.Custom(func(t *rapid.T) source.RawCandidate {
		shop := rapid.SampledFrom([]string{"Northbound", "northbound ", "Rogue Wave", "Y"}).Draw(t, "shop")
		name := rapid.SampledFrom([]string{"Kenya AA", "KENYA aa", "Ethiopia Guji", "Colombia Lot 1", "House Blend"}).Draw(t, "name")
		cents := rapid.IntRange(500, 9000).Draw(t, "cents")
		return source.RawCandidate{
			Shop:     shop,
			Name:     name,
			Price:    decimal.New(int64(cents), -2),
			Currency: "USD",
			InStock:  rapid.Bool().Draw(t, "in_stock"),
		}
	})
}

func newCSVStore(t *rapid.T, dir string) store.Store {
	st, err := store.NewCSVStore(filepath.Join(dir, "catalog.csv"), adapter.NewFileSystem())
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	return st
}

func TestSync_Properties(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		ctx := context.Background()
		st := newCSVStore(rt, t.TempDir())
		s := syncer.NewSyncer(st, adapter.NewClock())

		batch := rapid.SliceOfN(candidateGen(), 0, 20).Draw(rt, "batch")
		runs := rapid.IntRange(2, 4).Draw(rt, "runs")

		var firstCount int
		for run := 0; run < runs; run++ {
			result, err := s.Sync(ctx, batch)
			if err != nil {
				rt.Fatalf("sync run %d: %v", run, err)
			}
			items, err := st.ListAll(ctx)
			if err != nil {
				rt.Fatalf("list: %v", err)
			}

			if run == 0 {
				firstCount = len(items)
			} else {
				// Re-running the same batch never inserts
				if result.Inserted != 0 {
					rt.Fatalf("run %d inserted %d rows", run, result.Inserted)
				}
				if len(items) != firstCount {
					rt.Fatalf("row count changed from %d to %d", firstCount, len(items))
				}
			}

			seen := make(map[string]bool)
			for _, item := range items {
				if seen[item.Key()] {
					rt.Fatalf("duplicate key %q", item.Key())
				}
				seen[item.Key()] = true
			}
		}
	})
}
