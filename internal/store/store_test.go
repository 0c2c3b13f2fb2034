package store

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/beanlab/bean-curator/internal/domain"
)

// =============================================================================
// Test Data Builders
// =============================================================================

func buildTestItem(shop, name string) *domain.Item {
	return &domain.Item{
		Shop:         shop,
		Name:         name,
		Price:        domain.Price{Amount: decimal.RequireFromString("24.50"), Currency: "CAD"},
		WeightLabel:  "340g",
		StockStatus:  domain.StockInStock,
		Description:  "Washed Ethiopian coffee with notes of jasmine and peach.",
		URL:          "https://example.com/products/" + domain.Normalize(name),
		LastSyncedAt: time.Date(2026, 10, 1, 12, 0, 0, 0, time.UTC),
		Status:       domain.StatusPending,
	}
}

func buildTestEnrichment() *domain.Enrichment {
	country := "Ethiopia"
	variety := "Heirloom"
	freshness := 4
	grams := 340.0
	return &domain.Enrichment{
		Origin:         domain.Origin{Country: &country},
		Variety:        &variety,
		RoastLevel:     domain.RoastLight,
		IntendedUse:    domain.UseFilter,
		FlavorNotes:    []string{"jasmine", "peach"},
		Seasonality:    domain.SeasonPeak,
		FreshnessScore: &freshness,
		WeightGrams:    &grams,
		ValueScore:     7,
	}
}

func statusPtr(s domain.Status) *domain.Status { return &s }

// =============================================================================
// Shared store behavior
// =============================================================================

func testAppendAndFind(t *testing.T, store Store) {
	ctx := context.Background()

	item := buildTestItem("Rogue Wave", "Ethiopia Guji")
	require.NoError(t, store.Append(ctx, item))
	assert.NotZero(t, item.ID)

	found, err := store.FindByKey(ctx, "  rogue wave", "ETHIOPIA   guji ")
	require.NoError(t, err)
	require.NotNil(t, found)
	assert.Equal(t, item.ID, found.ID)
	assert.Equal(t, "Ethiopia Guji", found.Name)
	assert.True(t, decimal.RequireFromString("24.50").Equal(found.Price.Amount))
	assert.Equal(t, "CAD", found.Price.Currency)
	assert.Equal(t, domain.StatusPending, found.Status)
	assert.Nil(t, found.Enrichment)
	assert.Nil(t, found.WeightGrams)
	assert.True(t, item.LastSyncedAt.Equal(found.LastSyncedAt))

	missing, err := store.FindByKey(ctx, "Rogue Wave", "Kenya AA")
	require.NoError(t, err)
	assert.Nil(t, missing)

	byID, err := store.GetByID(ctx, item.ID)
	require.NoError(t, err)
	require.NotNil(t, byID)
	assert.Equal(t, item.Key(), byID.Key())

	none, err := store.GetByID(ctx, item.ID+1000)
	require.NoError(t, err)
	assert.Nil(t, none)
}

func testAppendDuplicateKey(t *testing.T, store Store) {
	ctx := context.Background()

	require.NoError(t, store.Append(ctx, buildTestItem("Rogue Wave", "Ethiopia Guji")))
	err := store.Append(ctx, buildTestItem("ROGUE WAVE", "ethiopia guji"))
	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrItemExists))
}

func testListAllScanOrder(t *testing.T, store Store) {
	ctx := context.Background()

	names := []string{"Colombia Pink Bourbon", "Ethiopia Guji", "Kenya Kiambu"}
	for _, n := range names {
		require.NoError(t, store.Append(ctx, buildTestItem("Rogue Wave", n)))
	}

	items, err := store.ListAll(ctx)
	require.NoError(t, err)
	require.Len(t, items, 3)
	for i, n := range names {
		assert.Equal(t, n, items[i].Name)
	}
	assert.Less(t, items[0].ID, items[1].ID)
	assert.Less(t, items[1].ID, items[2].ID)
}

func testUpdateFields(t *testing.T, store Store) {
	ctx := context.Background()

	item := buildTestItem("Rogue Wave", "Ethiopia Guji")
	require.NoError(t, store.Append(ctx, item))

	soldOut := domain.StockSoldOut
	synced := time.Date(2026, 10, 2, 8, 0, 0, 0, time.UTC)
	price := domain.Price{Amount: decimal.RequireFromString("26.00"), Currency: "CAD"}
	require.NoError(t, store.UpdateFields(ctx, item.ID, ItemPatch{
		Price:        &price,
		StockStatus:  &soldOut,
		LastSyncedAt: &synced,
	}))

	got, err := store.GetByID(ctx, item.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.StockSoldOut, got.StockStatus)
	assert.True(t, price.Amount.Equal(got.Price.Amount))
	assert.True(t, synced.Equal(got.LastSyncedAt))
	// Untouched fields survive
	assert.Equal(t, item.Description, got.Description)
	assert.Equal(t, domain.StatusPending, got.Status)

	completed := domain.StatusCompleted
	grams := 340.0
	require.NoError(t, store.UpdateFields(ctx, item.ID, ItemPatch{
		Status:      &completed,
		Enrichment:  buildTestEnrichment(),
		WeightGrams: &grams,
	}))

	got, err = store.GetByID(ctx, item.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusCompleted, got.Status)
	require.NotNil(t, got.Enrichment)
	assert.Equal(t, domain.RoastLight, got.Enrichment.RoastLevel)
	assert.Equal(t, []string{"jasmine", "peach"}, got.Enrichment.FlavorNotes)
	assert.Equal(t, "Ethiopia", domain.StringValue(got.Enrichment.Origin.Country))
	assert.Nil(t, got.Enrichment.Origin.Region)
	require.NotNil(t, got.WeightGrams)
	assert.InDelta(t, 340.0, *got.WeightGrams, 0.001)

	// A known weight is never overwritten
	other := 250.0
	require.NoError(t, store.UpdateFields(ctx, item.ID, ItemPatch{WeightGrams: &other}))
	got, err = store.GetByID(ctx, item.ID)
	require.NoError(t, err)
	assert.InDelta(t, 340.0, *got.WeightGrams, 0.001)

	err = store.UpdateFields(ctx, item.ID+1000, ItemPatch{Status: &completed})
	assert.True(t, errors.Is(err, domain.ErrItemNotFound))
}

func testLastError(t *testing.T, store Store) {
	ctx := context.Background()

	item := buildTestItem("Rogue Wave", "Ethiopia Guji")
	require.NoError(t, store.Append(ctx, item))

	errStatus := domain.StatusError
	msg := "model unavailable"
	require.NoError(t, store.UpdateFields(ctx, item.ID, ItemPatch{Status: &errStatus, LastError: &msg}))

	got, err := store.GetByID(ctx, item.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusError, got.Status)
	assert.Equal(t, msg, domain.StringValue(got.LastError))

	clear := ""
	require.NoError(t, store.UpdateFields(ctx, item.ID, ItemPatch{LastError: &clear}))
	got, err = store.GetByID(ctx, item.ID)
	require.NoError(t, err)
	assert.Nil(t, got.LastError)
}

func testResetStatus(t *testing.T, store Store) {
	ctx := context.Background()

	errored := buildTestItem("Rogue Wave", "Ethiopia Guji")
	skipped := buildTestItem("Rogue Wave", "Kenya Kiambu")
	done := buildTestItem("Rogue Wave", "Colombia Pink Bourbon")
	for _, it := range []*domain.Item{errored, skipped, done} {
		require.NoError(t, store.Append(ctx, it))
	}

	msg := "boom"
	require.NoError(t, store.UpdateFields(ctx, errored.ID, ItemPatch{Status: statusPtr(domain.StatusError), LastError: &msg}))
	require.NoError(t, store.UpdateFields(ctx, skipped.ID, ItemPatch{Status: statusPtr(domain.StatusSkipped)}))
	require.NoError(t, store.UpdateFields(ctx, done.ID, ItemPatch{Status: statusPtr(domain.StatusCompleted), Enrichment: buildTestEnrichment()}))

	// Completed is never reset
	n, err := store.ResetStatus(ctx, []domain.Status{domain.StatusError, domain.StatusCompleted})
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	got, err := store.GetByID(ctx, errored.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusPending, got.Status)
	assert.Nil(t, got.LastError)

	got, err = store.GetByID(ctx, done.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusCompleted, got.Status)

	got, err = store.GetByID(ctx, skipped.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusSkipped, got.Status)
}

func testListItemsAndStats(t *testing.T, store Store) {
	ctx := context.Background()

	a := buildTestItem("Rogue Wave", "Ethiopia Guji")
	b := buildTestItem("Rogue Wave", "Kenya Kiambu")
	c := buildTestItem("Pallet", "Brazil Cerrado")
	c.StockStatus = domain.StockSoldOut
	for _, it := range []*domain.Item{a, b, c} {
		require.NoError(t, store.Append(ctx, it))
	}
	require.NoError(t, store.UpdateFields(ctx, c.ID, ItemPatch{Status: statusPtr(domain.StatusSkipped)}))

	items, total, err := store.ListItems(ctx, ItemFilter{Shop: "rogue wave", Limit: 1})
	require.NoError(t, err)
	assert.Equal(t, int64(2), total)
	require.Len(t, items, 1)
	assert.Equal(t, a.ID, items[0].ID)

	items, total, err = store.ListItems(ctx, ItemFilter{Shop: "rogue wave", Limit: 1, Offset: 1})
	require.NoError(t, err)
	assert.Equal(t, int64(2), total)
	require.Len(t, items, 1)
	assert.Equal(t, b.ID, items[0].ID)

	items, total, err = store.ListItems(ctx, ItemFilter{Status: statusPtr(domain.StatusSkipped)})
	require.NoError(t, err)
	assert.Equal(t, int64(1), total)
	require.Len(t, items, 1)
	assert.Equal(t, c.ID, items[0].ID)

	stats, err := store.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(3), stats.Total)
	assert.Equal(t, int64(2), stats.ByStatus[domain.StatusPending])
	assert.Equal(t, int64(1), stats.ByStatus[domain.StatusSkipped])
	assert.Equal(t, int64(0), stats.ByStatus[domain.StatusCompleted])
	assert.Equal(t, int64(2), stats.InStock)
	assert.Equal(t, int64(1), stats.SoldOut)
}

// RunStoreTests runs the shared store behavior against one implementation
func RunStoreTests(t *testing.T, initDB func(t *testing.T) Store, cleanupDB func(t *testing.T)) {
	tests := []struct {
		name string
		fn   func(*testing.T, Store)
	}{
		{"AppendAndFind", testAppendAndFind},
		{"AppendDuplicateKey", testAppendDuplicateKey},
		{"ListAllScanOrder", testListAllScanOrder},
		{"UpdateFields", testUpdateFields},
		{"LastError", testLastError},
		{"ResetStatus", testResetStatus},
		{"ListItemsAndStats", testListItemsAndStats},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := initDB(t)
			defer cleanupDB(t)
			tt.fn(t, store)
		})
	}
}
