package store

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/beanlab/bean-curator/internal/adapter"
	"github.com/beanlab/bean-curator/internal/domain"
)

func initCSVTestDB(t *testing.T) Store {
	path := filepath.Join(t.TempDir(), "catalog.csv")
	s, err := NewCSVStore(path, adapter.NewFileSystem())
	require.NoError(t, err)
	return s
}

func cleanupCSVTestDB(t *testing.T) {}

// TestCSVStore runs all store tests against the flat-file catalog
func TestCSVStore(t *testing.T) {
	RunStoreTests(t, initCSVTestDB, cleanupCSVTestDB)
}

func TestCSVStoreReopen(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "catalog.csv")

	s, err := NewCSVStore(path, adapter.NewFileSystem())
	require.NoError(t, err)

	item := buildTestItem("Rogue Wave", "Ethiopia Guji")
	require.NoError(t, s.Append(ctx, item))
	require.NoError(t, s.UpdateFields(ctx, item.ID, ItemPatch{
		Status:     statusPtr(domain.StatusCompleted),
		Enrichment: buildTestEnrichment(),
	}))

	reopened, err := NewCSVStore(path, adapter.NewFileSystem())
	require.NoError(t, err)

	got, err := reopened.FindByKey(ctx, "Rogue Wave", "Ethiopia Guji")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, item.ID, got.ID)
	assert.Equal(t, domain.StatusCompleted, got.Status)
	require.NotNil(t, got.Enrichment)
	assert.Equal(t, domain.SeasonPeak, got.Enrichment.Seasonality)

	// IDs keep growing after a reopen
	next := buildTestItem("Rogue Wave", "Kenya Kiambu")
	require.NoError(t, reopened.Append(ctx, next))
	assert.Greater(t, next.ID, item.ID)
}

func TestCSVStoreColumnsByName(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "catalog.csv")

	// Reordered columns, a BOM, an operator note column and no id column
	content := "\xEF\xBB\xBFname,shop,notes,price,currency,stock_status,status\n" +
		"Ethiopia Guji,Rogue Wave,staff pick,24.50,CAD,in_stock,pending\n" +
		"Kenya Kiambu,Rogue Wave,,$27.00,CAD,sold_out,skipped\n"
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	s, err := NewCSVStore(path, adapter.NewFileSystem())
	require.NoError(t, err)

	items, err := s.ListAll(ctx)
	require.NoError(t, err)
	require.Len(t, items, 2)
	assert.Equal(t, uint64(1), items[0].ID)
	assert.Equal(t, uint64(2), items[1].ID)
	assert.Equal(t, "27.00", items[1].Price.Amount.StringFixed(2))
	assert.Equal(t, domain.StockSoldOut, items[1].StockStatus)

	require.NoError(t, s.UpdateFields(ctx, items[0].ID, ItemPatch{Status: statusPtr(domain.StatusSkipped)}))

	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	lines := strings.Split(strings.TrimPrefix(string(raw), "\xEF\xBB\xBF"), "\n")
	assert.True(t, strings.HasPrefix(lines[0], "name,shop,notes,price,currency,stock_status,status,id"))
	assert.Contains(t, lines[1], "staff pick")
}

func TestCSVStoreRejectsCorruptRow(t *testing.T) {
	path := filepath.Join(t.TempDir(), "catalog.csv")
	content := "id,shop,name,price\n1,Rogue Wave,Ethiopia Guji,not-a-price\n"
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	_, err := NewCSVStore(path, adapter.NewFileSystem())
	assert.Error(t, err)
}
