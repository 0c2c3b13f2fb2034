package executor_test

import (
	"context"
	"errors"
	"os"
	"testing"
	"time"

	"github.com/golang/mock/gomock"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/beanlab/bean-curator/internal/api/shared/executor"
	apierrors "github.com/beanlab/bean-curator/internal/api/shared/errors"
	"github.com/beanlab/bean-curator/internal/domain"
	"github.com/beanlab/bean-curator/internal/logger"
	"github.com/beanlab/bean-curator/internal/mocks"
	"github.com/beanlab/bean-curator/internal/scoring"
	"github.com/beanlab/bean-curator/internal/selection"
	"github.com/beanlab/bean-curator/internal/store"
)

func TestMain(m *testing.M) {
	if err := logger.Initialize(logger.Config{Debug: false}); err != nil {
		panic(err)
	}
	os.Exit(m.Run())
}

var now = time.Date(2026, 10, 18, 9, 0, 0, 0, time.UTC)

func setupExecutor(t *testing.T) (*mocks.MockStore, executor.Executor) {
	ctrl := gomock.NewController(t)
	st := mocks.NewMockStore(ctrl)
	clock := mocks.NewMockClock(ctrl)
	clock.EXPECT().Now().Return(now).AnyTimes()

	scorer := scoring.NewScorer(scoring.DefaultWeights())
	selector := selection.NewSelector(scorer, selection.DefaultConfig())
	return st, executor.NewExecutor(st, scorer, selector, clock)
}

func enrichedItem(id uint64, use domain.IntendedUse, value float64) domain.Item {
	return domain.Item{
		ID:           id,
		Shop:         "northbound",
		Name:         "Lot " + string(rune('A'+id)),
		Price:        domain.Price{Amount: decimal.RequireFromString("18.50"), Currency: "USD"},
		StockStatus:  domain.StockInStock,
		Status:       domain.StatusCompleted,
		LastSyncedAt: now.Add(-time.Hour),
		Enrichment: &domain.Enrichment{
			RoastLevel:  domain.RoastLight,
			IntendedUse: use,
			ValueScore:  value,
		},
	}
}

func assertAPIError(t *testing.T, err error, code apierrors.ErrorCode) {
	t.Helper()
	var apiErr *apierrors.APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, code, apiErr.Code)
}

func TestGetItem(t *testing.T) {
	st, exec := setupExecutor(t)

	item := enrichedItem(3, domain.UseFilter, 6)
	st.EXPECT().GetByID(gomock.Any(), uint64(3)).Return(&item, nil)
	resp, err := exec.GetItem(context.Background(), 3)
	require.NoError(t, err)
	assert.Equal(t, "18.50", resp.Price)
	assert.Equal(t, "USD", resp.Currency)
	assert.Equal(t, "completed", resp.Status)

	st.EXPECT().GetByID(gomock.Any(), uint64(4)).Return(nil, nil)
	resp, err = exec.GetItem(context.Background(), 4)
	require.NoError(t, err)
	assert.Nil(t, resp)

	st.EXPECT().GetByID(gomock.Any(), uint64(5)).Return(nil, errors.New("connection reset"))
	_, err = exec.GetItem(context.Background(), 5)
	assertAPIError(t, err, apierrors.ErrCodeDatabaseError)
}

func TestListItems_ClampsLimit(t *testing.T) {
	st, exec := setupExecutor(t)

	st.EXPECT().
		ListItems(gomock.Any(), store.ItemFilter{Limit: executor.MaxItemsLimit}).
		Return([]domain.Item{enrichedItem(1, domain.UseFilter, 5)}, int64(1), nil)

	resp, err := exec.ListItems(context.Background(), store.ItemFilter{Limit: 5000, Offset: -3})
	require.NoError(t, err)
	assert.Equal(t, executor.MaxItemsLimit, resp.Limit)
	assert.Equal(t, 0, resp.Offset)
	assert.Len(t, resp.Items, 1)
}

func TestGetStats(t *testing.T) {
	st, exec := setupExecutor(t)

	soldOut := enrichedItem(2, domain.UseFilter, 5)
	soldOut.StockStatus = domain.StockSoldOut

	st.EXPECT().Stats(gomock.Any()).Return(&store.Stats{
		Total:    2,
		ByStatus: map[domain.Status]int64{domain.StatusCompleted: 2},
		InStock:  1,
		SoldOut:  1,
	}, nil)
	st.EXPECT().ListAll(gomock.Any()).Return([]domain.Item{enrichedItem(1, domain.UseFilter, 5), soldOut}, nil)

	resp, err := exec.GetStats(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(2), resp.ByStatus["completed"])
	assert.Equal(t, 1, resp.Eligible)
}

func TestGetRankings(t *testing.T) {
	st, exec := setupExecutor(t)

	st.EXPECT().ListAll(gomock.Any()).Return([]domain.Item{
		enrichedItem(1, domain.UseFilter, 4),
		enrichedItem(2, domain.UseEspresso, 9),
		enrichedItem(3, domain.UseFilter, 9),
		enrichedItem(4, domain.UseFilter, 7),
	}, nil)

	resp, err := exec.GetRankings(context.Background(), domain.BucketFilter, 2)
	require.NoError(t, err)
	assert.Equal(t, "filter", resp.Bucket)
	require.Len(t, resp.Items, 2)
	assert.Equal(t, uint64(3), resp.Items[0].Item.ID)
	assert.Equal(t, 1, resp.Items[0].Rank)
	assert.Equal(t, uint64(4), resp.Items[1].Item.ID)
	assert.GreaterOrEqual(t, resp.Items[0].Final, resp.Items[1].Final)
}

func TestResetItems(t *testing.T) {
	st, exec := setupExecutor(t)

	st.EXPECT().ResetStatus(gomock.Any(), []domain.Status{domain.StatusError}).Return(int64(4), nil)
	resp, err := exec.ResetItems(context.Background(), []domain.Status{domain.StatusError})
	require.NoError(t, err)
	assert.Equal(t, int64(4), resp.Reset)

	_, err = exec.ResetItems(context.Background(), []domain.Status{domain.StatusPending})
	assertAPIError(t, err, apierrors.ErrCodeValidationFailed)
}
