package rest_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/golang/mock/gomock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/beanlab/bean-curator/internal/api/middleware"
	"github.com/beanlab/bean-curator/internal/api/rest"
	"github.com/beanlab/bean-curator/internal/api/shared/dto"
	apierrors "github.com/beanlab/bean-curator/internal/api/shared/errors"
	"github.com/beanlab/bean-curator/internal/domain"
	"github.com/beanlab/bean-curator/internal/logger"
	"github.com/beanlab/bean-curator/internal/mocks"
	"github.com/beanlab/bean-curator/internal/store"
)

func TestMain(m *testing.M) {
	if err := logger.Initialize(logger.Config{Debug: false}); err != nil {
		panic(err)
	}
	gin.SetMode(gin.TestMode)
	os.Exit(m.Run())
}

const testAPIKey = "ops-key"

func setupRouter(t *testing.T) (*mocks.MockAPIExecutor, *gin.Engine) {
	ctrl := gomock.NewController(t)
	exec := mocks.NewMockAPIExecutor(ctrl)

	auth, err := middleware.NewAuthenticator(middleware.AuthConfig{APIKeys: []string{testAPIKey}})
	require.NoError(t, err)

	router := gin.New()
	rest.SetupRoutes(router, rest.NewHandler(exec), auth)
	return exec, router
}

func serve(router *gin.Engine, method, target, body string, headers map[string]string) *httptest.ResponseRecorder {
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, target, nil)
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func TestHealthCheck(t *testing.T) {
	_, router := setupRouter(t)

	w := serve(router, http.MethodGet, "/health", "", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"healthy"`)
}

func TestMetricsEndpoint(t *testing.T) {
	_, router := setupRouter(t)

	w := serve(router, http.MethodGet, "/metrics", "", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "go_goroutines")
}

func TestGetItem(t *testing.T) {
	exec, router := setupRouter(t)

	exec.EXPECT().GetItem(gomock.Any(), uint64(7)).Return(&dto.ItemResponse{ID: 7, Name: "Gichathaini"}, nil)
	w := serve(router, http.MethodGet, "/api/v1/items/7", "", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"name":"Gichathaini"`)

	exec.EXPECT().GetItem(gomock.Any(), uint64(8)).Return(nil, nil)
	w = serve(router, http.MethodGet, "/api/v1/items/8", "", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = serve(router, http.MethodGet, "/api/v1/items/abc", "", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	exec.EXPECT().GetItem(gomock.Any(), uint64(9)).Return(nil, apierrors.NewDatabaseError("Failed to get item"))
	w = serve(router, http.MethodGet, "/api/v1/items/9", "", nil)
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Contains(t, w.Body.String(), `"database_error"`)
}

func TestListItems(t *testing.T) {
	exec, router := setupRouter(t)

	exec.EXPECT().
		ListItems(gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ context.Context, filter store.ItemFilter) (*dto.ItemListResponse, error) {
			require.NotNil(t, filter.Status)
			assert.Equal(t, domain.StatusError, *filter.Status)
			assert.Equal(t, "northbound", filter.Shop)
			assert.Equal(t, 5, filter.Limit)
			assert.Equal(t, 10, filter.Offset)
			return &dto.ItemListResponse{Items: []dto.ItemResponse{}, Total: 12, Limit: 5, Offset: 10}, nil
		})

	w := serve(router, http.MethodGet, "/api/v1/items?status=ERROR&shop=northbound&limit=5&offset=10", "", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"total":12`)
}

func TestListItems_InvalidQuery(t *testing.T) {
	_, router := setupRouter(t)

	tests := []string{
		"/api/v1/items?status=archived",
		"/api/v1/items?limit=0",
		"/api/v1/items?limit=1000",
		"/api/v1/items?offset=-1",
		"/api/v1/items?limit=many",
	}
	for _, target := range tests {
		w := serve(router, http.MethodGet, target, "", nil)
		assert.Equal(t, http.StatusUnprocessableEntity, w.Code, target)
	}
}

func TestGetStats(t *testing.T) {
	exec, router := setupRouter(t)

	exec.EXPECT().GetStats(gomock.Any()).Return(&dto.StatsResponse{Total: 4, Eligible: 2}, nil)
	w := serve(router, http.MethodGet, "/api/v1/stats", "", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"eligible":2`)
}

func TestGetRankings(t *testing.T) {
	exec, router := setupRouter(t)

	exec.EXPECT().GetRankings(gomock.Any(), domain.BucketEspresso, 3).Return(&dto.RankingsResponse{Bucket: "espresso"}, nil)
	w := serve(router, http.MethodGet, "/api/v1/rankings?bucket=espresso&limit=3", "", nil)
	assert.Equal(t, http.StatusOK, w.Code)

	exec.EXPECT().GetRankings(gomock.Any(), domain.BucketFilter, 10).Return(&dto.RankingsResponse{Bucket: "filter"}, nil)
	w = serve(router, http.MethodGet, "/api/v1/rankings", "", nil)
	assert.Equal(t, http.StatusOK, w.Code)

	w = serve(router, http.MethodGet, "/api/v1/rankings?bucket=cold_brew", "", nil)
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
}

func TestResetItems(t *testing.T) {
	exec, router := setupRouter(t)
	auth := map[string]string{"Authorization": "ApiKey " + testAPIKey}

	exec.EXPECT().
		ResetItems(gomock.Any(), []domain.Status{domain.StatusError, domain.StatusSkipped}).
		Return(&dto.ResetItemsResponse{Reset: 3}, nil)
	w := serve(router, http.MethodPost, "/api/v1/items/reset", `{"statuses":["error","skipped"]}`, auth)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"reset":3`)

	exec.EXPECT().
		ResetItems(gomock.Any(), []domain.Status{domain.StatusCompleted}).
		Return(nil, apierrors.NewValidationError(`status "completed" cannot be reset`))
	w = serve(router, http.MethodPost, "/api/v1/items/reset", `{"statuses":["completed"]}`, auth)
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)

	w = serve(router, http.MethodPost, "/api/v1/items/reset", `{"statuses":["bogus"]}`, auth)
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)

	w = serve(router, http.MethodPost, "/api/v1/items/reset", `{"statuses":[]}`, auth)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestResetItems_RequiresAuth(t *testing.T) {
	_, router := setupRouter(t)

	w := serve(router, http.MethodPost, "/api/v1/items/reset", `{"statuses":["error"]}`, nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = serve(router, http.MethodPost, "/api/v1/items/reset", `{"statuses":["error"]}`, map[string]string{"Authorization": "ApiKey wrong"})
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}
