package rest

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/beanlab/bean-curator/internal/api/shared/dto"
	"github.com/beanlab/bean-curator/internal/api/shared/executor"
	"github.com/beanlab/bean-curator/internal/domain"
)

// Handler defines the interface for REST API handlers
type Handler interface {
	// GetItem retrieves a single item
	// GET /api/v1/items/:id
	GetItem(c *gin.Context)

	// ListItems retrieves items with optional filters, in scan order
	// GET /api/v1/items?status=<status>&shop=<shop>&limit=<limit>&offset=<offset>
	ListItems(c *gin.Context)

	// GetStats returns catalog counters
	// GET /api/v1/stats
	GetStats(c *gin.Context)

	// GetRankings returns live scores of eligible items in one bucket
	// GET /api/v1/rankings?bucket=<filter|espresso>&limit=<limit>
	GetRankings(c *gin.Context)

	// ResetItems moves error or skipped items back to pending (requires authentication)
	// POST /api/v1/items/reset
	ResetItems(c *gin.Context)

	// HealthCheck returns the health status of the API
	// GET /health
	HealthCheck(c *gin.Context)
}

// handler implements the Handler interface
type handler struct {
	executor executor.Executor
}

// NewHandler creates a new REST API handler using the shared executor
func NewHandler(exec executor.Executor) Handler {
	return &handler{executor: exec}
}

// GetItem retrieves a single item by ID
func (h *handler) GetItem(c *gin.Context) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil || id == 0 {
		respondBadRequest(c, "Invalid item ID")
		return
	}

	item, err := h.executor.GetItem(c.Request.Context(), id)
	if err != nil {
		respondError(c, err, "Failed to get item")
		return
	}

	if item == nil {
		respondNotFound(c, "Item not found")
		return
	}

	c.JSON(http.StatusOK, item)
}

// ListItems retrieves items with optional filters
func (h *handler) ListItems(c *gin.Context) {
	queryParams, err := ParseListItemsQuery(c)
	if err != nil {
		respondValidationError(c, err.Error())
		return
	}

	if err := queryParams.Validate(); err != nil {
		respondValidationError(c, err.Error())
		return
	}

	resp, err := h.executor.ListItems(c.Request.Context(), queryParams.Filter())
	if err != nil {
		respondError(c, err, "Failed to list items")
		return
	}

	c.JSON(http.StatusOK, resp)
}

// GetStats returns catalog counters
func (h *handler) GetStats(c *gin.Context) {
	stats, err := h.executor.GetStats(c.Request.Context())
	if err != nil {
		respondError(c, err, "Failed to get stats")
		return
	}

	c.JSON(http.StatusOK, stats)
}

// GetRankings returns the live ranking of one bucket
func (h *handler) GetRankings(c *gin.Context) {
	queryParams, err := ParseRankingsQuery(c)
	if err != nil {
		respondValidationError(c, err.Error())
		return
	}

	if err := queryParams.Validate(); err != nil {
		respondValidationError(c, err.Error())
		return
	}

	bucket, _ := domain.ParseBucket(queryParams.Bucket)
	resp, err := h.executor.GetRankings(c.Request.Context(), bucket, queryParams.Limit)
	if err != nil {
		respondError(c, err, "Failed to get rankings")
		return
	}

	c.JSON(http.StatusOK, resp)
}

// ResetItems moves items in the requested statuses back to pending
func (h *handler) ResetItems(c *gin.Context) {
	var req dto.ResetItemsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBadRequest(c, "Invalid request body", err.Error())
		return
	}

	statuses := make([]domain.Status, 0, len(req.Statuses))
	for _, s := range req.Statuses {
		status, err := domain.ParseStatus(s)
		if err != nil {
			respondValidationError(c, err.Error())
			return
		}
		statuses = append(statuses, status)
	}

	resp, err := h.executor.ResetItems(c.Request.Context(), statuses)
	if err != nil {
		respondError(c, err, "Failed to reset items")
		return
	}

	c.JSON(http.StatusOK, resp)
}

// HealthCheck returns the health status of the API
func (h *handler) HealthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":  "healthy",
		"service": "bean-curator-api",
	})
}
