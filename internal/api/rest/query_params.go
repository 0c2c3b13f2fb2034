package rest

import (
	"fmt"

	"github.com/gin-gonic/gin"

	"github.com/beanlab/bean-curator/internal/api/shared/executor"
	"github.com/beanlab/bean-curator/internal/domain"
	"github.com/beanlab/bean-curator/internal/store"
)

// ListItemsQueryParams holds query parameters for GET /items
type ListItemsQueryParams struct {
	Status string `form:"status"`
	Shop   string `form:"shop"`
	Limit  int    `form:"limit,default=20"`
	Offset int    `form:"offset,default=0"`
}

// ParseListItemsQuery parses query parameters for the list items endpoint
func ParseListItemsQuery(c *gin.Context) (*ListItemsQueryParams, error) {
	var params ListItemsQueryParams
	if err := c.ShouldBindQuery(&params); err != nil {
		return nil, err
	}
	return &params, nil
}

// Validate validates the list items query parameters
func (p *ListItemsQueryParams) Validate() error {
	if p.Limit < 1 || p.Limit > executor.MaxItemsLimit {
		return fmt.Errorf("limit must be between 1 and %d", executor.MaxItemsLimit)
	}
	if p.Offset < 0 {
		return fmt.Errorf("offset must be non-negative")
	}
	if p.Status != "" {
		if _, err := domain.ParseStatus(p.Status); err != nil {
			return err
		}
	}
	return nil
}

// Filter converts the parameters to a store filter
func (p *ListItemsQueryParams) Filter() store.ItemFilter {
	filter := store.ItemFilter{Shop: p.Shop, Limit: p.Limit, Offset: p.Offset}
	if p.Status != "" {
		status, _ := domain.ParseStatus(p.Status)
		filter.Status = &status
	}
	return filter
}

// RankingsQueryParams holds query parameters for GET /rankings
type RankingsQueryParams struct {
	Bucket string `form:"bucket,default=filter"`
	Limit  int    `form:"limit,default=10"`
}

// ParseRankingsQuery parses query parameters for the rankings endpoint
func ParseRankingsQuery(c *gin.Context) (*RankingsQueryParams, error) {
	var params RankingsQueryParams
	if err := c.ShouldBindQuery(&params); err != nil {
		return nil, err
	}
	return &params, nil
}

// Validate validates the rankings query parameters
func (p *RankingsQueryParams) Validate() error {
	if p.Limit < 1 || p.Limit > executor.MaxItemsLimit {
		return fmt.Errorf("limit must be between 1 and %d", executor.MaxItemsLimit)
	}
	_, err := domain.ParseBucket(p.Bucket)
	return err
}
