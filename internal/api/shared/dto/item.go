package dto

import (
	"time"

	"github.com/beanlab/bean-curator/internal/domain"
)

// ItemResponse represents a catalog item in API responses
type ItemResponse struct {
	ID             uint64             `json:"id"`
	Shop           string             `json:"shop"`
	Name           string             `json:"name"`
	Price          string             `json:"price"`
	Currency       string             `json:"currency"`
	WeightGrams    *float64           `json:"weight_grams,omitempty"`
	WeightLabel    string             `json:"weight_label,omitempty"`
	StockStatus    string             `json:"stock_status"`
	URL            string             `json:"url,omitempty"`
	Status         string             `json:"status"`
	LastError      string             `json:"last_error,omitempty"`
	RoastedAt      *time.Time         `json:"roasted_at,omitempty"`
	LastSyncedAt   time.Time          `json:"last_synced_at"`
	LastSelectedAt *time.Time         `json:"last_selected_at,omitempty"`
	Enrichment     *domain.Enrichment `json:"enrichment,omitempty"`
}

// MapItemToDTO maps a domain item to its API representation
func MapItemToDTO(item *domain.Item) *ItemResponse {
	if item == nil {
		return nil
	}
	return &ItemResponse{
		ID:             item.ID,
		Shop:           item.Shop,
		Name:           item.Name,
		Price:          item.Price.Amount.StringFixed(2),
		Currency:       item.Price.Currency,
		WeightGrams:    item.WeightGrams,
		WeightLabel:    item.WeightLabel,
		StockStatus:    string(item.StockStatus),
		URL:            item.URL,
		Status:         string(item.Status),
		LastError:      domain.StringValue(item.LastError),
		RoastedAt:      item.RoastedAt,
		LastSyncedAt:   item.LastSyncedAt,
		LastSelectedAt: item.LastSelectedAt,
		Enrichment:     item.Enrichment,
	}
}

// ItemListResponse represents a page of items
type ItemListResponse struct {
	Items  []ItemResponse `json:"items"`
	Total  int64          `json:"total"`
	Limit  int            `json:"limit"`
	Offset int            `json:"offset"`
}

// StatsResponse represents catalog counters
type StatsResponse struct {
	Total    int64            `json:"total"`
	ByStatus map[string]int64 `json:"by_status"`
	InStock  int64            `json:"in_stock"`
	SoldOut  int64            `json:"sold_out"`
	Eligible int              `json:"eligible"`
}

// RankedItem is an eligible item with its live score breakdown
type RankedItem struct {
	Rank        int          `json:"rank"`
	Item        ItemResponse `json:"item"`
	Quality     float64      `json:"quality"`
	Seasonality float64      `json:"seasonality"`
	Value       float64      `json:"value"`
	Versatility float64      `json:"versatility"`
	Final       float64      `json:"final"`
	Notable     bool         `json:"notable"`
}

// RankingsResponse represents the live ranking of one bucket
type RankingsResponse struct {
	Bucket string       `json:"bucket"`
	Items  []RankedItem `json:"items"`
}

// ResetItemsRequest represents the body of a reset request
type ResetItemsRequest struct {
	Statuses []string `json:"statuses" binding:"required,min=1"`
}

// ResetItemsResponse represents the outcome of a reset
type ResetItemsResponse struct {
	Reset int64 `json:"reset"`
}
