package store

import (
	"fmt"

	"github.com/goccy/go-json"
	"gorm.io/datatypes"

	"github.com/beanlab/bean-curator/internal/domain"
	"github.com/beanlab/bean-curator/internal/store/schema"
)

func encodeEnrichment(e *domain.Enrichment) ([]byte, error) {
	if e == nil {
		return nil, nil
	}
	b, err := json.Marshal(e)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal enrichment: %w", err)
	}
	return b, nil
}

func decodeEnrichment(b []byte) (*domain.Enrichment, error) {
	if len(b) == 0 || string(b) == "null" {
		return nil, nil
	}
	var e domain.Enrichment
	if err := json.Unmarshal(b, &e); err != nil {
		return nil, fmt.Errorf("failed to unmarshal enrichment: %w", err)
	}
	return &e, nil
}

func toSchemaItem(item *domain.Item) (*schema.Item, error) {
	enrichment, err := encodeEnrichment(item.Enrichment)
	if err != nil {
		return nil, err
	}

	return &schema.Item{
		ID:             item.ID,
		ItemKey:        item.Key(),
		Shop:           item.Shop,
		Name:           item.Name,
		PriceAmount:    item.Price.Amount,
		Currency:       item.Price.Currency,
		WeightGrams:    item.WeightGrams,
		WeightLabel:    item.WeightLabel,
		StockStatus:    string(item.StockStatus),
		Description:    item.Description,
		URL:            item.URL,
		RoastedAt:      item.RoastedAt,
		LastSyncedAt:   item.LastSyncedAt.UTC(),
		Enrichment:     datatypes.JSON(enrichment),
		Status:         string(item.Status),
		LastError:      item.LastError,
		LastSelectedAt: item.LastSelectedAt,
	}, nil
}

func toDomainItem(row *schema.Item) (domain.Item, error) {
	enrichment, err := decodeEnrichment(row.Enrichment)
	if err != nil {
		return domain.Item{}, fmt.Errorf("item %d: %w", row.ID, err)
	}

	return domain.Item{
		ID:             row.ID,
		Shop:           row.Shop,
		Name:           row.Name,
		Price:          domain.Price{Amount: row.PriceAmount, Currency: row.Currency},
		WeightGrams:    row.WeightGrams,
		WeightLabel:    row.WeightLabel,
		StockStatus:    domain.StockStatus(row.StockStatus),
		Description:    row.Description,
		URL:            row.URL,
		RoastedAt:      row.RoastedAt,
		LastSyncedAt:   row.LastSyncedAt,
		Enrichment:     enrichment,
		Status:         domain.Status(row.Status),
		LastError:      row.LastError,
		LastSelectedAt: row.LastSelectedAt,
	}, nil
}

func toDomainItems(rows []schema.Item) ([]domain.Item, error) {
	items := make([]domain.Item, 0, len(rows))
	for i := range rows {
		item, err := toDomainItem(&rows[i])
		if err != nil {
			return nil, err
		}
		items = append(items, item)
	}
	return items, nil
}
