package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/beanlab/bean-curator/internal/domain"
	"github.com/beanlab/bean-curator/internal/store/schema"
)

type pgStore struct {
	db *gorm.DB
}

// NewPGStore creates a new PostgreSQL store instance
func NewPGStore(db *gorm.DB) Store {
	return &pgStore{db: db}
}

// GormConfig returns the gorm settings every PostgreSQL connection uses.
// Driver errors are translated so unique violations surface as gorm.ErrDuplicatedKey.
func GormConfig() *gorm.Config {
	return &gorm.Config{TranslateError: true}
}

// ConfigureConnectionPool configures the connection pool settings for a GORM database connection.
// Zero values fall back to defaults:
//   - MaxOpenConns: 10
//   - MaxIdleConns: 2
//   - ConnMaxLifetime: 5 minutes
//   - ConnMaxIdleTime: 10 minutes
func ConfigureConnectionPool(db *gorm.DB, maxOpenConns, maxIdleConns int, connMaxLifetime, connMaxIdleTime time.Duration) error {
	sqlDB, err := db.DB()
	if err != nil {
		return fmt.Errorf("failed to get underlying sql.DB: %w", err)
	}

	if maxOpenConns == 0 {
		maxOpenConns = 10
	}
	if maxIdleConns == 0 {
		maxIdleConns = 2
	}
	if connMaxLifetime == 0 {
		connMaxLifetime = 5 * time.Minute
	}
	if connMaxIdleTime == 0 {
		connMaxIdleTime = 10 * time.Minute
	}
	if maxIdleConns > maxOpenConns {
		maxIdleConns = maxOpenConns
	}

	sqlDB.SetMaxOpenConns(maxOpenConns)
	sqlDB.SetMaxIdleConns(maxIdleConns)
	sqlDB.SetConnMaxLifetime(connMaxLifetime)
	sqlDB.SetConnMaxIdleTime(connMaxIdleTime)

	return nil
}

// ListAll returns every item in scan order
func (s *pgStore) ListAll(ctx context.Context) ([]domain.Item, error) {
	var rows []schema.Item
	if err := s.db.WithContext(ctx).Order("id ASC").Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("failed to list items: %w", err)
	}
	return toDomainItems(rows)
}

// FindByKey retrieves an item by its normalized shop and name
func (s *pgStore) FindByKey(ctx context.Context, shop, name string) (*domain.Item, error) {
	var row schema.Item
	err := s.db.WithContext(ctx).Where("item_key = ?", domain.ItemKey(shop, name)).First(&row).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to find item: %w", err)
	}

	item, err := toDomainItem(&row)
	if err != nil {
		return nil, err
	}
	return &item, nil
}

// GetByID retrieves an item by its ID
func (s *pgStore) GetByID(ctx context.Context, id uint64) (*domain.Item, error) {
	var row schema.Item
	err := s.db.WithContext(ctx).Where("id = ?", id).First(&row).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get item: %w", err)
	}

	item, err := toDomainItem(&row)
	if err != nil {
		return nil, err
	}
	return &item, nil
}

// ListItems returns a filtered page of items and the total match count
func (s *pgStore) ListItems(ctx context.Context, filter ItemFilter) ([]domain.Item, int64, error) {
	query := s.db.WithContext(ctx).Model(&schema.Item{})
	if filter.Status != nil {
		query = query.Where("status = ?", string(*filter.Status))
	}
	if filter.Shop != "" {
		query = query.Where("LOWER(shop) = ?", domain.Normalize(filter.Shop))
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to count items: %w", err)
	}

	var rows []schema.Item
	query = query.Order("id ASC").Offset(filter.Offset)
	if filter.Limit > 0 {
		query = query.Limit(filter.Limit)
	}
	if err := query.Find(&rows).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to list items: %w", err)
	}

	items, err := toDomainItems(rows)
	if err != nil {
		return nil, 0, err
	}
	return items, total, nil
}

// Append inserts a new item and assigns its ID
func (s *pgStore) Append(ctx context.Context, item *domain.Item) error {
	row, err := toSchemaItem(item)
	if err != nil {
		return err
	}
	row.ID = 0

	if err := s.db.WithContext(ctx).Create(row).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return fmt.Errorf("%w: %s", domain.ErrItemExists, item.Key())
		}
		return fmt.Errorf("failed to append item: %w", err)
	}

	item.ID = row.ID
	return nil
}

// UpdateFields applies the non-nil fields of patch to one item
func (s *pgStore) UpdateFields(ctx context.Context, id uint64, patch ItemPatch) error {
	updates := map[string]interface{}{}
	if patch.Price != nil {
		updates["price_amount"] = patch.Price.Amount
		updates["currency"] = patch.Price.Currency
	}
	if patch.StockStatus != nil {
		updates["stock_status"] = string(*patch.StockStatus)
	}
	if patch.LastSyncedAt != nil {
		updates["last_synced_at"] = patch.LastSyncedAt.UTC()
	}
	if patch.Status != nil {
		updates["status"] = string(*patch.Status)
	}
	if patch.Enrichment != nil {
		b, err := encodeEnrichment(patch.Enrichment)
		if err != nil {
			return err
		}
		updates["enrichment"] = datatypes.JSON(b)
	}
	if patch.LastError != nil {
		if *patch.LastError == "" {
			updates["last_error"] = nil
		} else {
			updates["last_error"] = *patch.LastError
		}
	}
	if patch.LastSelectedAt != nil {
		updates["last_selected_at"] = patch.LastSelectedAt.UTC()
	}

	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var count int64
		if err := tx.Model(&schema.Item{}).Where("id = ?", id).Count(&count).Error; err != nil {
			return fmt.Errorf("failed to check item: %w", err)
		}
		if count == 0 {
			return fmt.Errorf("%w: %d", domain.ErrItemNotFound, id)
		}

		if len(updates) > 0 {
			if err := tx.Model(&schema.Item{}).Where("id = ?", id).Updates(updates).Error; err != nil {
				return fmt.Errorf("failed to update item: %w", err)
			}
		}

		// A known weight is never replaced
		if patch.WeightGrams != nil {
			if err := tx.Model(&schema.Item{}).
				Where("id = ? AND weight_grams IS NULL", id).
				Update("weight_grams", *patch.WeightGrams).Error; err != nil {
				return fmt.Errorf("failed to update item weight: %w", err)
			}
		}

		return nil
	})
}

// ResetStatus moves items in the given statuses back to Pending and clears their errors
func (s *pgStore) ResetStatus(ctx context.Context, from []domain.Status) (int64, error) {
	from = resettable(from)
	if len(from) == 0 {
		return 0, nil
	}

	statuses := make([]string, len(from))
	for i, st := range from {
		statuses[i] = string(st)
	}

	result := s.db.WithContext(ctx).Model(&schema.Item{}).
		Where("status IN ?", statuses).
		Updates(map[string]interface{}{
			"status":     string(domain.StatusPending),
			"last_error": nil,
			"enrichment": nil,
		})
	if result.Error != nil {
		return 0, fmt.Errorf("failed to reset item status: %w", result.Error)
	}

	return result.RowsAffected, nil
}

// Stats returns catalog counters
func (s *pgStore) Stats(ctx context.Context) (*Stats, error) {
	var byStatus []struct {
		Status string
		Count  int64
	}
	if err := s.db.WithContext(ctx).Model(&schema.Item{}).
		Select("status, COUNT(*) AS count").
		Group("status").
		Scan(&byStatus).Error; err != nil {
		return nil, fmt.Errorf("failed to count items by status: %w", err)
	}

	var byStock []struct {
		StockStatus string
		Count       int64
	}
	if err := s.db.WithContext(ctx).Model(&schema.Item{}).
		Select("stock_status, COUNT(*) AS count").
		Group("stock_status").
		Scan(&byStock).Error; err != nil {
		return nil, fmt.Errorf("failed to count items by stock: %w", err)
	}

	stats := newStats()
	for _, row := range byStatus {
		stats.ByStatus[domain.Status(row.Status)] = row.Count
		stats.Total += row.Count
	}
	for _, row := range byStock {
		switch domain.StockStatus(row.StockStatus) {
		case domain.StockInStock:
			stats.InStock = row.Count
		case domain.StockSoldOut:
			stats.SoldOut = row.Count
		}
	}

	return stats, nil
}
