package schema

import (
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/datatypes"
)

// Item is one catalog row, unique by item_key (normalized shop + name)
type Item struct {
	ID             uint64          `gorm:"primaryKey;autoIncrement"`
	ItemKey        string          `gorm:"column:item_key;type:text;not null;uniqueIndex"`
	Shop           string          `gorm:"column:shop;type:text;not null"`
	Name           string          `gorm:"column:name;type:text;not null"`
	PriceAmount    decimal.Decimal `gorm:"column:price_amount;type:numeric(12,2);not null"`
	Currency       string          `gorm:"column:currency;type:varchar(3);not null"`
	WeightGrams    *float64        `gorm:"column:weight_grams"`
	WeightLabel    string          `gorm:"column:weight_label;type:text;not null;default:''"`
	StockStatus    string          `gorm:"column:stock_status;type:text;not null"`
	Description    string          `gorm:"column:description;type:text;not null;default:''"`
	URL            string          `gorm:"column:url;type:text;not null;default:''"`
	RoastedAt      *time.Time      `gorm:"column:roasted_at;type:timestamptz"`
	LastSyncedAt   time.Time       `gorm:"column:last_synced_at;type:timestamptz;not null"`
	Enrichment     datatypes.JSON  `gorm:"column:enrichment;type:jsonb"`
	Status         string          `gorm:"column:status;type:text;not null;index"`
	LastError      *string         `gorm:"column:last_error;type:text"`
	LastSelectedAt *time.Time      `gorm:"column:last_selected_at;type:timestamptz"`
	CreatedAt      time.Time       `gorm:"column:created_at;type:timestamptz;not null;autoCreateTime"`
	UpdatedAt      time.Time       `gorm:"column:updated_at;type:timestamptz;not null;autoUpdateTime"`
}

// TableName specifies the table name for the Item model
func (Item) TableName() string {
	return "items"
}
