package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/velvethaus/storefront-backend/pkg/enums"
)

// ProductVariant is a sellable variation of a product. PriceCents, when set,
// overrides the parent product's price.
type ProductVariant struct {
	ID            uuid.UUID         `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	ProductID     uuid.UUID         `gorm:"column:product_id;type:uuid;not null;index"`
	SKU           *string           `gorm:"column:sku"`
	Color         *string           `gorm:"column:color"`
	Size          *string           `gorm:"column:size"`
	PriceCents    *int64            `gorm:"column:price_cents"`
	StockQuantity int               `gorm:"column:stock_quantity;not null;default:0"`
	StockStatus   enums.StockStatus `gorm:"column:stock_status;not null;default:'in_stock'"`
	ImageURL      *string           `gorm:"column:image_url"`
	CreatedAt     time.Time         `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt     time.Time         `gorm:"column:updated_at;autoUpdateTime"`
}
