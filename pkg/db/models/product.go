package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/velvethaus/storefront-backend/pkg/enums"
)

// Product is the canonical catalog listing. UpdatedAt doubles as the
// optimistic-concurrency fence for stock writes.
type Product struct {
	ID            uuid.UUID         `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	Slug          string            `gorm:"column:slug;not null;uniqueIndex"`
	Title         string            `gorm:"column:title;not null"`
	PriceCents    int64             `gorm:"column:price_cents;not null"`
	HasVariants   bool              `gorm:"column:has_variants;not null;default:false"`
	StockQuantity int               `gorm:"column:stock_quantity;not null;default:0"`
	StockStatus   enums.StockStatus `gorm:"column:stock_status;not null;default:'in_stock'"`
	SKU           *string           `gorm:"column:sku"`
	ImageURL      *string           `gorm:"column:image_url"`
	IsActive      bool              `gorm:"column:is_active;not null;default:true"`
	Variants      []ProductVariant  `gorm:"foreignKey:ProductID;constraint:OnDelete:CASCADE"`
	CreatedAt     time.Time         `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt     time.Time         `gorm:"column:updated_at;autoUpdateTime"`
}
