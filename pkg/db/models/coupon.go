package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/velvethaus/storefront-backend/pkg/enums"
)

// Coupon is a storefront discount code. UsageCount only moves forward and is
// mutated under the coupon's keyed lock.
type Coupon struct {
	ID                  uuid.UUID        `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	Code                string           `gorm:"column:code;not null;uniqueIndex"`
	Type                enums.CouponType `gorm:"column:type;not null"`
	Value               int64            `gorm:"column:value;not null"`
	IsActive            bool             `gorm:"column:is_active;not null;default:true"`
	ExpireDate          *time.Time       `gorm:"column:expire_date"`
	MinOrderAmountCents *int64           `gorm:"column:min_order_amount_cents"`
	UsageLimit          *int             `gorm:"column:usage_limit"`
	UsageCount          int              `gorm:"column:usage_count;not null;default:0"`
	CreatedAt           time.Time        `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt           time.Time        `gorm:"column:updated_at;autoUpdateTime"`
}
