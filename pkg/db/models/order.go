package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/velvethaus/storefront-backend/pkg/enums"
	"github.com/velvethaus/storefront-backend/pkg/types"
)

// Order is the durable record of a completed (or in-flight) checkout. The
// payment intent reference carries a uniqueness constraint so concurrent
// webhook deliveries cannot create two orders for one payment.
type Order struct {
	ID                  uuid.UUID             `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	UserID              *uuid.UUID            `gorm:"column:user_id;type:uuid"`
	PaymentIntentID     string                `gorm:"column:payment_intent_id;not null;uniqueIndex:uq_orders_payment_intent"`
	CustomerEmail       string                `gorm:"column:customer_email;not null"`
	CustomerName        string                `gorm:"column:customer_name;not null;default:'Guest'"`
	Items               []types.OrderItem     `gorm:"column:items;type:jsonb;serializer:json"`
	AmountSubtotalCents int64                 `gorm:"column:amount_subtotal_cents;not null"`
	AmountDiscountCents int64                 `gorm:"column:amount_discount_cents;not null;default:0"`
	AmountShippingCents int64                 `gorm:"column:amount_shipping_cents;not null;default:0"`
	AmountTaxCents      int64                 `gorm:"column:amount_tax_cents;not null;default:0"`
	AmountTotalCents    int64                 `gorm:"column:amount_total_cents;not null"`
	Currency            string                `gorm:"column:currency;not null;default:'usd'"`
	Status              enums.OrderStatus     `gorm:"column:status;not null;default:'pending'"`
	ShippingAddress     types.ShippingAddress `gorm:"column:shipping_address;type:jsonb;serializer:json"`
	CouponCode          *string               `gorm:"column:coupon_code"`
	TrackingNumber      *string               `gorm:"column:tracking_number"`
	TrackingCarrier     *string               `gorm:"column:tracking_carrier"`
	Notes               *string               `gorm:"column:notes"`
	PlacedAt            time.Time             `gorm:"column:placed_at;not null"`
	CreatedAt           time.Time             `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt           time.Time             `gorm:"column:updated_at;autoUpdateTime"`
}
