package checkout

import (
	"time"

	"github.com/google/uuid"

	"github.com/velvethaus/storefront-backend/internal/catalog"
	"github.com/velvethaus/storefront-backend/pkg/db/models"
	"github.com/velvethaus/storefront-backend/pkg/enums"
	"github.com/velvethaus/storefront-backend/pkg/types"
)

// PaymentIntentRequest is the client checkout submission. Prices never come
// from the client; only identity and quantity are trusted.
type PaymentIntentRequest struct {
	Items           []catalog.CartLine    `json:"items" validate:"required,min=1,dive"`
	CouponCode      string                `json:"couponCode"`
	Currency        string                `json:"currency"`
	ShippingOption  string                `json:"shippingOption"`
	CustomerEmail   string                `json:"customerEmail" validate:"omitempty,email"`
	CustomerName    string                `json:"customerName"`
	UserID          string                `json:"userId" validate:"omitempty,uuid"`
	ShippingAddress types.ShippingAddress `json:"shippingAddress"`
}

// PaymentIntentResponse returns the client secret plus the server-computed
// totals breakdown.
type PaymentIntentResponse struct {
	ClientSecret    string `json:"clientSecret"`
	PaymentIntentID string `json:"paymentIntentId"`
	AmountSubtotal  int64  `json:"amountSubtotal"`
	AmountDiscount  int64  `json:"amountDiscount"`
	AmountShipping  int64  `json:"amountShipping"`
	AmountTax       int64  `json:"amountTax"`
	AmountTotal     int64  `json:"amountTotal"`
	Currency        string `json:"currency"`
}

// OrderPayload is the order-creation payload embedded in the intent's
// metadata and replayed by the webhook reconciler.
type OrderPayload struct {
	UserID          string                `json:"user_id,omitempty"`
	CustomerEmail   string                `json:"customer_email"`
	CustomerName    string                `json:"customer_name"`
	Items           []types.OrderItem     `json:"items"`
	AmountSubtotal  int64                 `json:"amount_subtotal"`
	AmountDiscount  int64                 `json:"amount_discount"`
	AmountShipping  int64                 `json:"amount_shipping"`
	AmountTax       int64                 `json:"amount_tax"`
	AmountTotal     int64                 `json:"amount_total"`
	Currency        string                `json:"currency"`
	ShippingAddress types.ShippingAddress `json:"shipping_address"`
	CouponCode      string                `json:"coupon_code,omitempty"`
	PlacedAt        string                `json:"placed_at,omitempty"`
}

// ToOrder materializes the payload as a paid order keyed by the payment
// reference.
func (p OrderPayload) ToOrder(paymentIntentID string, now time.Time) *models.Order {
	order := &models.Order{
		PaymentIntentID:     paymentIntentID,
		CustomerEmail:       p.CustomerEmail,
		CustomerName:        p.CustomerName,
		Items:               p.Items,
		AmountSubtotalCents: p.AmountSubtotal,
		AmountDiscountCents: p.AmountDiscount,
		AmountShippingCents: p.AmountShipping,
		AmountTaxCents:      p.AmountTax,
		AmountTotalCents:    p.AmountTotal,
		Currency:            p.Currency,
		Status:              enums.OrderStatusPaid,
		ShippingAddress:     p.ShippingAddress,
		PlacedAt:            now,
	}
	if order.CustomerName == "" {
		order.CustomerName = "Guest"
	}
	if p.CouponCode != "" {
		code := p.CouponCode
		order.CouponCode = &code
	}
	if p.UserID != "" {
		if id, err := uuid.Parse(p.UserID); err == nil {
			order.UserID = &id
		}
	}
	if p.PlacedAt != "" {
		if placed, err := time.Parse(time.RFC3339, p.PlacedAt); err == nil {
			order.PlacedAt = placed
		}
	}
	return order
}
