package orders

import (
	"time"

	"github.com/velvethaus/storefront-backend/pkg/db/models"
	"github.com/velvethaus/storefront-backend/pkg/types"
)

// OrderDTO is the outward-facing order shape.
type OrderDTO struct {
	ID              string                `json:"id"`
	UserID          string                `json:"userId,omitempty"`
	PaymentIntentID string                `json:"paymentIntentId"`
	CustomerEmail   string                `json:"customerEmail"`
	CustomerName    string                `json:"customerName"`
	Items           []types.OrderItem     `json:"items"`
	AmountSubtotal  int64                 `json:"amountSubtotal"`
	AmountDiscount  int64                 `json:"amountDiscount"`
	AmountShipping  int64                 `json:"amountShipping"`
	AmountTax       int64                 `json:"amountTax"`
	AmountTotal     int64                 `json:"amountTotal"`
	Currency        string                `json:"currency"`
	Status          string                `json:"status"`
	ShippingAddress types.ShippingAddress `json:"shippingAddress"`
	CouponCode      string                `json:"couponCode,omitempty"`
	TrackingNumber  string                `json:"trackingNumber,omitempty"`
	TrackingCarrier string                `json:"trackingCarrier,omitempty"`
	PlacedAt        time.Time             `json:"placedAt"`
	CreatedAt       time.Time             `json:"createdAt"`
}

// NewOrderDTO maps a stored order to its outward shape.
func NewOrderDTO(order *models.Order) *OrderDTO {
	if order == nil {
		return nil
	}
	dto := &OrderDTO{
		ID:              order.ID.String(),
		PaymentIntentID: order.PaymentIntentID,
		CustomerEmail:   order.CustomerEmail,
		CustomerName:    order.CustomerName,
		Items:           order.Items,
		AmountSubtotal:  order.AmountSubtotalCents,
		AmountDiscount:  order.AmountDiscountCents,
		AmountShipping:  order.AmountShippingCents,
		AmountTax:       order.AmountTaxCents,
		AmountTotal:     order.AmountTotalCents,
		Currency:        order.Currency,
		Status:          order.Status.String(),
		ShippingAddress: order.ShippingAddress,
		PlacedAt:        order.PlacedAt,
		CreatedAt:       order.CreatedAt,
	}
	if order.UserID != nil {
		dto.UserID = order.UserID.String()
	}
	if order.CouponCode != nil {
		dto.CouponCode = *order.CouponCode
	}
	if order.TrackingNumber != nil {
		dto.TrackingNumber = *order.TrackingNumber
	}
	if order.TrackingCarrier != nil {
		dto.TrackingCarrier = *order.TrackingCarrier
	}
	return dto
}
