package checkout

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/velvethaus/storefront-backend/pkg/enums"
	"github.com/velvethaus/storefront-backend/pkg/types"
)

func TestOrderPayloadToOrder(t *testing.T) {
	userID := uuid.New()
	payload := OrderPayload{
		UserID:         userID.String(),
		CustomerEmail:  "jo@example.com",
		CustomerName:   "Jo",
		Items:          []types.OrderItem{{ProductID: uuid.NewString(), Quantity: 2, PriceCents: 1500}},
		AmountSubtotal: 3000,
		AmountDiscount: 300,
		AmountShipping: 0,
		AmountTax:      250,
		AmountTotal:    2950,
		Currency:       "usd",
		CouponCode:     "TEN",
		PlacedAt:       "2026-03-01T12:00:00Z",
	}

	now := time.Date(2026, 3, 1, 12, 5, 0, 0, time.UTC)
	order := payload.ToOrder("pi_abc", now)

	require.NotNil(t, order)
	assert.Equal(t, "pi_abc", order.PaymentIntentID)
	assert.Equal(t, enums.OrderStatusPaid, order.Status)
	assert.Equal(t, int64(2950), order.AmountTotalCents)
	require.NotNil(t, order.UserID)
	assert.Equal(t, userID, *order.UserID)
	require.NotNil(t, order.CouponCode)
	assert.Equal(t, "TEN", *order.CouponCode)
	// placed_at from the payload wins over the reconciliation time.
	assert.Equal(t, time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC), order.PlacedAt)
}

func TestOrderPayloadToOrderDefaults(t *testing.T) {
	order := OrderPayload{
		CustomerEmail:  "anon@example.com",
		AmountSubtotal: 1000,
		AmountTotal:    1000,
		Currency:       "usd",
		UserID:         "not-a-uuid",
		PlacedAt:       "yesterday",
	}.ToOrder("pi_def", time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC))

	assert.Equal(t, "Guest", order.CustomerName)
	assert.Nil(t, order.UserID)
	assert.Nil(t, order.CouponCode)
	// Unparseable placed_at falls back to the reconciliation time.
	assert.Equal(t, time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC), order.PlacedAt)
}
