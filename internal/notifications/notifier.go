package notifications

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/velvethaus/storefront-backend/pkg/config"
	"github.com/velvethaus/storefront-backend/pkg/db/models"
	"github.com/velvethaus/storefront-backend/pkg/logger"
	"github.com/velvethaus/storefront-backend/pkg/types"
)

// OrderCreatedPayload is the outbound automation notification body.
type OrderCreatedPayload struct {
	Event           string                `json:"event"`
	OrderID         string                `json:"order_id"`
	PaymentIntentID string                `json:"payment_intent_id"`
	CustomerEmail   string                `json:"customer_email"`
	CustomerName    string                `json:"customer_name"`
	AmountTotal     int64                 `json:"amount_total"`
	Currency        string                `json:"currency"`
	Items           []types.OrderItem     `json:"items"`
	ShippingAddress types.ShippingAddress `json:"shipping_address"`
	PlacedAt        string                `json:"placed_at"`
}

// Notifier posts order events to the downstream automation endpoint on a
// fire-and-forget basis. Delivery failure is logged and swallowed; it never
// rolls back the order or the payment.
type Notifier struct {
	url     string
	timeout time.Duration
	client  *http.Client
	logg    *logger.Logger
}

// NewNotifier builds a notifier from the automation config. An empty notify
// URL disables delivery entirely.
func NewNotifier(cfg config.AutomationConfig, logg *logger.Logger) (*Notifier, error) {
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}
	timeout := cfg.NotifyTimeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Notifier{
		url:     cfg.NotifyURL,
		timeout: timeout,
		client:  &http.Client{Timeout: timeout},
		logg:    logg,
	}, nil
}

// OrderCreated dispatches the notification in a detached goroutine with its
// own timeout so the webhook handler never waits on it.
func (n *Notifier) OrderCreated(order *models.Order) {
	if n.url == "" {
		return
	}
	payload := OrderCreatedPayload{
		Event:           "order.created",
		OrderID:         order.ID.String(),
		PaymentIntentID: order.PaymentIntentID,
		CustomerEmail:   order.CustomerEmail,
		CustomerName:    order.CustomerName,
		AmountTotal:     order.AmountTotalCents,
		Currency:        order.Currency,
		Items:           order.Items,
		ShippingAddress: order.ShippingAddress,
		PlacedAt:        order.PlacedAt.UTC().Format(time.RFC3339),
	}

	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), n.timeout)
		defer cancel()
		if err := n.deliver(ctx, payload); err != nil {
			lctx := n.logg.WithOrderID(ctx, payload.OrderID)
			n.logg.Warn(lctx, fmt.Sprintf("order notification failed: %v", err))
		}
	}()
}

func (n *Notifier) deliver(ctx context.Context, payload OrderCreatedPayload) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal notification: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build notification request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := n.client.Do(req)
	if err != nil {
		return fmt.Errorf("post notification: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusMultipleChoices {
		return fmt.Errorf("notification endpoint returned %d", resp.StatusCode)
	}
	return nil
}
