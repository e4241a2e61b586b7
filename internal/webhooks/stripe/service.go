package stripewebhook

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/stripe/stripe-go/v84"

	"github.com/velvethaus/storefront-backend/internal/checkout"
	"github.com/velvethaus/storefront-backend/internal/inventory"
	"github.com/velvethaus/storefront-backend/pkg/db/models"
	"github.com/velvethaus/storefront-backend/pkg/enums"
	pkgerrors "github.com/velvethaus/storefront-backend/pkg/errors"
	"github.com/velvethaus/storefront-backend/pkg/logger"
	"github.com/velvethaus/storefront-backend/pkg/metrics"
	"github.com/velvethaus/storefront-backend/pkg/types"
)

// Overridable for tests that pin order timestamps.
var timeNow = time.Now

type orderService interface {
	GetByPaymentIntent(ctx context.Context, intentID string) (*models.Order, error)
	CreateIdempotent(ctx context.Context, order *models.Order) (*models.Order, bool, error)
	UpdateStatus(ctx context.Context, id uuid.UUID, target enums.OrderStatus) (*models.Order, error)
}

type stockDeductor interface {
	DeductForOrder(ctx context.Context, items []types.OrderItem) ([]inventory.DeductResult, error)
}

type couponIncrementer interface {
	IncrementUsage(ctx context.Context, code string) error
}

type orderNotifier interface {
	OrderCreated(order *models.Order)
}

type ServiceParams struct {
	Orders    orderService
	Inventory stockDeductor
	Coupons   couponIncrementer
	Notifier  orderNotifier
	Metrics   *metrics.PipelineMetrics
	Logger    *logger.Logger
}

// Service reconciles inbound payment lifecycle events into orders. Events
// outside the known set are explicitly ignored.
type Service struct {
	orders    orderService
	inventory stockDeductor
	coupons   couponIncrementer
	notifier  orderNotifier
	metrics   *metrics.PipelineMetrics
	logg      *logger.Logger
}

func NewService(params ServiceParams) (*Service, error) {
	if params.Orders == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "order service required")
	}
	if params.Inventory == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "inventory service required")
	}
	if params.Coupons == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "coupon service required")
	}
	if params.Notifier == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "notifier required")
	}
	if params.Logger == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "logger required")
	}
	return &Service{
		orders:    params.Orders,
		inventory: params.Inventory,
		coupons:   params.Coupons,
		notifier:  params.Notifier,
		metrics:   params.Metrics,
		logg:      params.Logger,
	}, nil
}

func (s *Service) HandleEvent(ctx context.Context, event *stripe.Event) error {
	if event == nil || event.Data == nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "stripe event data required")
	}

	switch event.Type {
	case stripe.EventTypePaymentIntentSucceeded:
		var intent stripe.PaymentIntent
		if err := json.Unmarshal(event.Data.Raw, &intent); err != nil {
			s.metrics.IncWebhookEvent(string(event.Type), "malformed")
			return pkgerrors.Wrap(pkgerrors.CodeValidation, err, "decode payment intent event")
		}
		if err := s.handlePaymentSucceeded(ctx, &intent); err != nil {
			s.metrics.IncWebhookEvent(string(event.Type), "failed")
			return err
		}
		s.metrics.IncWebhookEvent(string(event.Type), "processed")
		return nil

	case stripe.EventTypePaymentIntentPaymentFailed:
		var intent stripe.PaymentIntent
		if err := json.Unmarshal(event.Data.Raw, &intent); err != nil {
			s.metrics.IncWebhookEvent(string(event.Type), "malformed")
			return pkgerrors.Wrap(pkgerrors.CodeValidation, err, "decode payment intent event")
		}
		lctx := s.logg.WithPaymentIntent(ctx, intent.ID)
		s.logg.Warn(lctx, "payment failed for intent")
		s.metrics.IncWebhookEvent(string(event.Type), "processed")
		return nil

	default:
		s.metrics.IncWebhookEvent(string(event.Type), "ignored")
		return nil
	}
}

// handlePaymentSucceeded is the core reconciliation path: find or create the
// order for the payment reference, then deduct stock, bump the coupon and
// notify downstream. Replayed deliveries for an already-paid order are a
// logged no-op.
func (s *Service) handlePaymentSucceeded(ctx context.Context, intent *stripe.PaymentIntent) error {
	if intent.ID == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "payment intent id missing")
	}
	ctx = s.logg.WithPaymentIntent(ctx, intent.ID)

	existing, err := s.orders.GetByPaymentIntent(ctx, intent.ID)
	if err != nil {
		typed := pkgerrors.As(err)
		if typed == nil || typed.Code() != pkgerrors.CodeNotFound {
			return err
		}
	}
	if existing != nil {
		if existing.Status != enums.OrderStatusPending {
			s.logg.Info(ctx, "order already reconciled for payment intent, skipping")
			return nil
		}
		// Order was created synchronously at intent time; move it to paid
		// and run the post-payment side effects.
		paid, err := s.orders.UpdateStatus(ctx, existing.ID, enums.OrderStatusPaid)
		if err != nil {
			return err
		}
		s.runSideEffects(ctx, paid)
		return nil
	}

	payload, err := s.payloadFromMetadata(intent.Metadata)
	if err != nil {
		return err
	}

	order := payload.ToOrder(intent.ID, timeNow())
	order, created, err := s.orders.CreateIdempotent(ctx, order)
	if err != nil {
		return err
	}
	if !created {
		// Lost the insert race to a concurrent delivery; that delivery owns
		// the side effects.
		s.logg.Info(ctx, "order created concurrently for payment intent, skipping side effects")
		return nil
	}
	ctx = s.logg.WithOrderID(ctx, order.ID.String())
	s.logg.Info(ctx, "order created from payment event")

	s.runSideEffects(ctx, order)
	return nil
}

func (s *Service) runSideEffects(ctx context.Context, order *models.Order) {
	if _, err := s.inventory.DeductForOrder(ctx, order.Items); err != nil {
		// The payment is captured; a deduction failure is an operational
		// follow-up, never a rollback of the paid order.
		s.logg.Error(ctx, "inventory deduction incomplete for paid order", err)
	}

	if order.CouponCode != nil && *order.CouponCode != "" {
		if err := s.coupons.IncrementUsage(ctx, *order.CouponCode); err != nil {
			s.logg.Warn(ctx, fmt.Sprintf("coupon usage increment failed: %v", err))
		}
	}

	s.notifier.OrderCreated(order)
}

func (s *Service) payloadFromMetadata(metadata map[string]string) (checkout.OrderPayload, error) {
	if !checkout.HasOrderData(metadata) {
		return checkout.OrderPayload{}, pkgerrors.New(pkgerrors.CodeValidation, "payment intent carries no order payload")
	}
	raw, err := checkout.ReassembleOrderData(metadata)
	if err != nil {
		return checkout.OrderPayload{}, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "reassemble order payload")
	}
	var payload checkout.OrderPayload
	if err := json.Unmarshal([]byte(raw), &payload); err != nil {
		return checkout.OrderPayload{}, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "decode order payload")
	}
	return payload, nil
}
