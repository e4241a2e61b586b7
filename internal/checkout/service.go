package checkout

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/velvethaus/storefront-backend/internal/catalog"
	"github.com/velvethaus/storefront-backend/internal/coupons"
	"github.com/velvethaus/storefront-backend/internal/tax"
	"github.com/velvethaus/storefront-backend/internal/users"
	"github.com/velvethaus/storefront-backend/pkg/config"
	"github.com/velvethaus/storefront-backend/pkg/enums"
	pkgerrors "github.com/velvethaus/storefront-backend/pkg/errors"
	"github.com/velvethaus/storefront-backend/pkg/logger"
	"github.com/velvethaus/storefront-backend/pkg/types"
)

type lineResolver interface {
	ResolveLines(ctx context.Context, lines []catalog.CartLine) ([]catalog.ResolvedLine, error)
}

type couponVerifier interface {
	Verify(ctx context.Context, code string, subtotalCents int64) (coupons.VerifyResult, error)
}

type taxCalculator interface {
	Calculate(ctx context.Context, lines []tax.Line, addr types.ShippingAddress, currency string, shippingCents int64) int64
}

// Service orchestrates checkout: revalidation, discount, tax, customer
// resolution and payment-intent creation. The intent amount is the single
// source of truth for what the customer is charged.
type Service struct {
	resolver  lineResolver
	coupons   couponVerifier
	tax       taxCalculator
	processor Processor
	users     users.Repository
	cfg       config.CheckoutConfig
	logg      *logger.Logger
}

// NewService builds the checkout orchestrator.
func NewService(
	resolver lineResolver,
	couponSvc couponVerifier,
	taxCalc taxCalculator,
	processor Processor,
	userRepo users.Repository,
	cfg config.CheckoutConfig,
	logg *logger.Logger,
) (*Service, error) {
	if resolver == nil {
		return nil, fmt.Errorf("line resolver required")
	}
	if couponSvc == nil {
		return nil, fmt.Errorf("coupon service required")
	}
	if taxCalc == nil {
		return nil, fmt.Errorf("tax calculator required")
	}
	if processor == nil {
		return nil, fmt.Errorf("payment processor required")
	}
	if userRepo == nil {
		return nil, fmt.Errorf("users repository required")
	}
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}
	return &Service{
		resolver:  resolver,
		coupons:   couponSvc,
		tax:       taxCalc,
		processor: processor,
		users:     userRepo,
		cfg:       cfg,
		logg:      logg,
	}, nil
}

// CreatePaymentIntent runs the full checkout pipeline for one cart.
func (s *Service) CreatePaymentIntent(ctx context.Context, req PaymentIntentRequest) (*PaymentIntentResponse, error) {
	currency, err := s.resolveCurrency(req.Currency)
	if err != nil {
		return nil, err
	}

	// Stock and variant selection are re-validated here, not just at cart
	// assembly, because time has passed since the client built the cart.
	lines, err := s.resolver.ResolveLines(ctx, req.Items)
	if err != nil {
		return nil, err
	}
	subtotal := catalog.SubtotalCents(lines)

	var (
		discount   int64
		couponCode string
	)
	if req.CouponCode != "" {
		result, err := s.coupons.Verify(ctx, req.CouponCode, subtotal)
		if err != nil {
			return nil, err
		}
		if !result.Valid {
			return nil, pkgerrors.New(pkgerrors.CodeValidation,
				fmt.Sprintf("coupon %s rejected: %s", coupons.NormalizeCode(req.CouponCode), result.Issue))
		}
		discount = result.DiscountCents
		couponCode = result.Coupon.Code
	}

	shipping := s.shippingCents(req.ShippingOption)

	taxLines := make([]tax.Line, 0, len(lines))
	for _, line := range lines {
		taxLines = append(taxLines, tax.Line{
			Reference:   line.Item.ProductID,
			AmountCents: line.UnitPriceCents * int64(line.Quantity),
			Quantity:    int64(line.Quantity),
		})
	}
	taxCents := s.tax.Calculate(ctx, taxLines, req.ShippingAddress, strings.ToLower(currency), shipping)

	total := subtotal - discount + shipping + taxCents
	if total < s.cfg.MinChargeCents {
		return nil, pkgerrors.New(pkgerrors.CodeValidation,
			"order total is below the minimum chargeable amount").
			WithDetails(map[string]any{"total": total, "minimum": s.cfg.MinChargeCents})
	}

	customerID := s.resolveCustomer(ctx, req)

	items := make([]types.OrderItem, 0, len(lines))
	for _, line := range lines {
		items = append(items, line.Item)
	}
	payload := OrderPayload{
		UserID:          req.UserID,
		CustomerEmail:   req.CustomerEmail,
		CustomerName:    req.CustomerName,
		Items:           items,
		AmountSubtotal:  subtotal,
		AmountDiscount:  discount,
		AmountShipping:  shipping,
		AmountTax:       taxCents,
		AmountTotal:     total,
		Currency:        strings.ToLower(currency),
		ShippingAddress: req.ShippingAddress,
		CouponCode:      couponCode,
		PlacedAt:        time.Now().UTC().Format(time.RFC3339),
	}
	metadata, err := s.buildMetadata(payload, items)
	if err != nil {
		return nil, err
	}

	intent, err := s.processor.CreateIntent(ctx, IntentInput{
		AmountCents:  total,
		Currency:     currency,
		CustomerID:   customerID,
		ReceiptEmail: req.CustomerEmail,
		Description:  itemsSummary(items),
		Metadata:     metadata,
	})
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create payment intent")
	}

	lctx := s.logg.WithPaymentIntent(ctx, intent.ID)
	s.logg.Info(lctx, "payment intent created")

	return &PaymentIntentResponse{
		ClientSecret:    intent.ClientSecret,
		PaymentIntentID: intent.ID,
		AmountSubtotal:  subtotal,
		AmountDiscount:  discount,
		AmountShipping:  shipping,
		AmountTax:       taxCents,
		AmountTotal:     total,
		Currency:        strings.ToLower(currency),
	}, nil
}

func (s *Service) resolveCurrency(raw string) (string, error) {
	currency := strings.ToUpper(strings.TrimSpace(raw))
	if currency == "" {
		currency = strings.ToUpper(s.cfg.DefaultCurrency)
	}
	for _, supported := range s.cfg.SupportedCurrencies() {
		if supported == currency {
			return currency, nil
		}
	}
	return "", pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("unsupported currency %q", currency))
}

func (s *Service) shippingCents(option string) int64 {
	if enums.NormalizeShippingOption(option) == enums.ShippingOptionExpress {
		return s.cfg.ExpressShippingCents
	}
	return s.cfg.StandardShippingCents
}

// resolveCustomer reuses a stored processor reference, falls back to an
// email search, and creates a customer as the last resort. Every failure on
// this path is swallowed: checkout proceeds without a customer attached.
func (s *Service) resolveCustomer(ctx context.Context, req PaymentIntentRequest) string {
	var user *uuid.UUID
	if req.UserID != "" {
		if id, err := uuid.Parse(req.UserID); err == nil {
			user = &id
			stored, err := s.users.FindByID(ctx, id)
			if err != nil {
				if !errors.Is(err, gorm.ErrRecordNotFound) {
					s.logg.Warn(ctx, fmt.Sprintf("loading user for customer resolution: %v", err))
				}
			} else if stored.StripeCustomerID != nil && *stored.StripeCustomerID != "" {
				return *stored.StripeCustomerID
			}
		}
	}

	if req.CustomerEmail == "" {
		return ""
	}

	customerID, err := s.processor.SearchCustomerByEmail(ctx, req.CustomerEmail)
	if err != nil {
		s.logg.Warn(ctx, fmt.Sprintf("customer search failed: %v", err))
	}
	if customerID == "" {
		customerID, err = s.processor.CreateCustomer(ctx, req.CustomerEmail, req.CustomerName, req.ShippingAddress)
		if err != nil {
			s.logg.Warn(ctx, fmt.Sprintf("customer creation failed: %v", err))
			return ""
		}
	}

	// Best-effort write-back for reuse on the next checkout.
	if user != nil && customerID != "" {
		if err := s.users.SaveStripeCustomerID(ctx, *user, customerID); err != nil {
			s.logg.Warn(ctx, fmt.Sprintf("persisting customer reference: %v", err))
		}
	}
	return customerID
}

func (s *Service) buildMetadata(payload OrderPayload, items []types.OrderItem) (map[string]string, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "marshal order payload")
	}

	metadata := ChunkOrderData(string(raw), s.cfg.MetadataChunkSize)
	metadata["customer_email"] = payload.CustomerEmail
	if summary := itemsSummary(items); summary != "" {
		metadata["items_summary"] = summary
	}
	return metadata, nil
}

// itemsSummary renders a short human-readable cart digest for processor
// dashboards, truncated to fit one metadata field.
func itemsSummary(items []types.OrderItem) string {
	parts := make([]string, 0, len(items))
	for _, item := range items {
		parts = append(parts, fmt.Sprintf("%dx %s", item.Quantity, item.Title))
	}
	summary := strings.Join(parts, ", ")
	if len(summary) > 500 {
		summary = summary[:497] + "..."
	}
	return summary
}
