package coupons

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/velvethaus/storefront-backend/pkg/db/models"
	"github.com/velvethaus/storefront-backend/pkg/enums"
	pkgerrors "github.com/velvethaus/storefront-backend/pkg/errors"
	"github.com/velvethaus/storefront-backend/pkg/keyedmutex"
	"github.com/velvethaus/storefront-backend/pkg/logger"
)

// StateIssue names the first lifecycle problem found on a coupon.
type StateIssue string

const (
	IssueNone         StateIssue = ""
	IssueInactive     StateIssue = "inactive"
	IssueExpired      StateIssue = "expired"
	IssueLimitReached StateIssue = "limit_reached"
	IssueNotFound     StateIssue = "not_found"
	IssueMinOrder     StateIssue = "min_order_not_met"
)

// VerifyResult is the outcome of validating a coupon against a subtotal.
// Invalid coupons are a business outcome, not an error.
type VerifyResult struct {
	Valid         bool
	Issue         StateIssue
	DiscountCents int64
	Coupon        *models.Coupon
}

// Service validates coupons and applies usage increments.
type Service struct {
	repo  Repository
	locks *keyedmutex.Registry
	logg  *logger.Logger
	now   func() time.Time
}

// NewService builds a coupon service.
func NewService(repo Repository, locks *keyedmutex.Registry, logg *logger.Logger) (*Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("coupon repository required")
	}
	if locks == nil {
		return nil, fmt.Errorf("keyed mutex registry required")
	}
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}
	return &Service{repo: repo, locks: locks, logg: logg, now: time.Now}, nil
}

// NormalizeCode trims and uppercases a client-supplied coupon code.
func NormalizeCode(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}

// StateIssueFor returns the first lifecycle issue on the coupon. The check
// order is fixed: inactivity, then expiry, then the usage limit.
func (s *Service) StateIssueFor(coupon *models.Coupon) StateIssue {
	if !coupon.IsActive {
		return IssueInactive
	}
	if coupon.ExpireDate != nil && coupon.ExpireDate.Before(s.now()) {
		return IssueExpired
	}
	if coupon.UsageLimit != nil && coupon.UsageCount >= *coupon.UsageLimit {
		return IssueLimitReached
	}
	return IssueNone
}

// ComputeDiscount returns the discount in cents for the given pre-discount
// amount. Percentage values round to the nearest cent; fixed amounts are
// expressed in major units. The result never exceeds the amount itself.
func ComputeDiscount(coupon *models.Coupon, amountCents int64) int64 {
	if amountCents <= 0 {
		return 0
	}
	var discount int64
	switch coupon.Type {
	case enums.CouponTypePercentage:
		discount = decimal.NewFromInt(amountCents).
			Mul(decimal.NewFromInt(coupon.Value)).
			Div(decimal.NewFromInt(100)).
			Round(0).
			IntPart()
	case enums.CouponTypeFixedAmount:
		discount = coupon.Value * 100
	}
	if discount > amountCents {
		discount = amountCents
	}
	if discount < 0 {
		discount = 0
	}
	return discount
}

// meetsMinimum compares the pre-discount subtotal against the coupon's
// minimum order amount in major units.
func (s *Service) meetsMinimum(coupon *models.Coupon, subtotalCents int64) bool {
	if coupon.MinOrderAmountCents == nil {
		return true
	}
	cents := decimal.NewFromInt(100)
	subtotal := decimal.NewFromInt(subtotalCents).Div(cents)
	minimum := decimal.NewFromInt(*coupon.MinOrderAmountCents).Div(cents)
	return subtotal.GreaterThanOrEqual(minimum)
}

// Verify validates a coupon code against a pre-discount subtotal and
// computes the discount. It never mutates usage counts.
func (s *Service) Verify(ctx context.Context, code string, subtotalCents int64) (VerifyResult, error) {
	code = NormalizeCode(code)
	if code == "" {
		return VerifyResult{}, pkgerrors.New(pkgerrors.CodeValidation, "coupon code required")
	}

	coupon, err := s.repo.FindByCode(ctx, code)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return VerifyResult{Issue: IssueNotFound}, nil
		}
		return VerifyResult{}, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load coupon")
	}

	if issue := s.StateIssueFor(coupon); issue != IssueNone {
		return VerifyResult{Issue: issue, Coupon: coupon}, nil
	}
	if !s.meetsMinimum(coupon, subtotalCents) {
		return VerifyResult{Issue: IssueMinOrder, Coupon: coupon}, nil
	}

	return VerifyResult{
		Valid:         true,
		DiscountCents: ComputeDiscount(coupon, subtotalCents),
		Coupon:        coupon,
	}, nil
}

// IncrementUsage bumps the coupon's usage count under its keyed lock. The
// limit is re-checked after acquiring the lock because time has passed since
// validation; a limit hit in the interim is a tolerated no-op, not an error,
// because the increment runs after payment capture.
func (s *Service) IncrementUsage(ctx context.Context, code string) error {
	code = NormalizeCode(code)
	if code == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "coupon code required")
	}

	return s.locks.Do(ctx, "coupon:"+code, func(ctx context.Context) error {
		coupon, err := s.repo.FindByCode(ctx, code)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return pkgerrors.New(pkgerrors.CodeNotFound, "coupon not found")
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load coupon")
		}

		if coupon.UsageLimit != nil && coupon.UsageCount >= *coupon.UsageLimit {
			lctx := s.logg.WithCouponCode(ctx, code)
			s.logg.Warn(lctx, "coupon usage limit reached before increment, skipping")
			return nil
		}

		if err := s.repo.IncrementUsage(ctx, coupon.ID); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "increment coupon usage")
		}
		return nil
	})
}
