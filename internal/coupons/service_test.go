package coupons

import (
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/velvethaus/storefront-backend/pkg/db/models"
	"github.com/velvethaus/storefront-backend/pkg/enums"
	"github.com/velvethaus/storefront-backend/pkg/keyedmutex"
	"github.com/velvethaus/storefront-backend/pkg/logger"
)

type stubRepo struct {
	mu      sync.Mutex
	coupons map[string]*models.Coupon
}

func (s *stubRepo) FindByCode(_ context.Context, code string) (*models.Coupon, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if c, ok := s.coupons[code]; ok {
		copied := *c
		return &copied, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (s *stubRepo) IncrementUsage(_ context.Context, id uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, c := range s.coupons {
		if c.ID == id {
			c.UsageCount++
			return nil
		}
	}
	return gorm.ErrRecordNotFound
}

func intPtr(v int) *int       { return &v }
func int64Ptr(v int64) *int64 { return &v }

func newTestService(t *testing.T, repo Repository) *Service {
	t.Helper()
	logg := logger.New(logger.Options{ServiceName: "test", Output: &strings.Builder{}})
	svc, err := NewService(repo, keyedmutex.New(), logg)
	if err != nil {
		t.Fatalf("NewService: %v", err)
	}
	return svc
}

func TestStateIssueOrdering(t *testing.T) {
	svc := newTestService(t, &stubRepo{})
	past := time.Now().Add(-time.Hour)

	// An inactive, expired, exhausted coupon reports inactivity first.
	coupon := &models.Coupon{
		IsActive:   false,
		ExpireDate: &past,
		UsageLimit: intPtr(1),
		UsageCount: 1,
	}
	if issue := svc.StateIssueFor(coupon); issue != IssueInactive {
		t.Fatalf("expected inactive, got %q", issue)
	}

	coupon.IsActive = true
	if issue := svc.StateIssueFor(coupon); issue != IssueExpired {
		t.Fatalf("expected expired, got %q", issue)
	}

	coupon.ExpireDate = nil
	if issue := svc.StateIssueFor(coupon); issue != IssueLimitReached {
		t.Fatalf("expected limit_reached, got %q", issue)
	}

	coupon.UsageCount = 0
	if issue := svc.StateIssueFor(coupon); issue != IssueNone {
		t.Fatalf("expected none, got %q", issue)
	}
}

func TestComputeDiscountTenPercent(t *testing.T) {
	coupon := &models.Coupon{Type: enums.CouponTypePercentage, Value: 10}
	if got := ComputeDiscount(coupon, 2000); got != 200 {
		t.Fatalf("expected 200, got %d", got)
	}
}

func TestComputeDiscountRoundsToNearestCent(t *testing.T) {
	coupon := &models.Coupon{Type: enums.CouponTypePercentage, Value: 15}
	// 15% of 999 = 149.85, rounds to 150.
	if got := ComputeDiscount(coupon, 999); got != 150 {
		t.Fatalf("expected 150, got %d", got)
	}
}

func TestComputeDiscountFixedAmountClamped(t *testing.T) {
	coupon := &models.Coupon{Type: enums.CouponTypeFixedAmount, Value: 25}
	if got := ComputeDiscount(coupon, 10000); got != 2500 {
		t.Fatalf("expected 2500, got %d", got)
	}
	// A 25-dollar coupon on a 10-dollar cart never goes negative.
	if got := ComputeDiscount(coupon, 1000); got != 1000 {
		t.Fatalf("expected clamp to 1000, got %d", got)
	}
}

func TestVerifyAppliesDiscount(t *testing.T) {
	repo := &stubRepo{coupons: map[string]*models.Coupon{
		"TEN": {ID: uuid.New(), Code: "TEN", Type: enums.CouponTypePercentage, Value: 10, IsActive: true},
	}}
	svc := newTestService(t, repo)

	result, err := svc.Verify(context.Background(), "ten", 2000)
	if err != nil {
		t.Fatalf("Verify: %v", err)
	}
	if !result.Valid {
		t.Fatalf("expected valid, got issue %q", result.Issue)
	}
	if result.DiscountCents != 200 {
		t.Fatalf("expected discount 200, got %d", result.DiscountCents)
	}
}

func TestVerifyLimitReached(t *testing.T) {
	repo := &stubRepo{coupons: map[string]*models.Coupon{
		"FULL": {ID: uuid.New(), Code: "FULL", Type: enums.CouponTypePercentage, Value: 10, IsActive: true, UsageLimit: intPtr(5), UsageCount: 5},
	}}
	svc := newTestService(t, repo)

	result, err := svc.Verify(context.Background(), "FULL", 2000)
	if err != nil {
		t.Fatalf("Verify: %v", err)
	}
	if result.Valid {
		t.Fatal("expected invalid result")
	}
	if result.Issue != IssueLimitReached {
		t.Fatalf("expected limit_reached, got %q", result.Issue)
	}
}

func TestVerifyMinOrderNotMet(t *testing.T) {
	repo := &stubRepo{coupons: map[string]*models.Coupon{
		"BIG": {ID: uuid.New(), Code: "BIG", Type: enums.CouponTypeFixedAmount, Value: 10, IsActive: true, MinOrderAmountCents: int64Ptr(5000)},
	}}
	svc := newTestService(t, repo)

	result, err := svc.Verify(context.Background(), "BIG", 4999)
	if err != nil {
		t.Fatalf("Verify: %v", err)
	}
	if result.Valid || result.Issue != IssueMinOrder {
		t.Fatalf("expected min_order_not_met, got %+v", result)
	}

	result, err = svc.Verify(context.Background(), "BIG", 5000)
	if err != nil {
		t.Fatalf("Verify: %v", err)
	}
	if !result.Valid {
		t.Fatalf("expected valid at exact minimum, got issue %q", result.Issue)
	}
}

func TestVerifyUnknownCode(t *testing.T) {
	svc := newTestService(t, &stubRepo{})
	result, err := svc.Verify(context.Background(), "NOPE", 1000)
	if err != nil {
		t.Fatalf("Verify: %v", err)
	}
	if result.Valid || result.Issue != IssueNotFound {
		t.Fatalf("expected not_found, got %+v", result)
	}
}

func TestIncrementUsageNoOpsAtLimit(t *testing.T) {
	repo := &stubRepo{coupons: map[string]*models.Coupon{
		"FULL": {ID: uuid.New(), Code: "FULL", IsActive: true, UsageLimit: intPtr(5), UsageCount: 5},
	}}
	svc := newTestService(t, repo)

	if err := svc.IncrementUsage(context.Background(), "FULL"); err != nil {
		t.Fatalf("IncrementUsage: %v", err)
	}
	if repo.coupons["FULL"].UsageCount != 5 {
		t.Fatalf("expected usage to stay at 5, got %d", repo.coupons["FULL"].UsageCount)
	}
}

func TestIncrementUsageSerialized(t *testing.T) {
	repo := &stubRepo{coupons: map[string]*models.Coupon{
		"RACE": {ID: uuid.New(), Code: "RACE", IsActive: true, UsageLimit: intPtr(10)},
	}}
	svc := newTestService(t, repo)

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := svc.IncrementUsage(context.Background(), "RACE"); err != nil {
				t.Errorf("IncrementUsage: %v", err)
			}
		}()
	}
	wg.Wait()

	if got := repo.coupons["RACE"].UsageCount; got != 10 {
		t.Fatalf("expected usage 10, got %d", got)
	}
}
