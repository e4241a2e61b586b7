package inventory

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/sethvargo/go-retry"
	"go.uber.org/multierr"
	"gorm.io/gorm"

	"github.com/velvethaus/storefront-backend/pkg/config"
	"github.com/velvethaus/storefront-backend/pkg/enums"
	pkgerrors "github.com/velvethaus/storefront-backend/pkg/errors"
	"github.com/velvethaus/storefront-backend/pkg/keyedmutex"
	"github.com/velvethaus/storefront-backend/pkg/logger"
	"github.com/velvethaus/storefront-backend/pkg/metrics"
	"github.com/velvethaus/storefront-backend/pkg/types"
)

// ErrInsufficientStock marks a genuine shortage. It is a business fact, not
// a transient conflict, so the retry loop never retries it.
var ErrInsufficientStock = pkgerrors.New(pkgerrors.CodeOutOfStock, "insufficient stock")

// DeductResult reports the outcome for one order line.
type DeductResult struct {
	ProductID     string `json:"productId"`
	VariantID     string `json:"variantId,omitempty"`
	Success       bool   `json:"success"`
	PreviousStock int    `json:"previousStock,omitempty"`
	NewStock      int    `json:"newStock,omitempty"`
	Error         string `json:"error,omitempty"`
}

// Service decrements stock with bounded optimistic-concurrency retries.
type Service struct {
	repo    Repository
	locks   *keyedmutex.Registry
	cfg     config.InventoryConfig
	metrics *metrics.PipelineMetrics
	logg    *logger.Logger
}

// NewService builds an inventory deduction service.
func NewService(repo Repository, locks *keyedmutex.Registry, cfg config.InventoryConfig, m *metrics.PipelineMetrics, logg *logger.Logger) (*Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("inventory repository required")
	}
	if locks == nil {
		return nil, fmt.Errorf("keyed mutex registry required")
	}
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}
	if cfg.MaxAttempts == 0 {
		cfg.MaxAttempts = 3
	}
	return &Service{repo: repo, locks: locks, cfg: cfg, metrics: m, logg: logg}, nil
}

// DeductStock removes qty from one inventory unit. Concurrent callers within
// this process serialize on the unit's key; the conditional write's fencing
// token is what actually protects the decrement across instances.
func (s *Service) DeductStock(ctx context.Context, kind UnitKind, id uuid.UUID, qty int) (previous, current int, err error) {
	if qty <= 0 {
		return 0, 0, pkgerrors.New(pkgerrors.CodeValidation, "quantity must be positive")
	}

	key := fmt.Sprintf("inventory:%s:%s", kind, id)
	err = s.locks.Do(ctx, key, func(ctx context.Context) error {
		previous, current, err = s.deductWithRetry(ctx, kind, id, qty)
		return err
	})
	return previous, current, err
}

func (s *Service) deductWithRetry(ctx context.Context, kind UnitKind, id uuid.UUID, qty int) (int, int, error) {
	var previous, current int

	backoff := retry.WithMaxRetries(s.cfg.MaxAttempts-1, retry.NewExponential(s.cfg.BackoffBase))
	err := retry.Do(ctx, backoff, func(ctx context.Context) error {
		unit, err := s.repo.Fetch(ctx, kind, id)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return pkgerrors.New(pkgerrors.CodeNotFound, fmt.Sprintf("inventory unit %s not found", id))
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "fetch inventory unit")
		}

		if unit.StockQuantity < qty {
			return ErrInsufficientStock
		}

		newStock := unit.StockQuantity - qty
		status := enums.StockStatusFromQuantity(newStock, s.cfg.LowStockThreshold)
		applied, err := s.repo.CompareAndDeduct(ctx, unit, qty, status)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "deduct inventory unit")
		}
		if !applied {
			// Lost the optimistic-concurrency race; back off and re-read.
			s.metrics.IncDeductionRetry()
			return retry.RetryableError(fmt.Errorf("inventory unit %s changed concurrently", id))
		}

		previous = unit.StockQuantity
		current = newStock
		return nil
	})
	if err != nil {
		return 0, 0, err
	}
	return previous, current, nil
}

// DeductForOrder runs the deduction for every line of a paid order. A failed
// line never aborts the remaining lines; failures are aggregated for the
// caller and counted per outcome.
func (s *Service) DeductForOrder(ctx context.Context, items []types.OrderItem) ([]DeductResult, error) {
	results := make([]DeductResult, 0, len(items))
	var combined error

	for _, item := range items {
		result := DeductResult{ProductID: item.ProductID, VariantID: item.VariantID}

		kind := UnitProduct
		ref := item.ProductID
		if item.VariantID != "" {
			kind = UnitVariant
			ref = item.VariantID
		}

		id, err := uuid.Parse(ref)
		if err != nil {
			result.Error = fmt.Sprintf("invalid inventory unit id %q", ref)
			s.metrics.IncDeduction("failure")
			combined = multierr.Append(combined, fmt.Errorf("line %s: %s", item.ProductID, result.Error))
			results = append(results, result)
			continue
		}

		previous, current, err := s.DeductStock(ctx, kind, id, item.Quantity)
		if err != nil {
			result.Error = err.Error()
			outcome := "failure"
			if typed := pkgerrors.As(err); typed != nil && typed.Code() == pkgerrors.CodeOutOfStock {
				outcome = "insufficient_stock"
			}
			s.metrics.IncDeduction(outcome)

			lctx := s.logg.WithFields(ctx, map[string]any{"unit": ref, "kind": string(kind), "qty": item.Quantity})
			s.logg.Error(lctx, "inventory deduction failed", err)
			combined = multierr.Append(combined, fmt.Errorf("line %s: %w", item.ProductID, err))
			results = append(results, result)
			continue
		}

		result.Success = true
		result.PreviousStock = previous
		result.NewStock = current
		s.metrics.IncDeduction("success")
		results = append(results, result)
	}

	return results, combined
}
