package orders

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/velvethaus/storefront-backend/pkg/db"
	"github.com/velvethaus/storefront-backend/pkg/db/models"
	"github.com/velvethaus/storefront-backend/pkg/enums"
	pkgerrors "github.com/velvethaus/storefront-backend/pkg/errors"
	"github.com/velvethaus/storefront-backend/pkg/logger"
	"github.com/velvethaus/storefront-backend/pkg/pagination"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// Service owns order lifecycle operations.
type Service struct {
	repo Repository
	tx   txRunner
	logg *logger.Logger
}

// NewService builds an order service with the required dependencies.
func NewService(repo Repository, tx txRunner, logg *logger.Logger) (*Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("orders repository required")
	}
	if tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}
	return &Service{repo: repo, tx: tx, logg: logg}, nil
}

// GetByPaymentIntent loads the order for a payment reference, if any.
func (s *Service) GetByPaymentIntent(ctx context.Context, intentID string) (*models.Order, error) {
	if intentID == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "payment intent id required")
	}
	order, err := s.repo.FindByPaymentIntent(ctx, intentID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load order")
	}
	return order, nil
}

// GetByID loads a single order.
func (s *Service) GetByID(ctx context.Context, id uuid.UUID) (*models.Order, error) {
	if id == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order id required")
	}
	order, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load order")
	}
	return order, nil
}

// ListByUser returns one page of a user's order history, newest first, with
// an opaque cursor for the next page.
func (s *Service) ListByUser(ctx context.Context, userID uuid.UUID, params pagination.Params) ([]models.Order, string, error) {
	if userID == uuid.Nil {
		return nil, "", pkgerrors.New(pkgerrors.CodeValidation, "user id required")
	}
	cursor, err := pagination.ParseCursor(params.Cursor)
	if err != nil {
		return nil, "", pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid cursor")
	}

	limit := pagination.NormalizeLimit(params.Limit)
	page, err := s.repo.ListByUser(ctx, userID, pagination.LimitWithBuffer(params.Limit), cursor)
	if err != nil {
		return nil, "", pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list orders")
	}

	next := ""
	if len(page) > limit {
		page = page[:limit]
		last := page[len(page)-1]
		next = pagination.EncodeCursor(pagination.Cursor{CreatedAt: last.CreatedAt, ID: last.ID})
	}
	return page, next, nil
}

// CreateIdempotent inserts the order, relying on the payment reference's
// uniqueness constraint to collapse concurrent duplicate creations. A unique
// violation means another writer won the race; the existing order is fetched
// and returned with created=false.
func (s *Service) CreateIdempotent(ctx context.Context, order *models.Order) (*models.Order, bool, error) {
	if order == nil {
		return nil, false, pkgerrors.New(pkgerrors.CodeValidation, "order required")
	}
	if order.PaymentIntentID == "" {
		return nil, false, pkgerrors.New(pkgerrors.CodeValidation, "payment intent id required")
	}

	var (
		result  *models.Order
		created bool
	)
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		inserted, err := repo.Create(ctx, order)
		if err == nil {
			result = inserted
			created = true
			return nil
		}
		if !db.IsUniqueViolation(err, "") {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create order")
		}

		existing, findErr := repo.FindByPaymentIntent(ctx, order.PaymentIntentID)
		if findErr != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, findErr, "load order after unique violation")
		}
		result = existing
		return nil
	})
	if err != nil {
		return nil, false, err
	}

	if !created {
		lctx := s.logg.WithPaymentIntent(ctx, order.PaymentIntentID)
		s.logg.Info(lctx, "order already exists for payment intent, reusing")
	}
	return result, created, nil
}

// UpdateStatus moves an order through the fulfillment state machine. Any
// transition outside the table is rejected and leaves the stored status
// untouched.
func (s *Service) UpdateStatus(ctx context.Context, id uuid.UUID, target enums.OrderStatus) (*models.Order, error) {
	if id == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order id required")
	}
	if !target.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("unknown order status %q", target))
	}

	var updated *models.Order
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		order, err := repo.FindByID(ctx, id)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load order")
		}

		if order.Status == target {
			updated = order
			return nil
		}
		if !order.Status.CanTransitionTo(target) {
			return pkgerrors.New(pkgerrors.CodeStateConflict,
				fmt.Sprintf("cannot transition order from %s to %s", order.Status, target))
		}

		if err := repo.UpdateStatus(ctx, id, target); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update order status")
		}
		order.Status = target
		updated = order
		return nil
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}
