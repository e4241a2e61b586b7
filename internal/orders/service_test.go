package orders

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/velvethaus/storefront-backend/pkg/db/models"
	"github.com/velvethaus/storefront-backend/pkg/enums"
	pkgerrors "github.com/velvethaus/storefront-backend/pkg/errors"
	"github.com/velvethaus/storefront-backend/pkg/logger"
	"github.com/velvethaus/storefront-backend/pkg/pagination"
)

type stubTx struct{}

func (stubTx) WithTx(_ context.Context, fn func(tx *gorm.DB) error) error {
	return fn(nil)
}

type stubRepo struct {
	byID       map[uuid.UUID]*models.Order
	byIntent   map[string]*models.Order
	createErr  error
	statusSets []enums.OrderStatus
}

func newStubRepo() *stubRepo {
	return &stubRepo{
		byID:     map[uuid.UUID]*models.Order{},
		byIntent: map[string]*models.Order{},
	}
}

func (s *stubRepo) add(order *models.Order) {
	s.byID[order.ID] = order
	s.byIntent[order.PaymentIntentID] = order
}

func (s *stubRepo) WithTx(*gorm.DB) Repository { return s }

func (s *stubRepo) Create(_ context.Context, order *models.Order) (*models.Order, error) {
	if s.createErr != nil {
		return nil, s.createErr
	}
	if order.ID == uuid.Nil {
		order.ID = uuid.New()
	}
	s.add(order)
	return order, nil
}

func (s *stubRepo) FindByID(_ context.Context, id uuid.UUID) (*models.Order, error) {
	if o, ok := s.byID[id]; ok {
		copied := *o
		return &copied, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (s *stubRepo) FindByPaymentIntent(_ context.Context, intentID string) (*models.Order, error) {
	if o, ok := s.byIntent[intentID]; ok {
		copied := *o
		return &copied, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (s *stubRepo) ListByUser(_ context.Context, userID uuid.UUID, limit int, cursor *pagination.Cursor) ([]models.Order, error) {
	all := make([]models.Order, 0)
	for _, o := range s.byID {
		if o.UserID == nil || *o.UserID != userID {
			continue
		}
		all = append(all, *o)
	}
	sort.Slice(all, func(i, j int) bool {
		if !all[i].CreatedAt.Equal(all[j].CreatedAt) {
			return all[i].CreatedAt.After(all[j].CreatedAt)
		}
		return all[i].ID.String() > all[j].ID.String()
	})
	if cursor != nil {
		filtered := all[:0]
		for _, o := range all {
			if o.CreatedAt.Before(cursor.CreatedAt) ||
				(o.CreatedAt.Equal(cursor.CreatedAt) && o.ID.String() < cursor.ID.String()) {
				filtered = append(filtered, o)
			}
		}
		all = filtered
	}
	if len(all) > limit {
		all = all[:limit]
	}
	return all, nil
}

func (s *stubRepo) UpdateStatus(_ context.Context, id uuid.UUID, status enums.OrderStatus) error {
	o, ok := s.byID[id]
	if !ok {
		return gorm.ErrRecordNotFound
	}
	o.Status = status
	s.statusSets = append(s.statusSets, status)
	return nil
}

func newTestService(t *testing.T, repo Repository) *Service {
	t.Helper()
	logg := logger.New(logger.Options{ServiceName: "test", Output: &strings.Builder{}})
	svc, err := NewService(repo, stubTx{}, logg)
	if err != nil {
		t.Fatalf("NewService: %v", err)
	}
	return svc
}

func TestCreateIdempotentInsertsOnce(t *testing.T) {
	repo := newStubRepo()
	svc := newTestService(t, repo)

	order := &models.Order{PaymentIntentID: "pi_123", Status: enums.OrderStatusPaid}
	created, wasNew, err := svc.CreateIdempotent(context.Background(), order)
	if err != nil {
		t.Fatalf("CreateIdempotent: %v", err)
	}
	if !wasNew {
		t.Fatal("expected order to be newly created")
	}
	if created.ID == uuid.Nil {
		t.Fatal("expected order id to be assigned")
	}
}

func TestCreateIdempotentFetchesOnUniqueViolation(t *testing.T) {
	repo := newStubRepo()
	existing := &models.Order{ID: uuid.New(), PaymentIntentID: "pi_dup", Status: enums.OrderStatusPaid}
	repo.add(existing)
	repo.createErr = errors.New(`ERROR: duplicate key value violates unique constraint "uq_orders_payment_intent"`)
	svc := newTestService(t, repo)

	got, wasNew, err := svc.CreateIdempotent(context.Background(), &models.Order{PaymentIntentID: "pi_dup"})
	if err != nil {
		t.Fatalf("CreateIdempotent: %v", err)
	}
	if wasNew {
		t.Fatal("expected existing order, not a new one")
	}
	if got.ID != existing.ID {
		t.Fatalf("expected existing order %s, got %s", existing.ID, got.ID)
	}
}

func TestUpdateStatusAllowsTableTransition(t *testing.T) {
	repo := newStubRepo()
	order := &models.Order{ID: uuid.New(), PaymentIntentID: "pi_1", Status: enums.OrderStatusPaid}
	repo.add(order)
	svc := newTestService(t, repo)

	updated, err := svc.UpdateStatus(context.Background(), order.ID, enums.OrderStatusProcessing)
	if err != nil {
		t.Fatalf("UpdateStatus: %v", err)
	}
	if updated.Status != enums.OrderStatusProcessing {
		t.Fatalf("expected processing, got %s", updated.Status)
	}
}

func TestUpdateStatusRejectsInvalidTransition(t *testing.T) {
	repo := newStubRepo()
	order := &models.Order{ID: uuid.New(), PaymentIntentID: "pi_1", Status: enums.OrderStatusDelivered}
	repo.add(order)
	svc := newTestService(t, repo)

	_, err := svc.UpdateStatus(context.Background(), order.ID, enums.OrderStatusPaid)
	typed := pkgerrors.As(err)
	if typed == nil || typed.Code() != pkgerrors.CodeStateConflict {
		t.Fatalf("expected state conflict, got %v", err)
	}
	if !strings.Contains(typed.Message(), "delivered") || !strings.Contains(typed.Message(), "paid") {
		t.Fatalf("expected message naming both states, got %q", typed.Message())
	}
	// Stored status must be untouched.
	if repo.byID[order.ID].Status != enums.OrderStatusDelivered {
		t.Fatalf("stored status changed to %s", repo.byID[order.ID].Status)
	}
	if len(repo.statusSets) != 0 {
		t.Fatal("expected no status writes")
	}
}

func TestUpdateStatusSameStatusIsNoOp(t *testing.T) {
	repo := newStubRepo()
	order := &models.Order{ID: uuid.New(), PaymentIntentID: "pi_1", Status: enums.OrderStatusPaid}
	repo.add(order)
	svc := newTestService(t, repo)

	updated, err := svc.UpdateStatus(context.Background(), order.ID, enums.OrderStatusPaid)
	if err != nil {
		t.Fatalf("UpdateStatus: %v", err)
	}
	if updated.Status != enums.OrderStatusPaid {
		t.Fatalf("expected paid, got %s", updated.Status)
	}
	if len(repo.statusSets) != 0 {
		t.Fatal("expected no status writes for same-status update")
	}
}

func TestListByUserPaginates(t *testing.T) {
	repo := newStubRepo()
	userID := uuid.New()
	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	for i := 0; i < 3; i++ {
		repo.add(&models.Order{
			ID:              uuid.New(),
			UserID:          &userID,
			PaymentIntentID: fmt.Sprintf("pi_%d", i),
			Status:          enums.OrderStatusPaid,
			CreatedAt:       base.Add(time.Duration(i) * time.Minute),
		})
	}
	otherUser := uuid.New()
	repo.add(&models.Order{
		ID:              uuid.New(),
		UserID:          &otherUser,
		PaymentIntentID: "pi_other",
		CreatedAt:       base,
	})
	svc := newTestService(t, repo)

	first, next, err := svc.ListByUser(context.Background(), userID, pagination.Params{Limit: 2})
	if err != nil {
		t.Fatalf("ListByUser: %v", err)
	}
	if len(first) != 2 {
		t.Fatalf("expected 2 orders on first page, got %d", len(first))
	}
	if next == "" {
		t.Fatal("expected a next cursor")
	}
	if !first[0].CreatedAt.After(first[1].CreatedAt) {
		t.Fatal("expected newest-first ordering")
	}

	second, next, err := svc.ListByUser(context.Background(), userID, pagination.Params{Limit: 2, Cursor: next})
	if err != nil {
		t.Fatalf("ListByUser page 2: %v", err)
	}
	if len(second) != 1 {
		t.Fatalf("expected 1 order on second page, got %d", len(second))
	}
	if next != "" {
		t.Fatalf("expected no further cursor, got %q", next)
	}
}

func TestListByUserRejectsBadCursor(t *testing.T) {
	svc := newTestService(t, newStubRepo())

	_, _, err := svc.ListByUser(context.Background(), uuid.New(), pagination.Params{Cursor: "not-base64!"})
	typed := pkgerrors.As(err)
	if typed == nil || typed.Code() != pkgerrors.CodeValidation {
		t.Fatalf("expected validation error, got %v", err)
	}
}
