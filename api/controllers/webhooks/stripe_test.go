package webhooks

import (
	"context"
	"encoding/hex"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stripe/stripe-go/v84/webhook"

	"github.com/velvethaus/storefront-backend/internal/inventory"
	stripewebhook "github.com/velvethaus/storefront-backend/internal/webhooks/stripe"
	"github.com/velvethaus/storefront-backend/pkg/config"
	"github.com/velvethaus/storefront-backend/pkg/db/models"
	"github.com/velvethaus/storefront-backend/pkg/enums"
	"github.com/velvethaus/storefront-backend/pkg/logger"
	"github.com/velvethaus/storefront-backend/pkg/redis"
	pkgstripe "github.com/velvethaus/storefront-backend/pkg/stripe"
	"github.com/velvethaus/storefront-backend/pkg/types"
)

const testSigningSecret = "whsec_test_secret"

type stubOrders struct{}

func (stubOrders) GetByPaymentIntent(context.Context, string) (*models.Order, error) {
	return nil, nil
}

func (stubOrders) CreateIdempotent(_ context.Context, order *models.Order) (*models.Order, bool, error) {
	order.ID = uuid.New()
	return order, true, nil
}

func (stubOrders) UpdateStatus(context.Context, uuid.UUID, enums.OrderStatus) (*models.Order, error) {
	return nil, nil
}

type stubDeductor struct{}

func (stubDeductor) DeductForOrder(context.Context, []types.OrderItem) ([]inventory.DeductResult, error) {
	return nil, nil
}

type stubIncrementer struct{}

func (stubIncrementer) IncrementUsage(context.Context, string) error { return nil }

type stubNotifier struct{}

func (stubNotifier) OrderCreated(*models.Order) {}

type memStore struct {
	mu   sync.Mutex
	keys map[string]bool
}

func (m *memStore) SetNX(_ context.Context, key string, _ any, _ time.Duration) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.keys[key] {
		return false, nil
	}
	m.keys[key] = true
	return true, nil
}

func (m *memStore) IdempotencyKey(scope, id string) string {
	return "sf:idempotency:" + scope + ":" + id
}

func (m *memStore) Del(_ context.Context, keys ...string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, k := range keys {
		delete(m.keys, k)
	}
	return nil
}

func testHandler(t *testing.T) http.HandlerFunc {
	t.Helper()
	logg := logger.New(logger.Options{ServiceName: "test", Output: &strings.Builder{}})

	client, err := pkgstripe.NewClient(context.Background(), config.StripeConfig{
		APIKey:        "sk_test_123",
		WebhookSecret: testSigningSecret,
		Env:           "test",
	}, nil)
	if err != nil {
		t.Fatalf("stripe.NewClient: %v", err)
	}

	guard, err := redis.NewIdempotencyGuard(&memStore{keys: map[string]bool{}}, time.Hour, "stripe")
	if err != nil {
		t.Fatalf("NewIdempotencyGuard: %v", err)
	}

	svc, err := stripewebhook.NewService(stripewebhook.ServiceParams{
		Orders:    stubOrders{},
		Inventory: stubDeductor{},
		Coupons:   stubIncrementer{},
		Notifier:  stubNotifier{},
		Logger:    logg,
	})
	if err != nil {
		t.Fatalf("NewService: %v", err)
	}

	return HandleStripe(client, guard, svc, logg)
}

func signedRequest(payload string) *http.Request {
	req := httptest.NewRequest(http.MethodPost, "/webhooks/payments", strings.NewReader(payload))
	ts := time.Now()
	sig := webhook.ComputeSignature(ts, []byte(payload), testSigningSecret)
	req.Header.Set("Stripe-Signature", fmt.Sprintf("t=%d,v1=%s", ts.Unix(), hex.EncodeToString(sig)))
	return req
}

func TestHandleStripeRejectsMissingSignature(t *testing.T) {
	handler := testHandler(t)

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/webhooks/payments", strings.NewReader(`{}`))

	handler(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", rec.Code)
	}
}

func TestHandleStripeRejectsBadSignature(t *testing.T) {
	handler := testHandler(t)

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/webhooks/payments", strings.NewReader(`{}`))
	req.Header.Set("Stripe-Signature", "t=1,v1=deadbeef")

	handler(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", rec.Code)
	}
}

func TestHandleStripeAcknowledgesIgnoredEvents(t *testing.T) {
	handler := testHandler(t)
	payload := `{"id":"evt_ignored","type":"charge.refunded","data":{"object":{}}}`

	rec := httptest.NewRecorder()
	handler(rec, signedRequest(payload))

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	if !strings.Contains(rec.Body.String(), "received") {
		t.Fatalf("expected acknowledgement, got %s", rec.Body.String())
	}
}

func TestHandleStripeShortCircuitsReplay(t *testing.T) {
	handler := testHandler(t)
	payload := `{"id":"evt_replay","type":"charge.refunded","data":{"object":{}}}`

	rec := httptest.NewRecorder()
	handler(rec, signedRequest(payload))
	if rec.Code != http.StatusOK {
		t.Fatalf("first delivery: expected 200, got %d", rec.Code)
	}

	rec = httptest.NewRecorder()
	handler(rec, signedRequest(payload))
	if rec.Code != http.StatusOK {
		t.Fatalf("replay: expected 200, got %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "duplicate") {
		t.Fatalf("expected duplicate acknowledgement, got %s", rec.Body.String())
	}
}
