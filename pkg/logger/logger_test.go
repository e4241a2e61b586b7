package logger

import (
	"bytes"
	"context"
	"errors"
	"testing"

	"github.com/rs/zerolog"
)

func TestErrorIncludesContextFields(t *testing.T) {
	buf := &bytes.Buffer{}
	log := New(Options{ServiceName: "test", Level: ParseLevel("debug"), Output: buf})

	ctx := context.Background()
	ctx = log.WithRequestID(ctx, "req-123")
	ctx = log.WithPaymentIntent(ctx, "pi_456")
	ctx = log.WithOrderID(ctx, "ord-789")

	log.Error(ctx, "boom", errors.New("boom"))

	for _, field := range []string{`"request_id"`, `"payment_intent"`, `"order_id"`, `"service":"test"`} {
		if !bytes.Contains(buf.Bytes(), []byte(field)) {
			t.Fatalf("expected %s in entry; got %s", field, buf.String())
		}
	}
}

func TestWithFieldsAccumulate(t *testing.T) {
	buf := &bytes.Buffer{}
	log := New(Options{ServiceName: "test", Output: buf})

	ctx := log.WithFields(context.Background(), map[string]any{"method": "POST"})
	ctx = log.WithCouponCode(ctx, "TEN")
	log.Info(ctx, "request.complete")

	if !bytes.Contains(buf.Bytes(), []byte(`"method":"POST"`)) {
		t.Fatalf("expected method field; got %s", buf.String())
	}
	if !bytes.Contains(buf.Bytes(), []byte(`"coupon_code":"TEN"`)) {
		t.Fatalf("expected coupon_code field; got %s", buf.String())
	}
}

func TestParseLevelFallsBackToInfo(t *testing.T) {
	if lvl := ParseLevel(""); lvl != zerolog.InfoLevel {
		t.Fatalf("expected info for empty level, got %v", lvl)
	}
	if lvl := ParseLevel("nonsense"); lvl != zerolog.InfoLevel {
		t.Fatalf("expected info for unknown level, got %v", lvl)
	}
	if lvl := ParseLevel("WARN"); lvl != zerolog.WarnLevel {
		t.Fatalf("expected warn, got %v", lvl)
	}
}
