package redis

import (
	"context"
	"testing"
	"time"
)

type fakeStore struct {
	keys map[string]bool
}

func (f *fakeStore) SetNX(_ context.Context, key string, _ any, _ time.Duration) (bool, error) {
	if f.keys[key] {
		return false, nil
	}
	f.keys[key] = true
	return true, nil
}

func (f *fakeStore) IdempotencyKey(scope, id string) string {
	return "sf:idempotency:" + scope + ":" + id
}

func (f *fakeStore) Del(_ context.Context, keys ...string) error {
	for _, k := range keys {
		delete(f.keys, k)
	}
	return nil
}

func TestCheckAndMarkDetectsReplay(t *testing.T) {
	guard, err := NewIdempotencyGuard(&fakeStore{keys: map[string]bool{}}, time.Hour, "stripe")
	if err != nil {
		t.Fatalf("NewIdempotencyGuard: %v", err)
	}

	seen, err := guard.CheckAndMark(context.Background(), "evt_1")
	if err != nil || seen {
		t.Fatalf("first delivery must be fresh, got seen=%v err=%v", seen, err)
	}
	seen, err = guard.CheckAndMark(context.Background(), "evt_1")
	if err != nil || !seen {
		t.Fatalf("replay must be detected, got seen=%v err=%v", seen, err)
	}
}

func TestDeleteAllowsRedelivery(t *testing.T) {
	guard, err := NewIdempotencyGuard(&fakeStore{keys: map[string]bool{}}, time.Hour, "stripe")
	if err != nil {
		t.Fatalf("NewIdempotencyGuard: %v", err)
	}

	if _, err := guard.CheckAndMark(context.Background(), "evt_2"); err != nil {
		t.Fatalf("CheckAndMark: %v", err)
	}
	if err := guard.Delete(context.Background(), "evt_2"); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	seen, err := guard.CheckAndMark(context.Background(), "evt_2")
	if err != nil || seen {
		t.Fatalf("expected fresh after delete, got seen=%v err=%v", seen, err)
	}
}
