package redis

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// IdempotencyGuard marks processed ids so retried deliveries or duplicate
// triggers short-circuit before touching the database.
type IdempotencyGuard struct {
	store IdempotencyStore
	ttl   time.Duration
	scope string
}

func NewIdempotencyGuard(store IdempotencyStore, ttl time.Duration, scope string) (*IdempotencyGuard, error) {
	if store == nil {
		return nil, errors.New("idempotency store is required")
	}
	if ttl < 0 {
		return nil, errors.New("ttl must be non-negative")
	}
	if scope == "" {
		return nil, errors.New("scope is required")
	}
	return &IdempotencyGuard{
		store: store,
		ttl:   ttl,
		scope: scope,
	}, nil
}

// CheckAndMark reports whether the id was already processed, marking it as
// in-flight otherwise.
func (g *IdempotencyGuard) CheckAndMark(ctx context.Context, id string) (bool, error) {
	if id == "" {
		return false, errors.New("id is required")
	}
	key := g.store.IdempotencyKey(g.scope, id)
	set, err := g.store.SetNX(ctx, key, "1", g.ttl)
	if err != nil {
		return false, fmt.Errorf("set idempotency key: %w", err)
	}
	return !set, nil
}

// Delete clears the mark so a failed handling attempt can be retried on the
// next delivery.
func (g *IdempotencyGuard) Delete(ctx context.Context, id string) error {
	if id == "" {
		return errors.New("id is required")
	}
	key := g.store.IdempotencyKey(g.scope, id)
	return g.store.Del(ctx, key)
}
