package keyedmutex

import (
	"context"
	"sync"
)

// Registry serializes tasks that share a logical key (one coupon code, one
// inventory unit) within this process. Callers on the same key run strictly
// in arrival order; callers on different keys run fully concurrently.
//
// This is a process-local guarantee only. Across instances the record
// store's optimistic-concurrency fence is the mechanism of record; the
// registry reduces contention, it does not guarantee exclusivity.
type Registry struct {
	mu    sync.Mutex
	tails map[string]chan struct{}
}

// New returns an empty registry.
func New() *Registry {
	return &Registry{tails: make(map[string]chan struct{})}
}

// Do runs fn once all earlier tasks queued on key have released. The lock is
// released when fn returns or panics. A caller whose context is cancelled
// while queued abandons its slot without blocking later arrivals.
func (r *Registry) Do(ctx context.Context, key string, fn func(ctx context.Context) error) error {
	gate := make(chan struct{})

	r.mu.Lock()
	prev := r.tails[key]
	r.tails[key] = gate
	r.mu.Unlock()

	if prev != nil {
		select {
		case <-prev:
		case <-ctx.Done():
			// Pass the baton once the predecessor finishes so the queue
			// behind us still advances.
			go func() {
				<-prev
				r.release(key, gate)
			}()
			return ctx.Err()
		}
	}

	defer r.release(key, gate)
	return fn(ctx)
}

func (r *Registry) release(key string, gate chan struct{}) {
	close(gate)
	r.mu.Lock()
	if r.tails[key] == gate {
		delete(r.tails, key)
	}
	r.mu.Unlock()
}
