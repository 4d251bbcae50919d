package subscription

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/discovery/subscription-controller/internal/domain/shared"
	"github.com/discovery/subscription-controller/internal/domain/subscription"
	"github.com/google/uuid"
)

// Timeouts bounds every call that leaves the process. A timeout is a
// failure, never evidence that the call took effect.
type Timeouts struct {
	Store time.Duration
	Job   time.Duration
}

// DefaultTimeouts returns the timeouts used when none are configured
func DefaultTimeouts() Timeouts {
	return Timeouts{Store: 5 * time.Second, Job: 10 * time.Second}
}

func bounded(ctx context.Context, d time.Duration) (context.Context, context.CancelFunc) {
	if d <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, d)
}

// storeCall runs fn under the store timeout. Domain errors pass through;
// anything else from the driver becomes a transient store failure.
func storeCall[T any](ctx context.Context, d time.Duration, op string, fn func(context.Context) (T, error)) (T, error) {
	ctx, cancel := bounded(ctx, d)
	defer cancel()

	v, err := fn(ctx)
	if err != nil {
		return v, classifyStoreError(op, err)
	}
	return v, nil
}

func classifyStoreError(op string, err error) error {
	var de *shared.DomainError
	var se *shared.StoreError
	if errors.As(err, &se) || errors.As(err, &de) || errors.Is(err, subscription.ErrConsistency) {
		return err
	}
	return shared.NewStoreError(op, err)
}

// clientLocks serializes work per client inside this process
type clientLocks struct {
	mu    sync.Mutex
	locks map[uuid.UUID]*clientLock
}

type clientLock struct {
	mu   sync.Mutex
	refs int
}

func newClientLocks() *clientLocks {
	return &clientLocks{locks: make(map[uuid.UUID]*clientLock)}
}

// lock blocks until id is free and returns the matching unlock
func (l *clientLocks) lock(id uuid.UUID) func() {
	l.mu.Lock()
	cl, ok := l.locks[id]
	if !ok {
		cl = &clientLock{}
		l.locks[id] = cl
	}
	cl.refs++
	l.mu.Unlock()

	cl.mu.Lock()
	return func() {
		cl.mu.Unlock()
		l.mu.Lock()
		cl.refs--
		if cl.refs == 0 {
			delete(l.locks, id)
		}
		l.mu.Unlock()
	}
}
