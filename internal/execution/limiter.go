package execution

import (
	"context"

	"golang.org/x/sync/semaphore"
)

// Limiter bounds how many RPC sessions are open at once across all accounts.
// Waiters are resumed in arrival order.
type Limiter struct {
	sem  *semaphore.Weighted
	size int
}

func NewLimiter(n int) *Limiter {
	if n < 1 {
		n = 1
	}
	return &Limiter{sem: semaphore.NewWeighted(int64(n)), size: n}
}

// Acquire blocks until a permit is free or ctx is done. Every successful
// Acquire must be paired with exactly one Release.
func (l *Limiter) Acquire(ctx context.Context) error {
	return l.sem.Acquire(ctx, 1)
}

func (l *Limiter) TryAcquire() bool {
	return l.sem.TryAcquire(1)
}

func (l *Limiter) Release() {
	l.sem.Release(1)
}

// Do runs fn while holding a permit. The permit is returned even if fn
// panics.
func (l *Limiter) Do(ctx context.Context, fn func() error) error {
	if err := l.Acquire(ctx); err != nil {
		return err
	}
	defer l.Release()
	return fn()
}

func (l *Limiter) Size() int {
	return l.size
}
