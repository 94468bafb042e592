package database

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/sync/semaphore"
)

// DefaultAcquireTimeout keeps acquisition from waiting forever on a saturated pool.
const DefaultAcquireTimeout = 10 * time.Second

// PoolExhaustedError is returned when no connection slot frees up before the
// acquire timeout. Callers may retry.
type PoolExhaustedError struct {
	Size    int64
	Timeout time.Duration
}

func (e *PoolExhaustedError) Error() string {
	return fmt.Sprintf("connection pool exhausted: no slot of %d free after %s", e.Size, e.Timeout)
}

// Retriable reports that a later attempt may succeed.
func (e *PoolExhaustedError) Retriable() bool { return true }

// Gate bounds the number of concurrent store calls sharing one connection pool.
type Gate struct {
	sem     *semaphore.Weighted
	size    int64
	timeout time.Duration
}

// NewGate returns a Gate admitting size concurrent holders. A non-positive
// timeout falls back to DefaultAcquireTimeout.
func NewGate(size int, timeout time.Duration) *Gate {
	if size < 1 {
		size = 1
	}
	if timeout <= 0 {
		timeout = DefaultAcquireTimeout
	}
	return &Gate{
		sem:     semaphore.NewWeighted(int64(size)),
		size:    int64(size),
		timeout: timeout,
	}
}

// Acquire reserves a slot. The returned release func must be called exactly once.
// If ctx is cancelled first, ctx.Err() is returned; if the timeout elapses,
// a *PoolExhaustedError is returned.
func (g *Gate) Acquire(ctx context.Context) (func(), error) {
	acqCtx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()

	if err := g.sem.Acquire(acqCtx, 1); err != nil {
		if ctx.Err() != nil {
			return nil, fmt.Errorf("acquire connection: %w", ctx.Err())
		}
		return nil, &PoolExhaustedError{Size: g.size, Timeout: g.timeout}
	}
	return func() { g.sem.Release(1) }, nil
}

// Size returns the number of slots.
func (g *Gate) Size() int { return int(g.size) }
