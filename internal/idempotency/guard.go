// Package idempotency deduplicates side-effecting operations by a
// caller-supplied key. A short exclusive lock serializes concurrent retries;
// the first completed result is cached for a longer retention window so every
// later caller observes the same outcome without re-running the operation.
package idempotency

import (
	"context"
	"encoding/json"
	"errors"
	"time"
)

// ErrInProgress means the key is locked by a concurrent call and no result
// has been stored yet. Callers should retry after a short delay.
var ErrInProgress = errors.New("operation in progress")

// Store is the lock/result backend.
type Store interface {
	// AcquireLock returns false when the lock is already held.
	AcquireLock(ctx context.Context, key string, ttl time.Duration) (bool, error)
	ReleaseLock(ctx context.Context, key string) error

	GetResult(ctx context.Context, key string) ([]byte, bool, error)
	SetResult(ctx context.Context, key string, value []byte, ttl time.Duration) error
}

const (
	DefaultLockTTL   = 60 * time.Second
	DefaultResultTTL = 24 * time.Hour
)

type Guard struct {
	store     Store
	lockTTL   time.Duration
	resultTTL time.Duration
}

func NewGuard(store Store) *Guard {
	return &Guard{store: store, lockTTL: DefaultLockTTL, resultTTL: DefaultResultTTL}
}

func NewGuardWithTTLs(store Store, lockTTL, resultTTL time.Duration) *Guard {
	return &Guard{store: store, lockTTL: lockTTL, resultTTL: resultTTL}
}

// Execute runs op at most once per key within the result retention window.
// The returned bytes are the JSON encoding of op's result, either fresh or
// replayed from the cache. The lock is released on every path so a failed op
// can be retried with the same key.
func (g *Guard) Execute(ctx context.Context, key string, op func(ctx context.Context) (any, error)) ([]byte, error) {
	// completed earlier: replay without taking the lock
	if cached, ok, err := g.store.GetResult(ctx, key); err != nil {
		return nil, err
	} else if ok {
		return cached, nil
	}

	acquired, err := g.store.AcquireLock(ctx, key, g.lockTTL)
	if err != nil {
		return nil, err
	}
	if !acquired {
		// a concurrent call holds the key; it may have just finished
		if cached, ok, err := g.store.GetResult(ctx, key); err != nil {
			return nil, err
		} else if ok {
			return cached, nil
		}
		return nil, ErrInProgress
	}
	defer g.store.ReleaseLock(ctx, key)

	// lost a race between the result check and the lock
	if cached, ok, err := g.store.GetResult(ctx, key); err != nil {
		return nil, err
	} else if ok {
		return cached, nil
	}

	result, err := op(ctx)
	if err != nil {
		return nil, err
	}

	encoded, err := json.Marshal(result)
	if err != nil {
		return nil, err
	}
	if err := g.store.SetResult(ctx, key, encoded, g.resultTTL); err != nil {
		return nil, err
	}
	return encoded, nil
}
