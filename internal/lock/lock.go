// SPDX-License-Identifier: MIT

// Package lock serialises work on a key across goroutines and, with the
// Redis backend, across service instances.
package lock

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"
)

// ErrNotAcquired is returned when the lock could not be taken before the
// context ended.
var ErrNotAcquired = errors.New("lock not acquired")

// Release gives a lock back. It is safe to call more than once.
type Release func(ctx context.Context) error

// Locker hands out exclusive leases on keys.
type Locker interface {
	// Acquire blocks until key is held or ctx is done. ttl bounds how long
	// a crashed holder can keep others out.
	Acquire(ctx context.Context, key string, ttl time.Duration) (Release, error)
}

// LocalLocker is an in-process Locker. ttl is ignored; holders always
// release through the returned func.
type LocalLocker struct {
	mu   sync.Mutex
	held map[string]chan struct{}
}

// NewLocalLocker returns an empty LocalLocker.
func NewLocalLocker() *LocalLocker {
	return &LocalLocker{held: make(map[string]chan struct{})}
}

// Acquire implements Locker.
func (l *LocalLocker) Acquire(ctx context.Context, key string, _ time.Duration) (Release, error) {
	for {
		l.mu.Lock()
		wait, busy := l.held[key]
		if !busy {
			done := make(chan struct{})
			l.held[key] = done
			l.mu.Unlock()

			var once sync.Once
			return func(context.Context) error {
				once.Do(func() {
					l.mu.Lock()
					delete(l.held, key)
					l.mu.Unlock()
					close(done)
				})
				return nil
			}, nil
		}
		l.mu.Unlock()

		select {
		case <-wait:
		case <-ctx.Done():
			return nil, fmt.Errorf("%w: %s: %v", ErrNotAcquired, key, ctx.Err())
		}
	}
}
