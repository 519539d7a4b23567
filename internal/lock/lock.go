// Package lock provides named leases that keep scheduled jobs single-flight
// across notifier nodes.
package lock

import (
	"context"
	"sync"
	"time"
)

// Locker hands out a lease on a name. held=false with a nil error means
// another holder owns the name.
type Locker interface {
	TryAcquire(ctx context.Context, name string, ttl time.Duration) (lease *Lease, held bool, err error)
}

type Lease struct {
	Name    string
	Token   string
	release func(ctx context.Context) error
}

// Release gives the name back. Releasing an expired lease is a no-op.
func (l *Lease) Release(ctx context.Context) error {
	if l == nil || l.release == nil {
		return nil
	}
	return l.release(ctx)
}

// LocalLocker is an in-process Locker for single-node runs and tests.
type LocalLocker struct {
	mu    sync.Mutex
	held  map[string]time.Time
	clock func() time.Time
}

func NewLocalLocker() *LocalLocker {
	return &LocalLocker{held: make(map[string]time.Time), clock: time.Now}
}

func (l *LocalLocker) TryAcquire(_ context.Context, name string, ttl time.Duration) (*Lease, bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.clock()
	if until, ok := l.held[name]; ok && now.Before(until) {
		return nil, false, nil
	}
	expires := now.Add(ttl)
	l.held[name] = expires

	return &Lease{
		Name: name,
		release: func(context.Context) error {
			l.mu.Lock()
			defer l.mu.Unlock()
			if l.held[name].Equal(expires) {
				delete(l.held, name)
			}
			return nil
		},
	}, true, nil
}
