package keylock

import (
	"context"
	"fmt"

	"github.com/puzpuzpuz/xsync/v3"
)

type keyMutex struct {
	sem  chan struct{}
	refs int
}

// MemoryLocker is a reference-counted table of per-key mutexes. Entries are
// dropped once no caller holds or waits on them.
type MemoryLocker struct {
	locks *xsync.MapOf[string, *keyMutex]
}

var _ Locker = (*MemoryLocker)(nil)

func NewMemoryLocker() *MemoryLocker {
	return &MemoryLocker{locks: xsync.NewMapOf[string, *keyMutex]()}
}

func (l *MemoryLocker) Lock(ctx context.Context, key string) (func(), error) {
	entry, _ := l.locks.Compute(key, func(m *keyMutex, loaded bool) (*keyMutex, bool) {
		if !loaded {
			m = &keyMutex{sem: make(chan struct{}, 1)}
		}
		m.refs++
		return m, false
	})

	select {
	case entry.sem <- struct{}{}:
	case <-ctx.Done():
		l.release(key)
		return nil, fmt.Errorf("%w: %w", ErrLockTimeout, ctx.Err())
	}

	return func() {
		<-entry.sem
		l.release(key)
	}, nil
}

// Size returns the number of keys currently held or awaited.
func (l *MemoryLocker) Size() int {
	return l.locks.Size()
}

func (l *MemoryLocker) release(key string) {
	l.locks.Compute(key, func(m *keyMutex, loaded bool) (*keyMutex, bool) {
		if !loaded {
			return m, true
		}
		m.refs--
		return m, m.refs <= 0
	})
}
