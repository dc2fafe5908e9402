// Package keylock provides per-key mutual exclusion for license checks.
//
// MemoryLocker is enough for a single server process. RedisLocker extends
// the guarantee across replicas sharing one record store.
package keylock

import (
	"context"
	"errors"
)

var ErrLockTimeout = errors.New("keylock: timed out waiting for lock")

type Locker interface {
	Lock(ctx context.Context, key string) (unlock func(), err error)
}
