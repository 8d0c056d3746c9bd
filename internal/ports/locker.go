package ports

import (
	"context"
	"errors"
	"time"
)

var ErrLockNotObtained = errors.New("lock not obtained")

// Locker serializes read-modify-write sequences on one key. The returned
// release func must be called exactly once.
type Locker interface {
	Obtain(ctx context.Context, key string, ttl time.Duration) (release func(), err error)
}
