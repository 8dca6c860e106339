package ports

import (
	"context"
	"time"
)

// UnlockFunc releases a distributed lock.
type UnlockFunc func(ctx context.Context) error

// DistributedLocker coordinates conversation access across replicas. The
// session manager already serializes per-conversation work inside one
// process; a locker extends that guarantee to multi-instance deployments.
type DistributedLocker interface {
	// Lock acquires the lock for a key (a conversation id). It blocks until
	// the lock is held or ctx is done. The returned UnlockFunc MUST be
	// called to release it; the TTL bounds how long a crashed holder can
	// keep the key.
	Lock(ctx context.Context, key string, ttl time.Duration) (UnlockFunc, error)
}
