package ports

import (
	"context"
	"time"
)

// UnlockFunc releases a lock taken by DistributedLocker.Lock.
type UnlockFunc func(ctx context.Context) error

// DistributedLocker serializes container evaluations that share a persistent
// store across processes. Keys come from ContainerLockKey.
type DistributedLocker interface {
	// Lock blocks until key is held or ctx is done. The lock expires after ttl
	// if its holder never unlocks; the returned UnlockFunc must always be called.
	Lock(ctx context.Context, key string, ttl time.Duration) (UnlockFunc, error)
}

// ContainerLockKey is the lock key guarding evaluations of a container.
func ContainerLockKey(container string) string {
	return "container:" + container
}
