package infra

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/bsm/redislock"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
)

const (
	allocationLockPrefix = "lock:allocation:"
	allocationLockTTL    = 10 * time.Second
)

// ErrAllocationBusy is returned when the product lock could not be obtained
// before the retry budget ran out.
var ErrAllocationBusy = errors.New("another allocation for this product is in progress")

// AllocationLocker holds a per-product Redis lock around user-initiated
// allocations when STRICT_CENTRAL_ALLOCATION is on.
type AllocationLocker struct {
	locker *redislock.Client
}

func NewAllocationLocker(rdb *redis.Client) *AllocationLocker {
	return &AllocationLocker{locker: redislock.New(rdb)}
}

// Lock blocks for up to ~2s waiting for the product lock.
func (l *AllocationLocker) Lock(ctx context.Context, productID uuid.UUID) (func(), error) {
	key := allocationLockPrefix + productID.String()
	lock, err := l.locker.Obtain(ctx, key, allocationLockTTL, &redislock.Options{
		RetryStrategy: redislock.LimitRetry(redislock.LinearBackoff(100*time.Millisecond), 20),
	})
	if err != nil {
		if errors.Is(err, redislock.ErrNotObtained) {
			return nil, ErrAllocationBusy
		}
		return nil, fmt.Errorf("obtain %s: %w", key, err)
	}
	return func() {
		// Release on a fresh context: the request context may already be done.
		if err := lock.Release(context.Background()); err != nil && !errors.Is(err, redislock.ErrLockNotHeld) {
			log.Warn().Err(err).Str("key", key).Msg("allocation lock: release failed")
		}
	}, nil
}
