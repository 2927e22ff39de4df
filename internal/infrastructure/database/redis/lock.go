package redis

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/openregulatory/licensure/pkg/errors"
)

// ErrLockNotAcquired is returned when another holder owns the lock.
var ErrLockNotAcquired = errors.New(errors.ErrCodeCacheError, "lock not acquired")

// releaseScript deletes the lock only if the caller still owns it.
const releaseScript = `
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0`

// Lock is a single-instance distributed lock.  The reindex command takes it
// so two operators cannot rebuild the search index concurrently.
type Lock struct {
	client *Client
	key    string
	token  string
	ttl    time.Duration
}

// NewLock creates an unacquired lock on the given key.
func NewLock(client *Client, key string, ttl time.Duration) *Lock {
	return &Lock{
		client: client,
		key:    "licensure:lock:" + key,
		token:  uuid.NewString(),
		ttl:    ttl,
	}
}

// Acquire attempts to take the lock once; it does not block.
func (l *Lock) Acquire(ctx context.Context) error {
	ok, err := l.client.rdb.SetNX(ctx, l.key, l.token, l.ttl).Result()
	if err != nil {
		return errors.Wrap(err, errors.ErrCodeCacheError, "lock acquire failed")
	}
	if !ok {
		return ErrLockNotAcquired
	}
	return nil
}

// Release frees the lock if this instance still holds it.  Releasing a lock
// that expired and was re-acquired elsewhere is a no-op.
func (l *Lock) Release(ctx context.Context) error {
	res, err := l.client.rdb.Eval(ctx, releaseScript, []string{l.key}, l.token).Result()
	if err != nil && err != redis.Nil {
		return errors.Wrap(err, errors.ErrCodeCacheError, "lock release failed")
	}
	_ = res
	return nil
}

// Extend pushes the expiry out by the lock's TTL while work is in progress.
func (l *Lock) Extend(ctx context.Context) error {
	const extendScript = `
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("PEXPIRE", KEYS[1], ARGV[2])
end
return 0`
	res, err := l.client.rdb.Eval(ctx, extendScript, []string{l.key}, l.token, l.ttl.Milliseconds()).Int64()
	if err != nil {
		return errors.Wrap(err, errors.ErrCodeCacheError, "lock extend failed")
	}
	if res == 0 {
		return ErrLockNotAcquired
	}
	return nil
}
