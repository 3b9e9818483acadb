// Package redislock guards sync jobs across service replicas with a
// Redis SET NX lock.
package redislock

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

var (
	ErrLockNotAcquired = errors.New("lock not acquired")
	ErrLockNotHeld     = errors.New("lock not held")
)

// Deletes the key only while it still carries our token.
var releaseScript = redis.NewScript(`
if redis.call("get", KEYS[1]) == ARGV[1] then
	return redis.call("del", KEYS[1])
else
	return 0
end
`)

type Locker struct {
	rdb       redis.Cmdable
	keyPrefix string
	ttl       time.Duration
}

type Lock struct {
	rdb   redis.Cmdable
	key   string
	token string
}

func New(rdb redis.Cmdable, keyPrefix string, ttl time.Duration) *Locker {
	if keyPrefix == "" {
		keyPrefix = "lock:"
	}
	if ttl <= 0 {
		ttl = 30 * time.Minute
	}
	return &Locker{rdb: rdb, keyPrefix: keyPrefix, ttl: ttl}
}

func (l *Locker) Key(name string) string {
	return l.keyPrefix + name
}

// Acquire takes the named lock once, without waiting.
func (l *Locker) Acquire(ctx context.Context, name string) (*Lock, error) {
	key := l.Key(name)
	token := uuid.NewString()
	ok, err := l.rdb.SetNX(ctx, key, token, l.ttl).Result()
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrLockNotAcquired
	}
	return &Lock{rdb: l.rdb, key: key, token: token}, nil
}

func (lock *Lock) Release(ctx context.Context) error {
	n, err := releaseScript.Run(ctx, lock.rdb, []string{lock.key}, lock.token).Int64()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrLockNotHeld
	}
	return nil
}

func (lock *Lock) Key() string {
	return lock.key
}
