package scheduler

import (
	"context"
	"errors"

	"go.uber.org/zap"

	"spielebasar/internal/redislock"
)

// ErrGuardHeld means another process holds the family lock.
var ErrGuardHeld = errors.New("cluster guard held elsewhere")

// Guard extends the family slot across processes.
type Guard interface {
	Acquire(ctx context.Context, name string) (release func(), err error)
}

// RedisGuard backs Guard with a redislock.Locker.
type RedisGuard struct {
	Locker *redislock.Locker
	Logger *zap.Logger
}

func (g *RedisGuard) Acquire(ctx context.Context, name string) (func(), error) {
	lock, err := g.Locker.Acquire(ctx, name)
	if errors.Is(err, redislock.ErrLockNotAcquired) {
		return nil, ErrGuardHeld
	}
	if err != nil {
		return nil, err
	}
	return func() {
		// The run may have been cancelled; releasing must still happen.
		if err := lock.Release(context.WithoutCancel(ctx)); err != nil && g.Logger != nil {
			g.Logger.Warn("cluster lock release failed", zap.String("key", lock.Key()), zap.Error(err))
		}
	}, nil
}
