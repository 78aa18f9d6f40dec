package redis

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	goredis "github.com/redis/go-redis/v9"

	"github.com/threadline-hq/threadline-backend/internal/platform/envutil"
	"github.com/threadline-hq/threadline-backend/internal/platform/logger"
)

// LockCoordinator hands out short-lived mutual-exclusion leases. WithLock
// always runs fn: when the coordinator cannot grant the lease the caller
// proceeds unprotected and the degradation is logged. That trade
// (availability over consistency) is intentional.
type LockCoordinator interface {
	WithLock(ctx context.Context, key string, ttl time.Duration, fn func(ctx context.Context) error) error
}

type lockCoordinator struct {
	log *logger.Logger
	rdb *goredis.Client
}

// releaseScript deletes the key only when it still holds our token, so an
// expired lease never deletes a successor's lock.
const releaseScript = `
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
else
	return 0
end
`

func NewLockCoordinator(log *logger.Logger) (LockCoordinator, error) {
	if log == nil {
		return nil, fmt.Errorf("logger required")
	}

	addr := strings.TrimSpace(envutil.GetEnv("REDIS_ADDR", "", log))
	if addr == "" {
		return nil, fmt.Errorf("missing REDIS_ADDR")
	}

	rdb := goredis.NewClient(&goredis.Options{
		Addr:        addr,
		DialTimeout: 5 * time.Second,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("redis ping: %w", err)
	}

	return &lockCoordinator{
		log: log.With("service", "RedisLockCoordinator"),
		rdb: rdb,
	}, nil
}

// NewNoopCoordinator is the stand-in when Redis is not configured: every
// caller proceeds as if the lease could not be granted.
func NewNoopCoordinator(log *logger.Logger) LockCoordinator {
	return &noopCoordinator{log: log.With("service", "NoopLockCoordinator")}
}

type noopCoordinator struct {
	log *logger.Logger
}

func (n *noopCoordinator) WithLock(ctx context.Context, key string, _ time.Duration, fn func(ctx context.Context) error) error {
	n.log.Debug("Lock coordination disabled, running unprotected", "key", key)
	return fn(ctx)
}

func (l *lockCoordinator) WithLock(ctx context.Context, key string, ttl time.Duration, fn func(ctx context.Context) error) error {
	token := uuid.NewString()

	acquired, err := l.rdb.SetNX(ctx, key, token, ttl).Result()
	switch {
	case err != nil:
		l.log.Warn("Lock coordinator unavailable, proceeding without lock", "key", key, "error", err)
	case !acquired:
		l.log.Warn("Lock already held, proceeding without lock", "key", key)
	default:
		defer func() {
			relCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
			defer cancel()
			if err := l.rdb.Eval(relCtx, releaseScript, []string{key}, token).Err(); err != nil {
				l.log.Warn("Lock release failed, lease will expire on its own", "key", key, "error", err)
			}
		}()
	}

	return fn(ctx)
}
