package rediscache

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/redis/go-redis/v9"
)

// Only the holder's token may extend or release a lock.
var (
	renewScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("PEXPIRE", KEYS[1], ARGV[2])
end
return 0`)

	releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0`)
)

// Locker is a single-key leader lock (SET NX PX) shared by worker replicas.
type Locker struct {
	c     *redis.Client
	token string
}

func NewLocker(addr string) *Locker {
	return &Locker{
		c:     redis.NewClient(&redis.Options{Addr: addr}),
		token: uuid.NewString(),
	}
}

func (l *Locker) Token() string { return l.token }

// Acquire takes key for ttl. Reacquiring a key this locker already holds
// succeeds and extends it.
func (l *Locker) Acquire(ctx context.Context, key string, ttl time.Duration) (bool, error) {
	ok, err := l.c.SetNX(ctx, key, l.token, ttl).Result()
	if err != nil {
		return false, errors.Wrap(err, "redis lock acquire")
	}
	if ok {
		return true, nil
	}
	return l.Renew(ctx, key, ttl)
}

func (l *Locker) Renew(ctx context.Context, key string, ttl time.Duration) (bool, error) {
	n, err := renewScript.Run(ctx, l.c, []string{key}, l.token, ttl.Milliseconds()).Int64()
	if err != nil {
		return false, errors.Wrap(err, "redis lock renew")
	}
	return n == 1, nil
}

func (l *Locker) Release(ctx context.Context, key string) error {
	if err := releaseScript.Run(ctx, l.c, []string{key}, l.token).Err(); err != nil {
		return errors.Wrap(err, "redis lock release")
	}
	return nil
}

func (l *Locker) Close() error {
	return l.c.Close()
}
