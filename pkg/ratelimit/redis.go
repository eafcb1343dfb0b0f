package ratelimit

import (
	"context"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

// Atomic INCR + set PEXPIRE only when the key is new, so the window is fixed
// from the first attempt.
var incrExpireScript = redis.NewScript(`
local current = redis.call("INCR", KEYS[1])
if current == 1 then
  redis.call("PEXPIRE", KEYS[1], ARGV[1])
end
return current
`)

// RedisLimiter shares the fixed window across instances. Redis key expiry
// replaces the cleanup sweep.
type RedisLimiter struct {
	rdb    *redis.Client
	max    int
	window time.Duration
	prefix string
}

func NewRedisLimiter(rdb *redis.Client, max int, window time.Duration) *RedisLimiter {
	if max <= 0 {
		max = DefaultMaxAttempts
	}
	if window <= 0 {
		window = DefaultWindow
	}
	return &RedisLimiter{rdb: rdb, max: max, window: window, prefix: "pwd:reset:rl:"}
}

func (l *RedisLimiter) IsRateLimited(ctx context.Context, key string) (bool, error) {
	v, err := l.rdb.Get(ctx, l.prefix+key).Result()
	if err == redis.Nil {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	count, err := strconv.Atoi(v)
	if err != nil {
		return false, err
	}
	return count >= l.max, nil
}

func (l *RedisLimiter) RecordAttempt(ctx context.Context, key string) error {
	return incrExpireScript.Run(ctx, l.rdb, []string{l.prefix + key}, l.window.Milliseconds()).Err()
}

func (l *RedisLimiter) MinutesUntilReset(ctx context.Context, key string) (int, error) {
	ttl, err := l.rdb.PTTL(ctx, l.prefix+key).Result()
	if err != nil {
		return 0, err
	}
	if ttl <= 0 {
		return 0, nil
	}
	return minutesUntil(time.Now().Add(ttl), time.Now()), nil
}

func (l *RedisLimiter) ClearAttempts(ctx context.Context, key string) error {
	return l.rdb.Del(ctx, l.prefix+key).Err()
}
