package locks

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	goredis "github.com/redis/go-redis/v9"
)

var releaseScript = goredis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

type redisLocker struct {
	rdb    *goredis.Client
	prefix string
	ttl    time.Duration
	wait   time.Duration
}

type RedisOptions struct {
	Prefix string
	// TTL bounds how long a crashed holder can keep the key.
	TTL time.Duration
	// Wait bounds how long Acquire polls before giving up.
	Wait time.Duration
}

// NewRedis returns a Locker backed by SET NX PX with a per-holder token.
func NewRedis(rdb *goredis.Client, opts RedisOptions) Locker {
	if opts.TTL <= 0 {
		opts.TTL = 10 * time.Second
	}
	if opts.Wait <= 0 {
		opts.Wait = 5 * time.Second
	}
	prefix := strings.TrimSpace(opts.Prefix)
	if prefix == "" {
		prefix = "lock:"
	}
	return &redisLocker{rdb: rdb, prefix: prefix, ttl: opts.TTL, wait: opts.Wait}
}

func (l *redisLocker) Acquire(ctx context.Context, key string) (func(), error) {
	if l == nil || l.rdb == nil {
		return nil, fmt.Errorf("redis locker not initialized")
	}
	full := l.prefix + key
	token := uuid.NewString()
	deadline := time.Now().Add(l.wait)

	for attempt := 0; ; attempt++ {
		ok, err := l.rdb.SetNX(ctx, full, token, l.ttl).Result()
		if err != nil {
			return nil, fmt.Errorf("redis lock %s: %w", key, err)
		}
		if ok {
			break
		}
		if time.Now().After(deadline) {
			return nil, ErrLockTimeout
		}
		t := time.NewTimer(backoff(attempt))
		select {
		case <-ctx.Done():
			t.Stop()
			return nil, errors.Join(ErrLockTimeout, ctx.Err())
		case <-t.C:
		}
	}

	var once sync.Once
	return func() {
		once.Do(func() {
			// fresh context so a cancelled request still frees the key
			rctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
			defer cancel()
			_ = releaseScript.Run(rctx, l.rdb, []string{full}, token).Err()
		})
	}, nil
}
