package app

import (
	"fmt"

	goredis "github.com/redis/go-redis/v9"

	"github.com/lumenlms/lms-backend/internal/clients/redis"
	"github.com/lumenlms/lms-backend/internal/platform/locks"
	"github.com/lumenlms/lms-backend/internal/platform/logger"
)

type Clients struct {
	Redis  *goredis.Client
	Locker locks.Locker
}

// wireClients connects redis when REDIS_ADDR is set. Without it progress
// locks stay in-process, which is only correct for a single replica.
func wireClients(log *logger.Logger, cfg Config) (Clients, error) {
	log.Info("Wiring clients...")
	if cfg.RedisAddr == "" {
		log.Warn("REDIS_ADDR not set; using in-process progress locks")
		return Clients{Locker: locks.NewLocal()}, nil
	}
	rdb, err := redis.NewClient(log, redis.Config{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})
	if err != nil {
		return Clients{}, fmt.Errorf("init redis: %w", err)
	}
	return Clients{
		Redis: rdb,
		Locker: locks.NewRedis(rdb, locks.RedisOptions{
			Prefix: "lms:lock:",
			TTL:    cfg.ProgressLockTTL,
			Wait:   cfg.ProgressLockWait,
		}),
	}, nil
}

func (c *Clients) Close() {
	if c == nil {
		return
	}
	if c.Redis != nil {
		_ = c.Redis.Close()
	}
}
