package utils

import (
	"context"
	"net"
	"strconv"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/fitlife/fitlife/config"
)

var (
	redisClient *redis.Client
	redisMu     sync.Mutex
	redisInit   bool
)

// GetRedis returns the shared client. It is nil when Redis is disabled, in which case
// caching is skipped and the blacklist, OAuth state and captcha fall back to memory.
func GetRedis() *redis.Client {
	redisMu.Lock()
	defer redisMu.Unlock()
	if redisInit {
		return redisClient
	}
	redisInit = true
	cfg := config.Get()
	if cfg.RedisHost == "" {
		return nil
	}
	redisClient = redis.NewClient(&redis.Options{
		Addr:         net.JoinHostPort(cfg.RedisHost, strconv.Itoa(cfg.RedisPort)),
		Password:     cfg.RedisPassword,
		DB:           cfg.RedisDB,
		DialTimeout:  3 * time.Second,
		ReadTimeout:  2 * time.Second,
		WriteTimeout: 2 * time.Second,
	})
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := redisClient.Ping(ctx).Err(); err != nil {
		// keep the client; it reconnects on demand
		L().Warn("redis ping failed", zap.Error(err))
	}
	return redisClient
}

// SetRedis replaces the shared client. Passing nil disables Redis.
func SetRedis(c *redis.Client) {
	redisMu.Lock()
	redisClient = c
	redisInit = true
	redisMu.Unlock()
}
