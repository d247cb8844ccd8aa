package utils

import (
	"context"
	"time"

	"go.uber.org/zap"
)

const blacklistPrefix = "jwt:blacklist:"

var blacklist = newTTLSet()

// BlacklistToken revokes token until it would have expired anyway.
func BlacklistToken(ctx context.Context, token string, expiresAt time.Time) {
	ttl := time.Until(expiresAt)
	if ttl <= 0 {
		return
	}
	if rc := GetRedis(); rc != nil {
		ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
		defer cancel()
		if err := rc.Set(ctx, blacklistPrefix+token, "1", ttl).Err(); err != nil {
			L().Warn("blacklist token failed", zap.Error(err))
		}
		return
	}
	blacklist.add(token, expiresAt)
}

// IsTokenBlacklisted fails open on Redis errors.
func IsTokenBlacklisted(ctx context.Context, token string) bool {
	if rc := GetRedis(); rc != nil {
		ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
		defer cancel()
		n, err := rc.Exists(ctx, blacklistPrefix+token).Result()
		return err == nil && n > 0
	}
	return blacklist.has(token, false)
}
