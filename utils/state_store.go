package utils

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"time"
)

const statePrefix = "oauth:state:"

var oauthStates = newTTLSet()

// getDelScript is the fallback for Redis servers without GETDEL.
const getDelScript = `local v=redis.call('GET', KEYS[1]); if v then redis.call('DEL', KEYS[1]); end; return v`

// NewState returns a random OAuth state token.
func NewState() (string, error) {
	b := make([]byte, 16)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}

// SaveState remembers an OAuth state token for ttl (10 minutes when ttl <= 0).
func SaveState(ctx context.Context, state string, ttl time.Duration) {
	if ttl <= 0 {
		ttl = 10 * time.Minute
	}
	if rc := GetRedis(); rc != nil {
		ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
		defer cancel()
		_ = rc.Set(ctx, statePrefix+state, "1", ttl).Err()
		return
	}
	oauthStates.add(state, time.Now().Add(ttl))
}

// ConsumeState reports whether state was issued and not used yet, and invalidates it.
func ConsumeState(ctx context.Context, state string) bool {
	if state == "" {
		return false
	}
	if rc := GetRedis(); rc != nil {
		return redisGetDel(ctx, statePrefix+state) != ""
	}
	return oauthStates.has(state, true)
}

func redisGetDel(ctx context.Context, key string) string {
	rc := GetRedis()
	if rc == nil {
		return ""
	}
	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	if v, err := rc.GetDel(ctx, key).Result(); err == nil {
		return v
	}
	res, err := rc.Eval(ctx, getDelScript, []string{key}).Result()
	if err != nil || res == nil {
		return ""
	}
	s, _ := res.(string)
	return s
}
