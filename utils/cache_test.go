package utils

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func useMiniredis(t *testing.T) *miniredis.Miniredis {
	t.Helper()
	mr := miniredis.RunT(t)
	rc := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	SetRedis(rc)
	t.Cleanup(func() {
		SetRedis(nil)
		_ = rc.Close()
	})
	return mr
}

func withoutRedis(t *testing.T) {
	t.Helper()
	SetRedis(nil)
}

func TestCacheJSON(t *testing.T) {
	mr := useMiniredis(t)
	ctx := context.Background()

	type card struct {
		ID    string `json:"id"`
		Title string `json:"title"`
	}
	CacheSetJSON(ctx, CacheKeyPost+"p1", card{ID: "p1", Title: "Leg day"}, 0)
	assert.Equal(t, time.Hour, mr.TTL(CacheKeyPost+"p1"))

	var got card
	require.True(t, CacheGetJSON(ctx, CacheKeyPost+"p1", &got))
	assert.Equal(t, "Leg day", got.Title)

	require.NoError(t, mr.Set(CacheKeyPost+"bad", "{not json"))
	assert.False(t, CacheGetJSON(ctx, CacheKeyPost+"bad", &got))

	CacheDelete(ctx, CacheKeyPost+"p1")
	assert.False(t, CacheGetJSON(ctx, CacheKeyPost+"p1", &got))
}

func TestInvalidateByPrefix(t *testing.T) {
	mr := useMiniredis(t)
	ctx := context.Background()
	CacheSetBytes(ctx, CacheKeyPost+"a", []byte("1"), time.Minute)
	CacheSetBytes(ctx, CacheKeyPost+"b", []byte("2"), time.Minute)
	CacheSetBytes(ctx, CacheKeyProfile+"u1", []byte("3"), time.Minute)

	InvalidateByPrefix(ctx, CacheKeyPost)
	assert.False(t, mr.Exists(CacheKeyPost+"a"))
	assert.False(t, mr.Exists(CacheKeyPost+"b"))
	assert.True(t, mr.Exists(CacheKeyProfile+"u1"))
}

func TestCacheDisabledIsANoop(t *testing.T) {
	withoutRedis(t)
	ctx := context.Background()
	CacheSetBytes(ctx, "k", []byte("v"), 0)
	_, ok := CacheGetBytes(ctx, "k")
	assert.False(t, ok)
	CacheDelete(ctx, "k")
	InvalidateByPrefix(ctx, "k")
}

func TestBlacklist(t *testing.T) {
	for name, setup := range map[string]func(*testing.T){
		"redis":  func(t *testing.T) { useMiniredis(t) },
		"memory": withoutRedis,
	} {
		t.Run(name, func(t *testing.T) {
			setup(t)
			ctx := context.Background()
			token := "tok-" + name
			assert.False(t, IsTokenBlacklisted(ctx, token))

			BlacklistToken(ctx, token, time.Now().Add(time.Minute))
			assert.True(t, IsTokenBlacklisted(ctx, token))

			BlacklistToken(ctx, token+"-old", time.Now().Add(-time.Minute))
			assert.False(t, IsTokenBlacklisted(ctx, token+"-old"))
		})
	}
}

func TestOAuthStateIsSingleUse(t *testing.T) {
	for name, setup := range map[string]func(*testing.T){
		"redis":  func(t *testing.T) { useMiniredis(t) },
		"memory": withoutRedis,
	} {
		t.Run(name, func(t *testing.T) {
			setup(t)
			ctx := context.Background()
			state, err := NewState()
			require.NoError(t, err)
			assert.Len(t, state, 32)

			assert.False(t, ConsumeState(ctx, state))
			SaveState(ctx, state, time.Minute)
			assert.True(t, ConsumeState(ctx, state))
			assert.False(t, ConsumeState(ctx, state))
			assert.False(t, ConsumeState(ctx, ""))
		})
	}
}

func TestTTLSetExpiry(t *testing.T) {
	s := newTTLSet()
	s.add("live", time.Now().Add(time.Minute))
	s.add("dead", time.Now().Add(-time.Second))
	assert.True(t, s.has("live", false))
	assert.True(t, s.has("live", true))
	assert.False(t, s.has("live", false))
	assert.False(t, s.has("dead", false))
}

func TestRedisCaptchaStore(t *testing.T) {
	mr := useMiniredis(t)
	s := NewRedisCaptchaStore(time.Minute)
	require.NoError(t, s.Set("c1", "12345"))
	assert.Equal(t, time.Minute, mr.TTL(captchaPrefix+"c1"))

	assert.False(t, s.Verify("c1", "00000", false))
	assert.True(t, s.Verify("c1", "12345", true))
	assert.False(t, s.Verify("c1", "12345", true), "consumed")
	assert.False(t, VerifyCaptcha("", ""))
}
