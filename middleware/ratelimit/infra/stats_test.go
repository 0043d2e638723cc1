package infra

import (
	"context"
	"os"
	"testing"
	"time"

	"sector-gateway/middleware/ratelimit/domain"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryStatsStore_CountsByDimension(t *testing.T) {
	s := NewMemoryStatsStore(WithTrackKeys(true))
	ctx := context.Background()

	events := []domain.StatsEvent{
		{Key: "user:a", Allowed: true, Route: "analyze", Sector: "technology"},
		{Key: "user:a", Allowed: false, Route: "analyze", Sector: "technology"},
		{Key: "10.0.0.1", Allowed: true, Route: "login"},
	}
	for _, ev := range events {
		require.NoError(t, s.Record(ctx, ev))
	}

	assert.Equal(t, Counters{Allowed: 2, Denied: 1}, s.Total())
	assert.Equal(t, map[string]Counters{
		"analyze": {Allowed: 1, Denied: 1},
		"login":   {Allowed: 1},
	}, s.ByRoute())
	// evento de login não tem setor
	assert.Equal(t, map[string]Counters{"technology": {Allowed: 1, Denied: 1}}, s.BySector())
	assert.Equal(t, Counters{Allowed: 1, Denied: 1}, s.ByKey()["user:a"])
}

func TestMemoryStatsStore_KeysOffByDefault(t *testing.T) {
	s := NewMemoryStatsStore()
	require.NoError(t, s.Record(context.Background(), domain.StatsEvent{Key: "k", Allowed: true}))
	assert.Empty(t, s.ByKey())
}

func TestMemoryStatsStore_SnapshotsAreCopies(t *testing.T) {
	s := NewMemoryStatsStore()
	require.NoError(t, s.Record(context.Background(), domain.StatsEvent{Route: "analyze", Allowed: true}))

	snap := s.ByRoute()
	snap["analyze"] = Counters{Allowed: 99}
	assert.Equal(t, int64(1), s.ByRoute()["analyze"].Allowed)
}

func TestRedisStatsStore_MinuteKey(t *testing.T) {
	s := NewRedisStatsStore(nil, WithStatsPrefix("gw:stats:"))
	at := time.Date(2025, 7, 9, 14, 5, 59, 0, time.FixedZone("IST", 5*3600+1800))
	assert.Equal(t, "gw:stats:minute:202507090835", s.MinuteKey(at))
}

func TestRedisStatsStore_NilClientIsNoop(t *testing.T) {
	s := NewRedisStatsStore(nil)
	assert.NoError(t, s.Record(context.Background(), domain.StatsEvent{Allowed: true}))
}

func TestRedisStatsStore_Record(t *testing.T) {
	addr := os.Getenv("REDIS_ADDR")
	if addr == "" {
		addr = "localhost:6379"
	}
	rdb := redis.NewClient(&redis.Options{Addr: addr})
	defer func() { _ = rdb.Close() }()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := rdb.Ping(ctx).Err(); err != nil {
		t.Skipf("skipping redis stats tests: %v", err)
		return
	}

	prefix := "sectorgw:test:" + uuid.NewString()
	defer func() {
		keys, _ := rdb.Keys(context.Background(), prefix+":*").Result()
		if len(keys) > 0 {
			_ = rdb.Del(context.Background(), keys...).Err()
		}
	}()

	s := NewRedisStatsStore(rdb,
		WithStatsPrefix(prefix),
		WithStatsTTL(time.Minute),
		WithStatsTrackKeys(true),
	)
	at := time.Now()
	require.NoError(t, s.Record(ctx, domain.StatsEvent{Key: "user:a", Allowed: true, Route: "analyze", Sector: "energy", At: at}))
	require.NoError(t, s.Record(ctx, domain.StatsEvent{Key: "user:a", Allowed: false, Route: "analyze", Sector: "energy", At: at}))

	total, err := rdb.HGetAll(ctx, prefix+":total").Result()
	require.NoError(t, err)
	assert.Equal(t, map[string]string{"allowed": "1", "denied": "1"}, total)

	route, err := rdb.HGetAll(ctx, prefix+":route").Result()
	require.NoError(t, err)
	assert.Equal(t, map[string]string{"analyze:allowed": "1", "analyze:denied": "1"}, route)

	sector, err := rdb.HGet(ctx, prefix+":sector", "energy:allowed").Result()
	require.NoError(t, err)
	assert.Equal(t, "1", sector)

	ttl, err := rdb.TTL(ctx, s.MinuteKey(at)).Result()
	require.NoError(t, err)
	assert.Greater(t, ttl, time.Duration(0))

	perKey, err := rdb.HGet(ctx, prefix+":key:user:a", "denied").Result()
	require.NoError(t, err)
	assert.Equal(t, "1", perKey)
}
