package redis

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wonny/patternscan/pkg/config"
)

func disabledClient(t *testing.T) *Client {
	t.Helper()
	client, err := New(context.Background(), &config.Config{Redis: config.RedisConfig{Enabled: false}})
	require.NoError(t, err)
	return client
}

func TestNewClient_Disabled(t *testing.T) {
	client := disabledClient(t)

	assert.False(t, client.Enabled())
	assert.NoError(t, client.Ping(context.Background()))
	assert.NoError(t, client.Close())
}

func TestRateLimiter_Disabled(t *testing.T) {
	limiter := NewRateLimiter(disabledClient(t), "test")

	// When Redis is disabled, all requests should be allowed
	allowed, remaining, err := limiter.Allow(context.Background(), ScanRefreshLimit.PerClient("127.0.0.1"))
	require.NoError(t, err)
	assert.True(t, allowed)
	assert.Equal(t, ScanRefreshLimit.Limit, remaining)
}

func TestCache_Disabled(t *testing.T) {
	cache := NewCache(disabledClient(t), "test")
	ctx := context.Background()

	var result string
	found, err := cache.Get(ctx, "key", &result)
	require.NoError(t, err)
	assert.False(t, found)
	assert.NoError(t, cache.Set(ctx, "key", "value", TTLShort))
	assert.NoError(t, cache.Delete(ctx, "key"))
}

func TestCache_GetOrSetDisabledCallsFn(t *testing.T) {
	cache := NewCache(disabledClient(t), "test")

	calls := 0
	var got []string
	err := cache.GetOrSet(context.Background(), "codes", &got, TTLShort, func() (interface{}, error) {
		calls++
		return []string{"600000", "000001"}, nil
	})
	require.NoError(t, err)
	assert.Equal(t, 1, calls)
	assert.Equal(t, []string{"600000", "000001"}, got)
}

func TestCacheKeys(t *testing.T) {
	assert.Equal(t, "scan:ma5:20250610", ScanResultKey("ma5", "20250610"))
	assert.Equal(t, "scan:breakout_pullback:latest", LatestScanKey("breakout_pullback"))
	assert.Equal(t, "scan_refresh:10.0.0.1", ScanRefreshLimit.PerClient("10.0.0.1").Key)
}
