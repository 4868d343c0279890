package sink

import (
	"context"
	"errors"
	"time"

	"github.com/wonny/patternscan/internal/contracts"
	"github.com/wonny/patternscan/pkg/redis"
)

// errPartialReport keeps an interrupted scan out of the cache
var errPartialReport = errors.New("partial report")

// CacheSink keeps the newest report per strategy in Redis
type CacheSink struct {
	cache *redis.Cache
	ttl   time.Duration
}

// NewCache creates a cache sink; a disabled client makes it a no-op
func NewCache(cache *redis.Cache, ttl time.Duration) *CacheSink {
	if ttl <= 0 {
		ttl = redis.TTLMedium
	}
	return &CacheSink{cache: cache, ttl: ttl}
}

// Write stores the report under its date key and the latest key
func (s *CacheSink) Write(ctx context.Context, r *contracts.Report) error {
	date := r.GeneratedAt.Format("20060102")
	if err := s.cache.Set(ctx, redis.ScanResultKey(r.Strategy, date), r, redis.TTLDaily); err != nil {
		return err
	}
	return s.cache.Set(ctx, redis.LatestScanKey(r.Strategy), r, s.ttl)
}

// LatestOrScan serves the cached latest report of a strategy, running scan
// on a miss. Partial reports are returned but never cached; an unreachable
// cache degrades to a direct scan.
func (s *CacheSink) LatestOrScan(ctx context.Context, strategy string, scan func() (*contracts.Report, error)) (*contracts.Report, error) {
	var (
		cached  contracts.Report
		fresh   *contracts.Report
		scanErr error
	)
	err := s.cache.GetOrSet(ctx, redis.LatestScanKey(strategy), &cached, s.ttl, func() (interface{}, error) {
		fresh, scanErr = scan()
		if scanErr != nil {
			return nil, scanErr
		}
		if fresh.Partial {
			return nil, errPartialReport
		}
		date := fresh.GeneratedAt.Format("20060102")
		_ = s.cache.Set(ctx, redis.ScanResultKey(fresh.Strategy, date), fresh, redis.TTLDaily)
		return fresh, nil
	})

	switch {
	case scanErr != nil:
		return nil, scanErr
	case fresh != nil:
		return fresh, nil
	case err != nil:
		return scan()
	}
	return &cached, nil
}
