package commands

import (
	"context"
	"fmt"

	"github.com/wonny/patternscan/internal/contracts"
	"github.com/wonny/patternscan/internal/sink"
	"github.com/wonny/patternscan/pkg/database"
	"github.com/wonny/patternscan/pkg/redis"
)

// resultStores holds the persistent report sinks that are configured
type resultStores struct {
	cache    *sink.CacheSink
	limiter  *redis.RateLimiter
	redis    *redis.Client
	postgres *sink.PostgresSink
	db       *database.DB
	closers  []func()
}

// openStores connects Redis when enabled and PostgreSQL when DATABASE_URL is set
func (a *app) openStores(ctx context.Context) (*resultStores, error) {
	st := &resultStores{}

	rc, err := redis.New(ctx, a.cfg)
	if err != nil {
		return nil, fmt.Errorf("connect redis: %w", err)
	}
	st.redis = rc
	st.closers = append(st.closers, func() { _ = rc.Close() })
	if rc.Enabled() {
		st.cache = sink.NewCache(redis.NewCache(rc, "patternscan"), a.cfg.Redis.ResultTTL)
		st.limiter = redis.NewRateLimiter(rc, "patternscan")
		a.log.WithField("addr", a.cfg.RedisAddr()).Info("Connected to redis")
	}

	if a.cfg.Database.URL != "" {
		db, err := database.New(ctx, a.cfg)
		if err != nil {
			st.close()
			return nil, fmt.Errorf("connect to database: %w", err)
		}
		st.closers = append(st.closers, db.Close)
		if err := db.EnsureSchema(ctx, sink.Schema...); err != nil {
			st.close()
			return nil, err
		}
		st.db = db
		st.postgres = sink.NewPostgres(db.Pool, a.log)
		a.log.Info("Connected to database")
	}

	return st, nil
}

// sinks returns the configured stores plus extra, in write order
func (st *resultStores) sinks(extra ...contracts.ResultSink) sink.Multi {
	out := sink.Multi(extra)
	if st.postgres != nil {
		out = append(out, st.postgres)
	}
	if st.cache != nil {
		out = append(out, st.cache)
	}
	return out
}

func (st *resultStores) close() {
	for i := len(st.closers) - 1; i >= 0; i-- {
		st.closers[i]()
	}
}
