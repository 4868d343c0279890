// Package source opens the configured bar archive.
package source

import (
	"context"
	"fmt"
	"time"

	"github.com/wonny/patternscan/internal/contracts"
	"github.com/wonny/patternscan/internal/source/csvstore"
	"github.com/wonny/patternscan/internal/source/memstore"
	"github.com/wonny/patternscan/internal/source/parquetstore"
	"github.com/wonny/patternscan/internal/source/pgstore"
	"github.com/wonny/patternscan/pkg/config"
	"github.com/wonny/patternscan/pkg/database"
	"github.com/wonny/patternscan/pkg/logger"
)

// Store is a bar archive that can be scanned and written
type Store interface {
	contracts.SeriesLoader
	Write(ctx context.Context, s *contracts.Series) error
}

var (
	_ Store = (*csvstore.Store)(nil)
	_ Store = (*parquetstore.Store)(nil)
	_ Store = (*pgstore.Store)(nil)
	_ Store = (*memstore.Store)(nil)
)

// New opens the archive selected by cfg.DataFormat.
// The returned func releases any connection the store holds.
func New(ctx context.Context, cfg *config.Config, log *logger.Logger) (Store, func(), error) {
	return Open(ctx, cfg, cfg.DataFormat, cfg.DataDir, log)
}

// Open opens an archive of the given format; dir is ignored for postgres
func Open(ctx context.Context, cfg *config.Config, format, dir string, log *logger.Logger) (Store, func(), error) {
	switch format {
	case config.FormatCSV:
		return csvstore.New(dir, log), func() {}, nil
	case config.FormatParquet:
		return parquetstore.New(dir, log), func() {}, nil
	case config.FormatPostgres:
		db, err := database.New(ctx, cfg)
		if err != nil {
			return nil, nil, fmt.Errorf("open bar database: %w", err)
		}
		if err := db.EnsureSchema(ctx, pgstore.Schema...); err != nil {
			db.Close()
			return nil, nil, err
		}
		return pgstore.New(db.Pool, log), db.Close, nil
	default:
		return nil, nil, fmt.Errorf("unsupported data format %q", format)
	}
}

// Status summarises an archive
type Status struct {
	Instruments int       `json:"instruments"`
	Unreadable  int       `json:"unreadable"`
	Bars        int       `json:"bars"`
	LatestDate  time.Time `json:"latest_date"`
}

// aggregator answers Status with one query instead of loading every series
type aggregator interface {
	Status(ctx context.Context) (*pgstore.Status, error)
}

var _ aggregator = (*pgstore.Store)(nil)

// Summarize reports counts and the newest date. Stores that aggregate
// server-side answer directly; others load every instrument once.
func Summarize(ctx context.Context, loader contracts.SeriesLoader) (*Status, error) {
	if agg, ok := loader.(aggregator); ok {
		ps, err := agg.Status(ctx)
		if err != nil {
			return nil, err
		}
		st := &Status{Instruments: ps.Instruments, Bars: int(ps.Bars)}
		if ps.Bars > 0 {
			st.LatestDate = ps.LatestDate
		}
		return st, nil
	}

	ids, err := loader.List(ctx)
	if err != nil {
		return nil, err
	}

	st := &Status{Instruments: len(ids)}
	for _, id := range ids {
		if err := ctx.Err(); err != nil {
			return st, err
		}
		s, err := loader.Load(ctx, id)
		if err != nil || s.Len() == 0 {
			st.Unreadable++
			continue
		}
		st.Bars += s.Len()
		if last := s.Last().Date; last.After(st.LatestDate) {
			st.LatestDate = last
		}
	}
	return st, nil
}
