package pgstore

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/wonny/patternscan/internal/contracts"
	"github.com/wonny/patternscan/internal/source/quality"
	"github.com/wonny/patternscan/pkg/logger"
)

// Schema creates the bar table used by Store
var Schema = []string{
	`CREATE SCHEMA IF NOT EXISTS data`,
	`CREATE TABLE IF NOT EXISTS data.daily_prices (
		stock_code  TEXT             NOT NULL,
		trade_date  DATE             NOT NULL,
		open_price  DOUBLE PRECISION NOT NULL,
		high_price  DOUBLE PRECISION NOT NULL,
		low_price   DOUBLE PRECISION NOT NULL,
		close_price DOUBLE PRECISION NOT NULL,
		volume      BIGINT           NOT NULL,
		PRIMARY KEY (stock_code, trade_date)
	)`,
}

// Store reads daily bars from data.daily_prices keyed by full code
// ⭐ SSOT: 일봉 DB 저장소는 여기서만
type Store struct {
	pool   *pgxpool.Pool
	logger *logger.Logger
}

// New creates a store over pool
func New(pool *pgxpool.Pool, log *logger.Logger) *Store {
	return &Store{pool: pool, logger: log.WithField("module", "pgstore")}
}

// List returns every instrument with at least one bar, sorted
func (s *Store) List(ctx context.Context) ([]string, error) {
	query := `
		SELECT DISTINCT stock_code
		FROM data.daily_prices
		ORDER BY stock_code
	`

	rows, err := s.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("%w: list codes: %v", contracts.ErrNoSeries, err)
	}

	ids, err := pgx.CollectRows(rows, pgx.RowTo[string])
	if err != nil {
		return nil, fmt.Errorf("scan codes: %w", err)
	}
	return ids, nil
}

// Load returns the full history of one instrument
func (s *Store) Load(ctx context.Context, id string) (*contracts.Series, error) {
	query := `
		SELECT trade_date, open_price, high_price, low_price, close_price, volume
		FROM data.daily_prices
		WHERE stock_code = $1
		ORDER BY trade_date ASC
	`

	rows, err := s.pool.Query(ctx, query, id)
	if err != nil {
		return nil, fmt.Errorf("query %s: %w", id, err)
	}
	defer rows.Close()

	var bars []contracts.Bar
	for rows.Next() {
		var b contracts.Bar
		if err := rows.Scan(&b.Date, &b.Open, &b.High, &b.Low, &b.Close, &b.Volume); err != nil {
			return nil, fmt.Errorf("scan %s: %w", id, err)
		}
		bars = append(bars, b)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("read %s: %w", id, err)
	}

	if len(bars) == 0 {
		return nil, fmt.Errorf("%w: %s", contracts.ErrNotFound, id)
	}

	series, _, err := quality.Clean(id, bars)
	return series, err
}

// Write upserts every bar of a series in one batch
func (s *Store) Write(ctx context.Context, series *contracts.Series) error {
	if series.Len() == 0 {
		return nil
	}

	query := `
		INSERT INTO data.daily_prices (stock_code, trade_date, open_price, high_price, low_price, close_price, volume)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (stock_code, trade_date) DO UPDATE SET
			open_price = EXCLUDED.open_price,
			high_price = EXCLUDED.high_price,
			low_price = EXCLUDED.low_price,
			close_price = EXCLUDED.close_price,
			volume = EXCLUDED.volume
	`

	batch := &pgx.Batch{}
	for _, b := range series.Bars {
		batch.Queue(query, series.FullCode, b.Date, b.Open, b.High, b.Low, b.Close, b.Volume)
	}

	if err := s.pool.SendBatch(ctx, batch).Close(); err != nil {
		return fmt.Errorf("upsert %s: %w", series.FullCode, err)
	}
	return nil
}

// Status summarises the archive
type Status struct {
	Instruments int       `json:"instruments"`
	Bars        int64     `json:"bars"`
	LatestDate  time.Time `json:"latest_date"`
}

// Status counts instruments and bars and reports the newest trading date
func (s *Store) Status(ctx context.Context) (*Status, error) {
	query := `
		SELECT COUNT(DISTINCT stock_code), COUNT(*), COALESCE(MAX(trade_date), DATE '0001-01-01')
		FROM data.daily_prices
	`

	var st Status
	if err := s.pool.QueryRow(ctx, query).Scan(&st.Instruments, &st.Bars, &st.LatestDate); err != nil {
		return nil, fmt.Errorf("archive status: %w", err)
	}
	return &st, nil
}
