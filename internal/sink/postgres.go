package sink

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/wonny/patternscan/internal/contracts"
	"github.com/wonny/patternscan/pkg/logger"
)

// Schema creates the scan run tables used by PostgresSink
var Schema = []string{
	`CREATE SCHEMA IF NOT EXISTS scan`,
	`CREATE TABLE IF NOT EXISTS scan.scan_runs (
		run_id        UUID        PRIMARY KEY,
		strategy      TEXT        NOT NULL,
		generated_at  TIMESTAMPTZ NOT NULL,
		duration_ms   BIGINT      NOT NULL,
		total_scanned INTEGER     NOT NULL,
		failed        INTEGER     NOT NULL,
		partial       BOOLEAN     NOT NULL DEFAULT FALSE
	)`,
	`CREATE TABLE IF NOT EXISTS scan.scan_hits (
		run_id     UUID             NOT NULL REFERENCES scan.scan_runs (run_id) ON DELETE CASCADE,
		stock_code TEXT             NOT NULL,
		full_code  TEXT             NOT NULL,
		name       TEXT             NOT NULL DEFAULT '',
		price      DOUBLE PRECISION NOT NULL,
		change_pct DOUBLE PRECISION NOT NULL,
		stage      TEXT             NOT NULL,
		concepts   TEXT             NOT NULL,
		PRIMARY KEY (run_id, stock_code)
	)`,
	`CREATE INDEX IF NOT EXISTS idx_scan_runs_strategy ON scan.scan_runs (strategy, generated_at DESC)`,
}

// PostgresSink stores every run and its hits
// ⭐ SSOT: 스캔 이력 저장은 여기서만
type PostgresSink struct {
	pool   *pgxpool.Pool
	logger *logger.Logger
}

// NewPostgres creates a sink over pool; the caller applies Schema
func NewPostgres(pool *pgxpool.Pool, log *logger.Logger) *PostgresSink {
	return &PostgresSink{pool: pool, logger: log.WithField("module", "scan_store")}
}

// Write inserts the run and its hits in one transaction
func (s *PostgresSink) Write(ctx context.Context, r *contracts.Report) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	_, err = tx.Exec(ctx, `
		INSERT INTO scan.scan_runs (run_id, strategy, generated_at, duration_ms, total_scanned, failed, partial)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`, r.RunID, r.Strategy, r.GeneratedAt, r.Duration.Milliseconds(), r.TotalScanned, r.Failed, r.Partial)
	if err != nil {
		return fmt.Errorf("insert run: %w", err)
	}

	if len(r.Hits) > 0 {
		query := `
			INSERT INTO scan.scan_hits (run_id, stock_code, full_code, name, price, change_pct, stage, concepts)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		`
		batch := &pgx.Batch{}
		for _, h := range r.Hits {
			batch.Queue(query, r.RunID, h.Code, h.FullCode, h.Name, h.Price, h.ChangePct, h.Stage.String(), h.Concepts)
		}
		if err := tx.SendBatch(ctx, batch).Close(); err != nil {
			return fmt.Errorf("insert hits: %w", err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit run: %w", err)
	}

	s.logger.WithFields(map[string]interface{}{
		"run_id":   r.RunID,
		"strategy": r.Strategy,
		"hits":     len(r.Hits),
	}).Info("Scan run stored")
	return nil
}

// RunSummary is one stored run
type RunSummary struct {
	RunID        string    `json:"run_id"`
	Strategy     string    `json:"strategy"`
	GeneratedAt  time.Time `json:"generated_at"`
	TotalScanned int       `json:"total_scanned"`
	Hits         int       `json:"hits"`
}

// RecentRuns lists the newest runs of a strategy
func (s *PostgresSink) RecentRuns(ctx context.Context, strategy string, limit int) ([]RunSummary, error) {
	query := `
		SELECT r.run_id::text, r.strategy, r.generated_at, r.total_scanned, COUNT(h.stock_code)::int
		FROM scan.scan_runs r
		LEFT JOIN scan.scan_hits h ON h.run_id = r.run_id
		WHERE r.strategy = $1
		GROUP BY r.run_id
		ORDER BY r.generated_at DESC
		LIMIT $2
	`

	rows, err := s.pool.Query(ctx, query, strategy, limit)
	if err != nil {
		return nil, fmt.Errorf("query runs: %w", err)
	}
	runs, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (RunSummary, error) {
		var rs RunSummary
		err := row.Scan(&rs.RunID, &rs.Strategy, &rs.GeneratedAt, &rs.TotalScanned, &rs.Hits)
		return rs, err
	})
	if err != nil {
		return nil, fmt.Errorf("scan runs: %w", err)
	}
	return runs, nil
}
