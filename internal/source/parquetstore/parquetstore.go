package parquetstore

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/parquet-go/parquet-go"

	"github.com/wonny/patternscan/internal/contracts"
	"github.com/wonny/patternscan/internal/source/quality"
	"github.com/wonny/patternscan/pkg/logger"
)

// Ext is the file extension of one instrument file
const Ext = ".parquet"

const dateLayout = "2006-01-02"

// Row is the on-disk layout of one daily bar
type Row struct {
	Date   string  `parquet:"date"` // YYYY-MM-DD
	Open   float64 `parquet:"open"`
	High   float64 `parquet:"high"`
	Low    float64 `parquet:"low"`
	Close  float64 `parquet:"close"`
	Volume int64   `parquet:"volume"`
}

// Store loads one <full_code>.parquet per instrument from a directory
type Store struct {
	dir    string
	logger *logger.Logger
}

// New creates a store over dir
func New(dir string, log *logger.Logger) *Store {
	return &Store{dir: dir, logger: log.WithField("module", "parquetstore")}
}

// List returns instrument ids, sorted
func (s *Store) List(ctx context.Context) ([]string, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return nil, fmt.Errorf("%w: read data dir %s: %v", contracts.ErrNoSeries, s.dir, err)
	}

	var ids []string
	for _, e := range entries {
		if !e.IsDir() && strings.HasSuffix(e.Name(), Ext) {
			ids = append(ids, strings.TrimSuffix(e.Name(), Ext))
		}
	}
	sort.Strings(ids)
	return ids, nil
}

// Load reads and cleans one instrument
func (s *Store) Load(ctx context.Context, id string) (*contracts.Series, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	path := filepath.Join(s.dir, id+Ext)
	if _, err := os.Stat(path); errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("%w: %s", contracts.ErrNotFound, id)
	}

	rows, err := parquet.ReadFile[Row](path)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", contracts.ErrMalformedSeries, id, err)
	}

	bars := make([]contracts.Bar, 0, len(rows))
	for _, r := range rows {
		date, err := time.Parse(dateLayout, r.Date)
		if err != nil {
			continue
		}
		bars = append(bars, contracts.Bar{
			Date:   date,
			Open:   r.Open,
			High:   r.High,
			Low:    r.Low,
			Close:  r.Close,
			Volume: r.Volume,
		})
	}

	series, stats, err := quality.Clean(id, bars)
	if err != nil {
		return nil, err
	}
	if dropped := len(rows) - stats.Kept; dropped > 0 {
		s.logger.WithFields(map[string]interface{}{
			"code":    id,
			"dropped": dropped,
		}).Debug("Dropped unusable rows")
	}
	return series, nil
}

// Write stores a series as <full_code>.parquet, replacing any existing file
func (s *Store) Write(ctx context.Context, series *contracts.Series) error {
	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return fmt.Errorf("create data dir: %w", err)
	}

	rows := make([]Row, len(series.Bars))
	for i, b := range series.Bars {
		rows[i] = Row{
			Date:   b.Date.Format(dateLayout),
			Open:   b.Open,
			High:   b.High,
			Low:    b.Low,
			Close:  b.Close,
			Volume: b.Volume,
		}
	}

	path := filepath.Join(s.dir, series.FullCode+Ext)
	if err := parquet.WriteFile(path, rows); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	return nil
}
