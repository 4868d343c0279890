package csvstore

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"math"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/wonny/patternscan/internal/contracts"
	"github.com/wonny/patternscan/internal/source/quality"
	"github.com/wonny/patternscan/pkg/logger"
)

// Ext is the file extension of one instrument file
const Ext = ".csv"

var requiredColumns = []string{"date", "open", "high", "low", "close", "volume"}

var dateLayouts = []string{"2006-01-02", "20060102", "2006/01/02"}

// Store loads one <full_code>.csv per instrument from a directory
// ⭐ SSOT: CSV 일봉 파일 해석은 여기서만
type Store struct {
	dir    string
	logger *logger.Logger
}

// New creates a store over dir
func New(dir string, log *logger.Logger) *Store {
	return &Store{dir: dir, logger: log.WithField("module", "csvstore")}
}

// Dir returns the backing directory
func (s *Store) Dir() string {
	return s.dir
}

// List returns instrument ids (file names without extension), sorted
func (s *Store) List(ctx context.Context) ([]string, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return nil, fmt.Errorf("%w: read data dir %s: %v", contracts.ErrNoSeries, s.dir, err)
	}

	var ids []string
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), Ext) {
			continue
		}
		ids = append(ids, strings.TrimSuffix(e.Name(), Ext))
	}
	sort.Strings(ids)
	return ids, nil
}

// Load reads and cleans one instrument
func (s *Store) Load(ctx context.Context, id string) (*contracts.Series, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	f, err := os.Open(filepath.Join(s.dir, id+Ext))
	if errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("%w: %s", contracts.ErrNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", id, err)
	}
	defer f.Close()

	rows, err := Parse(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", id, err)
	}

	series, stats, err := quality.Clean(id, rows)
	if err != nil {
		return nil, err
	}
	if stats.Dropped() > 0 {
		s.logger.WithFields(map[string]interface{}{
			"code":    id,
			"dropped": stats.Dropped(),
			"rows":    stats.Rows,
		}).Debug("Dropped unusable rows")
	}
	return series, nil
}

// Parse reads bar rows from CSV with a header line. Column order is free
// and extra columns are ignored; a missing required column is
// ErrMalformedSeries. Rows that fail coercion are skipped.
func Parse(r io.Reader) ([]contracts.Bar, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if err == io.EOF {
		return nil, fmt.Errorf("%w: empty file", contracts.ErrMalformedSeries)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: read header: %v", contracts.ErrMalformedSeries, err)
	}

	idx := make(map[string]int, len(header))
	for i, name := range header {
		idx[strings.ToLower(strings.TrimSpace(strings.TrimPrefix(name, "\ufeff")))] = i
	}
	cols := make([]int, len(requiredColumns))
	for i, name := range requiredColumns {
		pos, ok := idx[name]
		if !ok {
			return nil, fmt.Errorf("%w: missing column %q", contracts.ErrMalformedSeries, name)
		}
		cols[i] = pos
	}

	var bars []contracts.Bar
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			// a broken line only costs that row
			continue
		}
		if b, ok := parseRecord(record, cols); ok {
			bars = append(bars, b)
		}
	}
	return bars, nil
}

func parseRecord(record []string, cols []int) (contracts.Bar, bool) {
	field := func(i int) string {
		if cols[i] >= len(record) {
			return ""
		}
		return strings.TrimSpace(record[cols[i]])
	}

	date, ok := parseDate(field(0))
	if !ok {
		return contracts.Bar{}, false
	}

	var prices [4]float64
	for i := range prices {
		v, err := strconv.ParseFloat(field(i+1), 64)
		if err != nil {
			return contracts.Bar{}, false
		}
		prices[i] = v
	}

	// volume is sometimes written as a float ("12345.0")
	vol, err := strconv.ParseFloat(field(5), 64)
	if err != nil || !validVolume(vol) {
		return contracts.Bar{}, false
	}

	return contracts.Bar{
		Date:   date,
		Open:   prices[0],
		High:   prices[1],
		Low:    prices[2],
		Close:  prices[3],
		Volume: int64(vol),
	}, true
}

// validVolume rejects values int64 cannot hold exactly
func validVolume(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0) && v >= 0 && v < math.MaxInt64
}

func parseDate(v string) (time.Time, bool) {
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, v); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// Write stores a series as <full_code>.csv, replacing any existing file
func (s *Store) Write(ctx context.Context, series *contracts.Series) error {
	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return fmt.Errorf("create data dir: %w", err)
	}

	path := filepath.Join(s.dir, series.FullCode+Ext)
	tmp := path + ".tmp"
	f, err := os.Create(tmp)
	if err != nil {
		return fmt.Errorf("create %s: %w", tmp, err)
	}

	w := csv.NewWriter(f)
	_ = w.Write(requiredColumns)
	for _, b := range series.Bars {
		_ = w.Write([]string{
			b.Date.Format("2006-01-02"),
			strconv.FormatFloat(b.Open, 'f', -1, 64),
			strconv.FormatFloat(b.High, 'f', -1, 64),
			strconv.FormatFloat(b.Low, 'f', -1, 64),
			strconv.FormatFloat(b.Close, 'f', -1, 64),
			strconv.FormatInt(b.Volume, 10),
		})
	}
	w.Flush()
	if err := w.Error(); err != nil {
		f.Close()
		os.Remove(tmp)
		return fmt.Errorf("write %s: %w", path, err)
	}
	if err := f.Close(); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("close %s: %w", path, err)
	}
	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp)
		return err
	}
	return nil
}
