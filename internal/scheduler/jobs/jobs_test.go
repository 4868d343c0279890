package jobs

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wonny/patternscan/internal/concept"
	"github.com/wonny/patternscan/internal/contracts"
	"github.com/wonny/patternscan/internal/scanner"
	"github.com/wonny/patternscan/internal/source/memstore"
	"github.com/wonny/patternscan/internal/strategy"
	"github.com/wonny/patternscan/internal/strategyconfig"
	"github.com/wonny/patternscan/pkg/logger"
)

// captureSink keeps every report it receives
type captureSink struct {
	reports []*contracts.Report
	err     error
}

func (c *captureSink) Write(ctx context.Context, r *contracts.Report) error {
	if c.err != nil {
		return c.err
	}
	c.reports = append(c.reports, r)
	return nil
}

func flatSeries(t *testing.T, code string) *contracts.Series {
	t.Helper()
	start := time.Date(2025, 3, 3, 0, 0, 0, 0, time.UTC)
	bars := make([]contracts.Bar, 10)
	for i := range bars {
		bars[i] = contracts.Bar{Date: start.AddDate(0, 0, i), Open: 10, High: 10, Low: 10, Close: 10, Volume: 1000}
	}
	s, err := contracts.NewSeries(code, bars)
	require.NoError(t, err)
	return s
}

func newDailyScan(t *testing.T, sink contracts.ResultSink, ids []string) *DailyScanJob {
	store := memstore.New(logger.Nop(), flatSeries(t, "sh.600000"), flatSeries(t, "sz.000001"))
	sc := scanner.New(store, concept.NewMap("", nil), concept.Names{}, scanner.Config{Workers: 2}, logger.Nop())
	dir := t.TempDir()
	return NewDailyScanJob(strategy.NewRegistry(strategyconfig.Default()), sc, sink, DailyScanConfig{
		Strategies:  ids,
		Schedule:    "0 30 15 * * 1-5",
		ConceptPath: filepath.Join(dir, "concepts.json"),
		NamePath:    filepath.Join(dir, "names.json"),
	}, logger.Nop())
}

func TestDailyScanJob_AllStrategies(t *testing.T) {
	sink := &captureSink{}
	job := newDailyScan(t, sink, nil)

	assert.Equal(t, "daily_scan", job.Name())
	assert.Equal(t, "0 30 15 * * 1-5", job.Schedule())
	require.NoError(t, job.Run(context.Background()))

	require.Len(t, sink.reports, 3)
	for i, id := range []string{strategy.IDMA5Support, strategy.IDVolumeBreakout, strategy.IDBreakoutPullback} {
		assert.Equal(t, id, sink.reports[i].Strategy)
		assert.Equal(t, 2, sink.reports[i].TotalScanned)
	}
}

func TestDailyScanJob_UnknownStrategyContinues(t *testing.T) {
	sink := &captureSink{}
	job := newDailyScan(t, sink, []string{"nope", strategy.IDMA5Support})

	err := job.Run(context.Background())
	require.Error(t, err)
	assert.ErrorIs(t, err, contracts.ErrUnknownStrategy)
	require.Len(t, sink.reports, 1)
	assert.Equal(t, strategy.IDMA5Support, sink.reports[0].Strategy)
}

func TestDailyScanJob_SinkFailure(t *testing.T) {
	sink := &captureSink{err: errors.New("disk full")}
	job := newDailyScan(t, sink, []string{strategy.IDMA5Support})

	err := job.Run(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "write ma5: disk full")
}

func TestDailyScanJob_CancelledScanNotWritten(t *testing.T) {
	sink := &captureSink{}
	job := newDailyScan(t, sink, nil)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := job.Run(ctx)
	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Empty(t, sink.reports)
}

// stubSyncer returns a fixed snapshot or error
type stubSyncer struct {
	result *concept.SyncResult
	err    error
}

func (s stubSyncer) Sync(ctx context.Context) (*concept.SyncResult, error) {
	return s.result, s.err
}

func TestConceptSyncJob_Persists(t *testing.T) {
	dir := t.TempDir()
	conceptPath := filepath.Join(dir, "concepts.json")
	namePath := filepath.Join(dir, "names.json")

	job := NewConceptSyncJob(stubSyncer{result: &concept.SyncResult{
		Concepts: concept.NewMap("20250610", map[string]string{"600000": "AI / Banking"}),
		Names:    concept.Names{"600000": "浦发银行"},
	}}, "0 0 8 * * *", conceptPath, namePath, nil, logger.Nop())

	assert.Equal(t, "concept_sync", job.Name())
	require.NoError(t, job.Run(context.Background()))

	m, err := concept.LoadMap(conceptPath)
	require.NoError(t, err)
	assert.Equal(t, "AI / Banking", m.Lookup("600000"))

	names, err := concept.LoadNames(namePath)
	require.NoError(t, err)
	assert.Equal(t, "浦发银行", names.Name("600000"))
}

func TestConceptSyncJob_SyncFailureKeepsCache(t *testing.T) {
	dir := t.TempDir()
	conceptPath := filepath.Join(dir, "concepts.json")
	require.NoError(t, concept.NewMap("20250601", map[string]string{"600000": "Old"}).Save(conceptPath))

	job := NewConceptSyncJob(stubSyncer{err: errors.New("timeout")}, "0 0 8 * * *", conceptPath, "", nil, logger.Nop())
	require.Error(t, job.Run(context.Background()))

	m, err := concept.LoadMap(conceptPath)
	require.NoError(t, err)
	assert.Equal(t, "Old", m.Lookup("600000"))
}
