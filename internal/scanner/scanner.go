// Package scanner applies one classifier across the whole bar archive.
package scanner

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/wonny/patternscan/internal/concept"
	"github.com/wonny/patternscan/internal/contracts"
	"github.com/wonny/patternscan/internal/metrics"
	"github.com/wonny/patternscan/internal/strategy"
	"github.com/wonny/patternscan/pkg/logger"
)

// Default pool settings
const (
	DefaultWorkers = 40
	DefaultMinBars = 5
)

// Config holds scanner configuration
type Config struct {
	Workers int // Number of concurrent workers
	MinBars int // Series shorter than this are skipped before classifying
}

// Progress is reported once per finished instrument
type Progress struct {
	Done  int             `json:"done"`
	Total int             `json:"total"`
	Hits  int             `json:"hits"`
	Code  string          `json:"code"`
	Stage contracts.Stage `json:"stage"`
}

// ProgressFunc receives progress from the collecting goroutine only
type ProgressFunc func(Progress)

// Scanner runs classifiers over every instrument of a loader
// ⭐ SSOT: 전체 종목 스캔 오케스트레이션은 이 패키지에서만
type Scanner struct {
	loader   contracts.SeriesLoader
	concepts contracts.ConceptLookup
	names    contracts.NameLookup
	metrics  *metrics.Metrics
	cfg      Config
	logger   *logger.Logger
	now      func() time.Time
}

// New creates a scanner. concepts and names may be nil.
func New(loader contracts.SeriesLoader, concepts contracts.ConceptLookup, names contracts.NameLookup, cfg Config, log *logger.Logger) *Scanner {
	if cfg.Workers <= 0 {
		cfg.Workers = DefaultWorkers
	}
	if cfg.MinBars <= 0 {
		cfg.MinBars = DefaultMinBars
	}
	return &Scanner{
		loader:   loader,
		concepts: concepts,
		names:    names,
		cfg:      cfg,
		logger:   log.WithField("module", "scanner"),
		now:      time.Now,
	}
}

// WithMetrics records scan outcomes on m
func (s *Scanner) WithMetrics(m *metrics.Metrics) *Scanner {
	s.metrics = m
	return s
}

// WithLookups returns a copy of s that annotates hits with the given maps
func (s *Scanner) WithLookups(concepts contracts.ConceptLookup, names contracts.NameLookup) *Scanner {
	c := *s
	c.concepts = concepts
	c.names = names
	return &c
}

// WithLoader returns a copy of s reading from loader
func (s *Scanner) WithLoader(loader contracts.SeriesLoader) *Scanner {
	c := *s
	c.loader = loader
	return &c
}

// outcome is the result of one instrument
type outcome struct {
	id     string
	hit    *contracts.Hit
	stage  contracts.Stage
	reason string // failure reason, empty on success
	err    error

	// cancelled marks a load cut short by ctx; it is neither scanned nor failed
	cancelled bool
}

// Run classifies every instrument with entry's strategy.
// Per-instrument failures are logged and excluded; only an empty or
// unlistable archive is an error. A cancelled ctx yields a partial report.
func (s *Scanner) Run(ctx context.Context, entry strategy.Entry, onProgress ProgressFunc) (*contracts.Report, error) {
	started := s.now()

	ids, err := s.loader.List(ctx)
	if err != nil {
		if errors.Is(err, contracts.ErrNoSeries) {
			return nil, err
		}
		return nil, fmt.Errorf("%w: %v", contracts.ErrNoSeries, err)
	}
	if len(ids) == 0 {
		return nil, contracts.ErrNoSeries
	}

	log := s.logger.WithField("strategy", entry.ID)
	log.WithFields(map[string]interface{}{
		"instruments": len(ids),
		"workers":     s.cfg.Workers,
	}).Info("Starting scan")

	// 1. Worker pool
	resultCh := make(chan outcome, len(ids))
	idCh := make(chan string, len(ids))

	var wg sync.WaitGroup
	for i := 0; i < s.cfg.Workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			s.worker(ctx, entry.Strategy, idCh, resultCh)
		}()
	}

	for _, id := range ids {
		idCh <- id
	}
	close(idCh)

	go func() {
		wg.Wait()
		close(resultCh)
	}()

	// 2. Collect
	report := &contracts.Report{
		RunID:        uuid.NewString(),
		Strategy:     entry.ID,
		StrategyName: entry.Name,
		GeneratedAt:  started,
		Hits:         make([]contracts.Hit, 0),
	}
	for o := range resultCh {
		if o.cancelled {
			continue
		}
		report.TotalScanned++
		if o.err != nil {
			report.Failed++
			s.metrics.ObserveFailure(entry.ID, o.reason)
			log.WithError(o.err).WithFields(map[string]interface{}{
				"code":   o.id,
				"reason": o.reason,
			}).Debug("Instrument excluded")
		} else if o.hit != nil {
			report.Hits = append(report.Hits, *o.hit)
		}

		if onProgress != nil {
			onProgress(Progress{
				Done:  report.TotalScanned,
				Total: len(ids),
				Hits:  len(report.Hits),
				Code:  o.id,
				Stage: o.stage,
			})
		}
	}

	if ctx.Err() != nil && report.TotalScanned < len(ids) {
		report.Partial = true
		log.WithFields(map[string]interface{}{
			"scanned": report.TotalScanned,
			"total":   len(ids),
		}).Warn("Scan cancelled, returning partial result")
	}

	contracts.SortHits(report.Hits)
	report.Duration = s.now().Sub(started)
	s.metrics.ObserveScan(report)

	log.WithFields(map[string]interface{}{
		"scanned":  report.TotalScanned,
		"hits":     len(report.Hits),
		"failed":   report.Failed,
		"duration": report.Duration.String(),
	}).Info("Scan completed")

	return report, nil
}

// worker classifies instruments until idCh drains or ctx is cancelled
func (s *Scanner) worker(ctx context.Context, c contracts.Classifier, idCh <-chan string, resultCh chan<- outcome) {
	for id := range idCh {
		select {
		case <-ctx.Done():
			return
		default:
		}
		resultCh <- s.process(ctx, c, id)
	}
}

// process never panics: classifier failures become outcomes
func (s *Scanner) process(ctx context.Context, c contracts.Classifier, id string) (o outcome) {
	o.id = id
	defer func() {
		if r := recover(); r != nil {
			o = outcome{id: id, reason: metrics.ReasonPanic, err: fmt.Errorf("classifier panic: %v", r)}
		}
	}()

	series, err := s.loader.Load(ctx, id)
	if err != nil {
		if ctx.Err() != nil {
			o.cancelled = true
		}
		o.err = err
		o.reason = reasonOf(err)
		return o
	}
	if series.Len() < s.cfg.MinBars {
		o.err = fmt.Errorf("%d bars, need %d", series.Len(), s.cfg.MinBars)
		o.reason = metrics.ReasonTooShort
		return o
	}

	o.stage = c.Classify(series.Clone())
	if o.stage.IsSignal() {
		hit := s.BuildHit(series, o.stage)
		o.hit = &hit
	}
	return o
}

// BuildHit annotates a classified series with price, change, name and concepts
func (s *Scanner) BuildHit(series *contracts.Series, stage contracts.Stage) contracts.Hit {
	last := series.Last()
	change := 0.0
	if n := series.Len(); n >= 2 {
		if prev := series.Bars[n-2].Close; prev != 0 {
			change = (last.Close - prev) / prev * 100
		}
	}

	hit := contracts.Hit{
		Code:      series.Code,
		FullCode:  series.FullCode,
		Price:     last.Close,
		ChangePct: change,
		Change:    contracts.FormatChange(change),
		Stage:     stage,
		Concepts:  concept.Unclassified,
	}
	if s.concepts != nil {
		hit.Concepts = s.concepts.Lookup(series.Code)
	}
	if s.names != nil {
		hit.Name = s.names.Name(series.Code)
	}
	return hit
}

func reasonOf(err error) string {
	switch {
	case errors.Is(err, contracts.ErrNotFound):
		return metrics.ReasonNotFound
	case errors.Is(err, contracts.ErrMalformedSeries):
		return metrics.ReasonMalformed
	default:
		return metrics.ReasonOther
	}
}

// Resolve maps a pure code ("600000") or a full code ("sh.600000") to the
// loader's instrument id
func (s *Scanner) Resolve(ctx context.Context, code string) (string, error) {
	code = strings.TrimSpace(code)
	ids, err := s.loader.List(ctx)
	if err != nil {
		return "", err
	}
	for _, id := range ids {
		if strings.EqualFold(id, code) {
			return id, nil
		}
	}
	for _, id := range ids {
		if pure, _ := contracts.SplitCode(id); pure == code {
			return id, nil
		}
	}
	return "", fmt.Errorf("%w: %s", contracts.ErrNotFound, code)
}
