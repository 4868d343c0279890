// Package jobs holds the scheduled jobs run by the scheduler.
package jobs

import (
	"context"
	"errors"
	"fmt"

	"github.com/wonny/patternscan/internal/concept"
	"github.com/wonny/patternscan/internal/contracts"
	"github.com/wonny/patternscan/internal/scanner"
	"github.com/wonny/patternscan/internal/strategy"
	"github.com/wonny/patternscan/pkg/logger"
)

// DailyScanJob runs every configured strategy after the close
// ⭐ SSOT: 일일 스캔 스케줄은 이 Job에서만
type DailyScanJob struct {
	registry    *strategy.Registry
	scanner     *scanner.Scanner
	strategies  []string
	sink        contracts.ResultSink
	schedule    string
	conceptPath string
	namePath    string
	logger      *logger.Logger
}

// DailyScanConfig holds the inputs of the daily scan
type DailyScanConfig struct {
	Strategies  []string // empty means every registered strategy
	Schedule    string
	ConceptPath string
	NamePath    string
}

// NewDailyScanJob creates a new daily scan job
func NewDailyScanJob(reg *strategy.Registry, sc *scanner.Scanner, sink contracts.ResultSink, cfg DailyScanConfig, log *logger.Logger) *DailyScanJob {
	ids := cfg.Strategies
	if len(ids) == 0 {
		ids = reg.IDs()
	}
	return &DailyScanJob{
		registry:    reg,
		scanner:     sc,
		strategies:  ids,
		sink:        sink,
		schedule:    cfg.Schedule,
		conceptPath: cfg.ConceptPath,
		namePath:    cfg.NamePath,
		logger:      log.WithField("job", "daily_scan"),
	}
}

// Name returns the job name
func (j *DailyScanJob) Name() string {
	return "daily_scan"
}

// Schedule returns the cron schedule
func (j *DailyScanJob) Schedule() string {
	return j.schedule
}

// Run scans each strategy and hands the reports to the sink.
// Concept and name caches are reloaded so a fresh sync is picked up.
func (j *DailyScanJob) Run(ctx context.Context) error {
	j.logger.WithField("strategies", j.strategies).Info("Starting scheduled scan")

	concepts := concept.LoadMapOrEmpty(j.conceptPath, j.logger)
	names, err := concept.LoadNames(j.namePath)
	if err != nil {
		j.logger.WithError(err).Warn("Name cache unavailable, scanning without names")
		names = concept.Names{}
	}
	sc := j.scanner.WithLookups(concepts, names)

	var errs []error
	for _, id := range j.strategies {
		entry, err := j.registry.Get(id)
		if err != nil {
			errs = append(errs, err)
			continue
		}

		report, err := sc.Run(ctx, entry, nil)
		if err != nil {
			errs = append(errs, fmt.Errorf("scan %s: %w", id, err))
			continue
		}
		// 중단된 스캔은 기존 리포트를 덮어쓰지 않음
		if report.Partial {
			errs = append(errs, fmt.Errorf("scan %s interrupted after %d instruments, not written: %w",
				id, report.TotalScanned, context.Cause(ctx)))
			break
		}
		if err := j.sink.Write(ctx, report); err != nil {
			errs = append(errs, fmt.Errorf("write %s: %w", id, err))
			continue
		}

		j.logger.WithFields(map[string]interface{}{
			"strategy": id,
			"scanned":  report.TotalScanned,
			"hits":     len(report.Hits),
		}).Info("Scheduled scan written")
	}

	return errors.Join(errs...)
}
