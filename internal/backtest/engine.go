// Package backtest replays a strategy over history and measures what
// happened after each signal.
package backtest

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/wonny/patternscan/internal/contracts"
	"github.com/wonny/patternscan/internal/strategy"
	"github.com/wonny/patternscan/pkg/logger"
)

// Engine runs walk-forward backtests
// ⭐ SSOT: 백테스팅 실행은 여기서만
type Engine struct {
	loader contracts.SeriesLoader
	logger *logger.Logger
}

// Config holds backtest configuration
type Config struct {
	From            time.Time // first check date, inclusive
	To              time.Time // last check date, inclusive
	CheckDays       []int     // days of month on which the strategy runs
	Horizons        []int     // forward windows in bars
	TargetStage     contracts.Stage
	TargetReturnPct float64 // success when the best high reaches this gain
	Workers         int
}

// DefaultConfig checks on the 1st, 5th, ... 25th of each month and scores
// Breakout-Critical signals over 10 and 20 bars against a 5% target
func DefaultConfig(year int) Config {
	return Config{
		From:            time.Date(year, 1, 1, 0, 0, 0, 0, time.UTC),
		To:              time.Date(year, 12, 31, 0, 0, 0, 0, time.UTC),
		CheckDays:       []int{1, 5, 10, 15, 20, 25},
		Horizons:        []int{10, 20},
		TargetStage:     contracts.StageBreakoutCritical,
		TargetReturnPct: 5.0,
		Workers:         8,
	}
}

// Signal is one target-stage classification on a check date
type Signal struct {
	Code     string    `json:"code"`
	FullCode string    `json:"full_code"`
	Date     time.Time `json:"date"`
	Close    float64   `json:"close"`
	Outcomes []Outcome `json:"outcomes"` // one per horizon, in Config order
}

// Result holds backtest results
type Result struct {
	Strategy    string          `json:"strategy"`
	Config      Config          `json:"-"`
	Instruments int             `json:"instruments"`
	Skipped     int             `json:"skipped"`
	Signals     []Signal        `json:"signals"`
	Horizons    []HorizonStats  `json:"horizons"`
	Duration    time.Duration   `json:"duration"`
	TargetStage contracts.Stage `json:"target_stage"`
}

// NewEngine creates a new backtest engine
func NewEngine(loader contracts.SeriesLoader, log *logger.Logger) *Engine {
	return &Engine{
		loader: loader,
		logger: log.WithField("module", "backtest"),
	}
}

// Run classifies every instrument on each check date and scores the
// target-stage signals. Unreadable instruments are skipped.
func (e *Engine) Run(ctx context.Context, entry strategy.Entry, cfg Config) (*Result, error) {
	if len(cfg.Horizons) == 0 {
		return nil, errors.New("at least one horizon is required")
	}
	if cfg.To.Before(cfg.From) {
		return nil, fmt.Errorf("invalid range %s..%s", cfg.From.Format("2006-01-02"), cfg.To.Format("2006-01-02"))
	}
	if cfg.Workers <= 0 {
		cfg.Workers = 1
	}

	ids, err := e.loader.List(ctx)
	if err != nil {
		return nil, err
	}

	e.logger.WithFields(map[string]interface{}{
		"strategy":     entry.ID,
		"instruments":  len(ids),
		"from":         cfg.From.Format("2006-01-02"),
		"to":           cfg.To.Format("2006-01-02"),
		"target_stage": cfg.TargetStage.String(),
	}).Info("Starting backtest")

	startTime := time.Now()
	result := &Result{
		Strategy:    entry.ID,
		Config:      cfg,
		Instruments: len(ids),
		Signals:     make([]Signal, 0),
		TargetStage: cfg.TargetStage,
	}

	var mu sync.Mutex
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(cfg.Workers)

	for _, id := range ids {
		id := id
		g.Go(func() error {
			series, err := e.loader.Load(gctx, id)
			if err != nil {
				if gctx.Err() != nil {
					return gctx.Err()
				}
				e.logger.WithError(err).WithField("code", id).Debug("Skipped instrument")
				mu.Lock()
				result.Skipped++
				mu.Unlock()
				return nil
			}

			signals := walk(series, entry.Strategy, cfg)

			mu.Lock()
			result.Signals = append(result.Signals, signals...)
			mu.Unlock()
			return gctx.Err()
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	sort.Slice(result.Signals, func(i, j int) bool {
		a, b := result.Signals[i], result.Signals[j]
		if !a.Date.Equal(b.Date) {
			return a.Date.Before(b.Date)
		}
		return a.FullCode < b.FullCode
	})

	result.Horizons = Summarize(result.Signals, cfg.Horizons)
	result.Duration = time.Since(startTime)

	e.logger.WithFields(map[string]interface{}{
		"signals":  len(result.Signals),
		"skipped":  result.Skipped,
		"duration": result.Duration.String(),
	}).Info("Backtest completed")

	return result, nil
}

// walk classifies each check-date prefix of series
func walk(series *contracts.Series, c contracts.Classifier, cfg Config) []Signal {
	var signals []Signal
	bars := series.Bars

	for i, b := range bars {
		if b.Date.Before(cfg.From) || b.Date.After(cfg.To) || !isCheckDay(b.Date, cfg.CheckDays) {
			continue
		}
		if i+1 < strategy.MinBars {
			continue
		}

		prefix := &contracts.Series{Code: series.Code, FullCode: series.FullCode, Bars: bars[: i+1 : i+1]}
		if c.Classify(prefix) != cfg.TargetStage {
			continue
		}

		sig := Signal{
			Code:     series.Code,
			FullCode: series.FullCode,
			Date:     b.Date,
			Close:    b.Close,
			Outcomes: make([]Outcome, len(cfg.Horizons)),
		}
		for k, days := range cfg.Horizons {
			sig.Outcomes[k] = ForwardReturn(bars, i, days, cfg.TargetReturnPct)
		}
		signals = append(signals, sig)
	}
	return signals
}

func isCheckDay(d time.Time, days []int) bool {
	if len(days) == 0 {
		return true
	}
	for _, day := range days {
		if d.Day() == day {
			return true
		}
	}
	return false
}
