package commands

import (
	"context"
	"fmt"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/wonny/patternscan/internal/concept"
	"github.com/wonny/patternscan/internal/metrics"
	"github.com/wonny/patternscan/internal/scanner"
	"github.com/wonny/patternscan/internal/source"
	"github.com/wonny/patternscan/internal/strategy"
	"github.com/wonny/patternscan/internal/strategyconfig"
	"github.com/wonny/patternscan/pkg/config"
	"github.com/wonny/patternscan/pkg/logger"
)

// app holds the dependencies shared by scan, analyze, api and scheduler
type app struct {
	cfg      *config.Config
	log      *logger.Logger
	store    source.Store
	registry *strategy.Registry
	scanner  *scanner.Scanner
	metrics  *metrics.Metrics
	promReg  *prometheus.Registry
	close    func()
}

// loadConfig reads config and applies the global flag overrides
func loadConfig() (*config.Config, *logger.Logger, error) {
	cfg, err := config.LoadFile(configFile)
	if err != nil {
		return nil, nil, fmt.Errorf("load config: %w", err)
	}
	if dataDir != "" {
		cfg.DataDir = dataDir
	}
	if dataFormat != "" {
		cfg.DataFormat = dataFormat
	}
	if verbose {
		cfg.LogLevel = "debug"
	}
	return cfg, logger.New(cfg), nil
}

// newApp wires the archive, classifiers and scanner
func newApp(ctx context.Context) (*app, error) {
	// 1. Load config
	cfg, log, err := loadConfig()
	if err != nil {
		return nil, err
	}

	// 2. Classifier thresholds
	stratCfg, err := strategyconfig.LoadOrDefault(cfg.StrategyConfig)
	if err != nil {
		return nil, fmt.Errorf("load strategy config: %w", err)
	}
	if hash, err := strategyconfig.Hash(stratCfg); err == nil {
		log.WithField("config_hash", hash[:12]).Debug("Strategy config loaded")
	}

	// 3. Bar archive
	store, closeStore, err := source.New(ctx, cfg, log)
	if err != nil {
		return nil, fmt.Errorf("open archive: %w", err)
	}

	// 4. Concept and name caches
	concepts := concept.LoadMapOrEmpty(cfg.ConceptCache, log)
	names, err := concept.LoadNames(cfg.NameCache)
	if err != nil {
		log.WithError(err).Warn("Name cache unusable, continuing without names")
		names = concept.Names{}
	}

	// 5. Scanner
	promReg := prometheus.NewRegistry()
	m := metrics.New(promReg)
	sc := scanner.New(store, concepts, names, scanner.Config{
		Workers: cfg.Scan.Workers,
		MinBars: cfg.Scan.MinBars,
	}, log).WithMetrics(m)

	return &app{
		cfg:      cfg,
		log:      log,
		store:    store,
		registry: strategy.NewRegistry(stratCfg),
		scanner:  sc,
		metrics:  m,
		promReg:  promReg,
		close:    closeStore,
	}, nil
}
