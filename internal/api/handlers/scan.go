package handlers

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"

	"github.com/wonny/patternscan/internal/contracts"
	"github.com/wonny/patternscan/internal/scanner"
	"github.com/wonny/patternscan/internal/sink"
	"github.com/wonny/patternscan/internal/strategy"
	"github.com/wonny/patternscan/pkg/logger"
	"github.com/wonny/patternscan/pkg/redis"
)

const (
	defaultRunLimit = 20
	maxRunLimit     = 200
)

// ScanHandler serves strategy listing, scans and single-instrument analysis
// ⭐ SSOT: 스캔 API 핸들러는 이 구조체에서만
type ScanHandler struct {
	registry *strategy.Registry
	scanner  *scanner.Scanner
	cache    *sink.CacheSink
	limiter  *redis.RateLimiter
	runs     RunHistory
	logger   *logger.Logger
}

// RunHistory lists archived scan runs
type RunHistory interface {
	RecentRuns(ctx context.Context, strategy string, limit int) ([]sink.RunSummary, error)
}

// NewScanHandler creates a new scan handler. cache and limiter may be nil.
func NewScanHandler(
	registry *strategy.Registry,
	sc *scanner.Scanner,
	cache *sink.CacheSink,
	limiter *redis.RateLimiter,
	log *logger.Logger,
) *ScanHandler {
	return &ScanHandler{
		registry: registry,
		scanner:  sc,
		cache:    cache,
		limiter:  limiter,
		logger:   log.WithField("module", "scan_api"),
	}
}

// WithRunHistory enables /api/runs
func (h *ScanHandler) WithRunHistory(runs RunHistory) *ScanHandler {
	h.runs = runs
	return h
}

// StrategyInfo is one entry of the strategy list
type StrategyInfo struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
}

// ListStrategies returns the registered strategies
// GET /api/strategies
func (h *ScanHandler) ListStrategies(w http.ResponseWriter, r *http.Request) {
	entries := h.registry.List()
	out := make([]StrategyInfo, len(entries))
	for i, e := range entries {
		out[i] = StrategyInfo{ID: e.ID, Name: e.Name, Description: e.Description}
	}
	respondOK(w, out)
}

// Scan runs a strategy over the archive, serving the cached run unless
// refresh=1 is given
// GET /api/scan/{strategy}?refresh=1
func (h *ScanHandler) Scan(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	entry, err := h.registry.Get(mux.Vars(r)["strategy"])
	if err != nil {
		respondError(w, http.StatusNotFound, err.Error())
		return
	}

	refresh := r.URL.Query().Get("refresh") == "1"
	if refresh && h.limiter != nil {
		allowed, _, err := h.limiter.Allow(ctx, redis.ScanRefreshLimit.PerClient(clientID(r)))
		if err != nil {
			h.logger.WithError(err).Warn("Rate limiter unavailable")
		} else if !allowed {
			respondError(w, http.StatusTooManyRequests, "Too many refresh requests")
			return
		}
	}

	report, err := h.runScan(ctx, entry, refresh)
	if err != nil {
		h.logger.WithError(err).WithField("strategy", entry.ID).Error("Scan failed")
		respondError(w, http.StatusInternalServerError, err.Error())
		return
	}

	respondOK(w, sink.NewScanData(report))
}

func (h *ScanHandler) runScan(ctx context.Context, entry strategy.Entry, refresh bool) (*contracts.Report, error) {
	scan := func() (*contracts.Report, error) {
		return h.scanner.Run(ctx, entry, nil)
	}
	if h.cache == nil {
		return scan()
	}
	if !refresh {
		return h.cache.LatestOrScan(ctx, entry.ID, scan)
	}

	report, err := scan()
	if err != nil {
		return nil, err
	}
	if !report.Partial {
		if err := h.cache.Write(ctx, report); err != nil {
			h.logger.WithError(err).Warn("Failed to cache scan result")
		}
	}
	return report, nil
}

// Analyze explains the stage of one instrument
// GET /api/analyze/{code}?strategy=ma5
func (h *ScanHandler) Analyze(w http.ResponseWriter, r *http.Request) {
	id := r.URL.Query().Get("strategy")
	if id == "" {
		id = strategy.IDMA5Support
	}

	entry, err := h.registry.Get(id)
	if err != nil {
		respondError(w, http.StatusNotFound, err.Error())
		return
	}

	analysis, err := h.scanner.Analyze(r.Context(), entry, mux.Vars(r)["code"])
	switch {
	case errors.Is(err, contracts.ErrNotFound):
		respondError(w, http.StatusNotFound, err.Error())
		return
	case err != nil:
		h.logger.WithError(err).Error("Analyze failed")
		respondError(w, http.StatusInternalServerError, err.Error())
		return
	}

	respondOK(w, analysis)
}

// Runs lists the archived runs of a strategy, newest first
// GET /api/runs/{strategy}?limit=20
func (h *ScanHandler) Runs(w http.ResponseWriter, r *http.Request) {
	if h.runs == nil {
		respondError(w, http.StatusServiceUnavailable, "Run history requires a database")
		return
	}

	entry, err := h.registry.Get(mux.Vars(r)["strategy"])
	if err != nil {
		respondError(w, http.StatusNotFound, err.Error())
		return
	}

	limit := defaultRunLimit
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 || n > maxRunLimit {
			respondError(w, http.StatusBadRequest, fmt.Sprintf("limit must be 1-%d", maxRunLimit))
			return
		}
		limit = n
	}

	runs, err := h.runs.RecentRuns(r.Context(), entry.ID, limit)
	if err != nil {
		h.logger.WithError(err).WithField("strategy", entry.ID).Error("Run history failed")
		respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if runs == nil {
		runs = []sink.RunSummary{}
	}
	respondOK(w, runs)
}
