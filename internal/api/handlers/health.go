package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/wonny/patternscan/internal/contracts"
	"github.com/wonny/patternscan/pkg/database"
	"github.com/wonny/patternscan/pkg/logger"
)

// Pinger is a dependency that can report its reachability
type Pinger interface {
	Ping(ctx context.Context) error
}

// DatabaseChecker reports connection pool health
type DatabaseChecker interface {
	HealthCheck(ctx context.Context) (*database.HealthStatus, error)
}

// HealthHandler reports data source and cache reachability
type HealthHandler struct {
	loader     contracts.SeriesLoader
	dataFormat string
	cache      Pinger
	db         DatabaseChecker
	logger     *logger.Logger
}

// NewHealthHandler creates a health handler; cache may be nil
func NewHealthHandler(loader contracts.SeriesLoader, dataFormat string, cache Pinger, log *logger.Logger) *HealthHandler {
	return &HealthHandler{loader: loader, dataFormat: dataFormat, cache: cache, logger: log}
}

// WithDatabase adds the PostgreSQL pool to the report
func (h *HealthHandler) WithDatabase(db DatabaseChecker) *HealthHandler {
	h.db = db
	return h
}

// HealthResponse is the body of /health
type HealthResponse struct {
	Success     bool                   `json:"success"`
	Status      string                 `json:"status"`
	Service     string                 `json:"service"`
	DataFormat  string                 `json:"dataFormat"`
	DataSource  bool                   `json:"dataSource"`
	StockCount  int                    `json:"stockCount"`
	CacheStatus string                 `json:"cacheStatus,omitempty"`
	Database    *database.HealthStatus `json:"database,omitempty"`
}

// Health checks the archive, the cache and the database
// GET /health
func (h *HealthHandler) Health(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	resp := HealthResponse{
		Success:    true,
		Status:     "ok",
		Service:    "patternscan-api",
		DataFormat: h.dataFormat,
	}

	ids, err := h.loader.List(ctx)
	if err != nil {
		h.logger.WithError(err).Warn("Health check: data source unavailable")
		resp.Status = "degraded"
	} else {
		resp.DataSource = true
		resp.StockCount = len(ids)
	}

	if h.cache != nil {
		resp.CacheStatus = "ok"
		if err := h.cache.Ping(ctx); err != nil {
			resp.CacheStatus = "unreachable"
			resp.Status = "degraded"
		}
	}

	if h.db != nil {
		dbStatus, err := h.db.HealthCheck(ctx)
		if err != nil {
			h.logger.WithError(err).Warn("Health check: database unreachable")
			resp.Status = "degraded"
		}
		resp.Database = dbStatus
	}

	status := http.StatusOK
	if resp.Status != "ok" {
		status = http.StatusServiceUnavailable
	}
	respondJSON(w, status, resp)
}
