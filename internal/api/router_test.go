package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wonny/patternscan/internal/api/handlers"
	"github.com/wonny/patternscan/internal/concept"
	"github.com/wonny/patternscan/internal/contracts"
	"github.com/wonny/patternscan/internal/metrics"
	"github.com/wonny/patternscan/internal/scanner"
	"github.com/wonny/patternscan/internal/sink"
	"github.com/wonny/patternscan/internal/source/memstore"
	"github.com/wonny/patternscan/internal/strategy"
	"github.com/wonny/patternscan/internal/strategyconfig"
	"github.com/wonny/patternscan/pkg/database"
	"github.com/wonny/patternscan/pkg/logger"
)

func flatSeries(t *testing.T, code string, n int) *contracts.Series {
	t.Helper()
	start := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	bars := make([]contracts.Bar, n)
	for i := range bars {
		bars[i] = contracts.Bar{Date: start.AddDate(0, 0, i), Open: 10, High: 10.2, Low: 9.8, Close: 10, Volume: 1000}
	}
	s, err := contracts.NewSeries(code, bars)
	require.NoError(t, err)
	return s
}

func newTestRouter(t *testing.T, store *memstore.Store) http.Handler {
	t.Helper()
	return newTestRouterWith(t, store, nil)
}

func newTestRouterWith(t *testing.T, store *memstore.Store, configure func(*handlers.ScanHandler, *handlers.HealthHandler)) http.Handler {
	t.Helper()
	log := logger.Nop()
	reg := prometheus.NewRegistry()

	sc := scanner.New(store, concept.NewMap("", nil), concept.Names{}, scanner.Config{Workers: 4}, log).
		WithMetrics(metrics.New(reg))
	registry := strategy.NewRegistry(strategyconfig.Default())

	scanHandler := handlers.NewScanHandler(registry, sc, nil, nil, log)
	healthHandler := handlers.NewHealthHandler(store, "csv", nil, log)
	if configure != nil {
		configure(scanHandler, healthHandler)
	}

	return NewRouter(
		scanHandler,
		healthHandler,
		promhttp.HandlerFor(reg, promhttp.HandlerOpts{}),
		log,
	)
}

func defaultStore(t *testing.T) *memstore.Store {
	return memstore.New(logger.Nop(),
		flatSeries(t, "sh.600000", 70),
		flatSeries(t, "sz.000001", 70),
		flatSeries(t, "sz.000002", 3),
	)
}

func get(t *testing.T, h http.Handler, path string) (*httptest.ResponseRecorder, map[string]interface{}) {
	t.Helper()
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))

	var body map[string]interface{}
	if strings.HasPrefix(rec.Header().Get("Content-Type"), "application/json") {
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	}
	return rec, body
}

func TestHealth(t *testing.T) {
	h := newTestRouter(t, defaultStore(t))

	rec, body := get(t, h, "/health")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ok", body["status"])
	assert.Equal(t, 3.0, body["stockCount"])

	rec, body = get(t, newTestRouter(t, memstore.New(logger.Nop())), "/api/health")
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Equal(t, "degraded", body["status"])
}

type stubDatabase struct {
	err error
}

func (s stubDatabase) HealthCheck(ctx context.Context) (*database.HealthStatus, error) {
	st := &database.HealthStatus{Healthy: s.err == nil, Stats: database.PoolStats{MaxConns: 25, TotalConns: 2}}
	if s.err != nil {
		st.Error = s.err.Error()
	}
	return st, s.err
}

func TestHealth_Database(t *testing.T) {
	withDB := func(err error) http.Handler {
		return newTestRouterWith(t, defaultStore(t), func(_ *handlers.ScanHandler, hh *handlers.HealthHandler) {
			hh.WithDatabase(stubDatabase{err: err})
		})
	}

	rec, body := get(t, withDB(nil), "/health")
	assert.Equal(t, http.StatusOK, rec.Code)
	db := body["database"].(map[string]interface{})
	assert.Equal(t, true, db["healthy"])
	assert.Equal(t, 25.0, db["stats"].(map[string]interface{})["max_conns"])

	rec, body = get(t, withDB(errors.New("connection refused")), "/health")
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Equal(t, "degraded", body["status"])
	assert.Equal(t, "connection refused", body["database"].(map[string]interface{})["error"])

	_, body = get(t, newTestRouter(t, defaultStore(t)), "/health")
	assert.NotContains(t, body, "database")
}

type stubRuns struct {
	gotStrategy string
	gotLimit    int
}

func (s *stubRuns) RecentRuns(ctx context.Context, strategy string, limit int) ([]sink.RunSummary, error) {
	s.gotStrategy, s.gotLimit = strategy, limit
	return []sink.RunSummary{
		{RunID: "r2", Strategy: strategy, GeneratedAt: time.Date(2025, 6, 11, 15, 30, 0, 0, time.UTC), TotalScanned: 5100, Hits: 4},
		{RunID: "r1", Strategy: strategy, GeneratedAt: time.Date(2025, 6, 10, 15, 30, 0, 0, time.UTC), TotalScanned: 5098, Hits: 2},
	}, nil
}

func TestRuns(t *testing.T) {
	runs := &stubRuns{}
	h := newTestRouterWith(t, defaultStore(t), func(sh *handlers.ScanHandler, _ *handlers.HealthHandler) {
		sh.WithRunHistory(runs)
	})

	rec, body := get(t, h, "/api/runs/ma5?limit=5")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ma5", runs.gotStrategy)
	assert.Equal(t, 5, runs.gotLimit)

	data := body["data"].([]interface{})
	require.Len(t, data, 2)
	assert.Equal(t, "r2", data[0].(map[string]interface{})["run_id"])

	get(t, h, "/api/runs/ma5")
	assert.Equal(t, 20, runs.gotLimit)

	rec, _ = get(t, h, "/api/runs/ma5?limit=0")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	rec, _ = get(t, h, "/api/runs/turtle")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestRuns_WithoutDatabase(t *testing.T) {
	rec, body := get(t, newTestRouter(t, defaultStore(t)), "/api/runs/ma5")
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Equal(t, false, body["success"])
}

func TestListStrategies(t *testing.T) {
	rec, body := get(t, newTestRouter(t, defaultStore(t)), "/api/strategies")
	require.Equal(t, http.StatusOK, rec.Code)

	data := body["data"].([]interface{})
	require.Len(t, data, 3)
	assert.Equal(t, "ma5", data[0].(map[string]interface{})["id"])
	assert.Equal(t, "breakout_pullback", data[2].(map[string]interface{})["id"])
}

func TestScan(t *testing.T) {
	h := newTestRouter(t, defaultStore(t))

	rec, body := get(t, h, "/api/scan/volume_breakout")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, true, body["success"])

	data := body["data"].(map[string]interface{})
	assert.Equal(t, "volume_breakout", data["strategyName"])
	assert.Equal(t, "Volume Breakout", data["strategyDisplayName"])
	assert.Equal(t, 3.0, data["totalScanned"])
	assert.Equal(t, 0.0, data["totalHit"])
	assert.Equal(t, []interface{}{}, data["results"])
}

func TestScan_UnknownStrategy(t *testing.T) {
	rec, body := get(t, newTestRouter(t, defaultStore(t)), "/api/scan/turtle")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, false, body["success"])
	assert.Contains(t, body["error"], "turtle")
}

func TestScan_EmptyArchive(t *testing.T) {
	rec, body := get(t, newTestRouter(t, memstore.New(logger.Nop())), "/api/scan/ma5?refresh=1")
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Equal(t, false, body["success"])
}

func TestAnalyze(t *testing.T) {
	h := newTestRouter(t, defaultStore(t))

	rec, body := get(t, h, "/api/analyze/600000?strategy=ma5")
	require.Equal(t, http.StatusOK, rec.Code)

	data := body["data"].(map[string]interface{})
	assert.Equal(t, 70.0, data["bars"])
	eval := data["evaluation"].(map[string]interface{})
	assert.Equal(t, "None", eval["stage"])

	checks := eval["checks"].([]interface{})
	require.NotEmpty(t, checks)
	first := checks[0].(map[string]interface{})
	assert.Equal(t, "min_bars", first["name"])
	assert.Equal(t, true, first["passed"])

	rec, _ = get(t, h, "/api/analyze/300750")
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec, _ = get(t, h, "/api/analyze/600000?strategy=turtle")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestMetricsEndpoint(t *testing.T) {
	h := newTestRouter(t, defaultStore(t))
	get(t, h, "/api/scan/ma5")

	rec, _ := get(t, h, "/metrics")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `patternscan_scans_total{outcome="complete",strategy="ma5"} 1`)
}

func TestNotFound(t *testing.T) {
	rec, body := get(t, newTestRouter(t, defaultStore(t)), "/nope")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, false, body["success"])
}

func TestRecoveryMiddleware(t *testing.T) {
	r := mux.NewRouter()
	r.HandleFunc("/boom", func(w http.ResponseWriter, r *http.Request) { panic("boom") })
	r.Use(recoveryMiddleware(logger.Nop()))

	rec, body := get(t, r, "/boom")
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Equal(t, "Internal server error", body["error"])
}

func TestStreamScan(t *testing.T) {
	server := httptest.NewServer(newTestRouter(t, defaultStore(t)))
	defer server.Close()

	url := "ws" + strings.TrimPrefix(server.URL, "http") + "/ws/scan/breakout_pullback"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	defer conn.Close()

	conn.SetReadDeadline(time.Now().Add(5 * time.Second))

	var progress []handlers.StreamMessage
	var result handlers.StreamMessage
	for {
		var msg handlers.StreamMessage
		require.NoError(t, conn.ReadJSON(&msg))
		if msg.Type == "progress" {
			progress = append(progress, msg)
			continue
		}
		result = msg
		break
	}

	require.Len(t, progress, 3)
	assert.Equal(t, 3, progress[2].Progress.Done)
	assert.Equal(t, "result", result.Type)
	require.NotNil(t, result.Data)
	assert.Equal(t, 3, result.Data.TotalScanned)
}

func TestStreamScan_UnknownStrategy(t *testing.T) {
	rec, _ := get(t, newTestRouter(t, defaultStore(t)), "/ws/scan/turtle")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestServerRun_StopsOnCancel(t *testing.T) {
	srv := New(testServerConfig(), logger.Nop(), http.NotFoundHandler())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- srv.Run(ctx) }()

	time.Sleep(50 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("server did not stop")
	}
}
