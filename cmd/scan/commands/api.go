package commands

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"

	"github.com/wonny/patternscan/internal/api"
	"github.com/wonny/patternscan/internal/api/handlers"
	"github.com/wonny/patternscan/internal/contracts"
	"github.com/wonny/patternscan/internal/source/memstore"
)

// apiCmd represents the api command
var apiCmd = &cobra.Command{
	Use:   "api",
	Short: "API 서버 시작",
	Long: `REST API 서버를 시작합니다.

Endpoints:
  GET  /health                  - Health check
  GET  /metrics                 - Prometheus metrics
  GET  /api/strategies          - 전략 목록
  GET  /api/scan/{strategy}     - 스캔 결과 (?refresh=1 강제 재스캔)
  GET  /api/analyze/{code}      - 단일 종목 진단 (?strategy=ma5)
  GET  /ws/scan/{strategy}      - 진행률 스트리밍 (WebSocket)

Example:
  go run ./cmd/scan api
  go run ./cmd/scan api --port 8080 --preload`,
	RunE: runAPIServer,
}

var (
	apiPort    string
	apiPreload bool
)

func init() {
	rootCmd.AddCommand(apiCmd)

	// Flags
	apiCmd.Flags().StringVar(&apiPort, "port", "", "API 서버 포트 (기본: PORT)")
	apiCmd.Flags().BoolVar(&apiPreload, "preload", false, "시작 시 아카이브를 메모리에 적재")
}

func runAPIServer(cmd *cobra.Command, args []string) error {
	fmt.Println("=== patternscan API Server ===")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// 1. Core dependencies
	a, err := newApp(ctx)
	if err != nil {
		return err
	}
	defer a.close()

	if apiPort != "" {
		a.cfg.Port = apiPort
	}

	// 2. Optional in-memory archive
	sc := a.scanner
	var loader contracts.SeriesLoader = a.store
	if apiPreload {
		mem, skipped, err := memstore.Preload(ctx, a.store, a.log)
		if err != nil {
			return fmt.Errorf("preload archive: %w", err)
		}
		a.log.WithFields(map[string]interface{}{
			"instruments": mem.Len(),
			"skipped":     skipped,
		}).Info("Archive preloaded")
		loader = mem
		sc = a.scanner.WithLoader(mem)
	}

	// 3. Redis cache / rate limit, PostgreSQL history and pool health
	stores, err := a.openStores(ctx)
	if err != nil {
		return err
	}
	defer stores.close()

	var pinger handlers.Pinger
	if stores.redis.Enabled() {
		pinger = stores.redis
	}

	// 4. Handlers and router
	scanHandler := handlers.NewScanHandler(a.registry, sc, stores.cache, stores.limiter, a.log)
	healthHandler := handlers.NewHealthHandler(loader, a.cfg.DataFormat, pinger, a.log)
	if stores.db != nil {
		scanHandler.WithRunHistory(stores.postgres)
		healthHandler.WithDatabase(stores.db)
	}

	metricsHandler := promhttp.HandlerFor(a.promReg, promhttp.HandlerOpts{})
	if !a.cfg.MetricsEnabled {
		metricsHandler = nil
	}
	router := api.NewRouter(scanHandler, healthHandler, metricsHandler, a.log)

	// 5. Serve until interrupted
	server := api.New(a.cfg, a.log, router)
	fmt.Printf("\n✅ Server running on http://localhost:%s\n", a.cfg.Port)
	fmt.Println("\nPress Ctrl+C to stop")

	if err := server.Run(ctx); err != nil {
		return err
	}
	a.log.Info("Server stopped")
	return nil
}
