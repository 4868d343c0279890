package api

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"github.com/wonny/patternscan/internal/api/handlers"
	"github.com/wonny/patternscan/pkg/logger"
)

// NewRouter creates and configures the HTTP router.
// metrics may be nil to leave /metrics unmounted.
// ⭐ SSOT: 라우팅 설정은 이 함수에서만
func NewRouter(scanHandler *handlers.ScanHandler, healthHandler *handlers.HealthHandler, metrics http.Handler, log *logger.Logger) http.Handler {
	r := mux.NewRouter()

	// Health check
	r.HandleFunc("/health", healthHandler.Health).Methods("GET")
	if metrics != nil {
		r.Handle("/metrics", metrics).Methods("GET")
	}

	// API
	api := r.PathPrefix("/api").Subrouter()
	api.HandleFunc("/health", healthHandler.Health).Methods("GET")
	api.HandleFunc("/strategies", scanHandler.ListStrategies).Methods("GET")
	api.HandleFunc("/scan/{strategy}", scanHandler.Scan).Methods("GET")
	api.HandleFunc("/analyze/{code}", scanHandler.Analyze).Methods("GET")
	api.HandleFunc("/runs/{strategy}", scanHandler.Runs).Methods("GET")

	// Streaming
	r.HandleFunc("/ws/scan/{strategy}", scanHandler.StreamScan).Methods("GET")

	r.NotFoundHandler = http.HandlerFunc(notFoundHandler)

	// Apply middleware
	r.Use(loggingMiddleware(log))
	r.Use(recoveryMiddleware(log))

	return r
}

func notFoundHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusNotFound)
	json.NewEncoder(w).Encode(map[string]interface{}{
		"success": false,
		"error":   "Not found",
	})
}

// statusRecorder captures the status code for logging
type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (s *statusRecorder) WriteHeader(code int) {
	s.status = code
	s.ResponseWriter.WriteHeader(code)
}

// Unwrap lets http.ResponseController and the websocket upgrader reach
// the underlying writer
func (s *statusRecorder) Unwrap() http.ResponseWriter {
	return s.ResponseWriter
}

// loggingMiddleware logs HTTP requests
func loggingMiddleware(log *logger.Logger) mux.MiddlewareFunc {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()

			// Websocket upgrades need the raw writer
			if r.Header.Get("Upgrade") != "" {
				next.ServeHTTP(w, r)
				log.WithFields(map[string]interface{}{
					"path":     r.URL.Path,
					"duration": time.Since(start),
				}).Debug("Websocket closed")
				return
			}

			rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
			next.ServeHTTP(rec, r)

			log.WithFields(map[string]interface{}{
				"method":   r.Method,
				"path":     r.URL.Path,
				"status":   rec.status,
				"duration": time.Since(start),
			}).Debug("HTTP request")
		})
	}
}

// recoveryMiddleware recovers from panics
func recoveryMiddleware(log *logger.Logger) mux.MiddlewareFunc {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				if err := recover(); err != nil {
					log.WithFields(map[string]interface{}{
						"error": err,
						"path":  r.URL.Path,
					}).Error("Panic recovered")

					w.Header().Set("Content-Type", "application/json")
					w.WriteHeader(http.StatusInternalServerError)
					json.NewEncoder(w).Encode(map[string]interface{}{
						"success": false,
						"error":   "Internal server error",
					})
				}
			}()

			next.ServeHTTP(w, r)
		})
	}
}
