package daemon

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	prom "github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"git.home.luguber.info/inful/tripdeck/internal/config"
	"git.home.luguber.info/inful/tripdeck/internal/logfields"
	"git.home.luguber.info/inful/tripdeck/internal/store"
)

// HTTPServer exposes the daemon's observability surface: health, metrics,
// and a read-only view of the current state. Mutations go through the Go API,
// never HTTP; the store stays the single local writer.
type HTTPServer struct {
	cfg      config.MetricsConfig
	store    *store.Store
	registry *prom.Registry
	server   *http.Server
}

// NewHTTPServer creates the HTTP surface. registry may be nil (no /metrics).
func NewHTTPServer(cfg config.MetricsConfig, st *store.Store, registry *prom.Registry) *HTTPServer {
	s := &HTTPServer{cfg: cfg, store: st, registry: registry}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /healthz", s.handleHealth)
	mux.HandleFunc("GET /state", s.handleState)
	if registry != nil {
		mux.Handle("GET /metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{}))
	}

	s.server = &http.Server{
		Addr:              cfg.Listen,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}
	return s
}

// Run serves until ctx is canceled.
func (s *HTTPServer) Run(ctx context.Context) {
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = s.server.Shutdown(shutdownCtx)
	}()

	slog.Info("HTTP server listening", slog.String("addr", s.cfg.Listen))
	if err := s.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		slog.Error("HTTP server failed", logfields.Error(err))
	}
}

func (s *HTTPServer) handleHealth(w http.ResponseWriter, r *http.Request) {
	status := "ok"
	code := http.StatusOK
	if !s.store.IsHydrated() {
		status = "hydrating"
		code = http.StatusServiceUnavailable
	}
	writeJSON(w, code, map[string]string{"status": status})
}

func (s *HTTPServer) handleState(w http.ResponseWriter, r *http.Request) {
	if !s.store.IsHydrated() {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"error": "store not hydrated yet"})
		return
	}
	writeJSON(w, http.StatusOK, s.store.State())
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Warn("Failed to encode HTTP response", logfields.Error(err))
	}
}
