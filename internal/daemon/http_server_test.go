package daemon

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	prom "github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/require"

	"git.home.luguber.info/inful/tripdeck/internal/config"
	"git.home.luguber.info/inful/tripdeck/internal/metrics"
	"git.home.luguber.info/inful/tripdeck/internal/storage"
	"git.home.luguber.info/inful/tripdeck/internal/store"
	"git.home.luguber.info/inful/tripdeck/internal/timer"
)

func serveRequest(s *HTTPServer, method, path string) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	s.server.Handler.ServeHTTP(rec, httptest.NewRequest(method, path, nil))
	return rec
}

func TestHTTPServer_Healthz_ReportsHydrationState(t *testing.T) {
	st := store.New(store.Options{KV: storage.NewMemKV()})
	s := NewHTTPServer(config.MetricsConfig{}, st, nil)

	rec := serveRequest(s, http.MethodGet, "/healthz")
	require.Equal(t, http.StatusServiceUnavailable, rec.Code)

	require.NoError(t, st.Hydrate(context.Background()))

	rec = serveRequest(s, http.MethodGet, "/healthz")
	require.Equal(t, http.StatusOK, rec.Code)

	var body map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.Equal(t, "ok", body["status"])
}

func TestHTTPServer_State_ReturnsCurrentSnapshot(t *testing.T) {
	st := store.New(store.Options{KV: storage.NewMemKV()})
	s := NewHTTPServer(config.MetricsConfig{}, st, nil)

	rec := serveRequest(s, http.MethodGet, "/state")
	require.Equal(t, http.StatusServiceUnavailable, rec.Code, "pre-hydration state must not be served")

	require.NoError(t, st.Hydrate(context.Background()))
	created, err := st.AddTimer(timer.Input{Destination: "Lisbon", Adults: 1, Duration: 3})
	require.NoError(t, err)
	st.Wait()

	rec = serveRequest(s, http.MethodGet, "/state")
	require.Equal(t, http.StatusOK, rec.Code)

	var snap timer.Snapshot
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &snap))
	require.Len(t, snap.Timers, 1)
	require.Equal(t, created.ID, snap.Timers[0].ID)
}

func TestHTTPServer_Metrics_ServedWhenRegistryPresent(t *testing.T) {
	registry := prom.NewRegistry()
	recorder := metrics.NewPrometheusRecorder(registry)

	st := store.New(store.Options{KV: storage.NewMemKV(), Recorder: recorder})
	require.NoError(t, st.Hydrate(context.Background()))
	_, err := st.AddTimer(timer.Input{Destination: "Oslo", Adults: 1, Duration: 2})
	require.NoError(t, err)
	st.Wait()

	s := NewHTTPServer(config.MetricsConfig{}, st, registry)

	rec := serveRequest(s, http.MethodGet, "/metrics")
	require.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, rec.Body.String(), "tripdeck_store_mutations_total")
	require.Contains(t, rec.Body.String(), "tripdeck_active_timers 1")
}

func TestHTTPServer_Metrics_AbsentWithoutRegistry(t *testing.T) {
	st := store.New(store.Options{KV: storage.NewMemKV()})
	s := NewHTTPServer(config.MetricsConfig{}, st, nil)

	rec := serveRequest(s, http.MethodGet, "/metrics")
	require.Equal(t, http.StatusNotFound, rec.Code)
}
