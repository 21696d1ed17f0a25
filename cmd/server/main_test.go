package main

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/copyleftdev/icemaze/internal/config"
	"github.com/copyleftdev/icemaze/internal/logging"
	"github.com/copyleftdev/icemaze/internal/metrics"
	"github.com/copyleftdev/icemaze/internal/server"
	"github.com/copyleftdev/icemaze/internal/store"
)

func testRouter(t *testing.T) http.Handler {
	t.Helper()
	cfg := &config.Config{Environment: "test"}
	cfg.HTTP.WriteTimeout = 10 * time.Second
	cfg.Optimization.WorkerCount = 1
	cfg.Optimization.PopulationSize = 8
	cfg.Optimization.EliteCount = 2
	cfg.Optimization.MutationRate = 0.5
	cfg.Optimization.Generations = 2
	cfg.Optimization.ReportEvery = 1
	cfg.Optimization.MaxConcurrent = 1

	logger := logging.New(logging.ErrorLevel, io.Discard)
	st, err := store.Open(":memory:")
	require.NoError(t, err)

	registry := prometheus.NewRegistry()
	srv := server.NewServer(cfg, logger, server.WithStore(st), server.WithMetrics(metrics.New(registry)))
	t.Cleanup(func() {
		srv.Close()
		st.Close()
	})
	return newRouter(cfg, logger, srv, registry)
}

func TestRouterEndpoints(t *testing.T) {
	r := testRouter(t)

	rr := httptest.NewRecorder()
	r.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "OK", rr.Body.String())

	rr = httptest.NewRecorder()
	body := strings.NewReader(`{"layout":"-   +\n ### \n     "}`)
	r.ServeHTTP(rr, httptest.NewRequest(http.MethodPost, "/api/v1/solve", body))
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	assert.Contains(t, rr.Body.String(), `"solvable":true`)

	rr = httptest.NewRecorder()
	r.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), "icemaze_solves_total 1")

	rr = httptest.NewRecorder()
	r.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/api/v1/status/missing", nil))
	assert.Equal(t, http.StatusNotFound, rr.Code)
}
