package telemetry

import (
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func scrape(t *testing.T, url string) string {
	t.Helper()
	resp, err := http.Get(url)
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return string(body)
}

func TestMetricsRegistry_Counters(t *testing.T) {
	m := NewMetricsRegistry()

	m.RecordTrials("S2", "RTH", 100)
	m.RecordTrials("S2", "RTH", 50)
	m.RecordBacktest("S2", "baseline")
	m.RecordBacktest("S2", "candidate")
	m.RecordGate("S2", true, 0.012)
	m.RecordGate("S2", false, 0.40)

	timer := m.StartRun("S2")
	timer.Stop("completed")

	srv := httptest.NewServer(promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{}))
	defer srv.Close()

	body := scrape(t, srv.URL)
	assert.Contains(t, body, `traintick_trials_total{session="RTH",strategy="S2"} 150`)
	assert.Contains(t, body, `traintick_backtests_total{role="baseline",strategy="S2"} 1`)
	assert.Contains(t, body, `traintick_gate_results_total{result="passed",strategy="S2"} 1`)
	assert.Contains(t, body, `traintick_gate_results_total{result="rejected",strategy="S2"} 1`)
	assert.Contains(t, body, `traintick_runs_total{status="completed",strategy="S2"} 1`)
	assert.Contains(t, body, `traintick_active_runs 0`)
}

func TestMetricsRegistry_IndependentRegistries(t *testing.T) {
	// Two registries must not collide; each run owns its own.
	a := NewMetricsRegistry()
	b := NewMetricsRegistry()
	a.RecordTrials("S2", "RTH", 10)
	b.RecordTrials("S2", "RTH", 20)

	srv := httptest.NewServer(promhttp.HandlerFor(b.registry, promhttp.HandlerOpts{}))
	defer srv.Close()
	assert.Contains(t, scrape(t, srv.URL), `traintick_trials_total{session="RTH",strategy="S2"} 20`)
}

func TestServer_HealthAndMetricsRoutes(t *testing.T) {
	m := NewMetricsRegistry()
	m.RecordGate("S2", true, 0.01)

	s, err := NewServer(ServerConfig{Host: "127.0.0.1", Port: 0}, m)
	require.NoError(t, err)

	srv := httptest.NewServer(s.router)
	defer srv.Close()

	health := scrape(t, srv.URL+"/health")
	assert.Contains(t, health, `"status":"ok"`)

	metrics := scrape(t, srv.URL+"/metrics")
	assert.Contains(t, metrics, "traintick_gate_results_total")
}
