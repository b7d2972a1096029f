package metrics

import (
	"io"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMetrics_Observe(t *testing.T) {
	m := New("")

	m.ObserveRequest("ohlcv", 200, 20*time.Millisecond)
	m.ObserveRequest("ohlcv", 200, 10*time.Millisecond)
	m.ObserveRequest("token", 0, time.Millisecond)
	assert.Equal(t, 2.0, testutil.ToFloat64(m.ProviderRequests.WithLabelValues("ohlcv", "200")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.ProviderRequests.WithLabelValues("token", "0")))

	m.ObserveChain(ChainStats{Chain: "solana", Candidates: 5, Malformed: 1, Matches: 2, EnrichmentFailures: 1, Cancelled: 3})
	m.ObserveChain(ChainStats{Chain: "base", Failed: true})
	assert.Equal(t, 5.0, testutil.ToFloat64(m.CandidatesSeen.WithLabelValues("solana")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.CandidatesSkipped.WithLabelValues("solana", "malformed")))
	assert.Equal(t, 3.0, testutil.ToFloat64(m.CandidatesSkipped.WithLabelValues("solana", "cancelled")))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.Matches.WithLabelValues("solana")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.ChainErrors.WithLabelValues("base")))

	at := time.Unix(1700000000, 0)
	m.ObserveCycle(3*time.Second, at)
	assert.Equal(t, 1.0, testutil.ToFloat64(m.CyclesTotal))
	assert.Equal(t, float64(at.Unix()), testutil.ToFloat64(m.LastCycleUnix))

	m.SetBreakerOpen("base", true)
	assert.Equal(t, 1.0, testutil.ToFloat64(m.ChainBreakerOpen.WithLabelValues("base")))

	m.ObserveAlert(AlertSent)
	m.ObserveCriteriaUpdate("telegram")
	assert.Equal(t, 1.0, testutil.ToFloat64(m.AlertsTotal.WithLabelValues(AlertSent)))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.CriteriaUpdates.WithLabelValues("telegram")))
}

func TestMetrics_Handler(t *testing.T) {
	m := New("scan_test")
	m.ObserveCycle(time.Second, time.Now())

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))
	body, err := io.ReadAll(rec.Body)
	require.NoError(t, err)
	assert.Contains(t, string(body), "scan_test_scanner_cycles_total 1")
}

func TestMetrics_NilSafe(t *testing.T) {
	var m *Metrics
	assert.NotPanics(t, func() {
		m.ObserveRequest("x", 200, time.Second)
		m.ObserveChain(ChainStats{})
		m.ObserveCycle(time.Second, time.Now())
		m.ObserveAlert(AlertFailed)
		m.SetBreakerOpen("x", true)
		m.ObserveCriteriaUpdate("file")
	})
}
