package metrics

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMetricsRegistry(t *testing.T) {
	// Initialize the registry
	InitRegistry()
	registry := GetRegistry()

	assert.NotNil(t, registry)
	assert.IsType(t, &prometheus.Registry{}, registry)
}

func TestInitRegistryIsIdempotent(t *testing.T) {
	first := InitRegistry()
	second := InitRegistry()
	assert.Same(t, first, second)
}

func TestRecordSampleVerdict(t *testing.T) {
	InitRegistry()

	tests := []struct {
		name    string
		verdict string
	}{
		{name: "accepted sample", verdict: "accepted"},
		{name: "inaccurate fix", verdict: "inaccurate"},
		{name: "teleport jump", verdict: "jump"},
		{name: "stationary jitter", verdict: "jitter"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.NotPanics(t, func() {
				RecordSampleVerdict(tt.verdict)
			})
		})
	}
}

func TestBootstrapVerdictIsNotARejection(t *testing.T) {
	InitRegistry()

	rejectedBefore := testutil.ToFloat64(SamplesRejectedTotal.WithLabelValues("bootstrap"))
	bootstrapBefore := testutil.ToFloat64(SamplesBootstrapTotal)

	RecordSampleVerdict("bootstrap")

	assert.Equal(t, rejectedBefore, testutil.ToFloat64(SamplesRejectedTotal.WithLabelValues("bootstrap")))
	assert.Equal(t, bootstrapBefore+1, testutil.ToFloat64(SamplesBootstrapTotal))
}

func TestRecordBroadcast(t *testing.T) {
	InitRegistry()

	assert.NotPanics(t, func() {
		RecordBroadcast("ranking_update")
		RecordBroadcast("state_transition")
	})
}

func TestConnectedClientsGauge(t *testing.T) {
	InitRegistry()

	assert.NotPanics(t, func() {
		ConnectedClients.Inc()
		ConnectedClients.Dec()
		SessionsActive.Set(3)
	})
}

func TestHandlerServesMetrics(t *testing.T) {
	InitRegistry()
	RecordSampleVerdict("accepted")

	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	rec := httptest.NewRecorder()
	Handler().ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "runbattle_samples_accepted_total")
}
