package observability

import (
	"context"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMetricsRecording(t *testing.T) {
	m := NewMetrics()

	m.RecordRequest("tools/call", "ok", 5*time.Millisecond)
	m.RecordRequest("tools/call", "ok", 7*time.Millisecond)
	m.RecordRequest("initialize", "error", time.Millisecond)
	m.RecordToolCall("create_reminder", "ok")

	assert.Equal(t, 2.0, testutil.ToFloat64(
		m.requestsTotal.WithLabelValues("tools/call", "ok")))
	assert.Equal(t, 1.0, testutil.ToFloat64(
		m.requestsTotal.WithLabelValues("initialize", "error")))
	assert.Equal(t, 1.0, testutil.ToFloat64(
		m.toolCallsTotal.WithLabelValues("create_reminder", "ok")))
}

func TestMetricsInflight(t *testing.T) {
	m := NewMetrics()

	m.RequestStarted()
	m.RequestStarted()
	assert.Equal(t, 2.0, testutil.ToFloat64(m.inflight))

	m.RequestFinished()
	assert.Equal(t, 1.0, testutil.ToFloat64(m.inflight))
}

func TestSetSessionPhaseIsOneHot(t *testing.T) {
	m := NewMetrics()

	m.SetSessionPhase("ready")
	assert.Equal(t, 1.0, testutil.ToFloat64(m.sessionPhase.WithLabelValues("ready")))
	assert.Equal(t, 0.0, testutil.ToFloat64(m.sessionPhase.WithLabelValues("initializing")))

	m.SetSessionPhase("initializing")
	assert.Equal(t, 0.0, testutil.ToFloat64(m.sessionPhase.WithLabelValues("ready")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.sessionPhase.WithLabelValues("initializing")))
}

func TestHandlerServesRegistry(t *testing.T) {
	m := NewMetrics()
	m.RecordToolCall("get_lists", "ok")

	req := httptest.NewRequest("GET", "/metrics", nil)
	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, req)

	require.Equal(t, 200, rec.Code)
	assert.Contains(t, rec.Body.String(), "remindersd_tool_calls_total")
}

func TestNewTracingProviderNoop(t *testing.T) {
	tp, err := NewTracingProvider(TracingConfig{ExporterType: ExporterTypeNoop})
	require.NoError(t, err)
	require.NotNil(t, tp.Tracer())

	assert.NoError(t, tp.Shutdown(context.Background()))
}

func TestNewTracingProviderRejectsUnknownExporter(t *testing.T) {
	_, err := NewTracingProvider(TracingConfig{ExporterType: "jaeger"})
	assert.Error(t, err)
}
