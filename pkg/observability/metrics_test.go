package observability

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMetrics_SessionLifecycle(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewMetrics(reg)

	m.SessionStarted()
	m.SessionStarted()
	assert.Equal(t, 2.0, testutil.ToFloat64(m.ActiveSessions))

	m.SessionFinished("cells", "RESOLVED", 0, 2*time.Second)
	m.SessionFinished("cells", "EXHAUSTED", 3, 5*time.Second)
	assert.Equal(t, 0.0, testutil.ToFloat64(m.ActiveSessions))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.SessionsTotal.WithLabelValues("cells", "RESOLVED")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.SessionsTotal.WithLabelValues("cells", "EXHAUSTED")))

	m.ObserveExecution("cells", "UnknownSchemaElement")
	m.ObserveExecution("cells", "UnknownSchemaElement")
	assert.Equal(t, 2.0, testutil.ToFloat64(m.ExecutionsTotal.WithLabelValues("cells", "UnknownSchemaElement")))

	m.ObserveTier("NESTED", true)
	assert.Equal(t, 1.0, testutil.ToFloat64(m.TierTotal.WithLabelValues("NESTED", "true")))

	m.ObserveStage("LINKING", 10*time.Millisecond)
	count, err := testutil.GatherAndCount(reg, "eda_resolve_stage_duration_seconds")
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}

func TestMetrics_NilIsNoop(t *testing.T) {
	var m *Metrics
	assert.NotPanics(t, func() {
		m.SessionStarted()
		m.SessionFinished("netlist", "CANCELLED", 1, time.Second)
		m.ObserveStage("EXECUTING", time.Millisecond)
		m.ObserveExecution("netlist", "")
		m.ObserveTier("EASY", false)
	})
}

func TestSpans(t *testing.T) {
	ctx, span := StartSpan(context.Background(), "link")
	assert.NotNil(t, ctx)
	assert.NotPanics(t, func() { EndSpan(span, errors.New("boom")) })

	_, span = StartSpan(context.Background(), "execute")
	assert.NotPanics(t, func() { EndSpan(span, nil) })
}
