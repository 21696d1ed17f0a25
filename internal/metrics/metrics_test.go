package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMetricsRecord(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := New(reg)

	m.ObserveEvaluation(2 * time.Millisecond)
	m.ObserveEvaluation(3 * time.Millisecond)
	m.ObserveSolve(time.Millisecond)
	m.CacheHit()
	m.ObserveGeneration(17)
	m.ObserveGeneration(21)
	m.RecordOutcome(OutcomeCompleted)

	assert.Equal(t, 2.0, testutil.ToFloat64(m.Evaluations))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Solves), "direct solves are not fitness evaluations")
	assert.Equal(t, 1.0, testutil.ToFloat64(m.CacheHits))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.Generations))
	assert.Equal(t, 21.0, testutil.ToFloat64(m.BestFitness))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Optimizations.WithLabelValues(OutcomeCompleted)))

	families, err := reg.Gather()
	require.NoError(t, err)
	names := make([]string, 0, len(families))
	for _, f := range families {
		names = append(names, f.GetName())
	}
	assert.Contains(t, names, "icemaze_solve_duration_seconds")
	assert.Contains(t, names, "icemaze_fitness_evaluations_total")
	assert.Contains(t, names, "icemaze_solves_total")
}

func TestNilMetricsIsNoop(t *testing.T) {
	var m *Metrics
	assert.NotPanics(t, func() {
		m.ObserveSolve(time.Second)
		m.ObserveEvaluation(time.Second)
		m.CacheHit()
		m.ObserveGeneration(3)
		m.RecordOutcome(OutcomeFailed)
	})
}
