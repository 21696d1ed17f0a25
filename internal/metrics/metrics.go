// Package metrics exposes prometheus collectors for solves and optimization runs.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "icemaze"

// Outcome labels for finished optimizations.
const (
	OutcomeCompleted  = "completed"
	OutcomeUnsolvable = "unsolvable"
	OutcomeFailed     = "failed"
	OutcomeCancelled  = "cancelled"
)

// Metrics groups the collectors. A nil *Metrics is valid and records nothing.
type Metrics struct {
	Generations   prometheus.Counter
	Evaluations   prometheus.Counter
	Solves        prometheus.Counter
	CacheHits     prometheus.Counter
	BestFitness   prometheus.Gauge
	SolveDuration prometheus.Histogram
	Optimizations *prometheus.CounterVec
}

// New creates the collectors and registers them with reg. A nil reg leaves
// them unregistered.
func New(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		Generations: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "generations_total",
			Help:      "Genetic generations completed.",
		}),
		Evaluations: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "fitness_evaluations_total",
			Help:      "Fitness evaluations that ran the solver.",
		}),
		Solves: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "solves_total",
			Help:      "Maze solves requested directly, outside any optimization.",
		}),
		CacheHits: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "fitness_cache_hits_total",
			Help:      "Fitness evaluations answered from the cache.",
		}),
		BestFitness: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "best_fitness",
			Help:      "Best fitness of the most recent generation.",
		}),
		SolveDuration: f.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "solve_duration_seconds",
			Help:      "Time spent solving a single maze.",
			Buckets:   prometheus.ExponentialBuckets(0.00001, 4, 10),
		}),
		Optimizations: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "optimizations_total",
			Help:      "Finished optimizations by outcome.",
		}, []string{"outcome"}),
	}
}

// ObserveEvaluation records one fitness evaluation that ran the solver.
func (m *Metrics) ObserveEvaluation(d time.Duration) {
	if m == nil {
		return
	}
	m.Evaluations.Inc()
	m.SolveDuration.Observe(d.Seconds())
}

// ObserveSolve records one direct solve request.
func (m *Metrics) ObserveSolve(d time.Duration) {
	if m == nil {
		return
	}
	m.Solves.Inc()
	m.SolveDuration.Observe(d.Seconds())
}

// CacheHit records a fitness answered without solving.
func (m *Metrics) CacheHit() {
	if m == nil {
		return
	}
	m.CacheHits.Inc()
}

// ObserveGeneration records a completed generation and its best fitness.
func (m *Metrics) ObserveGeneration(best int) {
	if m == nil {
		return
	}
	m.Generations.Inc()
	m.BestFitness.Set(float64(best))
}

// RecordOutcome counts a finished optimization.
func (m *Metrics) RecordOutcome(outcome string) {
	if m == nil {
		return
	}
	m.Optimizations.WithLabelValues(outcome).Inc()
}
