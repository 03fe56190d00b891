// Package metrics exposes maestro's Prometheus instrumentation. All
// collectors are registered on the default registry via promauto so any
// embedding process can scrape them without extra wiring.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Workflow metrics
	WorkflowsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "maestro_workflows_total",
			Help: "Completed planner/critic/executor workflows",
		},
		[]string{"status"},
	)

	PhaseDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "maestro_phase_duration_seconds",
			Help:    "Duration of each workflow phase",
			Buckets: prometheus.ExponentialBuckets(0.1, 2, 12), // 100ms to ~3.5min
		},
		[]string{"phase"},
	)

	RefinementIterations = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "maestro_refinement_iterations",
			Help:    "Critique iterations before a plan was accepted",
			Buckets: []float64{1, 2, 3, 4, 5},
		},
	)

	// Backend metrics
	InvocationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "maestro_invocations_total",
			Help: "Backend invocations by model and outcome",
		},
		[]string{"model", "status"},
	)

	TokensTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "maestro_tokens_total",
			Help: "Tokens consumed by model and direction",
		},
		[]string{"model", "direction"}, // direction: input/output
	)

	// Model lifecycle metrics
	ModelLoadsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "maestro_model_loads_total",
			Help: "Model load attempts by outcome",
		},
		[]string{"model", "status"},
	)

	ResidentMemoryGB = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "maestro_resident_model_memory_gb",
			Help: "Declared memory of currently loaded models",
		},
	)

	// Resource metrics
	MemoryPressure = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "maestro_memory_pressure_level",
			Help: "Derived unified memory pressure (0=normal 1=warning 2=critical)",
		},
	)

	// Cache metrics
	CacheHitsTotal = promauto.NewCounter(
		prometheus.CounterOpts{Name: "maestro_cache_hits_total", Help: "Response cache hits"},
	)
	CacheMissesTotal = promauto.NewCounter(
		prometheus.CounterOpts{Name: "maestro_cache_misses_total", Help: "Response cache misses"},
	)
	CacheEvictionsTotal = promauto.NewCounter(
		prometheus.CounterOpts{Name: "maestro_cache_evictions_total", Help: "Response cache evictions"},
	)
)
