// Package metrics exposes pipeline counters to Prometheus.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Run outcomes.
const (
	OutcomeOK        = "ok"
	OutcomeError     = "error"
	OutcomeCancelled = "cancelled"
)

var (
	RunsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "vbscope_runs_total",
		Help: "Resolution runs by outcome.",
	}, []string{"outcome"})

	StageDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "vbscope_stage_seconds",
		Help:    "Time spent in each pipeline stage.",
		Buckets: prometheus.DefBuckets,
	}, []string{"stage"})

	ModulesProcessed = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "vbscope_modules_processed_total",
		Help: "Modules handled per pipeline stage.",
	}, []string{"stage"})

	Modules = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "vbscope_modules",
		Help: "Modules in the published generation.",
	})

	Declarations = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "vbscope_declarations",
		Help: "Declarations in the published generation.",
	})

	References = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "vbscope_references",
		Help: "Identifier references in the published generation.",
	})

	UnboundReferences = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "vbscope_unbound_references",
		Help: "References that matched no declaration in the published generation.",
	})

	Generation = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "vbscope_generation",
		Help: "Number of the published generation.",
	})

	NotificationsDropped = promauto.NewCounter(prometheus.CounterOpts{
		Name: "vbscope_notifications_dropped_total",
		Help: "State notifications a slow subscriber missed.",
	})

	WatchEvents = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "vbscope_watch_events_total",
		Help: "Module change events received while watching.",
	}, []string{"op"})
)

// ObserveStage records one stage of a run.
func ObserveStage(stage string, d time.Duration, modules int) {
	StageDuration.WithLabelValues(stage).Observe(d.Seconds())
	ModulesProcessed.WithLabelValues(stage).Add(float64(modules))
}

// Published updates the gauges for a new generation.
func Published(generation uint64, modules, declarations, references, unbound int) {
	Generation.Set(float64(generation))
	Modules.Set(float64(modules))
	Declarations.Set(float64(declarations))
	References.Set(float64(references))
	UnboundReferences.Set(float64(unbound))
}
