// Package metrics provides Prometheus instrumentation for valuation runs.
// A batch run has no scrape endpoint, so the registry is written to a
// node-exporter textfile when the run ends.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds the collectors of one run on a private registry.
type Metrics struct {
	registry *prometheus.Registry

	// PhaseSeconds accumulates wall time per engine phase.
	PhaseSeconds *prometheus.CounterVec

	// MarketUpdates counts simulation market updates.
	MarketUpdates prometheus.Counter

	// Valuations counts calculator invocations, by calculator.
	Valuations *prometheus.CounterVec

	// PricingErrors counts failed valuations, by calculator.
	PricingErrors *prometheus.CounterVec

	// Progress is the fraction of (date, sample) steps done.
	Progress prometheus.Gauge

	// CubeCells is the size of the cube being filled.
	CubeCells prometheus.Gauge
}

func New() *Metrics {
	reg := prometheus.NewRegistry()
	f := promauto.With(reg)
	return &Metrics{
		registry: reg,
		PhaseSeconds: f.NewCounterVec(prometheus.CounterOpts{
			Name: "simcube_phase_seconds_total",
			Help: "Wall time spent per valuation phase",
		}, []string{"phase"}),
		MarketUpdates: f.NewCounter(prometheus.CounterOpts{
			Name: "simcube_market_updates_total",
			Help: "Simulation market updates applied",
		}),
		Valuations: f.NewCounterVec(prometheus.CounterOpts{
			Name: "simcube_valuations_total",
			Help: "Calculator invocations",
		}, []string{"calculator"}),
		PricingErrors: f.NewCounterVec(prometheus.CounterOpts{
			Name: "simcube_pricing_errors_total",
			Help: "Failed valuations",
		}, []string{"calculator"}),
		Progress: f.NewGauge(prometheus.GaugeOpts{
			Name: "simcube_progress_ratio",
			Help: "Fraction of simulation steps completed",
		}),
		CubeCells: f.NewGauge(prometheus.GaugeOpts{
			Name: "simcube_cube_cells",
			Help: "Number of cells in the output cube",
		}),
	}
}

// Registry exposes the private registry, e.g. for a promhttp handler.
func (m *Metrics) Registry() *prometheus.Registry { return m.registry }

// ObservePhase adds d to phase.
func (m *Metrics) ObservePhase(phase string, d time.Duration) {
	m.PhaseSeconds.WithLabelValues(phase).Add(d.Seconds())
}

// WriteTextfile writes all metrics in the text exposition format.
func (m *Metrics) WriteTextfile(path string) error {
	return prometheus.WriteToTextfile(path, m.registry)
}
