// Package telemetry exports the detector's state as Prometheus
// metrics. The gauges mirror what each snapshot carries, plus the
// CUSUM statistic and tick duration, which never leave the engine
// otherwise.
package telemetry

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/shadow30812/sentinel/internal/model"
)

// Metrics holds the engine's Prometheus instruments.
type Metrics struct {
	severity     prometheus.Gauge
	risk         prometheus.Gauge
	divergence   prometheus.Gauge
	cusum        prometheus.Gauge
	frozen       prometheus.Gauge
	training     prometheus.Gauge
	tickDuration prometheus.Histogram
}

// New registers the instruments with reg and returns them.
func New(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		severity: factory.NewGauge(prometheus.GaugeOpts{
			Name: "sentinel_severity",
			Help: "Normalised Mahalanobis distance of the latest sample.",
		}),
		risk: factory.NewGauge(prometheus.GaugeOpts{
			Name: "sentinel_risk",
			Help: "Accumulated risk score.",
		}),
		divergence: factory.NewGauge(prometheus.GaugeOpts{
			Name: "sentinel_divergence",
			Help: "L2 distance between the short- and long-term baseline means.",
		}),
		cusum: factory.NewGauge(prometheus.GaugeOpts{
			Name: "sentinel_cusum",
			Help: "Current CUSUM drift statistic.",
		}),
		frozen: factory.NewGauge(prometheus.GaugeOpts{
			Name: "sentinel_model_frozen",
			Help: "1 when the long model is frozen due to numerical instability.",
		}),
		training: factory.NewGauge(prometheus.GaugeOpts{
			Name: "sentinel_training",
			Help: "1 while the engine is accumulating a training batch.",
		}),
		tickDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "sentinel_tick_duration_seconds",
			Help:    "Wall time of one engine tick.",
			Buckets: prometheus.ExponentialBuckets(0.0005, 2, 12),
		}),
	}
}

// ObserveSnapshot updates the gauges from a published snapshot.
func (m *Metrics) ObserveSnapshot(s model.Snapshot) {
	if m == nil {
		return
	}
	if s.Mode == model.ModeTraining {
		m.training.Set(1)
		return
	}
	m.training.Set(0)
	m.severity.Set(s.Severity)
	m.risk.Set(s.Risk)
	m.divergence.Set(s.Divergence)
	m.frozen.Set(boolToGauge(s.Frozen))
}

// ObserveCusum records the current drift statistic.
func (m *Metrics) ObserveCusum(v float64) {
	if m == nil {
		return
	}
	m.cusum.Set(v)
}

// ObserveTick records one tick's wall time.
func (m *Metrics) ObserveTick(d time.Duration) {
	if m == nil {
		return
	}
	m.tickDuration.Observe(d.Seconds())
}

func boolToGauge(b bool) float64 {
	if b {
		return 1
	}
	return 0
}
