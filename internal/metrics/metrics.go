package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"voxelguard.ai/internal/guard"
	"voxelguard.ai/internal/persistence/indexdb"
)

const namespace = "voxelguard"

// Metrics holds every collector the service exports. Collectors live on a
// private registry so tests and multiple instances do not collide.
type Metrics struct {
	reg *prometheus.Registry

	decisions       *prometheus.CounterVec
	feedbackDropped prometheus.Counter
	connections     prometheus.Gauge
	rejected        *prometheus.CounterVec

	protectedTypes prometheus.Gauge
	placed         prometheus.Gauge
	reinforced     prometheus.Gauge
	saveErrors     prometheus.Gauge
}

func New() *Metrics {
	m := &Metrics{
		reg: prometheus.NewRegistry(),
		decisions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "decisions_total",
			Help:      "Protection decisions by intent kind and outcome.",
		}, []string{"action", "outcome"}),
		feedbackDropped: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "feedback_dropped_total",
			Help:      "Denial notices that could not be queued to a bridge.",
		}),
		connections: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "bridge_connections",
			Help:      "Connected host bridges.",
		}),
		rejected: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "bridge_rejected_total",
			Help:      "Bridge messages answered with an error, by code.",
		}, []string{"code"}),
		protectedTypes: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "protected_types",
			Help:      "Block types in the unbreakable registry.",
		}),
		placed: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "placed_blocks",
			Help:      "Locations with a recorded owner.",
		}),
		reinforced: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "reinforced_blocks",
			Help:      "Locations with remaining reinforcement.",
		}),
		saveErrors: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "save_errors",
			Help:      "Failed state saves since start.",
		}),
	}
	m.reg.MustRegister(
		m.decisions, m.feedbackDropped, m.connections, m.rejected,
		m.protectedTypes, m.placed, m.reinforced, m.saveErrors,
		prometheus.NewGoCollector(),
	)
	return m
}

func (m *Metrics) Registry() *prometheus.Registry { return m.reg }

func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.reg, promhttp.HandlerOpts{Registry: m.reg})
}

// Record is an engine observer.
func (m *Metrics) Record(d guard.Decision) {
	if d.Intent == nil {
		return
	}
	m.decisions.WithLabelValues(d.Intent.Kind(), d.Outcome.String()).Inc()
}

// Engine returns an observer that also refreshes the ledger gauges. It runs
// on the goroutine that owns eng.
func (m *Metrics) Engine(eng *guard.Engine) func(guard.Decision) {
	return func(d guard.Decision) {
		m.Record(d)
		m.SetLedger(eng.Registry().Len(), eng.Ledger().Len(), eng.Ledger().ReinforcedLen())
	}
}

func (m *Metrics) SetLedger(types, placed, reinforced int) {
	m.protectedTypes.Set(float64(types))
	m.placed.Set(float64(placed))
	m.reinforced.Set(float64(reinforced))
}

func (m *Metrics) SetSaveErrors(n uint64) { m.saveErrors.Set(float64(n)) }

func (m *Metrics) FeedbackDropped() { m.feedbackDropped.Inc() }

// Connected, Disconnected and Rejected satisfy the bridge transport observer.
func (m *Metrics) Connected()           { m.connections.Inc() }
func (m *Metrics) Disconnected()        { m.connections.Dec() }
func (m *Metrics) Rejected(code string) { m.rejected.WithLabelValues(code).Inc() }

// WatchIndex exports the SQLite index queue statistics.
func (m *Metrics) WatchIndex(stats func() indexdb.Stats) {
	m.reg.MustRegister(
		prometheus.NewGaugeFunc(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "index_queue_depth",
			Help:      "Audit rows waiting for the SQLite writer.",
		}, func() float64 { return float64(stats().QueueDepth) }),
		prometheus.NewCounterFunc(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "index_dropped_total",
			Help:      "Audit rows dropped because the SQLite writer fell behind.",
		}, func() float64 { return float64(stats().Dropped) }),
	)
}
