package syncer

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics counts sync outcomes. A nil *Metrics records nothing.
type Metrics struct {
	operations *prometheus.CounterVec
	conflicts  prometheus.Counter
	items      *prometheus.CounterVec
	duration   *prometheus.HistogramVec
}

// NewMetrics registers the engine collectors with reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		operations: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "gophnotes_sync_operations_total",
				Help: "Sync operations by kind and result",
			},
			[]string{"op", "result"},
		),
		conflicts: f.NewCounter(
			prometheus.CounterOpts{
				Name: "gophnotes_sync_conflicts_total",
				Help: "Conflict copies created by pulls",
			},
		),
		items: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "gophnotes_sync_items_total",
				Help: "Items written by sync operations",
			},
			[]string{"op"},
		),
		duration: f.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "gophnotes_sync_duration_seconds",
				Help:    "Duration of sync operations",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"op"},
		),
	}
}

func (m *Metrics) observe(op string, err error, res Result) {
	if m == nil {
		return
	}
	result := "ok"
	if err != nil {
		result = "error"
	}
	m.operations.WithLabelValues(op, result).Inc()
	if err != nil {
		return
	}
	m.conflicts.Add(float64(res.Conflicts))
	m.items.WithLabelValues(op).Add(float64(res.Created + res.Updated + res.Deleted + res.Pushed))
}

func (m *Metrics) timer(op string) *prometheus.Timer {
	if m == nil {
		return prometheus.NewTimer(prometheus.ObserverFunc(func(float64) {}))
	}
	return prometheus.NewTimer(m.duration.WithLabelValues(op))
}
