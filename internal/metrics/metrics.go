// internal/metrics/metrics.go
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "tysiac"

// Metrics groups the service's prometheus collectors. A nil *Metrics is valid and records nothing.
type Metrics struct {
	subscribers prometheus.Gauge
	published   *prometheus.CounterVec
	dropped     prometheus.Counter
	rejections  *prometheus.CounterVec
	rounds      *prometheus.CounterVec
}

// New creates the collectors and registers them on reg.
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		subscribers: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "hub",
			Name:      "subscribers",
			Help:      "Number of live event subscriptions.",
		}),
		published: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "hub",
			Name:      "events_published_total",
			Help:      "Events published to the hub, by type.",
		}, []string{"type"}),
		dropped: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "hub",
			Name:      "events_dropped_total",
			Help:      "Buffered events discarded because a subscriber fell behind.",
		}),
		rejections: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "scores",
			Name:      "rejections_total",
			Help:      "Rounds rejected by validation, by kind.",
		}, []string{"kind"}),
		rounds: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "scores",
			Name:      "round_changes_total",
			Help:      "Accepted round mutations, by action.",
		}, []string{"action"}),
	}
	reg.MustRegister(m.subscribers, m.published, m.dropped, m.rejections, m.rounds)
	return m
}

func (m *Metrics) SubscriberAdded() {
	if m != nil {
		m.subscribers.Inc()
	}
}

func (m *Metrics) SubscriberRemoved() {
	if m != nil {
		m.subscribers.Dec()
	}
}

func (m *Metrics) EventPublished(eventType string) {
	if m != nil {
		m.published.WithLabelValues(eventType).Inc()
	}
}

func (m *Metrics) EventDropped() {
	if m != nil {
		m.dropped.Inc()
	}
}

// RoundRejected counts a validation rejection; kind comes from game.Kind.
func (m *Metrics) RoundRejected(kind string) {
	if m != nil && kind != "" {
		m.rejections.WithLabelValues(kind).Inc()
	}
}

func (m *Metrics) RoundChanged(action string, n int) {
	if m != nil && n > 0 {
		m.rounds.WithLabelValues(action).Add(float64(n))
	}
}
