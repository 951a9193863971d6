package rabbitmq

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics counts event deliveries. The zero value is not usable; use NewMetrics.
type Metrics struct {
	Published *prometheus.CounterVec
	Dropped   *prometheus.CounterVec
	Consumed  *prometheus.CounterVec
}

// NewMetrics creates the counters and registers them with reg.
// A nil reg leaves them unregistered.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		Published: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "tasksync",
			Name:      "events_published_total",
			Help:      "Task events accepted by the broker.",
		}, []string{"routing_key"}),
		Dropped: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "tasksync",
			Name:      "events_dropped_total",
			Help:      "Task events that could not be published.",
		}, []string{"reason"}),
		Consumed: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "tasksync",
			Name:      "events_consumed_total",
			Help:      "Task events received by the consumer, by outcome.",
		}, []string{"routing_key", "outcome"}),
	}
}
