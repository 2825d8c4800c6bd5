// Package queue – metrics
//
// This file registers Prometheus collectors for enqueued, applied and dropped
// entities and the current backlog.
package queue

import "github.com/prometheus/client_golang/prometheus"

var (
	enqueuedTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "anonbot_queue_enqueued_total",
		Help: "Entities accepted by the write queue.",
	})

	appliedTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "anonbot_queue_applied_total",
		Help: "Entities applied to the store, by operation.",
	}, []string{"op"})

	droppedTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "anonbot_queue_dropped_total",
		Help: "Entities dropped because they could not be decoded or had an unknown operation.",
	})

	pendingGauge = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "anonbot_queue_pending",
		Help: "Entities persisted but not yet applied, as of the last drain.",
	})
)

func init() {
	prometheus.MustRegister(enqueuedTotal, appliedTotal, droppedTotal, pendingGauge)
}
