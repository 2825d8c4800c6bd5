// Package bot – metrics
//
// This file registers Prometheus counters for updates by kind, relays by
// outcome and reports by outcome.
package bot

import "github.com/prometheus/client_golang/prometheus"

var (
	updatesTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "anonbot_updates_total",
		Help: "Updates dispatched, by kind.",
	}, []string{"kind"})

	relaysTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "anonbot_relays_total",
		Help: "Relay attempts from private chats, by outcome.",
	}, []string{"outcome"})

	reportsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "anonbot_reports_total",
		Help: "Report button toggles, by outcome.",
	}, []string{"outcome"})
)

func init() {
	prometheus.MustRegister(updatesTotal, relaysTotal, reportsTotal)
}
