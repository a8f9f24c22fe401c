package kvsqlwire

import "github.com/prometheus/client_golang/prometheus"

var (
	connGauge = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "kvsql",
			Subsystem: "wire",
			Name:      "connections",
			Help:      "Number of open client connections.",
		})

	requestCounter = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "kvsql",
			Subsystem: "wire",
			Name:      "requests_total",
			Help:      "Counter of executed requests by error kind (ok on success).",
		}, []string{"kind"})
)

func init() {
	prometheus.MustRegister(connGauge)
	prometheus.MustRegister(requestCounter)
}
