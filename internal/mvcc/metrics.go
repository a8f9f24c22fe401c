package mvcc

import "github.com/prometheus/client_golang/prometheus"

var (
	txnCounter = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "kvsql",
			Subsystem: "mvcc",
			Name:      "txn_total",
			Help:      "Counter of transaction transitions.",
		}, []string{"result"})

	conflictCounter = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "kvsql",
			Subsystem: "mvcc",
			Name:      "conflict_total",
			Help:      "Counter of write-write conflicts.",
		})

	txnDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "kvsql",
			Subsystem: "mvcc",
			Name:      "txn_duration_seconds",
			Help:      "Bucketed histogram of transaction lifetime (s), begin to commit or rollback.",
			Buckets:   prometheus.ExponentialBuckets(0.0001, 2, 16),
		}, []string{"result"})
)

func init() {
	prometheus.MustRegister(txnCounter)
	prometheus.MustRegister(conflictCounter)
	prometheus.MustRegister(txnDuration)
}
