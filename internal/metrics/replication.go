package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	replicationRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "replication",
		Name:      "requests_total",
		Help:      "Count of JSON-RPC requests served by the daemon.",
	}, []string{"method", "status"})

	replicationRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Subsystem: "replication",
		Name:      "request_duration_seconds",
		Help:      "Duration of JSON-RPC requests served by the daemon.",
		Buckets:   prometheus.DefBuckets,
	}, []string{"method", "status"})

	daemonCyclesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "daemon",
		Name:      "cycles_total",
		Help:      "Count of filter+crawl cycles run by the daemon loop.",
	}, []string{"status"})

	daemonCursor = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Subsystem: "daemon",
		Name:      "cursor_block",
		Help:      "Last block crawled by the daemon loop.",
	})

	followerAppliedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "follower",
		Name:      "applied_total",
		Help:      "Count of replicated records applied locally.",
	})

	followerCursor = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Subsystem: "follower",
		Name:      "cursor_block",
		Help:      "Block the follower has replicated up to, exclusive.",
	})
)

// Replication tracks metrics for the daemon and follower
type Replication struct{}

// NewReplication constructs a Replication collector
func NewReplication() *Replication {
	return &Replication{}
}

// ObserveRequest records one served JSON-RPC request
func (m Replication) ObserveRequest(method string, err error, started time.Time) {
	s := status(err)
	replicationRequestsTotal.WithLabelValues(orUnknown(method), s).Inc()
	replicationRequestDuration.WithLabelValues(orUnknown(method), s).Observe(time.Since(started).Seconds())
}

// ObserveCycle records one daemon loop cycle and the cursor it reached
func (m Replication) ObserveCycle(err error, cursor uint64) {
	daemonCyclesTotal.WithLabelValues(status(err)).Inc()
	if err == nil {
		daemonCursor.Set(float64(cursor))
	}
}

// ObserveApplied records records applied by the follower and its new cursor
func (m Replication) ObserveApplied(n int, cursor uint64) {
	followerAppliedTotal.Add(float64(n))
	followerCursor.Set(float64(cursor))
}
