package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	gatewayRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "gateway",
		Name:      "requests_total",
		Help:      "Count of JSON-RPC calls to chain endpoints, retries included once.",
	}, []string{"method", "status"})

	gatewayRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Subsystem: "gateway",
		Name:      "request_duration_seconds",
		Help:      "Duration of JSON-RPC calls to chain endpoints including retries.",
		Buckets:   prometheus.DefBuckets,
	}, []string{"method", "status"})

	gatewayRetriesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "gateway",
		Name:      "retries_total",
		Help:      "Count of retried JSON-RPC attempts.",
	}, []string{"method"})
)

// Gateway tracks metrics for chain RPC access
type Gateway struct{}

// NewGateway constructs a Gateway collector
func NewGateway() *Gateway {
	return &Gateway{}
}

// Observe records one call outcome and duration
func (m Gateway) Observe(method string, err error, started time.Time) {
	s := status(err)
	gatewayRequestsTotal.WithLabelValues(method, s).Inc()
	gatewayRequestDuration.WithLabelValues(method, s).Observe(time.Since(started).Seconds())
}

// ObserveRetry records one retried attempt
func (m Gateway) ObserveRetry(method string) {
	gatewayRetriesTotal.WithLabelValues(method).Inc()
}
