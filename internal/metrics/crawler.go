package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	crawlLogsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "crawler",
		Name:      "logs_total",
		Help:      "Count of Transfer logs returned by eth_getLogs.",
	}, []string{"chain"})

	crawlRecordsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "crawler",
		Name:      "records_total",
		Help:      "Count of records written to the store.",
	}, []string{"chain", "platform"})

	crawlDroppedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "crawler",
		Name:      "dropped_total",
		Help:      "Count of logs or tokens skipped, by reason.",
	}, []string{"chain", "reason"})

	crawlBatchTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "crawler",
		Name:      "batch_total",
		Help:      "Count of (block range, address batch) units processed.",
	}, []string{"chain", "status"})

	crawlBatchDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Subsystem: "crawler",
		Name:      "batch_duration_seconds",
		Help:      "Duration of one (block range, address batch) unit.",
		Buckets:   prometheus.DefBuckets,
	}, []string{"chain", "status"})
)

// Crawler tracks metrics for the crawl orchestrator
type Crawler struct {
	chain string
}

// NewCrawler constructs a Crawler collector for one chain
func NewCrawler(chain string) *Crawler {
	return &Crawler{chain: orUnknown(chain)}
}

// ObserveLogs records logs returned by one query
func (m Crawler) ObserveLogs(n int) {
	crawlLogsTotal.WithLabelValues(m.chain).Add(float64(n))
}

// ObserveStored records one stored record
func (m Crawler) ObserveStored(platform string) {
	crawlRecordsTotal.WithLabelValues(m.chain, orUnknown(platform)).Inc()
}

// ObserveDropped records one skipped log or token
func (m Crawler) ObserveDropped(reason string) {
	crawlDroppedTotal.WithLabelValues(m.chain, reason).Inc()
}

// ObserveBatch records a batch outcome and duration
func (m Crawler) ObserveBatch(err error, started time.Time) {
	s := status(err)
	crawlBatchTotal.WithLabelValues(m.chain, s).Inc()
	crawlBatchDuration.WithLabelValues(m.chain, s).Observe(time.Since(started).Seconds())
}
