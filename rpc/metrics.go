package rpc

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

type serverMetrics struct {
	requests  *prometheus.CounterVec
	durations *prometheus.HistogramVec
}

var (
	metricsOnce sync.Once
	metricsInst *serverMetrics
)

// newServerMetrics registers the RPC metrics once per process; repeated
// servers (tests) share the same collectors.
func newServerMetrics() *serverMetrics {
	metricsOnce.Do(func() {
		metricsInst = &serverMetrics{
			requests: promauto.NewCounterVec(prometheus.CounterOpts{
				Namespace: "paystream",
				Subsystem: "rpc",
				Name:      "requests_total",
				Help:      "Number of JSON-RPC requests by method.",
			}, []string{"method"}),
			durations: promauto.NewHistogramVec(prometheus.HistogramOpts{
				Namespace: "paystream",
				Subsystem: "rpc",
				Name:      "request_duration_seconds",
				Help:      "JSON-RPC request latency by method.",
				Buckets:   prometheus.DefBuckets,
			}, []string{"method"}),
		}
	})
	return metricsInst
}

func (m *serverMetrics) observe(method string, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.requests.WithLabelValues(method).Inc()
	m.durations.WithLabelValues(method).Observe(elapsed.Seconds())
}
