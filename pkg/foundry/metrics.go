package foundry

import (
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics records request and retry counters for a Client. Pass the same
// Metrics to multiple clients to aggregate across them.
type Metrics struct {
	requests *prometheus.CounterVec
	retries  prometheus.Counter
}

// NewMetrics creates request metrics registered with reg. A nil reg uses
// the default prometheus registerer.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	m := &Metrics{
		requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "foundry",
			Subsystem: "client",
			Name:      "requests_total",
			Help:      "HTTP attempts by method and status class.",
		}, []string{"method", "status_class"}),
		retries: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "foundry",
			Subsystem: "client",
			Name:      "retries_total",
			Help:      "Retry attempts after retriable responses.",
		}),
	}
	reg.MustRegister(m.requests, m.retries)
	return m
}

// statusClass buckets a status code as "2xx", "4xx", etc.
func statusClass(status int) string {
	return strconv.Itoa(status/100) + "xx"
}
