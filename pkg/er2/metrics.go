package er2

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Report outcomes recorded by Metrics.
const (
	resultDelivered = "delivered"
	resultFailed    = "failed"
	resultDefect    = "defect"
)

// Metrics contains Prometheus metrics for report delivery.
type Metrics struct {
	reports      *prometheus.CounterVec
	sendDuration prometheus.Histogram
}

// NewMetrics creates the collectors and registers them on reg.
// A nil reg leaves them unregistered.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		reports: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "er2_reports_total",
				Help: "Total number of reports by payload kind and outcome",
			},
			[]string{"kind", "result"},
		),
		sendDuration: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "er2_send_duration_seconds",
				Help:    "Time spent delivering one report to the collector",
				Buckets: []float64{.01, .05, .1, .25, .5, 1, 2.5, 5, 10},
			},
		),
	}
	if reg != nil {
		reg.MustRegister(m.reports, m.sendDuration)
	}
	return m
}

// observe records one report outcome. It is safe on a nil receiver.
func (m *Metrics) observe(kind, result string, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.reports.WithLabelValues(kind, result).Inc()
	if result != resultDefect {
		m.sendDuration.Observe(elapsed.Seconds())
	}
}
