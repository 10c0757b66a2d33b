package server

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// metrics holds the server's Prometheus instruments. Each server carries
// its own registry so multiple instances (tests included) never collide
// on registration.
type metrics struct {
	registry    *prometheus.Registry
	runs        *prometheus.CounterVec
	runDuration *prometheus.HistogramVec
	findings    prometheus.Histogram
}

func newMetrics() *metrics {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)
	return &metrics{
		registry: reg,
		runs: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "sldgen",
			Name:      "runs_total",
			Help:      "Conversion runs by convention and outcome.",
		}, []string{"convention", "outcome"}),
		runDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "sldgen",
			Name:      "run_duration_seconds",
			Help:      "End-to-end conversion run duration.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"convention"}),
		findings: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: "sldgen",
			Name:      "run_findings",
			Help:      "Validator findings per successful run.",
			Buckets:   []float64{0, 1, 2, 5, 10, 25, 50, 100},
		}),
	}
}

func (m *metrics) observeRun(convention string, err error, d time.Duration) {
	outcome := "success"
	if err != nil {
		outcome = "error"
	}
	m.runs.WithLabelValues(convention, outcome).Inc()
	m.runDuration.WithLabelValues(convention).Observe(d.Seconds())
}

func (m *metrics) observeFindings(n int) {
	m.findings.Observe(float64(n))
}
