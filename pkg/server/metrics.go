package server

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// metrics are the server-level Prometheus collectors. Each server carries
// its own registry so tests can spin up servers without collector
// collisions.
type metrics struct {
	registry *prometheus.Registry

	scansStarted   prometheus.Counter
	scansCompleted *prometheus.CounterVec
	findingsTotal  *prometheus.CounterVec
	probesTotal    prometheus.Counter
	activeSessions prometheus.GaugeFunc
}

func newMetrics(sessionCount func() int) *metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector())

	m := &metrics{
		registry: reg,
		scansStarted: promauto.With(reg).NewCounter(prometheus.CounterOpts{
			Namespace: "wvscan",
			Name:      "scans_started_total",
			Help:      "Scans accepted by the start endpoint.",
		}),
		scansCompleted: promauto.With(reg).NewCounterVec(prometheus.CounterOpts{
			Namespace: "wvscan",
			Name:      "scans_completed_total",
			Help:      "Scans that reached a terminal state.",
		}, []string{"state"}),
		findingsTotal: promauto.With(reg).NewCounterVec(prometheus.CounterOpts{
			Namespace: "wvscan",
			Name:      "findings_total",
			Help:      "Findings confirmed across all scans.",
		}, []string{"severity", "category"}),
		probesTotal: promauto.With(reg).NewCounter(prometheus.CounterOpts{
			Namespace: "wvscan",
			Name:      "probes_total",
			Help:      "Injection probe requests issued across all scans.",
		}),
	}
	m.activeSessions = promauto.With(reg).NewGaugeFunc(prometheus.GaugeOpts{
		Namespace: "wvscan",
		Name:      "sessions_held",
		Help:      "Sessions currently held by the registry, any state.",
	}, func() float64 { return float64(sessionCount()) })

	return m
}

func (m *metrics) handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
