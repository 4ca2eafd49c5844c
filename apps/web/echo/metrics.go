package webapp

import (
	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type metrics struct {
	registry *prometheus.Registry

	logins   *prometheus.CounterVec
	denials  *prometheus.CounterVec
	carousel prometheus.Gauge
	backend  *prometheus.CounterVec
}

// newMetrics uses its own registry so several servers (tests) can live in one process.
func newMetrics() *metrics {
	m := &metrics{
		registry: prometheus.NewRegistry(),
		logins: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "portal",
			Name:      "login_attempts_total",
			Help:      "Login form submissions by step and outcome.",
		}, []string{"step", "outcome"}),
		denials: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "portal",
			Name:      "guard_denials_total",
			Help:      "Dashboard visits refused by the role guard.",
		}, []string{"dashboard"}),
		carousel: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "portal",
			Name:      "carousel_views",
			Help:      "Login carousels currently mounted.",
		}),
		backend: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "portal",
			Name:      "backend_errors_total",
			Help:      "Failed backend listings by endpoint.",
		}, []string{"endpoint"}),
	}
	m.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.logins,
		m.denials,
		m.carousel,
		m.backend,
	)
	return m
}

func (m *metrics) handler() echo.HandlerFunc {
	return echo.WrapHandler(promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{}))
}
