package dashboard

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics counts shell renders by view and response status.
type Metrics struct {
	renders  *prometheus.CounterVec
	duration *prometheus.HistogramVec
}

// NewMetrics creates the shell metrics and registers them with reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		renders: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "dashboard",
				Subsystem: "shell",
				Name:      "renders_total",
				Help:      "Total number of shell renders",
			},
			[]string{"view", "status_code"},
		),
		duration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: "dashboard",
				Subsystem: "shell",
				Name:      "render_duration_seconds",
				Help:      "Shell render duration in seconds",
				Buckets:   []float64{0.0005, 0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 1},
			},
			[]string{"view"},
		),
	}
	reg.MustRegister(m.renders, m.duration)
	return m
}

// observe records one render. It is a no-op on a nil receiver.
func (m *Metrics) observe(view string, status int, d time.Duration) {
	if m == nil {
		return
	}
	if view == "" {
		view = "none"
	}
	m.renders.WithLabelValues(view, strconv.Itoa(status)).Inc()
	m.duration.WithLabelValues(view).Observe(d.Seconds())
}
