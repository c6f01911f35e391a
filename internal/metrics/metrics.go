// Package metrics exposes Prometheus instrumentation for the monitor loop and
// the alert probe.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/luki/simtemp/internal/sample"
)

// Metrics holds the collectors for one client invocation. A nil *Metrics is
// valid and records nothing.
type Metrics struct {
	samples     prometheus.Counter
	alerts      prometheus.Counter
	readErrors  *prometheus.CounterVec
	temperature prometheus.Gauge
	outcomes    *prometheus.CounterVec
}

// New creates the collectors and registers them with reg.
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		samples: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "simtemp_samples_read_total",
			Help: "Samples decoded from the device stream.",
		}),
		alerts: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "simtemp_alerts_total",
			Help: "Samples carrying the threshold-crossed flag.",
		}),
		readErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "simtemp_read_errors_total",
			Help: "Failed sample reads by kind.",
		}, []string{"kind"}),
		temperature: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "simtemp_temperature_celsius",
			Help: "Temperature of the most recent sample.",
		}),
		outcomes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "simtemp_probe_outcomes_total",
			Help: "Alert probe results by outcome.",
		}, []string{"outcome"}),
	}
	reg.MustRegister(m.samples, m.alerts, m.readErrors, m.temperature, m.outcomes)
	return m
}

// ObserveSample records one decoded sample.
func (m *Metrics) ObserveSample(s sample.Sample) {
	if m == nil {
		return
	}
	m.samples.Inc()
	m.temperature.Set(s.Celsius())
	if s.Alert() {
		m.alerts.Inc()
	}
}

// ReadError counts a failed read of the given kind (closed, malformed, timeout, io).
func (m *Metrics) ReadError(kind string) {
	if m == nil {
		return
	}
	m.readErrors.WithLabelValues(kind).Inc()
}

// ProbeOutcome counts one probe result.
func (m *Metrics) ProbeOutcome(outcome string) {
	if m == nil {
		return
	}
	m.outcomes.WithLabelValues(outcome).Inc()
}

// Handler serves the collectors registered in g.
func Handler(g prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(g, promhttp.HandlerOpts{})
}
