package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const (
	OutcomeSuccess      = "success"
	OutcomeCached       = "cached"
	OutcomeEngineFailed = "engine_failure"
	OutcomeTimeout      = "timeout"
	OutcomeInvocation   = "invocation_error"
	OutcomeNotFound     = "not_configured"
)

type IMetrics interface {
	ObserveRecognition(outcome string, duration time.Duration)
	ObservePlateSaved()
	Handler() http.Handler
}

type metrics struct {
	registry    *prometheus.Registry
	recognition *prometheus.CounterVec
	duration    prometheus.Histogram
	saved       prometheus.Counter
}

func New() IMetrics {
	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	m := &metrics{
		registry: registry,
		recognition: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "alpr",
			Name:      "recognitions_total",
			Help:      "Recognition requests by outcome.",
		}, []string{"outcome"}),
		duration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "alpr",
			Name:      "recognition_duration_seconds",
			Help:      "Wall clock time of alpr invocations.",
			Buckets:   []float64{0.1, 0.25, 0.5, 1, 2, 5, 10, 20, 30},
		}),
		saved: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "alpr",
			Name:      "plates_saved_total",
			Help:      "Plate records persisted.",
		}),
	}
	registry.MustRegister(m.recognition, m.duration, m.saved)

	return m
}

func (m *metrics) ObserveRecognition(outcome string, duration time.Duration) {
	m.recognition.WithLabelValues(outcome).Inc()
	if outcome != OutcomeCached && duration > 0 {
		m.duration.Observe(duration.Seconds())
	}
}

func (m *metrics) ObservePlateSaved() {
	m.saved.Inc()
}

func (m *metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
