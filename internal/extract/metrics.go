package extract

import (
	"errors"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics counts pass attempts and outcomes. A nil *Metrics is a no-op.
type Metrics struct {
	attempts *prometheus.CounterVec
	latency  *prometheus.HistogramVec
	results  *prometheus.CounterVec
}

// NewMetrics registers the extraction collectors on reg. Collectors that are
// already registered are reused.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		attempts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "cardscan",
			Subsystem: "extract",
			Name:      "pass_total",
			Help:      "Backend attempts per pass and outcome.",
		}, []string{"pass", "outcome"}),
		latency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "cardscan",
			Subsystem: "extract",
			Name:      "duration_seconds",
			Help:      "Latency of a single backend attempt.",
			Buckets:   []float64{0.25, 0.5, 1, 2, 5, 10, 20, 45},
		}, []string{"pass"}),
		results: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "cardscan",
			Subsystem: "extract",
			Name:      "results_total",
			Help:      "Extraction results by source of the structured fields.",
		}, []string{"source"}),
	}
	if reg != nil {
		m.attempts = register(reg, m.attempts)
		m.latency = register(reg, m.latency)
		m.results = register(reg, m.results)
	}
	return m
}

func register[T prometheus.Collector](reg prometheus.Registerer, c T) T {
	if err := reg.Register(c); err != nil {
		var are prometheus.AlreadyRegisteredError
		if errors.As(err, &are) {
			if existing, ok := are.ExistingCollector.(T); ok {
				return existing
			}
		}
	}
	return c
}

func (m *Metrics) observeAttempt(pass, outcome string, d time.Duration) {
	if m == nil {
		return
	}
	m.attempts.WithLabelValues(pass, outcome).Inc()
	m.latency.WithLabelValues(pass).Observe(d.Seconds())
}

func (m *Metrics) observeResult(source string) {
	if m == nil {
		return
	}
	m.results.WithLabelValues(source).Inc()
}
