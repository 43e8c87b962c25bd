package metrics

import (
	"errors"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"go.jacobcolvin.com/crdview/crd"
)

// Namespace prefixes every metric name.
const Namespace = "crdview"

// Load outcomes, used as the "outcome" label.
const (
	OutcomeOK            = "ok"
	OutcomeAcquire       = "acquire_error"
	OutcomeParse         = "parse_error"
	OutcomeNoDefinitions = "no_definitions"
	OutcomeError         = "error"
)

// Metrics holds the collectors for one process. The zero value is not
// usable; create instances with [New].
type Metrics struct {
	registry     *prometheus.Registry
	loads        *prometheus.CounterVec
	loadDuration prometheus.Histogram
	definitions  prometheus.Gauge
	rows         prometheus.Histogram
	toggles      prometheus.Counter
}

// New creates a [Metrics] on its own registry, including the Go and
// process collectors.
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
	}

	m.loads = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: Namespace,
		Name:      "loads_total",
		Help:      "Number of source loads by outcome",
	}, []string{"outcome"})

	m.loadDuration = prometheus.NewHistogram(prometheus.HistogramOpts{
		Namespace: Namespace,
		Name:      "load_duration_seconds",
		Help:      "Time spent fetching and parsing a source",
		Buckets:   prometheus.ExponentialBuckets(0.005, 4, 8),
	})

	m.definitions = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: Namespace,
		Name:      "definitions",
		Help:      "Number of CustomResourceDefinitions in the current collection",
	})

	m.rows = prometheus.NewHistogram(prometheus.HistogramOpts{
		Namespace: Namespace,
		Name:      "rendered_rows",
		Help:      "Number of tree rows produced per render",
		Buckets:   prometheus.ExponentialBuckets(1, 4, 7),
	})

	m.toggles = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: Namespace,
		Name:      "toggles_total",
		Help:      "Number of node expand or collapse actions",
	})

	m.registry.MustRegister(
		m.loads,
		m.loadDuration,
		m.definitions,
		m.rows,
		m.toggles,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	for _, outcome := range []string{OutcomeOK, OutcomeAcquire, OutcomeParse, OutcomeNoDefinitions, OutcomeError} {
		m.loads.WithLabelValues(outcome)
	}

	return m
}

// Outcome maps a load error to its outcome label.
func Outcome(err error) string {
	switch {
	case err == nil:
		return OutcomeOK
	case errors.Is(err, crd.ErrAcquire):
		return OutcomeAcquire
	case errors.Is(err, crd.ErrParse):
		return OutcomeParse
	case errors.Is(err, crd.ErrNoDefinitions):
		return OutcomeNoDefinitions
	}

	return OutcomeError
}

// ObserveLoad records a finished load. On success n is the size of the new
// collection; failed loads leave the definitions gauge alone.
func (m *Metrics) ObserveLoad(d time.Duration, n int, err error) {
	m.loads.WithLabelValues(Outcome(err)).Inc()
	m.loadDuration.Observe(d.Seconds())

	if err == nil {
		m.definitions.Set(float64(n))
	}
}

// SetDefinitions sets the size of the current collection.
func (m *Metrics) SetDefinitions(n int) {
	m.definitions.Set(float64(n))
}

// ObserveRows records the size of one render.
func (m *Metrics) ObserveRows(n int) {
	m.rows.Observe(float64(n))
}

// ObserveToggle counts one expand or collapse.
func (m *Metrics) ObserveToggle() {
	m.toggles.Inc()
}

// Registry returns the underlying registry.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{
		Registry: m.registry,
	})
}
