// Package metrics holds the Prometheus collectors that record statement
// traffic and schema builds.
package metrics

import (
	"time"

	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "yorm"

// Metrics groups the collectors shared by one yorm.DB. A nil *Metrics is
// valid and records nothing.
type Metrics struct {
	Statements   *prometheus.CounterVec
	Failures     *prometheus.CounterVec
	Duration     *prometheus.HistogramVec
	SchemaBuilds prometheus.Counter
}

// New creates unregistered collectors.
func New() *Metrics {
	return &Metrics{
		Statements: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "statements_total",
			Help:      "Statements executed, by operation and table.",
		}, []string{"op", "table"}),
		Failures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "statement_failures_total",
			Help:      "Statements that returned an error, by operation and table.",
		}, []string{"op", "table"}),
		Duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "statement_duration_seconds",
			Help:      "Statement latency, by operation.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"op"}),
		SchemaBuilds: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "schema_builds_total",
			Help:      "Table descriptors derived from record types.",
		}),
	}
}

// Register adds every collector to r.
func (m *Metrics) Register(r prometheus.Registerer) error {
	for _, c := range []prometheus.Collector{m.Statements, m.Failures, m.Duration, m.SchemaBuilds} {
		if err := r.Register(c); err != nil {
			return errors.Wrap(err, "register collector")
		}
	}
	return nil
}

// ObserveStatement records one executed statement.
func (m *Metrics) ObserveStatement(op, table string, start time.Time, err error) {
	if m == nil {
		return
	}
	m.Statements.WithLabelValues(op, table).Inc()
	if err != nil {
		m.Failures.WithLabelValues(op, table).Inc()
	}
	m.Duration.WithLabelValues(op).Observe(time.Since(start).Seconds())
}

// ObserveSchemaBuild records one descriptor build.
func (m *Metrics) ObserveSchemaBuild() {
	if m == nil {
		return
	}
	m.SchemaBuilds.Inc()
}
