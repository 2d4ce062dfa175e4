package metrics

import (
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestObserveStatement(t *testing.T) {
	m := New()

	m.ObserveStatement("insert", "user", time.Now(), nil)
	m.ObserveStatement("insert", "user", time.Now(), errors.New("boom"))
	m.ObserveStatement("get", "user", time.Now(), nil)

	assert.Equal(t, 2.0, testutil.ToFloat64(m.Statements.WithLabelValues("insert", "user")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Failures.WithLabelValues("insert", "user")))
	assert.Equal(t, 0.0, testutil.ToFloat64(m.Failures.WithLabelValues("get", "user")))
}

func TestObserveSchemaBuild(t *testing.T) {
	m := New()
	m.ObserveSchemaBuild()
	m.ObserveSchemaBuild()
	assert.Equal(t, 2.0, testutil.ToFloat64(m.SchemaBuilds))
}

func TestNilMetricsIsNoop(t *testing.T) {
	var m *Metrics
	assert.NotPanics(t, func() {
		m.ObserveStatement("get", "user", time.Now(), nil)
		m.ObserveSchemaBuild()
	})
}

func TestRegister(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := New()
	require.NoError(t, m.Register(reg))

	// A second set of collectors with the same names must be rejected.
	err := New().Register(reg)
	require.Error(t, err)
	var are prometheus.AlreadyRegisteredError
	assert.True(t, errors.As(err, &are))
}
