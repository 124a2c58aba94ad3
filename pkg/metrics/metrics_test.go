package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegister(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := New()
	require.NoError(t, m.Register(reg))
	assert.Error(t, m.Register(reg), "registering twice must fail")
}

func TestCounters(t *testing.T) {
	m := New()

	m.CacheLookup(true)
	m.CacheLookup(true)
	m.CacheLookup(false)
	m.Operation("publish", "success")
	m.ProvisioningFailed("")
	m.ProvisioningFailed("binding")
	m.SetCachedExchanges(3)

	assert.Equal(t, 2.0, testutil.ToFloat64(m.CacheLookups.WithLabelValues("hit")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.CacheLookups.WithLabelValues("miss")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Operations.WithLabelValues("publish", "success")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.ProvisioningFailure.WithLabelValues("queue")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.ProvisioningFailure.WithLabelValues("binding")))
	assert.Equal(t, 3.0, testutil.ToFloat64(m.CachedExchanges))
}

func TestNilMetrics(t *testing.T) {
	var m *Metrics
	assert.NotPanics(t, func() {
		m.CacheLookup(true)
		m.Operation("publish", "failure")
		m.ProvisioningFailed("binding")
		m.SetCachedExchanges(1)
	})
}
