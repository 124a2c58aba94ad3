// Package metrics holds the Prometheus collectors of the data broker.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "databroker"

// Metrics contains the counters updated by the coordinators. A nil *Metrics
// is valid and records nothing.
type Metrics struct {
	CacheLookups        *prometheus.CounterVec
	Operations          *prometheus.CounterVec
	ProvisioningFailure *prometheus.CounterVec
	CachedExchanges     prometheus.Gauge
}

func New() *Metrics {
	return &Metrics{
		CacheLookups: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "cache",
				Name:      "lookups_total",
				Help:      "Exchange existence cache lookups by result (hit, miss)",
			},
			[]string{"result"},
		),
		Operations: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "operations",
				Name:      "total",
				Help:      "Completed operations by name and outcome type",
			},
			[]string{"operation", "type"},
		),
		ProvisioningFailure: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "provisioning",
				Name:      "failures_total",
				Help:      "Failed ingestion provisioning sequences by failing step",
			},
			[]string{"step"},
		),
		CachedExchanges: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Subsystem: "cache",
				Name:      "exchanges",
				Help:      "Exchanges known to the existence cache after the last warm-up",
			},
		),
	}
}

// Register adds all collectors to reg.
func (m *Metrics) Register(reg prometheus.Registerer) error {
	for _, c := range []prometheus.Collector{
		m.CacheLookups,
		m.Operations,
		m.ProvisioningFailure,
		m.CachedExchanges,
	} {
		if err := reg.Register(c); err != nil {
			return err
		}
	}
	return nil
}

func (m *Metrics) CacheLookup(hit bool) {
	if m == nil {
		return
	}
	result := "miss"
	if hit {
		result = "hit"
	}
	m.CacheLookups.WithLabelValues(result).Inc()
}

func (m *Metrics) Operation(name, outcomeType string) {
	if m == nil {
		return
	}
	m.Operations.WithLabelValues(name, outcomeType).Inc()
}

func (m *Metrics) ProvisioningFailed(step string) {
	if m == nil {
		return
	}
	if step == "" {
		step = "queue"
	}
	m.ProvisioningFailure.WithLabelValues(step).Inc()
}

func (m *Metrics) SetCachedExchanges(n int) {
	if m == nil {
		return
	}
	m.CachedExchanges.Set(float64(n))
}
