/*
Package metrics collects deployment run metrics. There is no long-running
process to scrape, so metrics are written in Prometheus text format to a
file (for node_exporter textfile collector or CI artifacts).
*/
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Contract deployment results.
const (
	ResultDeployed = "deployed"
	ResultReused   = "reused"
	ResultFailed   = "failed"
)

const namespace = "evmdeploy"

// Metrics is a set of deployment metrics with its own registry. A nil
// *Metrics is valid and drops everything.
type Metrics struct {
	registry  *prometheus.Registry
	contracts *prometheus.CounterVec
	duration  *prometheus.HistogramVec
	version   *prometheus.GaugeVec
}

// New creates and registers deployment metrics.
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		contracts: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Help:      "Number of contract deployment steps by result",
				Name:      "contracts_total",
				Namespace: namespace,
			},
			[]string{"network", "result"},
		),
		duration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Help:      "Module build time",
				Name:      "module_duration_seconds",
				Namespace: namespace,
				Buckets:   []float64{0.1, 0.5, 1, 5, 15, 30, 60, 120, 300},
			},
			[]string{"module"},
		),
		version: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Help:      "evmdeploy version",
				Name:      "version",
				Namespace: namespace,
			},
			[]string{"version"},
		),
	}
	m.registry.MustRegister(m.contracts, m.duration, m.version)
	return m
}

// SetVersion records the application version.
func (m *Metrics) SetVersion(v string) {
	if m == nil {
		return
	}
	m.version.WithLabelValues(v).Set(1)
}

// ObserveContract counts a contract deployment step.
func (m *Metrics) ObserveContract(network, result string) {
	if m == nil {
		return
	}
	m.contracts.WithLabelValues(network, result).Inc()
}

// ObserveModule records module build time.
func (m *Metrics) ObserveModule(module string, d time.Duration) {
	if m == nil {
		return
	}
	m.duration.WithLabelValues(module).Observe(d.Seconds())
}

// Gatherer returns the registry metrics are collected in.
func (m *Metrics) Gatherer() prometheus.Gatherer {
	return m.registry
}

// WriteTextfile writes all metrics to the file at path in text exposition
// format. The file is replaced atomically.
func (m *Metrics) WriteTextfile(path string) error {
	return prometheus.WriteToTextfile(path, m.registry)
}
