package metrics

import (
	trialmetrics "github.com/gxo-labs/trialkit/pkg/trialkit/v1/metrics"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

// PrometheusRegistryProvider implements the RegistryProvider interface
// using a dedicated Prometheus registry.
type PrometheusRegistryProvider struct {
	registry *prometheus.Registry
}

// NewPrometheusRegistryProvider creates a new metrics provider backed by Prometheus.
func NewPrometheusRegistryProvider() *PrometheusRegistryProvider {
	return &PrometheusRegistryProvider{
		registry: prometheus.NewRegistry(),
	}
}

// NewProcessRegistryProvider creates a provider whose registry also carries
// the Go runtime and process collectors. The CLI exposes it over /metrics.
func NewProcessRegistryProvider() *PrometheusRegistryProvider {
	p := NewPrometheusRegistryProvider()
	p.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return p
}

// Registry returns the underlying Prometheus registry.
func (p *PrometheusRegistryProvider) Registry() *prometheus.Registry {
	return p.registry
}

var _ trialmetrics.RegistryProvider = (*PrometheusRegistryProvider)(nil)
