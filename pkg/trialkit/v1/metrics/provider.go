package metrics

import "github.com/prometheus/client_golang/prometheus"

// RegistryProvider defines the interface for accessing the engine's metrics registry.
// Hosts expose the registry however they like (e.g. a Prometheus HTTP endpoint).
type RegistryProvider interface {
	// Registry returns the Prometheus registry containing trialkit engine metrics.
	Registry() *prometheus.Registry
}
