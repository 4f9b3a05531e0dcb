// Package metric provides Prometheus metrics registration and serving for
// the blob collection store. A MetricsRegistry owns a private Prometheus
// registry preloaded with core store metrics and Go runtime collectors;
// components register their own metrics through the MetricsRegistrar
// interface. Server exposes the registry over HTTP.
package metric
