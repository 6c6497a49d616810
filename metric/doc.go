// Package metric provides Prometheus-based metrics registration for store
// observability.
//
// The Registry wraps a dedicated Prometheus registry and tracks registered
// collectors by "store.metric" key so duplicate registrations fail fast
// instead of silently shadowing one another. Stores export their operation
// statistics through it when metrics are enabled via store.WithMetrics;
// callers expose Registry.PrometheusRegistry() through whatever metrics
// endpoint their application already serves.
package metric
