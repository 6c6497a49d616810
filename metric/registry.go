package metric

import (
	stderrors "errors"
	"fmt"
	"sync"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/agubler/store/errors"
)

// Registrar defines the interface for registering store-specific metrics
type Registrar interface {
	RegisterCounter(storeName, metricName string, counter prometheus.Counter) error
	RegisterCounterVec(storeName, metricName string, counterVec *prometheus.CounterVec) error
	RegisterGauge(storeName, metricName string, gauge prometheus.Gauge) error
	RegisterHistogram(storeName, metricName string, histogram prometheus.Histogram) error
	Unregister(storeName, metricName string) bool
}

// Registry manages the registration and lifecycle of metrics for a store
// hierarchy. It wraps a dedicated Prometheus registry and tracks registered
// collectors by "store.metric" key so duplicates fail fast.
type Registry struct {
	prometheusRegistry *prometheus.Registry
	registeredMetrics  map[string]prometheus.Collector
	mu                 sync.RWMutex
}

// NewRegistry creates a new metrics registry backed by a fresh Prometheus
// registry
func NewRegistry() *Registry {
	return &Registry{
		prometheusRegistry: prometheus.NewRegistry(),
		registeredMetrics:  make(map[string]prometheus.Collector),
	}
}

// PrometheusRegistry returns the underlying Prometheus registry, typically
// to expose it through the caller's metrics endpoint
func (r *Registry) PrometheusRegistry() *prometheus.Registry {
	return r.prometheusRegistry
}

// RegisterCounter registers a counter metric for a store
func (r *Registry) RegisterCounter(storeName, metricName string, counter prometheus.Counter) error {
	return r.register(storeName, metricName, counter, "RegisterCounter")
}

// RegisterCounterVec registers a labeled counter metric for a store
func (r *Registry) RegisterCounterVec(storeName, metricName string, counterVec *prometheus.CounterVec) error {
	return r.register(storeName, metricName, counterVec, "RegisterCounterVec")
}

// RegisterGauge registers a gauge metric for a store
func (r *Registry) RegisterGauge(storeName, metricName string, gauge prometheus.Gauge) error {
	return r.register(storeName, metricName, gauge, "RegisterGauge")
}

// RegisterHistogram registers a histogram metric for a store
func (r *Registry) RegisterHistogram(storeName, metricName string, histogram prometheus.Histogram) error {
	return r.register(storeName, metricName, histogram, "RegisterHistogram")
}

func (r *Registry) register(storeName, metricName string, collector prometheus.Collector, op string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	key := fmt.Sprintf("%s.%s", storeName, metricName)

	if _, exists := r.registeredMetrics[key]; exists {
		return errors.WrapInvalid(
			fmt.Errorf("metric %s already registered for store %s", metricName, storeName),
			"Registry", op, "duplicate metric registration")
	}

	if err := r.prometheusRegistry.Register(collector); err != nil {
		var alreadyRegErr prometheus.AlreadyRegisteredError
		if stderrors.As(err, &alreadyRegErr) {
			return errors.WrapInvalid(err, "Registry", op,
				fmt.Sprintf("prometheus conflict for metric %s", metricName))
		}
		return errors.WrapFatal(err, "Registry", op, "register collector with prometheus")
	}

	r.registeredMetrics[key] = collector
	return nil
}

// Unregister removes a metric. Returns true if the metric was registered.
func (r *Registry) Unregister(storeName, metricName string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	key := fmt.Sprintf("%s.%s", storeName, metricName)
	collector, exists := r.registeredMetrics[key]
	if !exists {
		return false
	}

	r.prometheusRegistry.Unregister(collector)
	delete(r.registeredMetrics, key)
	return true
}
