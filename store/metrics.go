package store

import (
	"github.com/prometheus/client_golang/prometheus"

	"github.com/agubler/store/metric"
)

// storeMetrics holds Prometheus metrics for store operations
type storeMetrics struct {
	mutations       *prometheus.CounterVec
	fetches         prometheus.Counter
	cacheHits       prometheus.Counter
	cacheMisses     prometheus.Counter
	eventsPublished prometheus.Counter
	size            prometheus.Gauge
}

// newStoreMetrics creates and registers store metrics with the provided registry
func newStoreMetrics(registry *metric.Registry, name string) (*storeMetrics, error) {
	m := &storeMetrics{
		mutations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace:   "store",
			Subsystem:   "core",
			Name:        "mutations_total",
			ConstLabels: prometheus.Labels{"store": name},
			Help:        "Total number of mutation operations by kind",
		}, []string{"kind"}),
		fetches: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace:   "store",
			Subsystem:   "core",
			Name:        "fetches_total",
			ConstLabels: prometheus.Labels{"store": name},
			Help:        "Total number of fetch calls",
		}),
		cacheHits: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace:   "store",
			Subsystem:   "core",
			Name:        "cache_hits_total",
			ConstLabels: prometheus.Labels{"store": name},
			Help:        "Fetches served from cached data",
		}),
		cacheMisses: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace:   "store",
			Subsystem:   "core",
			Name:        "cache_misses_total",
			ConstLabels: prometheus.Labels{"store": name},
			Help:        "Fetches that recomputed from the source",
		}),
		eventsPublished: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace:   "store",
			Subsystem:   "core",
			Name:        "events_published_total",
			ConstLabels: prometheus.Labels{"store": name},
			Help:        "Total number of mutation events published to subscribers",
		}),
		size: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace:   "store",
			Subsystem:   "core",
			Name:        "size",
			ConstLabels: prometheus.Labels{"store": name},
			Help:        "Current number of items in the store",
		}),
	}

	if err := registry.RegisterCounterVec(name, "mutations_total", m.mutations); err != nil {
		return nil, err
	}
	if err := registry.RegisterCounter(name, "fetches_total", m.fetches); err != nil {
		return nil, err
	}
	if err := registry.RegisterCounter(name, "cache_hits_total", m.cacheHits); err != nil {
		return nil, err
	}
	if err := registry.RegisterCounter(name, "cache_misses_total", m.cacheMisses); err != nil {
		return nil, err
	}
	if err := registry.RegisterCounter(name, "events_published_total", m.eventsPublished); err != nil {
		return nil, err
	}
	if err := registry.RegisterGauge(name, "size", m.size); err != nil {
		return nil, err
	}
	return m, nil
}

func (m *storeMetrics) recordMutation(kind string) {
	m.mutations.WithLabelValues(kind).Inc()
}

func (m *storeMetrics) recordFetch(hit bool) {
	m.fetches.Inc()
	if hit {
		m.cacheHits.Inc()
	} else {
		m.cacheMisses.Inc()
	}
}

func (m *storeMetrics) recordEvents(n int) {
	m.eventsPublished.Add(float64(n))
}

func (m *storeMetrics) updateSize(size int) {
	m.size.Set(float64(size))
}
