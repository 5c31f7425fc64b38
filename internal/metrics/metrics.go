// Package metrics holds the Prometheus collectors shared by the frame
// services, the position cache, the notifier, and the HTTP server.
//
// A nil *Metrics is valid and records nothing, so packages can be used in
// tests without a registry.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "stagehand"

// Metrics bundles every collector the server exposes.
type Metrics struct {
	registry *prometheus.Registry

	cacheLookups    *prometheus.CounterVec
	cacheEvictions  prometheus.Counter
	cacheRebuildDur prometheus.Histogram

	lockAttempts *prometheus.CounterVec
	lockReleases *prometheus.CounterVec

	frameMutations *prometheus.CounterVec

	notifyPublished   *prometheus.CounterVec
	notifyDropped     *prometheus.CounterVec
	notifySubscribers *prometheus.GaugeVec

	httpRequests *prometheus.CounterVec
	httpDuration *prometheus.HistogramVec
}

// New registers all collectors on a fresh registry that also carries the Go
// runtime and process collectors.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		prometheus.NewGoCollector(),
		prometheus.NewProcessCollector(prometheus.ProcessCollectorOpts{}),
	)
	factory := promauto.With(reg)

	return &Metrics{
		registry: reg,
		cacheLookups: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "poscache",
			Name:      "lookups_total",
			Help:      "Position cache lookups by result (hit, miss, corrupt).",
		}, []string{"result"}),
		cacheEvictions: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "poscache",
			Name:      "evictions_total",
			Help:      "Position cache entries removed.",
		}),
		cacheRebuildDur: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "poscache",
			Name:      "rebuild_duration_seconds",
			Help:      "Time spent rebuilding a snapshot from the record store.",
			Buckets:   prometheus.ExponentialBuckets(0.0005, 2, 12),
		}),
		lockAttempts: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "editlock",
			Name:      "acquire_total",
			Help:      "Edit lock acquisitions by outcome (acquired, reentrant, conflict, error).",
		}, []string{"outcome"}),
		lockReleases: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "editlock",
			Name:      "release_total",
			Help:      "Edit lock releases by outcome (released, not_held, error).",
		}, []string{"outcome"}),
		frameMutations: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "frames",
			Name:      "mutations_total",
			Help:      "Frame mutations by operation and outcome.",
		}, []string{"op", "outcome"}),
		notifyPublished: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "notify",
			Name:      "published_total",
			Help:      "Events published per topic.",
		}, []string{"topic"}),
		notifyDropped: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "notify",
			Name:      "dropped_total",
			Help:      "Events dropped because a subscriber buffer was full.",
		}, []string{"topic"}),
		notifySubscribers: factory.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "notify",
			Name:      "subscribers",
			Help:      "Live subscribers per topic.",
		}, []string{"topic"}),
		httpRequests: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "HTTP requests by route, method, and status code.",
		}, []string{"route", "method", "code"}),
		httpDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "HTTP request latency by route.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"route"}),
	}
}

// Registry exposes the underlying registry for the /metrics handler.
func (m *Metrics) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
}

// CacheLookup counts one cache lookup.
func (m *Metrics) CacheLookup(result string) {
	if m == nil {
		return
	}
	m.cacheLookups.WithLabelValues(result).Inc()
}

// CacheEvicted counts one removed cache entry.
func (m *Metrics) CacheEvicted() {
	if m == nil {
		return
	}
	m.cacheEvictions.Inc()
}

// CacheRebuilt records how long a snapshot rebuild took.
func (m *Metrics) CacheRebuilt(elapsed time.Duration) {
	if m == nil {
		return
	}
	m.cacheRebuildDur.Observe(elapsed.Seconds())
}

// LockAttempt counts one acquire outcome.
func (m *Metrics) LockAttempt(outcome string) {
	if m == nil {
		return
	}
	m.lockAttempts.WithLabelValues(outcome).Inc()
}

// LockReleased counts one release outcome.
func (m *Metrics) LockReleased(outcome string) {
	if m == nil {
		return
	}
	m.lockReleases.WithLabelValues(outcome).Inc()
}

// FrameMutation counts one frame create, edit, delete, or position write.
func (m *Metrics) FrameMutation(op, outcome string) {
	if m == nil {
		return
	}
	m.frameMutations.WithLabelValues(op, outcome).Inc()
}

// EventPublished counts one event accepted by the hub.
func (m *Metrics) EventPublished(topic string) {
	if m == nil {
		return
	}
	m.notifyPublished.WithLabelValues(topic).Inc()
}

// EventDropped counts one event a subscriber could not take.
func (m *Metrics) EventDropped(topic string) {
	if m == nil {
		return
	}
	m.notifyDropped.WithLabelValues(topic).Inc()
}

// SubscriberDelta moves the live subscriber gauge for topic.
func (m *Metrics) SubscriberDelta(topic string, delta float64) {
	if m == nil {
		return
	}
	m.notifySubscribers.WithLabelValues(topic).Add(delta)
}

// HTTPRequest records one served request.
func (m *Metrics) HTTPRequest(route, method, code string, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.httpRequests.WithLabelValues(route, method, code).Inc()
	m.httpDuration.WithLabelValues(route).Observe(elapsed.Seconds())
}
