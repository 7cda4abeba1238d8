package observability

import (
	"context"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Prometheus implements every hook interface on top of prometheus collectors.
type Prometheus struct {
	suggestions  *prometheus.CounterVec
	attempts     prometheus.Histogram
	cacheEvents  *prometheus.CounterVec
	cacheBytes   *prometheus.CounterVec
	httpRequests *prometheus.CounterVec
	httpDuration *prometheus.HistogramVec
}

// NewPrometheus creates the collectors and registers them with reg.
// It panics if registration fails, as prometheus.MustRegister does.
func NewPrometheus(reg prometheus.Registerer) *Prometheus {
	p := &Prometheus{
		suggestions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "folio",
			Subsystem: "placement",
			Name:      "suggestions_total",
			Help:      "Note placement decisions by outcome.",
		}, []string{"outcome"}),
		attempts: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "folio",
			Subsystem: "placement",
			Name:      "attempts",
			Help:      "Spiral candidates evaluated per placement.",
			Buckets:   []float64{0, 1, 4, 8, 16, 32, 64, 120},
		}),
		cacheEvents: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "folio",
			Subsystem: "cache",
			Name:      "events_total",
			Help:      "Cache lookups and writes by key type.",
		}, []string{"key_type", "event"}),
		cacheBytes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "folio",
			Subsystem: "cache",
			Name:      "written_bytes_total",
			Help:      "Bytes written to the cache by key type.",
		}, []string{"key_type"}),
		httpRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "folio",
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Served HTTP requests.",
		}, []string{"method", "route", "code"}),
		httpDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "folio",
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "HTTP request latency.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "route"}),
	}
	reg.MustRegister(p.suggestions, p.attempts, p.cacheEvents, p.cacheBytes, p.httpRequests, p.httpDuration)
	return p
}

// Hooks returns a Hooks value backed by p.
func (p *Prometheus) Hooks() Hooks {
	return Hooks{Placement: p, Cache: p, HTTP: p}
}

// OnSuggest implements PlacementHooks.
func (p *Prometheus) OnSuggest(_ context.Context, adjusted, exhausted bool, attempts int) {
	outcome := "unchanged"
	switch {
	case exhausted:
		outcome = "exhausted"
	case adjusted:
		outcome = "adjusted"
	}
	p.suggestions.WithLabelValues(outcome).Inc()
	p.attempts.Observe(float64(attempts))
}

// OnCacheHit implements CacheHooks.
func (p *Prometheus) OnCacheHit(_ context.Context, keyType string) {
	p.cacheEvents.WithLabelValues(keyType, "hit").Inc()
}

// OnCacheMiss implements CacheHooks.
func (p *Prometheus) OnCacheMiss(_ context.Context, keyType string) {
	p.cacheEvents.WithLabelValues(keyType, "miss").Inc()
}

// OnCacheSet implements CacheHooks.
func (p *Prometheus) OnCacheSet(_ context.Context, keyType string, size int) {
	p.cacheEvents.WithLabelValues(keyType, "set").Inc()
	p.cacheBytes.WithLabelValues(keyType).Add(float64(size))
}

// OnResponse implements HTTPHooks.
func (p *Prometheus) OnResponse(_ context.Context, method, route string, statusCode int, duration time.Duration) {
	if route == "" {
		route = "unmatched"
	}
	p.httpRequests.WithLabelValues(method, route, strconv.Itoa(statusCode)).Inc()
	p.httpDuration.WithLabelValues(method, route).Observe(duration.Seconds())
}

var (
	_ PlacementHooks = (*Prometheus)(nil)
	_ CacheHooks     = (*Prometheus)(nil)
	_ HTTPHooks      = (*Prometheus)(nil)
)
