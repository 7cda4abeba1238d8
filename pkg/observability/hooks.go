// Package observability provides hooks for metrics and tracing.
//
// This package enables optional instrumentation without adding hard
// dependencies on a specific backend to the domain packages. Services and the
// HTTP server receive a [Hooks] value and call it to report events about note
// placement, cache usage and served requests.
//
// # Architecture
//
// The package uses a simple hooks pattern:
//   - Define hook interfaces for different event categories
//   - Provide no-op default implementations
//   - Inject the chosen implementation where it is needed
//
// Hooks are passed explicitly rather than registered globally so that tests
// and multiple servers in one process never share instrumentation state.
//
// # Usage
//
//	hooks := observability.NewPrometheus(prometheus.NewRegistry())
//	svc := notes.NewService(store, notes.Options{Hooks: hooks.Hooks()})
//
// A zero [Hooks] is valid; [Hooks.WithDefaults] fills missing fields with
// no-op implementations.
package observability

import (
	"context"
	"time"
)

// =============================================================================
// Placement Hooks
// =============================================================================

// PlacementHooks receives events from the note placement advisor.
type PlacementHooks interface {
	// OnSuggest records one placement decision.
	OnSuggest(ctx context.Context, adjusted, exhausted bool, attempts int)
}

// =============================================================================
// Cache Hooks
// =============================================================================

// CacheHooks receives events from cache operations.
type CacheHooks interface {
	// OnCacheHit records a cache hit.
	OnCacheHit(ctx context.Context, keyType string)

	// OnCacheMiss records a cache miss.
	OnCacheMiss(ctx context.Context, keyType string)

	// OnCacheSet records a cache write.
	OnCacheSet(ctx context.Context, keyType string, size int)
}

// =============================================================================
// HTTP Hooks
// =============================================================================

// HTTPHooks receives events from the HTTP server.
type HTTPHooks interface {
	// OnResponse records a served request. Route is the matched pattern,
	// not the raw path, to keep label cardinality bounded.
	OnResponse(ctx context.Context, method, route string, statusCode int, duration time.Duration)
}

// =============================================================================
// No-op Implementations
// =============================================================================

// NoopPlacementHooks is a no-op implementation of PlacementHooks.
type NoopPlacementHooks struct{}

func (NoopPlacementHooks) OnSuggest(context.Context, bool, bool, int) {}

// NoopCacheHooks is a no-op implementation of CacheHooks.
type NoopCacheHooks struct{}

func (NoopCacheHooks) OnCacheHit(context.Context, string)      {}
func (NoopCacheHooks) OnCacheMiss(context.Context, string)     {}
func (NoopCacheHooks) OnCacheSet(context.Context, string, int) {}

// NoopHTTPHooks is a no-op implementation of HTTPHooks.
type NoopHTTPHooks struct{}

func (NoopHTTPHooks) OnResponse(context.Context, string, string, int, time.Duration) {}

// =============================================================================
// Hook Set
// =============================================================================

// Hooks bundles the hook implementations handed to services and the server.
type Hooks struct {
	Placement PlacementHooks
	Cache     CacheHooks
	HTTP      HTTPHooks
}

// Noop returns a Hooks value where every hook does nothing.
func Noop() Hooks {
	return Hooks{
		Placement: NoopPlacementHooks{},
		Cache:     NoopCacheHooks{},
		HTTP:      NoopHTTPHooks{},
	}
}

// WithDefaults returns h with nil fields replaced by no-op implementations.
func (h Hooks) WithDefaults() Hooks {
	if h.Placement == nil {
		h.Placement = NoopPlacementHooks{}
	}
	if h.Cache == nil {
		h.Cache = NoopCacheHooks{}
	}
	if h.HTTP == nil {
		h.HTTP = NoopHTTPHooks{}
	}
	return h
}
