// Package observability provides hooks for metrics, tracing, and logging.
//
// This package enables optional instrumentation without adding hard dependencies
// on specific observability backends. Consumers can register hooks at startup
// to receive events about planning, batch imposition, and remote service calls.
//
// # Architecture
//
// The package uses a simple hooks pattern:
//   - Define hook interfaces for different event categories
//   - Provide no-op default implementations
//   - Allow registration of custom implementations at startup
//
// This approach:
//   - Avoids import cycles (hooks are registered by main, not by libraries)
//   - Keeps the core library dependency-free from observability frameworks
//   - Allows different backends (OpenTelemetry, Prometheus, DataDog, etc.)
//
// # Usage
//
// Register hooks at application startup:
//
//	func main() {
//	    observability.SetPlanHooks(&myPlanHooks{})
//	    observability.SetImposeHooks(&myImposeHooks{})
//	    // ... run application
//	}
//
// Libraries call hooks to emit events:
//
//	observability.Plan().OnPlanStart(ctx, orderID, itemCount)
//	// ... generate candidates ...
//	observability.Plan().OnPlanComplete(ctx, orderID, candidates, duration, err)
package observability

import (
	"context"
	"sync"
	"time"
)

// =============================================================================
// Plan Hooks
// =============================================================================

// PlanHooks receives events from the run planner.
type PlanHooks interface {
	// OnPlanStart records the start of candidate generation for an order.
	OnPlanStart(ctx context.Context, orderID string, itemCount int)

	// OnPlanComplete records the outcome of candidate generation.
	OnPlanComplete(ctx context.Context, orderID string, candidates int, duration time.Duration, err error)

	// OnSuggestionMerged records an external suggestion folded into the
	// candidate set. selected reports whether it became the selection.
	OnSuggestionMerged(ctx context.Context, orderID string, score float64, selected bool)
}

// =============================================================================
// Impose Hooks
// =============================================================================

// ImposeHooks receives events from the batch imposition orchestrator.
type ImposeHooks interface {
	// OnRunStart records a run being submitted to the imposition service.
	OnRunStart(ctx context.Context, runID string, runNumber int)

	// OnRunComplete records the outcome of one run. outcome is one of
	// "completed", "failed", "skipped".
	OnRunComplete(ctx context.Context, runID string, outcome string, duration time.Duration, err error)

	// OnBatchAborted records a circuit-breaker trip.
	OnBatchAborted(ctx context.Context, consecutiveFailures int)
}

// =============================================================================
// HTTP Hooks
// =============================================================================

// HTTPHooks receives events from HTTP client operations.
type HTTPHooks interface {
	// OnRequest records an outgoing HTTP request.
	OnRequest(ctx context.Context, method, host, path string)

	// OnResponse records an HTTP response.
	OnResponse(ctx context.Context, method, host, path string, statusCode int, duration time.Duration)

	// OnError records an HTTP error (network failure, timeout).
	OnError(ctx context.Context, method, host, path string, err error)
}

// =============================================================================
// No-op Implementations
// =============================================================================

// NoopPlanHooks is a no-op implementation of PlanHooks.
type NoopPlanHooks struct{}

func (NoopPlanHooks) OnPlanStart(context.Context, string, int) {}
func (NoopPlanHooks) OnPlanComplete(context.Context, string, int, time.Duration, error) {
}
func (NoopPlanHooks) OnSuggestionMerged(context.Context, string, float64, bool) {}

// NoopImposeHooks is a no-op implementation of ImposeHooks.
type NoopImposeHooks struct{}

func (NoopImposeHooks) OnRunStart(context.Context, string, int) {}
func (NoopImposeHooks) OnRunComplete(context.Context, string, string, time.Duration, error) {
}
func (NoopImposeHooks) OnBatchAborted(context.Context, int) {}

// NoopHTTPHooks is a no-op implementation of HTTPHooks.
type NoopHTTPHooks struct{}

func (NoopHTTPHooks) OnRequest(context.Context, string, string, string)                      {}
func (NoopHTTPHooks) OnResponse(context.Context, string, string, string, int, time.Duration) {}
func (NoopHTTPHooks) OnError(context.Context, string, string, string, error)                 {}

// =============================================================================
// Global Hook Registry
// =============================================================================

var (
	planHooks   PlanHooks   = NoopPlanHooks{}
	imposeHooks ImposeHooks = NoopImposeHooks{}
	httpHooks   HTTPHooks   = NoopHTTPHooks{}
	hooksMu     sync.RWMutex
)

// SetPlanHooks registers custom planner hooks.
// This should be called once at application startup before any planning.
func SetPlanHooks(h PlanHooks) {
	hooksMu.Lock()
	defer hooksMu.Unlock()
	if h != nil {
		planHooks = h
	}
}

// SetImposeHooks registers custom imposition hooks.
// This should be called once at application startup before any batch execution.
func SetImposeHooks(h ImposeHooks) {
	hooksMu.Lock()
	defer hooksMu.Unlock()
	if h != nil {
		imposeHooks = h
	}
}

// SetHTTPHooks registers custom HTTP hooks.
// This should be called once at application startup before any HTTP operations.
func SetHTTPHooks(h HTTPHooks) {
	hooksMu.Lock()
	defer hooksMu.Unlock()
	if h != nil {
		httpHooks = h
	}
}

// Plan returns the registered planner hooks.
func Plan() PlanHooks {
	hooksMu.RLock()
	defer hooksMu.RUnlock()
	return planHooks
}

// Impose returns the registered imposition hooks.
func Impose() ImposeHooks {
	hooksMu.RLock()
	defer hooksMu.RUnlock()
	return imposeHooks
}

// HTTP returns the registered HTTP hooks.
func HTTP() HTTPHooks {
	hooksMu.RLock()
	defer hooksMu.RUnlock()
	return httpHooks
}

// Reset restores all hooks to their no-op defaults.
// This is primarily useful for testing.
func Reset() {
	hooksMu.Lock()
	defer hooksMu.Unlock()
	planHooks = NoopPlanHooks{}
	imposeHooks = NoopImposeHooks{}
	httpHooks = NoopHTTPHooks{}
}
