package api

import (
	"github.com/rollfed/gangrun/pkg/geometry"
	"github.com/rollfed/gangrun/pkg/impose"
	"github.com/rollfed/gangrun/pkg/plan"
)

// =============================================================================
// Request DTOs
// =============================================================================

// PlanOrderRequest is the request body for POST /api/v1/orders/{orderID}/plan.
// Weights and policy are optional; zero values take the house defaults.
type PlanOrderRequest struct {
	Items   []plan.Item      `json:"items"`
	Dieline geometry.Dieline `json:"dieline"`
	Weights plan.Weights     `json:"weights,omitempty"`
	Policy  plan.Policy      `json:"policy,omitempty"`
}

// SuggestOrderRequest is the request body for POST
// /api/v1/orders/{orderID}/suggest. The body may be empty.
type SuggestOrderRequest struct {
	// Refresh bypasses the suggestion cache and forces a fresh call.
	Refresh bool `json:"refresh,omitempty"`
}

// ImposeOrderRequest is the request body for POST
// /api/v1/orders/{orderID}/impose. The body may be empty.
type ImposeOrderRequest struct {
	// Force re-imposes runs that already completed, clearing their
	// artifacts first.
	Force bool `json:"force,omitempty"`
}

// =============================================================================
// Response DTOs
// =============================================================================

// PlanResponse is the response body for the plan endpoint.
type PlanResponse struct {
	OrderID    string              `json:"order_id"`
	Options    []plan.LayoutOption `json:"options"`
	SelectedID string              `json:"selected_id"`
	Slots      geometry.SlotConfig `json:"slots"`
	Stats      plan.Stats          `json:"stats"`
}

// SuggestResponse is the response body for the suggest endpoint.
//
// When the suggestion service is rate limited the endpoint degrades instead
// of failing: Degraded is true, Notice explains why, and Options carries the
// stored candidates unchanged.
type SuggestResponse struct {
	OrderID            string              `json:"order_id"`
	Options            []plan.LayoutOption `json:"options"`
	SelectedID         string              `json:"selected_id"`
	Suggestion         *plan.LayoutOption  `json:"suggestion,omitempty"`
	SuggestionSelected bool                `json:"suggestion_selected"`
	Degraded           bool                `json:"degraded"`
	Notice             string              `json:"notice,omitempty"`
}

// SelectResponse is the response body for the select endpoint.
type SelectResponse struct {
	OrderID    string            `json:"order_id"`
	SelectedID string            `json:"selected_id"`
	Option     plan.LayoutOption `json:"option"`
}

// ImposeAccepted is the response body for a successfully started batch.
// The batch runs in the background; poll the progress endpoint for state.
type ImposeAccepted struct {
	OrderID string `json:"order_id"`
	Runs    int    `json:"runs"`
	Force   bool   `json:"force"`
}

// ProgressResponse is the response body for the impose progress endpoint.
// Report is set once the batch has finished.
type ProgressResponse struct {
	OrderID  string          `json:"order_id"`
	Progress impose.Progress `json:"progress"`
	Report   *impose.Report  `json:"report,omitempty"`
}

// HealthResponse is the response body for GET /healthz.
type HealthResponse struct {
	Status  string `json:"status"`
	Version string `json:"version"`
	Commit  string `json:"commit"`
}
