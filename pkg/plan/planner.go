package plan

import (
	"context"
	"fmt"
	"time"

	"github.com/charmbracelet/log"

	"github.com/rollfed/gangrun/pkg/errors"
	"github.com/rollfed/gangrun/pkg/geometry"
	"github.com/rollfed/gangrun/pkg/observability"
)

// =============================================================================
// Planner
// =============================================================================

// Planner produces and ranks layout candidates for an order.
// Both CLI and API use this to avoid duplicating planning logic.
//
// The Planner is stateless except for the logger - it doesn't store plan
// results. Multiple goroutines can safely share the same Planner with
// different requests.
type Planner struct {
	Logger *log.Logger
}

// NewPlanner creates a planner with the given logger.
// If logger is nil, the default logger is used.
func NewPlanner(logger *log.Logger) *Planner {
	if logger == nil {
		logger = log.Default()
	}
	return &Planner{Logger: logger}
}

// =============================================================================
// Plan Request / Result
// =============================================================================

// PlanRequest contains all inputs for a planning run.
// This struct supports JSON serialization for API requests.
type PlanRequest struct {
	OrderID string                   `json:"order_id"`
	Items   []Item                   `json:"items"`
	Dieline geometry.DielineGeometry `json:"dieline"`
	Weights Weights                  `json:"weights,omitempty"`
	Policy  Policy                   `json:"policy,omitempty"`

	// validated tracks whether ValidateAndSetDefaults has been called.
	validated bool `json:"-"`
}

// ValidateAndSetDefaults validates the request and fills in defaults for
// unset weights and policy knobs. Safe to call multiple times.
func (r *PlanRequest) ValidateAndSetDefaults() error {
	if r.validated {
		return nil
	}
	if err := errors.ValidateOrderID(r.OrderID); err != nil {
		return err
	}
	if err := ValidateItems(r.Items); err != nil {
		return err
	}
	if err := r.Dieline.Validate(); err != nil {
		return err
	}
	if r.Weights.IsZero() {
		r.Weights = DefaultWeights()
	}
	if err := r.Weights.Validate(); err != nil {
		return err
	}
	r.Policy = r.Policy.withDefaults()
	if err := r.Policy.Validate(); err != nil {
		return err
	}
	r.validated = true
	return nil
}

// PlanResult contains the outputs of a planning run.
type PlanResult struct {
	// Options are the ranked candidates, best first.
	Options []LayoutOption `json:"options"`

	// SelectedID is the id of the top-ranked candidate.
	SelectedID string `json:"selected_id"`

	// Slots is the slot configuration derived from the dieline.
	Slots geometry.SlotConfig `json:"slots"`

	// Stats contains timing and size information.
	Stats Stats `json:"stats"`
}

// Selected returns the currently selected candidate, or nil if the
// selection id matches none of the options.
func (r *PlanResult) Selected() *LayoutOption {
	for i := range r.Options {
		if r.Options[i].ID == r.SelectedID {
			return &r.Options[i]
		}
	}
	return nil
}

// Stats contains planning execution statistics.
type Stats struct {
	ItemCount            int           `json:"item_count"`
	TotalRequired        int           `json:"total_required"`
	CandidateCount       int           `json:"candidate_count"`
	TheoreticalMinFrames int           `json:"theoretical_min_frames"`
	TheoreticalMinMeters float64       `json:"theoretical_min_meters"`
	ProposeTime          time.Duration `json:"propose_time"`
	ScoreTime            time.Duration `json:"score_time"`
}

// =============================================================================
// Planning
// =============================================================================

// Plan runs the complete propose → measure → score pipeline and returns the
// ranked candidates. The result is deterministic: the same request always
// yields the same candidates, scores, and selection.
func (p *Planner) Plan(ctx context.Context, req PlanRequest) (*PlanResult, error) {
	if err := req.ValidateAndSetDefaults(); err != nil {
		return nil, fmt.Errorf("invalid plan request: %w", err)
	}

	hooks := observability.Plan()
	hooks.OnPlanStart(ctx, req.OrderID, len(req.Items))
	start := time.Now()

	cfg := geometry.Derive(req.Dieline)

	// Stage 1: Propose
	proposeStart := time.Now()
	proposals := proposeAll(req.Items, cfg, req.Policy)
	if len(proposals) == 0 {
		err := errors.New(errors.ErrCodeInvalidGeometry,
			"dieline yields no usable slots for order %q", req.OrderID)
		hooks.OnPlanComplete(ctx, req.OrderID, 0, time.Since(start), err)
		return nil, err
	}
	proposeTime := time.Since(proposeStart)

	// Stage 2: Measure and score
	scoreStart := time.Now()
	options := make([]LayoutOption, len(proposals))
	for i, prop := range proposals {
		opt := LayoutOption{
			ID:        prop.strategy,
			Runs:      buildRuns(prop, cfg, req.Dieline, req.Policy),
			Reasoning: prop.reasoning,
		}
		measureOption(&opt, req.Items, cfg, req.Dieline)
		scoreOption(&opt, req.Weights, req.Policy)
		options[i] = opt
	}
	sortOptions(options)
	scoreTime := time.Since(scoreStart)

	result := &PlanResult{
		Options:    options,
		SelectedID: options[0].ID,
		Slots:      cfg,
	}
	result.Stats = Stats{
		ItemCount:            len(req.Items),
		TotalRequired:        totalRequired(req.Items),
		CandidateCount:       len(options),
		TheoreticalMinFrames: TheoreticalMinFrames(req.Items, cfg),
		ProposeTime:          proposeTime,
		ScoreTime:            scoreTime,
	}
	result.Stats.TheoreticalMinMeters = req.Dieline.Meters(result.Stats.TheoreticalMinFrames)

	p.Logger.Info("planned layout candidates",
		"order", req.OrderID,
		"items", result.Stats.ItemCount,
		"candidates", result.Stats.CandidateCount,
		"selected", result.SelectedID,
		"score", fmt.Sprintf("%.3f", options[0].OverallScore),
		"duration", time.Since(start))

	hooks.OnPlanComplete(ctx, req.OrderID, len(options), time.Since(start), nil)
	return result, nil
}

func totalRequired(items []Item) int {
	total := 0
	for _, it := range items {
		total += it.RequiredQuantity
	}
	return total
}

// =============================================================================
// Suggestion Merge Request / Result
// =============================================================================

// MergeRequest carries an external optimizer's suggestion together with the
// candidate set it should be folded into.
type MergeRequest struct {
	OrderID    string                   `json:"order_id"`
	Items      []Item                   `json:"items"`
	Dieline    geometry.DielineGeometry `json:"dieline"`
	Weights    Weights                  `json:"weights,omitempty"`
	Policy     Policy                   `json:"policy,omitempty"`
	Options    []LayoutOption           `json:"options"`
	SelectedID string                   `json:"selected_id"`
	Suggested  []SuggestedRun           `json:"suggested_runs"`
	Reasoning  string                   `json:"reasoning,omitempty"`

	// validated tracks whether ValidateAndSetDefaults has been called.
	validated bool `json:"-"`
}

// ValidateAndSetDefaults validates the request and fills in defaults for
// unset weights and policy knobs. Safe to call multiple times.
func (r *MergeRequest) ValidateAndSetDefaults() error {
	if r.validated {
		return nil
	}
	if err := errors.ValidateOrderID(r.OrderID); err != nil {
		return err
	}
	if err := ValidateItems(r.Items); err != nil {
		return err
	}
	if err := r.Dieline.Validate(); err != nil {
		return err
	}
	if r.Weights.IsZero() {
		r.Weights = DefaultWeights()
	}
	if err := r.Weights.Validate(); err != nil {
		return err
	}
	r.Policy = r.Policy.withDefaults()
	if err := r.Policy.Validate(); err != nil {
		return err
	}
	r.validated = true
	return nil
}

// MergeResult contains the outcome of merging an external suggestion.
type MergeResult struct {
	// Options are the re-ranked candidates including the suggestion.
	Options []LayoutOption `json:"options"`

	// SelectedID is the selection after the merge.
	SelectedID string `json:"selected_id"`

	// Suggestion is the rebuilt, locally scored suggestion entry.
	Suggestion LayoutOption `json:"suggestion"`

	// Selected reports whether the suggestion won the selection.
	Selected bool `json:"selected"`
}

// MergeSuggestion rebuilds an external suggestion through the local metrics
// and scoring path and folds it into the candidate set. Scores or metrics
// supplied by the optimizer are discarded; only the slot assignments count.
//
// A structurally invalid suggestion (unknown items, duplicate slots, broken
// quantity coverage) is rejected with ErrCodeInvalidLayout and leaves the
// candidate set unchanged.
func (p *Planner) MergeSuggestion(ctx context.Context, req MergeRequest) (*MergeResult, error) {
	if err := req.ValidateAndSetDefaults(); err != nil {
		return nil, fmt.Errorf("invalid merge request: %w", err)
	}

	cfg := geometry.Derive(req.Dieline)
	if err := validateSuggestion(req.Suggested, req.Items, cfg); err != nil {
		return nil, err
	}

	suggestion := rebuildSuggestion(req.Suggested, req.Reasoning, req.Items, cfg, req.Dieline, req.Weights, req.Policy)
	merged, selectedID := mergeSuggestion(req.Options, req.SelectedID, suggestion)
	selected := selectedID == SuggestedLayoutID

	p.Logger.Info("merged external suggestion",
		"order", req.OrderID,
		"score", fmt.Sprintf("%.3f", suggestion.OverallScore),
		"selected", selected,
		"candidates", len(merged))

	observability.Plan().OnSuggestionMerged(ctx, req.OrderID, suggestion.OverallScore, selected)

	return &MergeResult{
		Options:    merged,
		SelectedID: selectedID,
		Suggestion: suggestion,
		Selected:   selected,
	}, nil
}
