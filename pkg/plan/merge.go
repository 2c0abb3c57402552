package plan

import (
	"sort"

	"github.com/rollfed/gangrun/pkg/errors"
	"github.com/rollfed/gangrun/pkg/geometry"
)

// =============================================================================
// Suggestion Merger
// =============================================================================

// SuggestedRun is the shape an external optimizer returns: slot assignments
// without any geometry, metrics, or score attached. The merger rebuilds all
// of that locally; externally supplied numbers are never trusted.
type SuggestedRun struct {
	SlotAssignments []SlotAssignment `json:"slot_assignments"`
}

// validateSuggestion rejects suggestions that are structurally unusable:
// unknown or duplicated items within a run, non-positive quantities, more
// slots than the die has columns, or totals that break the exact-coverage
// invariant. A rejected suggestion leaves the candidate set untouched.
func validateSuggestion(suggested []SuggestedRun, items []Item, cfg geometry.SlotConfig) error {
	if len(suggested) == 0 {
		return errors.New(errors.ErrCodeInvalidLayout, "suggestion contains no runs")
	}

	required := make(map[string]int, len(items))
	for _, it := range items {
		required[it.ID] = it.RequiredQuantity
	}

	covered := make(map[string]int, len(items))
	for i, run := range suggested {
		if len(run.SlotAssignments) == 0 {
			return errors.New(errors.ErrCodeInvalidLayout, "suggested run %d has no slot assignments", i+1)
		}
		if len(run.SlotAssignments) > cfg.Slots() {
			return errors.New(errors.ErrCodeInvalidLayout,
				"suggested run %d uses %d slots, die has %d", i+1, len(run.SlotAssignments), cfg.Slots())
		}
		inRun := make(map[string]bool, len(run.SlotAssignments))
		for _, a := range run.SlotAssignments {
			if _, known := required[a.ItemID]; !known {
				return errors.New(errors.ErrCodeInvalidLayout, "suggestion references unknown item %q", a.ItemID)
			}
			if a.QuantityInSlot <= 0 {
				return errors.New(errors.ErrCodeInvalidLayout,
					"suggestion assigns non-positive quantity %d to item %q", a.QuantityInSlot, a.ItemID)
			}
			if inRun[a.ItemID] {
				return errors.New(errors.ErrCodeInvalidLayout,
					"item %q appears in two slots of suggested run %d", a.ItemID, i+1)
			}
			inRun[a.ItemID] = true
			covered[a.ItemID] += a.QuantityInSlot
		}
	}

	for id, req := range required {
		if covered[id] != req {
			return errors.New(errors.ErrCodeInvalidLayout,
				"suggestion covers %d of %d required labels for item %q", covered[id], req, id)
		}
	}
	return nil
}

// rebuildSuggestion derives a full, scored LayoutOption from the suggested
// runs through the same metrics and scoring path as local candidates.
func rebuildSuggestion(suggested []SuggestedRun, reasoning string, items []Item, cfg geometry.SlotConfig, geom geometry.DielineGeometry, w Weights, pol Policy) LayoutOption {
	byID := make(map[string]Item, len(items))
	for _, it := range items {
		byID[it.ID] = it
	}

	runs := make([]ProposedRun, len(suggested))
	for i, sr := range suggested {
		loads := make([]slotLoad, len(sr.SlotAssignments))
		for j, a := range sr.SlotAssignments {
			loads[j] = slotLoad{item: byID[a.ItemID], qty: a.QuantityInSlot}
		}
		runs[i] = buildRun(loads, cfg, geom, pol, i+1)
	}

	if reasoning == "" {
		reasoning = "externally suggested layout"
	}
	opt := LayoutOption{
		ID:        SuggestedLayoutID,
		Runs:      runs,
		Reasoning: reasoning,
	}
	measureOption(&opt, items, cfg, geom)
	scoreOption(&opt, w, pol)
	return opt
}

// mergeSuggestion folds a rebuilt suggestion into an existing candidate set.
//
// Any prior candidate with the reserved suggestion id is replaced, so the
// merge is idempotent: at most one external candidate is live at a time. The
// merged set is re-sorted descending by overall score with the suggestion
// winning ties. The suggestion becomes the selection when its score is
// greater than or equal to the incumbent's; if the incumbent was itself the
// replaced suggestion, the comparison falls back to the best local candidate.
func mergeSuggestion(options []LayoutOption, selectedID string, suggestion LayoutOption) (merged []LayoutOption, newSelectedID string) {
	merged = make([]LayoutOption, 0, len(options)+1)
	for _, o := range options {
		if o.ID == SuggestedLayoutID {
			continue
		}
		merged = append(merged, o)
	}

	var incumbent *LayoutOption
	for i := range merged {
		if merged[i].ID == selectedID {
			incumbent = &merged[i]
			break
		}
	}
	if incumbent == nil {
		// Selection pointed at the replaced suggestion (or nothing);
		// compare against the best remaining local candidate.
		for i := range merged {
			if incumbent == nil || merged[i].OverallScore > incumbent.OverallScore {
				incumbent = &merged[i]
			}
		}
	}

	newSelectedID = selectedID
	if incumbent == nil || suggestion.OverallScore >= incumbent.OverallScore {
		newSelectedID = SuggestedLayoutID
	} else {
		newSelectedID = incumbent.ID
	}

	merged = append(merged, suggestion)
	sortOptions(merged)
	return merged, newSelectedID
}

// sortOptions ranks candidates descending by overall score. On equal scores
// the external suggestion sorts first; otherwise the existing order is kept.
func sortOptions(options []LayoutOption) {
	sort.SliceStable(options, func(i, j int) bool {
		if options[i].OverallScore != options[j].OverallScore {
			return options[i].OverallScore > options[j].OverallScore
		}
		return options[i].IsSuggested() && !options[j].IsSuggested()
	})
}
