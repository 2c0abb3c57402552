// Package plan turns ordered label quantities into scored gang-run layouts.
//
// This package implements the run planning pipeline that CLI and API share:
//
//  1. Propose: pack items into candidate run sets (the bin packer)
//  2. Measure: derive frames, meters, and waste for every candidate
//  3. Score: rank candidates by weighted material/print/labor efficiency
//
// An externally computed suggestion can be folded into an existing candidate
// set through the same measure/score path; see [Planner.MergeSuggestion].
//
// All of it is pure and deterministic: identical inputs and weights produce
// identical scores and an identical ranking.
package plan

import (
	"github.com/rollfed/gangrun/pkg/errors"
)

// SuggestedLayoutID is the reserved id of the externally suggested layout.
// At most one candidate with this id exists in a set at any time.
const SuggestedLayoutID = "ai-computed"

// =============================================================================
// Default Values - Single Source of Truth for CLI, API, and Stores
// =============================================================================

const (
	// DefaultMaxOverrun is the default fraction by which produced labels may
	// exceed an item's required quantity before the item is moved to its own run.
	DefaultMaxOverrun = 0.05

	// DefaultPrintDecay controls how print efficiency falls off with run count.
	// Each extra run means another press setup.
	DefaultPrintDecay = 0.1

	// DefaultLaborDecay controls how labor efficiency falls off with run count.
	DefaultLaborDecay = 0.15

	// DefaultRewindPenalty is subtracted from labor efficiency in proportion
	// to the fraction of runs that need manual rewinding.
	DefaultRewindPenalty = 0.4

	// DefaultRewindTolerance is the shortfall fraction of the desired
	// finished-roll quantity below which a produced roll counts as needing
	// rewinding.
	DefaultRewindTolerance = 0.02

	// overrunEpsilon absorbs float rounding when comparing overrun fractions
	// against the policy maximum.
	overrunEpsilon = 1e-9
)

// =============================================================================
// Input Types
// =============================================================================

// Item is one ordered label artwork with its required quantity.
// Items are immutable inputs; the planner never mutates them.
type Item struct {
	ID               string `json:"id"`
	RequiredQuantity int    `json:"required_quantity"`
	NeedsRotation    bool   `json:"needs_rotation,omitempty"`
	PrintAssetRef    string `json:"print_asset_ref,omitempty"`
}

// Weights are the operator-tunable scoring coefficients.
// They must be non-negative but need not sum to 1; the ranking is relative
// across candidates, never normalized absolutely.
type Weights struct {
	Material float64 `json:"material" toml:"material"`
	Print    float64 `json:"print" toml:"print"`
	Labor    float64 `json:"labor" toml:"labor"`
}

// DefaultWeights returns the house scoring weights.
func DefaultWeights() Weights {
	return Weights{Material: 0.5, Print: 0.3, Labor: 0.2}
}

// IsZero reports whether no weight is set.
func (w Weights) IsZero() bool {
	return w.Material == 0 && w.Print == 0 && w.Labor == 0
}

// Validate rejects negative coefficients.
func (w Weights) Validate() error {
	if w.Material < 0 || w.Print < 0 || w.Labor < 0 {
		return errors.New(errors.ErrCodeInvalidWeights,
			"weights must be non-negative, got material=%.2f print=%.2f labor=%.2f",
			w.Material, w.Print, w.Labor)
	}
	return nil
}

// Policy holds the tunable planning constants. The defaults mirror shop
// practice but every value is configuration, not physics; see
// [DefaultPolicy].
type Policy struct {
	// MaxOverrun is the largest acceptable production overrun fraction when
	// ganging an item with heavier items in one run.
	MaxOverrun float64 `json:"max_overrun" toml:"max_overrun"`

	// QtyPerRoll is the desired finished-roll quantity. Zero means finished
	// rolls are unconstrained and rewinding detection is off.
	QtyPerRoll int `json:"qty_per_roll,omitempty" toml:"qty_per_roll"`

	// PrintDecay is the per-run decay rate of print efficiency.
	PrintDecay float64 `json:"print_decay" toml:"print_decay"`

	// LaborDecay is the per-run decay rate of labor efficiency.
	LaborDecay float64 `json:"labor_decay" toml:"labor_decay"`

	// RewindPenalty scales the labor penalty for the fraction of runs that
	// need manual rewinding.
	RewindPenalty float64 `json:"rewind_penalty" toml:"rewind_penalty"`

	// RewindTolerance is the acceptable shortfall fraction of QtyPerRoll
	// before a produced roll counts as needing rewinding.
	RewindTolerance float64 `json:"rewind_tolerance" toml:"rewind_tolerance"`
}

// DefaultPolicy returns the house planning policy.
func DefaultPolicy() Policy {
	return Policy{
		MaxOverrun:      DefaultMaxOverrun,
		PrintDecay:      DefaultPrintDecay,
		LaborDecay:      DefaultLaborDecay,
		RewindPenalty:   DefaultRewindPenalty,
		RewindTolerance: DefaultRewindTolerance,
	}
}

// withDefaults fills zero fields with house defaults. QtyPerRoll stays
// zero-is-unset.
func (p Policy) withDefaults() Policy {
	if p.MaxOverrun == 0 {
		p.MaxOverrun = DefaultMaxOverrun
	}
	if p.PrintDecay == 0 {
		p.PrintDecay = DefaultPrintDecay
	}
	if p.LaborDecay == 0 {
		p.LaborDecay = DefaultLaborDecay
	}
	if p.RewindPenalty == 0 {
		p.RewindPenalty = DefaultRewindPenalty
	}
	if p.RewindTolerance == 0 {
		p.RewindTolerance = DefaultRewindTolerance
	}
	return p
}

// Validate rejects nonsensical policy values.
func (p Policy) Validate() error {
	if p.MaxOverrun < 0 {
		return errors.New(errors.ErrCodeInvalidPolicy, "max overrun cannot be negative, got %.3f", p.MaxOverrun)
	}
	if p.QtyPerRoll < 0 {
		return errors.New(errors.ErrCodeInvalidPolicy, "qty per roll cannot be negative, got %d", p.QtyPerRoll)
	}
	if p.PrintDecay < 0 || p.LaborDecay < 0 {
		return errors.New(errors.ErrCodeInvalidPolicy, "efficiency decay rates cannot be negative")
	}
	if p.RewindPenalty < 0 {
		return errors.New(errors.ErrCodeInvalidPolicy, "rewind penalty cannot be negative, got %.3f", p.RewindPenalty)
	}
	if p.RewindTolerance < 0 || p.RewindTolerance >= 1 {
		return errors.New(errors.ErrCodeInvalidPolicy, "rewind tolerance must be in [0,1), got %.3f", p.RewindTolerance)
	}
	return nil
}

// ValidateItems rejects empty, duplicated, or non-positive item inputs
// before any candidate generation happens.
func ValidateItems(items []Item) error {
	if len(items) == 0 {
		return errors.New(errors.ErrCodeInvalidItems, "no items to plan")
	}
	seen := make(map[string]bool, len(items))
	for i, it := range items {
		if it.ID == "" {
			return errors.New(errors.ErrCodeInvalidItems, "item %d has no id", i)
		}
		if seen[it.ID] {
			return errors.New(errors.ErrCodeInvalidItems, "duplicate item id %q", it.ID)
		}
		seen[it.ID] = true
		if it.RequiredQuantity <= 0 {
			return errors.New(errors.ErrCodeInvalidItems,
				"item %q requires a positive quantity, got %d", it.ID, it.RequiredQuantity)
		}
	}
	return nil
}

// =============================================================================
// Output Types
// =============================================================================

// SlotAssignment binds one item to one slot for the duration of a run.
// An item may appear in several runs, but never in two slots of one run.
type SlotAssignment struct {
	SlotIndex      int    `json:"slot_index"`
	ItemID         string `json:"item_id"`
	QuantityInSlot int    `json:"quantity_in_slot"`
	NeedsRotation  bool   `json:"needs_rotation,omitempty"`
}

// ProposedRun is one continuous press pass. Frames and Meters are derived
// from the slot assignments, never hand-edited.
type ProposedRun struct {
	RunNumber       int              `json:"run_number"`
	SlotAssignments []SlotAssignment `json:"slot_assignments"`
	Frames          int              `json:"frames"`
	Meters          float64          `json:"meters"`

	// LabelsPerOutputRoll is the labels every slot of this run actually
	// produces (frames times labels per slot); each slot is slit into its
	// own output roll.
	LabelsPerOutputRoll int `json:"labels_per_output_roll"`

	// NeedsRewinding marks output rolls that fall short of the desired
	// finished-roll quantity and must be spliced with another roll.
	NeedsRewinding bool `json:"needs_rewinding"`
}

// LayoutOption is one scored candidate packing of all items into runs.
type LayoutOption struct {
	ID                      string        `json:"id"`
	Runs                    []ProposedRun `json:"runs"`
	TotalMeters             float64       `json:"total_meters"`
	TotalFrames             int           `json:"total_frames"`
	TotalWasteMeters        float64       `json:"total_waste_meters"`
	MaterialEfficiencyScore float64       `json:"material_efficiency_score"`
	PrintEfficiencyScore    float64       `json:"print_efficiency_score"`
	LaborEfficiencyScore    float64       `json:"labor_efficiency_score"`
	OverallScore            float64       `json:"overall_score"`
	Reasoning               string        `json:"reasoning,omitempty"`
}

// IsSuggested reports whether this candidate came from the external
// suggestion service.
func (o LayoutOption) IsSuggested() bool {
	return o.ID == SuggestedLayoutID
}

// RewindingRuns counts the runs of this layout that need manual rewinding.
func (o LayoutOption) RewindingRuns() int {
	n := 0
	for _, r := range o.Runs {
		if r.NeedsRewinding {
			n++
		}
	}
	return n
}
