// Package geometry models the physical layout of a label dieline and derives
// the slot configuration the run planner packs against.
//
// A dieline describes one repeat of the press: a grid of labels
// ColumnsAcross wide (across the roll) and RowsAround tall (around the
// cylinder). One frame is one full revolution and produces
// ColumnsAcross*RowsAround labels. A slot is one column position; it yields
// RowsAround labels per frame and is assigned to a single item for the
// duration of a run.
package geometry

import (
	"math"

	"github.com/rollfed/gangrun/pkg/errors"
)

// DielineGeometry is the immutable physical configuration of a die.
// All linear dimensions are millimeters.
type DielineGeometry struct {
	RollWidthMM     float64 `json:"roll_width" toml:"roll_width"`
	LabelWidthMM    float64 `json:"label_width" toml:"label_width"`
	LabelHeightMM   float64 `json:"label_height" toml:"label_height"`
	ColumnsAcross   int     `json:"columns_across" toml:"columns_across"`
	RowsAround      int     `json:"rows_around" toml:"rows_around"`
	HorizontalGapMM float64 `json:"h_gap" toml:"h_gap"`
	VerticalGapMM   float64 `json:"v_gap" toml:"v_gap"`
	CornerRadiusMM  float64 `json:"corner_radius,omitempty" toml:"corner_radius"`
	BleedMM         float64 `json:"bleed,omitempty" toml:"bleed"`
}

// SlotConfig is the derived packing configuration of a dieline.
type SlotConfig struct {
	// LabelsPerFrame is the total labels one frame produces.
	LabelsPerFrame int `json:"labels_per_frame"`

	// LabelsPerSlot is the labels one slot produces per frame
	// (the slot repeats once per row around the cylinder).
	LabelsPerSlot int `json:"labels_per_slot_per_frame"`
}

// Derive computes the slot configuration for a dieline.
// It is pure and total; degenerate dimensions are the caller's problem
// and should be rejected with [Validate] first.
func Derive(g DielineGeometry) SlotConfig {
	return SlotConfig{
		LabelsPerFrame: g.ColumnsAcross * g.RowsAround,
		LabelsPerSlot:  g.RowsAround,
	}
}

// FrameLengthMM returns the material length one frame advances the roll:
// one label height plus the vertical gap to the next frame.
func (g DielineGeometry) FrameLengthMM() float64 {
	return g.LabelHeightMM + g.VerticalGapMM
}

// FrameWidthMM returns the width the label grid occupies across the roll.
func (g DielineGeometry) FrameWidthMM() float64 {
	if g.ColumnsAcross <= 0 {
		return 0
	}
	return float64(g.ColumnsAcross)*g.LabelWidthMM + float64(g.ColumnsAcross-1)*g.HorizontalGapMM
}

// Meters converts a frame count into linear material meters.
func (g DielineGeometry) Meters(frames int) float64 {
	return float64(frames) * g.FrameLengthMM() / 1000
}

// Slots returns the number of slot positions across the roll
// (one per column).
func (c SlotConfig) Slots() int {
	if c.LabelsPerSlot <= 0 {
		return 0
	}
	return c.LabelsPerFrame / c.LabelsPerSlot
}

// FramesFor returns the whole frames needed to produce at least quantity
// labels from one slot. Returns 0 for non-positive quantities.
func (c SlotConfig) FramesFor(quantity int) int {
	if quantity <= 0 || c.LabelsPerSlot <= 0 {
		return 0
	}
	return int(math.Ceil(float64(quantity) / float64(c.LabelsPerSlot)))
}

// Validate rejects degenerate dieline dimensions before they reach the
// planner. Checks are deliberately strict: a dieline that passes here can
// be fed to Derive and the packer without further guards.
func (g DielineGeometry) Validate() error {
	if g.LabelWidthMM <= 0 {
		return errors.New(errors.ErrCodeInvalidGeometry, "label width must be positive, got %.2f", g.LabelWidthMM)
	}
	if g.LabelHeightMM <= 0 {
		return errors.New(errors.ErrCodeInvalidGeometry, "label height must be positive, got %.2f", g.LabelHeightMM)
	}
	if g.ColumnsAcross <= 0 {
		return errors.New(errors.ErrCodeInvalidGeometry, "columns across must be positive, got %d", g.ColumnsAcross)
	}
	if g.RowsAround <= 0 {
		return errors.New(errors.ErrCodeInvalidGeometry, "rows around must be positive, got %d", g.RowsAround)
	}
	if g.HorizontalGapMM < 0 || g.VerticalGapMM < 0 {
		return errors.New(errors.ErrCodeInvalidGeometry, "gaps cannot be negative")
	}
	if g.CornerRadiusMM < 0 || g.BleedMM < 0 {
		return errors.New(errors.ErrCodeInvalidGeometry, "corner radius and bleed cannot be negative")
	}
	if g.RollWidthMM <= 0 {
		return errors.New(errors.ErrCodeInvalidGeometry, "roll width must be positive, got %.2f", g.RollWidthMM)
	}
	if w := g.FrameWidthMM(); w > g.RollWidthMM {
		return errors.New(errors.ErrCodeInvalidGeometry,
			"label grid %.2fmm wider than roll %.2fmm", w, g.RollWidthMM)
	}
	return nil
}
