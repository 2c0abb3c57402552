package plan

import (
	"math"

	"github.com/rollfed/gangrun/pkg/geometry"
)

// =============================================================================
// Metrics Calculator
// =============================================================================
//
// Every candidate is measured against the same yardstick: the material a
// perfect packing would use if every slot of every frame were filled. The
// yardstick is independent of how many runs a candidate chose.

// TheoreticalMinFrames is the frame count of a perfect packing of the items.
func TheoreticalMinFrames(items []Item, cfg geometry.SlotConfig) int {
	if cfg.LabelsPerFrame <= 0 {
		return 0
	}
	total := 0
	for _, it := range items {
		total += it.RequiredQuantity
	}
	if total <= 0 {
		return 0
	}
	return int(math.Ceil(float64(total) / float64(cfg.LabelsPerFrame)))
}

// measureOption fills a layout's totals and waste from its runs.
func measureOption(opt *LayoutOption, items []Item, cfg geometry.SlotConfig, geom geometry.DielineGeometry) {
	totalFrames := 0
	totalMeters := 0.0
	for _, r := range opt.Runs {
		totalFrames += r.Frames
		totalMeters += r.Meters
	}
	opt.TotalFrames = totalFrames
	opt.TotalMeters = totalMeters

	minMeters := geom.Meters(TheoreticalMinFrames(items, cfg))
	opt.TotalWasteMeters = math.Max(0, totalMeters-minMeters)
}
