package plan

import "math"

// =============================================================================
// Scorer
// =============================================================================

// scoreOption fills a measured layout's efficiency sub-scores and weighted
// overall score. Pure: identical inputs yield bit-identical scores.
//
//   - material: 1 - waste/total, floored at 0
//   - print: 1/(1 + decay*runs), decays smoothly with press setups
//   - labor: 1/(1 + decay*runs), minus the rewind penalty scaled by the
//     fraction of runs needing rewinding, floored at 0
func scoreOption(opt *LayoutOption, w Weights, pol Policy) {
	runCount := len(opt.Runs)

	material := 0.0
	if opt.TotalMeters > 0 {
		material = math.Max(0, 1-opt.TotalWasteMeters/opt.TotalMeters)
	}

	print := 1 / (1 + pol.PrintDecay*float64(runCount))

	labor := 1 / (1 + pol.LaborDecay*float64(runCount))
	if pol.QtyPerRoll > 0 && runCount > 0 {
		rewindFraction := float64(opt.RewindingRuns()) / float64(runCount)
		labor = math.Max(0, labor-pol.RewindPenalty*rewindFraction)
	}

	opt.MaterialEfficiencyScore = material
	opt.PrintEfficiencyScore = print
	opt.LaborEfficiencyScore = labor
	opt.OverallScore = w.Material*material + w.Print*print + w.Labor*labor
}
