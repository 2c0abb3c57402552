package plan

import (
	"fmt"
	"sort"
	"strings"

	"github.com/rollfed/gangrun/pkg/geometry"
)

// =============================================================================
// Proposer - the bin packer
// =============================================================================
//
// A proposal is an unscored partition of the items into runs. Each strategy
// below produces one proposal; duplicates across strategies are removed and
// the survivors are measured and scored by the planner.
//
// Packing rules shared by all strategies:
//   - one slot per item per run (an item is never split across slots of a run)
//   - a run holds at most Slots() assignments (one per column)
//   - every slot of a run advances together, so the run's frame count is
//     dictated by its heaviest slot
//   - assigned quantities across all runs sum exactly to each item's
//     required quantity

// slotLoad is one slot's worth of work: an item and the quantity this slot
// must cover. Strategies that split an item across runs emit several loads
// for it.
type slotLoad struct {
	item Item
	qty  int
}

// proposal is one strategy's run partition before measuring and scoring.
type proposal struct {
	strategy  string
	runs      [][]slotLoad
	reasoning string
}

// proposeAll runs every applicable strategy and returns deduplicated
// proposals in strategy priority order. Returns nil when items are empty or
// the geometry is degenerate; the caller must not attempt scoring then.
func proposeAll(items []Item, cfg geometry.SlotConfig, pol Policy) []proposal {
	if len(items) == 0 || cfg.LabelsPerFrame <= 0 || cfg.Slots() <= 0 {
		return nil
	}

	sorted := sortedByQuantity(items)

	candidates := []proposal{
		proposeGanged(sorted, cfg, pol),
	}
	if pol.QtyPerRoll > 0 {
		candidates = append(candidates, proposeRollSplit(sorted, cfg, pol))
	}
	candidates = append(candidates, proposeIsolated(sorted))

	// Dedupe identical partitions; the earliest strategy wins.
	seen := make(map[string]bool, len(candidates))
	out := candidates[:0]
	for _, c := range candidates {
		sig := partitionSignature(c.runs)
		if seen[sig] {
			continue
		}
		seen[sig] = true
		out = append(out, c)
	}
	return out
}

// sortedByQuantity orders items by descending required quantity, ties broken
// by id so the packer is deterministic.
func sortedByQuantity(items []Item) []Item {
	sorted := make([]Item, len(items))
	copy(sorted, items)
	sort.SliceStable(sorted, func(i, j int) bool {
		if sorted[i].RequiredQuantity != sorted[j].RequiredQuantity {
			return sorted[i].RequiredQuantity > sorted[j].RequiredQuantity
		}
		return sorted[i].ID < sorted[j].ID
	})
	return sorted
}

// overrunFraction is the production excess relative to the covered quantity.
func overrunFraction(produced, required int) float64 {
	if required <= 0 {
		return 0
	}
	return float64(produced-required) / float64(required)
}

// proposeGanged gangs items with similar quantities into shared runs.
//
// Items are walked in descending quantity. The heaviest unassigned item
// opens a run and dictates its frame count; every further item joins only
// if the run's production stays within the overrun policy for it. Items
// whose quantities are far apart therefore land in separate runs, items
// with similar quantities amortize frames together.
func proposeGanged(sorted []Item, cfg geometry.SlotConfig, pol Policy) proposal {
	maxSlots := cfg.Slots()
	var runs [][]slotLoad
	worstOverrun := 0.0

	remaining := sorted
	for len(remaining) > 0 {
		head := remaining[0]
		frames := cfg.FramesFor(head.RequiredQuantity)
		produced := frames * cfg.LabelsPerSlot

		run := []slotLoad{{item: head, qty: head.RequiredQuantity}}
		var next []Item
		for _, it := range remaining[1:] {
			if len(run) >= maxSlots {
				next = append(next, it)
				continue
			}
			over := overrunFraction(produced, it.RequiredQuantity)
			if over <= pol.MaxOverrun+overrunEpsilon {
				run = append(run, slotLoad{item: it, qty: it.RequiredQuantity})
				if over > worstOverrun {
					worstOverrun = over
				}
			} else {
				next = append(next, it)
			}
		}
		runs = append(runs, run)
		remaining = next
	}

	return proposal{
		strategy: "ganged",
		runs:     runs,
		reasoning: fmt.Sprintf("ganged %d items into %d runs by quantity similarity; worst cross-item overrun %.1f%%",
			len(sorted), len(runs), worstOverrun*100),
	}
}

// proposeIsolated gives every item its own run. No item ever pays for
// another's frame count, at the cost of one press setup per item.
func proposeIsolated(sorted []Item) proposal {
	runs := make([][]slotLoad, len(sorted))
	for i, it := range sorted {
		runs[i] = []slotLoad{{item: it, qty: it.RequiredQuantity}}
	}
	return proposal{
		strategy:  "isolated",
		runs:      runs,
		reasoning: fmt.Sprintf("one run per item (%d runs); no cross-item overrun", len(sorted)),
	}
}

// proposeRollSplit splits quantities into finished-roll-sized chunks and
// gangs the chunks. Full chunks produce output rolls matching the desired
// finished length, and their uniform sizes gang well; only remainder chunks
// can still need rewinding. Two chunks of the same item never share a run.
func proposeRollSplit(sorted []Item, cfg geometry.SlotConfig, pol Policy) proposal {
	var loads []slotLoad
	for _, it := range sorted {
		q := it.RequiredQuantity
		for q > pol.QtyPerRoll {
			loads = append(loads, slotLoad{item: it, qty: pol.QtyPerRoll})
			q -= pol.QtyPerRoll
		}
		if q > 0 {
			loads = append(loads, slotLoad{item: it, qty: q})
		}
	}
	sort.SliceStable(loads, func(i, j int) bool {
		if loads[i].qty != loads[j].qty {
			return loads[i].qty > loads[j].qty
		}
		return loads[i].item.ID < loads[j].item.ID
	})

	maxSlots := cfg.Slots()
	var runs [][]slotLoad

	remaining := loads
	for len(remaining) > 0 {
		head := remaining[0]
		frames := cfg.FramesFor(head.qty)
		produced := frames * cfg.LabelsPerSlot

		run := []slotLoad{head}
		inRun := map[string]bool{head.item.ID: true}
		var next []slotLoad
		for _, l := range remaining[1:] {
			if len(run) >= maxSlots || inRun[l.item.ID] {
				next = append(next, l)
				continue
			}
			if overrunFraction(produced, l.qty) <= pol.MaxOverrun+overrunEpsilon {
				run = append(run, l)
				inRun[l.item.ID] = true
			} else {
				next = append(next, l)
			}
		}
		runs = append(runs, run)
		remaining = next
	}

	return proposal{
		strategy: "roll-split",
		runs:     runs,
		reasoning: fmt.Sprintf("split quantities into %d-label finished rolls across %d runs",
			pol.QtyPerRoll, len(runs)),
	}
}

// partitionSignature builds a canonical string for a run partition so
// identical packings from different strategies collapse to one candidate.
func partitionSignature(runs [][]slotLoad) string {
	runSigs := make([]string, len(runs))
	for i, run := range runs {
		parts := make([]string, len(run))
		for j, l := range run {
			parts[j] = fmt.Sprintf("%s=%d", l.item.ID, l.qty)
		}
		sort.Strings(parts)
		runSigs[i] = strings.Join(parts, "+")
	}
	sort.Strings(runSigs)
	return strings.Join(runSigs, "|")
}

// buildRun turns one run's slot loads into a measured ProposedRun.
// The frame count is dictated by the heaviest slot; every slot produces
// frames*LabelsPerSlot labels regardless of its assigned quantity.
func buildRun(loads []slotLoad, cfg geometry.SlotConfig, geom geometry.DielineGeometry, pol Policy, runNumber int) ProposedRun {
	maxQty := 0
	for _, l := range loads {
		if l.qty > maxQty {
			maxQty = l.qty
		}
	}
	frames := cfg.FramesFor(maxQty)
	produced := frames * cfg.LabelsPerSlot

	assignments := make([]SlotAssignment, len(loads))
	for i, l := range loads {
		assignments[i] = SlotAssignment{
			SlotIndex:      i,
			ItemID:         l.item.ID,
			QuantityInSlot: l.qty,
			NeedsRotation:  l.item.NeedsRotation,
		}
	}

	needsRewinding := false
	if pol.QtyPerRoll > 0 {
		threshold := float64(pol.QtyPerRoll) * (1 - pol.RewindTolerance)
		needsRewinding = float64(produced) < threshold
	}

	return ProposedRun{
		RunNumber:           runNumber,
		SlotAssignments:     assignments,
		Frames:              frames,
		Meters:              geom.Meters(frames),
		LabelsPerOutputRoll: produced,
		NeedsRewinding:      needsRewinding,
	}
}

// buildRuns measures a whole partition, numbering runs from 1.
func buildRuns(p proposal, cfg geometry.SlotConfig, geom geometry.DielineGeometry, pol Policy) []ProposedRun {
	runs := make([]ProposedRun, len(p.runs))
	for i, loads := range p.runs {
		runs[i] = buildRun(loads, cfg, geom, pol, i+1)
	}
	return runs
}
