// Package render draws gang-run plans as reviewable diagrams.
//
// # Overview
//
// A plan diagram shows how items flow into press runs: items appear as
// ovals, runs as boxes labeled with their frame count and material length,
// and each edge carries the slot index and quantity. Operators use the
// diagram to sanity-check a layout before imposing it.
//
// # Pipeline
//
//	dot, err := render.ToDOT(doc, "", render.Options{})
//	svg, err := render.RenderSVG(dot)
//	png, err := render.ToPNG(svg, 2.0)  // 2x scale
//
// SVG rendering runs Graphviz in-process; PNG and PDF conversion shell out
// to the external rsvg-convert tool (from librsvg).
package render

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/rollfed/gangrun/pkg/errors"
	"github.com/rollfed/gangrun/pkg/plan"
)

// Options configures plan diagram rendering.
type Options struct {
	// Detailed includes per-slot produced quantities and the candidate's
	// score breakdown. When false, labels stay compact.
	Detailed bool
}

// ToDOT converts one layout candidate of a plan document to Graphviz DOT.
// An empty layoutID renders the document's current selection. The resulting
// DOT string can be rendered with [RenderSVG], [RenderPDF], or [RenderPNG].
//
// Runs that need manual rewinding are drawn with dashed outlines and grey
// fill so they stand out during review.
func ToDOT(doc *plan.PlanDocument, layoutID string, opts Options) (string, error) {
	if layoutID == "" {
		layoutID = doc.SelectedID
	}
	option := doc.Option(layoutID)
	if option == nil {
		return "", errors.New(errors.ErrCodeLayoutNotFound,
			"document for order %q has no candidate %q", doc.OrderID, layoutID)
	}

	required := make(map[string]int, len(doc.Items))
	for _, it := range doc.Items {
		required[it.ID] = it.RequiredQuantity
	}

	var buf bytes.Buffer
	buf.WriteString("digraph gangplan {\n")
	buf.WriteString("  rankdir=LR;\n")
	buf.WriteString("  bgcolor=\"transparent\";\n")
	buf.WriteString("  node [fontsize=24, style=filled, fillcolor=white];\n")
	buf.WriteString("  ranksep=0.8;\n")
	buf.WriteString("  nodesep=0.4;\n")
	fmt.Fprintf(&buf, "  label=%q;\n", graphLabel(doc, option, opts.Detailed))
	buf.WriteString("  labelloc=t;\n")
	buf.WriteString("  fontsize=28;\n")
	buf.WriteString("\n")

	for _, it := range doc.Items {
		fmt.Fprintf(&buf, "  %q [shape=ellipse, label=%q];\n",
			itemNode(it.ID), fmt.Sprintf("%s\n%d needed", it.ID, it.RequiredQuantity))
	}

	buf.WriteString("\n")
	for _, run := range option.Runs {
		attrs := []string{
			"shape=box",
			`style="rounded,filled"`,
			fmt.Sprintf("label=%q", runLabel(run, opts.Detailed)),
		}
		if run.NeedsRewinding {
			attrs = []string{
				"shape=box",
				`style="rounded,filled,dashed"`,
				"fillcolor=lightgrey",
				fmt.Sprintf("label=%q", runLabel(run, opts.Detailed)),
			}
		}
		fmt.Fprintf(&buf, "  %q [%s];\n", runNode(run.RunNumber), strings.Join(attrs, ", "))
	}

	buf.WriteString("\n")
	for _, run := range option.Runs {
		for _, sa := range run.SlotAssignments {
			label := fmt.Sprintf("slot %d: %d", sa.SlotIndex, sa.QuantityInSlot)
			if opts.Detailed && run.LabelsPerOutputRoll > 0 {
				over := run.LabelsPerOutputRoll - sa.QuantityInSlot
				label = fmt.Sprintf("slot %d: %d (+%d over)", sa.SlotIndex, sa.QuantityInSlot, over)
			}
			fmt.Fprintf(&buf, "  %q -> %q [label=%q, fontsize=18];\n",
				itemNode(sa.ItemID), runNode(run.RunNumber), label)
		}
	}

	buf.WriteString("}\n")
	return buf.String(), nil
}

func itemNode(id string) string { return "item:" + id }

func runNode(number int) string { return fmt.Sprintf("run:%d", number) }

func graphLabel(doc *plan.PlanDocument, option *plan.LayoutOption, detailed bool) string {
	header := fmt.Sprintf("%s - %s", doc.OrderID, option.ID)
	if doc.Dieline.Name != "" {
		header += " (" + doc.Dieline.Name + ")"
	}

	summary := fmt.Sprintf("%d runs, %d frames, %.2f m", len(option.Runs), option.TotalFrames, option.TotalMeters)
	if option.TotalMeters > 0 {
		summary += fmt.Sprintf(", %.1f%% waste", option.TotalWasteMeters/option.TotalMeters*100)
	}
	if detailed {
		summary += fmt.Sprintf("\nscore %.3f (material %.3f / print %.3f / labor %.3f)",
			option.OverallScore, option.MaterialEfficiencyScore,
			option.PrintEfficiencyScore, option.LaborEfficiencyScore)
	}
	return header + "\n" + summary
}

func runLabel(run plan.ProposedRun, detailed bool) string {
	label := fmt.Sprintf("Run %d\n%d frames / %.2f m", run.RunNumber, run.Frames, run.Meters)
	if run.NeedsRewinding {
		label += "\nrewind"
	}
	if detailed {
		label += fmt.Sprintf("\n%d labels per roll", run.LabelsPerOutputRoll)
	}
	return label
}
