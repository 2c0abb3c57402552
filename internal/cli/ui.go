package cli

import (
	"fmt"
	"time"

	"github.com/charmbracelet/lipgloss"

	"github.com/rollfed/gangrun/pkg/impose"
	"github.com/rollfed/gangrun/pkg/plan"
)

// =============================================================================
// Color Palette
// =============================================================================

var (
	colorCyan   = lipgloss.Color("36")  // Teal - primary actions
	colorGreen  = lipgloss.Color("35")  // Green - success
	colorYellow = lipgloss.Color("220") // Amber - warnings
	colorRed    = lipgloss.Color("167") // Soft red - errors
	colorBlue   = lipgloss.Color("75")  // Light blue - links
	colorWhite  = lipgloss.Color("255") // Bright white - values
	colorGray   = lipgloss.Color("245") // Gray - secondary text
	colorDim    = lipgloss.Color("240") // Dim gray - muted text
)

// =============================================================================
// Public Styles
// =============================================================================

var (
	// StyleTitle for main headings.
	StyleTitle = lipgloss.NewStyle().Bold(true).Foreground(colorCyan)

	// StyleHighlight for emphasized values.
	StyleHighlight = lipgloss.NewStyle().Foreground(colorCyan)

	// StyleLink for URLs.
	StyleLink = lipgloss.NewStyle().Foreground(colorBlue).Underline(true)

	// StyleDim for secondary/muted text.
	StyleDim = lipgloss.NewStyle().Foreground(colorDim)

	// StyleValue for data values.
	StyleValue = lipgloss.NewStyle().Foreground(colorWhite)

	// StyleSuccess for success messages.
	StyleSuccess = lipgloss.NewStyle().Foreground(colorGreen)

	// StyleWarning for warning messages.
	StyleWarning = lipgloss.NewStyle().Foreground(colorYellow)
)

// =============================================================================
// Internal Styles
// =============================================================================

var (
	styleIconSuccess = lipgloss.NewStyle().Foreground(colorGreen)
	styleIconError   = lipgloss.NewStyle().Foreground(colorRed)
	styleIconWarning = lipgloss.NewStyle().Foreground(colorYellow)
	styleIconInfo    = lipgloss.NewStyle().Foreground(colorGray)
	styleIconSpinner = lipgloss.NewStyle().Foreground(colorCyan)

	styleCommand = lipgloss.NewStyle().Foreground(colorBlue)
)

// =============================================================================
// Icons
// =============================================================================

const (
	iconSuccess = "✓"
	iconError   = "✗"
	iconWarning = "!"
	iconInfo    = "›"
	iconArrow   = "→"
)

// =============================================================================
// Status Output
// =============================================================================

// printSuccess prints a success message.
func printSuccess(format string, args ...any) {
	msg := fmt.Sprintf(format, args...)
	fmt.Println(styleIconSuccess.Render(iconSuccess) + " " + msg)
}

// printError prints an error message.
func printError(format string, args ...any) {
	msg := fmt.Sprintf(format, args...)
	fmt.Println(styleIconError.Render(iconError) + " " + msg)
}

// printWarning prints a warning message.
func printWarning(format string, args ...any) {
	msg := fmt.Sprintf(format, args...)
	fmt.Println(styleIconWarning.Render(iconWarning) + " " + StyleWarning.Render(msg))
}

// printInfo prints an info/status message.
func printInfo(format string, args ...any) {
	msg := fmt.Sprintf(format, args...)
	fmt.Println(styleIconInfo.Render(iconInfo) + " " + msg)
}

// printDetail prints a detail line (indented).
func printDetail(format string, args ...any) {
	msg := fmt.Sprintf(format, args...)
	fmt.Println("  " + StyleDim.Render(msg))
}

// =============================================================================
// File & Link Output
// =============================================================================

// printFile prints a file output line.
func printFile(path string) {
	fmt.Println("  " + StyleDim.Render(iconArrow) + " " + StyleValue.Render(path))
}

// printLink prints an external URL line.
func printLink(url string) {
	fmt.Println("  " + StyleDim.Render(iconArrow) + " " + StyleLink.Render(url))
}

// =============================================================================
// Plan Display
// =============================================================================

// printPlanStats prints planning statistics on a single line.
func printPlanStats(st plan.Stats) {
	parts := []string{
		fmt.Sprintf("%d items", st.ItemCount),
		fmt.Sprintf("%d labels", st.TotalRequired),
		fmt.Sprintf("%d candidates", st.CandidateCount),
		fmt.Sprintf("floor %d frames", st.TheoreticalMinFrames),
	}

	line := "  "
	for i, part := range parts {
		if i > 0 {
			line += StyleDim.Render(" · ")
		}
		line += StyleDim.Render(part)
	}
	fmt.Println(line)
}

// formatOption renders one candidate as a single summary line.
func formatOption(o plan.LayoutOption, selected bool) string {
	marker := "  "
	if selected {
		marker = styleIconSuccess.Render(iconSuccess) + " "
	}

	name := StyleValue.Render(o.ID)
	if o.IsSuggested() {
		name = StyleHighlight.Render(o.ID)
	}

	parts := []string{
		fmt.Sprintf("%d runs", len(o.Runs)),
		fmt.Sprintf("%d frames", o.TotalFrames),
		fmt.Sprintf("%.1f m", o.TotalMeters),
		fmt.Sprintf("%.1f m waste", o.TotalWasteMeters),
		fmt.Sprintf("score %.3f", o.OverallScore),
	}
	if n := o.RewindingRuns(); n > 0 {
		parts = append(parts, StyleWarning.Render(fmt.Sprintf("%d rewind", n)))
	}

	line := marker + name
	for i, part := range parts {
		if i == 0 {
			line += "  " + StyleDim.Render(part)
			continue
		}
		line += StyleDim.Render(" · ") + StyleDim.Render(part)
	}
	return line
}

// printOptions prints the ranked candidate list with the selection marked.
func printOptions(doc *plan.PlanDocument) {
	for _, o := range doc.Options {
		fmt.Println("  " + formatOption(o, o.ID == doc.SelectedID))
	}
}

// =============================================================================
// Batch Report Display
// =============================================================================

// printReport prints a batch report with per-run outcomes and artifacts.
func printReport(r *impose.Report) {
	for _, res := range r.Results {
		switch res.Outcome {
		case impose.OutcomeCompleted:
			printSuccess("run %d imposed", res.RunNumber)
			for _, url := range res.Artifacts {
				printLink(url)
			}
		case impose.OutcomeFailed:
			printError("run %d failed: %s", res.RunNumber, res.Err)
		case impose.OutcomeSkipped:
			printDetail("run %d skipped", res.RunNumber)
		}
	}

	summary := fmt.Sprintf("%d imposed · %d failed · %d skipped · %s",
		r.Completed, r.Failed, r.Skipped, r.Duration.Round(time.Millisecond))
	printNewline()
	if r.Failed > 0 || r.Aborted {
		printWarning("%s", summary)
	} else {
		printSuccess("%s", summary)
	}
	if r.Aborted {
		printDetail("batch aborted after repeated failures; remaining runs were skipped")
	}
}

// =============================================================================
// Commands & Next Steps
// =============================================================================

// printNextStep prints a suggested next command.
func printNextStep(description, cmd string) {
	fmt.Println(StyleDim.Render(description+":") + " " + styleCommand.Render(cmd))
}

// =============================================================================
// Utilities
// =============================================================================

// printNewline prints an empty line.
func printNewline() {
	fmt.Println()
}
