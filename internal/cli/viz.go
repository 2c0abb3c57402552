package cli

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/rollfed/gangrun/pkg/plan"
	"github.com/rollfed/gangrun/pkg/render"
)

// vizCommand creates the viz command for rendering layout diagrams.
func (c *CLI) vizCommand() *cobra.Command {
	var (
		layoutID string
		output   string
		detailed bool
		scale    float64
	)

	cmd := &cobra.Command{
		Use:   "viz [order.plan.json]",
		Short: "Render a layout candidate as a diagram",
		Long: `Render a layout candidate as a diagram.

The viz command draws one candidate of a plan document: the order node,
its runs, and the slot assignments with their meters and waste. Runs
that need manual rewinding are drawn dashed. Without --layout the
current selection is rendered.

The output format follows the file extension: .svg, .png, .pdf, or .dot
for the raw Graphviz source.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.runViz(cmd.Context(), args[0], layoutID, output, detailed, scale)
		},
	}

	cmd.Flags().StringVarP(&layoutID, "layout", "l", "", "layout id to render (default the selection)")
	cmd.Flags().StringVarP(&output, "output", "o", "", "output file (default input name with .svg)")
	cmd.Flags().BoolVar(&detailed, "detailed", false, "include per-slot quantities and score breakdown")
	cmd.Flags().Float64Var(&scale, "scale", 2.0, "raster scale for png output")

	return cmd
}

// runViz renders one candidate of the plan document to the output file.
func (c *CLI) runViz(ctx context.Context, input, layoutID, output string, detailed bool, scale float64) error {
	doc, err := plan.ImportDocument(input)
	if err != nil {
		return err
	}

	dot, err := render.ToDOT(doc, layoutID, render.Options{Detailed: detailed})
	if err != nil {
		return err
	}

	if output == "" {
		output = strings.TrimSuffix(input, filepath.Ext(input)) + ".svg"
	}

	spinner := newSpinnerWithContext(ctx, "Rendering diagram...")
	spinner.Start()
	data, err := renderFormat(dot, output, scale)
	if err != nil {
		spinner.StopWithError("Rendering failed")
		return err
	}
	spinner.Stop()

	if err := ctx.Err(); err != nil {
		return err
	}
	if err := os.WriteFile(output, data, 0o644); err != nil {
		return fmt.Errorf("write %s: %w", output, err)
	}

	printSuccess("Diagram rendered")
	printFile(output)

	return nil
}

// renderFormat renders the DOT source into the format implied by the
// output file extension.
func renderFormat(dot, output string, scale float64) ([]byte, error) {
	switch strings.ToLower(filepath.Ext(output)) {
	case ".dot":
		return []byte(dot), nil
	case ".svg":
		return render.RenderSVG(dot)
	case ".png":
		return render.RenderPNG(dot, scale)
	case ".pdf":
		return render.RenderPDF(dot)
	default:
		return nil, fmt.Errorf("unsupported output format %q (use .svg, .png, .pdf, or .dot)", filepath.Ext(output))
	}
}
