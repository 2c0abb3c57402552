package cli

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/rollfed/gangrun/pkg/geometry"
	pkgio "github.com/rollfed/gangrun/pkg/io"
	"github.com/rollfed/gangrun/pkg/plan"
)

// planOpts carries the plan command inputs from flag parsing to execution.
type planOpts struct {
	dieFile     string
	output      string
	configPath  string
	interactive bool
	overrides   planOverrides
}

// planOverrides carries only the tuning flags the user explicitly set, so
// values from gangrun.toml survive unless overridden.
type planOverrides struct {
	material   *float64
	print      *float64
	labor      *float64
	maxOverrun *float64
	qtyPerRoll *int
}

func (ov planOverrides) apply(w *plan.Weights, p *plan.Policy) {
	if ov.material != nil {
		w.Material = *ov.material
	}
	if ov.print != nil {
		w.Print = *ov.print
	}
	if ov.labor != nil {
		w.Labor = *ov.labor
	}
	if ov.maxOverrun != nil {
		p.MaxOverrun = *ov.maxOverrun
	}
	if ov.qtyPerRoll != nil {
		p.QtyPerRoll = *ov.qtyPerRoll
	}
}

// planCommand creates the plan command for generating layout candidates.
func (c *CLI) planCommand() *cobra.Command {
	var (
		dieFile     string
		output      string
		configPath  string
		interactive bool
		materialW   float64
		printW      float64
		laborW      float64
		maxOverrun  float64
		qtyPerRoll  int
	)
	defaults := plan.DefaultWeights()

	cmd := &cobra.Command{
		Use:   "plan [order.json]",
		Short: "Generate and score gang-run layout candidates",
		Long: `Generate and score gang-run layout candidates.

The plan command reads an order file, packs its items onto the slots of
the given die, and scores every candidate on material, print, and labor
efficiency. The ranked candidates land in a plan document next to the
order file, with the best one preselected.

Weights and policy come from gangrun.toml when present; flags override
individual values. Use --interactive to pick a candidate by hand instead
of accepting the top-ranked one.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			opts := planOpts{
				dieFile:     dieFile,
				output:      output,
				configPath:  configPath,
				interactive: interactive,
			}
			flags := cmd.Flags()
			if flags.Changed("material") {
				opts.overrides.material = &materialW
			}
			if flags.Changed("print") {
				opts.overrides.print = &printW
			}
			if flags.Changed("labor") {
				opts.overrides.labor = &laborW
			}
			if flags.Changed("max-overrun") {
				opts.overrides.maxOverrun = &maxOverrun
			}
			if flags.Changed("qty-per-roll") {
				opts.overrides.qtyPerRoll = &qtyPerRoll
			}
			return c.runPlan(cmd.Context(), args[0], opts)
		},
	}

	// Common flags
	cmd.Flags().StringVarP(&dieFile, "die", "d", "", "die profile TOML file (required)")
	cmd.Flags().StringVarP(&output, "output", "o", "", "output file (default <order-id>.plan.json next to the order)")
	cmd.Flags().StringVar(&configPath, "config", "", "config file (default gangrun.toml in the config dir)")
	cmd.Flags().BoolVarP(&interactive, "interactive", "i", false, "pick the layout interactively")

	// Scoring flags
	cmd.Flags().Float64Var(&materialW, "material", defaults.Material, "material efficiency weight")
	cmd.Flags().Float64Var(&printW, "print", defaults.Print, "print efficiency weight")
	cmd.Flags().Float64Var(&laborW, "labor", defaults.Labor, "labor efficiency weight")
	cmd.Flags().Float64Var(&maxOverrun, "max-overrun", plan.DefaultMaxOverrun, "max acceptable overrun fraction when ganging items")
	cmd.Flags().IntVar(&qtyPerRoll, "qty-per-roll", 0, "desired finished-roll quantity (0 disables rewind detection)")

	_ = cmd.MarkFlagRequired("die")

	return cmd
}

// runPlan imports the order, plans it against the die, and writes the
// plan document.
func (c *CLI) runPlan(ctx context.Context, input string, opts planOpts) error {
	order, err := pkgio.ImportOrder(input)
	if err != nil {
		return err
	}

	die, err := geometry.LoadDieline(opts.dieFile)
	if err != nil {
		return err
	}

	cfg, cfgPath, err := loadConfig(opts.configPath)
	if err != nil {
		return err
	}
	if cfgPath != "" {
		c.Logger.Debugf("Using config %s", cfgPath)
	}

	weights := cfg.weights()
	policy := cfg.Policy
	opts.overrides.apply(&weights, &policy)

	c.Logger.Infof("Planning %s: %d items on %s", order.OrderID, len(order.Items), die.Name)

	req := plan.PlanRequest{
		OrderID: order.OrderID,
		Items:   order.Items,
		Dieline: die.Geometry,
		Weights: weights,
		Policy:  policy,
	}

	prog := newProgress(c.Logger)
	result, err := plan.NewPlanner(c.Logger).Plan(ctx, req)
	if err != nil {
		return fmt.Errorf("plan: %w", err)
	}
	prog.done(fmt.Sprintf("Scored %d candidates", len(result.Options)))

	doc := plan.NewDocument(req, *die, result)

	if opts.interactive {
		id, err := pickLayout(doc)
		if err != nil {
			return err
		}
		if id != "" {
			if err := doc.Select(id); err != nil {
				return err
			}
		}
	}

	output := opts.output
	if output == "" {
		output = filepath.Join(filepath.Dir(input), order.OrderID+".plan.json")
	}
	if err := plan.ExportDocument(doc, output); err != nil {
		return err
	}

	printSuccess("Plan complete")
	printFile(output)
	printPlanStats(result.Stats)
	printNewline()
	printOptions(doc)
	printNewline()
	printNextStep("Review the layout", fmt.Sprintf("%s viz %s", appName, output))
	printNextStep("Send it to press", fmt.Sprintf("%s impose %s", appName, output))

	return nil
}
