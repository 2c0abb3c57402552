package cli

import (
	"context"
	stderrors "errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/rollfed/gangrun/pkg/errors"
	"github.com/rollfed/gangrun/pkg/integrations/optimizer"
	"github.com/rollfed/gangrun/pkg/plan"
)

// suggestCommand creates the suggest command for fetching an external
// layout proposal.
func (c *CLI) suggestCommand() *cobra.Command {
	var (
		refresh bool
		noCache bool
	)

	cmd := &cobra.Command{
		Use:   "suggest [order.plan.json]",
		Short: "Ask the suggestion service for a layout proposal",
		Long: `Ask the suggestion service for a layout proposal.

The suggest command sends the plan document's items, die geometry, and
constraints to the remote suggestion service, rebuilds the returned slot
assignments through the local metrics and scoring path, and folds the
result into the candidate set. The service's own numbers are never
trusted; only its slot assignments count.

A structurally broken proposal is rejected and the document stays as it
was. Responses are cached; use --refresh to force a new proposal.

Requires GANGRUN_OPTIMIZER_URL.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.runSuggest(cmd.Context(), args[0], refresh, noCache)
		},
	}

	cmd.Flags().BoolVar(&refresh, "refresh", false, "bypass the suggestion cache")
	cmd.Flags().BoolVar(&noCache, "no-cache", false, "disable caching")

	return cmd
}

// runSuggest fetches a suggestion for the plan document and merges it in.
func (c *CLI) runSuggest(ctx context.Context, input string, refresh, noCache bool) error {
	doc, err := plan.ImportDocument(input)
	if err != nil {
		return err
	}

	client, err := newOptimizerClient(noCache)
	if err != nil {
		return err
	}

	req := optimizer.Request{
		Items:   doc.Items,
		Dieline: doc.Dieline.Geometry,
		Constraints: optimizer.Constraints{
			MaxOverrun: doc.Policy.MaxOverrun,
			QtyPerRoll: doc.Policy.QtyPerRoll,
		},
	}

	spinner := newSpinnerWithContext(ctx, "Asking the suggestion service...")
	spinner.Start()
	resp, err := client.Suggest(ctx, doc.OrderID, req, refresh)
	if err != nil {
		if errors.IsRateLimited(err) {
			spinner.StopWithError("Suggestion service is rate limited")
			var rl *errors.RateLimitedError
			if stderrors.As(err, &rl) && rl.RetryAfter > 0 {
				printDetail("retry in %d seconds", rl.RetryAfter)
			}
			printWarning("Keeping local candidates")
			return nil
		}
		spinner.StopWithError("Suggestion failed")
		return fmt.Errorf("suggest: %w", err)
	}
	spinner.Stop()

	merged, err := plan.NewPlanner(c.Logger).MergeSuggestion(ctx, plan.MergeRequest{
		OrderID:    doc.OrderID,
		Items:      doc.Items,
		Dieline:    doc.Dieline.Geometry,
		Weights:    doc.Weights,
		Policy:     doc.Policy,
		Options:    doc.Options,
		SelectedID: doc.SelectedID,
		Suggested:  resp.Runs,
		Reasoning:  resp.OverallReasoning,
	})
	if err != nil {
		return fmt.Errorf("merge suggestion: %w", err)
	}

	doc.Options = merged.Options
	doc.SelectedID = merged.SelectedID
	if err := plan.ExportDocument(doc, input); err != nil {
		return err
	}

	if merged.Selected {
		printSuccess("Suggestion merged and selected")
	} else {
		printSuccess("Suggestion merged; the local candidate still wins")
	}
	printFile(input)
	if resp.OverallReasoning != "" {
		printDetail("%s", resp.OverallReasoning)
	}
	printNewline()
	printOptions(doc)

	return nil
}
