package cli

import (
	"context"
	"fmt"
	"os"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"

	"github.com/rollfed/gangrun/pkg/impose"
	"github.com/rollfed/gangrun/pkg/plan"
)

// imposeOpts carries the impose command inputs from flag parsing to
// execution.
type imposeOpts struct {
	force      bool
	plain      bool
	noCache    bool
	configPath string
}

// imposeCommand creates the impose command for sending runs to press.
func (c *CLI) imposeCommand() *cobra.Command {
	var opts imposeOpts

	cmd := &cobra.Command{
		Use:   "impose [order.plan.json]",
		Short: "Submit the selected layout's runs to the imposition service",
		Long: `Submit the selected layout's runs to the imposition service.

The impose command queues one production run per run of the selected
layout, then works through the queue: submit, poll until the service
finishes, record the artifacts. Run state is persisted, so a re-run
picks up where the last one stopped and already-imposed runs are
skipped. Use --force to redo them after a die or artwork change.

Repeated failures trip a circuit breaker that skips the rest of the
queue rather than hammering a broken service.

Requires GANGRUN_IMPOSER_URL; items with print assets also need
GANGRUN_ASSETS_URL.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.runImpose(cmd.Context(), args[0], opts)
		},
	}

	cmd.Flags().BoolVar(&opts.force, "force", false, "redo runs that already imposed")
	cmd.Flags().BoolVar(&opts.plain, "plain", false, "log progress instead of the live view")
	cmd.Flags().BoolVar(&opts.noCache, "no-cache", false, "disable caching")
	cmd.Flags().StringVar(&opts.configPath, "config", "", "config file (default gangrun.toml in the config dir)")

	return cmd
}

// runImpose queues the selected layout's runs and executes the batch.
func (c *CLI) runImpose(ctx context.Context, input string, opts imposeOpts) error {
	doc, err := plan.ImportDocument(input)
	if err != nil {
		return err
	}

	client, err := newImposerClient()
	if err != nil {
		return err
	}

	resolver, err := newAssetResolver(opts.noCache)
	if err != nil {
		return err
	}
	if resolver == nil && hasPrintAssets(doc.Items) {
		printWarning("%s is not set; runs with print assets will fail", envAssetsURL)
	}

	cfg, cfgPath, err := loadConfig(opts.configPath)
	if err != nil {
		return err
	}
	if cfgPath != "" {
		c.Logger.Debugf("Using config %s", cfgPath)
	}

	st, err := newStateStore()
	if err != nil {
		return err
	}
	defer st.Close(context.Background())

	if !client.Healthy(ctx) {
		printWarning("Imposition service did not answer its health check")
	}

	runs, err := impose.EnsureRuns(ctx, st, doc)
	if err != nil {
		return err
	}

	// A nil *assets.Resolver must stay a nil interface, or the
	// orchestrator would call through it.
	var assetRes impose.AssetResolver
	if resolver != nil {
		assetRes = resolver
	}

	orch, err := impose.NewOrchestrator(client, assetRes, st, cfg.executePolicy(), c.Logger)
	if err != nil {
		return err
	}

	batch := impose.Batch{
		OrderID: doc.OrderID,
		Dieline: doc.Dieline.Geometry,
		Items:   doc.Items,
		Force:   opts.force,
	}

	c.Logger.Infof("Imposing %s: %d runs of layout %s", doc.OrderID, len(runs), doc.SelectedID)

	var report *impose.Report
	if opts.plain || !isatty.IsTerminal(os.Stdout.Fd()) {
		report, err = orch.Execute(ctx, batch)
	} else {
		report, err = c.executeWithTUI(ctx, orch, batch, len(runs))
	}

	// Cancellation still yields a partial report worth showing.
	if report != nil {
		printReport(report)
	}
	if err != nil {
		return err
	}
	if report.Failed > 0 || report.Aborted {
		return fmt.Errorf("%d of %d runs did not impose", report.Failed+report.Skipped, len(report.Results))
	}
	return nil
}

// executeWithTUI runs the batch behind a live progress view. The view's
// cancel key stops the orchestrator context; the batch result is always
// harvested from the executing goroutine.
func (c *CLI) executeWithTUI(ctx context.Context, orch *impose.Orchestrator, batch impose.Batch, total int) (*impose.Report, error) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	prog := tea.NewProgram(NewImposeProgressModel(batch.OrderID, total, cancel))
	orch.OnProgress = func(p impose.Progress) {
		prog.Send(progressMsg(p))
	}

	type batchResult struct {
		report *impose.Report
		err    error
	}
	resCh := make(chan batchResult, 1)
	go func() {
		report, err := orch.Execute(ctx, batch)
		resCh <- batchResult{report, err}
		prog.Send(batchDoneMsg{})
	}()

	if _, err := prog.Run(); err != nil {
		cancel()
		res := <-resCh
		if res.err == nil {
			res.err = fmt.Errorf("progress view: %w", err)
		}
		return res.report, res.err
	}

	res := <-resCh
	return res.report, res.err
}

// hasPrintAssets reports whether any item references press-ready artwork.
func hasPrintAssets(items []plan.Item) bool {
	for _, it := range items {
		if it.PrintAssetRef != "" {
			return true
		}
	}
	return false
}
