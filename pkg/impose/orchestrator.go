package impose

import (
	"context"
	"fmt"
	"sync"

	"github.com/charmbracelet/log"

	"github.com/rollfed/gangrun/pkg/errors"
	"github.com/rollfed/gangrun/pkg/integrations/imposer"
	"github.com/rollfed/gangrun/pkg/observability"
	"github.com/rollfed/gangrun/pkg/plan"
	"github.com/rollfed/gangrun/pkg/store"
)

// ImpositionService is the slice of the imposition client the orchestrator
// depends on.
type ImpositionService interface {
	Submit(ctx context.Context, req imposer.Request) (*imposer.SubmitResult, error)
	RunStatus(ctx context.Context, runID string) (*imposer.PollResult, error)
}

// AssetResolver resolves a print asset reference to a signed download URL.
type AssetResolver interface {
	SignedURL(ctx context.Context, assetRef string) (string, error)
}

// =============================================================================
// Orchestrator
// =============================================================================

// Orchestrator executes an order's queued runs against the imposition
// service, one at a time, persisting every state change through the store.
type Orchestrator struct {
	Imposer ImpositionService
	Assets  AssetResolver
	Store   store.Store
	Policy  ExecutePolicy
	Clock   Clock
	Logger  *log.Logger

	// OnProgress, when set, receives a snapshot after every progress
	// change. Called from the executing goroutine.
	OnProgress func(Progress)

	mu       sync.RWMutex
	progress Progress
}

// NewOrchestrator wires an orchestrator. The imposition service and store
// are required; assets may be nil when no item carries a print asset. A nil
// logger falls back to the default logger, a nil clock to real time.
func NewOrchestrator(svc ImpositionService, assets AssetResolver, st store.Store, policy ExecutePolicy, logger *log.Logger) (*Orchestrator, error) {
	if svc == nil {
		return nil, errors.New(errors.ErrCodeInvalidInput, "imposition service is required")
	}
	if st == nil {
		return nil, errors.New(errors.ErrCodeInvalidInput, "store is required")
	}
	if err := policy.ValidateAndSetDefaults(); err != nil {
		return nil, err
	}
	if logger == nil {
		logger = log.Default()
	}
	return &Orchestrator{
		Imposer:  svc,
		Assets:   assets,
		Store:    st,
		Policy:   policy,
		Clock:    SystemClock{},
		Logger:   logger,
		progress: Progress{Status: BatchIdle},
	}, nil
}

// Progress returns a snapshot of the current batch state.
func (o *Orchestrator) Progress() Progress {
	o.mu.RLock()
	defer o.mu.RUnlock()
	return o.progress.clone()
}

// Reset returns the orchestrator to idle. The caller is responsible for
// not resetting while a batch is executing.
func (o *Orchestrator) Reset() {
	o.updateProgress(func(p *Progress) { *p = Progress{Status: BatchIdle} })
}

func (o *Orchestrator) updateProgress(fn func(*Progress)) {
	o.mu.Lock()
	fn(&o.progress)
	snapshot := o.progress.clone()
	o.mu.Unlock()
	if o.OnProgress != nil {
		o.OnProgress(snapshot)
	}
}

// =============================================================================
// Batch Execution
// =============================================================================

// Execute drives every planned run of the order through imposition, in run
// order. Per-run failures are annotated on the run record and returned as
// structured results; Execute errors only on invalid input, storage
// failures, or cancellation.
func (o *Orchestrator) Execute(ctx context.Context, batch Batch) (*Report, error) {
	if err := batch.Validate(); err != nil {
		return nil, fmt.Errorf("invalid imposition batch: %w", err)
	}
	if err := o.Policy.ValidateAndSetDefaults(); err != nil {
		return nil, err
	}

	runs, err := o.Store.ListRuns(ctx, batch.OrderID)
	if err != nil {
		return nil, err
	}
	if len(runs) == 0 {
		return nil, errors.New(errors.ErrCodeRunNotFound, "order %q has no queued runs", batch.OrderID)
	}

	if batch.Force {
		if err := o.resetForReimpose(ctx, runs); err != nil {
			return nil, err
		}
		for i := range runs {
			runs[i].Status = store.StatusPlanned
		}
	}

	queue := make([]store.RunRecord, 0, len(runs))
	for _, r := range runs {
		if r.Status == store.StatusPlanned {
			queue = append(queue, r)
		}
	}

	report := &Report{OrderID: batch.OrderID}
	start := o.Clock.Now()

	if len(queue) == 0 {
		o.updateProgress(func(p *Progress) { *p = Progress{Status: BatchComplete} })
		o.Logger.Info("no runs pending imposition", "order", batch.OrderID)
		return report, nil
	}

	items := make(map[string]plan.Item, len(batch.Items))
	for _, it := range batch.Items {
		items[it.ID] = it
	}

	o.updateProgress(func(p *Progress) {
		*p = Progress{Status: BatchImposing, Total: len(queue)}
	})

	hooks := observability.Impose()
	consecutive := 0

	for i, run := range queue {
		// Cancellation is cooperative, checked once per run boundary.
		if err := ctx.Err(); err != nil {
			o.updateProgress(func(p *Progress) { p.Status = BatchError })
			report.Duration = o.Clock.Now().Sub(start)
			return report, err
		}
		if i > 0 {
			if err := o.Clock.Sleep(ctx, o.Policy.InterRunDelay); err != nil {
				o.updateProgress(func(p *Progress) { p.Status = BatchError })
				report.Duration = o.Clock.Now().Sub(start)
				return report, err
			}
		}

		o.updateProgress(func(p *Progress) {
			p.CurrentIndex = i + 1
			p.CurrentRunNumber = run.RunNumber
		})
		hooks.OnRunStart(ctx, run.ID, run.RunNumber)
		runStart := o.Clock.Now()

		artifacts, runErr := o.imposeRun(ctx, &batch, items, run)
		runDuration := o.Clock.Now().Sub(runStart)

		if runErr != nil && ctx.Err() != nil {
			// The batch was cancelled mid-run; put the run back without
			// blaming the service.
			o.revertRun(run.ID, "")
			o.updateProgress(func(p *Progress) { p.Status = BatchError })
			report.Duration = o.Clock.Now().Sub(start)
			return report, ctx.Err()
		}

		if runErr != nil {
			msg := errors.UserMessage(runErr)
			o.revertRun(run.ID, msg)
			o.updateProgress(func(p *Progress) {
				p.Errors = append(p.Errors, fmt.Sprintf("run %d: %s", run.RunNumber, msg))
			})
			consecutive++
			report.Failed++
			report.Results = append(report.Results, RunResult{
				RunID:     run.ID,
				RunNumber: run.RunNumber,
				Outcome:   OutcomeFailed,
				Err:       msg,
			})
			hooks.OnRunComplete(ctx, run.ID, string(OutcomeFailed), runDuration, runErr)
			o.Logger.Error("imposition run failed",
				"order", batch.OrderID,
				"run", run.RunNumber,
				"consecutive", consecutive,
				"err", runErr)

			if consecutive >= o.Policy.MaxConsecutiveFailures {
				report.Aborted = true
				o.skipRemaining(ctx, queue[i+1:], report)
				hooks.OnBatchAborted(ctx, consecutive)
				o.Logger.Error("imposition batch aborted",
					"order", batch.OrderID,
					"consecutive_failures", consecutive,
					"skipped", len(queue)-i-1)
				break
			}
			continue
		}

		o.completeRun(ctx, run, artifacts)
		consecutive = 0
		report.Completed++
		report.Results = append(report.Results, RunResult{
			RunID:     run.ID,
			RunNumber: run.RunNumber,
			Outcome:   OutcomeCompleted,
			Artifacts: artifacts,
		})
		hooks.OnRunComplete(ctx, run.ID, string(OutcomeCompleted), runDuration, nil)
		o.Logger.Info("imposition run completed",
			"order", batch.OrderID,
			"run", run.RunNumber,
			"artifacts", len(artifacts),
			"duration", runDuration)
	}

	report.Duration = o.Clock.Now().Sub(start)
	final := BatchComplete
	if report.Aborted {
		final = BatchError
	}
	o.updateProgress(func(p *Progress) { p.Status = final })
	o.Logger.Info("imposition batch finished",
		"order", batch.OrderID,
		"completed", report.Completed,
		"failed", report.Failed,
		"skipped", report.Skipped,
		"duration", report.Duration)
	return report, nil
}

// =============================================================================
// Single Run
// =============================================================================

// imposeRun submits one run and, for asynchronous processing, polls until a
// terminal state. It returns the artifact URLs on success.
func (o *Orchestrator) imposeRun(ctx context.Context, batch *Batch, items map[string]plan.Item, run store.RunRecord) ([]string, error) {
	if err := o.Store.UpdateRunStatus(ctx, run.ID, store.StatusImposing); err != nil {
		return nil, err
	}

	req, err := o.buildRequest(ctx, batch, items, run)
	if err != nil {
		return nil, err
	}

	// Submission is never retried: the call isn't idempotent and a
	// duplicate submission would produce duplicate press files.
	subCtx, cancel := context.WithTimeout(ctx, o.Policy.RequestTimeout)
	result, err := o.Imposer.Submit(subCtx, *req)
	cancel()
	if err != nil {
		return nil, fmt.Errorf("submit run %d: %w", run.RunNumber, err)
	}

	if result.Outcome == imposer.OutcomeCompleted {
		return result.Artifacts, nil
	}
	return o.pollRun(ctx, run)
}

// buildRequest assembles the wire request for one run, resolving each
// item's print asset to a signed URL.
func (o *Orchestrator) buildRequest(ctx context.Context, batch *Batch, items map[string]plan.Item, run store.RunRecord) (*imposer.Request, error) {
	assignments := make([]imposer.Assignment, len(run.SlotAssignments))
	for i, sa := range run.SlotAssignments {
		item, ok := items[sa.ItemID]
		if !ok {
			return nil, errors.New(errors.ErrCodeInvalidItems,
				"run %d references unknown item %q", run.RunNumber, sa.ItemID)
		}

		assetURL := ""
		if item.PrintAssetRef != "" {
			if o.Assets == nil {
				return nil, errors.New(errors.ErrCodeInvalidInput,
					"item %q has a print asset but no asset resolver is configured", item.ID)
			}
			rctx, cancel := context.WithTimeout(ctx, o.Policy.RequestTimeout)
			signed, err := o.Assets.SignedURL(rctx, item.PrintAssetRef)
			cancel()
			if err != nil {
				return nil, fmt.Errorf("resolve asset for item %q: %w", item.ID, err)
			}
			assetURL = signed
		}

		assignments[i] = imposer.Assignment{
			Slot:     sa.SlotIndex,
			ItemID:   sa.ItemID,
			Quantity: sa.QuantityInSlot,
			Rotation: sa.NeedsRotation,
			AssetURL: assetURL,
		}
	}

	return &imposer.Request{
		RunID:           run.ID,
		OrderID:         batch.OrderID,
		Dieline:         batch.Dieline,
		SlotAssignments: assignments,
		IncludeDielines: o.Policy.IncludeDielines,
		MetersToPrint:   run.Meters,
	}, nil
}

// pollRun reads the run's persisted status at the policy interval until it
// is approved, reverted, or the poll timeout elapses.
func (o *Orchestrator) pollRun(ctx context.Context, run store.RunRecord) ([]string, error) {
	deadline := o.Clock.Now().Add(o.Policy.PollTimeout)
	for {
		if err := o.Clock.Sleep(ctx, o.Policy.PollInterval); err != nil {
			return nil, err
		}

		pollCtx, cancel := context.WithTimeout(ctx, o.Policy.RequestTimeout)
		result, err := o.Imposer.RunStatus(pollCtx, run.ID)
		cancel()
		if err != nil {
			return nil, fmt.Errorf("poll run %d: %w", run.RunNumber, err)
		}

		switch result.State {
		case imposer.StateApproved:
			return result.Artifacts, nil
		case imposer.StateReverted:
			return nil, errors.New(errors.ErrCodeRemoteRejected,
				"run %d was rejected by the imposition service", run.RunNumber)
		}

		if o.Clock.Now().After(deadline) {
			return nil, errors.New(errors.ErrCodePollTimeout,
				"run %d still processing after %s", run.RunNumber, o.Policy.PollTimeout)
		}
	}
}

// =============================================================================
// Store Transitions
// =============================================================================

// revertRun puts a run back to planned with the given failure note. Store
// errors here are logged, not returned: the run outcome is already decided
// and the batch should keep moving.
func (o *Orchestrator) revertRun(id, msg string) {
	ctx := context.Background()
	if err := o.Store.AnnotateRunError(ctx, id, msg); err != nil {
		o.Logger.Error("annotate run error failed", "run", id, "err", err)
	}
	if err := o.Store.UpdateRunStatus(ctx, id, store.StatusPlanned); err != nil {
		o.Logger.Error("reset run status failed", "run", id, "err", err)
	}
}

func (o *Orchestrator) completeRun(ctx context.Context, run store.RunRecord, artifacts []string) {
	if err := o.Store.AttachArtifacts(ctx, run.ID, artifacts); err != nil {
		o.Logger.Error("attach artifacts failed", "run", run.ID, "err", err)
	}
	if err := o.Store.AnnotateRunError(ctx, run.ID, ""); err != nil {
		o.Logger.Error("clear run error failed", "run", run.ID, "err", err)
	}
	if err := o.Store.UpdateRunStatus(ctx, run.ID, store.StatusImposed); err != nil {
		o.Logger.Error("mark run imposed failed", "run", run.ID, "err", err)
	}
	o.updateProgress(func(p *Progress) {
		p.CompletedRunIDs = append(p.CompletedRunIDs, run.ID)
	})
}

// skipRemaining marks every not-yet-attempted run skipped with the fixed
// abort reason.
func (o *Orchestrator) skipRemaining(ctx context.Context, remaining []store.RunRecord, report *Report) {
	for _, run := range remaining {
		if err := o.Store.AnnotateRunError(ctx, run.ID, AbortReason); err != nil {
			o.Logger.Error("annotate skipped run failed", "run", run.ID, "err", err)
		}
		if err := o.Store.UpdateRunStatus(ctx, run.ID, store.StatusSkipped); err != nil {
			o.Logger.Error("mark run skipped failed", "run", run.ID, "err", err)
		}
		report.Skipped++
		report.Results = append(report.Results, RunResult{
			RunID:     run.ID,
			RunNumber: run.RunNumber,
			Outcome:   OutcomeSkipped,
			Err:       AbortReason,
		})
	}
}

// resetForReimpose returns every non-planned run to planned, clearing
// artifacts and stale annotations, so the whole order can be re-run.
func (o *Orchestrator) resetForReimpose(ctx context.Context, runs []store.RunRecord) error {
	for _, run := range runs {
		if run.Status == store.StatusPlanned {
			continue
		}
		if err := o.Store.AttachArtifacts(ctx, run.ID, nil); err != nil {
			return err
		}
		if err := o.Store.AnnotateRunError(ctx, run.ID, ""); err != nil {
			return err
		}
		if err := o.Store.UpdateRunStatus(ctx, run.ID, store.StatusPlanned); err != nil {
			return err
		}
	}
	return nil
}
