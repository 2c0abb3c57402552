// Package impose drives a selected layout's runs through the remote
// imposition service.
//
// # Overview
//
// Imposition turns a planned run into press-ready artifacts: the remote
// service receives the run's slot assignments plus signed artwork URLs and
// renders the actual print files. The orchestrator owns everything around
// that call: submission timeouts, status polling, failure annotation,
// circuit breaking, and progress reporting.
//
// # Execution model
//
// Runs execute strictly sequentially. A batch suspends only at the remote
// submission, each status poll, and the fixed inter-run delay; cancellation
// is cooperative and takes effect at run boundaries. One orchestrator
// instance serves one batch at a time - starting a second batch while one
// is in flight is a caller error, guarded at the API layer, not here.
//
// # Failure handling
//
// A failed run is annotated with a human-readable reason and reset to
// planned so it can be re-submitted. Consecutive failures trip a circuit
// breaker that marks every remaining run skipped with one fixed reason,
// preventing a long queue from failing run-by-run against a broken service.
package impose

import (
	"time"

	"github.com/rollfed/gangrun/pkg/errors"
	"github.com/rollfed/gangrun/pkg/geometry"
	"github.com/rollfed/gangrun/pkg/plan"
)

// AbortReason is the annotation every skipped run receives when the
// circuit breaker trips. It is deliberately identical across runs so a
// skipped run is never mistaken for an individually diagnosed failure.
const AbortReason = "aborted after consecutive failures"

// =============================================================================
// Execute Policy
// =============================================================================

// Default policy knobs.
const (
	DefaultPollInterval           = 2 * time.Second
	DefaultPollTimeout            = 90 * time.Second
	DefaultRequestTimeout         = 30 * time.Second
	DefaultMaxConsecutiveFailures = 3
	DefaultInterRunDelay          = 500 * time.Millisecond
)

// ExecutePolicy tunes the orchestrator's timing and failure tolerance.
// The zero value is usable: ValidateAndSetDefaults fills in every knob.
type ExecutePolicy struct {
	// PollInterval is the fixed delay between status polls of an
	// asynchronously processing run.
	PollInterval time.Duration `json:"poll_interval"`

	// PollTimeout bounds the total time spent polling one run before it
	// counts as failed.
	PollTimeout time.Duration `json:"poll_timeout"`

	// RequestTimeout bounds each individual remote call (submission,
	// status poll, asset resolution).
	RequestTimeout time.Duration `json:"request_timeout"`

	// MaxConsecutiveFailures trips the circuit breaker: when this many
	// runs fail back-to-back, the remaining queue is skipped.
	MaxConsecutiveFailures int `json:"max_consecutive_failures"`

	// InterRunDelay is inserted between runs regardless of outcome, as
	// backpressure on the remote service.
	InterRunDelay time.Duration `json:"inter_run_delay"`

	// IncludeDielines asks the service to draw dieline strokes on the
	// produced artifacts (proofing aid).
	IncludeDielines bool `json:"include_dielines"`

	// validated tracks whether ValidateAndSetDefaults has been called.
	validated bool `json:"-"`
}

// ValidateAndSetDefaults validates the policy and fills in defaults for
// unset knobs. Safe to call multiple times.
func (p *ExecutePolicy) ValidateAndSetDefaults() error {
	if p.validated {
		return nil
	}

	if p.PollInterval == 0 {
		p.PollInterval = DefaultPollInterval
	}
	if p.PollTimeout == 0 {
		p.PollTimeout = DefaultPollTimeout
	}
	if p.RequestTimeout == 0 {
		p.RequestTimeout = DefaultRequestTimeout
	}
	if p.MaxConsecutiveFailures == 0 {
		p.MaxConsecutiveFailures = DefaultMaxConsecutiveFailures
	}
	if p.InterRunDelay == 0 {
		p.InterRunDelay = DefaultInterRunDelay
	}

	if p.PollInterval < 0 {
		return errors.New(errors.ErrCodeInvalidPolicy, "poll interval must be positive, got %s", p.PollInterval)
	}
	if p.PollTimeout < p.PollInterval {
		return errors.New(errors.ErrCodeInvalidPolicy, "poll timeout %s is shorter than the poll interval %s", p.PollTimeout, p.PollInterval)
	}
	if p.RequestTimeout < 0 {
		return errors.New(errors.ErrCodeInvalidPolicy, "request timeout must be positive, got %s", p.RequestTimeout)
	}
	if p.MaxConsecutiveFailures < 1 {
		return errors.New(errors.ErrCodeInvalidPolicy, "max consecutive failures must be at least 1, got %d", p.MaxConsecutiveFailures)
	}
	if p.InterRunDelay < 0 {
		return errors.New(errors.ErrCodeInvalidPolicy, "inter-run delay must not be negative, got %s", p.InterRunDelay)
	}

	p.validated = true
	return nil
}

// =============================================================================
// Batch
// =============================================================================

// Batch describes one imposition pass over an order's queued runs.
type Batch struct {
	OrderID string                   `json:"order_id"`
	Dieline geometry.DielineGeometry `json:"dieline"`

	// Items are the order's item records; slot assignments are resolved
	// against them for rotation and print assets.
	Items []plan.Item `json:"items"`

	// Force resets runs that already succeeded (or were skipped) back to
	// planned before queueing, clearing their artifacts. Used after a
	// dieline or artwork change.
	Force bool `json:"force,omitempty"`
}

// Validate checks the batch inputs.
func (b *Batch) Validate() error {
	if err := errors.ValidateOrderID(b.OrderID); err != nil {
		return err
	}
	if err := b.Dieline.Validate(); err != nil {
		return err
	}
	return plan.ValidateItems(b.Items)
}

// =============================================================================
// Progress
// =============================================================================

// BatchStatus is the orchestrator's batch-level state.
type BatchStatus string

const (
	BatchIdle     BatchStatus = "idle"
	BatchImposing BatchStatus = "imposing"
	BatchComplete BatchStatus = "complete"
	BatchError    BatchStatus = "error"
)

// Progress is a live snapshot of a batch, updated after every run. Callers
// can render it (TUI, API) without waiting for the whole batch.
type Progress struct {
	Status BatchStatus `json:"status"`

	// CurrentIndex is the 1-based position of the run being processed;
	// it equals Total once the batch finishes.
	CurrentIndex int `json:"current_index"`

	// Total is the number of runs queued in this batch.
	Total int `json:"total"`

	// CurrentRunNumber is the layout run number being processed.
	CurrentRunNumber int `json:"current_run_number,omitempty"`

	// Errors accumulates per-run failure messages in occurrence order.
	Errors []string `json:"errors,omitempty"`

	// CompletedRunIDs lists the runs that produced artifacts so far.
	CompletedRunIDs []string `json:"completed_run_ids,omitempty"`
}

// clone returns an independent copy safe to hand to callbacks.
func (p Progress) clone() Progress {
	out := p
	out.Errors = append([]string(nil), p.Errors...)
	out.CompletedRunIDs = append([]string(nil), p.CompletedRunIDs...)
	return out
}

// =============================================================================
// Report
// =============================================================================

// Outcome is the per-run result of one batch pass.
type Outcome string

const (
	// OutcomeCompleted means the run produced artifacts.
	OutcomeCompleted Outcome = "completed"

	// OutcomeFailed means the run failed and was reset to planned.
	OutcomeFailed Outcome = "failed"

	// OutcomeSkipped means the circuit breaker aborted the batch before
	// the run was attempted.
	OutcomeSkipped Outcome = "skipped"
)

// RunResult is the outcome of a single run within a batch.
type RunResult struct {
	RunID     string   `json:"run_id"`
	RunNumber int      `json:"run_number"`
	Outcome   Outcome  `json:"outcome"`
	Err       string   `json:"error,omitempty"`
	Artifacts []string `json:"artifacts,omitempty"`
}

// Report summarizes one batch pass. Failures are structured results, not
// errors: Execute returns a non-nil error only for invalid input, storage
// problems, or cancellation.
type Report struct {
	OrderID   string        `json:"order_id"`
	Results   []RunResult   `json:"results"`
	Completed int           `json:"completed"`
	Failed    int           `json:"failed"`
	Skipped   int           `json:"skipped"`
	Aborted   bool          `json:"aborted"`
	Duration  time.Duration `json:"duration"`
}
