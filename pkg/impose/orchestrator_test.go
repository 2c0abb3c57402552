package impose

import (
	"context"
	stderrors "errors"
	"fmt"
	"io"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/charmbracelet/log"

	"github.com/rollfed/gangrun/pkg/errors"
	"github.com/rollfed/gangrun/pkg/integrations/imposer"
	"github.com/rollfed/gangrun/pkg/observability"
	"github.com/rollfed/gangrun/pkg/plan"
	"github.com/rollfed/gangrun/pkg/store"
)

// =============================================================================
// Fakes
// =============================================================================

// fakeClock advances instantly on Sleep so poll loops run without timers.
type fakeClock struct {
	mu    sync.Mutex
	now   time.Time
	slept []time.Duration
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2026, 3, 1, 8, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Sleep(ctx context.Context, d time.Duration) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.slept = append(c.slept, d)
	c.mu.Unlock()
	return nil
}

func (c *fakeClock) sleepCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.slept)
}

// fakeImposer scripts the remote service per test.
type fakeImposer struct {
	mu       sync.Mutex
	submits  []imposer.Request
	polls    map[string]int
	onSubmit func(req imposer.Request) (*imposer.SubmitResult, error)
	onPoll   func(runID string, attempt int) (*imposer.PollResult, error)
}

func newFakeImposer() *fakeImposer {
	return &fakeImposer{polls: make(map[string]int)}
}

func (f *fakeImposer) Submit(ctx context.Context, req imposer.Request) (*imposer.SubmitResult, error) {
	f.mu.Lock()
	f.submits = append(f.submits, req)
	fn := f.onSubmit
	f.mu.Unlock()
	if fn != nil {
		return fn(req)
	}
	return &imposer.SubmitResult{
		Outcome:   imposer.OutcomeCompleted,
		RawStatus: "completed",
		Artifacts: []string{"https://cdn.example/press/" + req.RunID + ".pdf"},
	}, nil
}

func (f *fakeImposer) RunStatus(ctx context.Context, runID string) (*imposer.PollResult, error) {
	f.mu.Lock()
	f.polls[runID]++
	attempt := f.polls[runID]
	fn := f.onPoll
	f.mu.Unlock()
	if fn != nil {
		return fn(runID, attempt)
	}
	return &imposer.PollResult{State: imposer.StateApproved, RawStatus: "approved"}, nil
}

func (f *fakeImposer) submitCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.submits)
}

func (f *fakeImposer) submitted(i int) imposer.Request {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.submits[i]
}

type fakeResolver struct {
	mu    sync.Mutex
	calls []string
}

func (r *fakeResolver) SignedURL(ctx context.Context, ref string) (string, error) {
	r.mu.Lock()
	r.calls = append(r.calls, ref)
	r.mu.Unlock()
	return "https://assets.example/signed/" + ref, nil
}

// =============================================================================
// Fixtures
// =============================================================================

func testLogger() *log.Logger {
	return log.New(io.Discard)
}

func testBatch() Batch {
	return Batch{
		OrderID: "order-7",
		Dieline: testDie(),
		Items:   []plan.Item{{ID: "item-a", RequiredQuantity: 500}},
	}
}

func seedRuns(t *testing.T, s store.Store, count int) []store.RunRecord {
	t.Helper()
	runs := make([]store.RunRecord, count)
	for i := range runs {
		runs[i] = store.RunRecord{
			ID:        fmt.Sprintf("run-%02d", i+1),
			RunNumber: i + 1,
			LayoutID:  "ganged",
			SlotAssignments: []plan.SlotAssignment{
				{SlotIndex: 0, ItemID: "item-a", QuantityInSlot: 500},
			},
			Frames: 125,
			Meters: 6.75,
			Status: store.StatusPlanned,
		}
	}
	if err := s.CreateRuns(context.Background(), "order-7", runs); err != nil {
		t.Fatalf("CreateRuns: %v", err)
	}
	return runs
}

func testOrchestrator(t *testing.T, policy ExecutePolicy) (*Orchestrator, *fakeImposer, *fakeClock, store.Store) {
	t.Helper()
	s := store.NewMemoryStore()
	imp := newFakeImposer()
	o, err := NewOrchestrator(imp, nil, s, policy, testLogger())
	if err != nil {
		t.Fatalf("NewOrchestrator: %v", err)
	}
	clock := newFakeClock()
	o.Clock = clock
	return o, imp, clock, s
}

// =============================================================================
// Construction
// =============================================================================

func TestNewOrchestratorValidation(t *testing.T) {
	s := store.NewMemoryStore()
	imp := newFakeImposer()

	if _, err := NewOrchestrator(nil, nil, s, ExecutePolicy{}, nil); err == nil {
		t.Error("nil service accepted")
	}
	if _, err := NewOrchestrator(imp, nil, nil, ExecutePolicy{}, nil); err == nil {
		t.Error("nil store accepted")
	}
	if _, err := NewOrchestrator(imp, nil, s, ExecutePolicy{PollInterval: -time.Second}, nil); err == nil {
		t.Error("invalid policy accepted")
	}

	o, err := NewOrchestrator(imp, nil, s, ExecutePolicy{}, nil)
	if err != nil {
		t.Fatalf("NewOrchestrator: %v", err)
	}
	if o.Logger == nil || o.Clock == nil {
		t.Error("defaults not filled for logger/clock")
	}
	if got := o.Progress().Status; got != BatchIdle {
		t.Errorf("initial status = %q, want idle", got)
	}
}

// =============================================================================
// Happy Paths
// =============================================================================

func TestExecuteCompletesAllRuns(t *testing.T) {
	o, imp, clock, s := testOrchestrator(t, ExecutePolicy{})
	seedRuns(t, s, 3)

	report, err := o.Execute(context.Background(), testBatch())
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}

	if report.Completed != 3 || report.Failed != 0 || report.Skipped != 0 || report.Aborted {
		t.Errorf("report = %+v, want 3 completed", report)
	}
	if imp.submitCount() != 3 {
		t.Errorf("submit count = %d, want 3", imp.submitCount())
	}
	for _, res := range report.Results {
		if res.Outcome != OutcomeCompleted {
			t.Errorf("run %d outcome = %q, want completed", res.RunNumber, res.Outcome)
		}
		if len(res.Artifacts) != 1 {
			t.Errorf("run %d artifacts = %v, want one", res.RunNumber, res.Artifacts)
		}
	}

	runs, err := s.ListRuns(context.Background(), "order-7")
	if err != nil {
		t.Fatalf("ListRuns: %v", err)
	}
	for _, r := range runs {
		if r.Status != store.StatusImposed {
			t.Errorf("run %d status = %q, want imposed", r.RunNumber, r.Status)
		}
		if len(r.Artifacts) != 1 {
			t.Errorf("run %d stored artifacts = %v, want one", r.RunNumber, r.Artifacts)
		}
	}

	// Two inter-run delays between three synchronously completed runs.
	if clock.sleepCount() != 2 {
		t.Errorf("sleeps = %d, want 2 inter-run delays", clock.sleepCount())
	}
	if report.Duration != 2*DefaultInterRunDelay {
		t.Errorf("Duration = %v, want %v", report.Duration, 2*DefaultInterRunDelay)
	}

	progress := o.Progress()
	if progress.Status != BatchComplete {
		t.Errorf("final status = %q, want complete", progress.Status)
	}
	if len(progress.CompletedRunIDs) != 3 {
		t.Errorf("completed ids = %v, want 3", progress.CompletedRunIDs)
	}
}

func TestExecutePollsUntilApproved(t *testing.T) {
	o, imp, clock, s := testOrchestrator(t, ExecutePolicy{})
	seedRuns(t, s, 1)

	imp.onSubmit = func(req imposer.Request) (*imposer.SubmitResult, error) {
		return &imposer.SubmitResult{Outcome: imposer.OutcomeProcessing, RawStatus: "processing"}, nil
	}
	imp.onPoll = func(runID string, attempt int) (*imposer.PollResult, error) {
		if attempt < 3 {
			return &imposer.PollResult{State: imposer.StateProcessing, RawStatus: "rip_queue"}, nil
		}
		return &imposer.PollResult{
			State:     imposer.StateApproved,
			RawStatus: "approved",
			Artifacts: []string{"https://cdn.example/press/run-01.pdf"},
		}, nil
	}

	report, err := o.Execute(context.Background(), testBatch())
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if report.Completed != 1 {
		t.Fatalf("report = %+v, want 1 completed", report)
	}

	imp.mu.Lock()
	polls := imp.polls["run-01"]
	imp.mu.Unlock()
	if polls != 3 {
		t.Errorf("poll count = %d, want 3", polls)
	}
	// Three poll-interval sleeps, no inter-run delay for a single run.
	if got := clock.sleepCount(); got != 3 {
		t.Errorf("sleeps = %d, want 3", got)
	}

	run, err := s.GetRun(context.Background(), "run-01")
	if err != nil {
		t.Fatalf("GetRun: %v", err)
	}
	if run.Status != store.StatusImposed || len(run.Artifacts) != 1 {
		t.Errorf("run = status %q artifacts %v, want imposed with artifact", run.Status, run.Artifacts)
	}
}

// =============================================================================
// Failure Paths
// =============================================================================

func TestExecutePollTimeoutFailsRun(t *testing.T) {
	policy := ExecutePolicy{PollInterval: 2 * time.Second, PollTimeout: 10 * time.Second}
	o, imp, _, s := testOrchestrator(t, policy)
	seedRuns(t, s, 1)

	imp.onSubmit = func(req imposer.Request) (*imposer.SubmitResult, error) {
		return &imposer.SubmitResult{Outcome: imposer.OutcomeProcessing, RawStatus: "processing"}, nil
	}
	imp.onPoll = func(runID string, attempt int) (*imposer.PollResult, error) {
		return &imposer.PollResult{State: imposer.StateProcessing, RawStatus: "processing"}, nil
	}

	report, err := o.Execute(context.Background(), testBatch())
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if report.Failed != 1 || report.Completed != 0 {
		t.Fatalf("report = %+v, want 1 failed", report)
	}

	run, err := s.GetRun(context.Background(), "run-01")
	if err != nil {
		t.Fatalf("GetRun: %v", err)
	}
	if run.Status != store.StatusPlanned {
		t.Errorf("status = %q, want planned (re-submittable)", run.Status)
	}
	if !strings.Contains(run.Error, "still processing") {
		t.Errorf("annotation = %q, want poll-timeout message", run.Error)
	}
}

func TestExecuteRejectedRunFailsAndReverts(t *testing.T) {
	o, imp, _, s := testOrchestrator(t, ExecutePolicy{})
	seedRuns(t, s, 1)

	imp.onSubmit = func(req imposer.Request) (*imposer.SubmitResult, error) {
		return &imposer.SubmitResult{Outcome: imposer.OutcomeProcessing, RawStatus: "processing"}, nil
	}
	imp.onPoll = func(runID string, attempt int) (*imposer.PollResult, error) {
		return &imposer.PollResult{State: imposer.StateReverted, RawStatus: "not_submitted"}, nil
	}

	report, err := o.Execute(context.Background(), testBatch())
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if report.Failed != 1 {
		t.Fatalf("report = %+v, want 1 failed", report)
	}

	run, _ := s.GetRun(context.Background(), "run-01")
	if run.Status != store.StatusPlanned {
		t.Errorf("status = %q, want planned", run.Status)
	}
	if !strings.Contains(run.Error, "rejected by the imposition service") {
		t.Errorf("annotation = %q, want rejection message", run.Error)
	}
}

type recordingImposeHooks struct {
	observability.NoopImposeHooks
	mu       sync.Mutex
	starts   int
	outcomes []string
	aborts   int
	tripped  int
}

func (h *recordingImposeHooks) OnRunStart(ctx context.Context, runID string, runNumber int) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.starts++
}

func (h *recordingImposeHooks) OnRunComplete(ctx context.Context, runID, outcome string, d time.Duration, err error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.outcomes = append(h.outcomes, outcome)
}

func (h *recordingImposeHooks) OnBatchAborted(ctx context.Context, consecutive int) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.aborts++
	h.tripped = consecutive
}

func TestExecuteCircuitBreakerAbortsQueue(t *testing.T) {
	hooks := &recordingImposeHooks{}
	observability.SetImposeHooks(hooks)
	t.Cleanup(observability.Reset)

	policy := ExecutePolicy{MaxConsecutiveFailures: 2}
	o, imp, _, s := testOrchestrator(t, policy)
	seedRuns(t, s, 5)

	imp.onSubmit = func(req imposer.Request) (*imposer.SubmitResult, error) {
		return nil, stderrors.New("dial tcp: connection refused")
	}

	report, err := o.Execute(context.Background(), testBatch())
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}

	// The service must see exactly two attempts; the breaker stops the rest.
	if imp.submitCount() != 2 {
		t.Errorf("submit count = %d, want exactly 2", imp.submitCount())
	}
	if !report.Aborted || report.Failed != 2 || report.Skipped != 3 || report.Completed != 0 {
		t.Errorf("report = %+v, want aborted with 2 failed / 3 skipped", report)
	}

	ctx := context.Background()
	for i := 1; i <= 2; i++ {
		run, _ := s.GetRun(ctx, fmt.Sprintf("run-%02d", i))
		if run.Status != store.StatusPlanned {
			t.Errorf("run %d status = %q, want planned", i, run.Status)
		}
		if run.Error == "" || run.Error == AbortReason {
			t.Errorf("run %d annotation = %q, want its own failure message", i, run.Error)
		}
	}
	for i := 3; i <= 5; i++ {
		run, _ := s.GetRun(ctx, fmt.Sprintf("run-%02d", i))
		if run.Status != store.StatusSkipped {
			t.Errorf("run %d status = %q, want skipped", i, run.Status)
		}
		if run.Error != AbortReason {
			t.Errorf("run %d annotation = %q, want %q", i, run.Error, AbortReason)
		}
	}

	if got := o.Progress().Status; got != BatchError {
		t.Errorf("final status = %q, want error", got)
	}

	hooks.mu.Lock()
	defer hooks.mu.Unlock()
	if hooks.starts != 2 || hooks.aborts != 1 || hooks.tripped != 2 {
		t.Errorf("hooks = %d starts / %d aborts (tripped at %d), want 2 / 1 / 2",
			hooks.starts, hooks.aborts, hooks.tripped)
	}
}

func TestExecuteFailureCounterResetsOnSuccess(t *testing.T) {
	policy := ExecutePolicy{MaxConsecutiveFailures: 2}
	o, imp, _, s := testOrchestrator(t, policy)
	seedRuns(t, s, 3)

	imp.onSubmit = func(req imposer.Request) (*imposer.SubmitResult, error) {
		if req.RunID == "run-02" {
			return &imposer.SubmitResult{
				Outcome:   imposer.OutcomeCompleted,
				RawStatus: "completed",
				Artifacts: []string{"https://cdn.example/press/run-02.pdf"},
			}, nil
		}
		return nil, stderrors.New("dial tcp: connection refused")
	}

	report, err := o.Execute(context.Background(), testBatch())
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if report.Aborted {
		t.Error("batch aborted despite interleaved success")
	}
	if report.Completed != 1 || report.Failed != 2 || report.Skipped != 0 {
		t.Errorf("report = %+v, want 1 completed / 2 failed", report)
	}
	if imp.submitCount() != 3 {
		t.Errorf("submit count = %d, want 3", imp.submitCount())
	}
}

// =============================================================================
// Queue Filtering and Force
// =============================================================================

func TestExecuteWithoutForceSkipsImposedRuns(t *testing.T) {
	o, imp, _, s := testOrchestrator(t, ExecutePolicy{})
	seedRuns(t, s, 2)
	ctx := context.Background()
	if err := s.AttachArtifacts(ctx, "run-01", []string{"https://cdn.example/old.pdf"}); err != nil {
		t.Fatalf("AttachArtifacts: %v", err)
	}
	if err := s.UpdateRunStatus(ctx, "run-01", store.StatusImposed); err != nil {
		t.Fatalf("UpdateRunStatus: %v", err)
	}

	report, err := o.Execute(ctx, testBatch())
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if report.Completed != 1 {
		t.Errorf("report = %+v, want only the planned run processed", report)
	}
	if imp.submitCount() != 1 || imp.submitted(0).RunID != "run-02" {
		t.Errorf("submitted %d runs (first %q), want only run-02",
			imp.submitCount(), imp.submitted(0).RunID)
	}

	untouched, _ := s.GetRun(ctx, "run-01")
	if untouched.Artifacts[0] != "https://cdn.example/old.pdf" {
		t.Errorf("already imposed run was modified: %v", untouched.Artifacts)
	}
}

func TestExecuteForceReimposesEverything(t *testing.T) {
	o, imp, _, s := testOrchestrator(t, ExecutePolicy{})
	seedRuns(t, s, 2)
	ctx := context.Background()
	for _, id := range []string{"run-01", "run-02"} {
		if err := s.AttachArtifacts(ctx, id, []string{"https://cdn.example/old.pdf"}); err != nil {
			t.Fatalf("AttachArtifacts: %v", err)
		}
		if err := s.AnnotateRunError(ctx, id, "stale note"); err != nil {
			t.Fatalf("AnnotateRunError: %v", err)
		}
		if err := s.UpdateRunStatus(ctx, id, store.StatusImposed); err != nil {
			t.Fatalf("UpdateRunStatus: %v", err)
		}
	}

	batch := testBatch()
	batch.Force = true
	report, err := o.Execute(ctx, batch)
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if report.Completed != 2 {
		t.Errorf("report = %+v, want both runs re-imposed", report)
	}
	if imp.submitCount() != 2 {
		t.Errorf("submit count = %d, want 2", imp.submitCount())
	}

	for _, id := range []string{"run-01", "run-02"} {
		run, _ := s.GetRun(ctx, id)
		if run.Status != store.StatusImposed {
			t.Errorf("%s status = %q, want imposed", id, run.Status)
		}
		if run.Error != "" {
			t.Errorf("%s annotation = %q, want cleared", id, run.Error)
		}
		if len(run.Artifacts) != 1 || run.Artifacts[0] == "https://cdn.example/old.pdf" {
			t.Errorf("%s artifacts = %v, want fresh artifact", id, run.Artifacts)
		}
	}
}

func TestExecuteNoRunsQueued(t *testing.T) {
	o, _, _, _ := testOrchestrator(t, ExecutePolicy{})

	_, err := o.Execute(context.Background(), testBatch())
	if !errors.Is(err, errors.ErrCodeRunNotFound) {
		t.Errorf("error code = %v, want %v", errors.GetCode(err), errors.ErrCodeRunNotFound)
	}
}

func TestExecuteNothingPending(t *testing.T) {
	o, imp, _, s := testOrchestrator(t, ExecutePolicy{})
	seedRuns(t, s, 2)
	ctx := context.Background()
	for _, id := range []string{"run-01", "run-02"} {
		if err := s.UpdateRunStatus(ctx, id, store.StatusImposed); err != nil {
			t.Fatalf("UpdateRunStatus: %v", err)
		}
	}

	report, err := o.Execute(ctx, testBatch())
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if len(report.Results) != 0 || imp.submitCount() != 0 {
		t.Errorf("report = %+v with %d submits, want nothing done", report, imp.submitCount())
	}
	if got := o.Progress().Status; got != BatchComplete {
		t.Errorf("status = %q, want complete", got)
	}
}

// =============================================================================
// Cancellation
// =============================================================================

func TestExecuteCancelledBetweenRuns(t *testing.T) {
	o, imp, _, s := testOrchestrator(t, ExecutePolicy{})
	seedRuns(t, s, 3)

	ctx, cancel := context.WithCancel(context.Background())
	imp.onSubmit = func(req imposer.Request) (*imposer.SubmitResult, error) {
		// Operator cancels while the first run is in flight.
		cancel()
		return &imposer.SubmitResult{
			Outcome:   imposer.OutcomeCompleted,
			RawStatus: "completed",
			Artifacts: []string{"https://cdn.example/press/" + req.RunID + ".pdf"},
		}, nil
	}

	report, err := o.Execute(ctx, testBatch())
	if !stderrors.Is(err, context.Canceled) {
		t.Fatalf("Execute error = %v, want context.Canceled", err)
	}
	if report == nil || report.Completed != 1 {
		t.Fatalf("report = %+v, want the in-flight run completed", report)
	}
	if imp.submitCount() != 1 {
		t.Errorf("submit count = %d, want 1", imp.submitCount())
	}

	// Remaining runs stay planned; cancellation is not a circuit-breaker trip.
	for _, id := range []string{"run-02", "run-03"} {
		run, _ := s.GetRun(context.Background(), id)
		if run.Status != store.StatusPlanned {
			t.Errorf("%s status = %q, want planned", id, run.Status)
		}
		if run.Error != "" {
			t.Errorf("%s annotation = %q, want none", id, run.Error)
		}
	}
	if got := o.Progress().Status; got != BatchError {
		t.Errorf("status = %q, want error after cancellation", got)
	}
}

// =============================================================================
// Request Building
// =============================================================================

func TestExecuteBuildsWireRequest(t *testing.T) {
	policy := ExecutePolicy{IncludeDielines: true}
	o, imp, _, s := testOrchestrator(t, policy)
	resolver := &fakeResolver{}
	o.Assets = resolver

	runs := []store.RunRecord{{
		ID:        "run-01",
		RunNumber: 1,
		LayoutID:  "ganged",
		SlotAssignments: []plan.SlotAssignment{
			{SlotIndex: 0, ItemID: "item-a", QuantityInSlot: 500, NeedsRotation: true},
			{SlotIndex: 1, ItemID: "item-b", QuantityInSlot: 480},
		},
		Frames: 125,
		Meters: 6.75,
		Status: store.StatusPlanned,
	}}
	if err := s.CreateRuns(context.Background(), "order-7", runs); err != nil {
		t.Fatalf("CreateRuns: %v", err)
	}

	batch := Batch{
		OrderID: "order-7",
		Dieline: testDie(),
		Items: []plan.Item{
			{ID: "item-a", RequiredQuantity: 500, NeedsRotation: true, PrintAssetRef: "orders/7/a.pdf"},
			{ID: "item-b", RequiredQuantity: 480},
		},
	}
	if _, err := o.Execute(context.Background(), batch); err != nil {
		t.Fatalf("Execute: %v", err)
	}

	req := imp.submitted(0)
	if req.RunID != "run-01" || req.OrderID != "order-7" {
		t.Errorf("request ids = %q / %q", req.RunID, req.OrderID)
	}
	if !req.IncludeDielines {
		t.Error("IncludeDielines not propagated from policy")
	}
	if req.MetersToPrint != 6.75 {
		t.Errorf("MetersToPrint = %v, want 6.75", req.MetersToPrint)
	}
	if req.Dieline.ColumnsAcross != 6 {
		t.Errorf("dieline not propagated: %+v", req.Dieline)
	}
	if len(req.SlotAssignments) != 2 {
		t.Fatalf("assignments = %d, want 2", len(req.SlotAssignments))
	}

	first := req.SlotAssignments[0]
	if first.AssetURL != "https://assets.example/signed/orders/7/a.pdf" {
		t.Errorf("asset url = %q, want signed url", first.AssetURL)
	}
	if !first.Rotation {
		t.Error("rotation flag lost")
	}
	second := req.SlotAssignments[1]
	if second.AssetURL != "" {
		t.Errorf("asset url = %q for item without asset, want empty", second.AssetURL)
	}

	resolver.mu.Lock()
	defer resolver.mu.Unlock()
	if len(resolver.calls) != 1 || resolver.calls[0] != "orders/7/a.pdf" {
		t.Errorf("resolver calls = %v, want the one asset ref", resolver.calls)
	}
}

func TestExecuteUnknownItemFailsRunBeforeSubmit(t *testing.T) {
	o, imp, _, s := testOrchestrator(t, ExecutePolicy{})
	runs := []store.RunRecord{{
		ID:        "run-01",
		RunNumber: 1,
		LayoutID:  "ganged",
		SlotAssignments: []plan.SlotAssignment{
			{SlotIndex: 0, ItemID: "item-x", QuantityInSlot: 500},
		},
		Status: store.StatusPlanned,
	}}
	if err := s.CreateRuns(context.Background(), "order-7", runs); err != nil {
		t.Fatalf("CreateRuns: %v", err)
	}

	report, err := o.Execute(context.Background(), testBatch())
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if report.Failed != 1 {
		t.Fatalf("report = %+v, want 1 failed", report)
	}
	if imp.submitCount() != 0 {
		t.Errorf("submit count = %d, want 0 (failed before submission)", imp.submitCount())
	}

	run, _ := s.GetRun(context.Background(), "run-01")
	if run.Status != store.StatusPlanned {
		t.Errorf("status = %q, want planned", run.Status)
	}
	if !strings.Contains(run.Error, "unknown item") {
		t.Errorf("annotation = %q, want unknown-item message", run.Error)
	}
}

// =============================================================================
// Progress
// =============================================================================

func TestExecuteReportsProgress(t *testing.T) {
	o, _, _, s := testOrchestrator(t, ExecutePolicy{})
	seedRuns(t, s, 2)

	var snapshots []Progress
	o.OnProgress = func(p Progress) { snapshots = append(snapshots, p) }

	if _, err := o.Execute(context.Background(), testBatch()); err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if len(snapshots) == 0 {
		t.Fatal("no progress snapshots emitted")
	}

	first := snapshots[0]
	if first.Status != BatchImposing || first.Total != 2 {
		t.Errorf("first snapshot = %+v, want imposing with total 2", first)
	}
	last := snapshots[len(snapshots)-1]
	if last.Status != BatchComplete || last.CurrentIndex != 2 {
		t.Errorf("last snapshot = %+v, want complete at index 2", last)
	}
	if len(last.CompletedRunIDs) != 2 {
		t.Errorf("completed ids = %v, want 2", last.CompletedRunIDs)
	}

	maxIndex := 0
	for _, p := range snapshots {
		if p.CurrentIndex < maxIndex {
			t.Errorf("progress index went backwards: %+v", snapshots)
			break
		}
		if p.CurrentIndex > maxIndex {
			maxIndex = p.CurrentIndex
		}
	}
}

func TestReset(t *testing.T) {
	o, _, _, s := testOrchestrator(t, ExecutePolicy{})
	seedRuns(t, s, 1)

	if _, err := o.Execute(context.Background(), testBatch()); err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if o.Progress().Status != BatchComplete {
		t.Fatalf("status = %q before reset", o.Progress().Status)
	}

	o.Reset()
	got := o.Progress()
	if got.Status != BatchIdle || got.Total != 0 || len(got.CompletedRunIDs) != 0 {
		t.Errorf("after reset = %+v, want pristine idle", got)
	}
}
