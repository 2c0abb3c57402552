package api

import (
	"context"
	"encoding/json"
	"io"
	"net/http"

	"github.com/charmbracelet/log"
	"github.com/go-chi/chi/v5"

	"github.com/rollfed/gangrun/pkg/buildinfo"
	"github.com/rollfed/gangrun/pkg/errors"
	"github.com/rollfed/gangrun/pkg/impose"
	"github.com/rollfed/gangrun/pkg/integrations/optimizer"
	"github.com/rollfed/gangrun/pkg/plan"
	"github.com/rollfed/gangrun/pkg/store"
)

// maxRequestBodySize limits the size of incoming request bodies (4MB).
const maxRequestBodySize = 4 * 1024 * 1024

// SuggestionService is the slice of the optimizer client the suggest
// endpoint depends on.
type SuggestionService interface {
	Suggest(ctx context.Context, orderID string, req optimizer.Request, refresh bool) (*optimizer.Response, error)
}

// Handlers contains the HTTP handler methods for the API.
type Handlers struct {
	store     store.Store
	planner   *plan.Planner
	optimizer SuggestionService
	imposer   impose.ImpositionService
	assets    impose.AssetResolver
	policy    impose.ExecutePolicy
	logger    *log.Logger
	batches   *batchTracker
}

// =============================================================================
// Planning
// =============================================================================

// HandlePlan handles POST /api/v1/orders/{orderID}/plan.
//
// It runs the planner on the posted items and dieline, persists the
// resulting plan document as the order's saved layout, and returns the
// ranked candidates.
func (h *Handlers) HandlePlan(w http.ResponseWriter, r *http.Request) {
	orderID := chi.URLParam(r, "orderID")

	var body PlanOrderRequest
	if err := decodeBody(r, &body); err != nil {
		WriteError(w, err)
		return
	}

	req := plan.PlanRequest{
		OrderID: orderID,
		Items:   body.Items,
		Dieline: body.Dieline.Geometry,
		Weights: body.Weights,
		Policy:  body.Policy,
	}
	result, err := h.planner.Plan(r.Context(), req)
	if err != nil {
		WriteError(w, err)
		return
	}

	doc := plan.NewDocument(req, body.Dieline, result)
	if err := h.store.SaveLayout(r.Context(), orderID, doc); err != nil {
		WriteError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, PlanResponse{
		OrderID:    orderID,
		Options:    result.Options,
		SelectedID: result.SelectedID,
		Slots:      result.Slots,
		Stats:      result.Stats,
	})
}

// HandleSuggest handles POST /api/v1/orders/{orderID}/suggest.
//
// It asks the suggestion service for a layout proposal and merges it into
// the saved plan. A rate-limited service degrades the response instead of
// failing it: the stored candidates come back unchanged with a notice.
func (h *Handlers) HandleSuggest(w http.ResponseWriter, r *http.Request) {
	orderID := chi.URLParam(r, "orderID")

	if h.optimizer == nil {
		WriteError(w, errors.New(errors.ErrCodeUnsupported, "suggestion service is not configured"))
		return
	}

	var body SuggestOrderRequest
	if err := decodeBody(r, &body); err != nil {
		WriteError(w, err)
		return
	}

	doc, err := h.store.LoadLayout(r.Context(), orderID)
	if err != nil {
		WriteError(w, err)
		return
	}

	oreq := optimizer.Request{
		Items:   doc.Items,
		Dieline: doc.Dieline.Geometry,
		Constraints: optimizer.Constraints{
			MaxOverrun: doc.Policy.MaxOverrun,
			QtyPerRoll: doc.Policy.QtyPerRoll,
		},
	}
	resp, err := h.optimizer.Suggest(r.Context(), orderID, oreq, body.Refresh)
	if err != nil {
		if errors.IsRateLimited(err) {
			h.logger.Warn("suggestion service rate limited, keeping local candidates", "order", orderID)
			writeJSON(w, http.StatusOK, SuggestResponse{
				OrderID:    orderID,
				Options:    doc.Options,
				SelectedID: doc.SelectedID,
				Degraded:   true,
				Notice:     "suggestion service is busy, showing locally computed layouts",
			})
			return
		}
		WriteError(w, err)
		return
	}

	merged, err := h.planner.MergeSuggestion(r.Context(), plan.MergeRequest{
		OrderID:    orderID,
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
		WriteError(w, err)
		return
	}

	doc.Options = merged.Options
	doc.SelectedID = merged.SelectedID
	if err := h.store.SaveLayout(r.Context(), orderID, doc); err != nil {
		WriteError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, SuggestResponse{
		OrderID:            orderID,
		Options:            merged.Options,
		SelectedID:         merged.SelectedID,
		Suggestion:         &merged.Suggestion,
		SuggestionSelected: merged.Selected,
	})
}

// HandleSelect handles POST /api/v1/orders/{orderID}/select/{layoutID}.
func (h *Handlers) HandleSelect(w http.ResponseWriter, r *http.Request) {
	orderID := chi.URLParam(r, "orderID")
	layoutID := chi.URLParam(r, "layoutID")

	doc, err := h.store.LoadLayout(r.Context(), orderID)
	if err != nil {
		WriteError(w, err)
		return
	}
	if err := doc.Select(layoutID); err != nil {
		WriteError(w, err)
		return
	}
	if err := h.store.SaveLayout(r.Context(), orderID, doc); err != nil {
		WriteError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, SelectResponse{
		OrderID:    orderID,
		SelectedID: doc.SelectedID,
		Option:     *doc.Selected(),
	})
}

// HandleClearLayout handles DELETE /api/v1/orders/{orderID}/layout.
func (h *Handlers) HandleClearLayout(w http.ResponseWriter, r *http.Request) {
	orderID := chi.URLParam(r, "orderID")

	if err := h.store.ClearLayout(r.Context(), orderID); err != nil {
		WriteError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// =============================================================================
// Imposition
// =============================================================================

// HandleImpose handles POST /api/v1/orders/{orderID}/impose.
//
// It queues the selected layout's runs and starts an imposition batch in
// the background, returning 202 immediately. One batch per order may be in
// flight at a time; a second request gets 409 until the first finishes.
func (h *Handlers) HandleImpose(w http.ResponseWriter, r *http.Request) {
	orderID := chi.URLParam(r, "orderID")

	if h.imposer == nil {
		WriteError(w, errors.New(errors.ErrCodeUnsupported, "imposition service is not configured"))
		return
	}
	// Checked again by begin; this keeps a busy order's run queue untouched.
	if h.batches.busy(orderID) {
		WriteError(w, busyError(orderID))
		return
	}

	var body ImposeOrderRequest
	if err := decodeBody(r, &body); err != nil {
		WriteError(w, err)
		return
	}

	doc, err := h.store.LoadLayout(r.Context(), orderID)
	if err != nil {
		WriteError(w, err)
		return
	}
	runs, err := impose.EnsureRuns(r.Context(), h.store, doc)
	if err != nil {
		WriteError(w, err)
		return
	}

	orch, err := impose.NewOrchestrator(h.imposer, h.assets, h.store, h.policy, h.logger)
	if err != nil {
		WriteError(w, err)
		return
	}

	// The batch must outlive this request; it is cancelled by shutdown,
	// not by the client hanging up.
	ctx, cancel := context.WithCancel(context.Background())
	entry, err := h.batches.begin(orderID, orch, cancel)
	if err != nil {
		cancel()
		WriteError(w, err)
		return
	}

	batch := impose.Batch{
		OrderID: orderID,
		Dieline: doc.Dieline.Geometry,
		Items:   doc.Items,
		Force:   body.Force,
	}
	go func() {
		report, execErr := orch.Execute(ctx, batch)
		h.batches.finish(orderID, entry, report, execErr)
		if execErr != nil {
			h.logger.Error("imposition batch failed", "order", orderID, "error", execErr)
		}
	}()

	writeJSON(w, http.StatusAccepted, ImposeAccepted{
		OrderID: orderID,
		Runs:    len(runs),
		Force:   body.Force,
	})
}

// HandleImposeProgress handles GET /api/v1/orders/{orderID}/impose/progress.
//
// While a batch is in flight it returns the orchestrator's live snapshot;
// after the batch finishes the final report rides along. Orders that have
// queued runs but no batch this server lifetime report idle.
func (h *Handlers) HandleImposeProgress(w http.ResponseWriter, r *http.Request) {
	orderID := chi.URLParam(r, "orderID")

	if entry, ok := h.batches.get(orderID); ok {
		resp := ProgressResponse{
			OrderID:  orderID,
			Progress: entry.orch.Progress(),
		}
		if entry.finished() {
			resp.Report = entry.report
		}
		writeJSON(w, http.StatusOK, resp)
		return
	}

	runs, err := h.store.ListRuns(r.Context(), orderID)
	if err != nil {
		WriteError(w, err)
		return
	}
	if len(runs) == 0 {
		WriteError(w, errors.New(errors.ErrCodeRunNotFound, "order %q has no queued runs", orderID))
		return
	}
	writeJSON(w, http.StatusOK, ProgressResponse{
		OrderID:  orderID,
		Progress: impose.Progress{Status: impose.BatchIdle, Total: len(runs)},
	})
}

// =============================================================================
// Health
// =============================================================================

// HandleHealth handles GET /healthz.
func (h *Handlers) HandleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, HealthResponse{
		Status:  "ok",
		Version: buildinfo.Version,
		Commit:  buildinfo.Commit,
	})
}

// =============================================================================
// Helpers
// =============================================================================

// decodeBody parses a JSON request body into v. An empty body leaves v at
// its zero value so endpoints with optional bodies work without one.
func decodeBody(r *http.Request, v any) error {
	limited := io.LimitReader(r.Body, maxRequestBodySize+1)
	body, err := io.ReadAll(limited)
	if err != nil {
		return errors.Wrap(errors.ErrCodeInvalidInput, err, "read request body")
	}
	if len(body) > maxRequestBodySize {
		return errors.New(errors.ErrCodeInvalidInput, "request body too large (max %d bytes)", maxRequestBodySize)
	}
	if len(body) == 0 {
		return nil
	}
	if err := json.Unmarshal(body, v); err != nil {
		return errors.Wrap(errors.ErrCodeInvalidInput, err, "invalid JSON")
	}
	return nil
}

// writeJSON writes a JSON response with the given status code.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		// Headers are already sent; nothing useful left to do.
		log.Default().Error("failed to encode response", "error", err)
	}
}
