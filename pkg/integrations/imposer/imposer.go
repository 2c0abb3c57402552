// Package imposer provides an HTTP client for the remote imposition service.
//
// # Overview
//
// The imposition service lays print-ready artwork into the press's physical
// slot grid and produces the press files for one production run. Submissions
// either complete synchronously or are queued; queued runs are tracked by
// polling their lifecycle status until they are approved, rejected, or the
// caller gives up.
//
// # Usage
//
//	client := imposer.NewClient("https://impose.example.com", nil)
//
//	result, err := client.Submit(ctx, request)
//	if err != nil {
//	    // transport failure, rejection, or rate limit
//	}
//	if result.Outcome == imposer.OutcomeCompleted {
//	    // press files are ready, result.Artifacts holds their URLs
//	}
//
// # Status Vocabulary
//
// The service reports run lifecycle statuses as free-form strings. This
// package folds them into closed variants so callers handle every case:
// submissions map to [Outcome], polls map to [State]. Unrecognized values
// always map to the still-processing variant, never to an error.
package imposer

import (
	"context"
	"time"

	"github.com/rollfed/gangrun/pkg/geometry"
	"github.com/rollfed/gangrun/pkg/httputil"
	"github.com/rollfed/gangrun/pkg/integrations"
)

// Remote status strings with agreed meaning. Anything else is transient.
const (
	statusCompleted    = "completed"
	statusApproved     = "approved"
	statusNotSubmitted = "not_submitted"
)

// Assignment is one slot of a submission payload. AssetURL must be a signed,
// time-limited download URL, never a bare storage reference.
type Assignment struct {
	Slot     int    `json:"slot"`
	ItemID   string `json:"item_id"`
	Quantity int    `json:"quantity"`
	Rotation bool   `json:"rotation"`
	AssetURL string `json:"asset_url"`
}

// Request is the submission payload for one production run.
type Request struct {
	RunID           string                   `json:"run_id"`
	OrderID         string                   `json:"order_id"`
	Dieline         geometry.DielineGeometry `json:"dieline_geometry"`
	SlotAssignments []Assignment             `json:"slot_assignments"`
	IncludeDielines bool                     `json:"include_dielines"`
	MetersToPrint   float64                  `json:"meters_to_print"`
}

// Outcome classifies a submission response.
type Outcome int

const (
	// OutcomeProcessing means the service accepted the run and queued it;
	// the caller must poll for completion.
	OutcomeProcessing Outcome = iota

	// OutcomeCompleted means the service laid out the files synchronously.
	OutcomeCompleted
)

func (o Outcome) String() string {
	if o == OutcomeCompleted {
		return "completed"
	}
	return "processing"
}

// SubmitResult is the decoded outcome of a submission.
type SubmitResult struct {
	Outcome   Outcome
	RawStatus string   // status string as reported by the service
	Artifacts []string // press file URLs, only set on synchronous completion
}

// State classifies a polled run lifecycle status.
type State int

const (
	// StateProcessing means the run is still being worked on, or the
	// service reported a value this build does not recognize.
	StateProcessing State = iota

	// StateApproved is the terminal success state; press files exist.
	StateApproved

	// StateReverted means the run fell back to its pre-submission status:
	// the service gave up on it and it may be re-submitted.
	StateReverted
)

func (s State) String() string {
	switch s {
	case StateApproved:
		return "approved"
	case StateReverted:
		return "reverted"
	default:
		return "processing"
	}
}

// PollResult is one status read of a submitted run.
type PollResult struct {
	State     State
	RawStatus string
	Artifacts []string // populated once the run is approved
}

// Client provides access to the remote imposition service API.
//
// All methods are safe for concurrent use by multiple goroutines, though
// production batches submit runs strictly one at a time.
type Client struct {
	*integrations.Client
	baseURL string
}

// NewClient creates an imposition service client for the given base URL.
// Headers are applied to every request; pass nil if none are needed.
// Imposition responses are never cached, so no cache backend is taken.
func NewClient(baseURL string, headers map[string]string) *Client {
	return &Client{
		Client:  integrations.NewClient(nil, "imposer", 0, headers),
		baseURL: baseURL,
	}
}

type submitResponse struct {
	Status    string   `json:"status"`
	Artifacts []string `json:"artifact_urls,omitempty"`
}

// Submit sends one run to the imposition service.
//
// Submissions are NOT retried: the service may have accepted a run even when
// the response was lost, and a duplicate submission would produce duplicate
// press files. The caller treats a submission error as a failure of that run.
//
// Returns:
//   - [OutcomeCompleted] with artifact URLs when the service finished synchronously
//   - [OutcomeProcessing] when the run was queued (including unknown statuses)
//   - [integrations.ErrRejected] when the service refused the payload
//   - [integrations.ErrNetwork] for transport failures and 5xx responses
//   - a rate limit error for 429 responses
func (c *Client) Submit(ctx context.Context, req Request) (*SubmitResult, error) {
	var resp submitResponse
	url := integrations.JoinURL(c.baseURL, "impositions")
	if err := c.PostJSON(ctx, url, req, &resp); err != nil {
		return nil, err
	}

	result := &SubmitResult{Outcome: OutcomeProcessing, RawStatus: resp.Status}
	if resp.Status == statusCompleted {
		result.Outcome = OutcomeCompleted
		result.Artifacts = resp.Artifacts
	}
	return result, nil
}

type statusResponse struct {
	Status    string   `json:"status"`
	Artifacts []string `json:"artifact_urls,omitempty"`
}

// RunStatus reads the current lifecycle status of a submitted run.
//
// Status reads are idempotent and are retried on transient failures.
// The raw status string is preserved in the result for logging.
func (c *Client) RunStatus(ctx context.Context, runID string) (*PollResult, error) {
	var resp statusResponse
	url := integrations.JoinURL(c.baseURL, "impositions", runID)
	err := httputil.RetryWithBackoff(ctx, func() error {
		return c.Get(ctx, url, &resp)
	})
	if err != nil {
		return nil, err
	}

	result := &PollResult{State: StateProcessing, RawStatus: resp.Status}
	switch resp.Status {
	case statusApproved:
		result.State = StateApproved
		result.Artifacts = resp.Artifacts
	case statusNotSubmitted:
		result.State = StateReverted
	}
	return result, nil
}

// Healthy reports whether the service answers its health endpoint.
// Used as a preflight check before starting a batch.
func (c *Client) Healthy(ctx context.Context) bool {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	_, err := c.GetText(ctx, integrations.JoinURL(c.baseURL, "healthz"))
	return err == nil
}
