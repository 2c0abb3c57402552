// Package store persists production runs and saved layouts.
//
// # Overview
//
// Once an operator selects a layout, its runs become run records: durable
// rows the imposition orchestrator drives through their lifecycle. The
// chosen plan document is saved alongside them for later retrieval, re-use,
// and re-imposition.
//
// # Backends
//
//   - [MemoryStore]: in-process, for tests and ephemeral runs
//   - [FileStore]: JSON files on disk, the CLI default
//   - [MongoStore]: durable shared storage for the API server
//
// All backends implement [Store] and enforce the same lifecycle rules.
package store

import (
	"bytes"
	"context"
	"time"

	"github.com/rollfed/gangrun/pkg/plan"
)

// Status is a run record's lifecycle state.
type Status string

const (
	// StatusPlanned means the run exists but has not been imposed yet.
	// Failed runs return here so they can be re-submitted.
	StatusPlanned Status = "planned"

	// StatusImposing means the run is currently at the imposition service.
	StatusImposing Status = "imposing"

	// StatusImposed is terminal: press files exist.
	StatusImposed Status = "imposed"

	// StatusSkipped is terminal for this batch: the circuit breaker
	// aborted the queue before the run was attempted.
	StatusSkipped Status = "skipped"
)

// Valid reports whether s is one of the known lifecycle states.
func (s Status) Valid() bool {
	switch s {
	case StatusPlanned, StatusImposing, StatusImposed, StatusSkipped:
		return true
	}
	return false
}

// RunRecord is one persisted production run of a selected layout.
type RunRecord struct {
	ID              string                `json:"id" bson:"_id"`
	OrderID         string                `json:"order_id" bson:"order_id"`
	RunNumber       int                   `json:"run_number" bson:"run_number"`
	LayoutID        string                `json:"layout_id" bson:"layout_id"`
	SlotAssignments []plan.SlotAssignment `json:"slot_assignments" bson:"slot_assignments"`
	Frames          int                   `json:"frames" bson:"frames"`
	Meters          float64               `json:"meters" bson:"meters"`
	NeedsRewinding  bool                  `json:"needs_rewinding,omitempty" bson:"needs_rewinding,omitempty"`
	Status          Status                `json:"status" bson:"status"`
	Error           string                `json:"error,omitempty" bson:"error,omitempty"`
	Artifacts       []string              `json:"artifacts,omitempty" bson:"artifacts,omitempty"`
	CreatedAt       time.Time             `json:"created_at" bson:"created_at"`
	UpdatedAt       time.Time             `json:"updated_at" bson:"updated_at"`
}

// Store persists run records and saved layouts.
//
// Implementations must be safe for concurrent use. Writes are last-wins;
// the orchestrator serializes its own writes per batch.
type Store interface {
	// CreateRuns replaces the order's run set with the given records.
	// Records keep the slice order; implementations assign CreatedAt and
	// UpdatedAt.
	CreateRuns(ctx context.Context, orderID string, runs []RunRecord) error

	// GetRun returns the run with the given id, or ErrCodeRunNotFound.
	GetRun(ctx context.Context, id string) (*RunRecord, error)

	// ListRuns returns the order's runs sorted by run number.
	ListRuns(ctx context.Context, orderID string) ([]RunRecord, error)

	// UpdateRunStatus moves a run to the given lifecycle state.
	UpdateRunStatus(ctx context.Context, id string, status Status) error

	// AnnotateRunError records a human-readable failure note on the run.
	// An empty message clears the annotation.
	AnnotateRunError(ctx context.Context, id string, msg string) error

	// AttachArtifacts replaces the run's artifact URL list.
	// Passing nil clears previously produced artifacts.
	AttachArtifacts(ctx context.Context, id string, urls []string) error

	// SaveLayout stores the order's chosen plan document verbatim.
	SaveLayout(ctx context.Context, orderID string, doc *plan.PlanDocument) error

	// LoadLayout returns the order's saved plan document, or
	// ErrCodeLayoutNotFound when none is saved.
	LoadLayout(ctx context.Context, orderID string) (*plan.PlanDocument, error)

	// ClearLayout removes the order's saved plan document. Clearing an
	// absent layout is not an error.
	ClearLayout(ctx context.Context, orderID string) error

	// Close releases the backend's resources.
	Close(ctx context.Context) error
}

// Layouts are stored as the plan document's own JSON so a saved layout
// round-trips byte-exact through any backend.

func encodeLayout(doc *plan.PlanDocument) ([]byte, error) {
	var buf bytes.Buffer
	if err := plan.WriteDocument(doc, &buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func decodeLayout(data []byte) (*plan.PlanDocument, error) {
	return plan.ReadDocument(bytes.NewReader(data))
}
