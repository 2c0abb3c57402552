package store

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/rollfed/gangrun/pkg/errors"
	"github.com/rollfed/gangrun/pkg/plan"
)

// MemoryStore keeps run records and layouts in process memory.
// Used in tests and for one-shot planning sessions without persistence.
type MemoryStore struct {
	mu      sync.RWMutex
	runs    map[string]RunRecord // run id -> record
	orders  map[string][]string  // order id -> run ids in creation order
	layouts map[string][]byte    // order id -> plan document JSON
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		runs:    make(map[string]RunRecord),
		orders:  make(map[string][]string),
		layouts: make(map[string][]byte),
	}
}

// CreateRuns replaces the order's run set with the given records.
func (s *MemoryStore) CreateRuns(ctx context.Context, orderID string, runs []RunRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, id := range s.orders[orderID] {
		delete(s.runs, id)
	}

	now := time.Now().UTC()
	ids := make([]string, len(runs))
	for i, r := range runs {
		r.OrderID = orderID
		r.CreatedAt = now
		r.UpdatedAt = now
		r.SlotAssignments = append([]plan.SlotAssignment(nil), r.SlotAssignments...)
		r.Artifacts = append([]string(nil), r.Artifacts...)
		s.runs[r.ID] = r
		ids[i] = r.ID
	}
	s.orders[orderID] = ids
	return nil
}

// GetRun returns a copy of the run with the given id.
func (s *MemoryStore) GetRun(ctx context.Context, id string) (*RunRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	r, ok := s.runs[id]
	if !ok {
		return nil, errors.New(errors.ErrCodeRunNotFound, "run %q not found", id)
	}
	out := r
	out.SlotAssignments = append([]plan.SlotAssignment(nil), r.SlotAssignments...)
	out.Artifacts = append([]string(nil), r.Artifacts...)
	return &out, nil
}

// ListRuns returns copies of the order's runs sorted by run number.
func (s *MemoryStore) ListRuns(ctx context.Context, orderID string) ([]RunRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ids := s.orders[orderID]
	out := make([]RunRecord, 0, len(ids))
	for _, id := range ids {
		r := s.runs[id]
		r.SlotAssignments = append([]plan.SlotAssignment(nil), r.SlotAssignments...)
		r.Artifacts = append([]string(nil), r.Artifacts...)
		out = append(out, r)
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].RunNumber < out[j].RunNumber })
	return out, nil
}

func (s *MemoryStore) mutateRun(id string, fn func(*RunRecord)) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	r, ok := s.runs[id]
	if !ok {
		return errors.New(errors.ErrCodeRunNotFound, "run %q not found", id)
	}
	fn(&r)
	r.UpdatedAt = time.Now().UTC()
	s.runs[id] = r
	return nil
}

// UpdateRunStatus moves a run to the given lifecycle state.
func (s *MemoryStore) UpdateRunStatus(ctx context.Context, id string, status Status) error {
	if !status.Valid() {
		return errors.New(errors.ErrCodeInvalidInput, "unknown run status %q", status)
	}
	return s.mutateRun(id, func(r *RunRecord) { r.Status = status })
}

// AnnotateRunError records a failure note on the run; empty clears it.
func (s *MemoryStore) AnnotateRunError(ctx context.Context, id string, msg string) error {
	return s.mutateRun(id, func(r *RunRecord) { r.Error = msg })
}

// AttachArtifacts replaces the run's artifact URL list.
func (s *MemoryStore) AttachArtifacts(ctx context.Context, id string, urls []string) error {
	return s.mutateRun(id, func(r *RunRecord) {
		r.Artifacts = append([]string(nil), urls...)
	})
}

// SaveLayout stores the order's chosen plan document.
func (s *MemoryStore) SaveLayout(ctx context.Context, orderID string, doc *plan.PlanDocument) error {
	data, err := encodeLayout(doc)
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.layouts[orderID] = data
	return nil
}

// LoadLayout returns the order's saved plan document.
func (s *MemoryStore) LoadLayout(ctx context.Context, orderID string) (*plan.PlanDocument, error) {
	s.mu.RLock()
	data, ok := s.layouts[orderID]
	s.mu.RUnlock()
	if !ok {
		return nil, errors.New(errors.ErrCodeLayoutNotFound, "no saved layout for order %q", orderID)
	}
	return decodeLayout(data)
}

// ClearLayout removes the order's saved plan document.
func (s *MemoryStore) ClearLayout(ctx context.Context, orderID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.layouts, orderID)
	return nil
}

// Close clears all state.
func (s *MemoryStore) Close(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.runs = make(map[string]RunRecord)
	s.orders = make(map[string][]string)
	s.layouts = make(map[string][]byte)
	return nil
}
