package api

import (
	"context"
	"sync"
	"time"

	"github.com/rollfed/gangrun/pkg/errors"
	"github.com/rollfed/gangrun/pkg/impose"
)

// batchEntry tracks one imposition batch from start to completion. It stays
// in the tracker after the batch finishes so the progress endpoint can serve
// the final report; starting a new batch for the order replaces it.
type batchEntry struct {
	orch      *impose.Orchestrator
	cancel    context.CancelFunc
	startedAt time.Time

	done   chan struct{} // closed when Execute returns
	report *impose.Report
	err    error
}

// finished reports whether the batch goroutine has returned.
func (e *batchEntry) finished() bool {
	select {
	case <-e.done:
		return true
	default:
		return false
	}
}

// batchTracker enforces the one-batch-in-flight-per-order rule and keeps the
// latest batch per order for progress reads.
type batchTracker struct {
	mu      sync.Mutex
	batches map[string]*batchEntry // order id -> latest batch
}

func newBatchTracker() *batchTracker {
	return &batchTracker{batches: make(map[string]*batchEntry)}
}

// busyError is the rejection for an order with a batch in flight.
func busyError(orderID string) error {
	return errors.New(errors.ErrCodeImposeBusy,
		"order %q already has an imposition batch in flight", orderID)
}

// busy reports whether the order has a batch in flight.
func (t *batchTracker) busy(orderID string) bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	entry, ok := t.batches[orderID]
	return ok && !entry.finished()
}

// begin registers a new batch for the order. It fails with ErrCodeImposeBusy
// while a previous batch for the same order is still running.
func (t *batchTracker) begin(orderID string, orch *impose.Orchestrator, cancel context.CancelFunc) (*batchEntry, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if prev, ok := t.batches[orderID]; ok && !prev.finished() {
		return nil, busyError(orderID)
	}

	entry := &batchEntry{
		orch:      orch,
		cancel:    cancel,
		startedAt: time.Now(),
		done:      make(chan struct{}),
	}
	t.batches[orderID] = entry
	return entry, nil
}

// finish records the batch outcome and releases the in-flight slot.
func (t *batchTracker) finish(orderID string, entry *batchEntry, report *impose.Report, err error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	entry.report = report
	entry.err = err
	close(entry.done)
	entry.cancel()
}

// get returns the latest batch for the order, if any.
func (t *batchTracker) get(orderID string) (*batchEntry, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()

	entry, ok := t.batches[orderID]
	return entry, ok
}

// cancelAll cancels every in-flight batch and returns how many there were.
// Used during server shutdown; the orchestrator reverts in-flight runs to
// planned before returning.
func (t *batchTracker) cancelAll() int {
	t.mu.Lock()
	defer t.mu.Unlock()

	cancelled := 0
	for _, entry := range t.batches {
		if !entry.finished() {
			entry.cancel()
			cancelled++
		}
	}
	return cancelled
}

// waitAll blocks until every tracked batch finishes or the timeout elapses.
// Returns true when all finished in time.
func (t *batchTracker) waitAll(timeout time.Duration) bool {
	t.mu.Lock()
	entries := make([]*batchEntry, 0, len(t.batches))
	for _, entry := range t.batches {
		entries = append(entries, entry)
	}
	t.mu.Unlock()

	deadline := time.Now().Add(timeout)
	for _, entry := range entries {
		remaining := time.Until(deadline)
		if remaining <= 0 {
			return false
		}
		select {
		case <-entry.done:
		case <-time.After(remaining):
			return false
		}
	}
	return true
}
