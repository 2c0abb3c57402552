package impose

import (
	"context"

	"github.com/google/uuid"

	"github.com/rollfed/gangrun/pkg/errors"
	"github.com/rollfed/gangrun/pkg/plan"
	"github.com/rollfed/gangrun/pkg/store"
)

// QueueRuns materializes the document's selected layout as planned run
// records, replacing any previous run set for the order. Run ids are
// freshly minted; run numbers come from the layout.
func QueueRuns(ctx context.Context, s store.Store, doc *plan.PlanDocument) ([]store.RunRecord, error) {
	selected := doc.Selected()
	if selected == nil {
		return nil, errors.New(errors.ErrCodeLayoutNotFound,
			"order %q has no selected layout to impose", doc.OrderID)
	}

	runs := make([]store.RunRecord, len(selected.Runs))
	for i, r := range selected.Runs {
		runs[i] = store.RunRecord{
			ID:              uuid.NewString(),
			OrderID:         doc.OrderID,
			RunNumber:       r.RunNumber,
			LayoutID:        selected.ID,
			SlotAssignments: r.SlotAssignments,
			Frames:          r.Frames,
			Meters:          r.Meters,
			NeedsRewinding:  r.NeedsRewinding,
			Status:          store.StatusPlanned,
		}
	}
	if err := s.CreateRuns(ctx, doc.OrderID, runs); err != nil {
		return nil, err
	}
	return s.ListRuns(ctx, doc.OrderID)
}

// EnsureRuns returns the order's queued runs, creating them from the
// document's selection when none exist yet or when the selection changed
// since they were queued. Existing runs for the same layout are kept so
// completed work survives a re-invocation.
func EnsureRuns(ctx context.Context, s store.Store, doc *plan.PlanDocument) ([]store.RunRecord, error) {
	selected := doc.Selected()
	if selected == nil {
		return nil, errors.New(errors.ErrCodeLayoutNotFound,
			"order %q has no selected layout to impose", doc.OrderID)
	}

	runs, err := s.ListRuns(ctx, doc.OrderID)
	if err != nil {
		return nil, err
	}
	if len(runs) > 0 && runs[0].LayoutID == selected.ID {
		return runs, nil
	}
	return QueueRuns(ctx, s, doc)
}
