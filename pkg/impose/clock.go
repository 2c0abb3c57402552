package impose

import (
	"context"
	"time"
)

// Clock abstracts time for the orchestrator so poll loops and inter-run
// delays are testable without real timers.
type Clock interface {
	Now() time.Time

	// Sleep blocks for d or until the context is done, returning the
	// context's error in that case.
	Sleep(ctx context.Context, d time.Duration) error
}

// SystemClock is the real-time Clock used outside tests.
type SystemClock struct{}

func (SystemClock) Now() time.Time { return time.Now() }

func (SystemClock) Sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
