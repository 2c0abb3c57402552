package observability

import (
	"context"
	"testing"
	"time"
)

func TestNoopHooksDoNotPanic(t *testing.T) {
	ctx := context.Background()

	// Plan hooks
	p := NoopPlanHooks{}
	p.OnPlanStart(ctx, "ORD-1", 3)
	p.OnPlanComplete(ctx, "ORD-1", 2, time.Second, nil)
	p.OnSuggestionMerged(ctx, "ORD-1", 0.81, true)

	// Impose hooks
	i := NoopImposeHooks{}
	i.OnRunStart(ctx, "run-1", 1)
	i.OnRunComplete(ctx, "run-1", "completed", time.Second, nil)
	i.OnBatchAborted(ctx, 2)

	// HTTP hooks
	h := NoopHTTPHooks{}
	h.OnRequest(ctx, "POST", "imposer.local", "/v1/impose")
	h.OnResponse(ctx, "POST", "imposer.local", "/v1/impose", 200, time.Second)
	h.OnError(ctx, "POST", "imposer.local", "/v1/impose", nil)
}

func TestGlobalHooksRegistry(t *testing.T) {
	// Reset to known state
	Reset()

	// Verify defaults are noop
	if _, ok := Plan().(NoopPlanHooks); !ok {
		t.Error("Plan() should return NoopPlanHooks by default")
	}
	if _, ok := Impose().(NoopImposeHooks); !ok {
		t.Error("Impose() should return NoopImposeHooks by default")
	}
	if _, ok := HTTP().(NoopHTTPHooks); !ok {
		t.Error("HTTP() should return NoopHTTPHooks by default")
	}

	// Set custom hooks
	customPlan := &testPlanHooks{}
	SetPlanHooks(customPlan)
	if Plan() != customPlan {
		t.Error("SetPlanHooks should set custom hooks")
	}

	customImpose := &testImposeHooks{}
	SetImposeHooks(customImpose)
	if Impose() != customImpose {
		t.Error("SetImposeHooks should set custom hooks")
	}

	customHTTP := &testHTTPHooks{}
	SetHTTPHooks(customHTTP)
	if HTTP() != customHTTP {
		t.Error("SetHTTPHooks should set custom hooks")
	}

	// Reset and verify
	Reset()
	if _, ok := Plan().(NoopPlanHooks); !ok {
		t.Error("Reset() should restore NoopPlanHooks")
	}
}

func TestSetNilHooksIsIgnored(t *testing.T) {
	Reset()

	custom := &testPlanHooks{}
	SetPlanHooks(custom)

	// Setting nil should be ignored
	SetPlanHooks(nil)

	if Plan() != custom {
		t.Error("SetPlanHooks(nil) should be ignored")
	}

	Reset()
}

// Test implementations
type testPlanHooks struct{ NoopPlanHooks }
type testImposeHooks struct{ NoopImposeHooks }
type testHTTPHooks struct{ NoopHTTPHooks }
