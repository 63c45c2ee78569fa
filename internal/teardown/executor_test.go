package teardown

import (
	"context"
	"testing"
	"time"

	"github.com/bgdnvk/clanker/internal/model"
)

// fakeActions implements Actions with scripted per-ID behavior, following
// the teacher's mockClient pattern
// (internal/k8s/networking/networking_test.go) adapted to this package's
// narrow interface.
type fakeActions struct {
	deleteErrs      map[string]error
	deleteCallCount map[string]int
	states          map[string]model.State
	stripSurvived   map[string]int
}

func newFakeActions() *fakeActions {
	return &fakeActions{
		deleteErrs:      map[string]error{},
		deleteCallCount: map[string]int{},
		states:          map[string]model.State{},
		stripSurvived:   map[string]int{},
	}
}

func (f *fakeActions) Delete(ctx context.Context, ref model.ResourceRef) error {
	f.deleteCallCount[ref.Key()]++
	return f.deleteErrs[ref.Key()]
}

func (f *fakeActions) Detach(ctx context.Context, ref model.ResourceRef) error { return nil }

func (f *fakeActions) StripRules(ctx context.Context, ref model.ResourceRef) (int, error) {
	return f.stripSurvived[ref.Key()], nil
}

func (f *fakeActions) RemoveTargets(ctx context.Context, ref model.ResourceRef) error { return nil }

func (f *fakeActions) DescribeState(ctx context.Context, ref model.ResourceRef) (model.State, error) {
	if s, ok := f.states[ref.Key()]; ok {
		return s, nil
	}
	return model.StateTerminated, nil
}

func testRunCtx() *model.RunContext {
	return model.NewRunContext(model.RunConfig{Concurrency: 1}, time.Unix(0, 0))
}

func TestExecuteDeleteSuccess(t *testing.T) {
	sg := model.ResourceRef{Kind: model.KindSecurityGroup, ID: "sg-1"}
	p := model.TeardownPlan{
		Target: sg,
		Steps:  []model.Step{{Op: model.OpDelete, Subject: sg, Retry: model.DefaultRetryPolicy()}},
	}

	actions := newFakeActions()
	ex := New(actions, testRunCtx())
	outcomes := ex.Execute(context.Background(), p)

	if len(outcomes) != 1 || outcomes[0].Outcome != model.OutcomeDeleted {
		t.Fatalf("expected single Deleted outcome, got %+v", outcomes)
	}
}

func TestExecuteDryRunNeverCallsDelete(t *testing.T) {
	sg := model.ResourceRef{Kind: model.KindSecurityGroup, ID: "sg-1"}
	p := model.TeardownPlan{
		Target: sg,
		Steps:  []model.Step{{Op: model.OpDelete, Subject: sg, Retry: model.DefaultRetryPolicy()}},
	}

	actions := newFakeActions()
	runCtx := model.NewRunContext(model.RunConfig{DryRun: true}, time.Unix(0, 0))
	ex := New(actions, runCtx)
	outcomes := ex.Execute(context.Background(), p)

	if actions.deleteCallCount[sg.Key()] != 0 {
		t.Errorf("expected Delete never called in dry-run, got %d calls", actions.deleteCallCount[sg.Key()])
	}
	if len(outcomes) != 1 || outcomes[0].Outcome != model.OutcomeDiscoveredOnly {
		t.Fatalf("expected DiscoveredOnly outcome in dry-run, got %+v", outcomes)
	}
}

func TestExecuteDeletePermanentFailureNoRetry(t *testing.T) {
	fn := model.ResourceRef{Kind: model.KindFunction, ID: "fn-1"}
	p := model.TeardownPlan{
		Target: fn,
		Steps:  []model.Step{{Op: model.OpDelete, Subject: fn, Retry: model.DefaultRetryPolicy()}},
	}

	actions := newFakeActions()
	actions.deleteErrs[fn.Key()] = model.NewEngineError(model.ErrValidation, fn, "Delete", errValidation)
	ex := New(actions, testRunCtx())
	outcomes := ex.Execute(context.Background(), p)

	if actions.deleteCallCount[fn.Key()] != 1 {
		t.Errorf("expected exactly 1 attempt for a non-retryable error, got %d", actions.deleteCallCount[fn.Key()])
	}
	if len(outcomes) != 1 || outcomes[0].Outcome != model.OutcomeFailed {
		t.Fatalf("expected Failed outcome, got %+v", outcomes)
	}
}

func TestExecuteDeleteRetriesTransientUntilExhausted(t *testing.T) {
	fn := model.ResourceRef{Kind: model.KindFunction, ID: "fn-1"}
	p := model.TeardownPlan{
		Target: fn,
		Steps:  []model.Step{{Op: model.OpDelete, Subject: fn, Retry: model.RetryPolicy{MaxAttempts: 3, Backoff: time.Millisecond}}},
	}

	actions := newFakeActions()
	actions.deleteErrs[fn.Key()] = model.NewEngineError(model.ErrTransient, fn, "Delete", errTransient)

	ex := New(actions, testRunCtx())

	outcomes := ex.Execute(context.Background(), p)
	if len(outcomes) != 1 {
		t.Fatalf("expected one outcome, got %d", len(outcomes))
	}
	// Since deleteErrs is never cleared in this fake, the step exhausts all
	// attempts and ends Failed -- this asserts the retry loop actually
	// consumes every attempt before giving up.
	if actions.deleteCallCount[fn.Key()] != 3 {
		t.Errorf("expected 3 attempts exhausted, got %d", actions.deleteCallCount[fn.Key()])
	}
	if outcomes[0].Outcome != model.OutcomeFailed {
		t.Errorf("expected Failed after exhausting retries, got %v", outcomes[0].Outcome)
	}
}

func TestStripAndDeleteSecurityGroupsConverges(t *testing.T) {
	sg1 := model.ResourceRef{Kind: model.KindSecurityGroup, ID: "sg-1"}
	sg2 := model.ResourceRef{Kind: model.KindSecurityGroup, ID: "sg-2"}

	actions := newFakeActions()
	ex := New(actions, testRunCtx())
	outcomes := ex.StripAndDeleteSecurityGroups(context.Background(), []model.ResourceRef{sg1, sg2})

	if len(outcomes) != 2 {
		t.Fatalf("expected 2 outcomes, got %d", len(outcomes))
	}
	for _, o := range outcomes {
		if o.Outcome != model.OutcomeDeleted {
			t.Errorf("expected both SGs deleted with no scripted failures, got %+v", o)
		}
	}
}

var errValidation = fakeErr("validation failure")
var errTransient = fakeErr("transient failure")

type fakeErr string

func (e fakeErr) Error() string { return string(e) }
