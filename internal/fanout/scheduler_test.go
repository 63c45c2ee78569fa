package fanout

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/bgdnvk/clanker/internal/model"
)

func TestTasksBuildsCartesianProduct(t *testing.T) {
	accounts := []model.Account{{Name: "a"}, {Name: "b"}}
	regions := []string{"us-east-1", "us-west-2"}

	tasks := Tasks(accounts, regions)
	if len(tasks) != 4 {
		t.Fatalf("expected 4 tasks, got %d", len(tasks))
	}
}

func TestTasksUsesPerAccountRegionsOverride(t *testing.T) {
	accounts := []model.Account{{Name: "a", Regions: []string{"eu-west-1"}}}
	tasks := Tasks(accounts, []string{"us-east-1", "us-west-2"})

	if len(tasks) != 1 || tasks[0].Region != "eu-west-1" {
		t.Fatalf("expected account-specific region override, got %+v", tasks)
	}
}

func TestRunNeverExceedsConcurrencyLimit(t *testing.T) {
	tasks := Tasks([]model.Account{{Name: "a"}, {Name: "b"}, {Name: "c"}, {Name: "d"}}, []string{"us-east-1"})

	var inFlight int32
	var maxObserved int32
	fn := func(ctx context.Context, tk Task) ([]model.ResourceOutcome, []model.CostRecord, error) {
		cur := atomic.AddInt32(&inFlight, 1)
		for {
			max := atomic.LoadInt32(&maxObserved)
			if cur <= max || atomic.CompareAndSwapInt32(&maxObserved, max, cur) {
				break
			}
		}
		time.Sleep(5 * time.Millisecond)
		atomic.AddInt32(&inFlight, -1)
		return nil, nil, nil
	}

	s := New(2)
	report := &model.RunReport{}
	results := s.Run(context.Background(), tasks, fn, report)

	if len(results) != 4 {
		t.Fatalf("expected 4 results, got %d", len(results))
	}
	if maxObserved > 2 {
		t.Errorf("expected at most 2 concurrent tasks, observed %d", maxObserved)
	}
}

func TestRunMergesOutcomesIntoReport(t *testing.T) {
	tasks := Tasks([]model.Account{{Name: "a"}}, []string{"us-east-1"})
	ref := model.ResourceRef{Kind: model.KindInstance, ID: "i-1"}

	fn := func(ctx context.Context, tk Task) ([]model.ResourceOutcome, []model.CostRecord, error) {
		return []model.ResourceOutcome{{Ref: ref, Outcome: model.OutcomeDeleted}}, nil, nil
	}

	s := New(2)
	report := &model.RunReport{}
	results := s.Run(context.Background(), tasks, fn, report)

	if results[0].Outcome != OutcomeSuccess {
		t.Errorf("expected Success outcome, got %v", results[0].Outcome)
	}
	if len(report.Outcomes) != 1 {
		t.Fatalf("expected 1 outcome merged into report, got %d", len(report.Outcomes))
	}
}

func TestRunPartialFailureWhenOutcomesAndErrorBothPresent(t *testing.T) {
	tasks := Tasks([]model.Account{{Name: "a"}}, []string{"us-east-1"})
	ref := model.ResourceRef{Kind: model.KindInstance, ID: "i-1"}

	fn := func(ctx context.Context, tk Task) ([]model.ResourceOutcome, []model.CostRecord, error) {
		return []model.ResourceOutcome{{Ref: ref, Outcome: model.OutcomeFailed}}, nil, errors.New("boom")
	}

	s := New(2)
	report := &model.RunReport{}
	results := s.Run(context.Background(), tasks, fn, report)

	if results[0].Outcome != OutcomePartialFailure {
		t.Errorf("expected PartialFailure, got %v", results[0].Outcome)
	}
	if len(report.Errors) != 1 {
		t.Errorf("expected 1 error merged into report, got %d", len(report.Errors))
	}
}

func TestRunStopsSubmittingAfterCancellation(t *testing.T) {
	tasks := Tasks([]model.Account{{Name: "a"}, {Name: "b"}, {Name: "c"}}, []string{"us-east-1"})

	ctx, cancel := context.WithCancel(context.Background())
	cancel() // cancelled before Run starts: no task should be submitted

	fn := func(ctx context.Context, tk Task) ([]model.ResourceOutcome, []model.CostRecord, error) {
		return nil, nil, nil
	}

	s := New(2)
	report := &model.RunReport{}
	results := s.Run(ctx, tasks, fn, report)

	if len(results) != 0 {
		t.Errorf("expected no tasks submitted after pre-cancelled context, got %d results", len(results))
	}
}
