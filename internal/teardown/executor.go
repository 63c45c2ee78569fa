// Package teardown implements the Teardown Executor (C6): it runs a
// model.TeardownPlan's Steps against a live AWS account/region, handling
// AwaitState polling, the security-group rule-stripping iteration, and the
// per-step retry policy of spec.md §4.6.
package teardown

import (
	"context"
	"log"
	"strings"
	"time"

	"github.com/bgdnvk/clanker/internal/model"
)

// Actions is the narrow surface the executor needs from a cloud client; the
// concrete implementation is internal/cloudaws's *Clients, structurally
// satisfying this interface the way the teacher's k8s networking package
// narrows a kubectl wrapper to the K8sClient interface
// (internal/k8s/networking/networking_test.go's mockClient).
type Actions interface {
	Delete(ctx context.Context, ref model.ResourceRef) error
	Detach(ctx context.Context, ref model.ResourceRef) error
	StripRules(ctx context.Context, ref model.ResourceRef) (survivedRules int, err error)
	RemoveTargets(ctx context.Context, ref model.ResourceRef) error
	DescribeState(ctx context.Context, ref model.ResourceRef) (model.State, error)
}

// pollInterval is spec.md §5's "every AwaitState poll" suspension cadence.
const pollInterval = 30 * time.Second

// awaitTimeout resolves the per-kind AwaitState timeout of spec.md §4.5/§5.
func awaitTimeout(kind model.Kind) time.Duration {
	switch kind {
	case model.KindNodeGroup:
		return 30 * time.Minute
	case model.KindCluster:
		return 60 * time.Minute
	case model.KindAppEnvironment:
		return 40 * time.Minute
	default:
		return 30 * time.Minute
	}
}

// Executor runs TeardownPlans against one (account, region)'s Actions,
// threading a RunContext instead of any global clock/user state.
type Executor struct {
	Actions Actions
	RunCtx  *model.RunContext
}

func New(actions Actions, runCtx *model.RunContext) *Executor {
	return &Executor{Actions: actions, RunCtx: runCtx}
}

// Execute runs every Step of p in order, stopping early on ctx
// cancellation (spec.md §5 "a single cancel context propagates to every
// in-flight task"). It returns one ResourceOutcome per distinct Subject
// touched by a terminal Delete/AwaitState step.
func (e *Executor) Execute(ctx context.Context, p model.TeardownPlan) []model.ResourceOutcome {
	outcomes := map[string]model.ResourceOutcome{}

	for _, step := range p.Steps {
		select {
		case <-ctx.Done():
			return finalize(outcomes)
		default:
		}

		if step.Subject.Kind == model.KindRole {
			if reason, downgrade := roleHasSharedIndicativePolicy(step.Subject); downgrade {
				if _, already := outcomes[step.Subject.Key()]; !already {
					log.Printf("[teardown] downgrading role %s to SharedSuspected at execution time: %s", step.Subject.ID, reason)
				}
				outcomes[step.Subject.Key()] = model.ResourceOutcome{Ref: step.Subject, Outcome: model.OutcomeSkippedShared, Reason: reason}
				continue
			}
		}

		if e.RunCtx.Config.DryRun {
			log.Printf("[teardown] dry-run: would execute %s on %s/%s", step.Op, step.Subject.Kind, step.Subject.ID)
			outcomes[step.Subject.Key()] = model.ResourceOutcome{Ref: step.Subject, Outcome: model.OutcomeDiscoveredOnly, Reason: "dry-run"}
			continue
		}

		switch step.Op {
		case model.OpDetach:
			e.runRetryable(ctx, step, outcomes, func() error { return e.Actions.Detach(ctx, step.Subject) })

		case model.OpRemoveTargets:
			e.runRetryable(ctx, step, outcomes, func() error { return e.Actions.RemoveTargets(ctx, step.Subject) })

		case model.OpStripRules:
			e.runStripRules(ctx, step)

		case model.OpDelete:
			e.runDelete(ctx, step, outcomes)

		case model.OpAwaitState:
			e.runAwaitState(ctx, step, outcomes)
		}
	}

	return finalize(outcomes)
}

func (e *Executor) runRetryable(ctx context.Context, step model.Step, outcomes map[string]model.ResourceOutcome, fn func() error) {
	policy := step.Retry
	if policy.MaxAttempts == 0 {
		policy = model.DefaultRetryPolicy()
	}

	backoff := policy.Backoff
	var lastErr error
	for attempt := 1; attempt <= policy.MaxAttempts; attempt++ {
		lastErr = fn()
		if lastErr == nil {
			return
		}

		engErr, ok := lastErr.(*model.EngineError)
		if !ok || !engErr.Retryable() || attempt == policy.MaxAttempts {
			break
		}

		log.Printf("[teardown] retrying %s on %s (attempt %d/%d): %v", step.Op, step.Subject.ID, attempt, policy.MaxAttempts, lastErr)
		select {
		case <-ctx.Done():
			return
		case <-time.After(backoff):
		}
		backoff *= 2
	}

	if lastErr != nil {
		log.Printf("[teardown] %s failed permanently on %s: %v", step.Op, step.Subject.ID, lastErr)
		outcomes[step.Subject.Key()] = model.ResourceOutcome{Ref: step.Subject, Outcome: model.OutcomeFailed, Reason: lastErr.Error()}
	}
}

func (e *Executor) runDelete(ctx context.Context, step model.Step, outcomes map[string]model.ResourceOutcome) {
	if o, failed := outcomes[step.Subject.Key()]; failed && o.Outcome == model.OutcomeFailed {
		return // a prior Detach/StripRules/RemoveTargets step already failed this subject permanently
	}

	policy := step.Retry
	if policy.MaxAttempts == 0 {
		policy = model.DefaultRetryPolicy()
	}

	backoff := policy.Backoff
	var lastErr error
	for attempt := 1; attempt <= policy.MaxAttempts; attempt++ {
		lastErr = e.Actions.Delete(ctx, step.Subject)
		if lastErr == nil {
			outcomes[step.Subject.Key()] = model.ResourceOutcome{Ref: step.Subject, Outcome: model.OutcomeDeleted}
			return
		}

		engErr, ok := lastErr.(*model.EngineError)
		if !ok || !engErr.Retryable() || attempt == policy.MaxAttempts {
			break
		}

		log.Printf("[teardown] retrying Delete on %s (attempt %d/%d): %v", step.Subject.ID, attempt, policy.MaxAttempts, lastErr)
		select {
		case <-ctx.Done():
			return
		case <-time.After(backoff):
		}
		backoff *= 2
	}

	log.Printf("[teardown] Delete failed permanently on %s: %v", step.Subject.ID, lastErr)
	outcomes[step.Subject.Key()] = model.ResourceOutcome{Ref: step.Subject, Outcome: model.OutcomeFailed, Reason: lastErr.Error()}
}

func (e *Executor) runAwaitState(ctx context.Context, step model.Step, outcomes map[string]model.ResourceOutcome) {
	deadline := time.Now().Add(awaitTimeout(step.Subject.Kind))

	for {
		state, err := e.Actions.DescribeState(ctx, step.Subject)
		if err != nil {
			if engErr, ok := err.(*model.EngineError); ok && engErr.Kind == model.ErrNotFound {
				return // absence confirmed
			}
		}
		if state == model.StateTerminated {
			return
		}

		if time.Now().After(deadline) {
			log.Printf("[teardown] AwaitState timed out for %s after %s", step.Subject.ID, awaitTimeout(step.Subject.Kind))
			outcomes[step.Subject.Key()] = model.ResourceOutcome{Ref: step.Subject, Outcome: model.OutcomeFailed, Reason: "timed-out"}
			return
		}

		select {
		case <-ctx.Done():
			return
		case <-time.After(pollInterval):
		}
	}
}

// runStripRules executes a single StripRules attempt for a SecurityGroup
// outside the cross-reference SG-deletion iteration (used by the Instance
// root plan and the single-pass cluster plan step 8; the cross-reference
// iteration for overlapping SG graphs is StripAndDeleteSecurityGroups).
func (e *Executor) runStripRules(ctx context.Context, step model.Step) {
	if _, err := e.Actions.StripRules(ctx, step.Subject); err != nil {
		log.Printf("[teardown] StripRules failed for %s: %v", step.Subject.ID, err)
	}
}

// sharedIndicativePolicyNames is spec.md §4.6's "Role deletion must" list of
// substrings that, found in an attached policy's name, downgrade the role
// to SharedSuspected at execution time even after classification accepted
// it as OwnedByTarget.
var sharedIndicativePolicyNames = []string{"common", "shared", "all", "clusters", "multi"}

// roleHasSharedIndicativePolicy reports whether ref (a Role) has any
// attached policy whose name contains a shared-indicative substring.
func roleHasSharedIndicativePolicy(ref model.ResourceRef) (string, bool) {
	detail, ok := ref.Detail.(model.RoleDetail)
	if !ok {
		return "", false
	}
	for _, arn := range detail.AttachedPolicyARNs {
		name := arn
		if idx := strings.LastIndex(arn, "/"); idx >= 0 {
			name = arn[idx+1:]
		}
		lower := strings.ToLower(name)
		for _, s := range sharedIndicativePolicyNames {
			if strings.Contains(lower, s) {
				return "attached policy " + name + " has shared-indicative name", true
			}
		}
	}
	return "", false
}

func finalize(outcomes map[string]model.ResourceOutcome) []model.ResourceOutcome {
	out := make([]model.ResourceOutcome, 0, len(outcomes))
	for _, o := range outcomes {
		out = append(out, o)
	}
	return out
}
