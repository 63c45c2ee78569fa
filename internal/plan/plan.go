// Package plan implements the Teardown Planner (C5): given a root target
// and its classified inventory, it produces an ordered model.TeardownPlan.
// Step ordering follows spec.md §4.5's literal plan shapes; the Planner
// never reorders steps to "optimize" since the ordering rules are mandatory
// invariants, not a scheduling hint.
package plan

import (
	"fmt"

	"github.com/bgdnvk/clanker/internal/model"
)

// ClassifiedInventory groups a classify pass's output by Kind for the
// planner's convenience; only OwnedByTarget refs are ever handed to a
// builder function (callers filter before calling, per the
// Classified(OwnedByTarget) -> Planned state transition of spec.md §4.6).
type ClassifiedInventory struct {
	NodeGroups    []model.ResourceRef
	Scrapers      []model.ResourceRef
	Addons        []model.ResourceRef
	LogGroups     []model.ResourceRef
	CompositeAlarms []model.ResourceRef
	BasicAlarms   []model.ResourceRef
	CostAlarms    []model.ResourceRef
	EventRules    []model.ResourceRef
	Functions     []model.ResourceRef
	Roles         []model.ResourceRef
	Policies      []model.ResourceRef
	SecurityGroups []model.ResourceRef
}

const (
	nodeGroupTimeout     = 30 * 60 // seconds, spec.md §4.5 step 1
	clusterTimeout       = 60 * 60 // seconds, spec.md §4.5 step 9
	appEnvironmentTimeout = 40 * 60 // seconds, spec.md §5 timeouts
)

// ForCluster builds the literal 9-step plan of spec.md §4.5 for a Cluster
// root T, given its already-classified OwnedByTarget inventory.
func ForCluster(target model.ResourceRef, inv ClassifiedInventory) (model.TeardownPlan, error) {
	if target.Kind != model.KindCluster {
		return model.TeardownPlan{}, fmt.Errorf("plan.ForCluster: target kind %s is not Cluster", target.Kind)
	}

	var steps []model.Step

	// 1. NodeGroups: Delete then AwaitState(Absent), each independently.
	for _, ng := range inv.NodeGroups {
		steps = append(steps,
			model.Step{Op: model.OpDelete, Subject: ng, Retry: model.DefaultRetryPolicy()},
			model.Step{Op: model.OpAwaitState, Subject: ng, WaitUntil: model.StateTerminated, Precondition: ng.Key()},
		)
	}

	// 2. Scrapers, Addons, referencing log groups: straight delete.
	for _, ref := range concatRefs(inv.Scrapers, inv.Addons, inv.LogGroups) {
		steps = append(steps, model.Step{Op: model.OpDelete, Subject: ref, Retry: model.DefaultRetryPolicy()})
	}

	// 3. Alarms: composites first, then basics, then cost-tagged alarms.
	for _, ref := range concatRefs(inv.CompositeAlarms, inv.BasicAlarms, inv.CostAlarms) {
		steps = append(steps, model.Step{Op: model.OpDelete, Subject: ref, Retry: model.DefaultRetryPolicy()})
	}

	// 4. EventRules: RemoveTargets then Delete.
	for _, ref := range inv.EventRules {
		steps = append(steps,
			model.Step{Op: model.OpRemoveTargets, Subject: ref, Retry: model.DefaultRetryPolicy()},
			model.Step{Op: model.OpDelete, Subject: ref, Precondition: ref.Key(), Retry: model.DefaultRetryPolicy()},
		)
	}

	// 5. Functions: Detach event-source mappings, then Delete.
	for _, ref := range inv.Functions {
		steps = append(steps,
			model.Step{Op: model.OpDetach, Subject: ref, Retry: model.DefaultRetryPolicy()},
			model.Step{Op: model.OpDelete, Subject: ref, Precondition: ref.Key(), Retry: model.DefaultRetryPolicy()},
		)
	}

	// 6. Roles: detach managed policies, remove inline, remove from
	// instance profiles, then delete. All folded into one Detach step
	// ahead of Delete — the executor's Role-deletion routine (C6) performs
	// the three-stage cleanup atomically per spec.md §4.6.
	for _, ref := range inv.Roles {
		steps = append(steps,
			model.Step{Op: model.OpDetach, Subject: ref, Retry: model.DefaultRetryPolicy()},
			model.Step{Op: model.OpDelete, Subject: ref, Precondition: ref.Key(), Retry: model.DefaultRetryPolicy()},
		)
	}

	// 7. Policies: delete non-default versions, then delete.
	for _, ref := range inv.Policies {
		steps = append(steps,
			model.Step{Op: model.OpDetach, Subject: ref, Retry: model.DefaultRetryPolicy()},
			model.Step{Op: model.OpDelete, Subject: ref, Precondition: ref.Key(), Retry: model.DefaultRetryPolicy()},
		)
	}

	// 8. SecurityGroups in T's VPC: StripRules then Delete (iteration detail
	// lives in the executor, per spec.md §4.6's SG-deletion iteration).
	for _, ref := range inv.SecurityGroups {
		steps = append(steps,
			model.Step{Op: model.OpStripRules, Subject: ref, Retry: model.DefaultRetryPolicy()},
			model.Step{Op: model.OpDelete, Subject: ref, Precondition: ref.Key(), Retry: model.DefaultRetryPolicy()},
		)
	}

	// 9. Delete the cluster itself, after every NodeGroup delete above.
	steps = append(steps,
		model.Step{Op: model.OpDelete, Subject: target, Retry: model.DefaultRetryPolicy()},
		model.Step{Op: model.OpAwaitState, Subject: target, WaitUntil: model.StateTerminated, Precondition: target.Key()},
	)

	p := model.TeardownPlan{Target: target, Steps: steps}
	if err := validate(p); err != nil {
		return model.TeardownPlan{}, err
	}
	return p, nil
}

// ForInstance builds the Instance-root plan of spec.md §4.5: Terminate,
// AwaitState(terminated), then the same SecurityGroup strip+delete pass.
func ForInstance(target model.ResourceRef, sgs []model.ResourceRef) (model.TeardownPlan, error) {
	if target.Kind != model.KindInstance {
		return model.TeardownPlan{}, fmt.Errorf("plan.ForInstance: target kind %s is not Instance", target.Kind)
	}

	steps := []model.Step{
		{Op: model.OpDelete, Subject: target, Retry: model.DefaultRetryPolicy()},
		{Op: model.OpAwaitState, Subject: target, WaitUntil: model.StateTerminated, Precondition: target.Key()},
	}
	for _, sg := range sgs {
		steps = append(steps,
			model.Step{Op: model.OpStripRules, Subject: sg, Retry: model.DefaultRetryPolicy()},
			model.Step{Op: model.OpDelete, Subject: sg, Precondition: sg.Key(), Retry: model.DefaultRetryPolicy()},
		)
	}

	p := model.TeardownPlan{Target: target, Steps: steps}
	if err := validate(p); err != nil {
		return model.TeardownPlan{}, err
	}
	return p, nil
}

// ForApplication builds the Application-root plan of spec.md §4.5:
// terminate each environment with resource cascade, await per-environment
// absence, delete application versions, delete the application.
func ForApplication(target model.ResourceRef, environments, versions []model.ResourceRef) (model.TeardownPlan, error) {
	if target.Kind != model.KindApplication {
		return model.TeardownPlan{}, fmt.Errorf("plan.ForApplication: target kind %s is not Application", target.Kind)
	}

	var steps []model.Step
	for _, env := range environments {
		steps = append(steps,
			model.Step{Op: model.OpDelete, Subject: env, Retry: model.DefaultRetryPolicy()},
			model.Step{Op: model.OpAwaitState, Subject: env, WaitUntil: model.StateTerminated, Precondition: env.Key()},
		)
	}
	for _, v := range versions {
		steps = append(steps, model.Step{Op: model.OpDelete, Subject: v, Retry: model.DefaultRetryPolicy()})
	}
	steps = append(steps, model.Step{Op: model.OpDelete, Subject: target, Retry: model.DefaultRetryPolicy()})

	p := model.TeardownPlan{Target: target, Steps: steps}
	if err := validate(p); err != nil {
		return model.TeardownPlan{}, err
	}
	return p, nil
}

func concatRefs(groups ...[]model.ResourceRef) []model.ResourceRef {
	var out []model.ResourceRef
	for _, g := range groups {
		out = append(out, g...)
	}
	return out
}

// validate rejects plans that would violate spec.md §3/§5 invariants:
// every Precondition must refer to a Subject that appears earlier in the
// same plan (§5 "ordering guarantees"). A Step may name its own Subject as
// its precondition only when an earlier step acted on that Subject (e.g.
// AwaitState after Delete); otherwise it is rejected as self-referencing.
func validate(p model.TeardownPlan) error {
	seen := map[string]bool{}
	for i, step := range p.Steps {
		if step.Precondition != "" {
			if step.Precondition == step.Subject.Key() && !seen[step.Precondition] {
				return fmt.Errorf("plan: step %d precondition refers to its own subject %s", i, step.Subject.Key())
			}
			if !seen[step.Precondition] {
				return fmt.Errorf("plan: step %d precondition %q does not refer to an earlier step's subject", i, step.Precondition)
			}
		}
		seen[step.Subject.Key()] = true
	}
	return nil
}
