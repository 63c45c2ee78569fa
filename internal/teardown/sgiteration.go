package teardown

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/bgdnvk/clanker/internal/model"
)

// maxSGRounds is spec.md §4.6's "up to 5 attempts" bound on the
// SG-deletion iteration.
const maxSGRounds = 5

// interRoundSleep is the 30s sleep between rounds spec.md §4.6 requires.
const interRoundSleep = 30 * time.Second

// StripAndDeleteSecurityGroups handles the cross-reference case spec.md
// §4.6 describes: SGs that reference each other as peer groups can't all
// be deleted in one pass. Each round strips rules then attempts delete on
// every SG still in the list; a DependencyViolation keeps the SG in the
// next round's list. If a full round deletes nothing but the list is
// non-empty, StripRules is re-run before the next round. Survivors after 5
// rounds are recorded failed with their residual rule count.
func (e *Executor) StripAndDeleteSecurityGroups(ctx context.Context, sgs []model.ResourceRef) []model.ResourceOutcome {
	remaining := append([]model.ResourceRef(nil), sgs...)
	residual := map[string]int{}

	for round := 1; round <= maxSGRounds && len(remaining) > 0; round++ {
		select {
		case <-ctx.Done():
			return survivorOutcomes(remaining, residual)
		default:
		}

		var next []model.ResourceRef
		deletedThisRound := 0

		for _, sg := range remaining {
			survived, err := e.Actions.StripRules(ctx, sg)
			if err != nil {
				log.Printf("[teardown] StripRules failed for %s in round %d: %v", sg.ID, round, err)
			}
			residual[sg.Key()] = survived

			if err := e.Actions.Delete(ctx, sg); err != nil {
				if engErr, ok := err.(*model.EngineError); ok && engErr.Kind == model.ErrDependencyViolation {
					next = append(next, sg)
					continue
				}
				log.Printf("[teardown] Delete failed permanently for SG %s in round %d: %v", sg.ID, round, err)
				next = append(next, sg)
				continue
			}
			deletedThisRound++
		}

		remaining = next
		if len(remaining) == 0 {
			break
		}

		if deletedThisRound == 0 {
			for _, sg := range remaining {
				if survived, err := e.Actions.StripRules(ctx, sg); err == nil {
					residual[sg.Key()] = survived
				}
			}
		}

		if round < maxSGRounds {
			select {
			case <-ctx.Done():
				return survivorOutcomes(remaining, residual)
			case <-time.After(interRoundSleep):
			}
		}
	}

	outcomes := make([]model.ResourceOutcome, 0, len(sgs))
	survivorSet := map[string]bool{}
	for _, sg := range remaining {
		survivorSet[sg.Key()] = true
	}
	for _, sg := range sgs {
		if survivorSet[sg.Key()] {
			outcomes = append(outcomes, model.ResourceOutcome{
				Ref:     sg,
				Outcome: model.OutcomeFailed,
				Reason:  fmt.Sprintf("exhausted SG-deletion iteration with %d residual rules", residual[sg.Key()]),
			})
			continue
		}
		outcomes = append(outcomes, model.ResourceOutcome{Ref: sg, Outcome: model.OutcomeDeleted})
	}
	return outcomes
}

func survivorOutcomes(remaining []model.ResourceRef, residual map[string]int) []model.ResourceOutcome {
	out := make([]model.ResourceOutcome, 0, len(remaining))
	for _, sg := range remaining {
		out = append(out, model.ResourceOutcome{Ref: sg, Outcome: model.OutcomeFailed, Reason: "cancelled mid-iteration"})
	}
	return out
}
