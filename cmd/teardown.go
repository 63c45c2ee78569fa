package cmd

import (
	"context"
	"fmt"
	"os"
	"strings"
	"sync/atomic"

	"github.com/spf13/cobra"

	"github.com/bgdnvk/clanker/internal/classify"
	"github.com/bgdnvk/clanker/internal/cloudaws"
	"github.com/bgdnvk/clanker/internal/fanout"
	"github.com/bgdnvk/clanker/internal/model"
	"github.com/bgdnvk/clanker/internal/plan"
	"github.com/bgdnvk/clanker/internal/registry"
	"github.com/bgdnvk/clanker/internal/report"
	"github.com/bgdnvk/clanker/internal/teardown"
)

var teardownCmd = &cobra.Command{
	Use:   "teardown <target-kind> <target-name>",
	Short: "Tear down a Cluster, Instance, or Application and everything it owns",
	Long: `teardown discovers and classifies every resource in the target's
(account, region), builds a dependency-ordered plan (spec.md §4.5), and
executes it (spec.md §4.6). Protected and SharedSuspected resources are
skipped, never deleted.`,
	Args: cobra.ExactArgs(2),
	RunE: runTeardown,
}

func init() {
	rootCmd.AddCommand(teardownCmd)
}

func runTeardown(command *cobra.Command, args []string) error {
	targetKindArg, targetName := args[0], args[1]
	targetKind, err := parseTargetKind(targetKindArg)
	if err != nil {
		return err
	}

	cfg, err := buildRunConfig()
	if err != nil {
		return err
	}

	reg, err := registry.Load(cfg.ConfigPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "[clanker] fatal: %v\n", err)
		os.Exit(1)
	}

	accounts, err := resolveAccounts(reg, cfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "[clanker] fatal: %v\n", err)
		os.Exit(1)
	}

	if !confirm(cfg, fmt.Sprintf("Tear down %s %q across %d account(s)?", targetKind, targetName, len(accounts))) {
		fmt.Println("aborted")
		os.Exit(2)
	}

	started := nowUTC()
	runReport := model.RunReport{
		Operation: "teardown",
		Target:    fmt.Sprintf("%s/%s", targetKind, targetName),
		RunUser:   cfg.RunUser,
		StartedAt: started,
		DryRun:    cfg.DryRun,
	}

	factory := cloudaws.NewFactory()
	tasks := fanout.Tasks(accounts, resolveRegions(reg, cfg))

	var authErrors int64

	scheduler := fanout.New(cfg.Concurrency)
	scheduler.Run(command.Context(), tasks, func(ctx context.Context, t fanout.Task) ([]model.ResourceOutcome, []model.CostRecord, error) {
		clients, err := factory.Clients(ctx, t.Account, t.Region)
		if err != nil {
			atomic.AddInt64(&authErrors, 1)
			return nil, nil, fmt.Errorf("building clients for %s/%s: %w", t.Account.Name, t.Region, err)
		}

		// a partial discovery error doesn't abandon the task: whatever refs
		// were found still get classified and planned against.
		refs, _ := clients.DiscoverAll(ctx, t.Account.Name, t.Region)

		target := findTarget(refs, targetKind, targetName)
		if target == nil {
			return nil, nil, nil // target not present in this account/region, nothing to do
		}

		inv := classifyAndGroup(refs, classify.Target{Kind: targetKind, Name: targetName})
		environments, versions := ownedApplicationRefs(refs, classify.Target{Kind: targetKind, Name: targetName})

		teardownPlan, err := buildPlan(*target, inv, environments, versions)
		if err != nil {
			return nil, nil, fmt.Errorf("planning teardown for %s/%s: %w", t.Account.Name, t.Region, err)
		}

		runCtx := model.NewRunContext(cfg, started)
		executor := teardown.New(clients, runCtx)
		outcomes := executor.Execute(ctx, teardownPlan)

		if len(inv.SecurityGroups) > 0 {
			sgOutcomes := executor.StripAndDeleteSecurityGroups(ctx, inv.SecurityGroups)
			outcomes = append(outcomes, sgOutcomes...)
		}

		for _, ref := range refs {
			if label, reason, skipped := skipLabel(ref, classify.Target{Kind: targetKind, Name: targetName}); skipped {
				outcomes = append(outcomes, model.ResourceOutcome{Ref: ref, Outcome: label, Reason: reason})
			}
		}

		outcomes = append(outcomes, handleBuckets(ctx, clients, refs, classify.Target{Kind: targetKind, Name: targetName}, cfg)...)
		outcomes = append(outcomes, handleDBInstances(ctx, clients, refs, classify.Target{Kind: targetKind, Name: targetName}, cfg)...)

		return outcomes, nil, nil
	}, &runReport)

	runReport.FinishedAt = nowUTC()

	sink := report.New(defaultReportBaseDir())
	reportPath, logPath, err := sink.Write(runReport, cfg.ConfigPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "[clanker] failed to write report: %v\n", err)
	} else {
		fmt.Printf("report written to %s (log: %s)\n", reportPath, logPath)
	}

	if len(runReport.Outcomes) == 0 && atomic.LoadInt64(&authErrors) > 0 {
		os.Exit(1)
	}
	return nil
}

func parseTargetKind(raw string) (model.Kind, error) {
	switch strings.ToLower(raw) {
	case "cluster":
		return model.KindCluster, nil
	case "instance":
		return model.KindInstance, nil
	case "application":
		return model.KindApplication, nil
	default:
		return "", fmt.Errorf("unknown target kind %q (expected cluster, instance, or application)", raw)
	}
}

func findTarget(refs []model.ResourceRef, kind model.Kind, name string) *model.ResourceRef {
	for i := range refs {
		if refs[i].Kind == kind && refs[i].Name == name {
			return &refs[i]
		}
	}
	return nil
}

// skipLabel reports whether ref was classified Protected or SharedSuspected
// against target, returning the corresponding Outcome.
func skipLabel(ref model.ResourceRef, target classify.Target) (model.Outcome, string, bool) {
	c := classify.Classify(ref, target)
	switch c.Label {
	case model.LabelProtected:
		return model.OutcomeSkippedProtected, c.Reason, true
	case model.LabelSharedSuspected:
		return model.OutcomeSkippedShared, c.Reason, true
	default:
		return "", "", false
	}
}

// classifyAndGroup classifies every ref against target and buckets the
// OwnedByTarget subset into plan.ClassifiedInventory by Kind, the only refs
// the Planner ever receives (spec.md §4.5/§4.6's Classified -> Planned
// transition).
func classifyAndGroup(refs []model.ResourceRef, target classify.Target) plan.ClassifiedInventory {
	var inv plan.ClassifiedInventory

	for _, ref := range refs {
		c := classify.Classify(ref, target)
		if c.Label != model.LabelOwnedByTarget {
			continue
		}

		switch ref.Kind {
		case model.KindNodeGroup:
			inv.NodeGroups = append(inv.NodeGroups, ref)
		case model.KindScraper:
			inv.Scrapers = append(inv.Scrapers, ref)
		case model.KindAddon:
			inv.Addons = append(inv.Addons, ref)
		case model.KindLogGroup:
			inv.LogGroups = append(inv.LogGroups, ref)
		case model.KindAlarm:
			detail, _ := ref.Detail.(model.AlarmDetail)
			switch {
			case detail.IsComposite:
				inv.CompositeAlarms = append(inv.CompositeAlarms, ref)
			case detail.IsCostAlarm:
				inv.CostAlarms = append(inv.CostAlarms, ref)
			default:
				inv.BasicAlarms = append(inv.BasicAlarms, ref)
			}
		case model.KindEventRule:
			inv.EventRules = append(inv.EventRules, ref)
		case model.KindFunction:
			inv.Functions = append(inv.Functions, ref)
		case model.KindRole:
			inv.Roles = append(inv.Roles, ref)
		case model.KindPolicy:
			inv.Policies = append(inv.Policies, ref)
		case model.KindSecurityGroup:
			inv.SecurityGroups = append(inv.SecurityGroups, ref)
		}
	}

	return inv
}

// handleBuckets applies SPEC_FULL.md §3's bucket policy: an OwnedByTarget
// bucket is deleted only when non-empty-delete is explicitly allowed
// (--yes and --empty-buckets) or the bucket is already empty; otherwise it
// is recorded SkippedShared with reason "non-empty-bucket".
func handleBuckets(ctx context.Context, clients *cloudaws.Clients, refs []model.ResourceRef, target classify.Target, cfg model.RunConfig) []model.ResourceOutcome {
	var outcomes []model.ResourceOutcome

	for _, ref := range refs {
		if ref.Kind != model.KindBucket {
			continue
		}
		c := classify.Classify(ref, target)
		if c.Label != model.LabelOwnedByTarget {
			continue
		}

		detail, _ := ref.Detail.(model.BucketDetail)
		if !detail.IsEmpty && !(cfg.Yes && cfg.EmptyBuckets) {
			outcomes = append(outcomes, model.ResourceOutcome{Ref: ref, Outcome: model.OutcomeSkippedShared, Reason: "non-empty-bucket"})
			continue
		}

		if cfg.DryRun {
			outcomes = append(outcomes, model.ResourceOutcome{Ref: ref, Outcome: model.OutcomeDiscoveredOnly, Reason: "dry-run"})
			continue
		}

		if err := clients.Delete(ctx, ref); err != nil {
			outcomes = append(outcomes, model.ResourceOutcome{Ref: ref, Outcome: model.OutcomeFailed, Reason: err.Error()})
			continue
		}
		outcomes = append(outcomes, model.ResourceOutcome{Ref: ref, Outcome: model.OutcomeDeleted})
	}

	return outcomes
}

// handleDBInstances deletes any OwnedByTarget DBInstance directly: unlike
// buckets, classify.Classify already requires a strong cluster-tag match
// (SPEC_FULL.md §3) before a DBInstance reaches OwnedByTarget at all, so no
// extra confirmation gate is layered on top beyond the run's own --yes/
// --dry-run semantics.
func handleDBInstances(ctx context.Context, clients *cloudaws.Clients, refs []model.ResourceRef, target classify.Target, cfg model.RunConfig) []model.ResourceOutcome {
	var outcomes []model.ResourceOutcome

	for _, ref := range refs {
		if ref.Kind != model.KindDBInstance {
			continue
		}
		c := classify.Classify(ref, target)
		if c.Label != model.LabelOwnedByTarget {
			continue
		}

		if cfg.DryRun {
			outcomes = append(outcomes, model.ResourceOutcome{Ref: ref, Outcome: model.OutcomeDiscoveredOnly, Reason: "dry-run"})
			continue
		}

		if err := clients.Delete(ctx, ref); err != nil {
			outcomes = append(outcomes, model.ResourceOutcome{Ref: ref, Outcome: model.OutcomeFailed, Reason: err.Error()})
			continue
		}
		outcomes = append(outcomes, model.ResourceOutcome{Ref: ref, Outcome: model.OutcomeDeleted})
	}

	return outcomes
}

// ownedApplicationRefs splits out the AppEnvironment/AppVersion refs owned
// by target, the two slices plan.ForApplication needs directly rather than
// through ClassifiedInventory (which only groups the Cluster-plan Kinds).
func ownedApplicationRefs(refs []model.ResourceRef, target classify.Target) (environments, versions []model.ResourceRef) {
	for _, ref := range refs {
		c := classify.Classify(ref, target)
		if c.Label != model.LabelOwnedByTarget {
			continue
		}
		switch ref.Kind {
		case model.KindAppEnvironment:
			environments = append(environments, ref)
		case model.KindAppVersion:
			versions = append(versions, ref)
		}
	}
	return environments, versions
}

// buildPlan dispatches to the right Planner entry point for target.Kind.
// SecurityGroups are excluded from the cluster/instance plans' own
// SG steps here since the caller runs them separately through
// StripAndDeleteSecurityGroups, the cross-reference-aware iteration.
func buildPlan(target model.ResourceRef, inv plan.ClassifiedInventory, environments, versions []model.ResourceRef) (model.TeardownPlan, error) {
	switch target.Kind {
	case model.KindCluster:
		inv.SecurityGroups = nil
		return plan.ForCluster(target, inv)
	case model.KindInstance:
		return plan.ForInstance(target, nil)
	case model.KindApplication:
		return plan.ForApplication(target, environments, versions)
	default:
		return model.TeardownPlan{}, fmt.Errorf("buildPlan: unsupported target kind %s", target.Kind)
	}
}
