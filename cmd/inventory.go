package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	"github.com/spf13/cobra"

	"github.com/bgdnvk/clanker/internal/cloudaws"
	"github.com/bgdnvk/clanker/internal/fanout"
	"github.com/bgdnvk/clanker/internal/model"
	"github.com/bgdnvk/clanker/internal/registry"
	"github.com/bgdnvk/clanker/internal/report"
)

var inventoryCmd = &cobra.Command{
	Use:   "inventory",
	Short: "Discover every resource across the configured accounts and regions",
	Long: `inventory fans out across every (account, region) pair the registry
and --accounts/--regions flags resolve to, discovers every resource Kind the
engine knows about, and writes both a JSON inventory snapshot and a run
report.`,
	RunE: runInventory,
}

func init() {
	rootCmd.AddCommand(inventoryCmd)
}

func runInventory(command *cobra.Command, args []string) error {
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

	started := nowUTC()
	runReport := model.RunReport{
		Operation: "inventory",
		RunUser:   cfg.RunUser,
		StartedAt: started,
		DryRun:    cfg.DryRun,
	}

	factory := cloudaws.NewFactory()
	tasks := fanout.Tasks(accounts, resolveRegions(reg, cfg))

	var authErrors int64
	var snapshotMu sync.Mutex
	var snapshot []model.ResourceRef

	scheduler := fanout.New(cfg.Concurrency)
	scheduler.Run(command.Context(), tasks, func(ctx context.Context, t fanout.Task) ([]model.ResourceOutcome, []model.CostRecord, error) {
		clients, err := factory.Clients(ctx, t.Account, t.Region)
		if err != nil {
			atomic.AddInt64(&authErrors, 1)
			return nil, nil, fmt.Errorf("building clients for %s/%s: %w", t.Account.Name, t.Region, err)
		}

		refs, err := clients.DiscoverAll(ctx, t.Account.Name, t.Region)
		snapshotMu.Lock()
		snapshot = append(snapshot, refs...)
		snapshotMu.Unlock()

		outcomes := make([]model.ResourceOutcome, 0, len(refs))
		for _, ref := range refs {
			outcomes = append(outcomes, model.ResourceOutcome{Ref: ref, Outcome: model.OutcomeDiscoveredOnly})
		}
		return outcomes, nil, err
	}, &runReport)

	runReport.FinishedAt = nowUTC()

	snapshotPath, err := writeSnapshot(snapshot, started)
	if err != nil {
		fmt.Fprintf(os.Stderr, "[clanker] failed to write inventory snapshot: %v\n", err)
	} else {
		fmt.Printf("inventory snapshot written to %s\n", snapshotPath)
	}

	sink := report.New(defaultReportBaseDir())
	reportPath, logPath, err := sink.Write(runReport, cfg.ConfigPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "[clanker] failed to write report: %v\n", err)
	} else {
		fmt.Printf("report written to %s (log: %s)\n", reportPath, logPath)
	}

	// spec.md §7's non-zero-exit rule: only when nothing succeeded AND at
	// least one Config/Auth error occurred.
	if len(runReport.Outcomes) == 0 && atomic.LoadInt64(&authErrors) > 0 {
		os.Exit(1)
	}
	return nil
}

func defaultReportBaseDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "."
	}
	return filepath.Join(home, ".clanker")
}

func writeSnapshot(refs []model.ResourceRef, generatedAt time.Time) (string, error) {
	path := filepath.Join(defaultReportBaseDir(), "clanker", "inventory", fmt.Sprintf("snapshot_%s.json", generatedAt.Format("20060102-150405")))
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return "", err
	}
	data, err := json.MarshalIndent(refs, "", "  ")
	if err != nil {
		return "", err
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return "", err
	}
	return path, nil
}
