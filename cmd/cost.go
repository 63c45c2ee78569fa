package cmd

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/spf13/cobra"

	"github.com/bgdnvk/clanker/internal/cloudaws"
	"github.com/bgdnvk/clanker/internal/cost"
	"github.com/bgdnvk/clanker/internal/fanout"
	"github.com/bgdnvk/clanker/internal/model"
	"github.com/bgdnvk/clanker/internal/registry"
)

var (
	costFormat     string
	costOutput     string
	costReconcile  bool
	costCacheDir   string
	costSnapshot   string
)

var costCmd = &cobra.Command{
	Use:   "cost",
	Short: "Compute accrued infrastructure cost across the configured accounts and regions",
	Long: `cost discovers running and recently-stopped resources the same way
inventory does, prices each against the Rate Book (spec.md §4.7), and rolls
the result up by account/region. Pass --reconcile to cross-check the
computed total against Cost Explorer's billed total for the current month
(never the primary cost source).`,
	RunE: runCost,
}

func init() {
	rootCmd.AddCommand(costCmd)

	costCmd.Flags().StringVar(&costFormat, "format", "table", "output format: table, json")
	costCmd.Flags().StringVar(&costOutput, "output", "", "write the rollup to this file instead of stdout")
	costCmd.Flags().BoolVar(&costReconcile, "reconcile", false, "cross-check against Cost Explorer's billed total")
	costCmd.Flags().StringVar(&costCacheDir, "rate-cache-dir", "", "directory for the Rate Book's on-disk pricing cache (default: $HOME/.clanker/rates)")
	costCmd.Flags().StringVar(&costSnapshot, "snapshot", "", "inventory-snapshot file to cost against (default: the most recent snapshot written by 'inventory')")
}

func runCost(command *cobra.Command, args []string) error {
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

	factory := cloudaws.NewFactory()
	tasks := fanout.Tasks(accounts, resolveRegions(reg, cfg))
	now := nowUTC()

	rateCacheDir := costCacheDir
	if rateCacheDir == "" {
		rateCacheDir = filepath.Join(defaultReportBaseDir(), "rates")
	}

	// spec.md §4.7's cost contract runs "given a stored inventory snapshot
	// and the current wall-clock time" — load the snapshot cmd/inventory.go
	// last wrote (or the path --snapshot names) up front and join it against
	// each task's live discovery below. No snapshot on disk yet (the
	// operator never ran 'inventory') falls back to costing live discovery
	// directly, with every record reported LiveFound=true, so a first-ever
	// 'cost' run still produces output instead of erroring.
	snapshotPath := costSnapshot
	if snapshotPath == "" {
		if p, err := cost.LatestSnapshotPath(defaultReportBaseDir()); err == nil {
			snapshotPath = p
		}
	}
	var snapshotRefs []model.ResourceRef
	if snapshotPath != "" {
		refs, err := cost.LoadSnapshot(snapshotPath)
		if err != nil {
			fmt.Fprintf(os.Stderr, "[clanker] ignoring unreadable snapshot %s: %v\n", snapshotPath, err)
		} else {
			snapshotRefs = refs
			fmt.Printf("costing against snapshot %s\n", snapshotPath)
		}
	}

	var (
		recordsMu sync.Mutex
		records   []model.CostRecord
		rateBooks sync.Map // region -> *cost.RateBook
	)

	runReport := model.RunReport{Operation: "cost", RunUser: cfg.RunUser, StartedAt: now, DryRun: cfg.DryRun}

	scheduler := fanout.New(cfg.Concurrency)
	scheduler.Run(command.Context(), tasks, func(ctx context.Context, t fanout.Task) ([]model.ResourceOutcome, []model.CostRecord, error) {
		clients, err := factory.Clients(ctx, t.Account, t.Region)
		if err != nil {
			return nil, nil, fmt.Errorf("building clients for %s/%s: %w", t.Account.Name, t.Region, err)
		}

		rb, _ := rateBooks.LoadOrStore(t.Region, cost.NewRateBook(clients.Pricing, rateCacheDir))
		rates := rb.(*cost.RateBook).RatesFor(ctx, t.Region)

		liveRefs, err := clients.DiscoverAll(ctx, t.Account.Name, t.Region)

		liveClusters := map[string][]model.ResourceRef{}
		for _, ref := range liveRefs {
			if ref.Kind == model.KindNodeGroup {
				if detail, ok := ref.Detail.(model.NodeGroupDetail); ok {
					liveClusters[detail.ClusterName] = append(liveClusters[detail.ClusterName], ref)
				}
			}
		}

		subjects := cost.JoinSnapshot(snapshotRefs, liveRefs, t.Account.Name, t.Region)
		if len(snapshotRefs) == 0 {
			// no snapshot available anywhere: treat live discovery as its
			// own snapshot so 'cost' still works standalone.
			for _, ref := range liveRefs {
				if ref.Kind != model.KindInstance && ref.Kind != model.KindCluster {
					continue
				}
				l := ref
				subjects = append(subjects, cost.JoinedSubject{Snapshot: ref, Live: &l})
			}
		}

		taskRecords := make([]model.CostRecord, 0, len(subjects))
		for _, subject := range subjects {
			switch subject.Snapshot.Kind {
			case model.KindInstance:
				if subject.Live == nil {
					taskRecords = append(taskRecords, cost.ComputeSnapshotOnlyInstanceCost(subject.Snapshot, now))
					continue
				}
				if subject.Live.State == model.StateTerminated {
					continue
				}
				taskRecords = append(taskRecords, cost.ComputeInstanceCost(*subject.Live, rates, now))
			case model.KindCluster:
				if subject.Live == nil {
					taskRecords = append(taskRecords, cost.ComputeSnapshotOnlyClusterCost(subject.Snapshot, now))
					continue
				}
				taskRecords = append(taskRecords, cost.ComputeClusterCost(*subject.Live, liveClusters[subject.Live.Name], rates, now))
			}
		}

		recordsMu.Lock()
		records = append(records, taskRecords...)
		recordsMu.Unlock()

		return nil, taskRecords, err
	}, &runReport)

	if costReconcile {
		reconcileAgainstBilled(command.Context(), factory, accounts, resolveRegions(reg, cfg), records)
	}

	rollups := cost.Rollup(records)
	formatter := cost.NewFormatter(costFormat, costOutput == "")
	output, err := formatter.FormatRollups(rollups)
	if err != nil {
		return fmt.Errorf("formatting cost rollup: %w", err)
	}

	if costOutput == "" {
		formatter.Print(output)
		return nil
	}

	exportFormat := costFormat
	if exportFormat != "json" {
		exportFormat = "csv"
	}
	exporter := cost.NewExporter()
	if err := exporter.ExportToFile(rollups, exportFormat, costOutput); err != nil {
		return fmt.Errorf("exporting cost rollup: %w", err)
	}
	fmt.Printf("cost rollup written to %s\n", costOutput)
	return nil
}

// reconcileAgainstBilled cross-checks the computed total against Cost
// Explorer's billed total for the current month-to-date, spreading the
// delta proportionally across records (spec.md §4.7's reconciliation
// cross-check, never the primary cost source).
func reconcileAgainstBilled(ctx context.Context, factory *cloudaws.Factory, accounts []model.Account, regions []string, records []model.CostRecord) {
	if len(accounts) == 0 || len(regions) == 0 {
		return
	}

	clients, err := factory.Clients(ctx, accounts[0], regions[0])
	if err != nil {
		fmt.Fprintf(os.Stderr, "[clanker] reconciliation skipped: %v\n", err)
		return
	}

	now := nowUTC()
	start := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC)

	reconciler := cost.NewReconciler(clients.CostExplorer)
	billedTotal, err := reconciler.ReconcileAccount(ctx, "Amazon Elastic Compute Cloud - Compute", start, now)
	if err != nil {
		fmt.Fprintf(os.Stderr, "[clanker] reconciliation skipped: %v\n", err)
		return
	}

	recordPtrs := make([]*model.CostRecord, len(records))
	for i := range records {
		recordPtrs[i] = &records[i]
	}
	cost.Apply(recordPtrs, billedTotal)
}
