package cost

import (
	"context"
	"fmt"
	"log"
	"strconv"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/costexplorer"
	cetypes "github.com/aws/aws-sdk-go-v2/service/costexplorer/types"

	"github.com/bgdnvk/clanker/internal/model"
)

// Reconciler cross-checks the engine's computed CostRecords against Cost
// Explorer's billed spend per spec.md §4.7/§7: costexplorer is a
// reconciliation-only check, never the primary source of a CostRecord's
// TotalCost.
type Reconciler struct {
	client *costexplorer.Client
}

func NewReconciler(client *costexplorer.Client) *Reconciler {
	return &Reconciler{client: client}
}

// ReconcileAccount fetches the account's unblended spend for service over
// [start, end) and returns it for the caller to diff against the sum of its
// own CostRecords' TotalCost.
func (r *Reconciler) ReconcileAccount(ctx context.Context, service string, start, end time.Time) (float64, error) {
	out, err := r.client.GetCostAndUsage(ctx, &costexplorer.GetCostAndUsageInput{
		TimePeriod: &cetypes.DateInterval{
			Start: aws.String(start.Format("2006-01-02")),
			End:   aws.String(end.Format("2006-01-02")),
		},
		Granularity: cetypes.GranularityDaily,
		Metrics:     []string{"UnblendedCost"},
		Filter: &cetypes.Expression{
			Dimensions: &cetypes.DimensionValues{
				Key:    cetypes.DimensionService,
				Values: []string{service},
			},
		},
	})
	if err != nil {
		return 0, fmt.Errorf("cost explorer reconciliation query failed: %w", err)
	}

	var total float64
	for _, period := range out.ResultsByTime {
		amt, ok := period.Total["UnblendedCost"]
		if !ok || amt.Amount == nil {
			continue
		}
		v, err := strconv.ParseFloat(*amt.Amount, 64)
		if err != nil {
			continue
		}
		total += v
	}
	return total, nil
}

// Apply annotates each record's Reconciled/ReconciledDelta fields in place
// by comparing the sum of records against billedTotal, spread proportionally
// across records so individual deltas are directionally useful without
// claiming per-resource billing precision Cost Explorer doesn't provide.
func Apply(records []*model.CostRecord, billedTotal float64) {
	var computedTotal float64
	for _, rec := range records {
		computedTotal += rec.TotalCost
	}
	if computedTotal == 0 {
		log.Printf("[cost] skipping reconciliation apply: computed total is zero")
		return
	}
	delta := billedTotal - computedTotal
	for _, rec := range records {
		share := rec.TotalCost / computedTotal
		rec.Reconciled = true
		rec.ReconciledDelta = delta * share
	}
}
