package cost

import (
	"sort"

	"github.com/bgdnvk/clanker/internal/model"
)

// RegionRollup totals every CostRecord computed for one (account, region)
// pair, the unit the CLI and report sink print per spec.md §4.9's
// "per-account and per-region summaries".
type RegionRollup struct {
	AccountName      string  `json:"accountName"`
	Region           string  `json:"region"`
	ComputeCost      float64 `json:"computeCost"`
	StorageCost      float64 `json:"storageCost"`
	ControlPlaneCost float64 `json:"controlPlaneCost"`
	TotalCost        float64 `json:"totalCost"`
	RecordCount      int     `json:"recordCount"`
}

// Rollup aggregates records by (account, region) and returns the rollups
// sorted by descending TotalCost, the order the teacher's exporter/formatter
// habitually present provider/service breakdowns in.
func Rollup(records []model.CostRecord) []RegionRollup {
	byKey := map[string]*RegionRollup{}
	order := []string{}

	for _, rec := range records {
		key := rec.Subject.AccountName + "/" + rec.Subject.Region
		r, ok := byKey[key]
		if !ok {
			r = &RegionRollup{AccountName: rec.Subject.AccountName, Region: rec.Subject.Region}
			byKey[key] = r
			order = append(order, key)
		}
		r.ComputeCost += rec.ComputeCost
		r.StorageCost += rec.StorageCost
		r.ControlPlaneCost += rec.ControlPlaneCost
		r.TotalCost += rec.TotalCost
		r.RecordCount++
	}

	out := make([]RegionRollup, 0, len(order))
	for _, key := range order {
		out = append(out, *byKey[key])
	}
	sort.Slice(out, func(i, j int) bool { return out[i].TotalCost > out[j].TotalCost })
	return out
}
