package cost

import (
	"testing"

	"github.com/bgdnvk/clanker/internal/model"
)

func TestRollupGroupsByAccountAndRegion(t *testing.T) {
	records := []model.CostRecord{
		{Subject: model.ResourceRef{AccountName: "prod", Region: "us-east-1"}, ComputeCost: 5, TotalCost: 5},
		{Subject: model.ResourceRef{AccountName: "prod", Region: "us-east-1"}, ComputeCost: 3, TotalCost: 3},
		{Subject: model.ResourceRef{AccountName: "prod", Region: "us-west-2"}, ComputeCost: 100, TotalCost: 100},
	}

	rollups := Rollup(records)
	if len(rollups) != 2 {
		t.Fatalf("expected 2 rollups, got %d", len(rollups))
	}
	// sorted descending by total, so us-west-2 (100) comes first
	if rollups[0].Region != "us-west-2" || rollups[0].TotalCost != 100 {
		t.Errorf("expected us-west-2 first with total 100, got %+v", rollups[0])
	}
	if rollups[1].RecordCount != 2 || rollups[1].TotalCost != 8 {
		t.Errorf("expected us-east-1 rollup to merge 2 records into total 8, got %+v", rollups[1])
	}
}

func TestFormatRollupsJSON(t *testing.T) {
	f := NewFormatter("json", false)
	out, err := f.FormatRollups([]RegionRollup{{AccountName: "prod", Region: "us-east-1", TotalCost: 12.5}})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if out == "" {
		t.Error("expected non-empty JSON output")
	}
}

func TestFormatRollupsTable(t *testing.T) {
	f := NewFormatter("table", false)
	out, err := f.FormatRollups([]RegionRollup{{AccountName: "prod", Region: "us-east-1", TotalCost: 12.5, RecordCount: 3}})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if out == "" {
		t.Error("expected non-empty table output")
	}
}
