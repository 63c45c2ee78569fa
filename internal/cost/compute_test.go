package cost

import (
	"testing"
	"time"

	"github.com/bgdnvk/clanker/internal/model"
)

func TestComputeInstanceCostRunning(t *testing.T) {
	now := time.Date(2026, 7, 29, 12, 0, 0, 0, time.UTC)
	launch := now.Add(-10 * time.Hour)

	ref := model.ResourceRef{
		Kind:  model.KindInstance,
		ID:    "i-1",
		State: model.StateRunning,
		Detail: model.InstanceDetail{
			InstanceType:     "m5.large",
			LaunchTime:       launch,
			AttachedVolumeGB: 100,
		},
	}
	rates := bundledDefaults("us-east-1")

	rec := ComputeInstanceCost(ref, rates, now)

	if rec.UptimeHours != 10 {
		t.Errorf("expected 10 uptime hours, got %v", rec.UptimeHours)
	}
	wantCompute := 10 * rates.InstanceHourly["m5.large"]
	if rec.ComputeCost != wantCompute {
		t.Errorf("expected compute cost %v, got %v", wantCompute, rec.ComputeCost)
	}
	if rec.StorageCost <= 0 {
		t.Error("expected nonzero storage cost for an attached volume")
	}
}

func TestComputeInstanceCostStoppedHaltsComputeAccrual(t *testing.T) {
	now := time.Date(2026, 7, 29, 12, 0, 0, 0, time.UTC)
	launch := now.Add(-20 * time.Hour)
	stoppedAt := now.Add(-5 * time.Hour)

	ref := model.ResourceRef{
		Kind:  model.KindInstance,
		ID:    "i-2",
		State: model.StateStopped,
		Detail: model.InstanceDetail{
			InstanceType:     "t3.small",
			LaunchTime:       launch,
			LastRunningTime:  stoppedAt,
			AttachedVolumeGB: 50,
		},
	}
	rates := bundledDefaults("us-east-1")

	rec := ComputeInstanceCost(ref, rates, now)

	// compute accrual stops at the last-running boundary: 15 hours, not 20
	if rec.UptimeHours != 15 {
		t.Errorf("expected compute uptime to halt at stop boundary (15h), got %v", rec.UptimeHours)
	}
}

func TestComputeClusterCostSumsNodeGroups(t *testing.T) {
	now := time.Date(2026, 7, 29, 12, 0, 0, 0, time.UTC)
	created := now.Add(-100 * time.Hour)

	cluster := model.ResourceRef{Kind: model.KindCluster, ID: "c-1", CreatedAt: created}
	nodeGroups := []model.ResourceRef{
		{
			Kind:      model.KindNodeGroup,
			ID:        "ng-1",
			CreatedAt: created,
			Detail:    model.NodeGroupDetail{InstanceType: "m5.large", DesiredSize: 3},
		},
	}
	rates := bundledDefaults("us-east-1")

	rec := ComputeClusterCost(cluster, nodeGroups, rates, now)

	wantControlPlane := 100 * rates.ClusterHourly
	if rec.ControlPlaneCost != wantControlPlane {
		t.Errorf("expected control plane cost %v, got %v", wantControlPlane, rec.ControlPlaneCost)
	}
	wantNodeCost := 100 * rates.InstanceHourly["m5.large"] * 3
	if rec.ComputeCost != wantNodeCost {
		t.Errorf("expected nodegroup compute cost %v, got %v", wantNodeCost, rec.ComputeCost)
	}
	if rec.TotalCost != wantControlPlane+wantNodeCost {
		t.Errorf("expected total %v, got %v", wantControlPlane+wantNodeCost, rec.TotalCost)
	}
}

func TestParsePriceListEntry(t *testing.T) {
	raw := `{
		"product": {"attributes": {"instanceType": "m5.large"}},
		"terms": {
			"OnDemand": {
				"ABC": {
					"priceDimensions": {
						"XYZ": {"pricePerUnit": {"USD": "0.096"}}
					}
				}
			}
		}
	}`

	instanceType, hourly, ok := parsePriceListEntry(raw)
	if !ok {
		t.Fatal("expected parse to succeed")
	}
	if instanceType != "m5.large" || hourly != 0.096 {
		t.Errorf("got instanceType=%q hourly=%v", instanceType, hourly)
	}
}

func TestParsePriceListEntryMalformed(t *testing.T) {
	if _, _, ok := parsePriceListEntry("not json"); ok {
		t.Error("expected malformed JSON to fail parse")
	}
}

func TestApplyReconciliationSpreadsProportionally(t *testing.T) {
	records := []*model.CostRecord{
		{Subject: model.ResourceRef{ID: "a"}, TotalCost: 10},
		{Subject: model.ResourceRef{ID: "b"}, TotalCost: 30},
	}
	Apply(records, 48) // billed total 48 vs computed 40 -> +8 delta split 1:3

	if !records[0].Reconciled || !records[1].Reconciled {
		t.Fatal("expected both records marked reconciled")
	}
	if records[0].ReconciledDelta != 2 {
		t.Errorf("expected record a delta 2, got %v", records[0].ReconciledDelta)
	}
	if records[1].ReconciledDelta != 6 {
		t.Errorf("expected record b delta 6, got %v", records[1].ReconciledDelta)
	}
}
