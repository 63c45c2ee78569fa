package cost

import (
	"time"

	"github.com/bgdnvk/clanker/internal/model"
)

// ComputeInstanceCost implements spec.md §4.7's per-instance calculation:
// uptime accrues from launch until now, or until the last-seen running
// boundary if the instance is currently stopped; storage keeps accruing
// regardless of power state.
func ComputeInstanceCost(ref model.ResourceRef, rates RateTable, now time.Time) model.CostRecord {
	detail, _ := ref.Detail.(model.InstanceDetail)

	uptimeEnd := now
	if ref.State == model.StateStopped && !detail.LastRunningTime.IsZero() {
		uptimeEnd = detail.LastRunningTime
	}

	uptime := uptimeEnd.Sub(detail.LaunchTime)
	if uptime < 0 {
		uptime = 0
	}
	uptimeHours := uptime.Hours()

	familyRate := rates.InstanceHourly[detail.InstanceType]
	computeCost := uptimeHours * familyRate

	// storage accrues for the full wall-clock lifetime, not just running time
	fullUptimeHours := now.Sub(detail.LaunchTime).Hours()
	if fullUptimeHours < 0 {
		fullUptimeHours = 0
	}
	storageCost := float64(detail.AttachedVolumeGB) * rates.StorageGBMonth * (fullUptimeHours / 730)

	return model.CostRecord{
		Subject:     ref,
		UptimeHours: uptimeHours,
		HourlyRate:  familyRate,
		ComputeCost: computeCost,
		StorageCost: storageCost,
		TotalCost:   computeCost + storageCost,
		ComputedAt:  now,
		LiveFound:   true,
	}
}

// ComputeSnapshotOnlyInstanceCost implements spec.md §8's boundary
// behavior for an instance present in a stored snapshot but absent from
// the live describe: accrual is zero (it wasn't observed running during
// this engine's pass), Subject still carries the snapshot's metadata
// (launch time, tags) for the report sink to display.
func ComputeSnapshotOnlyInstanceCost(ref model.ResourceRef, now time.Time) model.CostRecord {
	return model.CostRecord{
		Subject:    ref,
		ComputedAt: now,
		LiveFound:  false,
	}
}

// ComputeClusterCost implements spec.md §4.7's per-cluster calculation:
// controlPlaneCost accrues at the configured fixed hourly rate for the
// cluster's whole lifetime; nodegroup cost sums each nodegroup's node cost
// (instance rate × current desired size).
func ComputeClusterCost(ref model.ResourceRef, nodeGroups []model.ResourceRef, rates RateTable, now time.Time) model.CostRecord {
	uptimeHours := now.Sub(ref.CreatedAt).Hours()
	if uptimeHours < 0 {
		uptimeHours = 0
	}

	controlPlaneCost := uptimeHours * rates.ClusterHourly

	var nodeGroupCost float64
	for _, ng := range nodeGroups {
		detail, ok := ng.Detail.(model.NodeGroupDetail)
		if !ok {
			continue
		}
		ngUptimeHours := now.Sub(ng.CreatedAt).Hours()
		if ngUptimeHours < 0 {
			ngUptimeHours = 0
		}
		perNodeRate := rates.InstanceHourly[detail.InstanceType]
		size := detail.DesiredSize
		if size <= 0 {
			size = 1
		}
		nodeGroupCost += ngUptimeHours * perNodeRate * float64(size)
	}

	return model.CostRecord{
		Subject:          ref,
		UptimeHours:      uptimeHours,
		HourlyRate:       rates.ClusterHourly,
		ComputeCost:      nodeGroupCost,
		ControlPlaneCost: controlPlaneCost,
		TotalCost:        controlPlaneCost + nodeGroupCost,
		ComputedAt:       now,
		LiveFound:        true,
	}
}

// ComputeSnapshotOnlyClusterCost mirrors ComputeSnapshotOnlyInstanceCost for
// a Cluster present in a stored snapshot but absent from the live describe.
func ComputeSnapshotOnlyClusterCost(ref model.ResourceRef, now time.Time) model.CostRecord {
	return model.CostRecord{
		Subject:    ref,
		ComputedAt: now,
		LiveFound:  false,
	}
}
