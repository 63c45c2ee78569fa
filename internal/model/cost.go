package model

import "time"

// CostRecord is one resource's accrued-cost computation (spec.md §3, §4.7):
// uptime-hours times an hourly rate from the Rate Book, split out by
// compute/storage/control-plane so the report sink can total each
// separately.
type CostRecord struct {
	Subject          ResourceRef
	UptimeHours      float64
	HourlyRate       float64
	ComputeCost      float64
	StorageCost      float64
	ControlPlaneCost float64
	TotalCost        float64
	ComputedAt       time.Time

	// Reconciled is set once a costexplorer cross-check has run over the
	// record set; ReconciledDelta is this record's share, proportional to its
	// TotalCost, of CE's billed total minus the summed TotalCost of all
	// reconciled records, kept only for operator visibility (§7 "reconciliation
	// cross-check only, not primary cost source").
	Reconciled      bool
	ReconciledDelta float64

	// LiveFound reports whether Subject was still present in a live describe
	// at ComputedAt. False means the snapshot's resource has since
	// disappeared (spec.md §8's boundary behavior: "cluster present in
	// snapshot but absent live -> cost engine records zero compute cost and
	// a notFoundLive flag") — TotalCost is always 0 in that case and Subject
	// still carries the snapshot's metadata (launch time, tags, ...).
	LiveFound bool
}
