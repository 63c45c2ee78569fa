package model

import "time"

// Outcome is the terminal disposition recorded against a single ResourceRef
// once a teardown run finishes acting on it (spec.md §3, §6).
type Outcome string

const (
	OutcomeDeleted       Outcome = "Deleted"
	OutcomeSkippedShared Outcome = "SkippedShared"
	OutcomeSkippedProtected Outcome = "SkippedProtected"
	OutcomeFailed        Outcome = "Failed"
	OutcomeDiscoveredOnly Outcome = "DiscoveredOnly" // inventory-only runs, or dry-run
)

// ResourceOutcome pairs one ResourceRef's final disposition with the reason
// string every skip or failure must carry (spec.md §4.4, §4.6).
type ResourceOutcome struct {
	Ref     ResourceRef
	Outcome Outcome
	Reason  string
	Cost    *CostRecord
}

// AccountRegionTally counts outcomes within one (account, region) pair,
// broken down further by Kind so the report sink can render the nested
// by-account/by-region/by-kind summary spec.md §6 describes.
type AccountRegionTally struct {
	AccountName string
	Region      string
	ByKind      map[Kind]*KindTally
}

// KindTally counts how many resources of one Kind landed in each outcome.
type KindTally struct {
	Discovered int
	Deleted    int
	Skipped    int
	Failed     int
}

// RunReport is the top-level result of one engine run (inventory or
// teardown), aggregated by account and region, plus the flat per-resource
// outcome list the report sink serializes (internal/cost/exporter.go's
// os.MkdirAll+json.MarshalIndent+os.WriteFile pattern, generalized in
// internal/report).
type RunReport struct {
	Operation   string // "inventory" | "teardown" | "cost"
	Target      string // target kind/name, empty for inventory runs
	RunUser     string
	StartedAt   time.Time
	FinishedAt  time.Time
	DryRun      bool

	Tallies   []AccountRegionTally
	Outcomes  []ResourceOutcome
	CostTotal float64
	Errors    []string
}

// AddOutcome appends o to the flat outcome list and rolls it into the
// matching AccountRegionTally/KindTally, creating either if this is the
// first outcome seen for that (account, region) or Kind.
func (r *RunReport) AddOutcome(o ResourceOutcome) {
	r.Outcomes = append(r.Outcomes, o)

	var tally *AccountRegionTally
	for i := range r.Tallies {
		t := &r.Tallies[i]
		if t.AccountName == o.Ref.AccountName && t.Region == o.Ref.Region {
			tally = t
			break
		}
	}
	if tally == nil {
		r.Tallies = append(r.Tallies, AccountRegionTally{
			AccountName: o.Ref.AccountName,
			Region:      o.Ref.Region,
			ByKind:      map[Kind]*KindTally{},
		})
		tally = &r.Tallies[len(r.Tallies)-1]
	}

	kt := tally.ByKind[o.Ref.Kind]
	if kt == nil {
		kt = &KindTally{}
		tally.ByKind[o.Ref.Kind] = kt
	}
	kt.Discovered++
	switch o.Outcome {
	case OutcomeDeleted:
		kt.Deleted++
	case OutcomeSkippedShared, OutcomeSkippedProtected:
		kt.Skipped++
	case OutcomeFailed:
		kt.Failed++
	}

	if o.Cost != nil {
		r.CostTotal += o.Cost.TotalCost
	}
}
