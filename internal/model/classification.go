package model

// Label is the classifier's disposition for a ResourceRef relative to one
// teardown target (spec.md §3 Classification, §4.4).
type Label string

const (
	LabelOwnedByTarget   Label = "OwnedByTarget"
	LabelSharedSuspected Label = "SharedSuspected"
	LabelProtected       Label = "Protected"
	LabelUnrelated       Label = "Unrelated"
)

// rank orders labels so ties resolve Protected > SharedSuspected >
// OwnedByTarget > Unrelated (spec.md §4.4 tie-break rule). Higher wins.
var rank = map[Label]int{
	LabelProtected:       3,
	LabelSharedSuspected: 2,
	LabelOwnedByTarget:   1,
	LabelUnrelated:       0,
}

// Dominant returns whichever of a, b outranks the other. A Protected label
// can never be downgraded by a later check (spec.md §4.4).
func Dominant(a, b Label) Label {
	if rank[a] >= rank[b] {
		return a
	}
	return b
}

// Classification is the classifier's verdict for one ResourceRef, with the
// reason string spec.md §3 requires every skip to carry.
type Classification struct {
	Ref    ResourceRef
	Label  Label
	Reason string
}
