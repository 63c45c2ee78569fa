// Package model holds the shared types threaded between every lifecycle
// engine component: resource references, dependency edges, teardown plans,
// classification labels, cost records, and the run-scoped context that
// replaces package-level globals.
package model

import (
	"encoding/json"
	"fmt"
	"time"
)

// Kind discriminates the resource variants the engine knows how to inventory
// and tear down. A resource's behavior is dispatched on Kind rather than on
// any duck-typed field presence.
type Kind string

const (
	KindInstance      Kind = "Instance"
	KindSecurityGroup Kind = "SecurityGroup"
	KindCluster       Kind = "Cluster"
	KindNodeGroup     Kind = "NodeGroup"
	KindAppEnvironment Kind = "AppEnvironment"
	KindAppVersion    Kind = "AppVersion"
	KindApplication   Kind = "Application"
	KindRole          Kind = "Role"
	KindPolicy        Kind = "Policy"
	KindFunction      Kind = "Function"
	KindEventRule     Kind = "EventRule"
	KindAlarm         Kind = "Alarm"
	KindLogGroup      Kind = "LogGroup"
	KindScraper       Kind = "Scraper"
	KindAddon         Kind = "Addon"
	KindWorkspace     Kind = "Workspace"
	KindBucket        Kind = "Bucket"
	KindDBInstance    Kind = "DBInstance"
)

// State is a coarse description of a resource's observed lifecycle state at
// discovery time, not the classifier's disposition label.
type State string

const (
	StateRunning    State = "running"
	StateStopped    State = "stopped"
	StateTerminated State = "terminated"
	StateCreating   State = "creating"
	StateUpdating   State = "updating"
	StateDeleting   State = "deleting"
	StateActive     State = "active"
	StateUnknown    State = "unknown"
)

// Tag is the provider's native {Key,Value} tag shape. Per DESIGN.md's Open
// Question decision, every provider tag response is normalized into this
// shape at the cloudaws boundary — never treated as a bare map or a
// dict-of-dicts the way one of the source's two divergent tag parsers did.
type Tag struct {
	Key   string
	Value string
}

// TagMap flattens a Tag slice for convenience lookups after normalization.
type TagMap map[string]string

func NewTagMap(tags []Tag) TagMap {
	m := make(TagMap, len(tags))
	for _, t := range tags {
		m[t.Key] = t.Value
	}
	return m
}

// ResourceRef is the common envelope for every discovered cloud resource.
// Kind-specific detail lives in Detail, type-asserted by callers that need
// it (see detail.go) — this mirrors the spec's "common interface for
// {id, name, tags, accountContext}" over an otherwise tagged-variant model.
type ResourceRef struct {
	Kind        Kind
	ID          string
	Name        string
	AccountName string
	AccountID   string
	Region      string
	Tags        TagMap
	CreatedAt   time.Time
	State       State
	Description string

	// Detail carries kind-specific fields (InstanceDetail, SecurityGroupDetail,
	// ClusterDetail, ...) so ResourceRef itself stays a flat, serializable
	// envelope usable uniformly by the classifier, planner, and report sink.
	Detail any
}

// Key identifies a ResourceRef uniquely within a single engine run.
func (r ResourceRef) Key() string {
	return string(r.Kind) + "/" + r.AccountID + "/" + r.Region + "/" + r.ID
}

// resourceRefJSON mirrors ResourceRef with Detail deferred as raw JSON, so
// MarshalJSON/UnmarshalJSON can round-trip the Kind-specific Detail struct
// through the inventory-snapshot file (spec.md §6) instead of decaying it
// into a bare map[string]interface{}.
type resourceRefJSON struct {
	Kind        Kind
	ID          string
	Name        string
	AccountName string
	AccountID   string
	Region      string
	Tags        TagMap
	CreatedAt   time.Time
	State       State
	Description string
	Detail      json.RawMessage
}

func (r ResourceRef) MarshalJSON() ([]byte, error) {
	detail, err := json.Marshal(r.Detail)
	if err != nil {
		return nil, fmt.Errorf("marshaling detail for %s: %w", r.Key(), err)
	}
	return json.Marshal(resourceRefJSON{
		Kind:        r.Kind,
		ID:          r.ID,
		Name:        r.Name,
		AccountName: r.AccountName,
		AccountID:   r.AccountID,
		Region:      r.Region,
		Tags:        r.Tags,
		CreatedAt:   r.CreatedAt,
		State:       r.State,
		Description: r.Description,
		Detail:      detail,
	})
}

func (r *ResourceRef) UnmarshalJSON(data []byte) error {
	var raw resourceRefJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	r.Kind = raw.Kind
	r.ID = raw.ID
	r.Name = raw.Name
	r.AccountName = raw.AccountName
	r.AccountID = raw.AccountID
	r.Region = raw.Region
	r.Tags = raw.Tags
	r.CreatedAt = raw.CreatedAt
	r.State = raw.State
	r.Description = raw.Description

	if len(raw.Detail) == 0 || string(raw.Detail) == "null" {
		return nil
	}

	detail, err := decodeDetail(raw.Kind, raw.Detail)
	if err != nil {
		return fmt.Errorf("decoding detail for %s/%s: %w", raw.Kind, raw.ID, err)
	}
	r.Detail = detail
	return nil
}

// decodeDetail unmarshals raw into the concrete Detail type Kind carries,
// the inverse of the type switches in internal/cloudaws's discovery code.
func decodeDetail(kind Kind, raw json.RawMessage) (any, error) {
	var detail any
	switch kind {
	case KindInstance:
		detail = &InstanceDetail{}
	case KindSecurityGroup:
		detail = &SecurityGroupDetail{}
	case KindNodeGroup:
		detail = &NodeGroupDetail{}
	case KindCluster:
		detail = &ClusterDetail{}
	case KindRole:
		detail = &RoleDetail{}
	case KindPolicy:
		detail = &PolicyDetail{}
	case KindFunction:
		detail = &FunctionDetail{}
	case KindEventRule:
		detail = &EventRuleDetail{}
	case KindAlarm:
		detail = &AlarmDetail{}
	case KindScraper, KindWorkspace:
		detail = &ScraperDetail{}
	case KindAppEnvironment, KindAppVersion:
		detail = &AppEnvironmentDetail{}
	case KindBucket:
		detail = &BucketDetail{}
	case KindDBInstance:
		detail = &DBInstanceDetail{}
	default:
		// Application, Addon, LogGroup carry no typed Detail struct today.
		return nil, nil
	}

	if err := json.Unmarshal(raw, detail); err != nil {
		return nil, err
	}
	// deref back to the value type so type assertions like
	// ref.Detail.(InstanceDetail) elsewhere keep working unchanged.
	switch d := detail.(type) {
	case *InstanceDetail:
		return *d, nil
	case *SecurityGroupDetail:
		return *d, nil
	case *NodeGroupDetail:
		return *d, nil
	case *ClusterDetail:
		return *d, nil
	case *RoleDetail:
		return *d, nil
	case *PolicyDetail:
		return *d, nil
	case *FunctionDetail:
		return *d, nil
	case *EventRuleDetail:
		return *d, nil
	case *AlarmDetail:
		return *d, nil
	case *ScraperDetail:
		return *d, nil
	case *AppEnvironmentDetail:
		return *d, nil
	case *BucketDetail:
		return *d, nil
	case *DBInstanceDetail:
		return *d, nil
	default:
		return nil, nil
	}
}

// EdgeKind discriminates the dependency-edge variants of spec.md §3.
type EdgeKind string

const (
	EdgeContains    EdgeKind = "contains"
	EdgeAttachedTo  EdgeKind = "attached-to"
	EdgeReferences  EdgeKind = "references"
	EdgeRulesOf     EdgeKind = "rules-of"
)

// DependencyEdge is a directed edge in the resource graph. Contains and
// AttachedTo edges are acyclic; References edges may cycle (SG cross-refs)
// and are handled by the executor's iterative rule-stripping loop, never by
// a general cycle breaker (DESIGN NOTES §9).
type DependencyEdge struct {
	Parent ResourceRef
	Child  ResourceRef
	Kind   EdgeKind
}
