package model

import "time"

// InstanceDetail carries EC2-instance-specific discovery fields (spec.md §4.3).
type InstanceDetail struct {
	InstanceType     string
	VPCID            string
	SecurityGroupIDs []string
	PrivateIP        string
	PublicIP         string
	LaunchTime       time.Time
	LastRunningTime  time.Time // boundary used by the cost engine when stopped
	AttachedVolumeGB int64
}

// SecurityGroupRule is a single ingress or egress rule, normalized enough to
// detect the provider default egress rule (spec.md §4.4.1, §4.6).
type SecurityGroupRule struct {
	Direction  string // "ingress" | "egress"
	Protocol   string // "-1" means all protocols
	CIDR       string
	PeerGroup  string
	FromPort   int32
	ToPort     int32
}

// IsDefaultEgress reports whether r is the provider's built-in default
// egress rule (all protocols, 0.0.0.0/0, no peer group, no port range) which
// is Protected from removal per spec.md §4.4.1.
func (r SecurityGroupRule) IsDefaultEgress() bool {
	return r.Direction == "egress" &&
		(r.Protocol == "-1" || r.Protocol == "all") &&
		r.CIDR == "0.0.0.0/0" &&
		r.PeerGroup == ""
}

// SecurityGroupDetail carries SG-specific discovery fields.
type SecurityGroupDetail struct {
	VPCID             string
	Rules             []SecurityGroupRule
	AttachedInstances []string // populated by the "correlate" pass, §4.3
}

// NodeGroupDetail carries per-nodegroup scaling/instance metadata.
type NodeGroupDetail struct {
	ClusterName  string
	DesiredSize  int32
	MinSize      int32
	MaxSize      int32
	InstanceType string
	Status       string
}

// ClusterDetail carries EKS-cluster-specific fields, hydrated eagerly with
// child NodeGroups per spec.md §4.3.
type ClusterDetail struct {
	VPCID      string
	NodeGroups []ResourceRef // Kind == KindNodeGroup
	Version    string
}

// RoleDetail carries IAM-role-specific fields needed for §4.6's deletion
// sequencing (detach managed policies, remove inline, clear profiles).
type RoleDetail struct {
	Path                  string
	AttachedPolicyARNs    []string
	InlinePolicyNames     []string
	InstanceProfileNames  []string
}

// PolicyDetail carries IAM-policy-specific fields for §4.6's version cleanup.
type PolicyDetail struct {
	ARN               string
	DefaultVersionID  string
	NonDefaultVersions []string
	AttachedEntities   int
}

// FunctionDetail carries Lambda-specific fields.
type FunctionDetail struct {
	Runtime               string
	EventSourceMappingIDs []string
}

// EventRuleDetail carries EventBridge-specific fields.
type EventRuleDetail struct {
	EventBusName string
	TargetIDs    []string
	ReferencedClusters []string // used by the SharedSuspected "more than one cluster" heuristic
}

// AlarmDetail carries CloudWatch-alarm-specific fields, including the
// composite/basic/cost-alarm distinction used by §4.6's ordering rule.
type AlarmDetail struct {
	IsComposite    bool
	IsCostAlarm    bool
	Dimensions     map[string]string
	ComposedOfARNs []string // alarms this composite references
}

// ScraperDetail carries Amazon Managed Prometheus scraper/workspace fields.
type ScraperDetail struct {
	WorkspaceARN string
	SourceARN    string // the EKS cluster ARN the scraper ingests from
}

// AppEnvironmentDetail carries Elastic-Beanstalk-environment fields.
type AppEnvironmentDetail struct {
	ApplicationName string
	VersionLabel    string
	Status          string
	DBInstanceIDs   []string // referenced RDS instances, if any
}

// BucketDetail carries S3-bucket fields for the Bucket kind (SPEC_FULL §3).
type BucketDetail struct {
	ObjectCount int64
	IsEmpty     bool
}

// DBInstanceDetail carries RDS-instance fields for the DBInstance kind.
type DBInstanceDetail struct {
	Engine string
	Status string
}
