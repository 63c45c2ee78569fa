package cloudaws

import (
	"errors"
	"testing"

	ec2types "github.com/aws/aws-sdk-go-v2/service/ec2/types"
	"github.com/aws/smithy-go"

	"github.com/bgdnvk/clanker/internal/model"
)

func TestNormalizeTagsAndName(t *testing.T) {
	src := []ec2types.Tag{
		{Key: strPtr("Name"), Value: strPtr("web-1")},
		{Key: strPtr("env"), Value: strPtr("prod")},
	}
	tags := normalizeTags(src)
	if tags["env"] != "prod" {
		t.Errorf("expected env=prod, got %q", tags["env"])
	}
	if got := nameFromTags(tags, "fallback-id"); got != "web-1" {
		t.Errorf("expected Name tag to win, got %q", got)
	}
	if got := nameFromTags(model.TagMap{}, "fallback-id"); got != "fallback-id" {
		t.Errorf("expected fallback when no Name tag, got %q", got)
	}
}

func strPtr(s string) *string { return &s }

func TestInstanceState(t *testing.T) {
	tests := []struct {
		name string
		in   *ec2types.InstanceState
		want model.State
	}{
		{"nil state", nil, model.StateUnknown},
		{"running", &ec2types.InstanceState{Name: ec2types.InstanceStateNameRunning}, model.StateRunning},
		{"stopped", &ec2types.InstanceState{Name: ec2types.InstanceStateNameStopped}, model.StateStopped},
		{"stopping treated as stopped", &ec2types.InstanceState{Name: ec2types.InstanceStateNameStopping}, model.StateStopped},
		{"terminated", &ec2types.InstanceState{Name: ec2types.InstanceStateNameTerminated}, model.StateTerminated},
		{"pending", &ec2types.InstanceState{Name: ec2types.InstanceStateNamePending}, model.StateCreating},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := instanceState(tt.in); got != tt.want {
				t.Errorf("instanceState() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestConvertRulesDefaultEgress(t *testing.T) {
	perms := []ec2types.IpPermission{
		{
			IpProtocol: strPtr("-1"),
			IpRanges:   []ec2types.IpRange{{CidrIp: strPtr("0.0.0.0/0")}},
		},
	}
	rules := convertRules("egress", perms)
	if len(rules) != 1 {
		t.Fatalf("expected 1 rule, got %d", len(rules))
	}
	if !rules[0].IsDefaultEgress() {
		t.Errorf("expected rule to be recognized as default egress: %+v", rules[0])
	}
}

func TestConvertRulesPeerGroupNotDefaultEgress(t *testing.T) {
	perms := []ec2types.IpPermission{
		{
			IpProtocol:       strPtr("-1"),
			UserIdGroupPairs: []ec2types.UserIdGroupPair{{GroupId: strPtr("sg-peer")}},
		},
	}
	rules := convertRules("egress", perms)
	if len(rules) != 1 {
		t.Fatalf("expected 1 rule, got %d", len(rules))
	}
	if rules[0].IsDefaultEgress() {
		t.Errorf("rule with a peer group must never be treated as default egress: %+v", rules[0])
	}
}

func TestCorrelateSecurityGroups(t *testing.T) {
	instances := []model.ResourceRef{
		{ID: "i-1", Detail: model.InstanceDetail{SecurityGroupIDs: []string{"sg-a", "sg-b"}}},
		{ID: "i-2", Detail: model.InstanceDetail{SecurityGroupIDs: []string{"sg-a"}}},
	}
	sgs := []model.ResourceRef{
		{ID: "sg-a", Detail: model.SecurityGroupDetail{}},
		{ID: "sg-b", Detail: model.SecurityGroupDetail{}},
		{ID: "sg-c", Detail: model.SecurityGroupDetail{}},
	}

	correlated := CorrelateSecurityGroups(sgs, instances)

	byID := map[string]model.SecurityGroupDetail{}
	for _, r := range correlated {
		byID[r.ID] = r.Detail.(model.SecurityGroupDetail)
	}

	if got := byID["sg-a"].AttachedInstances; len(got) != 2 {
		t.Errorf("sg-a expected 2 attached instances, got %v", got)
	}
	if got := byID["sg-c"].AttachedInstances; len(got) != 0 {
		t.Errorf("sg-c expected no attached instances, got %v", got)
	}
}

func TestIsCostAlarmName(t *testing.T) {
	tests := []struct {
		name string
		want bool
	}{
		{"monthly-cost-alarm", true},
		{"billing-threshold", true},
		{"cluster-node-cpu-high", false},
	}
	for _, tt := range tests {
		if got := isCostAlarmName(tt.name); got != tt.want {
			t.Errorf("isCostAlarmName(%q) = %v, want %v", tt.name, got, tt.want)
		}
	}
}

func TestClustersReferencedByPattern(t *testing.T) {
	if got := clustersReferencedByPattern(""); got != nil {
		t.Errorf("expected nil for empty pattern, got %v", got)
	}
	if got := clustersReferencedByPattern(`{"source":["aws.eks"],"detail":{"clusterName":["prod"]}}`); got == nil {
		t.Error("expected a match for a pattern mentioning cluster")
	}
	if got := clustersReferencedByPattern(`{"source":["aws.s3"]}`); got != nil {
		t.Errorf("expected no match for unrelated pattern, got %v", got)
	}
}

func TestIsServiceLinked(t *testing.T) {
	tests := []struct {
		roleName string
		path     string
		want     bool
	}{
		{"AWSServiceRoleForAmazonEKS", "/aws-service-role/eks.amazonaws.com/", true},
		{"my-custom-role", "/aws-service-role/custom/", true},
		{"my-custom-role", "/service-role/", true},
		{"my-custom-role", "/", false},
	}
	for _, tt := range tests {
		if got := IsServiceLinked(tt.roleName, tt.path); got != tt.want {
			t.Errorf("IsServiceLinked(%q, %q) = %v, want %v", tt.roleName, tt.path, got, tt.want)
		}
	}
}

// fakeAPIError implements smithy.APIError for classifyError tests.
type fakeAPIError struct {
	code string
}

func (f *fakeAPIError) Error() string       { return f.code }
func (f *fakeAPIError) ErrorCode() string   { return f.code }
func (f *fakeAPIError) ErrorMessage() string { return f.code }
func (f *fakeAPIError) ErrorFault() smithy.ErrorFault { return smithy.FaultUnknown }

func TestClassifyError(t *testing.T) {
	ref := model.ResourceRef{Kind: model.KindInstance, ID: "i-1"}

	tests := []struct {
		name string
		err  error
		want model.ErrorKind
	}{
		{"plain error defaults to transient", errors.New("boom"), model.ErrTransient},
		{"access denied", &fakeAPIError{code: "AccessDenied"}, model.ErrAuth},
		{"not found", &fakeAPIError{code: "ResourceNotFoundException"}, model.ErrNotFound},
		{"dependency violation", &fakeAPIError{code: "DependencyViolation"}, model.ErrDependencyViolation},
		{"validation", &fakeAPIError{code: "ValidationException"}, model.ErrValidation},
		{"throttling", &fakeAPIError{code: "ThrottlingException"}, model.ErrTransient},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := classifyError(ref, "TestOp", tt.err)
			if got.Kind != tt.want {
				t.Errorf("classifyError() kind = %v, want %v", got.Kind, tt.want)
			}
			if !errors.Is(got.Unwrap(), tt.err) && got.Unwrap() != tt.err {
				t.Errorf("expected Unwrap to return original error")
			}
		})
	}
}
