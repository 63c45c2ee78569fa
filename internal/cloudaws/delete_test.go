package cloudaws

import (
	"errors"
	"testing"

	"github.com/bgdnvk/clanker/internal/model"
)

func TestIsAlreadyGone(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"nil error", nil, false},
		{"plain error", errors.New("boom"), false},
		{"resource not found", &fakeAPIError{code: "ResourceNotFoundException"}, true},
		{"no such entity", &fakeAPIError{code: "NoSuchEntity"}, true},
		{"other api error", &fakeAPIError{code: "ValidationException"}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := isAlreadyGone(tt.err); got != tt.want {
				t.Errorf("isAlreadyGone() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestIsInvalidPermissionNotFound(t *testing.T) {
	if !isInvalidPermissionNotFound(&fakeAPIError{code: "InvalidPermission.NotFound"}) {
		t.Error("expected true for InvalidPermission.NotFound")
	}
	if isInvalidPermissionNotFound(&fakeAPIError{code: "Other"}) {
		t.Error("expected false for unrelated code")
	}
}

func TestIsInvalidGroupNotFound(t *testing.T) {
	if !isInvalidGroupNotFound(&fakeAPIError{code: "InvalidGroupId.NotFound"}) {
		t.Error("expected true for InvalidGroupId.NotFound")
	}
}

func TestIPPermissionFromRuleCIDR(t *testing.T) {
	rule := model.SecurityGroupRule{Protocol: "tcp", CIDR: "10.0.0.0/16", FromPort: 443, ToPort: 443}
	perm := ipPermissionFromRule(rule)
	if len(perm.IpRanges) != 1 || *perm.IpRanges[0].CidrIp != "10.0.0.0/16" {
		t.Errorf("expected CIDR range preserved, got %+v", perm.IpRanges)
	}
	if *perm.FromPort != 443 || *perm.ToPort != 443 {
		t.Errorf("expected port range preserved, got from=%d to=%d", *perm.FromPort, *perm.ToPort)
	}
}

func TestIPPermissionFromRulePeerGroup(t *testing.T) {
	rule := model.SecurityGroupRule{Protocol: "-1", PeerGroup: "sg-abc"}
	perm := ipPermissionFromRule(rule)
	if len(perm.UserIdGroupPairs) != 1 || *perm.UserIdGroupPairs[0].GroupId != "sg-abc" {
		t.Errorf("expected peer group preserved, got %+v", perm.UserIdGroupPairs)
	}
}
