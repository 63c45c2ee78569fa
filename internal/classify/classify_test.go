package classify

import (
	"testing"

	"github.com/bgdnvk/clanker/internal/model"
)

func TestClassifyProtected(t *testing.T) {
	target := Target{Kind: model.KindCluster, Name: "prod-app-alpha"}

	tests := []struct {
		name string
		ref  model.ResourceRef
	}{
		{"protected pattern karpenter", model.ResourceRef{Kind: model.KindRole, Name: "karpenter-controller"}},
		{"protected pattern argocd case-insensitive", model.ResourceRef{Kind: model.KindRole, Name: "ArgoCD-server-role"}},
		{"eks-cluster-sg", model.ResourceRef{Kind: model.KindSecurityGroup, Name: "eks-cluster-sg-12345"}},
		{"service-linked role", model.ResourceRef{Kind: model.KindRole, Name: "AWSServiceRoleForAmazonEKS", Detail: model.RoleDetail{Path: "/aws-service-role/eks.amazonaws.com/"}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Classify(tt.ref, target)
			if got.Label != model.LabelProtected {
				t.Errorf("expected Protected, got %v (reason %q)", got.Label, got.Reason)
			}
		})
	}
}

func TestClassifySharedSuspected(t *testing.T) {
	target := Target{Kind: model.KindCluster, Name: "prod-app-alpha"}

	tests := []struct {
		name string
		ref  model.ResourceRef
	}{
		{"shared prefix", model.ResourceRef{Kind: model.KindBucket, Name: "shared-state-bucket"}},
		{"monitoring prefix", model.ResourceRef{Kind: model.KindAlarm, Name: "monitoring-cpu-high"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Classify(tt.ref, target)
			if got.Label != model.LabelSharedSuspected {
				t.Errorf("expected SharedSuspected, got %v (reason %q)", got.Label, got.Reason)
			}
		})
	}
}

func TestClassifySharedSuspectedSecurityGroupThreshold(t *testing.T) {
	target := Target{Kind: model.KindCluster, Name: "prod-app-alpha"}
	ref := model.ResourceRef{
		Kind: model.KindSecurityGroup,
		Name: "prod-app-alpha-extra-sg",
		Detail: model.SecurityGroupDetail{
			AttachedInstances: []string{"i-1", "i-2", "i-3", "i-4", "i-5", "i-6"},
		},
	}
	got := Classify(ref, target)
	if got.Label != model.LabelSharedSuspected {
		t.Errorf("expected SharedSuspected for SG attached to >5 instances, got %v", got.Label)
	}
}

func TestClassifyOwnedByTarget(t *testing.T) {
	target := Target{Kind: model.KindCluster, Name: "prod-app-alpha"}

	tests := []struct {
		name string
		ref  model.ResourceRef
	}{
		{"full name match", model.ResourceRef{Kind: model.KindFunction, Name: "lambda-prod-app-alpha-hook"}},
		{"delimited suffix match", model.ResourceRef{Kind: model.KindSecurityGroup, Name: "eks-node-alpha-sg"}},
		{"tag Cluster equals", model.ResourceRef{Kind: model.KindDBInstance, Name: "db1", Tags: model.TagMap{"Cluster": "prod-app-alpha"}}},
		{"kubernetes.io/cluster tag", model.ResourceRef{Kind: model.KindBucket, Name: "bucket1", Tags: model.TagMap{"kubernetes.io/cluster/prod-app-alpha": "owned"}}},
		{"description match", model.ResourceRef{Kind: model.KindAlarm, Name: "alarm1", Description: "monitors prod-app-alpha node health"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Classify(tt.ref, target)
			if got.Label != model.LabelOwnedByTarget {
				t.Errorf("expected OwnedByTarget, got %v (reason %q)", got.Label, got.Reason)
			}
		})
	}
}

func TestClassifyUnrelated(t *testing.T) {
	target := Target{Kind: model.KindCluster, Name: "prod-app-alpha"}
	ref := model.ResourceRef{Kind: model.KindFunction, Name: "totally-unrelated-fn"}

	got := Classify(ref, target)
	if got.Label != model.LabelUnrelated {
		t.Errorf("expected Unrelated, got %v", got.Label)
	}
}

func TestClassifyShortSuffixNeverStrongMatches(t *testing.T) {
	// suffix "ab" has length < 4 and must not trigger a strong match alone.
	target := Target{Kind: model.KindCluster, Name: "team-ab"}
	ref := model.ResourceRef{Kind: model.KindFunction, Name: "unrelated-ab-worker"}

	got := Classify(ref, target)
	if got.Label == model.LabelOwnedByTarget {
		t.Errorf("short suffix must not strong-match on its own, got OwnedByTarget (reason %q)", got.Reason)
	}
}

func TestDominantNeverDowngradesProtected(t *testing.T) {
	if got := model.Dominant(model.LabelProtected, model.LabelOwnedByTarget); got != model.LabelProtected {
		t.Errorf("Dominant() = %v, want Protected", got)
	}
	if got := model.Dominant(model.LabelUnrelated, model.LabelSharedSuspected); got != model.LabelSharedSuspected {
		t.Errorf("Dominant() = %v, want SharedSuspected", got)
	}
}
