// Package classify implements the Dependency Classifier (C4): given a
// candidate ResourceRef and a teardown target (Cluster, Instance, or
// Application), it produces a Label per spec.md §4.4's Protected >
// SharedSuspected > OwnedByTarget > Unrelated tie-break rule. A ref labeled
// Protected can never be relabeled lower by any later check.
package classify

import (
	"strconv"
	"strings"

	"github.com/bgdnvk/clanker/internal/cloudaws"
	"github.com/bgdnvk/clanker/internal/model"
)

// protectedPatterns is the enumerated protected-name list of spec.md §4.4.1.
var protectedPatterns = []string{
	"eks-service-role", "nodeinstancerole", "cluster-autoscaler", "karpenter",
	"alb-ingress", "external-dns", "ebs-csi-controller", "loadbalancer-controller",
	"eks-admin", "bastion", "terraform", "jenkins", "argocd", "adot", "monitoring-role",
}

// sharedPrefixes is spec.md §4.4.2's SharedSuspected name-substring list.
var sharedPrefixes = []string{
	"common-", "shared-", "global-", "admin-", "all-", "multi-",
	"monitoring-", "backup-", "security-",
}

// Target describes the teardown root a ref is being classified against.
// Its suffix (the last '-'-delimited component of Name) is computed by
// suffix() on each call.
type Target struct {
	Kind model.Kind
	Name string
}

func (t Target) suffix() string {
	parts := strings.Split(t.Name, "-")
	return parts[len(parts)-1]
}

func containsFold(haystack, needle string) bool {
	if needle == "" {
		return false
	}
	return strings.Contains(strings.ToLower(haystack), strings.ToLower(needle))
}

// Classify returns ref's Classification against target, per spec.md §4.4.
func Classify(ref model.ResourceRef, target Target) model.Classification {
	if label, reason, ok := protectedCheck(ref); ok {
		return model.Classification{Ref: ref, Label: label, Reason: reason}
	}

	if label, reason, ok := sharedSuspectedCheck(ref, target); ok {
		return model.Classification{Ref: ref, Label: label, Reason: reason}
	}

	// DBInstance is stateful-data-store-by-extension (SPEC_FULL.md §3):
	// only a strong cluster-tag match can make one OwnedByTarget —
	// name-substring alone is insufficient, mitigating the source's
	// over-matching-by-name habit for databases.
	if ref.Kind == model.KindDBInstance {
		if reason, ok := clusterTagMatch(ref, target); ok {
			return model.Classification{Ref: ref, Label: model.LabelOwnedByTarget, Reason: reason}
		}
		return model.Classification{Ref: ref, Label: model.LabelSharedSuspected, Reason: "stateful data store without a strong cluster-tag match"}
	}

	if reason, ok := ownedByTargetCheck(ref, target); ok {
		return model.Classification{Ref: ref, Label: model.LabelOwnedByTarget, Reason: reason}
	}

	return model.Classification{Ref: ref, Label: model.LabelUnrelated, Reason: "no match against target"}
}

// clusterTagMatch checks only the tag-equality rules of ownedByTargetCheck,
// never the name-substring ones, per DBInstance's stricter match above.
func clusterTagMatch(ref model.ResourceRef, target Target) (string, bool) {
	for _, key := range []string{"Cluster", "ClusterName", "eks-cluster"} {
		if v, ok := ref.Tags[key]; ok && v == target.Name {
			return "tag " + key + " equals target name", true
		}
	}
	if ref.Tags != nil {
		if _, ok := ref.Tags["kubernetes.io/cluster/"+target.Name]; ok {
			return "tag key kubernetes.io/cluster/" + target.Name + " present", true
		}
	}
	return "", false
}

func protectedCheck(ref model.ResourceRef) (model.Label, string, bool) {
	if ref.Kind == model.KindRole {
		if detail, ok := ref.Detail.(model.RoleDetail); ok {
			if cloudaws.IsServiceLinked(ref.Name, detail.Path) {
				return model.LabelProtected, "provider-managed service-linked role", true
			}
		}
	}

	lowerName := strings.ToLower(ref.Name)
	for _, p := range protectedPatterns {
		if strings.Contains(lowerName, p) {
			return model.LabelProtected, "matches protected-pattern " + p, true
		}
	}

	if ref.Kind == model.KindSecurityGroup {
		if lowerName == "eks-cluster-sg" || strings.Contains(lowerName, "eks-cluster-sg") {
			return model.LabelProtected, "provider built-in cluster-private security group", true
		}
	}

	return "", "", false
}

// ProtectedDefaultEgress reports whether rule is the Protected default
// egress rule within an SG's set, used by the executor's StripRules step
// rather than by Classify directly (the rule, not the SG itself, is what's
// Protected here).
func ProtectedDefaultEgress(rule model.SecurityGroupRule) bool {
	return rule.IsDefaultEgress()
}

func sharedSuspectedCheck(ref model.ResourceRef, target Target) (model.Label, string, bool) {
	lowerName := strings.ToLower(ref.Name)

	for _, p := range sharedPrefixes {
		if strings.Contains(lowerName, p) {
			switch ref.Kind {
			case model.KindFunction, model.KindRole, model.KindPolicy:
				if (strings.Contains(lowerName, "all") || strings.Contains(lowerName, "multi")) &&
					matchesTarget(ref, target) {
					return model.LabelSharedSuspected, "shared-indicative name also matches target", true
				}
				continue
			default:
				return model.LabelSharedSuspected, "name contains shared pattern " + p, true
			}
		}
	}

	if ref.Kind == model.KindSecurityGroup {
		if detail, ok := ref.Detail.(model.SecurityGroupDetail); ok && len(detail.AttachedInstances) > sgSharedThreshold {
			return model.LabelSharedSuspected, "referenced by more than " + strconv.Itoa(sgSharedThreshold) + " instances", true
		}
	}

	if ref.Kind == model.KindEventRule {
		if detail, ok := ref.Detail.(model.EventRuleDetail); ok && len(detail.ReferencedClusters) > 1 {
			return model.LabelSharedSuspected, "event pattern references more than one cluster", true
		}
	}

	return "", "", false
}

// sgSharedThreshold is the K=5 threshold of spec.md §4.4.2. It is compared
// against the SG's AttachedInstances count; network interfaces that belong to
// no instance are not counted.
const sgSharedThreshold = 5

func ownedByTargetCheck(ref model.ResourceRef, target Target) (string, bool) {
	N := target.Name
	S := target.suffix()

	if containsFold(ref.Name, N) {
		return "name contains full target name", true
	}

	// spec.md §4.4's alarm-specific match path: ClusterName/NodegroupName
	// dimension equal to or containing the target name.
	if ref.Kind == model.KindAlarm {
		if detail, ok := ref.Detail.(model.AlarmDetail); ok {
			for _, key := range []string{"ClusterName", "NodegroupName"} {
				if v, ok := detail.Dimensions[key]; ok && (v == N || containsFold(v, N)) {
					return "dimension " + key + " matches target name", true
				}
			}
		}
	}

	if len(S) >= 4 && (strings.Contains(ref.Name, "-"+S) && (strings.HasSuffix(ref.Name, "-"+S) || strings.Contains(ref.Name, "-"+S+"-"))) {
		return "name contains delimited target suffix", true
	}

	for _, key := range []string{"Cluster", "ClusterName", "eks-cluster"} {
		if v, ok := ref.Tags[key]; ok && v == N {
			return "tag " + key + " equals target name", true
		}
	}

	if ref.Tags != nil {
		if _, ok := ref.Tags["kubernetes.io/cluster/"+N]; ok {
			return "tag key kubernetes.io/cluster/" + N + " present", true
		}
	}

	if containsFold(ref.Description, N) {
		return "description contains target name", true
	}

	return "", false
}

func matchesTarget(ref model.ResourceRef, target Target) bool {
	_, ok := ownedByTargetCheck(ref, target)
	return ok
}
