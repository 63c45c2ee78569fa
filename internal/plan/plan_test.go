package plan

import (
	"testing"

	"github.com/bgdnvk/clanker/internal/model"
)

func ref(kind model.Kind, id string) model.ResourceRef {
	return model.ResourceRef{Kind: kind, ID: id, Name: id}
}

func TestForClusterOrdersNodeGroupsBeforeClusterDelete(t *testing.T) {
	target := ref(model.KindCluster, "prod-cluster")
	inv := ClassifiedInventory{
		NodeGroups: []model.ResourceRef{ref(model.KindNodeGroup, "ng-1")},
	}

	p, err := ForCluster(target, inv)
	if err != nil {
		t.Fatalf("ForCluster: %v", err)
	}

	var ngDeleteIdx, clusterDeleteIdx int = -1, -1
	for i, s := range p.Steps {
		if s.Op == model.OpDelete && s.Subject.ID == "ng-1" {
			ngDeleteIdx = i
		}
		if s.Op == model.OpDelete && s.Subject.ID == "prod-cluster" {
			clusterDeleteIdx = i
		}
	}
	if ngDeleteIdx == -1 || clusterDeleteIdx == -1 {
		t.Fatalf("expected both deletes present: ng=%d cluster=%d", ngDeleteIdx, clusterDeleteIdx)
	}
	if ngDeleteIdx >= clusterDeleteIdx {
		t.Errorf("expected NodeGroup delete (%d) before Cluster delete (%d)", ngDeleteIdx, clusterDeleteIdx)
	}
}

func TestForClusterAlarmOrdering(t *testing.T) {
	target := ref(model.KindCluster, "prod-cluster")
	inv := ClassifiedInventory{
		CompositeAlarms: []model.ResourceRef{ref(model.KindAlarm, "composite-1")},
		BasicAlarms:     []model.ResourceRef{ref(model.KindAlarm, "basic-1")},
		CostAlarms:      []model.ResourceRef{ref(model.KindAlarm, "cost-1")},
	}

	p, err := ForCluster(target, inv)
	if err != nil {
		t.Fatalf("ForCluster: %v", err)
	}

	idx := map[string]int{}
	for i, s := range p.Steps {
		if s.Op == model.OpDelete {
			idx[s.Subject.ID] = i
		}
	}
	if !(idx["composite-1"] < idx["basic-1"] && idx["basic-1"] < idx["cost-1"]) {
		t.Errorf("expected composite < basic < cost ordering, got %v", idx)
	}
}

func TestForClusterRejectsWrongKind(t *testing.T) {
	if _, err := ForCluster(ref(model.KindInstance, "i-1"), ClassifiedInventory{}); err == nil {
		t.Error("expected error for non-Cluster target")
	}
}

func TestForInstancePlanShape(t *testing.T) {
	target := ref(model.KindInstance, "i-1")
	sgs := []model.ResourceRef{ref(model.KindSecurityGroup, "sg-1")}

	p, err := ForInstance(target, sgs)
	if err != nil {
		t.Fatalf("ForInstance: %v", err)
	}
	if p.Steps[0].Op != model.OpDelete || p.Steps[1].Op != model.OpAwaitState {
		t.Errorf("expected Terminate then AwaitState first, got %+v", p.Steps[:2])
	}
	foundStrip, foundDeleteSG := false, false
	for _, s := range p.Steps {
		if s.Op == model.OpStripRules && s.Subject.ID == "sg-1" {
			foundStrip = true
		}
		if s.Op == model.OpDelete && s.Subject.ID == "sg-1" {
			foundDeleteSG = true
		}
	}
	if !foundStrip || !foundDeleteSG {
		t.Error("expected SG strip+delete pass in instance plan")
	}
}

func TestForApplicationPlanShape(t *testing.T) {
	target := ref(model.KindApplication, "app-1")
	envs := []model.ResourceRef{ref(model.KindAppEnvironment, "env-1")}
	versions := []model.ResourceRef{ref(model.KindAppVersion, "v1")}

	p, err := ForApplication(target, envs, versions)
	if err != nil {
		t.Fatalf("ForApplication: %v", err)
	}
	last := p.Steps[len(p.Steps)-1]
	if last.Op != model.OpDelete || last.Subject.ID != "app-1" {
		t.Errorf("expected application delete to be the last step, got %+v", last)
	}
}

func TestValidateRejectsForwardReferencingPrecondition(t *testing.T) {
	p := model.TeardownPlan{
		Target: ref(model.KindCluster, "c1"),
		Steps: []model.Step{
			{Op: model.OpDelete, Subject: ref(model.KindNodeGroup, "ng-1"), Precondition: "NodeGroup//ng-1-does-not-exist-yet"},
		},
	}
	if err := validate(p); err == nil {
		t.Error("expected validate to reject an unsatisfiable precondition")
	}
}

func TestValidateRejectsSelfPrecondition(t *testing.T) {
	subject := ref(model.KindNodeGroup, "ng-1")
	p := model.TeardownPlan{
		Target: ref(model.KindCluster, "c1"),
		Steps: []model.Step{
			{Op: model.OpDelete, Subject: subject, Precondition: subject.Key()},
		},
	}
	if err := validate(p); err == nil {
		t.Error("expected validate to reject a self-referencing precondition")
	}
}
