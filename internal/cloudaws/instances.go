package cloudaws

import (
	"context"
	"log"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/ec2"
	ec2types "github.com/aws/aws-sdk-go-v2/service/ec2/types"

	"github.com/bgdnvk/clanker/internal/model"
)

func normalizeTags(src []ec2types.Tag) model.TagMap {
	tags := make([]model.Tag, 0, len(src))
	for _, t := range src {
		tags = append(tags, model.Tag{Key: aws.ToString(t.Key), Value: aws.ToString(t.Value)})
	}
	return model.NewTagMap(tags)
}

func nameFromTags(tags model.TagMap, fallback string) string {
	if n, ok := tags["Name"]; ok && n != "" {
		return n
	}
	return fallback
}

// Instances discovers every EC2 instance in (account, region), following
// the paginated DescribeInstances idiom of internal/aws/client.go's
// getEC2Info. Terminated/terminating instances are kept, flagged via
// model.State, per spec.md §4.3.
func (c *Clients) Instances(ctx context.Context, accountName, region string) ([]model.ResourceRef, error) {
	var out []model.ResourceRef

	paginator := ec2.NewDescribeInstancesPaginator(c.EC2, &ec2.DescribeInstancesInput{})
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			log.Printf("[cloudaws] describe-instances failed for %s/%s: %v", accountName, region, err)
			return out, classifyError(model.ResourceRef{Kind: model.KindInstance, AccountName: accountName, Region: region}, "DescribeInstances", err)
		}

		for _, reservation := range page.Reservations {
			for _, inst := range reservation.Instances {
				tags := normalizeTags(inst.Tags)
				sgIDs := make([]string, 0, len(inst.SecurityGroups))
				for _, sg := range inst.SecurityGroups {
					sgIDs = append(sgIDs, aws.ToString(sg.GroupId))
				}

				ref := model.ResourceRef{
					Kind:        model.KindInstance,
					ID:          aws.ToString(inst.InstanceId),
					Name:        nameFromTags(tags, aws.ToString(inst.InstanceId)),
					AccountName: accountName,
					Region:      region,
					Tags:        tags,
					CreatedAt:   aws.ToTime(inst.LaunchTime),
					State:       instanceState(inst.State),
					Detail: model.InstanceDetail{
						InstanceType:     string(inst.InstanceType),
						VPCID:            aws.ToString(inst.VpcId),
						SecurityGroupIDs: sgIDs,
						PrivateIP:        aws.ToString(inst.PrivateIpAddress),
						PublicIP:         aws.ToString(inst.PublicIpAddress),
						LaunchTime:       aws.ToTime(inst.LaunchTime),
					},
				}
				out = append(out, ref)
			}
		}
	}

	return out, nil
}

func instanceState(s *ec2types.InstanceState) model.State {
	if s == nil {
		return model.StateUnknown
	}
	switch s.Name {
	case ec2types.InstanceStateNameRunning:
		return model.StateRunning
	case ec2types.InstanceStateNameStopped, ec2types.InstanceStateNameStopping:
		return model.StateStopped
	case ec2types.InstanceStateNameTerminated, ec2types.InstanceStateNameShuttingDown:
		return model.StateTerminated
	case ec2types.InstanceStateNamePending:
		return model.StateCreating
	default:
		return model.StateUnknown
	}
}

// SecurityGroups discovers every SG in (account, region) without yet
// correlating attached instances — the "initial pass" of spec.md §4.3.
func (c *Clients) SecurityGroups(ctx context.Context, accountName, region string) ([]model.ResourceRef, error) {
	var out []model.ResourceRef

	paginator := ec2.NewDescribeSecurityGroupsPaginator(c.EC2, &ec2.DescribeSecurityGroupsInput{})
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			log.Printf("[cloudaws] describe-security-groups failed for %s/%s: %v", accountName, region, err)
			return out, classifyError(model.ResourceRef{Kind: model.KindSecurityGroup, AccountName: accountName, Region: region}, "DescribeSecurityGroups", err)
		}

		for _, sg := range page.SecurityGroups {
			tags := normalizeTags(sg.Tags)
			rules := make([]model.SecurityGroupRule, 0, len(sg.IpPermissions)+len(sg.IpPermissionsEgress))
			rules = append(rules, convertRules("ingress", sg.IpPermissions)...)
			rules = append(rules, convertRules("egress", sg.IpPermissionsEgress)...)

			out = append(out, model.ResourceRef{
				Kind:        model.KindSecurityGroup,
				ID:          aws.ToString(sg.GroupId),
				Name:        aws.ToString(sg.GroupName),
				AccountName: accountName,
				Region:      region,
				Tags:        tags,
				State:       model.StateActive,
				Detail: model.SecurityGroupDetail{
					VPCID: aws.ToString(sg.VpcId),
					Rules: rules,
				},
			})
		}
	}

	return out, nil
}

func convertRules(direction string, perms []ec2types.IpPermission) []model.SecurityGroupRule {
	var rules []model.SecurityGroupRule
	for _, p := range perms {
		proto := aws.ToString(p.IpProtocol)
		from, to := int32(0), int32(0)
		if p.FromPort != nil {
			from = *p.FromPort
		}
		if p.ToPort != nil {
			to = *p.ToPort
		}
		if len(p.IpRanges) == 0 && len(p.UserIdGroupPairs) == 0 {
			rules = append(rules, model.SecurityGroupRule{Direction: direction, Protocol: proto, FromPort: from, ToPort: to})
			continue
		}
		for _, r := range p.IpRanges {
			rules = append(rules, model.SecurityGroupRule{Direction: direction, Protocol: proto, CIDR: aws.ToString(r.CidrIp), FromPort: from, ToPort: to})
		}
		for _, g := range p.UserIdGroupPairs {
			rules = append(rules, model.SecurityGroupRule{Direction: direction, Protocol: proto, PeerGroup: aws.ToString(g.GroupId), FromPort: from, ToPort: to})
		}
	}
	return rules
}

// CorrelateSecurityGroups is the "second pass" of spec.md §4.3: it marks
// each SecurityGroup's AttachedInstances set from an already-discovered
// Instance list, possibly leaving it empty.
func CorrelateSecurityGroups(sgs []model.ResourceRef, instances []model.ResourceRef) []model.ResourceRef {
	attachedBy := map[string][]string{}
	for _, inst := range instances {
		detail, ok := inst.Detail.(model.InstanceDetail)
		if !ok {
			continue
		}
		for _, sgID := range detail.SecurityGroupIDs {
			attachedBy[sgID] = append(attachedBy[sgID], inst.ID)
		}
	}

	out := make([]model.ResourceRef, len(sgs))
	for i, sg := range sgs {
		detail, ok := sg.Detail.(model.SecurityGroupDetail)
		if ok {
			detail.AttachedInstances = attachedBy[sg.ID]
			sg.Detail = detail
		}
		out[i] = sg
	}
	return out
}
