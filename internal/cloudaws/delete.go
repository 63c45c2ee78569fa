package cloudaws

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/amp"
	"github.com/aws/aws-sdk-go-v2/service/cloudwatch"
	"github.com/aws/aws-sdk-go-v2/service/cloudwatchlogs"
	"github.com/aws/aws-sdk-go-v2/service/ec2"
	ec2types "github.com/aws/aws-sdk-go-v2/service/ec2/types"
	"github.com/aws/aws-sdk-go-v2/service/eks"
	"github.com/aws/aws-sdk-go-v2/service/elasticbeanstalk"
	"github.com/aws/aws-sdk-go-v2/service/eventbridge"
	"github.com/aws/aws-sdk-go-v2/service/iam"
	"github.com/aws/aws-sdk-go-v2/service/lambda"
	"github.com/aws/aws-sdk-go-v2/service/rds"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	s3types "github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/aws/smithy-go"

	"github.com/bgdnvk/clanker/internal/model"
)

// Delete issues the provider-native delete call for ref, dispatched on
// ref.Kind. A NotFound/already-gone response from the provider is treated
// as idempotent success, matching spec.md §4.6's NoSuchEntity handling for
// Policies, generalized to every Kind.
func (c *Clients) Delete(ctx context.Context, ref model.ResourceRef) error {
	var err error
	switch ref.Kind {
	case model.KindNodeGroup:
		detail, _ := ref.Detail.(model.NodeGroupDetail)
		_, err = c.EKS.DeleteNodegroup(ctx, &eks.DeleteNodegroupInput{ClusterName: aws.String(detail.ClusterName), NodegroupName: aws.String(ref.ID)})
	case model.KindCluster:
		_, err = c.EKS.DeleteCluster(ctx, &eks.DeleteClusterInput{Name: aws.String(ref.ID)})
	case model.KindScraper:
		_, err = c.AMP.DeleteScraper(ctx, &amp.DeleteScraperInput{ScraperId: aws.String(ref.ID)})
	case model.KindWorkspace:
		_, err = c.AMP.DeleteWorkspace(ctx, &amp.DeleteWorkspaceInput{WorkspaceId: aws.String(ref.ID)})
	case model.KindLogGroup:
		_, err = c.CloudWatchLogs.DeleteLogGroup(ctx, &cloudwatchlogs.DeleteLogGroupInput{LogGroupName: aws.String(ref.ID)})
	case model.KindAlarm:
		_, err = c.CloudWatch.DeleteAlarms(ctx, &cloudwatch.DeleteAlarmsInput{AlarmNames: []string{ref.ID}})
	case model.KindEventRule:
		_, err = c.EventBridge.DeleteRule(ctx, &eventbridge.DeleteRuleInput{Name: aws.String(ref.ID), Force: true})
	case model.KindFunction:
		_, err = c.Lambda.DeleteFunction(ctx, &lambda.DeleteFunctionInput{FunctionName: aws.String(ref.ID)})
	case model.KindRole:
		_, err = c.IAM.DeleteRole(ctx, &iam.DeleteRoleInput{RoleName: aws.String(ref.ID)})
	case model.KindPolicy:
		detail, _ := ref.Detail.(model.PolicyDetail)
		_, err = c.IAM.DeletePolicy(ctx, &iam.DeletePolicyInput{PolicyArn: aws.String(detail.ARN)})
	case model.KindSecurityGroup:
		_, err = c.EC2.DeleteSecurityGroup(ctx, &ec2.DeleteSecurityGroupInput{GroupId: aws.String(ref.ID)})
	case model.KindInstance:
		_, err = c.EC2.TerminateInstances(ctx, &ec2.TerminateInstancesInput{InstanceIds: []string{ref.ID}})
	case model.KindAppEnvironment:
		_, err = c.Beanstalk.TerminateEnvironment(ctx, &elasticbeanstalk.TerminateEnvironmentInput{EnvironmentId: aws.String(ref.ID)})
	case model.KindAppVersion:
		detail, _ := ref.Detail.(model.AppEnvironmentDetail)
		_, err = c.Beanstalk.DeleteApplicationVersion(ctx, &elasticbeanstalk.DeleteApplicationVersionInput{
			ApplicationName: aws.String(detail.ApplicationName),
			VersionLabel:    aws.String(ref.Name),
		})
	case model.KindApplication:
		_, err = c.Beanstalk.DeleteApplication(ctx, &elasticbeanstalk.DeleteApplicationInput{ApplicationName: aws.String(ref.ID)})
	case model.KindBucket:
		err = c.deleteBucket(ctx, ref)
	case model.KindDBInstance:
		skip := true
		_, err = c.RDS.DeleteDBInstance(ctx, &rds.DeleteDBInstanceInput{DBInstanceIdentifier: aws.String(ref.ID), SkipFinalSnapshot: skip})
	default:
		return fmt.Errorf("cloudaws: Delete not implemented for kind %s", ref.Kind)
	}

	if isAlreadyGone(err) {
		return nil
	}
	return classifyError(ref, "Delete", err)
}

// deleteBucket empties ref's object set page by page before issuing
// DeleteBucket, used only when the caller (cmd/teardown.go) has already
// confirmed the --empty-buckets + --yes gate for a non-empty bucket
// (SPEC_FULL.md §3's "buckets are non-empty-delete-unsafe by default").
func (c *Clients) deleteBucket(ctx context.Context, ref model.ResourceRef) error {
	var token *string
	for {
		page, err := c.S3.ListObjectsV2(ctx, &s3.ListObjectsV2Input{Bucket: aws.String(ref.ID), ContinuationToken: token})
		if err != nil {
			return err
		}
		if len(page.Contents) > 0 {
			ids := make([]s3types.ObjectIdentifier, 0, len(page.Contents))
			for _, obj := range page.Contents {
				ids = append(ids, s3types.ObjectIdentifier{Key: obj.Key})
			}
			if _, err := c.S3.DeleteObjects(ctx, &s3.DeleteObjectsInput{
				Bucket: aws.String(ref.ID),
				Delete: &s3types.Delete{Objects: ids},
			}); err != nil {
				return err
			}
		}
		if page.IsTruncated == nil || !*page.IsTruncated {
			break
		}
		token = page.NextContinuationToken
	}

	_, err := c.S3.DeleteBucket(ctx, &s3.DeleteBucketInput{Bucket: aws.String(ref.ID)})
	return err
}

// Detach performs the pre-delete detachment step for Kinds that require
// one: Functions (event-source mappings), Roles (managed/inline
// policies + instance profiles), and customer-managed Policies (non-default
// versions + principal detachment), per spec.md §4.6.
func (c *Clients) Detach(ctx context.Context, ref model.ResourceRef) error {
	switch ref.Kind {
	case model.KindFunction:
		detail, _ := ref.Detail.(model.FunctionDetail)
		for _, uuid := range detail.EventSourceMappingIDs {
			if _, err := c.Lambda.DeleteEventSourceMapping(ctx, &lambda.DeleteEventSourceMappingInput{UUID: aws.String(uuid)}); err != nil && !isAlreadyGone(err) {
				return classifyError(ref, "DeleteEventSourceMapping", err)
			}
		}
		return nil

	case model.KindRole:
		detail, _ := ref.Detail.(model.RoleDetail)
		for _, arn := range detail.AttachedPolicyARNs {
			if _, err := c.IAM.DetachRolePolicy(ctx, &iam.DetachRolePolicyInput{RoleName: aws.String(ref.ID), PolicyArn: aws.String(arn)}); err != nil && !isAlreadyGone(err) {
				return classifyError(ref, "DetachRolePolicy", err)
			}
		}
		for _, name := range detail.InlinePolicyNames {
			if _, err := c.IAM.DeleteRolePolicy(ctx, &iam.DeleteRolePolicyInput{RoleName: aws.String(ref.ID), PolicyName: aws.String(name)}); err != nil && !isAlreadyGone(err) {
				return classifyError(ref, "DeleteRolePolicy", err)
			}
		}
		for _, profile := range detail.InstanceProfileNames {
			if _, err := c.IAM.RemoveRoleFromInstanceProfile(ctx, &iam.RemoveRoleFromInstanceProfileInput{RoleName: aws.String(ref.ID), InstanceProfileName: aws.String(profile)}); err != nil && !isAlreadyGone(err) {
				return classifyError(ref, "RemoveRoleFromInstanceProfile", err)
			}
		}
		return nil

	case model.KindPolicy:
		detail, _ := ref.Detail.(model.PolicyDetail)
		for _, v := range detail.NonDefaultVersions {
			if _, err := c.IAM.DeletePolicyVersion(ctx, &iam.DeletePolicyVersionInput{PolicyArn: aws.String(detail.ARN), VersionId: aws.String(v)}); err != nil && !isAlreadyGone(err) {
				return classifyError(ref, "DeletePolicyVersion", err)
			}
		}
		return detachPolicyFromAllEntities(ctx, c.IAM, detail.ARN)

	default:
		return nil
	}
}

func detachPolicyFromAllEntities(ctx context.Context, client *iam.Client, policyARN string) error {
	var marker *string
	for {
		page, err := client.ListEntitiesForPolicy(ctx, &iam.ListEntitiesForPolicyInput{PolicyArn: aws.String(policyARN), Marker: marker})
		if err != nil {
			if isAlreadyGone(err) {
				return nil
			}
			return err
		}
		for _, u := range page.PolicyUsers {
			client.DetachUserPolicy(ctx, &iam.DetachUserPolicyInput{UserName: u.UserName, PolicyArn: aws.String(policyARN)})
		}
		for _, g := range page.PolicyGroups {
			client.DetachGroupPolicy(ctx, &iam.DetachGroupPolicyInput{GroupName: g.GroupName, PolicyArn: aws.String(policyARN)})
		}
		for _, r := range page.PolicyRoles {
			client.DetachRolePolicy(ctx, &iam.DetachRolePolicyInput{RoleName: r.RoleName, PolicyArn: aws.String(policyARN)})
		}
		if page.IsTruncated && page.Marker != nil {
			marker = page.Marker
			continue
		}
		break
	}
	return nil
}

// RemoveTargets clears an EventRule's targets ahead of DeleteRule, per
// spec.md §4.5 step 4.
func (c *Clients) RemoveTargets(ctx context.Context, ref model.ResourceRef) error {
	detail, ok := ref.Detail.(model.EventRuleDetail)
	if !ok || len(detail.TargetIDs) == 0 {
		return nil
	}
	_, err := c.EventBridge.RemoveTargets(ctx, &eventbridge.RemoveTargetsInput{Rule: aws.String(ref.ID), Ids: detail.TargetIDs})
	if isAlreadyGone(err) {
		return nil
	}
	return classifyError(ref, "RemoveTargets", err)
}

// StripRules implements spec.md §4.6's StripRules routine for a
// SecurityGroup: revoke every ingress rule, and every egress rule that is
// not the Protected default, tolerating already-gone errors, then sleeping
// 10s for propagation. It returns the number of revokes that failed with an
// error other than InvalidPermission.NotFound; the skipped default egress
// rule is not counted.
func (c *Clients) StripRules(ctx context.Context, ref model.ResourceRef) (int, error) {
	detail, ok := ref.Detail.(model.SecurityGroupDetail)
	if !ok {
		return 0, nil
	}

	survived := 0
	for _, rule := range detail.Rules {
		if rule.Direction == "egress" && rule.IsDefaultEgress() {
			continue
		}

		ipPerm := ipPermissionFromRule(rule)
		var err error
		if rule.Direction == "ingress" {
			_, err = c.EC2.RevokeSecurityGroupIngress(ctx, &ec2.RevokeSecurityGroupIngressInput{
				GroupId:       aws.String(ref.ID),
				IpPermissions: []ec2types.IpPermission{ipPerm},
			})
		} else {
			_, err = c.EC2.RevokeSecurityGroupEgress(ctx, &ec2.RevokeSecurityGroupEgressInput{
				GroupId:       aws.String(ref.ID),
				IpPermissions: []ec2types.IpPermission{ipPerm},
			})
		}

		if err != nil {
			if isInvalidGroupNotFound(err) {
				return 0, nil
			}
			if !isInvalidPermissionNotFound(err) {
				survived++
			}
		}
	}

	time.Sleep(10 * time.Second)
	return survived, nil
}

// DescribeState reports ref's current state for AwaitState polling,
// treating a provider NotFound response as Absent (model.StateTerminated),
// which the caller interprets as the awaited terminal condition.
func (c *Clients) DescribeState(ctx context.Context, ref model.ResourceRef) (model.State, error) {
	var err error
	switch ref.Kind {
	case model.KindNodeGroup:
		detail, _ := ref.Detail.(model.NodeGroupDetail)
		out, e := c.EKS.DescribeNodegroup(ctx, &eks.DescribeNodegroupInput{ClusterName: aws.String(detail.ClusterName), NodegroupName: aws.String(ref.ID)})
		if e != nil {
			err = e
			break
		}
		return nodeGroupState(string(out.Nodegroup.Status)), nil
	case model.KindCluster:
		out, e := c.EKS.DescribeCluster(ctx, &eks.DescribeClusterInput{Name: aws.String(ref.ID)})
		if e != nil {
			err = e
			break
		}
		return clusterState(string(out.Cluster.Status)), nil
	case model.KindInstance:
		out, e := c.EC2.DescribeInstances(ctx, &ec2.DescribeInstancesInput{InstanceIds: []string{ref.ID}})
		if e != nil {
			err = e
			break
		}
		for _, r := range out.Reservations {
			for _, i := range r.Instances {
				return instanceState(i.State), nil
			}
		}
		return model.StateTerminated, nil
	case model.KindAppEnvironment:
		out, e := c.Beanstalk.DescribeEnvironments(ctx, &elasticbeanstalk.DescribeEnvironmentsInput{EnvironmentIds: []string{ref.ID}})
		if e != nil {
			err = e
			break
		}
		if len(out.Environments) == 0 {
			return model.StateTerminated, nil
		}
		return beanstalkEnvState(string(out.Environments[0].Status)), nil
	default:
		return model.StateUnknown, nil
	}

	if isAlreadyGone(err) {
		return model.StateTerminated, nil
	}
	return model.StateUnknown, classifyError(ref, "DescribeState", err)
}

func isAlreadyGone(err error) bool {
	if err == nil {
		return false
	}
	var apiErr smithy.APIError
	if !errors.As(err, &apiErr) {
		return false
	}
	switch apiErr.ErrorCode() {
	case "ResourceNotFoundException", "NoSuchEntity", "NotFoundException",
		"InvalidGroup.NotFound", "InvalidInstanceID.NotFound":
		return true
	default:
		return false
	}
}

func isInvalidPermissionNotFound(err error) bool {
	var apiErr smithy.APIError
	return errors.As(err, &apiErr) && apiErr.ErrorCode() == "InvalidPermission.NotFound"
}

func isInvalidGroupNotFound(err error) bool {
	var apiErr smithy.APIError
	return errors.As(err, &apiErr) && apiErr.ErrorCode() == "InvalidGroupId.NotFound"
}
