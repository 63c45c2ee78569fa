package cloudaws

import (
	"context"
	"log"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/iam"
	iamtypes "github.com/aws/aws-sdk-go-v2/service/iam/types"

	"github.com/bgdnvk/clanker/internal/model"
)

// Roles discovers every IAM role in the account (IAM is global; region is
// carried only for ResourceRef uniformity), following the pagination idiom
// of internal/aws/client.go's getIAMRolesInfo, generalized to cover every
// role rather than a capped, human-readable sample.
func (c *Clients) Roles(ctx context.Context, accountName, region string) ([]model.ResourceRef, error) {
	var out []model.ResourceRef
	var marker *string

	for {
		page, err := c.IAM.ListRoles(ctx, &iam.ListRolesInput{Marker: marker})
		if err != nil {
			log.Printf("[cloudaws] list-roles failed for %s: %v", accountName, err)
			return out, classifyError(model.ResourceRef{Kind: model.KindRole, AccountName: accountName, Region: region}, "ListRoles", err)
		}

		for _, role := range page.Roles {
			attached, err := c.attachedPolicyARNs(ctx, aws.ToString(role.RoleName))
			if err != nil {
				log.Printf("[cloudaws] list-attached-role-policies %s failed: %v", aws.ToString(role.RoleName), err)
			}
			inline, err := c.inlineRolePolicyNames(ctx, aws.ToString(role.RoleName))
			if err != nil {
				log.Printf("[cloudaws] list-role-policies %s failed: %v", aws.ToString(role.RoleName), err)
			}
			profiles, err := c.instanceProfileNames(ctx, aws.ToString(role.RoleName))
			if err != nil {
				log.Printf("[cloudaws] list-instance-profiles-for-role %s failed: %v", aws.ToString(role.RoleName), err)
			}
			tags, err := c.roleTags(ctx, aws.ToString(role.RoleName))
			if err != nil {
				log.Printf("[cloudaws] list-role-tags %s failed: %v", aws.ToString(role.RoleName), err)
			}

			out = append(out, model.ResourceRef{
				Kind:        model.KindRole,
				ID:          aws.ToString(role.RoleName),
				Name:        aws.ToString(role.RoleName),
				AccountName: accountName,
				Region:      region,
				Tags:        model.NewTagMap(tags),
				CreatedAt:   aws.ToTime(role.CreateDate),
				State:       model.StateActive,
				Description: aws.ToString(role.Description),
				Detail: model.RoleDetail{
					Path:                 aws.ToString(role.Path),
					AttachedPolicyARNs:   attached,
					InlinePolicyNames:    inline,
					InstanceProfileNames: profiles,
				},
			})
		}

		if page.IsTruncated && page.Marker != nil {
			marker = page.Marker
			continue
		}
		break
	}

	return out, nil
}

func (c *Clients) attachedPolicyARNs(ctx context.Context, roleName string) ([]string, error) {
	var arns []string
	var marker *string
	for {
		page, err := c.IAM.ListAttachedRolePolicies(ctx, &iam.ListAttachedRolePoliciesInput{RoleName: aws.String(roleName), Marker: marker})
		if err != nil {
			return arns, err
		}
		for _, p := range page.AttachedPolicies {
			arns = append(arns, aws.ToString(p.PolicyArn))
		}
		if page.IsTruncated && page.Marker != nil {
			marker = page.Marker
			continue
		}
		break
	}
	return arns, nil
}

func (c *Clients) inlineRolePolicyNames(ctx context.Context, roleName string) ([]string, error) {
	var names []string
	var marker *string
	for {
		page, err := c.IAM.ListRolePolicies(ctx, &iam.ListRolePoliciesInput{RoleName: aws.String(roleName), Marker: marker})
		if err != nil {
			return names, err
		}
		names = append(names, page.PolicyNames...)
		if page.IsTruncated && page.Marker != nil {
			marker = page.Marker
			continue
		}
		break
	}
	return names, nil
}

// nonDefaultPolicyVersions lists every version of policyARN except
// defaultVersion, the set spec.md §4.6's Policy deletion must clear before
// DeletePolicy (AWS otherwise rejects deleting a policy with non-default
// versions still attached).
func (c *Clients) nonDefaultPolicyVersions(ctx context.Context, policyARN, defaultVersion string) ([]string, error) {
	var versions []string
	var marker *string
	for {
		page, err := c.IAM.ListPolicyVersions(ctx, &iam.ListPolicyVersionsInput{PolicyArn: aws.String(policyARN), Marker: marker})
		if err != nil {
			return versions, err
		}
		for _, v := range page.Versions {
			id := aws.ToString(v.VersionId)
			if id == defaultVersion {
				continue
			}
			versions = append(versions, id)
		}
		if page.IsTruncated && page.Marker != nil {
			marker = page.Marker
			continue
		}
		break
	}
	return versions, nil
}

func (c *Clients) roleTags(ctx context.Context, roleName string) ([]model.Tag, error) {
	var tags []model.Tag
	var marker *string
	for {
		page, err := c.IAM.ListRoleTags(ctx, &iam.ListRoleTagsInput{RoleName: aws.String(roleName), Marker: marker})
		if err != nil {
			return tags, err
		}
		tags = append(tags, fromIAMTags(page.Tags)...)
		if page.IsTruncated && page.Marker != nil {
			marker = page.Marker
			continue
		}
		break
	}
	return tags, nil
}

func (c *Clients) policyTags(ctx context.Context, policyARN string) ([]model.Tag, error) {
	var tags []model.Tag
	var marker *string
	for {
		page, err := c.IAM.ListPolicyTags(ctx, &iam.ListPolicyTagsInput{PolicyArn: aws.String(policyARN), Marker: marker})
		if err != nil {
			return tags, err
		}
		tags = append(tags, fromIAMTags(page.Tags)...)
		if page.IsTruncated && page.Marker != nil {
			marker = page.Marker
			continue
		}
		break
	}
	return tags, nil
}

func fromIAMTags(in []iamtypes.Tag) []model.Tag {
	out := make([]model.Tag, 0, len(in))
	for _, t := range in {
		out = append(out, model.Tag{Key: aws.ToString(t.Key), Value: aws.ToString(t.Value)})
	}
	return out
}

func (c *Clients) instanceProfileNames(ctx context.Context, roleName string) ([]string, error) {
	var names []string
	var marker *string
	for {
		page, err := c.IAM.ListInstanceProfilesForRole(ctx, &iam.ListInstanceProfilesForRoleInput{RoleName: aws.String(roleName), Marker: marker})
		if err != nil {
			return names, err
		}
		for _, p := range page.InstanceProfiles {
			names = append(names, aws.ToString(p.InstanceProfileName))
		}
		if page.IsTruncated && page.Marker != nil {
			marker = page.Marker
			continue
		}
		break
	}
	return names, nil
}

// Policies discovers every customer-managed IAM policy in the account.
// AWS-managed policies (Scope=AWS) are excluded up front — they are never
// candidates for a teardown target's ownership.
func (c *Clients) Policies(ctx context.Context, accountName, region string) ([]model.ResourceRef, error) {
	var out []model.ResourceRef
	var marker *string

	for {
		page, err := c.IAM.ListPolicies(ctx, &iam.ListPoliciesInput{Scope: "Local", Marker: marker})
		if err != nil {
			log.Printf("[cloudaws] list-policies failed for %s: %v", accountName, err)
			return out, classifyError(model.ResourceRef{Kind: model.KindPolicy, AccountName: accountName, Region: region}, "ListPolicies", err)
		}

		for _, p := range page.Policies {
			name := aws.ToString(p.PolicyName)
			arn := aws.ToString(p.Arn)
			defaultVersion := aws.ToString(p.DefaultVersionId)

			versions, err := c.nonDefaultPolicyVersions(ctx, arn, defaultVersion)
			if err != nil {
				log.Printf("[cloudaws] list-policy-versions %s failed: %v", arn, err)
			}
			tags, err := c.policyTags(ctx, arn)
			if err != nil {
				log.Printf("[cloudaws] list-policy-tags %s failed: %v", arn, err)
			}

			out = append(out, model.ResourceRef{
				Kind:        model.KindPolicy,
				ID:          arn,
				Name:        name,
				AccountName: accountName,
				Region:      region,
				Tags:        model.NewTagMap(tags),
				CreatedAt:   aws.ToTime(p.CreateDate),
				State:       model.StateActive,
				Detail: model.PolicyDetail{
					ARN:                arn,
					DefaultVersionID:   defaultVersion,
					NonDefaultVersions: versions,
					AttachedEntities:   int(aws.ToInt32(p.AttachmentCount)),
				},
			})
		}

		if page.IsTruncated && page.Marker != nil {
			marker = page.Marker
			continue
		}
		break
	}

	return out, nil
}

// IsServiceLinked reports whether roleName/path matches the provider's
// service-linked-role convention, used by the classifier's Protected check
// (spec.md §4.4).
func IsServiceLinked(roleName, path string) bool {
	return strings.HasPrefix(roleName, "AWSServiceRoleFor") ||
		strings.Contains(path, "/aws-service-role/") ||
		strings.Contains(path, "/service-role/")
}
