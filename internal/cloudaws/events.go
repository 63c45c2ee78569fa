package cloudaws

import (
	"context"
	"log"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/eventbridge"

	"github.com/bgdnvk/clanker/internal/model"
)

// EventRules discovers every EventBridge rule on the default bus in
// (account, region), grounded in ultra_cleanup_eks.py's
// delete_related_event_rules (boto3 events client, ListRules+ListTargetsByRule).
func (c *Clients) EventRules(ctx context.Context, accountName, region string) ([]model.ResourceRef, error) {
	var out []model.ResourceRef
	var nextToken *string

	for {
		page, err := c.EventBridge.ListRules(ctx, &eventbridge.ListRulesInput{NextToken: nextToken})
		if err != nil {
			log.Printf("[cloudaws] list-rules failed for %s/%s: %v", accountName, region, err)
			return out, classifyError(model.ResourceRef{Kind: model.KindEventRule, AccountName: accountName, Region: region}, "ListRules", err)
		}

		for _, rule := range page.Rules {
			name := aws.ToString(rule.Name)

			targets, err := c.listRuleTargetIDs(ctx, name)
			if err != nil {
				log.Printf("[cloudaws] list-targets-by-rule %s failed: %v", name, err)
			}
			tags, err := c.eventRuleTags(ctx, aws.ToString(rule.Arn))
			if err != nil {
				log.Printf("[cloudaws] list-tags-for-resource (rule %s) failed: %v", name, err)
			}

			out = append(out, model.ResourceRef{
				Kind:        model.KindEventRule,
				ID:          name,
				Name:        name,
				AccountName: accountName,
				Region:      region,
				Tags:        model.NewTagMap(tags),
				Description: aws.ToString(rule.Description),
				State:       model.StateActive,
				Detail: model.EventRuleDetail{
					EventBusName:       aws.ToString(rule.EventBusName),
					TargetIDs:          targets,
					ReferencedClusters: clustersReferencedByPattern(aws.ToString(rule.EventPattern)),
				},
			})
		}

		if page.NextToken == nil {
			break
		}
		nextToken = page.NextToken
	}

	return out, nil
}

func (c *Clients) listRuleTargetIDs(ctx context.Context, ruleName string) ([]string, error) {
	var ids []string
	var nextToken *string
	for {
		page, err := c.EventBridge.ListTargetsByRule(ctx, &eventbridge.ListTargetsByRuleInput{Rule: aws.String(ruleName), NextToken: nextToken})
		if err != nil {
			return ids, err
		}
		for _, t := range page.Targets {
			ids = append(ids, aws.ToString(t.Id))
		}
		if page.NextToken == nil {
			break
		}
		nextToken = page.NextToken
	}
	return ids, nil
}

// eventRuleTags fetches a rule's tags by ARN; EventBridge's
// ListTagsForResource is unpaginated.
func (c *Clients) eventRuleTags(ctx context.Context, ruleARN string) ([]model.Tag, error) {
	if ruleARN == "" {
		return nil, nil
	}
	out, err := c.EventBridge.ListTagsForResource(ctx, &eventbridge.ListTagsForResourceInput{ResourceARN: aws.String(ruleARN)})
	if err != nil {
		return nil, err
	}
	tags := make([]model.Tag, 0, len(out.Tags))
	for _, t := range out.Tags {
		tags = append(tags, model.Tag{Key: aws.ToString(t.Key), Value: aws.ToString(t.Value)})
	}
	return tags, nil
}

// clustersReferencedByPattern does a crude substring scan of an
// EventPattern body for "cluster" mentions. It does not extract cluster
// names: it returns the whole pattern as its single entry, so the result
// never holds more than one entry and the classifier's SharedSuspected
// "references more than one cluster" check never fires on it. Rule tags are
// not consulted. It is never used by itself to decide a
// deletion, per the Open Question decision on the prefix-match bug
// (DESIGN.md).
func clustersReferencedByPattern(pattern string) []string {
	if pattern == "" {
		return nil
	}
	lower := strings.ToLower(pattern)
	if strings.Contains(lower, "cluster") {
		return []string{pattern}
	}
	return nil
}
