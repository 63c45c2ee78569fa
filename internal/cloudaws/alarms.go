package cloudaws

import (
	"context"
	"log"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/cloudwatch"
	cwtypes "github.com/aws/aws-sdk-go-v2/service/cloudwatch/types"

	"github.com/bgdnvk/clanker/internal/model"
)

// Alarms discovers every CloudWatch alarm (metric and composite) in
// (account, region), following internal/aws/client.go's GetRecentAlarms
// shape, generalized from a human-readable recent-alarm digest to complete
// ResourceRef discovery. Composite/basic/cost-alarm distinction is recorded
// on AlarmDetail for the executor's deletion-ordering rule (spec.md §4.6).
func (c *Clients) Alarms(ctx context.Context, accountName, region string) ([]model.ResourceRef, error) {
	var out []model.ResourceRef
	var nextToken *string

	for {
		page, err := c.CloudWatch.DescribeAlarms(ctx, &cloudwatch.DescribeAlarmsInput{NextToken: nextToken})
		if err != nil {
			log.Printf("[cloudaws] describe-alarms failed for %s/%s: %v", accountName, region, err)
			return out, classifyError(model.ResourceRef{Kind: model.KindAlarm, AccountName: accountName, Region: region}, "DescribeAlarms", err)
		}

		for _, a := range page.CompositeAlarms {
			name := aws.ToString(a.AlarmName)
			tags, err := c.alarmTags(ctx, aws.ToString(a.AlarmArn))
			if err != nil {
				log.Printf("[cloudaws] list-tags-for-resource (alarm %s) failed: %v", name, err)
			}
			out = append(out, model.ResourceRef{
				Kind:        model.KindAlarm,
				ID:          name,
				Name:        name,
				AccountName: accountName,
				Region:      region,
				Tags:        model.NewTagMap(tags),
				State:       model.StateActive,
				Description: aws.ToString(a.AlarmRule),
				Detail: model.AlarmDetail{
					IsComposite: true,
					IsCostAlarm: isCostAlarmName(name),
				},
			})
		}

		for _, a := range page.MetricAlarms {
			tags, err := c.alarmTags(ctx, aws.ToString(a.AlarmArn))
			if err != nil {
				log.Printf("[cloudaws] list-tags-for-resource (alarm %s) failed: %v", aws.ToString(a.AlarmName), err)
			}
			out = append(out, metricAlarmRef(accountName, region, a, tags))
		}

		if page.NextToken == nil {
			break
		}
		nextToken = page.NextToken
	}

	return out, nil
}

func metricAlarmRef(accountName, region string, a cwtypes.MetricAlarm, tags []model.Tag) model.ResourceRef {
	name := aws.ToString(a.AlarmName)
	dims := make(map[string]string, len(a.Dimensions))
	for _, d := range a.Dimensions {
		dims[aws.ToString(d.Name)] = aws.ToString(d.Value)
	}

	return model.ResourceRef{
		Kind:        model.KindAlarm,
		ID:          name,
		Name:        name,
		AccountName: accountName,
		Region:      region,
		Tags:        model.NewTagMap(tags),
		State:       model.StateActive,
		Detail: model.AlarmDetail{
			IsComposite: false,
			IsCostAlarm: isCostAlarmName(name),
			Dimensions:  dims,
		},
	}
}

// alarmTags fetches an alarm's tags by ARN; CloudWatch's
// ListTagsForResource is unpaginated (tag sets are capped low enough that
// the provider never returns a NextToken).
func (c *Clients) alarmTags(ctx context.Context, alarmARN string) ([]model.Tag, error) {
	if alarmARN == "" {
		return nil, nil
	}
	out, err := c.CloudWatch.ListTagsForResource(ctx, &cloudwatch.ListTagsForResourceInput{ResourceARN: aws.String(alarmARN)})
	if err != nil {
		return nil, err
	}
	tags := make([]model.Tag, 0, len(out.Tags))
	for _, t := range out.Tags {
		tags = append(tags, model.Tag{Key: aws.ToString(t.Key), Value: aws.ToString(t.Value)})
	}
	return tags, nil
}

// isCostAlarmName mirrors ultra_cleanup_eks.py's is_cost_alarm_for_cluster
// substring heuristic: alarms named around billing/cost/budget are treated
// distinctly so the executor can defer them to last in the deletion order
// (spec.md §4.6).
func isCostAlarmName(name string) bool {
	lower := strings.ToLower(name)
	for _, kw := range []string{"cost", "billing", "budget"} {
		if strings.Contains(lower, kw) {
			return true
		}
	}
	return false
}
