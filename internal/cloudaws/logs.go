package cloudaws

import (
	"context"
	"log"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/cloudwatchlogs"

	"github.com/bgdnvk/clanker/internal/model"
)

// LogGroups discovers every CloudWatch log group in (account, region),
// following internal/aws/client.go's getCloudWatchLogsInfo pagination shape.
func (c *Clients) LogGroups(ctx context.Context, accountName, region string) ([]model.ResourceRef, error) {
	var out []model.ResourceRef
	var nextToken *string

	for {
		page, err := c.CloudWatchLogs.DescribeLogGroups(ctx, &cloudwatchlogs.DescribeLogGroupsInput{NextToken: nextToken})
		if err != nil {
			log.Printf("[cloudaws] describe-log-groups failed for %s/%s: %v", accountName, region, err)
			return out, classifyError(model.ResourceRef{Kind: model.KindLogGroup, AccountName: accountName, Region: region}, "DescribeLogGroups", err)
		}

		for _, lg := range page.LogGroups {
			name := aws.ToString(lg.LogGroupName)
			tags, err := c.logGroupTags(ctx, aws.ToString(lg.Arn))
			if err != nil {
				log.Printf("[cloudaws] list-tags-for-resource (log group %s) failed: %v", name, err)
			}
			out = append(out, model.ResourceRef{
				Kind:        model.KindLogGroup,
				ID:          name,
				Name:        name,
				AccountName: accountName,
				Region:      region,
				Tags:        model.TagMap(tags),
				CreatedAt:   msToTime(lg.CreationTime),
				State:       model.StateActive,
			})
		}

		if page.NextToken == nil {
			break
		}
		nextToken = page.NextToken
	}

	return out, nil
}

// logGroupTags fetches a log group's tags by ARN; CloudWatch Logs'
// ListTagsForResource returns the tag set as a plain map rather than the
// {Key,Value} slice shape most other services use.
func (c *Clients) logGroupTags(ctx context.Context, logGroupARN string) (map[string]string, error) {
	if logGroupARN == "" {
		return nil, nil
	}
	out, err := c.CloudWatchLogs.ListTagsForResource(ctx, &cloudwatchlogs.ListTagsForResourceInput{ResourceArn: aws.String(logGroupARN)})
	if err != nil {
		return nil, err
	}
	return out.Tags, nil
}
