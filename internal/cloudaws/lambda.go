package cloudaws

import (
	"context"
	"log"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/lambda"

	"github.com/bgdnvk/clanker/internal/model"
)

// Functions discovers every Lambda function in (account, region), following
// internal/aws/client.go's getLambdaInfo pagination shape.
func (c *Clients) Functions(ctx context.Context, accountName, region string) ([]model.ResourceRef, error) {
	var out []model.ResourceRef
	var marker *string

	for {
		page, err := c.Lambda.ListFunctions(ctx, &lambda.ListFunctionsInput{Marker: marker})
		if err != nil {
			log.Printf("[cloudaws] list-functions failed for %s/%s: %v", accountName, region, err)
			return out, classifyError(model.ResourceRef{Kind: model.KindFunction, AccountName: accountName, Region: region}, "ListFunctions", err)
		}

		for _, fn := range page.Functions {
			name := aws.ToString(fn.FunctionName)

			tagsOut, err := c.Lambda.ListTags(ctx, &lambda.ListTagsInput{Resource: fn.FunctionArn})
			var tags model.TagMap
			if err == nil {
				tags = model.TagMap(tagsOut.Tags)
			}

			mappings, err := c.eventSourceMappingIDs(ctx, name)
			if err != nil {
				log.Printf("[cloudaws] list-event-source-mappings for %s failed: %v", name, err)
			}

			out = append(out, model.ResourceRef{
				Kind:        model.KindFunction,
				ID:          name,
				Name:        name,
				AccountName: accountName,
				Region:      region,
				Tags:        tags,
				State:       model.StateActive,
				Detail: model.FunctionDetail{
					Runtime:               string(fn.Runtime),
					EventSourceMappingIDs: mappings,
				},
			})
		}

		if page.NextMarker == nil {
			break
		}
		marker = page.NextMarker
	}

	return out, nil
}

func (c *Clients) eventSourceMappingIDs(ctx context.Context, functionName string) ([]string, error) {
	var ids []string
	var marker *string
	for {
		page, err := c.Lambda.ListEventSourceMappings(ctx, &lambda.ListEventSourceMappingsInput{
			FunctionName: aws.String(functionName),
			Marker:       marker,
		})
		if err != nil {
			return ids, err
		}
		for _, m := range page.EventSourceMappings {
			ids = append(ids, aws.ToString(m.UUID))
		}
		if page.NextMarker == nil {
			break
		}
		marker = page.NextMarker
	}
	return ids, nil
}
