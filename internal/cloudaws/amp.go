package cloudaws

import (
	"context"
	"log"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/amp"

	"github.com/bgdnvk/clanker/internal/model"
)

// Workspaces discovers every Amazon Managed Prometheus workspace in
// (account, region). Grounded directly in ultra_cleanup_eks.py's
// delete_prometheus_scrapers, which enumerates workspaces via boto3's amp
// client before tearing down their scrapers.
func (c *Clients) Workspaces(ctx context.Context, accountName, region string) ([]model.ResourceRef, error) {
	var out []model.ResourceRef
	var nextToken *string

	for {
		page, err := c.AMP.ListWorkspaces(ctx, &amp.ListWorkspacesInput{NextToken: nextToken})
		if err != nil {
			log.Printf("[cloudaws] list-workspaces (amp) failed for %s/%s: %v", accountName, region, err)
			return out, classifyError(model.ResourceRef{Kind: model.KindWorkspace, AccountName: accountName, Region: region}, "ListWorkspaces", err)
		}

		for _, ws := range page.Workspaces {
			id := aws.ToString(ws.WorkspaceId)
			name := aws.ToString(ws.Alias)
			if name == "" {
				name = id
			}
			out = append(out, model.ResourceRef{
				Kind:        model.KindWorkspace,
				ID:          id,
				Name:        name,
				AccountName: accountName,
				Region:      region,
				CreatedAt:   aws.ToTime(ws.CreatedAt),
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

// Scrapers discovers every AMP scraper in (account, region), tagging each
// with the source EKS cluster ARN it ingests from so the classifier can
// strong-match it to a teardown target (spec.md §4.4), per
// ultra_cleanup_eks.py's delete_eks_scrapers.
func (c *Clients) Scrapers(ctx context.Context, accountName, region string) ([]model.ResourceRef, error) {
	var out []model.ResourceRef
	var nextToken *string

	for {
		page, err := c.AMP.ListScrapers(ctx, &amp.ListScrapersInput{NextToken: nextToken})
		if err != nil {
			log.Printf("[cloudaws] list-scrapers (amp) failed for %s/%s: %v", accountName, region, err)
			return out, classifyError(model.ResourceRef{Kind: model.KindScraper, AccountName: accountName, Region: region}, "ListScrapers", err)
		}

		for _, s := range page.Scrapers {
			id := aws.ToString(s.ScraperId)
			sourceARN := ""
			if s.Source != nil && s.Source.Eks != nil {
				sourceARN = aws.ToString(s.Source.Eks.ClusterArn)
			}
			destARN := ""
			if s.Destination != nil && s.Destination.AmpConfiguration != nil {
				destARN = aws.ToString(s.Destination.AmpConfiguration.WorkspaceArn)
			}

			out = append(out, model.ResourceRef{
				Kind:        model.KindScraper,
				ID:          id,
				Name:        id,
				AccountName: accountName,
				Region:      region,
				CreatedAt:   aws.ToTime(s.CreatedAt),
				State:       model.StateActive,
				Detail: model.ScraperDetail{
					WorkspaceARN: destARN,
					SourceARN:    sourceARN,
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
