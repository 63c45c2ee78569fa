package cloudaws

import (
	"context"
	"log"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/rds"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"github.com/bgdnvk/clanker/internal/model"
)

// Buckets discovers every S3 bucket visible to the account (buckets are
// global-namespace but region-affine; ListBuckets itself is unscoped, so
// the caller's region is only carried for ResourceRef uniformity), grounded
// in internal/aws/client.go's getS3Info. Object count is sampled with a
// single bounded ListObjectsV2 call per bucket (SPEC_FULL §3) rather than a
// full walk, since the teardown bucket gate (cmd/teardown.go's
// handleBuckets) only needs empty-vs-non-empty.
func (c *Clients) Buckets(ctx context.Context, accountName, region string) ([]model.ResourceRef, error) {
	out, err := c.S3.ListBuckets(ctx, &s3.ListBucketsInput{})
	if err != nil {
		log.Printf("[cloudaws] list-buckets failed for %s: %v", accountName, err)
		return nil, classifyError(model.ResourceRef{Kind: model.KindBucket, AccountName: accountName, Region: region}, "ListBuckets", err)
	}

	refs := make([]model.ResourceRef, 0, len(out.Buckets))
	for _, b := range out.Buckets {
		name := aws.ToString(b.Name)

		objOut, err := c.S3.ListObjectsV2(ctx, &s3.ListObjectsV2Input{Bucket: aws.String(name), MaxKeys: aws.Int32(1)})
		isEmpty := true
		count := int64(0)
		if err != nil {
			log.Printf("[cloudaws] list-objects-v2 for bucket %s failed: %v", name, err)
		} else {
			count = int64(len(objOut.Contents))
			isEmpty = count == 0
		}

		refs = append(refs, model.ResourceRef{
			Kind:        model.KindBucket,
			ID:          name,
			Name:        name,
			AccountName: accountName,
			Region:      region,
			CreatedAt:   aws.ToTime(b.CreationDate),
			State:       model.StateActive,
			Detail: model.BucketDetail{
				ObjectCount: count,
				IsEmpty:     isEmpty,
			},
		})
	}
	return refs, nil
}

// DBInstances discovers every RDS instance in (account, region), following
// internal/aws/client.go's getRDSInfo pagination shape.
func (c *Clients) DBInstances(ctx context.Context, accountName, region string) ([]model.ResourceRef, error) {
	var out []model.ResourceRef
	var marker *string

	for {
		page, err := c.RDS.DescribeDBInstances(ctx, &rds.DescribeDBInstancesInput{Marker: marker})
		if err != nil {
			log.Printf("[cloudaws] describe-db-instances failed for %s/%s: %v", accountName, region, err)
			return out, classifyError(model.ResourceRef{Kind: model.KindDBInstance, AccountName: accountName, Region: region}, "DescribeDBInstances", err)
		}

		for _, db := range page.DBInstances {
			id := aws.ToString(db.DBInstanceIdentifier)
			tags := make([]model.Tag, 0, len(db.TagList))
			for _, t := range db.TagList {
				tags = append(tags, model.Tag{Key: aws.ToString(t.Key), Value: aws.ToString(t.Value)})
			}

			out = append(out, model.ResourceRef{
				Kind:        model.KindDBInstance,
				ID:          id,
				Name:        id,
				AccountName: accountName,
				Region:      region,
				Tags:        model.NewTagMap(tags),
				CreatedAt:   aws.ToTime(db.InstanceCreateTime),
				State:       dbInstanceState(aws.ToString(db.DBInstanceStatus)),
				Detail: model.DBInstanceDetail{
					Engine: aws.ToString(db.Engine),
					Status: aws.ToString(db.DBInstanceStatus),
				},
			})
		}

		if page.Marker == nil {
			break
		}
		marker = page.Marker
	}

	return out, nil
}

func dbInstanceState(status string) model.State {
	switch status {
	case "available":
		return model.StateRunning
	case "stopped":
		return model.StateStopped
	case "deleting":
		return model.StateDeleting
	case "creating":
		return model.StateCreating
	default:
		return model.StateUnknown
	}
}
