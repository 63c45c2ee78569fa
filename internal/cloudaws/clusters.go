package cloudaws

import (
	"context"
	"log"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/eks"

	"github.com/bgdnvk/clanker/internal/model"
)

// Clusters discovers every EKS cluster in (account, region) and eagerly
// hydrates each with its child NodeGroups, per spec.md §4.3 ("eagerly
// hydrates child NodeGroups with their scaling config, instance types, and
// status").
func (c *Clients) Clusters(ctx context.Context, accountName, region string) ([]model.ResourceRef, error) {
	var out []model.ResourceRef

	var nextToken *string
	for {
		page, err := c.EKS.ListClusters(ctx, &eks.ListClustersInput{NextToken: nextToken})
		if err != nil {
			log.Printf("[cloudaws] list-clusters failed for %s/%s: %v", accountName, region, err)
			return out, classifyError(model.ResourceRef{Kind: model.KindCluster, AccountName: accountName, Region: region}, "ListClusters", err)
		}

		for _, name := range page.Clusters {
			ref, err := c.describeCluster(ctx, accountName, region, name)
			if err != nil {
				log.Printf("[cloudaws] describe-cluster %s failed: %v", name, err)
				continue
			}
			out = append(out, ref)
		}

		if page.NextToken == nil {
			break
		}
		nextToken = page.NextToken
	}

	return out, nil
}

func (c *Clients) describeCluster(ctx context.Context, accountName, region, name string) (model.ResourceRef, error) {
	desc, err := c.EKS.DescribeCluster(ctx, &eks.DescribeClusterInput{Name: aws.String(name)})
	if err != nil {
		return model.ResourceRef{}, err
	}
	cl := desc.Cluster

	tags := make([]model.Tag, 0, len(cl.Tags))
	for k, v := range cl.Tags {
		tags = append(tags, model.Tag{Key: k, Value: v})
	}

	nodeGroups, err := c.nodeGroupsForCluster(ctx, accountName, region, name)
	if err != nil {
		log.Printf("[cloudaws] list-nodegroups for cluster %s failed: %v", name, err)
	}

	vpcID := ""
	if cl.ResourcesVpcConfig != nil {
		vpcID = aws.ToString(cl.ResourcesVpcConfig.VpcId)
	}

	return model.ResourceRef{
		Kind:        model.KindCluster,
		ID:          aws.ToString(cl.Name),
		Name:        aws.ToString(cl.Name),
		AccountName: accountName,
		Region:      region,
		Tags:        model.NewTagMap(tags),
		CreatedAt:   aws.ToTime(cl.CreatedAt),
		State:       clusterState(string(cl.Status)),
		Detail: model.ClusterDetail{
			VPCID:      vpcID,
			NodeGroups: nodeGroups,
			Version:    aws.ToString(cl.Version),
		},
	}, nil
}

func (c *Clients) nodeGroupsForCluster(ctx context.Context, accountName, region, clusterName string) ([]model.ResourceRef, error) {
	var out []model.ResourceRef

	var nextToken *string
	for {
		page, err := c.EKS.ListNodegroups(ctx, &eks.ListNodegroupsInput{ClusterName: aws.String(clusterName), NextToken: nextToken})
		if err != nil {
			return out, err
		}

		for _, ngName := range page.Nodegroups {
			ngDesc, err := c.EKS.DescribeNodegroup(ctx, &eks.DescribeNodegroupInput{
				ClusterName:   aws.String(clusterName),
				NodegroupName: aws.String(ngName),
			})
			if err != nil {
				log.Printf("[cloudaws] describe-nodegroup %s/%s failed: %v", clusterName, ngName, err)
				continue
			}
			ng := ngDesc.Nodegroup

			tags := make([]model.Tag, 0, len(ng.Tags))
			for k, v := range ng.Tags {
				tags = append(tags, model.Tag{Key: k, Value: v})
			}

			var desired, min, max int32
			if ng.ScalingConfig != nil {
				desired = aws.ToInt32(ng.ScalingConfig.DesiredSize)
				min = aws.ToInt32(ng.ScalingConfig.MinSize)
				max = aws.ToInt32(ng.ScalingConfig.MaxSize)
			}
			instanceType := ""
			if len(ng.InstanceTypes) > 0 {
				instanceType = ng.InstanceTypes[0]
			}

			out = append(out, model.ResourceRef{
				Kind:        model.KindNodeGroup,
				ID:          aws.ToString(ng.NodegroupName),
				Name:        aws.ToString(ng.NodegroupName),
				AccountName: accountName,
				Region:      region,
				Tags:        model.NewTagMap(tags),
				CreatedAt:   aws.ToTime(ng.CreatedAt),
				State:       nodeGroupState(string(ng.Status)),
				Detail: model.NodeGroupDetail{
					ClusterName:  clusterName,
					DesiredSize:  desired,
					MinSize:      min,
					MaxSize:      max,
					InstanceType: instanceType,
					Status:       string(ng.Status),
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

func clusterState(status string) model.State {
	switch status {
	case "ACTIVE":
		return model.StateActive
	case "CREATING":
		return model.StateCreating
	case "UPDATING":
		return model.StateUpdating
	case "DELETING":
		return model.StateDeleting
	default:
		return model.StateUnknown
	}
}

func nodeGroupState(status string) model.State {
	switch status {
	case "ACTIVE":
		return model.StateActive
	case "CREATING":
		return model.StateCreating
	case "UPDATING":
		return model.StateUpdating
	case "DELETING":
		return model.StateDeleting
	default:
		return model.StateUnknown
	}
}
