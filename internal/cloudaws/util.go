package cloudaws

import (
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	ec2types "github.com/aws/aws-sdk-go-v2/service/ec2/types"

	"github.com/bgdnvk/clanker/internal/model"
)

// msToTime converts an AWS epoch-millisecond timestamp pointer (as returned
// by several CloudWatch Logs / EventBridge APIs) to a time.Time, treating a
// nil pointer as the zero time.
func msToTime(ms *int64) time.Time {
	if ms == nil {
		return time.Time{}
	}
	return time.UnixMilli(*ms)
}

// ipPermissionFromRule converts a normalized model.SecurityGroupRule back
// into the SDK's IpPermission shape for a single-rule revoke call.
func ipPermissionFromRule(r model.SecurityGroupRule) ec2types.IpPermission {
	perm := ec2types.IpPermission{
		IpProtocol: aws.String(r.Protocol),
		FromPort:   aws.Int32(r.FromPort),
		ToPort:     aws.Int32(r.ToPort),
	}
	if r.CIDR != "" {
		perm.IpRanges = []ec2types.IpRange{{CidrIp: aws.String(r.CIDR)}}
	}
	if r.PeerGroup != "" {
		perm.UserIdGroupPairs = []ec2types.UserIdGroupPair{{GroupId: aws.String(r.PeerGroup)}}
	}
	return perm
}
