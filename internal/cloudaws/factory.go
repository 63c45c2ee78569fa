// Package cloudaws implements the Cloud Client Factory (C2) and Resource
// Inventory (C3). It builds per-(account, region) AWS SDK v2 clients,
// caches them, probes reachability on first use, and discovers
// ResourceRefs for every Kind the engine knows about.
//
// Client construction follows internal/aws/client.go's NewClient /
// NewClientWithProfile shape (config.LoadDefaultConfig +
// service.NewFromConfig per service), generalized from one profile-wide
// client bundle to a keyed cache over every (account, region) pair the
// registry can name.
package cloudaws

import (
	"context"
	"fmt"
	"sync"

	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/amp"
	"github.com/aws/aws-sdk-go-v2/service/cloudwatch"
	"github.com/aws/aws-sdk-go-v2/service/cloudwatchlogs"
	"github.com/aws/aws-sdk-go-v2/service/costexplorer"
	"github.com/aws/aws-sdk-go-v2/service/ec2"
	"github.com/aws/aws-sdk-go-v2/service/eks"
	"github.com/aws/aws-sdk-go-v2/service/elasticbeanstalk"
	"github.com/aws/aws-sdk-go-v2/service/eventbridge"
	"github.com/aws/aws-sdk-go-v2/service/iam"
	"github.com/aws/aws-sdk-go-v2/service/lambda"
	"github.com/aws/aws-sdk-go-v2/service/pricing"
	"github.com/aws/aws-sdk-go-v2/service/rds"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/sts"

	"github.com/bgdnvk/clanker/internal/model"
)

// Clients bundles every per-(account, region) AWS SDK v2 service client the
// engine uses, built once per key and reused (spec.md §4.2).
type Clients struct {
	EC2            *ec2.Client
	EKS            *eks.Client
	IAM            *iam.Client
	Lambda         *lambda.Client
	EventBridge    *eventbridge.Client
	CloudWatch     *cloudwatch.Client
	CloudWatchLogs *cloudwatchlogs.Client
	AMP            *amp.Client
	Beanstalk      *elasticbeanstalk.Client
	S3             *s3.Client
	RDS            *rds.Client
	STS            *sts.Client
	Pricing        *pricing.Client
	CostExplorer   *costexplorer.Client
}

// Factory caches Clients by "accountId/region" and probes
// reachability on first build, per spec.md §4.2. There is one cache entry
// per (account, region) rather than per individual service, since every
// service client in a Clients bundle shares the same aws.Config.
type Factory struct {
	mu    sync.Mutex
	cache map[string]*Clients
}

func NewFactory() *Factory {
	return &Factory{cache: make(map[string]*Clients)}
}

// ProbeError is the typed error spec.md §4.2 requires on probe failure,
// carrying (service, accountName, region, cause) and never caching the
// failed attempt.
type ProbeError struct {
	Service     string
	AccountName string
	Region      string
	Cause       error
}

func (e *ProbeError) Error() string {
	return fmt.Sprintf("probe failed for %s in account %s region %s: %v", e.Service, e.AccountName, e.Region, e.Cause)
}

func (e *ProbeError) Unwrap() error { return e.Cause }

func cacheKey(accountID, region string) string {
	return accountID + "/" + region
}

// Clients returns the cached client bundle for (account, region), building
// and probing it on first use. The probe call is STS GetCallerIdentity —
// the lightest-weight reachability+auth check available, matching the
// teacher's own reliance on STS-adjacent credential validation in
// getCredentialsFromCLI.
func (f *Factory) Clients(ctx context.Context, account model.Account, region string) (*Clients, error) {
	key := cacheKey(account.AccountID, region)

	f.mu.Lock()
	if c, ok := f.cache[key]; ok {
		f.mu.Unlock()
		return c, nil
	}
	f.mu.Unlock()

	cfg, err := awsconfig.LoadDefaultConfig(ctx,
		awsconfig.WithRegion(region),
		awsconfig.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(
			account.AccessKey, account.SecretKey, "",
		)),
	)
	if err != nil {
		return nil, &ProbeError{Service: "config", AccountName: account.Name, Region: region, Cause: err}
	}

	c := &Clients{
		EC2:            ec2.NewFromConfig(cfg),
		EKS:            eks.NewFromConfig(cfg),
		IAM:            iam.NewFromConfig(cfg),
		Lambda:         lambda.NewFromConfig(cfg),
		EventBridge:    eventbridge.NewFromConfig(cfg),
		CloudWatch:     cloudwatch.NewFromConfig(cfg),
		CloudWatchLogs: cloudwatchlogs.NewFromConfig(cfg),
		AMP:            amp.NewFromConfig(cfg),
		Beanstalk:      elasticbeanstalk.NewFromConfig(cfg),
		S3:             s3.NewFromConfig(cfg),
		RDS:            rds.NewFromConfig(cfg),
		STS:            sts.NewFromConfig(cfg),
		Pricing:        pricing.NewFromConfig(cfg),
		CostExplorer:   costexplorer.NewFromConfig(cfg),
	}

	if _, err := c.STS.GetCallerIdentity(ctx, &sts.GetCallerIdentityInput{}); err != nil {
		return nil, &ProbeError{Service: "sts", AccountName: account.Name, Region: region, Cause: err}
	}

	f.mu.Lock()
	f.cache[key] = c
	f.mu.Unlock()

	return c, nil
}

