package cloudaws

import (
	"context"
	"log"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/elasticbeanstalk"

	"github.com/bgdnvk/clanker/internal/model"
)

// Applications discovers every Elastic Beanstalk application in (account,
// region), grounded in spec.md §4.5's literal "environments", "versions",
// "applications" plan vocabulary.
func (c *Clients) Applications(ctx context.Context, accountName, region string) ([]model.ResourceRef, error) {
	out, err := c.Beanstalk.DescribeApplications(ctx, &elasticbeanstalk.DescribeApplicationsInput{})
	if err != nil {
		log.Printf("[cloudaws] describe-applications failed for %s/%s: %v", accountName, region, err)
		return nil, classifyError(model.ResourceRef{Kind: model.KindApplication, AccountName: accountName, Region: region}, "DescribeApplications", err)
	}

	refs := make([]model.ResourceRef, 0, len(out.Applications))
	for _, app := range out.Applications {
		name := aws.ToString(app.ApplicationName)
		refs = append(refs, model.ResourceRef{
			Kind:        model.KindApplication,
			ID:          name,
			Name:        name,
			AccountName: accountName,
			Region:      region,
			CreatedAt:   aws.ToTime(app.DateCreated),
			State:       model.StateActive,
			Description: aws.ToString(app.Description),
		})
	}
	return refs, nil
}

// AppEnvironments discovers every Elastic Beanstalk environment in
// (account, region), recording application name, version label and status.
// The referenced RDS instances are not looked up: DBInstanceIDs is left
// empty.
func (c *Clients) AppEnvironments(ctx context.Context, accountName, region string) ([]model.ResourceRef, error) {
	out, err := c.Beanstalk.DescribeEnvironments(ctx, &elasticbeanstalk.DescribeEnvironmentsInput{})
	if err != nil {
		log.Printf("[cloudaws] describe-environments failed for %s/%s: %v", accountName, region, err)
		return nil, classifyError(model.ResourceRef{Kind: model.KindAppEnvironment, AccountName: accountName, Region: region}, "DescribeEnvironments", err)
	}

	refs := make([]model.ResourceRef, 0, len(out.Environments))
	for _, env := range out.Environments {
		id := aws.ToString(env.EnvironmentId)
		refs = append(refs, model.ResourceRef{
			Kind:        model.KindAppEnvironment,
			ID:          id,
			Name:        aws.ToString(env.EnvironmentName),
			AccountName: accountName,
			Region:      region,
			CreatedAt:   aws.ToTime(env.DateCreated),
			State:       beanstalkEnvState(string(env.Status)),
			Detail: model.AppEnvironmentDetail{
				ApplicationName: aws.ToString(env.ApplicationName),
				VersionLabel:    aws.ToString(env.VersionLabel),
				Status:          string(env.Status),
			},
		})
	}
	return refs, nil
}

// AppVersions discovers every application-version bundle for applicationName.
func (c *Clients) AppVersions(ctx context.Context, accountName, region, applicationName string) ([]model.ResourceRef, error) {
	out, err := c.Beanstalk.DescribeApplicationVersions(ctx, &elasticbeanstalk.DescribeApplicationVersionsInput{
		ApplicationName: aws.String(applicationName),
	})
	if err != nil {
		log.Printf("[cloudaws] describe-application-versions for %s failed: %v", applicationName, err)
		return nil, classifyError(model.ResourceRef{Kind: model.KindAppVersion, AccountName: accountName, Region: region}, "DescribeApplicationVersions", err)
	}

	refs := make([]model.ResourceRef, 0, len(out.ApplicationVersions))
	for _, v := range out.ApplicationVersions {
		label := aws.ToString(v.VersionLabel)
		refs = append(refs, model.ResourceRef{
			Kind:        model.KindAppVersion,
			ID:          applicationName + "/" + label,
			Name:        label,
			AccountName: accountName,
			Region:      region,
			CreatedAt:   aws.ToTime(v.DateCreated),
			State:       model.StateActive,
			Detail:      model.AppEnvironmentDetail{ApplicationName: applicationName},
		})
	}
	return refs, nil
}

func beanstalkEnvState(status string) model.State {
	switch status {
	case "Ready":
		return model.StateActive
	case "Launching":
		return model.StateCreating
	case "Updating":
		return model.StateUpdating
	case "Terminating":
		return model.StateDeleting
	case "Terminated":
		return model.StateTerminated
	default:
		return model.StateUnknown
	}
}
