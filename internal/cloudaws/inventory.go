package cloudaws

import (
	"context"
	"fmt"
	"log"

	"github.com/bgdnvk/clanker/internal/model"
)

// DiscoverAll walks every resource Kind the engine knows about for
// (accountName, region) and returns them as a flat slice, the shape
// inventory writes into its snapshot file (spec.md §6).
func (c *Clients) DiscoverAll(ctx context.Context, accountName, region string) ([]model.ResourceRef, error) {
	var all []model.ResourceRef
	var firstErr error

	collect := func(kind string, fn func() ([]model.ResourceRef, error)) {
		refs, err := fn()
		if err != nil {
			log.Printf("[cloudaws] discovery of %s failed for %s/%s: %v", kind, accountName, region, err)
			if firstErr == nil {
				firstErr = fmt.Errorf("discovering %s: %w", kind, err)
			}
			return
		}
		all = append(all, refs...)
	}

	var instances, securityGroups []model.ResourceRef
	collect("instances", func() ([]model.ResourceRef, error) {
		refs, err := c.Instances(ctx, accountName, region)
		instances = refs
		return refs, err
	})
	collect("security-groups", func() ([]model.ResourceRef, error) {
		refs, err := c.SecurityGroups(ctx, accountName, region)
		securityGroups = CorrelateSecurityGroups(refs, instances)
		return securityGroups, err
	})
	collect("clusters", func() ([]model.ResourceRef, error) { return c.Clusters(ctx, accountName, region) })
	collect("roles", func() ([]model.ResourceRef, error) { return c.Roles(ctx, accountName, region) })
	collect("policies", func() ([]model.ResourceRef, error) { return c.Policies(ctx, accountName, region) })
	collect("functions", func() ([]model.ResourceRef, error) { return c.Functions(ctx, accountName, region) })
	collect("event-rules", func() ([]model.ResourceRef, error) { return c.EventRules(ctx, accountName, region) })
	collect("alarms", func() ([]model.ResourceRef, error) { return c.Alarms(ctx, accountName, region) })
	collect("log-groups", func() ([]model.ResourceRef, error) { return c.LogGroups(ctx, accountName, region) })
	collect("workspaces", func() ([]model.ResourceRef, error) { return c.Workspaces(ctx, accountName, region) })
	collect("scrapers", func() ([]model.ResourceRef, error) { return c.Scrapers(ctx, accountName, region) })
	var applications []model.ResourceRef
	collect("applications", func() ([]model.ResourceRef, error) {
		refs, err := c.Applications(ctx, accountName, region)
		applications = refs
		return refs, err
	})
	collect("app-versions", func() ([]model.ResourceRef, error) {
		var versions []model.ResourceRef
		for _, app := range applications {
			refs, err := c.AppVersions(ctx, accountName, region, app.ID)
			if err != nil {
				return versions, err
			}
			versions = append(versions, refs...)
		}
		return versions, nil
	})
	collect("app-environments", func() ([]model.ResourceRef, error) { return c.AppEnvironments(ctx, accountName, region) })
	collect("buckets", func() ([]model.ResourceRef, error) { return c.Buckets(ctx, accountName, region) })
	collect("db-instances", func() ([]model.ResourceRef, error) { return c.DBInstances(ctx, accountName, region) })

	return all, firstErr
}
