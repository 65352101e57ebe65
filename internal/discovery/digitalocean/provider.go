package digitalocean

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"strconv"
	"strings"

	"github.com/digitalocean/godo"
	"golang.org/x/oauth2"

	"github.com/lena/certscope/internal/database/models"
	"github.com/lena/certscope/internal/discovery/types"
)

// Provider implements endpoint discovery for DigitalOcean
type Provider struct {
	creds  types.DigitalOceanCredential
	cfg    types.ProviderConfig
	logger *slog.Logger
	client *godo.Client
}

// New creates a new DigitalOcean provider instance
func New(creds types.DigitalOceanCredential, cfg types.ProviderConfig, logger *slog.Logger) *Provider {
	return &Provider{
		creds:  creds,
		cfg:    cfg,
		logger: logger,
	}
}

// Name returns the provider identifier
func (p *Provider) Name() models.CloudProvider {
	return models.ProviderDigitalOcean
}

// ValidateCredentials checks if the DigitalOcean credentials are valid
func (p *Provider) ValidateCredentials(ctx context.Context) error {
	client := p.getClient()

	// Test by getting account info
	_, _, err := client.Account.Get(ctx)
	if err != nil {
		return fmt.Errorf("invalid DigitalOcean credentials: %w", err)
	}

	p.client = client
	return nil
}

// Discover finds hostname-bearing DigitalOcean resources. Droplets and
// load balancers expose bare IPs only, so managed DNS and Kubernetes
// cluster endpoints are the ones that matter here.
func (p *Provider) Discover(ctx context.Context) ([]types.DiscoveredEndpoint, error) {
	if p.client == nil {
		p.client = p.getClient()
	}

	var discovered []types.DiscoveredEndpoint
	var errors []types.DiscoveryError

	domainEndpoints, domainErrors := p.discoverDomains(ctx)
	discovered = append(discovered, domainEndpoints...)
	errors = append(errors, domainErrors...)

	k8sEndpoints, k8sErrors := p.discoverKubernetes(ctx)
	discovered = append(discovered, k8sEndpoints...)
	errors = append(errors, k8sErrors...)

	for _, e := range errors {
		p.logger.Warn("discovery error",
			"resource", e.Resource,
			"error", e.Message,
		)
	}

	p.logger.Info("DigitalOcean discovery complete",
		"total_endpoints", len(discovered),
		"errors", len(errors),
	)

	return discovered, nil
}

// getClient creates a new DigitalOcean client
func (p *Provider) getClient() *godo.Client {
	tokenSource := oauth2.StaticTokenSource(&oauth2.Token{AccessToken: p.creds.APIToken})
	oauthClient := oauth2.NewClient(context.Background(), tokenSource)
	return godo.NewClient(oauthClient)
}

// discoverDomains walks managed domains and their address-bearing records
func (p *Provider) discoverDomains(ctx context.Context) ([]types.DiscoveredEndpoint, []types.DiscoveryError) {
	var discovered []types.DiscoveredEndpoint
	var errors []types.DiscoveryError

	opt := &godo.ListOptions{PerPage: 200}
	for {
		domains, resp, err := p.client.Domains.List(ctx, opt)
		if err != nil {
			errors = append(errors, types.DiscoveryError{
				Resource: "domains",
				Message:  err.Error(),
			})
			break
		}

		for _, domain := range domains {
			recordEndpoints, recordErrors := p.discoverDomainRecords(ctx, domain.Name)
			discovered = append(discovered, recordEndpoints...)
			errors = append(errors, recordErrors...)
		}

		if resp.Links == nil || resp.Links.IsLastPage() {
			break
		}
		page, err := resp.Links.CurrentPage()
		if err != nil {
			break
		}
		opt.Page = page + 1
	}

	return discovered, errors
}

// discoverDomainRecords gets DNS records for a domain
func (p *Provider) discoverDomainRecords(ctx context.Context, domain string) ([]types.DiscoveredEndpoint, []types.DiscoveryError) {
	var discovered []types.DiscoveredEndpoint
	var errors []types.DiscoveryError

	opt := &godo.ListOptions{PerPage: 200}
	for {
		records, resp, err := p.client.Domains.Records(ctx, domain, opt)
		if err != nil {
			errors = append(errors, types.DiscoveryError{
				Resource: "domain:records",
				Message:  err.Error(),
			})
			break
		}

		for _, record := range records {
			// Only records that resolve to an address name a probe-able host
			if record.Type != "A" && record.Type != "AAAA" && record.Type != "CNAME" {
				continue
			}

			if strings.HasPrefix(record.Name, "*") {
				continue
			}

			recordName := record.Name
			if recordName == "@" {
				recordName = domain
			} else {
				recordName = record.Name + "." + domain
			}

			discovered = append(discovered, types.DiscoveredEndpoint{
				Value:  recordName,
				Source: "digitalocean:dns",
				Metadata: map[string]string{
					"zone_name":   domain,
					"record_type": record.Type,
					"ttl":         strconv.Itoa(record.TTL),
				},
			})

			// CNAME targets are themselves probe-able hosts
			if record.Type == "CNAME" && record.Data != "" {
				target := strings.TrimSuffix(record.Data, ".")
				if target == "@" {
					target = domain
				}
				if target != "" && !strings.HasPrefix(target, "*") {
					discovered = append(discovered, types.DiscoveredEndpoint{
						Value:  target,
						Source: "digitalocean:dns:cname",
						Metadata: map[string]string{
							"record_name": recordName,
							"zone_name":   domain,
						},
					})
				}
			}
		}

		if resp.Links == nil || resp.Links.IsLastPage() {
			break
		}
		page, err := resp.Links.CurrentPage()
		if err != nil {
			break
		}
		opt.Page = page + 1
	}

	return discovered, errors
}

// discoverKubernetes finds the API server hosts of managed Kubernetes clusters
func (p *Provider) discoverKubernetes(ctx context.Context) ([]types.DiscoveredEndpoint, []types.DiscoveryError) {
	var discovered []types.DiscoveredEndpoint
	var errors []types.DiscoveryError

	opt := &godo.ListOptions{PerPage: 200}
	for {
		clusters, resp, err := p.client.Kubernetes.List(ctx, opt)
		if err != nil {
			errors = append(errors, types.DiscoveryError{
				Resource: "kubernetes",
				Message:  err.Error(),
			})
			break
		}

		for _, cluster := range clusters {
			// The endpoint comes back as a URL, e.g. https://<id>.k8s.ondigitalocean.com
			host := cluster.Endpoint
			if u, err := url.Parse(cluster.Endpoint); err == nil && u.Hostname() != "" {
				host = u.Hostname()
			}
			if host == "" {
				continue
			}

			discovered = append(discovered, types.DiscoveredEndpoint{
				Value:  host,
				Source: "digitalocean:kubernetes",
				Ports:  []int{443},
				Metadata: map[string]string{
					"cluster_id": cluster.ID,
					"name":       cluster.Name,
					"region":     cluster.RegionSlug,
					"version":    cluster.VersionSlug,
					"status":     string(cluster.Status.State),
				},
			})
		}

		if resp.Links == nil || resp.Links.IsLastPage() {
			break
		}
		page, err := resp.Links.CurrentPage()
		if err != nil {
			break
		}
		opt.Page = page + 1
	}

	return discovered, errors
}
