package cloudflare

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	"github.com/cloudflare/cloudflare-go"

	"github.com/lena/certscope/internal/database/models"
	"github.com/lena/certscope/internal/discovery/types"
)

// Provider implements endpoint discovery for Cloudflare
type Provider struct {
	creds  types.CloudflareCredential
	cfg    types.ProviderConfig
	logger *slog.Logger
	api    *cloudflare.API
}

// New creates a new Cloudflare provider instance
func New(creds types.CloudflareCredential, cfg types.ProviderConfig, logger *slog.Logger) *Provider {
	return &Provider{
		creds:  creds,
		cfg:    cfg,
		logger: logger,
	}
}

// Name returns the provider identifier
func (p *Provider) Name() models.CloudProvider {
	return models.ProviderCloudflare
}

// ValidateCredentials checks if the Cloudflare credentials are valid
func (p *Provider) ValidateCredentials(ctx context.Context) error {
	api, err := p.getAPI()
	if err != nil {
		return fmt.Errorf("invalid Cloudflare credentials: %w", err)
	}

	// Token verification only exists for token auth, legacy keys are
	// checked by fetching the account owner
	if p.creds.APIToken != "" {
		_, err = api.VerifyAPIToken(ctx)
	} else {
		_, err = api.UserDetails(ctx)
	}
	if err != nil {
		return fmt.Errorf("invalid Cloudflare credentials: %w", err)
	}

	p.api = api
	return nil
}

// Discover finds hostname-bearing DNS records across Cloudflare zones
func (p *Provider) Discover(ctx context.Context) ([]types.DiscoveredEndpoint, error) {
	if p.api == nil {
		api, err := p.getAPI()
		if err != nil {
			return nil, err
		}
		p.api = api
	}

	var discovered []types.DiscoveredEndpoint
	var errors []types.DiscoveryError

	zones, err := p.getZones(ctx)
	if err != nil {
		errors = append(errors, types.DiscoveryError{
			Resource: "zones",
			Message:  err.Error(),
		})
	}

	for _, zone := range zones {
		dnsEndpoints, dnsErrors := p.discoverDNSRecords(ctx, zone)
		discovered = append(discovered, dnsEndpoints...)
		errors = append(errors, dnsErrors...)
	}

	for _, e := range errors {
		p.logger.Warn("discovery error",
			"zone", e.Region,
			"resource", e.Resource,
			"error", e.Message,
		)
	}

	p.logger.Info("Cloudflare discovery complete",
		"total_endpoints", len(discovered),
		"zones", len(zones),
		"errors", len(errors),
	)

	return discovered, nil
}

// getAPI creates a new Cloudflare API client
func (p *Provider) getAPI() (*cloudflare.API, error) {
	if p.creds.APIToken != "" {
		return cloudflare.NewWithAPIToken(p.creds.APIToken)
	}
	if p.creds.APIKey != "" && p.creds.Email != "" {
		return cloudflare.New(p.creds.APIKey, p.creds.Email)
	}
	return nil, fmt.Errorf("no valid credentials provided")
}

// getZones returns zones to scan
func (p *Provider) getZones(ctx context.Context) ([]cloudflare.Zone, error) {
	// If specific zone IDs are provided, fetch those
	if len(p.creds.ZoneIDs) > 0 {
		var zones []cloudflare.Zone
		for _, zoneID := range p.creds.ZoneIDs {
			zone, err := p.api.ZoneDetails(ctx, zoneID)
			if err != nil {
				p.logger.Warn("failed to get zone", "zone_id", zoneID, "error", err)
				continue
			}
			zones = append(zones, zone)
		}
		return zones, nil
	}

	// Otherwise, list all zones
	zones, err := p.api.ListZones(ctx)
	if err != nil {
		return nil, err
	}
	return zones, nil
}

// discoverDNSRecords finds address-bearing DNS records in a zone
func (p *Provider) discoverDNSRecords(ctx context.Context, zone cloudflare.Zone) ([]types.DiscoveredEndpoint, []types.DiscoveryError) {
	var discovered []types.DiscoveredEndpoint
	var errors []types.DiscoveryError

	records, _, err := p.api.ListDNSRecords(ctx, cloudflare.ZoneIdentifier(zone.ID), cloudflare.ListDNSRecordsParams{})
	if err != nil {
		errors = append(errors, types.DiscoveryError{
			Region:   zone.Name,
			Resource: "dns:records",
			Message:  err.Error(),
		})
		return discovered, errors
	}

	for _, record := range records {
		// Only records that resolve to an address name a probe-able host
		if record.Type != "A" && record.Type != "AAAA" && record.Type != "CNAME" {
			continue
		}

		// Wildcard names cannot be probed directly
		if strings.HasPrefix(record.Name, "*") {
			continue
		}

		metadata := map[string]string{
			"zone_id":     zone.ID,
			"zone_name":   zone.Name,
			"record_id":   record.ID,
			"record_type": record.Type,
			"ttl":         strconv.Itoa(record.TTL),
		}
		// Proxied records present the edge certificate, which is still
		// the one clients see
		if record.Proxied != nil {
			metadata["proxied"] = strconv.FormatBool(*record.Proxied)
		}

		discovered = append(discovered, types.DiscoveredEndpoint{
			Value:    record.Name,
			Source:   "cloudflare:dns",
			Metadata: metadata,
		})

		// CNAME targets are themselves probe-able hosts
		if record.Type == "CNAME" && record.Content != "" && !strings.HasPrefix(record.Content, "*") {
			discovered = append(discovered, types.DiscoveredEndpoint{
				Value:  strings.TrimSuffix(record.Content, "."),
				Source: "cloudflare:dns:cname",
				Metadata: map[string]string{
					"record_name": record.Name,
					"zone_name":   zone.Name,
				},
			})
		}
	}

	p.logger.Debug("discovered DNS records", "zone", zone.Name, "count", len(records))
	return discovered, errors
}
