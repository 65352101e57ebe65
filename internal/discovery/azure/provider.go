package azure

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"strings"
	"sync"

	"github.com/Azure/azure-sdk-for-go/sdk/azidentity"
	"github.com/Azure/azure-sdk-for-go/sdk/resourcemanager/dns/armdns"
	"github.com/Azure/azure-sdk-for-go/sdk/resourcemanager/network/armnetwork/v5"
	"github.com/Azure/azure-sdk-for-go/sdk/resourcemanager/storage/armstorage"
	"github.com/Azure/azure-sdk-for-go/sdk/resourcemanager/subscription/armsubscription"

	"github.com/lena/certscope/internal/database/models"
	"github.com/lena/certscope/internal/discovery/types"
)

// Provider implements endpoint discovery for Azure
type Provider struct {
	creds  types.AzureCredential
	cfg    types.ProviderConfig
	logger *slog.Logger
	azCred *azidentity.ClientSecretCredential
}

// New creates a new Azure provider instance
func New(creds types.AzureCredential, cfg types.ProviderConfig, logger *slog.Logger) *Provider {
	return &Provider{
		creds:  creds,
		cfg:    cfg,
		logger: logger,
	}
}

// Name returns the provider identifier
func (p *Provider) Name() models.CloudProvider {
	return models.ProviderAzure
}

// ValidateCredentials checks if the Azure credentials are valid
func (p *Provider) ValidateCredentials(ctx context.Context) error {
	cred, err := azidentity.NewClientSecretCredential(
		p.creds.TenantID,
		p.creds.ClientID,
		p.creds.ClientSecret,
		nil,
	)
	if err != nil {
		return fmt.Errorf("invalid Azure credentials: %w", err)
	}

	// Test by listing subscriptions
	client, err := armsubscription.NewSubscriptionsClient(cred, nil)
	if err != nil {
		return fmt.Errorf("creating subscription client: %w", err)
	}

	pager := client.NewListPager(nil)
	_, err = pager.NextPage(ctx)
	if err != nil {
		return fmt.Errorf("invalid Azure credentials: %w", err)
	}

	p.azCred = cred
	return nil
}

// Discover finds hostname-bearing Azure resources across configured subscriptions
func (p *Provider) Discover(ctx context.Context) ([]types.DiscoveredEndpoint, error) {
	if p.azCred == nil {
		if err := p.ValidateCredentials(ctx); err != nil {
			return nil, err
		}
	}

	subscriptions := p.creds.Subscriptions
	if len(subscriptions) == 0 {
		// Auto-discover subscriptions
		var err error
		subscriptions, err = p.listSubscriptions(ctx)
		if err != nil {
			return nil, fmt.Errorf("listing subscriptions: %w", err)
		}
	}

	var (
		allEndpoints []types.DiscoveredEndpoint
		allErrors    []types.DiscoveryError
		mu           sync.Mutex
		wg           sync.WaitGroup
		sem          = make(chan struct{}, p.cfg.ConcurrentScans)
	)

	for _, sub := range subscriptions {
		wg.Add(1)
		sem <- struct{}{}

		go func(subscriptionID string) {
			defer wg.Done()
			defer func() { <-sem }()

			subEndpoints, subErrors := p.discoverSubscription(ctx, subscriptionID)

			mu.Lock()
			allEndpoints = append(allEndpoints, subEndpoints...)
			allErrors = append(allErrors, subErrors...)
			mu.Unlock()
		}(sub)
	}

	wg.Wait()

	for _, e := range allErrors {
		p.logger.Warn("discovery error",
			"subscription", e.Region,
			"resource", e.Resource,
			"error", e.Message,
		)
	}

	p.logger.Info("Azure discovery complete",
		"total_endpoints", len(allEndpoints),
		"errors", len(allErrors),
	)

	return allEndpoints, nil
}

// listSubscriptions returns all accessible subscription IDs
func (p *Provider) listSubscriptions(ctx context.Context) ([]string, error) {
	client, err := armsubscription.NewSubscriptionsClient(p.azCred, nil)
	if err != nil {
		return nil, err
	}

	var subscriptions []string
	pager := client.NewListPager(nil)
	for pager.More() {
		page, err := pager.NextPage(ctx)
		if err != nil {
			return nil, err
		}
		for _, sub := range page.Value {
			if sub.SubscriptionID != nil {
				subscriptions = append(subscriptions, *sub.SubscriptionID)
			}
		}
	}

	return subscriptions, nil
}

// discoverSubscription discovers endpoints in a single Azure subscription
func (p *Provider) discoverSubscription(ctx context.Context, subscriptionID string) ([]types.DiscoveredEndpoint, []types.DiscoveryError) {
	var discovered []types.DiscoveredEndpoint
	var errors []types.DiscoveryError

	p.logger.Debug("discovering subscription", "subscription", subscriptionID)

	// Discover DNS Zones
	dnsEndpoints, dnsErrors := p.discoverDNS(ctx, subscriptionID)
	discovered = append(discovered, dnsEndpoints...)
	errors = append(errors, dnsErrors...)

	// Discover Storage Account endpoints
	storageEndpoints, storageErrors := p.discoverStorage(ctx, subscriptionID)
	discovered = append(discovered, storageEndpoints...)
	errors = append(errors, storageErrors...)

	// Discover Public IP FQDNs
	pipEndpoints, pipErrors := p.discoverPublicIPs(ctx, subscriptionID)
	discovered = append(discovered, pipEndpoints...)
	errors = append(errors, pipErrors...)

	return discovered, errors
}

// discoverDNS finds address-bearing records in Azure DNS Zones
func (p *Provider) discoverDNS(ctx context.Context, subscriptionID string) ([]types.DiscoveredEndpoint, []types.DiscoveryError) {
	var discovered []types.DiscoveredEndpoint
	var errors []types.DiscoveryError

	client, err := armdns.NewZonesClient(subscriptionID, p.azCred, nil)
	if err != nil {
		errors = append(errors, types.DiscoveryError{
			Region:   subscriptionID,
			Resource: "dns",
			Message:  err.Error(),
		})
		return discovered, errors
	}

	pager := client.NewListPager(nil)
	for pager.More() {
		page, err := pager.NextPage(ctx)
		if err != nil {
			errors = append(errors, types.DiscoveryError{
				Region:   subscriptionID,
				Resource: "dns:zones",
				Message:  err.Error(),
			})
			break
		}

		for _, zone := range page.Value {
			zoneName := ptrToString(zone.Name)
			resourceGroup := parseResourceGroup(ptrToString(zone.ID))
			if resourceGroup == "" {
				p.logger.Warn("could not determine resource group for zone", "zone", zoneName)
				continue
			}

			recordEndpoints, recordErrors := p.discoverDNSRecords(ctx, subscriptionID, resourceGroup, zoneName)
			discovered = append(discovered, recordEndpoints...)
			errors = append(errors, recordErrors...)
		}
	}

	return discovered, errors
}

// discoverDNSRecords finds records in a DNS zone
func (p *Provider) discoverDNSRecords(ctx context.Context, subscriptionID, resourceGroup, zoneName string) ([]types.DiscoveredEndpoint, []types.DiscoveryError) {
	var discovered []types.DiscoveredEndpoint
	var errors []types.DiscoveryError

	client, err := armdns.NewRecordSetsClient(subscriptionID, p.azCred, nil)
	if err != nil {
		errors = append(errors, types.DiscoveryError{
			Region:   subscriptionID,
			Resource: "dns:records",
			Message:  err.Error(),
		})
		return discovered, errors
	}

	pager := client.NewListAllByDNSZonePager(resourceGroup, zoneName, nil)
	for pager.More() {
		page, err := pager.NextPage(ctx)
		if err != nil {
			errors = append(errors, types.DiscoveryError{
				Region:   subscriptionID,
				Resource: "dns:records",
				Message:  err.Error(),
			})
			break
		}

		for _, record := range page.Value {
			// The ARM record type looks like "Microsoft.Network/dnszones/A",
			// only the last segment matters
			recordType := ptrToString(record.Type)
			if i := strings.LastIndex(recordType, "/"); i >= 0 {
				recordType = recordType[i+1:]
			}
			if recordType != "A" && recordType != "AAAA" && recordType != "CNAME" {
				continue
			}

			recordName := ptrToString(record.Name)
			if strings.HasPrefix(recordName, "*") {
				continue
			}
			if recordName == "@" {
				recordName = zoneName
			} else {
				recordName = recordName + "." + zoneName
			}

			discovered = append(discovered, types.DiscoveredEndpoint{
				Value:  recordName,
				Source: "azure:dns",
				Metadata: map[string]string{
					"subscription": subscriptionID,
					"zone_name":    zoneName,
					"record_type":  recordType,
				},
			})

			// CNAME targets are themselves probe-able hosts
			if recordType == "CNAME" && record.Properties != nil && record.Properties.CnameRecord != nil {
				target := strings.TrimSuffix(ptrToString(record.Properties.CnameRecord.Cname), ".")
				if target != "" && !strings.HasPrefix(target, "*") {
					discovered = append(discovered, types.DiscoveredEndpoint{
						Value:  target,
						Source: "azure:dns:cname",
						Metadata: map[string]string{
							"record_name": recordName,
							"zone_name":   zoneName,
						},
					})
				}
			}
		}
	}

	return discovered, errors
}

// discoverStorage finds Storage Account blob hosts and custom domains
func (p *Provider) discoverStorage(ctx context.Context, subscriptionID string) ([]types.DiscoveredEndpoint, []types.DiscoveryError) {
	var discovered []types.DiscoveredEndpoint
	var errors []types.DiscoveryError

	client, err := armstorage.NewAccountsClient(subscriptionID, p.azCred, nil)
	if err != nil {
		errors = append(errors, types.DiscoveryError{
			Region:   subscriptionID,
			Resource: "storage",
			Message:  err.Error(),
		})
		return discovered, errors
	}

	pager := client.NewListPager(nil)
	for pager.More() {
		page, err := pager.NextPage(ctx)
		if err != nil {
			errors = append(errors, types.DiscoveryError{
				Region:   subscriptionID,
				Resource: "storage:list",
				Message:  err.Error(),
			})
			break
		}

		for _, account := range page.Value {
			if account.Properties == nil {
				continue
			}
			accountName := ptrToString(account.Name)
			metadata := map[string]string{
				"subscription": subscriptionID,
				"account_name": accountName,
				"location":     ptrToString(account.Location),
			}

			// Blob endpoint is a URL, the host is what gets probed
			if account.Properties.PrimaryEndpoints != nil {
				if host := hostFromURL(ptrToString(account.Properties.PrimaryEndpoints.Blob)); host != "" {
					discovered = append(discovered, types.DiscoveredEndpoint{
						Value:    host,
						Source:   "azure:storage",
						Ports:    []int{443},
						Metadata: copyMetadata(metadata),
					})
				}
			}

			// Custom domains carry operator-managed certificates
			if account.Properties.CustomDomain != nil {
				if domain := ptrToString(account.Properties.CustomDomain.Name); domain != "" {
					discovered = append(discovered, types.DiscoveredEndpoint{
						Value:    domain,
						Source:   "azure:storage:custom",
						Ports:    []int{443},
						Metadata: copyMetadata(metadata),
					})
				}
			}
		}
	}

	p.logger.Debug("discovered Storage Accounts", "subscription", subscriptionID)
	return discovered, errors
}

// discoverPublicIPs finds the DNS labels assigned to Azure Public IPs
func (p *Provider) discoverPublicIPs(ctx context.Context, subscriptionID string) ([]types.DiscoveredEndpoint, []types.DiscoveryError) {
	var discovered []types.DiscoveredEndpoint
	var errors []types.DiscoveryError

	client, err := armnetwork.NewPublicIPAddressesClient(subscriptionID, p.azCred, nil)
	if err != nil {
		errors = append(errors, types.DiscoveryError{
			Region:   subscriptionID,
			Resource: "network:publicip",
			Message:  err.Error(),
		})
		return discovered, errors
	}

	pager := client.NewListAllPager(nil)
	for pager.More() {
		page, err := pager.NextPage(ctx)
		if err != nil {
			errors = append(errors, types.DiscoveryError{
				Region:   subscriptionID,
				Resource: "network:publicip:list",
				Message:  err.Error(),
			})
			break
		}

		for _, pip := range page.Value {
			if pip.Properties == nil || pip.Properties.DNSSettings == nil {
				continue
			}
			fqdn := ptrToString(pip.Properties.DNSSettings.Fqdn)
			if fqdn == "" {
				continue
			}

			discovered = append(discovered, types.DiscoveredEndpoint{
				Value:  fqdn,
				Source: "azure:publicip",
				Metadata: map[string]string{
					"subscription": subscriptionID,
					"name":         ptrToString(pip.Name),
					"location":     ptrToString(pip.Location),
				},
			})
		}
	}

	p.logger.Debug("discovered Public IP FQDNs", "subscription", subscriptionID, "count", len(discovered))
	return discovered, errors
}

func ptrToString(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

func copyMetadata(m map[string]string) map[string]string {
	c := make(map[string]string, len(m))
	for k, v := range m {
		c[k] = v
	}
	return c
}

// hostFromURL extracts the bare hostname from an endpoint URL
func hostFromURL(raw string) string {
	if raw == "" {
		return ""
	}
	u, err := url.Parse(raw)
	if err != nil {
		return ""
	}
	return u.Hostname()
}

// parseResourceGroup pulls the resource group out of an ARM resource ID,
// e.g. /subscriptions/<sub>/resourceGroups/<rg>/providers/...
func parseResourceGroup(resourceID string) string {
	parts := strings.Split(resourceID, "/")
	for i, part := range parts {
		if strings.EqualFold(part, "resourceGroups") && i+1 < len(parts) {
			return parts[i+1]
		}
	}
	return ""
}
