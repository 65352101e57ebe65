package types

import (
	"context"

	"github.com/lena/certscope/internal/database/models"
)

// DiscoveredEndpoint is a hostname-bearing resource found during cloud
// discovery. Only resources with a resolvable name are reported; bare
// IP addresses are skipped because SNI probing needs a server name.
type DiscoveredEndpoint struct {
	Value    string            // Hostname, e.g. "api.example.com"
	Source   string            // e.g. "aws:route53", "cloudflare:dns"
	Ports    []int             // TLS listener ports reported by the provider, empty for DNS records
	Metadata map[string]string // Provider-specific metadata
}

// Provider defines the interface all cloud providers must implement
type Provider interface {
	// Name returns the provider identifier (e.g. "aws", "cloudflare")
	Name() models.CloudProvider

	// ValidateCredentials checks if the credentials are valid
	ValidateCredentials(ctx context.Context) error

	// Discover finds all hostname-bearing resources reachable with the
	// configured credentials. Returns partial results if some
	// regions/subscriptions fail.
	Discover(ctx context.Context) ([]DiscoveredEndpoint, error)
}

// ProviderConfig holds common configuration for providers
type ProviderConfig struct {
	RateLimitRPS    int // Requests per second limit
	TimeoutSeconds  int // Timeout for API calls
	MaxRetries      int // Maximum retry attempts
	ConcurrentScans int // Number of concurrent region/subscription scans
}

// DefaultProviderConfig returns sensible defaults
func DefaultProviderConfig() ProviderConfig {
	return ProviderConfig{
		RateLimitRPS:    10,
		TimeoutSeconds:  30,
		MaxRetries:      3,
		ConcurrentScans: 5,
	}
}

// DiscoveryError represents a non-fatal error during discovery
type DiscoveryError struct {
	Region   string // Region/subscription/zone where the error occurred
	Resource string // Resource type being discovered
	Message  string // Error description
}

// AWSCredential holds AWS authentication data
type AWSCredential struct {
	AccessKeyID     string   `json:"access_key_id"`
	SecretAccessKey string   `json:"secret_access_key"`
	AssumeRoleARN   string   `json:"assume_role_arn,omitempty"`
	ExternalID      string   `json:"external_id,omitempty"` // For cross-account assume role
	Regions         []string `json:"regions,omitempty"`     // Empty = all regions
}

// AzureCredential holds Azure authentication data
type AzureCredential struct {
	TenantID      string   `json:"tenant_id"`
	ClientID      string   `json:"client_id"`
	ClientSecret  string   `json:"client_secret"`
	Subscriptions []string `json:"subscriptions,omitempty"` // Empty = all subscriptions
}

// DigitalOceanCredential holds DigitalOcean authentication data
type DigitalOceanCredential struct {
	APIToken string `json:"api_token"`
}

// CloudflareCredential holds Cloudflare authentication data
type CloudflareCredential struct {
	APIToken string   `json:"api_token"`
	APIKey   string   `json:"api_key,omitempty"`  // Legacy API key (optional)
	Email    string   `json:"email,omitempty"`    // Required if using API key
	ZoneIDs  []string `json:"zone_ids,omitempty"` // Empty = all zones
}
