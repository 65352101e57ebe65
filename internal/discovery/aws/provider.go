package aws

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/credentials/stscreds"
	"github.com/aws/aws-sdk-go-v2/service/sts"
	"github.com/lena/certscope/internal/database/models"
	"github.com/lena/certscope/internal/discovery/types"
)

// AllRegions lists all AWS regions for discovery
var AllRegions = []string{
	"us-east-1", "us-east-2", "us-west-1", "us-west-2",
	"eu-west-1", "eu-west-2", "eu-west-3", "eu-central-1", "eu-north-1",
	"ap-northeast-1", "ap-northeast-2", "ap-northeast-3",
	"ap-southeast-1", "ap-southeast-2",
	"ap-south-1", "sa-east-1", "ca-central-1",
	"me-south-1", "af-south-1",
}

// Provider implements endpoint discovery for AWS
type Provider struct {
	creds  types.AWSCredential
	cfg    types.ProviderConfig
	logger *slog.Logger

	awsCfg aws.Config
}

// New creates a new AWS provider instance
func New(creds types.AWSCredential, cfg types.ProviderConfig, logger *slog.Logger) *Provider {
	return &Provider{
		creds:  creds,
		cfg:    cfg,
		logger: logger,
	}
}

// Name returns the provider identifier
func (p *Provider) Name() models.CloudProvider {
	return models.ProviderAWS
}

// ValidateCredentials checks if the AWS credentials are valid
func (p *Provider) ValidateCredentials(ctx context.Context) error {
	cfg, err := p.loadConfig(ctx, "us-east-1")
	if err != nil {
		return fmt.Errorf("loading AWS config: %w", err)
	}

	// Test credentials with STS GetCallerIdentity
	stsClient := sts.NewFromConfig(cfg)
	_, err = stsClient.GetCallerIdentity(ctx, &sts.GetCallerIdentityInput{})
	if err != nil {
		return fmt.Errorf("invalid AWS credentials: %w", err)
	}

	p.awsCfg = cfg
	return nil
}

// Discover finds hostname-bearing AWS resources across configured regions
func (p *Provider) Discover(ctx context.Context) ([]types.DiscoveredEndpoint, error) {
	regions := p.creds.Regions
	if len(regions) == 0 {
		regions = AllRegions
	}

	var (
		allEndpoints []types.DiscoveredEndpoint
		allErrors    []types.DiscoveryError
		mu           sync.Mutex
		wg           sync.WaitGroup
		sem          = make(chan struct{}, p.cfg.ConcurrentScans)
	)

	for _, region := range regions {
		wg.Add(1)
		sem <- struct{}{} // Acquire semaphore

		go func(region string) {
			defer wg.Done()
			defer func() { <-sem }() // Release semaphore

			regionEndpoints, regionErrors := p.discoverRegion(ctx, region)

			mu.Lock()
			allEndpoints = append(allEndpoints, regionEndpoints...)
			allErrors = append(allErrors, regionErrors...)
			mu.Unlock()
		}(region)
	}

	wg.Wait()

	// Log any errors that occurred
	for _, e := range allErrors {
		p.logger.Warn("discovery error",
			"region", e.Region,
			"resource", e.Resource,
			"error", e.Message,
		)
	}

	p.logger.Info("AWS discovery complete",
		"total_endpoints", len(allEndpoints),
		"errors", len(allErrors),
	)

	return allEndpoints, nil
}

// discoverRegion discovers endpoints in a single AWS region
func (p *Provider) discoverRegion(ctx context.Context, region string) ([]types.DiscoveredEndpoint, []types.DiscoveryError) {
	var discovered []types.DiscoveredEndpoint
	var errors []types.DiscoveryError

	cfg, err := p.loadConfig(ctx, region)
	if err != nil {
		errors = append(errors, types.DiscoveryError{
			Region:   region,
			Resource: "config",
			Message:  err.Error(),
		})
		return discovered, errors
	}

	p.logger.Debug("discovering region", "region", region)

	// Discover Route53 (global, only in us-east-1)
	if region == "us-east-1" {
		route53Endpoints, route53Errors := p.discoverRoute53(ctx, cfg)
		discovered = append(discovered, route53Endpoints...)
		errors = append(errors, route53Errors...)
	}

	// Discover ELB/ALB DNS names
	elbEndpoints, elbErrors := p.discoverELB(ctx, cfg, region)
	discovered = append(discovered, elbEndpoints...)
	errors = append(errors, elbErrors...)

	return discovered, errors
}

// loadConfig creates an AWS config for the specified region
func (p *Provider) loadConfig(ctx context.Context, region string) (aws.Config, error) {
	opts := []func(*config.LoadOptions) error{
		config.WithRegion(region),
		config.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(
			p.creds.AccessKeyID,
			p.creds.SecretAccessKey,
			"",
		)),
	}

	cfg, err := config.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return aws.Config{}, err
	}

	// Handle assume role if configured
	if p.creds.AssumeRoleARN != "" {
		stsClient := sts.NewFromConfig(cfg)
		assumeRoleOpts := func(o *stscreds.AssumeRoleOptions) {
			if p.creds.ExternalID != "" {
				o.ExternalID = aws.String(p.creds.ExternalID)
			}
		}
		cfg.Credentials = stscreds.NewAssumeRoleProvider(stsClient, p.creds.AssumeRoleARN, assumeRoleOpts)
	}

	return cfg, nil
}

// tlsProtocol reports whether a listener protocol terminates TLS
func tlsProtocol(proto string) bool {
	switch strings.ToUpper(proto) {
	case "HTTPS", "TLS", "SSL":
		return true
	}
	return false
}

func copyMetadata(m map[string]string) map[string]string {
	c := make(map[string]string, len(m))
	for k, v := range m {
		c[k] = v
	}
	return c
}
