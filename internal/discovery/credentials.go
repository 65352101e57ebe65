package discovery

import (
	"github.com/lena/certscope/internal/discovery/types"
)

// Credential type aliases, same arrangement as provider.go
type (
	AWSCredential          = types.AWSCredential
	AzureCredential        = types.AzureCredential
	DigitalOceanCredential = types.DigitalOceanCredential
	CloudflareCredential   = types.CloudflareCredential
)
