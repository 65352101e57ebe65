package discovery

import (
	"context"

	"github.com/google/uuid"
	"github.com/lena/certscope/internal/database/models"
)

// CredentialManager defines the interface for provider credential operations.
type CredentialManager interface {
	CreateCredential(ctx context.Context, name string, provider models.CloudProvider, credData interface{}) (*models.ProviderCredential, error)
	GetCredential(ctx context.Context, credID uuid.UUID) (*models.ProviderCredential, error)
	ListCredentials(ctx context.Context) ([]models.ProviderCredential, error)
	DeleteCredential(ctx context.Context, credID uuid.UUID) error
	ValidateCredential(ctx context.Context, credID uuid.UUID) error
}

// EndpointDiscoverer defines the interface for endpoint discovery operations.
type EndpointDiscoverer interface {
	DiscoverEndpoints(ctx context.Context, credIDs []uuid.UUID) ([]DiscoveredEndpoint, error)
	SaveEndpoints(ctx context.Context, credID *uuid.UUID, discovered []DiscoveredEndpoint) (int, error)
	ListEndpoints(ctx context.Context) ([]models.Endpoint, error)
}

// DiscoveryService combines credential management and endpoint discovery.
type DiscoveryService interface {
	CredentialManager
	EndpointDiscoverer
}

// Compile-time interface satisfaction checks
var (
	_ CredentialManager  = (*Service)(nil)
	_ EndpointDiscoverer = (*Service)(nil)
	_ DiscoveryService   = (*Service)(nil)
)
