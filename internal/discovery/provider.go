package discovery

import (
	"github.com/lena/certscope/internal/discovery/types"
)

// Aliases for the types package. The concrete definitions live in types
// so the provider subpackages can import them without a cycle.
type (
	DiscoveredEndpoint = types.DiscoveredEndpoint
	Provider           = types.Provider
	ProviderConfig     = types.ProviderConfig
	DiscoveryError     = types.DiscoveryError
)

// DefaultProviderConfig returns sensible defaults
func DefaultProviderConfig() ProviderConfig {
	return types.DefaultProviderConfig()
}
