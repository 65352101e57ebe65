package models

type CloudProvider string

const (
	ProviderAWS          CloudProvider = "aws"
	ProviderAzure        CloudProvider = "azure"
	ProviderDigitalOcean CloudProvider = "digitalocean"
	ProviderCloudflare   CloudProvider = "cloudflare"
)

// ProviderCredential stores cloud API credentials used by endpoint
// discovery. The credential payload is an age-encrypted JSON blob.
type ProviderCredential struct {
	Base
	Name     string        `gorm:"not null" json:"name"`
	Provider CloudProvider `gorm:"not null" json:"provider"`

	EncryptedData []byte `gorm:"type:bytea;not null" json:"-"`

	IsActive bool  `gorm:"default:true" json:"is_active"`
	LastUsed int64 `json:"last_used,omitempty"`
}

func (ProviderCredential) TableName() string {
	return "provider_credentials"
}
