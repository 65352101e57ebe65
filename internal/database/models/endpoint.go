package models

import "github.com/google/uuid"

// Endpoint is a hostname-bearing resource surfaced by cloud discovery,
// a candidate target for a scan definition's host list.
type Endpoint struct {
	Base
	Value  string `gorm:"size:255;not null;uniqueIndex:idx_endpoints_value_source" json:"value"`
	Source string `gorm:"size:64;not null;uniqueIndex:idx_endpoints_value_source" json:"source"`

	// Listener ports reported by the provider (load balancers), comma-joined;
	// empty for plain DNS records
	Ports string `gorm:"size:255" json:"ports,omitempty"`

	Metadata string `gorm:"type:jsonb;default:'{}'" json:"metadata,omitempty"`

	CredentialID *uuid.UUID `gorm:"type:uuid;index" json:"credential_id,omitempty"`

	DiscoveredAt int64 `json:"discovered_at"`
	LastSeenAt   int64 `json:"last_seen_at"`
	IsActive     bool  `gorm:"default:true" json:"is_active"`
}

func (Endpoint) TableName() string {
	return "endpoints"
}
