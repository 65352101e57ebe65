package models

import "time"

type CertStatus string

const (
	CertStatusValid   CertStatus = "valid"
	CertStatusWarning CertStatus = "warning"
	CertStatusExpired CertStatus = "expired"
	CertStatusError   CertStatus = "error"
)

// Certificate holds the latest scan result for one host:port target.
// A rescan of the same target overwrites this row, it never appends.
type Certificate struct {
	Base
	Host string `gorm:"size:255;not null;uniqueIndex:idx_certificates_host_port" json:"host"`
	Port int    `gorm:"not null;uniqueIndex:idx_certificates_host_port" json:"port"`

	Subject      string `gorm:"type:text" json:"subject"`
	Issuer       string `gorm:"type:text" json:"issuer"`
	CommonName   string `gorm:"size:255" json:"common_name"`
	Organization string `gorm:"size:255" json:"organization"`

	// Validity window; nil when the target never produced a certificate
	ValidFrom *time.Time `json:"valid_from,omitempty"`
	ValidTo   *time.Time `json:"valid_to,omitempty"`

	Fingerprint        string `gorm:"size:120" json:"fingerprint"`
	SignatureAlgorithm string `gorm:"size:120" json:"signature_algorithm"`

	SelfSigned    bool     `json:"self_signed"`
	DaysRemaining int      `json:"days_remaining"`
	KeyUsage      []string `gorm:"serializer:json" json:"key_usage"`

	Status CertStatus `gorm:"size:16;not null;index" json:"status"`
	Error  string     `gorm:"type:text" json:"error,omitempty"`

	LastScanned time.Time `gorm:"index" json:"last_scanned"`
}

func (Certificate) TableName() string {
	return "certificates"
}
