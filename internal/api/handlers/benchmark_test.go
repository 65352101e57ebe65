package handlers

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/lena/certscope/internal/api/dto"
)

func BenchmarkJSONSerialization(b *testing.B) {
	validFrom := time.Now().Add(-30 * 24 * time.Hour).Format(time.RFC3339)
	validTo := time.Now().Add(60 * 24 * time.Hour).Format(time.RFC3339)

	cert := CertificateResponse{
		ID:                 uuid.New().String(),
		Host:               "api.example.com",
		Port:               443,
		Subject:            "CN=api.example.com,O=Example Corp",
		Issuer:             "CN=R11,O=Let's Encrypt,C=US",
		CommonName:         "api.example.com",
		Organization:       "Example Corp",
		ValidFrom:          &validFrom,
		ValidTo:            &validTo,
		Fingerprint:        "ab:12:cd:34:ef:56:ab:78:cd:90:ef:12:ab:34:cd:56:ef:78:ab:90:cd:12:ef:34:ab:56:cd:78:ef:90:ab:12",
		SignatureAlgorithm: "SHA256-RSA",
		DaysRemaining:      60,
		KeyUsage:           []string{"Digital Signature", "Key Encipherment"},
		Status:             "valid",
		LastScanned:        time.Now().Format(time.RFC3339),
	}

	nextRun := time.Now().Add(time.Hour).Unix()
	scan := ScanResponse{
		ID:        uuid.New().String(),
		Name:      "Production endpoints",
		Hosts:     []string{"api.example.com", "www.example.com", "db.internal"},
		Ports:     []int{443, 8443},
		Frequency: "daily",
		Active:    true,
		NextRunAt: &nextRun,
		CreatedAt: time.Now().Format(time.RFC3339),
		UpdatedAt: time.Now().Format(time.RFC3339),
	}

	b.Run("CertificateResponse", func(b *testing.B) {
		b.ReportAllocs()
		b.ResetTimer()
		for i := 0; i < b.N; i++ {
			if _, err := json.Marshal(cert); err != nil {
				b.Fatal(err)
			}
		}
	})

	b.Run("CertificateList", func(b *testing.B) {
		list := make([]CertificateResponse, 100)
		for i := range list {
			list[i] = cert
		}
		b.ReportAllocs()
		b.ResetTimer()
		for i := 0; i < b.N; i++ {
			if _, err := json.Marshal(list); err != nil {
				b.Fatal(err)
			}
		}
	})

	b.Run("ScanResponse", func(b *testing.B) {
		b.ReportAllocs()
		b.ResetTimer()
		for i := 0; i < b.N; i++ {
			if _, err := json.Marshal(scan); err != nil {
				b.Fatal(err)
			}
		}
	})

	b.Run("ErrorResponse", func(b *testing.B) {
		resp := dto.ErrorResponse{
			Error: "Validation failed",
			Details: map[string]string{
				"hosts":     "At least one host is required",
				"frequency": "Frequency must be one of: hourly, daily, weekly, monthly, custom",
			},
		}
		b.ReportAllocs()
		b.ResetTimer()
		for i := 0; i < b.N; i++ {
			if _, err := json.Marshal(resp); err != nil {
				b.Fatal(err)
			}
		}
	})
}
