package scanner

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/lena/certscope/internal/database/models"
)

func TestClassify_StatusBoundaries(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

	tests := []struct {
		name       string
		validTo    time.Time
		wantStatus models.CertStatus
		wantDays   int
	}{
		{"expired an hour ago", now.Add(-time.Hour), models.CertStatusExpired, -1},
		{"expired three weeks ago", now.Add(-21 * 24 * time.Hour), models.CertStatusExpired, -21},
		{"expires within the hour", now.Add(30 * time.Minute), models.CertStatusWarning, 0},
		{"one and a half days left", now.Add(36 * time.Hour), models.CertStatusWarning, 1},
		{"just under the warning cutoff", now.Add(29*24*time.Hour + time.Hour), models.CertStatusWarning, 29},
		{"exactly at the warning cutoff", now.Add(30 * 24 * time.Hour), models.CertStatusValid, 30},
		{"a year out", now.Add(365 * 24 * time.Hour), models.CertStatusValid, 365},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cls := Classify(tt.validTo, "CN=Issuer", "CN=Subject", now, 30)
			assert.Equal(t, tt.wantStatus, cls.Status)
			assert.Equal(t, tt.wantDays, cls.DaysRemaining)
		})
	}
}

func TestClassify_CustomWarningWindow(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	validTo := now.Add(10 * 24 * time.Hour)

	// Ten days out is a warning with the default window but fine with a
	// seven day window.
	cls := Classify(validTo, "CN=A", "CN=B", now, 30)
	assert.Equal(t, models.CertStatusWarning, cls.Status)

	cls = Classify(validTo, "CN=A", "CN=B", now, 7)
	assert.Equal(t, models.CertStatusValid, cls.Status)
	assert.Equal(t, 10, cls.DaysRemaining)
}

func TestClassify_ZeroWindowFallsBackToDefault(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

	cls := Classify(now.Add(10*24*time.Hour), "CN=A", "CN=B", now, 0)
	assert.Equal(t, models.CertStatusWarning, cls.Status)
}

func TestClassify_SelfSigned(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	validTo := now.Add(90 * 24 * time.Hour)

	same := "CN=self.example.com, O=Self"
	cls := Classify(validTo, same, same, now, 30)
	assert.True(t, cls.SelfSigned)

	cls = Classify(validTo, "CN=Some CA, O=Trust Inc", "CN=self.example.com, O=Self", now, 30)
	assert.False(t, cls.SelfSigned)
}
