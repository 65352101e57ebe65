package scanner

import (
	"math"
	"time"

	"github.com/lena/certscope/internal/database/models"
)

// DefaultWarningDays is the expiry window that flips a certificate from
// valid to warning.
const DefaultWarningDays = 30

type Classification struct {
	Status        models.CertStatus
	DaysRemaining int
	SelfSigned    bool
}

// Classify derives expiry health from the validity window. daysRemaining
// is floor((validTo - now) / 24h), so a certificate that expired an hour
// ago is already at -1. issuer and subject must come from the same DN
// formatter for the self-signed comparison to mean anything.
func Classify(validTo time.Time, issuer, subject string, now time.Time, warningDays int) Classification {
	if warningDays <= 0 {
		warningDays = DefaultWarningDays
	}

	days := int(math.Floor(validTo.Sub(now).Hours() / 24))

	status := models.CertStatusValid
	switch {
	case days < 0:
		status = models.CertStatusExpired
	case days < warningDays:
		status = models.CertStatusWarning
	}

	return Classification{
		Status:        status,
		DaysRemaining: days,
		SelfSigned:    issuer == subject,
	}
}
