package scanner

import (
	"context"

	"github.com/lena/certscope/internal/database/models"
)

// CertScannerInterface defines the interface for certificate scanning operations.
type CertScannerInterface interface {
	Probe(ctx context.Context, host string, port int) (*ProbeResult, error)
	ScanTarget(ctx context.Context, host string, port int) models.Certificate
	Scan(ctx context.Context, hosts []string, ports []int) []models.Certificate
}

// Compile-time interface satisfaction checks
var _ CertScannerInterface = (*CertScanner)(nil)
