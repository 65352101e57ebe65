package store

import (
	"context"

	"github.com/google/uuid"

	"github.com/lena/certscope/internal/database/models"
)

// Store is the persistence boundary for scan state. Implementations keep
// one certificate row per (host, port) target and never let two rows for
// the same target coexist.
type Store interface {
	UpsertCertificate(ctx context.Context, record *models.Certificate) error
	UpsertCertificates(ctx context.Context, records []models.Certificate) error
	ListCertificates(ctx context.Context) ([]models.Certificate, error)

	CreateScanDefinition(ctx context.Context, scan *models.ScanDefinition) error
	UpdateScanDefinition(ctx context.Context, scan *models.ScanDefinition) error
	GetScanDefinition(ctx context.Context, id uuid.UUID) (*models.ScanDefinition, error)
	ListScanDefinitions(ctx context.Context) ([]models.ScanDefinition, error)
	ListActiveScanDefinitions(ctx context.Context) ([]models.ScanDefinition, error)
	DeleteScanDefinition(ctx context.Context, id uuid.UUID) error

	// UpdateScanRunTimes is the scheduler's narrow mutation: it touches the
	// run bookkeeping columns and nothing else. Nil leaves a column alone.
	UpdateScanRunTimes(ctx context.Context, id uuid.UUID, lastRun, nextRun *int64) error
}
