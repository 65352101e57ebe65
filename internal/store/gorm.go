package store

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/lena/certscope/internal/database/models"
)

// certUpdateColumns are the columns a rescan overwrites when the target
// row already exists.
var certUpdateColumns = []string{
	"subject",
	"issuer",
	"common_name",
	"organization",
	"valid_from",
	"valid_to",
	"fingerprint",
	"signature_algorithm",
	"self_signed",
	"days_remaining",
	"key_usage",
	"status",
	"error",
	"last_scanned",
	"updated_at",
}

// GormStore implements Store on a GORM connection.
type GormStore struct {
	db *gorm.DB
}

func NewGormStore(db *gorm.DB) *GormStore {
	return &GormStore{db: db}
}

// Compile-time interface satisfaction check
var _ Store = (*GormStore)(nil)

func (s *GormStore) UpsertCertificate(ctx context.Context, record *models.Certificate) error {
	return s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{
			{Name: "host"},
			{Name: "port"},
		},
		DoUpdates: clause.AssignmentColumns(certUpdateColumns),
	}).Create(record).Error
}

func (s *GormStore) UpsertCertificates(ctx context.Context, records []models.Certificate) error {
	if len(records) == 0 {
		return nil
	}
	return s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{
			{Name: "host"},
			{Name: "port"},
		},
		DoUpdates: clause.AssignmentColumns(certUpdateColumns),
	}).Create(&records).Error
}

func (s *GormStore) ListCertificates(ctx context.Context) ([]models.Certificate, error) {
	var records []models.Certificate
	if err := s.db.WithContext(ctx).
		Order("host ASC, port ASC").
		Find(&records).Error; err != nil {
		return nil, err
	}
	return records, nil
}

func (s *GormStore) CreateScanDefinition(ctx context.Context, scan *models.ScanDefinition) error {
	return s.db.WithContext(ctx).Create(scan).Error
}

func (s *GormStore) UpdateScanDefinition(ctx context.Context, scan *models.ScanDefinition) error {
	return s.db.WithContext(ctx).Save(scan).Error
}

func (s *GormStore) GetScanDefinition(ctx context.Context, id uuid.UUID) (*models.ScanDefinition, error) {
	var scan models.ScanDefinition
	if err := s.db.WithContext(ctx).
		Where("id = ?", id).
		First(&scan).Error; err != nil {
		return nil, err
	}
	return &scan, nil
}

func (s *GormStore) ListScanDefinitions(ctx context.Context) ([]models.ScanDefinition, error) {
	var scans []models.ScanDefinition
	if err := s.db.WithContext(ctx).
		Order("created_at DESC").
		Find(&scans).Error; err != nil {
		return nil, err
	}
	return scans, nil
}

func (s *GormStore) ListActiveScanDefinitions(ctx context.Context) ([]models.ScanDefinition, error) {
	var scans []models.ScanDefinition
	if err := s.db.WithContext(ctx).
		Where("active = ?", true).
		Order("created_at DESC").
		Find(&scans).Error; err != nil {
		return nil, err
	}
	return scans, nil
}

func (s *GormStore) DeleteScanDefinition(ctx context.Context, id uuid.UUID) error {
	result := s.db.WithContext(ctx).
		Where("id = ?", id).
		Delete(&models.ScanDefinition{})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

func (s *GormStore) UpdateScanRunTimes(ctx context.Context, id uuid.UUID, lastRun, nextRun *int64) error {
	updates := make(map[string]interface{}, 2)
	if lastRun != nil {
		updates["last_run_at"] = *lastRun
	}
	if nextRun != nil {
		updates["next_run_at"] = *nextRun
	}
	if len(updates) == 0 {
		return nil
	}

	result := s.db.WithContext(ctx).
		Model(&models.ScanDefinition{}).
		Where("id = ?", id).
		Updates(updates)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}
