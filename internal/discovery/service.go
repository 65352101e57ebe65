package discovery

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/lena/certscope/internal/database/models"
	"github.com/lena/certscope/internal/discovery/aws"
	"github.com/lena/certscope/internal/discovery/azure"
	"github.com/lena/certscope/internal/discovery/cloudflare"
	"github.com/lena/certscope/internal/discovery/digitalocean"
	"github.com/lena/certscope/pkg/crypto"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Service handles provider credential management and endpoint discovery
type Service struct {
	db        *gorm.DB
	encryptor *crypto.Encryptor
	logger    *slog.Logger
	cfg       ProviderConfig
}

// NewService creates a new discovery service
func NewService(db *gorm.DB, encryptor *crypto.Encryptor, logger *slog.Logger) *Service {
	return &Service{
		db:        db,
		encryptor: encryptor,
		logger:    logger,
		cfg:       DefaultProviderConfig(),
	}
}

// CreateCredential encrypts and stores a new provider credential
func (s *Service) CreateCredential(ctx context.Context, name string, provider models.CloudProvider, credData interface{}) (*models.ProviderCredential, error) {
	// Serialize credential data to JSON
	jsonData, err := json.Marshal(credData)
	if err != nil {
		return nil, fmt.Errorf("serializing credentials: %w", err)
	}

	// Encrypt the credential data
	encrypted, err := s.encryptor.Encrypt(jsonData)
	if err != nil {
		return nil, fmt.Errorf("encrypting credentials: %w", err)
	}

	cred := &models.ProviderCredential{
		Name:          name,
		Provider:      provider,
		EncryptedData: encrypted,
		IsActive:      true,
	}

	if err := s.db.WithContext(ctx).Create(cred).Error; err != nil {
		return nil, fmt.Errorf("saving credential: %w", err)
	}

	s.logger.Info("created credential",
		"id", cred.ID,
		"name", name,
		"provider", provider,
	)

	return cred, nil
}

// GetCredential retrieves a credential by ID (encrypted data not decrypted)
func (s *Service) GetCredential(ctx context.Context, credID uuid.UUID) (*models.ProviderCredential, error) {
	var cred models.ProviderCredential
	if err := s.db.WithContext(ctx).
		Where("id = ?", credID).
		First(&cred).Error; err != nil {
		return nil, err
	}
	return &cred, nil
}

// ListCredentials returns all stored credentials without their payloads
func (s *Service) ListCredentials(ctx context.Context) ([]models.ProviderCredential, error) {
	var creds []models.ProviderCredential
	if err := s.db.WithContext(ctx).
		Order("created_at DESC").
		Find(&creds).Error; err != nil {
		return nil, err
	}

	// Clear encrypted data from response
	for i := range creds {
		creds[i].EncryptedData = nil
	}

	return creds, nil
}

// DeleteCredential removes a credential
func (s *Service) DeleteCredential(ctx context.Context, credID uuid.UUID) error {
	result := s.db.WithContext(ctx).
		Where("id = ?", credID).
		Delete(&models.ProviderCredential{})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

// ValidateCredential tests if a credential is valid
func (s *Service) ValidateCredential(ctx context.Context, credID uuid.UUID) error {
	cred, err := s.GetCredential(ctx, credID)
	if err != nil {
		return err
	}

	provider, err := s.getProvider(cred)
	if err != nil {
		return err
	}

	return provider.ValidateCredentials(ctx)
}

// DiscoverEndpoints runs endpoint discovery for the given credentials
func (s *Service) DiscoverEndpoints(ctx context.Context, credIDs []uuid.UUID) ([]DiscoveredEndpoint, error) {
	var allEndpoints []DiscoveredEndpoint

	for _, credID := range credIDs {
		cred, err := s.GetCredential(ctx, credID)
		if err != nil {
			s.logger.Error("failed to get credential", "id", credID, "error", err)
			continue
		}

		if !cred.IsActive {
			s.logger.Warn("skipping inactive credential", "id", credID)
			continue
		}

		provider, err := s.getProvider(cred)
		if err != nil {
			s.logger.Error("failed to create provider", "id", credID, "error", err)
			continue
		}

		// Validate credentials first
		if err := provider.ValidateCredentials(ctx); err != nil {
			s.logger.Error("invalid credentials", "id", credID, "error", err)
			continue
		}

		// Run discovery
		endpoints, err := provider.Discover(ctx)
		if err != nil {
			s.logger.Error("discovery failed", "id", credID, "error", err)
			continue
		}

		allEndpoints = append(allEndpoints, endpoints...)

		// Update last used timestamp
		s.db.WithContext(ctx).Model(cred).Update("last_used", time.Now().Unix())
	}

	return allEndpoints, nil
}

// SaveEndpoints stores discovered endpoints in the database
func (s *Service) SaveEndpoints(ctx context.Context, credID *uuid.UUID, discovered []DiscoveredEndpoint) (int, error) {
	now := time.Now().Unix()
	saved := 0

	for _, d := range discovered {
		// Hostnames are case-insensitive, normalize before keying on them
		value := strings.ToLower(strings.TrimSpace(d.Value))
		if value == "" {
			continue
		}

		metadataJSON, _ := json.Marshal(d.Metadata)
		ports := joinPorts(d.Ports)

		endpoint := models.Endpoint{
			Value:        value,
			Source:       d.Source,
			Ports:        ports,
			Metadata:     string(metadataJSON),
			CredentialID: credID,
			DiscoveredAt: now,
			LastSeenAt:   now,
			IsActive:     true,
		}

		// First, try to reactivate a soft-deleted endpoint if it exists
		reactivated := s.db.WithContext(ctx).Unscoped().
			Model(&models.Endpoint{}).
			Where("value = ? AND source = ? AND deleted_at IS NOT NULL", value, d.Source).
			Updates(map[string]interface{}{
				"deleted_at":   nil,
				"last_seen_at": now,
				"ports":        ports,
				"metadata":     string(metadataJSON),
				"is_active":    true,
			})

		if reactivated.RowsAffected > 0 {
			s.logger.Debug("reactivated soft-deleted endpoint",
				"value", value,
				"source", d.Source,
			)
			saved++
			continue
		}

		// Upsert: update if exists, create if not
		result := s.db.WithContext(ctx).Clauses(clause.OnConflict{
			Columns: []clause.Column{
				{Name: "value"},
				{Name: "source"},
			},
			DoUpdates: clause.AssignmentColumns([]string{
				"last_seen_at",
				"ports",
				"metadata",
				"is_active",
			}),
		}).Create(&endpoint)

		if result.Error != nil {
			s.logger.Error("failed to save endpoint",
				"value", value,
				"source", d.Source,
				"error", result.Error,
			)
			continue
		}
		saved++
	}

	s.logger.Info("saved discovered endpoints",
		"total", len(discovered),
		"saved", saved,
	)

	return saved, nil
}

// ListEndpoints returns all discovered endpoints, most recently seen first
func (s *Service) ListEndpoints(ctx context.Context) ([]models.Endpoint, error) {
	var endpoints []models.Endpoint
	if err := s.db.WithContext(ctx).
		Order("last_seen_at DESC, value ASC").
		Find(&endpoints).Error; err != nil {
		return nil, err
	}
	return endpoints, nil
}

// getProvider creates a provider instance from a credential
func (s *Service) getProvider(cred *models.ProviderCredential) (Provider, error) {
	// Decrypt credential data
	decrypted, err := s.encryptor.Decrypt(cred.EncryptedData)
	if err != nil {
		return nil, fmt.Errorf("decrypting credentials: %w", err)
	}

	switch cred.Provider {
	case models.ProviderAWS:
		var awsCred AWSCredential
		if err := json.Unmarshal(decrypted, &awsCred); err != nil {
			return nil, fmt.Errorf("parsing AWS credentials: %w", err)
		}
		return aws.New(awsCred, s.cfg, s.logger), nil

	case models.ProviderAzure:
		var azureCred AzureCredential
		if err := json.Unmarshal(decrypted, &azureCred); err != nil {
			return nil, fmt.Errorf("parsing Azure credentials: %w", err)
		}
		return azure.New(azureCred, s.cfg, s.logger), nil

	case models.ProviderDigitalOcean:
		var doCred DigitalOceanCredential
		if err := json.Unmarshal(decrypted, &doCred); err != nil {
			return nil, fmt.Errorf("parsing DigitalOcean credentials: %w", err)
		}
		return digitalocean.New(doCred, s.cfg, s.logger), nil

	case models.ProviderCloudflare:
		var cfCred CloudflareCredential
		if err := json.Unmarshal(decrypted, &cfCred); err != nil {
			return nil, fmt.Errorf("parsing Cloudflare credentials: %w", err)
		}
		return cloudflare.New(cfCred, s.cfg, s.logger), nil

	default:
		return nil, fmt.Errorf("unsupported provider: %s", cred.Provider)
	}
}

func joinPorts(ports []int) string {
	if len(ports) == 0 {
		return ""
	}
	parts := make([]string, len(ports))
	for i, port := range ports {
		parts[i] = strconv.Itoa(port)
	}
	return strings.Join(parts, ",")
}
