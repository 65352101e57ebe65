package testutil

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/lena/certscope/internal/database/models"
)

// SetupTestDB creates an in-memory SQLite database for testing
func SetupTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("failed to create test database: %v", err)
	}

	// Run migrations
	err = db.AutoMigrate(
		&models.Certificate{},
		&models.ScanDefinition{},
		&models.ProviderCredential{},
		&models.Endpoint{},
	)
	if err != nil {
		t.Fatalf("failed to migrate test database: %v", err)
	}

	return db
}

// CleanupTestDB closes the test database connection
func CleanupTestDB(t *testing.T, db *gorm.DB) {
	t.Helper()
	sqlDB, err := db.DB()
	if err != nil {
		t.Logf("warning: failed to get sql.DB: %v", err)
		return
	}
	sqlDB.Close()
}

// CreateTestCertificate creates a stored certificate record
func CreateTestCertificate(t *testing.T, db *gorm.DB, host string, port int, status models.CertStatus) *models.Certificate {
	t.Helper()

	validFrom := time.Now().Add(-24 * time.Hour)
	validTo := time.Now().Add(60 * 24 * time.Hour)

	cert := &models.Certificate{
		Base: models.Base{
			ID: uuid.New(),
		},
		Host:          host,
		Port:          port,
		Subject:       "CN=" + host,
		Issuer:        "CN=" + host,
		CommonName:    host,
		Fingerprint:   "ab:12:cd:34:ef:56:ab:78:cd:90:ef:12:ab:34:cd:56:ef:78:ab:90:cd:12:ef:34:ab:56:cd:78:ef:90:ab:12",
		ValidFrom:     &validFrom,
		ValidTo:       &validTo,
		SelfSigned:    true,
		DaysRemaining: 60,
		KeyUsage:      []string{"Digital Signature"},
		Status:        status,
		LastScanned:   time.Now(),
	}

	if err := db.Create(cert).Error; err != nil {
		t.Fatalf("failed to create test certificate: %v", err)
	}

	return cert
}

// CreateTestScanDefinition creates a scan definition with the given cadence
func CreateTestScanDefinition(t *testing.T, db *gorm.DB, name string, frequency models.ScanFrequency) *models.ScanDefinition {
	t.Helper()

	scan := &models.ScanDefinition{
		Base: models.Base{
			ID: uuid.New(),
		},
		Name:      name,
		Hosts:     []string{"example.com"},
		Ports:     []int{443},
		Frequency: frequency,
		Active:    true,
	}
	if frequency == models.FrequencyCustom {
		scan.CronExpr = "*/5 * * * *"
	}

	if err := db.Create(scan).Error; err != nil {
		t.Fatalf("failed to create test scan definition: %v", err)
	}

	return scan
}

// CreateTestCredential creates a provider credential with opaque payload bytes
func CreateTestCredential(t *testing.T, db *gorm.DB, provider models.CloudProvider, encrypted []byte) *models.ProviderCredential {
	t.Helper()

	cred := &models.ProviderCredential{
		Base: models.Base{
			ID: uuid.New(),
		},
		Name:          "test-" + string(provider) + "-" + uuid.New().String()[:8],
		Provider:      provider,
		EncryptedData: encrypted,
		IsActive:      true,
	}

	if err := db.Create(cred).Error; err != nil {
		t.Fatalf("failed to create test credential: %v", err)
	}

	return cred
}

// CreateTestEndpoint creates a discovered endpoint row
func CreateTestEndpoint(t *testing.T, db *gorm.DB, value, source string) *models.Endpoint {
	t.Helper()

	now := time.Now().Unix()
	endpoint := &models.Endpoint{
		Base: models.Base{
			ID: uuid.New(),
		},
		Value:        value,
		Source:       source,
		Metadata:     "{}",
		DiscoveredAt: now,
		LastSeenAt:   now,
		IsActive:     true,
	}

	if err := db.Create(endpoint).Error; err != nil {
		t.Fatalf("failed to create test endpoint: %v", err)
	}

	return endpoint
}

// AuthenticatedRequest creates an HTTP request carrying the API key header
func AuthenticatedRequest(t *testing.T, method, path string, body interface{}, apiKey string) *http.Request {
	t.Helper()

	var reqBody *bytes.Buffer
	if body != nil {
		jsonData, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("failed to marshal request body: %v", err)
		}
		reqBody = bytes.NewBuffer(jsonData)
	} else {
		reqBody = bytes.NewBuffer(nil)
	}

	req := httptest.NewRequest(method, path, reqBody)
	req.Header.Set("Content-Type", "application/json")
	if apiKey != "" {
		req.Header.Set("X-API-Key", apiKey)
	}

	return req
}

// UnauthenticatedRequest creates an HTTP request without the API key header
func UnauthenticatedRequest(t *testing.T, method, path string, body interface{}) *http.Request {
	t.Helper()
	return AuthenticatedRequest(t, method, path, body, "")
}

// AssertStatus checks if the response has the expected status code
func AssertStatus(t *testing.T, rr *httptest.ResponseRecorder, expected int) {
	t.Helper()
	if rr.Code != expected {
		t.Errorf("expected status %d, got %d. Body: %s", expected, rr.Code, rr.Body.String())
	}
}

// ParseJSONResponse parses the response body into the given struct
func ParseJSONResponse(t *testing.T, rr *httptest.ResponseRecorder, v interface{}) {
	t.Helper()

	if err := json.Unmarshal(rr.Body.Bytes(), v); err != nil {
		t.Fatalf("failed to parse response body: %v. Body: %s", err, rr.Body.String())
	}
}
