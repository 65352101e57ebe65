package handlers_test

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/lena/certscope/internal/api/dto"
	"github.com/lena/certscope/internal/api/handlers"
	"github.com/lena/certscope/internal/api/middleware"
	"github.com/lena/certscope/internal/database/models"
	"github.com/lena/certscope/internal/discovery"
	"github.com/lena/certscope/internal/testutil"
	"github.com/lena/certscope/pkg/crypto"
)

func setupCredentialTestRouter(t *testing.T) (*chi.Mux, *gorm.DB, *crypto.Encryptor) {
	t.Helper()

	db := testutil.SetupTestDB(t)
	t.Cleanup(func() { testutil.CleanupTestDB(t, db) })

	encryptor, err := crypto.NewEncryptor("")
	require.NoError(t, err)

	service := discovery.NewService(db, encryptor, testLogger())
	handler := handlers.NewCredentialHandler(service)

	r := chi.NewRouter()
	r.Use(middleware.APIKey(testAPIKey))
	r.Route("/api/v1/credentials", func(r chi.Router) {
		r.Get("/", handler.List)
		r.Post("/", handler.Create)
		r.Delete("/{id}", handler.Delete)
		r.Post("/{id}/validate", handler.Validate)
	})

	return r, db, encryptor
}

func TestCredentialHandler_Create(t *testing.T) {
	router, _, _ := setupCredentialTestRouter(t)

	tests := []struct {
		name       string
		body       map[string]interface{}
		wantStatus int
	}{
		{
			name: "create aws credential",
			body: map[string]interface{}{
				"name":     "prod-aws",
				"provider": "aws",
				"data": map[string]interface{}{
					"access_key_id":     "AKIAEXAMPLE",
					"secret_access_key": "secret123",
					"region":            "us-east-1",
				},
			},
			wantStatus: http.StatusCreated,
		},
		{
			name: "create digitalocean credential",
			body: map[string]interface{}{
				"name":     "do-main",
				"provider": "digitalocean",
				"data": map[string]interface{}{
					"api_token": "dop_v1_example",
				},
			},
			wantStatus: http.StatusCreated,
		},
		{
			name: "missing name",
			body: map[string]interface{}{
				"provider": "aws",
				"data": map[string]interface{}{
					"access_key_id":     "AKIAEXAMPLE",
					"secret_access_key": "secret123",
				},
			},
			wantStatus: http.StatusBadRequest,
		},
		{
			name: "missing provider",
			body: map[string]interface{}{
				"name": "orphan",
				"data": map[string]interface{}{"api_token": "x"},
			},
			wantStatus: http.StatusBadRequest,
		},
		{
			name: "unsupported provider",
			body: map[string]interface{}{
				"name":     "gcp-main",
				"provider": "gcp",
				"data":     map[string]interface{}{"service_account": "{}"},
			},
			wantStatus: http.StatusBadRequest,
		},
		{
			name: "missing data",
			body: map[string]interface{}{
				"name":     "empty-handed",
				"provider": "aws",
			},
			wantStatus: http.StatusBadRequest,
		},
		{
			name: "aws missing secret",
			body: map[string]interface{}{
				"name":     "half-aws",
				"provider": "aws",
				"data": map[string]interface{}{
					"access_key_id": "AKIAEXAMPLE",
				},
			},
			wantStatus: http.StatusBadRequest,
		},
		{
			name: "cloudflare key without email",
			body: map[string]interface{}{
				"name":     "cf-legacy",
				"provider": "cloudflare",
				"data": map[string]interface{}{
					"api_key": "legacykey",
				},
			},
			wantStatus: http.StatusBadRequest,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := testutil.AuthenticatedRequest(t, "POST", "/api/v1/credentials", tt.body, testAPIKey)
			rr := httptest.NewRecorder()
			router.ServeHTTP(rr, req)

			assert.Equal(t, tt.wantStatus, rr.Code, "Body: %s", rr.Body.String())

			if tt.wantStatus == http.StatusCreated {
				var resp handlers.CredentialResponse
				testutil.ParseJSONResponse(t, rr, &resp)
				assert.NotEmpty(t, resp.ID)
				assert.Equal(t, tt.body["name"], resp.Name)
				assert.Equal(t, tt.body["provider"], resp.Provider)
				assert.True(t, resp.IsActive)

				// Secrets never travel back out
				assert.NotContains(t, rr.Body.String(), "secret123")
				assert.NotContains(t, rr.Body.String(), "encrypted_data")
			}
		})
	}
}

func TestCredentialHandler_List(t *testing.T) {
	router, db, _ := setupCredentialTestRouter(t)

	testutil.CreateTestCredential(t, db, models.ProviderAWS, []byte("sealed"))
	testutil.CreateTestCredential(t, db, models.ProviderDigitalOcean, []byte("sealed"))

	req := testutil.AuthenticatedRequest(t, "GET", "/api/v1/credentials", nil, testAPIKey)
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	testutil.AssertStatus(t, rr, http.StatusOK)

	var resp []handlers.CredentialResponse
	testutil.ParseJSONResponse(t, rr, &resp)
	assert.Len(t, resp, 2)
	assert.NotContains(t, rr.Body.String(), "sealed")
	assert.NotContains(t, rr.Body.String(), "encrypted_data")
}

func TestCredentialHandler_Delete(t *testing.T) {
	router, db, _ := setupCredentialTestRouter(t)

	t.Run("delete existing credential", func(t *testing.T) {
		cred := testutil.CreateTestCredential(t, db, models.ProviderAWS, []byte("sealed"))

		req := testutil.AuthenticatedRequest(t, "DELETE", "/api/v1/credentials/"+cred.ID.String(), nil, testAPIKey)
		rr := httptest.NewRecorder()
		router.ServeHTTP(rr, req)

		testutil.AssertStatus(t, rr, http.StatusOK)

		var resp dto.SuccessResponse
		testutil.ParseJSONResponse(t, rr, &resp)
		assert.Equal(t, "Credential deleted", resp.Message)
	})

	t.Run("delete non-existent credential", func(t *testing.T) {
		req := testutil.AuthenticatedRequest(t, "DELETE", "/api/v1/credentials/"+uuid.New().String(), nil, testAPIKey)
		rr := httptest.NewRecorder()
		router.ServeHTTP(rr, req)

		testutil.AssertStatus(t, rr, http.StatusNotFound)
	})

	t.Run("invalid uuid", func(t *testing.T) {
		req := testutil.AuthenticatedRequest(t, "DELETE", "/api/v1/credentials/nope", nil, testAPIKey)
		rr := httptest.NewRecorder()
		router.ServeHTTP(rr, req)

		testutil.AssertStatus(t, rr, http.StatusBadRequest)
	})
}

func TestCredentialHandler_Validate(t *testing.T) {
	router, db, encryptor := setupCredentialTestRouter(t)

	t.Run("non-existent credential", func(t *testing.T) {
		req := testutil.AuthenticatedRequest(t, "POST", "/api/v1/credentials/"+uuid.New().String()+"/validate", nil, testAPIKey)
		rr := httptest.NewRecorder()
		router.ServeHTTP(rr, req)

		testutil.AssertStatus(t, rr, http.StatusNotFound)
	})

	t.Run("provider with no integration", func(t *testing.T) {
		sealed, err := encryptor.Encrypt([]byte(`{"api_token":"x"}`))
		require.NoError(t, err)
		cred := testutil.CreateTestCredential(t, db, models.CloudProvider("gcp"), sealed)

		req := testutil.AuthenticatedRequest(t, "POST", "/api/v1/credentials/"+cred.ID.String()+"/validate", nil, testAPIKey)
		rr := httptest.NewRecorder()
		router.ServeHTTP(rr, req)

		testutil.AssertStatus(t, rr, http.StatusBadRequest)

		var resp dto.ErrorResponse
		testutil.ParseJSONResponse(t, rr, &resp)
		assert.Contains(t, resp.Error, "unsupported provider")
	})

	t.Run("invalid uuid", func(t *testing.T) {
		req := testutil.AuthenticatedRequest(t, "POST", "/api/v1/credentials/bad/validate", nil, testAPIKey)
		rr := httptest.NewRecorder()
		router.ServeHTTP(rr, req)

		testutil.AssertStatus(t, rr, http.StatusBadRequest)
	})
}
