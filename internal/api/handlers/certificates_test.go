package handlers_test

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/lena/certscope/internal/api/handlers"
	"github.com/lena/certscope/internal/api/middleware"
	"github.com/lena/certscope/internal/database/models"
	"github.com/lena/certscope/internal/store"
	"github.com/lena/certscope/internal/testutil"
)

func setupCertificateTestRouter(t *testing.T) (*chi.Mux, *gorm.DB) {
	t.Helper()

	db := testutil.SetupTestDB(t)
	t.Cleanup(func() { testutil.CleanupTestDB(t, db) })

	handler := handlers.NewCertificateHandler(store.NewGormStore(db))

	r := chi.NewRouter()
	r.Use(middleware.APIKey(testAPIKey))
	r.Get("/api/v1/certificates", handler.List)

	return r, db
}

func TestCertificateHandler_List(t *testing.T) {
	router, db := setupCertificateTestRouter(t)

	t.Run("empty store", func(t *testing.T) {
		req := testutil.AuthenticatedRequest(t, "GET", "/api/v1/certificates", nil, testAPIKey)
		rr := httptest.NewRecorder()
		router.ServeHTTP(rr, req)

		testutil.AssertStatus(t, rr, http.StatusOK)
		assert.JSONEq(t, "[]", rr.Body.String())
	})

	t.Run("records sorted by host then port", func(t *testing.T) {
		testutil.CreateTestCertificate(t, db, "zulu.example.com", 443, models.CertStatusValid)
		testutil.CreateTestCertificate(t, db, "alpha.example.com", 8443, models.CertStatusWarning)
		testutil.CreateTestCertificate(t, db, "alpha.example.com", 443, models.CertStatusValid)

		req := testutil.AuthenticatedRequest(t, "GET", "/api/v1/certificates", nil, testAPIKey)
		rr := httptest.NewRecorder()
		router.ServeHTTP(rr, req)

		testutil.AssertStatus(t, rr, http.StatusOK)

		var resp []handlers.CertificateResponse
		testutil.ParseJSONResponse(t, rr, &resp)
		require.Len(t, resp, 3)
		assert.Equal(t, "alpha.example.com", resp[0].Host)
		assert.Equal(t, 443, resp[0].Port)
		assert.Equal(t, "alpha.example.com", resp[1].Host)
		assert.Equal(t, 8443, resp[1].Port)
		assert.Equal(t, "zulu.example.com", resp[2].Host)
	})

	t.Run("field mapping", func(t *testing.T) {
		req := testutil.AuthenticatedRequest(t, "GET", "/api/v1/certificates", nil, testAPIKey)
		rr := httptest.NewRecorder()
		router.ServeHTTP(rr, req)

		testutil.AssertStatus(t, rr, http.StatusOK)

		var resp []handlers.CertificateResponse
		testutil.ParseJSONResponse(t, rr, &resp)
		require.NotEmpty(t, resp)

		first := resp[0]
		assert.NotEmpty(t, first.ID)
		assert.Equal(t, "valid", first.Status)
		assert.True(t, first.SelfSigned)
		assert.Equal(t, 60, first.DaysRemaining)
		assert.Equal(t, []string{"Digital Signature"}, first.KeyUsage)
		assert.NotEmpty(t, first.Fingerprint)
		require.NotNil(t, first.ValidFrom)
		require.NotNil(t, first.ValidTo)
		assert.NotEmpty(t, first.LastScanned)
	})
}

func TestCertificateHandler_List_Unauthorized(t *testing.T) {
	router, _ := setupCertificateTestRouter(t)

	req := testutil.UnauthenticatedRequest(t, "GET", "/api/v1/certificates", nil)
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	testutil.AssertStatus(t, rr, http.StatusUnauthorized)
}
