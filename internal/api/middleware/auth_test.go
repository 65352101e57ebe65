package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
)

func okHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("OK"))
	})
}

func TestAPIKey_ValidKey_Header(t *testing.T) {
	handler := APIKey("secret-key")(okHandler())

	req := httptest.NewRequest("GET", "/api/v1/certificates", nil)
	req.Header.Set("X-API-Key", "secret-key")

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "OK", rec.Body.String())
}

func TestAPIKey_ValidKey_BearerToken(t *testing.T) {
	handler := APIKey("secret-key")(okHandler())

	req := httptest.NewRequest("GET", "/api/v1/certificates", nil)
	req.Header.Set("Authorization", "Bearer secret-key")

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestAPIKey_MissingKey(t *testing.T) {
	handler := APIKey("secret-key")(okHandler())

	req := httptest.NewRequest("GET", "/api/v1/certificates", nil)

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestAPIKey_WrongKey(t *testing.T) {
	handler := APIKey("secret-key")(okHandler())

	req := httptest.NewRequest("GET", "/api/v1/certificates", nil)
	req.Header.Set("X-API-Key", "wrong-key")

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestAPIKey_HeaderTakesPrecedenceOverBearer(t *testing.T) {
	handler := APIKey("secret-key")(okHandler())

	req := httptest.NewRequest("GET", "/api/v1/certificates", nil)
	req.Header.Set("X-API-Key", "wrong-key")
	req.Header.Set("Authorization", "Bearer secret-key")

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestAPIKey_EmptyKeyDisablesCheck(t *testing.T) {
	handler := APIKey("")(okHandler())

	req := httptest.NewRequest("GET", "/api/v1/certificates", nil)

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
}
