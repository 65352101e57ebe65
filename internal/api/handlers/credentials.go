package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/lena/certscope/internal/api/dto"
	"github.com/lena/certscope/internal/api/validation"
	"github.com/lena/certscope/internal/database/models"
	"github.com/lena/certscope/internal/discovery"
)

type CredentialHandler struct {
	service *discovery.Service
}

func NewCredentialHandler(service *discovery.Service) *CredentialHandler {
	return &CredentialHandler{service: service}
}

// CreateCredentialRequest represents the request to store provider
// credentials
type CreateCredentialRequest struct {
	Name     string                 `json:"name"`
	Provider string                 `json:"provider"`
	Data     map[string]interface{} `json:"data"`
}

func (r CreateCredentialRequest) Validate() map[string]string {
	errs := make(map[string]string)
	if r.Name == "" {
		errs["name"] = "Name is required"
	}
	if r.Provider == "" {
		errs["provider"] = "Provider is required"
		return errs
	}
	if len(r.Data) == 0 {
		errs["data"] = "Credential data is required"
		return errs
	}
	for field, msg := range validation.ValidateCredentialData(r.Provider, r.Data) {
		errs[field] = msg
	}
	return errs
}

// CredentialResponse represents a credential in API responses; the secret
// payload never appears here
type CredentialResponse struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	Provider  string `json:"provider"`
	IsActive  bool   `json:"is_active"`
	LastUsed  int64  `json:"last_used,omitempty"`
	CreatedAt string `json:"created_at"`
}

func credentialToResponse(cred *models.ProviderCredential) CredentialResponse {
	return CredentialResponse{
		ID:        cred.ID.String(),
		Name:      cred.Name,
		Provider:  string(cred.Provider),
		IsActive:  cred.IsActive,
		LastUsed:  cred.LastUsed,
		CreatedAt: cred.CreatedAt.Format(time.RFC3339),
	}
}

// Create handles POST /api/v1/credentials
func (h *CredentialHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req CreateCredentialRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, dto.ErrorResponse{Error: "Invalid request body"})
		return
	}

	if errs := req.Validate(); len(errs) > 0 {
		writeJSON(w, http.StatusBadRequest, dto.ErrorResponse{Error: "Validation failed", Details: errs})
		return
	}

	credData, err := convertCredentialData(models.CloudProvider(req.Provider), req.Data)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, dto.ErrorResponse{Error: err.Error()})
		return
	}

	cred, err := h.service.CreateCredential(r.Context(), req.Name, models.CloudProvider(req.Provider), credData)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, dto.ErrorResponse{Error: "Failed to create credential"})
		return
	}

	writeJSON(w, http.StatusCreated, credentialToResponse(cred))
}

// List handles GET /api/v1/credentials
func (h *CredentialHandler) List(w http.ResponseWriter, r *http.Request) {
	creds, err := h.service.ListCredentials(r.Context())
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, dto.ErrorResponse{Error: "Failed to list credentials"})
		return
	}

	response := make([]CredentialResponse, len(creds))
	for i := range creds {
		response[i] = credentialToResponse(&creds[i])
	}

	writeJSON(w, http.StatusOK, response)
}

// Delete handles DELETE /api/v1/credentials/{id}
func (h *CredentialHandler) Delete(w http.ResponseWriter, r *http.Request) {
	credID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, dto.ErrorResponse{Error: "Invalid credential ID"})
		return
	}

	if err := h.service.DeleteCredential(r.Context(), credID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			writeJSON(w, http.StatusNotFound, dto.ErrorResponse{Error: "Credential not found"})
			return
		}
		writeJSON(w, http.StatusInternalServerError, dto.ErrorResponse{Error: "Failed to delete credential"})
		return
	}

	writeJSON(w, http.StatusOK, dto.SuccessResponse{Message: "Credential deleted"})
}

// Validate handles POST /api/v1/credentials/{id}/validate, checking the
// stored credentials against the provider's API.
func (h *CredentialHandler) Validate(w http.ResponseWriter, r *http.Request) {
	credID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, dto.ErrorResponse{Error: "Invalid credential ID"})
		return
	}

	if err := h.service.ValidateCredential(r.Context(), credID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			writeJSON(w, http.StatusNotFound, dto.ErrorResponse{Error: "Credential not found"})
			return
		}
		writeJSON(w, http.StatusBadRequest, dto.ErrorResponse{Error: err.Error()})
		return
	}

	writeJSON(w, http.StatusOK, dto.SuccessResponse{Message: "Credential is valid"})
}

// convertCredentialData converts the loose request map into the typed
// credential struct for the provider, so bad field names fail here and
// not inside a discovery sweep.
func convertCredentialData(provider models.CloudProvider, data map[string]interface{}) (interface{}, error) {
	jsonData, err := json.Marshal(data)
	if err != nil {
		return nil, err
	}

	switch provider {
	case models.ProviderAWS:
		var cred discovery.AWSCredential
		if err := json.Unmarshal(jsonData, &cred); err != nil {
			return nil, err
		}
		return cred, nil

	case models.ProviderAzure:
		var cred discovery.AzureCredential
		if err := json.Unmarshal(jsonData, &cred); err != nil {
			return nil, err
		}
		return cred, nil

	case models.ProviderDigitalOcean:
		var cred discovery.DigitalOceanCredential
		if err := json.Unmarshal(jsonData, &cred); err != nil {
			return nil, err
		}
		return cred, nil

	case models.ProviderCloudflare:
		var cred discovery.CloudflareCredential
		if err := json.Unmarshal(jsonData, &cred); err != nil {
			return nil, err
		}
		return cred, nil

	default:
		return nil, errors.New("unsupported provider")
	}
}
