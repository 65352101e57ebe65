package handlers

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/google/uuid"

	"github.com/lena/certscope/internal/api/dto"
	"github.com/lena/certscope/internal/discovery"
)

type DiscoveryHandler struct {
	service *discovery.Service
	logger  *slog.Logger
}

func NewDiscoveryHandler(service *discovery.Service, logger *slog.Logger) *DiscoveryHandler {
	return &DiscoveryHandler{service: service, logger: logger}
}

// RunDiscoveryRequest selects which stored credentials to sweep
type RunDiscoveryRequest struct {
	CredentialIDs []string `json:"credential_ids"`
}

func (r RunDiscoveryRequest) Validate() map[string]string {
	errs := make(map[string]string)
	if len(r.CredentialIDs) == 0 {
		errs["credential_ids"] = "At least one credential is required"
	}
	for _, id := range r.CredentialIDs {
		if _, err := uuid.Parse(id); err != nil {
			errs["credential_ids"] = "Invalid credential ID: " + id
			break
		}
	}
	return errs
}

type RunDiscoveryResponse struct {
	Message        string `json:"message"`
	EndpointsFound int    `json:"endpoints_found"`
	EndpointsSaved int    `json:"endpoints_saved"`
}

// Run handles POST /api/v1/discovery/run. The sweep is synchronous; bad
// credentials are skipped, not fatal, so one revoked key cannot block the
// others.
func (h *DiscoveryHandler) Run(w http.ResponseWriter, r *http.Request) {
	var req RunDiscoveryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, dto.ErrorResponse{Error: "Invalid request body"})
		return
	}

	if errs := req.Validate(); len(errs) > 0 {
		writeJSON(w, http.StatusBadRequest, dto.ErrorResponse{Error: "Validation failed", Details: errs})
		return
	}

	found := 0
	saved := 0
	for _, idStr := range req.CredentialIDs {
		credID, _ := uuid.Parse(idStr)

		endpoints, err := h.service.DiscoverEndpoints(r.Context(), []uuid.UUID{credID})
		if err != nil {
			h.logger.Error("discovery sweep", "credential_id", credID, "error", err)
			continue
		}
		found += len(endpoints)

		n, err := h.service.SaveEndpoints(r.Context(), &credID, endpoints)
		if err != nil {
			h.logger.Error("saving discovered endpoints", "credential_id", credID, "error", err)
			continue
		}
		saved += n
	}

	writeJSON(w, http.StatusOK, RunDiscoveryResponse{
		Message:        "Discovery complete",
		EndpointsFound: found,
		EndpointsSaved: saved,
	})
}
