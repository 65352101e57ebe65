package handlers

import (
	"net/http"
	"strconv"
	"time"

	"gorm.io/gorm"

	"github.com/lena/certscope/internal/api/dto"
	"github.com/lena/certscope/internal/database/models"
)

type EndpointHandler struct {
	db *gorm.DB
}

func NewEndpointHandler(db *gorm.DB) *EndpointHandler {
	return &EndpointHandler{db: db}
}

// EndpointResponse represents a discovered endpoint in API responses
type EndpointResponse struct {
	ID           string  `json:"id"`
	Value        string  `json:"value"`
	Source       string  `json:"source"`
	Ports        string  `json:"ports,omitempty"`
	Metadata     string  `json:"metadata,omitempty"`
	CredentialID *string `json:"credential_id,omitempty"`
	IsActive     bool    `json:"is_active"`
	DiscoveredAt int64   `json:"discovered_at"`
	LastSeenAt   int64   `json:"last_seen_at"`
	CreatedAt    string  `json:"created_at"`
}

func endpointToResponse(e *models.Endpoint) EndpointResponse {
	resp := EndpointResponse{
		ID:           e.ID.String(),
		Value:        e.Value,
		Source:       e.Source,
		Ports:        e.Ports,
		Metadata:     e.Metadata,
		IsActive:     e.IsActive,
		DiscoveredAt: e.DiscoveredAt,
		LastSeenAt:   e.LastSeenAt,
		CreatedAt:    e.CreatedAt.Format(time.RFC3339),
	}
	if e.CredentialID != nil {
		id := e.CredentialID.String()
		resp.CredentialID = &id
	}
	return resp
}

// List handles GET /api/v1/endpoints. Discovery sweeps can surface
// thousands of records, so this list pages, filterable by source and
// is_active.
func (h *EndpointHandler) List(w http.ResponseWriter, r *http.Request) {
	page, _ := strconv.Atoi(r.URL.Query().Get("page"))
	perPage, _ := strconv.Atoi(r.URL.Query().Get("per_page"))
	pagination := dto.PaginationParams{Page: page, PerPage: perPage}
	pagination.Normalize()

	source := r.URL.Query().Get("source")
	isActive := r.URL.Query().Get("is_active")

	query := h.db.WithContext(r.Context()).Model(&models.Endpoint{})

	if source != "" {
		query = query.Where("source = ?", source)
	}
	if isActive != "" {
		active, err := strconv.ParseBool(isActive)
		if err != nil {
			writeJSON(w, http.StatusBadRequest, dto.ErrorResponse{Error: "Invalid is_active value"})
			return
		}
		query = query.Where("is_active = ?", active)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		writeJSON(w, http.StatusInternalServerError, dto.ErrorResponse{Error: "Failed to count endpoints"})
		return
	}

	var endpoints []models.Endpoint
	if err := query.
		Order("last_seen_at DESC, value ASC").
		Offset(pagination.Offset()).
		Limit(pagination.PerPage).
		Find(&endpoints).Error; err != nil {
		writeJSON(w, http.StatusInternalServerError, dto.ErrorResponse{Error: "Failed to list endpoints"})
		return
	}

	response := make([]EndpointResponse, len(endpoints))
	for i := range endpoints {
		response[i] = endpointToResponse(&endpoints[i])
	}

	totalPages := int(total) / pagination.PerPage
	if int(total)%pagination.PerPage > 0 {
		totalPages++
	}

	writeJSON(w, http.StatusOK, dto.PaginatedResponse{
		Data:       response,
		Total:      total,
		Page:       pagination.Page,
		PerPage:    pagination.PerPage,
		TotalPages: totalPages,
	})
}
