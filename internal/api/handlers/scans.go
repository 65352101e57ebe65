package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/lena/certscope/internal/api/dto"
	"github.com/lena/certscope/internal/api/validation"
	"github.com/lena/certscope/internal/database/models"
	"github.com/lena/certscope/internal/scanner"
	"github.com/lena/certscope/internal/scheduler"
	"github.com/lena/certscope/internal/store"
)

type ScanHandler struct {
	store     store.Store
	scheduler *scheduler.Scheduler
	scanner   scanner.CertScannerInterface
	logger    *slog.Logger
}

func NewScanHandler(st store.Store, sched *scheduler.Scheduler, scn scanner.CertScannerInterface, logger *slog.Logger) *ScanHandler {
	return &ScanHandler{store: st, scheduler: sched, scanner: scn, logger: logger}
}

// CreateScanRequest represents the request to create a scan definition.
// Ports use the list syntax "443,8443" or "8400-8500"; empty means the
// default TLS port set.
type CreateScanRequest struct {
	Name      string   `json:"name"`
	Hosts     []string `json:"hosts"`
	Ports     string   `json:"ports,omitempty"`
	Frequency string   `json:"frequency"`
	CronExpr  string   `json:"cron_expr,omitempty"`
}

var validFrequencies = map[string]bool{
	"hourly": true, "daily": true, "weekly": true, "monthly": true, "custom": true,
}

func (r CreateScanRequest) Validate() map[string]string {
	errs := make(map[string]string)
	if r.Name == "" {
		errs["name"] = "Name is required"
	}
	if msg := validateHostList(r.Hosts); msg != "" {
		errs["hosts"] = msg
	}
	if !validation.IsValidPortSpec(r.Ports) {
		errs["ports"] = "Invalid port list"
	}
	if r.Frequency == "" {
		errs["frequency"] = "Frequency is required"
	} else if !validFrequencies[r.Frequency] {
		errs["frequency"] = "Invalid frequency"
	}
	if r.Frequency == "custom" && r.CronExpr == "" {
		errs["cron_expr"] = "Cron expression is required for custom frequency"
	}
	return errs
}

// validateHostList rejects empty lists, CIDR blocks and names no resolver
// would accept. CIDR gets its own message because operators try it.
func validateHostList(hosts []string) string {
	if len(hosts) == 0 {
		return "At least one host is required"
	}
	for _, h := range hosts {
		h = strings.TrimSpace(h)
		if h == "" {
			return "Host entries cannot be empty"
		}
		if validation.IsValidCIDR(h) {
			return fmt.Sprintf("Host %q: CIDR notation is not supported, list hosts individually", h)
		}
		if !validation.IsValidTarget(h) {
			return fmt.Sprintf("Invalid host %q", h)
		}
	}
	return ""
}

func trimHosts(hosts []string) []string {
	trimmed := make([]string, len(hosts))
	for i, h := range hosts {
		trimmed[i] = strings.TrimSpace(h)
	}
	return trimmed
}

// UpdateScanRequest represents a partial update to a scan definition
type UpdateScanRequest struct {
	Name      *string   `json:"name,omitempty"`
	Hosts     *[]string `json:"hosts,omitempty"`
	Ports     *string   `json:"ports,omitempty"`
	Frequency *string   `json:"frequency,omitempty"`
	CronExpr  *string   `json:"cron_expr,omitempty"`
	Active    *bool     `json:"active,omitempty"`
}

// ScanResponse represents a scan definition in API responses
type ScanResponse struct {
	ID        string   `json:"id"`
	Name      string   `json:"name"`
	Hosts     []string `json:"hosts"`
	Ports     []int    `json:"ports"`
	Frequency string   `json:"frequency"`
	CronExpr  string   `json:"cron_expr,omitempty"`
	Active    bool     `json:"active"`
	NextRunAt *int64   `json:"next_run_at,omitempty"`
	LastRunAt *int64   `json:"last_run_at,omitempty"`
	CreatedAt string   `json:"created_at"`
	UpdatedAt string   `json:"updated_at"`
}

func scanToResponse(s *models.ScanDefinition) ScanResponse {
	return ScanResponse{
		ID:        s.ID.String(),
		Name:      s.Name,
		Hosts:     s.Hosts,
		Ports:     s.Ports,
		Frequency: string(s.Frequency),
		CronExpr:  s.CronExpr,
		Active:    s.Active,
		NextRunAt: s.NextRunAt,
		LastRunAt: s.LastRunAt,
		CreatedAt: s.CreatedAt.Format(time.RFC3339),
		UpdatedAt: s.UpdatedAt.Format(time.RFC3339),
	}
}

// Create handles POST /api/v1/scans
func (h *ScanHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req CreateScanRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, dto.ErrorResponse{Error: "Invalid request body"})
		return
	}

	if errs := req.Validate(); len(errs) > 0 {
		writeJSON(w, http.StatusBadRequest, dto.ErrorResponse{Error: "Validation failed", Details: errs})
		return
	}

	ports, err := scanner.ParsePortList(req.Ports)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, dto.ErrorResponse{Error: "Validation failed", Details: map[string]string{"ports": err.Error()}})
		return
	}

	scan := models.ScanDefinition{
		Name:      req.Name,
		Hosts:     trimHosts(req.Hosts),
		Ports:     ports,
		Frequency: models.ScanFrequency(req.Frequency),
		CronExpr:  req.CronExpr,
		Active:    true,
	}

	// A definition that cannot produce a schedule is rejected at save
	// time, never armed and left to fail later.
	if err := scheduler.ValidateSchedule(&scan); err != nil {
		writeJSON(w, http.StatusUnprocessableEntity, dto.ErrorResponse{Error: err.Error()})
		return
	}

	if err := h.store.CreateScanDefinition(r.Context(), &scan); err != nil {
		writeJSON(w, http.StatusInternalServerError, dto.ErrorResponse{Error: "Failed to create scan"})
		return
	}

	if h.scheduler != nil {
		if err := h.scheduler.Arm(&scan); err != nil {
			h.logger.Error("arming new scan", "scan_id", scan.ID, "error", err)
		}
	}

	writeJSON(w, http.StatusCreated, scanToResponse(&scan))
}

// List handles GET /api/v1/scans
func (h *ScanHandler) List(w http.ResponseWriter, r *http.Request) {
	scans, err := h.store.ListScanDefinitions(r.Context())
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, dto.ErrorResponse{Error: "Failed to list scans"})
		return
	}

	response := make([]ScanResponse, len(scans))
	for i := range scans {
		response[i] = scanToResponse(&scans[i])
	}

	writeJSON(w, http.StatusOK, response)
}

// Get handles GET /api/v1/scans/{id}
func (h *ScanHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, dto.ErrorResponse{Error: "Invalid scan ID"})
		return
	}

	scan, err := h.store.GetScanDefinition(r.Context(), id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			writeJSON(w, http.StatusNotFound, dto.ErrorResponse{Error: "Scan not found"})
			return
		}
		writeJSON(w, http.StatusInternalServerError, dto.ErrorResponse{Error: "Failed to get scan"})
		return
	}

	writeJSON(w, http.StatusOK, scanToResponse(scan))
}

// Update handles PUT /api/v1/scans/{id}
func (h *ScanHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, dto.ErrorResponse{Error: "Invalid scan ID"})
		return
	}

	scan, err := h.store.GetScanDefinition(r.Context(), id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			writeJSON(w, http.StatusNotFound, dto.ErrorResponse{Error: "Scan not found"})
			return
		}
		writeJSON(w, http.StatusInternalServerError, dto.ErrorResponse{Error: "Failed to get scan"})
		return
	}

	var req UpdateScanRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, dto.ErrorResponse{Error: "Invalid request body"})
		return
	}

	if req.Name != nil {
		if *req.Name == "" {
			writeJSON(w, http.StatusBadRequest, dto.ErrorResponse{Error: "Validation failed", Details: map[string]string{"name": "Name is required"}})
			return
		}
		scan.Name = *req.Name
	}
	if req.Hosts != nil {
		if msg := validateHostList(*req.Hosts); msg != "" {
			writeJSON(w, http.StatusBadRequest, dto.ErrorResponse{Error: "Validation failed", Details: map[string]string{"hosts": msg}})
			return
		}
		scan.Hosts = trimHosts(*req.Hosts)
	}
	if req.Ports != nil {
		ports, err := scanner.ParsePortList(*req.Ports)
		if err != nil {
			writeJSON(w, http.StatusBadRequest, dto.ErrorResponse{Error: "Validation failed", Details: map[string]string{"ports": err.Error()}})
			return
		}
		scan.Ports = ports
	}
	if req.Frequency != nil {
		if !validFrequencies[*req.Frequency] {
			writeJSON(w, http.StatusBadRequest, dto.ErrorResponse{Error: "Validation failed", Details: map[string]string{"frequency": "Invalid frequency"}})
			return
		}
		scan.Frequency = models.ScanFrequency(*req.Frequency)
	}
	if req.CronExpr != nil {
		scan.CronExpr = *req.CronExpr
	}
	if req.Active != nil {
		scan.Active = *req.Active
	}

	if err := scheduler.ValidateSchedule(scan); err != nil {
		writeJSON(w, http.StatusUnprocessableEntity, dto.ErrorResponse{Error: err.Error()})
		return
	}

	if err := h.store.UpdateScanDefinition(r.Context(), scan); err != nil {
		writeJSON(w, http.StatusInternalServerError, dto.ErrorResponse{Error: "Failed to update scan"})
		return
	}

	// Re-arm so cadence changes take effect now, not at the next fire
	if h.scheduler != nil {
		if scan.Active {
			if err := h.scheduler.Arm(scan); err != nil {
				h.logger.Error("re-arming updated scan", "scan_id", scan.ID, "error", err)
			}
		} else {
			h.scheduler.Disarm(scan.ID)
		}
	}

	writeJSON(w, http.StatusOK, scanToResponse(scan))
}

// Delete handles DELETE /api/v1/scans/{id}
func (h *ScanHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, dto.ErrorResponse{Error: "Invalid scan ID"})
		return
	}

	if err := h.store.DeleteScanDefinition(r.Context(), id); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			writeJSON(w, http.StatusNotFound, dto.ErrorResponse{Error: "Scan not found"})
			return
		}
		writeJSON(w, http.StatusInternalServerError, dto.ErrorResponse{Error: "Failed to delete scan"})
		return
	}

	if h.scheduler != nil {
		h.scheduler.Disarm(id)
	}

	writeJSON(w, http.StatusOK, dto.SuccessResponse{Message: "Scan deleted"})
}

// Run handles POST /api/v1/scans/{id}/run. The scan executes on this
// request synchronously; the classified records come back in the body.
func (h *ScanHandler) Run(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, dto.ErrorResponse{Error: "Invalid scan ID"})
		return
	}

	if h.scheduler == nil {
		writeJSON(w, http.StatusServiceUnavailable, dto.ErrorResponse{Error: "Scheduler is not running"})
		return
	}

	certs, err := h.scheduler.RunNow(r.Context(), id)
	if err != nil {
		switch {
		case errors.Is(err, gorm.ErrRecordNotFound):
			writeJSON(w, http.StatusNotFound, dto.ErrorResponse{Error: "Scan not found"})
		case errors.Is(err, scheduler.ErrScanInFlight):
			writeJSON(w, http.StatusConflict, dto.ErrorResponse{Error: "Scan already in flight"})
		default:
			h.logger.Error("manual scan run", "scan_id", id, "error", err)
			writeJSON(w, http.StatusInternalServerError, dto.ErrorResponse{Error: "Failed to run scan"})
		}
		return
	}

	writeJSON(w, http.StatusOK, certificatesToResponse(certs))
}

// BatchScanRequest represents an ad-hoc scan over an explicit target set
type BatchScanRequest struct {
	Hosts []string `json:"hosts"`
	Ports string   `json:"ports,omitempty"`
}

func (r BatchScanRequest) Validate() map[string]string {
	errs := make(map[string]string)
	if msg := validateHostList(r.Hosts); msg != "" {
		errs["hosts"] = msg
	}
	if !validation.IsValidPortSpec(r.Ports) {
		errs["ports"] = "Invalid port list"
	}
	return errs
}

// ScanNow handles POST /api/v1/scan: probe every host:port pair in the
// request, persist the results, return the records.
func (h *ScanHandler) ScanNow(w http.ResponseWriter, r *http.Request) {
	var req BatchScanRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, dto.ErrorResponse{Error: "Invalid request body"})
		return
	}

	if errs := req.Validate(); len(errs) > 0 {
		writeJSON(w, http.StatusBadRequest, dto.ErrorResponse{Error: "Validation failed", Details: errs})
		return
	}

	ports, err := scanner.ParsePortList(req.Ports)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, dto.ErrorResponse{Error: "Validation failed", Details: map[string]string{"ports": err.Error()}})
		return
	}

	certs := h.scanner.Scan(r.Context(), trimHosts(req.Hosts), ports)

	if err := h.store.UpsertCertificates(r.Context(), certs); err != nil {
		h.logger.Error("persisting ad-hoc scan results", "error", err)
		writeJSON(w, http.StatusInternalServerError, dto.ErrorResponse{Error: "Failed to persist scan results"})
		return
	}

	writeJSON(w, http.StatusOK, certificatesToResponse(certs))
}
