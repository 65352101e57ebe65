package handlers

import (
	"net/http"
	"time"

	"github.com/lena/certscope/internal/api/dto"
	"github.com/lena/certscope/internal/database/models"
	"github.com/lena/certscope/internal/store"
)

type CertificateHandler struct {
	store store.Store
}

func NewCertificateHandler(st store.Store) *CertificateHandler {
	return &CertificateHandler{store: st}
}

// CertificateResponse is the wire form of one scanned target. Fields
// mirror the stored record; nothing is recomputed here.
type CertificateResponse struct {
	ID                 string   `json:"id"`
	Host               string   `json:"host"`
	Port               int      `json:"port"`
	Subject            string   `json:"subject,omitempty"`
	Issuer             string   `json:"issuer,omitempty"`
	CommonName         string   `json:"common_name,omitempty"`
	Organization       string   `json:"organization,omitempty"`
	ValidFrom          *string  `json:"valid_from,omitempty"`
	ValidTo            *string  `json:"valid_to,omitempty"`
	Fingerprint        string   `json:"fingerprint,omitempty"`
	SignatureAlgorithm string   `json:"signature_algorithm,omitempty"`
	SelfSigned         bool     `json:"self_signed"`
	DaysRemaining      int      `json:"days_remaining"`
	KeyUsage           []string `json:"key_usage,omitempty"`
	Status             string   `json:"status"`
	Error              string   `json:"error,omitempty"`
	LastScanned        string   `json:"last_scanned"`
}

func certificateToResponse(c *models.Certificate) CertificateResponse {
	resp := CertificateResponse{
		ID:                 c.ID.String(),
		Host:               c.Host,
		Port:               c.Port,
		Subject:            c.Subject,
		Issuer:             c.Issuer,
		CommonName:         c.CommonName,
		Organization:       c.Organization,
		Fingerprint:        c.Fingerprint,
		SignatureAlgorithm: c.SignatureAlgorithm,
		SelfSigned:         c.SelfSigned,
		DaysRemaining:      c.DaysRemaining,
		KeyUsage:           c.KeyUsage,
		Status:             string(c.Status),
		Error:              c.Error,
		LastScanned:        c.LastScanned.Format(time.RFC3339),
	}
	if c.ValidFrom != nil {
		s := c.ValidFrom.Format(time.RFC3339)
		resp.ValidFrom = &s
	}
	if c.ValidTo != nil {
		s := c.ValidTo.Format(time.RFC3339)
		resp.ValidTo = &s
	}
	return resp
}

func certificatesToResponse(certs []models.Certificate) []CertificateResponse {
	response := make([]CertificateResponse, len(certs))
	for i := range certs {
		response[i] = certificateToResponse(&certs[i])
	}
	return response
}

// List handles GET /api/v1/certificates. The full store contents come
// back ordered by host then port; there is no pagination on purpose.
func (h *CertificateHandler) List(w http.ResponseWriter, r *http.Request) {
	certs, err := h.store.ListCertificates(r.Context())
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, dto.ErrorResponse{Error: "Failed to list certificates"})
		return
	}

	writeJSON(w, http.StatusOK, certificatesToResponse(certs))
}
