package httpapi

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/medchain/medchain-server/internal/common"
	"github.com/medchain/medchain-server/internal/server/anchoring"
	"github.com/medchain/medchain-server/internal/server/models"
)

type recordResponse struct {
	ID             string `json:"id"`
	PatientID      string `json:"patient_id"`
	UploaderID     string `json:"uploader_id"`
	UploaderRole   string `json:"uploader_role"`
	Title          string `json:"title"`
	Description    string `json:"description,omitempty"`
	MediaKind      string `json:"media_kind"`
	SizeBytes      int64  `json:"size_bytes"`
	ContentAddress string `json:"content_address"`
	ContentHash    string `json:"content_hash"`
	Confirmed      bool   `json:"confirmed"`
	TxRef          string `json:"tx_ref,omitempty"`
	CreatedAt      string `json:"created_at"`
}

func toRecordResponse(r *models.MedicalRecord) recordResponse {
	return recordResponse{
		ID:             r.ID,
		PatientID:      r.PatientID,
		UploaderID:     r.UploaderID,
		UploaderRole:   string(r.UploaderRole),
		Title:          r.Title,
		Description:    r.Description,
		MediaKind:      string(r.MediaKind),
		SizeBytes:      r.SizeBytes,
		ContentAddress: r.ContentAddress,
		ContentHash:    r.ContentHash,
		Confirmed:      r.Confirmed,
		TxRef:          r.TxRef,
		CreatedAt:      r.CreatedAt.UTC().Format(time.RFC3339),
	}
}

type consentResponse struct {
	ID        string `json:"id"`
	PatientID string `json:"patient_id"`
	DoctorID  string `json:"doctor_id"`
	State     string `json:"state"`
	GrantedAt string `json:"granted_at"`
	RevokedAt string `json:"revoked_at,omitempty"`
}

func toConsentResponse(c *models.Consent) consentResponse {
	resp := consentResponse{
		ID:        c.ID,
		PatientID: c.PatientID,
		DoctorID:  c.DoctorID,
		State:     string(c.State),
		GrantedAt: c.GrantedAt.UTC().Format(time.RFC3339),
	}
	if c.RevokedAt != nil {
		resp.RevokedAt = c.RevokedAt.UTC().Format(time.RFC3339)
	}
	return resp
}

type submissionResponse struct {
	RecordID string `json:"record_id"`
	State    string `json:"state"`
	TxRef    string `json:"tx_ref,omitempty"`
}

func toSubmissionResponse(sub *anchoring.Submission) submissionResponse {
	return submissionResponse{RecordID: sub.RecordID, State: string(sub.State), TxRef: sub.TxRef}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

// writeServiceError maps sentinel errors onto status codes. On record routes
// a denial is indistinguishable from a missing record, so record existence
// never leaks to unauthorized callers.
func (s *Server) writeServiceError(w http.ResponseWriter, r *http.Request, err error, recordRoute bool) {
	switch {
	case errors.Is(err, common.ErrAlreadyConfirmed):
		writeError(w, http.StatusConflict, "record already confirmed")
	case errors.Is(err, common.ErrIntegrity):
		s.logger.Error(r.Context(), "content integrity failure", "error", err.Error())
		writeError(w, http.StatusBadGateway, "content integrity check failed")
	case errors.Is(err, common.ErrStorageFault), errors.Is(err, common.ErrAnchorFault), errors.Is(err, common.ErrAnalysisFault):
		s.logger.Error(r.Context(), "upstream fault", "error", err.Error())
		writeError(w, http.StatusBadGateway, "upstream dependency unavailable")
	case errors.Is(err, common.ErrNotFound):
		writeError(w, http.StatusNotFound, "not found")
	case errors.Is(err, common.ErrForbidden):
		if recordRoute {
			writeError(w, http.StatusNotFound, "not found")
		} else {
			writeError(w, http.StatusForbidden, "forbidden")
		}
	default:
		s.logger.Error(r.Context(), "internal error", "error", err.Error())
		writeError(w, http.StatusInternalServerError, "internal error")
	}
}

// denyRecord answers an authorization denial on a record route. Denials are
// normal outcomes and are logged at info, never as faults.
func (s *Server) denyRecord(w http.ResponseWriter, r *http.Request, recordID, reason string) {
	s.logger.Info(r.Context(), "access denied", "record_id", recordID, "reason", reason)
	writeError(w, http.StatusNotFound, "not found")
}
