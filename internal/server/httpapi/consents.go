package httpapi

import (
	"encoding/json"
	"net/http"

	"github.com/medchain/medchain-server/internal/server/models"
)

// handleGrantConsent creates (or idempotently returns) an active consent.
// Only the patient named in the request may grant it.
func (s *Server) handleGrantConsent(w http.ResponseWriter, r *http.Request) {
	identity, ok := identityFrom(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "missing identity")
		return
	}

	var req struct {
		PatientID string `json:"patient_id"`
		DoctorID  string `json:"doctor_id"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid json body")
		return
	}
	if req.PatientID == "" || req.DoctorID == "" {
		writeError(w, http.StatusBadRequest, "patient_id and doctor_id are required")
		return
	}
	if req.PatientID == req.DoctorID {
		writeError(w, http.StatusBadRequest, "patient and doctor must differ")
		return
	}

	if identity.Role != models.RolePatient || identity.UserID != req.PatientID {
		s.logger.Info(r.Context(), "consent grant denied", "requester_id", identity.UserID)
		writeError(w, http.StatusForbidden, "forbidden")
		return
	}

	consent, err := s.consents.Grant(r.Context(), req.PatientID, req.DoctorID)
	if err != nil {
		s.writeServiceError(w, r, err, false)
		return
	}
	writeJSON(w, http.StatusCreated, toConsentResponse(consent))
}

// handleRevokeConsent revokes an active consent. Only the consent's patient
// may revoke; revoking an already revoked consent is a no-op.
func (s *Server) handleRevokeConsent(w http.ResponseWriter, r *http.Request) {
	identity, ok := identityFrom(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "missing identity")
		return
	}

	consentID := r.PathValue("id")
	consent, err := s.consents.Get(r.Context(), consentID)
	if err != nil {
		s.writeServiceError(w, r, err, false)
		return
	}

	if identity.Role != models.RolePatient || identity.UserID != consent.PatientID {
		s.logger.Info(r.Context(), "consent revoke denied", "requester_id", identity.UserID, "consent_id", consentID)
		writeError(w, http.StatusForbidden, "forbidden")
		return
	}

	revoked, err := s.consents.Revoke(r.Context(), consentID)
	if err != nil {
		s.writeServiceError(w, r, err, false)
		return
	}
	writeJSON(w, http.StatusOK, toConsentResponse(revoked))
}

// handleListConsents lists consents scoped to the requester: a patient sees
// consents they granted, a doctor sees consents granted to them.
func (s *Server) handleListConsents(w http.ResponseWriter, r *http.Request) {
	identity, ok := identityFrom(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "missing identity")
		return
	}

	var patientID, doctorID string
	switch identity.Role {
	case models.RolePatient:
		patientID = identity.UserID
		doctorID = r.URL.Query().Get("doctor_id")
	case models.RoleDoctor:
		doctorID = identity.UserID
		patientID = r.URL.Query().Get("patient_id")
	default:
		writeError(w, http.StatusForbidden, "forbidden")
		return
	}

	list, err := s.consents.List(r.Context(), patientID, doctorID)
	if err != nil {
		s.writeServiceError(w, r, err, false)
		return
	}

	resp := make([]consentResponse, 0, len(list))
	for _, consent := range list {
		resp = append(resp, toConsentResponse(consent))
	}
	writeJSON(w, http.StatusOK, map[string]any{"consents": resp})
}
