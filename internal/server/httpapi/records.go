package httpapi

import (
	"encoding/json"
	"io"
	"net/http"

	"github.com/medchain/medchain-server/internal/server/anchoring"
	"github.com/medchain/medchain-server/internal/server/analysis"
	"github.com/medchain/medchain-server/internal/server/authz"
	"github.com/medchain/medchain-server/internal/server/models"
	"github.com/medchain/medchain-server/internal/server/records"
)

// maxUploadBytes bounds one record payload.
const maxUploadBytes = 32 << 20

func (s *Server) handleCreateRecord(w http.ResponseWriter, r *http.Request) {
	identity, ok := identityFrom(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "missing identity")
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, maxUploadBytes)
	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		writeError(w, http.StatusBadRequest, "invalid multipart body")
		return
	}

	patientID := r.FormValue("patient_id")
	title := r.FormValue("title")
	uploaderID := r.FormValue("uploader_id")
	if uploaderID == "" {
		uploaderID = identity.UserID
	}
	if patientID == "" || title == "" {
		writeError(w, http.StatusBadRequest, "patient_id and title are required")
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		writeError(w, http.StatusBadRequest, "file part is required")
		return
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		writeError(w, http.StatusBadRequest, "reading file part")
		return
	}
	if len(data) == 0 {
		writeError(w, http.StatusBadRequest, "empty file")
		return
	}

	decision, err := s.authorizer.AuthorizeUpload(r.Context(), identity.UserID, identity.Role, uploaderID, patientID)
	if err != nil {
		s.writeServiceError(w, r, err, false)
		return
	}
	if !decision.Allowed {
		s.logger.Info(r.Context(), "upload denied", "requester_id", identity.UserID, "reason", decision.Reason)
		writeError(w, http.StatusForbidden, "forbidden")
		return
	}

	record, err := s.records.Create(r.Context(), records.CreateParams{
		PatientID:    patientID,
		UploaderID:   uploaderID,
		UploaderRole: identity.Role,
		Data:         data,
		Title:        title,
		Description:  r.FormValue("description"),
		MediaKind:    models.MediaKindFromContentType(header.Header.Get("Content-Type")),
	})
	if err != nil {
		s.writeServiceError(w, r, err, true)
		return
	}

	writeJSON(w, http.StatusCreated, toRecordResponse(record))
}

// handleListRecords scopes listings by role: patients see their own records,
// uploaders see what they uploaded, and a doctor may list a patient's records
// only while that patient's consent is active.
func (s *Server) handleListRecords(w http.ResponseWriter, r *http.Request) {
	identity, ok := identityFrom(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "missing identity")
		return
	}

	patientID := r.URL.Query().Get("patient_id")
	var uploaderID string

	switch identity.Role {
	case models.RolePatient:
		patientID = identity.UserID
	case models.RoleDoctor:
		if patientID != "" && patientID != identity.UserID {
			active, err := s.consents.IsActive(r.Context(), patientID, identity.UserID)
			if err != nil {
				s.writeServiceError(w, r, err, false)
				return
			}
			if !active {
				writeError(w, http.StatusForbidden, "forbidden")
				return
			}
		} else {
			uploaderID = identity.UserID
		}
	case models.RoleInstitution:
		if patientID != "" {
			writeError(w, http.StatusForbidden, "forbidden")
			return
		}
		uploaderID = identity.UserID
	default:
		writeError(w, http.StatusForbidden, "forbidden")
		return
	}

	list, err := s.records.List(r.Context(), patientID, uploaderID)
	if err != nil {
		s.writeServiceError(w, r, err, false)
		return
	}

	resp := make([]recordResponse, 0, len(list))
	for _, record := range list {
		resp = append(resp, toRecordResponse(record))
	}
	writeJSON(w, http.StatusOK, map[string]any{"records": resp})
}

// authorizeRecord runs the policy check for one record route and writes the
// response on failure. It returns true only when the handler may proceed.
func (s *Server) authorizeRecord(w http.ResponseWriter, r *http.Request, recordID string, action authz.Action) bool {
	identity, ok := identityFrom(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "missing identity")
		return false
	}

	decision, err := s.authorizer.Authorize(r.Context(), identity.UserID, identity.Role, recordID, action)
	if err != nil {
		s.writeServiceError(w, r, err, true)
		return false
	}
	if !decision.Allowed {
		s.denyRecord(w, r, recordID, decision.Reason)
		return false
	}
	return true
}

func (s *Server) handleGetRecord(w http.ResponseWriter, r *http.Request) {
	recordID := r.PathValue("id")
	if !s.authorizeRecord(w, r, recordID, authz.ActionView) {
		return
	}

	record, err := s.records.Get(r.Context(), recordID)
	if err != nil {
		s.writeServiceError(w, r, err, true)
		return
	}
	writeJSON(w, http.StatusOK, toRecordResponse(record))
}

func (s *Server) handleRecordContent(w http.ResponseWriter, r *http.Request) {
	recordID := r.PathValue("id")
	if !s.authorizeRecord(w, r, recordID, authz.ActionView) {
		return
	}

	record, content, err := s.records.ReadContent(r.Context(), recordID)
	if err != nil {
		s.writeServiceError(w, r, err, true)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"record_id":    record.ID,
		"media_kind":   string(record.MediaKind),
		"content_hash": record.ContentHash,
		// []byte marshals as base64.
		"content": content,
	})
}

func (s *Server) handleAnalyzeRecord(w http.ResponseWriter, r *http.Request) {
	recordID := r.PathValue("id")
	if !s.authorizeRecord(w, r, recordID, authz.ActionAnalyze) {
		return
	}

	record, content, err := s.records.ReadContent(r.Context(), recordID)
	if err != nil {
		s.writeServiceError(w, r, err, true)
		return
	}

	result, err := s.analyzer.Analyze(r.Context(), analysis.Metadata{
		RecordID:    record.ID,
		Title:       record.Title,
		Description: record.Description,
		MediaKind:   string(record.MediaKind),
		SizeBytes:   record.SizeBytes,
	}, content)
	if err != nil {
		s.writeServiceError(w, r, err, true)
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{
		"record_id": record.ID,
		"summary":   result.Summary,
		"model":     result.Model,
	})
}

func (s *Server) handleConfirmRecord(w http.ResponseWriter, r *http.Request) {
	recordID := r.PathValue("id")

	var req struct {
		TxRef string `json:"tx_ref"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.TxRef == "" {
		writeError(w, http.StatusBadRequest, "tx_ref is required")
		return
	}

	if !s.authorizeRecord(w, r, recordID, authz.ActionConfirm) {
		return
	}

	record, err := s.records.Confirm(r.Context(), recordID, req.TxRef)
	if err != nil {
		s.writeServiceError(w, r, err, true)
		return
	}
	writeJSON(w, http.StatusOK, toRecordResponse(record))
}

func (s *Server) handleAnchorRecord(w http.ResponseWriter, r *http.Request) {
	recordID := r.PathValue("id")
	if !s.authorizeRecord(w, r, recordID, authz.ActionConfirm) {
		return
	}

	sub, err := s.anchorer.RequestAnchor(r.Context(), recordID)
	if err != nil {
		s.writeServiceError(w, r, err, true)
		return
	}

	status := http.StatusOK
	if sub.State == anchoring.StatePending {
		status = http.StatusAccepted
	}
	writeJSON(w, status, toSubmissionResponse(sub))
}

func (s *Server) handleAnchorStatus(w http.ResponseWriter, r *http.Request) {
	recordID := r.PathValue("id")
	if !s.authorizeRecord(w, r, recordID, authz.ActionView) {
		return
	}

	sub, err := s.anchorer.Status(r.Context(), recordID)
	if err != nil {
		s.writeServiceError(w, r, err, true)
		return
	}
	writeJSON(w, http.StatusOK, toSubmissionResponse(sub))
}
