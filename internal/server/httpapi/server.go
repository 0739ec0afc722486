// Package httpapi is the JSON/multipart HTTP transport in front of the
// record and consent ledgers. It authenticates requests, translates wire
// shapes to service calls and maps sentinel errors to status codes; all
// policy lives in the authz package.
package httpapi

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/medchain/medchain-server/internal/logging"
	"github.com/medchain/medchain-server/internal/server/anchoring"
	"github.com/medchain/medchain-server/internal/server/analysis"
	"github.com/medchain/medchain-server/internal/server/authz"
	"github.com/medchain/medchain-server/internal/server/models"
	"github.com/medchain/medchain-server/internal/server/records"
)

// RecordService is the slice of the record ledger the transport drives.
type RecordService interface {
	Create(ctx context.Context, p records.CreateParams) (*models.MedicalRecord, error)
	Get(ctx context.Context, id string) (*models.MedicalRecord, error)
	List(ctx context.Context, patientID, uploaderID string) ([]*models.MedicalRecord, error)
	ReadContent(ctx context.Context, id string) (*models.MedicalRecord, []byte, error)
	Confirm(ctx context.Context, id, txRef string) (*models.MedicalRecord, error)
}

// ConsentService is the slice of the consent ledger the transport drives.
type ConsentService interface {
	Grant(ctx context.Context, patientID, doctorID string) (*models.Consent, error)
	Revoke(ctx context.Context, consentID string) (*models.Consent, error)
	Get(ctx context.Context, consentID string) (*models.Consent, error)
	List(ctx context.Context, patientID, doctorID string) ([]*models.Consent, error)
	IsActive(ctx context.Context, patientID, doctorID string) (bool, error)
}

// Authorizer is the policy-decision point consulted before record access.
type Authorizer interface {
	Authorize(ctx context.Context, requesterID string, requesterRole models.Role, recordID string, action authz.Action) (authz.Decision, error)
	AuthorizeUpload(ctx context.Context, requesterID string, requesterRole models.Role, declaredUploaderID, patientID string) (authz.Decision, error)
}

// Anchorer drives best-effort ledger anchoring for a record.
type Anchorer interface {
	RequestAnchor(ctx context.Context, recordID string) (*anchoring.Submission, error)
	Status(ctx context.Context, recordID string) (*anchoring.Submission, error)
}

type Server struct {
	records    RecordService
	consents   ConsentService
	authorizer Authorizer
	anchorer   Anchorer
	analyzer   analysis.Gateway
	jwtSecret  []byte
	logger     logging.Logger

	httpServer *http.Server
}

type Config struct {
	Addr      string
	JWTSecret []byte
}

func NewServer(cfg Config, records RecordService, consents ConsentService, authorizer Authorizer, anchorer Anchorer, analyzer analysis.Gateway, logger logging.Logger) *Server {
	s := &Server{
		records:    records,
		consents:   consents,
		authorizer: authorizer,
		anchorer:   anchorer,
		analyzer:   analyzer,
		jwtSecret:  cfg.JWTSecret,
		logger:     logger.With("module", "httpapi"),
	}
	s.httpServer = &http.Server{
		Addr:              cfg.Addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	return s
}

// Handler builds the route table. Exposed separately so tests can mount it
// on httptest servers.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /healthz", s.handleHealth)

	mux.Handle("POST /api/records", s.withAuth(s.handleCreateRecord))
	mux.Handle("GET /api/records", s.withAuth(s.handleListRecords))
	mux.Handle("GET /api/records/{id}", s.withAuth(s.handleGetRecord))
	mux.Handle("GET /api/records/{id}/content", s.withAuth(s.handleRecordContent))
	mux.Handle("POST /api/records/{id}/analyze", s.withAuth(s.handleAnalyzeRecord))
	mux.Handle("PUT /api/records/{id}/confirm", s.withAuth(s.handleConfirmRecord))
	mux.Handle("POST /api/records/{id}/anchor", s.withAuth(s.handleAnchorRecord))
	mux.Handle("GET /api/records/{id}/anchor", s.withAuth(s.handleAnchorStatus))

	mux.Handle("POST /api/consents", s.withAuth(s.handleGrantConsent))
	mux.Handle("PUT /api/consents/{id}/revoke", s.withAuth(s.handleRevokeConsent))
	mux.Handle("GET /api/consents", s.withAuth(s.handleListConsents))

	return mux
}

// Run serves until ctx is cancelled, then drains in-flight requests.
func (s *Server) Run(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		errCh <- s.httpServer.ListenAndServe()
	}()

	s.logger.Info(ctx, "http api listening", "addr", s.httpServer.Addr)

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
		return err
	}
	if err := <-errCh; !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
