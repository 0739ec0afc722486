// Package consents implements the consent ledger: revocable, auditable
// grants from patients to doctors. Grants are idempotent and revocation is a
// state transition, never a delete.
package consents

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/medchain/medchain-server/internal/common"
	"github.com/medchain/medchain-server/internal/dbx"
	"github.com/medchain/medchain-server/internal/keymutex"
	"github.com/medchain/medchain-server/internal/logging"
	"github.com/medchain/medchain-server/internal/server/models"
	consentsrepo "github.com/medchain/medchain-server/internal/server/repositories/consents"
	"github.com/medchain/medchain-server/internal/server/repositories/repomanager"
)

type Service struct {
	db     *sql.DB
	repos  repomanager.RepositoryManager
	locks  *keymutex.KeyMutex
	logger logging.Logger
}

func NewService(db *sql.DB, repos repomanager.RepositoryManager, logger logging.Logger) *Service {
	return &Service{
		db:     db,
		repos:  repos,
		locks:  keymutex.New(),
		logger: logger.With("module", "consents"),
	}
}

// pairKey serializes writes for one (patient, doctor) pair; unrelated pairs
// never contend.
func pairKey(patientID, doctorID string) string {
	return "consent:" + patientID + "|" + doctorID
}

// Grant creates an active consent from patientID to doctorID. Granting while
// an active consent already exists returns the existing record untouched.
func (s *Service) Grant(ctx context.Context, patientID, doctorID string) (*models.Consent, error) {
	if patientID == "" || doctorID == "" {
		return nil, errors.New("patient id and doctor id are required")
	}
	if patientID == doctorID {
		return nil, errors.New("cannot grant consent to self")
	}

	unlock := s.locks.Lock(pairKey(patientID, doctorID))
	defer unlock()

	repo := s.repos.Consents(s.db)

	existing, err := repo.GetActiveByPair(ctx, patientID, doctorID)
	if err == nil {
		return existing, nil
	}
	if !errors.Is(err, common.ErrNotFound) {
		return nil, fmt.Errorf("looking up consent: %w", err)
	}

	consent := &models.Consent{
		ID:        uuid.New().String(),
		PatientID: patientID,
		DoctorID:  doctorID,
		State:     models.ConsentActive,
		GrantedAt: time.Now().UTC(),
	}
	if err := repo.Create(ctx, consent); err != nil {
		return nil, fmt.Errorf("persisting consent: %w", err)
	}

	s.logger.Info(ctx, "consent granted",
		"consent_id", consent.ID, "patient_id", patientID, "doctor_id", doctorID)

	return consent, nil
}

// Revoke transitions a consent to revoked. Revoking an already revoked
// consent is a no-op returning the current state; an unknown id fails with
// ErrNotFound.
func (s *Service) Revoke(ctx context.Context, consentID string) (*models.Consent, error) {
	consent, err := s.repos.Consents(s.db).GetByID(ctx, consentID)
	if err != nil {
		return nil, err
	}

	unlock := s.locks.Lock(pairKey(consent.PatientID, consent.DoctorID))
	defer unlock()

	// The state transition and the read-back of the resulting row run in one
	// transaction so the returned consent reflects exactly this revocation.
	var (
		changed bool
		current *models.Consent
	)
	err = dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		repo := s.repos.Consents(tx)
		var err error
		changed, err = repo.Revoke(ctx, consentID, time.Now().UTC())
		if err != nil {
			return fmt.Errorf("revoking consent: %w", err)
		}
		current, err = repo.GetByID(ctx, consentID)
		return err
	})
	if err != nil {
		return nil, err
	}

	if changed {
		s.logger.Info(ctx, "consent revoked",
			"consent_id", consentID, "patient_id", consent.PatientID, "doctor_id", consent.DoctorID)
	}

	return current, nil
}

// IsActive is the live, uncached consent check. Every authorization decision
// calls it at decision time so a revocation takes effect immediately.
func (s *Service) IsActive(ctx context.Context, patientID, doctorID string) (bool, error) {
	return s.repos.Consents(s.db).IsActive(ctx, patientID, doctorID)
}

// ListActiveForDoctor returns the ids of patients who currently consent to
// doctorID. Used to scope bulk record queries.
func (s *Service) ListActiveForDoctor(ctx context.Context, doctorID string) ([]string, error) {
	return s.repos.Consents(s.db).ListActivePatientIDs(ctx, doctorID)
}

// ListActiveForPatient returns the ids of doctors patientID currently
// consents to.
func (s *Service) ListActiveForPatient(ctx context.Context, patientID string) ([]string, error) {
	return s.repos.Consents(s.db).ListActiveDoctorIDs(ctx, patientID)
}

// Get returns a consent by id.
func (s *Service) Get(ctx context.Context, consentID string) (*models.Consent, error) {
	return s.repos.Consents(s.db).GetByID(ctx, consentID)
}

// List returns consents, including revoked history rows, filtered by patient
// and/or doctor.
func (s *Service) List(ctx context.Context, patientID, doctorID string) ([]*models.Consent, error) {
	return s.repos.Consents(s.db).List(ctx, consentsrepo.Filter{
		PatientID: patientID,
		DoctorID:  doctorID,
	})
}
