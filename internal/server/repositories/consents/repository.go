package consents

import (
	"context"
	"time"

	"github.com/medchain/medchain-server/internal/server/models"
)

// Filter narrows List results; empty fields match everything.
type Filter struct {
	PatientID string
	DoctorID  string
}

type Repository interface {
	Create(ctx context.Context, consent *models.Consent) error
	GetByID(ctx context.Context, id string) (*models.Consent, error)

	// GetActiveByPair returns the single active consent for the pair, or
	// common.ErrNotFound when none exists.
	GetActiveByPair(ctx context.Context, patientID, doctorID string) (*models.Consent, error)

	// Revoke transitions an active consent to revoked. It reports whether a
	// row actually changed so the service can treat revoking an already
	// revoked consent as a no-op.
	Revoke(ctx context.Context, id string, revokedAt time.Time) (bool, error)

	IsActive(ctx context.Context, patientID, doctorID string) (bool, error)
	ListActiveDoctorIDs(ctx context.Context, patientID string) ([]string, error)
	ListActivePatientIDs(ctx context.Context, doctorID string) ([]string, error)
	List(ctx context.Context, filter Filter) ([]*models.Consent, error)
}
