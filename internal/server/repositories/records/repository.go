package records

import (
	"context"

	"github.com/medchain/medchain-server/internal/server/models"
)

// Filter narrows List results; empty fields match everything.
type Filter struct {
	PatientID  string
	UploaderID string
}

type Repository interface {
	Create(ctx context.Context, record *models.MedicalRecord) error
	GetByID(ctx context.Context, id string) (*models.MedicalRecord, error)
	List(ctx context.Context, filter Filter) ([]*models.MedicalRecord, error)

	// Confirm flips confirmed to true and stores txRef, only if the row is
	// still unconfirmed. Returns common.ErrNotFound for an unknown id and
	// common.ErrAlreadyConfirmed when the row was confirmed before.
	Confirm(ctx context.Context, id, txRef string) error
}
