// Package consents provides the PostgreSQL-backed repository for consent
// grants and their append-only revocation history.
package consents

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/medchain/medchain-server/internal/common"
	"github.com/medchain/medchain-server/internal/dbx"
	"github.com/medchain/medchain-server/internal/server/models"
)

// PostgresRepository implements consent storage over a dbx.DBTX (*sql.DB or *sql.Tx).
type PostgresRepository struct {
	db dbx.DBTX
}

// NewPostgresRepository constructs a repository bound to the given DBTX.
func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

const consentColumns = `id, patient_id, doctor_id, state, granted_at, revoked_at`

// Create inserts a new consent row. The partial unique index on active pairs
// rejects a second active grant for the same (patient, doctor); callers
// serialize per pair, so a conflict here is a bug, not a race to paper over.
func (r *PostgresRepository) Create(ctx context.Context, consent *models.Consent) error {
	query := `
		INSERT INTO consents (id, patient_id, doctor_id, state, granted_at, revoked_at)
		VALUES ($1, $2, $3, $4, $5, $6);
	`
	_, err := r.db.ExecContext(ctx, query,
		consent.ID, consent.PatientID, consent.DoctorID, string(consent.State),
		consent.GrantedAt, consent.RevokedAt)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}

// GetByID returns a consent by id, or common.ErrNotFound.
func (r *PostgresRepository) GetByID(ctx context.Context, id string) (*models.Consent, error) {
	query := `SELECT ` + consentColumns + ` FROM consents WHERE id = $1;`

	consent, err := scanConsent(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}
	return consent, nil
}

// GetActiveByPair returns the active consent for (patientID, doctorID), or
// common.ErrNotFound. The partial unique index guarantees at most one row.
func (r *PostgresRepository) GetActiveByPair(ctx context.Context, patientID, doctorID string) (*models.Consent, error) {
	query := `SELECT ` + consentColumns + ` FROM consents
		WHERE patient_id = $1 AND doctor_id = $2 AND state = 'active';`

	consent, err := scanConsent(r.db.QueryRowContext(ctx, query, patientID, doctorID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}
	return consent, nil
}

// Revoke flips an active consent to revoked. Returns false when no active
// row matched (already revoked or unknown id).
func (r *PostgresRepository) Revoke(ctx context.Context, id string, revokedAt time.Time) (bool, error) {
	query := `UPDATE consents SET state = 'revoked', revoked_at = $2
		WHERE id = $1 AND state = 'active';`

	res, err := r.db.ExecContext(ctx, query, id, revokedAt)
	if err != nil {
		return false, fmt.Errorf("db error: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("rows affected error: %w", err)
	}
	return n == 1, nil
}

// IsActive is the point-in-time consent check used by the authorizer. It is a
// single indexed lookup against current state, never a history replay, and
// its result must not be cached by callers.
func (r *PostgresRepository) IsActive(ctx context.Context, patientID, doctorID string) (bool, error) {
	query := `SELECT EXISTS (
		SELECT 1 FROM consents WHERE patient_id = $1 AND doctor_id = $2 AND state = 'active'
	);`

	var active bool
	if err := r.db.QueryRowContext(ctx, query, patientID, doctorID).Scan(&active); err != nil {
		return false, fmt.Errorf("db error: %w", err)
	}
	return active, nil
}

// ListActiveDoctorIDs returns the doctors the patient currently consents to.
func (r *PostgresRepository) ListActiveDoctorIDs(ctx context.Context, patientID string) ([]string, error) {
	return r.listIDs(ctx,
		`SELECT doctor_id FROM consents WHERE patient_id = $1 AND state = 'active';`, patientID)
}

// ListActivePatientIDs returns the patients who currently consent to the doctor.
func (r *PostgresRepository) ListActivePatientIDs(ctx context.Context, doctorID string) ([]string, error) {
	return r.listIDs(ctx,
		`SELECT patient_id FROM consents WHERE doctor_id = $1 AND state = 'active';`, doctorID)
}

func (r *PostgresRepository) listIDs(ctx context.Context, query string, arg string) ([]string, error) {
	rows, err := r.db.QueryContext(ctx, query, arg)
	if err != nil {
		return nil, fmt.Errorf("failed to select consents: %w", err)
	}
	defer rows.Close()

	var result []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		result = append(result, id)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}

// List returns consents matching the filter, including revoked history rows,
// newest grant first.
func (r *PostgresRepository) List(ctx context.Context, filter Filter) ([]*models.Consent, error) {
	query := `SELECT ` + consentColumns + ` FROM consents
		WHERE ($1 = '' OR patient_id = $1) AND ($2 = '' OR doctor_id = $2)
		ORDER BY granted_at DESC;`

	rows, err := r.db.QueryContext(ctx, query, filter.PatientID, filter.DoctorID)
	if err != nil {
		return nil, fmt.Errorf("failed to select consents: %w", err)
	}
	defer rows.Close()

	var result []*models.Consent
	for rows.Next() {
		consent, err := scanConsent(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, consent)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanConsent(row rowScanner) (*models.Consent, error) {
	var item models.Consent
	var state string
	var revokedAt sql.NullTime
	if err := row.Scan(&item.ID, &item.PatientID, &item.DoctorID, &state,
		&item.GrantedAt, &revokedAt); err != nil {
		return nil, err
	}
	item.State = models.ConsentState(state)
	if revokedAt.Valid {
		t := revokedAt.Time
		item.RevokedAt = &t
	}
	return &item, nil
}
