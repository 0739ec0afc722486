// Package records provides the PostgreSQL-backed repository for medical
// record metadata.
package records

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/medchain/medchain-server/internal/common"
	"github.com/medchain/medchain-server/internal/dbx"
	"github.com/medchain/medchain-server/internal/server/models"
)

// PostgresRepository implements record storage over a dbx.DBTX (*sql.DB or *sql.Tx).
type PostgresRepository struct {
	db dbx.DBTX
}

// NewPostgresRepository constructs a repository bound to the given DBTX.
func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

// Create inserts a new metadata row. Rows are insert-only: there is no
// update path except Confirm.
func (r *PostgresRepository) Create(ctx context.Context, record *models.MedicalRecord) error {
	query := `
		INSERT INTO records
			(id, patient_id, uploader_id, uploader_role, title, description,
			 media_kind, size_bytes, content_address, content_hash, confirmed, tx_ref, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13);
	`
	_, err := r.db.ExecContext(ctx, query,
		record.ID, record.PatientID, record.UploaderID, string(record.UploaderRole),
		record.Title, record.Description, string(record.MediaKind), record.SizeBytes,
		record.ContentAddress, record.ContentHash, record.Confirmed, record.TxRef, record.CreatedAt)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}

const recordColumns = `id, patient_id, uploader_id, uploader_role, title, description,
		media_kind, size_bytes, content_address, content_hash, confirmed, tx_ref, created_at`

// GetByID returns a record by id, or common.ErrNotFound.
func (r *PostgresRepository) GetByID(ctx context.Context, id string) (*models.MedicalRecord, error) {
	query := `SELECT ` + recordColumns + ` FROM records WHERE id = $1;`

	row := r.db.QueryRowContext(ctx, query, id)
	record, err := scanRecord(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}
	return record, nil
}

// List returns records matching the filter, newest first.
func (r *PostgresRepository) List(ctx context.Context, filter Filter) ([]*models.MedicalRecord, error) {
	query := `SELECT ` + recordColumns + ` FROM records
		WHERE ($1 = '' OR patient_id = $1) AND ($2 = '' OR uploader_id = $2)
		ORDER BY created_at DESC;`

	rows, err := r.db.QueryContext(ctx, query, filter.PatientID, filter.UploaderID)
	if err != nil {
		return nil, fmt.Errorf("failed to select records: %w", err)
	}
	defer rows.Close()

	var result []*models.MedicalRecord
	for rows.Next() {
		record, err := scanRecord(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, record)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}

// Confirm performs the exactly-once confirmation at the row level: the
// conditional WHERE makes a lost race surface as AlreadyConfirmed instead of
// silently overwriting the first caller's tx_ref.
func (r *PostgresRepository) Confirm(ctx context.Context, id, txRef string) error {
	query := `UPDATE records SET confirmed = TRUE, tx_ref = $2 WHERE id = $1 AND confirmed = FALSE;`

	res, err := r.db.ExecContext(ctx, query, id, txRef)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected error: %w", err)
	}
	if n == 1 {
		return nil
	}

	// No unconfirmed row matched: distinguish missing from already confirmed.
	var confirmed bool
	err = r.db.QueryRowContext(ctx, `SELECT confirmed FROM records WHERE id = $1;`, id).Scan(&confirmed)
	if errors.Is(err, sql.ErrNoRows) {
		return common.ErrNotFound
	}
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	if confirmed {
		return common.ErrAlreadyConfirmed
	}
	return fmt.Errorf("unexpected rows affected: %d", n)
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRecord(row rowScanner) (*models.MedicalRecord, error) {
	var item models.MedicalRecord
	var role, kind string
	if err := row.Scan(
		&item.ID, &item.PatientID, &item.UploaderID, &role, &item.Title, &item.Description,
		&kind, &item.SizeBytes, &item.ContentAddress, &item.ContentHash,
		&item.Confirmed, &item.TxRef, &item.CreatedAt,
	); err != nil {
		return nil, err
	}
	item.UploaderRole = models.Role(role)
	item.MediaKind = models.MediaKind(kind)
	return &item, nil
}
