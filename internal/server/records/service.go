// Package records implements the record ledger: metadata lifecycle for
// uploaded medical records, content round-trips through the content store,
// and the exactly-once confirmation of ledger anchoring.
package records

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
	"github.com/medchain/medchain-server/internal/server/contentstore"
	"github.com/medchain/medchain-server/internal/server/models"
	recordsrepo "github.com/medchain/medchain-server/internal/server/repositories/records"
	"github.com/medchain/medchain-server/internal/server/repositories/repomanager"
)

type Service struct {
	db     *sql.DB
	repos  repomanager.RepositoryManager
	store  contentstore.Store
	locks  *keymutex.KeyMutex
	logger logging.Logger
}

func NewService(db *sql.DB, repos repomanager.RepositoryManager, store contentstore.Store, logger logging.Logger) *Service {
	return &Service{
		db:     db,
		repos:  repos,
		store:  store,
		locks:  keymutex.New(),
		logger: logger.With("module", "records"),
	}
}

// CreateParams describes one upload. UploaderID and UploaderRole are the
// declared uploader; authorization against the requester happens before this
// call.
type CreateParams struct {
	PatientID    string
	UploaderID   string
	UploaderRole models.Role
	Data         []byte
	Title        string
	Description  string
	MediaKind    models.MediaKind
}

func (p CreateParams) validate() error {
	if p.PatientID == "" || p.UploaderID == "" || p.Title == "" {
		return errors.New("patient id, uploader id and title are required")
	}
	if !p.UploaderRole.Valid() {
		return fmt.Errorf("unknown uploader role %q", p.UploaderRole)
	}
	if !p.MediaKind.Valid() {
		return fmt.Errorf("unknown media kind %q", p.MediaKind)
	}
	if len(p.Data) == 0 {
		return errors.New("empty payload")
	}
	return nil
}

// Create stores the payload in the content store and persists the metadata
// row with confirmed=false. Identical payloads share one stored blob but
// always get distinct metadata records.
func (s *Service) Create(ctx context.Context, p CreateParams) (*models.MedicalRecord, error) {
	if err := p.validate(); err != nil {
		return nil, err
	}

	address, hash, err := s.store.Put(ctx, p.Data)
	if err != nil {
		return nil, fmt.Errorf("storing content: %w", err)
	}

	record := &models.MedicalRecord{
		ID:             uuid.New().String(),
		PatientID:      p.PatientID,
		UploaderID:     p.UploaderID,
		UploaderRole:   p.UploaderRole,
		Title:          p.Title,
		Description:    p.Description,
		MediaKind:      p.MediaKind,
		SizeBytes:      int64(len(p.Data)),
		ContentAddress: address,
		ContentHash:    hash,
		CreatedAt:      time.Now().UTC(),
	}

	if err := s.repos.Records(s.db).Create(ctx, record); err != nil {
		return nil, fmt.Errorf("persisting record: %w", err)
	}

	s.logger.Info(ctx, "record created",
		"record_id", record.ID, "patient_id", record.PatientID,
		"content_address", address, "size", record.SizeBytes)

	return record, nil
}

// Get returns record metadata by id.
func (s *Service) Get(ctx context.Context, id string) (*models.MedicalRecord, error) {
	return s.repos.Records(s.db).GetByID(ctx, id)
}

// List returns record metadata filtered by patient and/or uploader.
func (s *Service) List(ctx context.Context, patientID, uploaderID string) ([]*models.MedicalRecord, error) {
	return s.repos.Records(s.db).List(ctx, recordsrepo.Filter{
		PatientID:  patientID,
		UploaderID: uploaderID,
	})
}

// ReadContent fetches the record's bytes from the content store and
// recomputes the digest against the recorded content hash on every read.
// A mismatch means tampering or corruption and fails with ErrIntegrity.
// The metadata row is returned alongside the bytes so callers that need
// both do not fetch the record twice.
func (s *Service) ReadContent(ctx context.Context, id string) (*models.MedicalRecord, []byte, error) {
	record, err := s.Get(ctx, id)
	if err != nil {
		return nil, nil, err
	}

	data, err := s.store.Get(ctx, record.ContentAddress)
	if err != nil {
		return nil, nil, fmt.Errorf("fetching content: %w", err)
	}

	if contentstore.HashBytes(data) != record.ContentHash {
		s.logger.Error(ctx, "content integrity mismatch",
			"record_id", id, "content_address", record.ContentAddress)
		return nil, nil, fmt.Errorf("record %s: %w", id, common.ErrIntegrity)
	}

	return record, data, nil
}

// Confirm marks the record anchored with txRef, exactly once. A second call
// fails with ErrAlreadyConfirmed: a differing txRef on a repeat call signals
// an ordering bug upstream and must not be papered over.
func (s *Service) Confirm(ctx context.Context, id, txRef string) (*models.MedicalRecord, error) {
	if txRef == "" {
		return nil, errors.New("tx ref is required")
	}

	unlock := s.locks.Lock("record:" + id)
	defer unlock()

	// The conditional update and the read-back of the winning row must see
	// one consistent state, so both run in a single transaction.
	var record *models.MedicalRecord
	err := dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		repo := s.repos.Records(tx)
		if err := repo.Confirm(ctx, id, txRef); err != nil {
			return err
		}
		var err error
		record, err = repo.GetByID(ctx, id)
		return err
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info(ctx, "record confirmed", "record_id", id, "tx_ref", txRef)

	return record, nil
}
