package consents

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/medchain/medchain-server/internal/common"
	"github.com/medchain/medchain-server/internal/server/models"
)

func newRepoWithMock(t *testing.T) (*PostgresRepository, sqlmock.Sqlmock, *sql.DB) {
	t.Helper()
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	if err != nil {
		t.Fatalf("sqlmock.New error: %v", err)
	}
	return NewPostgresRepository(db), mock, db
}

func TestCreate_Success(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	granted := time.Date(2025, 7, 1, 9, 0, 0, 0, time.UTC)
	mock.ExpectExec(`INSERT INTO consents`).
		WithArgs("c1", "p1", "d1", "active", granted, nil).
		WillReturnResult(sqlmock.NewResult(0, 1))

	err := repo.Create(context.Background(), &models.Consent{
		ID:        "c1",
		PatientID: "p1",
		DoctorID:  "d1",
		State:     models.ConsentActive,
		GrantedAt: granted,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestGetActiveByPair_NotFound(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	mock.ExpectQuery(`SELECT .* FROM consents\s+WHERE patient_id = \$1 AND doctor_id = \$2 AND state = 'active'`).
		WithArgs("p1", "d1").
		WillReturnError(sql.ErrNoRows)

	_, err := repo.GetActiveByPair(context.Background(), "p1", "d1")
	if !errors.Is(err, common.ErrNotFound) {
		t.Fatalf("want ErrNotFound, got %v", err)
	}
}

func TestGetByID_RevokedRowMapsTimestamp(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	granted := time.Date(2025, 7, 1, 9, 0, 0, 0, time.UTC)
	revoked := granted.Add(48 * time.Hour)
	rows := sqlmock.NewRows([]string{"id", "patient_id", "doctor_id", "state", "granted_at", "revoked_at"}).
		AddRow("c1", "p1", "d1", "revoked", granted, revoked)

	mock.ExpectQuery(`SELECT .* FROM consents WHERE id = \$1`).
		WithArgs("c1").
		WillReturnRows(rows)

	got, err := repo.GetByID(context.Background(), "c1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.State != models.ConsentRevoked {
		t.Fatalf("want revoked state, got %q", got.State)
	}
	if got.RevokedAt == nil || !got.RevokedAt.Equal(revoked) {
		t.Fatalf("revoked_at not mapped: %+v", got.RevokedAt)
	}
}

func TestRevoke_ActiveRowChanged(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	now := time.Now().UTC()
	mock.ExpectExec(`UPDATE consents SET state = 'revoked', revoked_at = \$2\s+WHERE id = \$1 AND state = 'active'`).
		WithArgs("c1", now).
		WillReturnResult(sqlmock.NewResult(0, 1))

	changed, err := repo.Revoke(context.Background(), "c1", now)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !changed {
		t.Fatalf("expected changed=true")
	}
}

func TestRevoke_AlreadyRevokedNoRows(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	now := time.Now().UTC()
	mock.ExpectExec(`UPDATE consents SET state = 'revoked'`).
		WithArgs("c1", now).
		WillReturnResult(sqlmock.NewResult(0, 0))

	changed, err := repo.Revoke(context.Background(), "c1", now)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if changed {
		t.Fatalf("expected changed=false")
	}
}

func TestIsActive(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	mock.ExpectQuery(`SELECT EXISTS`).
		WithArgs("p1", "d1").
		WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(true))

	active, err := repo.IsActive(context.Background(), "p1", "d1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !active {
		t.Fatalf("expected active")
	}
}

func TestListActiveDoctorIDs(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	mock.ExpectQuery(`SELECT doctor_id FROM consents WHERE patient_id = \$1 AND state = 'active'`).
		WithArgs("p1").
		WillReturnRows(sqlmock.NewRows([]string{"doctor_id"}).AddRow("d1").AddRow("d2"))

	ids, err := repo.ListActiveDoctorIDs(context.Background(), "p1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(ids) != 2 || ids[0] != "d1" || ids[1] != "d2" {
		t.Fatalf("unexpected ids: %v", ids)
	}
}
