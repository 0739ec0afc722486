// Package authz is the policy-decision point for every record operation.
// The authorizer holds no state and caches nothing: both ledgers are read
// live on every decision, so a revoked consent blocks the very next call,
// including calls mid-session.
package authz

import (
	"context"
	"fmt"

	"github.com/medchain/medchain-server/internal/server/models"
)

// Action is a record operation subject to authorization.
type Action string

const (
	ActionUpload  Action = "upload"
	ActionView    Action = "view"
	ActionAnalyze Action = "analyze"
	ActionConfirm Action = "confirm"
)

// Decision is the authorizer's output. Reason is for internal logs only and
// must never cross the transport boundary.
type Decision struct {
	Allowed bool
	Reason  string
}

func allowed() Decision {
	return Decision{Allowed: true}
}

func denied(reason string) Decision {
	return Decision{Allowed: false, Reason: reason}
}

// RecordGetter is the slice of the record ledger the authorizer reads.
type RecordGetter interface {
	Get(ctx context.Context, id string) (*models.MedicalRecord, error)
}

// ConsentChecker is the slice of the consent ledger the authorizer reads.
type ConsentChecker interface {
	IsActive(ctx context.Context, patientID, doctorID string) (bool, error)
}

// Authorizer decides record access from the two ledgers' current state plus
// the request. It never mutates anything. Requester identity and role arrive
// as explicit parameters on every call; there is no ambient session state.
type Authorizer struct {
	records  RecordGetter
	consents ConsentChecker
}

func New(records RecordGetter, consents ConsentChecker) *Authorizer {
	return &Authorizer{records: records, consents: consents}
}

// Authorize evaluates access to an existing record. Policy, first match wins:
//
//	View/Analyze: the owning patient, or a doctor with consent active at this
//	              very moment.
//	Confirm:      the original uploader only.
//
// Anything unmatched is denied. An unknown record id surfaces as an error
// (ErrNotFound) distinct from a denial; the transport collapses the two.
func (a *Authorizer) Authorize(ctx context.Context, requesterID string, requesterRole models.Role, recordID string, action Action) (Decision, error) {
	record, err := a.records.Get(ctx, recordID)
	if err != nil {
		return denied("record lookup failed"), err
	}

	switch action {
	case ActionView, ActionAnalyze:
		if requesterID == record.PatientID {
			return allowed(), nil
		}
		if requesterRole == models.RoleDoctor {
			active, err := a.consents.IsActive(ctx, record.PatientID, requesterID)
			if err != nil {
				return denied("consent lookup failed"), fmt.Errorf("consent check: %w", err)
			}
			if active {
				return allowed(), nil
			}
			return denied("no active consent from patient"), nil
		}
		return denied("requester is neither owner nor consented doctor"), nil

	case ActionConfirm:
		if requesterID == record.UploaderID {
			return allowed(), nil
		}
		return denied("only the original uploader may confirm"), nil

	case ActionUpload:
		return denied("upload is authorized before a record exists"), nil
	}

	return denied(fmt.Sprintf("unknown action %q", action)), nil
}

// AuthorizeUpload evaluates a prospective upload, before any record exists.
// Policy, first match wins:
//
//	The requester must be the declared uploader.
//	Patients upload only to their own records.
//	Doctors need consent active with the patient at upload time.
//	Institutions bypass consent: they act as custodians of record for their
//	own infrastructure (onboarding documents and the like).
func (a *Authorizer) AuthorizeUpload(ctx context.Context, requesterID string, requesterRole models.Role, declaredUploaderID, patientID string) (Decision, error) {
	if requesterID != declaredUploaderID {
		return denied("requester is not the declared uploader"), nil
	}

	switch requesterRole {
	case models.RolePatient:
		if requesterID == patientID {
			return allowed(), nil
		}
		return denied("patients upload only their own records"), nil

	case models.RoleDoctor:
		active, err := a.consents.IsActive(ctx, patientID, requesterID)
		if err != nil {
			return denied("consent lookup failed"), fmt.Errorf("consent check: %w", err)
		}
		if active {
			return allowed(), nil
		}
		return denied("no active consent from patient"), nil

	case models.RoleInstitution:
		return allowed(), nil
	}

	return denied(fmt.Sprintf("unknown role %q", requesterRole)), nil
}
