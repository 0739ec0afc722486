package models

import "time"

// ConsentState is a tagged state rather than a boolean so the transition
// stays auditable.
type ConsentState string

const (
	ConsentActive  ConsentState = "active"
	ConsentRevoked ConsentState = "revoked"
)

// Consent is a revocable grant from a patient to a doctor. Rows are never
// deleted: revocation flips State to revoked and stamps RevokedAt, preserving
// history. At most one Consent per (patient, doctor) pair is active at any
// instant.
type Consent struct {
	ID        string
	PatientID string
	DoctorID  string

	State     ConsentState
	GrantedAt time.Time
	RevokedAt *time.Time
}

// Active reports whether the consent currently permits access.
func (c *Consent) Active() bool {
	return c.State == ConsentActive
}
