// Package models defines server-side data models persisted in the database.
package models

import "time"

// Role identifies who performed an upload.
type Role string

const (
	RoleInstitution Role = "institution"
	RoleDoctor      Role = "doctor"
	RolePatient     Role = "patient"
)

// Valid reports whether r is one of the known roles.
func (r Role) Valid() bool {
	switch r {
	case RoleInstitution, RoleDoctor, RolePatient:
		return true
	}
	return false
}

// MediaKind is the declared media type of a record's payload.
type MediaKind string

const (
	MediaImage MediaKind = "image"
	MediaPDF   MediaKind = "pdf"
	MediaOther MediaKind = "other"
)

// Valid reports whether k is one of the known media kinds.
func (k MediaKind) Valid() bool {
	switch k {
	case MediaImage, MediaPDF, MediaOther:
		return true
	}
	return false
}

// MediaKindFromContentType maps an HTTP content type onto a MediaKind.
func MediaKindFromContentType(contentType string) MediaKind {
	switch {
	case contentType == "application/pdf":
		return MediaPDF
	case len(contentType) > 6 && contentType[:6] == "image/":
		return MediaImage
	default:
		return MediaOther
	}
}

// MedicalRecord is the metadata row for one uploaded record. The payload
// itself lives in the content store under ContentAddress; ContentHash is the
// sha-256 digest of the raw bytes and never changes once set. Only Confirmed
// and TxRef are mutable, exactly once, by a confirm operation. Rows are never
// deleted.
type MedicalRecord struct {
	ID           string
	PatientID    string
	UploaderID   string
	UploaderRole Role

	Title       string
	Description string
	MediaKind   MediaKind
	SizeBytes   int64

	// ContentAddress is the opaque locator into the content store.
	ContentAddress string
	// ContentHash is the hex sha-256 of the stored bytes; it doubles as the
	// dedup key and as the ledger anchor payload.
	ContentHash string

	Confirmed bool
	TxRef     string

	CreatedAt time.Time
}
