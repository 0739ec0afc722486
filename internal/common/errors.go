// Package common defines shared constants and sentinel errors used across
// the medchain server layers. Callers should use errors.Is to match these
// values.
package common

import (
	"errors"
	"fmt"
)

var (
	// Repository-level errors.
	ErrNotFound = errors.New("not found")

	// Authorization errors. A denial is a normal outcome, never a system fault.
	ErrForbidden = errors.New("forbidden")

	// External collaborator errors. StorageFault covers an unreachable content
	// store and failed write verification; AnchorFault covers failed ledger
	// submissions; AnalysisFault covers a failed or unreachable inference
	// backend. All are retryable from the caller's perspective.
	ErrStorageFault  = errors.New("storage fault")
	ErrAnchorFault   = errors.New("anchor fault")
	ErrAnalysisFault = errors.New("analysis fault")

	// ErrIntegrity is a StorageFault kind raised when bytes retrieved from the
	// content store no longer match the recorded content hash. Unlike a plain
	// StorageFault it is fatal for the read: retrying cannot repair corruption.
	ErrIntegrity = fmt.Errorf("%w: content integrity mismatch", ErrStorageFault)

	// ErrAlreadyConfirmed signals a second confirm call for the same record.
	// This is an ordering bug upstream, not a retryable condition.
	ErrAlreadyConfirmed = errors.New("record already confirmed")

	// Auth errors (invalid or malformed token).
	ErrInvalidToken = errors.New("invalid token")
)
