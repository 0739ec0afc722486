// Package anchor adapts external distributed ledgers used to anchor record
// content hashes for tamper-evident proof of existence.
package anchor

import "context"

// Status describes whether a hash is anchored on the ledger. TxRef is the
// anchoring transaction reference when known; the predicate is independent of
// which party submitted the anchor.
type Status struct {
	Anchored bool
	TxRef    string
}

// Adapter is the ledger anchor contract.
type Adapter interface {
	// Submit anchors hash on the ledger. pending reports whether the
	// transaction is still awaiting commit; an adapter whose submissions
	// block until commit always returns pending=false.
	Submit(ctx context.Context, hash string) (txRef string, pending bool, err error)

	// IsAnchored reports whether hash is already anchored, regardless of
	// submitter.
	IsAnchored(ctx context.Context, hash string) (Status, error)
}
