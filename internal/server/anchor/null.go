package anchor

import (
	"context"
	"sync"
)

// NullAdapter is an explicit test/demo stand-in for a real ledger. It anchors
// hashes in process memory and fabricates deterministic transaction refs.
// The app only wires it when no ledger endpoint is configured, and says so
// loudly at startup; it must never be silently substituted in production.
type NullAdapter struct {
	mu       sync.Mutex
	anchored map[string]string
}

func NewNullAdapter() *NullAdapter {
	return &NullAdapter{anchored: make(map[string]string)}
}

func (a *NullAdapter) Submit(ctx context.Context, hash string) (string, bool, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if tx, ok := a.anchored[hash]; ok {
		return tx, false, nil
	}
	tx := a.txRef(hash)
	a.anchored[hash] = tx
	return tx, false, nil
}

func (a *NullAdapter) IsAnchored(ctx context.Context, hash string) (Status, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	tx, ok := a.anchored[hash]
	return Status{Anchored: ok, TxRef: tx}, nil
}

// txRef derives a stable fake reference so repeated runs stay comparable.
func (a *NullAdapter) txRef(hash string) string {
	n := len(hash)
	if n > 12 {
		n = 12
	}
	return "null-tx-" + hash[:n]
}
