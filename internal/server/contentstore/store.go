// Package contentstore adapts external content-addressed blob stores. Bytes
// go in, an opaque content address and a sha-256 content hash come out; a
// later Get for the same address must return the exact bytes.
package contentstore

import (
	"context"
	"crypto/sha256"
	"encoding/hex"

	"github.com/ipfs/go-cid"
	"github.com/multiformats/go-multihash"
)

// Store is the content store contract: sha256(Get(Put(b).address)) == sha256(b).
type Store interface {
	// Put stores data and returns its content address and hex sha-256 hash.
	// Identical bytes always map to the same address, so storing the same
	// payload twice keeps a single blob.
	Put(ctx context.Context, data []byte) (address string, hash string, err error)

	// Get returns the exact bytes previously stored under address.
	Get(ctx context.Context, address string) ([]byte, error)
}

// HashBytes returns the hex sha-256 digest of data. This digest is the dedup
// key and the ledger anchor payload.
func HashBytes(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}

// AddressFor derives the content address for data: a CIDv1 with the raw
// multicodec over a sha2-256 multihash. The address is a pure function of
// the bytes, which is what makes blob-level dedup fall out for free.
func AddressFor(data []byte) (string, error) {
	sum, err := multihash.Sum(data, multihash.SHA2_256, -1)
	if err != nil {
		return "", err
	}
	return cid.NewCidV1(cid.Raw, sum).String(), nil
}
