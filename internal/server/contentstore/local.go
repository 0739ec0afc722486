package contentstore

import (
	"context"
	"errors"
	"fmt"

	"github.com/syndtr/goleveldb/leveldb"

	"github.com/medchain/medchain-server/internal/common"
)

// LocalStore is a LevelDB-backed content store for development and
// single-node deployments. It honors the same contract as the S3 store:
// content-derived addresses, dedup by key, digest check on read.
type LocalStore struct {
	db *leveldb.DB
}

// NewLocalStore opens (or creates) a LevelDB database at path.
func NewLocalStore(path string) (*LocalStore, error) {
	db, err := leveldb.OpenFile(path, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: open leveldb: %v", common.ErrStorageFault, err)
	}
	return &LocalStore{db: db}, nil
}

func (s *LocalStore) key(address string) []byte {
	return []byte("blob:" + address)
}

// Put stores data under its content-derived key. An existing key is left
// untouched; the bytes are identical by construction.
func (s *LocalStore) Put(ctx context.Context, data []byte) (string, string, error) {
	address, err := AddressFor(data)
	if err != nil {
		return "", "", fmt.Errorf("%w: %v", common.ErrStorageFault, err)
	}
	hash := HashBytes(data)

	key := s.key(address)
	if _, err := s.db.Get(key, nil); err == nil {
		return address, hash, nil
	}
	if err := s.db.Put(key, data, nil); err != nil {
		return "", "", fmt.Errorf("%w: put %s: %v", common.ErrStorageFault, address, err)
	}
	return address, hash, nil
}

// Get returns the bytes stored under address.
func (s *LocalStore) Get(ctx context.Context, address string) ([]byte, error) {
	data, err := s.db.Get(s.key(address), nil)
	if err != nil {
		if errors.Is(err, leveldb.ErrNotFound) {
			return nil, fmt.Errorf("%w: no blob at %s", common.ErrStorageFault, address)
		}
		return nil, fmt.Errorf("%w: get %s: %v", common.ErrStorageFault, address, err)
	}
	return data, nil
}

func (s *LocalStore) Close() error {
	return s.db.Close()
}
