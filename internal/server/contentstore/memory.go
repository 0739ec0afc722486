package contentstore

import (
	"context"
	"fmt"
	"sync"

	"github.com/medchain/medchain-server/internal/common"
)

// MemoryStore is a map-backed content store used in tests.
type MemoryStore struct {
	mu    sync.RWMutex
	blobs map[string][]byte
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{blobs: make(map[string][]byte)}
}

func (s *MemoryStore) Put(ctx context.Context, data []byte) (string, string, error) {
	address, err := AddressFor(data)
	if err != nil {
		return "", "", fmt.Errorf("%w: %v", common.ErrStorageFault, err)
	}

	s.mu.Lock()
	if _, ok := s.blobs[address]; !ok {
		cp := make([]byte, len(data))
		copy(cp, data)
		s.blobs[address] = cp
	}
	s.mu.Unlock()

	return address, HashBytes(data), nil
}

func (s *MemoryStore) Get(ctx context.Context, address string) ([]byte, error) {
	s.mu.RLock()
	data, ok := s.blobs[address]
	s.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: no blob at %s", common.ErrStorageFault, address)
	}
	cp := make([]byte, len(data))
	copy(cp, data)
	return cp, nil
}

// Corrupt overwrites the blob at address, bypassing content addressing.
// Test hook for integrity-check paths.
func (s *MemoryStore) Corrupt(address string, data []byte) {
	s.mu.Lock()
	s.blobs[address] = data
	s.mu.Unlock()
}

// Len reports the number of distinct blobs held.
func (s *MemoryStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.blobs)
}
