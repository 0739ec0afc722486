// Package keymutex provides a mutex keyed by string, so operations on the
// same record or consent pair serialize while unrelated keys never contend.
package keymutex

import "sync"

// KeyMutex hands out one mutex per key. Mutexes are created lazily and kept
// for the lifetime of the KeyMutex; the key space here (record ids, consent
// pairs actively being written) is small enough that reclamation is not worth
// the bookkeeping.
type KeyMutex struct {
	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

func New() *KeyMutex {
	return &KeyMutex{locks: make(map[string]*sync.Mutex)}
}

// Lock acquires the mutex for key, blocking until it is available, and
// returns the corresponding unlock function.
func (k *KeyMutex) Lock(key string) func() {
	k.mu.Lock()
	m, ok := k.locks[key]
	if !ok {
		m = &sync.Mutex{}
		k.locks[key] = m
	}
	k.mu.Unlock()

	m.Lock()
	return m.Unlock
}
