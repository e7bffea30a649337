// Package nonce implements the facilitator's replay-protection store: once
// a PaymentAuthorization's nonce has been settled, it must never be
// accepted again.
package nonce

import (
	"sync"
	"time"
)

// Store tracks nonces that have already been consumed by a successful
// settlement, along with when each entry may be safely forgotten.
type Store struct {
	mu      sync.Mutex
	entries map[[32]byte]time.Time
}

// NewStore returns an empty nonce store.
func NewStore() *Store {
	return &Store{entries: make(map[[32]byte]time.Time)}
}

// Contains reports whether nonce has already been recorded.
func (s *Store) Contains(nonce [32]byte) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.entries[nonce]
	return ok
}

// Record marks nonce as consumed, to be forgotten after expiresAt. Calling
// Record twice for the same nonce simply refreshes its expiry; callers
// that must reject replays check Contains first, inside the same
// per-payer lock that guards the settlement that calls Record.
func (s *Store) Record(nonce [32]byte, expiresAt time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries[nonce] = expiresAt
}

// PurgeExpired removes every entry whose expiry is at or before now. It is
// safe to call concurrently with Contains and Record from other
// goroutines; it never blocks longer than the time to walk the map.
func (s *Store) PurgeExpired(now time.Time) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	purged := 0
	for n, expiresAt := range s.entries {
		if !expiresAt.After(now) {
			delete(s.entries, n)
			purged++
		}
	}
	return purged
}

// Len reports the number of nonces currently tracked. Intended for tests
// and metrics, not for correctness decisions.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.entries)
}
