package auth

import (
	"context"
	"sync"
	"time"
)

// RevocationStore remembers revoked token ids (jti) until the token would
// have expired anyway. Refresh rotation, logout and password reset tokens
// all go through it.
//
// Revoke reports whether this call is the one that revoked jti. Of several
// concurrent calls for the same jti exactly one gets true, which makes it the
// redeem step for single-use tokens.
type RevocationStore interface {
	Revoke(ctx context.Context, jti, userID string, expiresAt time.Time) (bool, error)
}

const revocationSweepInterval = 5 * time.Minute

type revoked struct {
	userID    string
	expiresAt time.Time
}

// MemoryRevocationStore is the single-process RevocationStore used when
// REDIS_URL is unset. Revocations are lost on restart.
type MemoryRevocationStore struct {
	mu      sync.RWMutex
	byJTI   map[string]revoked
	now     func() time.Time
	stop    chan struct{}
	stopped sync.Once
}

// NewMemoryRevocationStore starts a sweeper that forgets expired entries.
// Call Close to stop it.
func NewMemoryRevocationStore() *MemoryRevocationStore {
	s := &MemoryRevocationStore{
		byJTI: make(map[string]revoked),
		now:   time.Now,
		stop:  make(chan struct{}),
	}
	go s.sweep()
	return s
}

func (s *MemoryRevocationStore) Revoke(_ context.Context, jti, userID string, expiresAt time.Time) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.byJTI[jti]; ok {
		return false, nil
	}
	s.byJTI[jti] = revoked{userID: userID, expiresAt: expiresAt}
	return true, nil
}

func (s *MemoryRevocationStore) IsRevoked(_ context.Context, jti string) (bool, error) {
	s.mu.RLock()
	_, ok := s.byJTI[jti]
	s.mu.RUnlock()
	return ok, nil
}

func (s *MemoryRevocationStore) Count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.byJTI)
}

// CountForUser reports how many of userID's tokens are currently revoked.
func (s *MemoryRevocationStore) CountForUser(userID string) int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	n := 0
	for _, r := range s.byJTI {
		if r.userID == userID {
			n++
		}
	}
	return n
}

// Close stops the sweeper. Further calls are no-ops.
func (s *MemoryRevocationStore) Close() {
	s.stopped.Do(func() { close(s.stop) })
}

func (s *MemoryRevocationStore) sweep() {
	t := time.NewTicker(revocationSweepInterval)
	defer t.Stop()
	for {
		select {
		case <-s.stop:
			return
		case <-t.C:
			s.cleanup()
		}
	}
}

func (s *MemoryRevocationStore) cleanup() {
	now := s.now()
	s.mu.Lock()
	defer s.mu.Unlock()
	for jti, r := range s.byJTI {
		if now.After(r.expiresAt) {
			delete(s.byJTI, jti)
		}
	}
}
