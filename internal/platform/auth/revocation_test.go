package auth

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"
)

func TestRevoke_and_IsRevoked(t *testing.T) {
	store := NewMemoryRevocationStore()
	defer store.Close()
	ctx := context.Background()

	claimed, err := store.Revoke(ctx, "token-abc-123", "user-1", time.Now().Add(time.Hour))
	if err != nil {
		t.Fatalf("Revoke() error: %v", err)
	}
	if !claimed {
		t.Error("expected first Revoke to claim the JTI")
	}

	revoked, err := store.IsRevoked(ctx, "token-abc-123")
	if err != nil {
		t.Fatalf("IsRevoked() error: %v", err)
	}
	if !revoked {
		t.Error("expected JTI to be revoked")
	}
}

func TestIsRevoked_NotRevoked(t *testing.T) {
	store := NewMemoryRevocationStore()
	defer store.Close()

	revoked, _ := store.IsRevoked(context.Background(), "unknown-jti")
	if revoked {
		t.Error("expected unknown JTI to not be revoked")
	}
}

func TestRevoke_Idempotent(t *testing.T) {
	store := NewMemoryRevocationStore()
	defer store.Close()
	ctx := context.Background()

	exp := time.Now().Add(time.Hour)
	first, _ := store.Revoke(ctx, "jti-1", "user-42", exp)
	second, _ := store.Revoke(ctx, "jti-1", "user-42", exp)
	if !first || second {
		t.Errorf("expected only the first Revoke to claim, got %v and %v", first, second)
	}

	if store.Count() != 1 {
		t.Errorf("expected 1 entry, got %d", store.Count())
	}
	if store.CountForUser("user-42") != 1 {
		t.Errorf("expected 1 entry for user, got %d", store.CountForUser("user-42"))
	}
}

func TestCleanup_RemovesExpiredEntries(t *testing.T) {
	store := NewMemoryRevocationStore()
	defer store.Close()
	ctx := context.Background()

	_, _ = store.Revoke(ctx, "expired-jti", "user-1", time.Now().Add(-time.Second))
	_, _ = store.Revoke(ctx, "active-jti", "user-2", time.Now().Add(time.Hour))

	store.cleanup()

	if store.Count() != 1 {
		t.Errorf("expected 1 entry after cleanup, got %d", store.Count())
	}
	if revoked, _ := store.IsRevoked(ctx, "expired-jti"); revoked {
		t.Error("expected expired JTI to be cleaned up")
	}
	if revoked, _ := store.IsRevoked(ctx, "active-jti"); !revoked {
		t.Error("expected active JTI to remain")
	}
	if store.CountForUser("user-1") != 0 {
		t.Error("expected user-1 mapping to be cleaned up")
	}
}

func TestConcurrentAccess(t *testing.T) {
	store := NewMemoryRevocationStore()
	defer store.Close()
	ctx := context.Background()

	var wg sync.WaitGroup
	const goroutines = 100
	wg.Add(goroutines * 2)

	for i := 0; i < goroutines; i++ {
		jti := fmt.Sprintf("jti-%d", i)
		go func() {
			defer wg.Done()
			_, _ = store.Revoke(ctx, jti, "user", time.Now().Add(time.Hour))
		}()
		go func() {
			defer wg.Done()
			_, _ = store.IsRevoked(ctx, jti)
		}()
	}
	wg.Wait()

	if store.Count() != goroutines {
		t.Errorf("expected %d entries, got %d", goroutines, store.Count())
	}
}

func TestRevoke_ConcurrentClaimHasOneWinner(t *testing.T) {
	store := NewMemoryRevocationStore()
	defer store.Close()
	ctx := context.Background()

	const callers = 50
	var wg sync.WaitGroup
	var mu sync.Mutex
	winners := 0
	wg.Add(callers)
	for i := 0; i < callers; i++ {
		go func() {
			defer wg.Done()
			ok, err := store.Revoke(ctx, "shared-jti", "user", time.Now().Add(time.Hour))
			if err != nil {
				t.Errorf("Revoke() error: %v", err)
				return
			}
			if ok {
				mu.Lock()
				winners++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	if winners != 1 {
		t.Errorf("expected exactly 1 winning claim, got %d", winners)
	}
}

func TestClose_Idempotent(t *testing.T) {
	store := NewMemoryRevocationStore()
	store.Close()
	store.Close()

	_, _ = store.Revoke(context.Background(), "jti-after-close", "", time.Now().Add(time.Hour))
	if revoked, _ := store.IsRevoked(context.Background(), "jti-after-close"); !revoked {
		t.Error("expected store to still work after Close")
	}
}
