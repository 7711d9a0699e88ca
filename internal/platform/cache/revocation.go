package cache

import (
	"context"
	"time"
)

const revokedPrefix = "chemocare:revoked:"

// RevocationStore keeps revoked token JTIs in Redis with a TTL matching the
// token's own expiry, so entries disappear once they stop mattering and all
// server instances share one view.
type RevocationStore struct {
	client *Client
	now    func() time.Time
}

func NewRevocationStore(client *Client) *RevocationStore {
	return &RevocationStore{client: client, now: time.Now}
}

// Revoke claims jti with SET NX, so only the first caller across all
// instances gets true. An already expired token is never stored and reports
// false.
func (s *RevocationStore) Revoke(ctx context.Context, jti, userID string, expiresAt time.Time) (bool, error) {
	ttl := expiresAt.Sub(s.now())
	if ttl <= 0 {
		return false, nil
	}
	return s.client.SetNX(ctx, revocationKey(jti), userID, ttl)
}

func revocationKey(jti string) string {
	return revokedPrefix + jti
}
