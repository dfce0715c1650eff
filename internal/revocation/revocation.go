// Package revocation keeps a denylist of logged-out session tokens so a
// captured token stops working before its natural expiry. The list lives in
// Redis with per-entry TTLs matching the remaining token lifetime, so it
// never grows past the set of tokens that could still verify.
package revocation

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
)

const keyPrefix = "revoked:"

type Store struct {
	client *redis.Client
}

func NewStore(client *redis.Client) *Store {
	return &Store{client: client}
}

// Revoke records a token hash until the token would have expired anyway.
// A non-positive ttl means the token is already expired and nothing is kept.
func (s *Store) Revoke(ctx context.Context, tokenHash string, ttl time.Duration) error {
	if ttl <= 0 {
		return nil
	}
	return s.client.Set(ctx, keyPrefix+tokenHash, "1", ttl).Err()
}

func (s *Store) IsRevoked(ctx context.Context, tokenHash string) (bool, error) {
	count, err := s.client.Exists(ctx, keyPrefix+tokenHash).Result()
	if err != nil {
		return false, err
	}
	return count > 0, nil
}
