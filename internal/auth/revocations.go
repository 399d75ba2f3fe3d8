// AngelaMos | 2026
// revocations.go

package auth

import (
	"context"
	"fmt"
	"time"

	"github.com/pamojakenya/backend/internal/core"
)

// Revocations tracks access tokens that were logged out before expiry.
type Revocations interface {
	Revoke(ctx context.Context, jti string, ttl time.Duration) error
	IsRevoked(ctx context.Context, jti string) (bool, error)
}

type redisRevocations struct {
	rdb *core.Redis
}

func NewRedisRevocations(rdb *core.Redis) Revocations {
	return &redisRevocations{rdb: rdb}
}

func (r *redisRevocations) Revoke(ctx context.Context, jti string, ttl time.Duration) error {
	if err := r.rdb.Flag(ctx, r.rdb.Key("revoked", jti), ttl); err != nil {
		return fmt.Errorf("revoke token: %w", err)
	}
	return nil
}

func (r *redisRevocations) IsRevoked(ctx context.Context, jti string) (bool, error) {
	revoked, err := r.rdb.Flagged(ctx, r.rdb.Key("revoked", jti))
	if err != nil {
		return false, fmt.Errorf("check revocation: %w", err)
	}
	return revoked, nil
}
