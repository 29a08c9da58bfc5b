package sessions

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
)

// TokenBlacklist remembers signed-out access tokens until they would have
// expired anyway. A nil client turns every call into a no-op.
type TokenBlacklist struct {
	client *redis.Client
	prefix string
}

func NewTokenBlacklist(client *redis.Client) *TokenBlacklist {
	return &TokenBlacklist{client: client, prefix: "blacklist:access:"}
}

func (b *TokenBlacklist) Add(ctx context.Context, token string, ttl time.Duration) error {
	if b == nil || b.client == nil || ttl <= 0 {
		return nil
	}
	return b.client.Set(ctx, b.prefix+token, "1", ttl).Err()
}

func (b *TokenBlacklist) Contains(ctx context.Context, token string) (bool, error) {
	if b == nil || b.client == nil {
		return false, nil
	}
	n, err := b.client.Exists(ctx, b.prefix+token).Result()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}
