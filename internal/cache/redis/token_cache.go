package redis

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"spikewatch/internal/domain"
)

// tokenKey holds the broker session as a hash with fields "token" and
// "issued_at" (Unix seconds), so a restart within the session's lifetime
// skips the login flow.
const tokenKey = "fyers:token"

// TokenCache implements domain.TokenCache on a Redis hash.
type TokenCache struct {
	rdb *redis.Client
}

// NewTokenCache creates a TokenCache backed by the given Client.
func NewTokenCache(c *Client) *TokenCache {
	return &TokenCache{rdb: c.Underlying()}
}

// Save stores the access token and its issue time.
func (tc *TokenCache) Save(ctx context.Context, tok domain.AccessToken) error {
	fields := map[string]interface{}{
		"token":     tok.Token,
		"issued_at": strconv.FormatInt(tok.IssuedAt.Unix(), 10),
	}
	if err := tc.rdb.HSet(ctx, tokenKey, fields).Err(); err != nil {
		return fmt.Errorf("redis: save token: %w", err)
	}
	return nil
}

// Load retrieves the cached token. It returns domain.ErrNotFound when no
// token has been saved or the stored hash is incomplete.
func (tc *TokenCache) Load(ctx context.Context) (domain.AccessToken, error) {
	vals, err := tc.rdb.HGetAll(ctx, tokenKey).Result()
	if err != nil {
		return domain.AccessToken{}, fmt.Errorf("redis: load token: %w", err)
	}
	if len(vals) == 0 {
		return domain.AccessToken{}, domain.ErrNotFound
	}

	token, ok := vals["token"]
	if !ok || token == "" {
		return domain.AccessToken{}, domain.ErrNotFound
	}
	issuedStr, ok := vals["issued_at"]
	if !ok {
		return domain.AccessToken{}, domain.ErrNotFound
	}
	issued, err := strconv.ParseInt(issuedStr, 10, 64)
	if err != nil {
		return domain.AccessToken{}, fmt.Errorf("redis: parse issued_at: %w", err)
	}

	return domain.AccessToken{Token: token, IssuedAt: time.Unix(issued, 0)}, nil
}

// Clear drops the cached token, forcing a fresh login on the next
// authentication.
func (tc *TokenCache) Clear(ctx context.Context) error {
	if err := tc.rdb.Del(ctx, tokenKey).Err(); err != nil {
		return fmt.Errorf("redis: clear token: %w", err)
	}
	return nil
}

// Compile-time interface check.
var _ domain.TokenCache = (*TokenCache)(nil)
