package redis

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/nvh2205/noti-believe/internal/domain"
	"github.com/redis/go-redis/v9"
)

// SessionCache implements domain.SessionCache on top of plain string keys
// with expiry. Nonces are single-use; sessions live until their TTL lapses.
type SessionCache struct {
	rdb *redis.Client
}

// NewSessionCache creates a SessionCache backed by the given Client.
func NewSessionCache(c *Client) *SessionCache {
	return &SessionCache{rdb: c.Underlying()}
}

func nonceKey(wallet string) string {
	return "auth:nonce:" + wallet
}

func sessionKey(token string) string {
	return "auth:session:" + token
}

// PutNonce stores the login nonce for a wallet with the given TTL,
// replacing any previous nonce.
func (s *SessionCache) PutNonce(ctx context.Context, wallet, nonce string, ttl time.Duration) error {
	if err := s.rdb.Set(ctx, nonceKey(wallet), nonce, ttl).Err(); err != nil {
		return fmt.Errorf("redis: put nonce %s: %w", wallet, err)
	}
	return nil
}

// TakeNonce returns and deletes the nonce for a wallet. A missing or expired
// nonce maps to domain.ErrNotFound.
func (s *SessionCache) TakeNonce(ctx context.Context, wallet string) (string, error) {
	nonce, err := s.rdb.GetDel(ctx, nonceKey(wallet)).Result()
	if errors.Is(err, redis.Nil) {
		return "", domain.ErrNotFound
	}
	if err != nil {
		return "", fmt.Errorf("redis: take nonce %s: %w", wallet, err)
	}
	return nonce, nil
}

// PutSession stores an opaque session token mapped to its wallet.
func (s *SessionCache) PutSession(ctx context.Context, token, wallet string, ttl time.Duration) error {
	if err := s.rdb.Set(ctx, sessionKey(token), wallet, ttl).Err(); err != nil {
		return fmt.Errorf("redis: put session: %w", err)
	}
	return nil
}

// WalletForSession resolves a session token to its wallet, or
// domain.ErrNotFound when the session is absent or expired.
func (s *SessionCache) WalletForSession(ctx context.Context, token string) (string, error) {
	wallet, err := s.rdb.Get(ctx, sessionKey(token)).Result()
	if errors.Is(err, redis.Nil) {
		return "", domain.ErrNotFound
	}
	if err != nil {
		return "", fmt.Errorf("redis: get session: %w", err)
	}
	return wallet, nil
}

var _ domain.SessionCache = (*SessionCache)(nil)
