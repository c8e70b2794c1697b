package domain

import (
	"context"
	"time"
)

// ListOpts carries standard pagination parameters.
type ListOpts struct {
	Limit  int
	Offset int
}

// TokenStore persists alerted token records.
type TokenStore interface {
	// FindByCA returns the record for a contract address, or ErrNotFound.
	FindByCA(ctx context.Context, caAddress string) (TokenRecord, error)
	// FindByPair returns the record for a pair address, or ErrNotFound.
	FindByPair(ctx context.Context, pairAddress string) (TokenRecord, error)
	// Upsert inserts a record or updates the existing row keyed by
	// ca_address, returning the stored record.
	Upsert(ctx context.Context, rec TokenRecord) (TokenRecord, error)
	// SetMessageID persists the delivered Telegram message handle onto the
	// record for the given contract address.
	SetMessageID(ctx context.Context, caAddress string, messageID int64) error
	// UpdateSnapshot refreshes price, market cap and the social snapshot.
	UpdateSnapshot(ctx context.Context, caAddress string, price, marketCap float64, info SocialSnapshot) error
	// ListRecent returns records ordered by created_at descending.
	ListRecent(ctx context.Context, opts ListOpts) ([]TokenRecord, error)
	// ListCreatedBetween returns records created in [from, to).
	ListCreatedBetween(ctx context.Context, from, to time.Time) ([]TokenRecord, error)
}

// UserStore persists wallet-authenticated users.
type UserStore interface {
	FindByWallet(ctx context.Context, wallet string) (User, error)
	Create(ctx context.Context, wallet string) (User, error)
	// SpendTurn atomically consumes one free turn (preferred) or paid turn
	// and debits amount from the balance. Returns ErrNoTurnsLeft when the
	// user has neither.
	SpendTurn(ctx context.Context, userID string, amount float64) error
	// RecordResult credits winnings and bumps the win/loss counters.
	RecordResult(ctx context.Context, userID string, won bool, payout float64) error
	// ResetFreeTurns restores every user's daily free turns.
	ResetFreeTurns(ctx context.Context, turns int) error
	Leaderboard(ctx context.Context, limit int) ([]LeaderboardEntry, error)
}

// BetStore persists bets.
type BetStore interface {
	Create(ctx context.Context, bet Bet) (Bet, error)
	ListByUser(ctx context.Context, userID string, opts ListOpts) ([]Bet, error)
	// ListPendingBefore returns unsettled bets created before the cutoff.
	ListPendingBefore(ctx context.Context, cutoff time.Time) ([]Bet, error)
	Settle(ctx context.Context, betID string, status string, settledMC float64) error
}

// DedupGate is the TTL-bounded idempotency check in front of the job queue.
type DedupGate interface {
	// CheckAndMark reports whether id was already marked inside the TTL
	// window. When absent it writes payload under id with the TTL and
	// reports alreadySeen=false.
	CheckAndMark(ctx context.Context, id string, payload []byte) (alreadySeen bool, err error)
}

// SessionCache stores login nonces and opaque session tokens with expiry.
type SessionCache interface {
	PutNonce(ctx context.Context, wallet, nonce string, ttl time.Duration) error
	// TakeNonce returns and deletes the nonce for a wallet, or ErrNotFound.
	TakeNonce(ctx context.Context, wallet string) (string, error)
	PutSession(ctx context.Context, token, wallet string, ttl time.Duration) error
	// WalletForSession resolves a session token, or ErrNotFound.
	WalletForSession(ctx context.Context, token string) (string, error)
}

// RateLimiter limits request rates per key.
type RateLimiter interface {
	// Allow reports whether a request for key is permitted under the
	// sliding window limit, counting it when permitted.
	Allow(ctx context.Context, key string, limit int, window time.Duration) (bool, error)
}

// BlobWriter uploads objects to blob storage (alert archival).
type BlobWriter interface {
	Put(ctx context.Context, path string, data []byte, contentType string) error
}
