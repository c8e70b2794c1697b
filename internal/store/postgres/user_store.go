package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/nvh2205/noti-believe/internal/domain"
)

// UserStore implements domain.UserStore using PostgreSQL.
type UserStore struct {
	pool *pgxpool.Pool
}

// NewUserStore creates a UserStore backed by the given connection pool.
func NewUserStore(pool *pgxpool.Pool) *UserStore {
	return &UserStore{pool: pool}
}

var _ domain.UserStore = (*UserStore)(nil)

const userCols = `id, wallet_address, username, balance, free_turns,
	paid_turns, win_count, loss_count, created_at, updated_at`

func scanUser(row pgx.Row) (domain.User, error) {
	var u domain.User
	var username *string
	err := row.Scan(
		&u.ID, &u.WalletAddress, &username, &u.Balance, &u.FreeTurns,
		&u.PaidTurns, &u.WinCount, &u.LossCount, &u.CreatedAt, &u.UpdatedAt,
	)
	if err != nil {
		return domain.User{}, err
	}
	if username != nil {
		u.Username = *username
	}
	return u, nil
}

// FindByWallet retrieves a user by wallet address.
func (s *UserStore) FindByWallet(ctx context.Context, wallet string) (domain.User, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT `+userCols+` FROM users WHERE wallet_address = $1`, wallet)
	u, err := scanUser(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.User{}, domain.ErrNotFound
		}
		return domain.User{}, fmt.Errorf("postgres: find user %s: %w", wallet, err)
	}
	return u, nil
}

// Create inserts a new user for the given wallet.
func (s *UserStore) Create(ctx context.Context, wallet string) (domain.User, error) {
	row := s.pool.QueryRow(ctx, `
		INSERT INTO users (wallet_address) VALUES ($1)
		ON CONFLICT (wallet_address) DO NOTHING
		RETURNING `+userCols, wallet)
	u, err := scanUser(row)
	if err != nil {
		// ON CONFLICT DO NOTHING returns no row when the wallet exists.
		if errors.Is(err, pgx.ErrNoRows) {
			return s.FindByWallet(ctx, wallet)
		}
		return domain.User{}, fmt.Errorf("postgres: create user %s: %w", wallet, err)
	}
	return u, nil
}

// SpendTurn atomically consumes one turn, preferring free turns, and debits
// the bet amount. Returns ErrNoTurnsLeft when no turn is available.
func (s *UserStore) SpendTurn(ctx context.Context, userID string, amount float64) error {
	tag, err := s.pool.Exec(ctx, `
		UPDATE users
		SET free_turns = CASE WHEN free_turns > 0 THEN free_turns - 1 ELSE free_turns END,
		    paid_turns = CASE WHEN free_turns > 0 THEN paid_turns ELSE paid_turns - 1 END,
		    balance    = balance - $2,
		    updated_at = NOW()
		WHERE id = $1 AND (free_turns > 0 OR paid_turns > 0) AND balance >= $2`,
		userID, amount)
	if err != nil {
		return fmt.Errorf("postgres: spend turn for %s: %w", userID, err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNoTurnsLeft
	}
	return nil
}

// RecordResult credits a payout and bumps the matching win/loss counter.
func (s *UserStore) RecordResult(ctx context.Context, userID string, won bool, payout float64) error {
	query := `
		UPDATE users
		SET balance = balance + $2, loss_count = loss_count + 1, updated_at = NOW()
		WHERE id = $1`
	if won {
		query = `
		UPDATE users
		SET balance = balance + $2, win_count = win_count + 1, updated_at = NOW()
		WHERE id = $1`
	}

	tag, err := s.pool.Exec(ctx, query, userID, payout)
	if err != nil {
		return fmt.Errorf("postgres: record result for %s: %w", userID, err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// ResetFreeTurns restores every user's daily free turns.
func (s *UserStore) ResetFreeTurns(ctx context.Context, turns int) error {
	_, err := s.pool.Exec(ctx,
		`UPDATE users SET free_turns = $1, updated_at = NOW()`, turns)
	if err != nil {
		return fmt.Errorf("postgres: reset free turns: %w", err)
	}
	return nil
}

// Leaderboard returns the top users by win count.
func (s *UserStore) Leaderboard(ctx context.Context, limit int) ([]domain.LeaderboardEntry, error) {
	if limit <= 0 {
		limit = 10
	}

	rows, err := s.pool.Query(ctx, `
		SELECT wallet_address, username, win_count, loss_count, balance
		FROM users
		ORDER BY win_count DESC, balance DESC
		LIMIT $1`, limit)
	if err != nil {
		return nil, fmt.Errorf("postgres: leaderboard: %w", err)
	}
	defer rows.Close()

	var entries []domain.LeaderboardEntry
	rank := 0
	for rows.Next() {
		var e domain.LeaderboardEntry
		var username *string
		if err := rows.Scan(&e.WalletAddress, &username, &e.WinCount, &e.LossCount, &e.Balance); err != nil {
			return nil, fmt.Errorf("postgres: scan leaderboard row: %w", err)
		}
		if username != nil {
			e.Username = *username
		}
		rank++
		e.Rank = rank
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("postgres: leaderboard rows: %w", err)
	}
	return entries, nil
}
