package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/nvh2205/noti-believe/internal/domain"
)

// BetStore implements domain.BetStore using PostgreSQL.
type BetStore struct {
	pool *pgxpool.Pool
}

// NewBetStore creates a BetStore backed by the given connection pool.
func NewBetStore(pool *pgxpool.Pool) *BetStore {
	return &BetStore{pool: pool}
}

var _ domain.BetStore = (*BetStore)(nil)

const betCols = `id, user_id, ca_address, direction, amount,
	entry_market_cap, settled_market_cap, status, created_at, settled_at`

func scanBet(row pgx.Row) (domain.Bet, error) {
	var b domain.Bet
	var settledMC *float64
	err := row.Scan(
		&b.ID, &b.UserID, &b.CAAddress, &b.Direction, &b.Amount,
		&b.EntryMC, &settledMC, &b.Status, &b.CreatedAt, &b.SettledAt,
	)
	if err != nil {
		return domain.Bet{}, err
	}
	if settledMC != nil {
		b.SettledMC = *settledMC
	}
	return b, nil
}

// Create inserts a pending bet and returns the stored row.
func (s *BetStore) Create(ctx context.Context, bet domain.Bet) (domain.Bet, error) {
	row := s.pool.QueryRow(ctx, `
		INSERT INTO bets (user_id, ca_address, direction, amount, entry_market_cap)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING `+betCols,
		bet.UserID, bet.CAAddress, bet.Direction, bet.Amount, bet.EntryMC)
	stored, err := scanBet(row)
	if err != nil {
		return domain.Bet{}, fmt.Errorf("postgres: create bet: %w", err)
	}
	return stored, nil
}

// ListByUser returns a user's bets, newest first.
func (s *BetStore) ListByUser(ctx context.Context, userID string, opts domain.ListOpts) ([]domain.Bet, error) {
	limit := opts.Limit
	if limit <= 0 {
		limit = 50
	}

	rows, err := s.pool.Query(ctx,
		`SELECT `+betCols+` FROM bets WHERE user_id = $1 ORDER BY created_at DESC LIMIT $2 OFFSET $3`,
		userID, limit, opts.Offset)
	if err != nil {
		return nil, fmt.Errorf("postgres: list bets for %s: %w", userID, err)
	}
	defer rows.Close()

	return collectBets(rows)
}

// ListPendingBefore returns unsettled bets created before the cutoff.
func (s *BetStore) ListPendingBefore(ctx context.Context, cutoff time.Time) ([]domain.Bet, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT `+betCols+` FROM bets WHERE status = 'pending' AND created_at < $1 ORDER BY created_at`,
		cutoff)
	if err != nil {
		return nil, fmt.Errorf("postgres: list pending bets: %w", err)
	}
	defer rows.Close()

	return collectBets(rows)
}

// Settle records the outcome of a bet.
func (s *BetStore) Settle(ctx context.Context, betID string, status string, settledMC float64) error {
	tag, err := s.pool.Exec(ctx, `
		UPDATE bets
		SET status = $2, settled_market_cap = $3, settled_at = NOW()
		WHERE id = $1 AND status = 'pending'`,
		betID, status, settledMC)
	if err != nil {
		return fmt.Errorf("postgres: settle bet %s: %w", betID, err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func collectBets(rows pgx.Rows) ([]domain.Bet, error) {
	var bets []domain.Bet
	for rows.Next() {
		b, err := scanBet(rows)
		if err != nil {
			return nil, fmt.Errorf("postgres: scan bet row: %w", err)
		}
		bets = append(bets, b)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("postgres: bet rows: %w", err)
	}
	return bets, nil
}
