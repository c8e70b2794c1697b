package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/nvh2205/noti-believe/internal/domain"
)

// TokenStore implements domain.TokenStore using PostgreSQL.
type TokenStore struct {
	pool *pgxpool.Pool
}

// NewTokenStore creates a TokenStore backed by the given connection pool.
func NewTokenStore(pool *pgxpool.Pool) *TokenStore {
	return &TokenStore{pool: pool}
}

var _ domain.TokenStore = (*TokenStore)(nil)

const tokenCols = `id, coin_name, coin_ticker, ca_address, pair_address,
	twitter_handler, website, price, initial_price, market_cap,
	initial_market_cap, message_id, twitter_info, created_at, updated_at`

func scanToken(row pgx.Row) (domain.TokenRecord, error) {
	var (
		rec         domain.TokenRecord
		pairAddress *string
		handle      *string
		website     *string
		messageID   *int64
		info        []byte
	)
	err := row.Scan(
		&rec.ID, &rec.CoinName, &rec.CoinTicker, &rec.CAAddress, &pairAddress,
		&handle, &website, &rec.Price, &rec.InitialPrice, &rec.MarketCap,
		&rec.InitialMC, &messageID, &info, &rec.CreatedAt, &rec.UpdatedAt,
	)
	if err != nil {
		return domain.TokenRecord{}, err
	}
	if pairAddress != nil {
		rec.PairAddress = *pairAddress
	}
	if handle != nil {
		rec.TwitterHandle = *handle
	}
	if website != nil {
		rec.Website = *website
	}
	if messageID != nil {
		rec.MessageID = *messageID
	}
	if len(info) > 0 {
		if err := json.Unmarshal(info, &rec.TwitterInfo); err != nil {
			return domain.TokenRecord{}, fmt.Errorf("postgres: decode twitter_info for %s: %w", rec.CAAddress, err)
		}
	}
	return rec, nil
}

// FindByCA retrieves a token record by contract address.
func (s *TokenStore) FindByCA(ctx context.Context, caAddress string) (domain.TokenRecord, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT `+tokenCols+` FROM tokens WHERE ca_address = $1`, caAddress)
	rec, err := scanToken(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.TokenRecord{}, domain.ErrNotFound
		}
		return domain.TokenRecord{}, fmt.Errorf("postgres: find token %s: %w", caAddress, err)
	}
	return rec, nil
}

// FindByPair retrieves a token record by pair address.
func (s *TokenStore) FindByPair(ctx context.Context, pairAddress string) (domain.TokenRecord, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT `+tokenCols+` FROM tokens WHERE pair_address = $1`, pairAddress)
	rec, err := scanToken(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.TokenRecord{}, domain.ErrNotFound
		}
		return domain.TokenRecord{}, fmt.Errorf("postgres: find token by pair %s: %w", pairAddress, err)
	}
	return rec, nil
}

// Upsert inserts or updates a token record keyed by ca_address. The initial
// price and market cap are only written on insert; later upserts refresh the
// current values.
func (s *TokenStore) Upsert(ctx context.Context, rec domain.TokenRecord) (domain.TokenRecord, error) {
	info, err := json.Marshal(rec.TwitterInfo)
	if err != nil {
		return domain.TokenRecord{}, fmt.Errorf("postgres: encode twitter_info for %s: %w", rec.CAAddress, err)
	}

	const query = `
		INSERT INTO tokens (
			coin_name, coin_ticker, ca_address, pair_address,
			twitter_handler, website, price, initial_price,
			market_cap, initial_market_cap, twitter_info
		) VALUES (
			$1, $2, $3, NULLIF($4, ''),
			NULLIF($5, ''), NULLIF($6, ''), $7, $7,
			$8, $8, $9
		)
		ON CONFLICT (ca_address) DO UPDATE SET
			coin_name       = EXCLUDED.coin_name,
			coin_ticker     = EXCLUDED.coin_ticker,
			pair_address    = COALESCE(EXCLUDED.pair_address, tokens.pair_address),
			twitter_handler = COALESCE(EXCLUDED.twitter_handler, tokens.twitter_handler),
			website         = COALESCE(EXCLUDED.website, tokens.website),
			price           = EXCLUDED.price,
			market_cap      = EXCLUDED.market_cap,
			twitter_info    = EXCLUDED.twitter_info,
			updated_at      = NOW()
		RETURNING ` + tokenCols

	row := s.pool.QueryRow(ctx, query,
		rec.CoinName, rec.CoinTicker, rec.CAAddress, rec.PairAddress,
		rec.TwitterHandle, rec.Website, rec.Price,
		rec.MarketCap, info,
	)
	stored, err := scanToken(row)
	if err != nil {
		return domain.TokenRecord{}, fmt.Errorf("postgres: upsert token %s: %w", rec.CAAddress, err)
	}
	return stored, nil
}

// SetMessageID persists the delivered Telegram message handle.
func (s *TokenStore) SetMessageID(ctx context.Context, caAddress string, messageID int64) error {
	tag, err := s.pool.Exec(ctx,
		`UPDATE tokens SET message_id = $2, updated_at = NOW() WHERE ca_address = $1`,
		caAddress, messageID)
	if err != nil {
		return fmt.Errorf("postgres: set message id for %s: %w", caAddress, err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// UpdateSnapshot refreshes the current price, market cap and social snapshot.
func (s *TokenStore) UpdateSnapshot(ctx context.Context, caAddress string, price, marketCap float64, info domain.SocialSnapshot) error {
	encoded, err := json.Marshal(info)
	if err != nil {
		return fmt.Errorf("postgres: encode twitter_info for %s: %w", caAddress, err)
	}
	tag, err := s.pool.Exec(ctx, `
		UPDATE tokens
		SET price = $2, market_cap = $3, twitter_info = $4, updated_at = NOW()
		WHERE ca_address = $1`,
		caAddress, price, marketCap, encoded)
	if err != nil {
		return fmt.Errorf("postgres: update snapshot for %s: %w", caAddress, err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// ListRecent returns token records ordered by created_at descending.
func (s *TokenStore) ListRecent(ctx context.Context, opts domain.ListOpts) ([]domain.TokenRecord, error) {
	limit := opts.Limit
	if limit <= 0 {
		limit = 50
	}

	rows, err := s.pool.Query(ctx,
		`SELECT `+tokenCols+` FROM tokens ORDER BY created_at DESC LIMIT $1 OFFSET $2`,
		limit, opts.Offset)
	if err != nil {
		return nil, fmt.Errorf("postgres: list recent tokens: %w", err)
	}
	defer rows.Close()

	return collectTokens(rows)
}

// ListCreatedBetween returns token records created in [from, to).
func (s *TokenStore) ListCreatedBetween(ctx context.Context, from, to time.Time) ([]domain.TokenRecord, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT `+tokenCols+` FROM tokens WHERE created_at >= $1 AND created_at < $2 ORDER BY created_at`,
		from, to)
	if err != nil {
		return nil, fmt.Errorf("postgres: list tokens by window: %w", err)
	}
	defer rows.Close()

	return collectTokens(rows)
}

func collectTokens(rows pgx.Rows) ([]domain.TokenRecord, error) {
	var records []domain.TokenRecord
	for rows.Next() {
		rec, err := scanToken(rows)
		if err != nil {
			return nil, fmt.Errorf("postgres: scan token row: %w", err)
		}
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("postgres: token rows: %w", err)
	}
	return records, nil
}
