package scheduler

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/nvh2205/noti-believe/internal/domain"
)

// winPayoutMultiplier doubles the stake on a winning bet.
const winPayoutMultiplier = 2.0

// SettlerConfig tunes the bet settlement sweep.
type SettlerConfig struct {
	// Window is how long a bet runs before it is judged.
	Window time.Duration
	// SweepInterval is how often pending bets are checked.
	SweepInterval time.Duration
}

// BetSettler periodically settles matured bets: a bet wins when the token's
// market cap moved in the wagered direction over the window.
type BetSettler struct {
	cfg    SettlerConfig
	bets   domain.BetStore
	users  domain.UserStore
	tokens domain.TokenStore
	logger *slog.Logger
	now    func() time.Time
}

// NewBetSettler creates a BetSettler.
func NewBetSettler(cfg SettlerConfig, bets domain.BetStore, users domain.UserStore, tokens domain.TokenStore, logger *slog.Logger) *BetSettler {
	return &BetSettler{
		cfg:    cfg,
		bets:   bets,
		users:  users,
		tokens: tokens,
		logger: logger.With(slog.String("component", "bet_settler")),
		now:    time.Now,
	}
}

// Run sweeps for matured bets until ctx is cancelled.
func (s *BetSettler) Run(ctx context.Context) error {
	ticker := time.NewTicker(s.cfg.SweepInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil // clean shutdown
		case <-ticker.C:
			if err := s.sweep(ctx); err != nil {
				s.logger.Warn("settlement sweep failed", slog.String("error", err.Error()))
			}
		}
	}
}

func (s *BetSettler) sweep(ctx context.Context) error {
	cutoff := s.now().Add(-s.cfg.Window)
	pending, err := s.bets.ListPendingBefore(ctx, cutoff)
	if err != nil {
		return err
	}

	for _, bet := range pending {
		if ctx.Err() != nil {
			return nil
		}
		if err := s.settleOne(ctx, bet); err != nil {
			s.logger.Error("settle bet failed",
				slog.String("bet_id", bet.ID),
				slog.String("error", err.Error()),
			)
		}
	}
	return nil
}

// settleOne judges a single bet against the token's current market cap.
// Tokens that vanished from the store settle against a market cap of zero;
// transient lookup failures leave the bet pending for the next sweep.
func (s *BetSettler) settleOne(ctx context.Context, bet domain.Bet) error {
	var currentMC float64
	token, err := s.tokens.FindByCA(ctx, bet.CAAddress)
	switch {
	case err == nil:
		currentMC = token.MarketCap
	case errors.Is(err, domain.ErrNotFound):
	default:
		return fmt.Errorf("scheduler: load token %s: %w", bet.CAAddress, err)
	}

	won := false
	switch bet.Direction {
	case domain.BetUp:
		won = currentMC > bet.EntryMC
	case domain.BetDown:
		won = currentMC < bet.EntryMC
	}

	status := domain.BetLost
	payout := 0.0
	if won {
		status = domain.BetWon
		payout = bet.Amount * winPayoutMultiplier
	}

	if err := s.bets.Settle(ctx, bet.ID, status, currentMC); err != nil {
		return err
	}
	if err := s.users.RecordResult(ctx, bet.UserID, won, payout); err != nil {
		return err
	}

	s.logger.Info("bet settled",
		slog.String("bet_id", bet.ID),
		slog.String("status", status),
		slog.Float64("entry_mc", bet.EntryMC),
		slog.Float64("settled_mc", currentMC),
	)
	return nil
}
