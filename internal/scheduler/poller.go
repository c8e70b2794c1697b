// Package scheduler runs the periodic background jobs: the believesignal
// discovery poll and the daily free-turn reset for the betting game.
package scheduler

import (
	"context"
	"encoding/json"
	"log/slog"
	"strings"
	"time"

	"github.com/nvh2205/noti-believe/internal/domain"
	"github.com/nvh2205/noti-believe/internal/platform/believe"
)

// SignalSource serves discovery items for the poll loop.
type SignalSource interface {
	FetchTokens(ctx context.Context, count, minFollowers int) ([]believe.SignalToken, error)
}

// PollerConfig tunes the discovery poll.
type PollerConfig struct {
	Interval       time.Duration
	Count          int
	MinFollowers   int
	InterItemDelay time.Duration
}

// Poller periodically pulls the believesignal feed and enqueues unseen
// tokens as alert jobs. Items already inside the dedup window are skipped,
// so overlapping polls never double-alert.
type Poller struct {
	cfg     PollerConfig
	signals SignalSource
	dedup   domain.DedupGate
	queue   domain.JobQueue
	logger  *slog.Logger
}

// NewPoller creates a Poller.
func NewPoller(cfg PollerConfig, signals SignalSource, dedup domain.DedupGate, queue domain.JobQueue, logger *slog.Logger) *Poller {
	return &Poller{
		cfg:     cfg,
		signals: signals,
		dedup:   dedup,
		queue:   queue,
		logger:  logger.With(slog.String("component", "signal_poller")),
	}
}

// Run polls until ctx is cancelled.
func (p *Poller) Run(ctx context.Context) error {
	p.logger.Info("signal poll started", slog.Duration("interval", p.cfg.Interval))
	ticker := time.NewTicker(p.cfg.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil // clean shutdown
		case <-ticker.C:
			if err := p.pollOnce(ctx); err != nil {
				p.logger.Warn("signal poll failed", slog.String("error", err.Error()))
			}
		}
	}
}

func (p *Poller) pollOnce(ctx context.Context) error {
	tokens, err := p.signals.FetchTokens(ctx, p.cfg.Count, p.cfg.MinFollowers)
	if err != nil {
		return err
	}

	for _, token := range tokens {
		if ctx.Err() != nil {
			return nil
		}
		if token.CAAddress == "" {
			continue
		}

		seen, err := p.dedup.CheckAndMark(ctx, token.CAAddress, []byte(token.CoinTicker))
		if err != nil {
			p.logger.Warn("dedup check failed",
				slog.String("ca_address", token.CAAddress),
				slog.String("error", err.Error()),
			)
			continue
		}
		if seen {
			continue
		}

		alert := alertFromSignal(token)
		if err := p.queue.Enqueue(ctx, domain.JobProcessToken, alert, domain.JobOptions{Attempts: 1}); err != nil {
			p.logger.Error("enqueue signal token failed",
				slog.String("ca_address", token.CAAddress),
				slog.String("error", err.Error()),
			)
			continue
		}

		p.logger.Info("signal token enqueued",
			slog.String("ca_address", token.CAAddress),
			slog.String("ticker", token.CoinTicker),
		)

		// Spacing the sends keeps the alert channel readable when the feed
		// returns a burst of new tokens.
		if p.cfg.InterItemDelay > 0 {
			select {
			case <-ctx.Done():
				return nil
			case <-time.After(p.cfg.InterItemDelay):
			}
		}
	}
	return nil
}

// alertFromSignal maps a feed item onto an alert payload. The social blob is
// decoded best-effort; a malformed one alerts without social data rather
// than dropping the token.
func alertFromSignal(token believe.SignalToken) domain.TokenAlert {
	alert := domain.TokenAlert{
		CoinName:      token.CoinName,
		CoinTicker:    token.CoinTicker,
		CAAddress:     token.CAAddress,
		CreatedAt:     token.CreatedAt,
		TwitterHandle: strings.TrimPrefix(token.TwitterHandle, "@"),
		Price:         token.Price,
		MarketCap:     token.MarketCap,
	}
	if len(token.TwitterInfo) > 0 {
		_ = json.Unmarshal(token.TwitterInfo, &alert.TwitterInfo)
	}
	return alert
}

// TurnResetter restores every user's daily free betting turns at local
// midnight.
type TurnResetter struct {
	users  domain.UserStore
	turns  int
	logger *slog.Logger
	now    func() time.Time
}

// NewTurnResetter creates a TurnResetter granting turns free turns per day.
func NewTurnResetter(users domain.UserStore, turns int, logger *slog.Logger) *TurnResetter {
	return &TurnResetter{
		users:  users,
		turns:  turns,
		logger: logger.With(slog.String("component", "turn_resetter")),
		now:    time.Now,
	}
}

// Run sleeps until each midnight and resets free turns, until ctx is
// cancelled.
func (r *TurnResetter) Run(ctx context.Context) error {
	for {
		wait := time.Until(nextMidnight(r.now()))
		select {
		case <-ctx.Done():
			return nil // clean shutdown
		case <-time.After(wait):
		}

		if err := r.users.ResetFreeTurns(ctx, r.turns); err != nil {
			r.logger.Error("free turn reset failed", slog.String("error", err.Error()))
			continue
		}
		r.logger.Info("free turns reset", slog.Int("turns", r.turns))
	}
}

func nextMidnight(now time.Time) time.Time {
	y, m, d := now.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, now.Location()).AddDate(0, 0, 1)
}
