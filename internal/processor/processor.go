package processor

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/nvh2205/noti-believe/internal/domain"
	"github.com/nvh2205/noti-believe/internal/notify"
	"github.com/nvh2205/noti-believe/internal/queue"
)

// Messenger is the Telegram surface the processor needs.
type Messenger interface {
	SendMessage(ctx context.Context, chatID int64, text string, keyboard *notify.InlineKeyboard) (int64, error)
	EditMessageText(ctx context.Context, chatID, messageID int64, text string, keyboard *notify.InlineKeyboard) error
	DeleteMessage(ctx context.Context, chatID, messageID int64) error
}

// Enricher re-fetches price, pair and social data for a token.
type Enricher interface {
	Enrich(ctx context.Context, pairAddress, twitterHandle string) domain.Enrichment
}

// Config tunes the processor.
type Config struct {
	// ChatID is the Telegram chat alerts are delivered to.
	ChatID int64
	// PreSendDelay holds each alert briefly before delivery so the price
	// endpoints have caught up with the pair.
	PreSendDelay time.Duration
}

// Processor consumes the token job queue: it delivers alerts, refreshes
// delivered messages in place, and produces insight analyses.
type Processor struct {
	cfg      Config
	store    domain.TokenStore
	telegram Messenger
	enricher Enricher
	logger   *slog.Logger
	now      func() time.Time
}

// New creates a Processor.
func New(cfg Config, store domain.TokenStore, telegram Messenger, enricher Enricher, logger *slog.Logger) *Processor {
	return &Processor{
		cfg:      cfg,
		store:    store,
		telegram: telegram,
		enricher: enricher,
		logger:   logger.With(slog.String("component", "processor")),
		now:      time.Now,
	}
}

// Registrar registers job handlers by type.
type Registrar interface {
	Register(jobType string, handler queue.Handler)
}

// Register wires the processor's handlers into the queue.
func (p *Processor) Register(q Registrar) {
	q.Register(domain.JobProcessToken, p.HandleProcessToken)
	q.Register(domain.JobProcessTokenV2, p.HandleProcessTokenV2)
	q.Register(domain.JobRefreshToken, p.HandleRefresh)
	q.Register(domain.JobInsightAnalysis, p.HandleInsight)
}

// HandleProcessToken delivers an alert for a token surfaced by the signal
// poll. These carry no pair address, so the payload values are sent as-is.
func (p *Processor) HandleProcessToken(ctx context.Context, payload json.RawMessage) error {
	var alert domain.TokenAlert
	if err := json.Unmarshal(payload, &alert); err != nil {
		return fmt.Errorf("processor: decode process-token payload: %w", err)
	}

	if err := p.waitPreSend(ctx); err != nil {
		return err
	}

	return p.deliver(ctx, alert)
}

// HandleProcessTokenV2 delivers an alert for a token discovered on the live
// feed. The payload market cap is recomputed from price and supply when both
// are present.
func (p *Processor) HandleProcessTokenV2(ctx context.Context, payload json.RawMessage) error {
	var alert domain.TokenAlert
	if err := json.Unmarshal(payload, &alert); err != nil {
		return fmt.Errorf("processor: decode process-token-v2 payload: %w", err)
	}

	if err := p.waitPreSend(ctx); err != nil {
		return err
	}

	if price, ok := ParseDollar(alert.Price); ok && alert.Supply > 0 {
		alert.MarketCap = FormatUSD(float64(int64(price * alert.Supply)))
	}

	return p.deliver(ctx, alert)
}

// waitPreSend holds an alert back briefly before delivery so the price
// endpoints have caught up with the pair.
func (p *Processor) waitPreSend(ctx context.Context) error {
	if p.cfg.PreSendDelay <= 0 {
		return nil
	}
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(p.cfg.PreSendDelay):
		return nil
	}
}

// deliver sends the alert and persists the resulting record with the
// delivered message ID, so later refresh and insight callbacks can find it.
// Delivery is at-most-once: a failed send completes the job instead of
// retrying, and persistence is best-effort.
func (p *Processor) deliver(ctx context.Context, alert domain.TokenAlert) error {
	text := FormatAlert(alert, p.now())
	msgID, err := p.telegram.SendMessage(ctx, p.cfg.ChatID, text, AlertKeyboard(alert.CAAddress))
	if err != nil {
		p.logger.Error("send alert failed",
			slog.String("ca_address", alert.CAAddress),
			slog.String("error", err.Error()),
		)
		return nil
	}

	p.logger.Info("alert delivered",
		slog.String("ca_address", alert.CAAddress),
		slog.String("ticker", alert.CoinTicker),
		slog.Int64("message_id", msgID),
	)

	price, _ := ParseDollar(alert.Price)
	mc, _ := ParseDollar(alert.MarketCap)

	rec := domain.TokenRecord{
		CoinName:      alert.CoinName,
		CoinTicker:    alert.CoinTicker,
		CAAddress:     alert.CAAddress,
		PairAddress:   alert.PairAddress,
		TwitterHandle: alert.TwitterHandle,
		Price:         price,
		InitialPrice:  price,
		MarketCap:     mc,
		InitialMC:     mc,
		TwitterInfo:   alert.TwitterInfo,
	}
	if _, err := p.store.Upsert(ctx, rec); err != nil {
		// Without the record the refresh and insight buttons answer
		// not-found, which beats re-posting the alert.
		p.logger.Error("persist token failed",
			slog.String("ca_address", alert.CAAddress),
			slog.String("error", err.Error()),
		)
		return nil
	}
	if err := p.store.SetMessageID(ctx, alert.CAAddress, msgID); err != nil {
		p.logger.Error("persist message id failed",
			slog.String("ca_address", alert.CAAddress),
			slog.String("error", err.Error()),
		)
	}
	return nil
}

// HandleRefresh re-enriches a token and edits the original alert in place.
func (p *Processor) HandleRefresh(ctx context.Context, payload json.RawMessage) error {
	var req domain.RefreshRequest
	if err := json.Unmarshal(payload, &req); err != nil {
		return fmt.Errorf("processor: decode refresh payload: %w", err)
	}

	rec, err := p.store.FindByCA(ctx, req.CAAddress)
	if err != nil {
		return fmt.Errorf("processor: load token %s: %w", req.CAAddress, err)
	}

	price, mc := rec.Price, rec.MarketCap
	info := rec.TwitterInfo
	if rec.PairAddress != "" {
		enr := p.enricher.Enrich(ctx, rec.PairAddress, rec.TwitterHandle)
		if enr.Price != nil {
			price = enr.Price.PriceUsd
		}
		if enr.MarketCap > 0 {
			mc = enr.MarketCap
		}
		if enr.Social.Score != "" {
			info = snapshotFromScore(enr.Social, info)
		}
		if err := p.store.UpdateSnapshot(ctx, req.CAAddress, price, mc, info); err != nil {
			return fmt.Errorf("processor: update snapshot for %s: %w", req.CAAddress, err)
		}
	}

	alert := domain.TokenAlert{
		CoinName:      rec.CoinName,
		CoinTicker:    rec.CoinTicker,
		CAAddress:     rec.CAAddress,
		PairAddress:   rec.PairAddress,
		CreatedAt:     rec.CreatedAt.Format(time.RFC3339),
		TwitterHandle: rec.TwitterHandle,
		Price:         FormatUSD(price),
		MarketCap:     FormatUSD(mc),
		TwitterInfo:   info,
	}

	text := FormatAlert(alert, p.now())
	if err := p.telegram.EditMessageText(ctx, req.ChatID, req.MessageID, text, AlertKeyboard(rec.CAAddress)); err != nil {
		return fmt.Errorf("processor: edit alert for %s: %w", req.CAAddress, err)
	}

	p.logger.Info("alert refreshed", slog.String("ca_address", req.CAAddress))
	return nil
}

// HandleInsight replaces the transient "analyzing" message with a full
// performance and social breakdown for the token.
func (p *Processor) HandleInsight(ctx context.Context, payload json.RawMessage) error {
	var req domain.InsightRequest
	if err := json.Unmarshal(payload, &req); err != nil {
		return fmt.Errorf("processor: decode insight payload: %w", err)
	}

	rec, err := p.store.FindByCA(ctx, req.CAAddress)
	if err != nil {
		return fmt.Errorf("processor: load token %s: %w", req.CAAddress, err)
	}

	price, mc := rec.Price, rec.MarketCap
	if rec.PairAddress != "" {
		enr := p.enricher.Enrich(ctx, rec.PairAddress, rec.TwitterHandle)
		if enr.Price != nil {
			price = enr.Price.PriceUsd
		}
		if enr.MarketCap > 0 {
			mc = enr.MarketCap
		}
	}

	if req.MessageID != 0 {
		if err := p.telegram.DeleteMessage(ctx, req.ChatID, req.MessageID); err != nil {
			// The placeholder may already be gone; the analysis still goes out.
			p.logger.Warn("delete placeholder failed",
				slog.String("ca_address", req.CAAddress),
				slog.String("error", err.Error()),
			)
		}
	}

	text := FormatInsight(rec, price, mc)
	if _, err := p.telegram.SendMessage(ctx, req.ChatID, text, nil); err != nil {
		return fmt.Errorf("processor: send insight for %s: %w", req.CAAddress, err)
	}

	p.logger.Info("insight delivered", slog.String("ca_address", req.CAAddress))
	return nil
}

// snapshotFromScore folds a fresh reputation score into an existing snapshot,
// keeping the display name the feed captured at alert time.
func snapshotFromScore(score domain.TwitterScore, prev domain.SocialSnapshot) domain.SocialSnapshot {
	out := domain.SocialSnapshot{
		Name:           prev.Name,
		FollowersCount: score.FollowersCount,
		IsBlueVerified: prev.IsBlueVerified,
		Score:          score.Score,
		FakePercent:    score.FakePercent,
		TopFollowers:   score.TopFollowers,
	}
	if out.FollowersCount == 0 {
		out.FollowersCount = prev.FollowersCount
	}
	return out
}
