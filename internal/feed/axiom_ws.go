// Package feed contains the Axiom token-discovery WebSocket listener that
// heads the alert pipeline.
package feed

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/nvh2205/noti-believe/internal/domain"
)

// virtualCurveProtocol is the only launch protocol the pipeline alerts on.
const virtualCurveProtocol = "Virtual Curve"

// Connection states.
const (
	StateDisconnected = "disconnected"
	StateConnecting   = "connecting"
	StateConnected    = "connected"
)

// joinMessage subscribes the socket to the new-pairs room.
type joinMessage struct {
	Action string `json:"action"`
	Room   string `json:"room"`
}

// wsMessage is the envelope of every feed message.
type wsMessage struct {
	Room    string          `json:"room"`
	Content json.RawMessage `json:"content"`
}

// newPairContent is the slice of a new_pairs event the pipeline consumes.
type newPairContent struct {
	PairAddress         string  `json:"pair_address"`
	TokenAddress        string  `json:"token_address"`
	TokenName           string  `json:"token_name"`
	TokenTicker         string  `json:"token_ticker"`
	Protocol            string  `json:"protocol"`
	CreatedAt           string  `json:"created_at"`
	Website             string  `json:"website"`
	Twitter             string  `json:"twitter"`
	Telegram            string  `json:"telegram"`
	Supply              float64 `json:"supply"`
	InitialLiquiditySol float64 `json:"initial_liquidity_sol"`
	DeployerAddress     string  `json:"deployer_address"`
}

// TokenScraper fetches the believe.app launch page for a token.
type TokenScraper interface {
	Scrape(ctx context.Context, tokenAddress string) (domain.ScrapedToken, error)
}

// ScoreFetcher resolves the social reputation of a launcher handle.
type ScoreFetcher interface {
	GetScore(ctx context.Context, username string) domain.TwitterScore
}

// TokenRefresher mints Axiom access tokens.
type TokenRefresher interface {
	AccessToken() string
	RefreshAccessToken(ctx context.Context) (string, error)
}

// Config holds the feed's connection and pacing parameters.
type Config struct {
	WsURL                string
	ReconnectDelay       time.Duration
	MaxReconnectAttempts int
	// SettleDelay is the pause between seeing a new pair and scraping its
	// page; the page needs time to exist.
	SettleDelay time.Duration
	// TokenRefreshInterval is the proactive access-token refresh cadence.
	TokenRefreshInterval time.Duration
	// AlertAttempts and AlertBackoff are the retry policy for enqueued
	// alerts.
	AlertAttempts int
	AlertBackoff  time.Duration
}

// AxiomFeed owns the discovery socket. It joins the new_pairs room, filters
// for Virtual Curve launches, enriches each candidate with a page scrape and
// a social score, and enqueues an alert job.
type AxiomFeed struct {
	cfg     Config
	auth    TokenRefresher
	scraper TokenScraper
	social  ScoreFetcher
	queue   domain.JobQueue
	dedup   domain.DedupGate
	logger  *slog.Logger

	mu       sync.Mutex
	conn     *websocket.Conn
	state    string
	attempts int

	reconnectCh chan struct{}
}

// NewAxiomFeed creates the feed.
func NewAxiomFeed(
	cfg Config,
	auth TokenRefresher,
	scraper TokenScraper,
	social ScoreFetcher,
	queue domain.JobQueue,
	dedup domain.DedupGate,
	logger *slog.Logger,
) *AxiomFeed {
	return &AxiomFeed{
		cfg:         cfg,
		auth:        auth,
		scraper:     scraper,
		social:      social,
		queue:       queue,
		dedup:       dedup,
		logger:      logger.With(slog.String("component", "axiom_feed")),
		state:       StateDisconnected,
		reconnectCh: make(chan struct{}, 1),
	}
}

// State returns the current connection state.
func (f *AxiomFeed) State() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.state
}

// Reconnect forces a fresh connection and resets the attempt counter, so a
// feed that exhausted its automatic retries comes back to life.
func (f *AxiomFeed) Reconnect() {
	f.mu.Lock()
	f.attempts = 0
	conn := f.conn
	f.mu.Unlock()

	if conn != nil {
		_ = conn.Close()
	}
	select {
	case f.reconnectCh <- struct{}{}:
	default:
	}
}

// Run refreshes the access token, connects, and processes feed messages
// until ctx is cancelled. Disconnects trigger fixed-delay reconnects up to
// the configured attempt cap; after that the feed idles until Reconnect.
func (f *AxiomFeed) Run(ctx context.Context) error {
	if _, err := f.auth.RefreshAccessToken(ctx); err != nil {
		f.logger.Error("initial token refresh failed", slog.String("error", err.Error()))
	}

	go f.refreshLoop(ctx)

	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		err := f.runConnection(ctx)
		if ctx.Err() != nil {
			return ctx.Err()
		}
		f.logger.Warn("feed disconnected", slog.String("error", err.Error()))

		f.mu.Lock()
		f.attempts++
		attempts := f.attempts
		f.mu.Unlock()

		if attempts > f.cfg.MaxReconnectAttempts {
			f.logger.Error("max reconnect attempts reached, feed idle until manual reconnect",
				slog.Int("attempts", attempts-1),
			)
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-f.reconnectCh:
				continue
			}
		}

		f.logger.Info("reconnecting",
			slog.Int("attempt", attempts),
			slog.Int("max_attempts", f.cfg.MaxReconnectAttempts),
		)
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-f.reconnectCh:
		case <-time.After(f.cfg.ReconnectDelay):
		}
	}
}

// refreshLoop proactively rotates the access token. While connected, a
// rotation forces a reconnect so the socket carries the fresh cookie.
func (f *AxiomFeed) refreshLoop(ctx context.Context) {
	ticker := time.NewTicker(f.cfg.TokenRefreshInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if _, err := f.auth.RefreshAccessToken(ctx); err != nil {
				f.logger.Error("scheduled token refresh failed", slog.String("error", err.Error()))
				continue
			}
			if f.State() == StateConnected {
				f.logger.Info("reconnecting to apply refreshed token")
				f.Reconnect()
			}
		}
	}
}

// runConnection dials, joins the room, and reads until the socket dies.
func (f *AxiomFeed) runConnection(ctx context.Context) error {
	f.setState(StateConnecting)
	defer f.setState(StateDisconnected)

	header := http.Header{}
	header.Set("Origin", "https://axiom.trade")
	header.Set("User-Agent", "Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/135.0.0.0 Safari/537.36")
	header.Set("Cookie", "auth-access-token="+f.auth.AccessToken())

	dialer := websocket.Dialer{HandshakeTimeout: 15 * time.Second}
	conn, _, err := dialer.DialContext(ctx, f.cfg.WsURL, header)
	if err != nil {
		return err
	}

	f.mu.Lock()
	f.conn = conn
	f.state = StateConnected
	f.attempts = 0
	f.mu.Unlock()

	defer func() {
		_ = conn.Close()
		f.mu.Lock()
		f.conn = nil
		f.mu.Unlock()
	}()

	// Close the socket when ctx ends so the read loop unblocks.
	stop := context.AfterFunc(ctx, func() { _ = conn.Close() })
	defer stop()

	if err := conn.WriteJSON(joinMessage{Action: "join", Room: "new_pairs"}); err != nil {
		return err
	}
	f.logger.Info("joined new_pairs room")

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			return err
		}
		f.handleMessage(ctx, data)
	}
}

func (f *AxiomFeed) setState(state string) {
	f.mu.Lock()
	f.state = state
	f.mu.Unlock()
}

// handleMessage filters a feed message and hands qualifying candidates off
// to an async processing goroutine.
func (f *AxiomFeed) handleMessage(ctx context.Context, data []byte) {
	var msg wsMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		f.logger.Error("malformed feed message", slog.String("error", err.Error()))
		return
	}
	if msg.Room != "new_pairs" || len(msg.Content) == 0 {
		return
	}

	var content newPairContent
	if err := json.Unmarshal(msg.Content, &content); err != nil {
		f.logger.Error("malformed new_pairs content", slog.String("error", err.Error()))
		return
	}
	if content.Protocol != virtualCurveProtocol || content.TokenAddress == "" {
		return
	}

	go f.processCandidate(ctx, content)
}

// processCandidate waits out the settle delay, scrapes the launch page,
// attaches a social score, and enqueues the alert. Candidates whose market
// cap never materialized are dropped.
func (f *AxiomFeed) processCandidate(ctx context.Context, content newPairContent) {
	select {
	case <-ctx.Done():
		return
	case <-time.After(f.cfg.SettleDelay):
	}

	scraped, err := f.scraper.Scrape(ctx, content.TokenAddress)
	if err != nil {
		f.logger.Error("scraping candidate failed",
			slog.String("token_address", content.TokenAddress),
			slog.String("error", err.Error()),
		)
		return
	}
	if scraped.MarketCap == domain.UnknownValue {
		f.logger.Debug("dropping candidate without market cap",
			slog.String("token_address", content.TokenAddress),
		)
		return
	}

	if f.dedup != nil {
		payload, _ := json.Marshal(content)
		seen, err := f.dedup.CheckAndMark(ctx, content.TokenAddress, payload)
		if err != nil {
			f.logger.Error("dedup check failed",
				slog.String("token_address", content.TokenAddress),
				slog.String("error", err.Error()),
			)
		} else if seen {
			f.logger.Debug("dropping duplicate candidate",
				slog.String("token_address", content.TokenAddress),
			)
			return
		}
	}

	score := f.social.GetScore(ctx, strings.TrimPrefix(scraped.LaunchedBy, "@"))

	alert := buildAlert(content, scraped, score)
	if err := f.queue.Enqueue(ctx, domain.JobProcessTokenV2, alert, domain.JobOptions{
		Attempts:    f.cfg.AlertAttempts,
		BackoffBase: f.cfg.AlertBackoff,
	}); err != nil {
		f.logger.Error("enqueueing alert failed",
			slog.String("token_address", content.TokenAddress),
			slog.String("error", err.Error()),
		)
		return
	}

	f.logger.Info("candidate queued for alerting",
		slog.String("token_address", content.TokenAddress),
		slog.String("ticker", content.TokenTicker),
		slog.String("market_cap", scraped.MarketCap),
	)
}

// buildAlert assembles the alert payload from the feed event, the scrape,
// and the social score.
func buildAlert(content newPairContent, scraped domain.ScrapedToken, score domain.TwitterScore) domain.TokenAlert {
	name := content.TokenName
	if name == "" {
		name = domain.UnknownValue
	}
	ticker := content.TokenTicker
	if ticker == "" {
		ticker = domain.UnknownValue
	}
	createdAt := content.CreatedAt
	if createdAt == "" {
		createdAt = time.Now().UTC().Format(time.RFC3339)
	}

	snapshot := domain.SocialSnapshot{
		Name:           domain.UnknownValue,
		FollowersCount: score.FollowersCount,
		IsBlueVerified: score.FollowersCount > 10000,
		Score:          score.Score,
		FakePercent:    score.FakePercent,
		TopFollowers:   score.TopFollowers,
	}
	if len(score.TopFollowers) > 0 {
		snapshot.Name = score.TopFollowers[0].Name
	}

	return domain.TokenAlert{
		CoinName:      name,
		CoinTicker:    ticker,
		CAAddress:     content.TokenAddress,
		PairAddress:   content.PairAddress,
		CreatedAt:     createdAt,
		TwitterHandle: strings.TrimPrefix(scraped.LaunchedBy, "@"),
		Price:         scraped.Price,
		MarketCap:     scraped.MarketCap,
		Supply:        content.Supply,
		TwitterInfo:   snapshot,
	}
}
