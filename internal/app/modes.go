package app

import (
	"context"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/nvh2205/noti-believe/internal/bot"
	"github.com/nvh2205/noti-believe/internal/feed"
	"github.com/nvh2205/noti-believe/internal/processor"
	"github.com/nvh2205/noti-believe/internal/scheduler"
	"github.com/nvh2205/noti-believe/internal/server"
	"github.com/nvh2205/noti-believe/internal/server/handler"
)

// settleSweepInterval is how often the bet settler checks for matured bets.
const settleSweepInterval = time.Minute

// WorkerMode starts the discovery feed, the job queue workers, the Telegram
// callback bot and the background schedulers.
func (a *App) WorkerMode(ctx context.Context, deps *Dependencies) error {
	a.logger.InfoContext(ctx, "starting worker mode")

	g, ctx := errgroup.WithContext(ctx)
	a.startWorkers(ctx, g, deps)
	return g.Wait()
}

// APIMode starts only the HTTP API server.
func (a *App) APIMode(ctx context.Context, deps *Dependencies) error {
	a.logger.InfoContext(ctx, "starting api mode")

	g, ctx := errgroup.WithContext(ctx)
	a.startHTTPServer(ctx, g, deps)
	return g.Wait()
}

// FullMode runs the worker side and the HTTP API in one process.
func (a *App) FullMode(ctx context.Context, deps *Dependencies) error {
	a.logger.InfoContext(ctx, "starting full mode")

	g, ctx := errgroup.WithContext(ctx)
	a.startWorkers(ctx, g, deps)
	a.startHTTPServer(ctx, g, deps)
	return g.Wait()
}

// startWorkers adds the alert pipeline goroutines to the errgroup: queue
// workers with all job handlers registered, the Axiom discovery socket, the
// believesignal poller, the callback bot, and the settlement, turn-reset and
// archival schedulers.
func (a *App) startWorkers(ctx context.Context, g *errgroup.Group, deps *Dependencies) {
	proc := processor.New(processor.Config{
		ChatID:       a.cfg.Telegram.ChatID,
		PreSendDelay: time.Duration(a.cfg.Pipeline.PreSendDelayMs) * time.Millisecond,
	}, deps.TokenStore, deps.Telegram, deps.Enricher, a.logger)
	proc.Register(deps.Queue)

	g.Go(func() error {
		return deps.Queue.Run(ctx)
	})

	axiomFeed := feed.NewAxiomFeed(feed.Config{
		WsURL:                a.cfg.Axiom.WsURL,
		ReconnectDelay:       time.Duration(a.cfg.Axiom.ReconnectDelaySeconds) * time.Second,
		MaxReconnectAttempts: a.cfg.Axiom.MaxReconnectAttempts,
		SettleDelay:          time.Duration(a.cfg.Axiom.SettleDelaySeconds) * time.Second,
		TokenRefreshInterval: time.Duration(a.cfg.Axiom.TokenRefreshMinutes) * time.Minute,
		AlertAttempts:        a.cfg.Queue.AlertAttempts,
		AlertBackoff:         a.cfg.Queue.BackoffBase(),
	}, deps.Axiom, deps.Scraper, deps.Social, deps.Queue, deps.DedupGate, a.logger)
	g.Go(func() error {
		return axiomFeed.Run(ctx)
	})

	callbackBot := bot.New(deps.Telegram, deps.Queue, a.logger)
	g.Go(func() error {
		return callbackBot.Run(ctx)
	})

	if a.cfg.Believe.PollEnabled {
		poller := scheduler.NewPoller(scheduler.PollerConfig{
			Interval:       time.Duration(a.cfg.Believe.PollSeconds) * time.Second,
			Count:          a.cfg.Believe.PollCount,
			MinFollowers:   a.cfg.Believe.PollMinFollowers,
			InterItemDelay: time.Duration(a.cfg.Believe.InterItemDelayMs) * time.Millisecond,
		}, deps.Signals, deps.DedupGate, deps.Queue, a.logger)
		g.Go(func() error {
			return poller.Run(ctx)
		})
	}

	settler := scheduler.NewBetSettler(scheduler.SettlerConfig{
		Window:        time.Duration(a.cfg.Game.SettleWindowMinutes) * time.Minute,
		SweepInterval: settleSweepInterval,
	}, deps.BetStore, deps.UserStore, deps.TokenStore, a.logger)
	g.Go(func() error {
		return settler.Run(ctx)
	})

	resetter := scheduler.NewTurnResetter(deps.UserStore, a.cfg.Game.DailyFreeTurns, a.logger)
	g.Go(func() error {
		return resetter.Run(ctx)
	})

	if deps.Archiver != nil {
		g.Go(func() error {
			return deps.Archiver.Run(ctx)
		})
	}
}

// startHTTPServer adds the REST API server goroutine plus a graceful shutdown
// watcher to the errgroup.
func (a *App) startHTTPServer(ctx context.Context, g *errgroup.Group, deps *Dependencies) {
	handlers := server.Handlers{
		Health: handler.NewHealthHandler(a.logger),
		Auth: handler.NewAuthHandler(
			deps.Sessions,
			deps.UserStore,
			time.Duration(a.cfg.Server.NonceTTLSeconds)*time.Second,
			time.Duration(a.cfg.Server.SessionTTLHours)*time.Hour,
			a.logger,
		),
		Tokens: handler.NewTokenHandler(deps.TokenStore, a.logger),
		Bets: handler.NewBetHandler(
			deps.BetStore,
			deps.UserStore,
			deps.TokenStore,
			handler.BetLimits{Min: a.cfg.Game.MinBet, Max: a.cfg.Game.MaxBet},
			a.logger,
		),
		Leaderboard: handler.NewLeaderboardHandler(deps.UserStore, a.logger),
	}

	srv := server.NewServer(server.Config{
		Port:               a.cfg.Server.Port,
		CORSOrigins:        a.cfg.Server.CORSOrigins,
		RateLimitPerMinute: a.cfg.Server.RateLimitPerMinute,
	}, handlers, deps.Sessions, deps.RateLimiter, a.logger)

	g.Go(func() error {
		return srv.Start()
	})

	g.Go(func() error {
		<-ctx.Done()
		shutCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutCtx)
	})
}
