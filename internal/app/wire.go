package app

import (
	"context"
	"fmt"
	"log/slog"

	s3blob "github.com/nvh2205/noti-believe/internal/blob/s3"
	"github.com/nvh2205/noti-believe/internal/cache/redis"
	"github.com/nvh2205/noti-believe/internal/config"
	"github.com/nvh2205/noti-believe/internal/domain"
	"github.com/nvh2205/noti-believe/internal/enrich"
	"github.com/nvh2205/noti-believe/internal/notify"
	"github.com/nvh2205/noti-believe/internal/platform/axiom"
	"github.com/nvh2205/noti-believe/internal/platform/believe"
	"github.com/nvh2205/noti-believe/internal/platform/tweetscout"
	"github.com/nvh2205/noti-believe/internal/queue"
	"github.com/nvh2205/noti-believe/internal/store/postgres"
)

// Dependencies bundles every domain-level dependency that the application
// modes need to operate. It is constructed by Wire and torn down by the
// returned cleanup function.
type Dependencies struct {
	// Stores
	TokenStore domain.TokenStore
	UserStore  domain.UserStore
	BetStore   domain.BetStore

	// Redis-backed infrastructure
	DedupGate   domain.DedupGate
	Sessions    domain.SessionCache
	RateLimiter domain.RateLimiter
	Queue       *queue.Queue

	// Platform clients, only built for modes that run the worker side.
	Axiom    *axiom.Client
	Social   *tweetscout.Client
	Scraper  *believe.Scraper
	Signals  *believe.SignalClient
	Enricher *enrich.Gateway
	Telegram *notify.TelegramClient

	// Archiver is nil when archive.bucket is not configured.
	Archiver *s3blob.Archiver
}

// needsWorker returns true for modes that run the discovery and alerting
// side, which is the only side that talks to Axiom and Telegram.
func needsWorker(mode string) bool {
	switch mode {
	case "worker", "full":
		return true
	default:
		return false
	}
}

// Wire constructs all concrete dependency implementations from the given
// configuration and returns them together with a cleanup function that should
// be called on shutdown to release resources.
func Wire(ctx context.Context, cfg *config.Config) (*Dependencies, func(), error) {
	logger := slog.Default()

	var closers []func()
	cleanup := func() {
		for i := len(closers) - 1; i >= 0; i-- {
			closers[i]()
		}
	}

	deps := &Dependencies{}

	// --- PostgreSQL ---
	pgClient, err := postgres.New(ctx, postgres.ClientConfig{
		DSN:      cfg.Postgres.DSN,
		Host:     cfg.Postgres.Host,
		Port:     cfg.Postgres.Port,
		Database: cfg.Postgres.Database,
		User:     cfg.Postgres.User,
		Password: cfg.Postgres.Password,
		SSLMode:  cfg.Postgres.SSLMode,
		MaxConns: cfg.Postgres.PoolMaxConns,
		MinConns: cfg.Postgres.PoolMinConns,
	})
	if err != nil {
		cleanup()
		return nil, nil, fmt.Errorf("wire: postgres: %w", err)
	}
	closers = append(closers, pgClient.Close)

	if cfg.Postgres.RunMigrations {
		if err := pgClient.RunMigrations(ctx); err != nil {
			cleanup()
			return nil, nil, fmt.Errorf("wire: postgres migrations: %w", err)
		}
	}

	pool := pgClient.Pool()
	deps.TokenStore = postgres.NewTokenStore(pool)
	deps.UserStore = postgres.NewUserStore(pool)
	deps.BetStore = postgres.NewBetStore(pool)

	// --- Redis ---
	redisClient, err := redis.New(ctx, redis.ClientConfig{
		Addr:       cfg.Redis.Addr,
		Password:   cfg.Redis.Password,
		DB:         cfg.Redis.DB,
		PoolSize:   cfg.Redis.PoolSize,
		MaxRetries: cfg.Redis.MaxRetries,
		TLSEnabled: cfg.Redis.TLSEnabled,
	})
	if err != nil {
		cleanup()
		return nil, nil, fmt.Errorf("wire: redis: %w", err)
	}
	closers = append(closers, func() { _ = redisClient.Close() })

	deps.DedupGate = redis.NewDedupGate(redisClient, cfg.Redis.DedupTTL())
	deps.Sessions = redis.NewSessionCache(redisClient)
	deps.RateLimiter = redis.NewRateLimiter(redisClient)
	deps.Queue = queue.New(redisClient.Underlying(), cfg.Queue.BackoffBase(), logger)

	// --- Worker-side platform clients ---
	if needsWorker(cfg.Mode) {
		refreshToken, err := config.ResolveAxiomCredential(&cfg.Axiom)
		if err != nil {
			cleanup()
			return nil, nil, fmt.Errorf("wire: axiom credential: %w", err)
		}

		deps.Axiom = axiom.NewClient(axiom.Config{
			APIHost:      cfg.Axiom.APIHost,
			PriceHost:    cfg.Axiom.PriceAPI,
			RefreshToken: refreshToken,
		}, logger)
		deps.Social = tweetscout.NewClient(tweetscout.Config{
			BaseURL:     cfg.TweetScout.BaseURL,
			CFClearance: cfg.TweetScout.CFClearance,
		}, logger)
		deps.Scraper = believe.NewScraper(cfg.Believe.CoinBaseURL, logger)
		deps.Signals = believe.NewSignalClient(cfg.Believe.SignalAPIURL, logger)
		deps.Enricher = enrich.NewGateway(deps.Axiom, deps.Social, logger)
		deps.Telegram = notify.NewTelegramClient(cfg.Telegram.APIBaseURL, cfg.Telegram.Token)

		// --- S3 alert archive (optional) ---
		if cfg.Archive.Bucket != "" {
			s3Client, err := s3blob.New(ctx, s3blob.ClientConfig{
				Endpoint:       cfg.Archive.Endpoint,
				Region:         cfg.Archive.Region,
				Bucket:         cfg.Archive.Bucket,
				AccessKey:      cfg.Archive.AccessKey,
				SecretKey:      cfg.Archive.SecretKey,
				UseSSL:         cfg.Archive.UseSSL,
				ForcePathStyle: cfg.Archive.ForcePathStyle,
			})
			if err != nil {
				cleanup()
				return nil, nil, fmt.Errorf("wire: s3: %w", err)
			}
			closers = append(closers, func() { _ = s3Client.Close() })

			deps.Archiver = s3blob.NewArchiver(s3blob.NewWriter(s3Client), deps.TokenStore, logger)
		}
	}

	return deps, cleanup, nil
}
