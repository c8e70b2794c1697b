// Package server exposes the HTTP API: wallet login, token records, bets and
// the leaderboard.
package server

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/nvh2205/noti-believe/internal/domain"
	"github.com/nvh2205/noti-believe/internal/server/handler"
	"github.com/nvh2205/noti-believe/internal/server/middleware"
)

// Config holds the HTTP server configuration.
type Config struct {
	Port               int
	CORSOrigins        []string
	RateLimitPerMinute int
}

// Handlers aggregates the HTTP handlers the server registers.
type Handlers struct {
	Health      *handler.HealthHandler
	Auth        *handler.AuthHandler
	Tokens      *handler.TokenHandler
	Bets        *handler.BetHandler
	Leaderboard *handler.LeaderboardHandler
}

// Server is the REST API server.
type Server struct {
	httpServer *http.Server
	logger     *slog.Logger
}

// NewServer creates a Server with all routes registered. Bet endpoints sit
// behind session auth; everything else is public. sessions and limiter may
// come from the same redis client.
func NewServer(cfg Config, handlers Handlers, sessions domain.SessionCache, limiter domain.RateLimiter, logger *slog.Logger) *Server {
	mux := http.NewServeMux()
	requireSession := middleware.Session(sessions)

	mux.HandleFunc("GET /api/health", handlers.Health.HealthCheck)

	mux.HandleFunc("POST /api/auth/challenge", handlers.Auth.Challenge)
	mux.HandleFunc("POST /api/auth/login", handlers.Auth.Login)

	mux.HandleFunc("GET /api/tokens", handlers.Tokens.ListTokens)
	mux.HandleFunc("GET /api/tokens/{ca}", handlers.Tokens.GetToken)

	mux.Handle("POST /api/bets", requireSession(http.HandlerFunc(handlers.Bets.PlaceBet)))
	mux.Handle("GET /api/bets", requireSession(http.HandlerFunc(handlers.Bets.ListBets)))

	mux.HandleFunc("GET /api/leaderboard", handlers.Leaderboard.Leaderboard)

	var h http.Handler = mux
	if limiter != nil && cfg.RateLimitPerMinute > 0 {
		h = middleware.RateLimit(limiter, cfg.RateLimitPerMinute, time.Minute)(h)
	}
	h = middleware.Logging(logger)(h)
	h = middleware.CORS(cfg.CORSOrigins)(h)

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Port),
		Handler:      h,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	return &Server{
		httpServer: srv,
		logger:     logger,
	}
}

// Start begins listening for HTTP requests. It blocks until the server
// encounters an error or is shut down.
func (s *Server) Start() error {
	s.logger.Info("server: starting",
		slog.String("addr", s.httpServer.Addr),
	)
	if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("server: listen: %w", err)
	}
	return nil
}

// Shutdown gracefully shuts down the server, waiting for in-flight requests
// to complete within the given context deadline.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("server: shutting down")
	if err := s.httpServer.Shutdown(ctx); err != nil {
		return fmt.Errorf("server: shutdown: %w", err)
	}
	return nil
}
