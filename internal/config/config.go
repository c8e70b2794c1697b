// Package config defines the top-level configuration for the noti-believe
// bot and provides validation helpers.
package config

import (
	"fmt"
	"strings"
	"time"
)

// Config is the root configuration structure. Fields are populated from a
// TOML file and then optionally overridden by NOTIBOT_* environment
// variables.
type Config struct {
	Axiom      AxiomConfig      `toml:"axiom"`
	Believe    BelieveConfig    `toml:"believe"`
	TweetScout TweetScoutConfig `toml:"tweetscout"`
	Telegram   TelegramConfig   `toml:"telegram"`
	Redis      RedisConfig      `toml:"redis"`
	Postgres   PostgresConfig   `toml:"postgres"`
	Queue      QueueConfig      `toml:"queue"`
	Pipeline   PipelineConfig   `toml:"pipeline"`
	Server     ServerConfig     `toml:"server"`
	Archive    ArchiveConfig    `toml:"archive"`
	Game       GameConfig       `toml:"game"`
	Mode       string           `toml:"mode"`
	LogLevel   string           `toml:"log_level"`
}

// AxiomConfig holds the discovery feed and price oracle endpoints plus the
// long-lived refresh credential.
type AxiomConfig struct {
	WsURL    string `toml:"ws_url"`
	APIHost  string `toml:"api_host"`
	PriceAPI string `toml:"price_api_host"`

	// RefreshToken is the plaintext refresh credential. Leave empty and set
	// EncryptedTokenPath + TokenPassword to load it from an encrypted file.
	RefreshToken       string `toml:"refresh_token"`
	EncryptedTokenPath string `toml:"encrypted_token_path"`
	TokenPassword      string `toml:"token_password"`

	// TokenRefreshMinutes is the proactive access-token refresh interval.
	TokenRefreshMinutes int `toml:"token_refresh_minutes"`

	ReconnectDelaySeconds int `toml:"reconnect_delay_seconds"`
	MaxReconnectAttempts  int `toml:"max_reconnect_attempts"`
	// SettleDelaySeconds is the pause between seeing a new pair and scraping
	// its believe.app page, giving the page time to materialize.
	SettleDelaySeconds int `toml:"settle_delay_seconds"`
}

// BelieveConfig holds the believe.app scrape target and the believesignal
// discovery poll endpoint.
type BelieveConfig struct {
	CoinBaseURL      string `toml:"coin_base_url"`
	SignalAPIURL     string `toml:"signal_api_url"`
	PollSeconds      int    `toml:"poll_seconds"`
	PollCount        int    `toml:"poll_count"`
	PollMinFollowers int    `toml:"poll_min_followers"`
	InterItemDelayMs int    `toml:"inter_item_delay_ms"`
	PollEnabled      bool   `toml:"poll_enabled"`
}

// TweetScoutConfig holds the social-reputation API parameters.
type TweetScoutConfig struct {
	BaseURL     string `toml:"base_url"`
	CFClearance string `toml:"cf_clearance"`
}

// TelegramConfig holds the bot credentials and the alert channel.
type TelegramConfig struct {
	Token  string `toml:"token"`
	ChatID int64  `toml:"chat_id"`
	// APIBaseURL overrides the Bot API host, used in tests.
	APIBaseURL string `toml:"api_base_url"`
}

// RedisConfig holds Redis connection parameters.
type RedisConfig struct {
	Addr       string `toml:"addr"`
	Password   string `toml:"password"`
	DB         int    `toml:"db"`
	PoolSize   int    `toml:"pool_size"`
	MaxRetries int    `toml:"max_retries"`
	TLSEnabled bool   `toml:"tls_enabled"`
	// DedupTTLSeconds bounds the idempotency window in front of the queue.
	DedupTTLSeconds int `toml:"dedup_ttl_seconds"`
}

// PostgresConfig holds PostgreSQL connection parameters.
type PostgresConfig struct {
	DSN           string `toml:"dsn"`
	Host          string `toml:"host"`
	Port          int    `toml:"port"`
	Database      string `toml:"database"`
	User          string `toml:"user"`
	Password      string `toml:"password"`
	SSLMode       string `toml:"ssl_mode"`
	PoolMaxConns  int    `toml:"pool_max_conns"`
	PoolMinConns  int    `toml:"pool_min_conns"`
	RunMigrations bool   `toml:"run_migrations"`
}

// QueueConfig holds the retry policy for enqueued alert jobs. Interactive
// jobs (refresh, insight) carry fixed attempt counts set by their producers.
type QueueConfig struct {
	// AlertAttempts is the delivery retry budget for feed-discovered tokens.
	AlertAttempts int `toml:"alert_attempts"`
	BackoffBaseMs int `toml:"backoff_base_ms"`
}

// PipelineConfig holds the notification processor timings.
type PipelineConfig struct {
	// PreSendDelayMs is the fixed pause before each Telegram send.
	PreSendDelayMs int `toml:"pre_send_delay_ms"`
}

// ServerConfig holds the HTTP API configuration.
type ServerConfig struct {
	Port               int      `toml:"port"`
	CORSOrigins        []string `toml:"cors_origins"`
	SessionTTLHours    int      `toml:"session_ttl_hours"`
	NonceTTLSeconds    int      `toml:"nonce_ttl_seconds"`
	RateLimitPerMinute int      `toml:"rate_limit_per_minute"`
}

// ArchiveConfig holds the S3 alert-archival parameters. Archival is
// disabled when Bucket is empty.
type ArchiveConfig struct {
	Endpoint       string `toml:"endpoint"`
	Region         string `toml:"region"`
	Bucket         string `toml:"bucket"`
	AccessKey      string `toml:"access_key"`
	SecretKey      string `toml:"secret_key"`
	UseSSL         bool   `toml:"use_ssl"`
	ForcePathStyle bool   `toml:"force_path_style"`
}

// GameConfig holds the betting game parameters.
type GameConfig struct {
	DailyFreeTurns int     `toml:"daily_free_turns"`
	MinBet         float64 `toml:"min_bet"`
	MaxBet         float64 `toml:"max_bet"`
	// SettleWindowMinutes is how long a bet runs before settlement.
	SettleWindowMinutes int `toml:"settle_window_minutes"`
}

// Defaults returns the built-in configuration. Operators normally only set
// credentials on top of these.
func Defaults() Config {
	return Config{
		Axiom: AxiomConfig{
			WsURL:                 "wss://cluster3.axiom.trade/",
			APIHost:               "https://api10.axiom.trade",
			PriceAPI:              "https://api6.axiom.trade",
			TokenRefreshMinutes:   10,
			ReconnectDelaySeconds: 5,
			MaxReconnectAttempts:  5,
			SettleDelaySeconds:    15,
		},
		Believe: BelieveConfig{
			CoinBaseURL:      "https://believe.app/coin",
			SignalAPIURL:     "https://api.believesignal.com/tokens",
			PollSeconds:      5,
			PollCount:        50,
			PollMinFollowers: 0,
			InterItemDelayMs: 1000,
			PollEnabled:      true,
		},
		TweetScout: TweetScoutConfig{
			BaseURL: "https://app.tweetscout.io/_next/data/jx_Wtu7Z0FsWPreE3bu1b",
		},
		Telegram: TelegramConfig{
			APIBaseURL: "https://api.telegram.org",
		},
		Redis: RedisConfig{
			Addr:            "localhost:6379",
			PoolSize:        10,
			MaxRetries:      3,
			DedupTTLSeconds: 60,
		},
		Postgres: PostgresConfig{
			Host:          "localhost",
			Port:          5432,
			Database:      "notibelieve",
			User:          "postgres",
			SSLMode:       "disable",
			PoolMaxConns:  10,
			PoolMinConns:  2,
			RunMigrations: true,
		},
		Queue: QueueConfig{
			AlertAttempts: 3,
			BackoffBaseMs: 1000,
		},
		Pipeline: PipelineConfig{
			PreSendDelayMs: 2000,
		},
		Server: ServerConfig{
			Port:               8080,
			SessionTTLHours:    24,
			NonceTTLSeconds:    300,
			RateLimitPerMinute: 120,
		},
		Archive: ArchiveConfig{
			Region: "us-east-1",
		},
		Game: GameConfig{
			DailyFreeTurns:      3,
			MinBet:              1,
			MaxBet:              1000,
			SettleWindowMinutes: 60,
		},
		Mode:     "full",
		LogLevel: "info",
	}
}

// Validate checks that the configuration is internally consistent for the
// selected mode.
func (c *Config) Validate() error {
	mode := strings.ToLower(c.Mode)
	switch mode {
	case "worker", "api", "full":
	default:
		return fmt.Errorf("config: unsupported mode %q", c.Mode)
	}

	if c.Redis.Addr == "" {
		return fmt.Errorf("config: redis.addr is required")
	}
	if c.Redis.DedupTTLSeconds <= 0 {
		return fmt.Errorf("config: redis.dedup_ttl_seconds must be positive")
	}

	if mode == "worker" || mode == "full" {
		if c.Telegram.Token == "" {
			return fmt.Errorf("config: telegram.token is required in %s mode", mode)
		}
		if c.Telegram.ChatID == 0 {
			return fmt.Errorf("config: telegram.chat_id is required in %s mode", mode)
		}
		if c.Axiom.RefreshToken == "" && c.Axiom.EncryptedTokenPath == "" {
			return fmt.Errorf("config: axiom refresh credential is required (refresh_token or encrypted_token_path)")
		}
	}

	if c.Queue.BackoffBaseMs <= 0 {
		return fmt.Errorf("config: queue.backoff_base_ms must be positive")
	}
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("config: server.port out of range: %d", c.Server.Port)
	}
	return nil
}

// DedupTTL returns the idempotency window as a duration.
func (c *RedisConfig) DedupTTL() time.Duration {
	return time.Duration(c.DedupTTLSeconds) * time.Second
}

// BackoffBase returns the queue retry base delay as a duration.
func (c *QueueConfig) BackoffBase() time.Duration {
	return time.Duration(c.BackoffBaseMs) * time.Millisecond
}
