package config

import (
	"os"
	"strconv"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"
)

// Load reads a TOML configuration file at path, merges it on top of the
// built-in defaults, applies NOTIBOT_* environment variable overrides, and
// returns the final Config. The returned Config has NOT been validated; the
// caller should invoke Config.Validate() after Load.
func Load(path string) (*Config, error) {
	cfg := Defaults()

	if _, err := toml.DecodeFile(path, &cfg); err != nil {
		return nil, err
	}

	// Load .env file if present (silently ignore if missing).
	_ = godotenv.Load()

	applyEnvOverrides(&cfg)

	return &cfg, nil
}

// applyEnvOverrides reads well-known NOTIBOT_* environment variables and
// overwrites the corresponding Config fields when a variable is set. This
// lets operators inject secrets at deploy time without touching the TOML
// file.
func applyEnvOverrides(cfg *Config) {
	// ── Axiom ──
	setStr(&cfg.Axiom.WsURL, "NOTIBOT_AXIOM_WS_URL")
	setStr(&cfg.Axiom.APIHost, "NOTIBOT_AXIOM_API_HOST")
	setStr(&cfg.Axiom.PriceAPI, "NOTIBOT_AXIOM_PRICE_API_HOST")
	setStr(&cfg.Axiom.RefreshToken, "NOTIBOT_AXIOM_REFRESH_TOKEN")
	setStr(&cfg.Axiom.EncryptedTokenPath, "NOTIBOT_AXIOM_ENCRYPTED_TOKEN_PATH")
	setStr(&cfg.Axiom.TokenPassword, "NOTIBOT_AXIOM_TOKEN_PASSWORD")

	// ── Believe ──
	setStr(&cfg.Believe.CoinBaseURL, "NOTIBOT_BELIEVE_COIN_BASE_URL")
	setStr(&cfg.Believe.SignalAPIURL, "NOTIBOT_BELIEVE_SIGNAL_API_URL")
	setBool(&cfg.Believe.PollEnabled, "NOTIBOT_BELIEVE_POLL_ENABLED")

	// ── TweetScout ──
	setStr(&cfg.TweetScout.BaseURL, "NOTIBOT_TWEETSCOUT_BASE_URL")
	setStr(&cfg.TweetScout.CFClearance, "NOTIBOT_TWEETSCOUT_CF_CLEARANCE")

	// ── Telegram ──
	setStr(&cfg.Telegram.Token, "NOTIBOT_TELEGRAM_TOKEN")
	setInt64(&cfg.Telegram.ChatID, "NOTIBOT_TELEGRAM_CHAT_ID")
	setStr(&cfg.Telegram.APIBaseURL, "NOTIBOT_TELEGRAM_API_BASE_URL")

	// ── Redis ──
	setStr(&cfg.Redis.Addr, "NOTIBOT_REDIS_ADDR")
	setStr(&cfg.Redis.Password, "NOTIBOT_REDIS_PASSWORD")
	setInt(&cfg.Redis.DB, "NOTIBOT_REDIS_DB")
	setInt(&cfg.Redis.PoolSize, "NOTIBOT_REDIS_POOL_SIZE")
	setInt(&cfg.Redis.MaxRetries, "NOTIBOT_REDIS_MAX_RETRIES")
	setBool(&cfg.Redis.TLSEnabled, "NOTIBOT_REDIS_TLS_ENABLED")
	setInt(&cfg.Redis.DedupTTLSeconds, "NOTIBOT_REDIS_DEDUP_TTL_SECONDS")

	// ── Postgres ──
	setStr(&cfg.Postgres.DSN, "NOTIBOT_POSTGRES_DSN")
	setStr(&cfg.Postgres.Host, "NOTIBOT_POSTGRES_HOST")
	setInt(&cfg.Postgres.Port, "NOTIBOT_POSTGRES_PORT")
	setStr(&cfg.Postgres.Database, "NOTIBOT_POSTGRES_DATABASE")
	setStr(&cfg.Postgres.User, "NOTIBOT_POSTGRES_USER")
	setStr(&cfg.Postgres.Password, "NOTIBOT_POSTGRES_PASSWORD")
	setStr(&cfg.Postgres.SSLMode, "NOTIBOT_POSTGRES_SSLMODE")
	setBool(&cfg.Postgres.RunMigrations, "NOTIBOT_POSTGRES_RUN_MIGRATIONS")

	// ── Server ──
	setInt(&cfg.Server.Port, "NOTIBOT_SERVER_PORT")

	// ── Archive ──
	setStr(&cfg.Archive.Endpoint, "NOTIBOT_ARCHIVE_ENDPOINT")
	setStr(&cfg.Archive.Region, "NOTIBOT_ARCHIVE_REGION")
	setStr(&cfg.Archive.Bucket, "NOTIBOT_ARCHIVE_BUCKET")
	setStr(&cfg.Archive.AccessKey, "NOTIBOT_ARCHIVE_ACCESS_KEY")
	setStr(&cfg.Archive.SecretKey, "NOTIBOT_ARCHIVE_SECRET_KEY")

	// ── Top level ──
	setStr(&cfg.Mode, "NOTIBOT_MODE")
	setStr(&cfg.LogLevel, "NOTIBOT_LOG_LEVEL")
}

func setStr(dst *string, env string) {
	if v := os.Getenv(env); v != "" {
		*dst = v
	}
}

func setInt(dst *int, env string) {
	if v := os.Getenv(env); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			*dst = n
		}
	}
}

func setInt64(dst *int64, env string) {
	if v := os.Getenv(env); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil {
			*dst = n
		}
	}
}

func setBool(dst *bool, env string) {
	if v := os.Getenv(env); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			*dst = b
		}
	}
}
