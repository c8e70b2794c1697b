package config

import (
	"fmt"
	"os"

	botcrypto "github.com/nvh2205/noti-believe/internal/crypto"
)

// ResolveAxiomCredential returns the Axiom refresh token, decrypting the
// on-disk credential file when the plaintext token is not configured.
func ResolveAxiomCredential(cfg *AxiomConfig) (string, error) {
	if cfg.RefreshToken != "" {
		return cfg.RefreshToken, nil
	}
	if cfg.EncryptedTokenPath == "" {
		return "", fmt.Errorf("config: no axiom refresh credential configured")
	}

	data, err := os.ReadFile(cfg.EncryptedTokenPath)
	if err != nil {
		return "", fmt.Errorf("config: reading encrypted credential file: %w", err)
	}
	token, err := botcrypto.DecryptCredential(data, cfg.TokenPassword)
	if err != nil {
		return "", fmt.Errorf("config: decrypting axiom credential: %w", err)
	}
	return token, nil
}

// RedactedConfig returns a shallow copy of cfg with sensitive fields
// replaced by "***". Use this when logging the active configuration.
func RedactedConfig(cfg *Config) Config {
	out := *cfg

	redact(&out.Axiom.RefreshToken)
	redact(&out.Axiom.TokenPassword)
	redact(&out.TweetScout.CFClearance)
	redact(&out.Telegram.Token)
	redact(&out.Redis.Password)
	redact(&out.Postgres.DSN)
	redact(&out.Postgres.Password)
	redact(&out.Archive.AccessKey)
	redact(&out.Archive.SecretKey)

	if cfg.Server.CORSOrigins != nil {
		out.Server.CORSOrigins = make([]string, len(cfg.Server.CORSOrigins))
		copy(out.Server.CORSOrigins, cfg.Server.CORSOrigins)
	}

	return out
}

const redacted = "***"

// redact replaces a non-empty string with the redacted placeholder.
func redact(s *string) {
	if *s != "" {
		*s = redacted
	}
}
