package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"
)

// Load reads a TOML configuration file at path, merges it on top of the
// built-in defaults, applies ORACLE_* environment variable overrides, and
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

// applyEnvOverrides reads well-known ORACLE_* environment variables and
// overwrites the corresponding Config fields when a variable is set. This
// lets operators inject secrets at deploy time without touching the TOML
// file.
func applyEnvOverrides(cfg *Config) {
	// ── Polymarket ──
	setStr(&cfg.Polymarket.GammaHost, "ORACLE_POLYMARKET_GAMMA_HOST")
	setInt(&cfg.Polymarket.MaxRecords, "ORACLE_POLYMARKET_MAX_RECORDS")
	setInt(&cfg.Polymarket.Retries, "ORACLE_POLYMARKET_RETRIES")
	setDuration(&cfg.Polymarket.BaseDelay, "ORACLE_POLYMARKET_BASE_DELAY")
	setDuration(&cfg.Polymarket.PageDelay, "ORACLE_POLYMARKET_PAGE_DELAY")

	// ── Pipeline ──
	setDuration(&cfg.Pipeline.Interval, "ORACLE_PIPELINE_INTERVAL")
	setDuration(&cfg.Pipeline.LockTTL, "ORACLE_PIPELINE_LOCK_TTL")

	// ── Postgres ──
	setStr(&cfg.Postgres.DSN, "ORACLE_POSTGRES_DSN")
	setStr(&cfg.Postgres.Host, "ORACLE_POSTGRES_HOST")
	setInt(&cfg.Postgres.Port, "ORACLE_POSTGRES_PORT")
	setStr(&cfg.Postgres.Database, "ORACLE_POSTGRES_DATABASE")
	setStr(&cfg.Postgres.User, "ORACLE_POSTGRES_USER")
	setStr(&cfg.Postgres.Password, "ORACLE_POSTGRES_PASSWORD")
	setStr(&cfg.Postgres.SSLMode, "ORACLE_POSTGRES_SSLMODE")
	setInt(&cfg.Postgres.PoolMaxConns, "ORACLE_POSTGRES_POOL_MAX_CONNS")
	setInt(&cfg.Postgres.PoolMinConns, "ORACLE_POSTGRES_POOL_MIN_CONNS")
	setBool(&cfg.Postgres.RunMigrations, "ORACLE_POSTGRES_RUN_MIGRATIONS")

	// ── Redis ──
	setStr(&cfg.Redis.Addr, "ORACLE_REDIS_ADDR")
	setStr(&cfg.Redis.Password, "ORACLE_REDIS_PASSWORD")
	setInt(&cfg.Redis.DB, "ORACLE_REDIS_DB")
	setInt(&cfg.Redis.PoolSize, "ORACLE_REDIS_POOL_SIZE")
	setInt(&cfg.Redis.MaxRetries, "ORACLE_REDIS_MAX_RETRIES")
	setBool(&cfg.Redis.TLSEnabled, "ORACLE_REDIS_TLS_ENABLED")

	// ── S3 ──
	setStr(&cfg.S3.Endpoint, "ORACLE_S3_ENDPOINT")
	setStr(&cfg.S3.Region, "ORACLE_S3_REGION")
	setStr(&cfg.S3.Bucket, "ORACLE_S3_BUCKET")
	setStr(&cfg.S3.AccessKey, "ORACLE_S3_ACCESS_KEY")
	setStr(&cfg.S3.SecretKey, "ORACLE_S3_SECRET_KEY")
	setBool(&cfg.S3.UseSSL, "ORACLE_S3_USE_SSL")
	setBool(&cfg.S3.ForcePathStyle, "ORACLE_S3_FORCE_PATH_STYLE")

	// ── Anthropic ──
	setStr(&cfg.Anthropic.APIKey, "ORACLE_ANTHROPIC_API_KEY")
	setStr(&cfg.Anthropic.APIKey, "ANTHROPIC_API_KEY") // conventional alias
	setStr(&cfg.Anthropic.Model, "ORACLE_ANTHROPIC_MODEL")
	setInt(&cfg.Anthropic.MaxTokens, "ORACLE_ANTHROPIC_MAX_TOKENS")

	// ── Output ──
	setStr(&cfg.Output.Dir, "ORACLE_OUTPUT_DIR")

	// ── Server ──
	setBool(&cfg.Server.Enabled, "ORACLE_SERVER_ENABLED")
	setInt(&cfg.Server.Port, "ORACLE_SERVER_PORT")
	setStringSlice(&cfg.Server.CORSOrigins, "ORACLE_SERVER_CORS_ORIGINS")
	setStr(&cfg.Server.APIKey, "ORACLE_SERVER_API_KEY")

	// ── Notify ──
	setStr(&cfg.Notify.TelegramToken, "ORACLE_NOTIFY_TELEGRAM_TOKEN")
	setStr(&cfg.Notify.TelegramChatID, "ORACLE_NOTIFY_TELEGRAM_CHAT_ID")
	setStr(&cfg.Notify.DiscordWebhookURL, "ORACLE_NOTIFY_DISCORD_WEBHOOK_URL")
	setStringSlice(&cfg.Notify.Events, "ORACLE_NOTIFY_EVENTS")

	// ── Top-level ──
	setStr(&cfg.Mode, "ORACLE_MODE")
	setStr(&cfg.LogLevel, "ORACLE_LOG_LEVEL")
}

// ---------------------------------------------------------------------------
// Typed env-var helpers. Each only mutates the target when the environment
// variable is present and non-empty.
// ---------------------------------------------------------------------------

func setStr(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

func setInt(dst *int, key string) {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			*dst = n
		}
	}
}

func setBool(dst *bool, key string) {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			*dst = b
		}
	}
}

func setDuration(dst *duration, key string) {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			dst.Duration = d
		}
	}
}

func setStringSlice(dst *[]string, key string) {
	if v := os.Getenv(key); v != "" {
		parts := strings.Split(v, ",")
		cleaned := make([]string, 0, len(parts))
		for _, p := range parts {
			p = strings.TrimSpace(p)
			if p != "" {
				cleaned = append(cleaned, p)
			}
		}
		if len(cleaned) > 0 {
			*dst = cleaned
		}
	}
}
