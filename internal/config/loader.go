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
// built-in defaults, applies MARKETFUSE_* environment variable overrides, and
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

// applyEnvOverrides reads well-known MARKETFUSE_* environment variables and
// overwrites the corresponding Config fields when a variable is set (i.e. not
// empty). This lets operators inject secrets at deploy time without touching
// the TOML file.
func applyEnvOverrides(cfg *Config) {
	// ── Polymarket ──
	setBool(&cfg.Polymarket.Enabled, "MARKETFUSE_POLYMARKET_ENABLED")
	setStr(&cfg.Polymarket.GammaHost, "MARKETFUSE_POLYMARKET_GAMMA_HOST")
	setInt(&cfg.Polymarket.Limit, "MARKETFUSE_POLYMARKET_LIMIT")

	// ── Manifold ──
	setBool(&cfg.Manifold.Enabled, "MARKETFUSE_MANIFOLD_ENABLED")
	setStr(&cfg.Manifold.BaseURL, "MARKETFUSE_MANIFOLD_BASE_URL")
	setStr(&cfg.Manifold.ApiKey, "MARKETFUSE_MANIFOLD_API_KEY")
	setInt(&cfg.Manifold.Limit, "MARKETFUSE_MANIFOLD_LIMIT")

	// ── PredictIt ──
	setBool(&cfg.PredictIt.Enabled, "MARKETFUSE_PREDICTIT_ENABLED")
	setStr(&cfg.PredictIt.BaseURL, "MARKETFUSE_PREDICTIT_BASE_URL")
	setInt(&cfg.PredictIt.Limit, "MARKETFUSE_PREDICTIT_LIMIT")

	// ── Kalshi ──
	setBool(&cfg.Kalshi.Enabled, "MARKETFUSE_KALSHI_ENABLED")
	setStr(&cfg.Kalshi.BaseURL, "MARKETFUSE_KALSHI_BASE_URL")
	setStr(&cfg.Kalshi.ApiKey, "MARKETFUSE_KALSHI_API_KEY")
	setInt(&cfg.Kalshi.Limit, "MARKETFUSE_KALSHI_LIMIT")

	// ── Database ──
	setStr(&cfg.Database.DSN, "MARKETFUSE_DATABASE_DSN")
	setStr(&cfg.Database.DSN, "MARKETFUSE_DATABASE_URL") // compatibility alias
	setStr(&cfg.Database.Host, "MARKETFUSE_DATABASE_HOST")
	setInt(&cfg.Database.Port, "MARKETFUSE_DATABASE_PORT")
	setStr(&cfg.Database.Database, "MARKETFUSE_DATABASE_NAME")
	setStr(&cfg.Database.User, "MARKETFUSE_DATABASE_USER")
	setStr(&cfg.Database.Password, "MARKETFUSE_DATABASE_PASSWORD")
	setStr(&cfg.Database.SSLMode, "MARKETFUSE_DATABASE_SSL_MODE")
	setInt(&cfg.Database.PoolMaxConns, "MARKETFUSE_DATABASE_POOL_MAX_CONNS")
	setInt(&cfg.Database.PoolMinConns, "MARKETFUSE_DATABASE_POOL_MIN_CONNS")
	setBool(&cfg.Database.RunMigrations, "MARKETFUSE_DATABASE_RUN_MIGRATIONS")

	// ── Redis ──
	setStr(&cfg.Redis.Addr, "MARKETFUSE_REDIS_ADDR")
	setStr(&cfg.Redis.Password, "MARKETFUSE_REDIS_PASSWORD")
	setInt(&cfg.Redis.DB, "MARKETFUSE_REDIS_DB")
	setInt(&cfg.Redis.PoolSize, "MARKETFUSE_REDIS_POOL_SIZE")
	setInt(&cfg.Redis.MaxRetries, "MARKETFUSE_REDIS_MAX_RETRIES")
	setBool(&cfg.Redis.TLSEnabled, "MARKETFUSE_REDIS_TLS_ENABLED")

	// ── S3 ──
	setStr(&cfg.S3.Endpoint, "MARKETFUSE_S3_ENDPOINT")
	setStr(&cfg.S3.Region, "MARKETFUSE_S3_REGION")
	setStr(&cfg.S3.Bucket, "MARKETFUSE_S3_BUCKET")
	setStr(&cfg.S3.AccessKey, "MARKETFUSE_S3_ACCESS_KEY")
	setStr(&cfg.S3.SecretKey, "MARKETFUSE_S3_SECRET_KEY")
	setBool(&cfg.S3.UseSSL, "MARKETFUSE_S3_USE_SSL")
	setBool(&cfg.S3.ForcePathStyle, "MARKETFUSE_S3_FORCE_PATH_STYLE")

	// ── Matcher ──
	setFloat64(&cfg.Matcher.Threshold, "MARKETFUSE_MATCHER_THRESHOLD")
	setStr(&cfg.Matcher.SingletonPolicy, "MARKETFUSE_MATCHER_SINGLETON_POLICY")
	setFloat64(&cfg.Matcher.SingletonLowConfidence, "MARKETFUSE_MATCHER_SINGLETON_LOW_CONFIDENCE")
	setInt(&cfg.Matcher.Workers, "MARKETFUSE_MATCHER_WORKERS")

	// ── Embeddings ──
	setBool(&cfg.Embeddings.Enabled, "MARKETFUSE_EMBEDDINGS_ENABLED")
	setStr(&cfg.Embeddings.ApiKey, "MARKETFUSE_EMBEDDINGS_API_KEY")
	setStr(&cfg.Embeddings.ApiKey, "GEMINI_API_KEY") // SDK-conventional alias
	setStr(&cfg.Embeddings.Model, "MARKETFUSE_EMBEDDINGS_MODEL")
	setFloat64(&cfg.Embeddings.Weight, "MARKETFUSE_EMBEDDINGS_WEIGHT")
	setDuration(&cfg.Embeddings.CacheTTL, "MARKETFUSE_EMBEDDINGS_CACHE_TTL")

	// ── Pipeline ──
	setDuration(&cfg.Pipeline.CollectInterval, "MARKETFUSE_PIPELINE_COLLECT_INTERVAL")
	setStr(&cfg.Pipeline.ExportPath, "MARKETFUSE_PIPELINE_EXPORT_PATH")
	setBool(&cfg.Pipeline.ArchiveEnabled, "MARKETFUSE_PIPELINE_ARCHIVE_ENABLED")
	setInt(&cfg.Pipeline.RateLimitPerMin, "MARKETFUSE_PIPELINE_RATE_LIMIT_PER_MIN")

	// ── Server ──
	setBool(&cfg.Server.Enabled, "MARKETFUSE_SERVER_ENABLED")
	setInt(&cfg.Server.Port, "MARKETFUSE_SERVER_PORT")
	setStr(&cfg.Server.ApiToken, "MARKETFUSE_SERVER_API_TOKEN")
	setStringSlice(&cfg.Server.CORSOrigins, "MARKETFUSE_SERVER_CORS_ORIGINS")

	// ── Notify ──
	setStr(&cfg.Notify.TelegramToken, "MARKETFUSE_NOTIFY_TELEGRAM_TOKEN")
	setStr(&cfg.Notify.TelegramChatID, "MARKETFUSE_NOTIFY_TELEGRAM_CHAT_ID")
	setStr(&cfg.Notify.DiscordWebhookURL, "MARKETFUSE_NOTIFY_DISCORD_WEBHOOK_URL")
	setStringSlice(&cfg.Notify.Events, "MARKETFUSE_NOTIFY_EVENTS")

	// ── Top-level ──
	setStr(&cfg.Mode, "MARKETFUSE_MODE")
	setStr(&cfg.LogLevel, "MARKETFUSE_LOG_LEVEL")
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

func setFloat64(dst *float64, key string) {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			*dst = f
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
