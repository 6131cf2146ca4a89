// Package config defines the top-level configuration for marketfuse and
// provides validation helpers.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/crowdwisdom/marketfuse/internal/match"
)

// Config is the root configuration structure. Fields are populated from a TOML
// file and then optionally overridden by MARKETFUSE_* environment variables.
type Config struct {
	Polymarket PolymarketConfig `toml:"polymarket"`
	Manifold   ManifoldConfig   `toml:"manifold"`
	PredictIt  PredictItConfig  `toml:"predictit"`
	Kalshi     KalshiConfig     `toml:"kalshi"`
	Database   DatabaseConfig   `toml:"database"`
	Redis      RedisConfig      `toml:"redis"`
	S3         S3Config         `toml:"s3"`
	Matcher    MatcherConfig    `toml:"matcher"`
	Embeddings EmbeddingsConfig `toml:"embeddings"`
	Pipeline   PipelineConfig   `toml:"pipeline"`
	Server     ServerConfig     `toml:"server"`
	Notify     NotifyConfig     `toml:"notify"`
	Mode       string           `toml:"mode"`
	LogLevel   string           `toml:"log_level"`
}

// PolymarketConfig holds the Polymarket Gamma API endpoint and fetch limits.
type PolymarketConfig struct {
	Enabled   bool   `toml:"enabled"`
	GammaHost string `toml:"gamma_host"`
	Limit     int    `toml:"limit"`
}

// ManifoldConfig holds the Manifold Markets API endpoint and fetch limits.
type ManifoldConfig struct {
	Enabled bool   `toml:"enabled"`
	BaseURL string `toml:"base_url"`
	ApiKey  string `toml:"api_key"`
	Limit   int    `toml:"limit"`
}

// PredictItConfig holds the PredictIt marketdata endpoint.
type PredictItConfig struct {
	Enabled bool   `toml:"enabled"`
	BaseURL string `toml:"base_url"`
	Limit   int    `toml:"limit"`
}

// KalshiConfig holds the Kalshi trade API endpoint.
type KalshiConfig struct {
	Enabled bool   `toml:"enabled"`
	BaseURL string `toml:"base_url"`
	ApiKey  string `toml:"api_key"`
	Limit   int    `toml:"limit"`
}

// DatabaseConfig holds PostgreSQL connection parameters.
type DatabaseConfig struct {
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

// RedisConfig holds Redis connection parameters.
type RedisConfig struct {
	Addr       string `toml:"addr"`
	Password   string `toml:"password"`
	DB         int    `toml:"db"`
	PoolSize   int    `toml:"pool_size"`
	MaxRetries int    `toml:"max_retries"`
	TLSEnabled bool   `toml:"tls_enabled"`
}

// S3Config holds S3-compatible object storage parameters.
type S3Config struct {
	Endpoint       string `toml:"endpoint"`
	Region         string `toml:"region"`
	Bucket         string `toml:"bucket"`
	AccessKey      string `toml:"access_key"`
	SecretKey      string `toml:"secret_key"`
	UseSSL         bool   `toml:"use_ssl"`
	ForcePathStyle bool   `toml:"force_path_style"`
}

// MatcherConfig holds the record-matching engine knobs.
type MatcherConfig struct {
	Threshold              float64 `toml:"threshold"`
	SingletonPolicy        string  `toml:"singleton_policy"`
	SingletonLowConfidence float64 `toml:"singleton_low_confidence"`
	Workers                int     `toml:"workers"`
}

// EmbeddingsConfig holds the title-embedding provider parameters.
type EmbeddingsConfig struct {
	Enabled  bool     `toml:"enabled"`
	ApiKey   string   `toml:"api_key"`
	Model    string   `toml:"model"`
	Weight   float64  `toml:"weight"`
	CacheTTL duration `toml:"cache_ttl"`
}

// PipelineConfig holds collection-loop parameters.
type PipelineConfig struct {
	CollectInterval duration `toml:"collect_interval"`
	ExportPath      string   `toml:"export_path"`
	ArchiveEnabled  bool     `toml:"archive_enabled"`
	RateLimitPerMin int      `toml:"rate_limit_per_min"`
}

// duration is a wrapper around time.Duration that supports TOML string decoding
// (e.g. "5m", "30s").
type duration struct {
	time.Duration
}

// UnmarshalText implements encoding.TextUnmarshaler so the TOML decoder can
// parse duration strings like "5m" or "30s".
func (d *duration) UnmarshalText(text []byte) error {
	var err error
	d.Duration, err = time.ParseDuration(string(text))
	return err
}

// MarshalText implements encoding.TextMarshaler for round-trip encoding.
func (d duration) MarshalText() ([]byte, error) {
	return []byte(d.Duration.String()), nil
}

// ServerConfig holds HTTP server parameters.
type ServerConfig struct {
	Enabled     bool     `toml:"enabled"`
	Port        int      `toml:"port"`
	ApiToken    string   `toml:"api_token"`
	CORSOrigins []string `toml:"cors_origins"`
}

// NotifyConfig holds notification channel credentials.
type NotifyConfig struct {
	TelegramToken     string   `toml:"telegram_token"`
	TelegramChatID    string   `toml:"telegram_chat_id"`
	DiscordWebhookURL string   `toml:"discord_webhook_url"`
	Events            []string `toml:"events"`
}

// Defaults returns a Config populated with reasonable default values.
// These match the values in config.example.toml.
func Defaults() Config {
	md := match.DefaultConfig()
	return Config{
		Polymarket: PolymarketConfig{
			Enabled:   true,
			GammaHost: "https://gamma-api.polymarket.com",
			Limit:     500,
		},
		Manifold: ManifoldConfig{
			Enabled: true,
			BaseURL: "https://api.manifold.markets/v0",
			Limit:   500,
		},
		PredictIt: PredictItConfig{
			Enabled: true,
			BaseURL: "https://www.predictit.org/api/marketdata",
			Limit:   500,
		},
		Kalshi: KalshiConfig{
			Enabled: false,
			BaseURL: "https://api.elections.kalshi.com/trade-api/v2",
			Limit:   500,
		},
		Database: DatabaseConfig{
			DSN:           "",
			Host:          "localhost",
			Port:          5432,
			Database:      "marketfuse",
			User:          "postgres",
			SSLMode:       "disable",
			PoolMaxConns:  10,
			PoolMinConns:  2,
			RunMigrations: true,
		},
		Redis: RedisConfig{
			Addr:       "localhost:6379",
			DB:         0,
			PoolSize:   20,
			MaxRetries: 3,
			TLSEnabled: false,
		},
		S3: S3Config{
			Endpoint:       "http://localhost:9000",
			Region:         "us-east-1",
			Bucket:         "marketfuse-data",
			UseSSL:         false,
			ForcePathStyle: true,
		},
		Matcher: MatcherConfig{
			Threshold:              md.Threshold,
			SingletonPolicy:        string(md.SingletonPolicy),
			SingletonLowConfidence: md.SingletonLowConfidence,
			Workers:                md.Workers,
		},
		Embeddings: EmbeddingsConfig{
			Enabled:  false,
			Model:    "gemini-embedding-001",
			Weight:   md.SemanticWeight,
			CacheTTL: duration{24 * time.Hour},
		},
		Pipeline: PipelineConfig{
			CollectInterval: duration{15 * time.Minute},
			ExportPath:      "unified_markets.csv",
			ArchiveEnabled:  false,
			RateLimitPerMin: 60,
		},
		Server: ServerConfig{
			Enabled:     true,
			Port:        8000,
			CORSOrigins: []string{"http://localhost:3000", "http://localhost:5173"},
		},
		Notify: NotifyConfig{
			Events: []string{"pipeline_completed", "pipeline_failed"},
		},
		Mode:     "full",
		LogLevel: "info",
	}
}

// MatchConfig converts the matcher and embeddings sections into the engine's
// own configuration type.
func (c *Config) MatchConfig() match.Config {
	return match.Config{
		Threshold:              c.Matcher.Threshold,
		SingletonPolicy:        match.SingletonPolicy(c.Matcher.SingletonPolicy),
		SingletonLowConfidence: c.Matcher.SingletonLowConfidence,
		SemanticEnabled:        c.Embeddings.Enabled,
		SemanticWeight:         c.Embeddings.Weight,
		Workers:                c.Matcher.Workers,
	}
}

// validModes enumerates the accepted values for Config.Mode.
var validModes = map[string]bool{
	"collect": true,
	"scrape":  true,
	"server":  true,
	"full":    true,
}

// validLogLevels enumerates the accepted values for Config.LogLevel.
var validLogLevels = map[string]bool{
	"debug": true,
	"info":  true,
	"warn":  true,
	"error": true,
}

// Validate checks Config for obviously invalid or missing values and returns a
// combined error describing every problem found.
func (c *Config) Validate() error {
	var errs []string

	// Mode
	if !validModes[strings.ToLower(c.Mode)] {
		errs = append(errs, fmt.Sprintf("unknown mode %q (valid: collect, scrape, server, full)", c.Mode))
	}

	// LogLevel
	if !validLogLevels[strings.ToLower(c.LogLevel)] {
		errs = append(errs, fmt.Sprintf("unknown log_level %q (valid: debug, info, warn, error)", c.LogLevel))
	}

	// Site endpoints — an enabled site must have somewhere to fetch from.
	if c.Polymarket.Enabled && c.Polymarket.GammaHost == "" {
		errs = append(errs, "polymarket: gamma_host must not be empty when enabled")
	}
	if c.Manifold.Enabled && c.Manifold.BaseURL == "" {
		errs = append(errs, "manifold: base_url must not be empty when enabled")
	}
	if c.PredictIt.Enabled && c.PredictIt.BaseURL == "" {
		errs = append(errs, "predictit: base_url must not be empty when enabled")
	}
	if c.Kalshi.Enabled && c.Kalshi.BaseURL == "" {
		errs = append(errs, "kalshi: base_url must not be empty when enabled")
	}
	if !c.Polymarket.Enabled && !c.Manifold.Enabled && !c.PredictIt.Enabled && !c.Kalshi.Enabled {
		errs = append(errs, "sites: at least one site must be enabled")
	}

	// Database
	if strings.TrimSpace(c.Database.DSN) == "" {
		if c.Database.Host == "" {
			errs = append(errs, "database: host must not be empty (or set database.dsn)")
		}
		if c.Database.Port <= 0 || c.Database.Port > 65535 {
			errs = append(errs, fmt.Sprintf("database: port must be 1-65535, got %d", c.Database.Port))
		}
		if c.Database.Database == "" {
			errs = append(errs, "database: database must not be empty")
		}
	}
	if c.Database.PoolMaxConns < 1 {
		errs = append(errs, "database: pool_max_conns must be >= 1")
	}
	if c.Database.PoolMinConns < 0 {
		errs = append(errs, "database: pool_min_conns must be >= 0")
	}
	if c.Database.PoolMinConns > c.Database.PoolMaxConns {
		errs = append(errs, "database: pool_min_conns must not exceed pool_max_conns")
	}

	// Redis
	if c.Redis.Addr == "" {
		errs = append(errs, "redis: addr must not be empty")
	}
	if c.Redis.PoolSize < 1 {
		errs = append(errs, "redis: pool_size must be >= 1")
	}

	// S3 — only required when archiving is on.
	if c.Pipeline.ArchiveEnabled {
		if c.S3.Endpoint == "" {
			errs = append(errs, "s3: endpoint must not be empty when pipeline.archive_enabled is set")
		}
		if c.S3.Bucket == "" {
			errs = append(errs, "s3: bucket must not be empty when pipeline.archive_enabled is set")
		}
	}

	// Matcher — delegate to the engine's own validation so the two never
	// drift apart.
	if err := c.MatchConfig().Validate(); err != nil {
		errs = append(errs, fmt.Sprintf("matcher: %v", err))
	}

	// Embeddings
	if c.Embeddings.Enabled {
		if c.Embeddings.ApiKey == "" {
			errs = append(errs, "embeddings: api_key is required when enabled")
		}
		if c.Embeddings.Model == "" {
			errs = append(errs, "embeddings: model must not be empty when enabled")
		}
	}

	// Pipeline
	if c.Pipeline.CollectInterval.Duration <= 0 {
		errs = append(errs, "pipeline: collect_interval must be positive")
	}
	if c.Pipeline.RateLimitPerMin < 1 {
		errs = append(errs, "pipeline: rate_limit_per_min must be >= 1")
	}

	// Server
	if c.Server.Enabled {
		if c.Server.Port <= 0 || c.Server.Port > 65535 {
			errs = append(errs, fmt.Sprintf("server: port must be 1-65535, got %d", c.Server.Port))
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("config validation failed:\n  - %s", strings.Join(errs, "\n  - "))
	}
	return nil
}
