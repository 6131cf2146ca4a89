package app

import (
	"context"
	"fmt"
	"log/slog"

	s3blob "github.com/crowdwisdom/marketfuse/internal/blob/s3"
	"github.com/crowdwisdom/marketfuse/internal/cache/redis"
	"github.com/crowdwisdom/marketfuse/internal/config"
	"github.com/crowdwisdom/marketfuse/internal/domain"
	"github.com/crowdwisdom/marketfuse/internal/embed"
	"github.com/crowdwisdom/marketfuse/internal/notify"
	"github.com/crowdwisdom/marketfuse/internal/pipeline"
	"github.com/crowdwisdom/marketfuse/internal/platform/kalshi"
	"github.com/crowdwisdom/marketfuse/internal/platform/manifold"
	"github.com/crowdwisdom/marketfuse/internal/platform/polymarket"
	"github.com/crowdwisdom/marketfuse/internal/platform/predictit"
	"github.com/crowdwisdom/marketfuse/internal/server/handler"
	"github.com/crowdwisdom/marketfuse/internal/store/postgres"
)

// Dependencies bundles every domain-level dependency that the application
// modes need. It is constructed by Wire and torn down by the returned
// cleanup function.
type Dependencies struct {
	// Stores
	RecordStore domain.RecordStore
	GroupStore  domain.GroupStore
	RunStore    domain.RunStore

	// Caches
	RecordCache    domain.RecordCache
	EmbeddingCache domain.EmbeddingCache
	RateLimiter    domain.RateLimiter
	SignalBus      domain.SignalBus

	// Blob storage (nil unless archiving is enabled)
	BlobWriter domain.BlobWriter
	BlobReader domain.BlobReader
	Archiver   domain.Archiver

	// Site collectors for every enabled site
	Collectors []pipeline.Collector

	// Embedder is nil when the semantic term is disabled.
	Embedder pipeline.Embedder

	// Notifications
	Notifier *notify.Notifier

	// Health probes for the API health endpoint, keyed by component name.
	Health map[string]handler.CheckFunc
}

// limitedCollector pins a collector to its site's configured fetch limit.
type limitedCollector struct {
	pipeline.Collector
	limit int
}

func (l limitedCollector) Fetch(ctx context.Context, _ int) ([]domain.RawRecord, error) {
	return l.Collector.Fetch(ctx, l.limit)
}

// Wire constructs all concrete dependency implementations from the given
// configuration and returns them together with a cleanup function that must
// be called on shutdown.
func Wire(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*Dependencies, func(), error) {
	var closers []func()
	cleanup := func() {
		for i := len(closers) - 1; i >= 0; i-- {
			closers[i]()
		}
	}

	deps := &Dependencies{
		Health: make(map[string]handler.CheckFunc),
	}

	// --- PostgreSQL ---
	pgClient, err := postgres.New(ctx, postgres.ClientConfig{
		DSN:      cfg.Database.DSN,
		Host:     cfg.Database.Host,
		Port:     cfg.Database.Port,
		Database: cfg.Database.Database,
		User:     cfg.Database.User,
		Password: cfg.Database.Password,
		SSLMode:  cfg.Database.SSLMode,
		MaxConns: cfg.Database.PoolMaxConns,
		MinConns: cfg.Database.PoolMinConns,
	})
	if err != nil {
		cleanup()
		return nil, nil, fmt.Errorf("wire: postgres: %w", err)
	}
	closers = append(closers, pgClient.Close)

	if cfg.Database.RunMigrations {
		if err := pgClient.RunMigrations(ctx); err != nil {
			cleanup()
			return nil, nil, fmt.Errorf("wire: postgres migrations: %w", err)
		}
	}

	pool := pgClient.Pool()
	deps.RecordStore = postgres.NewRecordStore(pool)
	deps.GroupStore = postgres.NewGroupStore(pool)
	deps.RunStore = postgres.NewRunStore(pool)
	deps.Health["postgres"] = pool.Ping

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

	deps.RecordCache = redis.NewRecordCache(redisClient)
	deps.EmbeddingCache = redis.NewEmbeddingCache(redisClient, cfg.Embeddings.CacheTTL.Duration)
	deps.RateLimiter = redis.NewRateLimiter(redisClient)
	deps.SignalBus = redis.NewSignalBus(redisClient)
	deps.Health["redis"] = redisClient.Ping

	// --- S3 blob storage (only when archiving is enabled) ---
	if cfg.Pipeline.ArchiveEnabled {
		s3Client, err := s3blob.New(ctx, s3blob.ClientConfig{
			Endpoint:       cfg.S3.Endpoint,
			Region:         cfg.S3.Region,
			Bucket:         cfg.S3.Bucket,
			AccessKey:      cfg.S3.AccessKey,
			SecretKey:      cfg.S3.SecretKey,
			UseSSL:         cfg.S3.UseSSL,
			ForcePathStyle: cfg.S3.ForcePathStyle,
		})
		if err != nil {
			cleanup()
			return nil, nil, fmt.Errorf("wire: s3: %w", err)
		}
		closers = append(closers, func() { _ = s3Client.Close() })

		deps.BlobWriter = s3blob.NewWriter(s3Client)
		deps.BlobReader = s3blob.NewReader(s3Client)
		deps.Archiver = s3blob.NewArchiver(deps.BlobWriter)
		deps.Health["s3"] = s3Client.Health
	}

	// --- Site collectors ---
	if cfg.Polymarket.Enabled {
		deps.Collectors = append(deps.Collectors, limitedCollector{
			Collector: polymarket.NewClient(cfg.Polymarket.GammaHost),
			limit:     cfg.Polymarket.Limit,
		})
	}
	if cfg.Manifold.Enabled {
		deps.Collectors = append(deps.Collectors, limitedCollector{
			Collector: manifold.NewClient(cfg.Manifold.BaseURL, cfg.Manifold.ApiKey),
			limit:     cfg.Manifold.Limit,
		})
	}
	if cfg.PredictIt.Enabled {
		deps.Collectors = append(deps.Collectors, limitedCollector{
			Collector: predictit.NewClient(cfg.PredictIt.BaseURL),
			limit:     cfg.PredictIt.Limit,
		})
	}
	if cfg.Kalshi.Enabled {
		deps.Collectors = append(deps.Collectors, limitedCollector{
			Collector: kalshi.NewClient(cfg.Kalshi.BaseURL, cfg.Kalshi.ApiKey),
			limit:     cfg.Kalshi.Limit,
		})
	}

	// --- Title embeddings ---
	if cfg.Embeddings.Enabled {
		provider, err := embed.NewGeminiProvider(ctx, cfg.Embeddings.ApiKey, cfg.Embeddings.Model)
		if err != nil {
			cleanup()
			return nil, nil, fmt.Errorf("wire: embeddings: %w", err)
		}
		deps.Embedder = embed.NewCachedProvider(provider, deps.EmbeddingCache)
	}

	// --- Notifications ---
	var senders []notify.Sender
	if cfg.Notify.TelegramToken != "" && cfg.Notify.TelegramChatID != "" {
		senders = append(senders, notify.NewTelegramSender(
			cfg.Notify.TelegramToken,
			cfg.Notify.TelegramChatID,
		))
	}
	if cfg.Notify.DiscordWebhookURL != "" {
		senders = append(senders, notify.NewDiscordSender(cfg.Notify.DiscordWebhookURL))
	}
	deps.Notifier = notify.NewNotifier(senders, cfg.Notify.Events, logger)

	return deps, cleanup, nil
}
