package app

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/quantfable/oracle/internal/artifact"
	s3blob "github.com/quantfable/oracle/internal/blob/s3"
	"github.com/quantfable/oracle/internal/cache/redis"
	"github.com/quantfable/oracle/internal/config"
	"github.com/quantfable/oracle/internal/domain"
	"github.com/quantfable/oracle/internal/narrative"
	"github.com/quantfable/oracle/internal/notify"
	"github.com/quantfable/oracle/internal/platform/polymarket"
	"github.com/quantfable/oracle/internal/service"
	"github.com/quantfable/oracle/internal/store/postgres"
)

// Dependencies bundles every dependency that the application modes need to
// operate. It is constructed by Wire and torn down by the returned cleanup
// function.
type Dependencies struct {
	// External API
	Gamma *polymarket.GammaClient

	// Stores
	Events domain.EventStore
	Runs   domain.RunStore

	// Caches
	Cache domain.TimelineCache
	Locks domain.LockManager

	// Outputs
	Artifacts *artifact.Writer
	Publisher *s3blob.Publisher // nil when no bucket is configured

	// Narrative
	Analyzer  *narrative.Analyzer // nil when no API key is configured
	Narrative *service.NarrativeHolder

	// Notifications
	Notifier *notify.Notifier
}

// Wire constructs all concrete dependency implementations from the given
// configuration and returns them together with a cleanup function that
// should be called on shutdown to release resources.
func Wire(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*Dependencies, func(), error) {
	var closers []func()
	cleanup := func() {
		for i := len(closers) - 1; i >= 0; i-- {
			closers[i]()
		}
	}

	deps := &Dependencies{}

	// --- Gamma API client ---
	deps.Gamma = polymarket.NewGammaClient(cfg.Polymarket.GammaHost, logger,
		polymarket.WithRetries(cfg.Polymarket.Retries),
		polymarket.WithBaseDelay(cfg.Polymarket.BaseDelay.Duration),
		polymarket.WithPageDelay(cfg.Polymarket.PageDelay.Duration),
	)

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
	deps.Events = postgres.NewEventStore(pool)
	deps.Runs = postgres.NewRunStore(pool)

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

	// The cache TTL tracks the pipeline interval with headroom so a healthy
	// pipeline always refreshes before expiry.
	deps.Cache = redis.NewTimelineCache(redisClient, 2*cfg.Pipeline.Interval.Duration)
	deps.Locks = redis.NewLockManager(redisClient)

	// --- Local artifacts ---
	artifacts, err := artifact.NewWriter(cfg.Output.Dir)
	if err != nil {
		cleanup()
		return nil, nil, fmt.Errorf("wire: artifacts: %w", err)
	}
	deps.Artifacts = artifacts

	// --- S3 publishing (optional) ---
	if cfg.S3.Bucket != "" {
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
		deps.Publisher = s3blob.NewPublisher(s3blob.NewWriter(s3Client))
	}

	// --- Narrative analyzer (optional) ---
	deps.Narrative = service.NewNarrativeHolder()
	if cfg.Anthropic.APIKey != "" {
		analyzer, err := narrative.NewAnalyzer(narrative.Config{
			APIKey:    cfg.Anthropic.APIKey,
			Model:     cfg.Anthropic.Model,
			MaxTokens: cfg.Anthropic.MaxTokens,
		}, logger)
		if err != nil {
			cleanup()
			return nil, nil, fmt.Errorf("wire: narrative: %w", err)
		}
		deps.Analyzer = analyzer
	} else {
		logger.Info("no anthropic api key configured, narrative generation disabled")
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
