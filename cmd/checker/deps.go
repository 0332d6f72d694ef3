package main

import (
	"context"
	"fmt"
	"time"

	"github.com/Gobusters/ectologger"

	"github.com/4rvnd/ara-whatsapp-verification-checker/config"
	"github.com/4rvnd/ara-whatsapp-verification-checker/internal/repositories/message"
	"github.com/4rvnd/ara-whatsapp-verification-checker/pkg/cache"
	"github.com/4rvnd/ara-whatsapp-verification-checker/pkg/database"
	"github.com/4rvnd/ara-whatsapp-verification-checker/pkg/kafka"
	"github.com/4rvnd/ara-whatsapp-verification-checker/pkg/matching"
	"github.com/4rvnd/ara-whatsapp-verification-checker/pkg/provider"
	"github.com/4rvnd/ara-whatsapp-verification-checker/pkg/reconcile"
	"github.com/4rvnd/ara-whatsapp-verification-checker/pkg/verification"
)

func connectDatabase(ctx context.Context, cfg *config.Config, logger ectologger.Logger) (database.DB, error) {
	return database.Connect(ctx, database.Config{
		Driver:          cfg.DatabaseDriver,
		DSN:             cfg.DatabaseDSN(),
		MaxOpenConns:    cfg.DatabaseMaxOpenConns,
		MaxIdleConns:    cfg.DatabaseMaxIdleConns,
		ConnMaxLifetime: cfg.DatabaseConnMaxLifetime,
	}, logger)
}

func runMigrations(cfg *config.Config, db database.DB, logger ectologger.Logger) error {
	return database.NewMigrationService(logger, &database.MigrationConfig{
		MigrationFolderPath: cfg.DatabaseMigrationFolderPath,
		Version:             cfg.DatabaseMigrationVersion,
		Force:               cfg.DatabaseMigrationForce,
	}).Migrate(db)
}

func newCache(ctx context.Context, cfg *config.Config, logger ectologger.Logger) (cache.Cache, error) {
	switch cfg.CacheBackend {
	case "redis":
		return cache.NewRedisCache(ctx, cache.RedisConfig{
			Host:     cfg.RedisHost,
			Port:     cfg.RedisPort,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
			Prefix:   cfg.RedisPrefix,
		}, logger)
	case "memory", "":
		return cache.NewMemoryCache(cache.MemoryCacheConfig{MaxSize: cfg.CacheMaxSize}), nil
	case "none":
		return cache.Noop{}, nil
	default:
		return nil, fmt.Errorf("unknown CACHE_BACKEND %q", cfg.CacheBackend)
	}
}

func newProviderClient(cfg *config.Config, c cache.Cache, logger ectologger.Logger) (*provider.Client, error) {
	paths := provider.DefaultPaths()
	if cfg.ProviderItemsPath != "" {
		paths.Items = cfg.ProviderItemsPath
	}
	if cfg.ProviderCursorPath != "" {
		paths.Cursor = cfg.ProviderCursorPath
	}
	if cfg.ProviderTextPath != "" {
		paths.Text = cfg.ProviderTextPath
	}
	if cfg.ProviderTimestampPath != "" {
		paths.Timestamp = cfg.ProviderTimestampPath
	}

	return provider.NewClient(provider.Config{
		BaseURL:        cfg.ProviderBaseURL,
		APIKey:         cfg.ProviderAPIKey,
		Timeout:        cfg.ProviderTimeout,
		PageSize:       cfg.ProviderPageSize,
		MaxPages:       cfg.ProviderMaxPages,
		MaxRetries:     cfg.ProviderMaxRetries,
		RetryBaseDelay: cfg.ProviderRetryBaseDelay,
		Concurrency:    cfg.ProviderConcurrency,
		CacheTTL:       cfg.CacheTTL,
		Paths:          paths,
	}, c, logger)
}

func newProducer(cfg *config.Config, logger ectologger.Logger) *kafka.Producer {
	if !cfg.KafkaEnabled {
		return nil
	}
	return kafka.NewProducer(kafka.ProducerConfig{
		Brokers:      cfg.KafkaBrokers,
		Topic:        cfg.KafkaOutputTopic,
		BatchSize:    cfg.KafkaBatchSize,
		BatchTimeout: time.Duration(cfg.KafkaBatchTimeout) * time.Millisecond,
		RequiredAcks: cfg.KafkaRequiredAcks,
		Compression:  cfg.KafkaCompression,
	}, logger)
}

// defaultOptions maps matching configuration onto reconciliation options
func defaultOptions(cfg *config.Config) (reconcile.Options, error) {
	scope, err := reconcile.ParseScope(cfg.MatchScope)
	if err != nil {
		return reconcile.Options{}, err
	}
	opts := reconcile.Options{
		BatchSize: cfg.MatchBatchSize,
		Threshold: cfg.SimilarityThreshold,
		Workers:   cfg.MatchWorkers,
		Scope:     scope,
	}
	return opts, opts.Validate()
}

func newCoordinator(logger ectologger.Logger) *reconcile.Coordinator {
	return reconcile.NewCoordinator(matching.NewMatcher(matching.NewScorer()), logger)
}

// newService wires the verification service. A nil producer disables events.
func newService(db database.DB, client *provider.Client, producer *kafka.Producer, opts reconcile.Options, logger ectologger.Logger) *verification.Service {
	var publisher verification.EventPublisher
	if producer != nil {
		publisher = producer
	}

	return verification.NewService(message.NewRepository(db, logger), client, publisher, newCoordinator(logger), opts, logger)
}
