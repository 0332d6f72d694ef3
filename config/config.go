package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
)

type Config struct {
	AppName                       string   `env:"APP_NAME" env-default:"whatsapp-verification-checker"`
	Version                       string   `env:"APP_VERSION" env-default:"dev"`
	Port                          int      `env:"PORT" env-default:"3010"`
	LogLevel                      string   `env:"LOG_LEVEL" env-default:"info"`
	PrettyLogs                    bool     `env:"PRETTY_LOGS" env-default:"false"`
	HttpServerWriteTimeoutSeconds int      `env:"HTTP_SERVER_WRITE_TIMEOUT_SECONDS" env-default:"120"`
	HttpServerReadTimeoutSeconds  int      `env:"HTTP_SERVER_READ_TIMEOUT_SECONDS" env-default:"10"`
	HttpServerIdleTimeoutSeconds  int      `env:"HTTP_SERVER_IDLE_TIMEOUT_SECONDS" env-default:"10"`
	MaxHeaderBytes                int      `env:"HTTP_SERVER_MAX_HEADER_BYTES" env-default:"64000"` // 64KB
	ReadHeaderTimeoutSeconds      int      `env:"HTTP_SERVER_READ_HEADER_TIMEOUT_SECONDS" env-default:"10"`
	AllowOrigins                  []string `env:"HTTP_SERVER_ALLOW_ORIGINS" env-default:"*"`
	StartupMaxAttempts            int      `env:"STARTUP_MAX_ATTEMPTS" env-default:"5"`

	// Message store
	DatabaseDriver              string        `env:"DB_DRIVER" env-default:"postgres"`
	DatabaseHost                string        `env:"DB_HOST" env-default:"localhost"`
	DatabasePort                string        `env:"DB_PORT" env-default:"5432"`
	DatabaseUserName            string        `env:"DB_USER_NAME" env-default:""`
	DatabasePassword            string        `env:"DB_PASSWORD" env-default:""`
	DatabaseName                string        `env:"DB_NAME" env-default:"messages"`
	DatabaseSSLMode             string        `env:"DB_SSL_MODE" env-default:"disable"`
	DatabasePath                string        `env:"DB_PATH" env-default:"checker.db"` // sqlite only
	DatabaseMaxOpenConns        int           `env:"DB_MAX_OPEN_CONNS" env-default:"25"`
	DatabaseMaxIdleConns        int           `env:"DB_MAX_IDLE_CONNS" env-default:"10"`
	DatabaseConnMaxLifetime     time.Duration `env:"DB_CONN_MAX_LIFETIME" env-default:"10s"`
	DatabaseMigrationFolderPath string        `env:"DB_MIGRATION_FOLDER_PATH" env-default:"db"`
	DatabaseMigrationVersion    uint          `env:"DB_MIGRATION_VERSION" env-default:"0"`
	DatabaseMigrationForce      int           `env:"DB_MIGRATION_FORCE" env-default:"0"`

	// Provider history API
	ProviderBaseURL        string        `env:"PROVIDER_BASE_URL" env-default:""`
	ProviderAPIKey         string        `env:"PROVIDER_API_KEY" env-default:""`
	ProviderTimeout        time.Duration `env:"PROVIDER_TIMEOUT" env-default:"30s"`
	ProviderPageSize       int           `env:"PROVIDER_PAGE_SIZE" env-default:"100"`
	ProviderMaxPages       int           `env:"PROVIDER_MAX_PAGES" env-default:"50"`
	ProviderMaxRetries     int           `env:"PROVIDER_MAX_RETRIES" env-default:"3"`
	ProviderRetryBaseDelay time.Duration `env:"PROVIDER_RETRY_BASE_DELAY" env-default:"500ms"`
	ProviderConcurrency    int           `env:"PROVIDER_CONCURRENCY" env-default:"4"`
	ProviderItemsPath      string        `env:"PROVIDER_ITEMS_PATH" env-default:""`
	ProviderCursorPath     string        `env:"PROVIDER_CURSOR_PATH" env-default:""`
	ProviderTextPath       string        `env:"PROVIDER_TEXT_PATH" env-default:""`
	ProviderTimestampPath  string        `env:"PROVIDER_TIMESTAMP_PATH" env-default:""`

	// Provider cache
	CacheBackend  string        `env:"CACHE_BACKEND" env-default:"memory"` // memory, redis or none
	CacheTTL      time.Duration `env:"CACHE_TTL" env-default:"5m"`
	CacheMaxSize  int           `env:"CACHE_MAX_SIZE" env-default:"1000"`
	RedisHost     string        `env:"REDIS_HOST" env-default:"localhost"`
	RedisPort     int           `env:"REDIS_PORT" env-default:"6379"`
	RedisPassword string        `env:"REDIS_PASSWORD" env-default:""`
	RedisDB       int           `env:"REDIS_DB" env-default:"0"`
	RedisPrefix   string        `env:"REDIS_PREFIX" env-default:"checker:"`

	// Kafka Producer settings
	KafkaEnabled      bool     `env:"KAFKA_ENABLED" env-default:"false"`
	KafkaBrokers      []string `env:"KAFKA_BROKERS" env-default:"localhost:9092"`
	KafkaOutputTopic  string   `env:"KAFKA_OUTPUT_TOPIC" env-default:"reconciliation-events"`
	KafkaBatchSize    int      `env:"KAFKA_BATCH_SIZE" env-default:"100"`
	KafkaBatchTimeout int      `env:"KAFKA_BATCH_TIMEOUT_MS" env-default:"100"`
	KafkaRequiredAcks int      `env:"KAFKA_REQUIRED_ACKS" env-default:"1"`
	KafkaCompression  string   `env:"KAFKA_COMPRESSION" env-default:"snappy"`

	// Matching
	MatchBatchSize      int     `env:"MATCH_BATCH_SIZE" env-default:"100"`
	MatchWorkers        int     `env:"MATCH_WORKERS" env-default:"4"`
	MatchScope          string  `env:"MATCH_SCOPE" env-default:"batch"`
	SimilarityThreshold float64 `env:"SIMILARITY_THRESHOLD" env-default:"0.8"`
}

// Load reads configuration from the environment, layered over an optional .env file
func Load(envFile string) (*Config, error) {
	var cfg Config

	if envFile != "" {
		if _, err := os.Stat(envFile); err == nil {
			if err := cleanenv.ReadConfig(envFile, &cfg); err != nil {
				return nil, fmt.Errorf("failed to read %s: %w", envFile, err)
			}
			return &cfg, nil
		} else if !errors.Is(err, os.ErrNotExist) {
			return nil, err
		}
	}

	if err := cleanenv.ReadEnv(&cfg); err != nil {
		return nil, fmt.Errorf("failed to read environment: %w", err)
	}
	return &cfg, nil
}

// DatabaseDSN builds the connection string for the configured driver
func (c *Config) DatabaseDSN() string {
	if c.DatabaseDriver == "sqlite" {
		return c.DatabasePath
	}
	return fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		c.DatabaseHost, c.DatabasePort, c.DatabaseUserName, c.DatabasePassword, c.DatabaseName, c.DatabaseSSLMode)
}
