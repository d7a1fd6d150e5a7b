package config

import (
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/caarlos0/env/v11"
	"go.uber.org/fx"
)

var Module = fx.Module("config",
	fx.Provide(NewConfig),
)

// ErrInvalid marks configuration errors so callers can exit with a
// distinct status code.
var ErrInvalid = errors.New("invalid configuration")

// Config holds all application configuration.
// It is built once at startup and treated as immutable afterwards.
type Config struct {
	Environment string `env:"ENVIRONMENT" envDefault:"local"`
	Debug       bool   `env:"DEBUG" envDefault:"false"`
	LogLevel    string `env:"LOG_LEVEL" envDefault:"info"`
	Timezone    string `env:"TZ" envDefault:"UTC"`

	// Health/metrics listener for the services runner
	HealthPort    int    `env:"HEALTH_PORT" envDefault:"8090"`
	HealthAddress string `env:"HEALTH_ADDRESS" envDefault:"0.0.0.0"`

	// ShutdownTimeout is the drain grace window on termination
	ShutdownTimeout time.Duration `env:"SHUTDOWN_TIMEOUT" envDefault:"30s"`

	Database  DatabaseConfig
	Ollama    OllamaConfig
	Embedding EmbeddingConfig
	Poller    PollerConfig
	Worker    WorkerConfig
	Chunking  ChunkingConfig
	FTS       FTSConfig
	Trends    TrendsConfig
	Redis     RedisConfig
	Telegram  TelegramConfig

	// ServiceMode selects a single continuous service when set
	// (fts-continuous, chunk-continuous, embed-continuous).
	ServiceMode string `env:"SERVICE_MODE" envDefault:""`
}

// DatabaseConfig holds PostgreSQL connection settings
type DatabaseConfig struct {
	// DSN is the full connection string; required.
	DSN          string        `env:"PG_DSN"`
	MaxOpenConns int           `env:"DB_MAX_OPEN_CONNS" envDefault:"25"`
	MaxIdleConns int           `env:"DB_MAX_IDLE_CONNS" envDefault:"5"`
	MaxIdleTime  time.Duration `env:"DB_MAX_IDLE_TIME" envDefault:"5m"`
	QueryDebug   bool          `env:"DB_QUERY_DEBUG" envDefault:"false"`
}

// OllamaConfig holds the LLM chunker endpoint settings
type OllamaConfig struct {
	BaseURL string        `env:"OLLAMA_BASE_URL" envDefault:"http://localhost:11434"`
	Model   string        `env:"OLLAMA_MODEL" envDefault:"llama3.1"`
	Timeout time.Duration `env:"OLLAMA_TIMEOUT" envDefault:"60s"`
}

// EmbeddingConfig holds embedding client settings.
// Dimension is an invariant: vectors of any other length are rejected.
type EmbeddingConfig struct {
	Model     string        `env:"EMBEDDING_MODEL" envDefault:"nomic-embed-text"`
	Dimension int           `env:"EMBEDDING_DIM" envDefault:"768"`
	BatchSize int           `env:"EMBEDDING_BATCH_SIZE" envDefault:"64"`
	Timeout   time.Duration `env:"EMBEDDING_TIMEOUT" envDefault:"30s"`

	Interval time.Duration `env:"EMBED_INTERVAL" envDefault:"15s"`
	Batch    int           `env:"EMBED_BATCH" envDefault:"200"`
}

// PollerConfig holds feed poller settings
type PollerConfig struct {
	BatchSize      int           `env:"POLL_BATCH" envDefault:"50"`
	Workers        int           `env:"POLL_WORKERS" envDefault:"4"`
	Interval       time.Duration `env:"POLL_INTERVAL" envDefault:"5m"`
	FetchTimeout   time.Duration `env:"POLL_FETCH_TIMEOUT" envDefault:"30s"`
	BackoffBase    time.Duration `env:"POLL_BACKOFF_BASE" envDefault:"5m"`
	BackoffCap     time.Duration `env:"POLL_BACKOFF_CAP" envDefault:"6h"`
	MaxFailures    int           `env:"POLL_MAX_FAILURES" envDefault:"10"`
	StateDir       string        `env:"POLL_STATE_DIR" envDefault:"storage"`
	DeniedParams   []string      `env:"POLL_DENIED_PARAMS" envSeparator:"," envDefault:"fbclid,gclid,yclid,mc_cid,mc_eid,igshid"`
}

// WorkerConfig holds article worker settings
type WorkerConfig struct {
	BatchSize    int           `env:"WORK_BATCH" envDefault:"20"`
	Workers      int           `env:"WORK_WORKERS" envDefault:"4"`
	Interval     time.Duration `env:"WORK_INTERVAL" envDefault:"30s"`
	FetchTimeout time.Duration `env:"WORK_FETCH_TIMEOUT" envDefault:"30s"`
	MaxBodyBytes int64         `env:"WORK_MAX_BODY_BYTES" envDefault:"5242880"`
	MaxAttempts  int           `env:"WORK_MAX_ATTEMPTS" envDefault:"3"`
	MinTextChars int           `env:"WORK_MIN_TEXT_CHARS" envDefault:"200"`
	Lease        time.Duration `env:"WORK_LEASE" envDefault:"5m"`
}

// ChunkingConfig holds chunking service settings
type ChunkingConfig struct {
	Interval  time.Duration `env:"CHUNK_INTERVAL" envDefault:"20s"`
	Batch     int           `env:"CHUNK_BATCH" envDefault:"10"`
	MaxChars  int           `env:"CHUNK_MAX_CHARS" envDefault:"4000"`
	Lease     time.Duration `env:"CHUNK_LEASE" envDefault:"5m"`
	Languages []string      `env:"CHUNK_LANGUAGES" envSeparator:"," envDefault:"en,ru,de,fr,es"`
}

// FTSConfig holds full-text indexing settings
type FTSConfig struct {
	Interval time.Duration `env:"FTS_INTERVAL" envDefault:"15s"`
	Batch    int           `env:"FTS_BATCH" envDefault:"500"`
	// DefaultRegconfig is the text-search configuration used when the
	// article language has no mapping.
	DefaultRegconfig string `env:"FTS_DEFAULT_CONFIG" envDefault:"simple"`
}

// TrendsConfig holds trend detection settings
type TrendsConfig struct {
	WindowHours int           `env:"TRENDS_WINDOW_HOURS" envDefault:"24"`
	Limit       int           `env:"TRENDS_LIMIT" envDefault:"600"`
	TopN        int           `env:"TRENDS_TOP_N" envDefault:"10"`
	Eps         float64       `env:"TRENDS_EPS" envDefault:"0.30"`
	MinSamples  int           `env:"TRENDS_MIN_SAMPLES" envDefault:"5"`
	Keywords    int           `env:"TRENDS_KEYWORDS" envDefault:"6"`
	CacheTTL    time.Duration `env:"TRENDS_CACHE_TTL" envDefault:"10m"`
	Interval    time.Duration `env:"TRENDS_INTERVAL" envDefault:"10m"`
}

// RedisConfig holds the optional trends cache backend
type RedisConfig struct {
	Addr     string `env:"REDIS_ADDR" envDefault:""`
	Password string `env:"REDIS_PASSWORD" envDefault:""`
	DB       int    `env:"REDIS_DB" envDefault:"0"`
}

// IsConfigured returns true if a Redis backend is available
func (r *RedisConfig) IsConfigured() bool {
	return r.Addr != ""
}

// TelegramConfig holds report delivery settings
type TelegramConfig struct {
	BotToken string `env:"TELEGRAM_BOT_TOKEN" envDefault:""`
	ChatID   string `env:"TELEGRAM_CHAT_ID" envDefault:""`
}

// IsConfigured returns true if Telegram delivery is available
func (t *TelegramConfig) IsConfigured() bool {
	return t.BotToken != "" && t.ChatID != ""
}

// NewConfig loads configuration from environment variables.
// A missing PG_DSN is a configuration error: every command needs the database.
func NewConfig(log *slog.Logger) (*Config, error) {
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("%w: parse: %v", ErrInvalid, err)
	}

	if cfg.Database.DSN == "" {
		return nil, fmt.Errorf("%w: PG_DSN is required", ErrInvalid)
	}
	if cfg.Embedding.Dimension <= 0 {
		return nil, fmt.Errorf("%w: EMBEDDING_DIM must be positive, got %d", ErrInvalid, cfg.Embedding.Dimension)
	}

	log.Info("configuration loaded",
		slog.String("environment", cfg.Environment),
		slog.String("ollama_model", cfg.Ollama.Model),
		slog.String("embedding_model", cfg.Embedding.Model),
		slog.Int("embedding_dim", cfg.Embedding.Dimension),
	)

	return cfg, nil
}
