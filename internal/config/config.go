package config

import (
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/cortexhq/cortex/internal/apperr"
)

// Config holds all application configuration.
type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	LLM      LLMConfig      `mapstructure:"llm"`
	Vector   VectorConfig   `mapstructure:"vector"`
	Ingest   IngestConfig   `mapstructure:"ingest"`
	Temporal TemporalConfig `mapstructure:"temporal"`
	Log      LogConfig      `mapstructure:"log"`
	Tracing  TracingConfig  `mapstructure:"tracing"`
	Secrets  SecretsConfig  `mapstructure:"secrets"`
}

type ServerConfig struct {
	Host           string        `mapstructure:"host"`
	Port           int           `mapstructure:"port"`
	RequestTimeout time.Duration `mapstructure:"request_timeout"`

	// WebhookSecret enables GitHub signature verification when set.
	// Usually resolved through the secrets backend rather than the file.
	WebhookSecret string `mapstructure:"webhook_secret"`
}

type LLMConfig struct {
	Provider   string `mapstructure:"provider"`
	Model      string `mapstructure:"model"`
	APIKey     string `mapstructure:"api_key"`
	BaseURL    string `mapstructure:"base_url"`
	EmbedModel string `mapstructure:"embed_model"`

	// EmbedProvider routes embeddings to a different backend, required
	// when the chat provider has no embeddings endpoint (anthropic).
	EmbedProvider string `mapstructure:"embed_provider"`
	EmbedAPIKey   string `mapstructure:"embed_api_key"`

	Temperature float64       `mapstructure:"temperature"`
	MaxTokens   int           `mapstructure:"max_tokens"`
	Timeout     time.Duration `mapstructure:"timeout"`
	MaxRetries  int           `mapstructure:"max_retries"`
}

type VectorConfig struct {
	Host       string `mapstructure:"host"`
	Port       int    `mapstructure:"port"`
	Dimensions int    `mapstructure:"dimensions"`
	TopK       int    `mapstructure:"top_k"`
}

type IngestConfig struct {
	ScratchDir     string        `mapstructure:"scratch_dir"`
	RegistryPath   string        `mapstructure:"registry_path"`
	ChunkSize      int           `mapstructure:"chunk_size"`
	ChunkOverlap   int           `mapstructure:"chunk_overlap"`
	EmbedBatchSize int           `mapstructure:"embed_batch_size"`
	CloneTimeout   time.Duration `mapstructure:"clone_timeout"`

	// Extra file extensions and exclusion patterns merged into the
	// built-in loader defaults.
	ExtraExtensions []string `mapstructure:"extra_extensions"`
	ExtraExcludes   []string `mapstructure:"extra_excludes"`
}

type TemporalConfig struct {
	// Host empty means ingestion runs in-process instead of on a task queue.
	Host      string `mapstructure:"host"`
	Namespace string `mapstructure:"namespace"`
	TaskQueue string `mapstructure:"task_queue"`
}

type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`

	// AuditPath enables JSONL audit logging when set.
	AuditPath string `mapstructure:"audit_path"`
}

type SecretsConfig struct {
	// Provider is "env", "vault", or "file".
	Provider string `mapstructure:"provider"`

	VaultAddress string `mapstructure:"vault_address"`
	VaultToken   string `mapstructure:"vault_token"`
	VaultMount   string `mapstructure:"vault_mount"`
	VaultPath    string `mapstructure:"vault_path"`
	FilePath     string `mapstructure:"file_path"`
}

type TracingConfig struct {
	OTLPEndpoint string  `mapstructure:"otlp_endpoint"`
	SampleRate   float64 `mapstructure:"sample_rate"`
	Environment  string  `mapstructure:"environment"`
}

// NewLogger builds a slog logger honoring the configured level and
// format ("json" or "text").
func (c LogConfig) NewLogger() *slog.Logger {
	var level slog.Level
	switch strings.ToLower(c.Level) {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}
	opts := &slog.HandlerOptions{Level: level}
	if strings.ToLower(c.Format) == "json" {
		return slog.New(slog.NewJSONHandler(os.Stderr, opts))
	}
	return slog.New(slog.NewTextHandler(os.Stderr, opts))
}

// Defaults applied for fields left unset in the config file.
const (
	DefaultPort           = 8000
	DefaultDimensions     = 1536
	DefaultTopK           = 5
	DefaultChunkSize      = 400
	DefaultChunkOverlap   = 40
	DefaultEmbedBatchSize = 32
)

// Validate checks the configuration. The returned error is fatal: the
// process must not start an API server or worker without a usable LLM key.
func (c *Config) Validate() error {
	if c.LLM.Provider == "" || c.LLM.Provider == "none" {
		return apperr.New(apperr.KindConfig, "llm.provider is required (the embedding and chat APIs need a provider)")
	}
	if c.LLM.APIKey == "" {
		return apperr.Newf(apperr.KindConfig, "llm.api_key is empty for provider %q (set CORTEX_LLM_API_KEY)", c.LLM.Provider)
	}
	if c.LLM.Temperature < 0 || c.LLM.Temperature > 2.0 {
		return apperr.Newf(apperr.KindConfig, "llm.temperature %.2f is outside [0.0, 2.0]", c.LLM.Temperature)
	}
	if c.Vector.Dimensions <= 0 {
		return apperr.Newf(apperr.KindConfig, "vector.dimensions must be positive, got %d", c.Vector.Dimensions)
	}
	if c.Ingest.ChunkOverlap >= c.Ingest.ChunkSize {
		return apperr.Newf(apperr.KindConfig, "ingest.chunk_overlap %d must be smaller than chunk_size %d",
			c.Ingest.ChunkOverlap, c.Ingest.ChunkSize)
	}
	return nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", DefaultPort)
	v.SetDefault("server.request_timeout", "120s")
	v.SetDefault("llm.provider", "openai")
	v.SetDefault("llm.model", "gpt-4o-mini")
	v.SetDefault("llm.embed_model", "text-embedding-3-small")
	v.SetDefault("llm.temperature", 0.2)
	v.SetDefault("llm.max_tokens", 2048)
	v.SetDefault("llm.timeout", "2m")
	v.SetDefault("llm.max_retries", 3)
	v.SetDefault("vector.host", "localhost")
	v.SetDefault("vector.port", 6334)
	v.SetDefault("vector.dimensions", DefaultDimensions)
	v.SetDefault("vector.top_k", DefaultTopK)
	v.SetDefault("ingest.scratch_dir", "")
	v.SetDefault("ingest.registry_path", "data/registry.json")
	v.SetDefault("ingest.chunk_size", DefaultChunkSize)
	v.SetDefault("ingest.chunk_overlap", DefaultChunkOverlap)
	v.SetDefault("ingest.embed_batch_size", DefaultEmbedBatchSize)
	v.SetDefault("ingest.clone_timeout", "5m")
	v.SetDefault("temporal.namespace", "default")
	v.SetDefault("temporal.task_queue", "cortex-ingest")
	v.SetDefault("secrets.provider", "env")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "text")
	v.SetDefault("tracing.sample_rate", 1.0)
	v.SetDefault("tracing.environment", "development")
}

// Load reads configuration from file and environment. Environment variables
// use the CORTEX_ prefix with dots replaced by underscores, e.g.
// CORTEX_LLM_API_KEY overrides llm.api_key.
func Load(path string) (*Config, error) {
	v := viper.New()
	v.SetConfigFile(path)
	v.SetEnvPrefix("CORTEX")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("reading config: %w", err)
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshalling config: %w", err)
	}
	return &cfg, nil
}
