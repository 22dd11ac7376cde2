// Package config provides configuration management for the paper analysis service.
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// EnvPrefix is the prefix for every environment variable the service reads.
const EnvPrefix = "PAPERASSIST"

// LLM provider names accepted by llm.provider.
const (
	ProviderMock      = "mock"
	ProviderOpenAI    = "openai"
	ProviderAnthropic = "anthropic"
	ProviderGemini    = "gemini"
)

// Config holds all configuration for the paper analysis service.
type Config struct {
	// Server contains HTTP server settings.
	Server ServerConfig `mapstructure:"server"`
	// Logging contains structured logging settings.
	Logging LoggingConfig `mapstructure:"logging"`
	// Metrics contains Prometheus metrics exposure settings.
	Metrics MetricsConfig `mapstructure:"metrics"`
	// Pipeline contains analysis pipeline settings.
	Pipeline PipelineConfig `mapstructure:"pipeline"`
	// Jobs contains job registry housekeeping settings.
	Jobs JobsConfig `mapstructure:"jobs"`
	// LLM contains language model settings for summaries and Q&A.
	LLM LLMConfig `mapstructure:"llm"`
	// PaperSources contains metadata source configurations.
	PaperSources PaperSourcesConfig `mapstructure:"paper_sources"`
	// PDF contains document download settings.
	PDF PDFConfig `mapstructure:"pdf"`
	// Kafka contains job event publishing and submission intake settings.
	Kafka KafkaConfig `mapstructure:"kafka"`
}

// ServerConfig holds server configuration.
type ServerConfig struct {
	// Host is the address to bind the server to (default: 0.0.0.0).
	Host string `mapstructure:"host"`
	// HTTPPort is the HTTP server port (default: 8000).
	HTTPPort int `mapstructure:"http_port"`
	// MetricsPort is the metrics server port (default: 9091).
	MetricsPort int `mapstructure:"metrics_port"`
	// ReadTimeout is the maximum duration for reading request body.
	ReadTimeout time.Duration `mapstructure:"read_timeout"`
	// WriteTimeout is the maximum duration for writing response.
	// Progress streams are long-lived, so this should stay generous.
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
	// IdleTimeout is the keep-alive idle timeout.
	IdleTimeout time.Duration `mapstructure:"idle_timeout"`
	// ShutdownTimeout is the maximum duration to wait for graceful shutdown.
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
}

// LoggingConfig holds logging configuration.
type LoggingConfig struct {
	// Level is the log level (trace, debug, info, warn, error, fatal, panic).
	Level string `mapstructure:"level"`
	// Format is the log format (json, console).
	Format string `mapstructure:"format"`
	// Output is the log output destination (stdout, stderr).
	Output string `mapstructure:"output"`
	// AddSource adds source file and line to log output.
	AddSource bool `mapstructure:"add_source"`
	// TimeFormat is the timestamp format.
	TimeFormat string `mapstructure:"time_format"`
}

// MetricsConfig holds metrics configuration.
type MetricsConfig struct {
	// Enabled enables metrics collection and exposure.
	Enabled bool `mapstructure:"enabled"`
	// Path is the HTTP path for metrics endpoint.
	Path string `mapstructure:"path"`
}

// PipelineConfig holds analysis pipeline settings.
type PipelineConfig struct {
	// MaxConcurrent bounds concurrently running pipelines. Zero means unbounded.
	MaxConcurrent int64 `mapstructure:"max_concurrent"`
	// Freshness is how long a stored analysis is served before recomputation.
	Freshness time.Duration `mapstructure:"freshness"`
}

// JobsConfig holds job registry housekeeping settings.
type JobsConfig struct {
	// Retention is how long terminal jobs are kept. Zero keeps them forever.
	Retention time.Duration `mapstructure:"retention"`
	// PruneInterval is how often the pruner runs when Retention is set.
	PruneInterval time.Duration `mapstructure:"prune_interval"`
}

// LLMConfig holds LLM client configuration.
type LLMConfig struct {
	// Provider is the LLM provider (mock, openai, anthropic, gemini).
	Provider string `mapstructure:"provider"`
	// Timeout is the timeout for LLM API calls.
	Timeout time.Duration `mapstructure:"timeout"`
	// MaxRetries is the maximum number of retries for failed calls.
	MaxRetries int `mapstructure:"max_retries"`
	// Temperature is the LLM temperature setting.
	Temperature float64 `mapstructure:"temperature"`
	// MaxTokens caps the length of each completion.
	MaxTokens int `mapstructure:"max_tokens"`
	// MockDelay simulates model latency for the mock provider.
	MockDelay time.Duration `mapstructure:"mock_delay"`
	// OpenAI contains OpenAI-specific settings.
	OpenAI ProviderConfig `mapstructure:"openai"`
	// Anthropic contains Anthropic-specific settings.
	Anthropic ProviderConfig `mapstructure:"anthropic"`
	// Gemini contains Google Gemini-specific settings.
	Gemini ProviderConfig `mapstructure:"gemini"`
	// CircuitBreaker guards calls to the configured provider.
	CircuitBreaker CircuitBreakerConfig `mapstructure:"circuit_breaker"`
}

// CircuitBreakerConfig holds circuit breaker settings for model calls.
type CircuitBreakerConfig struct {
	Enabled              bool          `mapstructure:"enabled"`
	ConsecutiveThreshold int           `mapstructure:"consecutive_threshold"`
	Cooldown             time.Duration `mapstructure:"cooldown"`
	WindowSize           int           `mapstructure:"window_size"`
}

// ProviderConfig holds settings for a single hosted model provider.
type ProviderConfig struct {
	// APIKey is loaded from PAPERASSIST_LLM_<PROVIDER>_API_KEY only.
	APIKey string `mapstructure:"-"`
	// Model is the model to use.
	Model string `mapstructure:"model"`
	// BaseURL is the API base URL (for custom endpoints).
	BaseURL string `mapstructure:"base_url"`
}

// PaperSourcesConfig holds configuration for the metadata sources.
type PaperSourcesConfig struct {
	// UseMock replaces every source with the deterministic offline source.
	UseMock bool `mapstructure:"use_mock"`
	// MockDelay simulates lookup latency for the mock source.
	MockDelay time.Duration `mapstructure:"mock_delay"`
	// ArXiv contains arXiv API settings.
	ArXiv ArXivConfig `mapstructure:"arxiv"`
	// SemanticScholar contains Semantic Scholar API settings.
	SemanticScholar PaperSourceConfig `mapstructure:"semantic_scholar"`
}

// PaperSourceConfig holds configuration for a single paper source API.
type PaperSourceConfig struct {
	// Enabled controls whether this source is used.
	Enabled bool `mapstructure:"enabled"`
	// APIKey is loaded from the environment only.
	APIKey string `mapstructure:"-"`
	// BaseURL is the API base URL.
	BaseURL string `mapstructure:"base_url"`
	// Timeout is the timeout for API calls.
	Timeout time.Duration `mapstructure:"timeout"`
	// RateLimit is the maximum requests per second.
	RateLimit float64 `mapstructure:"rate_limit"`
}

// ArXivConfig extends PaperSourceConfig with the document endpoints.
type ArXivConfig struct {
	PaperSourceConfig `mapstructure:",squash"`
	// PDFBaseURL is the prefix for full-text PDF downloads.
	PDFBaseURL string `mapstructure:"pdf_base_url"`
	// HTMLBaseURL is the prefix for the HTML rendering used as a fallback.
	HTMLBaseURL string `mapstructure:"html_base_url"`
	// DisableHTMLFallback turns off the HTML fallback.
	DisableHTMLFallback bool `mapstructure:"disable_html_fallback"`
}

// PDFConfig holds document download settings.
type PDFConfig struct {
	// Timeout bounds a single download.
	Timeout time.Duration `mapstructure:"timeout"`
	// MaxSize is the largest accepted document in bytes.
	MaxSize int64 `mapstructure:"max_size"`
	// UserAgent is sent with every download.
	UserAgent string `mapstructure:"user_agent"`
}

// KafkaConfig holds Kafka settings.
type KafkaConfig struct {
	// Enabled controls whether job events are published.
	Enabled bool `mapstructure:"enabled"`
	// Brokers is the list of Kafka broker addresses.
	Brokers []string `mapstructure:"brokers"`
	// Topic receives job events.
	Topic string `mapstructure:"topic"`
	// BatchSize is the maximum number of messages to batch before sending.
	BatchSize int `mapstructure:"batch_size"`
	// BatchTimeout is the maximum time to wait for a batch to fill before sending.
	BatchTimeout time.Duration `mapstructure:"batch_timeout"`
	// Consumer contains submission intake settings.
	Consumer KafkaConsumerConfig `mapstructure:"consumer"`
}

// KafkaConsumerConfig holds settings for the submission intake listener.
type KafkaConsumerConfig struct {
	// Enabled controls whether submissions are consumed from Topic.
	Enabled bool `mapstructure:"enabled"`
	// Topic carries submission requests.
	Topic string `mapstructure:"topic"`
	// GroupID is the consumer group ID.
	GroupID string `mapstructure:"group_id"`
}

// HTTPAddress returns the HTTP server address.
func (c *ServerConfig) HTTPAddress() string {
	return fmt.Sprintf("%s:%d", c.Host, c.HTTPPort)
}

// MetricsAddress returns the metrics server address.
func (c *ServerConfig) MetricsAddress() string {
	return fmt.Sprintf("%s:%d", c.Host, c.MetricsPort)
}

// Load loads configuration from environment variables and config files.
func Load() (*Config, error) {
	v := viper.New()

	setDefaults(v)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("./config")
	v.AddConfigPath("/etc/paper-analysis-service")

	if err := v.ReadInConfig(); err != nil {
		var configNotFound viper.ConfigFileNotFoundError
		if !errors.As(err, &configNotFound) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		// Config file not found is OK, we'll use env vars and defaults
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	// Secrets are tagged mapstructure:"-" and never come from config files.
	loadSecrets(&cfg)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return &cfg, nil
}

// loadSecrets populates secret fields exclusively from environment variables.
func loadSecrets(cfg *Config) {
	cfg.LLM.OpenAI.APIKey = os.Getenv(EnvPrefix + "_LLM_OPENAI_API_KEY")
	cfg.LLM.Anthropic.APIKey = os.Getenv(EnvPrefix + "_LLM_ANTHROPIC_API_KEY")
	cfg.LLM.Gemini.APIKey = os.Getenv(EnvPrefix + "_LLM_GEMINI_API_KEY")

	cfg.PaperSources.SemanticScholar.APIKey = os.Getenv(EnvPrefix + "_PAPER_SOURCES_SEMANTIC_SCHOLAR_API_KEY")
}

// setDefaults sets default configuration values.
func setDefaults(v *viper.Viper) {
	// Server defaults
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.http_port", 8000)
	v.SetDefault("server.metrics_port", 9091)
	v.SetDefault("server.read_timeout", "30s")
	v.SetDefault("server.write_timeout", "0s")
	v.SetDefault("server.idle_timeout", "120s")
	v.SetDefault("server.shutdown_timeout", "30s")

	// Logging defaults
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")
	v.SetDefault("logging.output", "stdout")
	v.SetDefault("logging.add_source", false)
	v.SetDefault("logging.time_format", time.RFC3339)

	// Metrics defaults
	v.SetDefault("metrics.enabled", true)
	v.SetDefault("metrics.path", "/metrics")

	// Pipeline defaults
	v.SetDefault("pipeline.max_concurrent", 8)
	v.SetDefault("pipeline.freshness", "720h")

	// Job registry defaults
	v.SetDefault("jobs.retention", "0s")
	v.SetDefault("jobs.prune_interval", "10m")

	// LLM defaults. Keys come from the environment (see loadSecrets).
	v.SetDefault("llm.provider", ProviderMock)
	v.SetDefault("llm.timeout", "60s")
	v.SetDefault("llm.max_retries", 3)
	v.SetDefault("llm.temperature", 0.3)
	v.SetDefault("llm.max_tokens", 2048)
	v.SetDefault("llm.mock_delay", "500ms")
	v.SetDefault("llm.openai.model", "gpt-4o-mini")
	v.SetDefault("llm.openai.base_url", "https://api.openai.com/v1")
	v.SetDefault("llm.anthropic.model", "claude-3-5-haiku-latest")
	v.SetDefault("llm.anthropic.base_url", "https://api.anthropic.com")
	v.SetDefault("llm.gemini.model", "gemini-2.0-flash")
	v.SetDefault("llm.gemini.base_url", "")
	v.SetDefault("llm.circuit_breaker.enabled", true)
	v.SetDefault("llm.circuit_breaker.consecutive_threshold", 3)
	v.SetDefault("llm.circuit_breaker.cooldown", "30s")
	v.SetDefault("llm.circuit_breaker.window_size", 10)

	// Paper sources defaults
	v.SetDefault("paper_sources.use_mock", false)
	v.SetDefault("paper_sources.mock_delay", "500ms")

	v.SetDefault("paper_sources.arxiv.enabled", true)
	v.SetDefault("paper_sources.arxiv.base_url", "https://export.arxiv.org/api")
	v.SetDefault("paper_sources.arxiv.pdf_base_url", "https://arxiv.org/pdf/")
	v.SetDefault("paper_sources.arxiv.html_base_url", "https://arxiv.org/html/")
	v.SetDefault("paper_sources.arxiv.disable_html_fallback", false)
	v.SetDefault("paper_sources.arxiv.timeout", "30s")
	v.SetDefault("paper_sources.arxiv.rate_limit", 1.0/3.0) // arXiv asks for one request every three seconds

	v.SetDefault("paper_sources.semantic_scholar.enabled", true)
	v.SetDefault("paper_sources.semantic_scholar.base_url", "https://api.semanticscholar.org/graph/v1")
	v.SetDefault("paper_sources.semantic_scholar.timeout", "30s")
	v.SetDefault("paper_sources.semantic_scholar.rate_limit", 1.0)

	// PDF download defaults
	v.SetDefault("pdf.timeout", "60s")
	v.SetDefault("pdf.max_size", 50*1024*1024)
	v.SetDefault("pdf.user_agent", "ResearchPaperAssistant/1.0")

	// Kafka defaults
	v.SetDefault("kafka.enabled", false)
	v.SetDefault("kafka.brokers", []string{"localhost:9092"})
	v.SetDefault("kafka.topic", "events.paper_analysis_service")
	v.SetDefault("kafka.batch_size", 100)
	v.SetDefault("kafka.batch_timeout", "10ms")
	v.SetDefault("kafka.consumer.enabled", false)
	v.SetDefault("kafka.consumer.topic", "requests.paper_analysis_service")
	v.SetDefault("kafka.consumer.group_id", "paper-analysis-service")
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if c.Server.HTTPPort <= 0 || c.Server.HTTPPort > 65535 {
		return fmt.Errorf("invalid HTTP port: %d", c.Server.HTTPPort)
	}
	if c.Server.MetricsPort <= 0 || c.Server.MetricsPort > 65535 {
		return fmt.Errorf("invalid metrics port: %d", c.Server.MetricsPort)
	}
	if c.Metrics.Enabled && c.Server.MetricsPort == c.Server.HTTPPort {
		return fmt.Errorf("metrics port must differ from HTTP port: %d", c.Server.HTTPPort)
	}

	validLogLevels := map[string]bool{
		"trace": true, "debug": true, "info": true,
		"warn": true, "error": true, "fatal": true, "panic": true,
	}
	if !validLogLevels[strings.ToLower(c.Logging.Level)] {
		return fmt.Errorf("invalid log level: %s", c.Logging.Level)
	}

	if c.Pipeline.MaxConcurrent < 0 {
		return fmt.Errorf("pipeline max_concurrent must be non-negative: %d", c.Pipeline.MaxConcurrent)
	}
	if c.Pipeline.Freshness <= 0 {
		return fmt.Errorf("pipeline freshness must be positive: %s", c.Pipeline.Freshness)
	}
	if c.Jobs.Retention < 0 {
		return fmt.Errorf("jobs retention must be non-negative: %s", c.Jobs.Retention)
	}
	if c.Jobs.Retention > 0 && c.Jobs.PruneInterval <= 0 {
		return fmt.Errorf("jobs prune_interval must be positive when retention is set")
	}

	switch strings.ToLower(c.LLM.Provider) {
	case ProviderMock:
	case ProviderOpenAI:
		if c.LLM.OpenAI.APIKey == "" {
			return fmt.Errorf("LLM provider %q requires %s_LLM_OPENAI_API_KEY to be set", c.LLM.Provider, EnvPrefix)
		}
	case ProviderAnthropic:
		if c.LLM.Anthropic.APIKey == "" {
			return fmt.Errorf("LLM provider %q requires %s_LLM_ANTHROPIC_API_KEY to be set", c.LLM.Provider, EnvPrefix)
		}
	case ProviderGemini:
		if c.LLM.Gemini.APIKey == "" {
			return fmt.Errorf("LLM provider %q requires %s_LLM_GEMINI_API_KEY to be set", c.LLM.Provider, EnvPrefix)
		}
	default:
		return fmt.Errorf("unsupported LLM provider: %q", c.LLM.Provider)
	}

	if cb := c.LLM.CircuitBreaker; cb.Enabled && (cb.ConsecutiveThreshold < 1 || cb.Cooldown <= 0) {
		return fmt.Errorf("llm circuit_breaker needs consecutive_threshold >= 1 and a positive cooldown")
	}

	if c.PDF.MaxSize <= 0 {
		return fmt.Errorf("pdf max_size must be positive: %d", c.PDF.MaxSize)
	}

	if (c.Kafka.Enabled || c.Kafka.Consumer.Enabled) && len(c.Kafka.Brokers) == 0 {
		return fmt.Errorf("kafka brokers are required when kafka is enabled")
	}
	if c.Kafka.Consumer.Enabled && c.Kafka.Consumer.GroupID == "" {
		return fmt.Errorf("kafka consumer group_id is required when the consumer is enabled")
	}

	return nil
}
