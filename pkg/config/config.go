package config

import (
	"fmt"
	"os"
	"time"

	"github.com/ilyakaznacheev/cleanenv"

	"github.com/ekaya-inc/ekaya-eda/pkg/llm"
	"github.com/ekaya-inc/ekaya-eda/pkg/models"
)

// DefaultPath is read when no --config flag is given.
const DefaultPath = "config.yaml"

// Config holds all configuration for ekaya-eda.
// Configuration can come from YAML file (config.yaml) or environment variables.
// Environment variables always override YAML values for fields that support both.
// Secrets (API keys, store passwords) must only come from environment variables.
type Config struct {
	Version string `yaml:"-"` // Set at load time, not from config

	Server   ServerConfig   `yaml:"server"`
	Log      LogConfig      `yaml:"log"`
	LLM      LLMConfig      `yaml:"llm"`
	Resolver ResolverConfig `yaml:"resolver"`
	Catalog  CatalogConfig  `yaml:"catalog"`
}

// ServerConfig configures the serve command.
type ServerConfig struct {
	BindAddr string `yaml:"bind_addr" env:"BIND_ADDR" env-default:"127.0.0.1"`
	Port     string `yaml:"port" env:"PORT" env-default:"8480"`

	// TLS configuration (optional - if both provided, server uses HTTPS)
	TLSCertPath string `yaml:"tls_cert_path" env:"TLS_CERT_PATH" env-default:""`
	TLSKeyPath  string `yaml:"tls_key_path" env:"TLS_KEY_PATH" env-default:""`
}

// LogConfig selects the zap logger.
type LogConfig struct {
	Level       string `yaml:"level" env:"LOG_LEVEL" env-default:"info"`
	Development bool   `yaml:"development" env:"LOG_DEVELOPMENT" env-default:"false"`
}

// LLMConfig holds the generation provider settings shared by every
// component of a session.
type LLMConfig struct {
	Provider  string        `yaml:"provider" env:"LLM_PROVIDER" env-default:"openai"`
	Endpoint  string        `yaml:"endpoint" env:"LLM_ENDPOINT" env-default:"https://api.openai.com/v1"`
	Model     string        `yaml:"model" env:"LLM_MODEL" env-default:"gpt-4o"`
	APIKey    string        `yaml:"-" env:"LLM_API_KEY"` // Secret - not in YAML
	MaxTokens int           `yaml:"max_tokens" env:"LLM_MAX_TOKENS" env-default:"2048"`
	Timeout   time.Duration `yaml:"timeout" env:"LLM_TIMEOUT" env-default:"120s"`

	// MaxRetries applies to retryable provider errors only.
	MaxRetries int `yaml:"max_retries" env:"LLM_MAX_RETRIES" env-default:"2"`

	// Circuit breaker shared by all sessions of the process.
	BreakerThreshold int           `yaml:"breaker_threshold" env:"LLM_BREAKER_THRESHOLD" env-default:"5"`
	BreakerReset     time.Duration `yaml:"breaker_reset" env:"LLM_BREAKER_RESET" env-default:"30s"`
}

// ResolverConfig holds the per-session knobs. It is converted to an
// immutable models.ResolverConfig with Config.ResolverConfig.
type ResolverConfig struct {
	MaxRefineIterations int           `yaml:"max_refine_iterations" env:"EDA_MAX_REFINE_ITERATIONS" env-default:"3"`
	ProviderTimeout     time.Duration `yaml:"provider_timeout" env:"EDA_PROVIDER_TIMEOUT" env-default:"60s"`
	ExecuteTimeout      time.Duration `yaml:"execute_timeout" env:"EDA_EXECUTE_TIMEOUT" env-default:"30s"`
	MaxRows             int           `yaml:"max_rows" env:"EDA_MAX_ROWS" env-default:"1000"`
	Temperature         float64       `yaml:"temperature" env:"EDA_TEMPERATURE" env-default:"0"`

	// Concurrency bounds the batch runner's pool.
	Concurrency int `yaml:"concurrency" env:"EDA_CONCURRENCY" env-default:"8"`
}

// CatalogConfig points at the catalog of views and partitions.
type CatalogConfig struct {
	Path string `yaml:"path" env:"EDA_CATALOG" env-default:"catalog.yaml"`
}

// Load reads configuration from the YAML file at path with environment
// variable overrides. An empty path reads the environment only.
// The version parameter is injected at build time and set on the returned Config.
func Load(path, version string) (*Config, error) {
	cfg := &Config{
		Version: version,
	}

	if path == "" {
		if err := cleanenv.ReadEnv(cfg); err != nil {
			return nil, fmt.Errorf("failed to read environment: %w", err)
		}
	} else if err := cleanenv.ReadConfig(path, cfg); err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}

	// Local OpenAI-compatible servers are reached through the host gateway
	// when running in a container.
	cfg.LLM.Endpoint = ResolveURLForDocker(cfg.LLM.Endpoint)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// Validate checks bounds that cleanenv cannot express.
func (c *Config) Validate() error {
	switch c.LLM.Provider {
	case llm.ProviderOpenAI, llm.ProviderAnthropic:
	default:
		return fmt.Errorf("llm.provider must be %q or %q, got %q", llm.ProviderOpenAI, llm.ProviderAnthropic, c.LLM.Provider)
	}
	if c.LLM.Model == "" {
		return fmt.Errorf("llm.model is required")
	}
	if c.LLM.MaxRetries < 0 {
		return fmt.Errorf("llm.max_retries must not be negative")
	}
	if c.Resolver.Concurrency <= 0 {
		return fmt.Errorf("resolver.concurrency must be positive")
	}
	if err := c.ResolverConfig().Validate(); err != nil {
		return fmt.Errorf("resolver: %w", err)
	}
	if c.Catalog.Path == "" {
		return fmt.Errorf("catalog.path is required")
	}
	return c.validateTLS()
}

// validateTLS ensures TLS configuration is valid if provided.
// Both cert and key must be provided together, and files must exist.
func (c *Config) validateTLS() error {
	certSet := c.Server.TLSCertPath != ""
	keySet := c.Server.TLSKeyPath != ""

	if certSet != keySet {
		return fmt.Errorf("both tls_cert_path and tls_key_path must be provided together")
	}

	if certSet {
		if _, err := os.Stat(c.Server.TLSCertPath); err != nil {
			return fmt.Errorf("TLS cert file does not exist: %w", err)
		}
		if _, err := os.Stat(c.Server.TLSKeyPath); err != nil {
			return fmt.Errorf("TLS key file does not exist: %w", err)
		}
	}
	return nil
}

// ResolverConfig returns the immutable per-session configuration.
func (c *Config) ResolverConfig() models.ResolverConfig {
	return models.ResolverConfig{
		MaxRefineIterations: c.Resolver.MaxRefineIterations,
		ProviderTimeout:     c.Resolver.ProviderTimeout,
		ExecuteTimeout:      c.Resolver.ExecuteTimeout,
		MaxRows:             c.Resolver.MaxRows,
		Temperature:         c.Resolver.Temperature,
	}
}

// ProviderConfig returns the settings for llm.NewProvider.
func (c *Config) ProviderConfig() *llm.Config {
	return &llm.Config{
		Provider:       c.LLM.Provider,
		Endpoint:       c.LLM.Endpoint,
		Model:          c.LLM.Model,
		APIKey:         c.LLM.APIKey,
		MaxTokens:      c.LLM.MaxTokens,
		RequestTimeout: c.LLM.Timeout,
		MaxRetries:     c.LLM.MaxRetries,
		CircuitBreaker: llm.CircuitBreakerConfig{
			Threshold:  c.LLM.BreakerThreshold,
			ResetAfter: c.LLM.BreakerReset,
		},
	}
}

// Addr is the listen address of the serve command.
func (s ServerConfig) Addr() string {
	return s.BindAddr + ":" + s.Port
}

// TLSEnabled reports whether both TLS files are configured.
func (s ServerConfig) TLSEnabled() bool {
	return s.TLSCertPath != "" && s.TLSKeyPath != ""
}
