// Package config provides configuration loading and validation for the API server.
// It uses koanf to merge environment variables with optional file overrides.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

// Config holds all configuration values for the matchpoint services.
type Config struct {
	// Server settings
	Port int    `koanf:"port"`
	Env  string `koanf:"env"`

	// Database
	DatabaseURL string `koanf:"database_url"`

	// OpenAI embeddings
	OpenAIAPIKey     string `koanf:"openai_api_key"`
	OpenAIEmbedModel string `koanf:"openai_embed_model"`

	// Pinecone vector index
	PineconeAPIKey    string `koanf:"pinecone_api_key"`
	PineconeIndexHost string `koanf:"pinecone_index_host"`

	// Redis (optional shared embedding cache tier)
	RedisURL string `koanf:"redis_url"`

	// Embedding cache
	EmbedCacheCapacity   int `koanf:"embed_cache_capacity"`
	EmbedCacheTTLSeconds int `koanf:"embed_cache_ttl_seconds"`

	// Pipeline tuning
	SearchTopK   int `koanf:"search_top_k"`
	ResultLimit  int `koanf:"result_limit"`
	ScoreWorkers int `koanf:"score_workers"`

	// Tracing
	TracingEnabled    bool    `koanf:"tracing_enabled"`
	TracingExporter   string  `koanf:"tracing_exporter"`
	TracingEndpoint   string  `koanf:"tracing_endpoint"`
	TracingSampleRate float64 `koanf:"tracing_sample_rate"`
	TracingInsecure   bool    `koanf:"tracing_insecure"`
}

// Configuration validation errors.
var (
	ErrMissingDatabaseURL       = errors.New("DATABASE_URL is required")
	ErrMissingOpenAIAPIKey      = errors.New("OPENAI_API_KEY is required")
	ErrMissingPineconeAPIKey    = errors.New("PINECONE_API_KEY is required")
	ErrMissingPineconeIndexHost = errors.New("PINECONE_INDEX_HOST is required")
	ErrInvalidPort              = errors.New("PORT must be a valid integer")
	ErrInvalidSampleRate        = errors.New("TRACING_SAMPLE_RATE must be between 0.0 and 1.0")
)

// Default values for non-secret configuration.
const (
	DefaultPort                 = 8080
	DefaultEnv                  = "development"
	DefaultOpenAIEmbedModel     = "text-embedding-3-small"
	DefaultEmbedCacheCapacity   = 4096
	DefaultEmbedCacheTTLSeconds = 86400
	DefaultSearchTopK           = 50
	DefaultResultLimit          = 20
	DefaultScoreWorkers         = 8
	DefaultTracingExporter      = "otlp-http"
	DefaultTracingSampleRate    = 0.1
)

// Load reads configuration from environment variables and an optional config file.
// Environment variables take precedence over file values.
// Returns the loaded config and a slice of validation errors (empty if valid).
// If a config file path is provided and the file cannot be loaded, an error is returned.
func Load(configFilePath string) (*Config, []error) {
	k := koanf.New(".")
	var loadErrs []error

	// Load from YAML file first if provided (lower precedence)
	if configFilePath != "" {
		if err := k.Load(file.Provider(configFilePath), yaml.Parser()); err != nil {
			return nil, []error{fmt.Errorf("failed to load config file %s: %w", configFilePath, err)}
		}
	}

	port, portErr := getEnvIntOrDefault("PORT", k.Int("port"), DefaultPort)
	if portErr != nil {
		loadErrs = append(loadErrs, portErr)
	}

	intOrDefault := func(envKey, koanfKey string, defaultVal int) int {
		v, err := getEnvIntOrDefault(envKey, k.Int(koanfKey), defaultVal)
		if err != nil {
			loadErrs = append(loadErrs, err)
			return defaultVal
		}
		return v
	}

	sampleRate, rateErr := getEnvFloatOrDefault("TRACING_SAMPLE_RATE", k.Float64("tracing_sample_rate"), DefaultTracingSampleRate)
	if rateErr != nil {
		loadErrs = append(loadErrs, rateErr)
	}

	cfg := &Config{
		Port:                 port,
		Env:                  getEnvOrDefault("ENV", k.String("env"), DefaultEnv),
		DatabaseURL:          getEnvOrKoanf("DATABASE_URL", k, "database_url"),
		OpenAIAPIKey:         getEnvOrKoanf("OPENAI_API_KEY", k, "openai_api_key"),
		OpenAIEmbedModel:     getEnvOrDefault("OPENAI_EMBED_MODEL", k.String("openai_embed_model"), DefaultOpenAIEmbedModel),
		PineconeAPIKey:       getEnvOrKoanf("PINECONE_API_KEY", k, "pinecone_api_key"),
		PineconeIndexHost:    getEnvOrKoanf("PINECONE_INDEX_HOST", k, "pinecone_index_host"),
		RedisURL:             getEnvOrKoanf("REDIS_URL", k, "redis_url"),
		EmbedCacheCapacity:   intOrDefault("EMBED_CACHE_CAPACITY", "embed_cache_capacity", DefaultEmbedCacheCapacity),
		EmbedCacheTTLSeconds: intOrDefault("EMBED_CACHE_TTL_SECONDS", "embed_cache_ttl_seconds", DefaultEmbedCacheTTLSeconds),
		SearchTopK:           intOrDefault("SEARCH_TOP_K", "search_top_k", DefaultSearchTopK),
		ResultLimit:          intOrDefault("RESULT_LIMIT", "result_limit", DefaultResultLimit),
		ScoreWorkers:         intOrDefault("SCORE_WORKERS", "score_workers", DefaultScoreWorkers),
		TracingEnabled:       getEnvBool("TRACING_ENABLED", k.Bool("tracing_enabled")),
		TracingExporter:      getEnvOrDefault("TRACING_EXPORTER", k.String("tracing_exporter"), DefaultTracingExporter),
		TracingEndpoint:      getEnvOrKoanf("TRACING_ENDPOINT", k, "tracing_endpoint"),
		TracingSampleRate:    sampleRate,
		TracingInsecure:      getEnvBool("TRACING_INSECURE", k.Bool("tracing_insecure")),
	}

	errs := cfg.Validate()
	errs = append(loadErrs, errs...)

	return cfg, errs
}

// getEnvOrKoanf returns the environment variable value if set, otherwise the koanf value.
func getEnvOrKoanf(envKey string, k *koanf.Koanf, koanfKey string) string {
	if val := os.Getenv(envKey); val != "" {
		return val
	}
	return k.String(koanfKey)
}

// getEnvOrDefault returns the environment variable value if set, otherwise the koanf value, or default.
func getEnvOrDefault(envKey string, koanfVal string, defaultVal string) string {
	if val := os.Getenv(envKey); val != "" {
		return val
	}
	if koanfVal != "" {
		return koanfVal
	}
	return defaultVal
}

// getEnvBool returns the environment variable as bool if set, otherwise the koanf value.
func getEnvBool(envKey string, koanfVal bool) bool {
	if val := os.Getenv(envKey); val != "" {
		switch strings.ToLower(val) {
		case "true", "1", "yes", "on":
			return true
		case "false", "0", "no", "off":
			return false
		}
	}
	return koanfVal
}

// getEnvIntOrDefault returns the environment variable as int if set, otherwise the koanf value, or default.
// Returns an error if the environment variable is set but cannot be parsed as an integer.
func getEnvIntOrDefault(envKey string, koanfVal int, defaultVal int) (int, error) {
	if val := os.Getenv(envKey); val != "" {
		i, err := strconv.Atoi(val)
		if err != nil {
			return 0, fmt.Errorf("%s must be a valid integer: %w", envKey, ErrInvalidPort)
		}
		return i, nil
	}
	if koanfVal != 0 {
		return koanfVal, nil
	}
	return defaultVal, nil
}

// getEnvFloatOrDefault returns the environment variable as float64 if set, otherwise the koanf value, or default.
// Returns an error if the environment variable is set but cannot be parsed as a float.
func getEnvFloatOrDefault(envKey string, koanfVal float64, defaultVal float64) (float64, error) {
	if val := os.Getenv(envKey); val != "" {
		f, err := strconv.ParseFloat(val, 64)
		if err != nil {
			return 0, fmt.Errorf("%s must be a valid float: %w", envKey, err)
		}
		return f, nil
	}
	if koanfVal != 0 {
		return koanfVal, nil
	}
	return defaultVal, nil
}

// Validate checks that all required configuration values are present.
// Returns a slice of validation errors (empty if valid).
func (c *Config) Validate() []error {
	var errs []error

	if c.DatabaseURL == "" {
		errs = append(errs, ErrMissingDatabaseURL)
	}
	if c.OpenAIAPIKey == "" {
		errs = append(errs, ErrMissingOpenAIAPIKey)
	}
	if c.PineconeAPIKey == "" {
		errs = append(errs, ErrMissingPineconeAPIKey)
	}
	if c.PineconeIndexHost == "" {
		errs = append(errs, ErrMissingPineconeIndexHost)
	}
	if c.TracingSampleRate < 0 || c.TracingSampleRate > 1 {
		errs = append(errs, ErrInvalidSampleRate)
	}

	return errs
}

// LogSummary returns a summary of the configuration suitable for logging.
// All secrets are masked to prevent accidental exposure.
func (c *Config) LogSummary() map[string]string {
	return map[string]string{
		"port":                    fmt.Sprintf("%d", c.Port),
		"env":                     c.Env,
		"database_url":            maskDatabaseURL(c.DatabaseURL),
		"openai_api_key":          maskSecret(c.OpenAIAPIKey),
		"openai_embed_model":      c.OpenAIEmbedModel,
		"pinecone_api_key":        maskSecret(c.PineconeAPIKey),
		"pinecone_index_host":     c.PineconeIndexHost,
		"redis_url":               maskDatabaseURL(c.RedisURL),
		"embed_cache_capacity":    fmt.Sprintf("%d", c.EmbedCacheCapacity),
		"embed_cache_ttl_seconds": fmt.Sprintf("%d", c.EmbedCacheTTLSeconds),
		"search_top_k":            fmt.Sprintf("%d", c.SearchTopK),
		"result_limit":            fmt.Sprintf("%d", c.ResultLimit),
		"score_workers":           fmt.Sprintf("%d", c.ScoreWorkers),
		"tracing_enabled":         fmt.Sprintf("%t", c.TracingEnabled),
		"tracing_exporter":        c.TracingExporter,
		"tracing_endpoint":        c.TracingEndpoint,
	}
}

// maskSecret masks a secret value, showing only the first 4 characters followed by ****
// If the secret is shorter than 8 characters, it's fully masked.
func maskSecret(s string) string {
	if s == "" {
		return "<not set>"
	}
	if len(s) < 8 {
		return "****"
	}
	return s[:4] + "****"
}

// maskDatabaseURL masks the password in a connection URL.
func maskDatabaseURL(s string) string {
	if s == "" {
		return "<not set>"
	}

	schemeEnd := strings.Index(s, "://")
	if schemeEnd == -1 {
		return maskSecret(s)
	}

	rest := s[schemeEnd+3:]
	atIndex := strings.Index(rest, "@")
	if atIndex == -1 {
		return s // No credentials in URL
	}

	colonIndex := strings.Index(rest[:atIndex], ":")
	if colonIndex == -1 {
		return s // No password (only username)
	}

	scheme := s[:schemeEnd+3]
	user := rest[:colonIndex]
	hostAndPath := rest[atIndex:]

	return scheme + user + ":****" + hostAndPath
}
