package config

import (
	"errors"
	"fmt"
	"io/fs"
	"net"
	"os"
	"strconv"
	"strings"
	"time"

	apperrors "go-attack-planner/internal/errors"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

// DotEnvFiles are read, in order, before the environment is processed.
// Variables already present in the environment are never overridden.
var DotEnvFiles = []string{".env.local", ".env"}

type Config struct {
	Host           string        `envconfig:"HOST" default:"0.0.0.0"`
	Port           string        `envconfig:"PORT" default:"8080"`
	RequestTimeout time.Duration `envconfig:"REQUEST_TIMEOUT" default:"120s"`

	// Generation
	GeminiAPIKey             string        `envconfig:"GEMINI_API_KEY"`
	GeminiModel              string        `envconfig:"GEMINI_MODEL" default:"gemini-3-pro-preview"`
	GenerationTimeout        time.Duration `envconfig:"GENERATION_TIMEOUT" default:"90s"`
	StageDelay               time.Duration `envconfig:"STAGE_DELAY" default:"500ms"`
	MaxConcurrentGenerations int64         `envconfig:"MAX_CONCURRENT_GENERATIONS" default:"4"`
	Workers                  int           `envconfig:"WORKERS" default:"0"`

	// Inputs
	MaxImageBytes      int64         `envconfig:"MAX_IMAGE_BYTES" default:"10485760"`
	MaxRequestBodySize int64         `envconfig:"MAX_REQUEST_BODY_SIZE" default:"25165824"`
	ImageFetchTimeout  time.Duration `envconfig:"IMAGE_FETCH_TIMEOUT" default:"15s"`

	// Sessions
	SessionTTL time.Duration `envconfig:"SESSION_TTL" default:"30m"`

	// HTTP surface
	CORSAllowedOrigins string `envconfig:"CORS_ALLOWED_ORIGINS" default:""`
	MetricsEnabled     bool   `envconfig:"METRICS_ENABLED" default:"true"`
	LogLevel           string `envconfig:"LOG_LEVEL" default:"info"`

	// Optional Azure Blob source for image references
	AzureStorageAccount string `envconfig:"AZURE_STORAGE_ACCOUNT"`
	AzureStorageKey     string `envconfig:"AZURE_STORAGE_KEY"`
}

func (c *Config) ServerAddress() string {
	// Trim any whitespace from host and port
	host := strings.TrimSpace(c.Host)
	port := strings.TrimSpace(c.Port)
	return net.JoinHostPort(host, port)
}

// AllowedOrigins splits CORS_ALLOWED_ORIGINS on commas.
func (c *Config) AllowedOrigins() []string {
	var origins []string
	for _, o := range strings.Split(c.CORSAllowedOrigins, ",") {
		if o = strings.TrimSpace(o); o != "" {
			origins = append(origins, o)
		}
	}
	return origins
}

// AzureEnabled reports whether azblob:// image references can be resolved.
func (c *Config) AzureEnabled() bool {
	return c.AzureStorageAccount != "" && c.AzureStorageKey != ""
}

// LoadFromEnv reads .env files and the environment. A missing credential is a
// configuration error: the application must not start without it.
func LoadFromEnv() (*Config, error) {
	if err := loadDotEnv(DotEnvFiles...); err != nil {
		return nil, apperrors.NewConfigurationError("failed to read env file", err)
	}

	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, apperrors.NewConfigurationError("failed to load config", err)
	}

	if strings.TrimSpace(cfg.GeminiAPIKey) == "" {
		cfg.GeminiAPIKey = os.Getenv("API_KEY")
	}
	cfg.GeminiAPIKey = strings.TrimSpace(cfg.GeminiAPIKey)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks the loaded values.
func (c *Config) Validate() error {
	if c.GeminiAPIKey == "" {
		return apperrors.NewConfigurationError("Missing GEMINI_API_KEY (set it in .env.local).", nil)
	}

	// Validate port is numeric and in range
	p, err := strconv.Atoi(strings.TrimSpace(c.Port))
	if err != nil || p < 1 || p > 65535 {
		return apperrors.NewConfigurationError(fmt.Sprintf("invalid PORT: %q", c.Port), err)
	}
	if c.MaxRequestBodySize <= 0 || c.MaxImageBytes <= 0 {
		return apperrors.NewConfigurationError(fmt.Sprintf(
			"size limits must be > 0 (got body=%d, image=%d)", c.MaxRequestBodySize, c.MaxImageBytes), nil)
	}
	if c.RequestTimeout <= 0 || c.GenerationTimeout <= 0 || c.ImageFetchTimeout <= 0 {
		return apperrors.NewConfigurationError(fmt.Sprintf(
			"timeouts must be > 0 (got request=%s, generation=%s, fetch=%s)",
			c.RequestTimeout, c.GenerationTimeout, c.ImageFetchTimeout), nil)
	}
	if c.StageDelay < 0 {
		return apperrors.NewConfigurationError(fmt.Sprintf("STAGE_DELAY must be >= 0 (got %s)", c.StageDelay), nil)
	}
	if c.MaxConcurrentGenerations <= 0 {
		return apperrors.NewConfigurationError(fmt.Sprintf(
			"MAX_CONCURRENT_GENERATIONS must be > 0 (got %d)", c.MaxConcurrentGenerations), nil)
	}
	if c.SessionTTL <= 0 {
		return apperrors.NewConfigurationError(fmt.Sprintf("SESSION_TTL must be > 0 (got %s)", c.SessionTTL), nil)
	}
	return nil
}

func loadDotEnv(files ...string) error {
	for _, f := range files {
		if err := godotenv.Load(f); err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				continue
			}
			return fmt.Errorf("%s: %w", f, err)
		}
	}
	return nil
}
