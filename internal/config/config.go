package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds all application configuration
type Config struct {
	// Server configuration
	Server ServerConfig

	// Database configuration (postgres key-value backend)
	Database DatabaseConfig

	// Key-value backend selection
	Store StoreConfig

	// Generation service
	Generator GeneratorConfig

	// Version-control service
	GitHub GitHubConfig

	// Triggers, schedules and queue behaviour
	Pipeline PipelineConfig

	// Bearer credentials for the HTTP surface
	Auth AuthConfig

	// Lifecycle events
	Events EventsConfig

	// Tracing
	Telemetry TelemetryConfig

	// Logging configuration
	Log LogConfig
}

// ServerConfig holds HTTP server settings
type ServerConfig struct {
	Port            string
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	ShutdownTimeout time.Duration
}

// DatabaseConfig holds database connection settings
type DatabaseConfig struct {
	Host           string
	Port           string
	User           string
	Password       string
	Name           string
	SSLMode        string
	MaxOpenConns   int
	MaxIdleConns   int
	MaxLifetime    time.Duration
	MigrationsPath string
}

// Key-value backends
const (
	BackendMemory   = "memory"
	BackendPostgres = "postgres"
	BackendRedis    = "redis"
)

// StoreConfig selects the key-value backend
type StoreConfig struct {
	Backend  string
	RedisURL string
}

// GeneratorConfig holds the chat-completions client settings
type GeneratorConfig struct {
	APIKey      string
	Model       string
	BaseURL     string
	Temperature float64
	MaxTokens   int
}

// GitHubConfig holds the content repository settings
type GitHubConfig struct {
	Token        string
	Repo         string // owner/name
	BaseBranch   string
	BranchPrefix string
	ContentDir   string
	APIURL       string
}

// PipelineConfig holds trigger and queue settings
type PipelineConfig struct {
	GenerationSchedule     string
	ReconciliationSchedule string
	TriggerTimeout         time.Duration
	QueueOrder             string // "key" or "created"
	GenerationLogTTL       time.Duration
	ReconcileConcurrency   int
	RateLimitPerHour       int
}

// AuthConfig holds the shared bearer secret
type AuthConfig struct {
	Secret string
}

// EventsConfig holds the NATS connection settings. Empty URL disables events.
type EventsConfig struct {
	NATSURL       string
	SubjectPrefix string
}

// TelemetryConfig holds the OTLP endpoint. Empty disables tracing.
type TelemetryConfig struct {
	OTLPEndpoint string
}

// LogConfig holds logging settings
type LogConfig struct {
	Level  string
	Format string // "json" or "pretty"
}

// SetDefaults registers default values with v
func SetDefaults(v *viper.Viper) {
	v.SetDefault("PORT", "8080")
	v.SetDefault("SERVER_READ_TIMEOUT", 30*time.Second)
	v.SetDefault("SERVER_WRITE_TIMEOUT", 60*time.Second)
	v.SetDefault("SERVER_SHUTDOWN_TIMEOUT", 30*time.Second)

	v.SetDefault("DB_HOST", "localhost")
	v.SetDefault("DB_PORT", "5432")
	v.SetDefault("DB_USER", "postgres")
	v.SetDefault("DB_PASSWORD", "postgres")
	v.SetDefault("DB_NAME", "nugget_pipeline")
	v.SetDefault("DB_SSLMODE", "disable")
	v.SetDefault("DB_MAX_OPEN_CONNS", 10)
	v.SetDefault("DB_MAX_IDLE_CONNS", 2)
	v.SetDefault("DB_MAX_LIFETIME", 5*time.Minute)
	v.SetDefault("MIGRATIONS_PATH", "./migrations")

	v.SetDefault("KV_BACKEND", BackendMemory)
	v.SetDefault("REDIS_URL", "")

	v.SetDefault("OPENAI_API_KEY", "")
	v.SetDefault("OPENAI_MODEL", "gpt-4o-mini")
	v.SetDefault("OPENAI_BASE_URL", "")
	v.SetDefault("OPENAI_TEMPERATURE", 0.7)
	v.SetDefault("OPENAI_MAX_TOKENS", 1000)

	v.SetDefault("GITHUB_TOKEN", "")
	v.SetDefault("GITHUB_REPO", "")
	v.SetDefault("GITHUB_BASE_BRANCH", "main")
	v.SetDefault("GITHUB_BRANCH_PREFIX", "nugget/")
	v.SetDefault("GITHUB_CONTENT_DIR", "content/nuggets")
	v.SetDefault("GITHUB_API_URL", "https://api.github.com")

	v.SetDefault("GENERATION_SCHEDULE", "0 9 * * 1,3,5")
	v.SetDefault("RECONCILIATION_SCHEDULE", "0 9 * * 2,4")
	v.SetDefault("TRIGGER_TIMEOUT", 5*time.Minute)
	v.SetDefault("QUEUE_ORDER", "key")
	v.SetDefault("GENERATION_LOG_TTL", 30*24*time.Hour)
	v.SetDefault("RECONCILE_CONCURRENCY", 4)
	v.SetDefault("RATE_LIMIT_PER_HOUR", 10)

	v.SetDefault("AUTH_SECRET", "")

	v.SetDefault("NATS_URL", "")
	v.SetDefault("NATS_SUBJECT_PREFIX", "nuggets")

	v.SetDefault("OTEL_ENDPOINT", "")

	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("LOG_FORMAT", "json")
}

// Load reads configuration from the environment, layered over an optional
// YAML file named by CONFIG_FILE. Keys in the file use the environment
// variable names, case-insensitively.
func Load() (*Config, error) {
	v := viper.New()
	SetDefaults(v)
	v.AutomaticEnv()

	if file := v.GetString("CONFIG_FILE"); file != "" {
		v.SetConfigFile(file)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", file, err)
		}
	}

	cfg := FromViper(v)

	// Validate required configuration
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// FromViper builds a Config from an already populated viper instance
func FromViper(v *viper.Viper) *Config {
	return &Config{
		Server: ServerConfig{
			Port:            v.GetString("PORT"),
			ReadTimeout:     v.GetDuration("SERVER_READ_TIMEOUT"),
			WriteTimeout:    v.GetDuration("SERVER_WRITE_TIMEOUT"),
			ShutdownTimeout: v.GetDuration("SERVER_SHUTDOWN_TIMEOUT"),
		},
		Database: DatabaseConfig{
			Host:           v.GetString("DB_HOST"),
			Port:           v.GetString("DB_PORT"),
			User:           v.GetString("DB_USER"),
			Password:       v.GetString("DB_PASSWORD"),
			Name:           v.GetString("DB_NAME"),
			SSLMode:        v.GetString("DB_SSLMODE"),
			MaxOpenConns:   v.GetInt("DB_MAX_OPEN_CONNS"),
			MaxIdleConns:   v.GetInt("DB_MAX_IDLE_CONNS"),
			MaxLifetime:    v.GetDuration("DB_MAX_LIFETIME"),
			MigrationsPath: v.GetString("MIGRATIONS_PATH"),
		},
		Store: StoreConfig{
			Backend:  strings.ToLower(v.GetString("KV_BACKEND")),
			RedisURL: v.GetString("REDIS_URL"),
		},
		Generator: GeneratorConfig{
			APIKey:      v.GetString("OPENAI_API_KEY"),
			Model:       v.GetString("OPENAI_MODEL"),
			BaseURL:     v.GetString("OPENAI_BASE_URL"),
			Temperature: v.GetFloat64("OPENAI_TEMPERATURE"),
			MaxTokens:   v.GetInt("OPENAI_MAX_TOKENS"),
		},
		GitHub: GitHubConfig{
			Token:        v.GetString("GITHUB_TOKEN"),
			Repo:         v.GetString("GITHUB_REPO"),
			BaseBranch:   v.GetString("GITHUB_BASE_BRANCH"),
			BranchPrefix: v.GetString("GITHUB_BRANCH_PREFIX"),
			ContentDir:   v.GetString("GITHUB_CONTENT_DIR"),
			APIURL:       v.GetString("GITHUB_API_URL"),
		},
		Pipeline: PipelineConfig{
			GenerationSchedule:     v.GetString("GENERATION_SCHEDULE"),
			ReconciliationSchedule: v.GetString("RECONCILIATION_SCHEDULE"),
			TriggerTimeout:         v.GetDuration("TRIGGER_TIMEOUT"),
			QueueOrder:             strings.ToLower(v.GetString("QUEUE_ORDER")),
			GenerationLogTTL:       v.GetDuration("GENERATION_LOG_TTL"),
			ReconcileConcurrency:   v.GetInt("RECONCILE_CONCURRENCY"),
			RateLimitPerHour:       v.GetInt("RATE_LIMIT_PER_HOUR"),
		},
		Auth: AuthConfig{
			Secret: v.GetString("AUTH_SECRET"),
		},
		Events: EventsConfig{
			NATSURL:       v.GetString("NATS_URL"),
			SubjectPrefix: v.GetString("NATS_SUBJECT_PREFIX"),
		},
		Telemetry: TelemetryConfig{
			OTLPEndpoint: v.GetString("OTEL_ENDPOINT"),
		},
		Log: LogConfig{
			Level:  v.GetString("LOG_LEVEL"),
			Format: v.GetString("LOG_FORMAT"),
		},
	}
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	if c.Server.Port == "" {
		return fmt.Errorf("PORT is required")
	}

	switch c.Store.Backend {
	case BackendMemory:
	case BackendPostgres:
		if c.Database.Host == "" {
			return fmt.Errorf("DB_HOST is required")
		}
		if c.Database.Name == "" {
			return fmt.Errorf("DB_NAME is required")
		}
	case BackendRedis:
		if c.Store.RedisURL == "" {
			return fmt.Errorf("REDIS_URL is required when KV_BACKEND=redis")
		}
	default:
		return fmt.Errorf("unknown KV_BACKEND %q, must be one of: memory, postgres, redis", c.Store.Backend)
	}

	if c.Pipeline.QueueOrder != "key" && c.Pipeline.QueueOrder != "created" {
		return fmt.Errorf("unknown QUEUE_ORDER %q, must be one of: key, created", c.Pipeline.QueueOrder)
	}
	if c.Pipeline.RateLimitPerHour <= 0 {
		return fmt.Errorf("RATE_LIMIT_PER_HOUR must be positive")
	}
	if c.Pipeline.ReconcileConcurrency <= 0 {
		return fmt.Errorf("RECONCILE_CONCURRENCY must be positive")
	}
	if c.Pipeline.TriggerTimeout <= 0 {
		return fmt.Errorf("TRIGGER_TIMEOUT must be positive")
	}
	if c.Pipeline.GenerationSchedule == "" || c.Pipeline.ReconciliationSchedule == "" {
		return fmt.Errorf("GENERATION_SCHEDULE and RECONCILIATION_SCHEDULE are required")
	}
	return nil
}

// ValidatePipeline checks the settings needed to run the triggers
func (c *Config) ValidatePipeline() error {
	if c.Generator.APIKey == "" {
		return fmt.Errorf("OPENAI_API_KEY is required")
	}
	if c.GitHub.Token == "" {
		return fmt.Errorf("GITHUB_TOKEN is required")
	}
	if strings.Count(c.GitHub.Repo, "/") != 1 {
		return fmt.Errorf("GITHUB_REPO must be in owner/name form, got %q", c.GitHub.Repo)
	}
	return nil
}

// ValidateServer checks the settings needed to serve HTTP
func (c *Config) ValidateServer() error {
	if c.Auth.Secret == "" {
		return fmt.Errorf("AUTH_SECRET is required")
	}
	return c.ValidatePipeline()
}

// GetDSN returns the PostgreSQL connection string
func (c *DatabaseConfig) GetDSN() string {
	return fmt.Sprintf(
		"host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.Name, c.SSLMode,
	)
}
