package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "8080", cfg.Server.Port)
	assert.Equal(t, BackendMemory, cfg.Store.Backend)
	assert.Equal(t, "0 9 * * 1,3,5", cfg.Pipeline.GenerationSchedule)
	assert.Equal(t, "0 9 * * 2,4", cfg.Pipeline.ReconciliationSchedule)
	assert.Equal(t, "key", cfg.Pipeline.QueueOrder)
	assert.Equal(t, 30*24*time.Hour, cfg.Pipeline.GenerationLogTTL)
	assert.Equal(t, 0.7, cfg.Generator.Temperature)
	assert.Equal(t, 1000, cfg.Generator.MaxTokens)
}

func TestLoad_Environment(t *testing.T) {
	t.Setenv("PORT", "9090")
	t.Setenv("KV_BACKEND", "REDIS")
	t.Setenv("REDIS_URL", "redis://localhost:6379/0")
	t.Setenv("RATE_LIMIT_PER_HOUR", "3")
	t.Setenv("TRIGGER_TIMEOUT", "90s")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "9090", cfg.Server.Port)
	assert.Equal(t, BackendRedis, cfg.Store.Backend)
	assert.Equal(t, 3, cfg.Pipeline.RateLimitPerHour)
	assert.Equal(t, 90*time.Second, cfg.Pipeline.TriggerTimeout)
}

func TestLoad_ConfigFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nuggets.yaml")
	content := "github_repo: acme/blog\nqueue_order: created\nrate_limit_per_hour: 25\n"
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	t.Setenv("CONFIG_FILE", path)

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "acme/blog", cfg.GitHub.Repo)
	assert.Equal(t, "created", cfg.Pipeline.QueueOrder)
	assert.Equal(t, 25, cfg.Pipeline.RateLimitPerHour)
}

func TestValidate(t *testing.T) {
	base := func() *Config {
		v := viper.New()
		SetDefaults(v)
		return FromViper(v)
	}

	tests := []struct {
		name    string
		mutate  func(c *Config)
		wantErr bool
	}{
		{"defaults", func(c *Config) {}, false},
		{"unknown backend", func(c *Config) { c.Store.Backend = "etcd" }, true},
		{"redis without url", func(c *Config) { c.Store.Backend = BackendRedis }, true},
		{"postgres without host", func(c *Config) { c.Store.Backend = BackendPostgres; c.Database.Host = "" }, true},
		{"unknown queue order", func(c *Config) { c.Pipeline.QueueOrder = "random" }, true},
		{"zero rate limit", func(c *Config) { c.Pipeline.RateLimitPerHour = 0 }, true},
		{"zero concurrency", func(c *Config) { c.Pipeline.ReconcileConcurrency = 0 }, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := base()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestValidateServer(t *testing.T) {
	v := viper.New()
	SetDefaults(v)
	cfg := FromViper(v)

	assert.Error(t, cfg.ValidateServer())

	cfg.Auth.Secret = "s3cret"
	cfg.Generator.APIKey = "sk-test"
	cfg.GitHub.Token = "ghp_test"
	assert.Error(t, cfg.ValidateServer(), "repo is still missing")

	cfg.GitHub.Repo = "acme/blog"
	assert.NoError(t, cfg.ValidateServer())
}
