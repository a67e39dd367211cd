package config

import (
	"math"
	"os"
	"path/filepath"
	"runtime"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, 20, cfg.Matcher.ShortlistSize)
	assert.Equal(t, runtime.GOMAXPROCS(0), cfg.Matcher.Workers)
	assert.Equal(t, 2.0, cfg.Matcher.ScoreScale)
	assert.Equal(t, 100_000, cfg.Matcher.ProgressEvery)
	assert.False(t, cfg.Redis.Enabled)
	assert.False(t, cfg.Kafka.Enabled)
	assert.False(t, cfg.Metrics.Enabled)
	assert.NoError(t, cfg.Validate())
}

func TestLoad_File(t *testing.T) {
	path := filepath.Join(t.TempDir(), "matcher.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
matcher:
  shortlistSize: 5
  scoreScale: 1.5
redis:
  enabled: true
  addr: cache:6379
  cacheTTL: 2h
kafka:
  enabled: true
  brokers: [k1:9092, k2:9092]
  topic: matches
logging:
  format: json
`), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 5, cfg.Matcher.ShortlistSize)
	assert.Equal(t, 1.5, cfg.Matcher.ScoreScale)
	assert.Equal(t, 100_000, cfg.Matcher.ProgressEvery, "unset keys keep defaults")
	assert.True(t, cfg.Redis.Enabled)
	assert.Equal(t, "cache:6379", cfg.Redis.Addr)
	assert.Equal(t, 2*time.Hour, cfg.Redis.CacheTTL)
	assert.Equal(t, []string{"k1:9092", "k2:9092"}, cfg.Kafka.Brokers)
	assert.Equal(t, "json", cfg.Logging.Format)
	assert.NoError(t, cfg.Validate())
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv("BM_SHORTLIST_SIZE", "9")
	t.Setenv("BM_WORKERS", "3")
	t.Setenv("BM_REDIS_ADDR", "redis:6380")
	t.Setenv("BM_KAFKA_BROKERS", "a:1,b:2")
	t.Setenv("BM_METRICS_PORT", "9200")
	t.Setenv("BM_LOGGING_LEVEL", "debug")

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, 9, cfg.Matcher.ShortlistSize)
	assert.Equal(t, 3, cfg.Matcher.Workers)
	assert.Equal(t, 3, cfg.Matcher.VerifyWorkers)
	assert.True(t, cfg.Redis.Enabled)
	assert.Equal(t, "redis:6380", cfg.Redis.Addr)
	assert.True(t, cfg.Kafka.Enabled)
	assert.Equal(t, []string{"a:1", "b:2"}, cfg.Kafka.Brokers)
	assert.True(t, cfg.Metrics.Enabled)
	assert.Equal(t, 9200, cfg.Metrics.Port)
	assert.Equal(t, "debug", cfg.Logging.Level)
}

func TestLoad_Errors(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)

	path := filepath.Join(t.TempDir(), "bad.yaml")
	require.NoError(t, os.WriteFile(path, []byte("matcher: [oops"), 0o644))
	_, err = Load(path)
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name string
		mod  func(*Config)
	}{
		{"zero shortlist", func(c *Config) { c.Matcher.ShortlistSize = 0 }},
		{"zero workers", func(c *Config) { c.Matcher.Workers = 0 }},
		{"zero verify workers", func(c *Config) { c.Matcher.VerifyWorkers = 0 }},
		{"negative scale", func(c *Config) { c.Matcher.ScoreScale = -1 }},
		{"nan scale", func(c *Config) { c.Matcher.ScoreScale = math.NaN() }},
		{"infinite scale", func(c *Config) { c.Matcher.ScoreScale = math.Inf(1) }},
		{"huge scale", func(c *Config) { c.Matcher.ScoreScale = 1e300 }},
		{"negative progress", func(c *Config) { c.Matcher.ProgressEvery = -1 }},
		{"redis without addr", func(c *Config) { c.Redis.Enabled = true; c.Redis.Addr = "" }},
		{"kafka without brokers", func(c *Config) { c.Kafka.Enabled = true; c.Kafka.Brokers = nil }},
		{"kafka without topic", func(c *Config) { c.Kafka.Enabled = true; c.Kafka.Topic = "" }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := defaultConfig()
			tt.mod(cfg)
			assert.Error(t, cfg.Validate())
		})
	}
}
