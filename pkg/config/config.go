// Package config loads and validates matcher configuration from YAML files
// with environment-variable overrides. It provides typed structs for the
// matching pipeline and its optional collaborators (Redis, Kafka, metrics).
package config

import (
	"fmt"
	"math"
	"os"
	"runtime"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// maxScoreScale keeps ratio × scale well inside int.
const maxScoreScale = 1e6

// Config is the top-level application configuration.
type Config struct {
	Matcher MatcherConfig `yaml:"matcher"`
	Redis   RedisConfig   `yaml:"redis"`
	Kafka   KafkaConfig   `yaml:"kafka"`
	Logging LoggingConfig `yaml:"logging"`
	Tracing TracingConfig `yaml:"tracing"`
	Metrics MetricsConfig `yaml:"metrics"`
}

// MatcherConfig controls shortlist capacity, parallelism, scoring weights and
// progress cadence of the matching pipeline.
type MatcherConfig struct {
	ShortlistSize       int     `yaml:"shortlistSize"`
	Workers             int     `yaml:"workers"`
	VerifyWorkers       int     `yaml:"verifyWorkers"`
	ScoreScale          float64 `yaml:"scoreScale"`
	ProgressEvery       int     `yaml:"progressEvery"`
	VerifyProgressEvery int     `yaml:"verifyProgressEvery"`
}

// RedisConfig holds the optional verification cache connection.
type RedisConfig struct {
	Enabled  bool          `yaml:"enabled"`
	Addr     string        `yaml:"addr"`
	Password string        `yaml:"password"`
	DB       int           `yaml:"db"`
	PoolSize int           `yaml:"poolSize"`
	CacheTTL time.Duration `yaml:"cacheTTL"`
}

// KafkaConfig holds the optional match event sink settings.
type KafkaConfig struct {
	Enabled   bool     `yaml:"enabled"`
	Brokers   []string `yaml:"brokers"`
	Topic     string   `yaml:"topic"`
	BatchSize int      `yaml:"batchSize"`
}

// LoggingConfig controls structured logging level and output format.
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// TracingConfig toggles the per-phase span tree logged at the end of a run.
type TracingConfig struct {
	Enabled bool `yaml:"enabled"`
}

// MetricsConfig controls the Prometheus metrics server that runs alongside a
// batch. Port 0 disables the server; collectors are always registered.
type MetricsConfig struct {
	Enabled bool `yaml:"enabled"`
	Port    int  `yaml:"port"`
}

// Load reads a YAML config file (if provided) and applies environment-variable
// overrides. It returns a Config populated with defaults for any missing
// values.
func Load(path string) (*Config, error) {
	cfg := defaultConfig()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("reading config file %s: %w", path, err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parsing config file %s: %w", path, err)
		}
	}
	applyEnvOverrides(cfg)
	return cfg, nil
}

// Validate rejects values the pipeline cannot run with.
func (c *Config) Validate() error {
	if c.Matcher.ShortlistSize <= 0 {
		return fmt.Errorf("matcher.shortlistSize must be positive, got %d", c.Matcher.ShortlistSize)
	}
	if c.Matcher.Workers <= 0 {
		return fmt.Errorf("matcher.workers must be positive, got %d", c.Matcher.Workers)
	}
	if c.Matcher.VerifyWorkers <= 0 {
		return fmt.Errorf("matcher.verifyWorkers must be positive, got %d", c.Matcher.VerifyWorkers)
	}
	if s := c.Matcher.ScoreScale; math.IsNaN(s) || math.IsInf(s, 0) || s < 0 || s > maxScoreScale {
		return fmt.Errorf("matcher.scoreScale must be a finite number in [0, %g], got %g", float64(maxScoreScale), s)
	}
	if c.Matcher.ProgressEvery < 0 || c.Matcher.VerifyProgressEvery < 0 {
		return fmt.Errorf("progress cadence must not be negative")
	}
	if c.Redis.Enabled && c.Redis.Addr == "" {
		return fmt.Errorf("redis.addr is required when redis is enabled")
	}
	if c.Kafka.Enabled {
		if len(c.Kafka.Brokers) == 0 {
			return fmt.Errorf("kafka.brokers is required when kafka is enabled")
		}
		if c.Kafka.Topic == "" {
			return fmt.Errorf("kafka.topic is required when kafka is enabled")
		}
	}
	return nil
}

// defaultConfig returns a Config with the canonical matcher settings.
func defaultConfig() *Config {
	workers := runtime.GOMAXPROCS(0)
	return &Config{
		Matcher: MatcherConfig{
			ShortlistSize:       20,
			Workers:             workers,
			VerifyWorkers:       workers,
			ScoreScale:          2.0,
			ProgressEvery:       100_000,
			VerifyProgressEvery: 10_000,
		},
		Redis: RedisConfig{
			Addr:     "localhost:6379",
			PoolSize: 10,
			CacheTTL: 24 * time.Hour,
		},
		Kafka: KafkaConfig{
			Brokers:   []string{"localhost:9092"},
			Topic:     "line-matches",
			BatchSize: 500,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "text",
		},
		Metrics: MetricsConfig{
			Enabled: false,
			Port:    9090,
		},
	}
}

// applyEnvOverrides reads BM_* environment variables and overrides the
// corresponding config fields.
func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("BM_SHORTLIST_SIZE"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Matcher.ShortlistSize = n
		}
	}
	if v := os.Getenv("BM_WORKERS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Matcher.Workers = n
			cfg.Matcher.VerifyWorkers = n
		}
	}
	if v := os.Getenv("BM_PROGRESS_EVERY"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Matcher.ProgressEvery = n
		}
	}
	if v := os.Getenv("BM_REDIS_ADDR"); v != "" {
		cfg.Redis.Addr = v
		cfg.Redis.Enabled = true
	}
	if v := os.Getenv("BM_REDIS_PASSWORD"); v != "" {
		cfg.Redis.Password = v
	}
	if v := os.Getenv("BM_KAFKA_BROKERS"); v != "" {
		cfg.Kafka.Brokers = strings.Split(v, ",")
		cfg.Kafka.Enabled = true
	}
	if v := os.Getenv("BM_KAFKA_TOPIC"); v != "" {
		cfg.Kafka.Topic = v
	}
	if v := os.Getenv("BM_LOGGING_LEVEL"); v != "" {
		cfg.Logging.Level = v
	}
	if v := os.Getenv("BM_LOGGING_FORMAT"); v != "" {
		cfg.Logging.Format = v
	}
	if v := os.Getenv("BM_METRICS_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			cfg.Metrics.Port = port
			cfg.Metrics.Enabled = true
		}
	}
}
