package main

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/Adithya-Monish-Kumar-K/bigram-matcher/internal/cache"
	"github.com/Adithya-Monish-Kumar-K/bigram-matcher/internal/sink"
	"github.com/Adithya-Monish-Kumar-K/bigram-matcher/pkg/config"
	apperrors "github.com/Adithya-Monish-Kumar-K/bigram-matcher/pkg/errors"
	"github.com/Adithya-Monish-Kumar-K/bigram-matcher/pkg/health"
	"github.com/Adithya-Monish-Kumar-K/bigram-matcher/pkg/kafka"
	pkgredis "github.com/Adithya-Monish-Kumar-K/bigram-matcher/pkg/redis"
	"github.com/Adithya-Monish-Kumar-K/bigram-matcher/pkg/resilience"
)

// collaborators are the optional services a run talks to.
type collaborators struct {
	redis    *pkgredis.Client
	cache    *cache.MatchCache
	producer *kafka.Producer
	sink     *sink.BatchSink
}

func connectCollaborators(ctx context.Context, cfg *config.Config, flushCache bool) (*collaborators, error) {
	c := &collaborators{}
	checker := health.NewChecker()
	if cfg.Redis.Enabled {
		client, err := pkgredis.NewClient(ctx, cfg.Redis)
		if err != nil {
			return nil, apperrors.Wrap(apperrors.ErrDependencyDown, apperrors.ExitFailure, err, "connecting to redis")
		}
		c.redis = client
		c.cache = cache.New(client, pkgredis.IsNilError, cfg.Redis.CacheTTL)
		checker.Register("redis", health.PingCheck(client.Ping))
	}
	if cfg.Kafka.Enabled {
		c.producer = kafka.NewProducer(cfg.Kafka)
		c.sink = sink.NewBatchSink(c.producer, cfg.Kafka.BatchSize, resilience.RetryConfig{MaxAttempts: 3})
		checker.Register("kafka", health.PingCheck(c.producer.Ping))
	}

	checkCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	report := checker.Run(checkCtx)
	if report.Status == health.StatusDown {
		c.close()
		return nil, apperrors.Newf(apperrors.ErrDependencyDown, apperrors.ExitFailure,
			"preflight failed for %s", strings.Join(report.Down(), ", "))
	}

	if flushCache {
		if c.cache == nil {
			c.close()
			return nil, apperrors.New(apperrors.ErrInvalidArgument, apperrors.ExitUsage,
				"--flush-cache needs redis to be enabled")
		}
		if err := c.cache.Invalidate(ctx); err != nil {
			c.close()
			return nil, fmt.Errorf("flushing match cache: %w", err)
		}
	}
	return c, nil
}

func (c *collaborators) close() {
	if c.producer != nil {
		if err := c.producer.Close(); err != nil {
			slog.Error("closing kafka producer", "error", err)
		}
	}
	if c.redis != nil {
		if err := c.redis.Close(); err != nil {
			slog.Error("closing redis client", "error", err)
		}
	}
}
