// matcher resolves every line of a query corpus to its closest line in a
// reference corpus. References are shortlisted per query by bigram overlap
// and the shortlist is verified with a partial fuzzy ratio.
//
// Usage:
//
//	matcher [flags] query-file reference-file cutoff output-file [score-scale]
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/pflag"

	"github.com/Adithya-Monish-Kumar-K/bigram-matcher/internal/cache"
	"github.com/Adithya-Monish-Kumar-K/bigram-matcher/internal/corpus"
	"github.com/Adithya-Monish-Kumar-K/bigram-matcher/internal/output"
	"github.com/Adithya-Monish-Kumar-K/bigram-matcher/internal/pipeline"
	"github.com/Adithya-Monish-Kumar-K/bigram-matcher/pkg/config"
	apperrors "github.com/Adithya-Monish-Kumar-K/bigram-matcher/pkg/errors"
	"github.com/Adithya-Monish-Kumar-K/bigram-matcher/pkg/logger"
	"github.com/Adithya-Monish-Kumar-K/bigram-matcher/pkg/metrics"
	"github.com/Adithya-Monish-Kumar-K/bigram-matcher/pkg/tracing"
)

func main() {
	if err := run(os.Args[1:]); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			os.Exit(apperrors.ExitOK)
		}
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(apperrors.ExitCode(err))
	}
}

func run(argv []string) error {
	var (
		configPath    string
		workers       int
		verifyWorkers int
		shortlistSize int
		progressEvery int
		logLevel      string
		logFormat     string
		metricsPort   int
		trace         bool
		flushCache    bool
	)
	flagSet := pflag.NewFlagSet("matcher", pflag.ContinueOnError)
	flagSet.StringVar(&configPath, "config", "", "path to YAML config file")
	flagSet.IntVar(&workers, "workers", 0, "reference partitions scored in parallel (default: GOMAXPROCS)")
	flagSet.IntVar(&verifyWorkers, "verify-workers", 0, "queries verified in parallel (default: GOMAXPROCS)")
	flagSet.IntVarP(&shortlistSize, "shortlist-size", "k", 0, "candidates kept per query (default 20)")
	flagSet.IntVar(&progressEvery, "progress-every", 0, "log scoring progress every N references (default 100000)")
	flagSet.StringVar(&logLevel, "log-level", "", "debug, info, warn or error")
	flagSet.StringVar(&logFormat, "log-format", "", "text or json")
	flagSet.IntVar(&metricsPort, "metrics-port", 0, "serve Prometheus metrics on this port while running")
	flagSet.BoolVar(&trace, "trace", false, "log per-phase timing spans at the end of the run")
	flagSet.BoolVar(&flushCache, "flush-cache", false, "drop all cached matches before running (needs redis)")
	flagSet.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: matcher [flags] query-file reference-file cutoff output-file [score-scale]\n\nFlags:\n")
		flagSet.PrintDefaults()
	}
	if err := flagSet.Parse(argv); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return err
		}
		return apperrors.Wrap(apperrors.ErrInvalidArgument, apperrors.ExitUsage, err, "parsing flags")
	}

	args, err := parsePositional(flagSet.Args())
	if err != nil {
		flagSet.Usage()
		return err
	}

	cfg, err := config.Load(configPath)
	if err != nil {
		return apperrors.Wrap(apperrors.ErrInvalidConfig, apperrors.ExitUsage, err, "loading config")
	}
	applyFlags(cfg, flagSet, args, flagValues{
		workers:       workers,
		verifyWorkers: verifyWorkers,
		shortlistSize: shortlistSize,
		progressEvery: progressEvery,
		logLevel:      logLevel,
		logFormat:     logFormat,
		metricsPort:   metricsPort,
		trace:         trace,
	})
	if err := cfg.Validate(); err != nil {
		return apperrors.Wrap(apperrors.ErrInvalidConfig, apperrors.ExitUsage, err, "validating config")
	}
	logger.Setup(cfg.Logging.Level, cfg.Logging.Format)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	runID := fmt.Sprintf("%x", time.Now().UnixNano())
	ctx = logger.WithRunID(ctx, runID)
	log := logger.FromContext(ctx)
	ctx, root := tracing.StartSpan(ctx, "run", runID)

	out, err := output.Create(args.OutputPath)
	if err != nil {
		return apperrors.Wrap(apperrors.ErrOutputUnwritable, apperrors.ExitIO, err, args.OutputPath)
	}
	defer out.Abort()

	registry := prometheus.NewRegistry()
	m := metrics.New(registry)
	if cfg.Metrics.Enabled && cfg.Metrics.Port > 0 {
		shutdown := metrics.StartServer(cfg.Metrics.Port, registry)
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			shutdown(shutdownCtx)
		}()
	}

	collab, err := connectCollaborators(ctx, cfg, flushCache)
	if err != nil {
		return err
	}
	defer collab.close()

	log.Info("loading corpora",
		"queries", args.QueryPath,
		"references", args.ReferencePath,
	)
	_, loadSpan := tracing.StartChildSpan(ctx, "load")
	queries, err := corpus.LoadQueries(args.QueryPath)
	if err != nil {
		return apperrors.Wrap(apperrors.ErrInputUnreadable, apperrors.ExitIO, err, "query corpus")
	}
	refs, err := corpus.Load(args.ReferencePath)
	if err != nil {
		return apperrors.Wrap(apperrors.ErrInputUnreadable, apperrors.ExitIO, err, "reference corpus")
	}
	m.ObservePhase("load", loadSpan.End())
	m.QueriesLoaded.Add(float64(len(queries)))
	m.ReferencesLoaded.Add(float64(len(refs)))

	p := pipeline.New(pipeline.Options{
		Cutoff:              args.Cutoff,
		ScoreScale:          cfg.Matcher.ScoreScale,
		ShortlistSize:       cfg.Matcher.ShortlistSize,
		Workers:             cfg.Matcher.Workers,
		VerifyWorkers:       cfg.Matcher.VerifyWorkers,
		ProgressEvery:       cfg.Matcher.ProgressEvery,
		VerifyProgressEvery: cfg.Matcher.VerifyProgressEvery,
	}, m)
	if collab.cache != nil {
		p.WithCache(collab.cache, cache.BuildKey)
	}
	res, err := p.Run(ctx, queries, refs)
	if err != nil {
		if ctx.Err() != nil {
			return apperrors.Wrap(apperrors.ErrCanceled, apperrors.ExitCanceled, err, "interrupted")
		}
		return err
	}

	_, writeSpan := tracing.StartChildSpan(ctx, "write")
	if err := out.WriteAll(queries, res.References()); err != nil {
		return apperrors.Wrap(apperrors.ErrOutputUnwritable, apperrors.ExitIO, err, args.OutputPath)
	}
	if err := out.Commit(); err != nil {
		return apperrors.Wrap(apperrors.ErrOutputUnwritable, apperrors.ExitIO, err, args.OutputPath)
	}
	m.ObservePhase("write", writeSpan.End())

	if collab.sink != nil {
		collab.sink.PublishAll(ctx, queries, res.Matches)
		published, dropped := collab.sink.Stats()
		m.EventsPublished.WithLabelValues("ok").Add(float64(published))
		m.EventsPublished.WithLabelValues("dropped").Add(float64(dropped))
	}

	root.End()
	if cfg.Tracing.Enabled {
		root.Log(log)
	}
	s := res.Summary
	log.Info("run complete",
		"output", args.OutputPath,
		"queries", humanize.Comma(int64(s.Queries)),
		"references", humanize.Comma(int64(s.References)),
		"discarded_references", s.Discarded,
		"sanitized_candidates", s.Sanitized,
		"unmapped", humanize.Comma(int64(s.Unmapped)),
		"duration", root.Duration.Round(time.Millisecond),
	)
	return nil
}

type flagValues struct {
	workers       int
	verifyWorkers int
	shortlistSize int
	progressEvery int
	logLevel      string
	logFormat     string
	metricsPort   int
	trace         bool
}

// applyFlags layers explicitly set flags and the positional score scale over
// the loaded config.
func applyFlags(cfg *config.Config, fs *pflag.FlagSet, args positional, v flagValues) {
	if fs.Changed("workers") {
		cfg.Matcher.Workers = v.workers
		if !fs.Changed("verify-workers") {
			cfg.Matcher.VerifyWorkers = v.workers
		}
	}
	if fs.Changed("verify-workers") {
		cfg.Matcher.VerifyWorkers = v.verifyWorkers
	}
	if fs.Changed("shortlist-size") {
		cfg.Matcher.ShortlistSize = v.shortlistSize
	}
	if fs.Changed("progress-every") {
		cfg.Matcher.ProgressEvery = v.progressEvery
	}
	if fs.Changed("log-level") {
		cfg.Logging.Level = v.logLevel
	}
	if fs.Changed("log-format") {
		cfg.Logging.Format = v.logFormat
	}
	if fs.Changed("metrics-port") {
		cfg.Metrics.Enabled = true
		cfg.Metrics.Port = v.metricsPort
	}
	if fs.Changed("trace") {
		cfg.Tracing.Enabled = v.trace
	}
	if args.ScaleGiven {
		cfg.Matcher.ScoreScale = args.ScoreScale
	}
}
