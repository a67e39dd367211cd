package main

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Adithya-Monish-Kumar-K/bigram-matcher/pkg/config"
	apperrors "github.com/Adithya-Monish-Kumar-K/bigram-matcher/pkg/errors"
)

func TestParsePositional(t *testing.T) {
	p, err := parsePositional([]string{"q.txt", "r.txt", "80", "out.tsv"})
	require.NoError(t, err)
	assert.Equal(t, positional{
		QueryPath:     "q.txt",
		ReferencePath: "r.txt",
		Cutoff:        80,
		OutputPath:    "out.tsv",
		ScoreScale:    2.0,
	}, p)

	p, err = parsePositional([]string{"q.txt", "r.txt", "0", "out.tsv", "1.5"})
	require.NoError(t, err)
	assert.Equal(t, 1.5, p.ScoreScale)
	assert.True(t, p.ScaleGiven)
}

func TestParsePositional_Errors(t *testing.T) {
	tests := []struct {
		name string
		args []string
	}{
		{"too few", []string{"q", "r", "80"}},
		{"too many", []string{"q", "r", "80", "o", "2", "x"}},
		{"cutoff not a number", []string{"q", "r", "high", "o"}},
		{"cutoff above 100", []string{"q", "r", "101", "o"}},
		{"cutoff negative", []string{"q", "r", "-1", "o"}},
		{"scale not a number", []string{"q", "r", "80", "o", "two"}},
		{"scale NaN", []string{"q", "r", "80", "o", "NaN"}},
		{"scale Inf", []string{"q", "r", "80", "o", "Inf"}},
		{"scale too large", []string{"q", "r", "80", "o", "1e300"}},
		{"scale negative", []string{"q", "r", "80", "o", "-1"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := parsePositional(tt.args)
			require.Error(t, err)
			assert.ErrorIs(t, err, apperrors.ErrInvalidArgument)
			assert.Equal(t, apperrors.ExitUsage, apperrors.ExitCode(err))
		})
	}
}

func TestApplyFlags(t *testing.T) {
	cfg, err := config.Load("")
	require.NoError(t, err)

	fs := pflag.NewFlagSet("test", pflag.ContinueOnError)
	fs.Int("workers", 0, "")
	fs.Int("verify-workers", 0, "")
	fs.Int("shortlist-size", 0, "")
	fs.Int("metrics-port", 0, "")
	require.NoError(t, fs.Parse([]string{"--workers=3", "--shortlist-size=7", "--metrics-port=9100"}))

	applyFlags(cfg, fs, positional{ScoreScale: 0.5, ScaleGiven: true}, flagValues{
		workers:       3,
		shortlistSize: 7,
		metricsPort:   9100,
	})
	assert.Equal(t, 3, cfg.Matcher.Workers)
	assert.Equal(t, 3, cfg.Matcher.VerifyWorkers)
	assert.Equal(t, 7, cfg.Matcher.ShortlistSize)
	assert.Equal(t, 0.5, cfg.Matcher.ScoreScale)
	assert.True(t, cfg.Metrics.Enabled)
	assert.Equal(t, 9100, cfg.Metrics.Port)
	assert.Equal(t, "info", cfg.Logging.Level, "unset flags leave config alone")
}

func TestRun_EndToEnd(t *testing.T) {
	dir := t.TempDir()
	queries := filepath.Join(dir, "queries.txt")
	refs := filepath.Join(dir, "refs.txt")
	out := filepath.Join(dir, "out.tsv")
	require.NoError(t, os.WriteFile(queries, []byte("AB\r\nabcx\nz\n"), 0o644))
	require.NoError(t, os.WriteFile(refs, []byte("xaby\nabc\n"), 0o644))

	err := run([]string{"--workers=2", "--log-level=error", queries, refs, "0", out})
	require.NoError(t, err)

	data, err := os.ReadFile(out)
	require.NoError(t, err)
	assert.Equal(t, "query\treference\nab\tabc\nabcx\tabc\nz\t\n", string(data))
}

func TestRun_MissingInput(t *testing.T) {
	dir := t.TempDir()
	out := filepath.Join(dir, "out.tsv")
	err := run([]string{"--log-level=error", filepath.Join(dir, "nope"), filepath.Join(dir, "nope"), "50", out})
	require.Error(t, err)
	assert.Equal(t, apperrors.ExitIO, apperrors.ExitCode(err))

	_, statErr := os.Stat(out)
	assert.True(t, os.IsNotExist(statErr), "no output on failure")
	entries, _ := os.ReadDir(dir)
	assert.Empty(t, entries, "temp file cleaned up")
}

func TestRun_BadArguments(t *testing.T) {
	err := run([]string{"q", "r", "200", "o"})
	assert.Equal(t, apperrors.ExitUsage, apperrors.ExitCode(err))

	err = run([]string{"--no-such-flag", "q", "r", "20", "o"})
	assert.Equal(t, apperrors.ExitUsage, apperrors.ExitCode(err))
}

func TestRun_NonFiniteScaleIsRejected(t *testing.T) {
	dir := t.TempDir()
	queries := filepath.Join(dir, "queries.txt")
	refs := filepath.Join(dir, "refs.txt")
	require.NoError(t, os.WriteFile(queries, []byte("abcdef\n"), 0o644))
	require.NoError(t, os.WriteFile(refs, []byte("abcdef\nabcdefghijklmnop\n"), 0o644))

	for _, scale := range []string{"NaN", "Inf", "1e300"} {
		out := filepath.Join(dir, "out-"+scale+".tsv")
		err := run([]string{"--log-level=error", queries, refs, "0", out, scale})
		assert.Equal(t, apperrors.ExitUsage, apperrors.ExitCode(err), "scale %s", scale)
		_, statErr := os.Stat(out)
		assert.True(t, os.IsNotExist(statErr), "scale %s", scale)
	}
}

func TestRun_OutputIsDirectory(t *testing.T) {
	dir := t.TempDir()
	outDir := filepath.Join(dir, "outdir")
	require.NoError(t, os.Mkdir(outDir, 0o755))

	err := run([]string{"--log-level=error", filepath.Join(dir, "nope"), filepath.Join(dir, "nope"), "0", outDir})
	require.Error(t, err)
	assert.ErrorIs(t, err, apperrors.ErrOutputUnwritable, "rejected before inputs are read")
	assert.Equal(t, apperrors.ExitIO, apperrors.ExitCode(err))
}
