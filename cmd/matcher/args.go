package main

import (
	"strconv"

	"github.com/Adithya-Monish-Kumar-K/bigram-matcher/internal/verifier"
	apperrors "github.com/Adithya-Monish-Kumar-K/bigram-matcher/pkg/errors"
)

const defaultScoreScale = 2.0

// positional holds the arguments after the flags:
// query-file reference-file cutoff output-file [score-scale]
type positional struct {
	QueryPath     string
	ReferencePath string
	Cutoff        int
	OutputPath    string
	ScoreScale    float64
	ScaleGiven    bool
}

func parsePositional(args []string) (positional, error) {
	if len(args) < 4 || len(args) > 5 {
		return positional{}, apperrors.Newf(apperrors.ErrInvalidArgument, apperrors.ExitUsage,
			"expected 4 or 5 arguments, got %d", len(args))
	}
	p := positional{
		QueryPath:     args[0],
		ReferencePath: args[1],
		OutputPath:    args[3],
		ScoreScale:    defaultScoreScale,
	}
	cutoff, err := strconv.Atoi(args[2])
	if err != nil {
		return positional{}, apperrors.Newf(apperrors.ErrInvalidArgument, apperrors.ExitUsage,
			"cutoff %q is not an integer", args[2])
	}
	if cutoff < 0 || cutoff > 100 {
		return positional{}, apperrors.Newf(apperrors.ErrInvalidArgument, apperrors.ExitUsage,
			"cutoff must be in [0,100], got %d", cutoff)
	}
	p.Cutoff = cutoff
	if len(args) == 5 {
		scale, err := strconv.ParseFloat(args[4], 64)
		if err != nil {
			return positional{}, apperrors.Newf(apperrors.ErrInvalidArgument, apperrors.ExitUsage,
				"score scale %q is not a number", args[4])
		}
		if err := verifier.CheckScoreScale(scale); err != nil {
			return positional{}, apperrors.Wrap(apperrors.ErrInvalidArgument, apperrors.ExitUsage, err,
				"invalid score scale")
		}
		p.ScoreScale = scale
		p.ScaleGiven = true
	}
	return p, nil
}
