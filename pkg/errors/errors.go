package errors

import (
	"errors"
	"fmt"
)

// Process exit statuses reported by the matcher binary.
const (
	ExitOK       = 0
	ExitFailure  = 1
	ExitUsage    = 2
	ExitIO       = 3
	ExitCanceled = 130
)

var (
	ErrInvalidArgument  = errors.New("invalid argument")
	ErrInvalidConfig    = errors.New("invalid configuration")
	ErrInputUnreadable  = errors.New("input unreadable")
	ErrOutputUnwritable = errors.New("output unwritable")
	ErrDependencyDown   = errors.New("dependency unavailable")
	ErrCanceled         = errors.New("run canceled")
	ErrInternal         = errors.New("internal error")
)

type AppError struct {
	Err      error
	Message  string
	ExitCode int
}

func (e *AppError) Error() string {
	return fmt.Sprintf("%s: %s", e.Err.Error(), e.Message)
}

func (e *AppError) Unwrap() error {
	return e.Err
}

func New(sentinel error, exitCode int, message string) *AppError {
	return &AppError{
		Err:      sentinel,
		Message:  message,
		ExitCode: exitCode,
	}
}

func Newf(sentinel error, exitCode int, format string, args ...any) *AppError {
	return &AppError{
		Err:      sentinel,
		Message:  fmt.Sprintf(format, args...),
		ExitCode: exitCode,
	}
}

// Wrap attaches a sentinel category to an underlying error while keeping it
// reachable through errors.Is and errors.As.
func Wrap(sentinel error, exitCode int, err error, message string) *AppError {
	return &AppError{
		Err:      fmt.Errorf("%w: %w", sentinel, err),
		Message:  message,
		ExitCode: exitCode,
	}
}

func ExitCode(err error) int {
	if err == nil {
		return ExitOK
	}
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.ExitCode
	}

	switch {
	case errors.Is(err, ErrInvalidArgument), errors.Is(err, ErrInvalidConfig):
		return ExitUsage
	case errors.Is(err, ErrInputUnreadable), errors.Is(err, ErrOutputUnwritable):
		return ExitIO
	case errors.Is(err, ErrCanceled):
		return ExitCanceled
	default:
		return ExitFailure
	}
}
