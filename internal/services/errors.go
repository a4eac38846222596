package services

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"
)

var (
	ErrValidation    = errors.New("validation error")
	ErrConfiguration = errors.New("configuration error")
	ErrNotFound      = errors.New("not found")
	ErrLocked        = errors.New("rig file locked")
	ErrCapacity      = errors.New("insufficient capacity")
	ErrTransient     = errors.New("transient failure")
)

// Wrap builds an error message that includes component context while tagging
// it with the provided marker for later classification. The marker should be
// one of the exported sentinel errors above.
func Wrap(marker error, component, operation, message string, err error) error {
	detail := buildDetail(component, operation, message)
	if marker == nil {
		marker = ErrTransient
	}
	if err != nil {
		return fmt.Errorf("%w: %s: %w", marker, detail, err)
	}
	return fmt.Errorf("%w: %s", marker, detail)
}

// ExitCode maps a pipeline error to the process exit code the CLI should
// report. Distinct codes let scripted callers tell bad input (validation)
// apart from environment problems.
func ExitCode(err error) int {
	switch {
	case err == nil:
		return 0
	case errors.Is(err, ErrValidation):
		return 2
	case errors.Is(err, ErrConfiguration):
		return 3
	case errors.Is(err, ErrNotFound):
		return 4
	case errors.Is(err, ErrLocked):
		return 5
	case errors.Is(err, ErrCapacity):
		return 6
	default:
		return 1
	}
}

// LogLevel maps a pipeline error to the slog level it should be reported at.
// Lock contention is expected under concurrent edits and logs as a warning.
func LogLevel(err error) slog.Level {
	switch {
	case err == nil:
		return slog.LevelInfo
	case errors.Is(err, ErrLocked):
		return slog.LevelWarn
	default:
		return slog.LevelError
	}
}

func buildDetail(component, operation, message string) string {
	parts := make([]string, 0, 3)
	if component = strings.TrimSpace(component); component != "" {
		parts = append(parts, component)
	}
	if operation = strings.TrimSpace(operation); operation != "" {
		parts = append(parts, operation)
	}
	if message = strings.TrimSpace(message); message != "" {
		parts = append(parts, message)
	}
	if len(parts) == 0 {
		return "service failure"
	}
	return strings.Join(parts, ": ")
}
