package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrConfiguration marks an external tool path that is empty or not executable.
	ErrConfiguration = errors.New("configuration error")
	// ErrMissingSource marks an input that vanished between scan and run.
	ErrMissingSource = errors.New("missing source")
	// ErrProcessRuntime marks a non-zero exit, crash, or failed start.
	ErrProcessRuntime = errors.New("process error")
	// ErrToolIO marks a failed backup, rename, delete, or timestamp step.
	ErrToolIO = errors.New("file operation error")
	// ErrValidation marks a value that fails an expected pattern.
	ErrValidation = errors.New("validation warning")
)

// Wrap builds an error message that includes phase context while tagging it with
// the provided marker for later classification. The marker should be one
// of the exported sentinel errors above.
func Wrap(marker error, phase, operation, message string, err error) error {
	detail := buildDetail(phase, operation, message)
	if marker == nil {
		marker = ErrToolIO
	}
	if err != nil {
		return fmt.Errorf("%w: %s: %w", marker, detail, err)
	}
	return fmt.Errorf("%w: %s", marker, detail)
}

// Kind returns a short classification label for display and history rows.
func Kind(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, context.Canceled):
		return "canceled"
	case errors.Is(err, ErrConfiguration):
		return "configuration"
	case errors.Is(err, ErrMissingSource):
		return "missing_source"
	case errors.Is(err, ErrProcessRuntime):
		return "process"
	case errors.Is(err, ErrValidation):
		return "validation"
	case errors.Is(err, ErrToolIO):
		return "file_io"
	default:
		return "unknown"
	}
}

// IsFatal reports whether err should flip the overall run result to failed.
// Validation warnings and cancellation are not failures.
func IsFatal(err error) bool {
	if err == nil {
		return false
	}
	return !errors.Is(err, ErrValidation) && !errors.Is(err, context.Canceled)
}

func buildDetail(phase, operation, message string) string {
	parts := make([]string, 0, 3)
	if phase = strings.TrimSpace(phase); phase != "" {
		parts = append(parts, phase)
	}
	if operation = strings.TrimSpace(operation); operation != "" {
		parts = append(parts, operation)
	}
	if message = strings.TrimSpace(message); message != "" {
		parts = append(parts, message)
	}
	if len(parts) == 0 {
		return "operation failed"
	}
	return strings.Join(parts, ": ")
}
