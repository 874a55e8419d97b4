// Package tagging writes container metadata onto finished files and checks
// tag values against the patterns players expect.
package tagging

import (
	"context"
	"fmt"
	"log/slog"
	"os/exec"
	"path/filepath"
	"regexp"
	"strings"

	"librarian/internal/deps"
	"librarian/internal/logging"
	"librarian/internal/services"
)

// Field names a tag value derived from a file name.
type Field string

const (
	FieldTitle   Field = "title"
	FieldYear    Field = "year"
	FieldSeason  Field = "season"
	FieldEpisode Field = "episode"
)

var patterns = map[Field]*regexp.Regexp{
	FieldYear:    regexp.MustCompile(`^\d{4}$`),
	FieldSeason:  regexp.MustCompile(`^\d{1,3}$`),
	FieldEpisode: regexp.MustCompile(`^\d{1,4}$`),
}

var expectations = map[Field]string{
	FieldYear:    "four digits",
	FieldSeason:  "numeric",
	FieldEpisode: "numeric",
}

// Validate checks value against the pattern for field. Empty optional
// fields are valid; an empty title is not. Failures wrap
// services.ErrValidation.
func Validate(field Field, value string) error {
	value = strings.TrimSpace(value)
	if field == FieldTitle {
		if value == "" {
			return services.Wrap(services.ErrValidation, "tagging", "validate", "title is empty", nil)
		}
		if strings.ContainsFunc(value, func(r rune) bool { return r < 0x20 }) {
			return services.Wrap(services.ErrValidation, "tagging", "validate", "title contains control characters", nil)
		}
		return nil
	}
	if value == "" {
		return nil
	}
	pattern, ok := patterns[field]
	if !ok || pattern.MatchString(value) {
		return nil
	}
	return services.Wrap(services.ErrValidation, "tagging", "validate",
		fmt.Sprintf("%s %q is not %s", field, value, expectations[field]), nil)
}

// Writer sets the title tag of Matroska files with mkvpropedit.
type Writer struct {
	command string
	logger  *slog.Logger
	run     func(ctx context.Context, name string, args ...string) ([]byte, error)
}

// NewWriter returns a Writer invoking command.
func NewWriter(command string, logger *slog.Logger) *Writer {
	return &Writer{
		command: command,
		logger:  logging.NewComponentLogger(logger, "tagging"),
		run: func(ctx context.Context, name string, args ...string) ([]byte, error) {
			return exec.CommandContext(ctx, name, args...).CombinedOutput()
		},
	}
}

// Tag writes title into path. Files that are not Matroska are skipped.
func (w *Writer) Tag(ctx context.Context, path, title string) error {
	if !strings.EqualFold(filepath.Ext(path), ".mkv") {
		return nil
	}
	if err := Validate(FieldTitle, title); err != nil {
		return err
	}
	binary, err := deps.ResolveExecutable(w.command)
	if err != nil {
		return err
	}
	args := []string{path, "--edit", "info", "--set", "title=" + title}
	output, err := w.run(ctx, binary, args...)
	if err != nil {
		return services.Wrap(services.ErrProcessRuntime, "tagging", "mkvpropedit",
			strings.TrimSpace(string(output)), err)
	}
	w.logger.Debug("title tag written", logging.String("path", path), logging.String("title", title))
	return nil
}
