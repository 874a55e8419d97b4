package queue

import (
	"bytes"
	"context"
	"io"
	"log/slog"
	"os/exec"
	"strings"
	"time"

	"librarian/internal/logging"
)

// Runner starts an external process and waits for it. Implementations must
// kill the process when ctx is canceled.
type Runner interface {
	Run(ctx context.Context, command string, args []string, stdout, stderr io.Writer) error
}

// Tagger writes a title tag onto a finished output file.
type Tagger interface {
	Tag(ctx context.Context, path, title string) error
}

// ExecRunner runs commands with os/exec.
type ExecRunner struct{}

// processWaitDelay bounds how long Run waits on output pipes held open by
// grandchildren after the process itself was killed.
const processWaitDelay = 2 * time.Second

// Run implements Runner.
func (ExecRunner) Run(ctx context.Context, command string, args []string, stdout, stderr io.Writer) error {
	cmd := exec.CommandContext(ctx, command, args...)
	cmd.Stdout = stdout
	cmd.Stderr = stderr
	cmd.WaitDelay = processWaitDelay
	return cmd.Run()
}

const tailLines = 5

// lineLogger forwards complete output lines to a logger at DEBUG and keeps
// the last few for error messages.
type lineLogger struct {
	logger  *slog.Logger
	stream  string
	pending bytes.Buffer
	tail    []string
}

func newLineLogger(logger *slog.Logger, stream string) *lineLogger {
	return &lineLogger{logger: logger, stream: stream}
}

func (l *lineLogger) Write(p []byte) (int, error) {
	l.pending.Write(p)
	for {
		line, err := l.pending.ReadString('\n')
		if err != nil {
			// incomplete line; keep it for the next write
			l.pending.Reset()
			l.pending.WriteString(line)
			break
		}
		l.emit(line)
	}
	return len(p), nil
}

// Flush emits any trailing partial line.
func (l *lineLogger) Flush() {
	if l.pending.Len() > 0 {
		l.emit(l.pending.String())
		l.pending.Reset()
	}
}

func (l *lineLogger) emit(line string) {
	line = strings.TrimRight(line, "\r\n")
	if strings.TrimSpace(line) == "" {
		return
	}
	l.logger.Debug("tool output", logging.String("stream", l.stream), logging.String("line", line))
	l.tail = append(l.tail, line)
	if len(l.tail) > tailLines {
		l.tail = l.tail[len(l.tail)-tailLines:]
	}
}

// Tail returns the last lines seen, joined.
func (l *lineLogger) Tail() string {
	return strings.Join(l.tail, "; ")
}
