package queue

import (
	"context"
	"time"

	"librarian/internal/fileutil"
	"librarian/internal/report"
)

// Kind names what a job produces.
type Kind string

const (
	KindConvert Kind = "convert"
	KindMerge   Kind = "merge"
)

// State tracks a job through the queue.
type State int

const (
	StateQueued State = iota
	StateRunning
	StateSucceeded
	StateFailed
	StateCanceled
)

func (s State) String() string {
	switch s {
	case StateQueued:
		return "queued"
	case StateRunning:
		return "running"
	case StateSucceeded:
		return "succeeded"
	case StateFailed:
		return "failed"
	case StateCanceled:
		return "canceled"
	default:
		return "unknown"
	}
}

// PostProcessFunc runs after a job's outputs are in place. An error fails
// the run but not the queue.
type PostProcessFunc func(ctx context.Context, job *Job) error

// PrepareFunc runs when a job reaches the head of the queue, before its
// process starts. It may rewrite the job's arguments; an error fails the job.
type PrepareFunc func(ctx context.Context, job *Job) error

// Job wraps one external-tool invocation.
type Job struct {
	ID      string
	Kind    Kind
	Label   string
	OldPath string
	// NewPaths are the files the tool writes. A path ending in the queue's
	// temp suffix is moved over the name without the suffix on success.
	NewPaths  []string
	Command   string
	Args      []string
	Ancillary []string
	// Times is the original's timestamp snapshot; captured at start when zero.
	Times          fileutil.Times
	BackupOriginal bool
	// Title is written as the container title tag when a tagger is set.
	Title       string
	Prepare     PrepareFunc
	PostProcess PostProcessFunc
	Report      *report.Node

	State    State
	Err      error
	Started  time.Time
	Finished time.Time
	// Finals are the output paths after temp renames.
	Finals []string
	// Backup is where the original was preserved, if it was.
	Backup string

	existing map[string]bool
}

// Duration is how long the job's process and cleanup took.
func (j *Job) Duration() time.Duration {
	if j.Started.IsZero() || j.Finished.IsZero() {
		return 0
	}
	return j.Finished.Sub(j.Started)
}
