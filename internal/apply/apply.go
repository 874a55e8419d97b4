// Package apply executes a plan: renames top-down, then deletes, then the
// process queue, recording every outcome into a report tree and the run
// history.
package apply

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/gofrs/flock"
	"github.com/google/uuid"

	"librarian/internal/config"
	"librarian/internal/fileutil"
	"librarian/internal/history"
	"librarian/internal/logging"
	"librarian/internal/plan"
	"librarian/internal/queue"
	"librarian/internal/report"
	"librarian/internal/services"
	"librarian/internal/tagging"
	"librarian/internal/tree"
)

// ErrLocked reports that another apply holds the lock.
var ErrLocked = errors.New("another apply is already running")

// Options configures Run.
type Options struct {
	DryRun bool
	Roots  []string
	// Store is kept in step with the disk: renamed nodes are rehomed and
	// deleted ones removed. Optional.
	Store *tree.Store
	// History records the run when set.
	History *history.Store
	Runner  queue.Runner
	// Tagger overrides the mkvpropedit writer used when tags are enabled.
	Tagger   queue.Tagger
	Progress func(completed, total int)
	Logger   *slog.Logger
}

// Summary counts what a run did.
type Summary struct {
	RunID    string
	Renamed  int
	Deleted  int
	Jobs     int
	Failed   int
	Canceled bool
}

type runner struct {
	cfg     *config.Config
	opts    Options
	logger  *slog.Logger
	root    *report.Node
	summary Summary
	done    int
	total   int
	sampler *logging.ProgressSampler
}

// Run applies p and returns the report tree. The error is non-nil when the
// run could not start or any item failed; cancellation alone is not an
// error.
func Run(ctx context.Context, cfg *config.Config, p *plan.Plan, opts Options) (*report.Node, Summary, error) {
	if cfg == nil || p == nil {
		return nil, Summary{}, errors.New("apply: config and plan are required")
	}
	if len(p.Blocked) > 0 {
		return nil, Summary{}, services.Wrap(services.ErrValidation, "apply", "check plan",
			fmt.Sprintf("%d item(s) have errors; resolve them before applying", len(p.Blocked)), nil)
	}

	runID := uuid.NewString()
	ctx = services.WithRunID(ctx, runID)
	r := &runner{
		cfg:     cfg,
		opts:    opts,
		logger:  logging.WithContext(ctx, logging.NewComponentLogger(opts.Logger, "apply")),
		root:    report.NewRoot("run " + runID[:8]),
		summary: Summary{RunID: runID},
		total:   len(p.Renames) + len(p.Deletes) + len(p.Jobs),
		sampler: logging.NewProgressSampler(10),
	}

	if !opts.DryRun {
		if err := cfg.EnsureDirectories(); err != nil {
			return nil, r.summary, services.Wrap(services.ErrConfiguration, "apply", "state directory", "", err)
		}
		lock := flock.New(cfg.LockPath())
		ok, err := lock.TryLock()
		if err != nil {
			return nil, r.summary, fmt.Errorf("acquire lock: %w", err)
		}
		if !ok {
			return nil, r.summary, ErrLocked
		}
		defer func() {
			if err := lock.Unlock(); err != nil {
				r.logger.Warn("failed to release apply lock", logging.Error(err))
			}
		}()
	}

	started := time.Now()
	r.beginHistory(ctx, started)
	r.root.Start()
	r.logger.Info("apply started",
		logging.String(logging.FieldEventType, "apply_started"),
		logging.Int("renames", len(p.Renames)),
		logging.Int("deletes", len(p.Deletes)),
		logging.Int("jobs", len(p.Jobs)),
		logging.Bool("dry_run", opts.DryRun),
	)

	r.applyRenames(ctx, p.Renames)
	r.applyDeletes(ctx, p.Deletes)
	r.runJobs(ctx, p.Jobs)

	r.summary.Canceled = ctx.Err() != nil
	switch {
	case r.summary.Canceled:
		r.root.Cancel()
	case r.root.Failed():
		r.root.Status = report.StatusFailed
	default:
		r.root.Succeed(fmt.Sprintf("%d renamed, %d deleted, %d jobs", r.summary.Renamed, r.summary.Deleted, r.summary.Jobs))
	}
	r.finishHistory(ctx)
	r.logger.Info("apply finished",
		logging.String(logging.FieldEventType, "apply_finished"),
		logging.Int("renamed", r.summary.Renamed),
		logging.Int("deleted", r.summary.Deleted),
		logging.Int("jobs", r.summary.Jobs),
		logging.Int("failed", r.summary.Failed),
		logging.Bool("canceled", r.summary.Canceled),
		logging.Duration("elapsed", time.Since(started)),
	)
	return r.root, r.summary, r.root.Err()
}

func (r *runner) step() {
	r.done++
	if r.opts.Progress != nil {
		r.opts.Progress(r.done, r.total)
	}
	if r.sampler.ShouldLog("apply", r.done, r.total) {
		r.logger.Debug("apply progress", logging.Int("completed", r.done), logging.Int("total", r.total))
	}
}

func (r *runner) applyRenames(ctx context.Context, ops []plan.Op) {
	for _, op := range ops {
		if ctx.Err() != nil {
			return
		}
		node := r.root.Child(fmt.Sprintf("rename %s -> %s", op.From, op.To))
		node.Start()
		if r.opts.DryRun {
			node.Skip("dry run")
			r.step()
			continue
		}
		if err := r.rename(op); err != nil {
			node.Fail(err)
			r.summary.Failed++
			r.record(ctx, "rename", op.From, op.To, err)
		} else {
			node.Succeed("")
			r.summary.Renamed++
			r.record(ctx, "rename", op.From, op.To, nil)
		}
		r.step()
	}
}

func (r *runner) rename(op plan.Op) error {
	if !fileutil.Exists(op.From) {
		return services.Wrap(services.ErrMissingSource, "apply", "rename", op.From+" no longer exists", nil)
	}
	if err := os.MkdirAll(filepath.Dir(op.To), 0o755); err != nil {
		return services.Wrap(services.ErrToolIO, "apply", "create directory", "", err)
	}
	if err := r.move(op.From, op.To); err != nil {
		return err
	}
	if op.CompanionFrom != "" && fileutil.Exists(op.CompanionFrom) {
		if err := r.move(op.CompanionFrom, op.CompanionTo); err != nil {
			return err
		}
	}
	if r.opts.Store != nil && op.Node != nil {
		r.opts.Store.Rehome(op.Node.Path, op.To)
	}
	return nil
}

// move renames from onto to, keeping any file already at to as a backup.
// Case-only renames go straight through since the target is the source.
func (r *runner) move(from, to string) error {
	if from == to {
		return nil
	}
	if strings.EqualFold(from, to) {
		if err := fileutil.Rename(from, to); err != nil {
			return services.Wrap(services.ErrToolIO, "apply", "rename", "", err)
		}
		return nil
	}
	backup, err := fileutil.ReplaceWithBackup(from, to, r.cfg.Queue.BackupSuffix)
	if err != nil {
		return services.Wrap(services.ErrToolIO, "apply", "rename", "", err)
	}
	if backup != "" {
		r.logger.Info("existing target preserved",
			logging.String("target", to),
			logging.String("backup", backup),
		)
	}
	return nil
}

func (r *runner) applyDeletes(ctx context.Context, ops []plan.Op) {
	for _, op := range ops {
		if ctx.Err() != nil {
			return
		}
		node := r.root.Child("delete " + op.From)
		node.Start()
		if r.opts.DryRun {
			node.Skip("dry run")
			r.step()
			continue
		}
		err := removePath(op.From)
		if err == nil && op.CompanionFrom != "" {
			err = removePath(op.CompanionFrom)
		}
		if err != nil {
			node.Fail(err)
			r.summary.Failed++
		} else {
			node.Succeed("")
			r.summary.Deleted++
			if r.opts.Store != nil && op.Node != nil {
				r.opts.Store.Remove(op.Node)
			}
		}
		r.record(ctx, "delete", op.From, "", err)
		r.step()
	}
}

func removePath(path string) error {
	if err := os.RemoveAll(path); err != nil {
		return services.Wrap(services.ErrToolIO, "apply", "delete", path, err)
	}
	return nil
}

func (r *runner) runJobs(ctx context.Context, jobs []*queue.Job) {
	if len(jobs) == 0 || ctx.Err() != nil {
		return
	}
	if r.opts.DryRun {
		for _, job := range jobs {
			node := r.root.Child(fmt.Sprintf("%s %s", job.Kind, job.Label))
			node.Skip("dry run")
			r.step()
		}
		return
	}

	var tagger queue.Tagger
	if r.cfg.Queue.WriteTags {
		tagger = r.opts.Tagger
		if tagger == nil {
			tagger = tagging.NewWriter(r.cfg.Tools.Mkvpropedit, r.opts.Logger)
		}
	}
	base := r.done
	var q *queue.Queue
	q = queue.New(queue.Options{
		Runner:       r.opts.Runner,
		Tagger:       tagger,
		BackupSuffix: r.cfg.Queue.BackupSuffix,
		TempSuffix:   r.cfg.Queue.TempSuffix,
		Logger:       r.opts.Logger,
		Progress: func(completed, _ int) {
			r.done = base + completed
			if r.opts.Progress != nil {
				r.opts.Progress(r.done, r.total)
			}
		},
		OnJobDone: func(job *queue.Job) {
			target := strings.Join(job.Finals, ", ")
			if job.State == queue.StateFailed {
				r.summary.Failed++
			}
			if job.State == queue.StateSucceeded {
				r.summary.Jobs++
			}
			r.recordState(ctx, string(job.Kind), job.OldPath, target, job.State.String(), job.Err)
			if q.Len() > 0 {
				r.logger.Debug("job finished",
					logging.String("job", job.Label),
					logging.Int("remaining", q.Len()),
					logging.Duration("eta", q.ETA()),
				)
			}
		},
	})
	for _, job := range jobs {
		job.Report = r.root.Child(fmt.Sprintf("%s %s", job.Kind, job.Label))
		q.Enqueue(job)
	}
	result := q.Run(ctx)
	if result.Dropped > 0 {
		r.logger.Info("jobs dropped by cancellation", logging.Int("count", result.Dropped))
	}
}

func (r *runner) beginHistory(ctx context.Context, started time.Time) {
	if r.opts.History == nil {
		return
	}
	err := r.opts.History.BeginRun(ctx, history.Run{
		ID:        r.summary.RunID,
		StartedAt: started,
		Roots:     r.opts.Roots,
		DryRun:    r.opts.DryRun,
	})
	if err != nil {
		logging.WarnWithContext(r.logger, "run history unavailable", "history_write_failed",
			logging.Error(err),
			logging.String(logging.FieldImpact, "this run will not appear in history"),
		)
		r.opts.History = nil
	}
}

func (r *runner) record(ctx context.Context, kind, source, target string, err error) {
	state := "succeeded"
	if err != nil {
		state = "failed"
	}
	r.recordState(ctx, kind, source, target, state, err)
}

func (r *runner) recordState(ctx context.Context, kind, source, target, state string, err error) {
	if r.opts.History == nil {
		return
	}
	item := history.Item{
		RunID:  r.summary.RunID,
		Kind:   kind,
		Source: source,
		Target: target,
		Status: state,
	}
	if err != nil {
		item.ErrorKind = services.Kind(err)
		item.Message = err.Error()
	}
	if recErr := r.opts.History.RecordItem(context.WithoutCancel(ctx), item); recErr != nil {
		r.logger.Warn("history item not recorded", logging.Error(recErr), logging.String("source", source))
	}
}

func (r *runner) finishHistory(ctx context.Context) {
	if r.opts.History == nil {
		return
	}
	state := history.RunSucceeded
	switch {
	case r.summary.Canceled:
		state = history.RunCanceled
	case r.summary.Failed > 0:
		state = history.RunFailed
	}
	err := r.opts.History.FinishRun(context.WithoutCancel(ctx), history.Run{
		ID:      r.summary.RunID,
		Status:  state,
		Renamed: r.summary.Renamed,
		Deleted: r.summary.Deleted,
		Jobs:    r.summary.Jobs,
		Failed:  r.summary.Failed,
	})
	if err != nil {
		r.logger.Warn("run history not finalized", logging.Error(err))
	}
}
