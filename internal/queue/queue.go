package queue

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"librarian/internal/deps"
	"librarian/internal/fileutil"
	"librarian/internal/logging"
	"librarian/internal/services"
)

// Options configures a Queue.
type Options struct {
	Runner Runner
	Tagger Tagger
	// Resolve maps a configured command to an executable path; failures are
	// configuration errors.
	Resolve      func(command string) (string, error)
	BackupSuffix string
	TempSuffix   string
	Logger       *slog.Logger
	// Progress receives (completed, total) after every job.
	Progress func(completed, total int)
	// OnJobDone observes each job after its cleanup; it runs on the loop.
	OnJobDone func(*Job)
}

// Result summarizes a Run.
type Result struct {
	Total     int
	Succeeded int
	Failed    int
	Canceled  int
	// Dropped counts jobs discarded by cancellation before they started.
	Dropped int
	Jobs    []*Job
}

// Err joins the errors of failed jobs.
func (r Result) Err() error {
	var errs []error
	for _, job := range r.Jobs {
		if job.State == StateFailed && job.Err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", job.Label, job.Err))
		}
	}
	return errors.Join(errs...)
}

type completion struct {
	job    *Job
	err    error
	stdout *lineLogger
	stderr *lineLogger
}

type task func(ctx context.Context)

// Queue is a FIFO of jobs with at most one running process. It is driven by
// Run and is not safe for concurrent use outside the loop's callbacks.
type Queue struct {
	opts    Options
	logger  *slog.Logger
	pending []*Job
	running *Job
	tasks   []task
	done    chan completion
	result  Result

	completed  int
	total      int
	elapsed    time.Duration
	measured   int
	runStartAt time.Time
}

// New returns an empty queue.
func New(opts Options) *Queue {
	if opts.Runner == nil {
		opts.Runner = ExecRunner{}
	}
	if opts.Resolve == nil {
		opts.Resolve = deps.ResolveExecutable
	}
	return &Queue{
		opts:   opts,
		logger: logging.NewComponentLogger(opts.Logger, "queue"),
		done:   make(chan completion, 1),
	}
}

// Enqueue appends job to the tail.
func (q *Queue) Enqueue(job *Job) {
	if job == nil {
		return
	}
	job.State = StateQueued
	q.pending = append(q.pending, job)
	q.total++
}

// Len reports jobs not yet started.
func (q *Queue) Len() int {
	return len(q.pending)
}

// ETA estimates the time left from the average duration of finished jobs.
func (q *Queue) ETA() time.Duration {
	if q.measured == 0 {
		return 0
	}
	remaining := len(q.pending)
	if q.running != nil {
		remaining++
	}
	return q.elapsed / time.Duration(q.measured) * time.Duration(remaining)
}

// Run processes jobs until the queue is empty or ctx is canceled. It always
// returns after the running process (if any) has exited and been cleaned up.
func (q *Queue) Run(ctx context.Context) Result {
	q.runStartAt = time.Now()
	q.logger.Info("queue started", logging.Int("jobs", len(q.pending)))
	q.schedule(q.pump)

	ctxDone := ctx.Done()
	for {
		if len(q.tasks) > 0 {
			next := q.tasks[0]
			q.tasks = q.tasks[1:]
			next(ctx)
			continue
		}
		if q.running == nil {
			break
		}
		select {
		case c := <-q.done:
			q.running = nil
			q.complete(ctx, c)
			q.schedule(q.pump)
		case <-ctxDone:
			ctxDone = nil
			q.logger.Info("cancellation requested; stopping running job",
				logging.String("label", q.running.Label))
		}
	}

	q.result.Total = q.total
	q.logger.Info("queue finished",
		logging.Int("succeeded", q.result.Succeeded),
		logging.Int("failed", q.result.Failed),
		logging.Int("canceled", q.result.Canceled),
		logging.Int("dropped", q.result.Dropped),
		logging.Duration("elapsed", time.Since(q.runStartAt)),
	)
	return q.result
}

// schedule defers fn to the next loop turn.
func (q *Queue) schedule(fn task) {
	q.tasks = append(q.tasks, fn)
}

func (q *Queue) pump(ctx context.Context) {
	if q.running != nil {
		return
	}
	if ctx.Err() != nil {
		q.dropPending()
		return
	}
	if len(q.pending) == 0 {
		return
	}
	job := q.pending[0]
	q.pending = q.pending[1:]
	q.start(ctx, job)
}

func (q *Queue) start(ctx context.Context, job *Job) {
	jobCtx := services.WithJobID(ctx, job.ID)
	logger := logging.WithContext(jobCtx, q.logger)
	job.State = StateRunning
	job.Started = time.Now()
	if job.Report != nil {
		job.Report.Start()
	}

	job.existing = make(map[string]bool, len(job.NewPaths))
	for _, path := range job.NewPaths {
		if fileutil.Exists(path) {
			job.existing[path] = true
		}
	}

	command, checkErr := q.preflight(job)
	if checkErr != nil {
		logging.ErrorWithContext(logger, "job not started", "job_preflight_failed",
			logging.String("label", job.Label),
			logging.Error(checkErr),
			logging.String(logging.FieldErrorHint, "check tool paths and that sources still exist"),
		)
		q.fail(job, checkErr)
		q.finish(job)
		q.schedule(q.pump)
		return
	}

	if job.Prepare != nil {
		if err := job.Prepare(jobCtx, job); err != nil {
			q.fail(job, err)
			q.finish(job)
			q.schedule(q.pump)
			return
		}
	}

	if job.Times.IsZero() {
		if times, err := fileutil.CaptureTimes(job.OldPath); err == nil {
			job.Times = times
		}
	}

	stdout := newLineLogger(logger, "stdout")
	stderr := newLineLogger(logger, "stderr")
	q.running = job
	logger.Info("job started",
		logging.String(logging.FieldEventType, "job_started"),
		logging.String("kind", string(job.Kind)),
		logging.String("label", job.Label),
		logging.String("command", command),
	)
	logger.Debug("job arguments", logging.Strings("args", job.Args))

	go func() {
		err := q.opts.Runner.Run(jobCtx, command, job.Args, stdout, stderr)
		q.done <- completion{job: job, err: err, stdout: stdout, stderr: stderr}
	}()
}

// preflight resolves the tool and checks inputs. Every check runs so the
// report lists all problems at once.
func (q *Queue) preflight(job *Job) (string, error) {
	var errs []error
	command, err := q.opts.Resolve(job.Command)
	if err != nil {
		errs = append(errs, err)
	}
	inputs := append([]string{job.OldPath}, job.Ancillary...)
	for _, path := range inputs {
		if !fileutil.Exists(path) {
			errs = append(errs, services.Wrap(services.ErrMissingSource, "queue", "preflight",
				fmt.Sprintf("input %s no longer exists", path), nil))
		}
	}
	return command, errors.Join(errs...)
}

func (q *Queue) complete(ctx context.Context, c completion) {
	c.stdout.Flush()
	c.stderr.Flush()
	job := c.job
	switch {
	case c.err != nil && ctx.Err() != nil:
		q.cancelJob(job)
	case c.err != nil:
		detail := c.err.Error()
		if tail := c.stderr.Tail(); tail != "" {
			detail += ": " + tail
		}
		q.fail(job, services.Wrap(services.ErrProcessRuntime, "queue", string(job.Kind), detail, c.err))
	default:
		q.succeed(ctx, job)
	}
	q.finish(job)
}

func (q *Queue) finish(job *Job) {
	job.Finished = time.Now()
	if job.State != StateCanceled {
		q.elapsed += job.Duration()
		q.measured++
	}
	q.completed++
	q.result.Jobs = append(q.result.Jobs, job)
	switch job.State {
	case StateSucceeded:
		q.result.Succeeded++
	case StateFailed:
		q.result.Failed++
	case StateCanceled:
		q.result.Canceled++
	}
	if q.opts.Progress != nil {
		q.opts.Progress(q.completed, q.total)
	}
	if q.opts.OnJobDone != nil {
		q.opts.OnJobDone(job)
	}
}

func (q *Queue) dropPending() {
	for _, job := range q.pending {
		job.State = StateCanceled
		job.Err = context.Canceled
		if job.Report != nil {
			job.Report.Remove()
		}
		q.result.Dropped++
	}
	if n := len(q.pending); n > 0 {
		q.logger.Info("dropped jobs that had not started", logging.Int("count", n))
	}
	q.pending = nil
}
