package queue

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	"librarian/internal/fileutil"
	"librarian/internal/logging"
	"librarian/internal/services"
)

// succeed runs the success cleanup sequence. The first failing step before
// the outputs are in place stops the sequence; later steps record errors
// and continue.
func (q *Queue) succeed(ctx context.Context, job *Job) {
	logger := logging.WithContext(services.WithJobID(ctx, job.ID), q.logger)

	for _, path := range job.NewPaths {
		if !fileutil.Exists(path) {
			q.fail(job, services.Wrap(services.ErrToolIO, "queue", "verify",
				fmt.Sprintf("expected output %s was not written", path), nil))
			return
		}
	}

	if job.BackupOriginal {
		backup, err := fileutil.Backup(job.OldPath, q.opts.BackupSuffix)
		if err != nil {
			q.fail(job, services.Wrap(services.ErrToolIO, "queue", "backup original", "", err))
			return
		}
		job.Backup = backup
	}

	finals := make([]string, 0, len(job.NewPaths))
	for _, path := range job.NewPaths {
		final := q.finalName(path)
		if final == path {
			finals = append(finals, path)
			continue
		}
		backup, err := fileutil.ReplaceWithBackup(path, final, q.opts.BackupSuffix)
		if err != nil {
			q.fail(job, services.Wrap(services.ErrToolIO, "queue", "rename output", "", err))
			return
		}
		if final == job.OldPath && backup != "" {
			job.Backup = backup
		}
		finals = append(finals, final)
	}
	job.Finals = finals

	var errs []error
	if q.opts.Tagger != nil && job.Title != "" {
		for _, final := range finals {
			if err := q.opts.Tagger.Tag(ctx, final, job.Title); err != nil {
				if job.Report != nil {
					job.Report.Warn(fmt.Sprintf("tag %s: %v", final, err))
				}
				logging.WarnWithContext(logger, "title tag not written", "tag_failed",
					logging.String("path", final),
					logging.Error(err),
					logging.String(logging.FieldImpact, "file keeps its previous title"),
				)
			}
		}
	}

	if job.PostProcess != nil {
		if err := job.PostProcess(ctx, job); err != nil {
			errs = append(errs, services.Wrap(services.ErrToolIO, "queue", "post-process", "", err))
		}
	}

	for _, final := range finals {
		if err := fileutil.RestoreTimes(final, job.Times); err != nil {
			errs = append(errs, services.Wrap(services.ErrToolIO, "queue", "restore timestamps", final, err))
		}
	}
	if !contains(finals, job.OldPath) && fileutil.Exists(job.OldPath) {
		if err := fileutil.RestoreTimes(job.OldPath, job.Times); err != nil {
			errs = append(errs, services.Wrap(services.ErrToolIO, "queue", "restore timestamps", job.OldPath, err))
		}
	}
	if job.Backup != "" {
		if err := fileutil.RestoreTimes(job.Backup, job.Times); err != nil {
			errs = append(errs, services.Wrap(services.ErrToolIO, "queue", "restore timestamps", job.Backup, err))
		}
	}

	if len(errs) > 0 {
		job.State = StateFailed
		job.Err = errors.Join(errs...)
		if job.Report != nil {
			for _, err := range errs {
				job.Report.Fail(err)
			}
		}
		logging.ErrorWithContext(logger, "job finished with errors", "job_cleanup_failed",
			logging.String("label", job.Label),
			logging.Error(job.Err),
		)
		return
	}

	job.State = StateSucceeded
	if job.Report != nil {
		job.Report.Succeed(strings.Join(finals, ", "))
	}
	logger.Info("job succeeded",
		logging.String(logging.FieldEventType, "job_succeeded"),
		logging.String("label", job.Label),
		logging.Strings("outputs", finals),
	)
}

// fail removes outputs the job created and records err. The original is
// never touched.
func (q *Queue) fail(job *Job, err error) {
	q.removeOutputs(job)
	job.State = StateFailed
	job.Err = err
	if job.Report != nil {
		job.Report.Fail(err)
	}
	logging.ErrorWithContext(q.logger, "job failed", "job_failed",
		logging.String(logging.FieldJobID, job.ID),
		logging.String("label", job.Label),
		logging.Error(err),
	)
}

func (q *Queue) cancelJob(job *Job) {
	q.removeOutputs(job)
	job.State = StateCanceled
	job.Err = context.Canceled
	if job.Report != nil {
		job.Report.Cancel()
	}
	q.logger.Info("job canceled", logging.String(logging.FieldJobID, job.ID), logging.String("label", job.Label))
}

func (q *Queue) removeOutputs(job *Job) {
	for _, path := range job.NewPaths {
		if job.existing[path] || path == job.OldPath {
			continue
		}
		if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
			q.logger.Warn("partial output not removed",
				logging.String("path", path),
				logging.Error(err),
				logging.String(logging.FieldEventType, "partial_cleanup_failed"),
			)
		}
	}
}

func (q *Queue) finalName(path string) string {
	suffix := q.opts.TempSuffix
	if suffix == "" || !strings.HasSuffix(path, suffix) {
		return path
	}
	return strings.TrimSuffix(path, suffix)
}

func contains(values []string, want string) bool {
	for _, v := range values {
		if v == want {
			return true
		}
	}
	return false
}
