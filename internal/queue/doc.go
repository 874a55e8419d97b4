// Package queue runs external-tool jobs one at a time.
//
// A Queue is a FIFO of Jobs. Run drives a single-goroutine event loop: it
// starts the head job's process asynchronously, waits for it to exit, runs
// the job's cleanup sequence, then schedules the next start as a deferred
// task instead of recursing. At most one process runs at any moment.
//
// Cleanup on success verifies outputs, optionally backs up the original,
// moves temp-suffixed outputs over their final names (backing up whatever
// was there), tags, runs the producer's post-process hook, and restores the
// original's timestamps. Cleanup on failure removes outputs the job created
// and leaves the original alone. Cancellation kills the running process,
// removes its partial outputs, and drops every job not yet started.
package queue
