package queue

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"librarian/internal/report"
	"librarian/internal/services"
	"librarian/internal/testsupport"
)

type recordingTagger struct {
	calls []string
	err   error
}

func (r *recordingTagger) Tag(_ context.Context, path, title string) error {
	r.calls = append(r.calls, path+"="+title)
	return r.err
}

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
}

func readFile(t *testing.T, path string) string {
	t.Helper()
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read %s: %v", path, err)
	}
	return string(data)
}

// copyTool appends its label to a log and writes "new" into the output.
func copyTool(t *testing.T, dir string) string {
	return testsupport.WriteScript(t, dir, "tool", "echo \"$1\" >> \"$2\"\necho new > \"$3\"\n")
}

func newTestQueue(opts Options) *Queue {
	if opts.BackupSuffix == "" {
		opts.BackupSuffix = ".bak"
	}
	if opts.TempSuffix == "" {
		opts.TempSuffix = ".partial"
	}
	return New(opts)
}

func TestQueueRunsJobsInOrderAndReplacesOriginals(t *testing.T) {
	dir := t.TempDir()
	tool := copyTool(t, filepath.Join(dir, "bin"))
	logPath := filepath.Join(dir, "order.log")

	tagger := &recordingTagger{}
	var progress []int
	var doneLabels []string
	q := newTestQueue(Options{
		Tagger:    tagger,
		Progress:  func(completed, total int) { progress = append(progress, completed*10+total) },
		OnJobDone: func(job *Job) { doneLabels = append(doneLabels, job.Label) },
	})

	root := report.NewRoot("run")
	for _, name := range []string{"a", "b", "c"} {
		old := filepath.Join(dir, name+".mkv")
		writeFile(t, old, "old")
		q.Enqueue(&Job{
			ID:       name,
			Kind:     KindMerge,
			Label:    name,
			OldPath:  old,
			NewPaths: []string{old + ".partial"},
			Command:  tool,
			Args:     []string{name, logPath, old + ".partial"},
			Title:    "Title " + name,
			Report:   root.Child(name),
		})
	}
	if q.Len() != 3 {
		t.Fatalf("Len = %d, want 3", q.Len())
	}

	result := q.Run(context.Background())
	if result.Succeeded != 3 || result.Failed != 0 || result.Total != 3 {
		t.Fatalf("unexpected result %+v", result)
	}
	if err := result.Err(); err != nil {
		t.Fatalf("Err = %v", err)
	}
	if got := strings.Fields(readFile(t, logPath)); strings.Join(got, ",") != "a,b,c" {
		t.Fatalf("run order = %v", got)
	}
	if strings.Join(doneLabels, ",") != "a,b,c" {
		t.Fatalf("done order = %v", doneLabels)
	}
	if len(progress) != 3 || progress[0] != 13 || progress[2] != 33 {
		t.Fatalf("progress = %v", progress)
	}
	for _, name := range []string{"a", "b", "c"} {
		old := filepath.Join(dir, name+".mkv")
		if got := strings.TrimSpace(readFile(t, old)); got != "new" {
			t.Fatalf("%s content = %q, want new", name, got)
		}
		if got := readFile(t, old+".bak"); got != "old" {
			t.Fatalf("%s backup content = %q", name, got)
		}
		if _, err := os.Stat(old + ".partial"); !errors.Is(err, os.ErrNotExist) {
			t.Fatalf("partial output left behind for %s", name)
		}
	}
	if len(tagger.calls) != 3 || tagger.calls[0] != filepath.Join(dir, "a.mkv")+"=Title a" {
		t.Fatalf("tag calls = %v", tagger.calls)
	}
	if counts := root.Counts(); counts[report.StatusOK] != 3 {
		t.Fatalf("report counts = %v", counts)
	}
}

func TestQueueRestoresOriginalTimestamps(t *testing.T) {
	dir := t.TempDir()
	tool := copyTool(t, filepath.Join(dir, "bin"))
	old := filepath.Join(dir, "movie.mkv")
	stamp := time.Date(2001, 2, 3, 4, 5, 6, 0, time.UTC)
	testsupport.WriteFileAt(t, old, 3, stamp)

	q := newTestQueue(Options{})
	q.Enqueue(&Job{
		ID:       "m",
		Kind:     KindMerge,
		Label:    "movie",
		OldPath:  old,
		NewPaths: []string{old + ".partial"},
		Command:  tool,
		Args:     []string{"m", filepath.Join(dir, "log"), old + ".partial"},
	})
	if result := q.Run(context.Background()); result.Succeeded != 1 {
		t.Fatalf("result = %+v", result)
	}
	for _, path := range []string{old, old + ".bak"} {
		info, err := os.Stat(path)
		if err != nil {
			t.Fatalf("stat %s: %v", path, err)
		}
		if !info.ModTime().Equal(stamp) {
			t.Fatalf("%s mtime = %v, want %v", path, info.ModTime(), stamp)
		}
	}
}

func TestQueueConvertBacksUpOriginal(t *testing.T) {
	dir := t.TempDir()
	tool := copyTool(t, filepath.Join(dir, "bin"))
	old := filepath.Join(dir, "clip.avi")
	target := filepath.Join(dir, "clip.mkv")
	writeFile(t, old, "avi")

	q := newTestQueue(Options{})
	job := &Job{
		ID:             "c",
		Kind:           KindConvert,
		Label:          "clip",
		OldPath:        old,
		NewPaths:       []string{target + ".partial"},
		Command:        tool,
		Args:           []string{"c", filepath.Join(dir, "log"), target + ".partial"},
		BackupOriginal: true,
	}
	q.Enqueue(job)
	if result := q.Run(context.Background()); result.Succeeded != 1 {
		t.Fatalf("result = %+v (err %v)", result, job.Err)
	}
	if job.Backup != old+".bak" {
		t.Fatalf("Backup = %q", job.Backup)
	}
	if _, err := os.Stat(old); !errors.Is(err, os.ErrNotExist) {
		t.Fatalf("original should have moved to backup")
	}
	if len(job.Finals) != 1 || job.Finals[0] != target {
		t.Fatalf("Finals = %v", job.Finals)
	}
}

func TestQueueFailureIsContained(t *testing.T) {
	dir := t.TempDir()
	bin := filepath.Join(dir, "bin")
	failing := testsupport.WriteScript(t, bin, "failing", "echo partial > \"$1\"\necho 'boom: bad input' >&2\nexit 3\n")
	tool := copyTool(t, bin)

	oldA := filepath.Join(dir, "a.mkv")
	oldB := filepath.Join(dir, "b.mkv")
	writeFile(t, oldA, "old-a")
	writeFile(t, oldB, "old-b")
	// Pre-existing output must survive the failed job's cleanup.
	existing := filepath.Join(dir, "existing.out")
	writeFile(t, existing, "keep")

	root := report.NewRoot("run")
	q := newTestQueue(Options{})
	failJob := &Job{
		ID:       "a",
		Kind:     KindMerge,
		Label:    "a",
		OldPath:  oldA,
		NewPaths: []string{oldA + ".partial", existing},
		Command:  failing,
		Args:     []string{oldA + ".partial"},
		Report:   root.Child("a"),
	}
	q.Enqueue(failJob)
	q.Enqueue(&Job{
		ID:       "b",
		Kind:     KindMerge,
		Label:    "b",
		OldPath:  oldB,
		NewPaths: []string{oldB + ".partial"},
		Command:  tool,
		Args:     []string{"b", filepath.Join(dir, "log"), oldB + ".partial"},
		Report:   root.Child("b"),
	})

	result := q.Run(context.Background())
	if result.Failed != 1 || result.Succeeded != 1 {
		t.Fatalf("result = %+v", result)
	}
	if !errors.Is(failJob.Err, services.ErrProcessRuntime) {
		t.Fatalf("failed job err = %v", failJob.Err)
	}
	if !strings.Contains(failJob.Err.Error(), "boom: bad input") {
		t.Fatalf("error should carry stderr tail: %v", failJob.Err)
	}
	if _, err := os.Stat(oldA + ".partial"); !errors.Is(err, os.ErrNotExist) {
		t.Fatalf("partial output of failed job should be removed")
	}
	if got := readFile(t, existing); got != "keep" {
		t.Fatalf("pre-existing output modified: %q", got)
	}
	if got := readFile(t, oldA); got != "old-a" {
		t.Fatalf("original of failed job modified: %q", got)
	}
	if got := strings.TrimSpace(readFile(t, oldB)); got != "new" {
		t.Fatalf("second job did not run: %q", got)
	}
	if result.Err() == nil {
		t.Fatal("expected Result.Err to report the failure")
	}
	if !root.Failed() {
		t.Fatal("report should record the failure")
	}
}

func TestQueuePreflightFailures(t *testing.T) {
	dir := t.TempDir()
	tool := copyTool(t, filepath.Join(dir, "bin"))
	present := filepath.Join(dir, "present.mkv")
	writeFile(t, present, "x")

	tests := []struct {
		name   string
		job    *Job
		marker error
	}{
		{
			name: "missing tool",
			job: &Job{
				OldPath:  present,
				NewPaths: []string{present + ".partial"},
				Command:  filepath.Join(dir, "bin", "no-such-tool"),
			},
			marker: services.ErrConfiguration,
		},
		{
			name: "missing source",
			job: &Job{
				OldPath:  filepath.Join(dir, "gone.mkv"),
				NewPaths: []string{filepath.Join(dir, "gone.mkv.partial")},
				Command:  tool,
			},
			marker: services.ErrMissingSource,
		},
		{
			name: "missing ancillary",
			job: &Job{
				OldPath:   present,
				NewPaths:  []string{present + ".partial"},
				Command:   tool,
				Ancillary: []string{filepath.Join(dir, "present.en.srt")},
			},
			marker: services.ErrMissingSource,
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			tc.job.ID = tc.name
			tc.job.Label = tc.name
			tc.job.Kind = KindMerge
			q := newTestQueue(Options{})
			q.Enqueue(tc.job)
			result := q.Run(context.Background())
			if result.Failed != 1 {
				t.Fatalf("result = %+v", result)
			}
			if !errors.Is(tc.job.Err, tc.marker) {
				t.Fatalf("err = %v, want %v", tc.job.Err, tc.marker)
			}
			if got := readFile(t, present); got != "x" {
				t.Fatalf("source modified: %q", got)
			}
		})
	}
}

func TestQueuePostProcessErrorFailsJobButQueueContinues(t *testing.T) {
	dir := t.TempDir()
	tool := copyTool(t, filepath.Join(dir, "bin"))
	oldA := filepath.Join(dir, "a.mkv")
	oldB := filepath.Join(dir, "b.mkv")
	writeFile(t, oldA, "a")
	writeFile(t, oldB, "b")

	q := newTestQueue(Options{})
	first := &Job{
		ID:          "a",
		Kind:        KindMerge,
		Label:       "a",
		OldPath:     oldA,
		NewPaths:    []string{oldA + ".partial"},
		Command:     tool,
		Args:        []string{"a", filepath.Join(dir, "log"), oldA + ".partial"},
		PostProcess: func(context.Context, *Job) error { return errors.New("ancillary move failed") },
	}
	q.Enqueue(first)
	q.Enqueue(&Job{
		ID:       "b",
		Kind:     KindMerge,
		Label:    "b",
		OldPath:  oldB,
		NewPaths: []string{oldB + ".partial"},
		Command:  tool,
		Args:     []string{"b", filepath.Join(dir, "log"), oldB + ".partial"},
	})
	result := q.Run(context.Background())
	if result.Failed != 1 || result.Succeeded != 1 {
		t.Fatalf("result = %+v", result)
	}
	if !errors.Is(first.Err, services.ErrToolIO) {
		t.Fatalf("post-process err = %v", first.Err)
	}
	// The output stays in place; only the post step failed.
	if got := strings.TrimSpace(readFile(t, oldA)); got != "new" {
		t.Fatalf("output should be in place: %q", got)
	}
}

func TestQueueMissingOutputFails(t *testing.T) {
	dir := t.TempDir()
	noop := testsupport.WriteScript(t, filepath.Join(dir, "bin"), "noop", "exit 0\n")
	old := filepath.Join(dir, "a.mkv")
	writeFile(t, old, "a")

	q := newTestQueue(Options{})
	job := &Job{ID: "a", Kind: KindMerge, Label: "a", OldPath: old, NewPaths: []string{old + ".partial"}, Command: noop}
	q.Enqueue(job)
	if result := q.Run(context.Background()); result.Failed != 1 {
		t.Fatalf("result = %+v", result)
	}
	if !errors.Is(job.Err, services.ErrToolIO) {
		t.Fatalf("err = %v", job.Err)
	}
	if got := readFile(t, old); got != "a" {
		t.Fatalf("original modified: %q", got)
	}
}

func TestQueueCancelStopsRunningJobAndDropsRest(t *testing.T) {
	dir := t.TempDir()
	bin := filepath.Join(dir, "bin")
	slow := testsupport.WriteScript(t, bin, "slow", "echo partial > \"$1\"\nexec sleep 10\n")
	tool := copyTool(t, bin)

	oldA := filepath.Join(dir, "a.mkv")
	oldB := filepath.Join(dir, "b.mkv")
	writeFile(t, oldA, "a")
	writeFile(t, oldB, "b")

	root := report.NewRoot("run")
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	q := newTestQueue(Options{})
	running := &Job{
		ID:       "a",
		Kind:     KindMerge,
		Label:    "a",
		OldPath:  oldA,
		NewPaths: []string{oldA + ".partial"},
		Command:  slow,
		Args:     []string{oldA + ".partial"},
		Report:   root.Child("a"),
	}
	dropped := &Job{
		ID:       "b",
		Kind:     KindMerge,
		Label:    "b",
		OldPath:  oldB,
		NewPaths: []string{oldB + ".partial"},
		Command:  tool,
		Args:     []string{"b", filepath.Join(dir, "log"), oldB + ".partial"},
		Report:   root.Child("b"),
	}
	q.Enqueue(running)
	q.Enqueue(dropped)

	go func() {
		deadline := time.Now().Add(5 * time.Second)
		for time.Now().Before(deadline) {
			if _, err := os.Stat(oldA + ".partial"); err == nil {
				break
			}
			time.Sleep(10 * time.Millisecond)
		}
		cancel()
	}()

	start := time.Now()
	result := q.Run(ctx)
	if elapsed := time.Since(start); elapsed > 8*time.Second {
		t.Fatalf("cancel took too long: %v", elapsed)
	}
	if result.Canceled != 1 || result.Dropped != 1 || result.Succeeded != 0 {
		t.Fatalf("result = %+v", result)
	}
	if running.State != StateCanceled || dropped.State != StateCanceled {
		t.Fatalf("states = %v, %v", running.State, dropped.State)
	}
	if _, err := os.Stat(oldA + ".partial"); !errors.Is(err, os.ErrNotExist) {
		t.Fatal("partial output should be removed on cancel")
	}
	if got := readFile(t, oldA); got != "a" {
		t.Fatalf("original modified: %q", got)
	}
	if len(root.Children) != 1 || root.Children[0].Status != report.StatusCanceled {
		t.Fatalf("report children = %+v", root.Children)
	}
}

func TestQueueETA(t *testing.T) {
	q := newTestQueue(Options{})
	if q.ETA() != 0 {
		t.Fatal("ETA without history should be zero")
	}
	q.elapsed = 10 * time.Second
	q.measured = 2
	q.pending = []*Job{{}, {}}
	q.running = &Job{}
	if got := q.ETA(); got != 15*time.Second {
		t.Fatalf("ETA = %v, want 15s", got)
	}
}

func TestQueuePrepareRewritesArgsOrFailsJob(t *testing.T) {
	dir := t.TempDir()
	tool := copyTool(t, filepath.Join(dir, "bin"))
	logPath := filepath.Join(dir, "order.log")
	q := newTestQueue(Options{})

	root := report.NewRoot("run")
	var jobs []*Job
	for _, name := range []string{"a", "b"} {
		old := filepath.Join(dir, name+".mkv")
		writeFile(t, old, "old")
		job := &Job{
			ID:       name,
			Kind:     KindMerge,
			Label:    name,
			OldPath:  old,
			NewPaths: []string{old + ".partial"},
			Command:  tool,
			Args:     []string{name, logPath, old + ".partial"},
			Report:   root.Child(name),
		}
		jobs = append(jobs, job)
		q.Enqueue(job)
	}
	jobs[0].Prepare = func(_ context.Context, job *Job) error {
		job.Args[0] = "prepared"
		return nil
	}
	jobs[1].Prepare = func(context.Context, *Job) error {
		return services.Wrap(services.ErrToolIO, "test", "prepare", "unreadable", nil)
	}

	result := q.Run(context.Background())
	if result.Succeeded != 1 || result.Failed != 1 {
		t.Fatalf("unexpected result %+v", result)
	}
	if got := strings.Fields(readFile(t, logPath)); strings.Join(got, ",") != "prepared" {
		t.Fatalf("tool ran with labels %v", got)
	}
	if got := readFile(t, filepath.Join(dir, "b.mkv")); got != "old" {
		t.Fatalf("failed prepare touched the original: %q", got)
	}
	if jobs[1].State != StateFailed || !errors.Is(jobs[1].Err, services.ErrToolIO) {
		t.Fatalf("job b = %v %v", jobs[1].State, jobs[1].Err)
	}
}
