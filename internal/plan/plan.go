package plan

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"

	"github.com/google/uuid"

	"librarian/internal/config"
	"librarian/internal/fileutil"
	"librarian/internal/logging"
	"librarian/internal/naming"
	"librarian/internal/queue"
	"librarian/internal/status"
	"librarian/internal/subtitles"
	"librarian/internal/tree"
)

// OpKind distinguishes file system operations.
type OpKind string

const (
	OpRename OpKind = "rename"
	OpDelete OpKind = "delete"
)

// Op is one rename or delete. From is the path at the time the op runs.
type Op struct {
	Kind OpKind
	Node *tree.Node
	From string
	To   string
	// CompanionFrom and CompanionTo move the .sub half of an idx pair.
	CompanionFrom string
	CompanionTo   string
}

// Problem is an item left out of the plan and why.
type Problem struct {
	Path    string
	Message string
}

// Plan is the full set of work for one run.
type Plan struct {
	Renames []Op
	Deletes []Op
	Jobs    []*queue.Job
	Merges  []*subtitles.MergePlan
	// Blocked items have error statuses; a plan with blocked items is not
	// applied.
	Blocked []Problem
	Skipped []Problem
}

// Empty reports whether the plan has nothing to do.
func (p *Plan) Empty() bool {
	return len(p.Renames) == 0 && len(p.Deletes) == 0 && len(p.Jobs) == 0
}

// Options configures Build.
type Options struct {
	Status *status.Cache
	// Planner builds merge jobs; nil disables merging.
	Planner *subtitles.Planner
	Convert config.Convert
	FFmpeg  string
	Logger  *slog.Logger
}

type builder struct {
	ctx      context.Context
	store    *tree.Store
	resolver *naming.Resolver
	opts     Options
	logger   *slog.Logger
	plan     *Plan
}

// Build walks the checked nodes of store and collects operations.
func Build(ctx context.Context, store *tree.Store, resolver *naming.Resolver, opts Options) (*Plan, error) {
	b := &builder{
		ctx:      ctx,
		store:    store,
		resolver: resolver,
		opts:     opts,
		logger:   logging.NewComponentLogger(opts.Logger, "plan"),
		plan:     &Plan{},
	}
	var walkErr error
	store.Walk(nil, func(n *tree.Node) bool {
		if walkErr != nil {
			return false
		}
		if err := ctx.Err(); err != nil {
			walkErr = err
			return false
		}
		descend, err := b.visit(n)
		if err != nil {
			walkErr = err
			return false
		}
		return descend
	})
	if walkErr != nil {
		return nil, walkErr
	}
	b.logger.Info("plan built",
		logging.Int("renames", len(b.plan.Renames)),
		logging.Int("deletes", len(b.plan.Deletes)),
		logging.Int("jobs", len(b.plan.Jobs)),
		logging.Int("blocked", len(b.plan.Blocked)),
	)
	return b.plan, nil
}

func (b *builder) visit(n *tree.Node) (bool, error) {
	if !n.Included() {
		return false, nil
	}
	target := b.resolver.Target(n)
	if naming.IsDelete(target) {
		b.addDelete(n)
		return false, nil
	}
	if target == "" {
		return true, nil
	}
	if b.opts.Status != nil {
		if st := b.opts.Status.Row(n); st.Severity == status.SeverityError {
			b.plan.Blocked = append(b.plan.Blocked, Problem{Path: n.Path, Message: st.Message})
			return false, nil
		}
	}
	from := b.staged(n)
	if from != target {
		op := Op{Kind: OpRename, Node: n, From: from, To: target}
		if n.Kind == tree.KindIdxSub && n.Companion != "" {
			op.CompanionFrom = companionAt(from, n.Companion)
			op.CompanionTo = companionAt(target, n.Companion)
		}
		b.plan.Renames = append(b.plan.Renames, op)
	}
	if n.Kind == tree.KindMedia {
		if err := b.addJobs(n, target); err != nil {
			return false, err
		}
	}
	return true, nil
}

// staged is where n sits once its ancestors have been renamed. Satellites
// live in their media file's directory, not beneath the file.
func (b *builder) staged(n *tree.Node) string {
	if n.IsRoot {
		return n.Path
	}
	container := n.Parent
	if n.IsSatellite() {
		container = n.Parent.Parent
	}
	dir := b.resolver.Target(container)
	if dir == "" || naming.IsDelete(dir) {
		return b.resolver.Current(n)
	}
	return filepath.Join(dir, n.Name)
}

// located is where n will be once every rename has run.
func (b *builder) located(n *tree.Node) string {
	target := b.resolver.Target(n)
	if target == "" || naming.IsDelete(target) {
		return b.staged(n)
	}
	return target
}

func (b *builder) addDelete(n *tree.Node) {
	from := b.staged(n)
	b.plan.Deletes = append(b.plan.Deletes, b.deleteOp(n, from))
	// Satellites are separate files next to the media file.
	for _, sat := range n.Satellites() {
		b.plan.Deletes = append(b.plan.Deletes, b.deleteOp(sat, b.staged(sat)))
	}
}

func (b *builder) deleteOp(n *tree.Node, from string) Op {
	op := Op{Kind: OpDelete, Node: n, From: from}
	if n.Kind == tree.KindIdxSub && n.Companion != "" {
		op.CompanionFrom = companionAt(from, n.Companion)
	}
	return op
}

func (b *builder) addJobs(media *tree.Node, target string) error {
	mergeTarget, probePath := target, media.Path
	if b.needsConvert(target) {
		converted := strings.TrimSuffix(target, filepath.Ext(target)) + b.opts.Convert.TargetExtension
		if fileutil.Exists(converted) {
			b.plan.Skipped = append(b.plan.Skipped, Problem{
				Path:    media.Path,
				Message: fmt.Sprintf("conversion target %s already exists", converted),
			})
			return nil
		}
		b.plan.Jobs = append(b.plan.Jobs, convertJob(b.opts.FFmpeg, target, converted))
		mergeTarget = converted
		probePath = ""
	}

	if b.opts.Planner == nil || !strings.EqualFold(filepath.Ext(mergeTarget), ".mkv") {
		return nil
	}
	merge, err := b.opts.Planner.Plan(b.ctx, media, probePath, mergeTarget, b.located)
	if err != nil {
		b.plan.Skipped = append(b.plan.Skipped, Problem{Path: media.Path, Message: err.Error()})
		logging.WarnWithContext(b.logger, "subtitle merge not planned", "merge_plan_failed",
			logging.String("path", media.Path),
			logging.Error(err),
			logging.String(logging.FieldImpact, "subtitles stay as separate files"),
		)
		return nil
	}
	if merge == nil {
		return nil
	}
	b.plan.Merges = append(b.plan.Merges, merge)
	b.plan.Jobs = append(b.plan.Jobs, merge.Job(nil))
	return nil
}

func (b *builder) needsConvert(path string) bool {
	if !b.opts.Convert.Enabled {
		return false
	}
	ext := strings.ToLower(filepath.Ext(path))
	if ext == b.opts.Convert.TargetExtension {
		return false
	}
	for _, candidate := range b.opts.Convert.SourceExtensions {
		if ext == candidate {
			return true
		}
	}
	return false
}

// convertJob remuxes oldPath into a Matroska container at newPath.
func convertJob(ffmpeg, oldPath, newPath string) *queue.Job {
	return &queue.Job{
		ID:      uuid.NewString(),
		Kind:    queue.KindConvert,
		Label:   filepath.Base(oldPath),
		OldPath: oldPath,
		// ffmpeg picks the muxer from the extension, so it writes the final
		// name directly; planning skips targets that already exist.
		NewPaths:       []string{newPath},
		Command:        ffmpeg,
		Args:           []string{"-y", "-fflags", "+genpts", "-i", oldPath, "-c:v", "copy", "-c:a", "copy", newPath},
		BackupOriginal: true,
		Title:          strings.TrimSuffix(filepath.Base(newPath), filepath.Ext(newPath)),
	}
}

func companionAt(path, companion string) string {
	return strings.TrimSuffix(path, filepath.Ext(path)) + filepath.Ext(companion)
}
