// Package scan ingests scan roots into a tree.Store. Media files pull their
// subtitle satellites in as children at the moment they are attached.
package scan

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"librarian/internal/classify"
	"librarian/internal/logging"
	"librarian/internal/tree"
	"librarian/internal/walk"
)

// Options configures one ingestion.
type Options struct {
	Classifier *classify.Classifier
	// KeepOther decides whether a file that is neither media nor subtitle is
	// attached, e.g. because a delete rule matches it.
	KeepOther func(path string) bool
	// Progress receives (completed, total) file visits.
	Progress func(completed, total int)
	Yield    func()
	Logger   *slog.Logger
}

// Result totals an ingestion across all roots.
type Result struct {
	Roots      int
	Dirs       int
	Files      int
	Media      int
	Subtitles  int
	Other      int
	Errors     int
	Canceled   bool
	TotalFiles int
}

type ingester struct {
	store     *tree.Store
	opts      Options
	logger    *slog.Logger
	sampler   *logging.ProgressSampler
	stack     tree.Chain
	result    Result
	completed int
}

// Ingest counts then walks every root and attaches what it finds to store.
// On cancellation the partially built tree is kept and context.Canceled is
// returned.
func Ingest(ctx context.Context, store *tree.Store, roots []string, opts Options) (Result, error) {
	if opts.Classifier == nil {
		return Result{}, errors.New("scan: classifier is required")
	}
	in := &ingester{
		store:   store,
		opts:    opts,
		logger:  logging.NewComponentLogger(opts.Logger, "scan"),
		sampler: logging.NewProgressSampler(10),
	}

	countHooks := walk.Hooks{
		PreDir: func(e walk.Entry) bool {
			return e.Path == e.Root || !opts.Classifier.IsSkipped(e.Path)
		},
		Yield: opts.Yield,
	}
	for _, root := range roots {
		stats, err := walk.Count(ctx, root, countHooks)
		in.result.TotalFiles += stats.Files
		if err != nil {
			return in.finish(err)
		}
	}

	hooks := in.hooks()
	for _, root := range roots {
		in.stack = in.stack[:0]
		in.result.Roots++
		stats, err := walk.Walk(ctx, root, hooks)
		in.result.Dirs += stats.Dirs
		in.result.Files += stats.Files
		in.result.Errors += stats.Errors
		if err != nil {
			return in.finish(err)
		}
	}
	return in.finish(nil)
}

func (in *ingester) finish(err error) (Result, error) {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		in.result.Canceled = true
		in.logger.Info("scan canceled", logging.Int("attached", in.store.Len()))
	}
	if err == nil {
		in.logger.Info("scan complete",
			logging.Int("dirs", in.result.Dirs),
			logging.Int("files", in.result.Files),
			logging.Int("media", in.result.Media),
			logging.Int("subtitles", in.result.Subtitles),
		)
	}
	return in.result, err
}

func (in *ingester) hooks() walk.Hooks {
	c := in.opts.Classifier
	return walk.Hooks{
		PreDir: func(e walk.Entry) bool {
			if e.Path != e.Root && c.IsSkipped(e.Path) {
				return false
			}
			in.stack = append(in.stack, tree.Link{
				Path:    e.Path,
				Kind:    tree.KindDirectory,
				IsRoot:  e.Path == e.Root,
				ModTime: e.ModTime,
			})
			return true
		},
		PostDir: func(e walk.Entry, _ bool) {
			if n := len(in.stack); n > 0 && in.stack[n-1].Path == e.Path {
				in.stack = in.stack[:n-1]
			}
		},
		PreFile: in.preFile,
		PostFile: func(walk.Entry, bool) {
			in.completed++
			if in.opts.Progress != nil {
				in.opts.Progress(in.completed, in.result.TotalFiles)
			}
			if in.sampler.ShouldLog("scan", in.completed, in.result.TotalFiles) {
				in.logger.Debug("scan progress", logging.Int("completed", in.completed), logging.Int("total", in.result.TotalFiles))
			}
		},
		Yield: in.opts.Yield,
		OnError: func(path string, err error) {
			logging.WarnWithContext(in.logger, "unreadable entry skipped", "scan_entry_error",
				logging.String("path", path),
				logging.Error(err),
				logging.String(logging.FieldErrorHint, "check permissions"),
				logging.String(logging.FieldImpact, "entry left out of the tree"),
			)
		},
	}
}

func (in *ingester) preFile(e walk.Entry) bool {
	c := in.opts.Classifier
	if c.IsSkipped(e.Path) || c.IsIgnored(e.Path) {
		return false
	}
	if c.IsMediaFile(e.Path) {
		in.attachMedia(e)
		return true
	}
	if ok, _ := c.IsSubtitleFile(e.Path); ok {
		if _, owned := c.OwnerMedia(e.Path); owned {
			// Attached when its owner is visited.
			return false
		}
		if isCompanionSub(e.Path) {
			return false
		}
		in.attach(subtitleLink(e.Path, e.Size, e.ModTime))
		in.result.Subtitles++
		return true
	}
	if in.opts.KeepOther != nil && in.opts.KeepOther(e.Path) {
		in.attach(tree.Link{Path: e.Path, Kind: tree.KindOther, Size: e.Size, ModTime: e.ModTime, IsRoot: e.Path == e.Root})
		in.result.Other++
		return true
	}
	return false
}

func (in *ingester) attachMedia(e walk.Entry) {
	mediaLink := tree.Link{Path: e.Path, Kind: tree.KindMedia, Size: e.Size, ModTime: e.ModTime, IsRoot: e.Path == e.Root}
	in.attach(mediaLink)
	in.result.Media++

	satellites, err := in.opts.Classifier.Satellites(e.Path)
	if err != nil {
		in.logger.Debug("satellite lookup failed", logging.String("path", e.Path), logging.Error(err))
		return
	}
	base := append(append(tree.Chain(nil), in.stack...), mediaLink)
	for _, path := range satellites {
		if isCompanionSub(path) {
			continue
		}
		info, err := os.Stat(path)
		if err != nil {
			continue
		}
		in.store.Attach(append(base, subtitleLink(path, info.Size(), info.ModTime())))
		in.result.Subtitles++
	}
}

func (in *ingester) attach(link tree.Link) *tree.Node {
	chain := append(append(tree.Chain(nil), in.stack...), link)
	return in.store.Attach(chain)
}

// subtitleLink builds the link for a subtitle file. An .idx with a sibling
// .sub becomes one VobSub pair node.
func subtitleLink(path string, size int64, modTime time.Time) tree.Link {
	link := tree.Link{Path: path, Kind: tree.KindSubtitle, Size: size, ModTime: modTime}
	if strings.EqualFold(filepath.Ext(path), ".idx") {
		if sub, ok := companionOf(path); ok {
			link.Kind = tree.KindIdxSub
			link.Companion = sub
		}
	}
	return link
}

func companionOf(idxPath string) (string, bool) {
	stem := strings.TrimSuffix(idxPath, filepath.Ext(idxPath))
	for _, ext := range []string{".sub", ".SUB"} {
		if _, err := os.Stat(stem + ext); err == nil {
			return stem + ext, true
		}
	}
	return "", false
}

// isCompanionSub reports whether path is the .sub half of a VobSub pair.
func isCompanionSub(path string) bool {
	if !strings.EqualFold(filepath.Ext(path), ".sub") {
		return false
	}
	stem := strings.TrimSuffix(path, filepath.Ext(path))
	for _, ext := range []string{".idx", ".IDX"} {
		if _, err := os.Stat(stem + ext); err == nil {
			return true
		}
	}
	return false
}
