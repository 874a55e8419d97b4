package subtitles

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"

	"librarian/internal/config"
	"librarian/internal/fileutil"
	"librarian/internal/language"
	"librarian/internal/logging"
	"librarian/internal/media/ffprobe"
	"librarian/internal/queue"
	"librarian/internal/report"
	"librarian/internal/services"
	"librarian/internal/tree"
)

// Planner builds merge plans for media files with subtitle satellites.
type Planner struct {
	Matcher       Matcher
	Command       string
	UILanguage    string
	MediaLanguage string
	// FixedTracks are declared when the original cannot be probed.
	FixedTracks          []int
	TempSuffix           string
	BackupSuffix         string
	KeepAncillaryBackups bool
	Probe                func(ctx context.Context, path string) (ffprobe.Result, error)

	logger *slog.Logger
}

// NewPlanner configures a planner from cfg.
func NewPlanner(cfg *config.Config, logger *slog.Logger) *Planner {
	ffprobeBin := cfg.Tools.FFprobe
	return &Planner{
		Matcher:              NewMatcher(cfg.Merge.Languages),
		Command:              cfg.Tools.Mkvmerge,
		UILanguage:           cfg.Merge.UILanguage,
		MediaLanguage:        cfg.Merge.MediaLanguage,
		FixedTracks:          cfg.Merge.FixedTracks,
		TempSuffix:           cfg.Queue.TempSuffix,
		BackupSuffix:         cfg.Queue.BackupSuffix,
		KeepAncillaryBackups: cfg.Queue.KeepAncillaryBackups,
		Probe: func(ctx context.Context, path string) (ffprobe.Result, error) {
			return ffprobe.Inspect(ctx, ffprobeBin, path)
		},
		logger: logging.NewComponentLogger(logger, "subtitles"),
	}
}

// MergePlan is a ready-to-run mkvmerge invocation.
type MergePlan struct {
	Media *tree.Node
	// OldPath is the container merged into, as it will be named when the
	// job runs; NewPath is the temporary output.
	OldPath    string
	NewPath    string
	Title      string
	Command    string
	Fixed      []FixedTrack
	Tracks     []Track
	Inputs     []string
	TrackOrder string
	Args       []string
	Ancillary  []string

	backupSuffix string
	keepBackups  bool
	logger       *slog.Logger
	// planner is set when the original is probed at job start.
	planner *Planner
	layout  mergeArgs
}

// Plan matches the satellites of media and builds the merge that folds them
// into targetPath. probePath is the file whose streams are inspected. An
// empty probePath means targetPath is written by an earlier job, so the
// plan declares the configured tracks and the job probes targetPath when it
// starts. locate maps a satellite to where it will be when the job runs; nil
// keeps scan paths. Plan returns nil when there is nothing to merge.
func (p *Planner) Plan(ctx context.Context, media *tree.Node, probePath, targetPath string, locate func(*tree.Node) string) (*MergePlan, error) {
	if media == nil || media.Kind != tree.KindMedia {
		return nil, nil
	}
	if locate == nil {
		locate = func(n *tree.Node) string { return n.Path }
	}
	tracks, err := p.Matcher.Match(media)
	if err != nil {
		return nil, services.Wrap(services.ErrToolIO, "subtitles", "match", media.Path, err)
	}
	if len(tracks) == 0 {
		return nil, nil
	}

	fixed := p.configuredTracks()
	if probePath != "" {
		fixed = p.fixedTracks(ctx, probePath)
	}
	title := strings.TrimSuffix(filepath.Base(targetPath), filepath.Ext(targetPath))
	output := targetPath + p.TempSuffix

	layout := mergeArgs{
		uiLanguage: p.UILanguage,
		output:     output,
		original:   targetPath,
		title:      title,
		fixed:      fixed,
		tracks:     tracks,
		locate:     locate,
	}
	args, order := layout.build()

	inputs := groupInputs(tracks, locate)
	paths := make([]string, 0, len(inputs))
	ancillary := make([]string, 0, len(inputs))
	for _, input := range inputs {
		paths = append(paths, input.path)
		ancillary = append(ancillary, input.path)
		node := input.tracks[0].Node
		if node.Kind == tree.KindIdxSub && node.Companion != "" {
			ancillary = append(ancillary, companionAt(input.path, node.Companion))
		}
	}

	plan := &MergePlan{
		Media:        media,
		OldPath:      targetPath,
		NewPath:      output,
		Title:        title,
		Command:      p.Command,
		Fixed:        fixed,
		Tracks:       tracks,
		Inputs:       paths,
		TrackOrder:   order,
		Args:         args,
		Ancillary:    ancillary,
		backupSuffix: p.BackupSuffix,
		keepBackups:  p.KeepAncillaryBackups,
		logger:       p.logger,
	}
	if probePath == "" {
		plan.planner = p
		plan.layout = layout
	}
	p.logger.Debug("merge planned",
		logging.String("media", media.Path),
		logging.Int("tracks", len(tracks)),
		logging.String("track_order", order),
	)
	return plan, nil
}

// fixedTracks lists the original's streams, falling back to the configured
// indices when probing fails.
func (p *Planner) fixedTracks(ctx context.Context, path string) []FixedTrack {
	fixed, _, err := p.probeTracks(ctx, path)
	if err != nil {
		p.warnProbe(path, err)
	}
	if len(fixed) == 0 {
		return p.configuredTracks()
	}
	return fixed
}

func (p *Planner) probeTracks(ctx context.Context, path string) ([]FixedTrack, ffprobe.Result, error) {
	if p.Probe == nil {
		return nil, ffprobe.Result{}, nil
	}
	result, err := p.Probe(ctx, path)
	if err != nil {
		return nil, result, err
	}
	probed := result.Tracks()
	fixed := make([]FixedTrack, 0, len(probed))
	for _, track := range probed {
		lang := p.MediaLanguage
		if language.IsKnown(track.Language) {
			lang = language.Normalize(track.Language)
		}
		fixed = append(fixed, FixedTrack{Index: track.Index, Language: lang})
	}
	return fixed, result, nil
}

func (p *Planner) configuredTracks() []FixedTrack {
	fixed := make([]FixedTrack, 0, len(p.FixedTracks))
	for _, index := range p.FixedTracks {
		fixed = append(fixed, FixedTrack{Index: index, Language: p.MediaLanguage})
	}
	return fixed
}

func (p *Planner) warnProbe(path string, err error) {
	logging.WarnWithContext(p.logger, "stream probe failed; using configured fixed tracks", "probe_failed",
		logging.String("path", path),
		logging.Error(err),
		logging.String(logging.FieldImpact, "original tracks declared from merge.fixed_tracks"),
	)
}

// probeOriginal re-declares the original's tracks from the file an earlier
// conversion wrote. The converter keeps only default streams, so indices can
// differ from the source probed at planning time.
func (m *MergePlan) probeOriginal(ctx context.Context, job *queue.Job) error {
	fixed, result, err := m.planner.probeTracks(ctx, job.OldPath)
	switch {
	case err != nil:
		m.planner.warnProbe(job.OldPath, err)
		fixed = m.planner.configuredTracks()
	case m.planner.Probe != nil && result.DurationSeconds() <= 0:
		return services.Wrap(services.ErrToolIO, "subtitles", "probe converted output",
			fmt.Sprintf("%s has no playable duration", job.OldPath), nil)
	case len(fixed) == 0:
		fixed = m.planner.configuredTracks()
	}

	layout := m.layout
	layout.fixed = fixed
	args, order := layout.build()
	m.Fixed, m.Args, m.TrackOrder = fixed, args, order
	job.Args = append([]string(nil), args...)
	m.logger.Debug("merge tracks probed at start",
		logging.String("original", job.OldPath),
		logging.String("track_order", order),
	)
	return nil
}

func companionAt(idxPath, companion string) string {
	return strings.TrimSuffix(idxPath, filepath.Ext(idxPath)) + filepath.Ext(companion)
}

// Job converts the plan into a queue job reporting into node.
func (m *MergePlan) Job(node *report.Node) *queue.Job {
	job := &queue.Job{
		ID:          uuid.NewString(),
		Kind:        queue.KindMerge,
		Label:       filepath.Base(m.OldPath),
		OldPath:     m.OldPath,
		NewPaths:    []string{m.NewPath},
		Command:     m.Command,
		Args:        append([]string(nil), m.Args...),
		Ancillary:   append([]string(nil), m.Ancillary...),
		Title:       m.Title,
		PostProcess: m.retireAncillary,
		Report:      node,
	}
	if m.planner != nil {
		job.Prepare = m.probeOriginal
	}
	return job
}

// retireAncillary backs up or removes the merged subtitle sources.
func (m *MergePlan) retireAncillary(_ context.Context, job *queue.Job) error {
	var errs []error
	for _, path := range job.Ancillary {
		if m.keepBackups {
			if _, err := fileutil.Backup(path, m.backupSuffix); err != nil {
				errs = append(errs, err)
			}
			continue
		}
		if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
			errs = append(errs, fmt.Errorf("remove %s: %w", path, err))
		}
	}
	if len(errs) == 0 && m.logger != nil {
		m.logger.Debug("merged subtitle sources retired",
			logging.String("media", job.OldPath),
			logging.Int("files", len(job.Ancillary)),
			logging.Bool("kept_backups", m.keepBackups),
		)
	}
	return errors.Join(errs...)
}
