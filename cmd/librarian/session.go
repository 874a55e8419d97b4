package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"librarian/internal/classify"
	"librarian/internal/config"
	"librarian/internal/naming"
	"librarian/internal/plan"
	"librarian/internal/scan"
	"librarian/internal/services"
	"librarian/internal/status"
	"librarian/internal/subtitles"
	"librarian/internal/tree"
)

// editOptions are per-invocation changes layered over the configured rules.
type editOptions struct {
	renames  []string
	deletes  []string
	excludes []string
}

func (o *editOptions) register(cmd *cobra.Command) {
	cmd.Flags().StringArrayVar(&o.renames, "rename", nil, "Override the new name of an item as PATH=NAME (repeatable)")
	cmd.Flags().StringArrayVar(&o.deletes, "delete", nil, "Mark PATH for deletion (repeatable)")
	cmd.Flags().StringArrayVar(&o.excludes, "exclude", nil, "Leave PATH and everything below it out of the plan (repeatable)")
}

// session is one scanned library with its rules and status cache.
type session struct {
	cfg      *config.Config
	logger   *slog.Logger
	roots    []string
	store    *tree.Store
	rules    *naming.Rules
	resolver *naming.Resolver
	status   *status.Cache
	scanned  scan.Result
}

func (c *commandContext) openSession(cmd *cobra.Command, args []string, edits editOptions) (*session, error) {
	cfg, err := c.ensureConfig()
	if err != nil {
		return nil, err
	}
	logger, err := c.ensureLogger()
	if err != nil {
		return nil, err
	}
	roots, err := resolveRoots(args)
	if err != nil {
		return nil, err
	}

	s := &session{
		cfg:    cfg,
		logger: logger,
		roots:  roots,
		store:  tree.NewStore(),
		rules:  naming.NewRules(cfg.Naming),
	}

	bar := newProgress(cmd.ErrOrStderr(), "Scanning")
	s.scanned, err = scan.Ingest(cmd.Context(), s.store, roots, scan.Options{
		Classifier: classify.New(cfg.Scan),
		KeepOther:  s.rules.MatchesDelete,
		Progress:   bar.update,
		Logger:     logger,
	})
	bar.finish()
	if err != nil {
		return nil, err
	}

	s.resolver = naming.NewResolver(s.rules)
	s.status = status.New(s.store, s.resolver, s.rules)
	if err := s.applyEdits(edits); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *session) applyEdits(edits editOptions) error {
	for _, raw := range edits.renames {
		path, name, ok := strings.Cut(raw, "=")
		if !ok || strings.TrimSpace(name) == "" {
			return services.Wrap(services.ErrValidation, "edit", "parse rename",
				fmt.Sprintf("%q is not PATH=NAME", raw), nil)
		}
		name = strings.TrimSpace(name)
		if naming.EscapesParent(name) {
			return services.Wrap(services.ErrValidation, "edit", "parse rename",
				fmt.Sprintf("%q must stay inside the item's folder", name), nil)
		}
		node, err := s.lookup(path)
		if err != nil {
			return err
		}
		s.rules.SetOverride(node.Path, name)
		s.status.Invalidate(node.Path)
	}
	for _, path := range edits.deletes {
		node, err := s.lookup(path)
		if err != nil {
			return err
		}
		s.rules.SetOverride(node.Path, naming.Delete)
		s.status.Invalidate(node.Path)
	}
	for _, path := range edits.excludes {
		node, err := s.lookup(path)
		if err != nil {
			return err
		}
		s.store.SetChecked(node, false)
	}
	return nil
}

func (s *session) lookup(path string) (*tree.Node, error) {
	abs, err := filepath.Abs(strings.TrimSpace(path))
	if err != nil {
		return nil, fmt.Errorf("resolve %q: %w", path, err)
	}
	node := s.store.GetByPath(abs)
	if node == nil {
		return nil, services.Wrap(services.ErrValidation, "edit", "lookup",
			fmt.Sprintf("%s was not found in the scanned roots", abs), nil)
	}
	return node, nil
}

func (s *session) buildPlan(ctx context.Context) (*plan.Plan, error) {
	opts := plan.Options{
		Status:  s.status,
		Convert: s.cfg.Convert,
		FFmpeg:  s.cfg.Tools.FFmpeg,
		Logger:  s.logger,
	}
	if s.cfg.Merge.Enabled {
		opts.Planner = subtitles.NewPlanner(s.cfg, s.logger)
	}
	return plan.Build(ctx, s.store, s.resolver, opts)
}

func resolveRoots(args []string) ([]string, error) {
	if len(args) == 0 {
		return nil, errors.New("at least one root directory is required")
	}
	roots := make([]string, 0, len(args))
	seen := make(map[string]bool, len(args))
	for _, arg := range args {
		abs, err := filepath.Abs(arg)
		if err != nil {
			return nil, fmt.Errorf("resolve root %q: %w", arg, err)
		}
		info, err := os.Stat(abs)
		if err != nil {
			return nil, services.Wrap(services.ErrMissingSource, "scan", "stat root", abs, err)
		}
		if !info.IsDir() {
			return nil, services.Wrap(services.ErrValidation, "scan", "stat root",
				fmt.Sprintf("%s is not a directory", abs), nil)
		}
		if seen[abs] {
			continue
		}
		seen[abs] = true
		roots = append(roots, abs)
	}
	return roots, nil
}

// relative shortens path for display against the scan root containing it.
func (s *session) relative(path string) string {
	for _, root := range s.roots {
		if rel, err := filepath.Rel(root, path); err == nil && !strings.HasPrefix(rel, "..") {
			return filepath.Join(filepath.Base(root), rel)
		}
	}
	return path
}
