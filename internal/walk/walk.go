// Package walk traverses a directory tree depth-first and reports each
// entry to caller-supplied hooks. It is the shared engine behind the
// counting pass and the ingestion pass.
package walk

import (
	"context"
	"io/fs"
	"os"
	"path/filepath"
	"time"
)

// YieldInterval is how often a long traversal hands control to Hooks.Yield.
const YieldInterval = 250 * time.Millisecond

// now is replaced in tests to drive the yield clock.
var now = time.Now

// Entry is an immutable snapshot of one file system entry.
type Entry struct {
	Path    string
	Name    string
	IsDir   bool
	Size    int64
	ModTime time.Time
	// Root is the traversal root this entry was reached from.
	Root string
}

// Hooks receives traversal events. Nil hooks are treated as accepting.
//
// PreDir returning false prunes the subtree; PostDir still fires with
// ok=false. PreFile returning false means the file was not attached.
type Hooks struct {
	PreDir   func(Entry) bool
	PostDir  func(Entry, bool)
	PreFile  func(Entry) bool
	PostFile func(Entry, bool)
	// Yield is called at most once per YieldInterval of traversal time.
	Yield func()
	// OnError receives unreadable entries; traversal continues.
	OnError func(path string, err error)
}

// Stats totals a traversal.
type Stats struct {
	Dirs     int
	Files    int
	Attached int
	Errors   int
	Canceled bool
}

type walker struct {
	ctx       context.Context
	hooks     Hooks
	root      string
	stats     Stats
	lastYield time.Time
}

// Walk visits root and everything beneath it. Cancellation is observed at
// the start of every visit; once seen no further descent happens and the
// partial stats are returned together with the context error.
func Walk(ctx context.Context, root string, hooks Hooks) (Stats, error) {
	root = filepath.Clean(root)
	info, err := os.Stat(root)
	if err != nil {
		return Stats{}, err
	}
	w := &walker{ctx: ctx, hooks: hooks, root: root, lastYield: now()}
	w.visit(newEntry(root, root, info))
	if w.stats.Canceled {
		return w.stats, ctx.Err()
	}
	return w.stats, nil
}

// Count runs a traversal that attaches nothing. PreDir still decides
// pruning so totals match what Walk would visit.
func Count(ctx context.Context, root string, hooks Hooks) (Stats, error) {
	counting := hooks
	counting.PreFile = func(Entry) bool { return false }
	counting.PostFile = nil
	counting.PostDir = nil
	return Walk(ctx, root, counting)
}

func (w *walker) visit(e Entry) {
	if w.ctx.Err() != nil {
		w.stats.Canceled = true
		return
	}
	w.maybeYield()
	if !e.IsDir {
		w.stats.Files++
		ok := w.hooks.PreFile == nil || w.hooks.PreFile(e)
		if ok {
			w.stats.Attached++
		}
		if w.hooks.PostFile != nil {
			w.hooks.PostFile(e, ok)
		}
		return
	}

	w.stats.Dirs++
	ok := w.hooks.PreDir == nil || w.hooks.PreDir(e)
	if ok {
		entries, err := os.ReadDir(e.Path)
		if err != nil {
			w.fail(e.Path, err)
			ok = false
		}
		for _, child := range entries {
			if w.stats.Canceled {
				break
			}
			childEntry, follow, err := w.entryFor(e.Path, child)
			if err != nil {
				w.fail(filepath.Join(e.Path, child.Name()), err)
				continue
			}
			if follow {
				w.visit(childEntry)
			}
		}
	}
	if w.hooks.PostDir != nil {
		w.hooks.PostDir(e, ok && !w.stats.Canceled)
	}
}

// entryFor snapshots child. Symlinks are followed for files only since
// directory links can loop; follow is false for those.
func (w *walker) entryFor(dir string, child fs.DirEntry) (Entry, bool, error) {
	path := filepath.Join(dir, child.Name())
	info, err := child.Info()
	if err != nil {
		return Entry{}, false, err
	}
	if info.Mode()&fs.ModeSymlink != 0 {
		target, err := os.Stat(path)
		if err != nil {
			return Entry{}, false, err
		}
		if target.IsDir() {
			return Entry{}, false, nil
		}
		info = target
	}
	return newEntry(w.root, path, info), true, nil
}

func (w *walker) maybeYield() {
	if w.hooks.Yield == nil {
		return
	}
	if t := now(); t.Sub(w.lastYield) >= YieldInterval {
		w.hooks.Yield()
		w.lastYield = t
	}
}

func (w *walker) fail(path string, err error) {
	w.stats.Errors++
	if w.hooks.OnError != nil {
		w.hooks.OnError(path, err)
	}
}

func newEntry(root, path string, info fs.FileInfo) Entry {
	return Entry{
		Path:    path,
		Name:    filepath.Base(path),
		IsDir:   info.IsDir(),
		Size:    info.Size(),
		ModTime: info.ModTime(),
		Root:    root,
	}
}
