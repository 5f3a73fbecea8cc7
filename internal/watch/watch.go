// Package watch re-runs a callback when the refs of a repository or a set of
// tracked files change.
package watch

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

const DefaultDelay = 350 * time.Millisecond

// gitFiles are the files directly under .git whose changes matter.
var gitFiles = []string{"HEAD", "packed-refs", "index"}

type Options struct {
	Root   string   // working tree root
	Files  []string // extra files to track, absolute
	Delay  time.Duration
	Logger *slog.Logger
}

type watcher struct {
	opts   Options
	gitDir string
	refs   string
	files  map[string]struct{}
	log    *slog.Logger
}

// Run calls fn, debounced, after every relevant change until ctx is done.
// fn runs on a timer goroutine; calls never overlap.
func Run(ctx context.Context, opts Options, fn func()) error {
	if opts.Root == "" {
		return errors.New("watch root not set")
	}
	if opts.Delay <= 0 {
		opts.Delay = DefaultDelay
	}
	w := &watcher{
		opts:   opts,
		gitDir: filepath.Join(opts.Root, ".git"),
		files:  map[string]struct{}{},
		log:    opts.Logger,
	}
	if w.log == nil {
		w.log = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	w.refs = filepath.Join(w.gitDir, "refs")
	for _, f := range opts.Files {
		w.files[filepath.Clean(f)] = struct{}{}
	}

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("fsnotify: %w", err)
	}
	defer func() {
		if err := fsw.Close(); err != nil {
			w.log.Error("watcher close", slog.Any("error", err))
		}
	}()
	for _, path := range w.paths() {
		w.log.Debug("adding path to FS watcher", slog.String("path", path))
		if err := fsw.Add(path); err != nil {
			return fmt.Errorf("watch %s: %w", path, err)
		}
	}

	var running sync.Mutex
	d := newDebouncer(opts.Delay, func() {
		running.Lock()
		defer running.Unlock()
		fn()
	})
	defer d.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-fsw.Events:
			if !ok {
				return nil
			}
			if ev.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Remove|fsnotify.Rename) == 0 {
				continue
			}
			if ev.Op&fsnotify.Create != 0 && w.underRefs(ev.Name) {
				if info, err := os.Stat(ev.Name); err == nil && info.IsDir() {
					if err := fsw.Add(ev.Name); err != nil {
						w.log.Error("watch new refs dir", slog.String("path", ev.Name), slog.Any("error", err))
					}
				}
			}
			if !w.relevant(ev.Name) {
				continue
			}
			w.log.Debug("fsnotify event",
				slog.String("op", ev.Op.String()),
				slog.String("path", ev.Name),
			)
			d.Trigger()
		case err, ok := <-fsw.Errors:
			if !ok {
				return nil
			}
			w.log.Error("fsnotify error", slog.Any("error", err))
		}
	}
}

// paths lists the directories to watch: .git, every directory under
// .git/refs and the parent of every tracked file.
func (w *watcher) paths() []string {
	seen := map[string]struct{}{}
	if info, err := os.Stat(w.gitDir); err == nil && info.IsDir() {
		seen[w.gitDir] = struct{}{}
		_ = filepath.WalkDir(w.refs, func(path string, d fs.DirEntry, err error) error {
			if err != nil {
				return nil
			}
			if d.IsDir() {
				seen[path] = struct{}{}
			}
			return nil
		})
	} else {
		seen[w.opts.Root] = struct{}{}
	}
	for f := range w.files {
		if info, err := os.Stat(filepath.Dir(f)); err == nil && info.IsDir() {
			seen[filepath.Dir(f)] = struct{}{}
		}
	}
	paths := make([]string, 0, len(seen))
	for p := range seen {
		paths = append(paths, p)
	}
	slices.Sort(paths)
	return paths
}

func (w *watcher) underRefs(name string) bool {
	return strings.HasPrefix(filepath.Clean(name), w.refs+string(filepath.Separator))
}

func (w *watcher) relevant(name string) bool {
	name = filepath.Clean(name)
	if shouldIgnoreWatchPath(name) {
		return false
	}
	if _, ok := w.files[name]; ok {
		return true
	}
	if w.underRefs(name) {
		return true
	}
	return filepath.Dir(name) == w.gitDir && slices.Contains(gitFiles, filepath.Base(name))
}

func shouldIgnoreWatchPath(name string) bool {
	ext := strings.ToLower(filepath.Ext(name))
	return ext == ".lock" || ext == ".ipc"
}
