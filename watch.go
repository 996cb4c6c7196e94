package datalab

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/nao1215/datalab/domain/model"
)

// watchDebounce is how long a file must stay quiet before it is reloaded
const watchDebounce = 100 * time.Millisecond

// Watch reloads supported files under paths as uploaded tables whenever they
// are written or created. A path may be a file or a directory; directories
// are watched recursively. Bursts of events for one file are debounced, and
// reloads run one at a time on the calling goroutine. Watch blocks until ctx
// is done.
func (w *Workspace) Watch(ctx context.Context, paths ...string) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create watcher: %w", err)
	}
	defer func() { _ = watcher.Close() }()

	files := make(map[string]bool)
	for _, p := range paths {
		if err := watchPath(watcher, p, files); err != nil {
			return fmt.Errorf("failed to watch %s: %w", p, err)
		}
	}

	reload := make(chan reloadRequest)
	pending := newPendingReloads()
	defer pending.stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if event.Op&(fsnotify.Write|fsnotify.Create) == 0 || !watched(event.Name, files) {
				continue
			}
			pending.schedule(event.Name, watchDebounce, func(req reloadRequest) {
				select {
				case reload <- req:
				case <-ctx.Done():
				}
			})
		case req := <-reload:
			if pending.take(req) {
				w.reloadFile(ctx, req.name)
			}
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			w.logger.Warn("watcher error", "error", err)
		}
	}
}

// reloadRequest is one fired debounce timer.
type reloadRequest struct {
	name string
	gen  uint64
}

// pendingReloads holds one debounce timer per file. A newer schedule for a
// file supersedes older ones, including timers that already fired.
type pendingReloads struct {
	timers map[string]*time.Timer
	gens   map[string]uint64
}

func newPendingReloads() *pendingReloads {
	return &pendingReloads{
		timers: make(map[string]*time.Timer),
		gens:   make(map[string]uint64),
	}
}

// schedule calls fire after delay unless name is scheduled again first.
func (p *pendingReloads) schedule(name string, delay time.Duration, fire func(reloadRequest)) {
	if t, ok := p.timers[name]; ok {
		t.Stop()
	}
	p.gens[name]++
	req := reloadRequest{name: name, gen: p.gens[name]}
	p.timers[name] = time.AfterFunc(delay, func() { fire(req) })
}

// take reports whether req is the latest schedule for its file. Stale
// requests are ignored.
func (p *pendingReloads) take(req reloadRequest) bool {
	if p.gens[req.name] != req.gen {
		return false
	}
	if _, ok := p.timers[req.name]; !ok {
		return false
	}
	delete(p.timers, req.name)
	return true
}

func (p *pendingReloads) stop() {
	for _, t := range p.timers {
		t.Stop()
	}
}

func (w *Workspace) reloadFile(ctx context.Context, name string) {
	if w.reloadLock != nil {
		w.reloadLock.Lock()
		defer w.reloadLock.Unlock()
	}
	w.logger.Info("change detected", "file", filepath.Base(name))
	if _, err := w.LoadFile(ctx, name, model.CategoryUploaded); err != nil {
		w.logger.Warn("reload failed", "file", name, "error", err)
	}
}

// watchPath adds p to the watcher. Files are watched through their parent
// directory and recorded in files; directories are added recursively.
func watchPath(watcher *fsnotify.Watcher, p string, files map[string]bool) error {
	info, err := os.Stat(p)
	if err != nil {
		return err
	}
	if !info.IsDir() {
		files[filepath.Clean(p)] = true
		return watcher.Add(filepath.Dir(p))
	}
	return filepath.WalkDir(p, func(dir string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() {
			return nil
		}
		if dir != p && len(d.Name()) > 0 && d.Name()[0] == '.' {
			return filepath.SkipDir
		}
		return watcher.Add(dir)
	})
}

// watched reports whether an event for name should trigger a reload. Files
// added individually match exactly; anything else must be a supported file
// inside a watched directory.
func watched(name string, files map[string]bool) bool {
	name = filepath.Clean(name)
	if files[name] {
		return true
	}
	dirFiles := false
	for f := range files {
		if filepath.Dir(f) == filepath.Dir(name) {
			dirFiles = true
			break
		}
	}
	return !dirFiles && IsSupportedFile(name)
}
