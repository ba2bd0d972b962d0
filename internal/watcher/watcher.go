// Package watcher keeps a set of directory trees in sync with a Handler using fsnotify.
// Writes are debounced per file so an editor's save burst becomes one index call.
package watcher

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"
)

const defaultDebounce = 400 * time.Millisecond

// ErrNotWatched is returned by RemoveDirectory for a directory that is not a root.
var ErrNotWatched = errors.New("directory is not watched")

// Handler receives file changes. Errors are logged by the watcher and never stop it.
type Handler interface {
	// IndexFile is called once a created or written file has been quiet for the debounce period.
	IndexFile(ctx context.Context, path string) error
	// RemoveFile is called when a file is deleted or renamed away.
	RemoveFile(ctx context.Context, path string) error
}

// Watcher watches root directories and forwards matching file events to a Handler.
type Watcher struct {
	handler    Handler
	extensions map[string]bool
	recursive  bool
	debounce   time.Duration
	logger     *zap.Logger

	mu      sync.Mutex
	roots   []string
	fsw     *fsnotify.Watcher
	pending map[string]*time.Timer
	runCtx  context.Context
	cancel  context.CancelFunc
	done    chan struct{}
	syncs   sync.WaitGroup
}

// Option configures a Watcher.
type Option func(*Watcher)

// WithLogger sets the logger for sync and event messages.
func WithLogger(l *zap.Logger) Option {
	return func(w *Watcher) { w.logger = l }
}

// WithExtensions restricts events to files with one of exts (".pdf" or "pdf"). Empty
// means every file.
func WithExtensions(exts []string) Option {
	return func(w *Watcher) {
		w.extensions = make(map[string]bool, len(exts))
		for _, e := range exts {
			w.extensions["."+strings.TrimPrefix(strings.ToLower(e), ".")] = true
		}
	}
}

// WithRecursive controls whether subdirectories are watched. Default true.
func WithRecursive(recursive bool) Option {
	return func(w *Watcher) { w.recursive = recursive }
}

// WithDebounce sets how long a file must be quiet before it is indexed.
func WithDebounce(d time.Duration) Option {
	return func(w *Watcher) {
		if d > 0 {
			w.debounce = d
		}
	}
}

// New creates a watcher over roots. Nothing is watched until Start.
func New(roots []string, handler Handler, opts ...Option) *Watcher {
	w := &Watcher{
		handler:   handler,
		recursive: true,
		debounce:  defaultDebounce,
		logger:    zap.NewNop(),
		pending:   make(map[string]*time.Timer),
	}
	for _, root := range roots {
		if abs, err := filepath.Abs(root); err == nil {
			root = abs
		}
		w.roots = append(w.roots, filepath.Clean(root))
	}
	for _, opt := range opts {
		opt(w)
	}
	if w.logger == nil {
		w.logger = zap.NewNop()
	}
	return w
}

// Directories returns a copy of the watched root directories.
func (w *Watcher) Directories() []string {
	w.mu.Lock()
	defer w.mu.Unlock()
	return append([]string(nil), w.roots...)
}

// AddDirectory adds dir as a root. On a running watcher the tree is watched at once and
// its existing files are synced in the background. Adding a current root is a no-op.
func (w *Watcher) AddDirectory(dir string) error {
	abs, err := filepath.Abs(dir)
	if err != nil {
		return err
	}
	if err := checkDir(abs); err != nil {
		return err
	}
	w.mu.Lock()
	defer w.mu.Unlock()
	for _, r := range w.roots {
		if r == abs {
			return nil
		}
	}
	if w.fsw != nil {
		if err := w.addTree(w.fsw, abs); err != nil {
			return err
		}
		ctx := w.runCtx
		w.syncs.Add(1)
		go func() {
			defer w.syncs.Done()
			w.syncDir(ctx, abs)
		}()
	}
	w.roots = append(w.roots, abs)
	w.logger.Info("Watch directory added", zap.String("path", abs))
	return nil
}

// RemoveDirectory stops watching the root dir and its subdirectories. Documents already
// synced from it are kept. Directories still covered by another root stay watched.
func (w *Watcher) RemoveDirectory(dir string) error {
	abs, err := filepath.Abs(dir)
	if err != nil {
		return err
	}
	w.mu.Lock()
	defer w.mu.Unlock()
	idx := -1
	for i, r := range w.roots {
		if r == abs {
			idx = i
			break
		}
	}
	if idx < 0 {
		return fmt.Errorf("%w: %s", ErrNotWatched, abs)
	}
	w.roots = append(w.roots[:idx], w.roots[idx+1:]...)

	if w.fsw != nil {
		for _, path := range w.fsw.WatchList() {
			if within(abs, path) && !w.coveredLocked(path) {
				_ = w.fsw.Remove(path)
			}
		}
	}
	for path, t := range w.pending {
		if within(abs, path) && !w.coveredLocked(path) {
			t.Stop()
			delete(w.pending, path)
		}
	}
	w.logger.Info("Watch directory removed", zap.String("path", abs))
	return nil
}

// coveredLocked reports whether path falls under a remaining root.
func (w *Watcher) coveredLocked(path string) bool {
	for _, r := range w.roots {
		if path == r || (w.recursive && within(r, path)) {
			return true
		}
		if !w.recursive && filepath.Dir(path) == r {
			return true
		}
	}
	return false
}

// within reports whether path is root or below it.
func within(root, path string) bool {
	rel, err := filepath.Rel(root, path)
	return err == nil && rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator))
}

func checkDir(path string) error {
	info, err := os.Stat(path)
	if err != nil {
		return fmt.Errorf("watch root %s: %w", path, err)
	}
	if !info.IsDir() {
		return fmt.Errorf("watch root %s: not a directory", path)
	}
	return nil
}

// Start registers every root (and its subdirectories when recursive) and processes events
// until ctx is cancelled or Stop is called. Each root must be an existing directory.
func (w *Watcher) Start(ctx context.Context) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.fsw != nil {
		return nil
	}
	for _, root := range w.roots {
		if err := checkDir(root); err != nil {
			return err
		}
	}

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}
	for _, root := range w.roots {
		if err := w.addTree(fsw, root); err != nil {
			_ = fsw.Close()
			return err
		}
	}
	runCtx, cancel := context.WithCancel(ctx)
	w.fsw = fsw
	w.runCtx = runCtx
	w.cancel = cancel
	w.done = make(chan struct{})
	w.logger.Info("Watching directories", zap.Strings("roots", w.roots), zap.Bool("recursive", w.recursive))

	go w.run(runCtx, fsw, w.done)
	return nil
}

func (w *Watcher) addTree(fsw *fsnotify.Watcher, dir string) error {
	if !w.recursive {
		return fsw.Add(dir)
	}
	return filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			if err := fsw.Add(path); err != nil {
				return fmt.Errorf("watch %s: %w", path, err)
			}
		}
		return nil
	})
}

func (w *Watcher) run(ctx context.Context, fsw *fsnotify.Watcher, done chan struct{}) {
	defer close(done)
	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-fsw.Events:
			if !ok {
				return
			}
			w.handleEvent(ctx, fsw, ev)
		case err, ok := <-fsw.Errors:
			if !ok {
				return
			}
			w.logger.Warn("Watcher error", zap.Error(err))
		}
	}
}

func (w *Watcher) handleEvent(ctx context.Context, fsw *fsnotify.Watcher, ev fsnotify.Event) {
	path := ev.Name
	w.logger.Debug("Watcher event", zap.String("op", ev.Op.String()), zap.String("path", path))

	switch {
	case ev.Has(fsnotify.Remove) || ev.Has(fsnotify.Rename):
		w.cancelPending(path)
		if w.matches(path) {
			w.remove(ctx, path)
		}
	case ev.Has(fsnotify.Create) || ev.Has(fsnotify.Write):
		info, err := os.Stat(path)
		if err != nil {
			return
		}
		if info.IsDir() {
			if ev.Has(fsnotify.Create) && w.recursive {
				if err := w.addTree(fsw, path); err != nil {
					w.logger.Warn("Failed to watch new directory", zap.String("path", path), zap.Error(err))
				}
				w.syncDir(ctx, path)
			}
			return
		}
		if w.matches(path) {
			w.schedule(ctx, path)
		}
	}
}

func (w *Watcher) matches(path string) bool {
	if len(w.extensions) == 0 {
		return true
	}
	return w.extensions[strings.ToLower(filepath.Ext(path))]
}

func (w *Watcher) schedule(ctx context.Context, path string) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if t, ok := w.pending[path]; ok {
		t.Stop()
	}
	w.pending[path] = time.AfterFunc(w.debounce, func() {
		w.mu.Lock()
		delete(w.pending, path)
		w.mu.Unlock()
		if ctx.Err() != nil {
			return
		}
		w.index(ctx, path)
	})
}

func (w *Watcher) cancelPending(path string) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if t, ok := w.pending[path]; ok {
		t.Stop()
		delete(w.pending, path)
	}
}

func (w *Watcher) index(ctx context.Context, path string) {
	if err := w.handler.IndexFile(ctx, path); err != nil {
		w.logger.Warn("Failed to index file", zap.String("path", path), zap.Error(err))
	}
}

func (w *Watcher) remove(ctx context.Context, path string) {
	if err := w.handler.RemoveFile(ctx, path); err != nil {
		w.logger.Warn("Failed to remove file", zap.String("path", path), zap.Error(err))
	}
}

// Sync hands every existing matching file under the roots to the handler. Call it after
// Start so files changed while the watcher was down are picked up.
func (w *Watcher) Sync(ctx context.Context) error {
	for _, root := range w.Directories() {
		if err := ctx.Err(); err != nil {
			return err
		}
		w.syncDir(ctx, root)
	}
	return nil
}

func (w *Watcher) syncDir(ctx context.Context, dir string) {
	w.logger.Debug("Syncing directory", zap.String("dir", dir))
	_ = filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			w.logger.Warn("Failed to read directory", zap.String("path", path), zap.Error(err))
			return nil
		}
		if ctx.Err() != nil {
			return filepath.SkipAll
		}
		if d.IsDir() {
			if path != dir && !w.recursive {
				return filepath.SkipDir
			}
			return nil
		}
		if d.Type().IsRegular() && w.matches(path) {
			w.index(ctx, path)
		}
		return nil
	})
}

// Stop cancels pending debounced work, closes the fsnotify watcher and waits for the
// event loop to exit. It is safe to call more than once.
func (w *Watcher) Stop() {
	w.mu.Lock()
	fsw, done, cancel := w.fsw, w.done, w.cancel
	w.fsw = nil
	for path, t := range w.pending {
		t.Stop()
		delete(w.pending, path)
	}
	w.mu.Unlock()
	if fsw == nil {
		return
	}
	cancel()
	_ = fsw.Close()
	<-done
	w.syncs.Wait()
}
