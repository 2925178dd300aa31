// Package watcher provides directory watching with fsnotify and debouncing.
// Media files created or changed under watched roots are reindexed; removed
// files are deregistered.
package watcher

import (
	"context"
	"io/fs"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"

	"github.com/hyperjump/miru/internal/media"
)

const defaultDebounce = 400 * time.Millisecond

// Watcher watches directories and invokes callbacks on media file changes.
// Files whose extension is not a known image or video type are ignored.
type Watcher struct {
	roots     []string
	recursive bool
	onMedia   func(path string)
	onRemove  func(path string)
	debounce  time.Duration
	watcher   *fsnotify.Watcher

	mu          sync.Mutex
	debounceMap map[string]*time.Timer
	done        chan struct{}
	started     bool
	stopOnce    sync.Once
	logger      *zap.Logger
}

// Option configures a Watcher.
type Option func(*Watcher)

// WithLogger sets a logger for debug output.
func WithLogger(l *zap.Logger) Option {
	return func(w *Watcher) { w.logger = l }
}

// WithDebounce overrides the write-coalescing window.
func WithDebounce(d time.Duration) Option {
	return func(w *Watcher) { w.debounce = d }
}

// NewWatcher creates a watcher over roots. onMedia is called for created or
// modified media files (after the debounce window); onRemove for deleted ones.
func NewWatcher(roots []string, recursive bool, onMedia, onRemove func(path string), opts ...Option) *Watcher {
	w := &Watcher{
		roots:       roots,
		recursive:   recursive,
		onMedia:     onMedia,
		onRemove:    onRemove,
		debounce:    defaultDebounce,
		debounceMap: make(map[string]*time.Timer),
		done:        make(chan struct{}),
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// Start starts the watcher. It runs until ctx is cancelled or Stop is called.
// Missing root directories are created.
func (w *Watcher) Start(ctx context.Context) error {
	w.mu.Lock()
	if w.started {
		w.mu.Unlock()
		return nil
	}
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		w.mu.Unlock()
		return err
	}
	w.watcher = watcher
	w.started = true
	if w.logger != nil {
		w.logger.Debug("watcher starting",
			zap.Strings("roots", w.roots), zap.Bool("recursive", w.recursive))
	}
	for _, root := range w.roots {
		if err := w.addRootLocked(root); err != nil {
			_ = w.watcher.Close()
			w.watcher = nil
			w.started = false
			w.mu.Unlock()
			return err
		}
	}
	w.mu.Unlock()
	go w.run(ctx, watcher)
	return nil
}

// run owns its own reference to the fsnotify watcher: Stop nils w.watcher
// under the lock, so the loop must not re-read the field. Closing the
// watcher closes both channels, which ends the loop.
func (w *Watcher) run(ctx context.Context, fw *fsnotify.Watcher) {
	for {
		select {
		case <-ctx.Done():
			w.Stop()
			return
		case <-w.done:
			return
		case ev, ok := <-fw.Events:
			if !ok {
				return
			}
			w.handleEvent(ev)
		case err, ok := <-fw.Errors:
			if !ok {
				return
			}
			if err != nil && w.logger != nil {
				w.logger.Debug("watcher error", zap.Error(err))
			}
		}
	}
}

func (w *Watcher) handleEvent(ev fsnotify.Event) {
	path := ev.Name
	if w.logger != nil {
		w.logger.Debug("watcher event", zap.String("op", ev.Op.String()), zap.String("path", path))
	}
	switch ev.Op {
	case fsnotify.Create, fsnotify.Write:
		info, err := os.Stat(path)
		if err == nil && info.IsDir() {
			w.handleNewDirectory(path)
			return
		}
		if media.DetectKind(path) != media.KindUnknown {
			w.debounceMedia(path)
		}
	case fsnotify.Remove:
		w.cancelDebounce(path)
		if media.DetectKind(path) != media.KindUnknown {
			if w.onRemove != nil {
				w.onRemove(path)
			}
		}
	}
}

// handleNewDirectory adds a newly created directory to the watch list and
// indexes the media files already inside it (a folder copied in arrives as
// one create event for the directory).
func (w *Watcher) handleNewDirectory(dirPath string) {
	w.mu.Lock()
	recursive := w.recursive
	watcher := w.watcher
	w.mu.Unlock()

	if watcher == nil {
		return
	}

	if recursive {
		filepath.WalkDir(dirPath, func(path string, d fs.DirEntry, err error) error {
			if err != nil {
				return err
			}
			if d.IsDir() {
				if addErr := watcher.Add(path); addErr != nil && w.logger != nil {
					w.logger.Debug("watcher failed to add directory",
						zap.String("path", path), zap.Error(addErr))
				}
			}
			return nil
		})
	} else if err := watcher.Add(dirPath); err != nil && w.logger != nil {
		w.logger.Debug("watcher failed to add directory", zap.String("path", dirPath), zap.Error(err))
	}

	w.syncDirectory(dirPath)
}

func (w *Watcher) debounceMedia(path string) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if t, ok := w.debounceMap[path]; ok {
		t.Stop()
	}
	t := time.AfterFunc(w.debounce, func() {
		w.mu.Lock()
		delete(w.debounceMap, path)
		logger := w.logger
		w.mu.Unlock()
		if logger != nil {
			logger.Debug("watcher reindexing file (debounced)", zap.String("path", path))
		}
		if w.onMedia != nil {
			w.onMedia(path)
		}
	})
	w.debounceMap[path] = t
}

func (w *Watcher) cancelDebounce(path string) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if t, ok := w.debounceMap[path]; ok {
		t.Stop()
		delete(w.debounceMap, path)
	}
}

func (w *Watcher) addRootLocked(root string) error {
	root = filepath.Clean(root)
	if _, err := os.Stat(root); err != nil {
		if os.IsNotExist(err) {
			if err := os.MkdirAll(root, 0755); err != nil {
				return err
			}
		} else {
			return err
		}
	}
	if !w.recursive {
		return w.watcher.Add(root)
	}
	return filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return w.watcher.Add(path)
		}
		return nil
	})
}

func (w *Watcher) syncDirectory(root string) {
	w.mu.Lock()
	onMedia := w.onMedia
	logger := w.logger
	w.mu.Unlock()
	if logger != nil {
		logger.Debug("watcher syncing directory", zap.String("root", root))
	}
	filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil || d.IsDir() {
			return err
		}
		if media.DetectKind(path) != media.KindUnknown && onMedia != nil {
			onMedia(path)
		}
		return nil
	})
}

// SyncExistingFiles indexes all media files already present in each watched
// root. Call this after Start() to pick up files that predate the watcher.
func (w *Watcher) SyncExistingFiles() {
	w.mu.Lock()
	roots := append([]string(nil), w.roots...)
	w.mu.Unlock()
	for _, root := range roots {
		w.syncDirectory(root)
	}
}

// Stop stops the watcher and releases resources.
func (w *Watcher) Stop() {
	w.mu.Lock()
	if !w.started || w.watcher == nil {
		w.mu.Unlock()
		return
	}
	for path, t := range w.debounceMap {
		t.Stop()
		delete(w.debounceMap, path)
	}
	_ = w.watcher.Close()
	w.watcher = nil
	w.started = false
	w.mu.Unlock()
	w.stopOnce.Do(func() { close(w.done) })
}
