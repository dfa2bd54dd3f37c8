// Package watch calls back when any of a set of files changes on disk,
// debouncing bursts of filesystem events into one call.
package watch

import (
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"sync"
	"time"

	"resumatch/internal/errors"

	"github.com/fsnotify/fsnotify"
)

const defaultDebounce = time.Second

// FileWatcher watches files, and their directories for atomic renames.
type FileWatcher struct {
	mu sync.Mutex

	name          string
	files         []string
	lastModTime   map[string]time.Time
	fsWatcher     *fsnotify.Watcher
	debounceDelay time.Duration
	debounceTimer *time.Timer

	stopChan   chan struct{}
	reloadChan chan struct{}
	onChange   func()
	logger     *errors.Logger

	running bool
}

// New creates a watcher named for its logs. Empty paths are ignored.
func New(name string, files []string, debounceDelay time.Duration, onChange func(), logger *errors.Logger) *FileWatcher {
	if debounceDelay <= 0 {
		debounceDelay = defaultDebounce
	}
	var clean []string
	for _, f := range files {
		if f != "" && !slices.Contains(clean, filepath.Clean(f)) {
			clean = append(clean, filepath.Clean(f))
		}
	}
	return &FileWatcher{
		name:          name,
		files:         clean,
		lastModTime:   make(map[string]time.Time),
		debounceDelay: debounceDelay,
		stopChan:      make(chan struct{}),
		reloadChan:    make(chan struct{}, 1),
		onChange:      onChange,
		logger:        logger,
	}
}

// Start begins watching. A watcher can be started once.
func (w *FileWatcher) Start() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.running {
		return fmt.Errorf("%s watcher is already running", w.name)
	}
	if len(w.files) == 0 {
		return fmt.Errorf("%s watcher has no files to watch", w.name)
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create file watcher: %w", err)
	}
	w.fsWatcher = watcher

	if err := w.updateModTimes(); err != nil {
		_ = watcher.Close()
		return fmt.Errorf("failed to get initial file modification times: %w", err)
	}

	for _, file := range w.files {
		if err := w.addFile(file); err != nil && w.logger != nil {
			w.logger.Warn("Failed to watch file", "watcher", w.name, "file", file, "error", err)
		}
	}

	w.running = true
	go w.watchLoop(watcher)

	if w.logger != nil {
		w.logger.Info("File watcher started",
			"watcher", w.name,
			"files", w.files,
			"debounce_delay", w.debounceDelay)
	}
	return nil
}

// Stop ends watching. Stopping a stopped watcher is a no-op.
func (w *FileWatcher) Stop() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if !w.running {
		return nil
	}
	close(w.stopChan)
	if w.debounceTimer != nil {
		w.debounceTimer.Stop()
	}
	w.running = false

	if err := w.fsWatcher.Close(); err != nil {
		return fmt.Errorf("failed to close %s watcher: %w", w.name, err)
	}
	if w.logger != nil {
		w.logger.Info("File watcher stopped", "watcher", w.name)
	}
	return nil
}

// IsRunning returns whether the watcher is currently running
func (w *FileWatcher) IsRunning() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.running
}

// Files returns the watched paths.
func (w *FileWatcher) Files() []string {
	return slices.Clone(w.files)
}

// addFile watches the file when it exists and always its directory, which
// is where atomic replacements show up.
func (w *FileWatcher) addFile(file string) error {
	if err := w.fsWatcher.Add(file); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to watch file %s: %w", file, err)
	}
	dir := filepath.Dir(file)
	if err := w.fsWatcher.Add(dir); err != nil {
		return fmt.Errorf("failed to watch directory %s: %w", dir, err)
	}
	return nil
}

func (w *FileWatcher) updateModTimes() error {
	for _, file := range w.files {
		stat, err := os.Stat(file)
		if err == nil {
			w.lastModTime[file] = stat.ModTime()
		} else if !os.IsNotExist(err) {
			return fmt.Errorf("failed to stat file %s: %w", file, err)
		}
	}
	return nil
}

// hasFileChanged compares against the last seen modification time. Only
// the watch loop calls it.
func (w *FileWatcher) hasFileChanged(file string) bool {
	stat, err := os.Stat(file)
	if err != nil {
		if _, existed := w.lastModTime[file]; existed && os.IsNotExist(err) {
			delete(w.lastModTime, file)
			return true
		}
		return false
	}

	lastMod, exists := w.lastModTime[file]
	if !exists || !stat.ModTime().Equal(lastMod) {
		w.lastModTime[file] = stat.ModTime()
		return true
	}
	return false
}

func (w *FileWatcher) hasAnyFileChanged() bool {
	changed := false
	for _, file := range w.files {
		// every file is checked so all mod times stay current
		if w.hasFileChanged(file) {
			changed = true
		}
	}
	return changed
}

func (w *FileWatcher) watchLoop(watcher *fsnotify.Watcher) {
	for {
		select {
		case event, ok := <-watcher.Events:
			if !ok {
				return
			}
			if w.isRelevant(event) {
				w.scheduleReload()
			}

		case err, ok := <-watcher.Errors:
			if !ok {
				return
			}
			if w.logger != nil {
				w.logger.LogError(err, "File watcher error", "watcher", w.name)
			}

		case <-w.reloadChan:
			if w.hasAnyFileChanged() {
				if w.logger != nil {
					w.logger.Info("Watched files changed, reloading", "watcher", w.name)
				}
				w.onChange()
			}

		case <-w.stopChan:
			return
		}
	}
}

func (w *FileWatcher) isRelevant(event fsnotify.Event) bool {
	if !event.Op.Has(fsnotify.Write) && !event.Op.Has(fsnotify.Create) && !event.Op.Has(fsnotify.Rename) {
		return false
	}
	name := filepath.Clean(event.Name)
	return slices.ContainsFunc(w.files, func(file string) bool {
		return name == file || filepath.Base(name) == filepath.Base(file)
	})
}

func (w *FileWatcher) scheduleReload() {
	w.mu.Lock()
	defer w.mu.Unlock()

	if !w.running {
		return
	}
	if w.debounceTimer != nil {
		w.debounceTimer.Stop()
	}
	w.debounceTimer = time.AfterFunc(w.debounceDelay, func() {
		select {
		case w.reloadChan <- struct{}{}:
		default:
		}
	})
}
