package spool

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/custodia-labs/docsync/internal/core/domain"
	"github.com/custodia-labs/docsync/internal/core/ports/driving"
	"github.com/custodia-labs/docsync/internal/logger"
)

// DefaultDebounce coalesces the create and write events of one file save.
const DefaultDebounce = 250 * time.Millisecond

// Option configures a Watcher.
type Option func(*Watcher)

// WithDebounce sets how long a file must be quiet before it is read.
func WithDebounce(d time.Duration) Option {
	return func(w *Watcher) {
		if d > 0 {
			w.debounce = d
		}
	}
}

// WithInitialScan controls whether files already present are submitted
// when Run starts. Enabled by default.
func WithInitialScan(enabled bool) Option {
	return func(w *Watcher) {
		w.initialScan = enabled
	}
}

// Watcher submits jobs for payload files written to or removed from a
// spool directory.
type Watcher struct {
	root        string
	dispatcher  driving.Dispatcher
	fsw         *fsnotify.Watcher
	debounce    time.Duration
	initialScan bool

	mu      sync.Mutex
	pending map[string]*time.Timer
	closed  bool
}

// NewWatcher creates the spool root if needed and watches every directory
// under it.
func NewWatcher(root string, dispatcher driving.Dispatcher, opts ...Option) (*Watcher, error) {
	if dispatcher == nil {
		return nil, fmt.Errorf("%w: dispatcher is required", domain.ErrInvalidInput)
	}
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("resolving spool dir: %w", err)
	}
	if err := os.MkdirAll(abs, 0700); err != nil {
		return nil, fmt.Errorf("creating spool dir: %w", err)
	}

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("creating file watcher: %w", err)
	}

	w := &Watcher{
		root:        abs,
		dispatcher:  dispatcher,
		fsw:         fsw,
		debounce:    DefaultDebounce,
		initialScan: true,
		pending:     make(map[string]*time.Timer),
	}
	for _, opt := range opts {
		opt(w)
	}

	if err := w.addRecursive(abs); err != nil {
		_ = fsw.Close()
		return nil, fmt.Errorf("watching spool dir: %w", err)
	}
	return w, nil
}

// Root returns the absolute spool directory.
func (w *Watcher) Root() string {
	return w.root
}

// Run processes file events until ctx is cancelled or the watcher is closed.
func (w *Watcher) Run(ctx context.Context) error {
	if w.initialScan {
		w.scan(w.root)
	}
	logger.Info("spool watcher started on %s", w.root)

	for {
		select {
		case <-ctx.Done():
			return w.Close()
		case event, ok := <-w.fsw.Events:
			if !ok {
				return nil
			}
			w.handle(event)
		case err, ok := <-w.fsw.Errors:
			if !ok {
				return nil
			}
			logger.Warn("spool watcher: %v", err)
		}
	}
}

// Close stops watching and cancels pending reads.
func (w *Watcher) Close() error {
	w.mu.Lock()
	if w.closed {
		w.mu.Unlock()
		return nil
	}
	w.closed = true
	for path, t := range w.pending {
		t.Stop()
		delete(w.pending, path)
	}
	w.mu.Unlock()
	return w.fsw.Close()
}

func (w *Watcher) handle(event fsnotify.Event) {
	switch {
	case event.Has(fsnotify.Create):
		if info, err := os.Stat(event.Name); err == nil && info.IsDir() {
			if err := w.addRecursive(event.Name); err != nil {
				logger.Warn("spool watcher: adding %s: %v", event.Name, err)
			}
			// Files may have landed before the watch was added.
			w.scan(event.Name)
			return
		}
		w.schedule(event.Name)
	case event.Has(fsnotify.Write):
		w.schedule(event.Name)
	case event.Has(fsnotify.Remove), event.Has(fsnotify.Rename):
		w.cancel(event.Name)
		w.remove(event.Name)
	}
}

func (w *Watcher) schedule(path string) {
	if !IsPayloadFile(path) {
		return
	}
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.closed {
		return
	}
	if t, ok := w.pending[path]; ok {
		t.Reset(w.debounce)
		return
	}
	w.pending[path] = time.AfterFunc(w.debounce, func() { w.fire(path) })
}

func (w *Watcher) cancel(path string) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if t, ok := w.pending[path]; ok {
		t.Stop()
		delete(w.pending, path)
	}
}

func (w *Watcher) fire(path string) {
	w.mu.Lock()
	delete(w.pending, path)
	closed := w.closed
	w.mu.Unlock()
	if !closed {
		w.submit(path)
	}
}

// submit reads one file and queues its job. The spool layout decides the
// job's identity even when the file carries an envelope.
func (w *Watcher) submit(path string) {
	loc, err := w.locate(path)
	if err != nil {
		logger.Debug("spool: skipping %s: %v", path, err)
		return
	}
	job, err := ReadJob(path, domain.IndexJob{
		SourceType: loc.SourceType,
		TeamID:     loc.TeamID,
		ResourceID: loc.ResourceID,
	})
	if err != nil {
		logger.Warn("spool: reading %s: %v", path, err)
		return
	}
	job.SourceType = loc.SourceType
	job.TeamID = loc.TeamID
	job.ResourceID = loc.ResourceID

	if err := w.dispatcher.Submit(job); err != nil {
		logSubmitError(path, err)
		return
	}
	logger.Debug("spool: submitted %s", path)
}

func (w *Watcher) remove(path string) {
	if !IsPayloadFile(path) {
		return
	}
	loc, err := w.locate(path)
	if err != nil {
		logger.Debug("spool: skipping removal of %s: %v", path, err)
		return
	}
	err = w.dispatcher.SubmitDelete(domain.DeleteJob{
		SourceType: loc.SourceType,
		TeamID:     loc.TeamID,
		ResourceID: loc.ResourceID,
	})
	if err != nil {
		logSubmitError(path, err)
		return
	}
	logger.Debug("spool: submitted delete for %s", path)
}

func (w *Watcher) locate(path string) (location, error) {
	rel, err := filepath.Rel(w.root, path)
	if err != nil {
		return location{}, err
	}
	return parseLocation(rel)
}

// scan submits every payload file under dir.
func (w *Watcher) scan(dir string) {
	_ = filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return nil
		}
		if !d.IsDir() && IsPayloadFile(path) {
			w.submit(path)
		}
		return nil
	})
}

func (w *Watcher) addRecursive(root string) error {
	return filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return nil
		}
		if d.IsDir() {
			return w.fsw.Add(path)
		}
		return nil
	})
}

func logSubmitError(path string, err error) {
	if errors.Is(err, domain.ErrPipelineDisabled) {
		logger.Debug("spool: %s not submitted: %v", path, err)
		return
	}
	logger.Warn("spool: %s not submitted: %v", path, err)
}
