// Package inbox imports photos dropped into a watched directory.
//
// On start the directory is walked once and every accepted image is
// submitted to the import queue. After that the directory is watched and
// new or rewritten files are imported once they have been quiet for the
// settle period. Files that were added, or that duplicate an active photo,
// are removed from the inbox. Files refused for capacity or failing
// validation stay where they are.
package inbox

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/karrick/godirwalk"

	"photo-wallet/internal/filesystem"
	"photo-wallet/internal/logging"
	"photo-wallet/internal/mediatypes"
	"photo-wallet/internal/metrics"
	"photo-wallet/internal/wallet"
)

// DefaultSettle is how long a file must go without events before import.
const DefaultSettle = 500 * time.Millisecond

// Source labels inbox imports in metrics.
const Source = "inbox"

// Submitter accepts uploads. *wallet.Queue satisfies it.
type Submitter interface {
	Submit(ctx context.Context, uploads ...wallet.Upload) []wallet.AddResult
}

// Options configures a Watcher.
type Options struct {
	MaxFileSize int64
	Settle      time.Duration
}

// Watcher imports files from one directory.
type Watcher struct {
	dir     string
	submit  Submitter
	maxSize int64
	settle  time.Duration

	ctx    context.Context
	cancel context.CancelFunc
	done   chan struct{}

	mu      sync.Mutex
	started bool
}

// New creates a Watcher for dir.
func New(dir string, submit Submitter, opts Options) *Watcher {
	if opts.Settle <= 0 {
		opts.Settle = DefaultSettle
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Watcher{
		dir:     dir,
		submit:  submit,
		maxSize: opts.MaxFileSize,
		settle:  opts.Settle,
		ctx:     ctx,
		cancel:  cancel,
		done:    make(chan struct{}),
	}
}

// Name identifies the watcher among background workers.
func (w *Watcher) Name() string {
	return "inbox-watcher"
}

// Start scans the inbox and begins watching it in the background.
func (w *Watcher) Start() {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.started || w.ctx.Err() != nil {
		return
	}
	w.started = true
	go w.run()
}

// Stop ends watching and waits for an in-flight import to finish.
func (w *Watcher) Stop() {
	w.mu.Lock()
	started := w.started
	w.mu.Unlock()

	w.cancel()
	if started {
		<-w.done
	}
}

func (w *Watcher) run() {
	defer close(w.done)

	if err := os.MkdirAll(w.dir, 0o755); err != nil {
		logging.Error("Failed to create inbox %s: %v", w.dir, err)
		metrics.InboxWatcherErrors.Inc()
		return
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		logging.Error("Failed to create inbox watcher: %v", err)
		metrics.InboxWatcherErrors.Inc()
		return
	}
	defer func() {
		if err := watcher.Close(); err != nil {
			logging.Error("failed to close inbox watcher: %v", err)
		}
	}()

	// Watch before the initial scan so files arriving during it are seen.
	dirs, err := w.directories()
	if err != nil {
		logging.Warn("failed to list inbox directories: %v", err)
		metrics.InboxWatcherErrors.Inc()
	}
	for _, d := range dirs {
		if err := watcher.Add(d); err != nil {
			logging.Warn("failed to watch inbox directory %s: %v", d, err)
			metrics.InboxWatcherErrors.Inc()
		}
	}
	logging.Info("Inbox watching %s (%d directories)", w.dir, len(dirs))

	if _, err := w.Scan(w.ctx); err != nil && !errors.Is(err, context.Canceled) {
		logging.Warn("Inbox scan failed: %v", err)
	}

	w.processEvents(watcher)
}

func (w *Watcher) processEvents(watcher *fsnotify.Watcher) {
	pending := make(map[string]time.Time)
	ticker := time.NewTicker(w.settle / 2)
	defer ticker.Stop()

	for {
		select {
		case <-w.ctx.Done():
			return

		case event, ok := <-watcher.Events:
			if !ok {
				return
			}
			w.handleEvent(watcher, event, pending)

		case err, ok := <-watcher.Errors:
			if !ok {
				return
			}
			logging.Error("Inbox watcher error: %v", err)
			metrics.InboxWatcherErrors.Inc()

		case now := <-ticker.C:
			w.importSettled(now, pending)
		}
	}
}

func (w *Watcher) handleEvent(watcher *fsnotify.Watcher, event fsnotify.Event, pending map[string]time.Time) {
	if isHidden(event.Name) {
		return
	}
	metrics.InboxEventsTotal.WithLabelValues(eventType(event.Op)).Inc()

	switch {
	case event.Has(fsnotify.Create), event.Has(fsnotify.Write):
		info, err := os.Stat(event.Name)
		if err != nil {
			return
		}
		if info.IsDir() {
			if event.Has(fsnotify.Create) {
				if err := watcher.Add(event.Name); err != nil {
					logging.Warn("failed to watch new inbox directory %s: %v", event.Name, err)
					metrics.InboxWatcherErrors.Inc()
				}
			}
			return
		}
		pending[event.Name] = time.Now()

	case event.Has(fsnotify.Remove), event.Has(fsnotify.Rename):
		delete(pending, event.Name)
	}
}

func (w *Watcher) importSettled(now time.Time, pending map[string]time.Time) {
	var ready []string
	for path, last := range pending {
		if now.Sub(last) >= w.settle {
			ready = append(ready, path)
		}
	}
	sort.Strings(ready)

	for _, path := range ready {
		delete(pending, path)
		if w.ctx.Err() != nil {
			return
		}
		if _, err := w.ImportFile(w.ctx, path); err != nil {
			logging.Warn("Inbox file %s not imported: %v", path, err)
		}
	}
}

func eventType(op fsnotify.Op) string {
	switch {
	case op&fsnotify.Create != 0:
		return "create"
	case op&fsnotify.Write != 0:
		return "write"
	case op&fsnotify.Remove != 0:
		return "remove"
	case op&fsnotify.Rename != 0:
		return "rename"
	case op&fsnotify.Chmod != 0:
		return "chmod"
	default:
		return "unknown"
	}
}

// directories lists the inbox and its non-hidden subdirectories.
func (w *Watcher) directories() ([]string, error) {
	dirs := []string{}
	err := godirwalk.Walk(w.dir, &godirwalk.Options{
		Callback: func(path string, de *godirwalk.Dirent) error {
			if path != w.dir && isHidden(path) {
				return godirwalk.SkipThis
			}
			if de.IsDir() {
				dirs = append(dirs, path)
			}
			return nil
		},
		Unsorted: true,
	})
	return dirs, err
}

// Scan imports every accepted image currently in the inbox, in path order,
// as one batch.
func (w *Watcher) Scan(ctx context.Context) ([]wallet.AddResult, error) {
	var paths []string
	err := godirwalk.Walk(w.dir, &godirwalk.Options{
		Callback: func(path string, de *godirwalk.Dirent) error {
			if path != w.dir && isHidden(path) {
				return godirwalk.SkipThis
			}
			if de.IsRegular() && mediatypes.FromExtension(path) != "" {
				paths = append(paths, path)
			}
			return nil
		},
	})
	if err != nil {
		return nil, fmt.Errorf("scan inbox %s: %w", w.dir, err)
	}
	if len(paths) == 0 {
		return []wallet.AddResult{}, nil
	}
	logging.Info("Inbox scan found %d files", len(paths))

	uploads := make([]wallet.Upload, 0, len(paths))
	kept := make([]string, 0, len(paths))
	for _, path := range paths {
		up, err := w.load(path)
		if err != nil {
			logging.Warn("Inbox file %s skipped: %v", path, err)
			continue
		}
		uploads = append(uploads, up)
		kept = append(kept, path)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	results := w.submit.Submit(ctx, uploads...)
	for i, res := range results {
		w.cleanup(kept[i], res)
	}
	return results, nil
}

// ImportFile validates and imports one file.
func (w *Watcher) ImportFile(ctx context.Context, path string) (wallet.AddResult, error) {
	up, err := w.load(path)
	if err != nil {
		return wallet.AddResult{Filename: filepath.Base(path), Outcome: wallet.OutcomeFailed, Err: err}, err
	}
	res := w.submit.Submit(ctx, up)[0]
	w.cleanup(path, res)
	return res, res.Err
}

func (w *Watcher) load(path string) (wallet.Upload, error) {
	return LoadFile(path, w.maxSize, Source)
}

// LoadFile reads path and checks it against the file-input contract: the
// extension first, then the sniffed content type and size.
func LoadFile(path string, maxSize int64, source string) (wallet.Upload, error) {
	if maxSize <= 0 {
		maxSize = mediatypes.DefaultMaxFileSize
	}
	name := filepath.Base(path)
	retry := filesystem.DefaultRetryConfig()

	info, err := filesystem.StatWithRetry(path, retry)
	if err != nil {
		return wallet.Upload{}, err
	}
	if !info.Mode().IsRegular() {
		return wallet.Upload{}, fmt.Errorf("%s is not a regular file", name)
	}
	if err := mediatypes.Validate(mediatypes.FromExtension(name), info.Size(), maxSize); err != nil {
		return wallet.Upload{}, err
	}

	data, err := filesystem.ReadFileWithRetry(path, maxSize, retry)
	if errors.Is(err, filesystem.ErrFileTooLarge) {
		return wallet.Upload{}, fmt.Errorf("%w: %s grew while reading", mediatypes.ErrTooLarge, name)
	}
	if err != nil {
		return wallet.Upload{}, err
	}
	contentType := mediatypes.Resolve("", name, data)
	if err := mediatypes.Validate(contentType, int64(len(data)), maxSize); err != nil {
		return wallet.Upload{}, err
	}

	return wallet.Upload{
		Filename:    name,
		ContentType: contentType,
		Data:        data,
		Source:      source,
	}, nil
}

// cleanup removes the file once the wallet holds its content.
func (w *Watcher) cleanup(path string, res wallet.AddResult) {
	switch res.Outcome {
	case wallet.OutcomeAdded, wallet.OutcomeDuplicate:
		if err := os.Remove(path); err != nil {
			logging.Warn("failed to remove imported inbox file %s: %v", path, err)
			return
		}
		logging.Debug("Removed inbox file %s (%s)", path, res.Outcome)
	}
}

func isHidden(path string) bool {
	return strings.HasPrefix(filepath.Base(path), ".")
}
