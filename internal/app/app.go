// Package app assembles the photo wallet from its configuration and
// rebuilds it after a hard reset.
package app

import (
	"context"
	"fmt"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	"photo-wallet/internal/cache"
	"photo-wallet/internal/database"
	"photo-wallet/internal/dedup"
	"photo-wallet/internal/filesystem"
	"photo-wallet/internal/inbox"
	"photo-wallet/internal/logging"
	"photo-wallet/internal/media"
	"photo-wallet/internal/memory"
	"photo-wallet/internal/metrics"
	"photo-wallet/internal/reset"
	"photo-wallet/internal/settings"
	"photo-wallet/internal/startup"
	"photo-wallet/internal/wallet"
	"photo-wallet/internal/workers"
)

// collectInterval is how often the metrics collector samples the wallet.
const collectInterval = 30 * time.Second

// App owns every component built from a Config.
type App struct {
	cfg    *startup.Config
	thumbs *media.ThumbnailGenerator

	// resetMu serializes hard resets; mu guards the components.
	resetMu sync.Mutex

	mu       sync.RWMutex
	db       *database.Database
	store    *wallet.Store
	queue    *wallet.Queue
	settings *settings.Store
	caches   *cache.Caches
	inbox    *inbox.Watcher
	workers  *workers.Group

	ready atomic.Bool
}

// Open builds the application and starts its background workers. The
// directories in cfg must already be prepared.
func Open(ctx context.Context, cfg *startup.Config) (*App, error) {
	if cfg.VipsEnabled {
		if err := media.InitVips(); err != nil {
			logging.Warn("libvips unavailable, using pure Go thumbnails: %v", err)
		}
	}
	useVips := cfg.VipsEnabled && media.IsVipsAvailable()
	startup.LogThumbnailInit(cfg.VipsEnabled, useVips)

	filesystem.SetDefaultVolumeResolver(filesystem.NewVolumeResolver(map[string]string{
		"data":     cfg.DataDir,
		"database": cfg.DatabaseDir,
		"cache":    cfg.CacheDir,
		"inbox":    cfg.InboxDir,
	}))

	a := &App{
		cfg:    cfg,
		thumbs: media.NewThumbnailGenerator(media.ThumbnailOptions{UseVips: useVips}),
	}
	if err := a.build(ctx); err != nil {
		return nil, err
	}
	return a, nil
}

// build opens the record store, loads the Photo Store and starts the
// workers. On failure nothing is left running.
func (a *App) build(ctx context.Context) (err error) {
	policy, err := wallet.PolicyByName(a.cfg.PersistPolicy)
	if err != nil {
		return err
	}

	dbStart := time.Now()
	db, err := database.New(ctx, a.cfg.DatabasePath, &database.Options{DeriveThumbnail: a.thumbs.Generate})
	if err != nil {
		return fmt.Errorf("failed to initialize database: %w", err)
	}
	startup.LogDatabaseInit(time.Since(dbStart))
	defer func() {
		if err != nil {
			if closeErr := db.Close(); closeErr != nil {
				logging.Error("failed to close database after startup failure: %v", closeErr)
			}
		}
	}()

	store := wallet.New(db, wallet.Options{
		Capacity:    a.cfg.Capacity,
		Thumbnailer: a.thumbs,
		Detector:    dedup.New(),
		Policy:      policy,
	})
	if err := store.Load(ctx); err != nil {
		return err
	}
	if err := store.LoadArchived(ctx); err != nil {
		return err
	}
	active, archived := store.Stats()
	startup.LogStoreInit(active, archived, store.Capacity(), policy.Name())

	st, err := settings.Open(a.cfg.DataDir)
	if err != nil {
		return err
	}

	var caches *cache.Caches
	if a.cfg.CacheEnabled {
		if caches, err = cache.Open(a.cfg.CacheDir); err != nil {
			logging.Warn("Response caches disabled: %v", err)
			caches, err = nil, nil
		}
	}

	monitor := memory.NewMonitor(memory.DefaultConfig())
	queue := wallet.NewQueue(store)
	queue.SetBackpressure(monitor)

	group := &workers.Group{}
	group.Add(queue)

	var watcher *inbox.Watcher
	if a.cfg.InboxEnabled {
		watcher = inbox.New(a.cfg.InboxDir, queue, inbox.Options{MaxFileSize: a.cfg.MaxFileSize})
		group.Add(watcher)
	}
	startup.LogInboxInit(a.cfg.InboxDir, watcher != nil)

	if a.cfg.MetricsEnabled {
		group.Add(metrics.NewCollector(a, collectInterval))
	}
	// Workers stop in reverse order; the monitor goes first so a paused
	// import is released before anything waits on the queue.
	group.Add(monitor)

	a.mu.Lock()
	a.db, a.store, a.queue = db, store, queue
	a.settings, a.caches, a.inbox, a.workers = st, caches, watcher, group
	a.mu.Unlock()

	group.Start()
	a.ready.Store(true)
	return nil
}

// Store returns the Photo Store, nil while a reset is in progress.
func (a *App) Store() *wallet.Store {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.store
}

// Queue returns the import queue.
func (a *App) Queue() *wallet.Queue {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.queue
}

// Settings returns the settings flags.
func (a *App) Settings() *settings.Store {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.settings
}

// Caches returns the response caches, nil when disabled.
func (a *App) Caches() *cache.Caches {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.caches
}

// Inbox returns the inbox watcher, nil when disabled.
func (a *App) Inbox() *inbox.Watcher {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.inbox
}

// Database returns the record store.
func (a *App) Database() *database.Database {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.db
}

// Ready reports whether the wallet is loaded and serving.
func (a *App) Ready() bool {
	return a.ready.Load()
}

// Config returns the configuration the application was built from.
func (a *App) Config() *startup.Config {
	return a.cfg
}

// GetStats samples the wallet for the metrics collector.
func (a *App) GetStats() metrics.Stats {
	a.mu.RLock()
	store, db := a.store, a.db
	a.mu.RUnlock()

	stats := metrics.Stats{Capacity: a.cfg.Capacity}
	if store == nil {
		return stats
	}
	stats.ActivePhotos, stats.ArchivedPhotos = store.Stats()
	stats.Capacity = store.Capacity()

	if db != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if s, err := db.Stats(ctx); err == nil {
			stats.ContentBytes = s.ContentBytes
		} else {
			logging.Debug("Skipping content size sample: %v", err)
		}
	}
	return stats
}

// HardReset wipes the database, caches and settings and rebuilds the
// application from an empty data directory. Requests arriving meanwhile see
// a not-ready wallet.
func (a *App) HardReset(ctx context.Context) reset.Report {
	a.resetMu.Lock()
	defer a.resetMu.Unlock()

	a.ready.Store(false)

	a.mu.Lock()
	t := reset.Targets{
		DatabaseDir:  a.cfg.DatabaseDir,
		DatabaseFile: filepath.Base(a.cfg.DatabasePath),
		Reloader:     a,
	}
	if a.workers != nil {
		t.Workers = a.workers
	}
	if a.caches != nil {
		t.Caches = a.caches
	} else if a.cfg.CacheDir != "" {
		if c, err := cache.Open(a.cfg.CacheDir); err == nil {
			t.Caches = c
		}
	}
	if a.db != nil {
		t.Database = a.db
	}
	if a.settings != nil {
		t.Settings = a.settings
	}
	if a.store != nil {
		a.store.Reset()
	}
	a.db, a.store, a.queue = nil, nil, nil
	a.settings, a.caches, a.inbox, a.workers = nil, nil, nil, nil
	a.mu.Unlock()

	return reset.Run(ctx, t)
}

// Reload rebuilds the application after a reset.
func (a *App) Reload(ctx context.Context) error {
	if err := a.cfg.Prepare(); err != nil {
		return err
	}
	return a.build(ctx)
}

// Close stops the workers and closes the record store.
func (a *App) Close() error {
	a.ready.Store(false)

	a.mu.Lock()
	group, db := a.workers, a.db
	a.workers, a.db = nil, nil
	a.mu.Unlock()

	if group != nil {
		group.Stop()
	}
	if a.cfg.VipsEnabled {
		media.ShutdownVips()
	}
	if db != nil {
		return db.Close()
	}
	return nil
}
