// Package reset returns the wallet to a first-run state.
//
// Run stops background workers, deletes the response caches, closes and
// deletes the database files, clears both settings scopes and finally asks
// the application to reload. Any step may be absent. A failure in any step
// is logged, the known database file is deleted directly as a fallback and
// the reload still happens.
package reset

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"

	"photo-wallet/internal/database"
	"photo-wallet/internal/logging"
	"photo-wallet/internal/metrics"
)

// WorkerStopper stops the background workers and names them.
type WorkerStopper interface {
	Stop() []string
}

// CacheStore lists and deletes named caches.
type CacheStore interface {
	Names() ([]string, error)
	Delete(name string) error
}

// SettingsClearer forgets every settings flag.
type SettingsClearer interface {
	Clear() error
}

// Reloader rebuilds the application from an empty data directory.
type Reloader interface {
	Reload(ctx context.Context) error
}

// Targets are the subsystems a reset touches. Nil fields are skipped.
type Targets struct {
	Workers  WorkerStopper
	Caches   CacheStore
	Database interface{ Close() error }
	// DatabaseDir is searched for *.db files.
	DatabaseDir string
	// DatabaseFile is the known database file name, deleted directly when
	// enumeration fails.
	DatabaseFile string
	Settings     SettingsClearer
	Reloader     Reloader

	// listDatabases and destroy default to the database package.
	listDatabases func(dir string) ([]string, error)
	destroy       func(path string) error
}

// Report describes what a reset did.
type Report struct {
	WorkersStopped   []string `json:"workersStopped"`
	CachesDeleted    []string `json:"cachesDeleted"`
	DatabasesDeleted []string `json:"databasesDeleted"`
	SettingsCleared  bool     `json:"settingsCleared"`
	Fallback         bool     `json:"fallback"`
	Reloaded         bool     `json:"reloaded"`
	Errors           []string `json:"errors,omitempty"`
}

// Err joins the recorded errors, nil for a clean reset.
func (r Report) Err() error {
	if len(r.Errors) == 0 {
		return nil
	}
	errs := make([]error, len(r.Errors))
	for i, e := range r.Errors {
		errs[i] = errors.New(e)
	}
	return errors.Join(errs...)
}

// Run performs the reset. It always attempts the reload.
func Run(ctx context.Context, t Targets) Report {
	if t.listDatabases == nil {
		t.listDatabases = database.ListFiles
	}
	if t.destroy == nil {
		t.destroy = database.Destroy
	}
	if t.DatabaseFile == "" {
		t.DatabaseFile = database.DefaultFileName
	}

	logging.Warn("Hard reset requested")
	var r Report

	fail := func(step string, err error) {
		logging.Error("Hard reset: %s failed: %v", step, err)
		r.Errors = append(r.Errors, fmt.Sprintf("%s: %v", step, err))
	}

	if t.Workers != nil {
		r.WorkersStopped = t.Workers.Stop()
		logging.Info("Hard reset: stopped %d workers", len(r.WorkersStopped))
	}

	if t.Caches != nil {
		if err := deleteCaches(t.Caches, &r); err != nil {
			fail("delete caches", err)
		}
	}

	if t.Database != nil {
		if err := t.Database.Close(); err != nil {
			fail("close database", err)
		}
	}
	if t.DatabaseDir != "" {
		if err := deleteDatabases(t, &r); err != nil {
			fail("delete database", err)
		}
	}

	if t.Settings != nil {
		if err := t.Settings.Clear(); err != nil {
			fail("clear settings", err)
		} else {
			r.SettingsCleared = true
		}
	}

	if len(r.Errors) > 0 && t.DatabaseDir != "" {
		r.Fallback = true
		known := filepath.Join(t.DatabaseDir, t.DatabaseFile)
		if err := t.destroy(known); err != nil {
			fail("fallback database delete", err)
		} else {
			logging.Info("Hard reset: fallback deleted %s", known)
		}
	}

	if t.Reloader != nil {
		if err := t.Reloader.Reload(ctx); err != nil {
			fail("reload", err)
		} else {
			r.Reloaded = true
		}
	}

	status := "clean"
	if r.Fallback {
		status = "fallback"
	}
	metrics.HardResetsTotal.WithLabelValues(status).Inc()
	logging.Info("Hard reset finished (%s): %d caches, %d databases deleted", status, len(r.CachesDeleted), len(r.DatabasesDeleted))
	return r
}

func deleteCaches(c CacheStore, r *Report) error {
	names, err := c.Names()
	if err != nil {
		return err
	}
	var errs []error
	for _, name := range names {
		if err := c.Delete(name); err != nil {
			errs = append(errs, err)
			continue
		}
		r.CachesDeleted = append(r.CachesDeleted, name)
	}
	return errors.Join(errs...)
}

// deleteDatabases removes every database file in the directory. When the
// directory cannot be listed the known file is deleted instead.
func deleteDatabases(t Targets, r *Report) error {
	paths, err := t.listDatabases(t.DatabaseDir)
	if err != nil {
		logging.Warn("Hard reset: cannot list databases (%v), deleting %s directly", err, t.DatabaseFile)
		paths = []string{filepath.Join(t.DatabaseDir, t.DatabaseFile)}
	}

	var errs []error
	for _, path := range paths {
		if err := t.destroy(path); err != nil {
			errs = append(errs, err)
			continue
		}
		r.DatabasesDeleted = append(r.DatabasesDeleted, filepath.Base(path))
	}
	return errors.Join(errs...)
}
