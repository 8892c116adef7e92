package reset

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
)

type fakeWorkers struct{ stopped bool }

func (f *fakeWorkers) Stop() []string {
	f.stopped = true
	return []string{"import-queue", "inbox-watcher"}
}

type fakeCaches struct {
	names    []string
	listErr  error
	deleted  []string
	failName string
}

func (f *fakeCaches) Names() ([]string, error) { return f.names, f.listErr }

func (f *fakeCaches) Delete(name string) error {
	if name == f.failName {
		return errors.New("busy")
	}
	f.deleted = append(f.deleted, name)
	return nil
}

type fakeCloser struct {
	closed bool
	err    error
}

func (f *fakeCloser) Close() error {
	f.closed = true
	return f.err
}

type fakeSettings struct {
	cleared bool
	err     error
}

func (f *fakeSettings) Clear() error {
	f.cleared = true
	return f.err
}

type fakeReloader struct {
	calls int
	err   error
}

func (f *fakeReloader) Reload(ctx context.Context) error {
	f.calls++
	return f.err
}

func touch(t *testing.T, path string) {
	t.Helper()
	if err := os.WriteFile(path, []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}
}

func TestRunClean(t *testing.T) {
	dir := t.TempDir()
	touch(t, filepath.Join(dir, "photo-wallet.db"))
	touch(t, filepath.Join(dir, "photo-wallet.db-wal"))
	touch(t, filepath.Join(dir, "old.db"))

	workers := &fakeWorkers{}
	caches := &fakeCaches{names: []string{"display-v1"}}
	db := &fakeCloser{}
	settings := &fakeSettings{}
	reloader := &fakeReloader{}

	r := Run(context.Background(), Targets{
		Workers:     workers,
		Caches:      caches,
		Database:    db,
		DatabaseDir: dir,
		Settings:    settings,
		Reloader:    reloader,
	})

	if err := r.Err(); err != nil {
		t.Fatalf("Run() errors = %v", err)
	}
	if !workers.stopped || !db.closed || !settings.cleared || reloader.calls != 1 {
		t.Errorf("steps: workers=%v db=%v settings=%v reloads=%d", workers.stopped, db.closed, settings.cleared, reloader.calls)
	}
	if r.Fallback {
		t.Error("clean reset should not use the fallback")
	}
	if len(r.CachesDeleted) != 1 || len(r.DatabasesDeleted) != 2 || len(r.WorkersStopped) != 2 {
		t.Errorf("report = %+v", r)
	}
	entries, _ := os.ReadDir(dir)
	if len(entries) != 0 {
		t.Errorf("database directory not empty: %v", entries)
	}
	if !r.Reloaded || !r.SettingsCleared {
		t.Errorf("report = %+v", r)
	}
}

func TestRunFallsBackWhenEnumerationFails(t *testing.T) {
	dir := t.TempDir()
	known := filepath.Join(dir, "photo-wallet.db")
	touch(t, known)

	reloader := &fakeReloader{}
	r := Run(context.Background(), Targets{
		DatabaseDir:   dir,
		Reloader:      reloader,
		listDatabases: func(string) ([]string, error) { return nil, errors.New("not supported") },
	})

	if err := r.Err(); err != nil {
		t.Fatalf("Run() errors = %v", err)
	}
	if _, err := os.Stat(known); !errors.Is(err, os.ErrNotExist) {
		t.Errorf("known database should be deleted, stat err = %v", err)
	}
	if len(r.DatabasesDeleted) != 1 || r.DatabasesDeleted[0] != "photo-wallet.db" {
		t.Errorf("DatabasesDeleted = %v", r.DatabasesDeleted)
	}
	if reloader.calls != 1 {
		t.Errorf("reload calls = %d, want 1", reloader.calls)
	}
}

func TestRunFailureStillReloads(t *testing.T) {
	dir := t.TempDir()
	var destroyed []string

	caches := &fakeCaches{listErr: errors.New("cache storage unavailable")}
	settings := &fakeSettings{err: errors.New("read-only")}
	reloader := &fakeReloader{}

	r := Run(context.Background(), Targets{
		Caches:        caches,
		DatabaseDir:   dir,
		DatabaseFile:  "wallet.db",
		Settings:      settings,
		Reloader:      reloader,
		listDatabases: func(string) ([]string, error) { return []string{}, nil },
		destroy: func(path string) error {
			destroyed = append(destroyed, filepath.Base(path))
			return nil
		},
	})

	if len(r.Errors) != 2 {
		t.Fatalf("Errors = %v, want 2", r.Errors)
	}
	if r.Err() == nil {
		t.Error("Err() should report failures")
	}
	if !r.Fallback {
		t.Error("failure should trigger the fallback")
	}
	if len(destroyed) != 1 || destroyed[0] != "wallet.db" {
		t.Errorf("fallback destroyed %v, want [wallet.db]", destroyed)
	}
	if reloader.calls != 1 || !r.Reloaded {
		t.Errorf("reload calls = %d, Reloaded = %v", reloader.calls, r.Reloaded)
	}
}

func TestRunReportsPartialCacheFailure(t *testing.T) {
	caches := &fakeCaches{names: []string{"a", "b", "c"}, failName: "b"}
	r := Run(context.Background(), Targets{Caches: caches})

	if len(r.CachesDeleted) != 2 {
		t.Errorf("CachesDeleted = %v, want [a c]", r.CachesDeleted)
	}
	if len(r.Errors) != 1 {
		t.Errorf("Errors = %v, want 1", r.Errors)
	}
	if r.Fallback {
		t.Error("no database directory, fallback should not run")
	}
}

func TestRunReloadFailure(t *testing.T) {
	r := Run(context.Background(), Targets{Reloader: &fakeReloader{err: errors.New("cannot open")}})
	if r.Reloaded {
		t.Error("Reloaded should be false")
	}
	if len(r.Errors) != 1 {
		t.Errorf("Errors = %v", r.Errors)
	}
}

func TestRunWithNothingToDo(t *testing.T) {
	r := Run(context.Background(), Targets{})
	if r.Err() != nil || r.Fallback || r.Reloaded {
		t.Errorf("empty reset report = %+v", r)
	}
}
