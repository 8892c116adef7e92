package database

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/mattn/go-sqlite3"
)

// TestRecordQuery tests that recording metrics never panics, including for
// failed and unnamed operations.
func TestRecordQuery(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name      string
		operation string
		err       error
	}{
		{name: "successful query", operation: "get_active", err: nil},
		{name: "failed query", operation: "insert", err: errors.New("disk I/O error")},
		{name: "empty operation name", operation: "", err: nil},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			recordQuery(tt.operation, time.Now().Add(-time.Millisecond), tt.err)
		})
	}
}

func TestPhotoUpdateIsEmpty(t *testing.T) {
	t.Parallel()

	order := 2
	archived := true
	now := time.Now()

	tests := []struct {
		name   string
		update PhotoUpdate
		want   bool
	}{
		{"zero value", PhotoUpdate{}, true},
		{"order", PhotoUpdate{Order: &order}, false},
		{"archived", PhotoUpdate{Archived: &archived}, false},
		{"archived at", PhotoUpdate{ArchivedAt: &now}, false},
		{"clear archived at", PhotoUpdate{ClearArchivedAt: true}, false},
		{"thumbnail", PhotoUpdate{Thumbnail: []byte{1}}, false},
		{"empty thumbnail slice", PhotoUpdate{Thumbnail: []byte{}}, false},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if got := tt.update.IsEmpty(); got != tt.want {
				t.Errorf("IsEmpty() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestListFilesAndDestroy(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	for _, name := range []string{"b.db", "a.db", "a.db-wal", "a.db-shm", "notes.txt"} {
		if err := os.WriteFile(filepath.Join(dir, name), []byte("x"), 0o600); err != nil {
			t.Fatalf("WriteFile(%s) error = %v", name, err)
		}
	}

	files, err := ListFiles(dir)
	if err != nil {
		t.Fatalf("ListFiles() error = %v", err)
	}
	want := []string{filepath.Join(dir, "a.db"), filepath.Join(dir, "b.db")}
	if len(files) != len(want) {
		t.Fatalf("ListFiles() = %v, want %v", files, want)
	}
	for i := range want {
		if files[i] != want[i] {
			t.Errorf("ListFiles()[%d] = %q, want %q", i, files[i], want[i])
		}
	}

	if err := Destroy(filepath.Join(dir, "a.db")); err != nil {
		t.Fatalf("Destroy() error = %v", err)
	}
	for _, name := range []string{"a.db", "a.db-wal", "a.db-shm"} {
		if _, err := os.Stat(filepath.Join(dir, name)); !os.IsNotExist(err) {
			t.Errorf("%s still exists after Destroy", name)
		}
	}
	if _, err := os.Stat(filepath.Join(dir, "b.db")); err != nil {
		t.Errorf("b.db should be untouched: %v", err)
	}

	// Destroying a missing file is not an error.
	if err := Destroy(filepath.Join(dir, "missing.db")); err != nil {
		t.Errorf("Destroy(missing) error = %v", err)
	}
}

func TestPhotoHasThumbnail(t *testing.T) {
	t.Parallel()

	if (&Photo{}).HasThumbnail() {
		t.Error("HasThumbnail() = true for empty photo")
	}
	if !(&Photo{Thumbnail: []byte{1}}).HasThumbnail() {
		t.Error("HasThumbnail() = false with thumbnail bytes")
	}
}

func TestIsConstraintViolation(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		err  error
		want bool
	}{
		{
			name: "primary key collision",
			err:  sqlite3.Error{Code: sqlite3.ErrConstraint, ExtendedCode: sqlite3.ErrConstraintPrimaryKey},
			want: true,
		},
		{
			name: "wrapped primary key collision",
			err:  fmt.Errorf("exec: %w", sqlite3.Error{Code: sqlite3.ErrConstraint, ExtendedCode: sqlite3.ErrConstraintPrimaryKey}),
			want: true,
		},
		{
			name: "not null violation",
			err:  sqlite3.Error{Code: sqlite3.ErrConstraint, ExtendedCode: sqlite3.ErrConstraintNotNull},
		},
		{
			name: "check violation",
			err:  sqlite3.Error{Code: sqlite3.ErrConstraint, ExtendedCode: sqlite3.ErrConstraintCheck},
		},
		{name: "other error", err: errors.New("disk I/O error")},
		{name: "nil", err: nil},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if got := isConstraintViolation(tt.err); got != tt.want {
				t.Errorf("isConstraintViolation(%v) = %v, want %v", tt.err, got, tt.want)
			}
		})
	}
}
