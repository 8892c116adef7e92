package cache

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func TestPutGetRemove(t *testing.T) {
	c, err := Open(filepath.Join(t.TempDir(), "cache"))
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}

	if _, err := c.Get(DisplayCache, "p1"); !errors.Is(err, ErrMiss) {
		t.Fatalf("Get() on empty cache error = %v, want ErrMiss", err)
	}

	if err := c.Put(DisplayCache, "p1", []byte("rendition")); err != nil {
		t.Fatalf("Put() error = %v", err)
	}
	got, err := c.Get(DisplayCache, "p1")
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if string(got) != "rendition" {
		t.Errorf("Get() = %q, want rendition", got)
	}

	if err := c.Put(DisplayCache, "p1", []byte("replaced")); err != nil {
		t.Fatalf("Put() overwrite error = %v", err)
	}
	if got, _ := c.Get(DisplayCache, "p1"); string(got) != "replaced" {
		t.Errorf("Get() after overwrite = %q", got)
	}

	if err := c.Remove(DisplayCache, "p1"); err != nil {
		t.Fatalf("Remove() error = %v", err)
	}
	if err := c.Remove(DisplayCache, "p1"); err != nil {
		t.Errorf("Remove() of missing entry error = %v", err)
	}
	if _, err := c.Get(DisplayCache, "p1"); !errors.Is(err, ErrMiss) {
		t.Errorf("Get() after Remove error = %v, want ErrMiss", err)
	}
}

func TestNamesAndDelete(t *testing.T) {
	root := t.TempDir()
	c, err := Open(root)
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}

	names, err := c.Names()
	if err != nil || len(names) != 0 {
		t.Fatalf("Names() on empty root = %v, %v", names, err)
	}

	_ = c.Put("b-cache", "k", []byte("1"))
	_ = c.Put("a-cache", "k", []byte("2"))
	if err := os.WriteFile(filepath.Join(root, "stray.txt"), []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}

	names, err = c.Names()
	if err != nil {
		t.Fatalf("Names() error = %v", err)
	}
	if len(names) != 2 || names[0] != "a-cache" || names[1] != "b-cache" {
		t.Fatalf("Names() = %v, want [a-cache b-cache]", names)
	}

	if err := c.Delete("a-cache"); err != nil {
		t.Fatalf("Delete() error = %v", err)
	}
	names, _ = c.Names()
	if len(names) != 1 || names[0] != "b-cache" {
		t.Errorf("Names() after Delete = %v", names)
	}
	if err := c.Delete("never-existed"); err != nil {
		t.Errorf("Delete() of missing cache error = %v", err)
	}
}

func TestSanitize(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"display-v1", "display-v1"},
		{"8f14e45f-ceea-467f-a0e6-7a4b8b8b4f0e", "8f14e45f-ceea-467f-a0e6-7a4b8b8b4f0e"},
		{"../escape", "_._escape"},
		{"..", "_."},
		{"a/b", "a_b"},
		{"", "_"},
		{"file.jpg", "file.jpg"},
	}
	for _, tt := range tests {
		if got := sanitize(tt.in); got != tt.want {
			t.Errorf("sanitize(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestKeysCannotEscapeRoot(t *testing.T) {
	root := filepath.Join(t.TempDir(), "cache")
	c, err := Open(root)
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	if err := c.Put("..", "../../outside", []byte("x")); err != nil {
		t.Fatalf("Put() error = %v", err)
	}
	if _, err := os.Stat(filepath.Join(filepath.Dir(root), "outside")); !errors.Is(err, os.ErrNotExist) {
		t.Errorf("entry escaped cache root, stat err = %v", err)
	}
}
