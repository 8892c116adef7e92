// Package cache provides named on-disk response caches.
//
// Each cache is a directory under the cache root and each entry is a file
// inside it. Names and keys are sanitized so they cannot escape the root.
package cache

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"photo-wallet/internal/logging"
)

// DisplayCache holds viewer renditions keyed by photo id.
const DisplayCache = "display-v1"

// ErrMiss is returned by Get when the entry does not exist.
var ErrMiss = errors.New("cache miss")

// Caches is a set of named caches rooted at one directory.
type Caches struct {
	root string
}

// Open creates root if needed.
func Open(root string) (*Caches, error) {
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, fmt.Errorf("create cache directory %s: %w", root, err)
	}
	return &Caches{root: root}, nil
}

// Root returns the cache root directory.
func (c *Caches) Root() string {
	return c.root
}

func (c *Caches) entryPath(name, key string) string {
	return filepath.Join(c.root, sanitize(name), sanitize(key))
}

// Get returns the cached bytes, or ErrMiss.
func (c *Caches) Get(name, key string) ([]byte, error) {
	data, err := os.ReadFile(c.entryPath(name, key))
	if errors.Is(err, fs.ErrNotExist) {
		return nil, ErrMiss
	}
	if err != nil {
		return nil, fmt.Errorf("read cache entry %s/%s: %w", name, key, err)
	}
	return data, nil
}

// Put stores data. The entry is written to a temporary file and renamed so
// readers never see a partial entry.
func (c *Caches) Put(name, key string, data []byte) error {
	dir := filepath.Join(c.root, sanitize(name))
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create cache %s: %w", name, err)
	}

	tmp, err := os.CreateTemp(dir, ".tmp-*")
	if err != nil {
		return fmt.Errorf("create cache entry %s/%s: %w", name, key, err)
	}
	_, werr := tmp.Write(data)
	cerr := tmp.Close()
	if err := errors.Join(werr, cerr); err != nil {
		_ = os.Remove(tmp.Name())
		return fmt.Errorf("write cache entry %s/%s: %w", name, key, err)
	}
	if err := os.Rename(tmp.Name(), c.entryPath(name, key)); err != nil {
		_ = os.Remove(tmp.Name())
		return fmt.Errorf("commit cache entry %s/%s: %w", name, key, err)
	}
	return nil
}

// Remove deletes one entry. A missing entry is not an error.
func (c *Caches) Remove(name, key string) error {
	err := os.Remove(c.entryPath(name, key))
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("remove cache entry %s/%s: %w", name, key, err)
	}
	return nil
}

// Names lists the caches that exist, sorted.
func (c *Caches) Names() ([]string, error) {
	entries, err := os.ReadDir(c.root)
	if errors.Is(err, fs.ErrNotExist) {
		return []string{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("list caches: %w", err)
	}

	names := []string{}
	for _, e := range entries {
		if e.IsDir() && !strings.HasPrefix(e.Name(), ".") {
			names = append(names, e.Name())
		}
	}
	sort.Strings(names)
	return names, nil
}

// Delete removes a whole cache.
func (c *Caches) Delete(name string) error {
	if err := os.RemoveAll(filepath.Join(c.root, sanitize(name))); err != nil {
		return fmt.Errorf("delete cache %s: %w", name, err)
	}
	logging.Debug("Deleted cache %s", name)
	return nil
}

// sanitize keeps letters, digits, '-', '_' and '.', replacing everything
// else with '_'. Leading dots are replaced so names cannot be "." or "..".
func sanitize(s string) string {
	var b strings.Builder
	for i, r := range s {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '_':
			b.WriteRune(r)
		case r == '.' && i > 0:
			b.WriteRune(r)
		default:
			b.WriteByte('_')
		}
	}
	if b.Len() == 0 {
		return "_"
	}
	return b.String()
}
