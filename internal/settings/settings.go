// Package settings keeps the small "has the user seen X" flags.
//
// Flags live in one of two scopes. Persistent flags are stored in a JSON
// file in the data directory and survive restarts; session flags live in
// process memory only. Keys are case-insensitive.
package settings

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/spf13/viper"

	"photo-wallet/internal/logging"
)

// Known flag keys. Other keys are accepted.
const (
	KeyWelcomeSeen            = "photo-wallet-welcome-seen"
	KeyGestureTutorialSeen    = "gesture-tutorial-seen"
	KeyInstallBannerDismissed = "install-banner-dismissed"
)

// FileName is the persistent settings file inside the data directory.
const FileName = "settings.json"

// Scope selects where a flag is kept.
type Scope int

const (
	Persistent Scope = iota
	Session
)

// String returns "persistent" or "session".
func (s Scope) String() string {
	if s == Session {
		return "session"
	}
	return "persistent"
}

// ParseScope maps "session" to Session and anything else, including "", to
// Persistent.
func ParseScope(s string) Scope {
	if strings.EqualFold(strings.TrimSpace(s), "session") {
		return Session
	}
	return Persistent
}

// ErrEmptyKey is returned by Set for a blank key.
var ErrEmptyKey = errors.New("settings key must not be empty")

// Store holds both scopes.
type Store struct {
	mu      sync.RWMutex
	path    string
	v       *viper.Viper
	session map[string]bool
}

// Open loads the persistent flags from dir/settings.json. A missing file is
// not an error.
func Open(dir string) (*Store, error) {
	s := &Store{
		path:    filepath.Join(dir, FileName),
		session: make(map[string]bool),
	}
	s.v = s.newViper()

	if _, err := os.Stat(s.path); err == nil {
		if err := s.v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read settings %s: %w", s.path, err)
		}
		logging.Debug("Loaded %d persistent settings from %s", len(s.v.AllKeys()), s.path)
	} else if !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("stat settings %s: %w", s.path, err)
	}
	return s, nil
}

func (s *Store) newViper() *viper.Viper {
	// Keys such as "a.b" are flags, not nested paths.
	v := viper.NewWithOptions(viper.KeyDelimiter("::"))
	v.SetConfigFile(s.path)
	v.SetConfigType("json")
	return v
}

// Path returns the persistent settings file path.
func (s *Store) Path() string {
	return s.path
}

// Get returns the flag, false when unset.
func (s *Store) Get(scope Scope, key string) bool {
	key = normalize(key)

	s.mu.RLock()
	defer s.mu.RUnlock()

	if scope == Session {
		return s.session[key]
	}
	return s.v.GetBool(key)
}

// Set stores the flag. Persistent writes go to disk immediately.
func (s *Store) Set(scope Scope, key string, value bool) error {
	key = normalize(key)
	if key == "" {
		return ErrEmptyKey
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if scope == Session {
		s.session[key] = value
		return nil
	}

	s.v.Set(key, value)
	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return fmt.Errorf("create settings directory: %w", err)
	}
	if err := s.v.WriteConfigAs(s.path); err != nil {
		return fmt.Errorf("write settings %s: %w", s.path, err)
	}
	return nil
}

// All returns every flag in scope.
func (s *Store) All(scope Scope) map[string]bool {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make(map[string]bool)
	if scope == Session {
		for k, v := range s.session {
			out[k] = v
		}
		return out
	}
	for _, k := range s.v.AllKeys() {
		out[k] = s.v.GetBool(k)
	}
	return out
}

// Keys returns the sorted keys set in scope.
func (s *Store) Keys(scope Scope) []string {
	all := s.All(scope)
	keys := make([]string, 0, len(all))
	for k := range all {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Clear removes the settings file and forgets both scopes.
func (s *Store) Clear() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.session = make(map[string]bool)
	s.v = s.newViper()

	if err := os.Remove(s.path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("remove settings %s: %w", s.path, err)
	}
	logging.Info("Cleared settings")
	return nil
}

func normalize(key string) string {
	return strings.ToLower(strings.TrimSpace(key))
}
