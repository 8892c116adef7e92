package settings

import (
	"errors"
	"os"
	"testing"
)

func TestPersistentFlagsSurviveReopen(t *testing.T) {
	dir := t.TempDir()

	s, err := Open(dir)
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	if s.Get(Persistent, KeyWelcomeSeen) {
		t.Fatal("unset flag should read false")
	}
	if err := s.Set(Persistent, KeyWelcomeSeen, true); err != nil {
		t.Fatalf("Set() error = %v", err)
	}
	if err := s.Set(Persistent, "custom.flag", true); err != nil {
		t.Fatalf("Set(custom.flag) error = %v", err)
	}

	reopened, err := Open(dir)
	if err != nil {
		t.Fatalf("Open() after write error = %v", err)
	}
	if !reopened.Get(Persistent, KeyWelcomeSeen) {
		t.Error("persistent flag lost after reopen")
	}
	if !reopened.Get(Persistent, "Custom.Flag") {
		t.Error("keys should be case-insensitive and may contain dots")
	}
}

func TestSessionFlagsAreNotPersisted(t *testing.T) {
	dir := t.TempDir()

	s, err := Open(dir)
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	if err := s.Set(Session, KeyGestureTutorialSeen, true); err != nil {
		t.Fatalf("Set() error = %v", err)
	}
	if !s.Get(Session, KeyGestureTutorialSeen) {
		t.Error("session flag not readable")
	}
	if s.Get(Persistent, KeyGestureTutorialSeen) {
		t.Error("session flag leaked into persistent scope")
	}
	if _, err := os.Stat(s.Path()); !errors.Is(err, os.ErrNotExist) {
		t.Errorf("settings file should not exist, stat err = %v", err)
	}

	reopened, err := Open(dir)
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	if reopened.Get(Session, KeyGestureTutorialSeen) {
		t.Error("session flag survived reopen")
	}
}

func TestClear(t *testing.T) {
	s, err := Open(t.TempDir())
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	_ = s.Set(Persistent, KeyInstallBannerDismissed, true)
	_ = s.Set(Session, KeyWelcomeSeen, true)

	if err := s.Clear(); err != nil {
		t.Fatalf("Clear() error = %v", err)
	}
	if len(s.All(Persistent)) != 0 || len(s.All(Session)) != 0 {
		t.Errorf("flags remain after Clear: %v %v", s.All(Persistent), s.All(Session))
	}
	if _, err := os.Stat(s.Path()); !errors.Is(err, os.ErrNotExist) {
		t.Errorf("settings file should be removed, stat err = %v", err)
	}
	if err := s.Clear(); err != nil {
		t.Errorf("second Clear() error = %v", err)
	}
}

func TestSetEmptyKey(t *testing.T) {
	s, err := Open(t.TempDir())
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	if err := s.Set(Persistent, "  ", true); !errors.Is(err, ErrEmptyKey) {
		t.Errorf("Set() error = %v, want ErrEmptyKey", err)
	}
}

func TestParseScope(t *testing.T) {
	tests := []struct {
		in   string
		want Scope
	}{
		{"", Persistent},
		{"persistent", Persistent},
		{"session", Session},
		{"SESSION", Session},
		{"other", Persistent},
	}
	for _, tt := range tests {
		if got := ParseScope(tt.in); got != tt.want {
			t.Errorf("ParseScope(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestKeysSorted(t *testing.T) {
	s, err := Open(t.TempDir())
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	_ = s.Set(Session, "b", true)
	_ = s.Set(Session, "a", false)

	keys := s.Keys(Session)
	if len(keys) != 2 || keys[0] != "a" || keys[1] != "b" {
		t.Errorf("Keys() = %v, want [a b]", keys)
	}
}
