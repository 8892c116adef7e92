package logging

import (
	"bytes"
	"strings"
	"testing"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		name   string
		input  string
		want   LogLevel
		wantOK bool
	}{
		{"debug", "debug", LevelDebug, true},
		{"info", "info", LevelInfo, true},
		{"warn", "warn", LevelWarn, true},
		{"warning alias", "warning", LevelWarn, true},
		{"error", "error", LevelError, true},
		{"case insensitive", "DEBUG", LevelDebug, true},
		{"surrounding spaces", "  error ", LevelError, true},
		{"empty defaults to info", "", LevelInfo, false},
		{"unknown defaults to info", "verbose", LevelInfo, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := ParseLevel(tt.input)
			if got != tt.want || ok != tt.wantOK {
				t.Errorf("ParseLevel(%q) = (%v, %v), want (%v, %v)", tt.input, got, ok, tt.want, tt.wantOK)
			}
		})
	}
}

func TestLevelFromEnv(t *testing.T) {
	tests := []struct {
		name     string
		debug    string
		logLevel string
		want     LogLevel
	}{
		{"DEBUG wins", "true", "error", LevelDebug},
		{"DEBUG=1", "1", "", LevelDebug},
		{"DEBUG false falls through", "false", "warn", LevelWarn},
		{"LOG_LEVEL only", "", "error", LevelError},
		{"nothing set", "", "", LevelInfo},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv("DEBUG", tt.debug)
			t.Setenv("LOG_LEVEL", tt.logLevel)
			if got := levelFromEnv(); got != tt.want {
				t.Errorf("levelFromEnv() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestLevelGating(t *testing.T) {
	var buf bytes.Buffer
	SetOutput(&buf)
	defer SetOutput(discard{})

	original := GetLevel()
	defer SetLevel(original)

	SetLevel(LevelWarn)

	Debug("debug message %d", 1)
	Info("info message %d", 2)
	Warn("warn message %d", 3)
	Error("error message %d", 4)

	out := buf.String()
	if strings.Contains(out, "debug message") {
		t.Error("debug message should be suppressed at warn level")
	}
	if strings.Contains(out, "info message") {
		t.Error("info message should be suppressed at warn level")
	}
	if !strings.Contains(out, "warn message 3") {
		t.Errorf("warn message missing from output: %q", out)
	}
	if !strings.Contains(out, "error message 4") {
		t.Errorf("error message missing from output: %q", out)
	}
}

func TestPrintfIgnoresLevel(t *testing.T) {
	var buf bytes.Buffer
	SetOutput(&buf)
	defer SetOutput(discard{})

	original := GetLevel()
	defer SetLevel(original)

	SetLevel(LevelError)
	Printf("banner %s", "line")

	if !strings.Contains(buf.String(), "banner line") {
		t.Errorf("Printf output missing: %q", buf.String())
	}
}

func TestIsDebugEnabled(t *testing.T) {
	original := GetLevel()
	defer SetLevel(original)

	SetLevel(LevelDebug)
	if !IsDebugEnabled() {
		t.Error("IsDebugEnabled() = false at debug level")
	}
	SetLevel(LevelInfo)
	if IsDebugEnabled() {
		t.Error("IsDebugEnabled() = true at info level")
	}
}

func TestLogLevelString(t *testing.T) {
	tests := []struct {
		level LogLevel
		want  string
	}{
		{LevelDebug, "debug"},
		{LevelInfo, "info"},
		{LevelWarn, "warn"},
		{LevelError, "error"},
		{LogLevel(42), "unknown(42)"},
	}
	for _, tt := range tests {
		if got := tt.level.String(); got != tt.want {
			t.Errorf("LogLevel(%d).String() = %q, want %q", int(tt.level), got, tt.want)
		}
	}
}

type discard struct{}

func (discard) Write(p []byte) (int, error) { return len(p), nil }
