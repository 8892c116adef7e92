package memory

import (
	"runtime/debug"
	"testing"
)

func TestConfigureFromEnv(t *testing.T) {
	tests := []struct {
		name        string
		memLimit    string
		ratio       string
		wantSource  string
		wantLimit   int64
		wantRatio   float64
		wantConfigd bool
	}{
		{
			name:       "Nothing set",
			wantSource: "none",
		},
		{
			name:        "Container limit with default ratio",
			memLimit:    "1073741824",
			wantSource:  "MEMORY_LIMIT",
			wantLimit:   858993459,
			wantRatio:   DefaultMemoryRatio,
			wantConfigd: true,
		},
		{
			name:        "Custom ratio",
			memLimit:    "1000000000",
			ratio:       "0.5",
			wantSource:  "MEMORY_LIMIT",
			wantLimit:   500000000,
			wantRatio:   0.5,
			wantConfigd: true,
		},
		{
			name:        "Out of range ratio falls back",
			memLimit:    "1000000000",
			ratio:       "1.5",
			wantSource:  "MEMORY_LIMIT",
			wantLimit:   800000000,
			wantRatio:   DefaultMemoryRatio,
			wantConfigd: true,
		},
		{
			name:       "Invalid limit",
			memLimit:   "lots",
			wantSource: "none",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			old := debug.SetMemoryLimit(-1)
			t.Cleanup(func() { debug.SetMemoryLimit(old) })

			t.Setenv("GOMEMLIMIT", "")
			t.Setenv("MEMORY_LIMIT", tt.memLimit)
			t.Setenv("MEMORY_RATIO", tt.ratio)

			got := ConfigureFromEnv()
			if got.Source != tt.wantSource || got.Configured != tt.wantConfigd {
				t.Fatalf("ConfigureFromEnv() = %+v, want source %q configured %v", got, tt.wantSource, tt.wantConfigd)
			}
			if got.GoMemLimit != tt.wantLimit {
				t.Errorf("GoMemLimit = %d, want %d", got.GoMemLimit, tt.wantLimit)
			}
			if got.Ratio != tt.wantRatio {
				t.Errorf("Ratio = %v, want %v", got.Ratio, tt.wantRatio)
			}
			if tt.wantConfigd && debug.SetMemoryLimit(-1) != tt.wantLimit {
				t.Errorf("runtime limit = %d, want %d", debug.SetMemoryLimit(-1), tt.wantLimit)
			}
		})
	}
}

func TestConfigureFromEnvHonoursGOMEMLIMIT(t *testing.T) {
	old := debug.SetMemoryLimit(-1)
	t.Cleanup(func() { debug.SetMemoryLimit(old) })

	debug.SetMemoryLimit(500 << 20)
	t.Setenv("GOMEMLIMIT", "500MiB")
	t.Setenv("MEMORY_LIMIT", "1073741824")

	got := ConfigureFromEnv()
	if got.Source != "GOMEMLIMIT" || !got.Configured || got.GoMemLimit != 500<<20 {
		t.Errorf("ConfigureFromEnv() = %+v, want GOMEMLIMIT 500MiB", got)
	}
	if got.ContainerLimit != 0 {
		t.Errorf("Expected MEMORY_LIMIT to be ignored, got %d", got.ContainerLimit)
	}
}

func TestHumanBytes(t *testing.T) {
	tests := []struct {
		in   int64
		want string
	}{
		{512, "512 B"},
		{1536, "1.5 KiB"},
		{400 << 20, "400.0 MiB"},
		{2 << 30, "2.0 GiB"},
	}
	for _, tt := range tests {
		if got := humanBytes(tt.in); got != tt.want {
			t.Errorf("humanBytes(%d) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
