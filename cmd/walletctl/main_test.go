package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"image"
	"image/color"
	"image/jpeg"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"photo-wallet/internal/app"
	"photo-wallet/internal/database"
	"photo-wallet/internal/mediatypes"
	"photo-wallet/internal/startup"
	"photo-wallet/internal/wallet"
)

// run executes one walletctl invocation and returns its output.
func run(c *cli, stdin string, args ...string) (string, error) {
	var out bytes.Buffer
	cmd := c.rootCommand()
	cmd.SetArgs(args)
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetIn(strings.NewReader(stdin))
	err := cmd.ExecuteContext(context.Background())
	return out.String(), err
}

var errNoWallet = errors.New("wallet must not be opened")

// offlineCLI never opens a wallet and counts attempts.
func offlineCLI(opens *int, terminal bool) *cli {
	return &cli{
		open: func(context.Context) (*app.App, error) {
			*opens++
			return nil, errNoWallet
		},
		isTerminal: func() bool { return terminal },
	}
}

// =============================================================================
// Unit Tests
// =============================================================================

func TestCommandTree(t *testing.T) {
	opens := 0
	root := offlineCLI(&opens, false).rootCommand()

	want := []string{"status", "list", "add", "archive", "archive-oldest", "restore", "delete", "purge", "reorder", "reset"}
	for _, name := range want {
		cmd, _, err := root.Find([]string{name})
		if err != nil || cmd == root {
			t.Errorf("command %q not registered (err %v)", name, err)
		}
	}
	if root.PersistentFlags().Lookup("json") == nil {
		t.Error("expected a persistent --json flag")
	}
}

func TestArgumentValidation(t *testing.T) {
	tests := []struct {
		name string
		args []string
	}{
		{"status takes no arguments", []string{"status", "extra"}},
		{"add needs a file", []string{"add"}},
		{"archive needs an id", []string{"archive"}},
		{"archive-oldest needs a count", []string{"archive-oldest"}},
		{"archive-oldest rejects text", []string{"archive-oldest", "two"}},
		{"archive-oldest rejects zero", []string{"archive-oldest", "0"}},
		{"restore needs an id", []string{"restore"}},
		{"delete needs an id", []string{"delete"}},
		{"purge needs ids or --all", []string{"purge"}},
		{"purge rejects ids with --all", []string{"purge", "--all", "abc"}},
		{"reorder needs ids", []string{"reorder"}},
		{"unknown command", []string{"frobnicate"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			opens := 0
			if _, err := run(offlineCLI(&opens, false), "", tt.args...); err == nil {
				t.Errorf("%v: expected an error", tt.args)
			}
			if opens != 0 {
				t.Errorf("%v: wallet opened %d times, want 0", tt.args, opens)
			}
		})
	}
}

func TestOpenFailureIsReported(t *testing.T) {
	opens := 0
	_, err := run(offlineCLI(&opens, false), "", "status")
	if !errors.Is(err, errNoWallet) {
		t.Errorf("error = %v, want wrapped errNoWallet", err)
	}
	if opens != 1 {
		t.Errorf("opens = %d, want 1", opens)
	}
}

func TestResetRefusesWithoutTerminal(t *testing.T) {
	opens := 0
	_, err := run(offlineCLI(&opens, false), "reset\n", "reset")
	if err == nil || !strings.Contains(err.Error(), "--yes") {
		t.Errorf("error = %v, want a hint about --yes", err)
	}
	if opens != 0 {
		t.Errorf("opens = %d, want 0", opens)
	}
}

func TestResetCancelled(t *testing.T) {
	opens := 0
	out, err := run(offlineCLI(&opens, true), "no\n", "reset")
	if err == nil || !strings.Contains(err.Error(), "cancelled") {
		t.Errorf("error = %v, want cancelled", err)
	}
	if !strings.Contains(out, "Type \"reset\"") {
		t.Errorf("prompt missing from output %q", out)
	}
	if opens != 0 {
		t.Errorf("opens = %d, want 0", opens)
	}
}

func TestConfirm(t *testing.T) {
	tests := []struct {
		input string
		want  bool
	}{
		{"reset\n", true},
		{"  reset  \n", true},
		{"reset", true},
		{"RESET\n", false},
		{"yes\n", false},
		{"", false},
	}

	for _, tt := range tests {
		var prompt bytes.Buffer
		got, err := confirm(strings.NewReader(tt.input), &prompt)
		if err != nil {
			t.Fatalf("confirm(%q) error = %v", tt.input, err)
		}
		if got != tt.want {
			t.Errorf("confirm(%q) = %v, want %v", tt.input, got, tt.want)
		}
	}
}

func TestReportAdds(t *testing.T) {
	results := []wallet.AddResult{
		{Filename: "a.jpg", Outcome: wallet.OutcomeAdded, Photo: &database.Photo{ID: "id-a"}},
		{Filename: "b.jpg", Outcome: wallet.OutcomeDuplicate},
		{Filename: "c.jpg", Outcome: wallet.OutcomeCapacity, Err: wallet.ErrCapacityExceeded},
	}

	var out bytes.Buffer
	if err := reportAdds(&out, results, false); err != nil {
		t.Fatalf("reportAdds() error = %v", err)
	}
	for _, want := range []string{"added     a.jpg (id-a)", "duplicate b.jpg", "capacity  c.jpg"} {
		if !strings.Contains(out.String(), want) {
			t.Errorf("output %q missing %q", out.String(), want)
		}
	}

	results = append(results, wallet.AddResult{Filename: "d.gif", Outcome: wallet.OutcomeFailed, Err: mediatypes.ErrUnsupportedType})
	out.Reset()
	err := reportAdds(&out, results, true)
	if err == nil || !strings.Contains(err.Error(), "1 of 4") {
		t.Errorf("error = %v, want 1 of 4 failed", err)
	}
	var rows []map[string]string
	if err := json.Unmarshal(out.Bytes(), &rows); err != nil {
		t.Fatalf("invalid JSON output: %v", err)
	}
	if len(rows) != 4 || rows[0]["id"] != "id-a" || rows[3]["error"] == "" {
		t.Errorf("rows = %v", rows)
	}
}

// =============================================================================
// Integration Tests
// =============================================================================

func writeJPEG(t *testing.T, dir, name string, shade uint8) string {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, 48, 32))
	for y := 0; y < 32; y++ {
		for x := 0; x < 48; x++ {
			img.Set(x, y, color.RGBA{R: shade, G: uint8(x * 5), B: uint8(y * 7), A: 255})
		}
	}
	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, nil); err != nil {
		t.Fatal(err)
	}
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, buf.Bytes(), 0o600); err != nil {
		t.Fatal(err)
	}
	return path
}

// walletCLI returns a cli whose commands all open the same temporary wallet.
func walletCLI(t *testing.T) func() *cli {
	t.Helper()
	if testing.Short() {
		t.Skip("skipping SQLite-backed command test in short mode")
	}

	dir := t.TempDir()
	cfg := &startup.Config{
		DataDir:       dir,
		DatabaseDir:   filepath.Join(dir, "db"),
		CacheDir:      filepath.Join(dir, "cache"),
		Capacity:      2,
		MaxFileSize:   1 << 20,
		PersistPolicy: "optimistic",
	}
	cfg.DatabasePath = filepath.Join(cfg.DatabaseDir, database.DefaultFileName)
	if err := cfg.Prepare(); err != nil {
		t.Fatalf("Prepare() error = %v", err)
	}

	return func() *cli {
		return &cli{
			open:       func(ctx context.Context) (*app.App, error) { return app.Open(ctx, cfg) },
			isTerminal: func() bool { return false },
		}
	}
}

func listIDs(t *testing.T, newCLI func() *cli, extra ...string) []string {
	t.Helper()
	out, err := run(newCLI(), "", append([]string{"list", "--json"}, extra...)...)
	if err != nil {
		t.Fatalf("list error = %v", err)
	}
	var photos []database.Photo
	if err := json.Unmarshal([]byte(out), &photos); err != nil {
		t.Fatalf("invalid list output %q: %v", out, err)
	}
	ids := make([]string, len(photos))
	for i, p := range photos {
		ids[i] = p.ID
	}
	return ids
}

func TestWalletLifecycle(t *testing.T) {
	newCLI := walletCLI(t)
	src := t.TempDir()
	a := writeJPEG(t, src, "a.jpg", 10)
	b := writeJPEG(t, src, "b.jpg", 120)
	c := writeJPEG(t, src, "c.jpg", 240)

	out, err := run(newCLI(), "", "add", a, a, b, c)
	if err != nil {
		t.Fatalf("add error = %v\n%s", err, out)
	}
	for _, want := range []string{"added     a.jpg", "duplicate a.jpg", "added     b.jpg", "capacity  c.jpg"} {
		if !strings.Contains(out, want) {
			t.Errorf("add output %q missing %q", out, want)
		}
	}
	if _, err := os.Stat(a); err != nil {
		t.Errorf("source file removed: %v", err)
	}

	ids := listIDs(t, newCLI)
	if len(ids) != 2 {
		t.Fatalf("active ids = %v, want 2", ids)
	}

	t.Run("Reorder", func(t *testing.T) {
		if _, err := run(newCLI(), "", "reorder", ids[1], ids[0]); err != nil {
			t.Fatalf("reorder error = %v", err)
		}
		got := listIDs(t, newCLI)
		if len(got) != 2 || got[0] != ids[1] || got[1] != ids[0] {
			t.Errorf("order = %v, want [%s %s]", got, ids[1], ids[0])
		}
		if _, err := run(newCLI(), "", "reorder", ids[0]); err == nil {
			t.Error("expected an error for a partial order")
		}
	})

	t.Run("ArchiveAndRestore", func(t *testing.T) {
		if _, err := run(newCLI(), "", "archive", ids[0]); err != nil {
			t.Fatalf("archive error = %v", err)
		}
		if got := listIDs(t, newCLI, "--archived"); len(got) != 1 || got[0] != ids[0] {
			t.Errorf("archived = %v, want [%s]", got, ids[0])
		}

		out, err := run(newCLI(), "", "add", c)
		if err != nil || !strings.Contains(out, "added     c.jpg") {
			t.Fatalf("add after archive = %q, %v", out, err)
		}
		if _, err := run(newCLI(), "", "restore", ids[0]); !errors.Is(err, wallet.ErrCapacityExceeded) {
			t.Errorf("restore into full wallet error = %v, want ErrCapacityExceeded", err)
		}

		out, err = run(newCLI(), "", "archive-oldest", "1")
		if err != nil {
			t.Fatalf("archive-oldest error = %v", err)
		}
		if !strings.Contains(out, "archived "+ids[1]) {
			t.Errorf("archive-oldest output %q, want %s archived", out, ids[1])
		}
		if _, err := run(newCLI(), "", "restore", ids[0]); err != nil {
			t.Fatalf("restore error = %v", err)
		}
		active := listIDs(t, newCLI)
		if len(active) != 2 || active[1] != ids[0] {
			t.Errorf("active after restore = %v, want %s last", active, ids[0])
		}
	})

	t.Run("DeleteAndPurge", func(t *testing.T) {
		active := listIDs(t, newCLI)
		if _, err := run(newCLI(), "", "delete", active[0]); err != nil {
			t.Fatalf("delete error = %v", err)
		}
		if _, err := run(newCLI(), "", "delete", "no-such-photo"); !errors.Is(err, wallet.ErrNotFound) {
			t.Errorf("delete unknown error = %v, want ErrNotFound", err)
		}
		if _, err := run(newCLI(), "", "purge", "--all"); err != nil {
			t.Fatalf("purge error = %v", err)
		}
		if got := listIDs(t, newCLI, "--archived"); len(got) != 0 {
			t.Errorf("archived after purge = %v, want none", got)
		}
	})

	t.Run("Status", func(t *testing.T) {
		out, err := run(newCLI(), "", "status", "--json")
		if err != nil {
			t.Fatalf("status error = %v", err)
		}
		var status struct {
			Active   int `json:"active"`
			Archived int `json:"archived"`
			Capacity int `json:"capacity"`
		}
		if err := json.Unmarshal([]byte(out), &status); err != nil {
			t.Fatalf("invalid status output %q: %v", out, err)
		}
		if status.Active != 1 || status.Archived != 0 || status.Capacity != 2 {
			t.Errorf("status = %+v", status)
		}
	})

	t.Run("Reset", func(t *testing.T) {
		out, err := run(newCLI(), "", "reset", "--yes")
		if err != nil {
			t.Fatalf("reset error = %v\n%s", err, out)
		}
		if !strings.Contains(out, "Settings cleared:  true") {
			t.Errorf("reset output %q", out)
		}
		if got := listIDs(t, newCLI); len(got) != 0 {
			t.Errorf("active after reset = %v, want none", got)
		}
	})
}
