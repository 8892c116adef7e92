package startup

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"

	"photo-wallet/internal/database"
	"photo-wallet/internal/logging"
	"photo-wallet/internal/mediatypes"
	"photo-wallet/internal/wallet"
)

// Config holds all application configuration.
type Config struct {
	DataDir         string
	DatabaseDir     string
	CacheDir        string
	InboxDir        string
	Port            string
	Capacity        int
	MaxFileSize     int64
	PersistPolicy   string
	VipsEnabled     bool
	MetricsEnabled  bool
	LogStaticFiles  bool
	LogHealthChecks bool

	// Derived paths
	DatabasePath string

	// Feature flags based on directory availability
	CacheEnabled bool
	InboxEnabled bool
}

func newViper() *viper.Viper {
	v := viper.New()
	v.SetDefault("DATA_DIR", "./data")
	v.SetDefault("DATABASE_DIR", "")
	v.SetDefault("CACHE_DIR", "")
	v.SetDefault("INBOX_DIR", "")
	v.SetDefault("PORT", "8080")
	v.SetDefault("WALLET_CAPACITY", wallet.DefaultCapacity)
	v.SetDefault("MAX_FILE_SIZE", mediatypes.DefaultMaxFileSize)
	v.SetDefault("PERSIST_POLICY", "optimistic")
	v.SetDefault("VIPS_ENABLED", false)
	v.SetDefault("METRICS_ENABLED", true)
	v.SetDefault("LOG_STATIC_FILES", false)
	v.SetDefault("LOG_HEALTH_CHECKS", true)
	v.AutomaticEnv()
	return v
}

// ReadConfig reads configuration from the environment without logging or
// touching the file system beyond resolving absolute paths.
func ReadConfig() (*Config, error) {
	v := newViper()

	dataDir, err := filepath.Abs(v.GetString("DATA_DIR"))
	if err != nil {
		return nil, fmt.Errorf("failed to resolve data directory path: %w", err)
	}

	cfg := &Config{
		DataDir:         dataDir,
		DatabaseDir:     v.GetString("DATABASE_DIR"),
		CacheDir:        v.GetString("CACHE_DIR"),
		InboxDir:        v.GetString("INBOX_DIR"),
		Port:            v.GetString("PORT"),
		Capacity:        v.GetInt("WALLET_CAPACITY"),
		MaxFileSize:     v.GetInt64("MAX_FILE_SIZE"),
		PersistPolicy:   strings.ToLower(strings.TrimSpace(v.GetString("PERSIST_POLICY"))),
		VipsEnabled:     v.GetBool("VIPS_ENABLED"),
		MetricsEnabled:  v.GetBool("METRICS_ENABLED"),
		LogStaticFiles:  v.GetBool("LOG_STATIC_FILES"),
		LogHealthChecks: v.GetBool("LOG_HEALTH_CHECKS"),
	}

	if cfg.DatabaseDir == "" {
		cfg.DatabaseDir = filepath.Join(dataDir, "db")
	}
	if cfg.CacheDir == "" {
		cfg.CacheDir = filepath.Join(dataDir, "cache")
	}
	for _, p := range []*string{&cfg.DatabaseDir, &cfg.CacheDir, &cfg.InboxDir} {
		if *p == "" {
			continue
		}
		abs, err := filepath.Abs(*p)
		if err != nil {
			return nil, fmt.Errorf("failed to resolve path %s: %w", *p, err)
		}
		*p = abs
	}
	cfg.DatabasePath = filepath.Join(cfg.DatabaseDir, database.DefaultFileName)
	cfg.InboxEnabled = cfg.InboxDir != ""

	if cfg.Capacity <= 0 {
		return nil, fmt.Errorf("WALLET_CAPACITY must be positive, got %d", cfg.Capacity)
	}
	if cfg.MaxFileSize <= 0 {
		return nil, fmt.Errorf("MAX_FILE_SIZE must be positive, got %d", cfg.MaxFileSize)
	}
	if _, err := wallet.PolicyByName(cfg.PersistPolicy); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Prepare creates the data and database directories, which must be
// writable, and the optional cache and inbox directories.
func (c *Config) Prepare() error {
	for _, d := range []struct{ path, name string }{
		{c.DataDir, "data"},
		{c.DatabaseDir, "database"},
	} {
		if err := ensureDirectory(d.path, d.name); err != nil {
			return fmt.Errorf("%s directory error: %w", d.name, err)
		}
		if err := testWriteAccess(d.path); err != nil {
			return fmt.Errorf("%s directory is not writable: %w", d.name, err)
		}
	}

	c.CacheEnabled = setupOptionalDir(c.CacheDir, "cache")
	if c.InboxEnabled {
		c.InboxEnabled = setupOptionalDir(c.InboxDir, "inbox")
	}
	return nil
}

// LoadConfig loads, logs and validates configuration for the server.
func LoadConfig() (*Config, error) {
	printBanner()
	logSystemInfo()

	cfg, err := ReadConfig()
	if err != nil {
		return nil, err
	}

	logging.Info("------------------------------------------------------------")
	logging.Info("CONFIGURATION")
	logging.Info("------------------------------------------------------------")
	logging.Info("  DATA_DIR:            %s", cfg.DataDir)
	logging.Info("  DATABASE_DIR:        %s", cfg.DatabaseDir)
	logging.Info("  CACHE_DIR:           %s", cfg.CacheDir)
	logging.Info("  INBOX_DIR:           %s", valueOrDisabled(cfg.InboxDir))
	logging.Info("  PORT:                %s", cfg.Port)
	logging.Info("  WALLET_CAPACITY:     %d", cfg.Capacity)
	logging.Info("  MAX_FILE_SIZE:       %s", FormatBytes(cfg.MaxFileSize))
	logging.Info("  PERSIST_POLICY:      %s", cfg.PersistPolicy)
	logging.Info("  VIPS_ENABLED:        %v", cfg.VipsEnabled)
	logging.Info("  METRICS_ENABLED:     %v", cfg.MetricsEnabled)
	logging.Info("  LOG_STATIC_FILES:    %v", cfg.LogStaticFiles)
	logging.Info("  LOG_HEALTH_CHECKS:   %v", cfg.LogHealthChecks)
	logging.Info("  LOG_LEVEL:           %s", logging.GetLevel())

	logging.Info("")
	logging.Info("------------------------------------------------------------")
	logging.Info("DIRECTORY SETUP")
	logging.Info("------------------------------------------------------------")

	if err := cfg.Prepare(); err != nil {
		return nil, err
	}
	logging.Info("  [OK] Data and database directories are writable")

	logging.Info("")
	logging.Info("  Feature availability:")
	logging.Info("    Database:    ENABLED (required)")
	logging.Info("    Cache:       %s", enabledString(cfg.CacheEnabled))
	logging.Info("    Inbox:       %s", enabledString(cfg.InboxEnabled))
	logging.Info("    Metrics:     %s", enabledString(cfg.MetricsEnabled))

	return cfg, nil
}

func valueOrDisabled(s string) string {
	if s == "" {
		return "(disabled)"
	}
	return s
}

func setupOptionalDir(path, name string) bool {
	logging.Debug("  Setting up %s directory: %s", name, path)

	if err := os.MkdirAll(path, 0o755); err != nil {
		logging.Warn("    Failed to create %s directory: %v", name, err)
		logging.Warn("    %s will be disabled", name)
		return false
	}
	if err := testWriteAccess(path); err != nil {
		logging.Warn("    %s directory is not writable: %v", name, err)
		logging.Warn("    %s will be disabled", name)
		return false
	}

	logging.Debug("    [OK] %s directory ready", name)
	return true
}

func ensureDirectory(path, name string) error {
	logging.Debug("  Checking %s directory: %s", name, path)

	info, err := os.Stat(path)
	if os.IsNotExist(err) {
		if err := os.MkdirAll(path, 0o755); err != nil {
			return fmt.Errorf("failed to create directory: %w", err)
		}
		logging.Debug("    [OK] Created directory: %s", path)
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to stat directory: %w", err)
	}
	if !info.IsDir() {
		return fmt.Errorf("path exists but is not a directory")
	}
	return nil
}

func testWriteAccess(dir string) error {
	testFile := filepath.Join(dir, ".write-test")
	if err := os.WriteFile(testFile, []byte("test"), 0o644); err != nil {
		return err
	}
	if err := os.Remove(testFile); err != nil {
		logging.Warn("failed to remove write test file %s: %v", testFile, err)
	}
	return nil
}

func enabledString(enabled bool) string {
	if enabled {
		return "ENABLED"
	}
	return "DISABLED"
}

// FormatBytes renders n with a binary unit suffix.
func FormatBytes(n int64) string {
	const unit = 1024
	if n < unit {
		return fmt.Sprintf("%d B", n)
	}
	div, exp := int64(unit), 0
	for m := n / unit; m >= unit; m /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %ciB", float64(n)/float64(div), "KMGTPE"[exp])
}
