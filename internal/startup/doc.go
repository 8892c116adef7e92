// Package startup handles configuration loading, build information and the
// banner-style startup and shutdown logging.
//
// # Configuration
//
// Configuration is read from environment variables through viper by
// [ReadConfig]; [LoadConfig] also prints the banner, logs every value and
// prepares the directories:
//
//   - DATA_DIR: settings file location (default: ./data)
//   - DATABASE_DIR: SQLite files (default: ${DATA_DIR}/db)
//   - CACHE_DIR: response caches (default: ${DATA_DIR}/cache)
//   - INBOX_DIR: watched import directory (default: disabled)
//   - PORT: HTTP server port (default: 8080)
//   - WALLET_CAPACITY: maximum active photos (default: 12)
//   - MAX_FILE_SIZE: per-file byte limit (default: 10485760)
//   - PERSIST_POLICY: optimistic or confirm (default: optimistic)
//   - VIPS_ENABLED: use libvips for thumbnails (default: false)
//   - METRICS_ENABLED: expose /metrics (default: true)
//   - LOG_STATIC_FILES, LOG_HEALTH_CHECKS: request log filters
//
// # Directory Setup
//
// The data and database directories are required and must be writable. The
// cache and inbox directories are optional; if they cannot be created the
// feature is disabled with a warning.
//
// # Build Information
//
// Version, Commit and BuildTime are injected via ldflags and exposed via
// [GetBuildInfo].
package startup
