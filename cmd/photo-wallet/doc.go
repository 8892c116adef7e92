// Package main provides the entry point for the Photo Wallet server.
//
// Photo Wallet keeps a small, capacity-limited set of photos (12 by default)
// in an embedded SQLite record store and serves them over a JSON API. Each
// photo is stored with its original bytes and a 400x400 JPEG thumbnail.
// Older photos can be archived to make room and restored later.
//
// # Startup
//
//  1. GOMEMLIMIT is derived from MEMORY_LIMIT when running in a container
//  2. Configuration is read from the environment and directories are prepared
//  3. The record store is opened; older records are upgraded and missing
//     thumbnails backfilled
//  4. The Photo Store loads the active and archived lists
//  5. Background workers start: import queue, inbox watcher (if INBOX_DIR is
//     set), metrics collector and memory monitor
//  6. The HTTP server starts
//
// # Shutdown
//
// SIGINT or SIGTERM drains the HTTP server, stops the workers and closes the
// record store.
//
// # Configuration
//
//	DATA_DIR           data root (default ./data)
//	DATABASE_DIR       record store directory (default $DATA_DIR/db)
//	CACHE_DIR          response caches (default $DATA_DIR/cache)
//	INBOX_DIR          watched import directory (default disabled)
//	PORT               HTTP port (default 8080)
//	WALLET_CAPACITY    active photo ceiling (default 12)
//	MAX_FILE_SIZE      per-file byte limit (default 10485760)
//	PERSIST_POLICY     optimistic or confirm (default optimistic)
//	VIPS_ENABLED       use libvips for thumbnails (default false)
//	METRICS_ENABLED    expose /metrics (default true)
//	LOG_LEVEL          debug, info, warn or error (default info)
package main
