// Command walletctl manages a photo wallet's data directory from the
// command line.
//
// It builds the same application as the server from the same environment,
// runs a single operation and exits. The inbox watcher and metrics are not
// started. Stop the server before changing the wallet with walletctl.
//
// Usage:
//
//	walletctl [--json] [--verbose] <command> [arguments]
//
// Commands:
//
//	status                 Active and archived counts, capacity and database path.
//	list [--archived]      Photos in display order, or the archive.
//	add FILE...            Import files in order. Duplicates and files that
//	                       arrive once the wallet is full are skipped.
//	archive ID...          Move active photos to the archive.
//	archive-oldest N       Archive the N oldest active photos.
//	restore ID...          Return archived photos to the end of the list.
//	delete ID...           Permanently delete active photos.
//	purge ID... | --all    Permanently delete archived photos.
//	reorder ID...          Set the display order; every active id exactly once.
//	reset [--yes]          Wipe photos, caches and settings. Asks for
//	                       confirmation unless --yes is given, and refuses
//	                       when stdin is not a terminal.
//
// Environment:
//
//	DATA_DIR         Data directory (default: ./data)
//	DATABASE_DIR     Database directory (default: $DATA_DIR/db)
//	CACHE_DIR        Rendition cache directory (default: $DATA_DIR/cache)
//	WALLET_CAPACITY  Active photo ceiling (default: 12)
//	MAX_FILE_SIZE    Per-file byte ceiling (default: 10 MiB)
//	PERSIST_POLICY   optimistic or confirm-first (default: optimistic)
package main
