package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	_ "github.com/mattn/go-sqlite3" // SQLite3 driver

	"photo-wallet/internal/logging"
	"photo-wallet/internal/metrics"
)

// Default timeout for database operations
const defaultTimeout = 5 * time.Second

// DefaultFileName is the database file created inside the database directory.
const DefaultFileName = "photo-wallet.db"

var (
	// ErrNotFound is returned when no record matches the given id.
	ErrNotFound = errors.New("photo not found")
	// ErrDuplicateKey is returned when inserting a record whose id already exists.
	ErrDuplicateKey = errors.New("photo id already exists")
)

// ThumbnailDeriver produces a thumbnail from original image bytes. It is used
// to backfill records written before thumbnails existed.
type ThumbnailDeriver func(ctx context.Context, original []byte) ([]byte, error)

// Options tunes how the database is opened.
type Options struct {
	// DeriveThumbnail backfills missing thumbnails at open. Nil leaves them
	// missing so they are derived on demand.
	DeriveThumbnail ThumbnailDeriver
	// BackfillWorkers bounds parallel thumbnail derivation (0 = CPU count).
	BackfillWorkers int
}

// Database is the embedded record store for photos.
type Database struct {
	db     *sql.DB
	dbPath string
	mu     sync.RWMutex
}

// New opens (or creates) the database file at dbPath, applies schema
// migrations and upgrades records written by older schema versions.
// The parent directory must already exist and be writable.
func New(ctx context.Context, dbPath string, opts *Options) (*Database, error) {
	if opts == nil {
		opts = &Options{}
	}
	logging.Info("Database path: %s", dbPath)

	if err := diagnoseDatabasePermissions(dbPath); err != nil {
		logging.Warn("Database permission diagnostics: %v", err)
	}

	// busy_timeout helps prevent "database is locked" errors
	connStr := fmt.Sprintf("%s?_journal_mode=WAL&_synchronous=NORMAL&_busy_timeout=5000", dbPath)

	db, err := sql.Open("sqlite3", connStr)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	pingCtx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	if err := db.PingContext(pingCtx); err != nil {
		if closeErr := db.Close(); closeErr != nil {
			logging.Error("failed to close database after ping failure: %v", closeErr)
		}
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	db.SetMaxOpenConns(4)
	db.SetMaxIdleConns(2)
	db.SetConnMaxLifetime(time.Hour)

	d := &Database{
		db:     db,
		dbPath: dbPath,
	}

	if err := d.initialize(ctx); err != nil {
		if closeErr := db.Close(); closeErr != nil {
			logging.Error("failed to close database after initialization failure: %v", closeErr)
		}
		return nil, fmt.Errorf("failed to initialize database schema: %w", err)
	}

	if err := d.upgradeRecords(ctx); err != nil {
		if closeErr := db.Close(); closeErr != nil {
			logging.Error("failed to close database after upgrade failure: %v", closeErr)
		}
		return nil, fmt.Errorf("failed to upgrade records: %w", err)
	}

	if opts.DeriveThumbnail != nil {
		// Backfill failures are not fatal; thumbnails are derived on demand later.
		if err := d.backfillThumbnails(ctx, opts.DeriveThumbnail, opts.BackfillWorkers); err != nil {
			logging.Warn("Thumbnail backfill incomplete: %v", err)
		}
	}

	logging.Info("Database initialized successfully at %s", dbPath)
	return d, nil
}

func (d *Database) initialize(ctx context.Context) error {
	schema := `
	CREATE TABLE IF NOT EXISTS photos (
		id TEXT PRIMARY KEY,
		filename TEXT NOT NULL DEFAULT '',
		content_type TEXT NOT NULL DEFAULT '',
		size INTEGER NOT NULL DEFAULT 0,
		original BLOB NOT NULL,
		thumbnail BLOB,
		sort_order INTEGER NOT NULL DEFAULT 0,
		created_at INTEGER NOT NULL,
		archived INTEGER,
		archived_at INTEGER,
		schema_version INTEGER NOT NULL DEFAULT 1
	);

	CREATE TABLE IF NOT EXISTS metadata (
		key TEXT PRIMARY KEY,
		value TEXT
	);
	`

	if _, err := d.db.ExecContext(ctx, schema); err != nil {
		return err
	}

	if err := d.runMigrations(ctx); err != nil {
		return err
	}

	// Indexes reference migrated columns, so they come last.
	indexes := `
	CREATE INDEX IF NOT EXISTS idx_photos_active_order ON photos(archived, sort_order);
	CREATE INDEX IF NOT EXISTS idx_photos_archived_at ON photos(archived, archived_at);
	`
	_, err := d.db.ExecContext(ctx, indexes)
	return err
}

// columnMigration adds a column that older databases lack and optionally
// backfills existing rows.
type columnMigration struct {
	column   string
	ddl      string
	backfill string
}

// Applied in order; later backfills may rely on earlier columns.
var columnMigrations = []columnMigration{
	{
		column:   "content_type",
		ddl:      `ALTER TABLE photos ADD COLUMN content_type TEXT NOT NULL DEFAULT ''`,
		backfill: "",
	},
	{
		column:   "size",
		ddl:      `ALTER TABLE photos ADD COLUMN size INTEGER NOT NULL DEFAULT 0`,
		backfill: `UPDATE photos SET size = length(original)`,
	},
	{
		column: "thumbnail",
		ddl:    `ALTER TABLE photos ADD COLUMN thumbnail BLOB`,
	},
	{
		column: "archived",
		ddl:    `ALTER TABLE photos ADD COLUMN archived INTEGER`,
	},
	{
		column: "archived_at",
		ddl:    `ALTER TABLE photos ADD COLUMN archived_at INTEGER`,
	},
	{
		column: "schema_version",
		ddl:    `ALTER TABLE photos ADD COLUMN schema_version INTEGER NOT NULL DEFAULT 1`,
		backfill: `UPDATE photos SET schema_version = CASE
			WHEN archived IS NOT NULL THEN 3
			WHEN thumbnail IS NOT NULL THEN 2
			ELSE 1
		END`,
	},
}

// runMigrations adds columns missing from databases created by older builds.
func (d *Database) runMigrations(ctx context.Context) error {
	for _, m := range columnMigrations {
		var exists bool
		err := d.db.QueryRowContext(ctx, `
			SELECT COUNT(*) > 0
			FROM pragma_table_info('photos')
			WHERE name = ?
		`, m.column).Scan(&exists)
		if err != nil {
			return fmt.Errorf("failed to check for %s column: %w", m.column, err)
		}
		if exists {
			continue
		}

		logging.Info("Migrating database: adding %s column to photos table", m.column)
		if _, err := d.db.ExecContext(ctx, m.ddl); err != nil {
			return fmt.Errorf("failed to add %s column: %w", m.column, err)
		}
		if m.backfill != "" {
			if _, err := d.db.ExecContext(ctx, m.backfill); err != nil {
				return fmt.Errorf("failed to backfill %s column: %w", m.column, err)
			}
		}
		logging.Info("Migration complete: %s column added", m.column)
	}
	return nil
}

// Path returns the database file path.
func (d *Database) Path() string {
	return d.dbPath
}

// Close closes the database connection.
func (d *Database) Close() error {
	return d.db.Close()
}

// beginTx starts a write transaction. The caller must finish it with endTx.
func (d *Database) beginTx(ctx context.Context) (*sql.Tx, time.Time, error) {
	start := time.Now()
	tx, err := d.db.BeginTx(ctx, nil)
	return tx, start, err
}

// endTx commits or rolls back a transaction.
func (d *Database) endTx(tx *sql.Tx, start time.Time, err error) error {
	duration := time.Since(start).Seconds()

	if err != nil {
		metrics.DBTransactionDuration.WithLabelValues("rollback").Observe(duration)
		if rbErr := tx.Rollback(); rbErr != nil {
			return errors.Join(err, fmt.Errorf("rollback also failed: %w", rbErr))
		}
		return err
	}

	metrics.DBTransactionDuration.WithLabelValues("commit").Observe(duration)
	return tx.Commit()
}

// recordQuery records database query metrics
func recordQuery(operation string, start time.Time, err error) {
	duration := time.Since(start).Seconds()
	status := "success"
	if err != nil {
		status = "error"
	}
	metrics.DBQueryTotal.WithLabelValues(operation, status).Inc()
	metrics.DBQueryDuration.WithLabelValues(operation).Observe(duration)
}

// ListFiles enumerates database files (*.db) in dir, sorted by name.
func ListFiles(dir string) ([]string, error) {
	matches, err := filepath.Glob(filepath.Join(dir, "*.db"))
	if err != nil {
		return nil, err
	}
	sort.Strings(matches)
	return matches, nil
}

// Destroy deletes a database file along with its WAL and SHM companions.
// Missing files are not an error.
func Destroy(dbPath string) error {
	var errs []error
	for _, p := range []string{dbPath, dbPath + "-wal", dbPath + "-shm"} {
		if err := os.Remove(p); err != nil && !os.IsNotExist(err) {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// diagnoseDatabasePermissions checks database directory and file permissions
func diagnoseDatabasePermissions(dbPath string) error {
	dir := filepath.Dir(dbPath)

	dirInfo, err := os.Stat(dir)
	if err != nil {
		return fmt.Errorf("cannot stat database directory: %w", err)
	}
	logging.Debug("Database directory: %s (mode: %v)", dir, dirInfo.Mode())

	testFile := filepath.Join(dir, ".perm-test")
	if err := os.WriteFile(testFile, []byte("test"), 0o600); err != nil {
		return fmt.Errorf("database directory not writable: %w", err)
	}
	_ = os.Remove(testFile)

	for _, suffix := range []string{"", "-wal", "-shm"} {
		p := dbPath + suffix
		info, err := os.Stat(p)
		if err != nil {
			continue
		}
		label := strings.TrimPrefix(suffix, "-")
		if label == "" {
			label = "main"
		}
		logging.Debug("Database %s file: %s (mode: %v, size: %d bytes)", label, p, info.Mode(), info.Size())
		if info.Mode().Perm()&0o200 == 0 {
			logging.Warn("Database %s file is read-only! Mode: %v", label, info.Mode())
		}
	}

	return nil
}
