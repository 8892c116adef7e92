package database

import (
	"context"
	"database/sql"
	"errors"
	"strconv"
	"time"
)

const (
	metaRecordsUpgradedAt = "records_upgraded_at"
	metaRecordVersion     = "record_version"
)

// GetMetadata retrieves a metadata value by key. A missing key yields "".
func (d *Database) GetMetadata(ctx context.Context, key string) (string, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	var value sql.NullString
	err := d.db.QueryRowContext(ctx, "SELECT value FROM metadata WHERE key = ?", key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return "", nil
	}
	if err != nil {
		return "", err
	}
	return value.String, nil
}

// SetMetadata sets a metadata key-value pair.
func (d *Database) SetMetadata(ctx context.Context, key, value string) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	_, err := d.db.ExecContext(ctx, `
		INSERT INTO metadata (key, value) VALUES (?, ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value
	`, key, value)
	return err
}

// RecordVersion returns the record schema version the store was last upgraded to.
func (d *Database) RecordVersion(ctx context.Context) (int, error) {
	value, err := d.GetMetadata(ctx, metaRecordVersion)
	if err != nil || value == "" {
		return 0, err
	}
	return strconv.Atoi(value)
}

// LastUpgrade returns when legacy records were last upgraded.
// Returns zero time if no upgrade has run.
func (d *Database) LastUpgrade(ctx context.Context) (time.Time, error) {
	value, err := d.GetMetadata(ctx, metaRecordsUpgradedAt)
	if err != nil || value == "" {
		return time.Time{}, err
	}
	return time.Parse(time.RFC3339, value)
}
