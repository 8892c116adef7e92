package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/mattn/go-sqlite3"
)

// Columns read for listings. The original blob is only loaded by Get.
const listColumns = `id, filename, content_type, size, sort_order, created_at,
	COALESCE(archived, 0), archived_at, thumbnail`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanPhoto(row rowScanner, withOriginal bool) (*Photo, error) {
	var (
		p          Photo
		createdAt  int64
		archived   int
		archivedAt sql.NullInt64
		thumbnail  []byte
	)

	dest := []any{&p.ID, &p.Filename, &p.ContentType, &p.Size, &p.Order, &createdAt, &archived, &archivedAt, &thumbnail}
	if withOriginal {
		dest = append(dest, &p.Original)
	}
	if err := row.Scan(dest...); err != nil {
		return nil, err
	}

	p.CreatedAt = time.Unix(0, createdAt).UTC()
	p.Archived = archived != 0
	if archivedAt.Valid {
		t := time.Unix(0, archivedAt.Int64).UTC()
		p.ArchivedAt = &t
	}
	if len(thumbnail) > 0 {
		p.Thumbnail = thumbnail
	}
	return &p, nil
}

func (d *Database) queryPhotos(ctx context.Context, operation, query string, args ...any) ([]*Photo, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	start := time.Now()
	rows, err := d.db.QueryContext(ctx, query, args...)
	if err != nil {
		recordQuery(operation, start, err)
		return nil, err
	}
	defer rows.Close()

	photos := []*Photo{}
	for rows.Next() {
		p, err := scanPhoto(rows, false)
		if err != nil {
			recordQuery(operation, start, err)
			return nil, err
		}
		photos = append(photos, p)
	}
	err = rows.Err()
	recordQuery(operation, start, err)
	return photos, err
}

// GetActive returns non-archived photos ordered by display position.
// Ties on position are broken by id so the order is stable.
func (d *Database) GetActive(ctx context.Context) ([]*Photo, error) {
	return d.queryPhotos(ctx, "get_active",
		`SELECT `+listColumns+` FROM photos
		WHERE COALESCE(archived, 0) = 0
		ORDER BY sort_order ASC, id ASC`)
}

// GetArchived returns archived photos, most recently archived first.
func (d *Database) GetArchived(ctx context.Context) ([]*Photo, error) {
	return d.queryPhotos(ctx, "get_archived",
		`SELECT `+listColumns+` FROM photos
		WHERE archived = 1
		ORDER BY COALESCE(archived_at, 0) DESC, id ASC`)
}

// Get returns a single photo including its original bytes.
func (d *Database) Get(ctx context.Context, id string) (*Photo, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	start := time.Now()
	row := d.db.QueryRowContext(ctx, `SELECT `+listColumns+`, original FROM photos WHERE id = ?`, id)
	p, err := scanPhoto(row, true)
	if errors.Is(err, sql.ErrNoRows) {
		recordQuery("get", start, nil)
		return nil, ErrNotFound
	}
	recordQuery("get", start, err)
	if err != nil {
		return nil, err
	}
	return p, nil
}

// Insert stores a new photo. It fails with ErrDuplicateKey when the id exists.
func (d *Database) Insert(ctx context.Context, p *Photo) error {
	if p.ID == "" {
		return fmt.Errorf("insert photo: empty id")
	}
	if len(p.Original) == 0 {
		return fmt.Errorf("insert photo %s: empty content", p.ID)
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	size := p.Size
	if size == 0 {
		size = int64(len(p.Original))
	}
	createdAt := p.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now()
	}
	var archivedAt sql.NullInt64
	if p.ArchivedAt != nil {
		archivedAt = sql.NullInt64{Int64: p.ArchivedAt.UnixNano(), Valid: true}
	}
	var thumbnail any
	if len(p.Thumbnail) > 0 {
		thumbnail = p.Thumbnail
	}

	start := time.Now()
	_, err := d.db.ExecContext(ctx, `
		INSERT INTO photos (id, filename, content_type, size, original, thumbnail,
			sort_order, created_at, archived, archived_at, schema_version)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, p.ID, p.Filename, p.ContentType, size, p.Original, thumbnail,
		p.Order, createdAt.UnixNano(), boolToInt(p.Archived), archivedAt, currentRecordVersion)
	recordQuery("insert", start, err)

	if isConstraintViolation(err) {
		return ErrDuplicateKey
	}
	if err != nil {
		return fmt.Errorf("insert photo %s: %w", p.ID, err)
	}

	p.Size = size
	p.CreatedAt = time.Unix(0, createdAt.UnixNano()).UTC()
	return nil
}

// Update applies a partial update to one photo.
func (d *Database) Update(ctx context.Context, id string, u PhotoUpdate) error {
	if u.IsEmpty() {
		return d.requireExists(ctx, id)
	}

	var (
		sets []string
		args []any
	)
	if u.Filename != nil {
		sets = append(sets, "filename = ?")
		args = append(args, *u.Filename)
	}
	if u.Order != nil {
		sets = append(sets, "sort_order = ?")
		args = append(args, *u.Order)
	}
	if u.Archived != nil {
		sets = append(sets, "archived = ?")
		args = append(args, boolToInt(*u.Archived))
	}
	switch {
	case u.ClearArchivedAt:
		sets = append(sets, "archived_at = NULL")
	case u.ArchivedAt != nil:
		sets = append(sets, "archived_at = ?")
		args = append(args, u.ArchivedAt.UnixNano())
	}
	if u.Thumbnail != nil {
		sets = append(sets, "thumbnail = ?")
		args = append(args, u.Thumbnail)
	}
	args = append(args, id)

	d.mu.Lock()
	defer d.mu.Unlock()

	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	start := time.Now()
	res, err := d.db.ExecContext(ctx,
		"UPDATE photos SET "+strings.Join(sets, ", ")+" WHERE id = ?", args...)
	recordQuery("update", start, err)
	if err != nil {
		return fmt.Errorf("update photo %s: %w", id, err)
	}
	return requireAffected(res)
}

func (d *Database) requireExists(ctx context.Context, id string) error {
	d.mu.RLock()
	defer d.mu.RUnlock()

	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	start := time.Now()
	var one int
	err := d.db.QueryRowContext(ctx, "SELECT 1 FROM photos WHERE id = ?", id).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		recordQuery("exists", start, nil)
		return ErrNotFound
	}
	recordQuery("exists", start, err)
	if err != nil {
		return fmt.Errorf("update photo %s: %w", id, err)
	}
	return nil
}

// Remove deletes a photo. Removing an unknown id is not an error.
func (d *Database) Remove(ctx context.Context, id string) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	start := time.Now()
	_, err := d.db.ExecContext(ctx, "DELETE FROM photos WHERE id = ?", id)
	recordQuery("remove", start, err)
	if err != nil {
		return fmt.Errorf("remove photo %s: %w", id, err)
	}
	return nil
}

// ReorderBatch applies all order updates atomically. If any id is unknown the
// whole batch is rolled back and ErrNotFound is returned.
func (d *Database) ReorderBatch(ctx context.Context, updates []OrderUpdate) (err error) {
	if len(updates) == 0 {
		return nil
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	start := time.Now()
	defer func() { recordQuery("reorder_batch", start, err) }()

	tx, txStart, err := d.beginTx(ctx)
	if err != nil {
		return fmt.Errorf("begin reorder: %w", err)
	}

	stmt, applyErr := tx.PrepareContext(ctx, "UPDATE photos SET sort_order = ? WHERE id = ?")
	if applyErr == nil {
		for _, u := range updates {
			var res sql.Result
			res, applyErr = stmt.ExecContext(ctx, u.Order, u.ID)
			if applyErr == nil {
				applyErr = requireAffected(res)
			}
			if applyErr != nil {
				if !errors.Is(applyErr, ErrNotFound) {
					applyErr = fmt.Errorf("reorder photo %s: %w", u.ID, applyErr)
				}
				break
			}
		}
		if closeErr := stmt.Close(); closeErr != nil && applyErr == nil {
			applyErr = closeErr
		}
	}

	return d.endTx(tx, txStart, applyErr)
}

// ClearAll removes every photo, active and archived.
func (d *Database) ClearAll(ctx context.Context) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	start := time.Now()
	_, err := d.db.ExecContext(ctx, "DELETE FROM photos")
	recordQuery("clear_all", start, err)
	return err
}

// Count returns the number of active photos, or of all photos when
// activeOnly is false.
func (d *Database) Count(ctx context.Context, activeOnly bool) (int, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	query := "SELECT COUNT(*) FROM photos"
	if activeOnly {
		query += " WHERE COALESCE(archived, 0) = 0"
	}

	start := time.Now()
	var n int
	err := d.db.QueryRowContext(ctx, query).Scan(&n)
	recordQuery("count", start, err)
	return n, err
}

// Stats summarises the store for the metrics collector.
func (d *Database) Stats(ctx context.Context) (StoreStats, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	var s StoreStats
	start := time.Now()
	err := d.db.QueryRowContext(ctx, `
		SELECT
			COALESCE(SUM(CASE WHEN COALESCE(archived, 0) = 0 THEN 1 ELSE 0 END), 0),
			COALESCE(SUM(CASE WHEN archived = 1 THEN 1 ELSE 0 END), 0),
			COALESCE(SUM(size + COALESCE(length(thumbnail), 0)), 0)
		FROM photos
	`).Scan(&s.ActivePhotos, &s.ArchivedPhotos, &s.ContentBytes)
	recordQuery("count", start, err)
	return s, err
}

func requireAffected(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

func isConstraintViolation(err error) bool {
	var sqliteErr sqlite3.Error
	if errors.As(err, &sqliteErr) {
		return sqliteErr.ExtendedCode == sqlite3.ErrConstraintPrimaryKey
	}
	return false
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
