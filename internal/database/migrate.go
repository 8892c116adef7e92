package database

import (
	"context"
	"database/sql"
	"fmt"
	"strconv"
	"time"

	"golang.org/x/sync/errgroup"

	"photo-wallet/internal/logging"
	"photo-wallet/internal/mediatypes"
	"photo-wallet/internal/metrics"
	"photo-wallet/internal/workers"
)

// currentRecordVersion is the record layout written by this build.
//
//	1: original bytes, order and creation time only
//	2: adds a derived thumbnail
//	3: adds archive state
const currentRecordVersion = 3

// versionedRecord is one stored record decoded at the layout it was written
// with. upgrade returns the same record at the next layout; the current
// layout returns itself.
type versionedRecord interface {
	version() int
	upgrade() versionedRecord
}

type recordV1 struct {
	ID          string
	Filename    string
	ContentType string
	Size        int64
	Original    []byte
}

type recordV2 struct {
	recordV1
	Thumbnail []byte
}

type recordV3 struct {
	recordV2
	Archived   bool
	ArchivedAt sql.NullInt64
}

func (r recordV1) version() int { return 1 }
func (r recordV2) version() int { return 2 }
func (r recordV3) version() int { return 3 }

// Records from before version 2 carry no thumbnail; it stays empty and is
// derived later. Content type and size are normalised on the way.
func (r recordV1) upgrade() versionedRecord {
	if r.ContentType == "" {
		r.ContentType = mediatypes.Sniff(r.Original)
	}
	if r.Size == 0 {
		r.Size = int64(len(r.Original))
	}
	return recordV2{recordV1: r}
}

// Records from before version 3 were never archived.
func (r recordV2) upgrade() versionedRecord {
	return recordV3{recordV2: r}
}

func (r recordV3) upgrade() versionedRecord { return r }

// rawRecord is a row read without assuming any layout.
type rawRecord struct {
	id          string
	filename    string
	contentType string
	size        int64
	original    []byte
	thumbnail   []byte
	archived    sql.NullInt64
	archivedAt  sql.NullInt64
	version     int
}

func decodeRecord(raw rawRecord) (versionedRecord, error) {
	v1 := recordV1{
		ID:          raw.id,
		Filename:    raw.filename,
		ContentType: raw.contentType,
		Size:        raw.size,
		Original:    raw.original,
	}
	switch raw.version {
	case 1:
		return v1, nil
	case 2:
		return recordV2{recordV1: v1, Thumbnail: raw.thumbnail}, nil
	case 3:
		return recordV3{
			recordV2:   recordV2{recordV1: v1, Thumbnail: raw.thumbnail},
			Archived:   raw.archived.Valid && raw.archived.Int64 != 0,
			ArchivedAt: raw.archivedAt,
		}, nil
	default:
		return nil, fmt.Errorf("record %s has unknown version %d", raw.id, raw.version)
	}
}

// upgradeToCurrent walks a record through every intermediate layout.
func upgradeToCurrent(rec versionedRecord) (recordV3, error) {
	for rec.version() < currentRecordVersion {
		rec = rec.upgrade()
	}
	current, ok := rec.(recordV3)
	if !ok {
		return recordV3{}, fmt.Errorf("record upgraded to unexpected version %d", rec.version())
	}
	return current, nil
}

// upgradeRecords rewrites every record stored at an older layout in a single
// transaction. A failure leaves all records untouched.
func (d *Database) upgradeRecords(ctx context.Context) (err error) {
	start := time.Now()
	defer func() { recordQuery("upgrade_records", start, err) }()

	tx, txStart, err := d.beginTx(ctx)
	if err != nil {
		return err
	}

	upgraded, byVersion, applyErr := upgradeInTx(ctx, tx)
	if err := d.endTx(tx, txStart, applyErr); err != nil {
		return err
	}

	if upgraded > 0 {
		for v, n := range byVersion {
			metrics.DBRecordsUpgraded.WithLabelValues(strconv.Itoa(v)).Add(float64(n))
		}
		logging.Info("Upgraded %d legacy photo records to version %d", upgraded, currentRecordVersion)
		if err := d.SetMetadata(ctx, metaRecordsUpgradedAt, time.Now().UTC().Format(time.RFC3339)); err != nil {
			logging.Warn("Failed to record upgrade time: %v", err)
		}
	}
	if err := d.SetMetadata(ctx, metaRecordVersion, strconv.Itoa(currentRecordVersion)); err != nil {
		logging.Warn("Failed to record schema version: %v", err)
	}
	return nil
}

func upgradeInTx(ctx context.Context, tx *sql.Tx) (int, map[int]int, error) {
	rows, err := tx.QueryContext(ctx, `
		SELECT id, filename, content_type, size, original, thumbnail, archived, archived_at, schema_version
		FROM photos
		WHERE schema_version < ?
	`, currentRecordVersion)
	if err != nil {
		return 0, nil, fmt.Errorf("query legacy records: %w", err)
	}

	var legacy []rawRecord
	for rows.Next() {
		var raw rawRecord
		if err := rows.Scan(&raw.id, &raw.filename, &raw.contentType, &raw.size, &raw.original,
			&raw.thumbnail, &raw.archived, &raw.archivedAt, &raw.version); err != nil {
			rows.Close()
			return 0, nil, err
		}
		legacy = append(legacy, raw)
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return 0, nil, err
	}
	rows.Close()

	byVersion := make(map[int]int)
	for _, raw := range legacy {
		rec, err := decodeRecord(raw)
		if err != nil {
			return 0, nil, err
		}
		current, err := upgradeToCurrent(rec)
		if err != nil {
			return 0, nil, fmt.Errorf("upgrade record %s: %w", raw.id, err)
		}

		var thumbnail any
		if len(current.Thumbnail) > 0 {
			thumbnail = current.Thumbnail
		}
		if _, err := tx.ExecContext(ctx, `
			UPDATE photos
			SET content_type = ?, size = ?, thumbnail = ?, archived = ?, archived_at = ?, schema_version = ?
			WHERE id = ?
		`, current.ContentType, current.Size, thumbnail, boolToInt(current.Archived), current.ArchivedAt,
			currentRecordVersion, current.ID); err != nil {
			return 0, nil, fmt.Errorf("write upgraded record %s: %w", current.ID, err)
		}
		byVersion[raw.version]++
	}
	return len(legacy), byVersion, nil
}

// backfillThumbnails derives thumbnails for records that have none, using a
// bounded number of parallel workers. Records that fail to decode are skipped
// and logged.
func (d *Database) backfillThumbnails(ctx context.Context, derive ThumbnailDeriver, limit int) error {
	rows, err := d.db.QueryContext(ctx, "SELECT id FROM photos WHERE thumbnail IS NULL")
	if err != nil {
		return err
	}
	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			rows.Close()
			return err
		}
		ids = append(ids, id)
	}
	err = rows.Err()
	rows.Close()
	if err != nil {
		return err
	}
	if len(ids) == 0 {
		return nil
	}

	if limit <= 0 {
		limit = workers.ForCPU(8)
	}
	logging.Info("Backfilling %d missing thumbnails with %d workers", len(ids), limit)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(limit)
	for _, id := range ids {
		id := id
		g.Go(func() error {
			p, err := d.Get(gctx, id)
			if err != nil {
				return fmt.Errorf("load %s: %w", id, err)
			}
			thumb, err := derive(gctx, p.Original)
			if err != nil {
				logging.Warn("Thumbnail backfill skipped %s: %v", id, err)
				return nil
			}
			return d.Update(gctx, id, PhotoUpdate{Thumbnail: thumb})
		})
	}
	return g.Wait()
}
