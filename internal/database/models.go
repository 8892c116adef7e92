package database

import "time"

// Photo is the persisted photo record. Original and Thumbnail hold the binary
// content and are never serialized into JSON listings.
type Photo struct {
	ID          string     `json:"id"`
	Filename    string     `json:"filename"`
	ContentType string     `json:"contentType"`
	Size        int64      `json:"size"`
	Order       int        `json:"order"`
	CreatedAt   time.Time  `json:"createdAt"`
	Archived    bool       `json:"archived"`
	ArchivedAt  *time.Time `json:"archivedAt,omitempty"`
	Original    []byte     `json:"-"`
	Thumbnail   []byte     `json:"-"`
}

// HasThumbnail reports whether a thumbnail has been derived for the record.
func (p *Photo) HasThumbnail() bool {
	return len(p.Thumbnail) > 0
}

// PhotoUpdate describes a partial update. Nil fields are left untouched.
// ClearArchivedAt takes precedence over ArchivedAt.
type PhotoUpdate struct {
	Filename        *string
	Order           *int
	Archived        *bool
	ArchivedAt      *time.Time
	ClearArchivedAt bool
	Thumbnail       []byte
}

// IsEmpty reports whether the update would change nothing.
func (u PhotoUpdate) IsEmpty() bool {
	return u.Filename == nil && u.Order == nil && u.Archived == nil &&
		u.ArchivedAt == nil && !u.ClearArchivedAt && u.Thumbnail == nil
}

// OrderUpdate assigns a new display position to one record.
type OrderUpdate struct {
	ID    string `json:"id"`
	Order int    `json:"order"`
}

// StoreStats summarises the record store contents.
type StoreStats struct {
	ActivePhotos   int   `json:"activePhotos"`
	ArchivedPhotos int   `json:"archivedPhotos"`
	ContentBytes   int64 `json:"contentBytes"`
}
