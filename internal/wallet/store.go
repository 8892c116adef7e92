package wallet

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"photo-wallet/internal/database"
	"photo-wallet/internal/logging"
	"photo-wallet/internal/mediatypes"
	"photo-wallet/internal/metrics"
)

// DefaultCapacity is the active photo ceiling used when none is configured.
const DefaultCapacity = 12

// RecordStore is the persistence the Photo Store depends on.
// *database.Database satisfies it.
type RecordStore interface {
	GetActive(ctx context.Context) ([]*database.Photo, error)
	GetArchived(ctx context.Context) ([]*database.Photo, error)
	Get(ctx context.Context, id string) (*database.Photo, error)
	Insert(ctx context.Context, p *database.Photo) error
	Update(ctx context.Context, id string, u database.PhotoUpdate) error
	Remove(ctx context.Context, id string) error
	ReorderBatch(ctx context.Context, updates []database.OrderUpdate) error
	ClearAll(ctx context.Context) error
	Count(ctx context.Context, activeOnly bool) (int, error)
}

// Thumbnailer derives the square preview for a photo.
type Thumbnailer interface {
	Generate(ctx context.Context, data []byte) ([]byte, error)
}

// DuplicateDetector checks a candidate against existing originals.
type DuplicateDetector interface {
	IsDuplicate(candidate []byte, existing [][]byte) bool
}

// Options configures a Store. Thumbnailer and Detector are required.
type Options struct {
	Capacity    int
	Thumbnailer Thumbnailer
	Detector    DuplicateDetector
	Policy      Policy
	Now         func() time.Time
	NewID       func() string
}

// Upload is one incoming file.
type Upload struct {
	Filename    string
	ContentType string
	Data        []byte
	// Source labels where the upload came from in metrics ("upload", "inbox", "cli").
	Source string
}

// State is a snapshot of the store. Slices are copies.
type State struct {
	Photos       []database.Photo `json:"photos"`
	Archived     []database.Photo `json:"archived"`
	IsLoading    bool             `json:"isLoading"`
	ViewerOpen   bool             `json:"viewerOpen"`
	CurrentIndex *int             `json:"currentIndex"`
	Capacity     int              `json:"capacity"`
}

// Store is the Photo Store controller. It mirrors the active and archived
// photo lists in memory and keeps them consistent with the record store.
// Mutating operations are serialized.
type Store struct {
	records  RecordStore
	thumbs   Thumbnailer
	detector DuplicateDetector
	policy   Policy
	capacity int
	now      func() time.Time
	newID    func() string

	// opMu serializes mutating operations; mu guards the fields below.
	opMu sync.Mutex

	mu           sync.RWMutex
	photos       []database.Photo
	archived     []database.Photo
	activeLoaded bool
	isLoading    bool
	viewerOpen   bool
	currentIndex *int
}

// New creates a Store over records.
func New(records RecordStore, opts Options) *Store {
	s := &Store{
		records:  records,
		thumbs:   opts.Thumbnailer,
		detector: opts.Detector,
		policy:   opts.Policy,
		capacity: opts.Capacity,
		now:      opts.Now,
		newID:    opts.NewID,
	}
	if s.capacity <= 0 {
		s.capacity = DefaultCapacity
	}
	if s.policy == nil {
		s.policy = Optimistic{}
	}
	if s.now == nil {
		s.now = time.Now
	}
	if s.newID == nil {
		s.newID = uuid.NewString
	}
	metrics.CapacityTotal.Set(float64(s.capacity))
	return s
}

// Capacity returns the active photo ceiling.
func (s *Store) Capacity() int {
	return s.capacity
}

// State returns a snapshot of the current state.
func (s *Store) State() State {
	s.mu.RLock()
	defer s.mu.RUnlock()

	st := State{
		Photos:     append([]database.Photo{}, s.photos...),
		Archived:   append([]database.Photo{}, s.archived...),
		IsLoading:  s.isLoading,
		ViewerOpen: s.viewerOpen,
		Capacity:   s.capacity,
	}
	if s.currentIndex != nil {
		idx := *s.currentIndex
		st.CurrentIndex = &idx
	}
	return st
}

// ActiveCount returns the number of active photos in memory.
func (s *Store) ActiveCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.photos)
}

// Load fetches the active photos from the record store. On failure the
// in-memory list is left as it was and the error is logged and returned.
func (s *Store) Load(ctx context.Context) error {
	s.opMu.Lock()
	defer s.opMu.Unlock()

	err := s.loadActiveLocked(ctx)
	recordOp("load", err)
	return err
}

// LoadArchived fetches the archived photos. Same failure contract as Load.
func (s *Store) LoadArchived(ctx context.Context) error {
	s.opMu.Lock()
	defer s.opMu.Unlock()

	err := s.loadArchivedLocked(ctx)
	recordOp("load_archived", err)
	return err
}

func (s *Store) loadActiveLocked(ctx context.Context) error {
	s.setLoading(true)
	defer s.setLoading(false)

	records, err := s.records.GetActive(ctx)
	if err != nil {
		logging.Error("Failed to load photos: %v", err)
		return fmt.Errorf("load photos: %w", err)
	}

	s.mu.Lock()
	s.photos = copyPhotos(records)
	s.activeLoaded = true
	s.mu.Unlock()

	logging.Debug("Loaded %d active photos", len(records))
	return nil
}

func (s *Store) loadArchivedLocked(ctx context.Context) error {
	s.setLoading(true)
	defer s.setLoading(false)

	records, err := s.records.GetArchived(ctx)
	if err != nil {
		logging.Error("Failed to load archived photos: %v", err)
		return fmt.Errorf("load archived photos: %w", err)
	}

	s.mu.Lock()
	s.archived = copyPhotos(records)
	s.mu.Unlock()

	logging.Debug("Loaded %d archived photos", len(records))
	return nil
}

func (s *Store) setLoading(v bool) {
	s.mu.Lock()
	s.isLoading = v
	s.mu.Unlock()
}

// activeCountLocked returns the active count, asking the record store when
// the mirror has never been loaded.
func (s *Store) activeCountLocked(ctx context.Context) (int, error) {
	s.mu.RLock()
	loaded, n := s.activeLoaded, len(s.photos)
	s.mu.RUnlock()
	if loaded {
		return n, nil
	}
	return s.records.Count(ctx, true)
}

// AddPhoto stores a new active photo at the end of the list. It fails with
// ErrCapacityExceeded when the wallet is full. On any failure nothing is
// added to the in-memory list and no partial record is left in the store.
func (s *Store) AddPhoto(ctx context.Context, up Upload) (*database.Photo, error) {
	s.opMu.Lock()
	defer s.opMu.Unlock()

	p, err := s.addLocked(ctx, up)
	recordOp("add", err)
	return p, err
}

func (s *Store) addLocked(ctx context.Context, up Upload) (*database.Photo, error) {
	count, err := s.activeCountLocked(ctx)
	if err != nil {
		return nil, fmt.Errorf("count photos: %w", err)
	}
	if count >= s.capacity {
		return nil, ErrCapacityExceeded
	}

	var (
		thumb       []byte
		original    []byte
		contentType string
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		thumb, err = s.thumbs.Generate(gctx, up.Data)
		return err
	})
	g.Go(func() error {
		original = append([]byte(nil), up.Data...)
		contentType = mediatypes.Resolve(up.ContentType, up.Filename, up.Data)
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("prepare %s: %w", up.Filename, err)
	}

	p := &database.Photo{
		ID:          s.newID(),
		Filename:    up.Filename,
		ContentType: contentType,
		Size:        int64(len(original)),
		Order:       count,
		CreatedAt:   s.now().UTC(),
		Original:    original,
		Thumbnail:   thumb,
	}
	if err := s.records.Insert(ctx, p); err != nil {
		return nil, fmt.Errorf("store %s: %w", up.Filename, err)
	}

	stored := *p
	stored.Original = nil
	s.mu.Lock()
	s.photos = append(s.photos, stored)
	s.mu.Unlock()

	logging.Info("Added photo %s (%s, %d bytes) at position %d", p.ID, p.Filename, p.Size, p.Order)
	out := stored
	return &out, nil
}

// DeletePhoto permanently removes an active photo and renumbers the rest.
// If removal fails nothing changes in memory. The renumbering is persisted
// through the configured Policy.
func (s *Store) DeletePhoto(ctx context.Context, id string) error {
	s.opMu.Lock()
	defer s.opMu.Unlock()

	err := s.deleteLocked(ctx, id)
	recordOp("delete", err)
	return err
}

func (s *Store) deleteLocked(ctx context.Context, id string) error {
	active := s.activeSnapshot()
	idx := indexOf(active, id)
	if idx < 0 {
		return ErrNotFound
	}

	if err := s.records.Remove(ctx, id); err != nil {
		logging.Error("Failed to delete photo %s: %v", id, err)
		return fmt.Errorf("delete photo %s: %w", id, err)
	}

	remaining := append(active[:idx:idx], active[idx+1:]...)
	logging.Info("Deleted photo %s", id)
	return s.renumberLocked(ctx, "delete", remaining)
}

// ArchivePhoto moves an active photo to the archive and renumbers the rest.
func (s *Store) ArchivePhoto(ctx context.Context, id string) error {
	s.opMu.Lock()
	defer s.opMu.Unlock()

	err := s.archiveLocked(ctx, []string{id})
	recordOp("archive", err)
	return err
}

// ArchiveOldest archives the n oldest active photos by creation time and
// returns their ids.
func (s *Store) ArchiveOldest(ctx context.Context, n int) ([]string, error) {
	s.opMu.Lock()
	defer s.opMu.Unlock()

	active := s.activeSnapshot()
	if n > len(active) {
		n = len(active)
	}
	if n <= 0 {
		return []string{}, nil
	}

	byAge := append([]database.Photo{}, active...)
	sort.SliceStable(byAge, func(i, j int) bool {
		return byAge[i].CreatedAt.Before(byAge[j].CreatedAt)
	})
	ids := make([]string, n)
	for i := range ids {
		ids[i] = byAge[i].ID
	}

	err := s.archiveLocked(ctx, ids)
	recordOp("archive_oldest", err)
	if err != nil {
		return nil, err
	}
	return ids, nil
}

func (s *Store) archiveLocked(ctx context.Context, ids []string) error {
	active := s.activeSnapshot()
	for _, id := range ids {
		if indexOf(active, id) < 0 {
			return ErrNotFound
		}
	}

	archivedAt := s.now().UTC()
	archived := true
	moved := make([]database.Photo, 0, len(ids))
	for _, id := range ids {
		if err := s.records.Update(ctx, id, database.PhotoUpdate{Archived: &archived, ArchivedAt: &archivedAt}); err != nil {
			logging.Error("Failed to archive photo %s: %v", id, err)
			if len(moved) > 0 {
				// Earlier ids are already archived in the store.
				s.resyncLocked(ctx)
			}
			return fmt.Errorf("archive photo %s: %w", id, mapStoreErr(err))
		}
		idx := indexOf(active, id)
		p := active[idx]
		p.Archived = true
		at := archivedAt
		p.ArchivedAt = &at
		moved = append(moved, p)
		active = append(active[:idx:idx], active[idx+1:]...)
		logging.Info("Archived photo %s", id)
	}

	s.mu.Lock()
	s.archived = append(moved, s.archived...)
	s.mu.Unlock()

	return s.renumberLocked(ctx, "archive", active)
}

// renumberLocked assigns dense orders 0..n-1 to remaining and persists them
// through the policy. With a policy that returns an error the mirror is
// reloaded so it reflects the store.
func (s *Store) renumberLocked(ctx context.Context, op string, remaining []database.Photo) error {
	renumbered, updates := renumber(remaining)

	err := s.policy.Apply(ctx, op,
		func() {
			s.mu.Lock()
			s.photos = renumbered
			s.adjustViewerLocked()
			s.mu.Unlock()
		},
		func(ctx context.Context) error {
			return s.records.ReorderBatch(ctx, updates)
		},
	)
	if err != nil {
		s.resyncLocked(ctx)
	}
	return err
}

// resyncLocked reloads both lists after a partial failure. Errors are logged.
func (s *Store) resyncLocked(ctx context.Context) {
	_ = s.loadActiveLocked(ctx)
	_ = s.loadArchivedLocked(ctx)
}

// adjustViewerLocked keeps an open viewer's index inside the active list.
func (s *Store) adjustViewerLocked() {
	if !s.viewerOpen || s.currentIndex == nil {
		return
	}
	if len(s.photos) == 0 {
		s.viewerOpen = false
		s.currentIndex = nil
		return
	}
	if *s.currentIndex >= len(s.photos) {
		last := len(s.photos) - 1
		s.currentIndex = &last
	}
}

// UnarchivePhoto restores an archived photo to the end of the active list.
// It fails with ErrCapacityExceeded, before any change, when the wallet is
// full. Both lists are reloaded from the record store afterwards.
func (s *Store) UnarchivePhoto(ctx context.Context, id string) error {
	s.opMu.Lock()
	defer s.opMu.Unlock()

	err := s.unarchiveLocked(ctx, id)
	recordOp("unarchive", err)
	return err
}

func (s *Store) unarchiveLocked(ctx context.Context, id string) error {
	count, err := s.activeCountLocked(ctx)
	if err != nil {
		return fmt.Errorf("count photos: %w", err)
	}
	if count >= s.capacity {
		return ErrCapacityExceeded
	}

	if err := s.requireArchived(ctx, id); err != nil {
		return err
	}

	maxOrder, err := s.maxActiveOrderLocked(ctx)
	if err != nil {
		return fmt.Errorf("read photo order: %w", err)
	}
	order := maxOrder + 1
	archived := false
	err = s.records.Update(ctx, id, database.PhotoUpdate{
		Archived:        &archived,
		ClearArchivedAt: true,
		Order:           &order,
	})
	if err != nil {
		logging.Error("Failed to restore photo %s: %v", id, err)
		return fmt.Errorf("restore photo %s: %w", id, mapStoreErr(err))
	}
	logging.Info("Restored photo %s at position %d", id, order)

	// Both lists change, so reload them rather than patching.
	errActive := s.loadActiveLocked(ctx)
	errArchived := s.loadArchivedLocked(ctx)
	if errActive != nil || errArchived != nil {
		logging.Warn("Photo %s restored but reload failed; lists may be stale", id)
	}
	return nil
}

// requireArchived checks the archive mirror, then the record store, for id.
func (s *Store) requireArchived(ctx context.Context, id string) error {
	s.mu.RLock()
	found := indexOf(s.archived, id) >= 0
	s.mu.RUnlock()
	if found {
		return nil
	}

	p, err := s.records.Get(ctx, id)
	if err != nil {
		return mapStoreErr(err)
	}
	if !p.Archived {
		return ErrNotFound
	}
	return nil
}

// maxActiveOrderLocked returns the highest active order, or -1 when there
// are no active photos. It reads the record store when the active list has
// never been loaded.
func (s *Store) maxActiveOrderLocked(ctx context.Context) (int, error) {
	s.mu.RLock()
	loaded := s.activeLoaded
	photos := s.photos
	s.mu.RUnlock()

	if !loaded {
		records, err := s.records.GetActive(ctx)
		if err != nil {
			return 0, err
		}
		photos = copyPhotos(records)
	}

	maxOrder := -1
	for _, p := range photos {
		if p.Order > maxOrder {
			maxOrder = p.Order
		}
	}
	return maxOrder, nil
}

// DeleteArchivedPhoto permanently removes an archived photo.
func (s *Store) DeleteArchivedPhoto(ctx context.Context, id string) error {
	s.opMu.Lock()
	defer s.opMu.Unlock()

	err := s.deleteArchivedLocked(ctx, id)
	recordOp("delete_archived", err)
	return err
}

func (s *Store) deleteArchivedLocked(ctx context.Context, id string) error {
	if err := s.requireArchived(ctx, id); err != nil {
		return err
	}
	if err := s.records.Remove(ctx, id); err != nil {
		logging.Error("Failed to delete archived photo %s: %v", id, err)
		return fmt.Errorf("delete archived photo %s: %w", id, err)
	}

	s.mu.Lock()
	if idx := indexOf(s.archived, id); idx >= 0 {
		s.archived = append(s.archived[:idx:idx], s.archived[idx+1:]...)
	}
	s.mu.Unlock()

	logging.Info("Permanently deleted archived photo %s", id)
	return nil
}

// ReorderPhotos sets the display order to the given permutation of active
// ids. Persistence follows the configured Policy.
func (s *Store) ReorderPhotos(ctx context.Context, ids []string) error {
	s.opMu.Lock()
	defer s.opMu.Unlock()

	err := s.reorderLocked(ctx, ids)
	recordOp("reorder", err)
	return err
}

func (s *Store) reorderLocked(ctx context.Context, ids []string) error {
	active := s.activeSnapshot()
	if len(ids) != len(active) {
		return ErrInvalidPermutation
	}

	byID := make(map[string]database.Photo, len(active))
	for _, p := range active {
		byID[p.ID] = p
	}
	ordered := make([]database.Photo, 0, len(ids))
	for _, id := range ids {
		p, ok := byID[id]
		if !ok {
			return ErrInvalidPermutation
		}
		delete(byID, id)
		ordered = append(ordered, p)
	}

	return s.renumberLocked(ctx, "reorder", ordered)
}

// IsDuplicate reports whether data is byte-identical to any active photo.
// Originals are read from the record store on every call.
func (s *Store) IsDuplicate(ctx context.Context, data []byte) (bool, error) {
	active := s.activeSnapshot()
	existing := make([][]byte, 0, len(active))
	for _, p := range active {
		full, err := s.records.Get(ctx, p.ID)
		if err != nil {
			return false, fmt.Errorf("read photo %s: %w", p.ID, err)
		}
		existing = append(existing, full.Original)
	}
	return s.detector.IsDuplicate(data, existing), nil
}

// Photo returns a photo with its original bytes, active or archived.
func (s *Store) Photo(ctx context.Context, id string) (*database.Photo, error) {
	p, err := s.records.Get(ctx, id)
	if err != nil {
		return nil, mapStoreErr(err)
	}
	return p, nil
}

// Thumbnail returns the preview for id, deriving and persisting it first
// when the record has none.
func (s *Store) Thumbnail(ctx context.Context, id string) ([]byte, error) {
	if thumb := s.cachedThumbnail(id); len(thumb) > 0 {
		return thumb, nil
	}

	p, err := s.records.Get(ctx, id)
	if err != nil {
		return nil, mapStoreErr(err)
	}
	if p.HasThumbnail() {
		return p.Thumbnail, nil
	}

	thumb, err := s.thumbs.Generate(ctx, p.Original)
	if err != nil {
		return nil, fmt.Errorf("derive thumbnail for %s: %w", id, err)
	}
	if err := s.records.Update(ctx, id, database.PhotoUpdate{Thumbnail: thumb}); err != nil {
		logging.Warn("Failed to persist derived thumbnail for %s: %v", id, err)
	}

	s.mu.Lock()
	for _, list := range [][]database.Photo{s.photos, s.archived} {
		if idx := indexOf(list, id); idx >= 0 {
			list[idx].Thumbnail = thumb
		}
	}
	s.mu.Unlock()

	logging.Debug("Derived missing thumbnail for %s", id)
	return thumb, nil
}

func (s *Store) cachedThumbnail(id string) []byte {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, list := range [][]database.Photo{s.photos, s.archived} {
		if idx := indexOf(list, id); idx >= 0 {
			return list[idx].Thumbnail
		}
	}
	return nil
}

// Reset clears the in-memory mirror and viewer state. The record store is
// not touched.
func (s *Store) Reset() {
	s.opMu.Lock()
	defer s.opMu.Unlock()

	s.mu.Lock()
	defer s.mu.Unlock()

	s.photos = nil
	s.archived = nil
	s.activeLoaded = false
	s.isLoading = false
	s.viewerOpen = false
	s.currentIndex = nil
}

// Stats reports counts for the metrics collector.
func (s *Store) Stats() (active, archived int) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.photos), len(s.archived)
}

func (s *Store) activeSnapshot() []database.Photo {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]database.Photo{}, s.photos...)
}

func copyPhotos(records []*database.Photo) []database.Photo {
	out := make([]database.Photo, 0, len(records))
	for _, p := range records {
		c := *p
		c.Original = nil
		out = append(out, c)
	}
	return out
}

func renumber(list []database.Photo) ([]database.Photo, []database.OrderUpdate) {
	out := make([]database.Photo, len(list))
	updates := make([]database.OrderUpdate, len(list))
	for i, p := range list {
		p.Order = i
		out[i] = p
		updates[i] = database.OrderUpdate{ID: p.ID, Order: i}
	}
	return out, updates
}

func indexOf(list []database.Photo, id string) int {
	for i := range list {
		if list[i].ID == id {
			return i
		}
	}
	return -1
}

func mapStoreErr(err error) error {
	if errors.Is(err, database.ErrNotFound) {
		return ErrNotFound
	}
	return err
}

func recordOp(op string, err error) {
	status := "success"
	switch {
	case errors.Is(err, ErrCapacityExceeded):
		status = "capacity"
	case err != nil:
		status = "error"
	}
	metrics.StoreOperationsTotal.WithLabelValues(op, status).Inc()
}
