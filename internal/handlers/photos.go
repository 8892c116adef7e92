package handlers

import (
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"path/filepath"

	"github.com/gorilla/mux"

	"photo-wallet/internal/cache"
	"photo-wallet/internal/database"
	"photo-wallet/internal/logging"
	"photo-wallet/internal/media"
	"photo-wallet/internal/mediatypes"
	"photo-wallet/internal/metrics"
	"photo-wallet/internal/wallet"
)

const (
	// multipartMemory is how much of a multipart body is held in memory
	// before parts spill to temporary files.
	multipartMemory = 32 << 20
	// multipartSlack covers multipart framing on top of the file bytes.
	multipartSlack = 1 << 20

	outcomeRejected = "rejected"
)

// PhotoList is the active list response.
type PhotoList struct {
	Photos    []database.Photo `json:"photos"`
	Count     int              `json:"count"`
	Capacity  int              `json:"capacity"`
	IsLoading bool             `json:"isLoading"`
}

// UploadResult is one file's outcome in an upload response.
type UploadResult struct {
	Filename string          `json:"filename"`
	Outcome  string          `json:"outcome"`
	Photo    *database.Photo `json:"photo,omitempty"`
	Error    string          `json:"error,omitempty"`

	err error
}

// UploadResponse reports a whole upload batch.
type UploadResponse struct {
	Results  []UploadResult `json:"results"`
	Added    int            `json:"added"`
	Count    int            `json:"count"`
	Capacity int            `json:"capacity"`
}

// ListPhotos returns the active photos in display order.
func (h *Handlers) ListPhotos(w http.ResponseWriter, _ *http.Request) {
	s, ok := h.store(w)
	if !ok {
		return
	}

	st := s.State()
	w.Header().Set("Content-Type", "application/json")
	writeJSON(w, PhotoList{
		Photos:    st.Photos,
		Count:     len(st.Photos),
		Capacity:  st.Capacity,
		IsLoading: st.IsLoading,
	})
}

// UploadPhotos accepts one or more files in the "files" (or "file") form
// field and imports them through the queue in the order they were sent.
// A single-file upload is answered with that file's status code; a batch
// is answered with 200 and per-file outcomes.
func (h *Handlers) UploadPhotos(w http.ResponseWriter, r *http.Request) {
	s, ok := h.store(w)
	if !ok {
		return
	}
	q := h.app.Queue()
	if q == nil {
		writeJSONError(w, "wallet is not ready", http.StatusServiceUnavailable)
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, h.maxFileSize*int64(s.Capacity())+multipartSlack)
	if err := r.ParseMultipartForm(multipartMemory); err != nil {
		var tooBig *http.MaxBytesError
		if errors.As(err, &tooBig) {
			metrics.UploadRejectionsTotal.WithLabelValues("size").Inc()
			writeJSONError(w, "upload body too large", http.StatusRequestEntityTooLarge)
			return
		}
		writeJSONError(w, "invalid multipart form: "+err.Error(), http.StatusBadRequest)
		return
	}
	defer func() {
		if err := r.MultipartForm.RemoveAll(); err != nil {
			logging.Warn("failed to remove multipart temp files: %v", err)
		}
	}()

	files := append(r.MultipartForm.File["files"], r.MultipartForm.File["file"]...)
	if len(files) == 0 {
		writeJSONError(w, "no files in upload", http.StatusBadRequest)
		return
	}

	results := make([]UploadResult, len(files))
	uploads := make([]wallet.Upload, 0, len(files))
	slots := make([]int, 0, len(files))
	for i, fh := range files {
		up, err := h.readUpload(fh)
		if err != nil {
			results[i] = UploadResult{Filename: fh.Filename, Outcome: outcomeRejected, Error: err.Error(), err: err}
			continue
		}
		uploads = append(uploads, up)
		slots = append(slots, i)
	}

	if len(uploads) > 0 {
		for j, res := range q.Submit(r.Context(), uploads...) {
			results[slots[j]] = UploadResult{
				Filename: res.Filename,
				Outcome:  string(res.Outcome),
				Photo:    res.Photo,
				Error:    res.Error(),
				err:      res.Err,
			}
		}
	}

	resp := UploadResponse{Results: results, Count: s.ActiveCount(), Capacity: s.Capacity()}
	for _, res := range results {
		if res.Outcome == string(wallet.OutcomeAdded) {
			resp.Added++
		}
	}

	status := http.StatusOK
	if len(results) == 1 {
		status = uploadStatus(results[0])
	}
	writeJSONStatusCode(w, resp, status)
}

// readUpload reads one multipart file and checks it against the file-input
// contract. The declared type is checked before reading and the sniffed type
// after.
func (h *Handlers) readUpload(fh *multipart.FileHeader) (wallet.Upload, error) {
	name := filepath.Base(fh.Filename)
	declared := mediatypes.Normalize(fh.Header.Get("Content-Type"))
	if declared == "" || declared == mediatypes.OctetStream {
		declared = mediatypes.FromExtension(name)
	}
	if err := mediatypes.Validate(declared, fh.Size, h.maxFileSize); err != nil {
		rejectUpload(err)
		return wallet.Upload{}, err
	}

	f, err := fh.Open()
	if err != nil {
		metrics.UploadRejectionsTotal.WithLabelValues("read").Inc()
		return wallet.Upload{}, fmt.Errorf("open %s: %w", name, err)
	}
	defer f.Close()

	data, err := io.ReadAll(io.LimitReader(f, h.maxFileSize+1))
	if err != nil {
		metrics.UploadRejectionsTotal.WithLabelValues("read").Inc()
		return wallet.Upload{}, fmt.Errorf("read %s: %w", name, err)
	}

	contentType := mediatypes.Resolve(declared, name, data)
	if err := mediatypes.Validate(contentType, int64(len(data)), h.maxFileSize); err != nil {
		rejectUpload(err)
		return wallet.Upload{}, err
	}

	return wallet.Upload{
		Filename:    name,
		ContentType: contentType,
		Data:        data,
		Source:      "upload",
	}, nil
}

func rejectUpload(err error) {
	reason := "type"
	if errors.Is(err, mediatypes.ErrTooLarge) {
		reason = "size"
	}
	metrics.UploadRejectionsTotal.WithLabelValues(reason).Inc()
}

func uploadStatus(res UploadResult) int {
	switch res.Outcome {
	case string(wallet.OutcomeAdded):
		return http.StatusCreated
	case string(wallet.OutcomeDuplicate):
		return http.StatusOK
	}
	if res.err == nil {
		return http.StatusInternalServerError
	}
	return statusFor(res.err)
}

// ReorderPhotos applies a new display order. The body must list every
// active id exactly once.
func (h *Handlers) ReorderPhotos(w http.ResponseWriter, r *http.Request) {
	s, ok := h.store(w)
	if !ok {
		return
	}

	var req struct {
		IDs []string `json:"ids"`
	}
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, err)
		return
	}
	if err := s.ReorderPhotos(r.Context(), req.IDs); err != nil {
		writeError(w, err)
		return
	}
	h.ListPhotos(w, r)
}

// DeletePhoto hard-deletes an active photo.
func (h *Handlers) DeletePhoto(w http.ResponseWriter, r *http.Request) {
	s, ok := h.store(w)
	if !ok {
		return
	}

	id := mux.Vars(r)["id"]
	if err := s.DeletePhoto(r.Context(), id); err != nil {
		writeError(w, err)
		return
	}
	h.forgetRendition(id)
	w.WriteHeader(http.StatusNoContent)
}

// ArchivePhoto moves an active photo to the archive.
func (h *Handlers) ArchivePhoto(w http.ResponseWriter, r *http.Request) {
	s, ok := h.store(w)
	if !ok {
		return
	}

	if err := s.ArchivePhoto(r.Context(), mux.Vars(r)["id"]); err != nil {
		writeError(w, err)
		return
	}
	h.ListPhotos(w, r)
}

// ArchiveOldest archives the n oldest active photos to make room.
func (h *Handlers) ArchiveOldest(w http.ResponseWriter, r *http.Request) {
	s, ok := h.store(w)
	if !ok {
		return
	}

	var req struct {
		Count int `json:"count"`
	}
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, err)
		return
	}
	if req.Count <= 0 {
		writeJSONError(w, "count must be positive", http.StatusBadRequest)
		return
	}

	ids, err := s.ArchiveOldest(r.Context(), req.Count)
	if err != nil {
		writeError(w, err)
		return
	}
	if ids == nil {
		ids = []string{}
	}
	w.Header().Set("Content-Type", "application/json")
	writeJSON(w, map[string]interface{}{
		"archived": ids,
		"count":    s.ActiveCount(),
		"capacity": s.Capacity(),
	})
}

// GetOriginal serves the stored original bytes.
func (h *Handlers) GetOriginal(w http.ResponseWriter, r *http.Request) {
	s, ok := h.store(w)
	if !ok {
		return
	}

	p, err := s.Photo(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		writeError(w, err)
		return
	}
	w.Header().Set("Content-Disposition", fmt.Sprintf("inline; filename=%q", p.Filename))
	writeImage(w, p.ContentType, p.Original)
}

// GetThumbnail serves the square preview, deriving it first when missing.
func (h *Handlers) GetThumbnail(w http.ResponseWriter, r *http.Request) {
	s, ok := h.store(w)
	if !ok {
		return
	}

	thumb, err := s.Thumbnail(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		writeError(w, err)
		return
	}
	writeImage(w, mediatypes.JPEG, thumb)
}

// GetDisplay serves the full-screen viewer rendition from the display cache,
// rendering and caching it on a miss.
func (h *Handlers) GetDisplay(w http.ResponseWriter, r *http.Request) {
	s, ok := h.store(w)
	if !ok {
		return
	}

	id := mux.Vars(r)["id"]
	caches := h.app.Caches()
	if caches != nil {
		if data, err := caches.Get(cache.DisplayCache, id); err == nil {
			metrics.DisplayRenditionsTotal.WithLabelValues("hit").Inc()
			writeImage(w, mediatypes.JPEG, data)
			return
		} else if !errors.Is(err, cache.ErrMiss) {
			logging.Warn("display cache read for %s failed: %v", id, err)
		}
	}

	p, err := s.Photo(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}
	data, err := media.DisplayRendition(p.Original, media.DisplayMaxEdge, media.DisplayQuality)
	if err != nil {
		metrics.DisplayRenditionsTotal.WithLabelValues("error").Inc()
		writeError(w, fmt.Errorf("render %s: %w", id, err))
		return
	}
	metrics.DisplayRenditionsTotal.WithLabelValues("miss").Inc()

	if caches != nil {
		if err := caches.Put(cache.DisplayCache, id, data); err != nil {
			logging.Warn("display cache write for %s failed: %v", id, err)
		}
	}
	writeImage(w, mediatypes.JPEG, data)
}

// forgetRendition drops the cached viewer rendition of a deleted photo.
func (h *Handlers) forgetRendition(id string) {
	caches := h.app.Caches()
	if caches == nil {
		return
	}
	if err := caches.Remove(cache.DisplayCache, id); err != nil {
		logging.Warn("failed to drop display rendition for %s: %v", id, err)
	}
}

// writeImage writes binary content. Photo ids are never reused, so the
// content behind a URL does not change.
func writeImage(w http.ResponseWriter, contentType string, data []byte) {
	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Content-Length", fmt.Sprint(len(data)))
	w.Header().Set("Cache-Control", "private, max-age=31536000, immutable")
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(data); err != nil {
		logging.Debug("image write aborted: %v", err)
	}
}
