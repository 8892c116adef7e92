package handlers

import (
	"net/http"

	"github.com/gorilla/mux"

	"photo-wallet/internal/database"
)

// ArchiveList is the archived list response, most recently archived first.
type ArchiveList struct {
	Photos []database.Photo `json:"photos"`
	Count  int              `json:"count"`
}

// ListArchive returns the archived photos.
func (h *Handlers) ListArchive(w http.ResponseWriter, _ *http.Request) {
	s, ok := h.store(w)
	if !ok {
		return
	}

	st := s.State()
	w.Header().Set("Content-Type", "application/json")
	writeJSON(w, ArchiveList{Photos: st.Archived, Count: len(st.Archived)})
}

// RestorePhoto moves an archived photo back to the end of the active list.
func (h *Handlers) RestorePhoto(w http.ResponseWriter, r *http.Request) {
	s, ok := h.store(w)
	if !ok {
		return
	}

	if err := s.UnarchivePhoto(r.Context(), mux.Vars(r)["id"]); err != nil {
		writeError(w, err)
		return
	}
	h.ListPhotos(w, r)
}

// DeleteArchivedPhoto hard-deletes an archived photo.
func (h *Handlers) DeleteArchivedPhoto(w http.ResponseWriter, r *http.Request) {
	s, ok := h.store(w)
	if !ok {
		return
	}

	id := mux.Vars(r)["id"]
	if err := s.DeleteArchivedPhoto(r.Context(), id); err != nil {
		writeError(w, err)
		return
	}
	h.forgetRendition(id)
	w.WriteHeader(http.StatusNoContent)
}
