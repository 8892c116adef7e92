package handlers

import (
	"fmt"
	"net/http"
)

// ViewerState is the full-screen viewer state.
type ViewerState struct {
	Open         bool `json:"open"`
	CurrentIndex *int `json:"currentIndex"`
}

type viewerRequest struct {
	Index *int `json:"index"`
}

// GetViewer returns the viewer state.
func (h *Handlers) GetViewer(w http.ResponseWriter, _ *http.Request) {
	s, ok := h.store(w)
	if !ok {
		return
	}

	st := s.State()
	w.Header().Set("Content-Type", "application/json")
	writeJSON(w, ViewerState{Open: st.ViewerOpen, CurrentIndex: st.CurrentIndex})
}

// OpenViewer opens the viewer at {"index": n}.
func (h *Handlers) OpenViewer(w http.ResponseWriter, r *http.Request) {
	s, ok := h.store(w)
	if !ok {
		return
	}

	index, err := decodeIndex(w, r)
	if err != nil {
		writeError(w, err)
		return
	}
	s.OpenViewer(index)
	h.GetViewer(w, r)
}

// CloseViewer closes the viewer.
func (h *Handlers) CloseViewer(w http.ResponseWriter, r *http.Request) {
	s, ok := h.store(w)
	if !ok {
		return
	}

	s.CloseViewer()
	h.GetViewer(w, r)
}

// SetViewerIndex moves the open viewer to {"index": n}.
func (h *Handlers) SetViewerIndex(w http.ResponseWriter, r *http.Request) {
	s, ok := h.store(w)
	if !ok {
		return
	}

	index, err := decodeIndex(w, r)
	if err != nil {
		writeError(w, err)
		return
	}
	if err := s.SetCurrentIndex(index); err != nil {
		writeError(w, err)
		return
	}
	h.GetViewer(w, r)
}

func decodeIndex(w http.ResponseWriter, r *http.Request) (int, error) {
	var req viewerRequest
	if err := decodeJSON(w, r, &req); err != nil {
		return 0, err
	}
	if req.Index == nil {
		return 0, fmt.Errorf("%w: index is required", errBadRequest)
	}
	if *req.Index < 0 {
		return 0, fmt.Errorf("%w: index must not be negative", errBadRequest)
	}
	return *req.Index, nil
}
