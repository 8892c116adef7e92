package wallet

// Viewer transitions are pure state changes with no I/O. The index passed to
// OpenViewer is not validated against the active list.

// OpenViewer opens the full-screen viewer at index.
func (s *Store) OpenViewer(index int) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.viewerOpen = true
	s.currentIndex = &index
}

// CloseViewer closes the viewer and clears the current index.
func (s *Store) CloseViewer() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.viewerOpen = false
	s.currentIndex = nil
}

// SetCurrentIndex moves the open viewer to index. It fails with
// ErrViewerClosed when the viewer is not open.
func (s *Store) SetCurrentIndex(index int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.viewerOpen {
		return ErrViewerClosed
	}
	s.currentIndex = &index
	return nil
}
