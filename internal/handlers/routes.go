package handlers

import (
	"net/http"

	"github.com/gorilla/mux"
)

// Register adds the ops endpoints and the JSON API to r. /metrics is only
// added when metricsEnabled is set.
func (h *Handlers) Register(r *mux.Router, metricsEnabled bool) {
	r.HandleFunc("/health", h.HealthCheck).Methods(http.MethodGet)
	r.HandleFunc("/healthz", h.HealthCheck).Methods(http.MethodGet)
	r.HandleFunc("/livez", h.LivenessCheck).Methods(http.MethodGet, http.MethodHead)
	r.HandleFunc("/readyz", h.ReadinessCheck).Methods(http.MethodGet)
	r.HandleFunc("/version", h.GetVersion).Methods(http.MethodGet)
	if metricsEnabled {
		r.Handle("/metrics", h.MetricsHandler()).Methods(http.MethodGet)
	}

	api := r.PathPrefix("/api").Subrouter()

	// Active photos. Literal paths are registered before {id} routes.
	api.HandleFunc("/photos", h.ListPhotos).Methods(http.MethodGet)
	api.HandleFunc("/photos", h.UploadPhotos).Methods(http.MethodPost)
	api.HandleFunc("/photos/order", h.ReorderPhotos).Methods(http.MethodPut)
	api.HandleFunc("/photos/archive-oldest", h.ArchiveOldest).Methods(http.MethodPost)
	api.HandleFunc("/photos/{id}", h.DeletePhoto).Methods(http.MethodDelete)
	api.HandleFunc("/photos/{id}/archive", h.ArchivePhoto).Methods(http.MethodPost)
	api.HandleFunc("/photos/{id}/original", h.GetOriginal).Methods(http.MethodGet)
	api.HandleFunc("/photos/{id}/thumbnail", h.GetThumbnail).Methods(http.MethodGet)
	api.HandleFunc("/photos/{id}/display", h.GetDisplay).Methods(http.MethodGet)

	// Archive
	api.HandleFunc("/archive", h.ListArchive).Methods(http.MethodGet)
	api.HandleFunc("/archive/{id}/restore", h.RestorePhoto).Methods(http.MethodPost)
	api.HandleFunc("/archive/{id}", h.DeleteArchivedPhoto).Methods(http.MethodDelete)

	// Viewer
	api.HandleFunc("/viewer", h.GetViewer).Methods(http.MethodGet)
	api.HandleFunc("/viewer", h.OpenViewer).Methods(http.MethodPost)
	api.HandleFunc("/viewer", h.CloseViewer).Methods(http.MethodDelete)
	api.HandleFunc("/viewer/index", h.SetViewerIndex).Methods(http.MethodPut)

	// Settings
	api.HandleFunc("/settings", h.ListSettings).Methods(http.MethodGet)
	api.HandleFunc("/settings/{key}", h.GetSetting).Methods(http.MethodGet)
	api.HandleFunc("/settings/{key}", h.PutSetting).Methods(http.MethodPut)

	api.HandleFunc("/reset", h.HardReset).Methods(http.MethodPost)
}
