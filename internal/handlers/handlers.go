package handlers

import (
	"context"
	"net/http"
	"time"

	"photo-wallet/internal/cache"
	"photo-wallet/internal/mediatypes"
	"photo-wallet/internal/reset"
	"photo-wallet/internal/settings"
	"photo-wallet/internal/startup"
	"photo-wallet/internal/wallet"
)

// Backend is the running application as the handlers see it. Components
// are looked up per request because a hard reset replaces them.
type Backend interface {
	Store() *wallet.Store
	Queue() *wallet.Queue
	Settings() *settings.Store
	Caches() *cache.Caches
	HardReset(ctx context.Context) reset.Report
	Ready() bool
}

type Handlers struct {
	app         Backend
	maxFileSize int64
	startTime   time.Time
}

func New(app Backend, config *startup.Config) *Handlers {
	maxSize := mediatypes.DefaultMaxFileSize
	if config != nil && config.MaxFileSize > 0 {
		maxSize = config.MaxFileSize
	}
	return &Handlers{
		app:         app,
		maxFileSize: maxSize,
		startTime:   time.Now(),
	}
}

// store returns the current Photo Store, or writes 503 when the application
// is between a reset and its reload.
func (h *Handlers) store(w http.ResponseWriter) (*wallet.Store, bool) {
	s := h.app.Store()
	if s == nil {
		writeJSONError(w, "wallet is not ready", http.StatusServiceUnavailable)
		return nil, false
	}
	return s, true
}
