package handlers

import (
	"context"
	"net/http"

	"photo-wallet/internal/logging"
)

// HardReset wipes all local state and reloads the application. The report
// lists what was removed; a reset that failed to reload answers 500. The
// reset runs to completion even if the client goes away.
func (h *Handlers) HardReset(w http.ResponseWriter, r *http.Request) {
	logging.Warn("Hard reset requested from %s", r.RemoteAddr)

	report := h.app.HardReset(context.WithoutCancel(r.Context()))

	status := http.StatusOK
	if !report.Reloaded {
		status = http.StatusInternalServerError
	}
	writeJSONStatusCode(w, report, status)
}
