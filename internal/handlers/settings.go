package handlers

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/gorilla/mux"

	"photo-wallet/internal/settings"
)

// SettingValue is one flag in a settings response.
type SettingValue struct {
	Key   string `json:"key"`
	Scope string `json:"scope"`
	Value bool   `json:"value"`
}

// ListSettings returns every flag in both scopes.
func (h *Handlers) ListSettings(w http.ResponseWriter, _ *http.Request) {
	st := h.app.Settings()
	if st == nil {
		writeJSONError(w, "settings are not ready", http.StatusServiceUnavailable)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	writeJSON(w, map[string]map[string]bool{
		settings.Persistent.String(): st.All(settings.Persistent),
		settings.Session.String():    st.All(settings.Session),
	})
}

// GetSetting returns one flag. ?scope=session selects the session scope.
func (h *Handlers) GetSetting(w http.ResponseWriter, r *http.Request) {
	st := h.app.Settings()
	if st == nil {
		writeJSONError(w, "settings are not ready", http.StatusServiceUnavailable)
		return
	}

	key := mux.Vars(r)["key"]
	scope := settings.ParseScope(r.URL.Query().Get("scope"))
	w.Header().Set("Content-Type", "application/json")
	writeJSON(w, SettingValue{Key: key, Scope: scope.String(), Value: st.Get(scope, key)})
}

// PutSetting stores {"value": bool} for one flag.
func (h *Handlers) PutSetting(w http.ResponseWriter, r *http.Request) {
	st := h.app.Settings()
	if st == nil {
		writeJSONError(w, "settings are not ready", http.StatusServiceUnavailable)
		return
	}

	var req struct {
		Value *bool `json:"value"`
	}
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, err)
		return
	}
	if req.Value == nil {
		writeError(w, fmt.Errorf("%w: value is required", errBadRequest))
		return
	}

	key := mux.Vars(r)["key"]
	scope := settings.ParseScope(r.URL.Query().Get("scope"))
	if err := st.Set(scope, key, *req.Value); err != nil {
		if errors.Is(err, settings.ErrEmptyKey) {
			err = fmt.Errorf("%w: %v", errBadRequest, err)
		}
		writeError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	writeJSON(w, SettingValue{Key: key, Scope: scope.String(), Value: *req.Value})
}
